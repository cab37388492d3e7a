package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/cardshow/cardshow/internal/service/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sellCard runs a listing through checkout and a paid webhook.
func sellCard(t *testing.T, env *testEnv, seller, buyer, title string, price int64) {
	t.Helper()
	ctx := context.Background()
	card := env.seedPublicCard(t, seller, title)
	listing, err := env.marketplace.CreateListing(seller, card.ID, price)
	require.NoError(t, err)
	sess, err := env.marketplace.Checkout(ctx, buyer, listing.ID)
	require.NoError(t, err)

	env.gateway.event = &payment.Event{
		ID:   "evt_" + listing.ID,
		Type: payment.EventCheckoutCompleted,
		Session: &payment.SessionEvent{
			ID: sess.SessionID, ListingID: listing.ID, BuyerID: buyer,
			AmountTotal: price, Currency: "usd", Paid: true,
		},
	}
	require.NoError(t, env.marketplace.HandleWebhook(ctx, nil, "valid"))
}

func enablePayouts(t *testing.T, env *testEnv, userID string) {
	t.Helper()
	_, err := env.creator.EnsureConnectAccount(context.Background(), userID)
	require.NoError(t, err)
	env.gateway.event = &payment.Event{
		ID:      "evt_acct_" + userID,
		Type:    payment.EventAccountUpdated,
		Account: &payment.AccountEvent{ID: "acct_" + userID, ChargesEnabled: true, PayoutsEnabled: true, OnboardingComplete: true},
	}
	require.NoError(t, env.marketplace.HandleWebhook(context.Background(), nil, "valid"))
}

func TestPayoutRunTransfersBalances(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "seller")
	env.seedAccount(t, "buyer")
	enablePayouts(t, env, "seller")
	sellCard(t, env, "seller", "buyer", "Ember Drake", 1200)
	sellCard(t, env, "seller", "buyer", "Frost Wyrm", 800)

	run, err := env.payouts.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, run.Paid)
	assert.Equal(t, int64(1900), run.TotalCents) // 1140 + 760
	require.Len(t, env.gateway.transfers, 1)
	assert.Equal(t, "acct_seller", env.gateway.transfers[0].AccountID)
	assert.Equal(t, int64(1900), env.gateway.transfers[0].AmountCents)

	summary, err := env.creator.Earnings("seller")
	require.NoError(t, err)
	assert.Zero(t, summary.PendingCents)
	assert.Equal(t, int64(1900), summary.PaidCents)
	require.Len(t, summary.Payouts, 1)
	assert.Equal(t, model.PayoutStatusCompleted, summary.Payouts[0].Status)

	// nothing left to pay
	run, err = env.payouts.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, run.Considered)
}

func TestPayoutRunSkipsSmallBalancesAndDisabledAccounts(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "small")
	env.seedAccount(t, "unboarded")
	env.seedAccount(t, "buyer")
	enablePayouts(t, env, "small")
	sellCard(t, env, "small", "buyer", "Pebble", 500)
	sellCard(t, env, "unboarded", "buyer", "Boulder", 5000)

	run, err := env.payouts.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, run.Considered)
	assert.Equal(t, 1, run.Skipped)
	assert.Empty(t, env.gateway.transfers)
}

func TestPayoutFailureReleasesEarnings(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "seller")
	env.seedAccount(t, "buyer")
	enablePayouts(t, env, "seller")
	sellCard(t, env, "seller", "buyer", "Ember Drake", 2000)
	env.gateway.transferErr = errTransferDeclined

	run, err := env.payouts.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, run.Failed)

	summary, err := env.creator.Earnings("seller")
	require.NoError(t, err)
	assert.Equal(t, int64(1900), summary.PendingCents)
	require.Len(t, summary.Payouts, 1)
	assert.Equal(t, model.PayoutStatusFailed, summary.Payouts[0].Status)

	env.gateway.transferErr = nil
	run, err = env.payouts.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, run.Paid)
}

// flakyLedger loses the first CompletePayout write.
type flakyLedger struct {
	repository.LedgerRepository
	failures int
}

func (l *flakyLedger) CompletePayout(payoutID, transferID string) error {
	if l.failures > 0 {
		l.failures--
		return errors.New("database is locked")
	}
	return l.LedgerRepository.CompletePayout(payoutID, transferID)
}

func TestPayoutRunReconcilesUnrecordedTransfer(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "seller")
	env.seedAccount(t, "buyer")
	enablePayouts(t, env, "seller")
	sellCard(t, env, "seller", "buyer", "Ember Drake", 2000)

	ledger := &flakyLedger{LedgerRepository: env.ledger, failures: 1}
	users := repository.NewUserRepository(env.db)
	payouts := NewPayoutService(ledger, env.creators, users, env.gateway, env.email, 1000)

	run, err := payouts.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, run.Failed)
	require.Len(t, env.gateway.transfers, 1)

	// the earnings stay claimed by the pending payout, so they are not paid twice
	summary, err := env.creator.Earnings("seller")
	require.NoError(t, err)
	require.Len(t, summary.Payouts, 1)
	assert.Equal(t, model.PayoutStatusPending, summary.Payouts[0].Status)
	stuckID := summary.Payouts[0].ID

	run, err = payouts.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, run.Reconciled)
	assert.Zero(t, run.Paid)
	assert.Equal(t, int64(1900), run.TotalCents)

	require.Len(t, env.gateway.transfers, 2)
	assert.Equal(t, stuckID, env.gateway.transfers[1].IdempotencyKey)
	assert.Equal(t, env.gateway.transfers[0].IdempotencyKey, env.gateway.transfers[1].IdempotencyKey)
	assert.Equal(t, env.gateway.transfers[0].AmountCents, env.gateway.transfers[1].AmountCents)

	summary, err = env.creator.Earnings("seller")
	require.NoError(t, err)
	assert.Zero(t, summary.PendingCents)
	assert.Equal(t, int64(1900), summary.PaidCents)
	require.Len(t, summary.Payouts, 1)
	assert.Equal(t, model.PayoutStatusCompleted, summary.Payouts[0].Status)
}

func TestPayoutRetryFailureKeepsPayoutPending(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "seller")
	env.seedAccount(t, "buyer")
	enablePayouts(t, env, "seller")
	sellCard(t, env, "seller", "buyer", "Ember Drake", 2000)

	ledger := &flakyLedger{LedgerRepository: env.ledger, failures: 1}
	payouts := NewPayoutService(ledger, env.creators, repository.NewUserRepository(env.db), env.gateway, env.email, 1000)

	_, err := payouts.Run(context.Background())
	require.NoError(t, err)

	env.gateway.transferErr = errTransferDeclined
	run, err := payouts.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, run.Failed)
	assert.Zero(t, run.Reconciled)

	summary, err := env.creator.Earnings("seller")
	require.NoError(t, err)
	require.Len(t, summary.Payouts, 1)
	assert.Equal(t, model.PayoutStatusPending, summary.Payouts[0].Status)
}
