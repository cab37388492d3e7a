package service

import (
	"context"
	"testing"
	"time"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/cardshow/cardshow/internal/service/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformFee(t *testing.T) {
	assert.Equal(t, int64(50), PlatformFee(1000, 500))
	assert.Equal(t, int64(3), PlatformFee(50, 500)) // 2.5 rounds half up
	assert.Equal(t, int64(0), PlatformFee(1000, 0))
	assert.Equal(t, int64(0), PlatformFee(0, 500))
}

func TestCreateListingRules(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "seller")
	env.seedAccount(t, "other")
	card := env.seedPublicCard(t, "seller", "Ember Drake")

	_, err := env.marketplace.CreateListing("seller", card.ID, 49)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.marketplace.CreateListing("other", card.ID, 500)
	assert.ErrorIs(t, err, ErrCardNotOwned)

	draft, err := env.cards.Create(context.Background(), "seller", CardInput{Title: "Sketch"})
	require.NoError(t, err)
	_, err = env.marketplace.CreateListing("seller", draft.ID, 500)
	assert.ErrorIs(t, err, ErrInvalidInput)

	listing, err := env.marketplace.CreateListing("seller", card.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusActive, listing.Status)
	assert.Equal(t, "usd", listing.Currency)

	_, err = env.marketplace.CreateListing("seller", card.ID, 700)
	assert.ErrorIs(t, err, repository.ErrCardAlreadyListed)

	err = env.cards.Delete(context.Background(), "seller", card.ID)
	assert.ErrorIs(t, err, ErrCardListed)
}

func TestCheckoutRejectsOwnListing(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(t, "seller")
	card := env.seedPublicCard(t, "seller", "Ember Drake")
	listing, err := env.marketplace.CreateListing("seller", card.ID, 1000)
	require.NoError(t, err)

	_, err = env.marketplace.Checkout(context.Background(), "seller", listing.ID)

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, env.gateway.sessions)
}

func TestCheckoutAndWebhookCompleteSale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "seller")
	env.seedAccount(t, "buyer")
	card := env.seedPublicCard(t, "seller", "Ember Drake")
	listing, err := env.marketplace.CreateListing("seller", card.ID, 1000)
	require.NoError(t, err)

	sess, err := env.marketplace.Checkout(ctx, "buyer", listing.ID)
	require.NoError(t, err)
	assert.Equal(t, "cs_"+listing.ID, sess.SessionID)
	require.Len(t, env.gateway.sessions, 1)
	assert.Equal(t, int64(1000), env.gateway.sessions[0].AmountCents)
	assert.Equal(t, "buyer@example.com", env.gateway.sessions[0].BuyerEmail)
	assert.WithinDuration(t, time.Now().Add(DefaultCheckoutTTL), env.gateway.sessions[0].ExpiresAt, time.Minute)

	pending, err := env.marketplace.Get(listing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusPending, pending.Status)

	// a second buyer cannot reserve a pending listing
	env.seedAccount(t, "late")
	_, err = env.marketplace.Checkout(ctx, "late", listing.ID)
	assert.ErrorIs(t, err, ErrListingNotActive)

	env.gateway.event = &payment.Event{
		ID:   "evt_1",
		Type: payment.EventCheckoutCompleted,
		Session: &payment.SessionEvent{
			ID:          sess.SessionID,
			ListingID:   listing.ID,
			BuyerID:     "buyer",
			AmountTotal: 1000,
			Currency:    "usd",
			Paid:        true,
		},
	}
	require.NoError(t, env.marketplace.HandleWebhook(ctx, []byte("{}"), "valid"))

	sold, err := env.marketplace.Get(listing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusSold, sold.Status)
	assert.Equal(t, "buyer", sold.Card.OwnerID)

	summary, err := env.creator.Earnings("seller")
	require.NoError(t, err)
	assert.Equal(t, int64(950), summary.PendingCents)
	require.Len(t, summary.Earnings, 1)

	// replay of the same event is acknowledged without booking twice
	require.NoError(t, env.marketplace.HandleWebhook(ctx, []byte("{}"), "valid"))
	summary, err = env.creator.Earnings("seller")
	require.NoError(t, err)
	assert.Equal(t, int64(950), summary.PendingCents)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)

	err := env.marketplace.HandleWebhook(context.Background(), []byte("{}"), "forged")

	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
}

func TestExpiredCheckoutReactivatesListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "seller")
	env.seedAccount(t, "buyer")
	card := env.seedPublicCard(t, "seller", "Ember Drake")
	listing, err := env.marketplace.CreateListing("seller", card.ID, 1000)
	require.NoError(t, err)
	sess, err := env.marketplace.Checkout(ctx, "buyer", listing.ID)
	require.NoError(t, err)

	env.gateway.event = &payment.Event{
		ID:      "evt_expired",
		Type:    payment.EventCheckoutExpired,
		Session: &payment.SessionEvent{ID: sess.SessionID, ListingID: listing.ID},
	}
	require.NoError(t, env.marketplace.HandleWebhook(ctx, []byte("{}"), "valid"))

	got, err := env.marketplace.Get(listing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusActive, got.Status)

	require.NoError(t, env.marketplace.Cancel("seller", listing.ID))
	assert.ErrorIs(t, env.marketplace.Cancel("buyer", listing.ID), ErrNotOwner)
}

func TestAsyncPaymentSettlesSale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "seller")
	env.seedAccount(t, "buyer")
	card := env.seedPublicCard(t, "seller", "Ember Drake")
	listing, err := env.marketplace.CreateListing("seller", card.ID, 1000)
	require.NoError(t, err)
	sess, err := env.marketplace.Checkout(ctx, "buyer", listing.ID)
	require.NoError(t, err)

	session := payment.SessionEvent{
		ID:          sess.SessionID,
		ListingID:   listing.ID,
		BuyerID:     "buyer",
		AmountTotal: 1000,
		Currency:    "usd",
	}

	// bank debit: the session completes before the money arrives
	unpaid := session
	env.gateway.event = &payment.Event{ID: "evt_completed", Type: payment.EventCheckoutCompleted, Session: &unpaid}
	require.NoError(t, env.marketplace.HandleWebhook(ctx, []byte("{}"), "valid"))

	got, err := env.marketplace.Get(listing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusPending, got.Status)

	paid := session
	paid.Paid = true
	env.gateway.event = &payment.Event{ID: "evt_settled", Type: payment.EventAsyncPaymentSucceeded, Session: &paid}
	require.NoError(t, env.marketplace.HandleWebhook(ctx, []byte("{}"), "valid"))

	got, err = env.marketplace.Get(listing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusSold, got.Status)
	assert.Equal(t, "buyer", got.Card.OwnerID)

	summary, err := env.creator.Earnings("seller")
	require.NoError(t, err)
	assert.Equal(t, int64(950), summary.PendingCents)
}

func TestAsyncPaymentFailureReleasesListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "seller")
	env.seedAccount(t, "buyer")
	card := env.seedPublicCard(t, "seller", "Ember Drake")
	listing, err := env.marketplace.CreateListing("seller", card.ID, 1000)
	require.NoError(t, err)
	sess, err := env.marketplace.Checkout(ctx, "buyer", listing.ID)
	require.NoError(t, err)

	env.gateway.event = &payment.Event{
		ID:      "evt_failed",
		Type:    payment.EventAsyncPaymentFailed,
		Session: &payment.SessionEvent{ID: sess.SessionID, ListingID: listing.ID, BuyerID: "buyer"},
	}
	require.NoError(t, env.marketplace.HandleWebhook(ctx, []byte("{}"), "valid"))

	got, err := env.marketplace.Get(listing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusActive, got.Status)
	assert.Equal(t, "seller", got.Card.OwnerID)

	// the listing can be bought again
	env.seedAccount(t, "second")
	_, err = env.marketplace.Checkout(ctx, "second", listing.ID)
	require.NoError(t, err)
}
