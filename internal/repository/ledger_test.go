package repository

import (
	"testing"
	"time"

	"github.com/cardshow/cardshow/internal/db/dbtest"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedSale books a completed sale of amount cents for seller.
func seedSale(t *testing.T, database *sqlx.DB, n string, seller string, amount int64) {
	t.Helper()
	cards := NewCardRepository(database)
	listings := NewListingRepository(database)
	seedCard(t, cards, "card-"+n, seller)

	now := time.Now()
	require.NoError(t, listings.Create(&model.Listing{ID: "listing-" + n, CardID: "card-" + n, SellerID: seller, PriceCents: amount, Currency: "usd", Status: model.ListingStatusActive, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, listings.CompleteSale(
		&model.Transaction{ID: "tx-" + n, ListingID: "listing-" + n, CardID: "card-" + n, BuyerID: "buyer", SellerID: seller, GrossCents: amount, NetCents: amount, Currency: "usd", StripeSessionID: "cs-" + n, CreatedAt: now},
		&model.Earning{ID: "earning-" + n, CreatorID: seller, TransactionID: "tx-" + n, AmountCents: amount, Currency: "usd", Status: model.EarningStatusPending, CreatedAt: now},
	))
}

func enablePayouts(t *testing.T, database *sqlx.DB, userID, account string) {
	t.Helper()
	creators := NewCreatorRepository(database)
	now := time.Now()
	require.NoError(t, creators.Create(&model.CreatorProfile{UserID: userID, DisplayName: userID, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, creators.SetStripeAccount(userID, account))
	require.NoError(t, creators.UpdateConnectStatus(account, true, true, true))
}

func TestPayoutClaimAndComplete(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.SeedUser(t, database, "seller")
	dbtest.SeedUser(t, database, "buyer")
	enablePayouts(t, database, "seller", "acct_1")
	seedSale(t, database, "1", "seller", 700)
	seedSale(t, database, "2", "seller", 800)
	ledger := NewLedgerRepository(database)

	balances, err := ledger.PendingBalances()
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, int64(1500), balances[0].AmountCents)

	payout := &model.Payout{ID: "p1", CreatorID: "seller", Currency: "usd", CreatedAt: time.Now()}
	require.NoError(t, ledger.ClaimEarnings(payout))
	assert.Equal(t, int64(1500), payout.AmountCents)

	// claimed earnings are no longer offered to another run
	balances, err = ledger.PendingBalances()
	require.NoError(t, err)
	assert.Empty(t, balances)

	stuck, err := ledger.PendingPayouts()
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, "p1", stuck[0].ID)

	require.NoError(t, ledger.CompletePayout("p1", "tr_1"))

	stuck, err = ledger.PendingPayouts()
	require.NoError(t, err)
	assert.Empty(t, stuck)

	pending, paid, err := ledger.EarningTotals("seller")
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Equal(t, int64(1500), paid)

	stored, err := ledger.PayoutByID("p1")
	require.NoError(t, err)
	assert.Equal(t, model.PayoutStatusCompleted, stored.Status)
	require.NotNil(t, stored.StripeTransferID)
	assert.Equal(t, "tr_1", *stored.StripeTransferID)
}

func TestFailPayoutReleasesEarnings(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.SeedUser(t, database, "seller")
	dbtest.SeedUser(t, database, "buyer")
	enablePayouts(t, database, "seller", "acct_1")
	seedSale(t, database, "1", "seller", 2000)
	ledger := NewLedgerRepository(database)

	payout := &model.Payout{ID: "p1", CreatorID: "seller", Currency: "usd", CreatedAt: time.Now()}
	require.NoError(t, ledger.ClaimEarnings(payout))
	require.NoError(t, ledger.FailPayout("p1", "insufficient platform balance"))

	balances, err := ledger.PendingBalances()
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, int64(2000), balances[0].AmountCents)

	payouts, err := ledger.PayoutsByCreator("seller", 10)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, model.PayoutStatusFailed, payouts[0].Status)
	assert.Equal(t, "insufficient platform balance", payouts[0].FailureReason)
}

func TestClaimWithoutEarnings(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.SeedUser(t, database, "seller")
	ledger := NewLedgerRepository(database)

	err := ledger.ClaimEarnings(&model.Payout{ID: "p1", CreatorID: "seller", Currency: "usd", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrNothingToPay)

	_, err = ledger.PayoutByID("p1")
	assert.ErrorIs(t, err, ErrPayoutNotFound)
}

func TestPendingBalancesSkipsCreatorsWithoutPayouts(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.SeedUser(t, database, "seller")
	dbtest.SeedUser(t, database, "buyer")
	seedSale(t, database, "1", "seller", 900)

	balances, err := NewLedgerRepository(database).PendingBalances()
	require.NoError(t, err)
	assert.Empty(t, balances)
}
