package repository

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cardshow/cardshow/internal/db/dbtest"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkPendingOnlyFromActive(t *testing.T) {
	db, mock := newMock(t)
	repo := NewListingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE listings SET status = $1, checkout_session_id = $2, buyer_id = $3`)).
		WithArgs(model.ListingStatusPending, "cs_1", "buyer", sqlmock.AnyArg(), "l1", model.ListingStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkPending("l1", "cs_1", "buyer")

	assert.ErrorIs(t, err, ErrListingNotAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func seedCard(t *testing.T, repo CardRepository, id, owner string) *model.Card {
	t.Helper()
	now := time.Now()
	card := &model.Card{
		ID:          id,
		CreatorID:   owner,
		OwnerID:     owner,
		Title:       "Card " + id,
		Rarity:      model.RarityRare,
		Visibility:  model.VisibilityPublic,
		EditionSize: 1,
		Source:      model.CardSourceStudio,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, repo.Create(card))
	return card
}

func TestListingLifecycle(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.SeedUser(t, database, "seller")
	dbtest.SeedUser(t, database, "buyer")
	cards := NewCardRepository(database)
	listings := NewListingRepository(database)
	seedCard(t, cards, "c1", "seller")

	now := time.Now()
	listing := &model.Listing{ID: "l1", CardID: "c1", SellerID: "seller", PriceCents: 2500, Currency: "usd", Status: model.ListingStatusActive, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, listings.Create(listing))

	second := *listing
	second.ID = "l2"
	assert.ErrorIs(t, listings.Create(&second), ErrCardAlreadyListed)

	require.NoError(t, listings.MarkPending("l1", "cs_1", "buyer"))
	assert.ErrorIs(t, listings.MarkPending("l1", "cs_2", "buyer"), ErrListingNotAvailable)

	bySession, err := listings.ByCheckoutSession("cs_1")
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusPending, bySession.Status)

	require.NoError(t, listings.Reactivate("l1", "cs_1"))
	got, err := listings.ByID("l1")
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusActive, got.Status)
	assert.Nil(t, got.CheckoutSessionID)

	require.NoError(t, listings.Cancel("l1"))
	assert.ErrorIs(t, listings.Cancel("l1"), ErrListingNotAvailable)

	_, err = listings.OpenByCard("c1")
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestCompleteSaleTransfersCardAndBooksEarning(t *testing.T) {
	database := dbtest.Open(t)
	dbtest.SeedUser(t, database, "seller")
	dbtest.SeedUser(t, database, "buyer")
	cards := NewCardRepository(database)
	listings := NewListingRepository(database)
	ledger := NewLedgerRepository(database)
	seedCard(t, cards, "c1", "seller")

	now := time.Now()
	require.NoError(t, listings.Create(&model.Listing{ID: "l1", CardID: "c1", SellerID: "seller", PriceCents: 1000, Currency: "usd", Status: model.ListingStatusActive, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, listings.MarkPending("l1", "cs_1", "buyer"))

	sale := &model.Transaction{ID: "t1", ListingID: "l1", CardID: "c1", BuyerID: "buyer", SellerID: "seller", GrossCents: 1000, FeeCents: 50, NetCents: 950, Currency: "usd", StripeSessionID: "cs_1", CreatedAt: now}
	earning := &model.Earning{ID: "e1", CreatorID: "seller", TransactionID: "t1", AmountCents: 950, Currency: "usd", Status: model.EarningStatusPending, CreatedAt: now}
	require.NoError(t, listings.CompleteSale(sale, earning))

	card, err := cards.ByID("c1")
	require.NoError(t, err)
	assert.Equal(t, "buyer", card.OwnerID)
	assert.Equal(t, "seller", card.CreatorID)

	listing, err := listings.ByID("l1")
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusSold, listing.Status)
	require.NotNil(t, listing.SoldAt)

	pending, paid, err := ledger.EarningTotals("seller")
	require.NoError(t, err)
	assert.Equal(t, int64(950), pending)
	assert.Zero(t, paid)

	// replaying the same sale must not double-book
	replay := *sale
	replay.ID = "t2"
	assert.ErrorIs(t, listings.CompleteSale(&replay, &model.Earning{ID: "e2", CreatorID: "seller", TransactionID: "t2", AmountCents: 950, Currency: "usd", Status: model.EarningStatusPending, CreatedAt: now}), ErrListingNotAvailable)
}
