package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cardshow/cardshow/internal/db"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrListingNotFound     = errors.New("listing not found")
	ErrCardAlreadyListed   = errors.New("card already has an open listing")
	ErrListingNotAvailable = errors.New("listing is no longer available")
)

type ListingRepository interface {
	Create(listing *model.Listing) error
	ByID(id string) (*model.Listing, error)
	ByCheckoutSession(sessionID string) (*model.Listing, error)
	OpenByCard(cardID string) (*model.Listing, error)
	Active(filter model.ListingFilter) ([]*model.Listing, error)
	BySeller(sellerID string) ([]*model.Listing, error)
	MarkPending(id, sessionID, buyerID string) error
	Reactivate(id, sessionID string) error
	Cancel(id string) error
	CompleteSale(sale *model.Transaction, earning *model.Earning) error
}

type listingRepository struct {
	db *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(listing *model.Listing) error {
	query := `INSERT INTO listings (id, card_id, seller_id, price_cents, currency, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		listing.ID,
		listing.CardID,
		listing.SellerID,
		listing.PriceCents,
		listing.Currency,
		listing.Status,
		listing.CreatedAt,
		listing.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrCardAlreadyListed
		}
		return err
	}

	return nil
}

func (r *listingRepository) ByID(id string) (*model.Listing, error) {
	listing := &model.Listing{}
	query := `SELECT * FROM listings WHERE id = $1`

	err := r.db.Get(listing, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrListingNotFound
	}

	return listing, err
}

func (r *listingRepository) ByCheckoutSession(sessionID string) (*model.Listing, error) {
	listing := &model.Listing{}
	query := `SELECT * FROM listings WHERE checkout_session_id = $1`

	err := r.db.Get(listing, query, sessionID)
	if err == sql.ErrNoRows {
		return nil, ErrListingNotFound
	}

	return listing, err
}

func (r *listingRepository) OpenByCard(cardID string) (*model.Listing, error) {
	listing := &model.Listing{}
	query := `SELECT * FROM listings WHERE card_id = $1 AND status IN ('active', 'pending')`

	err := r.db.Get(listing, query, cardID)
	if err == sql.ErrNoRows {
		return nil, ErrListingNotFound
	}

	return listing, err
}

func (r *listingRepository) Active(filter model.ListingFilter) ([]*model.Listing, error) {
	w := &where{}
	w.add("l.status = ?", model.ListingStatusActive)
	if filter.Rarity != "" {
		w.add("c.rarity = ?", filter.Rarity)
	}
	if filter.MinPriceCents > 0 {
		w.add("l.price_cents >= ?", filter.MinPriceCents)
	}
	if filter.MaxPriceCents > 0 {
		w.add("l.price_cents <= ?", filter.MaxPriceCents)
	}

	query := `SELECT l.* FROM listings l JOIN cards c ON c.id = l.card_id` +
		w.sql() + ` ORDER BY l.created_at DESC, l.id ASC` + w.page(filter.Limit, filter.Offset)

	var listings []*model.Listing
	err := r.db.Select(&listings, query, w.args...)
	if err != nil {
		return nil, err
	}

	return listings, nil
}

func (r *listingRepository) BySeller(sellerID string) ([]*model.Listing, error) {
	var listings []*model.Listing
	query := `SELECT * FROM listings WHERE seller_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&listings, query, sellerID)
	if err != nil {
		return nil, err
	}

	return listings, nil
}

// MarkPending reserves an active listing for a checkout session.
func (r *listingRepository) MarkPending(id, sessionID, buyerID string) error {
	query := `UPDATE listings SET status = $1, checkout_session_id = $2, buyer_id = $3, updated_at = $4
	          WHERE id = $5 AND status = $6`

	return r.transition(query, model.ListingStatusPending, sessionID, buyerID, time.Now(), id, model.ListingStatusActive)
}

// Reactivate releases a pending listing whose checkout session expired.
func (r *listingRepository) Reactivate(id, sessionID string) error {
	query := `UPDATE listings SET status = $1, checkout_session_id = NULL, buyer_id = NULL, updated_at = $2
	          WHERE id = $3 AND status = $4 AND checkout_session_id = $5`

	return r.transition(query, model.ListingStatusActive, time.Now(), id, model.ListingStatusPending, sessionID)
}

func (r *listingRepository) Cancel(id string) error {
	query := `UPDATE listings SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	return r.transition(query, model.ListingStatusCancelled, time.Now(), id, model.ListingStatusActive)
}

func (r *listingRepository) transition(query string, args ...any) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrListingNotAvailable
	}

	return nil
}

// CompleteSale marks the listing sold, hands the card to the buyer and books
// the transaction plus the seller's pending earning in one database transaction.
func (r *listingRepository) CompleteSale(sale *model.Transaction, earning *model.Earning) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE listings SET status = $1, buyer_id = $2, sold_at = $3, updated_at = $4
	                        WHERE id = $5 AND status IN ('active', 'pending')`,
		model.ListingStatusSold, sale.BuyerID, sale.CreatedAt, sale.CreatedAt, sale.ListingID)
	if err != nil {
		return fmt.Errorf("failed to mark listing sold: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrListingNotAvailable
	}

	_, err = tx.Exec(`UPDATE cards SET owner_id = $1, updated_at = $2 WHERE id = $3`, sale.BuyerID, sale.CreatedAt, sale.CardID)
	if err != nil {
		return fmt.Errorf("failed to transfer card: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO transactions (id, listing_id, card_id, buyer_id, seller_id, gross_cents, fee_cents, net_cents, currency,
	                      stripe_session_id, stripe_payment_intent, created_at)
	                  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sale.ID, sale.ListingID, sale.CardID, sale.BuyerID, sale.SellerID, sale.GrossCents, sale.FeeCents, sale.NetCents,
		sale.Currency, sale.StripeSessionID, sale.StripePaymentIntent, sale.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrListingNotAvailable
		}
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO earnings (id, creator_id, transaction_id, amount_cents, currency, status, created_at)
	                  VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		earning.ID, earning.CreatorID, earning.TransactionID, earning.AmountCents, earning.Currency, earning.Status, earning.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record earning: %w", err)
	}

	return tx.Commit()
}
