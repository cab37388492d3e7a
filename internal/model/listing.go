package model

import "time"

const (
	ListingStatusActive    = "active"
	ListingStatusPending   = "pending"
	ListingStatusSold      = "sold"
	ListingStatusCancelled = "cancelled"
)

// MinListingPriceCents is the smallest charge Stripe accepts in USD.
const MinListingPriceCents = 50

type Listing struct {
	ID                string     `db:"id" json:"id"`
	CardID            string     `db:"card_id" json:"card_id"`
	SellerID          string     `db:"seller_id" json:"seller_id"`
	PriceCents        int64      `db:"price_cents" json:"price_cents"`
	Currency          string     `db:"currency" json:"currency"`
	Status            string     `db:"status" json:"status"`
	CheckoutSessionID *string    `db:"checkout_session_id" json:"-"`
	BuyerID           *string    `db:"buyer_id" json:"buyer_id,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	SoldAt            *time.Time `db:"sold_at" json:"sold_at,omitempty"`

	Card *Card `db:"-" json:"card,omitempty"`
}

func (l *Listing) IsOpen() bool {
	return l.Status == ListingStatusActive || l.Status == ListingStatusPending
}

// ListingFilter narrows marketplace browsing. Zero values mean unbounded.
type ListingFilter struct {
	Rarity        string
	MinPriceCents int64
	MaxPriceCents int64
	Limit         int
	Offset        int
}

// CheckoutSession is what the client needs to redirect the buyer to Stripe.
type CheckoutSession struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}
