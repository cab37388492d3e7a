package model

import "time"

// Transaction records a completed marketplace sale.
type Transaction struct {
	ID                  string    `db:"id" json:"id"`
	ListingID           string    `db:"listing_id" json:"listing_id"`
	CardID              string    `db:"card_id" json:"card_id"`
	BuyerID             string    `db:"buyer_id" json:"buyer_id"`
	SellerID            string    `db:"seller_id" json:"seller_id"`
	GrossCents          int64     `db:"gross_cents" json:"gross_cents"`
	FeeCents            int64     `db:"fee_cents" json:"fee_cents"`
	NetCents            int64     `db:"net_cents" json:"net_cents"`
	Currency            string    `db:"currency" json:"currency"`
	StripeSessionID     string    `db:"stripe_session_id" json:"-"`
	StripePaymentIntent string    `db:"stripe_payment_intent" json:"-"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

const (
	EarningStatusPending = "pending"
	EarningStatusPaid    = "paid"
)

// Earning is the seller's share of one transaction, waiting for a payout.
type Earning struct {
	ID            string     `db:"id" json:"id"`
	CreatorID     string     `db:"creator_id" json:"creator_id"`
	TransactionID string     `db:"transaction_id" json:"transaction_id"`
	AmountCents   int64      `db:"amount_cents" json:"amount_cents"`
	Currency      string     `db:"currency" json:"currency"`
	Status        string     `db:"status" json:"status"`
	PayoutID      *string    `db:"payout_id" json:"payout_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	PaidAt        *time.Time `db:"paid_at" json:"paid_at,omitempty"`
}

const (
	PayoutStatusPending   = "pending"
	PayoutStatusCompleted = "completed"
	PayoutStatusFailed    = "failed"
)

type Payout struct {
	ID               string     `db:"id" json:"id"`
	CreatorID        string     `db:"creator_id" json:"creator_id"`
	AmountCents      int64      `db:"amount_cents" json:"amount_cents"`
	Currency         string     `db:"currency" json:"currency"`
	Status           string     `db:"status" json:"status"`
	StripeTransferID *string    `db:"stripe_transfer_id" json:"stripe_transfer_id,omitempty"`
	FailureReason    string     `db:"failure_reason" json:"failure_reason,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// PendingBalance is the sum of a creator's unpaid earnings in one currency.
type PendingBalance struct {
	CreatorID   string `db:"creator_id"`
	Currency    string `db:"currency"`
	AmountCents int64  `db:"amount_cents"`
}

// PayoutRun summarizes one pass of the payout job.
type PayoutRun struct {
	Considered int   `json:"considered"`
	Paid       int   `json:"paid"`
	Failed     int   `json:"failed"`
	Skipped    int   `json:"skipped"`
	Reconciled int   `json:"reconciled"`
	TotalCents int64 `json:"total_cents"`
}
