// Package payment talks to the card marketplace's payment processor.
package payment

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPaymentsDisabled = errors.New("payments are not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook event")
)

const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventCheckoutExpired       = "checkout.session.expired"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	EventAccountUpdated        = "account.updated"
)

// CheckoutRequest describes a one-off card purchase.
type CheckoutRequest struct {
	ListingID   string
	CardID      string
	BuyerID     string
	BuyerEmail  string
	Title       string
	ImageURL    string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
	// ExpiresAt releases the reserved listing if the buyer never pays.
	ExpiresAt time.Time
}

type Session struct {
	ID  string
	URL string
}

// TransferRequest moves platform funds to a connected account.
// IdempotencyKey makes retries of the same payout safe.
type TransferRequest struct {
	AccountID      string
	AmountCents    int64
	Currency       string
	IdempotencyKey string
	Description    string
}

// Event is a verified webhook event. Exactly one of Session or Account is set
// for the event types the marketplace handles.
type Event struct {
	ID      string
	Type    string
	Session *SessionEvent
	Account *AccountEvent
}

type SessionEvent struct {
	ID            string
	ListingID     string
	BuyerID       string
	AmountTotal   int64
	Currency      string
	PaymentIntent string
	Paid          bool
}

type AccountEvent struct {
	ID                 string
	ChargesEnabled     bool
	PayoutsEnabled     bool
	OnboardingComplete bool
}

// Gateway is the subset of the payment processor the marketplace uses.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	CreateConnectAccount(ctx context.Context, userID, email string) (string, error)
	CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	CreateTransfer(ctx context.Context, req TransferRequest) (string, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
