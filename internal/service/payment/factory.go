package payment

import (
	"context"
	"log/slog"

	"github.com/cardshow/cardshow/internal/config"
)

// NewGateway returns the Stripe gateway when a secret key is configured and a
// gateway that refuses every call otherwise, so development runs without Stripe.
func NewGateway(cfg *config.Config) Gateway {
	if !cfg.PaymentsEnabled() {
		slog.Warn("payments disabled, STRIPE_SECRET_KEY not set")
		return disabledGateway{}
	}
	return NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
}

type disabledGateway struct{}

func (disabledGateway) CreateCheckoutSession(context.Context, CheckoutRequest) (*Session, error) {
	return nil, ErrPaymentsDisabled
}

func (disabledGateway) CreateConnectAccount(context.Context, string, string) (string, error) {
	return "", ErrPaymentsDisabled
}

func (disabledGateway) CreateOnboardingLink(context.Context, string, string, string) (string, error) {
	return "", ErrPaymentsDisabled
}

func (disabledGateway) CreateTransfer(context.Context, TransferRequest) (string, error) {
	return "", ErrPaymentsDisabled
}

func (disabledGateway) ParseWebhook([]byte, string) (*Event, error) {
	return nil, ErrPaymentsDisabled
}
