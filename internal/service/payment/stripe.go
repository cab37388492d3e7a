package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/account"
	"github.com/stripe/stripe-go/v81/accountlink"
	checkoutsession "github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/transfer"
	"github.com/stripe/stripe-go/v81/webhook"
)

type StripeGateway struct {
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	// Set Stripe API key
	stripe.Key = secretKey

	slog.Info("stripe gateway initialized", "live", strings.HasPrefix(secretKey, "sk_live_"))

	return &StripeGateway{webhookSecret: webhookSecret}
}

// Stripe accepts expires_at between 30 minutes and 24 hours from creation.
const (
	minCheckoutTTL = 31 * time.Minute
	maxCheckoutTTL = 24 * time.Hour
)

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	params := checkoutParams(req, time.Now())
	params.Context = ctx

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	slog.Info("stripe checkout created", "listing_id", req.ListingID, "buyer_id", req.BuyerID, "session_id", sess.ID)
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

func checkoutParams(req CheckoutRequest, now time.Time) *stripe.CheckoutSessionParams {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(req.Title),
	}
	if req.ImageURL != "" {
		product.Images = []*string{stripe.String(req.ImageURL)}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(req.Currency),
					UnitAmount:  stripe.Int64(req.AmountCents),
					ProductData: product,
				},
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(req.BuyerID),
		Metadata: map[string]string{
			"listing_id": req.ListingID,
			"card_id":    req.CardID,
			"buyer_id":   req.BuyerID,
		},
	}
	if req.BuyerEmail != "" {
		params.CustomerEmail = stripe.String(req.BuyerEmail)
	}

	expires := req.ExpiresAt
	switch {
	case expires.IsZero(), expires.Sub(now) < minCheckoutTTL:
		expires = now.Add(minCheckoutTTL)
	case expires.Sub(now) > maxCheckoutTTL:
		expires = now.Add(maxCheckoutTTL)
	}
	params.ExpiresAt = stripe.Int64(expires.Unix())
	return params
}

func (g *StripeGateway) CreateConnectAccount(ctx context.Context, userID, email string) (string, error) {
	params := &stripe.AccountParams{
		Type: stripe.String(string(stripe.AccountTypeExpress)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata("user_id", userID)
	// one account per user even if the request is retried
	params.SetIdempotencyKey("connect-account-" + userID)
	params.Context = ctx

	acct, err := account.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create connect account: %w", err)
	}

	slog.Info("stripe connect account created", "user_id", userID, "account_id", acct.ID)
	return acct.ID, nil
}

func (g *StripeGateway) CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := accountlink.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create onboarding link: %w", err)
	}
	return link.URL, nil
}

func (g *StripeGateway) CreateTransfer(ctx context.Context, req TransferRequest) (string, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(req.AmountCents),
		Currency:    stripe.String(req.Currency),
		Destination: stripe.String(req.AccountID),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	tr, err := transfer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create transfer: %w", err)
	}

	slog.Info("stripe transfer created", "account_id", req.AccountID, "amount_cents", req.AmountCents, "transfer_id", tr.ID)
	return tr.ID, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	// Use ConstructEventWithOptions to ignore API version mismatch
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		g.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventCheckoutCompleted, EventCheckoutExpired, EventAsyncPaymentSucceeded, EventAsyncPaymentFailed:
		out.Session, err = parseSession(event.Data.Raw)
	case EventAccountUpdated:
		out.Account, err = parseAccount(event.Data.Raw)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseSession(data json.RawMessage) (*SessionEvent, error) {
	var checkoutSession struct {
		ID            string            `json:"id"`
		AmountTotal   int64             `json:"amount_total"`
		Currency      string            `json:"currency"`
		PaymentStatus string            `json:"payment_status"`
		PaymentIntent json.RawMessage   `json:"payment_intent"`
		Metadata      map[string]string `json:"metadata"`
	}

	err := json.Unmarshal(data, &checkoutSession)
	if err != nil {
		return nil, fmt.Errorf("%w: checkout session: %v", ErrMalformedEvent, err)
	}

	return &SessionEvent{
		ID:            checkoutSession.ID,
		ListingID:     checkoutSession.Metadata["listing_id"],
		BuyerID:       checkoutSession.Metadata["buyer_id"],
		AmountTotal:   checkoutSession.AmountTotal,
		Currency:      checkoutSession.Currency,
		PaymentIntent: expandableID(checkoutSession.PaymentIntent),
		Paid:          checkoutSession.PaymentStatus == "paid" || checkoutSession.PaymentStatus == "no_payment_required",
	}, nil
}

func parseAccount(data json.RawMessage) (*AccountEvent, error) {
	var acct struct {
		ID               string `json:"id"`
		ChargesEnabled   bool   `json:"charges_enabled"`
		PayoutsEnabled   bool   `json:"payouts_enabled"`
		DetailsSubmitted bool   `json:"details_submitted"`
	}

	err := json.Unmarshal(data, &acct)
	if err != nil {
		return nil, fmt.Errorf("%w: account: %v", ErrMalformedEvent, err)
	}

	return &AccountEvent{
		ID:                 acct.ID,
		ChargesEnabled:     acct.ChargesEnabled,
		PayoutsEnabled:     acct.PayoutsEnabled,
		OnboardingComplete: acct.DetailsSubmitted,
	}, nil
}

// expandableID reads a Stripe field that is either an id string or an expanded object.
func expandableID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if json.Unmarshal(raw, &id) == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.ID
	}
	return ""
}
