package payment

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"
)

const testSecret = "whsec_test_secret"

func signed(t *testing.T, payload string) (string, []byte) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return sp.Header, sp.Payload
}

func TestParseWebhookCheckoutCompleted(t *testing.T) {
	g := &StripeGateway{webhookSecret: testSecret}
	header, body := signed(t, `{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"amount_total": 1500,
			"currency": "usd",
			"payment_status": "paid",
			"payment_intent": "pi_123",
			"metadata": {"listing_id": "l-1", "buyer_id": "u-2"}
		}}
	}`)

	event, err := g.ParseWebhook(body, header)
	require.NoError(t, err)

	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventCheckoutCompleted, event.Type)
	require.NotNil(t, event.Session)
	assert.Equal(t, "cs_test_1", event.Session.ID)
	assert.Equal(t, "l-1", event.Session.ListingID)
	assert.Equal(t, "u-2", event.Session.BuyerID)
	assert.Equal(t, int64(1500), event.Session.AmountTotal)
	assert.Equal(t, "pi_123", event.Session.PaymentIntent)
	assert.True(t, event.Session.Paid)
}

func TestParseWebhookAccountUpdated(t *testing.T) {
	g := &StripeGateway{webhookSecret: testSecret}
	header, body := signed(t, `{
		"id": "evt_2",
		"object": "event",
		"type": "account.updated",
		"data": {"object": {"id": "acct_1", "object": "account", "charges_enabled": true, "payouts_enabled": true, "details_submitted": true}}
	}`)

	event, err := g.ParseWebhook(body, header)
	require.NoError(t, err)
	require.NotNil(t, event.Account)
	assert.Equal(t, "acct_1", event.Account.ID)
	assert.True(t, event.Account.PayoutsEnabled)
	assert.True(t, event.Account.OnboardingComplete)
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	g := &StripeGateway{webhookSecret: testSecret}

	_, err := g.ParseWebhook([]byte(`{"id":"evt_3"}`), "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestExpandableID(t *testing.T) {
	assert.Equal(t, "pi_1", expandableID(json.RawMessage(`"pi_1"`)))
	assert.Equal(t, "pi_2", expandableID(json.RawMessage(`{"id":"pi_2","object":"payment_intent"}`)))
	assert.Equal(t, "", expandableID(json.RawMessage(`null`)))
}

func TestDisabledGatewayRefusesCalls(t *testing.T) {
	var g Gateway = disabledGateway{}

	_, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{})
	assert.ErrorIs(t, err, ErrPaymentsDisabled)
	_, err = g.CreateTransfer(context.Background(), TransferRequest{})
	assert.ErrorIs(t, err, ErrPaymentsDisabled)
}

func TestCheckoutParamsExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := CheckoutRequest{ListingID: "l-1", Title: "Ember Drake", AmountCents: 1500, Currency: "usd"}

	req.ExpiresAt = now.Add(45 * time.Minute)
	params := checkoutParams(req, now)
	require.NotNil(t, params.ExpiresAt)
	assert.Equal(t, now.Add(45*time.Minute).Unix(), *params.ExpiresAt)

	// below the processor minimum and unset both clamp up
	req.ExpiresAt = now.Add(5 * time.Minute)
	assert.Equal(t, now.Add(minCheckoutTTL).Unix(), *checkoutParams(req, now).ExpiresAt)
	req.ExpiresAt = time.Time{}
	assert.Equal(t, now.Add(minCheckoutTTL).Unix(), *checkoutParams(req, now).ExpiresAt)

	req.ExpiresAt = now.Add(72 * time.Hour)
	assert.Equal(t, now.Add(maxCheckoutTTL).Unix(), *checkoutParams(req, now).ExpiresAt)
}

func TestParseWebhookAsyncPaymentSucceeded(t *testing.T) {
	g := &StripeGateway{webhookSecret: testSecret}
	header, body := signed(t, `{
		"id": "evt_4",
		"object": "event",
		"type": "checkout.session.async_payment_succeeded",
		"data": {"object": {
			"id": "cs_test_4",
			"object": "checkout.session",
			"amount_total": 2500,
			"currency": "usd",
			"payment_status": "paid",
			"metadata": {"listing_id": "l-4", "buyer_id": "u-4"}
		}}
	}`)

	event, err := g.ParseWebhook(body, header)
	require.NoError(t, err)
	assert.Equal(t, EventAsyncPaymentSucceeded, event.Type)
	require.NotNil(t, event.Session)
	assert.Equal(t, "l-4", event.Session.ListingID)
	assert.True(t, event.Session.Paid)
}
