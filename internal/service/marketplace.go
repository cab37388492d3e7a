package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cardshow/cardshow/internal/metrics"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/cardshow/cardshow/internal/service/payment"
	"github.com/google/uuid"
)

var (
	ErrListingNotActive = errors.New("listing is not available for purchase")
	ErrOwnListing       = errors.New("you cannot buy your own listing")
	ErrDraftListing     = errors.New("drafts cannot be listed")
	ErrPriceTooLow      = fmt.Errorf("price must be at least %d cents", model.MinListingPriceCents)
)

type MarketplaceService struct {
	listingRepository repository.ListingRepository
	cardRepository    repository.CardRepository
	userRepository    repository.UserRepository
	creatorRepository repository.CreatorRepository
	webhookEvents     repository.WebhookEventRepository
	gateway           payment.Gateway
	cardService       *CardService
	creatorService    *CreatorService
	emailService      *EmailService
	feeBPS            int
	currency          string
	appURL            string
	checkoutTTL       time.Duration
}

// DefaultCheckoutTTL is how long an unpaid checkout holds a listing.
const DefaultCheckoutTTL = 30 * time.Minute

type MarketplaceConfig struct {
	FeeBPS      int
	Currency    string
	AppURL      string
	CheckoutTTL time.Duration
}

func NewMarketplaceService(
	listingRepository repository.ListingRepository,
	cardRepository repository.CardRepository,
	userRepository repository.UserRepository,
	creatorRepository repository.CreatorRepository,
	webhookEvents repository.WebhookEventRepository,
	gateway payment.Gateway,
	cardService *CardService,
	creatorService *CreatorService,
	emailService *EmailService,
	cfg MarketplaceConfig,
) *MarketplaceService {
	if cfg.CheckoutTTL <= 0 {
		cfg.CheckoutTTL = DefaultCheckoutTTL
	}
	return &MarketplaceService{
		listingRepository: listingRepository,
		cardRepository:    cardRepository,
		userRepository:    userRepository,
		creatorRepository: creatorRepository,
		webhookEvents:     webhookEvents,
		gateway:           gateway,
		cardService:       cardService,
		creatorService:    creatorService,
		emailService:      emailService,
		feeBPS:            cfg.FeeBPS,
		currency:          strings.ToLower(cfg.Currency),
		appURL:            cfg.AppURL,
		checkoutTTL:       cfg.CheckoutTTL,
	}
}

// PlatformFee returns the platform share of a sale in basis points, rounded
// half up to the cent.
func PlatformFee(grossCents int64, feeBPS int) int64 {
	if feeBPS <= 0 || grossCents <= 0 {
		return 0
	}
	return (grossCents*int64(feeBPS) + 5000) / 10000
}

// CreateListing puts a card the user owns up for sale.
func (s *MarketplaceService) CreateListing(userID, cardID string, priceCents int64) (*model.Listing, error) {
	if priceCents < model.MinListingPriceCents {
		return nil, invalid(ErrPriceTooLow)
	}

	card, err := s.cardRepository.ByID(cardID)
	if err != nil {
		return nil, err
	}
	if card.OwnerID != userID {
		if card.IsPublic() {
			return nil, ErrCardNotOwned
		}
		return nil, repository.ErrCardNotFound
	}
	if card.IsDraft {
		return nil, invalid(ErrDraftListing)
	}

	now := time.Now()
	listing := &model.Listing{
		ID:         uuid.New().String(),
		CardID:     card.ID,
		SellerID:   userID,
		PriceCents: priceCents,
		Currency:   s.currency,
		Status:     model.ListingStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.listingRepository.Create(listing)
	if err != nil {
		if errors.Is(err, repository.ErrCardAlreadyListed) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	listing.Card = card
	slog.Info("listing created", "listing_id", listing.ID, "card_id", card.ID, "price_cents", priceCents)
	return listing, nil
}

func (s *MarketplaceService) withCards(listings []*model.Listing) []*model.Listing {
	for _, l := range listings {
		card, err := s.cardRepository.ByID(l.CardID)
		if err != nil {
			slog.Warn("listing card missing", "error", err, "listing_id", l.ID)
			continue
		}
		l.Card = card
	}
	return listings
}

func (s *MarketplaceService) Active(filter model.ListingFilter) ([]*model.Listing, error) {
	listings, err := s.listingRepository.Active(filter)
	if err != nil {
		return nil, err
	}
	return s.withCards(listings), nil
}

func (s *MarketplaceService) Get(id string) (*model.Listing, error) {
	listing, err := s.listingRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	return s.withCards([]*model.Listing{listing})[0], nil
}

func (s *MarketplaceService) Mine(userID string) ([]*model.Listing, error) {
	listings, err := s.listingRepository.BySeller(userID)
	if err != nil {
		return nil, err
	}
	return s.withCards(listings), nil
}

// Cancel withdraws an active listing. Pending listings wait for their
// checkout session to complete or expire.
func (s *MarketplaceService) Cancel(userID, id string) error {
	listing, err := s.listingRepository.ByID(id)
	if err != nil {
		return err
	}
	if listing.SellerID != userID {
		return ErrNotOwner
	}

	err = s.listingRepository.Cancel(id)
	if errors.Is(err, repository.ErrListingNotAvailable) {
		return ErrListingNotActive
	}
	return err
}

// Checkout opens a payment session for an active listing and reserves it for the buyer.
func (s *MarketplaceService) Checkout(ctx context.Context, buyerID, listingID string) (*model.CheckoutSession, error) {
	listing, err := s.listingRepository.ByID(listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != model.ListingStatusActive {
		metrics.RecordCheckout("unavailable")
		return nil, ErrListingNotActive
	}
	if listing.SellerID == buyerID {
		return nil, invalid(ErrOwnListing)
	}

	card, err := s.cardRepository.ByID(listing.CardID)
	if err != nil {
		return nil, fmt.Errorf("failed to load listed card: %w", err)
	}
	buyer, err := s.userRepository.ByID(buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load buyer: %w", err)
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		ListingID:   listing.ID,
		CardID:      card.ID,
		BuyerID:     buyerID,
		BuyerEmail:  buyer.Email,
		Title:       card.Title,
		ImageURL:    card.ImageURL,
		AmountCents: listing.PriceCents,
		Currency:    listing.Currency,
		SuccessURL:  fmt.Sprintf("%s/marketplace/listings/%s?checkout=success&session_id={CHECKOUT_SESSION_ID}", s.appURL, listing.ID),
		CancelURL:   fmt.Sprintf("%s/marketplace/listings/%s?checkout=cancelled", s.appURL, listing.ID),
		ExpiresAt:   time.Now().Add(s.checkoutTTL),
	})
	if err != nil {
		metrics.RecordCheckout("failed")
		return nil, err
	}

	err = s.listingRepository.MarkPending(listing.ID, sess.ID, buyerID)
	if err != nil {
		metrics.RecordCheckout("unavailable")
		if errors.Is(err, repository.ErrListingNotAvailable) {
			// someone else reserved it between the read and the update
			return nil, ErrListingNotActive
		}
		return nil, fmt.Errorf("failed to reserve listing: %w", err)
	}

	metrics.RecordCheckout("created")
	return &model.CheckoutSession{URL: sess.URL, SessionID: sess.ID}, nil
}

// HandleWebhook verifies and applies a payment webhook. Events already
// processed are acknowledged without side effects.
func (s *MarketplaceService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}

	seen, err := s.webhookEvents.Seen(event.ID)
	if err != nil {
		return fmt.Errorf("failed to check webhook event: %w", err)
	}
	if seen {
		slog.Info("webhook replay ignored", "event_id", event.ID, "event_type", event.Type)
		return nil
	}

	switch {
	case event.Type == payment.EventCheckoutCompleted && event.Session != nil:
		err = s.completeCheckout(ctx, event.Session)
	case event.Type == payment.EventAsyncPaymentSucceeded && event.Session != nil:
		err = s.completeCheckout(ctx, event.Session)
	case event.Type == payment.EventCheckoutExpired && event.Session != nil:
		err = s.releaseCheckout(event.Session, "expired")
	case event.Type == payment.EventAsyncPaymentFailed && event.Session != nil:
		err = s.releaseCheckout(event.Session, "payment_failed")
	case event.Type == payment.EventAccountUpdated && event.Account != nil:
		err = s.creatorService.SyncAccount(event.Account)
	default:
		slog.Debug("webhook event ignored", "event_type", event.Type)
	}
	if err != nil {
		return err
	}

	err = s.webhookEvents.Record(event.ID, event.Type)
	if err != nil {
		return fmt.Errorf("failed to record webhook event: %w", err)
	}
	return nil
}

func (s *MarketplaceService) listingForSession(sess *payment.SessionEvent) (*model.Listing, error) {
	listing, err := s.listingRepository.ByCheckoutSession(sess.ID)
	if errors.Is(err, repository.ErrListingNotFound) && sess.ListingID != "" {
		return s.listingRepository.ByID(sess.ListingID)
	}
	return listing, err
}

func (s *MarketplaceService) completeCheckout(ctx context.Context, sess *payment.SessionEvent) error {
	if !sess.Paid {
		// delayed payment methods settle through async_payment_succeeded
		slog.Info("checkout completed without payment, waiting", "session_id", sess.ID)
		return nil
	}

	listing, err := s.listingForSession(sess)
	if errors.Is(err, repository.ErrListingNotFound) {
		slog.Warn("checkout for unknown listing", "session_id", sess.ID, "listing_id", sess.ListingID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load listing: %w", err)
	}
	if listing.Status == model.ListingStatusSold {
		return nil
	}

	buyerID := sess.BuyerID
	if listing.BuyerID != nil && *listing.BuyerID != "" {
		buyerID = *listing.BuyerID
	}
	if buyerID == "" {
		return fmt.Errorf("checkout session %s has no buyer", sess.ID)
	}

	gross := listing.PriceCents
	if sess.AmountTotal > 0 {
		gross = sess.AmountTotal
	}
	currency := listing.Currency
	if sess.Currency != "" {
		currency = strings.ToLower(sess.Currency)
	}
	fee := PlatformFee(gross, s.feeBPS)
	now := time.Now()

	sale := &model.Transaction{
		ID:                  uuid.New().String(),
		ListingID:           listing.ID,
		CardID:              listing.CardID,
		BuyerID:             buyerID,
		SellerID:            listing.SellerID,
		GrossCents:          gross,
		FeeCents:            fee,
		NetCents:            gross - fee,
		Currency:            currency,
		StripeSessionID:     sess.ID,
		StripePaymentIntent: sess.PaymentIntent,
		CreatedAt:           now,
	}
	earning := &model.Earning{
		ID:            uuid.New().String(),
		CreatorID:     listing.SellerID,
		TransactionID: sale.ID,
		AmountCents:   sale.NetCents,
		Currency:      currency,
		Status:        model.EarningStatusPending,
		CreatedAt:     now,
	}

	err = s.listingRepository.CompleteSale(sale, earning)
	if errors.Is(err, repository.ErrListingNotAvailable) {
		slog.Info("sale already recorded", "listing_id", listing.ID, "session_id", sess.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to complete sale: %w", err)
	}

	s.cardService.Invalidate(ctx, listing.CardID)
	metrics.RecordSale(currency, gross)
	slog.Info("listing sold", "listing_id", listing.ID, "card_id", listing.CardID, "buyer_id", buyerID, "gross_cents", gross, "fee_cents", fee)

	s.notifySeller(ctx, listing, sale)
	return nil
}

func (s *MarketplaceService) notifySeller(ctx context.Context, listing *model.Listing, sale *model.Transaction) {
	seller, err := s.userRepository.ByID(listing.SellerID)
	if err != nil {
		slog.Warn("failed to load seller for sale email", "error", err, "seller_id", listing.SellerID)
		return
	}
	name := "there"
	if p, err := s.creatorRepository.ByUserID(seller.ID); err == nil {
		name = p.DisplayName
	}
	title := "your card"
	if card, err := s.cardRepository.ByID(listing.CardID); err == nil {
		title = card.Title
	}

	err = s.emailService.SendCardSoldEmail(ctx, seller.Email, name, title, sale.NetCents, sale.Currency)
	if err != nil {
		slog.Warn("failed to send sale email", "error", err, "seller_id", seller.ID)
	}
}

// releaseCheckout puts a listing back on sale when its checkout session ends
// without a payment.
func (s *MarketplaceService) releaseCheckout(sess *payment.SessionEvent, reason string) error {
	listing, err := s.listingRepository.ByCheckoutSession(sess.ID)
	if errors.Is(err, repository.ErrListingNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load listing: %w", err)
	}

	err = s.listingRepository.Reactivate(listing.ID, sess.ID)
	if errors.Is(err, repository.ErrListingNotAvailable) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to reactivate listing: %w", err)
	}

	slog.Info("checkout ended unpaid, listing active again", "listing_id", listing.ID, "reason", reason)
	return nil
}
