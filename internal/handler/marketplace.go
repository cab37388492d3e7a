package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/cardshow/cardshow/internal/ctxkeys"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/render"
	"github.com/cardshow/cardshow/internal/service"
)

const maxWebhookBody = 512 << 10

type MarketplaceHandler struct {
	marketplaceService *service.MarketplaceService
}

func NewMarketplaceHandler(marketplaceService *service.MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{marketplaceService: marketplaceService}
}

func (h *MarketplaceHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardID     string `json:"card_id"`
		PriceCents int64  `json:"price_cents"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	listing, err := h.marketplaceService.CreateListing(ctxkeys.UserID(r.Context()), req.CardID, req.PriceCents)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusCreated, listing)
}

func (h *MarketplaceHandler) Active(w http.ResponseWriter, r *http.Request) {
	listings, err := h.marketplaceService.Active(model.ListingFilter{
		Rarity:        r.URL.Query().Get("rarity"),
		MinPriceCents: queryInt64(r, "min_price_cents"),
		MaxPriceCents: queryInt64(r, "max_price_cents"),
		Limit:         queryInt(r, "limit", 24),
		Offset:        queryInt(r, "offset", 0),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"listings": listings})
}

func (h *MarketplaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	listing, err := h.marketplaceService.Get(r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, listing)
}

func (h *MarketplaceHandler) Mine(w http.ResponseWriter, r *http.Request) {
	listings, err := h.marketplaceService.Mine(ctxkeys.UserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"listings": listings})
}

func (h *MarketplaceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	err := h.marketplaceService.Cancel(ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.NoContent(w)
}

// Checkout returns the hosted payment page for the buyer.
func (h *MarketplaceHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	session, err := h.marketplaceService.Checkout(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	slog.Info("checkout started", "user_id", user.ID, "listing_id", r.PathValue("id"), "session_id", session.SessionID)
	render.JSON(w, http.StatusOK, session)
}

func (h *MarketplaceHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		slog.Error("failed to read webhook payload", "error", err)
		render.Error(w, http.StatusBadRequest, "failed to read payload")
		return
	}
	defer func() {
		closeErr := r.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close request body", "error", closeErr)
		}
	}()

	err = h.marketplaceService.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		slog.Error("failed to handle webhook", "error", err)
		respondError(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, map[string]bool{"received": true})
}
