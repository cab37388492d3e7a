package handler

import (
	"log/slog"
	"net/http"

	"github.com/cardshow/cardshow/internal/ctxkeys"
	"github.com/cardshow/cardshow/internal/render"
	"github.com/cardshow/cardshow/internal/service"
	"github.com/cardshow/cardshow/internal/validation"
)

type CreatorHandler struct {
	creatorService *service.CreatorService
}

func NewCreatorHandler(creatorService *service.CreatorService) *CreatorHandler {
	return &CreatorHandler{creatorService: creatorService}
}

func (h *CreatorHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := h.creatorService.Mine(ctxkeys.UserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, p)
}

func (h *CreatorHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var in service.CreatorInput
	if !decodeJSON(w, r, &in) {
		return
	}

	p, err := h.creatorService.Update(ctxkeys.UserID(r.Context()), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, p)
}

// Public hides Stripe details from other users.
func (h *CreatorHandler) Public(w http.ResponseWriter, r *http.Request) {
	p, err := h.creatorService.Public(r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, p)
}

func (h *CreatorHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, validation.ImageConstraints.MaxSize+(1<<20))
	file, header, err := r.FormFile("avatar")
	if err != nil {
		render.Error(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer func() {
		closeErr := file.Close()
		if closeErr != nil {
			slog.Error("failed to close file", "error", closeErr)
		}
	}()

	p, err := h.creatorService.UploadAvatar(r.Context(), ctxkeys.UserID(r.Context()), file, header.Filename)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, p)
}

// ConnectAccount creates the Stripe Express account once; repeated calls
// return the existing one.
func (h *CreatorHandler) ConnectAccount(w http.ResponseWriter, r *http.Request) {
	p, err := h.creatorService.EnsureConnectAccount(r.Context(), ctxkeys.UserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{
		"account_id":          p.StripeAccountID,
		"charges_enabled":     p.ChargesEnabled,
		"payouts_enabled":     p.PayoutsEnabled,
		"onboarding_complete": p.OnboardingComplete,
	})
}

func (h *CreatorHandler) ConnectOnboarding(w http.ResponseWriter, r *http.Request) {
	url, err := h.creatorService.OnboardingLink(r.Context(), ctxkeys.UserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *CreatorHandler) Earnings(w http.ResponseWriter, r *http.Request) {
	summary, err := h.creatorService.Earnings(ctxkeys.UserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, summary)
}
