package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cardshow/cardshow/internal/ctxkeys"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/render"
)

// PayoutRunner is satisfied by service.PayoutService.
type PayoutRunner interface {
	Run(ctx context.Context) (*model.PayoutRun, error)
}

type AdminHandler struct {
	payouts PayoutRunner
}

func NewAdminHandler(payouts PayoutRunner) *AdminHandler {
	return &AdminHandler{payouts: payouts}
}

func (h *AdminHandler) RunPayouts(w http.ResponseWriter, r *http.Request) {
	run, err := h.payouts.Run(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	slog.Info("payout run triggered over http", "user_id", ctxkeys.UserID(r.Context()), "paid", run.Paid, "failed", run.Failed)
	render.JSON(w, http.StatusOK, run)
}

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	err := h.db.PingContext(r.Context())
	if err != nil {
		slog.Error("health check failed", "error", err)
		render.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
