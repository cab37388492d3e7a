package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cardshow/cardshow/internal/render"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/cardshow/cardshow/internal/service"
	"github.com/cardshow/cardshow/internal/service/analysis"
	"github.com/cardshow/cardshow/internal/service/payment"
)

// decodeJSON decodes the body into v and answers 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := render.Decode(r, v)
	if err != nil {
		render.Error(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

var statusByError = []struct {
	err    error
	status int
}{
	{service.ErrInvalidInput, http.StatusBadRequest},
	{service.ErrInvalidEmail, http.StatusBadRequest},
	{service.ErrPasswordlessLogin, http.StatusBadRequest},
	{service.ErrInvalidCurrentPassword, http.StatusBadRequest},
	{service.ErrNoVisibleLayer, http.StatusBadRequest},
	{analysis.ErrNoImage, http.StatusBadRequest},
	{payment.ErrInvalidSignature, http.StatusBadRequest},
	{payment.ErrMalformedEvent, http.StatusBadRequest},

	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrInvalidToken, http.StatusUnauthorized},

	{service.ErrNotOwner, http.StatusForbidden},
	{service.ErrCardNotOwned, http.StatusForbidden},

	{repository.ErrUserNotFound, http.StatusNotFound},
	{repository.ErrCardNotFound, http.StatusNotFound},
	{repository.ErrCollectionNotFound, http.StatusNotFound},
	{repository.ErrCommentNotFound, http.StatusNotFound},
	{repository.ErrMemoryNotFound, http.StatusNotFound},
	{repository.ErrCreatorNotFound, http.StatusNotFound},
	{repository.ErrFileNotFound, http.StatusNotFound},
	{repository.ErrListingNotFound, http.StatusNotFound},
	{repository.ErrPSDImportNotFound, http.StatusNotFound},
	{repository.ErrBatchNotFound, http.StatusNotFound},
	{repository.ErrPayoutNotFound, http.StatusNotFound},

	{service.ErrEmailAlreadyExists, http.StatusConflict},
	{service.ErrCardListed, http.StatusConflict},
	{repository.ErrCardAlreadyListed, http.StatusConflict},
	{service.ErrListingNotActive, http.StatusConflict},
	{service.ErrImportHasCard, http.StatusConflict},
	{repository.ErrUserHasRecords, http.StatusConflict},
	{service.ErrPendingEarnings, http.StatusConflict},
	{service.ErrPayoutRunning, http.StatusConflict},

	{analysis.ErrBadResponse, http.StatusBadGateway},
	{analysis.ErrAnalysisDisabled, http.StatusServiceUnavailable},
	{payment.ErrPaymentsDisabled, http.StatusServiceUnavailable},
}

// respondError maps service and repository errors onto HTTP statuses.
// Anything unknown is logged and answered with a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			render.Error(w, m.status, err.Error())
			return
		}
	}

	slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
	render.Error(w, http.StatusInternalServerError, "internal server error")
}

// queryInt returns the integer query parameter key, or def when absent or invalid.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return def
	}
	return i
}

func queryInt64(r *http.Request, key string) int64 {
	i, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil || i < 0 {
		return 0
	}
	return i
}
