package handler

import (
	"net/http"

	"github.com/cardshow/cardshow/internal/ctxkeys"
	"github.com/cardshow/cardshow/internal/render"
	"github.com/cardshow/cardshow/internal/service"
)

type AccountHandler struct {
	authService        *service.AuthService
	userService        *service.UserService
	preferencesService *service.PreferencesService
}

func NewAccountHandler(authService *service.AuthService, userService *service.UserService, preferencesService *service.PreferencesService) *AccountHandler {
	return &AccountHandler{
		authService:        authService,
		userService:        userService,
		preferencesService: preferencesService,
	}
}

func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.userService.UpdatePassword(user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.NoContent(w)
}

// DeleteAccount removes the user with their cards and files, then ends the session.
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.userService.DeleteAccount(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.authService.ClearJWTCookie(w)
	render.NoContent(w)
}

func (h *AccountHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.preferencesService.Get(ctxkeys.UserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, prefs)
}

func (h *AccountHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	// Start from the stored values so partial bodies keep the rest
	prefs, err := h.preferencesService.Get(userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !decodeJSON(w, r, prefs) {
		return
	}

	prefs, err = h.preferencesService.Update(userID, prefs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, prefs)
}
