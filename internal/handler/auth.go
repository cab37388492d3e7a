package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cardshow/cardshow/internal/config"
	"github.com/cardshow/cardshow/internal/ctxkeys"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/render"
	"github.com/cardshow/cardshow/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthStateCookie  = "oauth_state"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

type AuthHandler struct {
	authService       *service.AuthService
	creatorService    *service.CreatorService
	googleOAuthConfig *oauth2.Config
	appURL            string
	userInfoURL       string
}

func NewAuthHandler(authService *service.AuthService, creatorService *service.CreatorService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		creatorService: creatorService,
		googleOAuthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.AppURL + "/api/auth/google/callback",
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		appURL:      cfg.AppURL,
		userInfoURL: googleUserInfoURL,
	}
}

type sessionResponse struct {
	Token     string                `json:"token"`
	ExpiresAt int64                 `json:"expires_at"`
	User      *model.User           `json:"user"`
	Creator   *model.CreatorProfile `json:"creator,omitempty"`
}

// startSession issues a JWT, sets the auth cookie and returns the body for
// clients that prefer the Bearer header.
func (h *AuthHandler) startSession(w http.ResponseWriter, user *model.User) (*sessionResponse, error) {
	token, err := h.authService.GenerateJWT(user)
	if err != nil {
		return nil, err
	}
	expiry := h.authService.TokenExpiry()
	h.authService.SetJWTCookie(w, token, expiry)

	user.PasswordHash = nil
	resp := &sessionResponse{Token: token, ExpiresAt: expiry.Unix(), User: user}
	creator, err := h.creatorService.Mine(user.ID)
	if err == nil {
		resp.Creator = creator
	}
	return resp, nil
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.Signup(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp, err := h.startSession(w, user)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			slog.Warn("login failed", "ip", r.RemoteAddr)
		}
		respondError(w, r, err)
		return
	}

	resp, err := h.startSession(w, user)
	if err != nil {
		respondError(w, r, err)
		return
	}
	slog.Info("user logged in", "user_id", user.ID)
	render.JSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	render.NoContent(w)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	creator, err := h.creatorService.Mine(user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"user": user, "creator": creator})
}

// GoogleAuth redirects user to Google OAuth consent screen
func (h *AuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	if h.googleOAuthConfig.ClientID == "" {
		render.Error(w, http.StatusServiceUnavailable, "google sign-in is not configured")
		return
	}

	state := generateOAuthState()

	cfg := ctxkeys.Config(r.Context())
	isProduction := cfg != nil && cfg.IsProduction()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600, // 10 minutes
	})

	url := h.googleOAuthConfig.AuthCodeURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GoogleCallback finishes the OAuth flow and sends the browser back to the SPA.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		slog.Warn("google oauth state validation failed", "error", err)
		h.failOAuth(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/api/auth/google",
		MaxAge: -1,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("google oauth callback missing code")
		h.failOAuth(w, r)
		return
	}

	token, err := h.googleOAuthConfig.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("google oauth token exchange failed", "error", err)
		h.failOAuth(w, r)
		return
	}

	client := h.googleOAuthConfig.Client(r.Context(), token)
	resp, err := client.Get(h.userInfoURL)
	if err != nil {
		slog.Error("failed to get google user info", "error", err)
		h.failOAuth(w, r)
		return
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	var userInfo struct {
		Email         string `json:"email"`
		Name          string `json:"name"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	err = json.NewDecoder(resp.Body).Decode(&userInfo)
	if err != nil || !userInfo.VerifiedEmail {
		slog.Error("unusable google user info", "error", err, "verified", userInfo.VerifiedEmail)
		h.failOAuth(w, r)
		return
	}

	user, err := h.authService.AuthenticateOAuth(r.Context(), userInfo.Email, userInfo.Name, "google")
	if err != nil {
		slog.Error("oauth authentication failed", "error", err)
		h.failOAuth(w, r)
		return
	}

	_, err = h.startSession(w, user)
	if err != nil {
		slog.Error("failed to generate JWT", "error", err, "user_id", user.ID)
		h.failOAuth(w, r)
		return
	}

	slog.Info("user logged in with google oauth", "user_id", user.ID)
	http.Redirect(w, r, h.appURL+"/studio", http.StatusSeeOther)
}

func (h *AuthHandler) failOAuth(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.appURL+"/login?error=oauth", http.StatusSeeOther)
}

// generateOAuthState creates cryptographically secure random state token for OAuth CSRF protection
func generateOAuthState() string {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		panic("failed to generate oauth state: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
