package routes

import (
	"net/http"

	"github.com/cardshow/cardshow/internal/app"
	"github.com/cardshow/cardshow/internal/ctxkeys"
	"github.com/cardshow/cardshow/internal/handler"
	"github.com/cardshow/cardshow/internal/metrics"
	"github.com/cardshow/cardshow/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	cfg := app.Cfg

	// Handlers
	auth := handler.NewAuthHandler(app.AuthService, app.CreatorService, cfg)
	account := handler.NewAccountHandler(app.AuthService, app.UserService, app.PreferencesService)
	cards := handler.NewCardHandler(app.CardService)
	collections := handler.NewCollectionHandler(app.CollectionService)
	social := handler.NewSocialHandler(app.SocialService)
	psd := handler.NewPSDHandler(app.PSDService, cfg.PSDMaxBytes)
	uploads := handler.NewUploadHandler(app.UploadService, app.BatchWorker, cfg.BatchMaxFiles)
	ai := handler.NewAnalysisHandler(app.AnalysisService)
	marketplace := handler.NewMarketplaceHandler(app.MarketplaceService)
	creators := handler.NewCreatorHandler(app.CreatorService)
	admin := handler.NewAdminHandler(app.PayoutService)
	health := handler.NewHealthHandler(app.DB)

	requireAuth := middleware.RequireAuth
	requireAdmin := middleware.RequireAdmin(cfg.AdminEmails)
	rateLimiter := middleware.RateLimitAuth()
	aiLimiter := middleware.RateLimitPerUser(cfg.AIRatePerMinute)

	mux := http.NewServeMux()

	// ============================================================================
	// OPERATIONS
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Healthz)
	if cfg.MetricsEnabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	// ============================================================================
	// AUTH
	// ============================================================================

	mux.HandleFunc("POST /api/auth/signup", rateLimiter(auth.Signup))
	mux.HandleFunc("POST /api/auth/login", rateLimiter(auth.Login))
	mux.HandleFunc("POST /api/auth/logout", auth.Logout)
	mux.HandleFunc("GET /api/auth/me", requireAuth(auth.Me))
	mux.HandleFunc("GET /api/auth/google", rateLimiter(auth.GoogleAuth))
	mux.HandleFunc("GET /api/auth/google/callback", rateLimiter(auth.GoogleCallback))

	// Account
	mux.HandleFunc("PUT /api/me/password", requireAuth(account.ChangePassword))
	mux.HandleFunc("DELETE /api/me", requireAuth(account.DeleteAccount))
	mux.HandleFunc("GET /api/me/preferences", requireAuth(account.Preferences))
	mux.HandleFunc("PUT /api/me/preferences", requireAuth(account.UpdatePreferences))

	// ============================================================================
	// CARDS
	// ============================================================================

	mux.HandleFunc("GET /api/cards", requireAuth(cards.ListMine))
	mux.HandleFunc("GET /api/cards/public", cards.ListPublic)
	mux.HandleFunc("POST /api/cards", requireAuth(cards.Create))
	mux.HandleFunc("POST /api/cards/sync", requireAuth(cards.Sync))
	mux.HandleFunc("GET /api/cards/{id}", cards.Get)
	mux.HandleFunc("PUT /api/cards/{id}", requireAuth(cards.Update))
	mux.HandleFunc("DELETE /api/cards/{id}", requireAuth(cards.Delete))
	mux.HandleFunc("PUT /api/cards/{id}/effects", requireAuth(cards.UpdateEffects))
	mux.HandleFunc("POST /api/cards/{id}/image", requireAuth(cards.UploadImage))
	mux.HandleFunc("POST /api/cards/{id}/view", cards.RecordView)
	mux.HandleFunc("POST /api/cards/{id}/duplicate", requireAuth(cards.Duplicate))
	mux.HandleFunc("GET /api/cards/{id}/memories", social.CardMemories)
	mux.HandleFunc("GET /api/effects/presets", cards.Presets)

	// Collections
	mux.HandleFunc("GET /api/collections", requireAuth(collections.ListMine))
	mux.HandleFunc("POST /api/collections", requireAuth(collections.Create))
	mux.HandleFunc("GET /api/collections/{id}", collections.Get)
	mux.HandleFunc("PUT /api/collections/{id}", requireAuth(collections.Update))
	mux.HandleFunc("DELETE /api/collections/{id}", requireAuth(collections.Delete))
	mux.HandleFunc("GET /api/collections/{id}/cards", collections.Cards)
	mux.HandleFunc("POST /api/collections/{id}/cards", requireAuth(collections.AddCard))
	mux.HandleFunc("DELETE /api/collections/{id}/cards/{cardID}", requireAuth(collections.RemoveCard))

	// ============================================================================
	// SOCIAL
	// ============================================================================

	mux.HandleFunc("GET /api/memories", requireAuth(social.ListMyMemories))
	mux.HandleFunc("GET /api/memories/public", social.ListPublicMemories)
	mux.HandleFunc("POST /api/memories", requireAuth(social.CreateMemory))
	mux.HandleFunc("GET /api/memories/{id}", social.GetMemory)
	mux.HandleFunc("PUT /api/memories/{id}", requireAuth(social.UpdateMemory))
	mux.HandleFunc("DELETE /api/memories/{id}", requireAuth(social.DeleteMemory))

	mux.HandleFunc("GET /api/comments/{targetType}/{targetID}", social.Comments)
	mux.HandleFunc("POST /api/comments/{targetType}/{targetID}", requireAuth(social.AddComment))
	mux.HandleFunc("DELETE /api/comments/{id}", requireAuth(social.DeleteComment))

	mux.HandleFunc("GET /api/reactions/{targetType}/{targetID}", social.Reactions)
	mux.HandleFunc("POST /api/reactions/{targetType}/{targetID}", requireAuth(social.ToggleReaction))

	// Anonymous viewers may follow public cards and collections
	mux.HandleFunc("GET /api/realtime", func(w http.ResponseWriter, r *http.Request) {
		app.Hub.ServeWS(w, r, ctxkeys.UserID(r.Context()))
	})

	// ============================================================================
	// IMPORTS AND AI
	// ============================================================================

	mux.HandleFunc("POST /api/psd/import", requireAuth(psd.Import))
	mux.HandleFunc("GET /api/psd/imports", requireAuth(psd.List))
	mux.HandleFunc("GET /api/psd/imports/{id}", requireAuth(psd.Get))
	mux.HandleFunc("POST /api/psd/imports/{id}/card", requireAuth(psd.CreateCard))

	mux.HandleFunc("POST /api/uploads/batch", requireAuth(uploads.CreateBatch))
	mux.HandleFunc("GET /api/uploads/batch/{id}", requireAuth(uploads.Batch))

	mux.HandleFunc("POST /api/ai/analyze-card-image", requireAuth(aiLimiter(ai.AnalyzeCardImage)))

	// ============================================================================
	// MARKETPLACE AND CREATORS
	// ============================================================================

	mux.HandleFunc("GET /api/marketplace/listings", marketplace.Active)
	mux.HandleFunc("GET /api/marketplace/listings/mine", requireAuth(marketplace.Mine))
	mux.HandleFunc("POST /api/marketplace/listings", requireAuth(marketplace.CreateListing))
	mux.HandleFunc("GET /api/marketplace/listings/{id}", marketplace.Get)
	mux.HandleFunc("DELETE /api/marketplace/listings/{id}", requireAuth(marketplace.Cancel))
	mux.HandleFunc("POST /api/marketplace/listings/{id}/checkout", requireAuth(marketplace.Checkout))

	mux.HandleFunc("GET /api/creators/me", requireAuth(creators.Me))
	mux.HandleFunc("PUT /api/creators/me", requireAuth(creators.UpdateMe))
	mux.HandleFunc("POST /api/creators/me/avatar", requireAuth(creators.UploadAvatar))
	mux.HandleFunc("POST /api/creators/me/connect-account", requireAuth(creators.ConnectAccount))
	mux.HandleFunc("POST /api/creators/me/connect-onboarding", requireAuth(creators.ConnectOnboarding))
	mux.HandleFunc("GET /api/creators/me/earnings", requireAuth(creators.Earnings))
	mux.HandleFunc("GET /api/creators/{id}", creators.Public)

	mux.HandleFunc("POST /api/admin/payouts/run", requireAdmin(admin.RunPayouts))

	// ============================================================================
	// WEBHOOKS
	// ============================================================================

	mux.HandleFunc("POST /webhooks/stripe", marketplace.StripeWebhook)

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		metrics.InstrumentHandler,
		middleware.Config(cfg), // Config must come before CSRF (cookie Secure flag)
		middleware.SecurityHeaders(cfg.IsProduction()),
		middleware.CORS(cfg.CORSAllowedOrigins),
		middleware.AuthMiddleware(app.AuthService),
		middleware.RequestLogging,
		middleware.CSRFProtection,
	)
}
