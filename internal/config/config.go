package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName            string
	AppEnv             string
	AppURL             string // Public URL of the SPA (checkout + onboarding return links)
	Port               string
	SupportEmail       string
	CORSAllowedOrigins []string
	AdminEmails        []string // may trigger payout runs over HTTP

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Cache (optional, falls back to in-memory)
	RedisURL string

	// Security
	JWTSecret string
	JWTExpiry time.Duration

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Marketplace (Stripe)
	StripeSecretKey     string
	StripeWebhookSecret string
	MarketplaceFeeBPS   int    // Platform fee in basis points (500 = 5%)
	MarketplaceCurrency string // ISO currency, lower case
	CheckoutTTL         time.Duration // How long a checkout holds a listing
	PayoutSchedule      string // cron spec for creator payouts
	PayoutMinimumCents  int64

	// AI image analysis
	OpenAIAPIKey    string
	OpenAIModel     string
	AIRatePerMinute int

	// Uploads
	PSDMaxBytes      int64
	BatchMaxFiles    int
	BatchAutoAnalyze bool

	// Observability (optional)
	SentryDSN      string
	MetricsEnabled bool

	// Storage (S3-compatible: MinIO, AWS S3, Cloudflare R2, DigitalOcean Spaces, etc.)
	S3Region               string
	S3Bucket               string
	S3AccessKey            string
	S3SecretKey            string
	S3Endpoint             string        // Optional: for S3-compatible services (MinIO, DO Spaces, R2, etc.)
	S3PresignExpiryPublic  time.Duration // Expiry for public files (card art, avatars) - default: 7 days
	S3PresignExpiryPrivate time.Duration // Expiry for private files (PSD sources, drafts) - default: 1 hour
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:            envString("APP_NAME", "Cardshow"),
		AppEnv:             envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:             envRequired("APP_URL"), // Required: base URL for checkout and onboarding redirects
		Port:               envString("PORT", "8090"),
		SupportEmail:       envString("SUPPORT_EMAIL", "support@cardshow.app"),
		CORSAllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		AdminEmails:        envList("ADMIN_EMAILS", nil),

		RedisURL: envString("REDIS_URL", ""),

		// Security
		JWTSecret: envRequired("JWT_SECRET"),
		JWTExpiry: envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days

		// OAuth
		GoogleClientID:     envString("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: envString("GOOGLE_CLIENT_SECRET", ""),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@cardshow.app"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Marketplace
		StripeSecretKey:     envString("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: envString("STRIPE_WEBHOOK_SECRET", ""),
		MarketplaceFeeBPS:   envInt("MARKETPLACE_FEE_BPS", 500),
		MarketplaceCurrency: strings.ToLower(envString("MARKETPLACE_CURRENCY", "usd")),
		CheckoutTTL:         envDuration("CHECKOUT_TTL", 30*time.Minute),
		PayoutSchedule:      envString("PAYOUT_SCHEDULE", "0 3 * * *"), // daily, 03:00
		PayoutMinimumCents:  int64(envInt("PAYOUT_MINIMUM_CENTS", 1000)),

		// AI
		OpenAIAPIKey:    envString("OPENAI_API_KEY", ""),
		OpenAIModel:     envString("OPENAI_MODEL", "gpt-4o-mini"),
		AIRatePerMinute: envInt("AI_RATE_PER_MINUTE", 10),

		// Uploads
		PSDMaxBytes:      int64(envInt("PSD_MAX_BYTES", 100<<20)),
		BatchMaxFiles:    envInt("BATCH_MAX_FILES", 50),
		BatchAutoAnalyze: envBool("BATCH_AUTO_ANALYZE", false),

		// Observability
		SentryDSN:      envString("SENTRY_DSN", ""),
		MetricsEnabled: envBool("METRICS_ENABLED", true),

		// Storage (S3-compatible - required for card art)
		S3Region:               envRequired("S3_REGION"),
		S3Bucket:               envRequired("S3_BUCKET"),
		S3AccessKey:            envRequired("S3_ACCESS_KEY"),
		S3SecretKey:            envRequired("S3_SECRET_KEY"),
		S3Endpoint:             envString("S3_ENDPOINT", ""),                           // Optional: for non-AWS providers
		S3PresignExpiryPublic:  envDuration("S3_PRESIGN_EXPIRY_PUBLIC", 168*time.Hour), // Default: 7 days for public files
		S3PresignExpiryPrivate: envDuration("S3_PRESIGN_EXPIRY_PRIVATE", 1*time.Hour),  // Default: 1 hour for private files
	}

	cfg.DBDriver, cfg.DBConnection = Database()

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// Database returns the driver and connection string without requiring the
// rest of the configuration, for commands that only touch the schema.
func Database() (driver, connection string) {
	_ = godotenv.Load()
	return envString("DB_DRIVER", "sqlite"),
		envString("DB_CONNECTION", "./data/cardshow.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
}

// validateProduction ensures all required services are configured for production deployments.
// Development allows email, payments and AI to run in log/disabled mode.
func validateProduction(cfg *Config) {
	missing := []string{}
	if cfg.ResendAPIKey == "" {
		missing = append(missing, "RESEND_API_KEY")
	}
	if cfg.StripeSecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if cfg.StripeWebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if cfg.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		slog.Error("production deployment requires missing env vars",
			"missing", missing,
			"hint", "set APP_ENV=development for local testing")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

// envList reads a comma separated list, trimming blanks.
func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// PaymentsEnabled reports whether marketplace checkout and payouts can reach Stripe.
func (c *Config) PaymentsEnabled() bool {
	return c.StripeSecretKey != ""
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets, credentials, and sensitive data are excluded.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:      c.AppName,
		AppEnv:       c.AppEnv,
		AppURL:       c.AppURL,
		Port:         c.Port,
		SupportEmail: c.SupportEmail,

		EmailFrom: c.EmailFrom,

		GoogleClientID: c.GoogleClientID,

		MarketplaceFeeBPS:   c.MarketplaceFeeBPS,
		MarketplaceCurrency: c.MarketplaceCurrency,

		S3Endpoint: c.S3Endpoint,
	}
}
