package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cardshow/cardshow/internal/cache"
	"github.com/cardshow/cardshow/internal/config"
	"github.com/cardshow/cardshow/internal/db"
	"github.com/cardshow/cardshow/internal/jobs"
	"github.com/cardshow/cardshow/internal/markdown"
	"github.com/cardshow/cardshow/internal/realtime"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/cardshow/cardshow/internal/service"
	"github.com/cardshow/cardshow/internal/service/analysis"
	"github.com/cardshow/cardshow/internal/service/payment"
	"github.com/cardshow/cardshow/internal/storage"
	"github.com/jmoiron/sqlx"
)

type App struct {
	Cfg   *config.Config
	DB    *sqlx.DB
	Cache cache.Cache
	Hub   *realtime.Hub

	AuthService        *service.AuthService
	UserService        *service.UserService
	EmailService       *service.EmailService
	FileService        *service.FileService
	PreferencesService *service.PreferencesService
	CardService        *service.CardService
	CollectionService  *service.CollectionService
	SocialService      *service.SocialService
	CreatorService     *service.CreatorService
	MarketplaceService *service.MarketplaceService
	PayoutService      *service.PayoutService
	PSDService         *service.PSDService
	UploadService      *service.UploadService
	AnalysisService    *service.AnalysisService
	CardImporter       *service.CardImporter

	BatchWorker *jobs.BatchWorker
	scheduler   *jobs.Scheduler
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	appCache, err := cache.New(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	// Storage
	fileStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	creatorRepository := repository.NewCreatorRepository(database)
	preferencesRepository := repository.NewPreferencesRepository(database)
	fileRepository := repository.NewFileRepository(database)
	cardRepository := repository.NewCardRepository(database)
	collectionRepository := repository.NewCollectionRepository(database)
	listingRepository := repository.NewListingRepository(database)
	ledgerRepository := repository.NewLedgerRepository(database)
	webhookEventRepository := repository.NewWebhookEventRepository(database)
	psdImportRepository := repository.NewPSDImportRepository(database)
	uploadRepository := repository.NewUploadRepository(database)

	// External services
	gateway := payment.NewGateway(cfg)
	analyzer := analysis.Disabled()
	if cfg.OpenAIAPIKey != "" {
		analyzer = analysis.NewOpenAIAnalyzer(analysis.OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel})
	} else {
		slog.Warn("image analysis disabled, OPENAI_API_KEY not set")
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	fileService := service.NewFileService(fileRepository, fileStorage)
	cardService := service.NewCardService(cardRepository, listingRepository, fileService, appCache)
	creatorService := service.NewCreatorService(creatorRepository, userRepository, ledgerRepository, fileService, gateway, cfg.AppURL, cfg.MarketplaceCurrency)
	analysisService := service.NewAnalysisService(analyzer)
	markdownParser := markdown.NewParser()

	// The hub authorizes topics through the social service, which in turn
	// publishes through the hub.
	var socialService *service.SocialService
	hub := realtime.NewHub(func(viewerID, topic string) error {
		return socialService.AuthorizeTopic(viewerID, topic)
	}, cfg.CORSAllowedOrigins)
	socialService = service.NewSocialService(
		repository.NewMemoryRepository(database),
		repository.NewCommentRepository(database),
		repository.NewReactionRepository(database),
		cardRepository,
		collectionRepository,
		markdownParser,
		hub,
	)

	uploadService := service.NewUploadService(uploadRepository, fileService, cardService, analysisService, cfg.BatchMaxFiles, cfg.BatchAutoAnalyze)
	payoutService := service.NewPayoutService(ledgerRepository, creatorRepository, userRepository, gateway, emailService, cfg.PayoutMinimumCents)

	scheduler, err := jobs.NewScheduler(cfg.PayoutSchedule, payoutService)
	if err != nil {
		return nil, err
	}

	return &App{
		Cfg:   cfg,
		DB:    database,
		Cache: appCache,
		Hub:   hub,

		AuthService:        service.NewAuthService(userRepository, creatorRepository, preferencesRepository, emailService, cfg.JWTSecret, cfg.IsProduction(), cfg.JWTExpiry),
		UserService:        service.NewUserService(userRepository, creatorRepository, ledgerRepository, fileService, emailService),
		EmailService:       emailService,
		FileService:        fileService,
		PreferencesService: service.NewPreferencesService(preferencesRepository),
		CardService:        cardService,
		CollectionService:  service.NewCollectionService(collectionRepository, cardRepository),
		SocialService:      socialService,
		CreatorService:     creatorService,
		MarketplaceService: service.NewMarketplaceService(
			listingRepository, cardRepository, userRepository, creatorRepository, webhookEventRepository,
			gateway, cardService, creatorService, emailService,
			service.MarketplaceConfig{FeeBPS: cfg.MarketplaceFeeBPS, Currency: cfg.MarketplaceCurrency, AppURL: cfg.AppURL, CheckoutTTL: cfg.CheckoutTTL},
		),
		PayoutService:   payoutService,
		PSDService:      service.NewPSDService(psdImportRepository, fileService, cardService, cfg.PSDMaxBytes),
		UploadService:   uploadService,
		AnalysisService: analysisService,
		CardImporter:    service.NewCardImporter(cardService, markdownParser),

		BatchWorker: jobs.NewBatchWorker(uploadService, 0),
		scheduler:   scheduler,
	}, nil
}

// StartBackground runs the upload worker and the payout schedule.
func (a *App) StartBackground(ctx context.Context) {
	a.BatchWorker.Start(ctx)
	a.scheduler.Start()
}

// Shutdown stops background work, waiting for a running payout until ctx ends.
func (a *App) Shutdown(ctx context.Context) error {
	a.Hub.Close()
	a.BatchWorker.Stop()
	return a.scheduler.Stop(ctx)
}

func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
