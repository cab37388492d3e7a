package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cardshow/cardshow/internal/cache"
	"github.com/cardshow/cardshow/internal/db/dbtest"
	"github.com/cardshow/cardshow/internal/markdown"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/cardshow/cardshow/internal/service/analysis"
	"github.com/cardshow/cardshow/internal/service/payment"
	"github.com/cardshow/cardshow/internal/storage"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu          sync.Mutex
	sessions    []payment.CheckoutRequest
	transfers   []payment.TransferRequest
	transferErr error
	accounts    int
	event       *payment.Event
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions = append(g.sessions, req)
	id := "cs_" + req.ListingID
	return &payment.Session{ID: id, URL: "https://checkout.example/" + id}, nil
}

func (g *fakeGateway) CreateConnectAccount(_ context.Context, userID, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accounts++
	return "acct_" + userID, nil
}

func (g *fakeGateway) CreateOnboardingLink(_ context.Context, accountID, refreshURL, returnURL string) (string, error) {
	return "https://connect.example/" + accountID, nil
}

func (g *fakeGateway) CreateTransfer(_ context.Context, req payment.TransferRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.transferErr != nil {
		return "", g.transferErr
	}
	g.transfers = append(g.transfers, req)
	return "tr_" + req.IdempotencyKey, nil
}

func (g *fakeGateway) ParseWebhook(_ []byte, signature string) (*payment.Event, error) {
	if signature != "valid" || g.event == nil {
		return nil, payment.ErrInvalidSignature
	}
	return g.event, nil
}

type publishedEvent struct {
	Topic string
	Type  string
	Data  any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(topic, eventType string, data any) {
	p.mu.Lock()
	p.events = append(p.events, publishedEvent{Topic: topic, Type: eventType, Data: data})
	p.mu.Unlock()
}

type fakeAnalyzer struct {
	result *model.CardAnalysis
	err    error
	calls  int
}

func (a *fakeAnalyzer) Analyze(context.Context, analysis.Image) (*model.CardAnalysis, error) {
	a.calls++
	return a.result, a.err
}

// testEnv wires every service against a migrated in-memory database.
type testEnv struct {
	db        *sqlx.DB
	storage   *storage.Memory
	gateway   *fakeGateway
	publisher *recordingPublisher
	analyzer  *fakeAnalyzer

	creators repository.CreatorRepository
	ledger   repository.LedgerRepository
	uploads  repository.UploadRepository

	files       *FileService
	email       *EmailService
	auth        *AuthService
	prefs       *PreferencesService
	cards       *CardService
	collections *CollectionService
	social      *SocialService
	creator     *CreatorService
	marketplace *MarketplaceService
	payouts     *PayoutService
	psd         *PSDService
	upload      *UploadService
	importer    *CardImporter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database := dbtest.Open(t)
	store := storage.NewMemory()
	gw := &fakeGateway{}
	pub := &recordingPublisher{}
	analyzer := &fakeAnalyzer{err: analysis.ErrAnalysisDisabled}
	parser := markdown.NewParser()

	users := repository.NewUserRepository(database)
	creators := repository.NewCreatorRepository(database)
	prefs := repository.NewPreferencesRepository(database)
	cardRepo := repository.NewCardRepository(database)
	listings := repository.NewListingRepository(database)
	ledger := repository.NewLedgerRepository(database)
	uploads := repository.NewUploadRepository(database)

	files := NewFileService(repository.NewFileRepository(database), store)
	email := NewEmailService("", "noreply@example.com", "https://app.example", "Cardshow", true)
	cards := NewCardService(cardRepo, listings, files, cache.NewMemory())
	creator := NewCreatorService(creators, users, ledger, files, gw, "https://app.example", "usd")
	analysisService := NewAnalysisService(analyzer)

	return &testEnv{
		db:        database,
		storage:   store,
		gateway:   gw,
		publisher: pub,
		analyzer:  analyzer,

		creators: creators,
		ledger:   ledger,
		uploads:  uploads,

		files:       files,
		email:       email,
		auth:        NewAuthService(users, creators, prefs, email, "test-secret", false, time.Hour),
		prefs:       NewPreferencesService(prefs),
		cards:       cards,
		collections: NewCollectionService(repository.NewCollectionRepository(database), cardRepo),
		social: NewSocialService(repository.NewMemoryRepository(database), repository.NewCommentRepository(database),
			repository.NewReactionRepository(database), cardRepo, repository.NewCollectionRepository(database), parser, pub),
		creator: creator,
		marketplace: NewMarketplaceService(listings, cardRepo, users, creators, repository.NewWebhookEventRepository(database),
			gw, cards, creator, email, MarketplaceConfig{FeeBPS: 500, Currency: "usd", AppURL: "https://app.example"}),
		payouts:  NewPayoutService(ledger, creators, users, gw, email, 1000),
		psd:      NewPSDService(repository.NewPSDImportRepository(database), files, cards, 0),
		upload:   NewUploadService(uploads, files, cards, analysisService, 3, false),
		importer: NewCardImporter(cards, parser),
	}
}

// seedAccount creates a user with a creator profile.
func (e *testEnv) seedAccount(t *testing.T, id string) {
	t.Helper()
	dbtest.SeedUser(t, e.db, id)
	now := time.Now()
	require.NoError(t, e.creators.Create(&model.CreatorProfile{UserID: id, DisplayName: "User " + id, CreatedAt: now, UpdatedAt: now}))
}

// seedPublicCard creates a published card owned by its creator.
func (e *testEnv) seedPublicCard(t *testing.T, owner, title string) *model.Card {
	t.Helper()
	published := false
	card, err := e.cards.Create(context.Background(), owner, CardInput{
		Title:      title,
		Rarity:     model.RarityRare,
		Visibility: model.VisibilityPublic,
		IsDraft:    &published,
	})
	require.NoError(t, err)
	return card
}

var errTransferDeclined = errors.New("transfer declined")
