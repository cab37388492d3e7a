package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cardshow/cardshow/internal/cache"
	"github.com/cardshow/cardshow/internal/imaging"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/cardshow/cardshow/internal/validation"
	"github.com/google/uuid"
)

const publicCardTTL = 5 * time.Minute

var (
	ErrCardListed   = errors.New("card has an open marketplace listing")
	ErrCardNotOwned = errors.New("only the owner can do this")
)

// EffectPresets are the ready-made stacks offered by the studio.
var EffectPresets = []model.EffectPreset{
	{ID: "holo-classic", Name: "Classic Holo", Effects: model.Effects{
		{Type: "holographic", Intensity: 70, Sharpness: 40, Hue: 50, BlendMode: "color-dodge", Enabled: true},
	}},
	{ID: "gold-foil", Name: "Gold Foil", Effects: model.Effects{
		{Type: "gold", Intensity: 80, Sharpness: 60, Hue: 12, BlendMode: "overlay", Enabled: true},
		{Type: "glow", Intensity: 30, Sharpness: 20, Hue: 12, BlendMode: "screen", Enabled: true},
	}},
	{ID: "chrome", Name: "Chrome", Effects: model.Effects{
		{Type: "chrome", Intensity: 65, Sharpness: 75, Hue: 0, BlendMode: "hard-light", Enabled: true},
	}},
	{ID: "crystal-prism", Name: "Crystal Prism", Effects: model.Effects{
		{Type: "crystal", Intensity: 55, Sharpness: 80, Hue: 60, BlendMode: "screen", Enabled: true},
		{Type: "prismatic", Intensity: 45, Sharpness: 50, Hue: 75, BlendMode: "color-dodge", Enabled: true},
	}},
	{ID: "vintage", Name: "Vintage", Effects: model.Effects{
		{Type: "vintage", Intensity: 60, Sharpness: 30, Hue: 8, BlendMode: "multiply", Enabled: true},
	}},
	{ID: "rainbow-foil", Name: "Rainbow Foil", Effects: model.Effects{
		{Type: "foil", Intensity: 75, Sharpness: 55, Hue: 100, BlendMode: "soft-light", Enabled: true},
		{Type: "prismatic", Intensity: 40, Sharpness: 40, Hue: 100, BlendMode: "lighten", Enabled: true},
	}},
}

// CardInput is the writable part of a card.
type CardInput struct {
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	ImageURL       string           `json:"image_url"`
	ThumbnailURL   string           `json:"thumbnail_url"`
	Rarity         string           `json:"rarity"`
	Tags           []string         `json:"tags"`
	DesignMetadata model.JSONObject `json:"design_metadata"`
	Effects        model.Effects    `json:"effects"`
	Visibility     string           `json:"visibility"`
	IsDraft        *bool            `json:"is_draft"`
	EditionSize    int              `json:"edition_size"`
}

// SyncDraft is a card saved on a device while offline.
type SyncDraft struct {
	ClientID        string    `json:"client_id"`
	ID              string    `json:"id"`
	ClientUpdatedAt time.Time `json:"client_updated_at"`
	CardInput
}

type CardService struct {
	cardRepository    repository.CardRepository
	listingRepository repository.ListingRepository
	fileService       *FileService
	cache             cache.Cache
}

func NewCardService(
	cardRepository repository.CardRepository,
	listingRepository repository.ListingRepository,
	fileService *FileService,
	cache cache.Cache,
) *CardService {
	return &CardService{
		cardRepository:    cardRepository,
		listingRepository: listingRepository,
		fileService:       fileService,
		cache:             cache,
	}
}

// apply validates in and copies it onto card.
func (s *CardService) apply(card *model.Card, in CardInput) error {
	title := strings.TrimSpace(in.Title)
	if err := validation.ValidateTitle(title); err != nil {
		return invalid(err)
	}
	if err := validation.ValidateDescription(in.Description); err != nil {
		return invalid(err)
	}

	rarity := in.Rarity
	if rarity == "" {
		rarity = model.RarityCommon
	}
	if err := validation.ValidateRarity(rarity); err != nil {
		return invalid(err)
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = model.VisibilityPrivate
	}
	if err := validation.ValidateVisibility(visibility); err != nil {
		return invalid(err)
	}

	edition := in.EditionSize
	if edition == 0 {
		edition = 1
	}
	if err := validation.ValidateEditionSize(edition); err != nil {
		return invalid(err)
	}

	// Effects have their own endpoint; a card update only touches them when sent.
	if in.Effects != nil || card.Effects == nil {
		effects, err := validation.NormalizeEffects(in.Effects)
		if err != nil {
			return invalid(err)
		}
		card.Effects = effects
	}

	card.Title = title
	card.Description = strings.TrimSpace(in.Description)
	card.Rarity = rarity
	card.Tags = validation.NormalizeTags(in.Tags, validation.MaxTags)
	card.Visibility = visibility
	card.EditionSize = edition
	if in.DesignMetadata != nil {
		card.DesignMetadata = in.DesignMetadata
	}
	if card.DesignMetadata == nil {
		card.DesignMetadata = model.JSONObject{}
	}
	if in.ImageURL != "" {
		card.ImageURL = in.ImageURL
	}
	if in.ThumbnailURL != "" {
		card.ThumbnailURL = in.ThumbnailURL
	}
	if in.IsDraft != nil {
		card.IsDraft = *in.IsDraft
	}
	return nil
}

func (s *CardService) Create(ctx context.Context, userID string, in CardInput) (*model.Card, error) {
	return s.create(ctx, userID, uuid.New().String(), model.CardSourceStudio, nil, in)
}

// createWithSource creates a card for a pipeline other than the studio.
func (s *CardService) createWithSource(ctx context.Context, userID, source string, in CardInput) (*model.Card, error) {
	return s.create(ctx, userID, uuid.New().String(), source, nil, in)
}

func (s *CardService) create(ctx context.Context, userID, id, source string, clientUpdatedAt *time.Time, in CardInput) (*model.Card, error) {
	now := time.Now()
	card := &model.Card{
		ID:              id,
		CreatorID:       userID,
		OwnerID:         userID,
		IsDraft:         true,
		Source:          source,
		ClientUpdatedAt: clientUpdatedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := s.apply(card, in)
	if err != nil {
		return nil, err
	}

	err = s.cardRepository.Create(card)
	if err != nil {
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	slog.Info("card created", "card_id", card.ID, "user_id", userID, "source", source)
	return card, nil
}

// CreateFrom stores a card built by an import pipeline. It trusts card fields
// already validated by the caller but still normalizes tags and effects.
func (s *CardService) CreateFrom(card *model.Card) error {
	now := time.Now()
	if card.ID == "" {
		card.ID = uuid.New().String()
	}
	if card.OwnerID == "" {
		card.OwnerID = card.CreatorID
	}
	if card.Rarity == "" {
		card.Rarity = model.RarityCommon
	}
	if card.Visibility == "" {
		card.Visibility = model.VisibilityPrivate
	}
	if card.EditionSize == 0 {
		card.EditionSize = 1
	}
	if card.DesignMetadata == nil {
		card.DesignMetadata = model.JSONObject{}
	}
	effects, err := validation.NormalizeEffects(card.Effects)
	if err != nil {
		return invalid(err)
	}
	card.Effects = effects
	card.Tags = validation.NormalizeTags(card.Tags, validation.MaxTags)
	card.CreatedAt = now
	card.UpdatedAt = now

	err = s.cardRepository.Create(card)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// Get returns a card the viewer may see. Private cards of other users read as
// not found. viewerID may be empty for anonymous requests.
func (s *CardService) Get(ctx context.Context, viewerID, id string) (*model.Card, error) {
	card := &model.Card{}
	hit, err := s.cache.Get(ctx, cache.CardKey(id), card)
	if err != nil {
		slog.Warn("card cache read failed", "error", err, "card_id", id)
	}
	if !hit || (card.OwnerID != viewerID && !card.IsPublic()) {
		card, err = s.cardRepository.ByID(id)
		if err != nil {
			return nil, err
		}
		if card.IsPublic() {
			err = s.cache.Set(ctx, cache.CardKey(id), card, publicCardTTL)
			if err != nil {
				slog.Warn("card cache write failed", "error", err, "card_id", id)
			}
		}
	}

	if !card.IsPublic() && card.OwnerID != viewerID && card.CreatorID != viewerID {
		return nil, repository.ErrCardNotFound
	}

	views, err := s.cache.Counter(ctx, cache.CardViewsKey(id))
	if err == nil {
		card.ViewCount = views
	}
	return card, nil
}

// owned loads a card and checks the user owns it.
func (s *CardService) owned(userID, id string) (*model.Card, error) {
	card, err := s.cardRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	if card.OwnerID != userID {
		if card.IsPublic() {
			return nil, ErrCardNotOwned
		}
		return nil, repository.ErrCardNotFound
	}
	return card, nil
}

// editable loads a card its creator may still edit: only while they own it.
func (s *CardService) editable(userID, id string) (*model.Card, error) {
	card, err := s.owned(userID, id)
	if err != nil {
		return nil, err
	}
	if card.CreatorID != userID {
		return nil, ErrNotOwner
	}
	return card, nil
}

func (s *CardService) ListMine(userID string, filter model.CardFilter) ([]*model.Card, error) {
	if filter.Rarity != "" && validation.ValidateRarity(filter.Rarity) != nil {
		return nil, invalid(fmt.Errorf("unknown rarity %q", filter.Rarity))
	}
	if filter.Tag != "" {
		filter.Tag = validation.NormalizeTag(filter.Tag)
	}
	return s.cardRepository.ByOwner(userID, filter)
}

func (s *CardService) ListPublic(filter model.CardFilter) ([]*model.Card, error) {
	if filter.Tag != "" {
		filter.Tag = validation.NormalizeTag(filter.Tag)
	}
	return s.cardRepository.Public(filter)
}

func (s *CardService) Update(ctx context.Context, userID, id string, in CardInput) (*model.Card, error) {
	card, err := s.editable(userID, id)
	if err != nil {
		return nil, err
	}

	err = s.apply(card, in)
	if err != nil {
		return nil, err
	}

	err = s.cardRepository.Update(card)
	if err != nil {
		return nil, fmt.Errorf("failed to update card: %w", err)
	}

	s.invalidate(ctx, id)
	return card, nil
}

// UpdateEffects replaces the effect stack after clamping slider values.
func (s *CardService) UpdateEffects(ctx context.Context, userID, id string, effects model.Effects) (*model.Card, error) {
	card, err := s.editable(userID, id)
	if err != nil {
		return nil, err
	}

	normalized, err := validation.NormalizeEffects(effects)
	if err != nil {
		return nil, invalid(err)
	}
	card.Effects = normalized

	err = s.cardRepository.Update(card)
	if err != nil {
		return nil, fmt.Errorf("failed to update effects: %w", err)
	}

	s.invalidate(ctx, id)
	return card, nil
}

func (s *CardService) Delete(ctx context.Context, userID, id string) error {
	card, err := s.owned(userID, id)
	if err != nil {
		return err
	}

	_, err = s.listingRepository.OpenByCard(card.ID)
	if err == nil {
		return ErrCardListed
	}
	if !errors.Is(err, repository.ErrListingNotFound) {
		return fmt.Errorf("failed to check listings: %w", err)
	}

	err = s.cardRepository.Delete(card.ID)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}

	err = s.fileService.DeleteByOwner(ctx, model.OwnerTypeCard, card.ID)
	if err != nil {
		slog.Warn("failed to delete card files", "error", err, "card_id", card.ID)
	}

	s.invalidate(ctx, id)
	slog.Info("card deleted", "card_id", id, "user_id", userID)
	return nil
}

// UploadImage stores new card art, generates a thumbnail and points the card at both.
func (s *CardService) UploadImage(ctx context.Context, userID, id string, body io.Reader, filename string, size int64) (*model.Card, error) {
	card, err := s.editable(userID, id)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(body, validation.ImageConstraints.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	contentType, err := validation.ValidateReader(bytes.NewReader(data), filename, int64(len(data)), validation.ImageConstraints)
	if err != nil {
		return nil, invalid(err)
	}

	file, err := s.fileService.Upload(ctx, FileUpload{
		UserID:       userID,
		OwnerType:    model.OwnerTypeCard,
		OwnerID:      card.ID,
		FileType:     model.FileTypeCardImage,
		OriginalName: filename,
		ContentType:  contentType,
		Public:       true,
	}, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	card.ImageURL = file.URL
	card.ImagePath = file.StoragePath
	card.ThumbnailURL = file.URL

	thumb, err := imaging.Thumbnail(bytes.NewReader(data), imaging.ThumbnailWidth)
	if err != nil {
		// webp has no stdlib decoder; the full image doubles as thumbnail
		slog.Debug("thumbnail skipped", "error", err, "card_id", card.ID)
	} else {
		thumbFile, err := s.fileService.Upload(ctx, FileUpload{
			UserID:       userID,
			OwnerType:    model.OwnerTypeCard,
			OwnerID:      card.ID,
			FileType:     model.FileTypeCardImage,
			OriginalName: "thumbnail.png",
			ContentType:  "image/png",
			Public:       true,
		}, bytes.NewReader(thumb))
		if err != nil {
			slog.Warn("failed to store thumbnail", "error", err, "card_id", card.ID)
		} else {
			card.ThumbnailURL = thumbFile.URL
		}
	}

	err = s.cardRepository.Update(card)
	if err != nil {
		return nil, fmt.Errorf("failed to update card image: %w", err)
	}

	s.invalidate(ctx, id)
	return card, nil
}

// RecordView bumps the view counter of a card the viewer can see.
func (s *CardService) RecordView(ctx context.Context, viewerID, id string) (int64, error) {
	_, err := s.Get(ctx, viewerID, id)
	if err != nil {
		return 0, err
	}
	return s.cache.Incr(ctx, cache.CardViewsKey(id))
}

// Duplicate copies a visible card into a new private draft owned by the user.
func (s *CardService) Duplicate(ctx context.Context, userID, id string) (*model.Card, error) {
	src, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	dup := *src
	dup.ID = uuid.New().String()
	dup.CreatorID = userID
	dup.OwnerID = userID
	dup.Title = truncateTitle(src.Title + " (copy)")
	dup.Visibility = model.VisibilityPrivate
	dup.IsDraft = true
	dup.ClientUpdatedAt = nil
	dup.ViewCount = 0
	dup.CreatedAt = now
	dup.UpdatedAt = now
	dup.Tags = append(model.StringList(nil), src.Tags...)
	dup.Effects = append(model.Effects(nil), src.Effects...)

	err = s.cardRepository.Create(&dup)
	if err != nil {
		return nil, fmt.Errorf("failed to duplicate card: %w", err)
	}
	return &dup, nil
}

// Sync reconciles locally saved drafts with the server using last-write-wins
// on client_updated_at. Each draft gets its own result; one failure does not
// stop the rest.
func (s *CardService) Sync(ctx context.Context, userID string, drafts []SyncDraft) []model.CardSyncResult {
	results := make([]model.CardSyncResult, 0, len(drafts))
	for _, d := range drafts {
		res := model.CardSyncResult{ClientID: d.ClientID}
		card, status, err := s.syncOne(ctx, userID, d)
		if err != nil {
			res.Status = model.SyncResultError
			res.Error = err.Error()
			slog.Warn("card sync failed", "error", err, "user_id", userID, "client_id", d.ClientID)
		} else {
			res.Status = status
			res.Card = card
		}
		results = append(results, res)
	}
	return results
}

func (s *CardService) syncOne(ctx context.Context, userID string, d SyncDraft) (*model.Card, string, error) {
	if d.ClientUpdatedAt.IsZero() {
		return nil, "", invalid(errors.New("client_updated_at is required"))
	}
	clientUpdatedAt := d.ClientUpdatedAt.UTC()

	id := d.ID
	if id == "" {
		id = d.ClientID
	}
	if _, err := uuid.Parse(id); err != nil {
		id = syncCardID(userID, id)
	}

	existing, err := s.cardRepository.ByID(id)
	if errors.Is(err, repository.ErrCardNotFound) {
		card, err := s.create(ctx, userID, id, model.CardSourceStudio, &clientUpdatedAt, d.CardInput)
		if err != nil {
			return nil, "", err
		}
		return card, model.SyncResultCreated, nil
	}
	if err != nil {
		return nil, "", err
	}
	if existing.OwnerID != userID || existing.CreatorID != userID {
		return nil, "", ErrNotOwner
	}

	serverTime := existing.UpdatedAt
	if existing.ClientUpdatedAt != nil {
		serverTime = *existing.ClientUpdatedAt
	}
	if !clientUpdatedAt.After(serverTime) {
		return existing, model.SyncResultConflict, nil
	}

	err = s.apply(existing, d.CardInput)
	if err != nil {
		return nil, "", err
	}
	existing.ClientUpdatedAt = &clientUpdatedAt

	err = s.cardRepository.Update(existing)
	if err != nil {
		return nil, "", fmt.Errorf("failed to update card: %w", err)
	}
	s.invalidate(ctx, existing.ID)
	return existing, model.SyncResultUpdated, nil
}

// syncCardNamespace seeds ids for drafts whose client id is not a UUID.
var syncCardNamespace = uuid.MustParse("8f0d6c1e-2b7a-4c55-9e61-3d2f4a9b7c10")

// syncCardID maps a device-local draft id to the same card id on every sync,
// so a retried sync updates the card instead of creating another.
func syncCardID(userID, clientID string) string {
	return uuid.NewSHA1(syncCardNamespace, []byte(userID+":"+clientID)).String()
}

func (s *CardService) invalidate(ctx context.Context, id string) {
	err := s.cache.Delete(ctx, cache.CardKey(id))
	if err != nil {
		slog.Warn("card cache invalidation failed", "error", err, "card_id", id)
	}
}

// Invalidate drops the cached copy of a card changed outside this service.
func (s *CardService) Invalidate(ctx context.Context, id string) {
	s.invalidate(ctx, id)
}

func truncateTitle(title string) string {
	r := []rune(title)
	if len(r) > validation.MaxTitleLength {
		return string(r[:validation.MaxTitleLength])
	}
	return title
}
