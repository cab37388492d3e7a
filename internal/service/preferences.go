package service

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/repository"
)

var renderQualities = []string{
	model.RenderQualityLow,
	model.RenderQualityMedium,
	model.RenderQualityHigh,
	model.RenderQualityUltra,
}

type PreferencesService struct {
	preferencesRepository repository.PreferencesRepository
}

func NewPreferencesService(preferencesRepository repository.PreferencesRepository) *PreferencesService {
	return &PreferencesService{preferencesRepository: preferencesRepository}
}

// Get returns stored preferences or the defaults for users who never saved any.
func (s *PreferencesService) Get(userID string) (*model.ViewerPreferences, error) {
	prefs, err := s.preferencesRepository.ByUserID(userID)
	if errors.Is(err, repository.ErrPreferencesNotFound) {
		return model.DefaultViewerPreferences(userID), nil
	}
	return prefs, err
}

func (s *PreferencesService) Update(userID string, prefs *model.ViewerPreferences) (*model.ViewerPreferences, error) {
	if !slices.Contains(renderQualities, prefs.RenderQuality) {
		return nil, invalid(fmt.Errorf("render quality must be one of %v", renderQualities))
	}
	prefs.UserID = userID
	prefs.UpdatedAt = time.Now()

	err := s.preferencesRepository.Upsert(prefs)
	if err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}
	return prefs, nil
}
