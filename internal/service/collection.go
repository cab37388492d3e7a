package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/cardshow/cardshow/internal/validation"
	"github.com/google/uuid"
)

type CollectionInput struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Visibility    string `json:"visibility"`
	CoverImageURL string `json:"cover_image_url"`
}

type CollectionService struct {
	collectionRepository repository.CollectionRepository
	cardRepository       repository.CardRepository
}

func NewCollectionService(collectionRepository repository.CollectionRepository, cardRepository repository.CardRepository) *CollectionService {
	return &CollectionService{
		collectionRepository: collectionRepository,
		cardRepository:       cardRepository,
	}
}

func applyCollection(c *model.Collection, in CollectionInput) error {
	title := strings.TrimSpace(in.Title)
	if err := validation.ValidateTitle(title); err != nil {
		return invalid(err)
	}
	if err := validation.ValidateDescription(in.Description); err != nil {
		return invalid(err)
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = model.VisibilityPrivate
	}
	if err := validation.ValidateVisibility(visibility); err != nil {
		return invalid(err)
	}

	c.Title = title
	c.Description = strings.TrimSpace(in.Description)
	c.Visibility = visibility
	c.CoverImageURL = in.CoverImageURL
	return nil
}

func (s *CollectionService) Create(userID string, in CollectionInput) (*model.Collection, error) {
	now := time.Now()
	c := &model.Collection{
		ID:        uuid.New().String(),
		OwnerID:   userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := applyCollection(c, in)
	if err != nil {
		return nil, err
	}

	err = s.collectionRepository.Create(c)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return c, nil
}

// Get returns a collection the viewer may see.
func (s *CollectionService) Get(viewerID, id string) (*model.Collection, error) {
	c, err := s.collectionRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	if !c.IsPublic() && c.OwnerID != viewerID {
		return nil, repository.ErrCollectionNotFound
	}
	return c, nil
}

func (s *CollectionService) owned(userID, id string) (*model.Collection, error) {
	c, err := s.collectionRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	if c.OwnerID != userID {
		if c.IsPublic() {
			return nil, ErrNotOwner
		}
		return nil, repository.ErrCollectionNotFound
	}
	return c, nil
}

func (s *CollectionService) ListMine(userID string) ([]*model.Collection, error) {
	return s.collectionRepository.ByOwner(userID)
}

func (s *CollectionService) Update(userID, id string, in CollectionInput) (*model.Collection, error) {
	c, err := s.owned(userID, id)
	if err != nil {
		return nil, err
	}
	err = applyCollection(c, in)
	if err != nil {
		return nil, err
	}

	err = s.collectionRepository.Update(c)
	if err != nil {
		return nil, fmt.Errorf("failed to update collection: %w", err)
	}
	return c, nil
}

func (s *CollectionService) Delete(userID, id string) error {
	_, err := s.owned(userID, id)
	if err != nil {
		return err
	}
	return s.collectionRepository.Delete(id)
}

// AddCard puts a card the user can see into their collection. Adding a card
// twice is a no-op and reports added=false.
func (s *CollectionService) AddCard(userID, collectionID, cardID string) (bool, error) {
	_, err := s.owned(userID, collectionID)
	if err != nil {
		return false, err
	}

	card, err := s.cardRepository.ByID(cardID)
	if err != nil {
		return false, err
	}
	if card.OwnerID != userID && !card.IsPublic() {
		return false, repository.ErrCardNotFound
	}

	return s.collectionRepository.AddCard(collectionID, cardID)
}

func (s *CollectionService) RemoveCard(userID, collectionID, cardID string) error {
	_, err := s.owned(userID, collectionID)
	if err != nil {
		return err
	}
	return s.collectionRepository.RemoveCard(collectionID, cardID)
}

// Cards lists a visible collection in position order. Private cards of other
// users are left out.
func (s *CollectionService) Cards(viewerID, collectionID string) ([]*model.Card, error) {
	_, err := s.Get(viewerID, collectionID)
	if err != nil {
		return nil, err
	}

	cards, err := s.collectionRepository.Cards(collectionID)
	if err != nil {
		return nil, err
	}

	visible := cards[:0]
	for _, c := range cards {
		if c.IsPublic() || c.OwnerID == viewerID {
			visible = append(visible, c)
		}
	}
	return visible, nil
}
