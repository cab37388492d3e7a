package service

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cardshow/cardshow/internal/markdown"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/cardshow/cardshow/internal/validation"
	"github.com/google/uuid"
)

const (
	maxMemoryLength  = 10000
	maxCommentLength = 2000
)

const (
	EventCommentCreated  = "comment.created"
	EventCommentDeleted  = "comment.deleted"
	EventReactionUpdated = "reaction.updated"
)

var (
	ErrUnknownTarget  = errors.New("unknown target type")
	ErrBodyRequired   = errors.New("body is required")
	ErrParentMismatch = errors.New("parent comment belongs to another target")
)

// Publisher fans realtime events out to subscribers of a topic.
type Publisher interface {
	Publish(topic, eventType string, data any)
}

type MemoryInput struct {
	Body         string  `json:"body"`
	CardID       *string `json:"card_id"`
	CollectionID *string `json:"collection_id"`
	Visibility   string  `json:"visibility"`
}

type SocialService struct {
	memoryRepository     repository.MemoryRepository
	commentRepository    repository.CommentRepository
	reactionRepository   repository.ReactionRepository
	cardRepository       repository.CardRepository
	collectionRepository repository.CollectionRepository
	markdown             *markdown.Parser
	publisher            Publisher
}

func NewSocialService(
	memoryRepository repository.MemoryRepository,
	commentRepository repository.CommentRepository,
	reactionRepository repository.ReactionRepository,
	cardRepository repository.CardRepository,
	collectionRepository repository.CollectionRepository,
	markdownParser *markdown.Parser,
	publisher Publisher,
) *SocialService {
	return &SocialService{
		memoryRepository:     memoryRepository,
		commentRepository:    commentRepository,
		reactionRepository:   reactionRepository,
		cardRepository:       cardRepository,
		collectionRepository: collectionRepository,
		markdown:             markdownParser,
		publisher:            publisher,
	}
}

func validateBody(body string, max int) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", invalid(ErrBodyRequired)
	}
	if utf8.RuneCountInString(body) > max {
		return "", invalid(fmt.Errorf("body must be at most %d characters", max))
	}
	return body, nil
}

// checkTarget returns nil when the viewer may read the target.
func (s *SocialService) checkTarget(viewerID, targetType, targetID string) error {
	switch targetType {
	case model.TargetCard:
		card, err := s.cardRepository.ByID(targetID)
		if err != nil {
			return err
		}
		if !card.IsPublic() && card.OwnerID != viewerID {
			return repository.ErrCardNotFound
		}
	case model.TargetCollection:
		c, err := s.collectionRepository.ByID(targetID)
		if err != nil {
			return err
		}
		if !c.IsPublic() && c.OwnerID != viewerID {
			return repository.ErrCollectionNotFound
		}
	case model.TargetMemory:
		_, err := s.GetMemory(viewerID, targetID)
		return err
	default:
		return invalid(ErrUnknownTarget)
	}
	return nil
}

// AuthorizeTopic lets a viewer subscribe to the realtime topic of a target
// they can read.
func (s *SocialService) AuthorizeTopic(viewerID, topic string) error {
	targetType, targetID, ok := strings.Cut(topic, ":")
	if !ok || targetID == "" {
		return invalid(ErrUnknownTarget)
	}
	return s.checkTarget(viewerID, targetType, targetID)
}

func (s *SocialService) CreateMemory(userID string, in MemoryInput) (*model.Memory, error) {
	m := &model.Memory{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	err := s.applyMemory(userID, m, in)
	if err != nil {
		return nil, err
	}

	err = s.memoryRepository.Create(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory: %w", err)
	}
	return m, nil
}

func (s *SocialService) applyMemory(userID string, m *model.Memory, in MemoryInput) error {
	body, err := validateBody(in.Body, maxMemoryLength)
	if err != nil {
		return err
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = model.VisibilityPublic
	}
	if err := validation.ValidateVisibility(visibility); err != nil {
		return invalid(err)
	}
	if in.CardID != nil && *in.CardID != "" {
		if err := s.checkTarget(userID, model.TargetCard, *in.CardID); err != nil {
			return err
		}
	} else {
		in.CardID = nil
	}
	if in.CollectionID != nil && *in.CollectionID != "" {
		if err := s.checkTarget(userID, model.TargetCollection, *in.CollectionID); err != nil {
			return err
		}
	} else {
		in.CollectionID = nil
	}

	html, err := s.markdown.Render(body)
	if err != nil {
		return fmt.Errorf("failed to render memory: %w", err)
	}

	m.Body = body
	m.BodyHTML = html
	m.Visibility = visibility
	m.CardID = in.CardID
	m.CollectionID = in.CollectionID
	return nil
}

func (s *SocialService) GetMemory(viewerID, id string) (*model.Memory, error) {
	m, err := s.memoryRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	if m.Visibility == model.VisibilityPrivate && m.UserID != viewerID {
		return nil, repository.ErrMemoryNotFound
	}
	return m, nil
}

func (s *SocialService) ListMyMemories(userID string, limit, offset int) ([]*model.Memory, error) {
	return s.memoryRepository.ByUser(userID, limit, offset)
}

func (s *SocialService) ListPublicMemories(limit, offset int) ([]*model.Memory, error) {
	return s.memoryRepository.Public(limit, offset)
}

// CardMemories lists the memories attached to a card the viewer can see.
func (s *SocialService) CardMemories(viewerID, cardID string) ([]*model.Memory, error) {
	err := s.checkTarget(viewerID, model.TargetCard, cardID)
	if err != nil {
		return nil, err
	}
	memories, err := s.memoryRepository.ByCard(cardID)
	if err != nil {
		return nil, err
	}
	visible := memories[:0]
	for _, m := range memories {
		if m.Visibility != model.VisibilityPrivate || m.UserID == viewerID {
			visible = append(visible, m)
		}
	}
	return visible, nil
}

func (s *SocialService) UpdateMemory(userID, id string, in MemoryInput) (*model.Memory, error) {
	m, err := s.memoryRepository.ByID(id)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, ErrNotOwner
	}
	err = s.applyMemory(userID, m, in)
	if err != nil {
		return nil, err
	}

	err = s.memoryRepository.Update(m)
	if err != nil {
		return nil, fmt.Errorf("failed to update memory: %w", err)
	}
	return m, nil
}

func (s *SocialService) DeleteMemory(userID, id string) error {
	m, err := s.memoryRepository.ByID(id)
	if err != nil {
		return err
	}
	if m.UserID != userID {
		return ErrNotOwner
	}
	return s.memoryRepository.Delete(id)
}

// AddComment posts a comment or a reply. Threads are one level deep: a reply
// to a reply is attached to the root comment.
func (s *SocialService) AddComment(userID, targetType, targetID string, parentID *string, body string) (*model.Comment, error) {
	body, err := validateBody(body, maxCommentLength)
	if err != nil {
		return nil, err
	}
	err = s.checkTarget(userID, targetType, targetID)
	if err != nil {
		return nil, err
	}

	if parentID != nil && *parentID != "" {
		parent, err := s.commentRepository.ByID(*parentID)
		if err != nil {
			return nil, err
		}
		if parent.TargetType != targetType || parent.TargetID != targetID {
			return nil, invalid(ErrParentMismatch)
		}
		if parent.ParentID != nil {
			parentID = parent.ParentID
		}
	} else {
		parentID = nil
	}

	c := &model.Comment{
		ID:         uuid.New().String(),
		UserID:     userID,
		TargetType: targetType,
		TargetID:   targetID,
		ParentID:   parentID,
		Body:       body,
		CreatedAt:  time.Now(),
	}
	err = s.commentRepository.Create(c)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.publisher.Publish(model.Topic(targetType, targetID), EventCommentCreated, c)
	return c, nil
}

func (s *SocialService) Comments(viewerID, targetType, targetID string) ([]*model.Comment, error) {
	err := s.checkTarget(viewerID, targetType, targetID)
	if err != nil {
		return nil, err
	}
	return s.commentRepository.ByTarget(targetType, targetID)
}

// DeleteComment removes a comment and its replies. Only the author may delete.
func (s *SocialService) DeleteComment(userID, id string) error {
	c, err := s.commentRepository.ByID(id)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return ErrNotOwner
	}

	err = s.commentRepository.Delete(id)
	if err != nil {
		return err
	}

	s.publisher.Publish(model.Topic(c.TargetType, c.TargetID), EventCommentDeleted, map[string]string{"id": id})
	return nil
}

// ToggleReaction adds the reaction when absent and removes it when present.
func (s *SocialService) ToggleReaction(userID, targetType, targetID, reactionType string) (*model.ReactionSummary, error) {
	if !slices.Contains(model.ReactionTypes, reactionType) {
		return nil, invalid(fmt.Errorf("reaction must be one of %v", model.ReactionTypes))
	}
	err := s.checkTarget(userID, targetType, targetID)
	if err != nil {
		return nil, err
	}

	existing, err := s.reactionRepository.Find(userID, targetType, targetID, reactionType)
	switch {
	case err == nil:
		err = s.reactionRepository.Delete(existing.ID)
		if err != nil && !errors.Is(err, repository.ErrReactionNotFound) {
			return nil, fmt.Errorf("failed to remove reaction: %w", err)
		}
	case errors.Is(err, repository.ErrReactionNotFound):
		err = s.reactionRepository.Create(&model.Reaction{
			ID:         uuid.New().String(),
			UserID:     userID,
			TargetType: targetType,
			TargetID:   targetID,
			Type:       reactionType,
			CreatedAt:  time.Now(),
		})
		// a concurrent toggle already added it
		if err != nil && !errors.Is(err, repository.ErrDuplicateReaction) {
			return nil, fmt.Errorf("failed to add reaction: %w", err)
		}
	default:
		return nil, err
	}

	summary, err := s.summary(userID, targetType, targetID)
	if err != nil {
		return nil, err
	}

	broadcast := *summary
	broadcast.Mine = nil
	s.publisher.Publish(model.Topic(targetType, targetID), EventReactionUpdated, broadcast)
	return summary, nil
}

func (s *SocialService) Reactions(viewerID, targetType, targetID string) (*model.ReactionSummary, error) {
	err := s.checkTarget(viewerID, targetType, targetID)
	if err != nil {
		return nil, err
	}
	return s.summary(viewerID, targetType, targetID)
}

func (s *SocialService) summary(viewerID, targetType, targetID string) (*model.ReactionSummary, error) {
	counts, err := s.reactionRepository.Counts(targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to count reactions: %w", err)
	}
	summary := &model.ReactionSummary{TargetType: targetType, TargetID: targetID, Counts: counts}
	if viewerID != "" {
		summary.Mine, err = s.reactionRepository.UserTypes(viewerID, targetType, targetID)
		if err != nil {
			slog.Warn("failed to load own reactions", "error", err)
		}
	}
	return summary, nil
}
