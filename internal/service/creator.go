package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/cardshow/cardshow/internal/service/payment"
	"github.com/cardshow/cardshow/internal/validation"
)

const maxBioLength = 1000

type CreatorInput struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
}

type CreatorService struct {
	creatorRepository repository.CreatorRepository
	userRepository    repository.UserRepository
	ledgerRepository  repository.LedgerRepository
	fileService       *FileService
	gateway           payment.Gateway
	appURL            string
	currency          string
}

func NewCreatorService(
	creatorRepository repository.CreatorRepository,
	userRepository repository.UserRepository,
	ledgerRepository repository.LedgerRepository,
	fileService *FileService,
	gateway payment.Gateway,
	appURL string,
	currency string,
) *CreatorService {
	return &CreatorService{
		creatorRepository: creatorRepository,
		userRepository:    userRepository,
		ledgerRepository:  ledgerRepository,
		fileService:       fileService,
		gateway:           gateway,
		appURL:            appURL,
		currency:          currency,
	}
}

func (s *CreatorService) Mine(userID string) (*model.CreatorProfile, error) {
	return s.creatorRepository.ByUserID(userID)
}

// Public returns the profile without payment details.
func (s *CreatorService) Public(userID string) (*model.CreatorProfile, error) {
	p, err := s.creatorRepository.ByUserID(userID)
	if err != nil {
		return nil, err
	}
	return p.Public(), nil
}

func (s *CreatorService) Update(userID string, in CreatorInput) (*model.CreatorProfile, error) {
	p, err := s.creatorRepository.ByUserID(userID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.DisplayName)
	err = validation.ValidateDisplayName(name)
	if err != nil {
		return nil, invalid(err)
	}
	bio := strings.TrimSpace(in.Bio)
	if utf8.RuneCountInString(bio) > maxBioLength {
		return nil, invalid(fmt.Errorf("bio must be at most %d characters", maxBioLength))
	}

	p.DisplayName = name
	p.Bio = bio
	if in.AvatarURL != "" {
		p.AvatarURL = in.AvatarURL
	}

	err = s.creatorRepository.Update(p)
	if err != nil {
		return nil, fmt.Errorf("failed to update creator profile: %w", err)
	}
	return p, nil
}

// UploadAvatar stores a new avatar and points the profile at it.
func (s *CreatorService) UploadAvatar(ctx context.Context, userID string, body io.Reader, filename string) (*model.CreatorProfile, error) {
	p, err := s.creatorRepository.ByUserID(userID)
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

	old, oldErr := s.fileService.Avatar(userID)

	file, err := s.fileService.Upload(ctx, FileUpload{
		UserID:       userID,
		OwnerType:    model.OwnerTypeUser,
		OwnerID:      userID,
		FileType:     model.FileTypeAvatar,
		OriginalName: filename,
		ContentType:  contentType,
		Public:       true,
	}, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	p.AvatarURL = file.URL
	err = s.creatorRepository.Update(p)
	if err != nil {
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}

	if oldErr == nil {
		err = s.fileService.Delete(ctx, old.ID)
		if err != nil {
			slog.Warn("failed to delete previous avatar", "error", err, "user_id", userID)
		}
	}
	return p, nil
}

// EnsureConnectAccount creates the creator's Express account once. Later calls
// return the existing account id.
func (s *CreatorService) EnsureConnectAccount(ctx context.Context, userID string) (*model.CreatorProfile, error) {
	p, err := s.creatorRepository.ByUserID(userID)
	if err != nil {
		return nil, err
	}
	if p.HasConnectAccount() {
		return p, nil
	}

	user, err := s.userRepository.ByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	accountID, err := s.gateway.CreateConnectAccount(ctx, userID, user.Email)
	if err != nil {
		return nil, err
	}

	err = s.creatorRepository.SetStripeAccount(userID, accountID)
	if err != nil && !errors.Is(err, repository.ErrConnectAccountPresent) {
		return nil, fmt.Errorf("failed to store connect account: %w", err)
	}

	return s.creatorRepository.ByUserID(userID)
}

// OnboardingLink returns a hosted onboarding URL, creating the account first if needed.
func (s *CreatorService) OnboardingLink(ctx context.Context, userID string) (string, error) {
	p, err := s.EnsureConnectAccount(ctx, userID)
	if err != nil {
		return "", err
	}

	return s.gateway.CreateOnboardingLink(ctx, *p.StripeAccountID,
		s.appURL+"/creator/onboarding?refresh=1",
		s.appURL+"/creator/onboarding?complete=1")
}

// SyncAccount copies Connect capability flags from an account.updated event.
func (s *CreatorService) SyncAccount(acct *payment.AccountEvent) error {
	err := s.creatorRepository.UpdateConnectStatus(acct.ID, acct.ChargesEnabled, acct.PayoutsEnabled, acct.OnboardingComplete)
	if errors.Is(err, repository.ErrCreatorNotFound) {
		slog.Warn("account update for unknown connect account", "account_id", acct.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to sync connect account: %w", err)
	}

	slog.Info("connect account synced", "account_id", acct.ID, "payouts_enabled", acct.PayoutsEnabled)
	return nil
}

func (s *CreatorService) Earnings(userID string) (*model.EarningsSummary, error) {
	pending, paid, err := s.ledgerRepository.EarningTotals(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to total earnings: %w", err)
	}
	earnings, err := s.ledgerRepository.EarningsByCreator(userID, 20)
	if err != nil {
		return nil, fmt.Errorf("failed to list earnings: %w", err)
	}
	payouts, err := s.ledgerRepository.PayoutsByCreator(userID, 20)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}

	if earnings == nil {
		earnings = []*model.Earning{}
	}
	if payouts == nil {
		payouts = []*model.Payout{}
	}

	return &model.EarningsSummary{
		Currency:      s.currency,
		PendingCents:  pending,
		PaidCents:     paid,
		LifetimeCents: pending + paid,
		Earnings:      earnings,
		Payouts:       payouts,
	}, nil
}
