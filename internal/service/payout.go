package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cardshow/cardshow/internal/metrics"
	"github.com/cardshow/cardshow/internal/model"
	"github.com/cardshow/cardshow/internal/repository"
	"github.com/cardshow/cardshow/internal/service/payment"
	"github.com/google/uuid"
)

var ErrPayoutRunning = errors.New("a payout run is already in progress")

// Stripe keeps idempotency keys for 24 hours. A pending payout older than this
// cannot be retried safely and is left for manual review.
const transferRetryWindow = 23 * time.Hour

// PayoutService transfers pending creator earnings to their Connect accounts.
type PayoutService struct {
	ledgerRepository  repository.LedgerRepository
	creatorRepository repository.CreatorRepository
	userRepository    repository.UserRepository
	gateway           payment.Gateway
	emailService      *EmailService
	minimumCents      int64

	mu sync.Mutex
}

func NewPayoutService(
	ledgerRepository repository.LedgerRepository,
	creatorRepository repository.CreatorRepository,
	userRepository repository.UserRepository,
	gateway payment.Gateway,
	emailService *EmailService,
	minimumCents int64,
) *PayoutService {
	return &PayoutService{
		ledgerRepository:  ledgerRepository,
		creatorRepository: creatorRepository,
		userRepository:    userRepository,
		gateway:           gateway,
		emailService:      emailService,
		minimumCents:      minimumCents,
	}
}

// Run pays every creator whose pending balance reaches the minimum. A failed
// transfer releases its earnings so the next run retries them. Payouts left
// pending by an earlier run are settled first.
func (s *PayoutService) Run(ctx context.Context) (*model.PayoutRun, error) {
	if !s.mu.TryLock() {
		return nil, ErrPayoutRunning
	}
	defer s.mu.Unlock()

	run := &model.PayoutRun{}
	err := s.reconcile(ctx, run)
	if err != nil {
		return run, err
	}

	balances, err := s.ledgerRepository.PendingBalances()
	if err != nil {
		return nil, fmt.Errorf("failed to load pending balances: %w", err)
	}

	for _, b := range balances {
		if ctx.Err() != nil {
			return run, ctx.Err()
		}
		run.Considered++

		if b.AmountCents < s.minimumCents {
			run.Skipped++
			continue
		}

		payout, err := s.payOne(ctx, b)
		switch {
		case errors.Is(err, repository.ErrNothingToPay):
			run.Skipped++
		case err != nil:
			run.Failed++
			slog.Error("payout failed", "error", err, "creator_id", b.CreatorID, "currency", b.Currency)
		default:
			run.Paid++
			run.TotalCents += payout.AmountCents
		}
	}

	slog.Info("payout run finished",
		"considered", run.Considered, "paid", run.Paid, "failed", run.Failed,
		"skipped", run.Skipped, "reconciled", run.Reconciled, "total_cents", run.TotalCents)
	return run, nil
}

func (s *PayoutService) payOne(ctx context.Context, b *model.PendingBalance) (*model.Payout, error) {
	creator, err := s.creatorRepository.ByUserID(b.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load creator: %w", err)
	}
	if !creator.HasConnectAccount() || !creator.PayoutsEnabled {
		return nil, repository.ErrNothingToPay
	}

	payout := &model.Payout{
		ID:        uuid.New().String(),
		CreatorID: b.CreatorID,
		Currency:  b.Currency,
		CreatedAt: time.Now(),
	}
	err = s.ledgerRepository.ClaimEarnings(payout)
	if err != nil {
		return nil, err
	}

	transferID, err := s.transfer(ctx, creator, payout)
	if err != nil {
		metrics.RecordPayout(model.PayoutStatusFailed)
		failErr := s.ledgerRepository.FailPayout(payout.ID, err.Error())
		if failErr != nil {
			slog.Error("failed to release payout earnings", "error", failErr, "payout_id", payout.ID)
		}
		return nil, err
	}

	err = s.ledgerRepository.CompletePayout(payout.ID, transferID)
	if err != nil {
		// the transfer went out; the idempotency key keeps a rerun from paying twice
		return nil, fmt.Errorf("transfer %s sent but payout %s not recorded: %w", transferID, payout.ID, err)
	}

	metrics.RecordPayout(model.PayoutStatusCompleted)
	slog.Info("payout sent", "payout_id", payout.ID, "creator_id", payout.CreatorID, "amount_cents", payout.AmountCents)

	s.notify(ctx, creator, payout)
	return payout, nil
}

// reconcile retries payouts whose transfer may have gone out without the
// ledger recording it. The retry reuses the payout id as idempotency key, so
// the processor returns the original transfer instead of sending a second one.
func (s *PayoutService) reconcile(ctx context.Context, run *model.PayoutRun) error {
	stuck, err := s.ledgerRepository.PendingPayouts()
	if err != nil {
		return fmt.Errorf("failed to load pending payouts: %w", err)
	}

	for _, payout := range stuck {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(payout.CreatedAt) > transferRetryWindow {
			run.Failed++
			slog.Error("pending payout past retry window, needs manual review",
				"payout_id", payout.ID, "creator_id", payout.CreatorID, "created_at", payout.CreatedAt)
			continue
		}

		creator, err := s.creatorRepository.ByUserID(payout.CreatorID)
		if err != nil || !creator.HasConnectAccount() {
			run.Failed++
			slog.Error("cannot reconcile payout without connect account", "error", err, "payout_id", payout.ID)
			continue
		}

		// a transfer error leaves the payout pending: the first attempt may still have landed
		transferID, err := s.transfer(ctx, creator, payout)
		if err != nil {
			run.Failed++
			slog.Error("payout retry failed", "error", err, "payout_id", payout.ID)
			continue
		}
		err = s.ledgerRepository.CompletePayout(payout.ID, transferID)
		if err != nil {
			run.Failed++
			slog.Error("payout retry not recorded", "error", err, "payout_id", payout.ID, "transfer_id", transferID)
			continue
		}

		run.Reconciled++
		run.TotalCents += payout.AmountCents
		metrics.RecordPayout(model.PayoutStatusCompleted)
		slog.Info("pending payout reconciled", "payout_id", payout.ID, "transfer_id", transferID)
		s.notify(ctx, creator, payout)
	}
	return nil
}

func (s *PayoutService) transfer(ctx context.Context, creator *model.CreatorProfile, payout *model.Payout) (string, error) {
	return s.gateway.CreateTransfer(ctx, payment.TransferRequest{
		AccountID:      *creator.StripeAccountID,
		AmountCents:    payout.AmountCents,
		Currency:       payout.Currency,
		IdempotencyKey: payout.ID,
		Description:    "Cardshow creator payout",
	})
}

func (s *PayoutService) notify(ctx context.Context, creator *model.CreatorProfile, payout *model.Payout) {
	user, err := s.userRepository.ByID(creator.UserID)
	if err != nil {
		slog.Warn("failed to load creator for payout email", "error", err, "creator_id", creator.UserID)
		return
	}
	err = s.emailService.SendPayoutEmail(ctx, user.Email, creator.DisplayName, payout.AmountCents, payout.Currency)
	if err != nil {
		slog.Warn("failed to send payout email", "error", err, "creator_id", creator.UserID)
	}
}
