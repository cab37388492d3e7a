package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrPayoutNotFound      = errors.New("payout not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNothingToPay        = errors.New("no pending earnings to pay out")
)

// LedgerRepository owns sale transactions, seller earnings and payouts.
type LedgerRepository interface {
	TransactionBySession(sessionID string) (*model.Transaction, error)
	EarningsByCreator(creatorID string, limit int) ([]*model.Earning, error)
	EarningTotals(creatorID string) (pending, paid int64, err error)
	PendingBalances() ([]*model.PendingBalance, error)
	ClaimEarnings(payout *model.Payout) error
	CompletePayout(payoutID, transferID string) error
	FailPayout(payoutID, reason string) error
	PayoutsByCreator(creatorID string, limit int) ([]*model.Payout, error)
	PendingPayouts() ([]*model.Payout, error)
	PayoutByID(id string) (*model.Payout, error)
}

type ledgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) TransactionBySession(sessionID string) (*model.Transaction, error) {
	t := &model.Transaction{}
	query := `SELECT * FROM transactions WHERE stripe_session_id = $1`

	err := r.db.Get(t, query, sessionID)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}

	return t, err
}

func (r *ledgerRepository) EarningsByCreator(creatorID string, limit int) ([]*model.Earning, error) {
	var earnings []*model.Earning
	query := `SELECT * FROM earnings WHERE creator_id = $1 ORDER BY created_at DESC LIMIT $2`

	err := r.db.Select(&earnings, query, creatorID, limit)
	if err != nil {
		return nil, err
	}

	return earnings, nil
}

func (r *ledgerRepository) EarningTotals(creatorID string) (int64, int64, error) {
	var totals struct {
		Pending int64 `db:"pending"`
		Paid    int64 `db:"paid"`
	}
	query := `SELECT
	              COALESCE(SUM(CASE WHEN status = 'pending' THEN amount_cents ELSE 0 END), 0) AS pending,
	              COALESCE(SUM(CASE WHEN status = 'paid' THEN amount_cents ELSE 0 END), 0) AS paid
	          FROM earnings WHERE creator_id = $1`

	err := r.db.Get(&totals, query, creatorID)
	if err != nil {
		return 0, 0, err
	}

	return totals.Pending, totals.Paid, nil
}

// PendingBalances sums unclaimed pending earnings per creator whose Connect
// account can receive payouts.
func (r *ledgerRepository) PendingBalances() ([]*model.PendingBalance, error) {
	var balances []*model.PendingBalance
	query := `SELECT e.creator_id, e.currency, SUM(e.amount_cents) AS amount_cents
	          FROM earnings e
	          JOIN creator_profiles p ON p.user_id = e.creator_id
	          WHERE e.status = 'pending' AND e.payout_id IS NULL
	            AND p.payouts_enabled = $1 AND p.stripe_account_id IS NOT NULL
	          GROUP BY e.creator_id, e.currency
	          ORDER BY e.creator_id`

	err := r.db.Select(&balances, query, true)
	if err != nil {
		return nil, err
	}

	return balances, nil
}

// ClaimEarnings inserts the payout and reserves every unclaimed pending
// earning of its creator and currency for it. The payout amount is set to the
// sum actually claimed.
func (r *ledgerRepository) ClaimEarnings(payout *model.Payout) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO payouts (id, creator_id, amount_cents, currency, status, created_at)
	                  VALUES ($1, $2, $3, $4, $5, $6)`,
		payout.ID, payout.CreatorID, 0, payout.Currency, model.PayoutStatusPending, payout.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payout: %w", err)
	}

	_, err = tx.Exec(`UPDATE earnings SET payout_id = $1
	                  WHERE creator_id = $2 AND currency = $3 AND status = 'pending' AND payout_id IS NULL`,
		payout.ID, payout.CreatorID, payout.Currency)
	if err != nil {
		return fmt.Errorf("failed to claim earnings: %w", err)
	}

	var amount int64
	err = tx.Get(&amount, `SELECT COALESCE(SUM(amount_cents), 0) FROM earnings WHERE payout_id = $1`, payout.ID)
	if err != nil {
		return err
	}
	if amount == 0 {
		return ErrNothingToPay
	}

	_, err = tx.Exec(`UPDATE payouts SET amount_cents = $1 WHERE id = $2`, amount, payout.ID)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	payout.AmountCents = amount
	payout.Status = model.PayoutStatusPending
	return nil
}

// CompletePayout stores the transfer and marks the claimed earnings paid.
func (r *ledgerRepository) CompletePayout(payoutID, transferID string) error {
	now := time.Now()

	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE payouts SET status = $1, stripe_transfer_id = $2, completed_at = $3 WHERE id = $4 AND status = $5`,
		model.PayoutStatusCompleted, transferID, now, payoutID, model.PayoutStatusPending)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPayoutNotFound
	}

	_, err = tx.Exec(`UPDATE earnings SET status = $1, paid_at = $2 WHERE payout_id = $3`,
		model.EarningStatusPaid, now, payoutID)
	if err != nil {
		return fmt.Errorf("failed to mark earnings paid: %w", err)
	}

	return tx.Commit()
}

// FailPayout records the failure and releases the claimed earnings for the next run.
func (r *ledgerRepository) FailPayout(payoutID, reason string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE payouts SET status = $1, failure_reason = $2 WHERE id = $3 AND status = $4`,
		model.PayoutStatusFailed, reason, payoutID, model.PayoutStatusPending)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPayoutNotFound
	}

	_, err = tx.Exec(`UPDATE earnings SET payout_id = NULL WHERE payout_id = $1 AND status = 'pending'`, payoutID)
	if err != nil {
		return fmt.Errorf("failed to release earnings: %w", err)
	}

	return tx.Commit()
}

func (r *ledgerRepository) PayoutsByCreator(creatorID string, limit int) ([]*model.Payout, error) {
	var payouts []*model.Payout
	query := `SELECT * FROM payouts WHERE creator_id = $1 ORDER BY created_at DESC LIMIT $2`

	err := r.db.Select(&payouts, query, creatorID, limit)
	if err != nil {
		return nil, err
	}

	return payouts, nil
}

// PendingPayouts lists payouts that never reached completed or failed.
func (r *ledgerRepository) PendingPayouts() ([]*model.Payout, error) {
	var payouts []*model.Payout
	query := `SELECT * FROM payouts WHERE status = $1 ORDER BY created_at`

	err := r.db.Select(&payouts, query, model.PayoutStatusPending)
	if err != nil {
		return nil, err
	}

	return payouts, nil
}

func (r *ledgerRepository) PayoutByID(id string) (*model.Payout, error) {
	p := &model.Payout{}
	query := `SELECT * FROM payouts WHERE id = $1`

	err := r.db.Get(p, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrPayoutNotFound
	}

	return p, err
}
