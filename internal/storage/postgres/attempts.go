package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/medpay/internal/models"
	"github.com/mmynk/medpay/internal/storage"
)

const attemptColumns = `id, request_id, transaction_hash, from_address, nonce, outcome, created_at, updated_at`

// inFlightOutcomes matches AttemptOutcome.Blocking and the partial unique index.
const inFlightOutcomes = `('PENDING', 'ACCEPTED', 'UNKNOWN')`

func scanAttempt(row pgx.Row) (*models.SettlementAttempt, error) {
	a := &models.SettlementAttempt{}
	var nonce int64
	var outcome string
	if err := row.Scan(&a.ID, &a.RequestID, &a.TransactionHash, &a.FromAddress, &nonce,
		&outcome, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Nonce = uint64(nonce)
	a.Outcome = models.AttemptOutcome(outcome)
	return a, nil
}

// RecordSettlementAttempt inserts an attempt for an UNPAID request under the
// request's row lock. The partial unique index rejects a second in-flight
// attempt for the same request. A missing request is ErrNotFound, a PAID one
// ErrConflict.
func (s *Store) RecordSettlementAttempt(ctx context.Context, attempt *models.SettlementAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	if attempt.Outcome == "" {
		attempt.Outcome = models.OutcomePending
	}
	if attempt.CreatedAt == 0 {
		attempt.CreatedAt = time.Now().Unix()
	}
	attempt.UpdatedAt = attempt.CreatedAt

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockPaymentRequest(ctx, tx, attempt.RequestID)
	if err != nil {
		return err
	}
	if status != models.StatusUnpaid {
		return fmt.Errorf("%w: payment request %s is %s", storage.ErrConflict, attempt.RequestID, status)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO settlement_attempts (`+attemptColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		attempt.ID, attempt.RequestID, attempt.TransactionHash, attempt.FromAddress,
		int64(attempt.Nonce), string(attempt.Outcome), attempt.CreatedAt, attempt.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: settlement already in flight for payment request %s", storage.ErrConflict, attempt.RequestID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert settlement attempt: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateSettlementAttempt sets the outcome of an attempt.
func (s *Store) UpdateSettlementAttempt(ctx context.Context, id string, outcome models.AttemptOutcome) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE settlement_attempts SET outcome = $1, updated_at = $2 WHERE id = $3",
		string(outcome), time.Now().Unix(), id,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: another settlement attempt is in flight", storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to update settlement attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: settlement attempt %s", storage.ErrNotFound, id)
	}
	return nil
}

// GetSettlementAttempt retrieves an attempt by ID.
func (s *Store) GetSettlementAttempt(ctx context.Context, id string) (*models.SettlementAttempt, error) {
	a, err := scanAttempt(s.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM settlement_attempts WHERE id = $1`, id))
	if nf := notFound(err, "settlement attempt "+id); nf != nil {
		return nil, nf
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement attempt: %w", err)
	}
	return a, nil
}

// ListSettlementAttempts retrieves all attempts for a request, oldest first.
func (s *Store) ListSettlementAttempts(ctx context.Context, requestID string) ([]*models.SettlementAttempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM settlement_attempts WHERE request_id = $1 ORDER BY created_at, id`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlement attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*models.SettlementAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlement attempts: %w", err)
	}
	return attempts, nil
}
