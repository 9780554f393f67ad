package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/medpay/internal/models"
	"github.com/mmynk/medpay/internal/storage"
)

const attemptColumns = `id, request_id, transaction_hash, from_address, nonce, outcome, created_at, updated_at`

// inFlightOutcomes matches AttemptOutcome.Blocking and the partial unique index.
const inFlightOutcomes = `('PENDING', 'ACCEPTED', 'UNKNOWN')`

func scanAttempt(row rowScanner) (*models.SettlementAttempt, error) {
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

// RecordSettlementAttempt inserts an attempt for an UNPAID request. The partial
// unique index on request_id rejects a second in-flight attempt for the same
// request. A missing request is ErrNotFound, a PAID one ErrConflict.
func (s *SQLiteStore) RecordSettlementAttempt(ctx context.Context, attempt *models.SettlementAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	if attempt.Outcome == "" {
		attempt.Outcome = models.OutcomePending
	}
	now := time.Now().Unix()
	if attempt.CreatedAt == 0 {
		attempt.CreatedAt = now
	}
	attempt.UpdatedAt = attempt.CreatedAt

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO settlement_attempts (`+attemptColumns+`)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM payment_requests WHERE id = ? AND status = ?)`,
		attempt.ID, attempt.RequestID, attempt.TransactionHash, attempt.FromAddress,
		int64(attempt.Nonce), string(attempt.Outcome), attempt.CreatedAt, attempt.UpdatedAt,
		attempt.RequestID, string(models.StatusUnpaid),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: settlement already in flight for payment request %s", storage.ErrConflict, attempt.RequestID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert settlement attempt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}
	req, err := s.GetPaymentRequest(ctx, attempt.RequestID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: payment request %s is %s", storage.ErrConflict, req.ID, req.Status)
}

// UpdateSettlementAttempt sets the outcome of an attempt.
func (s *SQLiteStore) UpdateSettlementAttempt(ctx context.Context, id string, outcome models.AttemptOutcome) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE settlement_attempts SET outcome = ?, updated_at = ? WHERE id = ?",
		string(outcome), time.Now().Unix(), id,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: another settlement attempt is in flight", storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to update settlement attempt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: settlement attempt %s", storage.ErrNotFound, id)
	}
	return nil
}

// GetSettlementAttempt retrieves an attempt by ID.
func (s *SQLiteStore) GetSettlementAttempt(ctx context.Context, id string) (*models.SettlementAttempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx,
		`SELECT `+attemptColumns+` FROM settlement_attempts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: settlement attempt %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement attempt: %w", err)
	}
	return a, nil
}

// ListSettlementAttempts retrieves all attempts for a request, oldest first.
func (s *SQLiteStore) ListSettlementAttempts(ctx context.Context, requestID string) ([]*models.SettlementAttempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM settlement_attempts WHERE request_id = ? ORDER BY created_at, id`,
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
