package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmynk/medpay/internal/models"
	"github.com/mmynk/medpay/internal/storage"
)

const paymentRequestColumns = `id, amount_due::text, status, payer_id, payee_id, description, service_code, token,
	created_at, paid_at, transaction_hash`

func scanPaymentRequest(row pgx.Row) (*models.PaymentRequest, error) {
	req := &models.PaymentRequest{}
	var amount, status string
	var paidAt *int64
	var txHash *string

	if err := row.Scan(&req.ID, &amount, &status, &req.PayerID, &req.PayeeID,
		&req.Description, &req.ServiceCode, &req.Token, &req.CreatedAt, &paidAt, &txHash); err != nil {
		return nil, err
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	req.AmountDue = d
	req.Status = models.PaymentStatus(status)
	if paidAt != nil {
		req.PaidAt = *paidAt
	}
	if txHash != nil {
		req.TransactionHash = *txHash
	}
	return req, nil
}

// CreatePaymentRequest persists a new payment request.
func (s *Store) CreatePaymentRequest(ctx context.Context, req *models.PaymentRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt == 0 {
		req.CreatedAt = time.Now().Unix()
	}
	if req.Status == "" {
		req.Status = models.StatusUnpaid
	}

	var paidAt *int64
	var txHash *string
	if req.Status == models.StatusPaid {
		paidAt, txHash = &req.PaidAt, &req.TransactionHash
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO payment_requests (id, amount_due, status, payer_id, payee_id, description, service_code,
		     token, created_at, paid_at, transaction_hash)
		 VALUES ($1, $2::numeric, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		req.ID, req.AmountDue.String(), string(req.Status), req.PayerID, req.PayeeID,
		req.Description, req.ServiceCode, req.Token, req.CreatedAt, paidAt, txHash,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: payment request %s already exists", storage.ErrConflict, req.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment request: %w", err)
	}
	return nil
}

// GetPaymentRequest retrieves a payment request by ID.
func (s *Store) GetPaymentRequest(ctx context.Context, id string) (*models.PaymentRequest, error) {
	req, err := scanPaymentRequest(s.pool.QueryRow(ctx,
		`SELECT `+paymentRequestColumns+` FROM payment_requests WHERE id = $1`, id))
	if nf := notFound(err, "payment request "+id); nf != nil {
		return nil, nf
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment request: %w", err)
	}
	return req, nil
}

// ListPaymentRequests retrieves payment requests matching the filter, newest first.
func (s *Store) ListPaymentRequests(ctx context.Context, filter storage.ListFilter) ([]*models.PaymentRequest, error) {
	var where []string
	var args []any
	if filter.PayerID != "" {
		args = append(args, filter.PayerID)
		where = append(where, fmt.Sprintf("payer_id = $%d", len(args)))
	}
	if filter.PayeeID != "" {
		args = append(args, filter.PayeeID)
		where = append(where, fmt.Sprintf("payee_id = $%d", len(args)))
	}
	if filter.UnpaidOnly {
		args = append(args, string(models.StatusUnpaid))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.PaymentRequest
	for rows.Next() {
		req, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment requests: %w", err)
	}
	return requests, nil
}

// MarkPaid locks the row (SELECT FOR UPDATE), checks it is UNPAID and sets the
// settlement fields in the same transaction. Concurrent callers on the same id
// queue on the row lock and observe PAID once the winner commits.
func (s *Store) MarkPaid(ctx context.Context, id, txHash string, paidAt int64) (*models.PaymentRequest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := scanPaymentRequest(tx.QueryRow(ctx,
		`SELECT `+paymentRequestColumns+` FROM payment_requests WHERE id = $1 FOR UPDATE`, id))
	if nf := notFound(err, "payment request "+id); nf != nil {
		return nil, nf
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock payment request: %w", err)
	}
	if req.Status != models.StatusUnpaid {
		return nil, fmt.Errorf("%w: payment request %s is %s", storage.ErrConflict, id, req.Status)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE payment_requests SET status = $1, paid_at = $2, transaction_hash = $3 WHERE id = $4`,
		string(models.StatusPaid), paidAt, txHash, id,
	); err != nil {
		return nil, fmt.Errorf("failed to mark payment request paid: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	req.Status = models.StatusPaid
	req.PaidAt = paidAt
	req.TransactionHash = txHash
	return req, nil
}

// DeletePaymentRequest removes a payment request by ID. It takes the same row
// lock as RecordSettlementAttempt, so an UNPAID request cannot gain an
// in-flight attempt between the check and the delete.
func (s *Store) DeletePaymentRequest(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockPaymentRequest(ctx, tx, id)
	if err != nil {
		return err
	}
	if status == models.StatusUnpaid {
		var inFlight bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM settlement_attempts WHERE request_id = $1 AND outcome IN `+inFlightOutcomes+`)`,
			id,
		).Scan(&inFlight); err != nil {
			return fmt.Errorf("failed to check settlement attempts: %w", err)
		}
		if inFlight {
			return fmt.Errorf("%w: payment request %s has a settlement attempt in flight", storage.ErrConflict, id)
		}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM payment_requests WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete payment request: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// lockPaymentRequest takes the row lock on a payment request and returns its status.
func lockPaymentRequest(ctx context.Context, tx pgx.Tx, id string) (models.PaymentStatus, error) {
	var status string
	err := tx.QueryRow(ctx, "SELECT status FROM payment_requests WHERE id = $1 FOR UPDATE", id).Scan(&status)
	if nf := notFound(err, "payment request "+id); nf != nil {
		return "", nf
	}
	if err != nil {
		return "", fmt.Errorf("failed to lock payment request: %w", err)
	}
	return models.PaymentStatus(status), nil
}
