package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/medpay/internal/models"
	"github.com/mmynk/medpay/internal/storage"
)

const paymentRequestColumns = `id, amount_due, status, payer_id, payee_id, description, service_code, token,
	created_at, paid_at, transaction_hash`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaymentRequest(row rowScanner) (*models.PaymentRequest, error) {
	req := &models.PaymentRequest{}
	var status string
	var paidAt sql.NullInt64
	var txHash sql.NullString

	if err := row.Scan(&req.ID, &req.AmountDue, &status, &req.PayerID, &req.PayeeID,
		&req.Description, &req.ServiceCode, &req.Token, &req.CreatedAt, &paidAt, &txHash); err != nil {
		return nil, err
	}

	req.Status = models.PaymentStatus(status)
	if paidAt.Valid {
		req.PaidAt = paidAt.Int64
	}
	if txHash.Valid {
		req.TransactionHash = txHash.String
	}
	return req, nil
}

// CreatePaymentRequest persists a new payment request.
func (s *SQLiteStore) CreatePaymentRequest(ctx context.Context, req *models.PaymentRequest) error {
	// Generate ID if not set
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt == 0 {
		req.CreatedAt = time.Now().Unix()
	}
	if req.Status == "" {
		req.Status = models.StatusUnpaid
	}

	var paidAt, txHash any
	if req.Status == models.StatusPaid {
		paidAt, txHash = req.PaidAt, req.TransactionHash
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_requests (`+paymentRequestColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
func (s *SQLiteStore) GetPaymentRequest(ctx context.Context, id string) (*models.PaymentRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paymentRequestColumns+` FROM payment_requests WHERE id = ?`, id)

	req, err := scanPaymentRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: payment request %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment request: %w", err)
	}
	return req, nil
}

// ListPaymentRequests retrieves payment requests matching the filter, newest first.
func (s *SQLiteStore) ListPaymentRequests(ctx context.Context, filter storage.ListFilter) ([]*models.PaymentRequest, error) {
	var where []string
	var args []any
	if filter.PayerID != "" {
		where = append(where, "payer_id = ?")
		args = append(args, filter.PayerID)
	}
	if filter.PayeeID != "" {
		where = append(where, "payee_id = ?")
		args = append(args, filter.PayeeID)
	}
	if filter.UnpaidOnly {
		where = append(where, "status = ?")
		args = append(args, string(models.StatusUnpaid))
	}

	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
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

// MarkPaid transitions an UNPAID request to PAID in a single transaction.
func (s *SQLiteStore) MarkPaid(ctx context.Context, id, txHash string, paidAt int64) (*models.PaymentRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Write first so the transaction takes the write lock before it reads.
	res, err := tx.ExecContext(ctx,
		`UPDATE payment_requests SET status = ?, paid_at = ?, transaction_hash = ?
		 WHERE id = ? AND status = ?`,
		string(models.StatusPaid), paidAt, txHash, id, string(models.StatusUnpaid),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark payment request paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}

	req, err := scanPaymentRequest(tx.QueryRowContext(ctx,
		`SELECT `+paymentRequestColumns+` FROM payment_requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: payment request %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reload payment request: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: payment request %s is %s", storage.ErrConflict, id, req.Status)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return req, nil
}

// DeletePaymentRequest removes a payment request by ID. An UNPAID request
// with an in-flight settlement attempt is kept and ErrConflict returned; the
// check and the delete are one statement.
func (s *SQLiteStore) DeletePaymentRequest(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM payment_requests WHERE id = ? AND NOT (status = ? AND EXISTS (
		     SELECT 1 FROM settlement_attempts WHERE request_id = ? AND outcome IN `+inFlightOutcomes+`))`,
		id, string(models.StatusUnpaid), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete payment request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := s.GetPaymentRequest(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: payment request %s has a settlement attempt in flight", storage.ErrConflict, id)
}
