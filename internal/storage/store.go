// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/medpay/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a conditional write loses: the payment request
	// is no longer UNPAID, another settlement attempt is in flight, or a unique
	// value is already taken.
	ErrConflict = errors.New("conflict")
)

// ListFilter narrows ListPaymentRequests. Empty fields match everything.
type ListFilter struct {
	PayerID    string
	PayeeID    string
	UnpaidOnly bool
}

// Ledger owns payment request persistence.
type Ledger interface {
	// CreatePaymentRequest persists a new request. ID, CreatedAt and Status are
	// filled in when empty.
	CreatePaymentRequest(ctx context.Context, req *models.PaymentRequest) error

	// GetPaymentRequest returns ErrNotFound if the request does not exist.
	GetPaymentRequest(ctx context.Context, id string) (*models.PaymentRequest, error)

	// ListPaymentRequests returns matching requests, newest first.
	ListPaymentRequests(ctx context.Context, filter ListFilter) ([]*models.PaymentRequest, error)

	// MarkPaid atomically moves an UNPAID request to PAID with the given hash and
	// time. It returns ErrConflict if the request is not UNPAID and ErrNotFound if
	// it does not exist. This is the only write path for settlement.
	MarkPaid(ctx context.Context, id, txHash string, paidAt int64) (*models.PaymentRequest, error)

	// DeletePaymentRequest returns ErrNotFound if the request does not exist
	// and ErrConflict if it is UNPAID with an in-flight settlement attempt.
	// The check is atomic with the delete.
	DeletePaymentRequest(ctx context.Context, id string) error

	// RecordSettlementAttempt claims a broadcast slot for attempt.RequestID.
	// It returns ErrNotFound if the request does not exist, and ErrConflict if
	// it is PAID or another attempt for it is PENDING, ACCEPTED or UNKNOWN.
	RecordSettlementAttempt(ctx context.Context, attempt *models.SettlementAttempt) error

	// UpdateSettlementAttempt sets the outcome of an attempt.
	UpdateSettlementAttempt(ctx context.Context, id string, outcome models.AttemptOutcome) error

	// GetSettlementAttempt returns ErrNotFound if the attempt does not exist.
	GetSettlementAttempt(ctx context.Context, id string) (*models.SettlementAttempt, error)

	// ListSettlementAttempts returns attempts for a request, oldest first.
	ListSettlementAttempts(ctx context.Context, requestID string) ([]*models.SettlementAttempt, error)
}

// Parties owns clinic and patient profiles.
type Parties interface {
	// CreateParty returns ErrConflict if the email or wallet is already registered.
	CreateParty(ctx context.Context, party *models.Party) error
	GetParty(ctx context.Context, id string) (*models.Party, error)
	// GetPartyByWallet matches the wallet address case-insensitively.
	GetPartyByWallet(ctx context.Context, wallet string) (*models.Party, error)
	GetPartyByEmail(ctx context.Context, email string) (*models.Party, error)
	// ListParties lists all parties, or only those of kind when it is non-empty.
	ListParties(ctx context.Context, kind models.PartyKind) ([]*models.Party, error)
	// DeleteParty returns ErrConflict if a payment request references the party.
	DeleteParty(ctx context.Context, id string) error
}

// Users owns identity credentials.
type Users interface {
	// CreateUser returns ErrConflict if the email is already registered.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// Store is the full storage backend.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	Ledger
	Parties
	Users

	// Close releases any resources held by the store.
	Close() error
}
