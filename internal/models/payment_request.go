package models

import "github.com/shopspring/decimal"

// PaymentStatus is the lifecycle state of a payment request.
type PaymentStatus string

const (
	// StatusUnpaid is the initial state. Failed settlement attempts leave a request here.
	StatusUnpaid PaymentStatus = "UNPAID"
	// StatusPaid is terminal.
	StatusPaid PaymentStatus = "PAID"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	return s == StatusUnpaid || s == StatusPaid
}

// PaymentRequest is an amount a clinic (payee) asks a patient (payer) to settle.
type PaymentRequest struct {
	// ID is the unique identifier for the request (UUID format).
	ID string

	// AmountDue is the amount in ether.
	AmountDue decimal.Decimal

	// Status is UNPAID until a settlement is recorded.
	Status PaymentStatus

	// PayerID is the party ID of the patient.
	PayerID string

	// PayeeID is the party ID of the clinic.
	PayeeID string

	Description string
	ServiceCode string
	Token       string

	// CreatedAt is the Unix timestamp when the request was created.
	CreatedAt int64

	// PaidAt is the Unix timestamp of settlement. Zero while unpaid.
	PaidAt int64

	// TransactionHash is the hash of the settling transfer. Empty while unpaid.
	TransactionHash string
}

// IsPaid reports whether the request has been settled.
func (r *PaymentRequest) IsPaid() bool {
	return r.Status == StatusPaid
}

// Consistent reports whether status, PaidAt and TransactionHash agree:
// PAID iff a hash is present iff PaidAt is set.
func (r *PaymentRequest) Consistent() bool {
	paid := r.Status == StatusPaid
	return paid == (r.TransactionHash != "") && paid == (r.PaidAt != 0)
}
