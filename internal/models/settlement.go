package models

// AttemptOutcome is the broadcast result of a settlement attempt.
type AttemptOutcome string

const (
	// OutcomePending is recorded before the transaction is broadcast.
	OutcomePending AttemptOutcome = "PENDING"
	// OutcomeAccepted means the node accepted the transaction.
	OutcomeAccepted AttemptOutcome = "ACCEPTED"
	// OutcomeRejected means the node refused it; nothing moved.
	OutcomeRejected AttemptOutcome = "REJECTED"
	// OutcomeUnknown means the broadcast failed in transit; the transfer may or may not exist.
	OutcomeUnknown AttemptOutcome = "UNKNOWN"
	// OutcomeAbandoned is set by an operator who verified the transfer never landed.
	OutcomeAbandoned AttemptOutcome = "ABANDONED"
)

// Blocking reports whether an attempt with this outcome prevents another
// broadcast for the same payment request.
func (o AttemptOutcome) Blocking() bool {
	switch o {
	case OutcomePending, OutcomeAccepted, OutcomeUnknown:
		return true
	}
	return false
}

// SettlementAttempt records one signed transfer submitted for a payment request.
// Attempts survive deletion of the request so that reconciliation can still find them.
type SettlementAttempt struct {
	// ID is the unique identifier for the attempt (UUID format).
	ID string

	// RequestID is the payment request being settled.
	RequestID string

	// TransactionHash is known from signing, before broadcast.
	TransactionHash string

	// FromAddress is the sender derived from the signing key.
	FromAddress string

	Nonce uint64

	Outcome AttemptOutcome

	// CreatedAt is the Unix timestamp when the attempt was claimed.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last outcome change.
	UpdatedAt int64
}
