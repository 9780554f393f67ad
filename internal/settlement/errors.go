package settlement

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable error identifier.
type Kind string

const (
	KindNotFound                 Kind = "NOT_FOUND"
	KindAlreadySettled           Kind = "ALREADY_SETTLED"
	KindConflict                 Kind = "CONFLICT"
	KindNoKeyAvailable           Kind = "NO_KEY_AVAILABLE"
	KindPartyNotFound            Kind = "PARTY_NOT_FOUND"
	KindInvalidKey               Kind = "INVALID_KEY"
	KindInvalidAddress           Kind = "INVALID_ADDRESS"
	KindInvalidAmount            Kind = "INVALID_AMOUNT"
	KindInvalidArgument          Kind = "INVALID_ARGUMENT"
	KindRejected                 Kind = "REJECTED"
	KindUnavailable              Kind = "UNAVAILABLE"
	KindSettledButLedgerConflict Kind = "SETTLED_BUT_LEDGER_CONFLICT"
	KindInternal                 Kind = "INTERNAL"
)

// Error is returned by every Engine operation that fails.
type Error struct {
	Kind    Kind
	Message string
	// TxHash is set when a transaction was signed or broadcast before the failure.
	TxHash string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.TxHash != "" {
		msg += " (tx " + e.TxHash + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
