package service

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/medpay/internal/settlement"
	"github.com/mmynk/medpay/pkg/api"
)

var kindCodes = map[settlement.Kind]connect.Code{
	settlement.KindNotFound:                 connect.CodeNotFound,
	settlement.KindPartyNotFound:            connect.CodeNotFound,
	settlement.KindAlreadySettled:           connect.CodeFailedPrecondition,
	settlement.KindNoKeyAvailable:           connect.CodeFailedPrecondition,
	settlement.KindRejected:                 connect.CodeFailedPrecondition,
	settlement.KindConflict:                 connect.CodeAborted,
	settlement.KindInvalidKey:               connect.CodeInvalidArgument,
	settlement.KindInvalidAddress:           connect.CodeInvalidArgument,
	settlement.KindInvalidAmount:            connect.CodeInvalidArgument,
	settlement.KindInvalidArgument:          connect.CodeInvalidArgument,
	settlement.KindUnavailable:              connect.CodeUnavailable,
	settlement.KindSettledButLedgerConflict: connect.CodeDataLoss,
	settlement.KindInternal:                 connect.CodeInternal,
}

// toConnectError maps an engine error to a Connect error carrying its kind
// and, when known, the transaction hash.
func toConnectError(err error) error {
	kind := settlement.KindOf(err)
	code, ok := kindCodes[kind]
	if !ok {
		code = connect.CodeInternal
	}

	var serr *settlement.Error
	if !errors.As(err, &serr) {
		serr = &settlement.Error{Kind: kind, Message: err.Error()}
	}

	connectErr := connect.NewError(code, serr)
	connectErr.Meta().Set(api.ErrorKindHeader, string(kind))
	if serr.TxHash != "" {
		connectErr.Meta().Set(api.TransactionHashHeader, serr.TxHash)
	}
	return connectErr
}

// invalidArgument builds an INVALID_ARGUMENT error for malformed requests.
func invalidArgument(format string, args ...any) error {
	return toConnectError(&settlement.Error{Kind: settlement.KindInvalidArgument, Message: fmt.Sprintf(format, args...)})
}

// kindError builds an error of the given kind without an underlying cause.
func kindError(kind settlement.Kind, format string, args ...any) error {
	return toConnectError(&settlement.Error{Kind: kind, Message: fmt.Sprintf(format, args...)})
}
