// Package api defines the medpay.v1 Connect services: message types,
// procedure names, handler constructors and typed clients.
//
// Messages are plain Go structs carried by a JSON codec, so any Connect or
// HTTP/JSON client can call the services:
//
//	curl -X POST -H 'Content-Type: application/json' \
//	  -d '{"id":"..."}' http://localhost:8080/medpay.v1.PaymentService/GetPaymentRequest
package api

import (
	"encoding/json"
	"errors"

	"connectrpc.com/connect"
)

const (
	// ErrorKindHeader carries the machine-readable error kind on failed RPCs.
	ErrorKindHeader = "Medpay-Error-Kind"
	// TransactionHashHeader carries the hash of a transaction signed or
	// broadcast before a settlement failed.
	TransactionHashHeader = "Medpay-Transaction-Hash"
)

// Codec marshals messages as JSON. It replaces Connect's protobuf-JSON codec.
type Codec struct{}

var _ connect.Codec = Codec{}

// Name implements connect.Codec.
func (Codec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal implements connect.Codec. An empty body decodes to the zero message.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// ErrorKind returns the error kind attached to a failed RPC, or "".
func ErrorKind(err error) string {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr.Meta().Get(ErrorKindHeader)
	}
	return ""
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}
