// Package settlement implements the payment request lifecycle: creation,
// lookup and the UNPAID -> PAID transition backed by an on-chain ether transfer.
//
// The only synchronization between concurrent settlements is in storage: an
// in-flight attempt claim taken before broadcast, and a conditional MarkPaid
// after it. The transfer is broadcast before the ledger is updated, so a
// failure in between leaves money moved and the record UNPAID; that case is
// reported as KindSettledButLedgerConflict and kept in the attempt journal for
// an operator to resolve.
package settlement

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/mmynk/medpay/internal/chain"
	"github.com/mmynk/medpay/internal/models"
	"github.com/mmynk/medpay/internal/storage"
	"github.com/mmynk/medpay/internal/wallet"
)

// Store is the persistence the engine needs.
type Store interface {
	storage.Ledger
	storage.Parties
}

// Chain is the node access the engine needs. *chain.Gateway implements it.
type Chain interface {
	NextNonce(ctx context.Context, address common.Address) (uint64, error)
	Broadcast(ctx context.Context, raw []byte) (string, error)
	Balance(ctx context.Context, address common.Address) (decimal.Decimal, error)
	GasPrice() *big.Int
	GasLimit() uint64
}

var _ Chain = (*chain.Gateway)(nil)

// Engine runs payment request operations. Safe for concurrent use; it keeps
// no per-request state between calls.
type Engine struct {
	store   Store
	signer  *wallet.Signer
	chain   Chain
	now     func() time.Time
	metrics *engineMetrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for createdAt and paidAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine.
func NewEngine(store Store, signer *wallet.Signer, gateway Chain, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		signer:  signer,
		chain:   gateway,
		now:     time.Now,
		metrics: defaultMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateParams describes a new payment request.
type CreateParams struct {
	PayeeID     string
	PayerWallet string
	Amount      decimal.Decimal
	Description string
	ServiceCode string
	Token       string
}

// Create issues a payment request from the clinic PayeeID to the patient
// owning PayerWallet.
func (e *Engine) Create(ctx context.Context, p CreateParams) (*models.PaymentRequest, error) {
	if _, err := wallet.EtherToWei(p.Amount); err != nil {
		return nil, newError(KindInvalidAmount, nil, "amount %s must be positive with at most 18 decimals", p.Amount)
	}

	payee, err := e.store.GetParty(ctx, p.PayeeID)
	if err != nil {
		return nil, partyError(err, "payee %s", p.PayeeID)
	}
	if payee.Kind != models.KindClinic {
		return nil, newError(KindPartyNotFound, nil, "payee %s is not a clinic", p.PayeeID)
	}

	payer, err := e.store.GetPartyByWallet(ctx, strings.TrimSpace(p.PayerWallet))
	if err != nil {
		return nil, partyError(err, "payer with wallet %s", p.PayerWallet)
	}
	if payer.Kind != models.KindPatient {
		return nil, newError(KindPartyNotFound, nil, "wallet %s does not belong to a patient", p.PayerWallet)
	}

	req := &models.PaymentRequest{
		AmountDue:   p.Amount,
		Status:      models.StatusUnpaid,
		PayerID:     payer.ID,
		PayeeID:     payee.ID,
		Description: p.Description,
		ServiceCode: p.ServiceCode,
		Token:       p.Token,
		CreatedAt:   e.now().Unix(),
	}
	if err := e.store.CreatePaymentRequest(ctx, req); err != nil {
		return nil, storeError(err, "create payment request")
	}

	slog.Info("Payment request created", "request_id", req.ID, "payer_id", req.PayerID, "payee_id", req.PayeeID, "amount", req.AmountDue.String())
	return req, nil
}

// Get returns a payment request.
func (e *Engine) Get(ctx context.Context, id string) (*models.PaymentRequest, error) {
	req, err := e.store.GetPaymentRequest(ctx, id)
	if err != nil {
		return nil, storeError(err, "payment request %s", id)
	}
	return req, nil
}

// List returns payment requests matching filter, newest first.
func (e *Engine) List(ctx context.Context, filter storage.ListFilter) ([]*models.PaymentRequest, error) {
	reqs, err := e.store.ListPaymentRequests(ctx, filter)
	if err != nil {
		return nil, storeError(err, "list payment requests")
	}
	return reqs, nil
}

// Delete removes a payment request. Requests with an in-flight settlement
// attempt cannot be deleted; storage enforces this in the same statement as
// the delete.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.store.DeletePaymentRequest(ctx, id); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return newError(KindConflict, nil, "payment request %s has a settlement attempt in flight", id)
		}
		return storeError(err, "payment request %s", id)
	}
	slog.Info("Payment request deleted", "request_id", id)
	return nil
}

// SettleResult is a successful settlement.
type SettleResult struct {
	TransactionHash string
	Request         *models.PaymentRequest
}

// Settle transfers the amount due from the payer to the payee and marks the
// request PAID. privateKey may be empty, in which case the payer's stored key
// is used.
func (e *Engine) Settle(ctx context.Context, requestID, privateKey string) (*SettleResult, error) {
	start := e.now()
	res, err := e.settle(ctx, requestID, privateKey)

	kind := "OK"
	if err != nil {
		kind = string(KindOf(err))
	}
	e.metrics.settlements.WithLabelValues(kind).Inc()
	e.metrics.duration.Observe(e.now().Sub(start).Seconds())
	return res, err
}

func (e *Engine) settle(ctx context.Context, requestID, privateKey string) (*SettleResult, error) {
	req, err := e.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.IsPaid() {
		return nil, &Error{Kind: KindAlreadySettled, Message: "payment request " + requestID + " is already paid", TxHash: req.TransactionHash}
	}

	key, err := e.signingKey(ctx, req, privateKey)
	if err != nil {
		return nil, err
	}

	payee, err := e.store.GetParty(ctx, req.PayeeID)
	if err != nil {
		return nil, partyError(err, "payee %s", req.PayeeID)
	}

	value, err := wallet.EtherToWei(req.AmountDue)
	if err != nil {
		return nil, newError(KindInvalidAmount, err, "amount due %s", req.AmountDue)
	}

	from, err := wallet.Address(key)
	if err != nil {
		return nil, newError(KindInvalidKey, nil, "private key is not a valid secp256k1 key")
	}

	nonce, err := e.chain.NextNonce(ctx, from)
	if err != nil {
		return nil, newError(KindUnavailable, err, "get nonce for %s", from.Hex())
	}

	signed, err := e.signer.Sign(key, wallet.TransferIntent{
		To:       payee.WalletAddress,
		Value:    value,
		Nonce:    nonce,
		GasPrice: e.chain.GasPrice(),
		GasLimit: e.chain.GasLimit(),
	})
	if err != nil {
		return nil, signError(err, payee)
	}

	attempt := &models.SettlementAttempt{
		RequestID:       req.ID,
		TransactionHash: signed.Hash,
		FromAddress:     from.Hex(),
		Nonce:           nonce,
		Outcome:         models.OutcomePending,
		CreatedAt:       e.now().Unix(),
	}
	if err := e.store.RecordSettlementAttempt(ctx, attempt); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, newError(KindConflict, nil, "payment request %s is already paid or has a settlement in flight", req.ID)
		}
		return nil, storeError(err, "record settlement attempt for %s", req.ID)
	}

	// From here on the transfer may reach the chain; bookkeeping must not be
	// abandoned because the caller went away.
	bg := context.WithoutCancel(ctx)

	hash, err := e.chain.Broadcast(ctx, signed.Raw)
	if err != nil {
		return nil, e.broadcastFailed(bg, attempt, err)
	}

	if err := e.store.UpdateSettlementAttempt(bg, attempt.ID, models.OutcomeAccepted); err != nil {
		slog.Warn("Failed to mark settlement attempt accepted", "attempt_id", attempt.ID, "request_id", req.ID, "error", err)
	}

	paid, err := e.store.MarkPaid(bg, req.ID, hash, e.now().Unix())
	if err != nil {
		e.metrics.ledgerConflict.Inc()
		slog.Error("Transfer broadcast but ledger update failed",
			"request_id", req.ID,
			"attempt_id", attempt.ID,
			"tx_hash", hash,
			"error", err,
		)
		return nil, &Error{
			Kind:    KindSettledButLedgerConflict,
			Message: "transfer broadcast but payment request " + req.ID + " could not be marked paid",
			TxHash:  hash,
			Err:     err,
		}
	}

	slog.Info("Payment request settled", "request_id", req.ID, "tx_hash", hash, "from", from.Hex(), "nonce", nonce)
	return &SettleResult{TransactionHash: hash, Request: paid}, nil
}

// signingKey picks the supplied key or falls back to the payer's stored one.
func (e *Engine) signingKey(ctx context.Context, req *models.PaymentRequest, supplied string) (string, error) {
	if strings.TrimSpace(supplied) != "" {
		return supplied, nil
	}
	payer, err := e.store.GetParty(ctx, req.PayerID)
	if err != nil {
		return "", partyError(err, "payer %s", req.PayerID)
	}
	if !payer.HasStoredKey() {
		return "", newError(KindNoKeyAvailable, nil, "no private key supplied and payer %s has none stored", payer.ID)
	}
	return payer.PrivateKey, nil
}

// broadcastFailed records the attempt outcome and converts err.
// A rejection or a transfer that never left the gateway releases the claim;
// an unknown outcome keeps it.
func (e *Engine) broadcastFailed(ctx context.Context, attempt *models.SettlementAttempt, err error) error {
	var rejected *chain.RejectedError
	outcome := models.OutcomeUnknown
	switch {
	case errors.As(err, &rejected):
		outcome = models.OutcomeRejected
	case errors.Is(err, chain.ErrNotSent):
		outcome = models.OutcomeAbandoned
	}

	if uerr := e.store.UpdateSettlementAttempt(ctx, attempt.ID, outcome); uerr != nil {
		slog.Error("Failed to record settlement attempt outcome",
			"attempt_id", attempt.ID, "request_id", attempt.RequestID, "outcome", outcome, "error", uerr)
	}

	switch outcome {
	case models.OutcomeRejected:
		slog.Warn("Settlement rejected by chain", "request_id", attempt.RequestID, "reason", rejected.Reason)
		return &Error{Kind: KindRejected, Message: rejected.Reason, TxHash: attempt.TransactionHash, Err: err}
	case models.OutcomeAbandoned:
		slog.Warn("Settlement transfer not sent", "request_id", attempt.RequestID, "attempt_id", attempt.ID, "error", err)
		return &Error{
			Kind:    KindUnavailable,
			Message: "transfer not sent to chain node; retry later",
			Err:     err,
		}
	}

	slog.Error("Settlement broadcast outcome unknown",
		"request_id", attempt.RequestID, "attempt_id", attempt.ID, "tx_hash", attempt.TransactionHash, "error", err)
	return &Error{
		Kind:    KindUnavailable,
		Message: "broadcast outcome unknown; resolve attempt " + attempt.ID + " before retrying",
		TxHash:  attempt.TransactionHash,
		Err:     err,
	}
}

// PartyBalance is a party's wallet and its on-chain balance.
type PartyBalance struct {
	WalletAddress string
	Balance       decimal.Decimal // ether
}

// Balance returns the on-chain balance of a party's wallet.
func (e *Engine) Balance(ctx context.Context, partyID string) (*PartyBalance, error) {
	party, err := e.store.GetParty(ctx, partyID)
	if err != nil {
		return nil, partyError(err, "party %s", partyID)
	}
	if !wallet.ValidAddress(party.WalletAddress) {
		return nil, newError(KindInvalidAddress, nil, "party %s wallet %q is not a valid address", partyID, party.WalletAddress)
	}
	balance, err := e.chain.Balance(ctx, common.HexToAddress(party.WalletAddress))
	if err != nil {
		return nil, newError(KindUnavailable, err, "get balance for party %s", partyID)
	}
	return &PartyBalance{WalletAddress: party.WalletAddress, Balance: balance}, nil
}

// Attempts returns the settlement attempt journal of a payment request.
func (e *Engine) Attempts(ctx context.Context, requestID string) ([]*models.SettlementAttempt, error) {
	attempts, err := e.store.ListSettlementAttempts(ctx, requestID)
	if err != nil {
		return nil, storeError(err, "list settlement attempts")
	}
	return attempts, nil
}

// ResolveAttempt records an operator's verdict on an in-flight attempt.
// ABANDONED releases the request for another settlement. ACCEPTED marks the
// request PAID with the attempt's transaction hash. An ACCEPTED attempt whose
// request is still UNPAID (the ledger update failed after broadcast) can only
// be resolved ACCEPTED.
func (e *Engine) ResolveAttempt(ctx context.Context, attemptID string, outcome models.AttemptOutcome) (*models.SettlementAttempt, *models.PaymentRequest, error) {
	if outcome != models.OutcomeAbandoned && outcome != models.OutcomeAccepted {
		return nil, nil, newError(KindInvalidArgument, nil, "outcome must be %s or %s, got %q", models.OutcomeAbandoned, models.OutcomeAccepted, outcome)
	}

	attempt, err := e.store.GetSettlementAttempt(ctx, attemptID)
	if err != nil {
		return nil, nil, storeError(err, "settlement attempt %s", attemptID)
	}
	if !attempt.Outcome.Blocking() {
		return nil, nil, newError(KindConflict, nil, "settlement attempt %s is already %s", attemptID, attempt.Outcome)
	}

	req, err := e.Get(ctx, attempt.RequestID)
	if err != nil {
		return nil, nil, err
	}
	if attempt.Outcome == models.OutcomeAccepted && (outcome != models.OutcomeAccepted || req.IsPaid()) {
		return nil, nil, newError(KindConflict, nil, "settlement attempt %s is already %s", attemptID, attempt.Outcome)
	}

	if outcome == models.OutcomeAccepted {
		req, err = e.store.MarkPaid(ctx, attempt.RequestID, attempt.TransactionHash, e.now().Unix())
		if err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return nil, nil, newError(KindConflict, nil, "payment request %s is already paid", attempt.RequestID)
			}
			return nil, nil, storeError(err, "mark payment request %s paid", attempt.RequestID)
		}
	}

	if err := e.store.UpdateSettlementAttempt(ctx, attempt.ID, outcome); err != nil {
		return nil, nil, storeError(err, "update settlement attempt %s", attempt.ID)
	}
	attempt.Outcome = outcome
	attempt.UpdatedAt = e.now().Unix()

	slog.Info("Settlement attempt resolved", "attempt_id", attempt.ID, "request_id", attempt.RequestID, "outcome", outcome)
	return attempt, req, nil
}

func storeError(err error, format string, args ...any) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return newError(KindNotFound, err, format, args...)
	case errors.Is(err, storage.ErrConflict):
		return newError(KindConflict, err, format, args...)
	default:
		return newError(KindInternal, err, format, args...)
	}
}

func partyError(err error, format string, args ...any) error {
	if errors.Is(err, storage.ErrNotFound) {
		return newError(KindPartyNotFound, nil, format+" not found", args...)
	}
	return newError(KindInternal, err, format, args...)
}

func signError(err error, payee *models.Party) error {
	switch {
	case errors.Is(err, wallet.ErrInvalidKey):
		return newError(KindInvalidKey, nil, "private key is not a valid secp256k1 key")
	case errors.Is(err, wallet.ErrInvalidAddress):
		return newError(KindInvalidAddress, nil, "payee %s wallet %q is not a valid address", payee.ID, payee.WalletAddress)
	case errors.Is(err, wallet.ErrInvalidAmount):
		return newError(KindInvalidAmount, err, "transfer amount")
	default:
		return newError(KindInternal, err, "sign transfer")
	}
}
