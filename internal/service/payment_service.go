package service

import (
	"context"
	"log/slog"
	"strings"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/medpay/internal/models"
	"github.com/mmynk/medpay/internal/settlement"
	"github.com/mmynk/medpay/internal/storage"
	"github.com/mmynk/medpay/pkg/api"
)

// RiskClassifier is the advisory risk gate. *risk.Gate implements it.
type RiskClassifier interface {
	Classify(ctx context.Context, payerID, payeeID string, amount decimal.Decimal) models.RiskAssessment
	ClassifyByWallet(ctx context.Context, payerWallet, payeeID string, amount decimal.Decimal) models.RiskAssessment
	IsAvailable(ctx context.Context) bool
}

// PaymentService implements the Connect PaymentService
type PaymentService struct {
	engine *settlement.Engine
	risk   RiskClassifier
}

var _ api.PaymentServiceHandler = (*PaymentService)(nil)

// NewPaymentService creates a new PaymentService. risk may be nil, in which
// case created requests carry no risk assessment.
func NewPaymentService(engine *settlement.Engine, risk RiskClassifier) *PaymentService {
	return &PaymentService{engine: engine, risk: risk}
}

// CreatePaymentRequest issues a payment request from a clinic to a patient.
func (s *PaymentService) CreatePaymentRequest(ctx context.Context, req *connect.Request[api.CreatePaymentRequestRequest]) (*connect.Response[api.CreatePaymentRequestResponse], error) {
	msg := req.Msg
	slog.Info("CreatePaymentRequest request received", "payee_id", msg.PayeeID, "payer_wallet", msg.PayerWallet, "amount", msg.Amount.String())

	if msg.PayeeID == "" || strings.TrimSpace(msg.PayerWallet) == "" {
		return nil, invalidArgument("payeeId and payerWallet are required")
	}

	// Scored before insertion so the new request is not part of its own history.
	var assessment *api.RiskAssessment
	if s.risk != nil {
		a := s.risk.ClassifyByWallet(ctx, msg.PayerWallet, msg.PayeeID, msg.Amount)
		if !a.Success {
			slog.Warn("Risk assessment unavailable", "payer_wallet", msg.PayerWallet, "error", a.Error)
		}
		assessment = toAPIRisk(a)
	}

	created, err := s.engine.Create(ctx, settlement.CreateParams{
		PayeeID:     msg.PayeeID,
		PayerWallet: msg.PayerWallet,
		Amount:      msg.Amount,
		Description: msg.Description,
		ServiceCode: msg.ServiceCode,
		Token:       msg.Token,
	})
	if err != nil {
		slog.Error("CreatePaymentRequest failed", "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.CreatePaymentRequestResponse{
		PaymentRequest: toAPIPaymentRequest(created),
		Risk:           assessment,
	}), nil
}

// GetPaymentRequest returns a payment request by ID.
func (s *PaymentService) GetPaymentRequest(ctx context.Context, req *connect.Request[api.GetPaymentRequestRequest]) (*connect.Response[api.GetPaymentRequestResponse], error) {
	if req.Msg.ID == "" {
		return nil, invalidArgument("id is required")
	}
	r, err := s.engine.Get(ctx, req.Msg.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetPaymentRequestResponse{PaymentRequest: toAPIPaymentRequest(r)}), nil
}

// ListPaymentRequests lists payment requests, optionally by payer or payee
// and optionally only UNPAID ones.
func (s *PaymentService) ListPaymentRequests(ctx context.Context, req *connect.Request[api.ListPaymentRequestsRequest]) (*connect.Response[api.ListPaymentRequestsResponse], error) {
	reqs, err := s.engine.List(ctx, storage.ListFilter{
		PayerID:    req.Msg.PayerID,
		PayeeID:    req.Msg.PayeeID,
		UnpaidOnly: req.Msg.UnpaidOnly,
	})
	if err != nil {
		slog.Error("ListPaymentRequests failed", "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ListPaymentRequestsResponse{PaymentRequests: toAPIPaymentRequests(reqs)}), nil
}

// SettlePaymentRequest pays a request on chain and marks it PAID.
func (s *PaymentService) SettlePaymentRequest(ctx context.Context, req *connect.Request[api.SettlePaymentRequestRequest]) (*connect.Response[api.SettlePaymentRequestResponse], error) {
	// Never log the key itself.
	slog.Info("SettlePaymentRequest request received", "request_id", req.Msg.ID, "key_supplied", req.Msg.PrivateKey != "")

	if req.Msg.ID == "" {
		return nil, invalidArgument("id is required")
	}

	res, err := s.engine.Settle(ctx, req.Msg.ID, req.Msg.PrivateKey)
	if err != nil {
		slog.Warn("SettlePaymentRequest failed", "request_id", req.Msg.ID, "kind", settlement.KindOf(err), "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.SettlePaymentRequestResponse{
		TransactionHash: res.TransactionHash,
		PaymentRequest:  toAPIPaymentRequest(res.Request),
	}), nil
}

// DeletePaymentRequest deletes a payment request.
func (s *PaymentService) DeletePaymentRequest(ctx context.Context, req *connect.Request[api.DeletePaymentRequestRequest]) (*connect.Response[api.DeletePaymentRequestResponse], error) {
	if req.Msg.ID == "" {
		return nil, invalidArgument("id is required")
	}
	if err := s.engine.Delete(ctx, req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.DeletePaymentRequestResponse{}), nil
}

// GetBalance returns the on-chain balance of a party's wallet.
func (s *PaymentService) GetBalance(ctx context.Context, req *connect.Request[api.GetBalanceRequest]) (*connect.Response[api.GetBalanceResponse], error) {
	if req.Msg.PartyID == "" {
		return nil, invalidArgument("partyId is required")
	}
	balance, err := s.engine.Balance(ctx, req.Msg.PartyID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetBalanceResponse{
		PartyID:       req.Msg.PartyID,
		WalletAddress: balance.WalletAddress,
		Balance:       balance.Balance,
	}), nil
}

// ListSettlementAttempts returns the settlement attempt journal of a request.
func (s *PaymentService) ListSettlementAttempts(ctx context.Context, req *connect.Request[api.ListSettlementAttemptsRequest]) (*connect.Response[api.ListSettlementAttemptsResponse], error) {
	if req.Msg.RequestID == "" {
		return nil, invalidArgument("requestId is required")
	}
	attempts, err := s.engine.Attempts(ctx, req.Msg.RequestID)
	if err != nil {
		return nil, toConnectError(err)
	}
	out := make([]*api.SettlementAttempt, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, toAPIAttempt(a))
	}
	return connect.NewResponse(&api.ListSettlementAttemptsResponse{Attempts: out}), nil
}

// ResolveSettlementAttempt records an operator's reconciliation verdict.
func (s *PaymentService) ResolveSettlementAttempt(ctx context.Context, req *connect.Request[api.ResolveSettlementAttemptRequest]) (*connect.Response[api.ResolveSettlementAttemptResponse], error) {
	slog.Info("ResolveSettlementAttempt request received", "attempt_id", req.Msg.AttemptID, "outcome", req.Msg.Outcome)

	if req.Msg.AttemptID == "" {
		return nil, invalidArgument("attemptId is required")
	}
	outcome := models.AttemptOutcome(strings.ToUpper(req.Msg.Outcome))

	attempt, paymentRequest, err := s.engine.ResolveAttempt(ctx, req.Msg.AttemptID, outcome)
	if err != nil {
		slog.Error("ResolveSettlementAttempt failed", "attempt_id", req.Msg.AttemptID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.ResolveSettlementAttemptResponse{
		Attempt:        toAPIAttempt(attempt),
		PaymentRequest: toAPIPaymentRequest(paymentRequest),
	}), nil
}
