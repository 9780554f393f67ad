package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/medpay/pkg/api"
)

// RiskService implements the Connect RiskService
type RiskService struct {
	gate RiskClassifier
}

var _ api.RiskServiceHandler = (*RiskService)(nil)

func NewRiskService(gate RiskClassifier) *RiskService {
	return &RiskService{gate: gate}
}

// AssessRisk classifies a prospective payment. Scoring failures are reported
// in the assessment, not as RPC errors.
func (s *RiskService) AssessRisk(ctx context.Context, req *connect.Request[api.AssessRiskRequest]) (*connect.Response[api.AssessRiskResponse], error) {
	msg := req.Msg
	slog.Info("AssessRisk request received", "payer_id", msg.PayerID, "payer_wallet", msg.PayerWallet, "payee_id", msg.PayeeID)

	if msg.PayeeID == "" {
		return nil, invalidArgument("payeeId is required")
	}
	if !msg.Amount.IsPositive() {
		return nil, invalidArgument("amount must be positive")
	}

	switch {
	case msg.PayerID != "":
		a := s.gate.Classify(ctx, msg.PayerID, msg.PayeeID, msg.Amount)
		return connect.NewResponse(&api.AssessRiskResponse{Assessment: toAPIRisk(a)}), nil
	case msg.PayerWallet != "":
		a := s.gate.ClassifyByWallet(ctx, msg.PayerWallet, msg.PayeeID, msg.Amount)
		return connect.NewResponse(&api.AssessRiskResponse{Assessment: toAPIRisk(a)}), nil
	default:
		return nil, invalidArgument("payerId or payerWallet is required")
	}
}

// GetRiskStatus reports whether the scoring endpoint is reachable.
func (s *RiskService) GetRiskStatus(ctx context.Context, req *connect.Request[api.GetRiskStatusRequest]) (*connect.Response[api.GetRiskStatusResponse], error) {
	return connect.NewResponse(&api.GetRiskStatusResponse{Available: s.gate.IsAvailable(ctx)}), nil
}
