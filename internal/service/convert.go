package service

import (
	"github.com/mmynk/medpay/internal/models"
	"github.com/mmynk/medpay/pkg/api"
)

func toAPIPaymentRequest(r *models.PaymentRequest) *api.PaymentRequest {
	if r == nil {
		return nil
	}
	return &api.PaymentRequest{
		ID:              r.ID,
		AmountDue:       r.AmountDue,
		Status:          string(r.Status),
		PayerID:         r.PayerID,
		PayeeID:         r.PayeeID,
		Description:     r.Description,
		ServiceCode:     r.ServiceCode,
		Token:           r.Token,
		CreatedAt:       r.CreatedAt,
		PaidAt:          r.PaidAt,
		TransactionHash: r.TransactionHash,
	}
}

func toAPIPaymentRequests(rs []*models.PaymentRequest) []*api.PaymentRequest {
	out := make([]*api.PaymentRequest, 0, len(rs))
	for _, r := range rs {
		out = append(out, toAPIPaymentRequest(r))
	}
	return out
}

// toAPIParty drops the stored private key.
func toAPIParty(p *models.Party) *api.Party {
	return &api.Party{
		ID:            p.ID,
		Kind:          string(p.Kind),
		Name:          p.Name,
		Email:         p.Email,
		WalletAddress: p.WalletAddress,
		Address:       p.Address,
		LicenseNumber: p.LicenseNumber,
		NationalID:    p.NationalID,
		HasStoredKey:  p.HasStoredKey(),
		CreatedAt:     p.CreatedAt,
	}
}

func toAPIAttempt(a *models.SettlementAttempt) *api.SettlementAttempt {
	return &api.SettlementAttempt{
		ID:              a.ID,
		RequestID:       a.RequestID,
		TransactionHash: a.TransactionHash,
		FromAddress:     a.FromAddress,
		Nonce:           a.Nonce,
		Outcome:         string(a.Outcome),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func toAPIRisk(a models.RiskAssessment) *api.RiskAssessment {
	return &api.RiskAssessment{
		Success:   a.Success,
		RiskScore: a.RiskScore,
		RiskLevel: string(a.RiskLevel),
		Error:     a.Error,
	}
}

func toAPIUser(u *models.User) *api.User {
	return &api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}
