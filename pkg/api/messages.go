package api

import "github.com/shopspring/decimal"

// PaymentRequest is the wire form of a payment request. Amounts are decimal
// ether strings.
type PaymentRequest struct {
	ID              string          `json:"id"`
	AmountDue       decimal.Decimal `json:"amountDue"`
	Status          string          `json:"status"`
	PayerID         string          `json:"payerId"`
	PayeeID         string          `json:"payeeId"`
	Description     string          `json:"description,omitempty"`
	ServiceCode     string          `json:"serviceCode,omitempty"`
	Token           string          `json:"token,omitempty"`
	CreatedAt       int64           `json:"createdAt"`
	PaidAt          int64           `json:"paidAt,omitempty"`
	TransactionHash string          `json:"transactionHash,omitempty"`
}

// Party is a clinic or patient. The stored private key is never returned.
type Party struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	WalletAddress string `json:"walletAddress"`
	Address       string `json:"address,omitempty"`
	LicenseNumber string `json:"licenseNumber,omitempty"`
	NationalID    string `json:"nationalId,omitempty"`
	HasStoredKey  bool   `json:"hasStoredKey"`
	CreatedAt     int64  `json:"createdAt"`
}

type SettlementAttempt struct {
	ID              string `json:"id"`
	RequestID       string `json:"requestId"`
	TransactionHash string `json:"transactionHash"`
	FromAddress     string `json:"fromAddress"`
	Nonce           uint64 `json:"nonce"`
	Outcome         string `json:"outcome"`
	CreatedAt       int64  `json:"createdAt"`
	UpdatedAt       int64  `json:"updatedAt"`
}

type RiskAssessment struct {
	Success   bool    `json:"success"`
	RiskScore float64 `json:"riskScore,omitempty"`
	RiskLevel string  `json:"riskLevel,omitempty"`
	Error     string  `json:"error,omitempty"`
}

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   int64  `json:"createdAt,omitempty"`
}

type Tokens struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// PaymentService

type CreatePaymentRequestRequest struct {
	PayeeID     string          `json:"payeeId"`
	PayerWallet string          `json:"payerWallet"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	ServiceCode string          `json:"serviceCode,omitempty"`
	Token       string          `json:"token,omitempty"`
}

type CreatePaymentRequestResponse struct {
	PaymentRequest *PaymentRequest `json:"paymentRequest"`
	// Risk is advisory and absent when no risk gate is configured.
	Risk *RiskAssessment `json:"risk,omitempty"`
}

type GetPaymentRequestRequest struct {
	ID string `json:"id"`
}

type GetPaymentRequestResponse struct {
	PaymentRequest *PaymentRequest `json:"paymentRequest"`
}

type ListPaymentRequestsRequest struct {
	PayerID    string `json:"payerId,omitempty"`
	PayeeID    string `json:"payeeId,omitempty"`
	UnpaidOnly bool   `json:"unpaidOnly,omitempty"`
}

type ListPaymentRequestsResponse struct {
	PaymentRequests []*PaymentRequest `json:"paymentRequests"`
}

type SettlePaymentRequestRequest struct {
	ID string `json:"id"`
	// PrivateKey is optional; the payer's stored key is used when empty.
	PrivateKey string `json:"privateKey,omitempty"`
}

type SettlePaymentRequestResponse struct {
	TransactionHash string          `json:"transactionHash"`
	PaymentRequest  *PaymentRequest `json:"paymentRequest"`
}

type DeletePaymentRequestRequest struct {
	ID string `json:"id"`
}

type DeletePaymentRequestResponse struct{}

type GetBalanceRequest struct {
	PartyID string `json:"partyId"`
}

type GetBalanceResponse struct {
	PartyID       string          `json:"partyId"`
	WalletAddress string          `json:"walletAddress"`
	Balance       decimal.Decimal `json:"balance"`
}

type ListSettlementAttemptsRequest struct {
	RequestID string `json:"requestId"`
}

type ListSettlementAttemptsResponse struct {
	Attempts []*SettlementAttempt `json:"attempts"`
}

type ResolveSettlementAttemptRequest struct {
	AttemptID string `json:"attemptId"`
	// Outcome is ABANDONED or ACCEPTED.
	Outcome string `json:"outcome"`
}

type ResolveSettlementAttemptResponse struct {
	Attempt        *SettlementAttempt `json:"attempt"`
	PaymentRequest *PaymentRequest    `json:"paymentRequest"`
}

// PartyService

type CreatePartyRequest struct {
	Kind          string `json:"kind"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	WalletAddress string `json:"walletAddress"`
	Address       string `json:"address,omitempty"`
	LicenseNumber string `json:"licenseNumber,omitempty"`
	NationalID    string `json:"nationalId,omitempty"`
	// PrivateKey is an optional demo settlement key. It is stored, never returned.
	PrivateKey string `json:"privateKey,omitempty"`
}

type CreatePartyResponse struct {
	Party *Party `json:"party"`
}

// GetPartyRequest looks a party up by exactly one of its keys.
type GetPartyRequest struct {
	ID            string `json:"id,omitempty"`
	Email         string `json:"email,omitempty"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

type GetPartyResponse struct {
	Party *Party `json:"party"`
}

type ListPartiesRequest struct {
	Kind string `json:"kind,omitempty"`
}

type ListPartiesResponse struct {
	Parties []*Party `json:"parties"`
}

type DeletePartyRequest struct {
	ID string `json:"id"`
}

type DeletePartyResponse struct{}

// RiskService

// AssessRiskRequest identifies the payer by PayerID or, if empty, PayerWallet.
type AssessRiskRequest struct {
	PayerID     string          `json:"payerId,omitempty"`
	PayerWallet string          `json:"payerWallet,omitempty"`
	PayeeID     string          `json:"payeeId"`
	Amount      decimal.Decimal `json:"amount"`
}

type AssessRiskResponse struct {
	Assessment *RiskAssessment `json:"assessment"`
}

type GetRiskStatusRequest struct{}

type GetRiskStatusResponse struct {
	Available bool `json:"available"`
}

// AuthService

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type RegisterResponse struct {
	User   *User   `json:"user"`
	Tokens *Tokens `json:"tokens"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User   *User   `json:"user"`
	Tokens *Tokens `json:"tokens"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshTokenResponse struct {
	Tokens *Tokens `json:"tokens"`
}

type DeleteAccountRequest struct{}

type DeleteAccountResponse struct{}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}
