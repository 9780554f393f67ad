// Package risk computes an advisory payment default risk classification by
// sending ledger statistics to an external scoring endpoint.
//
// Classification never blocks settlement and never fails with a Go error:
// every failure is reported as an assessment with Success=false.
package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/medpay/internal/models"
	"github.com/mmynk/medpay/internal/storage"
)

const (
	DefaultURL     = "http://localhost:5001"
	DefaultTimeout = 3 * time.Second

	// neutralScore is returned for payers with no history.
	neutralScore = 0.5
)

// Store is the ledger access the gate needs.
type Store interface {
	ListPaymentRequests(ctx context.Context, filter storage.ListFilter) ([]*models.PaymentRequest, error)
	GetParty(ctx context.Context, id string) (*models.Party, error)
	GetPartyByWallet(ctx context.Context, wallet string) (*models.Party, error)
}

// Config configures the scoring endpoint client.
type Config struct {
	// URL is the base URL of the scoring service.
	URL     string
	Timeout time.Duration
	// HTTPClient overrides the default client (optional).
	HTTPClient *http.Client
}

// Gate classifies payments. Safe for concurrent use.
type Gate struct {
	url        string
	httpClient *http.Client
	store      Store
	now        func() time.Time
}

// New creates a Gate.
func New(cfg Config, store Store) *Gate {
	url := strings.TrimRight(cfg.URL, "/")
	if url == "" {
		url = DefaultURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Gate{url: url, httpClient: httpClient, store: store, now: time.Now}
}

// Features is the request body of POST /predict.
type Features struct {
	PaymentAmount           float64 `json:"payment_amount"`
	PaymentHour             int     `json:"payment_hour"`
	PaymentWeekday          int     `json:"payment_weekday"`
	PaymentMonth            int     `json:"payment_month"`
	PatientTotalPayments    int     `json:"patient_total_payments"`
	PatientFailedPayments   int     `json:"patient_failed_payments"`
	PatientAvgPaymentAmount float64 `json:"patient_avg_payment_amount"`
	ClinicDefaultRate       float64 `json:"clinic_default_rate"`
	PaymentFailedBefore     int     `json:"payment_failed_before"`
}

type prediction struct {
	Success   bool     `json:"success"`
	RiskScore *float64 `json:"risk_score"`
	RiskLevel string   `json:"risk_level"`
	Error     string   `json:"error"`
}

// Neutral is the assessment for a payer without history.
func Neutral() models.RiskAssessment {
	return models.RiskAssessment{Success: true, RiskScore: neutralScore, RiskLevel: models.RiskMedium}
}

func failed(format string, args ...any) models.RiskAssessment {
	return models.RiskAssessment{Error: fmt.Sprintf(format, args...)}
}

// Classify scores a prospective payment of amount from payerID to payeeID.
func (g *Gate) Classify(ctx context.Context, payerID, payeeID string, amount decimal.Decimal) models.RiskAssessment {
	history, err := g.store.ListPaymentRequests(ctx, storage.ListFilter{PayerID: payerID})
	if err != nil {
		slog.Warn("Risk classification failed to read payer history", "payer_id", payerID, "error", err)
		return failed("failed to read payer history")
	}
	if len(history) == 0 {
		return Neutral()
	}

	if _, err := g.store.GetParty(ctx, payeeID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return failed("clinic not found")
		}
		return failed("failed to read clinic")
	}
	payeeRequests, err := g.store.ListPaymentRequests(ctx, storage.ListFilter{PayeeID: payeeID})
	if err != nil {
		slog.Warn("Risk classification failed to read payee history", "payee_id", payeeID, "error", err)
		return failed("failed to read clinic history")
	}

	features := BuildFeatures(amount, g.now(), history, payeeRequests)
	return g.predict(ctx, features)
}

// ClassifyByWallet is Classify with the payer resolved by wallet address.
// An unknown wallet is a new payer and gets the neutral assessment.
func (g *Gate) ClassifyByWallet(ctx context.Context, payerWallet, payeeID string, amount decimal.Decimal) models.RiskAssessment {
	payer, err := g.store.GetPartyByWallet(ctx, strings.TrimSpace(payerWallet))
	if errors.Is(err, storage.ErrNotFound) {
		return Neutral()
	}
	if err != nil {
		slog.Warn("Risk classification failed to resolve wallet", "wallet", payerWallet, "error", err)
		return failed("failed to resolve payer wallet")
	}
	return g.Classify(ctx, payer.ID, payeeID, amount)
}

// BuildFeatures derives the model input from payer and payee history.
// UNPAID requests count as failed payments.
func BuildFeatures(amount decimal.Decimal, at time.Time, payerHistory, payeeHistory []*models.PaymentRequest) Features {
	f := Features{
		PaymentAmount:        amount.InexactFloat64(),
		PaymentHour:          at.Hour(),
		PaymentWeekday:       int(at.Weekday()),
		PaymentMonth:         int(at.Month()),
		PatientTotalPayments: len(payerHistory),
	}

	total := decimal.Zero
	for _, r := range payerHistory {
		total = total.Add(r.AmountDue)
		if !r.IsPaid() {
			f.PatientFailedPayments++
		}
	}
	if len(payerHistory) > 0 {
		f.PatientAvgPaymentAmount = total.Div(decimal.NewFromInt(int64(len(payerHistory)))).InexactFloat64()
	}
	if f.PatientFailedPayments > 0 {
		f.PaymentFailedBefore = 1
	}

	if len(payeeHistory) > 0 {
		unpaid := 0
		for _, r := range payeeHistory {
			if !r.IsPaid() {
				unpaid++
			}
		}
		f.ClinicDefaultRate = float64(unpaid) / float64(len(payeeHistory))
	}
	return f
}

func (g *Gate) predict(ctx context.Context, features Features) models.RiskAssessment {
	body, err := json.Marshal(features)
	if err != nil {
		return failed("failed to encode features: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url+"/predict", bytes.NewReader(body))
	if err != nil {
		return failed("failed to create predict request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		slog.Warn("Risk service unreachable", "url", g.url, "error", err)
		return failed("failed to get risk prediction: %v", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return failed("failed to read risk response: %v", err)
	}

	var p prediction
	if err := json.Unmarshal(responseBody, &p); err != nil {
		if resp.StatusCode != http.StatusOK {
			return failed("risk service returned status %d", resp.StatusCode)
		}
		return failed("malformed risk response")
	}
	if !p.Success {
		if p.Error == "" {
			p.Error = fmt.Sprintf("risk service returned status %d", resp.StatusCode)
		}
		return failed("%s", p.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return failed("risk service returned status %d", resp.StatusCode)
	}
	if p.RiskScore == nil || *p.RiskScore < 0 || *p.RiskScore > 1 {
		return failed("malformed risk response: risk_score out of range")
	}

	level := models.RiskLevel(strings.ToUpper(p.RiskLevel))
	switch level {
	case models.RiskLow, models.RiskMedium, models.RiskHigh:
	default:
		return failed("malformed risk response: unknown risk_level %q", p.RiskLevel)
	}

	return models.RiskAssessment{Success: true, RiskScore: *p.RiskScore, RiskLevel: level}
}

// IsAvailable checks GET /health.
func (g *Gate) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}
