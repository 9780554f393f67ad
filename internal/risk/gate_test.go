package risk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/medpay/internal/models"
	"github.com/mmynk/medpay/internal/storage"
)

type memStore struct {
	parties  map[string]*models.Party
	requests []*models.PaymentRequest
}

func (m *memStore) ListPaymentRequests(_ context.Context, f storage.ListFilter) ([]*models.PaymentRequest, error) {
	var out []*models.PaymentRequest
	for _, r := range m.requests {
		if f.PayerID != "" && r.PayerID != f.PayerID {
			continue
		}
		if f.PayeeID != "" && r.PayeeID != f.PayeeID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) GetParty(_ context.Context, id string) (*models.Party, error) {
	if p, ok := m.parties[id]; ok {
		return p, nil
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) GetPartyByWallet(_ context.Context, wallet string) (*models.Party, error) {
	for _, p := range m.parties {
		if strings.EqualFold(p.WalletAddress, wallet) {
			return p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func request(payer, payee, amount string, paid bool) *models.PaymentRequest {
	r := &models.PaymentRequest{PayerID: payer, PayeeID: payee, AmountDue: decimal.RequireFromString(amount), Status: models.StatusUnpaid}
	if paid {
		r.Status = models.StatusPaid
		r.TransactionHash = "0x01"
		r.PaidAt = 1
	}
	return r
}

func newStore() *memStore {
	return &memStore{
		parties: map[string]*models.Party{
			"clinic":  {ID: "clinic", Kind: models.KindClinic, WalletAddress: "0xclinic"},
			"patient": {ID: "patient", Kind: models.KindPatient, WalletAddress: "0xPatient123"},
			"fresh":   {ID: "fresh", Kind: models.KindPatient, WalletAddress: "0xFresh"},
		},
		requests: []*models.PaymentRequest{
			request("patient", "clinic", "100", true),
			request("patient", "clinic", "50", false),
			request("other", "clinic", "10", false),
			request("other", "clinic", "10", true),
		},
	}
}

// scoringServer records the features it receives and answers with reply.
func scoringServer(t *testing.T, status int, reply string, calls *atomic.Int32, got *Features) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		case "/predict":
			calls.Add(1)
			require.Equal(t, http.MethodPost, r.Method)
			if got != nil {
				require.NoError(t, json.NewDecoder(r.Body).Decode(got))
			}
			w.WriteHeader(status)
			_, _ = w.Write([]byte(reply))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestBuildFeatures(t *testing.T) {
	store := newStore()
	payer, _ := store.ListPaymentRequests(context.Background(), storage.ListFilter{PayerID: "patient"})
	payee, _ := store.ListPaymentRequests(context.Background(), storage.ListFilter{PayeeID: "clinic"})

	// Sunday 2024-03-10 14:30 UTC
	at := time.Date(2024, time.March, 10, 14, 30, 0, 0, time.UTC)
	f := BuildFeatures(decimal.RequireFromString("25.5"), at, payer, payee)

	require.Equal(t, 25.5, f.PaymentAmount)
	require.Equal(t, 14, f.PaymentHour)
	require.Equal(t, 0, f.PaymentWeekday)
	require.Equal(t, 3, f.PaymentMonth)
	require.Equal(t, 2, f.PatientTotalPayments)
	require.Equal(t, 1, f.PatientFailedPayments)
	require.Equal(t, 75.0, f.PatientAvgPaymentAmount)
	require.Equal(t, 0.5, f.ClinicDefaultRate)
	require.Equal(t, 1, f.PaymentFailedBefore)
}

func TestClassify(t *testing.T) {
	var calls atomic.Int32
	var got Features
	srv := scoringServer(t, http.StatusOK, `{"success":true,"risk_score":0.82,"risk_level":"HIGH"}`, &calls, &got)
	defer srv.Close()

	gate := New(Config{URL: srv.URL}, newStore())
	a := gate.Classify(context.Background(), "patient", "clinic", decimal.NewFromInt(40))

	require.True(t, a.Success, a.Error)
	require.Equal(t, 0.82, a.RiskScore)
	require.Equal(t, models.RiskHigh, a.RiskLevel)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, 40.0, got.PaymentAmount)
	require.Equal(t, 2, got.PatientTotalPayments)
}

func TestClassifyNewPayerIsNeutral(t *testing.T) {
	var calls atomic.Int32
	srv := scoringServer(t, http.StatusOK, `{"success":true,"risk_score":0.9,"risk_level":"HIGH"}`, &calls, nil)
	defer srv.Close()

	gate := New(Config{URL: srv.URL}, newStore())

	a := gate.Classify(context.Background(), "fresh", "clinic", decimal.NewFromInt(10))
	require.Equal(t, Neutral(), a)

	a = gate.ClassifyByWallet(context.Background(), "0xunknown", "clinic", decimal.NewFromInt(10))
	require.Equal(t, 0.5, a.RiskScore)
	require.Equal(t, models.RiskMedium, a.RiskLevel)

	require.Zero(t, calls.Load(), "scoring endpoint must not be called for new payers")
}

func TestClassifyByWallet(t *testing.T) {
	var calls atomic.Int32
	srv := scoringServer(t, http.StatusOK, `{"success":true,"risk_score":0.1,"risk_level":"low"}`, &calls, nil)
	defer srv.Close()

	gate := New(Config{URL: srv.URL}, newStore())
	a := gate.ClassifyByWallet(context.Background(), "0xpatient123", "clinic", decimal.NewFromInt(10))
	require.True(t, a.Success, a.Error)
	require.Equal(t, models.RiskLow, a.RiskLevel)
	require.Equal(t, int32(1), calls.Load())
}

func TestClassifyFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reply  string
		want   string
	}{
		{"service error", http.StatusOK, `{"success":false,"error":"model not loaded"}`, "model not loaded"},
		{"server error", http.StatusInternalServerError, `oops`, "status 500"},
		{"malformed", http.StatusOK, `not json`, "malformed"},
		{"score out of range", http.StatusOK, `{"success":true,"risk_score":1.7,"risk_level":"HIGH"}`, "out of range"},
		{"missing score", http.StatusOK, `{"success":true,"risk_level":"HIGH"}`, "out of range"},
		{"unknown level", http.StatusOK, `{"success":true,"risk_score":0.3,"risk_level":"SEVERE"}`, "risk_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := scoringServer(t, tt.status, tt.reply, &calls, nil)
			defer srv.Close()

			a := New(Config{URL: srv.URL}, newStore()).Classify(context.Background(), "patient", "clinic", decimal.NewFromInt(1))
			require.False(t, a.Success)
			require.Contains(t, a.Error, tt.want)
		})
	}

	t.Run("unknown clinic", func(t *testing.T) {
		a := New(Config{URL: "http://127.0.0.1:1"}, newStore()).Classify(context.Background(), "patient", "nope", decimal.NewFromInt(1))
		require.False(t, a.Success)
		require.Equal(t, "clinic not found", a.Error)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		a := New(Config{URL: url, Timeout: time.Second}, newStore()).Classify(context.Background(), "patient", "clinic", decimal.NewFromInt(1))
		require.False(t, a.Success)
		require.Contains(t, a.Error, "failed to get risk prediction")
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		a := New(Config{URL: srv.URL, Timeout: 50 * time.Millisecond}, newStore()).Classify(context.Background(), "patient", "clinic", decimal.NewFromInt(1))
		require.False(t, a.Success)
	})
}

func TestIsAvailable(t *testing.T) {
	var calls atomic.Int32
	up := scoringServer(t, http.StatusOK, "", &calls, nil)
	defer up.Close()
	require.True(t, New(Config{URL: up.URL + "/"}, newStore()).IsAvailable(context.Background()))

	down := scoringServer(t, http.StatusServiceUnavailable, "", &calls, nil)
	defer down.Close()
	require.False(t, New(Config{URL: down.URL}, newStore()).IsAvailable(context.Background()))

	require.False(t, New(Config{URL: "http://127.0.0.1:1"}, newStore()).IsAvailable(context.Background()))
}
