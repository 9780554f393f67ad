package service

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/mmynk/medpay/internal/auth"
	"github.com/mmynk/medpay/internal/chain"
	"github.com/mmynk/medpay/internal/middleware"
	"github.com/mmynk/medpay/internal/risk"
	"github.com/mmynk/medpay/internal/settlement"
	"github.com/mmynk/medpay/internal/storage/sqlite"
	"github.com/mmynk/medpay/internal/wallet"
	"github.com/mmynk/medpay/pkg/api"
)

const (
	patientKey    = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	patientWallet = "0xPatient123"
	clinicWallet  = "0x1111111111111111111111111111111111111111"
)

// nodeClient stands in for an ethclient connection.
type nodeClient struct {
	mu      sync.Mutex
	sendErr error
	sent    []*types.Transaction
}

func (n *nodeClient) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return uint64(len(n.sent)), nil
}

func (n *nodeClient) SendTransaction(_ context.Context, tx *types.Transaction) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, tx)
	return nil
}

func (n *nodeClient) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	wei, _ := new(big.Int).SetString("2500000000000000000", 10)
	return wei, nil
}

func (n *nodeClient) fail(err error) {
	n.mu.Lock()
	n.sendErr = err
	n.mu.Unlock()
}

type testServer struct {
	payments *api.PaymentServiceClient
	parties  *api.PartyServiceClient
	risk     *api.RiskServiceClient
	auth     *api.AuthServiceClient
	node     *nodeClient
}

// setupTestServer wires every service against a temp SQLite store, a fake
// node and a fake scoring endpoint. Payment, party and risk RPCs require a
// bearer token when requireAuth is set.
func setupTestServer(t *testing.T, requireAuth bool) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	scoring := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/health" {
			w.Write([]byte(`{"status":"healthy"}`))
			return
		}
		w.Write([]byte(`{"success":true,"risk_score":0.2,"risk_level":"LOW"}`))
	}))

	node := &nodeClient{}
	gateway := chain.NewGateway(node, chain.Config{Timeout: time.Second})
	engine := settlement.NewEngine(store, wallet.NewSigner(big.NewInt(1337)), gateway)
	gate := risk.New(risk.Config{URL: scoring.URL}, store)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)

	interceptors := []connect.Interceptor{middleware.LoggingInterceptor()}
	if requireAuth {
		interceptors = append([]connect.Interceptor{middleware.RequireAuth(jwtManager)}, interceptors...)
	}
	protected := connect.WithInterceptors(interceptors...)

	mux := http.NewServeMux()
	mux.Handle(api.NewPaymentServiceHandler(NewPaymentService(engine, gate), protected))
	mux.Handle(api.NewPartyServiceHandler(NewPartyService(store), protected))
	mux.Handle(api.NewRiskServiceHandler(NewRiskService(gate), protected))
	mux.Handle(api.NewAuthServiceHandler(
		NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, slog.Default()),
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager), middleware.LoggingInterceptor()),
	))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		scoring.Close()
		store.Close()
	})

	return &testServer{
		payments: api.NewPaymentServiceClient(http.DefaultClient, server.URL),
		parties:  api.NewPartyServiceClient(http.DefaultClient, server.URL),
		risk:     api.NewRiskServiceClient(http.DefaultClient, server.URL),
		auth:     api.NewAuthServiceClient(http.DefaultClient, server.URL),
		node:     node,
	}
}

// seedParties registers one clinic and one patient.
func seedParties(t *testing.T, ts *testServer) (clinic, patient *api.Party) {
	t.Helper()
	ctx := context.Background()

	c, err := ts.parties.CreateParty(ctx, connect.NewRequest(&api.CreatePartyRequest{
		Kind: "CLINIC", Name: "Clinic One", Email: "clinic@example.com", WalletAddress: clinicWallet, LicenseNumber: "LIC-1",
	}))
	if err != nil {
		t.Fatalf("CreateParty(clinic) failed: %v", err)
	}
	p, err := ts.parties.CreateParty(ctx, connect.NewRequest(&api.CreatePartyRequest{
		Kind: "patient", Name: "Pat", Email: "pat@example.com", WalletAddress: patientWallet,
	}))
	if err != nil {
		t.Fatalf("CreateParty(patient) failed: %v", err)
	}
	return c.Msg.Party, p.Msg.Party
}

func expectError(t *testing.T, err error, code connect.Code, kind settlement.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := connect.CodeOf(err); got != code {
		t.Errorf("expected code %v, got %v (%v)", code, got, err)
	}
	if got := api.ErrorKind(err); got != string(kind) {
		t.Errorf("expected kind %s, got %q (%v)", kind, got, err)
	}
}

func TestPaymentRequestLifecycle(t *testing.T) {
	ts := setupTestServer(t, false)
	ctx := context.Background()
	clinic, patient := seedParties(t, ts)

	created, err := ts.payments.CreatePaymentRequest(ctx, connect.NewRequest(&api.CreatePaymentRequestRequest{
		PayeeID:     clinic.ID,
		PayerWallet: patientWallet,
		Amount:      decimal.RequireFromString("100.00"),
		Description: "Consultation",
	}))
	if err != nil {
		t.Fatalf("CreatePaymentRequest failed: %v", err)
	}
	pr := created.Msg.PaymentRequest
	if pr.Status != "UNPAID" || !pr.AmountDue.Equal(decimal.RequireFromString("100.00")) || pr.PayerID != patient.ID {
		t.Errorf("unexpected payment request: %+v", pr)
	}
	if r := created.Msg.Risk; r == nil || r.RiskLevel != "MEDIUM" || r.RiskScore != 0.5 {
		t.Errorf("expected neutral risk for a new payer, got %+v", r)
	}

	settled, err := ts.payments.SettlePaymentRequest(ctx, connect.NewRequest(&api.SettlePaymentRequestRequest{ID: pr.ID, PrivateKey: patientKey}))
	if err != nil {
		t.Fatalf("SettlePaymentRequest failed: %v", err)
	}
	if settled.Msg.TransactionHash == "" {
		t.Fatal("expected a transaction hash")
	}

	got, err := ts.payments.GetPaymentRequest(ctx, connect.NewRequest(&api.GetPaymentRequestRequest{ID: pr.ID}))
	if err != nil {
		t.Fatalf("GetPaymentRequest failed: %v", err)
	}
	if got.Msg.PaymentRequest.Status != "PAID" || got.Msg.PaymentRequest.TransactionHash != settled.Msg.TransactionHash {
		t.Errorf("expected PAID with hash %s, got %+v", settled.Msg.TransactionHash, got.Msg.PaymentRequest)
	}

	_, err = ts.payments.SettlePaymentRequest(ctx, connect.NewRequest(&api.SettlePaymentRequestRequest{ID: pr.ID, PrivateKey: patientKey}))
	expectError(t, err, connect.CodeFailedPrecondition, settlement.KindAlreadySettled)

	pending, err := ts.payments.ListPaymentRequests(ctx, connect.NewRequest(&api.ListPaymentRequestsRequest{PayerID: patient.ID, UnpaidOnly: true}))
	if err != nil {
		t.Fatalf("ListPaymentRequests failed: %v", err)
	}
	if len(pending.Msg.PaymentRequests) != 0 {
		t.Errorf("expected no pending requests, got %d", len(pending.Msg.PaymentRequests))
	}

	all, err := ts.payments.ListPaymentRequests(ctx, connect.NewRequest(&api.ListPaymentRequestsRequest{PayeeID: clinic.ID}))
	if err != nil {
		t.Fatalf("ListPaymentRequests failed: %v", err)
	}
	if len(all.Msg.PaymentRequests) != 1 {
		t.Errorf("expected 1 request for the clinic, got %d", len(all.Msg.PaymentRequests))
	}

	attempts, err := ts.payments.ListSettlementAttempts(ctx, connect.NewRequest(&api.ListSettlementAttemptsRequest{RequestID: pr.ID}))
	if err != nil {
		t.Fatalf("ListSettlementAttempts failed: %v", err)
	}
	if len(attempts.Msg.Attempts) != 1 || attempts.Msg.Attempts[0].Outcome != "ACCEPTED" {
		t.Errorf("expected one ACCEPTED attempt, got %+v", attempts.Msg.Attempts)
	}

	t.Run("second request scores against history", func(t *testing.T) {
		next, err := ts.payments.CreatePaymentRequest(ctx, connect.NewRequest(&api.CreatePaymentRequestRequest{
			PayeeID: clinic.ID, PayerWallet: patientWallet, Amount: decimal.NewFromInt(5),
		}))
		if err != nil {
			t.Fatalf("CreatePaymentRequest failed: %v", err)
		}
		if r := next.Msg.Risk; r == nil || r.RiskLevel != "LOW" {
			t.Errorf("expected LOW risk from the scoring endpoint, got %+v", r)
		}
	})
}

func TestSettleErrors(t *testing.T) {
	ts := setupTestServer(t, false)
	ctx := context.Background()
	clinic, _ := seedParties(t, ts)

	_, err := ts.payments.SettlePaymentRequest(ctx, connect.NewRequest(&api.SettlePaymentRequestRequest{ID: "missing"}))
	expectError(t, err, connect.CodeNotFound, settlement.KindNotFound)

	created, err := ts.payments.CreatePaymentRequest(ctx, connect.NewRequest(&api.CreatePaymentRequestRequest{
		PayeeID: clinic.ID, PayerWallet: patientWallet, Amount: decimal.NewFromInt(1),
	}))
	if err != nil {
		t.Fatalf("CreatePaymentRequest failed: %v", err)
	}
	id := created.Msg.PaymentRequest.ID

	_, err = ts.payments.SettlePaymentRequest(ctx, connect.NewRequest(&api.SettlePaymentRequestRequest{ID: id}))
	expectError(t, err, connect.CodeFailedPrecondition, settlement.KindNoKeyAvailable)

	_, err = ts.payments.SettlePaymentRequest(ctx, connect.NewRequest(&api.SettlePaymentRequestRequest{ID: id, PrivateKey: "0xdeadbeef"}))
	expectError(t, err, connect.CodeInvalidArgument, settlement.KindInvalidKey)
	if err != nil && strings.Contains(err.Error(), "deadbeef") {
		t.Errorf("error must not echo the private key: %v", err)
	}

	ts.node.fail(errors.New("connection reset by peer"))
	_, err = ts.payments.SettlePaymentRequest(ctx, connect.NewRequest(&api.SettlePaymentRequestRequest{ID: id, PrivateKey: patientKey}))
	// A plain error from the node client is a transport failure, not a node verdict.
	expectError(t, err, connect.CodeUnavailable, settlement.KindUnavailable)

	var connectErr *connect.Error
	if !errors.As(err, &connectErr) || connectErr.Meta().Get(api.TransactionHashHeader) == "" {
		t.Errorf("expected the signed transaction hash in %s", api.TransactionHashHeader)
	}

	ts.node.fail(nil)
	_, err = ts.payments.SettlePaymentRequest(ctx, connect.NewRequest(&api.SettlePaymentRequestRequest{ID: id, PrivateKey: patientKey}))
	expectError(t, err, connect.CodeAborted, settlement.KindConflict)

	attempts, err := ts.payments.ListSettlementAttempts(ctx, connect.NewRequest(&api.ListSettlementAttemptsRequest{RequestID: id}))
	if err != nil {
		t.Fatalf("ListSettlementAttempts failed: %v", err)
	}
	if len(attempts.Msg.Attempts) != 1 || attempts.Msg.Attempts[0].Outcome != "UNKNOWN" {
		t.Fatalf("expected one UNKNOWN attempt, got %+v", attempts.Msg.Attempts)
	}

	_, err = ts.payments.ResolveSettlementAttempt(ctx, connect.NewRequest(&api.ResolveSettlementAttemptRequest{
		AttemptID: attempts.Msg.Attempts[0].ID, Outcome: "pending",
	}))
	expectError(t, err, connect.CodeInvalidArgument, settlement.KindInvalidArgument)

	resolved, err := ts.payments.ResolveSettlementAttempt(ctx, connect.NewRequest(&api.ResolveSettlementAttemptRequest{
		AttemptID: attempts.Msg.Attempts[0].ID, Outcome: "abandoned",
	}))
	if err != nil {
		t.Fatalf("ResolveSettlementAttempt failed: %v", err)
	}
	if resolved.Msg.Attempt.Outcome != "ABANDONED" || resolved.Msg.PaymentRequest.Status != "UNPAID" {
		t.Errorf("unexpected resolution: %+v", resolved.Msg)
	}

	if _, err := ts.payments.SettlePaymentRequest(ctx, connect.NewRequest(&api.SettlePaymentRequestRequest{ID: id, PrivateKey: patientKey})); err != nil {
		t.Fatalf("SettlePaymentRequest after abandon failed: %v", err)
	}
}

func TestCreatePaymentRequestValidation(t *testing.T) {
	ts := setupTestServer(t, false)
	ctx := context.Background()
	clinic, patient := seedParties(t, ts)

	tests := []struct {
		name string
		req  *api.CreatePaymentRequestRequest
		code connect.Code
		kind settlement.Kind
	}{
		{"missing payee", &api.CreatePaymentRequestRequest{PayerWallet: patientWallet, Amount: decimal.NewFromInt(1)}, connect.CodeInvalidArgument, settlement.KindInvalidArgument},
		{"unknown payee", &api.CreatePaymentRequestRequest{PayeeID: "nope", PayerWallet: patientWallet, Amount: decimal.NewFromInt(1)}, connect.CodeNotFound, settlement.KindPartyNotFound},
		{"payee not a clinic", &api.CreatePaymentRequestRequest{PayeeID: patient.ID, PayerWallet: patientWallet, Amount: decimal.NewFromInt(1)}, connect.CodeNotFound, settlement.KindPartyNotFound},
		{"unknown wallet", &api.CreatePaymentRequestRequest{PayeeID: clinic.ID, PayerWallet: "0xnobody", Amount: decimal.NewFromInt(1)}, connect.CodeNotFound, settlement.KindPartyNotFound},
		{"zero amount", &api.CreatePaymentRequestRequest{PayeeID: clinic.ID, PayerWallet: patientWallet}, connect.CodeInvalidArgument, settlement.KindInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.payments.CreatePaymentRequest(ctx, connect.NewRequest(tt.req))
			expectError(t, err, tt.code, tt.kind)
		})
	}
}

func TestGetBalanceAndDelete(t *testing.T) {
	ts := setupTestServer(t, false)
	ctx := context.Background()
	clinic, patient := seedParties(t, ts)

	balance, err := ts.payments.GetBalance(ctx, connect.NewRequest(&api.GetBalanceRequest{PartyID: clinic.ID}))
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Msg.Balance.Equal(decimal.RequireFromString("2.5")) || balance.Msg.WalletAddress != clinicWallet {
		t.Errorf("unexpected balance: %+v", balance.Msg)
	}

	_, err = ts.payments.GetBalance(ctx, connect.NewRequest(&api.GetBalanceRequest{PartyID: patient.ID}))
	expectError(t, err, connect.CodeInvalidArgument, settlement.KindInvalidAddress)

	created, err := ts.payments.CreatePaymentRequest(ctx, connect.NewRequest(&api.CreatePaymentRequestRequest{
		PayeeID: clinic.ID, PayerWallet: patientWallet, Amount: decimal.NewFromInt(1),
	}))
	if err != nil {
		t.Fatalf("CreatePaymentRequest failed: %v", err)
	}

	_, err = ts.parties.DeleteParty(ctx, connect.NewRequest(&api.DeletePartyRequest{ID: patient.ID}))
	expectError(t, err, connect.CodeAborted, settlement.KindConflict)

	id := created.Msg.PaymentRequest.ID
	if _, err := ts.payments.DeletePaymentRequest(ctx, connect.NewRequest(&api.DeletePaymentRequestRequest{ID: id})); err != nil {
		t.Fatalf("DeletePaymentRequest failed: %v", err)
	}
	_, err = ts.payments.GetPaymentRequest(ctx, connect.NewRequest(&api.GetPaymentRequestRequest{ID: id}))
	expectError(t, err, connect.CodeNotFound, settlement.KindNotFound)

	if _, err := ts.parties.DeleteParty(ctx, connect.NewRequest(&api.DeletePartyRequest{ID: patient.ID})); err != nil {
		t.Fatalf("DeleteParty failed: %v", err)
	}
}

func TestPartyService(t *testing.T) {
	ts := setupTestServer(t, false)
	ctx := context.Background()
	clinic, _ := seedParties(t, ts)

	withKey, err := ts.parties.CreateParty(ctx, connect.NewRequest(&api.CreatePartyRequest{
		Kind: "PATIENT", Name: "Demo", Email: "demo@example.com",
		WalletAddress: "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", PrivateKey: "0x" + patientKey,
	}))
	if err != nil {
		t.Fatalf("CreateParty failed: %v", err)
	}
	if !withKey.Msg.Party.HasStoredKey {
		t.Error("expected HasStoredKey")
	}

	t.Run("lookup by email and wallet", func(t *testing.T) {
		byEmail, err := ts.parties.GetParty(ctx, connect.NewRequest(&api.GetPartyRequest{Email: "CLINIC@example.com"}))
		if err != nil {
			t.Fatalf("GetParty by email failed: %v", err)
		}
		if byEmail.Msg.Party.ID != clinic.ID || byEmail.Msg.Party.LicenseNumber != "LIC-1" {
			t.Errorf("unexpected party: %+v", byEmail.Msg.Party)
		}
		byWallet, err := ts.parties.GetParty(ctx, connect.NewRequest(&api.GetPartyRequest{WalletAddress: "0xpatient123"}))
		if err != nil {
			t.Fatalf("GetParty by wallet failed: %v", err)
		}
		if byWallet.Msg.Party.Kind != "PATIENT" {
			t.Errorf("expected a patient, got %s", byWallet.Msg.Party.Kind)
		}
	})

	t.Run("list by kind", func(t *testing.T) {
		patients, err := ts.parties.ListParties(ctx, connect.NewRequest(&api.ListPartiesRequest{Kind: "patient"}))
		if err != nil {
			t.Fatalf("ListParties failed: %v", err)
		}
		if len(patients.Msg.Parties) != 2 {
			t.Errorf("expected 2 patients, got %d", len(patients.Msg.Parties))
		}
	})

	t.Run("validation", func(t *testing.T) {
		_, err := ts.parties.CreateParty(ctx, connect.NewRequest(&api.CreatePartyRequest{Kind: "CLINIC", Name: "Bad", Email: "bad@example.com", WalletAddress: "0xClinic"}))
		expectError(t, err, connect.CodeInvalidArgument, settlement.KindInvalidAddress)

		_, err = ts.parties.CreateParty(ctx, connect.NewRequest(&api.CreatePartyRequest{Kind: "DOCTOR", Name: "X", Email: "x@example.com", WalletAddress: clinicWallet}))
		expectError(t, err, connect.CodeInvalidArgument, settlement.KindInvalidArgument)

		_, err = ts.parties.CreateParty(ctx, connect.NewRequest(&api.CreatePartyRequest{Kind: "PATIENT", Name: "Key", Email: "key@example.com", WalletAddress: "0xKey", PrivateKey: "nothex"}))
		expectError(t, err, connect.CodeInvalidArgument, settlement.KindInvalidKey)

		_, err = ts.parties.CreateParty(ctx, connect.NewRequest(&api.CreatePartyRequest{Kind: "PATIENT", Name: "Dup", Email: "other@example.com", WalletAddress: "0xPATIENT123"}))
		expectError(t, err, connect.CodeAborted, settlement.KindConflict)
	})

	t.Run("settle with stored key", func(t *testing.T) {
		created, err := ts.payments.CreatePaymentRequest(ctx, connect.NewRequest(&api.CreatePaymentRequestRequest{
			PayeeID: clinic.ID, PayerWallet: withKey.Msg.Party.WalletAddress, Amount: decimal.RequireFromString("0.25"),
		}))
		if err != nil {
			t.Fatalf("CreatePaymentRequest failed: %v", err)
		}
		if _, err := ts.payments.SettlePaymentRequest(ctx, connect.NewRequest(&api.SettlePaymentRequestRequest{ID: created.Msg.PaymentRequest.ID})); err != nil {
			t.Fatalf("SettlePaymentRequest with stored key failed: %v", err)
		}
	})
}

func TestRiskService(t *testing.T) {
	ts := setupTestServer(t, false)
	ctx := context.Background()
	clinic, _ := seedParties(t, ts)

	resp, err := ts.risk.AssessRisk(ctx, connect.NewRequest(&api.AssessRiskRequest{
		PayerWallet: patientWallet, PayeeID: clinic.ID, Amount: decimal.NewFromInt(10),
	}))
	if err != nil {
		t.Fatalf("AssessRisk failed: %v", err)
	}
	if a := resp.Msg.Assessment; !a.Success || a.RiskLevel != "MEDIUM" {
		t.Errorf("expected neutral assessment, got %+v", a)
	}

	_, err = ts.risk.AssessRisk(ctx, connect.NewRequest(&api.AssessRiskRequest{PayeeID: clinic.ID, Amount: decimal.NewFromInt(10)}))
	expectError(t, err, connect.CodeInvalidArgument, settlement.KindInvalidArgument)

	status, err := ts.risk.GetRiskStatus(ctx, connect.NewRequest(&api.GetRiskStatusRequest{}))
	if err != nil {
		t.Fatalf("GetRiskStatus failed: %v", err)
	}
	if !status.Msg.Available {
		t.Error("expected scoring endpoint to be available")
	}
}

func TestAuthService(t *testing.T) {
	ts := setupTestServer(t, true)
	ctx := context.Background()

	_, err := ts.parties.ListParties(ctx, connect.NewRequest(&api.ListPartiesRequest{}))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Fatalf("expected Unauthenticated without a token, got %v", err)
	}

	reg, err := ts.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{Email: "ops@clinic.test", Password: "correct horse", DisplayName: "Ops"}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if reg.Msg.Tokens.IDToken == "" || reg.Msg.Tokens.ExpiresIn != 3600 {
		t.Errorf("unexpected tokens: %+v", reg.Msg.Tokens)
	}

	_, err = ts.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{Email: "ops@clinic.test", Password: "correct horse", DisplayName: "Ops"}))
	if connect.CodeOf(err) != connect.CodeAlreadyExists {
		t.Errorf("expected AlreadyExists, got %v", err)
	}

	_, err = ts.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{Email: "ops@clinic.test", Password: "wrong password"}))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}

	login, err := ts.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{Email: "ops@clinic.test", Password: "correct horse"}))
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	bearer := "Bearer " + login.Msg.Tokens.IDToken

	listReq := connect.NewRequest(&api.ListPartiesRequest{})
	listReq.Header().Set("Authorization", bearer)
	if _, err := ts.parties.ListParties(ctx, listReq); err != nil {
		t.Fatalf("ListParties with token failed: %v", err)
	}

	meReq := connect.NewRequest(&api.GetCurrentUserRequest{})
	meReq.Header().Set("Authorization", bearer)
	me, err := ts.auth.GetCurrentUser(ctx, meReq)
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if me.Msg.User.Email != "ops@clinic.test" || me.Msg.User.DisplayName != "Ops" {
		t.Errorf("unexpected user: %+v", me.Msg.User)
	}

	refreshed, err := ts.auth.RefreshToken(ctx, connect.NewRequest(&api.RefreshTokenRequest{RefreshToken: login.Msg.Tokens.RefreshToken}))
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	if refreshed.Msg.Tokens.IDToken == "" {
		t.Error("expected a new ID token")
	}

	delReq := connect.NewRequest(&api.DeleteAccountRequest{})
	delReq.Header().Set("Authorization", bearer)
	if _, err := ts.auth.DeleteAccount(ctx, delReq); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	_, err = ts.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{Email: "ops@clinic.test", Password: "correct horse"}))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("expected Unauthenticated after deletion, got %v", err)
	}
	_, err = ts.auth.RefreshToken(ctx, connect.NewRequest(&api.RefreshTokenRequest{RefreshToken: refreshed.Msg.Tokens.RefreshToken}))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("expected Unauthenticated refreshing a deleted account, got %v", err)
	}

	_, err = ts.auth.GetCurrentUser(ctx, connect.NewRequest(&api.GetCurrentUserRequest{}))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("expected Unauthenticated without a token, got %v", err)
	}
}
