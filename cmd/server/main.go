package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/medpay/internal/auth"
	"github.com/mmynk/medpay/internal/chain"
	"github.com/mmynk/medpay/internal/config"
	"github.com/mmynk/medpay/internal/middleware"
	"github.com/mmynk/medpay/internal/risk"
	"github.com/mmynk/medpay/internal/service"
	"github.com/mmynk/medpay/internal/settlement"
	"github.com/mmynk/medpay/internal/storage"
	"github.com/mmynk/medpay/internal/storage/postgres"
	"github.com/mmynk/medpay/internal/storage/sqlite"
	"github.com/mmynk/medpay/internal/wallet"
	"github.com/mmynk/medpay/pkg/api"
	"github.com/mmynk/medpay/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logging is not configured yet.
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Configure(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL)
	default:
		return sqlite.New(cfg.DBPath)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.DBDriver)

	client, chainID, err := chain.Dial(ctx, cfg.ChainRPCURL, cfg.ChainID, cfg.ChainTimeout)
	if err != nil {
		return err
	}
	defer client.Close()

	gateway := chain.NewGateway(client, chain.Config{
		GasPrice:  cfg.GasPriceWei,
		GasLimit:  cfg.GasLimit,
		Timeout:   cfg.ChainTimeout,
		RateLimit: cfg.ChainRateLimit,
	})
	engine := settlement.NewEngine(store, wallet.NewSigner(chainID), gateway)

	gate := risk.New(risk.Config{URL: cfg.RiskURL, Timeout: cfg.RiskTimeout}, store)
	if !gate.IsAvailable(ctx) {
		slog.Warn("Risk scoring endpoint unreachable, assessments will report errors", "url", cfg.RiskURL)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL, cfg.RefreshTTL)

	// Auth runs outermost so the logging interceptor sees the caller.
	protected := []connect.Interceptor{middleware.LoggingInterceptor()}
	public := []connect.Interceptor{middleware.LoggingInterceptor()}
	if cfg.AuthEnabled() {
		protected = append([]connect.Interceptor{middleware.RequireAuth(jwtManager)}, protected...)
		public = append([]connect.Interceptor{middleware.OptionalAuth(jwtManager)}, public...)
	} else {
		slog.Warn("JWT_SECRET not set, RPCs are unauthenticated")
	}

	mux := http.NewServeMux()
	mux.Handle(api.NewPaymentServiceHandler(
		service.NewPaymentService(engine, gate),
		connect.WithInterceptors(protected...),
	))
	mux.Handle(api.NewPartyServiceHandler(
		service.NewPartyService(store),
		connect.WithInterceptors(protected...),
	))
	mux.Handle(api.NewRiskServiceHandler(
		service.NewRiskService(gate),
		connect.WithInterceptors(protected...),
	))
	if cfg.AuthEnabled() {
		mux.Handle(api.NewAuthServiceHandler(
			service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, slog.Default()),
			connect.WithInterceptors(public...),
		))
	}
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(middleware.Logging(middleware.CORS(mux)), &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
