// Package config reads server settings from the environment. An optional
// .env file is loaded first; variables already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all server settings.
type Config struct {
	Port int

	DBDriver    string
	DBPath      string
	DatabaseURL string

	ChainRPCURL    string
	ChainID        *big.Int // nil means ask the node
	GasPriceWei    *big.Int
	GasLimit       uint64
	ChainTimeout   time.Duration
	ChainRateLimit float64

	RiskURL     string
	RiskTimeout time.Duration

	JWTSecret  string
	TokenTTL   time.Duration
	RefreshTTL time.Duration

	LogLevel  string
	LogFormat string
}

// AuthEnabled reports whether RPCs require a bearer token.
func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// Load reads envFiles (".env" when none are given) and then the environment.
// Missing env files are not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
			}
			slog.Debug("No env file found, relying on environment", "file", f)
		}
	}

	p := parser{}
	cfg := Config{
		Port:           p.int("PORT", 8080),
		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DBPath:         getEnv("DB_PATH", "./data/medpay.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ChainRPCURL:    getEnv("CHAIN_RPC_URL", "http://localhost:8545"),
		ChainID:        p.bigInt("CHAIN_ID", nil),
		GasPriceWei:    p.bigInt("GAS_PRICE_WEI", big.NewInt(20_000_000_000)),
		GasLimit:       uint64(p.int("GAS_LIMIT", 21000)),
		ChainTimeout:   p.duration("CHAIN_TIMEOUT", 5*time.Second),
		ChainRateLimit: p.float("CHAIN_RATE_LIMIT", 0),
		RiskURL:        getEnv("RISK_URL", "http://localhost:5001"),
		RiskTimeout:    p.duration("RISK_TIMEOUT", 3*time.Second),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		TokenTTL:       p.duration("TOKEN_TTL", time.Hour),
		RefreshTTL:     p.duration("REFRESH_TTL", 720*time.Hour),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
	}
	if len(p.errs) > 0 {
		return Config{}, errors.Join(p.errs...)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	switch c.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when DB_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %s or %s, got %q", DriverSQLite, DriverPostgres, c.DBDriver))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.GasLimit == 0 {
		errs = append(errs, errors.New("GAS_LIMIT must be positive"))
	}
	if c.GasPriceWei.Sign() < 0 {
		errs = append(errs, errors.New("GAS_PRICE_WEI must not be negative"))
	}
	if c.ChainRateLimit < 0 {
		errs = append(errs, errors.New("CHAIN_RATE_LIMIT must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parser collects every malformed variable instead of stopping at the first.
type parser struct {
	errs []error
}

func (p *parser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("invalid %s=%q: %w", key, value, err))
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return f
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return d
}

// bigInt parses a base-10 integer. Zero is treated as unset.
func (p *parser) bigInt(key string, fallback *big.Int) *big.Int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		p.fail(key, v, errors.New("not a base-10 integer"))
		return fallback
	}
	if n.Sign() == 0 {
		return fallback
	}
	return n
}
