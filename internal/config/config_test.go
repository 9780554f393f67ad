package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "DB_DRIVER", "DB_PATH", "DATABASE_URL", "CHAIN_RPC_URL", "CHAIN_ID",
	"GAS_PRICE_WEI", "GAS_LIMIT", "CHAIN_TIMEOUT", "CHAIN_RATE_LIMIT", "RISK_URL",
	"RISK_TIMEOUT", "JWT_SECRET", "TOKEN_TTL", "REFRESH_TTL", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, DriverSQLite, cfg.DBDriver)
	require.Equal(t, "http://localhost:8545", cfg.ChainRPCURL)
	require.Nil(t, cfg.ChainID)
	require.Equal(t, "20000000000", cfg.GasPriceWei.String())
	require.Equal(t, uint64(21000), cfg.GasLimit)
	require.Equal(t, 5*time.Second, cfg.ChainTimeout)
	require.Equal(t, "http://localhost:5001", cfg.RiskURL)
	require.Equal(t, 3*time.Second, cfg.RiskTimeout)
	require.False(t, cfg.AuthEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/medpay")
	t.Setenv("CHAIN_ID", "1337")
	t.Setenv("CHAIN_RATE_LIMIT", "2.5")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, DriverPostgres, cfg.DBDriver)
	require.Equal(t, int64(1337), cfg.ChainID.Int64())
	require.Equal(t, 2.5, cfg.ChainRateLimit)
	require.True(t, cfg.AuthEnabled())
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RISK_URL=http://scoring:5001\nPORT=7000\n"), 0o600))
	t.Setenv("PORT", "7100")

	cfg, err := Load(path)
	t.Cleanup(func() { os.Unsetenv("RISK_URL") })
	require.NoError(t, err)
	require.Equal(t, "http://scoring:5001", cfg.RiskURL)
	require.Equal(t, 7100, cfg.Port, "environment must win over the env file")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad port", map[string]string{"PORT": "http"}, "PORT"},
		{"bad timeout", map[string]string{"CHAIN_TIMEOUT": "5"}, "CHAIN_TIMEOUT"},
		{"bad chain id", map[string]string{"CHAIN_ID": "0x539"}, "CHAIN_ID"},
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}, "DATABASE_URL"},
		{"zero gas limit", map[string]string{"GAS_LIMIT": "0"}, "GAS_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(missingFile(t))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}
