// Package postgres provides a PostgreSQL-backed implementation of the storage.Store
// interface for deployments that run several engine instances against one ledger.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/medpay/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL, verifies the connection and runs migrations.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, what)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS parties (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL CHECK (kind IN ('CLINIC', 'PATIENT')),
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    wallet_address TEXT NOT NULL,
    address TEXT NOT NULL DEFAULT '',
    license_number TEXT NOT NULL DEFAULT '',
    national_id TEXT NOT NULL DEFAULT '',
    private_key TEXT,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS payment_requests (
    id TEXT PRIMARY KEY,
    amount_due NUMERIC(78, 18) NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('UNPAID', 'PAID')),
    payer_id TEXT NOT NULL,
    payee_id TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    service_code TEXT NOT NULL DEFAULT '',
    token TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL,
    paid_at BIGINT,
    transaction_hash TEXT,
    CHECK ((status = 'PAID') = (transaction_hash IS NOT NULL)),
    CHECK ((status = 'PAID') = (paid_at IS NOT NULL))
);

CREATE TABLE IF NOT EXISTS settlement_attempts (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    transaction_hash TEXT NOT NULL,
    from_address TEXT NOT NULL,
    nonce BIGINT NOT NULL,
    outcome TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_parties_email ON parties(lower(email));
CREATE UNIQUE INDEX IF NOT EXISTS idx_parties_wallet ON parties(lower(wallet_address));
CREATE INDEX IF NOT EXISTS idx_payment_requests_payer ON payment_requests(payer_id, status);
CREATE INDEX IF NOT EXISTS idx_payment_requests_payee ON payment_requests(payee_id, status);
CREATE INDEX IF NOT EXISTS idx_settlement_attempts_request ON settlement_attempts(request_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_settlement_attempts_inflight
    ON settlement_attempts(request_id) WHERE outcome IN ('PENDING', 'ACCEPTED', 'UNKNOWN');
`
