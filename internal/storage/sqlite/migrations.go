package sqlite

import "database/sql"

// schema sets up the database. It runs on every startup.
// Amounts are stored as TEXT so decimals round-trip exactly.
// settlement_attempts has no foreign key: attempts outlive deleted requests.
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
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS payment_requests (
    id TEXT PRIMARY KEY,
    amount_due TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('UNPAID', 'PAID')),
    payer_id TEXT NOT NULL,
    payee_id TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    service_code TEXT NOT NULL DEFAULT '',
    token TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    paid_at INTEGER,
    transaction_hash TEXT,
    CHECK ((status = 'PAID') = (transaction_hash IS NOT NULL)),
    CHECK ((status = 'PAID') = (paid_at IS NOT NULL))
);

CREATE TABLE IF NOT EXISTS settlement_attempts (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    transaction_hash TEXT NOT NULL,
    from_address TEXT NOT NULL,
    nonce INTEGER NOT NULL,
    outcome TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_parties_email ON parties(lower(email));
CREATE UNIQUE INDEX IF NOT EXISTS idx_parties_wallet ON parties(lower(wallet_address));
CREATE INDEX IF NOT EXISTS idx_payment_requests_payer ON payment_requests(payer_id, status);
CREATE INDEX IF NOT EXISTS idx_payment_requests_payee ON payment_requests(payee_id, status);
CREATE INDEX IF NOT EXISTS idx_settlement_attempts_request ON settlement_attempts(request_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_settlement_attempts_inflight
    ON settlement_attempts(request_id) WHERE outcome IN ('PENDING', 'ACCEPTED', 'UNKNOWN');
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
