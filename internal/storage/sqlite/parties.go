package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/medpay/internal/models"
	"github.com/mmynk/medpay/internal/storage"
)

const partyColumns = `id, kind, name, email, wallet_address, address, license_number, national_id,
	private_key, created_at`

func scanParty(row rowScanner) (*models.Party, error) {
	p := &models.Party{}
	var kind string
	var privateKey sql.NullString
	if err := row.Scan(&p.ID, &kind, &p.Name, &p.Email, &p.WalletAddress, &p.Address,
		&p.LicenseNumber, &p.NationalID, &privateKey, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Kind = models.PartyKind(kind)
	if privateKey.Valid {
		p.PrivateKey = privateKey.String
	}
	return p, nil
}

// CreateParty inserts a new clinic or patient.
func (s *SQLiteStore) CreateParty(ctx context.Context, party *models.Party) error {
	if party.ID == "" {
		party.ID = uuid.New().String()
	}
	if party.CreatedAt == 0 {
		party.CreatedAt = time.Now().Unix()
	}

	var privateKey any
	if party.PrivateKey != "" {
		privateKey = party.PrivateKey
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO parties (`+partyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		party.ID, string(party.Kind), party.Name, party.Email, party.WalletAddress, party.Address,
		party.LicenseNumber, party.NationalID, privateKey, party.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: party with this email or wallet already exists", storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert party: %w", err)
	}
	return nil
}

func (s *SQLiteStore) getPartyWhere(ctx context.Context, clause string, arg any) (*models.Party, error) {
	p, err := scanParty(s.db.QueryRowContext(ctx,
		`SELECT `+partyColumns+` FROM parties WHERE `+clause, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: party", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get party: %w", err)
	}
	return p, nil
}

// GetParty retrieves a party by ID.
func (s *SQLiteStore) GetParty(ctx context.Context, id string) (*models.Party, error) {
	return s.getPartyWhere(ctx, "id = ?", id)
}

// GetPartyByWallet retrieves a party by wallet address, ignoring case.
func (s *SQLiteStore) GetPartyByWallet(ctx context.Context, wallet string) (*models.Party, error) {
	return s.getPartyWhere(ctx, "lower(wallet_address) = lower(?)", wallet)
}

// GetPartyByEmail retrieves a party by email, ignoring case.
func (s *SQLiteStore) GetPartyByEmail(ctx context.Context, email string) (*models.Party, error) {
	return s.getPartyWhere(ctx, "lower(email) = lower(?)", email)
}

// ListParties retrieves parties ordered by name.
func (s *SQLiteStore) ListParties(ctx context.Context, kind models.PartyKind) ([]*models.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties`
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY name, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list parties: %w", err)
	}
	defer rows.Close()

	var parties []*models.Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan party: %w", err)
		}
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate parties: %w", err)
	}
	return parties, nil
}

// DeleteParty removes a party by ID. A party referenced by a payment request
// is kept and ErrConflict returned.
func (s *SQLiteStore) DeleteParty(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM parties WHERE id = ? AND NOT EXISTS (
		     SELECT 1 FROM payment_requests WHERE payer_id = ? OR payee_id = ?)`,
		id, id, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete party: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := s.GetParty(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: party %s is referenced by payment requests", storage.ErrConflict, id)
}
