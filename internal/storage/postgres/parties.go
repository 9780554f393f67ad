package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/medpay/internal/models"
	"github.com/mmynk/medpay/internal/storage"
)

const partyColumns = `id, kind, name, email, wallet_address, address, license_number, national_id,
	private_key, created_at`

func scanParty(row pgx.Row) (*models.Party, error) {
	p := &models.Party{}
	var kind string
	var privateKey *string
	if err := row.Scan(&p.ID, &kind, &p.Name, &p.Email, &p.WalletAddress, &p.Address,
		&p.LicenseNumber, &p.NationalID, &privateKey, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Kind = models.PartyKind(kind)
	if privateKey != nil {
		p.PrivateKey = *privateKey
	}
	return p, nil
}

// CreateParty inserts a new clinic or patient.
func (s *Store) CreateParty(ctx context.Context, party *models.Party) error {
	if party.ID == "" {
		party.ID = uuid.New().String()
	}
	if party.CreatedAt == 0 {
		party.CreatedAt = time.Now().Unix()
	}
	var privateKey *string
	if party.PrivateKey != "" {
		privateKey = &party.PrivateKey
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO parties (`+partyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
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

func (s *Store) getPartyWhere(ctx context.Context, clause string, arg any) (*models.Party, error) {
	p, err := scanParty(s.pool.QueryRow(ctx, `SELECT `+partyColumns+` FROM parties WHERE `+clause, arg))
	if nf := notFound(err, "party"); nf != nil {
		return nil, nf
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get party: %w", err)
	}
	return p, nil
}

// GetParty retrieves a party by ID.
func (s *Store) GetParty(ctx context.Context, id string) (*models.Party, error) {
	return s.getPartyWhere(ctx, "id = $1", id)
}

// GetPartyByWallet retrieves a party by wallet address, ignoring case.
func (s *Store) GetPartyByWallet(ctx context.Context, wallet string) (*models.Party, error) {
	return s.getPartyWhere(ctx, "lower(wallet_address) = lower($1)", wallet)
}

// GetPartyByEmail retrieves a party by email, ignoring case.
func (s *Store) GetPartyByEmail(ctx context.Context, email string) (*models.Party, error) {
	return s.getPartyWhere(ctx, "lower(email) = lower($1)", email)
}

// ListParties retrieves parties ordered by name.
func (s *Store) ListParties(ctx context.Context, kind models.PartyKind) ([]*models.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties`
	var args []any
	if kind != "" {
		query += " WHERE kind = $1"
		args = append(args, string(kind))
	}
	query += " ORDER BY name, id"

	rows, err := s.pool.Query(ctx, query, args...)
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
func (s *Store) DeleteParty(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM parties WHERE id = $1 AND NOT EXISTS (
		     SELECT 1 FROM payment_requests WHERE payer_id = $1 OR payee_id = $1)`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete party: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := s.GetParty(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: party %s is referenced by payment requests", storage.ErrConflict, id)
}
