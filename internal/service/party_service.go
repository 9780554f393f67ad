package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/medpay/internal/models"
	"github.com/mmynk/medpay/internal/settlement"
	"github.com/mmynk/medpay/internal/storage"
	"github.com/mmynk/medpay/internal/wallet"
	"github.com/mmynk/medpay/pkg/api"
)

// PartyService implements the Connect PartyService
type PartyService struct {
	store storage.Parties
}

var _ api.PartyServiceHandler = (*PartyService)(nil)

// NewPartyService creates a new PartyService with the given storage backend.
func NewPartyService(store storage.Parties) *PartyService {
	return &PartyService{store: store}
}

// validateParty checks required fields. Clinic wallets receive settlements
// and must be well-formed addresses.
func validateParty(msg *api.CreatePartyRequest) error {
	kind := models.PartyKind(strings.ToUpper(msg.Kind))
	if !kind.Valid() {
		return invalidArgument("kind must be %s or %s", models.KindClinic, models.KindPatient)
	}
	if strings.TrimSpace(msg.Name) == "" || strings.TrimSpace(msg.Email) == "" || strings.TrimSpace(msg.WalletAddress) == "" {
		return invalidArgument("name, email and walletAddress are required")
	}
	if kind == models.KindClinic && !wallet.ValidAddress(msg.WalletAddress) {
		return kindError(settlement.KindInvalidAddress, "clinic wallet %q is not a valid address", msg.WalletAddress)
	}
	if msg.PrivateKey != "" {
		if _, err := wallet.Address(msg.PrivateKey); err != nil {
			return kindError(settlement.KindInvalidKey, "privateKey is not a valid secp256k1 key")
		}
	}
	return nil
}

// CreateParty registers a clinic or patient profile.
func (s *PartyService) CreateParty(ctx context.Context, req *connect.Request[api.CreatePartyRequest]) (*connect.Response[api.CreatePartyResponse], error) {
	msg := req.Msg
	slog.Info("CreateParty request received", "kind", msg.Kind, "email", msg.Email, "wallet", msg.WalletAddress)

	if err := validateParty(msg); err != nil {
		return nil, err
	}

	party := &models.Party{
		Kind:          models.PartyKind(strings.ToUpper(msg.Kind)),
		Name:          strings.TrimSpace(msg.Name),
		Email:         strings.TrimSpace(msg.Email),
		WalletAddress: strings.TrimSpace(msg.WalletAddress),
		Address:       msg.Address,
		LicenseNumber: msg.LicenseNumber,
		NationalID:    msg.NationalID,
		PrivateKey:    wallet.NormalizeKey(msg.PrivateKey),
	}
	if err := s.store.CreateParty(ctx, party); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, kindError(settlement.KindConflict, "a party with this email or wallet already exists")
		}
		slog.Error("CreateParty failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Party created", "party_id", party.ID, "kind", party.Kind)
	return connect.NewResponse(&api.CreatePartyResponse{Party: toAPIParty(party)}), nil
}

// GetParty returns a party by ID, email or wallet address.
func (s *PartyService) GetParty(ctx context.Context, req *connect.Request[api.GetPartyRequest]) (*connect.Response[api.GetPartyResponse], error) {
	var (
		party *models.Party
		err   error
	)
	switch {
	case req.Msg.ID != "":
		party, err = s.store.GetParty(ctx, req.Msg.ID)
	case req.Msg.Email != "":
		party, err = s.store.GetPartyByEmail(ctx, req.Msg.Email)
	case req.Msg.WalletAddress != "":
		party, err = s.store.GetPartyByWallet(ctx, req.Msg.WalletAddress)
	default:
		return nil, invalidArgument("one of id, email or walletAddress is required")
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, kindError(settlement.KindPartyNotFound, "party not found")
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&api.GetPartyResponse{Party: toAPIParty(party)}), nil
}

// ListParties lists parties, optionally of one kind.
func (s *PartyService) ListParties(ctx context.Context, req *connect.Request[api.ListPartiesRequest]) (*connect.Response[api.ListPartiesResponse], error) {
	kind := models.PartyKind(strings.ToUpper(req.Msg.Kind))
	if kind != "" && !kind.Valid() {
		return nil, invalidArgument("kind must be %s or %s", models.KindClinic, models.KindPatient)
	}
	parties, err := s.store.ListParties(ctx, kind)
	if err != nil {
		slog.Error("ListParties failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	out := make([]*api.Party, 0, len(parties))
	for _, p := range parties {
		out = append(out, toAPIParty(p))
	}
	return connect.NewResponse(&api.ListPartiesResponse{Parties: out}), nil
}

// DeleteParty removes a party that no payment request references.
func (s *PartyService) DeleteParty(ctx context.Context, req *connect.Request[api.DeletePartyRequest]) (*connect.Response[api.DeletePartyResponse], error) {
	id := req.Msg.ID
	if id == "" {
		return nil, invalidArgument("id is required")
	}

	if err := s.store.DeleteParty(ctx, id); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, kindError(settlement.KindPartyNotFound, "party %s not found", id)
		case errors.Is(err, storage.ErrConflict):
			return nil, kindError(settlement.KindConflict, "party %s is referenced by payment requests", id)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	slog.Info("Party deleted", "party_id", id)
	return connect.NewResponse(&api.DeletePartyResponse{}), nil
}
