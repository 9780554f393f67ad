package models

// PartyKind tags a Party as a clinic or a patient.
type PartyKind string

const (
	KindClinic  PartyKind = "CLINIC"
	KindPatient PartyKind = "PATIENT"
)

// Valid reports whether k is a known kind.
func (k PartyKind) Valid() bool {
	return k == KindClinic || k == KindPatient
}

// Party is a clinic (payee) or a patient (payer) with a settlement wallet.
type Party struct {
	// ID is the unique identifier for the party (UUID format).
	ID string

	Kind PartyKind

	// Name is the clinic name or the patient's full name.
	Name string

	// Email is unique across parties and links the profile to an identity.
	Email string

	// WalletAddress is the settlement source (patient) or destination (clinic).
	// Lookups by wallet are case-insensitive.
	WalletAddress string

	// Address is the postal address.
	Address string

	// LicenseNumber is set for clinics only.
	LicenseNumber string

	// NationalID is set for patients only.
	NationalID string

	// PrivateKey is an optional demo signing key used as a settlement fallback
	// when the caller supplies none. It is never returned by read APIs or logged.
	PrivateKey string

	// CreatedAt is the Unix timestamp when the party was created.
	CreatedAt int64
}

// HasStoredKey reports whether a fallback signing key is on file.
func (p *Party) HasStoredKey() bool {
	return p.PrivateKey != ""
}
