package auth

import (
	"context"

	"github.com/mmynk/medpay/internal/models"
)

// Authenticator is the identity provider used by the auth RPCs.
// Settlement never calls it; parties are resolved from profile storage.
type Authenticator interface {
	// Register creates a new user account with the given email and credential.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// Lookup returns the user registered under email, or ErrUserNotFound.
	Lookup(ctx context.Context, email string) (*models.User, error)

	// Delete removes the user account.
	Delete(ctx context.Context, userID string) error

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
