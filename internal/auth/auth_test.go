package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/medpay/internal/models"
	"github.com/mmynk/medpay/internal/storage/sqlite"
)

func newAuthenticator(t *testing.T) *PasswordAuthenticator {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	a := NewPasswordAuthenticator(store)
	a.cost = bcrypt.MinCost
	return a
}

func TestPasswordAuthenticator(t *testing.T) {
	a := newAuthenticator(t)
	ctx := context.Background()

	user, err := a.Register(ctx, " Admin@Clinic.test ", "Admin", "correct horse")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "admin@clinic.test" {
		t.Errorf("expected normalized email, got %q", user.Email)
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := a.Register(ctx, "admin@clinic.test", "Other", "another password")
		if !errors.Is(err, ErrEmailExists) {
			t.Errorf("expected ErrEmailExists, got %v", err)
		}
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := a.Register(ctx, "new@clinic.test", "New", "short")
		if !errors.Is(err, ErrWeakPassword) {
			t.Errorf("expected ErrWeakPassword, got %v", err)
		}
	})

	t.Run("authenticate", func(t *testing.T) {
		got, err := a.Authenticate(ctx, "ADMIN@clinic.test", "correct horse")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if got.ID != user.ID {
			t.Errorf("expected user %s, got %s", user.ID, got.ID)
		}
		if _, err := a.Authenticate(ctx, "admin@clinic.test", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("lookup and delete", func(t *testing.T) {
		if _, err := a.Lookup(ctx, "admin@clinic.test"); err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if err := a.Delete(ctx, user.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := a.Lookup(ctx, "admin@clinic.test"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
		if err := a.Delete(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound on second delete, got %v", err)
		}
	})
}

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	user := &models.User{ID: "user-1", Email: "a@b.test"}

	pair, err := m.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if pair.ExpiresIn != 3600 {
		t.Errorf("expected ExpiresIn 3600, got %d", pair.ExpiresIn)
	}

	claims, err := m.Validate(pair.IDToken)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "a@b.test" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	t.Run("refresh token is not an ID token", func(t *testing.T) {
		if _, err := m.Validate(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
		if _, err := m.ValidateRefresh(pair.IDToken); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("refresh", func(t *testing.T) {
		claims, err := m.ValidateRefresh(pair.RefreshToken)
		if err != nil {
			t.Fatalf("ValidateRefresh failed: %v", err)
		}
		if claims.UserID != user.ID {
			t.Errorf("expected user %s, got %s", user.ID, claims.UserID)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("other-secret", time.Hour, time.Hour)
		if _, err := other.Validate(pair.IDToken); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { m.now = time.Now }()
		if _, err := m.Validate(pair.IDToken); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}
