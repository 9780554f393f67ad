package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/medpay/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

const (
	tokenTypeID      = "id"
	tokenTypeRefresh = "refresh"
)

// JWTManager issues and validates HS256 session tokens.
type JWTManager struct {
	secretKey       []byte
	tokenDuration   time.Duration
	refreshDuration time.Duration
	now             func() time.Time
}

// Claims represents the custom JWT claims for a user session.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is the result of a sign-in.
type TokenPair struct {
	IDToken      string
	RefreshToken string
	// ExpiresIn is the ID token lifetime in seconds.
	ExpiresIn int64
}

// NewJWTManager creates a new JWT manager.
// tokenDuration bounds ID tokens, refreshDuration refresh tokens.
func NewJWTManager(secretKey string, tokenDuration, refreshDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:       []byte(secretKey),
		tokenDuration:   tokenDuration,
		refreshDuration: refreshDuration,
		now:             time.Now,
	}
}

// Issue creates an ID token and a refresh token for user.
func (m *JWTManager) Issue(user *models.User) (*TokenPair, error) {
	idToken, err := m.sign(user.ID, user.Email, tokenTypeID, m.tokenDuration)
	if err != nil {
		return nil, err
	}
	refreshToken, err := m.sign(user.ID, user.Email, tokenTypeRefresh, m.refreshDuration)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		IDToken:      idToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(m.tokenDuration / time.Second),
	}, nil
}

func (m *JWTManager) sign(userID, email, tokenType string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Validate parses an ID token, returning the claims if valid.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	return m.parse(tokenString, tokenTypeID)
}

// ValidateRefresh parses a refresh token, returning the claims if valid.
// Callers must confirm the user still exists before issuing new tokens.
func (m *JWTManager) ValidateRefresh(refreshToken string) (*Claims, error) {
	return m.parse(refreshToken, tokenTypeRefresh)
}

func (m *JWTManager) parse(tokenString, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
