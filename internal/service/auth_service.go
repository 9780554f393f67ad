package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/medpay/internal/auth"
	"github.com/mmynk/medpay/internal/middleware"
	"github.com/mmynk/medpay/internal/models"
	"github.com/mmynk/medpay/internal/storage"
	"github.com/mmynk/medpay/pkg/api"
)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         UserReader
	logger        *slog.Logger
}

// UserReader loads the full profile of an authenticated user.
type UserReader interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

var _ api.AuthServiceHandler = (*AuthService)(nil)

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users UserReader, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

func toAPITokens(t *auth.TokenPair) *api.Tokens {
	return &api.Tokens{IDToken: t.IDToken, RefreshToken: t.RefreshToken, ExpiresIn: t.ExpiresIn}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	s.logger.Info("Register request", "email", req.Msg.Email)

	if req.Msg.Email == "" || req.Msg.DisplayName == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("email and displayName are required"))
	}

	user, err := s.authenticator.Register(ctx, req.Msg.Email, req.Msg.DisplayName, req.Msg.Password)
	if err != nil {
		s.logger.Error("Registration failed", "email", req.Msg.Email, "error", err)
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		case errors.Is(err, auth.ErrWeakPassword):
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	tokens, err := s.jwtManager.Issue(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return connect.NewResponse(&api.RegisterResponse{User: toAPIUser(user), Tokens: toAPITokens(tokens)}), nil
}

// Login authenticates a user and returns an ID token and a refresh token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	s.logger.Info("Login request", "email", req.Msg.Email)

	if req.Msg.Email == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login failed", "email", req.Msg.Email, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	tokens, err := s.jwtManager.Issue(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)
	return connect.NewResponse(&api.LoginResponse{User: toAPIUser(user), Tokens: toAPITokens(tokens)}), nil
}

// RefreshToken exchanges a refresh token for a new token pair. The account
// must still exist.
func (s *AuthService) RefreshToken(ctx context.Context, req *connect.Request[api.RefreshTokenRequest]) (*connect.Response[api.RefreshTokenResponse], error) {
	claims, err := s.jwtManager.ValidateRefresh(req.Msg.RefreshToken)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("Failed to load user for refresh", "user_id", claims.UserID, "error", err)
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		s.logger.Warn("Refresh token for deleted account", "user_id", claims.UserID)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
	}

	tokens, err := s.jwtManager.Issue(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&api.RefreshTokenResponse{Tokens: toAPITokens(tokens)}), nil
}

// DeleteAccount deletes the authenticated user's account.
func (s *AuthService) DeleteAccount(ctx context.Context, req *connect.Request[api.DeleteAccountRequest]) (*connect.Response[api.DeleteAccountResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	if err := s.authenticator.Delete(ctx, userID); err != nil {
		s.logger.Error("DeleteAccount failed", "user_id", userID, "error", err)
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User account deleted", "user_id", userID)
	return connect.NewResponse(&api.DeleteAccountResponse{}), nil
}

// GetCurrentUser returns the currently authenticated user's information.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.GetCurrentUserResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	s.logger.Info("GetCurrentUser request", "user_id", userID)

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, auth.ErrUserNotFound)
	}
	return connect.NewResponse(&api.GetCurrentUserResponse{User: toAPIUser(user)}), nil
}
