package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const AuthServiceName = "medpay.v1.AuthService"

const (
	AuthServiceRegisterProcedure       = "/medpay.v1.AuthService/Register"
	AuthServiceLoginProcedure          = "/medpay.v1.AuthService/Login"
	AuthServiceRefreshTokenProcedure   = "/medpay.v1.AuthService/RefreshToken"
	AuthServiceDeleteAccountProcedure  = "/medpay.v1.AuthService/DeleteAccount"
	AuthServiceGetCurrentUserProcedure = "/medpay.v1.AuthService/GetCurrentUser"
)

// AuthServiceHandler is implemented by the identity service.
type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error)
	RefreshToken(context.Context, *connect.Request[RefreshTokenRequest]) (*connect.Response[RefreshTokenResponse], error)
	DeleteAccount(context.Context, *connect.Request[DeleteAccountRequest]) (*connect.Response[DeleteAccountResponse], error)
	GetCurrentUser(context.Context, *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error)
}

func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	s := newServiceMux(AuthServiceName, opts)
	handle(s, AuthServiceRegisterProcedure, svc.Register)
	handle(s, AuthServiceLoginProcedure, svc.Login)
	handle(s, AuthServiceRefreshTokenProcedure, svc.RefreshToken)
	handle(s, AuthServiceDeleteAccountProcedure, svc.DeleteAccount)
	handle(s, AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser)
	return s.routes()
}

// AuthServiceClient is a client for the medpay.v1.AuthService service.
type AuthServiceClient struct {
	register       *connect.Client[RegisterRequest, RegisterResponse]
	login          *connect.Client[LoginRequest, LoginResponse]
	refreshToken   *connect.Client[RefreshTokenRequest, RefreshTokenResponse]
	deleteAccount  *connect.Client[DeleteAccountRequest, DeleteAccountResponse]
	getCurrentUser *connect.Client[GetCurrentUserRequest, GetCurrentUserResponse]
}

func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &AuthServiceClient{
		register:       newClient[RegisterRequest, RegisterResponse](httpClient, baseURL, AuthServiceRegisterProcedure, opts),
		login:          newClient[LoginRequest, LoginResponse](httpClient, baseURL, AuthServiceLoginProcedure, opts),
		refreshToken:   newClient[RefreshTokenRequest, RefreshTokenResponse](httpClient, baseURL, AuthServiceRefreshTokenProcedure, opts),
		deleteAccount:  newClient[DeleteAccountRequest, DeleteAccountResponse](httpClient, baseURL, AuthServiceDeleteAccountProcedure, opts),
		getCurrentUser: newClient[GetCurrentUserRequest, GetCurrentUserResponse](httpClient, baseURL, AuthServiceGetCurrentUserProcedure, opts),
	}
}

func (c *AuthServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *AuthServiceClient) RefreshToken(ctx context.Context, req *connect.Request[RefreshTokenRequest]) (*connect.Response[RefreshTokenResponse], error) {
	return c.refreshToken.CallUnary(ctx, req)
}

func (c *AuthServiceClient) DeleteAccount(ctx context.Context, req *connect.Request[DeleteAccountRequest]) (*connect.Response[DeleteAccountResponse], error) {
	return c.deleteAccount.CallUnary(ctx, req)
}

func (c *AuthServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}
