package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const PaymentServiceName = "medpay.v1.PaymentService"

const (
	PaymentServiceCreatePaymentRequestProcedure     = "/medpay.v1.PaymentService/CreatePaymentRequest"
	PaymentServiceGetPaymentRequestProcedure        = "/medpay.v1.PaymentService/GetPaymentRequest"
	PaymentServiceListPaymentRequestsProcedure      = "/medpay.v1.PaymentService/ListPaymentRequests"
	PaymentServiceSettlePaymentRequestProcedure     = "/medpay.v1.PaymentService/SettlePaymentRequest"
	PaymentServiceDeletePaymentRequestProcedure     = "/medpay.v1.PaymentService/DeletePaymentRequest"
	PaymentServiceGetBalanceProcedure               = "/medpay.v1.PaymentService/GetBalance"
	PaymentServiceListSettlementAttemptsProcedure   = "/medpay.v1.PaymentService/ListSettlementAttempts"
	PaymentServiceResolveSettlementAttemptProcedure = "/medpay.v1.PaymentService/ResolveSettlementAttempt"
)

// PaymentServiceHandler is implemented by the payment request service.
type PaymentServiceHandler interface {
	CreatePaymentRequest(context.Context, *connect.Request[CreatePaymentRequestRequest]) (*connect.Response[CreatePaymentRequestResponse], error)
	GetPaymentRequest(context.Context, *connect.Request[GetPaymentRequestRequest]) (*connect.Response[GetPaymentRequestResponse], error)
	ListPaymentRequests(context.Context, *connect.Request[ListPaymentRequestsRequest]) (*connect.Response[ListPaymentRequestsResponse], error)
	SettlePaymentRequest(context.Context, *connect.Request[SettlePaymentRequestRequest]) (*connect.Response[SettlePaymentRequestResponse], error)
	DeletePaymentRequest(context.Context, *connect.Request[DeletePaymentRequestRequest]) (*connect.Response[DeletePaymentRequestResponse], error)
	GetBalance(context.Context, *connect.Request[GetBalanceRequest]) (*connect.Response[GetBalanceResponse], error)
	ListSettlementAttempts(context.Context, *connect.Request[ListSettlementAttemptsRequest]) (*connect.Response[ListSettlementAttemptsResponse], error)
	ResolveSettlementAttempt(context.Context, *connect.Request[ResolveSettlementAttemptRequest]) (*connect.Response[ResolveSettlementAttemptResponse], error)
}

// NewPaymentServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler.
func NewPaymentServiceHandler(svc PaymentServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	s := newServiceMux(PaymentServiceName, opts)
	handle(s, PaymentServiceCreatePaymentRequestProcedure, svc.CreatePaymentRequest)
	handle(s, PaymentServiceGetPaymentRequestProcedure, svc.GetPaymentRequest)
	handle(s, PaymentServiceListPaymentRequestsProcedure, svc.ListPaymentRequests)
	handle(s, PaymentServiceSettlePaymentRequestProcedure, svc.SettlePaymentRequest)
	handle(s, PaymentServiceDeletePaymentRequestProcedure, svc.DeletePaymentRequest)
	handle(s, PaymentServiceGetBalanceProcedure, svc.GetBalance)
	handle(s, PaymentServiceListSettlementAttemptsProcedure, svc.ListSettlementAttempts)
	handle(s, PaymentServiceResolveSettlementAttemptProcedure, svc.ResolveSettlementAttempt)
	return s.routes()
}

// PaymentServiceClient is a client for the medpay.v1.PaymentService service.
type PaymentServiceClient struct {
	createPaymentRequest     *connect.Client[CreatePaymentRequestRequest, CreatePaymentRequestResponse]
	getPaymentRequest        *connect.Client[GetPaymentRequestRequest, GetPaymentRequestResponse]
	listPaymentRequests      *connect.Client[ListPaymentRequestsRequest, ListPaymentRequestsResponse]
	settlePaymentRequest     *connect.Client[SettlePaymentRequestRequest, SettlePaymentRequestResponse]
	deletePaymentRequest     *connect.Client[DeletePaymentRequestRequest, DeletePaymentRequestResponse]
	getBalance               *connect.Client[GetBalanceRequest, GetBalanceResponse]
	listSettlementAttempts   *connect.Client[ListSettlementAttemptsRequest, ListSettlementAttemptsResponse]
	resolveSettlementAttempt *connect.Client[ResolveSettlementAttemptRequest, ResolveSettlementAttemptResponse]
}

// NewPaymentServiceClient constructs a client for the medpay.v1.PaymentService
// service. baseURL is the server root, e.g. http://localhost:8080.
func NewPaymentServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PaymentServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &PaymentServiceClient{
		createPaymentRequest:     newClient[CreatePaymentRequestRequest, CreatePaymentRequestResponse](httpClient, baseURL, PaymentServiceCreatePaymentRequestProcedure, opts),
		getPaymentRequest:        newClient[GetPaymentRequestRequest, GetPaymentRequestResponse](httpClient, baseURL, PaymentServiceGetPaymentRequestProcedure, opts),
		listPaymentRequests:      newClient[ListPaymentRequestsRequest, ListPaymentRequestsResponse](httpClient, baseURL, PaymentServiceListPaymentRequestsProcedure, opts),
		settlePaymentRequest:     newClient[SettlePaymentRequestRequest, SettlePaymentRequestResponse](httpClient, baseURL, PaymentServiceSettlePaymentRequestProcedure, opts),
		deletePaymentRequest:     newClient[DeletePaymentRequestRequest, DeletePaymentRequestResponse](httpClient, baseURL, PaymentServiceDeletePaymentRequestProcedure, opts),
		getBalance:               newClient[GetBalanceRequest, GetBalanceResponse](httpClient, baseURL, PaymentServiceGetBalanceProcedure, opts),
		listSettlementAttempts:   newClient[ListSettlementAttemptsRequest, ListSettlementAttemptsResponse](httpClient, baseURL, PaymentServiceListSettlementAttemptsProcedure, opts),
		resolveSettlementAttempt: newClient[ResolveSettlementAttemptRequest, ResolveSettlementAttemptResponse](httpClient, baseURL, PaymentServiceResolveSettlementAttemptProcedure, opts),
	}
}

func (c *PaymentServiceClient) CreatePaymentRequest(ctx context.Context, req *connect.Request[CreatePaymentRequestRequest]) (*connect.Response[CreatePaymentRequestResponse], error) {
	return c.createPaymentRequest.CallUnary(ctx, req)
}

func (c *PaymentServiceClient) GetPaymentRequest(ctx context.Context, req *connect.Request[GetPaymentRequestRequest]) (*connect.Response[GetPaymentRequestResponse], error) {
	return c.getPaymentRequest.CallUnary(ctx, req)
}

func (c *PaymentServiceClient) ListPaymentRequests(ctx context.Context, req *connect.Request[ListPaymentRequestsRequest]) (*connect.Response[ListPaymentRequestsResponse], error) {
	return c.listPaymentRequests.CallUnary(ctx, req)
}

func (c *PaymentServiceClient) SettlePaymentRequest(ctx context.Context, req *connect.Request[SettlePaymentRequestRequest]) (*connect.Response[SettlePaymentRequestResponse], error) {
	return c.settlePaymentRequest.CallUnary(ctx, req)
}

func (c *PaymentServiceClient) DeletePaymentRequest(ctx context.Context, req *connect.Request[DeletePaymentRequestRequest]) (*connect.Response[DeletePaymentRequestResponse], error) {
	return c.deletePaymentRequest.CallUnary(ctx, req)
}

func (c *PaymentServiceClient) GetBalance(ctx context.Context, req *connect.Request[GetBalanceRequest]) (*connect.Response[GetBalanceResponse], error) {
	return c.getBalance.CallUnary(ctx, req)
}

func (c *PaymentServiceClient) ListSettlementAttempts(ctx context.Context, req *connect.Request[ListSettlementAttemptsRequest]) (*connect.Response[ListSettlementAttemptsResponse], error) {
	return c.listSettlementAttempts.CallUnary(ctx, req)
}

func (c *PaymentServiceClient) ResolveSettlementAttempt(ctx context.Context, req *connect.Request[ResolveSettlementAttemptRequest]) (*connect.Response[ResolveSettlementAttemptResponse], error) {
	return c.resolveSettlementAttempt.CallUnary(ctx, req)
}
