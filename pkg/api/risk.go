package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const RiskServiceName = "medpay.v1.RiskService"

const (
	RiskServiceAssessRiskProcedure    = "/medpay.v1.RiskService/AssessRisk"
	RiskServiceGetRiskStatusProcedure = "/medpay.v1.RiskService/GetRiskStatus"
)

// RiskServiceHandler is implemented by the advisory risk service.
type RiskServiceHandler interface {
	AssessRisk(context.Context, *connect.Request[AssessRiskRequest]) (*connect.Response[AssessRiskResponse], error)
	GetRiskStatus(context.Context, *connect.Request[GetRiskStatusRequest]) (*connect.Response[GetRiskStatusResponse], error)
}

func NewRiskServiceHandler(svc RiskServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	s := newServiceMux(RiskServiceName, opts)
	handle(s, RiskServiceAssessRiskProcedure, svc.AssessRisk)
	handle(s, RiskServiceGetRiskStatusProcedure, svc.GetRiskStatus)
	return s.routes()
}

// RiskServiceClient is a client for the medpay.v1.RiskService service.
type RiskServiceClient struct {
	assessRisk    *connect.Client[AssessRiskRequest, AssessRiskResponse]
	getRiskStatus *connect.Client[GetRiskStatusRequest, GetRiskStatusResponse]
}

func NewRiskServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *RiskServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &RiskServiceClient{
		assessRisk:    newClient[AssessRiskRequest, AssessRiskResponse](httpClient, baseURL, RiskServiceAssessRiskProcedure, opts),
		getRiskStatus: newClient[GetRiskStatusRequest, GetRiskStatusResponse](httpClient, baseURL, RiskServiceGetRiskStatusProcedure, opts),
	}
}

func (c *RiskServiceClient) AssessRisk(ctx context.Context, req *connect.Request[AssessRiskRequest]) (*connect.Response[AssessRiskResponse], error) {
	return c.assessRisk.CallUnary(ctx, req)
}

func (c *RiskServiceClient) GetRiskStatus(ctx context.Context, req *connect.Request[GetRiskStatusRequest]) (*connect.Response[GetRiskStatusResponse], error) {
	return c.getRiskStatus.CallUnary(ctx, req)
}
