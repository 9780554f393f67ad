package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const PartyServiceName = "medpay.v1.PartyService"

const (
	PartyServiceCreatePartyProcedure = "/medpay.v1.PartyService/CreateParty"
	PartyServiceGetPartyProcedure    = "/medpay.v1.PartyService/GetParty"
	PartyServiceListPartiesProcedure = "/medpay.v1.PartyService/ListParties"
	PartyServiceDeletePartyProcedure = "/medpay.v1.PartyService/DeleteParty"
)

// PartyServiceHandler is implemented by the clinic/patient profile service.
type PartyServiceHandler interface {
	CreateParty(context.Context, *connect.Request[CreatePartyRequest]) (*connect.Response[CreatePartyResponse], error)
	GetParty(context.Context, *connect.Request[GetPartyRequest]) (*connect.Response[GetPartyResponse], error)
	ListParties(context.Context, *connect.Request[ListPartiesRequest]) (*connect.Response[ListPartiesResponse], error)
	DeleteParty(context.Context, *connect.Request[DeletePartyRequest]) (*connect.Response[DeletePartyResponse], error)
}

// NewPartyServiceHandler builds an HTTP handler from the service implementation.
func NewPartyServiceHandler(svc PartyServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	s := newServiceMux(PartyServiceName, opts)
	handle(s, PartyServiceCreatePartyProcedure, svc.CreateParty)
	handle(s, PartyServiceGetPartyProcedure, svc.GetParty)
	handle(s, PartyServiceListPartiesProcedure, svc.ListParties)
	handle(s, PartyServiceDeletePartyProcedure, svc.DeleteParty)
	return s.routes()
}

// PartyServiceClient is a client for the medpay.v1.PartyService service.
type PartyServiceClient struct {
	createParty *connect.Client[CreatePartyRequest, CreatePartyResponse]
	getParty    *connect.Client[GetPartyRequest, GetPartyResponse]
	listParties *connect.Client[ListPartiesRequest, ListPartiesResponse]
	deleteParty *connect.Client[DeletePartyRequest, DeletePartyResponse]
}

func NewPartyServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PartyServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &PartyServiceClient{
		createParty: newClient[CreatePartyRequest, CreatePartyResponse](httpClient, baseURL, PartyServiceCreatePartyProcedure, opts),
		getParty:    newClient[GetPartyRequest, GetPartyResponse](httpClient, baseURL, PartyServiceGetPartyProcedure, opts),
		listParties: newClient[ListPartiesRequest, ListPartiesResponse](httpClient, baseURL, PartyServiceListPartiesProcedure, opts),
		deleteParty: newClient[DeletePartyRequest, DeletePartyResponse](httpClient, baseURL, PartyServiceDeletePartyProcedure, opts),
	}
}

func (c *PartyServiceClient) CreateParty(ctx context.Context, req *connect.Request[CreatePartyRequest]) (*connect.Response[CreatePartyResponse], error) {
	return c.createParty.CallUnary(ctx, req)
}

func (c *PartyServiceClient) GetParty(ctx context.Context, req *connect.Request[GetPartyRequest]) (*connect.Response[GetPartyResponse], error) {
	return c.getParty.CallUnary(ctx, req)
}

func (c *PartyServiceClient) ListParties(ctx context.Context, req *connect.Request[ListPartiesRequest]) (*connect.Response[ListPartiesResponse], error) {
	return c.listParties.CallUnary(ctx, req)
}

func (c *PartyServiceClient) DeleteParty(ctx context.Context, req *connect.Request[DeletePartyRequest]) (*connect.Response[DeletePartyResponse], error) {
	return c.deleteParty.CallUnary(ctx, req)
}
