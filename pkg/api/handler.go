package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// serviceMux routes the procedures of one service.
type serviceMux struct {
	path string
	mux  *http.ServeMux
	opts []connect.HandlerOption
}

func newServiceMux(service string, opts []connect.HandlerOption) *serviceMux {
	return &serviceMux{path: "/" + service + "/", mux: http.NewServeMux(), opts: handlerOptions(opts)}
}

func handle[Req, Res any](s *serviceMux, procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error)) {
	s.mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, s.opts...))
}

func (s *serviceMux) routes() (string, http.Handler) {
	return s.path, s.mux
}

func newClient[Req, Res any](httpClient connect.HTTPClient, baseURL, procedure string, opts []connect.ClientOption) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](httpClient, baseURL+procedure, opts...)
}
