package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/medpay/pkg/api"
)

var rpcDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "medpay",
	Subsystem: "rpc",
	Name:      "duration_seconds",
	Help:      "Duration of Connect RPCs by procedure and code.",
	Buckets:   prometheus.DefBuckets,
}, []string{"procedure", "code"})

func init() {
	prometheus.MustRegister(rpcDuration)
}

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// It logs the procedure name, user ID, duration, and any error codes/messages,
// and records the call in the medpay_rpc_duration_seconds histogram.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			userID := GetUserID(ctx) // empty if pre-auth

			resp, err := next(ctx, req)

			elapsed := time.Since(start)
			duration := elapsed.Milliseconds()
			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					slog.Warn("RPC error",
						"procedure", procedure,
						"code", connectErr.Code(),
						"kind", connectErr.Meta().Get(api.ErrorKindHeader),
						"error", connectErr.Message(),
						"user_id", userID,
						"duration_ms", duration,
					)
				} else {
					slog.Error("RPC error",
						"procedure", procedure,
						"error", err,
						"user_id", userID,
						"duration_ms", duration,
					)
				}
			} else {
				slog.Info("RPC ok",
					"procedure", procedure,
					"user_id", userID,
					"duration_ms", duration,
				)
			}
			rpcDuration.WithLabelValues(procedure, code).Observe(elapsed.Seconds())

			return resp, err
		}
	}
}
