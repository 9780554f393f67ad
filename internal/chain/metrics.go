package chain

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type gatewayMetrics struct {
	rpcDuration *prometheus.HistogramVec
}

var (
	gatewayMetricsOnce sync.Once
	gatewayRegistry    *gatewayMetrics
)

func defaultGatewayMetrics() *gatewayMetrics {
	gatewayMetricsOnce.Do(func() {
		gatewayRegistry = &gatewayMetrics{
			rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "medpay",
				Subsystem: "chain",
				Name:      "rpc_duration_seconds",
				Help:      "Latency of JSON-RPC calls to the chain node by method and result.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "result"}),
		}
		prometheus.MustRegister(gatewayRegistry.rpcDuration)
	})
	return gatewayRegistry
}
