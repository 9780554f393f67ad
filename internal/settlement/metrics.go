package settlement

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type engineMetrics struct {
	settlements    *prometheus.CounterVec
	ledgerConflict prometheus.Counter
	duration       prometheus.Histogram
}

var (
	metricsOnce     sync.Once
	metricsRegistry *engineMetrics
)

func defaultMetrics() *engineMetrics {
	metricsOnce.Do(func() {
		metricsRegistry = &engineMetrics{
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "medpay",
				Subsystem: "settlement",
				Name:      "attempts_total",
				Help:      "Settlement calls by resulting error kind (\"OK\" on success).",
			}, []string{"kind"}),
			ledgerConflict: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "medpay",
				Subsystem: "settlement",
				Name:      "ledger_conflicts_total",
				Help:      "Broadcast transfers whose ledger update failed and need reconciliation.",
			}),
			duration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "medpay",
				Subsystem: "settlement",
				Name:      "duration_seconds",
				Help:      "Wall time of Settle calls.",
				Buckets:   prometheus.DefBuckets,
			}),
		}
		prometheus.MustRegister(
			metricsRegistry.settlements,
			metricsRegistry.ledgerConflict,
			metricsRegistry.duration,
		)
	})
	return metricsRegistry
}
