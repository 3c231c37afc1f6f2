package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agenttrader",
			Subsystem: "upstream",
			Name:      "latency_seconds",
			Help:      "Latency of market data upstream requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"upstream", "path"},
	)

	UpstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agenttrader",
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Failed market data upstream requests",
		},
		[]string{"upstream", "path"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(UpstreamLatency, UpstreamErrors)
	})
}

// Observe records one upstream call.
func Observe(upstream, path string, d time.Duration, err error) {
	Register()
	UpstreamLatency.WithLabelValues(upstream, path).Observe(d.Seconds())
	if err != nil {
		UpstreamErrors.WithLabelValues(upstream, path).Inc()
	}
}
