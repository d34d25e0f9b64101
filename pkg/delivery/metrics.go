package delivery

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NewMetricsHook returns a Hook exporting delivery counters and latency to
// the given Prometheus registerer. Pass the hook to WithHook.
func NewMetricsHook(reg prometheus.Registerer) Hook {
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auditkit",
		Subsystem: "delivery",
		Name:      "attempts_total",
		Help:      "Delivery attempts by sink target and outcome.",
	}, []string{"target", "outcome"})

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "auditkit",
		Subsystem: "delivery",
		Name:      "duration_seconds",
		Help:      "Delivery attempt latency by sink target.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"target"})

	reg.MustRegister(deliveries, latency)

	return func(r Result) {
		outcome := "success"
		if r.Err != nil {
			outcome = "failure"
		}
		deliveries.WithLabelValues(r.Target, outcome).Inc()
		latency.WithLabelValues(r.Target).Observe(r.Duration.Seconds())
	}
}
