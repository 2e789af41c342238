package validation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Failures is the number of logged failures per runner and level after
	// the latest pass.
	Failures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "backoffice",
		Subsystem: "validation",
		Name:      "failures",
		Help:      "Failed checks logged by the latest validation pass.",
	}, []string{"app", "model", "level"})

	RunnerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backoffice",
		Subsystem: "validation",
		Name:      "runner_errors_total",
		Help:      "Runners aborted because their data could not be loaded or stored.",
	}, []string{"app", "model"})

	CheckPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backoffice",
		Subsystem: "validation",
		Name:      "check_panics_total",
		Help:      "Checks abandoned after panicking.",
	}, []string{"validator", "check"})

	PassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "backoffice",
		Subsystem: "validation",
		Name:      "pass_duration_seconds",
		Help:      "Time taken by a full validation pass.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)
