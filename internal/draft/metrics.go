package draft

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Promotions counts promote attempts by result: ok, rejected, failed.
	Promotions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backoffice",
		Subsystem: "editor",
		Name:      "promotions_total",
		Help:      "Draft promotions by result.",
	}, []string{"result"})

	// PromoteDuration observes successful promote transactions.
	PromoteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "backoffice",
		Subsystem: "editor",
		Name:      "promote_duration_seconds",
		Help:      "Time spent in the promote transaction.",
		Buckets:   prometheus.DefBuckets,
	})
)
