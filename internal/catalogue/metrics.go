package catalogue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	skuAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "backoffice",
		Subsystem: "catalogue",
		Name:      "sku_attempts",
		Help:      "Candidates drawn before an unused SKU was found.",
		Buckets:   []float64{1, 2, 3, 5, 10, 25, 50, 100},
	})

	skuExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "backoffice",
		Subsystem: "catalogue",
		Name:      "sku_exhausted_total",
		Help:      "SKU generations that gave up after the attempt limit.",
	})

	// BarcodesAllocated counts barcodes drawn from the pool, by outcome.
	BarcodesAllocated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backoffice",
		Subsystem: "catalogue",
		Name:      "barcodes_allocated_total",
		Help:      "Barcode pool draws by result.",
	}, []string{"result"})

	// SearchRequests counts range searches by the source that answered.
	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backoffice",
		Subsystem: "catalogue",
		Name:      "search_requests_total",
		Help:      "Range searches by answering source.",
	}, []string{"source"})
)
