package editor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PageSubmissions counts page posts by page and result (saved, invalid,
// rejected, failed).
var PageSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "backoffice",
	Subsystem: "editor",
	Name:      "page_submissions_total",
	Help:      "Product editor page submissions.",
}, []string{"page", "result"})
