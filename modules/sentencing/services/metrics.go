package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	records  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	reports  prometheus.Counter
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		records: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentencing",
			Subsystem: "import",
			Name:      "records_total",
			Help:      "Imported records by outcome.",
		}, []string{"entity", "outcome"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sentencing",
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Time spent fetching and loading one import file.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"entity", "result"}),
		reports: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "sentencing",
			Subsystem: "import",
			Name:      "reports_total",
			Help:      "Messages sent to the alerting channel.",
		}),
	}
})
