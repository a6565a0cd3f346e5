package outbox

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	enqueueTotal    *prometheus.CounterVec
	dispatchTotal   *prometheus.CounterVec
	deadTotal       *prometheus.CounterVec
	dispatchLatency *prometheus.HistogramVec
	pending         *prometheus.GaugeVec
	dead            *prometheus.GaugeVec
	relayLeader     *prometheus.GaugeVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		enqueueTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentencing",
			Subsystem: "outbox",
			Name:      "enqueue_total",
			Help:      "Messages written to the outbox.",
		}, []string{"table", "topic"}),
		dispatchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentencing",
			Subsystem: "outbox",
			Name:      "dispatch_total",
			Help:      "Delivery attempts by result.",
		}, []string{"table", "topic", "result"}),
		deadTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentencing",
			Subsystem: "outbox",
			Name:      "dead_total",
			Help:      "Messages that exhausted their delivery attempts.",
		}, []string{"table", "topic"}),
		// Import deliveries run a whole loader, so buckets reach into minutes.
		dispatchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sentencing",
			Subsystem: "outbox",
			Name:      "dispatch_latency_seconds",
			Help:      "Delivery latency.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"table", "topic", "result"}),
		pending: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sentencing",
			Subsystem: "outbox",
			Name:      "pending",
			Help:      "Undelivered messages that still have attempts left.",
		}, []string{"table"}),
		dead: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sentencing",
			Subsystem: "outbox",
			Name:      "dead",
			Help:      "Undelivered messages with no attempts left.",
		}, []string{"table"}),
		relayLeader: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sentencing",
			Subsystem: "outbox",
			Name:      "relay_leader",
			Help:      "1 while this instance holds the relay lock for a table.",
		}, []string{"table"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
