package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wadispatch",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wadispatch",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	sessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wadispatch",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Messaging session lifecycle transitions.",
		},
		[]string{"from", "to"},
	)
	deliveryOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wadispatch",
			Subsystem: "delivery",
			Name:      "outcomes_total",
			Help:      "Delivery attempts by outcome kind.",
		},
		[]string{"kind"},
	)
	deliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wadispatch",
			Subsystem: "delivery",
			Name:      "duration_seconds",
			Help:      "Delivery duration in seconds, connect through close.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 90},
		},
		[]string{"kind"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			sessionTransitions,
			deliveryOutcomes,
			deliveryDuration,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordSessionTransition(from, to string) {
	RegisterMetrics()
	sessionTransitions.WithLabelValues(from, to).Inc()
}

func RecordDelivery(kind string, duration time.Duration) {
	RegisterMetrics()
	deliveryOutcomes.WithLabelValues(kind).Inc()
	deliveryDuration.WithLabelValues(kind).Observe(duration.Seconds())
}
