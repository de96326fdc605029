package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "crmsync"

var (
	// Registry is the dedicated Prometheus registry served on /metrics.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, route and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// WebhookDeliveries counts outbound delivery outcomes by event and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "webhook_deliveries_total", Help: "Outbound webhook deliveries by event and status."},
		[]string{"event", "status"},
	)
	// WebhookLatency tracks outbound delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "webhook_delivery_latency_ms", Help: "Outbound webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event", "status"},
	)

	// InboundEvents counts reconciled inbound events by external object and outcome
	InboundEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "inbound_events_total", Help: "Inbound webhook events by object and outcome."},
		[]string{"object", "outcome"},
	)
)

var regOnce sync.Once

// RegisterDefault registers collectors to Registry. Safe to call more than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		Registry.MustRegister(InboundEvents)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// ObserveDelivery records one outbound delivery attempt.
func ObserveDelivery(event, status string, elapsed time.Duration) {
	WebhookDeliveries.WithLabelValues(event, status).Inc()
	WebhookLatency.WithLabelValues(event, status).Observe(float64(elapsed.Milliseconds()))
}

// ObserveInbound records the outcome of one inbound event.
func ObserveInbound(object, outcome string) {
	if object == "" {
		object = "unknown"
	}
	InboundEvents.WithLabelValues(object, outcome).Inc()
}
