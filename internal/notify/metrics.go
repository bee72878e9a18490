package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery outcome labels.
const (
	OutcomeSent        = "sent"
	OutcomeFailed      = "failed"
	OutcomeCircuitOpen = "circuit_open"
)

type Metrics struct {
	Deliveries      *prometheus.CounterVec
	DeliveryLatency prometheus.Histogram
	CircuitOpened   prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Deliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "healthnet_sms_deliveries_total",
			Help: "SMS gateway deliveries by outcome",
		}, []string{"outcome"}),
		DeliveryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "healthnet_sms_delivery_duration_seconds",
			Help:    "Latency of SMS gateway calls",
			Buckets: prometheus.DefBuckets,
		}),
		CircuitOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "healthnet_sms_circuit_opened_total",
			Help: "Times the SMS gateway circuit breaker opened",
		}),
	}
}

func (m *Metrics) IncrementDelivery(outcome string) {
	m.Deliveries.WithLabelValues(outcome).Inc()
}
