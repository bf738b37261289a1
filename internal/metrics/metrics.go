package metrics

import (
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry and the outbox relay.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Registry operations by operation and result ("ok" or the error class)
	Operations *prometheus.CounterVec

	// Registry operation latency, including the store commit
	OperationLatency *prometheus.HistogramVec

	// Acquisition prices in the smallest unit
	AcquisitionPrice prometheus.Histogram

	// Outbox deliveries by sink and result
	OutboxDeliveries *prometheus.CounterVec

	// Pending events seen by the last relay poll
	OutboxBacklog prometheus.Gauge

	// Requests rejected by the rate limiter by route group
	RateLimited *prometheus.CounterVec
}

// New creates the registry metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ff_name_registry_operations_total",
			Help: "Total registry operations by operation and result",
		}, []string{"operation", "result"}),

		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ff_name_registry_operation_duration_seconds",
			Help:    "Duration of registry operations including the store commit",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),

		AcquisitionPrice: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ff_name_registry_acquisition_price",
			Help:    "Price paid per acquisition",
			Buckets: prometheus.ExponentialBuckets(1e12, 10, 10), // 1e12 .. 1e21
		}),

		OutboxDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ff_name_registry_outbox_deliveries_total",
			Help: "Outbox deliveries by sink and result",
		}, []string{"sink", "result"}), // sink: "nats", "vanity"

		OutboxBacklog: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ff_name_registry_outbox_backlog",
			Help: "Pending outbox events fetched by the last relay poll",
		}),

		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ff_name_registry_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"group"}),
	}
}

// ObserveOperation records the outcome and duration of a registry operation
func (m *Metrics) ObserveOperation(operation, result string, d time.Duration) {
	if m != nil {
		m.Operations.WithLabelValues(operation, result).Inc()
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// ObserveAcquisitionPrice records the price of a successful acquisition
func (m *Metrics) ObserveAcquisitionPrice(price *big.Int) {
	if m != nil {
		f, _ := new(big.Float).SetInt(price).Float64()
		m.AcquisitionPrice.Observe(f)
	}
}

// IncrementDelivery records one outbox delivery attempt
func (m *Metrics) IncrementDelivery(sink, result string) {
	if m != nil {
		m.OutboxDeliveries.WithLabelValues(sink, result).Inc()
	}
}

// SetOutboxBacklog records the number of pending events
func (m *Metrics) SetOutboxBacklog(count int) {
	if m != nil {
		m.OutboxBacklog.Set(float64(count))
	}
}

// IncrementRateLimited records a rejected request
func (m *Metrics) IncrementRateLimited(group string) {
	if m != nil {
		m.RateLimited.WithLabelValues(group).Inc()
	}
}
