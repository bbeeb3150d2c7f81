// Package metrics holds the Prometheus collectors for domain operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics contains the domain client collectors.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New creates the collectors without registering them.
func New() *Metrics {
	return &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gqldomain",
				Subsystem: "operations",
				Name:      "total",
				Help:      "Total number of domain operations by result",
			},
			[]string{"domain", "operation", "result"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gqldomain",
				Subsystem: "operations",
				Name:      "duration_seconds",
				Help:      "Domain operation duration in seconds, including field set resolution",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"domain", "operation"},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.OperationsTotal, m.OperationDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveOperation records one finished operation. It is a no-op on a nil
// receiver.
func (m *Metrics) ObserveOperation(domain, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.OperationsTotal.WithLabelValues(domain, operation, result).Inc()
	m.OperationDuration.WithLabelValues(domain, operation).Observe(time.Since(start).Seconds())
}
