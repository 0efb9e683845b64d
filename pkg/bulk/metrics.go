package bulk

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/surrealdb/surrealmigrate/pkg/models"
)

const (
	namespace = "surrealmigrate"
	subsystem = "bulk"
)

// Metrics are the prometheus collectors updated by a Writer.
type Metrics struct {
	batches    prometheus.Counter
	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	retries    prometheus.Counter
	backoff    prometheus.Histogram
}

// NewMetrics registers the bulk writer collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		batches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "batches_total",
			Help:      "Number of batches submitted, not counting retries",
		}),
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operations_total",
			Help:      "Number of operations that succeeded, by kind",
		}, []string{"kind"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "failures_total",
			Help:      "Number of failed operation results, by class",
		}, []string{"class"}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "retries_total",
			Help:      "Number of resubmissions of failed operations",
		}),
		backoff: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "backoff_seconds",
			Help:      "Time spent waiting before resubmitting failed operations",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}

func (m *Metrics) batch() {
	if m != nil {
		m.batches.Inc()
	}
}

func (m *Metrics) succeeded(kind models.OperationKind) {
	if m != nil {
		m.operations.WithLabelValues(string(kind)).Inc()
	}
}

func (m *Metrics) failed(class models.ResultClass) {
	if m != nil {
		m.failures.WithLabelValues(class.String()).Inc()
	}
}

func (m *Metrics) retry(wait time.Duration) {
	if m != nil {
		m.retries.Inc()
		m.backoff.Observe(wait.Seconds())
	}
}
