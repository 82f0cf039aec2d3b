// Package metrics records validation outcomes as Prometheus metrics on a
// private registry and writes them in the node exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "modlint"

// Collector holds the validation metrics. It satisfies validate.Observer.
type Collector struct {
	registry    *prometheus.Registry
	validations *prometheus.CounterVec
	issues      *prometheus.CounterVec
	duration    prometheus.Histogram
}

// New registers the validation metrics on registry. A nil registry gets a
// fresh one.
func New(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	c := &Collector{
		registry: registry,
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Manifest validations by result (valid or invalid).",
		}, []string{"result"}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_total",
			Help:      "Reported issues by severity.",
		}, []string{"severity"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_duration_seconds",
			Help:      "Time spent validating one manifest.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
	registry.MustRegister(c.validations, c.issues, c.duration)
	return c
}

// ObserveValidation records one validation run.
func (c *Collector) ObserveValidation(valid bool, errs, warns int, elapsed time.Duration) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	c.validations.WithLabelValues(result).Inc()
	c.issues.WithLabelValues("error").Add(float64(errs))
	c.issues.WithLabelValues("warning").Add(float64(warns))
	c.duration.Observe(elapsed.Seconds())
}

// Registry returns the registry the metrics live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteFile writes all metrics to path in the textfile format.
func (c *Collector) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
