// Package metrics exposes Prometheus instruments for conversions and the
// shared encoder. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for conversions.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	Conversions        *prometheus.CounterVec
	ConversionDuration *prometheus.HistogramVec
	EngineLoads        *prometheus.CounterVec
	EngineResets       prometheus.Counter
	Items              *prometheus.GaugeVec
}

// New creates and registers all metrics on registry.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Conversions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filewell_conversions_total",
				Help: "Total number of finished conversions",
			},
			[]string{"category", "target", "outcome"},
		),
		ConversionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filewell_conversion_duration_seconds",
				Help:    "Wall time spent in a single conversion",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 15, 60, 300},
			},
			[]string{"category"},
		),
		EngineLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filewell_engine_loads_total",
				Help: "Encoder engine initialization attempts",
			},
			[]string{"result"},
		),
		EngineResets: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "filewell_engine_resets_total",
				Help: "Encoder engine instances discarded after corruption",
			},
		),
		Items: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "filewell_items",
				Help: "Queued items by conversion status",
			},
			[]string{"status"},
		),
	}
}

// ObserveConversion records one finished conversion.
func (m *Metrics) ObserveConversion(category, target, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Conversions.WithLabelValues(category, target, outcome).Inc()
	m.ConversionDuration.WithLabelValues(category).Observe(elapsed.Seconds())
}

// IncEngineLoad records an engine initialization attempt.
func (m *Metrics) IncEngineLoad(result string) {
	if m == nil {
		return
	}
	m.EngineLoads.WithLabelValues(result).Inc()
}

// IncEngineReset records a poisoned engine being discarded.
func (m *Metrics) IncEngineReset() {
	if m == nil {
		return
	}
	m.EngineResets.Inc()
}

// MoveItem shifts one item between status gauges. Empty from or to means
// the item was admitted or removed.
func (m *Metrics) MoveItem(from, to string) {
	if m == nil {
		return
	}
	if from != "" {
		m.Items.WithLabelValues(from).Dec()
	}
	if to != "" {
		m.Items.WithLabelValues(to).Inc()
	}
}
