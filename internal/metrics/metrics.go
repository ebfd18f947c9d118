// Package metrics exposes Prometheus metrics for turns, synthesis and alerts.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voiceast"

// Turn paths
const (
	PathFastPath = "fast_path"
	PathResolver = "resolver"
	PathStream   = "audio_stream"
	PathVision   = "vision"
	PathGreeting = "greeting"
)

// Synthesis outcomes
const (
	SynthesisOK      = "ok"
	SynthesisEmpty   = "empty"
	SynthesisTimeout = "timeout"
)

// Metrics holds all Prometheus collectors of the server.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	TurnDuration      *prometheus.HistogramVec
	TurnsTotal        *prometheus.CounterVec
	SynthesisTotal    *prometheus.CounterVec
	AlertsTotal       *prometheus.CounterVec
	ConnectionsActive prometheus.Gauge
}

// New creates a Metrics instance with its own registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	turnDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time from inbound command to terminal result",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30},
		},
		[]string{"path"},
	)

	turnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of completed turns",
		},
		[]string{"path", "status"},
	)

	synthesisTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_total",
			Help:      "Speech synthesis attempts by outcome",
		},
		[]string{"outcome"},
	)

	alertsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "System alerts broadcast to clients",
		},
		[]string{"category"},
	)

	connectionsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of open websocket connections",
		},
	)

	registry.MustRegister(
		turnDuration,
		turnsTotal,
		synthesisTotal,
		alertsTotal,
		connectionsActive,
	)

	return &Metrics{
		registry:          registry,
		TurnDuration:      turnDuration,
		TurnsTotal:        turnsTotal,
		SynthesisTotal:    synthesisTotal,
		AlertsTotal:       alertsTotal,
		ConnectionsActive: connectionsActive,
	}
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTurn records one completed turn
func (m *Metrics) RecordTurn(path string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.TurnsTotal.WithLabelValues(path, status).Inc()
	m.TurnDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordSynthesis records the outcome of one synthesis call
func (m *Metrics) RecordSynthesis(outcome string) {
	if m == nil {
		return
	}
	m.SynthesisTotal.WithLabelValues(outcome).Inc()
}

// RecordAlert records a broadcast alert
func (m *Metrics) RecordAlert(category string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(category).Inc()
}

// ConnectionOpened increments the open connection gauge
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ConnectionsActive.Inc()
}

// ConnectionClosed decrements the open connection gauge
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ConnectionsActive.Dec()
}
