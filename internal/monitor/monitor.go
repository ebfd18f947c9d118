// Package monitor periodically samples host resources and broadcasts an
// alert turn when one crosses its threshold.
package monitor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/voiceast/server/domain"
	"github.com/voiceast/server/domain/entities"
	"github.com/voiceast/server/internal/metrics"
	"github.com/voiceast/server/internal/synthesis"
)

// Thresholds
const (
	CPUThreshold     = 90.0
	RAMThreshold     = 95.0
	BatteryThreshold = 20.0
)

// Defaults
const (
	DefaultInterval = 60 * time.Second
	DefaultCooldown = 300 * time.Second
)

// BatteryStatus is the battery state of the host
type BatteryStatus struct {
	Percent float64
	Plugged bool
}

// Sample is one reading of the host resources. Battery is nil on hosts
// without a battery.
type Sample struct {
	CPUPercent    float64
	MemoryPercent float64
	Battery       *BatteryStatus
}

// Probe reads host resources
type Probe interface {
	Sample(ctx context.Context) (Sample, error)
}

// Broadcaster fans a message out to every connected client
type Broadcaster interface {
	Broadcast(message interface{})
}

// Config tunes the monitor loop
type Config struct {
	Interval time.Duration
	Cooldown time.Duration
}

// Monitor is an independent periodic task. It touches no session state and
// talks to connections only through the Broadcaster.
type Monitor struct {
	probe       Probe
	gate        *synthesis.Gate
	broadcaster Broadcaster
	metrics     *metrics.Metrics
	config      Config

	now        func() time.Time
	lastAlerts map[entities.AlertCategory]time.Time

	stopChan chan struct{}
	logger   *zap.Logger
}

// New creates a monitor. Zero config values fall back to the defaults.
func New(probe Probe, gate *synthesis.Gate, broadcaster Broadcaster, m *metrics.Metrics, config Config, logger *zap.Logger) *Monitor {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultCooldown
	}
	return &Monitor{
		probe:       probe,
		gate:        gate,
		broadcaster: broadcaster,
		metrics:     m,
		config:      config,
		now:         time.Now,
		lastAlerts:  make(map[entities.AlertCategory]time.Time),
		stopChan:    make(chan struct{}),
		logger:      logger,
	}
}

// WithClock replaces the clock used for cooldown bookkeeping
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

// Start begins the background monitoring loop
func (m *Monitor) Start() {
	go m.loop()
	m.logger.Info("System monitor started",
		zap.Duration("interval", m.config.Interval),
		zap.Duration("cooldown", m.config.Cooldown))
}

// Stop stops the monitoring loop
func (m *Monitor) Stop() {
	close(m.stopChan)
	m.logger.Info("System monitor stopped")
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.config.Interval)
			m.RunOnce(ctx)
			cancel()
		}
	}
}

// RunOnce samples once and broadcasts at most one alert
func (m *Monitor) RunOnce(ctx context.Context) (entities.Alert, bool) {
	sample, err := m.probe.Sample(ctx)
	if err != nil {
		m.logger.Warn("Failed to sample system resources", zap.Error(err))
		return entities.Alert{}, false
	}

	alert, ok := m.Evaluate(sample)
	if !ok {
		return entities.Alert{}, false
	}

	m.logger.Warn("System alert",
		zap.String("category", string(alert.Category)),
		zap.String("message", alert.Message))

	alert.Audio = m.gate.Synthesize(ctx, alert.Message, string(entities.LanguageEnglish), synthesis.Unbounded)

	msg := domain.NewResultMessage(true, alert.Message, alert.Audio, "", map[string]interface{}{
		"intent": entities.IntentSystemAlert,
	})
	m.broadcaster.Broadcast(msg)
	m.metrics.RecordAlert(string(alert.Category))
	return alert, true
}

// Evaluate applies thresholds in priority order cpu, ram, battery and the
// per category cooldown. A returned alert starts its category's cooldown.
func (m *Monitor) Evaluate(sample Sample) (entities.Alert, bool) {
	var (
		category entities.AlertCategory
		message  string
	)

	switch {
	case sample.CPUPercent > CPUThreshold && m.shouldAlert(entities.AlertCPU):
		category = entities.AlertCPU
		message = fmt.Sprintf("Sir, CPU usage is critical at %s percent.", percent(sample.CPUPercent))
	case sample.MemoryPercent > RAMThreshold && m.shouldAlert(entities.AlertRAM):
		category = entities.AlertRAM
		message = fmt.Sprintf("Sir, Memory usage is very high at %s percent.", percent(sample.MemoryPercent))
	case sample.Battery != nil && sample.Battery.Percent < BatteryThreshold &&
		!sample.Battery.Plugged && m.shouldAlert(entities.AlertBattery):
		category = entities.AlertBattery
		message = fmt.Sprintf("Sir, Battery is low at %s percent. Please plug in.", percent(sample.Battery.Percent))
	default:
		return entities.Alert{}, false
	}

	now := m.now()
	m.lastAlerts[category] = now
	return entities.Alert{Category: category, Message: message, CreatedAt: now}, true
}

func (m *Monitor) shouldAlert(category entities.AlertCategory) bool {
	last, ok := m.lastAlerts[category]
	if !ok {
		return true
	}
	return m.now().Sub(last) > m.config.Cooldown
}

// percent renders with at most one decimal, dropping a trailing .0
func percent(v float64) string {
	return strconv.FormatFloat(float64(int64(v*10+0.5))/10, 'f', -1, 64)
}
