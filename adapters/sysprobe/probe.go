// Package sysprobe reads CPU, memory and battery levels of the host.
package sysprobe

import (
	"context"
	"fmt"
	"time"

	"github.com/distatus/battery"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/voiceast/server/internal/monitor"
)

// DefaultCPUWindow is how long CPU usage is measured per sample
const DefaultCPUWindow = time.Second

// Probe implements monitor.Probe
type Probe struct {
	cpuWindow  time.Duration
	batteries  func() ([]*battery.Battery, error)
	logger     *zap.Logger
	warnedOnce bool
}

var _ monitor.Probe = (*Probe)(nil)

// New creates a probe
func New(logger *zap.Logger) *Probe {
	return &Probe{
		cpuWindow: DefaultCPUWindow,
		batteries: battery.GetAll,
		logger:    logger,
	}
}

// Sample implements monitor.Probe
func (p *Probe) Sample(ctx context.Context) (monitor.Sample, error) {
	percents, err := cpu.PercentWithContext(ctx, p.cpuWindow, false)
	if err != nil {
		return monitor.Sample{}, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return monitor.Sample{}, fmt.Errorf("failed to read memory usage: %w", err)
	}

	sample := monitor.Sample{MemoryPercent: vm.UsedPercent}
	if len(percents) > 0 {
		sample.CPUPercent = percents[0]
	}

	batteries, err := p.batteries()
	if err != nil && !p.warnedOnce {
		// partial errors are common on desktops, so only the first one is logged
		p.logger.Debug("Battery information incomplete", zap.Error(err))
		p.warnedOnce = true
	}
	sample.Battery = batteryStatus(batteries)

	return sample, nil
}

// batteryStatus combines all batteries into one reading, nil when there are none
func batteryStatus(batteries []*battery.Battery) *monitor.BatteryStatus {
	var current, full float64
	plugged := true
	found := false

	for _, b := range batteries {
		if b == nil || b.Full <= 0 {
			continue
		}
		found = true
		current += b.Current
		full += b.Full
		if b.State.Raw == battery.Discharging {
			plugged = false
		}
	}

	if !found {
		return nil
	}
	return &monitor.BatteryStatus{
		Percent: current / full * 100,
		Plugged: plugged,
	}
}
