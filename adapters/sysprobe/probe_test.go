package sysprobe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/distatus/battery"
	"go.uber.org/zap/zaptest"
)

func TestBatteryStatus(t *testing.T) {
	tests := []struct {
		name        string
		batteries   []*battery.Battery
		wantNil     bool
		wantPercent float64
		wantPlugged bool
	}{
		{name: "no battery", wantNil: true},
		{name: "unreadable battery", batteries: []*battery.Battery{nil, {Full: 0}}, wantNil: true},
		{
			name:        "discharging",
			batteries:   []*battery.Battery{{Current: 15, Full: 100, State: battery.State{Raw: battery.Discharging}}},
			wantPercent: 15,
		},
		{
			name:        "charging",
			batteries:   []*battery.Battery{{Current: 50, Full: 100, State: battery.State{Raw: battery.Charging}}},
			wantPercent: 50,
			wantPlugged: true,
		},
		{
			name: "two batteries",
			batteries: []*battery.Battery{
				{Current: 10, Full: 50, State: battery.State{Raw: battery.Full}},
				{Current: 40, Full: 50, State: battery.State{Raw: battery.Discharging}},
			},
			wantPercent: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := batteryStatus(tt.batteries)
			if tt.wantNil {
				if got != nil {
					t.Errorf("Expected nil, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Expected a battery status")
			}
			if got.Percent != tt.wantPercent || got.Plugged != tt.wantPlugged {
				t.Errorf("Expected %.0f%% plugged=%v, got %+v", tt.wantPercent, tt.wantPlugged, got)
			}
		})
	}
}

func TestProbe_Sample(t *testing.T) {
	p := New(zaptest.NewLogger(t))
	p.cpuWindow = 50 * time.Millisecond
	p.batteries = func() ([]*battery.Battery, error) {
		return nil, errors.New("no battery")
	}

	sample, err := p.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if sample.CPUPercent < 0 || sample.CPUPercent > 100 {
		t.Errorf("CPU percent out of range: %f", sample.CPUPercent)
	}
	if sample.MemoryPercent <= 0 || sample.MemoryPercent > 100 {
		t.Errorf("Memory percent out of range: %f", sample.MemoryPercent)
	}
	if sample.Battery != nil {
		t.Errorf("Expected no battery, got %+v", sample.Battery)
	}
}
