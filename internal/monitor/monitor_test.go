package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/voiceast/server/domain"
	"github.com/voiceast/server/domain/entities"
	"github.com/voiceast/server/internal/metrics"
	"github.com/voiceast/server/internal/synthesis"
)

type fixedProbe struct {
	mu     sync.Mutex
	sample Sample
	err    error
}

func (p *fixedProbe) Sample(ctx context.Context) (Sample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sample, p.err
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []interface{}
}

func (b *recordingBroadcaster) Broadcast(message interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, message)
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

type manualClock struct {
	t time.Time
}

func (c *manualClock) now() time.Time { return c.t }

func newTestMonitor(t *testing.T, probe Probe, b Broadcaster, clock *manualClock) *Monitor {
	gate := synthesis.NewGate(nil, nil, zaptest.NewLogger(t))
	return New(probe, gate, b, metrics.New(), Config{}, zaptest.NewLogger(t)).WithClock(clock.now)
}

func TestEvaluate_Priority(t *testing.T) {
	tests := []struct {
		name         string
		sample       Sample
		wantCategory entities.AlertCategory
		wantMessage  string
	}{
		{
			name:         "cpu wins over ram and battery",
			sample:       Sample{CPUPercent: 97.25, MemoryPercent: 99, Battery: &BatteryStatus{Percent: 5}},
			wantCategory: entities.AlertCPU,
			wantMessage:  "Sir, CPU usage is critical at 97.3 percent.",
		},
		{
			name:         "ram",
			sample:       Sample{CPUPercent: 10, MemoryPercent: 96},
			wantCategory: entities.AlertRAM,
			wantMessage:  "Sir, Memory usage is very high at 96 percent.",
		},
		{
			name:         "battery unplugged",
			sample:       Sample{CPUPercent: 10, MemoryPercent: 50, Battery: &BatteryStatus{Percent: 15}},
			wantCategory: entities.AlertBattery,
			wantMessage:  "Sir, Battery is low at 15 percent. Please plug in.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMonitor(t, &fixedProbe{}, &recordingBroadcaster{}, &manualClock{t: time.Unix(1000, 0)})

			alert, ok := m.Evaluate(tt.sample)
			if !ok {
				t.Fatal("Expected alert")
			}
			if alert.Category != tt.wantCategory {
				t.Errorf("Expected %s, got %s", tt.wantCategory, alert.Category)
			}
			if alert.Message != tt.wantMessage {
				t.Errorf("Expected %q, got %q", tt.wantMessage, alert.Message)
			}
		})
	}
}

func TestEvaluate_NoAlert(t *testing.T) {
	m := newTestMonitor(t, &fixedProbe{}, &recordingBroadcaster{}, &manualClock{t: time.Unix(1000, 0)})

	samples := []Sample{
		{CPUPercent: 90, MemoryPercent: 95},
		{CPUPercent: 10, MemoryPercent: 10, Battery: &BatteryStatus{Percent: 5, Plugged: true}},
		{CPUPercent: 10, MemoryPercent: 10, Battery: &BatteryStatus{Percent: 20}},
		{CPUPercent: 10, MemoryPercent: 10},
	}
	for _, s := range samples {
		if alert, ok := m.Evaluate(s); ok {
			t.Errorf("Unexpected alert %+v for %+v", alert, s)
		}
	}
}

func TestEvaluate_Cooldown(t *testing.T) {
	clock := &manualClock{t: time.Unix(1000, 0)}
	m := newTestMonitor(t, &fixedProbe{}, &recordingBroadcaster{}, clock)
	hot := Sample{CPUPercent: 95, MemoryPercent: 97}

	if alert, ok := m.Evaluate(hot); !ok || alert.Category != entities.AlertCPU {
		t.Fatalf("Expected cpu alert, got %+v", alert)
	}

	// cpu is cooling down so the next category in line fires
	clock.t = clock.t.Add(time.Minute)
	if alert, ok := m.Evaluate(hot); !ok || alert.Category != entities.AlertRAM {
		t.Fatalf("Expected ram alert, got %+v", alert)
	}

	clock.t = clock.t.Add(time.Minute)
	if _, ok := m.Evaluate(hot); ok {
		t.Fatal("Expected both categories to be cooling down")
	}

	clock.t = clock.t.Add(DefaultCooldown)
	if alert, ok := m.Evaluate(hot); !ok || alert.Category != entities.AlertCPU {
		t.Fatalf("Expected cpu alert after cooldown, got %+v", alert)
	}
}

func TestRunOnce_Broadcasts(t *testing.T) {
	probe := &fixedProbe{sample: Sample{CPUPercent: 99}}
	b := &recordingBroadcaster{}
	m := newTestMonitor(t, probe, b, &manualClock{t: time.Unix(1000, 0)})

	alert, ok := m.RunOnce(context.Background())
	if !ok {
		t.Fatal("Expected alert")
	}
	if alert.Audio != "" {
		t.Errorf("Expected empty audio without synthesizer, got %q", alert.Audio)
	}
	if b.count() != 1 {
		t.Fatalf("Expected one broadcast, got %d", b.count())
	}

	msg, ok := b.messages[0].(domain.ResultMessage)
	if !ok {
		t.Fatalf("Expected ResultMessage, got %T", b.messages[0])
	}
	if msg.Type != domain.TypeResult || !msg.Success {
		t.Errorf("Unexpected message %+v", msg)
	}
	if msg.Data["intent"] != entities.IntentSystemAlert {
		t.Errorf("Expected system_alert intent, got %v", msg.Data["intent"])
	}

	if _, ok := m.RunOnce(context.Background()); ok {
		t.Error("Expected cooldown to suppress a second alert")
	}
	if b.count() != 1 {
		t.Errorf("Expected still one broadcast, got %d", b.count())
	}
}

func TestRunOnce_ProbeError(t *testing.T) {
	b := &recordingBroadcaster{}
	m := newTestMonitor(t, &fixedProbe{err: errors.New("no sensors")}, b, &manualClock{t: time.Unix(1000, 0)})

	if _, ok := m.RunOnce(context.Background()); ok {
		t.Error("Expected no alert on probe error")
	}
	if b.count() != 0 {
		t.Errorf("Expected no broadcast, got %d", b.count())
	}
}

func TestStartStop(t *testing.T) {
	probe := &fixedProbe{sample: Sample{MemoryPercent: 99}}
	b := &recordingBroadcaster{}
	gate := synthesis.NewGate(nil, nil, zaptest.NewLogger(t))
	m := New(probe, gate, b, nil, Config{Interval: 10 * time.Millisecond}, zaptest.NewLogger(t))

	m.Start()
	deadline := time.Now().Add(2 * time.Second)
	for b.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m.Stop()

	if b.count() != 1 {
		t.Errorf("Expected exactly one alert within the cooldown, got %d", b.count())
	}
}
