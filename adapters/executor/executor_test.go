package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (f *fakeRunner) record(name string, args []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return f.fail[name]
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	return nil, f.record(name, args)
}

func (f *fakeRunner) Start(name string, args ...string) error {
	return f.record(name, args)
}

func newTestExecutor(t *testing.T, goos string, dangerous bool) (*Executor, *fakeRunner, string) {
	t.Helper()
	home := t.TempDir()
	config := Config{
		EnableDangerous: dangerous,
		PathAliases: map[string]string{
			"home":      home,
			"documents": filepath.Join(home, "Documents"),
			"desktop":   filepath.Join(home, "Desktop"),
			"downloads": filepath.Join(home, "Downloads"),
		},
		CommandAliases: defaultCommandAliases(goos),
	}

	runner := &fakeRunner{fail: map[string]error{}}
	e := New(config, zaptest.NewLogger(t))
	e.goos = goos
	e.runner = runner
	e.openURL = func(string) error { return nil }
	e.sysinfo = func(context.Context) (map[string]string, error) {
		return map[string]string{"system": goos}, nil
	}
	return e, runner, home
}

func TestOpenApplication(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{goos: "linux", want: "gedit"},
		{goos: "darwin", want: "open -a TextEdit"},
		{goos: "windows", want: "cmd /C start  notepad.exe"},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			e, runner, _ := newTestExecutor(t, tt.goos, false)
			result, err := e.OpenApplication(context.Background(), "notepad")
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !result.Success || result.Message != "Opened notepad" {
				t.Errorf("Unexpected result %+v", result)
			}
			if len(runner.calls) != 1 || runner.calls[0] != tt.want {
				t.Errorf("Expected %q, got %v", tt.want, runner.calls)
			}
		})
	}
}

func TestOpenApplication_Failure(t *testing.T) {
	e, runner, _ := newTestExecutor(t, "linux", false)
	runner.fail["unknownapp"] = errors.New("executable file not found")

	result, err := e.OpenApplication(context.Background(), "unknownapp")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Success || !strings.HasPrefix(result.Message, "Failed to open unknownapp") {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestAdjustVolume(t *testing.T) {
	tests := []struct {
		goos      string
		direction string
		want      string
		success   bool
	}{
		{goos: "linux", direction: "up", want: "pactl set-sink-volume @DEFAULT_SINK@ +10%", success: true},
		{goos: "linux", direction: "mute", want: "pactl set-sink-mute @DEFAULT_SINK@ toggle", success: true},
		{goos: "darwin", direction: "down", want: "osascript", success: true},
		{goos: "windows", direction: "mute", want: "powershell", success: true},
		{goos: "plan9", direction: "up", success: false},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.direction, func(t *testing.T) {
			e, runner, _ := newTestExecutor(t, tt.goos, false)
			result, err := e.AdjustVolume(context.Background(), tt.direction)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result.Success != tt.success {
				t.Fatalf("Expected success=%v, got %+v", tt.success, result)
			}
			if tt.success && (len(runner.calls) != 1 || !strings.HasPrefix(runner.calls[0], tt.want)) {
				t.Errorf("Expected a call starting with %q, got %v", tt.want, runner.calls)
			}
		})
	}
}

func TestAdjustBrightness(t *testing.T) {
	e, runner, _ := newTestExecutor(t, "linux", false)
	result, _ := e.AdjustBrightness(context.Background(), "down")
	if !result.Success || runner.calls[0] != "brightnessctl set 10%-" {
		t.Errorf("Unexpected result %+v calls %v", result, runner.calls)
	}

	e, _, _ = newTestExecutor(t, "darwin", false)
	if result, _ := e.AdjustBrightness(context.Background(), "up"); result.Success {
		t.Error("Expected brightness to be unsupported on darwin")
	}
}

func TestTakeScreenshot_FallsBackThroughTools(t *testing.T) {
	e, runner, home := newTestExecutor(t, "linux", false)
	runner.fail["grim"] = errors.New("not found")

	result, err := e.TakeScreenshot(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("Expected success, got %+v", result)
	}
	if len(runner.calls) != 2 || !strings.HasPrefix(runner.calls[1], "gnome-screenshot -f") {
		t.Errorf("Expected gnome-screenshot after grim, got %v", runner.calls)
	}
	if path, _ := result.Extra["path"].(string); !strings.HasPrefix(path, filepath.Join(home, "Desktop", "Screenshots")) {
		t.Errorf("Unexpected screenshot path %q", path)
	}
}

func TestPower(t *testing.T) {
	e, runner, _ := newTestExecutor(t, "linux", false)
	result, err := e.Shutdown(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Success || result.Message != disabledNotice {
		t.Errorf("Expected disabled notice, got %+v", result)
	}
	if result.Extra["error"] != ErrDangerousDisabled.Error() {
		t.Errorf("Expected the disabled sentinel, got %v", result.Extra["error"])
	}
	if len(runner.calls) != 0 {
		t.Errorf("Expected no command, got %v", runner.calls)
	}

	e, runner, _ = newTestExecutor(t, "windows", true)
	result, _ = e.Restart(context.Background())
	if !result.Success || runner.calls[0] != "shutdown /r /t 30" {
		t.Errorf("Unexpected restart %+v calls %v", result, runner.calls)
	}
}

func TestWebSearch(t *testing.T) {
	e, _, _ := newTestExecutor(t, "linux", false)
	var opened string
	e.openURL = func(u string) error {
		opened = u
		return nil
	}

	result, _ := e.WebSearch(context.Background(), "golang websockets")
	if !result.Success || result.Message != "Searching for: golang websockets" {
		t.Errorf("Unexpected result %+v", result)
	}
	if opened != searchURL+"golang+websockets" {
		t.Errorf("Unexpected URL %q", opened)
	}

	if result, _ := e.WebSearch(context.Background(), " "); result.Success {
		t.Error("Expected empty query to fail")
	}
}

func TestKeyboard(t *testing.T) {
	e, runner, _ := newTestExecutor(t, "linux", false)

	if result, _ := e.TypeText(context.Background(), "hello"); !result.Success {
		t.Errorf("Unexpected result %+v", result)
	}
	if result, _ := e.PressKey(context.Background(), "Return"); !result.Success {
		t.Errorf("Unexpected result %+v", result)
	}

	want := []string{"xdotool type --delay 50 -- hello", "xdotool key -- Return"}
	for i, call := range want {
		if runner.calls[i] != call {
			t.Errorf("Call %d: expected %q, got %q", i, call, runner.calls[i])
		}
	}
}

func TestSystemInfo(t *testing.T) {
	e, _, _ := newTestExecutor(t, "linux", false)
	result, err := e.SystemInfo(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	info, ok := result.Extra["info"].(map[string]string)
	if !result.Success || !ok || info["system"] != "linux" {
		t.Errorf("Unexpected result %+v", result)
	}

	e.sysinfo = func(context.Context) (map[string]string, error) { return nil, os.ErrPermission }
	if result, _ := e.SystemInfo(context.Background()); result.Success {
		t.Error("Expected failure when host info cannot be read")
	}
}
