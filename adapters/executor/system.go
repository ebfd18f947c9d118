package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/voiceast/server/domain/entities"
)

const (
	volumeStep     = "10%"
	cpuSampleTime  = time.Second
	powerOffDelay  = "30"
	disabledNotice = "Dangerous commands are disabled. Enable in config."
)

type command struct {
	name string
	args []string
}

func volumeCommand(goos, direction string) (command, bool) {
	switch goos {
	case "linux":
		switch direction {
		case "up":
			return command{"pactl", []string{"set-sink-volume", "@DEFAULT_SINK@", "+" + volumeStep}}, true
		case "down":
			return command{"pactl", []string{"set-sink-volume", "@DEFAULT_SINK@", "-" + volumeStep}}, true
		case "mute":
			return command{"pactl", []string{"set-sink-mute", "@DEFAULT_SINK@", "toggle"}}, true
		}
	case "darwin":
		switch direction {
		case "up":
			return command{"osascript", []string{"-e", "set volume output volume ((output volume of (get volume settings)) + 10)"}}, true
		case "down":
			return command{"osascript", []string{"-e", "set volume output volume ((output volume of (get volume settings)) - 10)"}}, true
		case "mute":
			return command{"osascript", []string{"-e", "set volume output muted not (output muted of (get volume settings))"}}, true
		}
	case "windows":
		keys := map[string]string{"up": "[char]175", "down": "[char]174", "mute": "[char]173"}
		if key, ok := keys[direction]; ok {
			script := fmt.Sprintf("$w = New-Object -ComObject WScript.Shell; $w.SendKeys(%s); $w.SendKeys(%s)", key, key)
			if direction == "mute" {
				script = fmt.Sprintf("(New-Object -ComObject WScript.Shell).SendKeys(%s)", key)
			}
			return command{"powershell", []string{"-NoProfile", "-Command", script}}, true
		}
	}
	return command{}, false
}

// AdjustVolume implements repositories.ActionExecutor. direction is up, down or mute.
func (e *Executor) AdjustVolume(ctx context.Context, direction string) (entities.ActionResult, error) {
	cmd, ok := volumeCommand(e.goos, direction)
	if !ok {
		return failure("Volume control not supported on this system", nil), nil
	}
	if out, err := e.runner.Run(ctx, cmd.name, cmd.args...); err != nil {
		e.logger.Warn("Volume command failed", zap.String("output", string(out)), zap.Error(err))
		return failure(fmt.Sprintf("Failed to adjust volume: %s", err), err), nil
	}
	return success(fmt.Sprintf("Volume %s", direction)), nil
}

// AdjustBrightness implements repositories.ActionExecutor. direction is up or down.
func (e *Executor) AdjustBrightness(ctx context.Context, direction string) (entities.ActionResult, error) {
	step := "+10%"
	if direction == "down" {
		step = "10%-"
	}

	var err error
	switch e.goos {
	case "linux":
		_, err = e.runner.Run(ctx, "brightnessctl", "set", step)
	case "windows":
		delta := "+10"
		if direction == "down" {
			delta = "-10"
		}
		script := "$b = (Get-CimInstance -Namespace root/WMI -ClassName WmiMonitorBrightness).CurrentBrightness; " +
			fmt.Sprintf("$n = [Math]::Max(0, [Math]::Min(100, $b %s)); ", delta) +
			"(Get-CimInstance -Namespace root/WMI -ClassName WmiMonitorBrightnessMethods) | Invoke-CimMethod -MethodName WmiSetBrightness -Arguments @{Timeout=0; Brightness=$n}"
		_, err = e.runner.Run(ctx, "powershell", "-NoProfile", "-Command", script)
	default:
		return failure("Brightness control not supported on this system", nil), nil
	}
	if err != nil {
		return failure(fmt.Sprintf("Failed to adjust brightness: %s", err), err), nil
	}
	return success(fmt.Sprintf("Brightness %s", direction)), nil
}

// TakeScreenshot implements repositories.ActionExecutor. Screenshots are
// saved under Desktop/Screenshots.
func (e *Executor) TakeScreenshot(ctx context.Context) (entities.ActionResult, error) {
	dir := filepath.Join(e.resolveDir("desktop"), "Screenshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return failure(fmt.Sprintf("Failed to take screenshot: %s", err), err), nil
	}

	filename := fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, filename)

	var candidates []command
	switch e.goos {
	case "darwin":
		candidates = []command{{"screencapture", []string{"-x", path}}}
	case "windows":
		script := "Add-Type -AssemblyName System.Windows.Forms,System.Drawing; " +
			"$s = [System.Windows.Forms.Screen]::PrimaryScreen.Bounds; " +
			"$b = New-Object System.Drawing.Bitmap $s.Width, $s.Height; " +
			"[System.Drawing.Graphics]::FromImage($b).CopyFromScreen($s.Location, [System.Drawing.Point]::Empty, $s.Size); " +
			fmt.Sprintf("$b.Save('%s')", path)
		candidates = []command{{"powershell", []string{"-NoProfile", "-Command", script}}}
	default:
		candidates = []command{
			{"grim", []string{path}},
			{"gnome-screenshot", []string{"-f", path}},
			{"scrot", []string{path}},
		}
	}

	var lastErr error
	for _, c := range candidates {
		if _, err := e.runner.Run(ctx, c.name, c.args...); err != nil {
			lastErr = err
			continue
		}
		return success(fmt.Sprintf("Screenshot saved to %s", filename)).With("path", path), nil
	}
	return failure(fmt.Sprintf("Failed to take screenshot: %s", lastErr), lastErr), nil
}

func (e *Executor) power(ctx context.Context, restart bool) (entities.ActionResult, error) {
	if !e.config.EnableDangerous {
		return failure(disabledNotice, ErrDangerousDisabled), nil
	}

	verb, flag := "shutdown", "/s"
	if restart {
		verb, flag = "restart", "/r"
	}

	var err error
	switch e.goos {
	case "windows":
		_, err = e.runner.Run(ctx, "shutdown", flag, "/t", powerOffDelay)
	case "linux", "darwin":
		if restart {
			_, err = e.runner.Run(ctx, "shutdown", "-r", "+1")
		} else {
			_, err = e.runner.Run(ctx, "shutdown", "-h", "+1")
		}
	default:
		return failure(fmt.Sprintf("%s not supported on this system", verb), nil), nil
	}
	if err != nil {
		return failure(fmt.Sprintf("Failed to %s: %s", verb, err), err), nil
	}

	e.logger.Warn("System power action scheduled", zap.String("action", verb))
	return success(fmt.Sprintf("System will %s shortly", verb)), nil
}

// Shutdown implements repositories.ActionExecutor
func (e *Executor) Shutdown(ctx context.Context) (entities.ActionResult, error) {
	return e.power(ctx, false)
}

// Restart implements repositories.ActionExecutor
func (e *Executor) Restart(ctx context.Context) (entities.ActionResult, error) {
	return e.power(ctx, true)
}

// SystemInfo implements repositories.ActionExecutor
func (e *Executor) SystemInfo(ctx context.Context) (entities.ActionResult, error) {
	info, err := e.sysinfo(ctx)
	if err != nil {
		return failure(fmt.Sprintf("Failed to get system info: %s", err), err), nil
	}
	return success("System information retrieved").With("info", info), nil
}

func (e *Executor) hostInfo(ctx context.Context) (map[string]string, error) {
	cpuPercent, err := cpu.PercentWithContext(ctx, cpuSampleTime, false)
	if err != nil {
		return nil, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory usage: %w", err)
	}
	root := "/"
	if runtime.GOOS == "windows" {
		root = "C:\\"
	}
	usage, err := disk.UsageWithContext(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to read disk usage: %w", err)
	}

	var cpuUsage float64
	if len(cpuPercent) > 0 {
		cpuUsage = cpuPercent[0]
	}

	const gb = 1 << 30
	return map[string]string{
		"system":       e.goos,
		"cpu_usage":    fmt.Sprintf("%.1f%%", cpuUsage),
		"memory_usage": fmt.Sprintf("%.1f%%", vm.UsedPercent),
		"disk_usage":   fmt.Sprintf("%.1f%%", usage.UsedPercent),
		"memory_total": fmt.Sprintf("%.1f GB", float64(vm.Total)/gb),
		"disk_total":   fmt.Sprintf("%.1f GB", float64(usage.Total)/gb),
	}, nil
}
