// Package executor performs the OS level effects behind dispatched actions.
// Failures of the effect itself are reported as unsuccessful results; a
// returned error means the executor could not run at all.
package executor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/voiceast/server/domain/entities"
	"github.com/voiceast/server/domain/repositories"
)

// ErrDangerousDisabled is reported when shutdown or restart is requested
// while dangerous commands are disabled
var ErrDangerousDisabled = errors.New("dangerous commands are disabled")

const searchURL = "https://www.google.com/search?q="

// Config holds the executor settings
type Config struct {
	EnableDangerous bool
	// PathAliases maps spoken directory names to absolute paths
	PathAliases map[string]string
	// CommandAliases maps spoken application names to executables
	CommandAliases map[string]string
}

// DefaultConfig returns aliases rooted at the user's home directory
func DefaultConfig(enableDangerous bool) Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		EnableDangerous: enableDangerous,
		PathAliases: map[string]string{
			"home":      home,
			"documents": filepath.Join(home, "Documents"),
			"desktop":   filepath.Join(home, "Desktop"),
			"downloads": filepath.Join(home, "Downloads"),
		},
		CommandAliases: defaultCommandAliases(runtime.GOOS),
	}
}

func defaultCommandAliases(goos string) map[string]string {
	switch goos {
	case "windows":
		return map[string]string{
			"notepad":       "notepad.exe",
			"chrome":        "chrome.exe",
			"calculator":    "calc.exe",
			"file_explorer": "explorer.exe",
		}
	case "darwin":
		return map[string]string{
			"notepad":       "TextEdit",
			"chrome":        "Google Chrome",
			"calculator":    "Calculator",
			"file_explorer": "Finder",
		}
	default:
		return map[string]string{
			"notepad":       "gedit",
			"chrome":        "google-chrome",
			"calculator":    "gnome-calculator",
			"file_explorer": "xdg-open",
		}
	}
}

// Runner runs external commands
type Runner interface {
	// Run waits for the command and returns its combined output
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// Start launches the command without waiting for it
	Start(name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	//nolint:gosec // G204: commands come from the fixed per-OS tables in this package
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func (execRunner) Start(name string, args ...string) error {
	//nolint:gosec // G204: application names are resolved through the alias table
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

// Executor implements repositories.ActionExecutor for the host it runs on
type Executor struct {
	config  Config
	goos    string
	runner  Runner
	openURL func(string) error
	sysinfo func(ctx context.Context) (map[string]string, error)
	logger  *zap.Logger
}

var _ repositories.ActionExecutor = (*Executor)(nil)

// New creates an executor for the current OS
func New(config Config, logger *zap.Logger) *Executor {
	e := &Executor{
		config:  config,
		goos:    runtime.GOOS,
		runner:  execRunner{},
		openURL: browser.OpenURL,
		logger:  logger,
	}
	e.sysinfo = e.hostInfo
	return e
}

func success(message string) entities.ActionResult {
	return entities.ActionResult{Success: true, Message: message}
}

func failure(message string, err error) entities.ActionResult {
	result := entities.ActionResult{Success: false, Message: message}
	if err != nil {
		result = result.With("error", err.Error())
	}
	return result
}

// OpenApplication implements repositories.ActionExecutor
func (e *Executor) OpenApplication(ctx context.Context, name string) (entities.ActionResult, error) {
	target, ok := e.config.CommandAliases[strings.ToLower(name)]
	if !ok {
		target = name
	}

	var err error
	switch e.goos {
	case "windows":
		err = e.runner.Start("cmd", "/C", "start", "", target)
	case "darwin":
		err = e.runner.Start("open", "-a", target)
	default:
		err = e.runner.Start(target)
	}
	if err != nil {
		e.logger.Warn("Failed to open application", zap.String("app", name), zap.Error(err))
		return failure(fmt.Sprintf("Failed to open %s: %s", name, err), err), nil
	}

	return success(fmt.Sprintf("Opened %s", name)).With("app_name", name), nil
}

// CloseApplication implements repositories.ActionExecutor. Every process
// whose name contains the requested name is terminated.
func (e *Executor) CloseApplication(ctx context.Context, name string) (entities.ActionResult, error) {
	needle := strings.ToLower(name)
	if alias, ok := e.config.CommandAliases[needle]; ok {
		needle = strings.ToLower(strings.TrimSuffix(filepath.Base(alias), ".exe"))
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return failure(fmt.Sprintf("Failed to close %s: %s", name, err), err), nil
	}

	closed := 0
	for _, p := range procs {
		procName, err := p.NameWithContext(ctx)
		if err != nil || !strings.Contains(strings.ToLower(procName), needle) {
			continue
		}
		if err := p.TerminateWithContext(ctx); err != nil {
			e.logger.Debug("Failed to terminate process", zap.Int32("pid", p.Pid), zap.Error(err))
			continue
		}
		closed++
	}

	if closed == 0 {
		return failure(fmt.Sprintf("%s is not running", name), nil), nil
	}
	return success(fmt.Sprintf("Closed %d instance(s) of %s", closed, name)).With("count", closed), nil
}

// WebSearch implements repositories.ActionExecutor
func (e *Executor) WebSearch(ctx context.Context, query string) (entities.ActionResult, error) {
	if strings.TrimSpace(query) == "" {
		return failure("No search query provided", nil), nil
	}
	if err := e.openURL(searchURL + url.QueryEscape(query)); err != nil {
		return failure(fmt.Sprintf("Failed to search: %s", err), err), nil
	}
	return success(fmt.Sprintf("Searching for: %s", query)).With("query", query), nil
}

// TypeText implements repositories.ActionExecutor
func (e *Executor) TypeText(ctx context.Context, text string) (entities.ActionResult, error) {
	var err error
	switch e.goos {
	case "windows":
		_, err = e.runner.Run(ctx, "powershell", "-NoProfile", "-Command",
			fmt.Sprintf("(New-Object -ComObject WScript.Shell).SendKeys('%s')", strings.ReplaceAll(text, "'", "''")))
	case "darwin":
		_, err = e.runner.Run(ctx, "osascript", "-e",
			fmt.Sprintf(`tell application "System Events" to keystroke %q`, text))
	default:
		_, err = e.runner.Run(ctx, "xdotool", "type", "--delay", "50", "--", text)
	}
	if err != nil {
		return failure(fmt.Sprintf("Failed to type text: %s", err), err), nil
	}
	return success(fmt.Sprintf("Typed: %s", text)), nil
}

// PressKey implements repositories.ActionExecutor
func (e *Executor) PressKey(ctx context.Context, key string) (entities.ActionResult, error) {
	var err error
	switch e.goos {
	case "windows":
		_, err = e.runner.Run(ctx, "powershell", "-NoProfile", "-Command",
			fmt.Sprintf("(New-Object -ComObject WScript.Shell).SendKeys('{%s}')", strings.ToUpper(key)))
	case "darwin":
		_, err = e.runner.Run(ctx, "osascript", "-e",
			fmt.Sprintf(`tell application "System Events" to keystroke %q`, key))
	default:
		_, err = e.runner.Run(ctx, "xdotool", "key", "--", key)
	}
	if err != nil {
		return failure(fmt.Sprintf("Failed to press key: %s", err), err), nil
	}
	return success(fmt.Sprintf("Pressed key: %s", key)), nil
}
