// Package dispatch maps symbolic action names onto the action executor and
// localizes the resulting messages.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/voiceast/server/domain/entities"
	"github.com/voiceast/server/domain/repositories"
	"github.com/voiceast/server/internal/intent"
)

const defaultDirectory = "documents"

const (
	greetingEN = "Hello! I'm Prime, your voice assistant. How can I help you today?"
	greetingHI = "नमस्ते! मैं प्राइम हूं, आपका वॉइस असिस्टेंट। मैं आपकी कैसे मदद कर सकता हूं?"
	helpEN     = "I can help you control applications, manage files, adjust system settings, and answer questions. Try commands like 'open notepad', 'what time is it', or 'take screenshot'."
	helpHI     = "मैं आपके ऐप्लिकेशन को नियंत्रित करने, फ़ाइलें प्रबंधित करने, सिस्टम सेटिंग्स समायोजित करने और प्रश्नों के उत्तर देने में मदद कर सकता हूं।"
)

type handlerFunc func(ctx context.Context, d *Dispatcher, params map[string]any, lang entities.Language) (entities.ActionResult, error)

// Dispatcher executes one action per call. Dispatch never returns an error:
// executor failures and panics become unsuccessful results.
type Dispatcher struct {
	executor  repositories.ActionExecutor
	handlers  map[string]handlerFunc
	templates *intent.PatternRecognizer
	now       func() time.Time
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher backed by the given executor
func NewDispatcher(executor repositories.ActionExecutor, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		executor:  executor,
		handlers:  handlers(),
		templates: intent.NewPatternRecognizer(),
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock replaces the wall clock used by the time and date actions
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	d.templates.WithClock(now)
	return d
}

// Known reports whether the action has a handler
func (d *Dispatcher) Known(action string) bool {
	_, ok := d.handlers[action]
	return ok
}

// Dispatch runs action with params and returns the localized result
func (d *Dispatcher) Dispatch(ctx context.Context, action string, params map[string]any, lang entities.Language) (result entities.ActionResult) {
	if params == nil {
		params = map[string]any{}
	}

	handler, ok := d.handlers[action]
	if !ok {
		name := action
		if name == "" {
			name = entities.IntentUnknown
		}
		return entities.ActionResult{
			Success: false,
			Message: d.templates.FormatResponse(name, params),
			Extra:   map[string]any{"intent": action},
		}
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Action panicked",
				zap.String("action", action),
				zap.Any("panic", r))
			result = executionError(fmt.Errorf("%v", r), lang)
		}
	}()

	result, err := handler(ctx, d, params, lang)
	if err != nil {
		d.logger.Warn("Action failed",
			zap.String("action", action),
			zap.Error(err))
		return executionError(err, lang)
	}

	if lang == entities.LanguageHindi && result.Success {
		if msg, ok := localize(action, params); ok {
			result.Message = msg
		}
	}
	return result
}

func executionError(err error, lang entities.Language) entities.ActionResult {
	msg := fmt.Sprintf("Error executing command: %s", err)
	if lang == entities.LanguageHindi {
		msg = fmt.Sprintf("कमांड चलाने में त्रुटि: %s", err)
	}
	return entities.ActionResult{
		Success: false,
		Message: msg,
		Extra:   map[string]any{"error": err.Error()},
	}
}

func handlers() map[string]handlerFunc {
	screenshot := func(ctx context.Context, d *Dispatcher, _ map[string]any, _ entities.Language) (entities.ActionResult, error) {
		return d.executor.TakeScreenshot(ctx)
	}
	openCamera := func(context.Context, *Dispatcher, map[string]any, entities.Language) (entities.ActionResult, error) {
		return entities.ActionResult{
			Success: true,
			Message: "Opening camera. I'll describe what I see.",
			Extra:   map[string]any{"action": "open_camera"},
		}, nil
	}
	volume := func(direction string) handlerFunc {
		return func(ctx context.Context, d *Dispatcher, _ map[string]any, _ entities.Language) (entities.ActionResult, error) {
			return d.executor.AdjustVolume(ctx, direction)
		}
	}
	brightness := func(direction string) handlerFunc {
		return func(ctx context.Context, d *Dispatcher, _ map[string]any, _ entities.Language) (entities.ActionResult, error) {
			return d.executor.AdjustBrightness(ctx, direction)
		}
	}

	return map[string]handlerFunc{
		"open_app": func(ctx context.Context, d *Dispatcher, p map[string]any, _ entities.Language) (entities.ActionResult, error) {
			return d.executor.OpenApplication(ctx, entities.StringParam(p, "app_name", ""))
		},
		"close_app": func(ctx context.Context, d *Dispatcher, p map[string]any, _ entities.Language) (entities.ActionResult, error) {
			return d.executor.CloseApplication(ctx, entities.StringParam(p, "app_name", ""))
		},
		"create_file": func(ctx context.Context, d *Dispatcher, p map[string]any, _ entities.Language) (entities.ActionResult, error) {
			return d.executor.CreateFile(ctx, entities.StringParam(p, "filename", ""))
		},
		"delete_file": func(ctx context.Context, d *Dispatcher, p map[string]any, _ entities.Language) (entities.ActionResult, error) {
			return d.executor.DeleteFile(ctx, entities.StringParam(p, "filename", ""))
		},
		"list_files": func(ctx context.Context, d *Dispatcher, p map[string]any, _ entities.Language) (entities.ActionResult, error) {
			return d.executor.ListFiles(ctx, entities.StringParam(p, "directory", defaultDirectory))
		},
		"search_files": func(ctx context.Context, d *Dispatcher, p map[string]any, _ entities.Language) (entities.ActionResult, error) {
			return d.executor.SearchFiles(ctx,
				entities.StringParam(p, "query", ""),
				entities.StringParam(p, "directory", defaultDirectory))
		},
		"volume_up":       volume("up"),
		"volume_down":     volume("down"),
		"mute":            volume("mute"),
		"brightness_up":   brightness("up"),
		"brightness_down": brightness("down"),
		"screenshot":      screenshot,
		"take_screenshot": screenshot,
		"shutdown": func(ctx context.Context, d *Dispatcher, _ map[string]any, _ entities.Language) (entities.ActionResult, error) {
			return d.executor.Shutdown(ctx)
		},
		"restart": func(ctx context.Context, d *Dispatcher, _ map[string]any, _ entities.Language) (entities.ActionResult, error) {
			return d.executor.Restart(ctx)
		},
		"system_info": func(ctx context.Context, d *Dispatcher, _ map[string]any, _ entities.Language) (entities.ActionResult, error) {
			return d.executor.SystemInfo(ctx)
		},
		"web_search": func(ctx context.Context, d *Dispatcher, p map[string]any, _ entities.Language) (entities.ActionResult, error) {
			return d.executor.WebSearch(ctx, entities.StringParam(p, "query", ""))
		},
		"type_text": func(ctx context.Context, d *Dispatcher, p map[string]any, _ entities.Language) (entities.ActionResult, error) {
			return d.executor.TypeText(ctx, entities.StringParam(p, "text", ""))
		},
		"press_key": func(ctx context.Context, d *Dispatcher, p map[string]any, _ entities.Language) (entities.ActionResult, error) {
			return d.executor.PressKey(ctx, entities.StringParam(p, "key", ""))
		},

		"time": func(_ context.Context, d *Dispatcher, _ map[string]any, lang entities.Language) (entities.ActionResult, error) {
			now := d.now().Format(intent.ClockLayout)
			msg := "The current time is " + now
			if lang == entities.LanguageHindi {
				msg = fmt.Sprintf("अभी समय %s बजे है", now)
			}
			return entities.ActionResult{Success: true, Message: msg, Extra: map[string]any{"time": now}}, nil
		},
		"date": func(_ context.Context, d *Dispatcher, _ map[string]any, lang entities.Language) (entities.ActionResult, error) {
			today := d.now().Format(intent.ShortDayLayout)
			msg := "Today is " + today
			if lang == entities.LanguageHindi {
				msg = fmt.Sprintf("आज की तारीख %s है", today)
			}
			return entities.ActionResult{Success: true, Message: msg, Extra: map[string]any{"date": today}}, nil
		},

		"open_camera": openCamera,
		"camera":      openCamera,
		"close_camera": func(context.Context, *Dispatcher, map[string]any, entities.Language) (entities.ActionResult, error) {
			return entities.ActionResult{
				Success: true,
				Message: "Camera closed.",
				Extra:   map[string]any{"action": "close_camera"},
			}, nil
		},
		"greeting": func(_ context.Context, _ *Dispatcher, _ map[string]any, lang entities.Language) (entities.ActionResult, error) {
			msg := greetingEN
			if lang == entities.LanguageHindi {
				msg = greetingHI
			}
			return entities.ActionResult{Success: true, Message: msg, Extra: map[string]any{"intent": entities.IntentGreeting}}, nil
		},
		"help": func(_ context.Context, _ *Dispatcher, _ map[string]any, lang entities.Language) (entities.ActionResult, error) {
			msg := helpEN
			if lang == entities.LanguageHindi {
				msg = helpHI
			}
			return entities.ActionResult{Success: true, Message: msg}, nil
		},
	}
}
