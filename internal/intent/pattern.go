package intent

import (
	"regexp"
	"strings"
	"time"

	"github.com/voiceast/server/domain/entities"
)

// UnknownResponse is spoken when no interpretation matched
const UnknownResponse = "I'm sorry, I don't understand that command. Say 'help' for available commands."

type intentPattern struct {
	intent string
	re     *regexp.Regexp
	params []string
}

func p(intent, expr string, params ...string) intentPattern {
	return intentPattern{intent: intent, re: regexp.MustCompile("(?i)" + expr), params: params}
}

// Ordered, first match wins
var commandPatterns = []intentPattern{
	p("open_app", `open\s+(\w+)`, "app_name"),
	p("open_app", `launch\s+(\w+)`, "app_name"),
	p("open_app", `start\s+(\w+)`, "app_name"),
	p("close_app", `close\s+(\w+)`, "app_name"),
	p("close_app", `quit\s+(\w+)`, "app_name"),
	p("close_app", `exit\s+(\w+)`, "app_name"),
	p("close_app", `terminate\s+(\w+)`, "app_name"),

	p("create_file", `create\s+(?:a\s+)?file\s+(?:named\s+)?(\S+)`, "filename"),
	p("create_file", `make\s+(?:a\s+)?file\s+(?:named\s+)?(\S+)`, "filename"),
	p("create_file", `new\s+file\s+(\S+)`, "filename"),
	p("delete_file", `delete\s+(?:the\s+)?file\s+(\S+)`, "filename"),
	p("delete_file", `remove\s+(?:the\s+)?file\s+(\S+)`, "filename"),
	p("list_files", `list\s+files\s+(?:in\s+)?(.+)`, "directory"),
	p("list_files", `show\s+files\s+(?:in\s+)?(.+)`, "directory"),
	p("list_files", `what\s+files\s+are\s+in\s+(.+)`, "directory"),
	p("search_files", `search\s+for\s+(.+)\s+in\s+(.+)`, "query", "directory"),
	p("search_files", `find\s+(.+)\s+in\s+(.+)`, "query", "directory"),

	p("volume_up", `(?:increase|raise|turn up)\s+(?:the\s+)?volume`),
	p("volume_up", `volume\s+up`),
	p("volume_down", `(?:decrease|lower|turn down)\s+(?:the\s+)?volume`),
	p("volume_down", `volume\s+down`),
	p("mute", `mute`),
	p("mute", `silence`),
	p("brightness_up", `(?:increase|raise)\s+(?:the\s+)?brightness`),
	p("brightness_up", `brightness\s+up`),
	p("brightness_up", `make\s+it\s+brighter`),
	p("brightness_down", `(?:decrease|lower)\s+(?:the\s+)?brightness`),
	p("brightness_down", `brightness\s+down`),
	p("brightness_down", `make\s+it\s+darker`),
	p("switch_tab", `switch\s+tab`),
	p("switch_tab", `next\s+tab`),
	p("switch_tab", `previous\s+tab`),
	p("switch_tab", `go\s+back\s+(?:to\s+)?(?:the\s+)?last\s+tab`),
	p("switch_tab", `change\s+tab`),
	p("screenshot", `take\s+(?:a\s+)?screenshot`),
	p("screenshot", `capture\s+(?:the\s+)?screen`),
	p("screenshot", `print\s+screen`),
	p("shutdown", `shut\s*down\s+(?:the\s+)?(?:computer|system|pc)`),
	p("shutdown", `power\s+off`),
	p("restart", `restart\s+(?:the\s+)?(?:computer|system|pc)`),
	p("restart", `reboot`),

	p("time", `what\s+time\s+is\s+it`),
	p("time", `tell\s+me\s+the\s+time`),
	p("time", `current\s+time`),
	p("date", `what'?s?\s+the\s+date`),
	p("date", `tell\s+me\s+the\s+date`),
	p("date", `today'?s?\s+date`),
	p("system_info", `system\s+information`),
	p("system_info", `computer\s+info`),

	p("web_search", `search\s+(?:for\s+)?(.+)`, "query"),
	p("web_search", `google\s+(.+)`, "query"),
	p("web_search", `look\s+up\s+(.+)`, "query"),

	p("type_text", `type\s+(.+)`, "text"),
	p("type_text", `write\s+(.+)`, "text"),
	p("press_key", `press\s+(\w+)`, "key"),

	p("greeting", `^(?:hello|hi|hey|greetings)`),
	p("greeting", `(?:hey|hi|hello)\s+prime`),
	p("help", `help`),
	p("help", `what\s+can\s+you\s+do`),
	p("help", `commands`),
}

var responseTemplates = map[string]string{
	"open_app":        "Opening {app_name}",
	"close_app":       "Closing {app_name}",
	"create_file":     "Creating file {filename}",
	"delete_file":     "Deleting file {filename}",
	"list_files":      "Listing files in {directory}",
	"search_files":    "Searching for {query} in {directory}",
	"volume_up":       "Increasing volume",
	"volume_down":     "Decreasing volume",
	"mute":            "Muting audio",
	"brightness_up":   "Increasing brightness",
	"brightness_down": "Decreasing brightness",
	"switch_tab":      "Switching tab",
	"screenshot":      "Taking screenshot",
	"shutdown":        "Shutting down system",
	"restart":         "Restarting system",
	"time":            "The current time is {time}",
	"date":            "Today is {date}",
	"system_info":     "Gathering system information",
	"web_search":      "Searching for {query}",
	"type_text":       "Typing text",
	"press_key":       "Pressing {key}",
	"greeting":        "Hello! How can I help you?",
	"help":            "I can help you control your device, manage files, and answer questions. Try saying 'open notepad' or 'what time is it'",
	"unknown":         UnknownResponse,
}

var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

// PatternRecognizer is the regex command recognizer behind the REST execute
// endpoint. Its response templates also word replies for unhandled actions.
type PatternRecognizer struct {
	now func() time.Time
}

// NewPatternRecognizer creates a recognizer using the wall clock
func NewPatternRecognizer() *PatternRecognizer {
	return &PatternRecognizer{now: time.Now}
}

// WithClock replaces the clock used to fill time and date responses
func (r *PatternRecognizer) WithClock(now func() time.Time) *PatternRecognizer {
	r.now = now
	return r
}

// Recognize returns the first matching intent, or IntentUnknown
func (r *PatternRecognizer) Recognize(text string) entities.Intent {
	text = strings.TrimSpace(text)
	result := entities.Intent{
		Action:   entities.IntentUnknown,
		Params:   map[string]any{},
		Language: DetectLanguage(text),
	}
	if text == "" {
		return result
	}

	for _, pat := range commandPatterns {
		groups := pat.re.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		for i, name := range pat.params {
			if i+1 < len(groups) {
				result.Params[name] = strings.TrimSpace(groups[i+1])
			}
		}
		result.Action = pat.intent
		result.Confidence = fallbackConfidence
		return result
	}
	return result
}

// FormatResponse renders the response template of an intent. A template
// referencing a parameter that is not present is returned unformatted.
func (r *PatternRecognizer) FormatResponse(intent string, params map[string]any) string {
	template, ok := responseTemplates[intent]
	if !ok {
		return "Processing your request"
	}

	values := make(map[string]string, len(params)+1)
	for k := range params {
		values[k] = entities.StringParam(params, k, "")
	}
	switch intent {
	case "time":
		values["time"] = r.now().Format(ClockLayout)
	case "date":
		values["date"] = r.now().Format(ShortDayLayout)
	}

	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if _, ok := values[m[1]]; !ok {
			return template
		}
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(s string) string {
		return values[s[1:len(s)-1]]
	})
}
