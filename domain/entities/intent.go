package entities

import (
	"encoding/json"
	"strings"
)

// Language is the reply language of a turn
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

// ParseLanguage maps a client supplied language hint to a supported Language.
// Anything that is not Hindi is treated as English.
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), string(LanguageHindi)) {
		return LanguageHindi
	}
	return LanguageEnglish
}

// Utterance is the text of one user command and the language it was spoken in
type Utterance struct {
	Text     string   `json:"text"`
	Language Language `json:"language"`
}

// Transcript is the output of a speech recognizer
type Transcript struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"isFinal"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Empty reports whether nothing was recognized
func (t Transcript) Empty() bool {
	return strings.TrimSpace(t.Text) == ""
}

// Well-known intent names that are not actions
const (
	IntentUnknown      = "unknown"
	IntentConversation = "conversation"
	IntentVisionQA     = "vision_qa"
	IntentSystemAlert  = "system_alert"
	IntentGreeting     = "greeting"
)

// Intent is the normalized output of the intent resolver.
// An empty Action means the turn is a conversational reply only.
type Intent struct {
	Response   string         `json:"response"`
	Action     string         `json:"action"`
	Params     map[string]any `json:"params"`
	Language   Language       `json:"language"`
	Confidence float64        `json:"confidence"`
}

// Name returns the intent name reported to clients and stored in history
func (i Intent) Name() string {
	if i.Action == "" {
		return IntentConversation
	}
	return i.Action
}

// StringParam returns a string parameter or def when missing or empty
func (i Intent) StringParam(key, def string) string {
	return StringParam(i.Params, key, def)
}

// StringParam reads a string value out of a loosely typed parameter map
func StringParam(params map[string]any, key, def string) string {
	if params == nil {
		return def
	}
	v, ok := params[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		b, err := json.Marshal(v)
		if err != nil {
			return def
		}
		s = strings.Trim(string(b), `"`)
	}
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// ActionResult is the normalized outcome of one dispatched action.
// Extra carries action specific fields (time, files, info...) and is
// serialized flat next to success and message.
type ActionResult struct {
	Success bool
	Message string
	Extra   map[string]any
}

// With returns a copy of the result with an extra field set
func (r ActionResult) With(key string, value any) ActionResult {
	extra := make(map[string]any, len(r.Extra)+1)
	for k, v := range r.Extra {
		extra[k] = v
	}
	extra[key] = value
	r.Extra = extra
	return r
}

// Map flattens the result into a single map
func (r ActionResult) Map() map[string]any {
	m := make(map[string]any, len(r.Extra)+2)
	for k, v := range r.Extra {
		m[k] = v
	}
	m["success"] = r.Success
	m["message"] = r.Message
	return m
}

// MarshalJSON implements json.Marshaler
func (r ActionResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}
