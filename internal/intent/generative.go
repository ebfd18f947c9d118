package intent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SystemPrompt is the fixed instruction set sent with every interpreter call
const SystemPrompt = `You are Prime, a voice assistant that controls a Windows PC. Always respond in JSON only.

ACTIONS (use "action" field):
- open_app: params {"app_name": "notepad/chrome/calculator/explorer/paint/cmd"}
- close_app: params {"app_name": "name"}
- take_screenshot: params {}
- volume_up, volume_down, mute: params {}
- brightness_up, brightness_down: params {}
- time, date: params {}
- web_search: params {"query": "term"}
- shutdown, restart, system_info: params {}
- open_camera, close_camera: params {}

FORMAT: {"response": "short reply", "action": "action_or_null", "params": {}}

Examples:
"open notepad" → {"response": "Opening Notepad!", "action": "open_app", "params": {"app_name": "notepad"}}
"what time" → {"response": "Checking!", "action": "time", "params": {}}
"volume up" → {"response": "Louder!", "action": "volume_up", "params": {}}
"hello" → {"response": "Hi! How can I help?", "action": null, "params": {}}

Return ONLY JSON. Keep response under 10 words.`

// Wall clock layouts shared with the dispatch table
const (
	ClockLayout    = "03:04 PM"
	DayLayout      = "Monday, January 02, 2006"
	ShortDayLayout = "January 02, 2006"
)

// UserContent builds the per call user message with the wall clock as context
func UserContent(now time.Time, utterance string) string {
	return fmt.Sprintf("Current time: %s, Date: %s\n\nUser says: %s",
		now.Format(ClockLayout), now.Format(DayLayout), utterance)
}

// Reply is the tagged result of parsing a raw interpreter reply.
// Exactly one of Parsed or Unparsed is meaningful, selected by OK.
type Reply struct {
	OK       bool
	Parsed   Parsed
	Unparsed Unparsed
}

// Parsed is a reply that contained a decodable JSON object
type Parsed struct {
	Response string
	Action   string
	Params   map[string]any
}

// Unparsed is a reply with no usable JSON, kept verbatim
type Unparsed struct {
	Raw string
}

type wireReply struct {
	Response *string         `json:"response"`
	Action   json.RawMessage `json:"action"`
	Params   json.RawMessage `json:"params"`
}

// ParseReply extracts the region between the first '{' and the last '}' and
// decodes it. Any failure yields an Unparsed reply carrying the trimmed raw text.
func ParseReply(raw string) Reply {
	unparsed := Reply{Unparsed: Unparsed{Raw: strings.TrimSpace(raw)}}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return unparsed
	}

	var wire wireReply
	if err := json.Unmarshal([]byte(raw[start:end+1]), &wire); err != nil {
		return unparsed
	}

	parsed := Parsed{
		Response: raw,
		Action:   decodeAction(wire.Action),
		Params:   decodeParams(wire.Params),
	}
	if wire.Response != nil {
		parsed.Response = *wire.Response
	}
	return Reply{OK: true, Parsed: parsed}
}

func decodeAction(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var action string
	if err := json.Unmarshal(raw, &action); err != nil {
		return ""
	}
	action = strings.TrimSpace(action)
	switch strings.ToLower(action) {
	case "null", "none":
		return ""
	}
	return action
}

func decodeParams(raw json.RawMessage) map[string]any {
	params := map[string]any{}
	if len(raw) == 0 {
		return params
	}
	if err := json.Unmarshal(raw, &params); err != nil || params == nil {
		return map[string]any{}
	}
	return params
}
