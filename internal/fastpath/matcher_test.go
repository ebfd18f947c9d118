package fastpath

import (
	"testing"

	"github.com/voiceast/server/internal/patterns"
)

func TestMatcher_Triggers(t *testing.T) {
	matcher := NewMatcher(patterns.Default())

	tests := []struct {
		input      string
		wantAction string
		wantReply  string
	}{
		{input: "screenshot", wantAction: "take_screenshot", wantReply: "Screenshot captured!"},
		{input: "Take A Screenshot", wantAction: "take_screenshot", wantReply: "Screenshot captured!"},
		{input: "volume up", wantAction: "volume_up", wantReply: "Volume up!"},
		{input: "  VOLUME UP  ", wantAction: "volume_up", wantReply: "Volume up!"},
		{input: "a bit louder", wantAction: "volume_up", wantReply: "Louder!"},
		{input: "volume down", wantAction: "volume_down", wantReply: "Volume down!"},
		{input: "quieter please", wantAction: "volume_down", wantReply: "Quieter!"},
		{input: "mute", wantAction: "mute", wantReply: "Muted!"},
		{input: "what time is it", wantAction: "time", wantReply: ""},
		{input: "What's the date", wantAction: "date", wantReply: ""},
		{input: "brightness up", wantAction: "brightness_up", wantReply: "Brighter!"},
		{input: "brightness down", wantAction: "brightness_down", wantReply: "Dimmer!"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			match, ok := matcher.Match(tt.input)
			if !ok {
				t.Fatalf("Expected fast path hit for %q", tt.input)
			}
			if match.Action != tt.wantAction {
				t.Errorf("Expected action %s, got %s", tt.wantAction, match.Action)
			}
			if match.Reply != tt.wantReply {
				t.Errorf("Expected reply %q, got %q", tt.wantReply, match.Reply)
			}
		})
	}
}

func TestMatcher_Deterministic(t *testing.T) {
	matcher := NewMatcher(nil)

	for _, rule := range patterns.Default().FastPath {
		first, ok := matcher.Match(rule.Trigger)
		if !ok {
			t.Fatalf("Expected hit for trigger %q", rule.Trigger)
		}
		second, _ := matcher.Match("  " + rule.Trigger + " ")
		if first.Action != second.Action || first.Reply != second.Reply {
			t.Errorf("Trigger %q matched differently with surrounding whitespace", rule.Trigger)
		}
	}
}

func TestMatcher_Prefixes(t *testing.T) {
	matcher := NewMatcher(patterns.Default())

	match, ok := matcher.Match("Open Spotify")
	if !ok {
		t.Fatal("Expected open prefix hit")
	}
	if match.Action != "open_app" {
		t.Errorf("Expected open_app, got %s", match.Action)
	}
	if match.Params["app_name"] != "spotify" {
		t.Errorf("Expected app_name spotify, got %v", match.Params["app_name"])
	}
	if match.Reply != "Opening spotify!" {
		t.Errorf("Expected reply 'Opening spotify!', got %q", match.Reply)
	}

	match, ok = matcher.Match("close notepad")
	if !ok || match.Action != "close_app" || match.Reply != "Closing notepad!" {
		t.Errorf("Unexpected close match: %+v (ok=%v)", match, ok)
	}
}

func TestMatcher_TriggersBeforePrefixes(t *testing.T) {
	matcher := NewMatcher(patterns.Default())

	// "open the volume up panel" starts with "open " but the category trigger wins
	match, ok := matcher.Match("open the volume up panel")
	if !ok {
		t.Fatal("Expected hit")
	}
	if match.Action != "volume_up" {
		t.Errorf("Expected trigger table to win over prefix, got %s", match.Action)
	}
}

func TestMatcher_Miss(t *testing.T) {
	matcher := NewMatcher(patterns.Default())

	for _, input := range []string{"", "   ", "tell me a joke", "search for golang"} {
		if _, ok := matcher.Match(input); ok {
			t.Errorf("Expected miss for %q", input)
		}
	}
}

func TestMatch_Placeholder(t *testing.T) {
	matcher := NewMatcher(patterns.Default())

	match, _ := matcher.Match("time")
	if !match.Placeholder() {
		t.Error("Expected time reply to be a placeholder")
	}

	match, _ = matcher.Match("mute")
	if match.Placeholder() {
		t.Error("Expected mute reply to be canned")
	}
}
