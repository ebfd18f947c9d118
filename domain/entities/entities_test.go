package entities

import (
	"encoding/json"
	"testing"
)

func TestNewCommandRecord(t *testing.T) {
	record := NewCommandRecord("open notepad", "open_app", "Opened notepad", true, nil)

	if record.ID.IsZero() {
		t.Error("Expected generated ID")
	}

	if record.Metadata == nil {
		t.Error("Expected metadata map to be initialized")
	}

	if err := record.Validate(); err != nil {
		t.Errorf("Expected valid record, got %v", err)
	}

	record.Intent = ""
	if err := record.Validate(); err == nil {
		t.Error("Expected error for missing intent")
	}
}

func TestNewStatistics(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		successful int64
		wantRate   float64
	}{
		{name: "empty history", total: 0, successful: 0, wantRate: 0},
		{name: "all successful", total: 4, successful: 4, wantRate: 1},
		{name: "half successful", total: 4, successful: 2, wantRate: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := NewStatistics(tt.total, tt.successful, nil)
			if stats.SuccessRate != tt.wantRate {
				t.Errorf("Expected success rate %f, got %f", tt.wantRate, stats.SuccessRate)
			}
			if stats.CommonIntents == nil {
				t.Error("Expected non-nil common intents")
			}
		})
	}
}

func TestActionResult_MarshalJSON(t *testing.T) {
	result := ActionResult{Success: true, Message: "The current time is 10:30 AM"}.With("time", "10:30 AM")

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Failed to marshal result: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal result: %v", err)
	}

	if decoded["success"] != true {
		t.Errorf("Expected success true, got %v", decoded["success"])
	}

	if decoded["time"] != "10:30 AM" {
		t.Errorf("Expected flattened time field, got %v", decoded["time"])
	}
}

func TestActionResult_WithDoesNotMutate(t *testing.T) {
	base := ActionResult{Success: true, Message: "ok", Extra: map[string]any{"a": 1}}
	_ = base.With("b", 2)

	if _, ok := base.Extra["b"]; ok {
		t.Error("With must not modify the receiver's extra map")
	}
}

func TestStringParam(t *testing.T) {
	params := map[string]any{
		"app_name": "notepad",
		"empty":    "  ",
		"count":    3,
	}

	if got := StringParam(params, "app_name", ""); got != "notepad" {
		t.Errorf("Expected notepad, got %q", got)
	}

	if got := StringParam(params, "empty", "documents"); got != "documents" {
		t.Errorf("Expected default for blank value, got %q", got)
	}

	if got := StringParam(params, "count", ""); got != "3" {
		t.Errorf("Expected numeric value rendered as string, got %q", got)
	}

	if got := StringParam(nil, "missing", "x"); got != "x" {
		t.Errorf("Expected default for nil params, got %q", got)
	}
}

func TestParseLanguage(t *testing.T) {
	if ParseLanguage("HI") != LanguageHindi {
		t.Error("Expected hi to parse as Hindi")
	}
	if ParseLanguage("fr") != LanguageEnglish {
		t.Error("Expected unsupported language to fall back to English")
	}
}
