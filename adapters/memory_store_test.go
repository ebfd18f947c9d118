package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voiceast/server/domain/entities"
	"github.com/voiceast/server/domain/repositories"
)

func TestMemoryStore_History(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, intent := range []string{"open_app", "time", "open_app"} {
		record := entities.NewCommandRecord("cmd", intent, "ok", i != 1, nil)
		record.Timestamp = base.Add(time.Duration(i) * time.Minute)
		if err := store.Save(ctx, record); err != nil {
			t.Fatalf("Failed to save record: %v", err)
		}
	}

	history, err := store.History(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to load history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(history))
	}
	if !history[0].Timestamp.After(history[1].Timestamp) {
		t.Error("Expected newest record first")
	}

	stats, err := store.Statistics(ctx)
	if err != nil {
		t.Fatalf("Failed to compute statistics: %v", err)
	}
	if stats.TotalCommands != 3 || stats.SuccessfulCommands != 2 {
		t.Errorf("Unexpected counters %+v", stats)
	}
	if len(stats.CommonIntents) != 2 || stats.CommonIntents[0].Intent != "open_app" || stats.CommonIntents[0].Count != 2 {
		t.Errorf("Unexpected common intents %+v", stats.CommonIntents)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Failed to clear: %v", err)
	}
	history, _ = store.History(ctx, 10)
	if len(history) != 0 {
		t.Errorf("Expected empty history after clear, got %d", len(history))
	}
}

func TestMemoryStore_SaveRejectsInvalid(t *testing.T) {
	store := NewMemoryStore()

	if err := store.Save(context.Background(), nil); err == nil {
		t.Error("Expected error for nil record")
	}

	record := entities.NewCommandRecord("cmd", "", "", false, nil)
	if err := store.Save(context.Background(), record); err == nil {
		t.Error("Expected error for record without intent")
	}
}

func TestMemoryStore_Preferences(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Get(ctx, "voice"); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := store.Set(ctx, "voice", "female"); err != nil {
		t.Fatalf("Failed to set preference: %v", err)
	}
	if err := store.Set(ctx, "voice", "male"); err != nil {
		t.Fatalf("Failed to overwrite preference: %v", err)
	}

	value, err := store.Get(ctx, "voice")
	if err != nil {
		t.Fatalf("Failed to get preference: %v", err)
	}
	if value != "male" {
		t.Errorf("Expected male, got %v", value)
	}
}

func TestMemoryStore_Memories(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, text := range []string{"My name is Asha", "I like jazz", "My dog is called Bruno"} {
		if err := store.AddMemory(ctx, text); err != nil {
			t.Fatalf("Failed to add memory: %v", err)
		}
	}

	tests := []struct {
		name  string
		query string
		limit int
		want  []string
	}{
		{name: "case insensitive", query: "my", limit: 5, want: []string{"My dog is called Bruno", "My name is Asha"}},
		{name: "limit", query: "", limit: 1, want: []string{"My dog is called Bruno"}},
		{name: "no match", query: "pizza", limit: 5, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.SearchMemories(ctx, tt.query, tt.limit)
			if err != nil {
				t.Fatalf("Failed to search: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expected %v, got %v", tt.want, got)
				}
			}
		})
	}

	if err := store.AddMemory(ctx, "  "); err == nil {
		t.Error("Expected error for blank memory")
	}
}
