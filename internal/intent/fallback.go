package intent

import (
	"strings"

	"github.com/voiceast/server/domain/entities"
	"github.com/voiceast/server/internal/patterns"
)

const fallbackConfidence = 0.9

// Fallback is the deterministic keyword interpreter. It never fails and
// never blocks.
type Fallback struct {
	tables *patterns.Tables
}

// NewFallback creates a fallback interpreter over the given tables
func NewFallback(tables *patterns.Tables) *Fallback {
	if tables == nil {
		tables = patterns.Default()
	}
	return &Fallback{tables: tables}
}

// Interpret maps text to an intent using the ordered keyword tables.
// Text matching no action keyword yields IntentUnknown with zero confidence.
func (f *Fallback) Interpret(text string) entities.Intent {
	cleaned := f.clean(text)

	for _, set := range f.tables.Actions {
		for _, keyword := range set.Keywords {
			if !strings.Contains(cleaned, keyword) {
				continue
			}

			result := entities.Intent{
				Action:     set.Action,
				Params:     map[string]any{},
				Confidence: fallbackConfidence,
			}

			switch set.Action {
			case "open", "close":
				if app := f.appName(cleaned, keyword); app != "" {
					result.Action = set.Action + "_app"
					result.Params["app_name"] = app
				}
			case "search":
				f.searchQuery(cleaned, &result)
			}
			return result
		}
	}

	return entities.Intent{
		Action:     entities.IntentUnknown,
		Params:     map[string]any{},
		Confidence: 0,
	}
}

func (f *Fallback) clean(text string) string {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	for _, filler := range f.tables.Fillers {
		cleaned = strings.ReplaceAll(cleaned, filler, " ")
	}
	return strings.Join(strings.Fields(cleaned), " ")
}

// appName prefers a known entity and otherwise takes the word following the trigger
func (f *Fallback) appName(text, keyword string) string {
	for _, entity := range f.tables.Entities {
		for _, kw := range entity.Keywords {
			if strings.Contains(text, kw) {
				return entity.Name
			}
		}
	}

	words := strings.Fields(text)
	for i, word := range words {
		if !strings.Contains(word, keyword) {
			continue
		}
		if i+1 < len(words) {
			return words[i+1]
		}
		break
	}
	return ""
}

func (f *Fallback) searchQuery(text string, result *entities.Intent) {
	for _, set := range f.tables.Actions {
		if set.Action != "search" {
			continue
		}
		for _, keyword := range set.Keywords {
			idx := strings.Index(text, keyword)
			if idx < 0 {
				continue
			}
			query := strings.TrimSpace(text[idx+len(keyword):])
			if query != "" {
				result.Action = "web_search"
				result.Params["query"] = query
			}
			return
		}
	}
}
