// Package patterns holds the keyword and trigger tables used by the fast path
// and by the deterministic intent fallback. Tables are built once at startup
// and shared read-only.
package patterns

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FastRule maps a trigger substring to an action with a canned reply.
// An empty Reply is a placeholder the caller replaces with the action result.
type FastRule struct {
	Trigger string `yaml:"trigger"`
	Action  string `yaml:"action"`
	Reply   string `yaml:"reply"`
}

// PrefixRule captures the rest of the utterance after Prefix into Param.
// Reply is a format string receiving the captured value.
type PrefixRule struct {
	Prefix string `yaml:"prefix"`
	Action string `yaml:"action"`
	Param  string `yaml:"param"`
	Reply  string `yaml:"reply"`
}

// KeywordSet lists the keywords that select one action
type KeywordSet struct {
	Action   string   `yaml:"action"`
	Keywords []string `yaml:"keywords"`
}

// EntitySet lists the keywords that name one target entity
type EntitySet struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Tables is the complete pattern configuration. Slices are ordered and the
// first match wins everywhere.
type Tables struct {
	FastPath     []FastRule   `yaml:"fast_path"`
	FastPrefixes []PrefixRule `yaml:"fast_prefixes"`
	Fillers      []string     `yaml:"fillers"`
	Actions      []KeywordSet `yaml:"actions"`
	Entities     []EntitySet  `yaml:"entities"`
}

// Default returns the built-in tables
func Default() *Tables {
	return &Tables{
		FastPath: []FastRule{
			{Trigger: "screenshot", Action: "take_screenshot", Reply: "Screenshot captured!"},
			{Trigger: "take a screenshot", Action: "take_screenshot", Reply: "Screenshot captured!"},
			{Trigger: "volume up", Action: "volume_up", Reply: "Volume up!"},
			{Trigger: "louder", Action: "volume_up", Reply: "Louder!"},
			{Trigger: "volume down", Action: "volume_down", Reply: "Volume down!"},
			{Trigger: "quieter", Action: "volume_down", Reply: "Quieter!"},
			{Trigger: "mute", Action: "mute", Reply: "Muted!"},
			{Trigger: "time", Action: "time"},
			{Trigger: "what time", Action: "time"},
			{Trigger: "date", Action: "date"},
			{Trigger: "what's the date", Action: "date"},
			{Trigger: "brightness up", Action: "brightness_up", Reply: "Brighter!"},
			{Trigger: "brightness down", Action: "brightness_down", Reply: "Dimmer!"},
		},
		FastPrefixes: []PrefixRule{
			{Prefix: "open ", Action: "open_app", Param: "app_name", Reply: "Opening %s!"},
			{Prefix: "close ", Action: "close_app", Param: "app_name", Reply: "Closing %s!"},
		},
		Fillers: []string{"please", "can you", "could you", "would you", "i want to", "i need to", "hey", "ok"},
		Actions: []KeywordSet{
			{Action: "open", Keywords: []string{"open", "launch", "start", "run", "execute", "खोलो", "खोल", "स्टार्ट"}},
			{Action: "close", Keywords: []string{"close", "quit", "exit", "terminate", "stop", "बंद", "बंद करो"}},
			{Action: "take_screenshot", Keywords: []string{"screenshot", "screen shot", "capture screen", "take picture", "स्क्रीनशॉट"}},
			{Action: "volume_up", Keywords: []string{"increase volume", "volume up", "louder", "raise volume", "वॉल्यूम बढ़ाओ", "आवाज बढ़ा"}},
			{Action: "volume_down", Keywords: []string{"decrease volume", "volume down", "quieter", "lower volume", "वॉल्यूम घटाओ", "आवाज कम"}},
			{Action: "mute", Keywords: []string{"mute", "silence", "quiet", "म्यूट"}},
			{Action: "brightness_up", Keywords: []string{"increase brightness", "brightness up", "brighter", "चमक बढ़ाओ"}},
			{Action: "brightness_down", Keywords: []string{"decrease brightness", "brightness down", "darker", "चमक घटाओ"}},
			{Action: "time", Keywords: []string{"time", "what time", "current time", "समय", "टाइम"}},
			{Action: "date", Keywords: []string{"date", "what date", "today", "तारीख"}},
			{Action: "search", Keywords: []string{"search", "google", "look up", "find", "खोजो"}},
		},
		Entities: []EntitySet{
			{Name: "notepad", Keywords: []string{"notepad", "text editor", "नोटपैड"}},
			{Name: "chrome", Keywords: []string{"chrome", "browser", "google chrome", "क्रोम"}},
			{Name: "calculator", Keywords: []string{"calculator", "calc", "कैलकुलेटर"}},
			{Name: "file_explorer", Keywords: []string{"explorer", "file explorer", "files", "फाइल"}},
		},
	}
}

// LoadFile reads tables from a YAML file. Sections missing from the file keep
// their built-in defaults.
func LoadFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML tables on top of the defaults
func Parse(data []byte) (*Tables, error) {
	var fromFile Tables
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("failed to parse pattern file: %w", err)
	}

	tables := Default()
	if len(fromFile.FastPath) > 0 {
		tables.FastPath = fromFile.FastPath
	}
	if len(fromFile.FastPrefixes) > 0 {
		tables.FastPrefixes = fromFile.FastPrefixes
	}
	if len(fromFile.Fillers) > 0 {
		tables.Fillers = fromFile.Fillers
	}
	if len(fromFile.Actions) > 0 {
		tables.Actions = fromFile.Actions
	}
	if len(fromFile.Entities) > 0 {
		tables.Entities = fromFile.Entities
	}

	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return tables.normalized(), nil
}

// Validate checks that every rule is usable
func (t *Tables) Validate() error {
	for i, r := range t.FastPath {
		if strings.TrimSpace(r.Trigger) == "" || r.Action == "" {
			return fmt.Errorf("fast_path[%d]: trigger and action are required", i)
		}
	}
	for i, r := range t.FastPrefixes {
		if r.Prefix == "" || r.Action == "" || r.Param == "" {
			return fmt.Errorf("fast_prefixes[%d]: prefix, action and param are required", i)
		}
	}
	for i, a := range t.Actions {
		if a.Action == "" || len(a.Keywords) == 0 {
			return fmt.Errorf("actions[%d]: action and keywords are required", i)
		}
	}
	for i, e := range t.Entities {
		if e.Name == "" || len(e.Keywords) == 0 {
			return fmt.Errorf("entities[%d]: name and keywords are required", i)
		}
	}
	return nil
}

// normalized lower-cases every matchable string since matching runs on lower-cased text
func (t *Tables) normalized() *Tables {
	for i := range t.FastPath {
		t.FastPath[i].Trigger = strings.ToLower(t.FastPath[i].Trigger)
	}
	for i := range t.FastPrefixes {
		t.FastPrefixes[i].Prefix = strings.ToLower(t.FastPrefixes[i].Prefix)
	}
	for i := range t.Fillers {
		t.Fillers[i] = strings.ToLower(t.Fillers[i])
	}
	for i := range t.Actions {
		for j := range t.Actions[i].Keywords {
			t.Actions[i].Keywords[j] = strings.ToLower(t.Actions[i].Keywords[j])
		}
	}
	for i := range t.Entities {
		for j := range t.Entities[i].Keywords {
			t.Entities[i].Keywords[j] = strings.ToLower(t.Entities[i].Keywords[j])
		}
	}
	return t
}
