// Package fastpath maps common commands straight to an action without
// calling any model.
package fastpath

import (
	"fmt"
	"strings"

	"github.com/voiceast/server/internal/patterns"
)

// Match is a fast path hit
type Match struct {
	Action string
	Params map[string]any
	// Reply is the canned spoken reply. Empty means the caller must use
	// the dispatched action's message instead.
	Reply string
}

// Placeholder reports whether the canned reply must be replaced by the action result
func (m Match) Placeholder() bool {
	return m.Reply == ""
}

// Matcher is a pure function over immutable tables
type Matcher struct {
	tables *patterns.Tables
}

// NewMatcher creates a matcher over the given tables
func NewMatcher(tables *patterns.Tables) *Matcher {
	if tables == nil {
		tables = patterns.Default()
	}
	return &Matcher{tables: tables}
}

// Match checks the ordered trigger table first and the prefix rules second
func (m *Matcher) Match(text string) (Match, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Match{}, false
	}

	for _, rule := range m.tables.FastPath {
		if strings.Contains(normalized, rule.Trigger) {
			return Match{
				Action: rule.Action,
				Params: map[string]any{},
				Reply:  rule.Reply,
			}, true
		}
	}

	for _, rule := range m.tables.FastPrefixes {
		if !strings.HasPrefix(normalized, rule.Prefix) {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(normalized, rule.Prefix))
		reply := rule.Reply
		if strings.Contains(reply, "%s") {
			reply = fmt.Sprintf(reply, value)
		}
		return Match{
			Action: rule.Action,
			Params: map[string]any{rule.Param: value},
			Reply:  reply,
		}, true
	}

	return Match{}, false
}
