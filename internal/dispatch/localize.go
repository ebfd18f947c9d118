package dispatch

import (
	"fmt"

	"github.com/voiceast/server/domain/entities"
)

// hindiMessages replaces executor messages on success. %s receives the
// action's main parameter where the template has one.
var hindiMessages = map[string]struct {
	template string
	param    string
}{
	"open_app":        {"%s खोला जा रहा है", "app_name"},
	"close_app":       {"%s बंद किया जा रहा है", "app_name"},
	"create_file":     {"फ़ाइल %s बनाई गई", "filename"},
	"delete_file":     {"फ़ाइल %s हटाई गई", "filename"},
	"volume_up":       {"वॉल्यूम बढ़ाया जा रहा है", ""},
	"volume_down":     {"वॉल्यूम घटाया जा रहा है", ""},
	"mute":            {"म्यूट किया जा रहा है", ""},
	"brightness_up":   {"चमक बढ़ाई जा रही है", ""},
	"brightness_down": {"चमक घटाई जा रही है", ""},
	"screenshot":      {"स्क्रीनशॉट लिया गया", ""},
	"take_screenshot": {"स्क्रीनशॉट लिया गया", ""},
	"web_search":      {"%s खोजा जा रहा है", "query"},
}

func localize(action string, params map[string]any) (string, bool) {
	entry, ok := hindiMessages[action]
	if !ok {
		return "", false
	}
	if entry.param == "" {
		return entry.template, true
	}
	return fmt.Sprintf(entry.template, entities.StringParam(params, entry.param, "")), true
}
