package intent

import "github.com/voiceast/server/domain/entities"

// DetectLanguage returns Hindi when the text contains any Devanagari code point
func DetectLanguage(text string) entities.Language {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return entities.LanguageHindi
		}
	}
	return entities.LanguageEnglish
}

// TurnLanguage is Hindi when the client hinted Hindi or the text contains
// Devanagari, English otherwise
func TurnLanguage(hint entities.Language, text string) entities.Language {
	if hint == entities.LanguageHindi {
		return entities.LanguageHindi
	}
	return DetectLanguage(text)
}
