package repositories

import "context"

// Synthesizer converts text into audio bytes.
// Implementations must stop work when ctx is cancelled.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// Voice describes one voice offered by a synthesizer
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
}

// VoiceLister is implemented by synthesizers that can enumerate their voices
type VoiceLister interface {
	Voices(ctx context.Context) ([]Voice, error)
}
