package repositories

import (
	"context"

	"github.com/voiceast/server/domain/entities"
)

// Audio accepted by recognizers is 16-bit little endian PCM, mono
const (
	DefaultSampleRate = 16000
	WAVHeaderSize     = 44
)

// SpeechRecognizer abstracts speech recognition engines
type SpeechRecognizer interface {
	// NewStream opens a stateful recognizer for one session
	NewStream() (RecognizerStream, error)
	// Recognize transcribes a complete PCM payload in one shot
	Recognize(ctx context.Context, pcm []byte) (entities.Transcript, error)
}

// RecognizerStream is a stateful streaming recognizer owned by a single session.
// It is not safe for concurrent use.
type RecognizerStream interface {
	// AcceptChunk feeds audio and returns a partial or final transcript, or an empty one
	AcceptChunk(pcm []byte) (entities.Transcript, error)
	Close() error
}
