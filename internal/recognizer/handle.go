// Package recognizer holds the per session streaming recognizer handle.
package recognizer

import (
	"errors"

	"go.uber.org/zap"

	"github.com/voiceast/server/domain/entities"
	"github.com/voiceast/server/domain/repositories"
)

// ErrUnavailable is returned by engines whose model could not be loaded
var ErrUnavailable = errors.New("speech recognition unavailable")

// Handle wraps one recognizer stream. A handle created without a working
// engine is null: every Feed returns an empty transcript.
// Handle is not safe for concurrent use; the owning session serializes calls.
type Handle struct {
	stream repositories.RecognizerStream
	logger *zap.Logger
}

// New opens a stream on engine, or returns a null handle when that fails
func New(engine repositories.SpeechRecognizer, logger *zap.Logger) *Handle {
	h := &Handle{logger: logger}
	if engine == nil {
		return h
	}

	stream, err := engine.NewStream()
	if err != nil {
		logger.Warn("Speech recognizer unavailable for session", zap.Error(err))
		return h
	}
	h.stream = stream
	return h
}

// Available reports whether the handle is backed by an engine stream
func (h *Handle) Available() bool {
	return h.stream != nil
}

// Feed appends one PCM chunk and returns a partial or final transcript.
// An empty Text means nothing was recognized.
func (h *Handle) Feed(chunk []byte) entities.Transcript {
	if h.stream == nil || len(chunk) == 0 {
		return entities.Transcript{}
	}

	transcript, err := h.stream.AcceptChunk(chunk)
	if err != nil {
		h.logger.Warn("Failed to process audio chunk", zap.Error(err))
		return entities.Transcript{}
	}
	if transcript.Empty() {
		return entities.Transcript{}
	}
	return transcript
}

// Close releases the engine stream. It is safe to call more than once.
func (h *Handle) Close() {
	if h.stream == nil {
		return
	}
	if err := h.stream.Close(); err != nil {
		h.logger.Warn("Failed to close recognizer stream", zap.Error(err))
	}
	h.stream = nil
}
