package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	vosk "github.com/alphacep/vosk-api/go"
	"go.uber.org/zap"

	"github.com/voiceast/server/domain/entities"
	"github.com/voiceast/server/domain/repositories"
)

// voskResult is the JSON emitted by Result and FinalResult
type voskResult struct {
	Text string `json:"text"`
}

// voskPartial is the JSON emitted by PartialResult
type voskPartial struct {
	Partial string `json:"partial"`
}

// VoskRecognizer implements repositories.SpeechRecognizer with a local Vosk model.
// The model is shared; every stream gets its own recognizer.
type VoskRecognizer struct {
	model      *vosk.VoskModel
	sampleRate float64
	logger     *zap.Logger
}

// NewVosk loads the model at modelPath
func NewVosk(modelPath string, logger *zap.Logger) (*VoskRecognizer, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("vosk model not found: %s", modelPath)
	}

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load vosk model: %w", err)
	}

	logger.Info("Vosk model loaded", zap.String("path", modelPath))
	return &VoskRecognizer{
		model:      model,
		sampleRate: repositories.DefaultSampleRate,
		logger:     logger,
	}, nil
}

// NewStream implements repositories.SpeechRecognizer
func (v *VoskRecognizer) NewStream() (repositories.RecognizerStream, error) {
	rec, err := vosk.NewRecognizer(v.model, v.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create vosk recognizer: %w", err)
	}
	return &voskStream{recognizer: rec}, nil
}

// Recognize implements repositories.SpeechRecognizer
func (v *VoskRecognizer) Recognize(ctx context.Context, pcm []byte) (entities.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return entities.Transcript{}, err
	}

	rec, err := vosk.NewRecognizer(v.model, v.sampleRate)
	if err != nil {
		return entities.Transcript{}, fmt.Errorf("failed to create vosk recognizer: %w", err)
	}
	defer rec.Free()

	rec.AcceptWaveform(pcm)
	text, err := parseVoskResult(rec.FinalResult())
	if err != nil {
		return entities.Transcript{}, err
	}
	return entities.Transcript{Text: text, IsFinal: true}, nil
}

// Close frees the model
func (v *VoskRecognizer) Close() {
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
}

type voskStream struct {
	recognizer *vosk.VoskRecognizer
}

// AcceptChunk implements repositories.RecognizerStream
func (s *voskStream) AcceptChunk(pcm []byte) (entities.Transcript, error) {
	if s.recognizer == nil {
		return entities.Transcript{}, fmt.Errorf("vosk stream closed")
	}

	if s.recognizer.AcceptWaveform(pcm) != 0 {
		text, err := parseVoskResult(s.recognizer.Result())
		if err != nil {
			return entities.Transcript{}, err
		}
		return entities.Transcript{Text: text, IsFinal: true}, nil
	}

	text, err := parseVoskPartial(s.recognizer.PartialResult())
	if err != nil {
		return entities.Transcript{}, err
	}
	return entities.Transcript{Text: text}, nil
}

// Close implements repositories.RecognizerStream
func (s *voskStream) Close() error {
	if s.recognizer != nil {
		s.recognizer.Free()
		s.recognizer = nil
	}
	return nil
}

func parseVoskResult(raw string) (string, error) {
	var result voskResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return "", fmt.Errorf("invalid vosk result: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}

func parseVoskPartial(raw string) (string, error) {
	var result voskPartial
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return "", fmt.Errorf("invalid vosk partial result: %w", err)
	}
	return strings.TrimSpace(result.Partial), nil
}
