package stt

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/voiceast/server/domain/entities"
	"github.com/voiceast/server/domain/repositories"
)

// GoogleRecognizer implements repositories.SpeechRecognizer for Google Cloud
type GoogleRecognizer struct {
	client       *speech.Client
	languageCode string
	logger       *zap.Logger
}

// NewGoogle creates the Google Cloud Speech client. Credentials come from the
// environment (GOOGLE_APPLICATION_CREDENTIALS).
func NewGoogle(ctx context.Context, languageCode string, logger *zap.Logger) (*GoogleRecognizer, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	if languageCode == "" {
		languageCode = "en-US"
	}
	return &GoogleRecognizer{client: client, languageCode: languageCode, logger: logger}, nil
}

func (g *GoogleRecognizer) recognitionConfig() *speechpb.RecognitionConfig {
	return &speechpb.RecognitionConfig{
		Encoding:                 speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:          repositories.DefaultSampleRate,
		LanguageCode:             g.languageCode,
		AlternativeLanguageCodes: []string{"hi-IN"},
	}
}

// Recognize implements repositories.SpeechRecognizer (non-streaming)
func (g *GoogleRecognizer) Recognize(ctx context.Context, pcm []byte) (entities.Transcript, error) {
	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: g.recognitionConfig(),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm},
		},
	})
	if err != nil {
		return entities.Transcript{}, fmt.Errorf("failed to recognize audio: %w", err)
	}

	var parts []string
	var confidence float32
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		// Take the best alternative
		parts = append(parts, result.Alternatives[0].Transcript)
		confidence = result.Alternatives[0].Confidence
	}
	return entities.Transcript{
		Text:       strings.TrimSpace(strings.Join(parts, " ")),
		IsFinal:    true,
		Confidence: float64(confidence),
	}, nil
}

// NewStream implements repositories.SpeechRecognizer
func (g *GoogleRecognizer) NewStream() (repositories.RecognizerStream, error) {
	ctx, cancel := context.WithCancel(context.Background())

	stream, err := g.client.StreamingRecognize(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	// Send initial configuration
	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:         g.recognitionConfig(),
				InterimResults: true,
			},
		},
	}); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	s := &googleStream{
		stream:  stream,
		cancel:  cancel,
		results: make(chan entities.Transcript, 16),
		logger:  g.logger,
	}
	go s.receiveResults()
	return s, nil
}

// Close closes the underlying client
func (g *GoogleRecognizer) Close() error {
	return g.client.Close()
}

// googleStream pushes audio synchronously and collects results from a
// receiver goroutine. AcceptChunk returns whatever arrived since the last call.
type googleStream struct {
	stream  speechpb.Speech_StreamingRecognizeClient
	cancel  context.CancelFunc
	results chan entities.Transcript

	mu       sync.Mutex
	err      error
	closeOne sync.Once
	logger   *zap.Logger
}

// AcceptChunk implements repositories.RecognizerStream
func (s *googleStream) AcceptChunk(pcm []byte) (entities.Transcript, error) {
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return entities.Transcript{}, err
	}

	if err := s.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: pcm,
		},
	}); err != nil {
		return entities.Transcript{}, fmt.Errorf("failed to send audio data: %w", err)
	}

	return drain(s.results), nil
}

// drain returns the most useful pending transcript: the first final one,
// otherwise the latest partial.
func drain(results <-chan entities.Transcript) entities.Transcript {
	var latest entities.Transcript
	for {
		select {
		case t, ok := <-results:
			if !ok {
				return latest
			}
			if t.IsFinal {
				return t
			}
			latest = t
		default:
			return latest
		}
	}
}

func (s *googleStream) receiveResults() {
	defer close(s.results)

	for {
		resp, err := s.stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			s.mu.Lock()
			s.err = fmt.Errorf("failed to receive response: %w", err)
			s.mu.Unlock()
			return
		}

		if t, ok := transcriptFromResponse(resp); ok {
			select {
			case s.results <- t:
			default:
				s.logger.Debug("Dropping transcript, reader is behind")
			}
		}
	}
}

// transcriptFromResponse extracts the best alternative of the first result
func transcriptFromResponse(resp *speechpb.StreamingRecognizeResponse) (entities.Transcript, bool) {
	for _, result := range resp.GetResults() {
		if len(result.Alternatives) == 0 {
			continue
		}
		text := strings.TrimSpace(result.Alternatives[0].Transcript)
		if text == "" {
			continue
		}
		return entities.Transcript{
			Text:       text,
			IsFinal:    result.IsFinal,
			Confidence: float64(result.Alternatives[0].Confidence),
		}, true
	}
	return entities.Transcript{}, false
}

// Close implements repositories.RecognizerStream
func (s *googleStream) Close() error {
	var err error
	s.closeOne.Do(func() {
		err = s.stream.CloseSend()
		s.cancel()
	})
	return err
}
