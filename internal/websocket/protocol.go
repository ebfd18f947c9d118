package websocket

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voiceast/server/domain"
	"github.com/voiceast/server/domain/entities"
	"github.com/voiceast/server/domain/repositories"
	"github.com/voiceast/server/internal/intent"
	"github.com/voiceast/server/internal/metrics"
	"github.com/voiceast/server/internal/synthesis"
)

const (
	defaultVisionPrompt   = "Describe what you see in this image in 1-2 short sentences. Be concise and natural, as if speaking to someone."
	visionQAPrompt        = "The user is asking: '%s'. Look at the image and answer their question in 1-2 short sentences. Be conversational and natural."
	visionFailedText      = "Vision analysis failed"
	visionUnavailableText = "Vision model not available"

	historyTimeout = 5 * time.Second
)

var greetings = []string{
	"Hello! How can I help?",
	"Hi! What can I do for you?",
	"Hey! I'm listening.",
	"Yes? How can I help?",
}

var validator = NewMessageValidator()

func connectedMessage() domain.ConnectedMessage {
	return domain.ConnectedMessage{Type: domain.TypeConnected, Message: domain.ConnectedText}
}

// processMessage decodes one inbound frame and runs the matching handler.
// Malformed frames are logged and ignored. A panicking turn is closed with a
// failed result so the session keeps serving.
func (c *Client) processMessage(message []byte) {
	msg, err := validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Ignoring invalid message", zap.Error(err))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Turn panicked",
				zap.String("messageType", fmt.Sprintf("%T", msg)),
				zap.Any("panic", r))
			c.finishTurn(domain.NewResultMessage(false, domain.TurnErrorText, "", string(c.language), nil))
		}
	}()

	switch m := msg.(type) {
	case *PingMessage:
		c.sendJSON(domain.PongMessage{Type: domain.TypePong})
	case *GreetingMessage:
		c.handleGreeting()
	case *VoiceCommandMessage:
		c.handleVoiceCommand(m)
	case *AudioStreamMessage:
		c.handleAudioStream(m)
	case *VoiceAudioFileMessage:
		c.handleVoiceAudioFile(m)
	case *AnalyzeFrameMessage:
		c.handleAnalyzeFrame(m)
	}
}

func (c *Client) handleGreeting() {
	start := time.Now()
	s := c.hub.services

	text := greetings[rand.Intn(len(greetings))]
	audio := s.Gate.Synthesize(c.ctx, text, string(c.language), synthesis.FastPathDeadline)

	result := domain.NewResultMessage(true, text, audio, "", nil)
	result.IsGreeting = true
	c.finishTurn(result)
	s.Metrics.RecordTurn(metrics.PathGreeting, true, time.Since(start))
}

// handleVoiceCommand runs a text turn: vision Q&A when a frame is attached,
// otherwise the fast path and then the resolver.
func (c *Client) handleVoiceCommand(msg *VoiceCommandMessage) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	start := time.Now()

	language := intent.TurnLanguage(entities.ParseLanguage(msg.Language), text)
	c.language = language

	c.sendJSON(domain.ProcessingMessage{Type: domain.TypeProcessing, Command: text})

	if msg.Image != "" && c.visionQA(text, msg.Image, language, start) {
		return
	}

	if c.fastPath(text, language, start) {
		return
	}

	c.resolverTurn(text, language, start)
}

// visionQA answers a question about an image. It reports false when vision
// is unavailable or failed so the caller can fall through to normal routing.
func (c *Client) visionQA(text, image string, language entities.Language, start time.Time) bool {
	s := c.hub.services
	if s.Vision == nil || !s.Vision.Available(c.ctx) {
		return false
	}

	answer := s.Vision.Analyze(c.ctx, image, fmt.Sprintf(visionQAPrompt, text))
	if !answer.Success {
		c.logger.Warn("Vision answer failed, falling back to command routing",
			zap.String("error", answer.Error))
		return false
	}

	audio := s.Gate.Synthesize(c.ctx, answer.Description, string(language), synthesis.Unbounded)
	c.finishTurn(domain.NewResultMessage(true, answer.Description, audio, string(language), map[string]interface{}{
		"command": text,
		"vision":  true,
	}))

	c.saveTurn(text, entities.IntentVisionQA, answer.Description, true, map[string]interface{}{"vision": true})
	s.Metrics.RecordTurn(metrics.PathVision, true, time.Since(start))
	return true
}

// fastPath handles a fast path hit and reports whether there was one
func (c *Client) fastPath(text string, language entities.Language, start time.Time) bool {
	s := c.hub.services

	match, ok := s.Matcher.Match(text)
	if !ok {
		return false
	}
	c.logger.Debug("Fast path hit", zap.String("action", match.Action))

	result := s.Dispatcher.Dispatch(c.ctx, match.Action, match.Params, language)

	reply := match.Reply
	if match.Placeholder() {
		reply = result.Message
	}

	audio := s.Gate.Synthesize(c.ctx, reply, string(language), synthesis.FastPathDeadline)
	c.finishTurn(domain.NewResultMessage(result.Success, reply, audio, string(language), map[string]interface{}{
		"command": text,
		"action":  match.Action,
	}))

	c.saveTurn(text, match.Action, reply, result.Success, nil)
	s.Metrics.RecordTurn(metrics.PathFastPath, result.Success, time.Since(start))
	return true
}

// resolverTurn runs the slow path through the intent resolver
func (c *Client) resolverTurn(text string, language entities.Language, start time.Time) {
	s := c.hub.services

	resolved := s.Resolver.Resolve(c.ctx, text, language)
	c.sendIntent(resolved)

	success, reply := c.execute(resolved)

	lang := string(resolved.Language)
	audio := s.Gate.Synthesize(c.ctx, reply, lang, synthesis.Unbounded)
	c.finishTurn(domain.NewResultMessage(success, reply, audio, lang, map[string]interface{}{
		"command": text,
	}))

	c.saveTurn(text, resolved.Name(), reply, success, nil)
	s.Metrics.RecordTurn(metrics.PathResolver, success, time.Since(start))
}

// execute dispatches the intent's action. The interpreter's own reply is
// kept unless it is empty or the action computes its answer (time, date).
func (c *Client) execute(resolved entities.Intent) (bool, string) {
	if resolved.Action == "" {
		return true, resolved.Response
	}

	result := c.hub.services.Dispatcher.Dispatch(c.ctx, resolved.Action, resolved.Params, resolved.Language)
	reply := resolved.Response
	if reply == "" || resolved.Action == "time" || resolved.Action == "date" {
		reply = result.Message
	}
	return result.Success, reply
}

// handleAudioStream feeds one chunk to the session recognizer. A final
// transcript becomes a turn resolved by the deterministic fallback.
func (c *Client) handleAudioStream(msg *AudioStreamMessage) {
	if c.limiter != nil && !c.limiter.Allow() {
		c.logger.Warn("Dropping audio frame over rate limit", zap.Int("size", len(msg.Data)))
		return
	}

	transcript := c.handle.Feed(msg.Data)
	if transcript.Empty() {
		return
	}

	c.sendJSON(domain.TranscriptionMessage{
		Type:    domain.TypeTranscription,
		Text:    transcript.Text,
		IsFinal: transcript.IsFinal,
	})

	if transcript.IsFinal {
		c.transcriptTurn(transcript.Text, time.Now())
	}
}

// handleVoiceAudioFile recognizes a complete WAV recording in one shot and
// continues like a final streaming transcript.
func (c *Client) handleVoiceAudioFile(msg *VoiceAudioFileMessage) {
	start := time.Now()

	text, err := c.recognizeFile(c.ctx, msg.Audio)
	if err != nil {
		c.logger.Error("Failed to process audio file", zap.Error(err))
		c.finishTurn(domain.NewResultMessage(false, fmt.Sprintf("Error processing audio: %s", err), "", "", nil))
		return
	}

	if text == "" {
		c.finishTurn(domain.NewResultMessage(false, domain.NoSpeechText, "", "", nil))
		return
	}

	confidence := 1.0
	c.sendJSON(domain.TranscriptionMessage{
		Type:       domain.TypeTranscription,
		Text:       text,
		IsFinal:    true,
		Confidence: &confidence,
	})
	c.transcriptTurn(text, start)
}

func (c *Client) recognizeFile(ctx context.Context, audio string) (string, error) {
	wav, err := base64.StdEncoding.DecodeString(audio)
	if err != nil {
		return "", fmt.Errorf("invalid base64 audio: %w", err)
	}

	pcm := wav
	if len(wav) > repositories.WAVHeaderSize {
		pcm = wav[repositories.WAVHeaderSize:]
	}

	engine := c.hub.services.Recognizer
	if engine == nil {
		return "", fmt.Errorf("speech recognition unavailable")
	}

	transcript, err := engine.Recognize(ctx, pcm)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(transcript.Text), nil
}

// transcriptTurn runs a recognized utterance through the fallback branch
func (c *Client) transcriptTurn(text string, start time.Time) {
	s := c.hub.services

	resolved := s.Resolver.ResolveFallback(text, entities.LanguageEnglish)
	c.sendIntent(resolved)

	result := s.Dispatcher.Dispatch(c.ctx, resolved.Action, resolved.Params, resolved.Language)

	language := string(resolved.Language)
	audio := s.Gate.Synthesize(c.ctx, result.Message, language, synthesis.Unbounded)
	c.finishTurn(domain.NewResultMessage(result.Success, result.Message, audio, language, result.Map()))

	c.saveTurn(text, resolved.Name(), result.Message, result.Success, result.Map())
	s.Metrics.RecordTurn(metrics.PathStream, result.Success, time.Since(start))
}

// handleAnalyzeFrame describes a camera frame
func (c *Client) handleAnalyzeFrame(msg *AnalyzeFrameMessage) {
	start := time.Now()
	s := c.hub.services

	prompt := msg.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultVisionPrompt
	}

	var answer repositories.VisionResult
	if s.Vision == nil || !s.Vision.Available(c.ctx) {
		answer = repositories.VisionResult{Error: visionUnavailableText}
	} else {
		answer = s.Vision.Analyze(c.ctx, msg.Image, prompt)
	}

	reply := domain.VisionResultMessage{Type: domain.TypeVisionResult, Success: answer.Success}
	if answer.Success {
		reply.Description = answer.Description
		reply.Audio = s.Gate.Synthesize(c.ctx, answer.Description, string(entities.LanguageEnglish), synthesis.Unbounded)
	} else {
		reply.Description = answer.Error
		if reply.Description == "" {
			reply.Description = visionFailedText
		}
	}

	if c.sendJSON(reply) {
		c.sendJSON(domain.NewReadyMessage())
	}
	s.Metrics.RecordTurn(metrics.PathVision, answer.Success, time.Since(start))
}

func (c *Client) sendIntent(resolved entities.Intent) {
	params := resolved.Params
	if params == nil {
		params = map[string]interface{}{}
	}
	c.sendJSON(domain.IntentMessage{
		Type:       domain.TypeIntent,
		Intent:     resolved.Name(),
		Parameters: params,
		Confidence: resolved.Confidence,
	})
}

// finishTurn emits the terminal result followed by ready. Once the peer is
// gone nothing more is attempted.
func (c *Client) finishTurn(result domain.ResultMessage) {
	if c.sendJSON(result) {
		c.sendJSON(domain.NewReadyMessage())
	}
}

// saveTurn stores the turn in the command history, best effort
func (c *Client) saveTurn(command, intentName, response string, success bool, metadata map[string]interface{}) {
	history := c.hub.services.History
	if history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()

	record := entities.NewCommandRecord(command, intentName, response, success, metadata)
	if err := history.Save(ctx, record); err != nil {
		c.logger.Warn("Failed to save command history",
			zap.String("intent", intentName),
			zap.Error(err))
	}
}
