// Package intent turns an utterance into an Intent, either through a
// generative interpreter or through the deterministic keyword fallback.
package intent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/voiceast/server/domain/entities"
	"github.com/voiceast/server/domain/repositories"
)

const (
	actionConfidence       = 0.95
	conversationConfidence = 0.8
)

// Resolver picks the generative branch when it is enabled and reachable and
// degrades to the fallback otherwise. Resolve never fails.
type Resolver struct {
	interpreter repositories.Interpreter
	fallback    *Fallback
	enabled     bool
	now         func() time.Time
	logger      *zap.Logger
}

// NewResolver creates a resolver. A nil interpreter disables the generative branch.
func NewResolver(interpreter repositories.Interpreter, fallback *Fallback, enabled bool, logger *zap.Logger) *Resolver {
	if fallback == nil {
		fallback = NewFallback(nil)
	}
	return &Resolver{
		interpreter: interpreter,
		fallback:    fallback,
		enabled:     enabled && interpreter != nil,
		now:         time.Now,
		logger:      logger,
	}
}

// WithClock replaces the clock passed to the interpreter as context
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// GenerativeAvailable reports whether the next Resolve may use the interpreter
func (r *Resolver) GenerativeAvailable(ctx context.Context) bool {
	return r.enabled && r.interpreter.Available(ctx)
}

// Resolve interprets text. The language comes from the input: the client's
// hint when it is Hindi, otherwise detection on the text.
func (r *Resolver) Resolve(ctx context.Context, text string, hint entities.Language) entities.Intent {
	language := TurnLanguage(hint, text)

	if r.GenerativeAvailable(ctx) {
		raw, err := r.interpreter.Complete(ctx, SystemPrompt, UserContent(r.now(), text))
		if err == nil {
			result := fromReply(ParseReply(raw))
			result.Language = language
			return result
		}
		r.logger.Warn("Interpreter failed, using fallback",
			zap.String("text", text),
			zap.Error(err))
	}

	return r.ResolveFallback(text, hint)
}

// ResolveFallback runs the deterministic branch alone
func (r *Resolver) ResolveFallback(text string, hint entities.Language) entities.Intent {
	result := r.fallback.Interpret(text)
	result.Language = TurnLanguage(hint, text)
	return result
}

func fromReply(reply Reply) entities.Intent {
	if !reply.OK {
		return entities.Intent{
			Response:   reply.Unparsed.Raw,
			Params:     map[string]any{},
			Confidence: conversationConfidence,
		}
	}

	confidence := conversationConfidence
	if reply.Parsed.Action != "" {
		confidence = actionConfidence
	}
	return entities.Intent{
		Response:   reply.Parsed.Response,
		Action:     reply.Parsed.Action,
		Params:     reply.Parsed.Params,
		Confidence: confidence,
	}
}
