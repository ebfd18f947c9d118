// Package synthesis bounds calls to the speech synthesizer. The gate never
// fails: every problem degrades to an empty audio payload.
package synthesis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voiceast/server/domain/repositories"
	"github.com/voiceast/server/internal/metrics"
)

// FastPathDeadline bounds synthesis for fast path turns
const FastPathDeadline = 3 * time.Second

// Unbounded disables the deadline
const Unbounded time.Duration = 0

const defaultSlowThreshold = 5 * time.Second

// Gate wraps a synthesizer with a deadline
type Gate struct {
	synthesizer   repositories.Synthesizer
	slowThreshold time.Duration
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// NewGate creates a gate. A nil synthesizer makes every call return "".
func NewGate(synthesizer repositories.Synthesizer, m *metrics.Metrics, logger *zap.Logger) *Gate {
	return &Gate{
		synthesizer:   synthesizer,
		slowThreshold: defaultSlowThreshold,
		metrics:       m,
		logger:        logger,
	}
}

// WithSlowThreshold sets the duration after which unbounded calls are logged
func (g *Gate) WithSlowThreshold(d time.Duration) *Gate {
	g.slowThreshold = d
	return g
}

// Available reports whether a synthesizer is configured
func (g *Gate) Available() bool {
	return g.synthesizer != nil
}

// Synthesize returns base64 encoded audio or "" on any failure. A positive
// deadline is enforced here: a synthesizer that ignores cancellation is
// abandoned once it expires and its late audio is discarded.
func (g *Gate) Synthesize(ctx context.Context, text, language string, deadline time.Duration) string {
	if g.synthesizer == nil || strings.TrimSpace(text) == "" {
		g.metrics.RecordSynthesis(metrics.SynthesisEmpty)
		return ""
	}

	if deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	start := time.Now()
	var (
		audio []byte
		err   error
	)
	select {
	case out := <-g.call(ctx, text, language):
		audio, err = out.audio, out.err
	case <-ctx.Done():
		err = ctx.Err()
	}
	elapsed := time.Since(start)

	if deadline <= 0 && g.slowThreshold > 0 && elapsed > g.slowThreshold {
		g.logger.Warn("Slow speech synthesis",
			zap.Duration("elapsed", elapsed),
			zap.Int("textLength", len(text)))
	}

	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			g.logger.Warn("Speech synthesis timed out",
				zap.Duration("deadline", deadline),
				zap.Duration("elapsed", elapsed))
			g.metrics.RecordSynthesis(metrics.SynthesisTimeout)
		case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
			g.logger.Debug("Speech synthesis cancelled", zap.Duration("elapsed", elapsed))
			g.metrics.RecordSynthesis(metrics.SynthesisEmpty)
		default:
			g.logger.Error("Speech synthesis failed", zap.Error(err))
			g.metrics.RecordSynthesis(metrics.SynthesisEmpty)
		}
		return ""
	}

	if len(audio) == 0 {
		g.metrics.RecordSynthesis(metrics.SynthesisEmpty)
		return ""
	}

	g.metrics.RecordSynthesis(metrics.SynthesisOK)
	return base64.StdEncoding.EncodeToString(audio)
}

type synthesisOutput struct {
	audio []byte
	err   error
}

// call runs the synthesizer on its own goroutine. The channel is buffered so
// an abandoned call can still complete and exit.
func (g *Gate) call(ctx context.Context, text, language string) <-chan synthesisOutput {
	out := make(chan synthesisOutput, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				g.logger.Error("Speech synthesizer panicked", zap.Any("panic", r))
				out <- synthesisOutput{err: fmt.Errorf("synthesizer panic: %v", r)}
			}
		}()
		audio, err := g.synthesizer.Synthesize(ctx, text, language)
		out <- synthesisOutput{audio: audio, err: err}
	}()
	return out
}
