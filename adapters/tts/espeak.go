package tts

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/voiceast/server/domain/repositories"
)

const (
	defaultEspeakBinary = "espeak-ng"
	defaultEspeakRate   = 150
	defaultEspeakVolume = 0.9
)

// ErrEspeakNotFound is returned when the espeak binary is not on PATH
var ErrEspeakNotFound = errors.New("espeak binary not found")

// EspeakConfig configures the offline subprocess synthesizer
type EspeakConfig struct {
	Binary string
	Rate   int     // words per minute
	Volume float64 // between 0 and 1
}

// NewEspeakConfigFromEnv creates a new EspeakConfig from environment variables
func NewEspeakConfigFromEnv() EspeakConfig {
	config := EspeakConfig{Binary: os.Getenv("ESPEAK_BINARY")}

	if rateStr := os.Getenv("TTS_RATE"); rateStr != "" {
		if rate, err := strconv.Atoi(rateStr); err == nil {
			config.Rate = rate
		}
	}

	if volumeStr := os.Getenv("TTS_VOLUME"); volumeStr != "" {
		if volume, err := strconv.ParseFloat(volumeStr, 64); err == nil {
			config.Volume = volume
		}
	}

	return config
}

// ValidateEspeakConfig validates the EspeakConfig
func ValidateEspeakConfig(config EspeakConfig) error {
	if config.Rate < 0 {
		return fmt.Errorf("rate must be positive, got %d", config.Rate)
	}
	if config.Volume < 0 || config.Volume > 1 {
		return fmt.Errorf("volume must be between 0 and 1, got %f", config.Volume)
	}
	return nil
}

// Espeak synthesizes WAV audio by running espeak-ng with --stdout
type Espeak struct {
	binary    string
	rate      int
	amplitude int
	logger    *zap.Logger
}

var (
	_ repositories.Synthesizer = (*Espeak)(nil)
	_ repositories.VoiceLister = (*Espeak)(nil)
)

// NewEspeak creates the synthesizer. It fails when the binary cannot be found.
func NewEspeak(config EspeakConfig, logger *zap.Logger) (*Espeak, error) {
	if err := ValidateEspeakConfig(config); err != nil {
		return nil, err
	}

	binary := config.Binary
	if binary == "" {
		binary = defaultEspeakBinary
		logger.Info("Using default espeak binary", zap.String("binary", binary))
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEspeakNotFound, binary)
	}

	rate := config.Rate
	if rate == 0 {
		rate = defaultEspeakRate
		logger.Info("Using default speech rate", zap.Int("rate", rate))
	}

	volume := config.Volume
	if volume == 0 {
		volume = defaultEspeakVolume
		logger.Info("Using default volume", zap.Float64("volume", volume))
	}

	return &Espeak{
		binary:    path,
		rate:      rate,
		amplitude: int(volume * 100),
		logger:    logger,
	}, nil
}

// Synthesize implements repositories.Synthesizer. The process is killed when ctx ends.
func (e *Espeak) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voice := "en"
	if language == "hi" {
		voice = "hi"
	}

	//nolint:gosec // G204: binary is resolved once at startup, text is passed as a single argument
	cmd := exec.CommandContext(ctx, e.binary,
		"--stdout",
		"-s", strconv.Itoa(e.rate),
		"-a", strconv.Itoa(e.amplitude),
		"-v", voice,
		"--", text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("espeak cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("espeak failed: %w, stderr: %s", err, stderr.String())
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("espeak produced no audio")
	}
	return stdout.Bytes(), nil
}

// Voices implements repositories.VoiceLister by parsing `espeak-ng --voices`
func (e *Espeak) Voices(ctx context.Context) ([]repositories.Voice, error) {
	out, err := exec.CommandContext(ctx, e.binary, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	return parseEspeakVoices(out), nil
}

// parseEspeakVoices reads the table printed by --voices:
// Pty Language Age/Gender VoiceName File Other Languages
func parseEspeakVoices(out []byte) []repositories.Voice {
	var voices []repositories.Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 || fields[0] == "Pty" {
			continue
		}
		voices = append(voices, repositories.Voice{
			ID:       fields[4],
			Name:     strings.ReplaceAll(fields[3], "_", " "),
			Language: fields[1],
		})
	}
	return voices
}
