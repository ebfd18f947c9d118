package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/voiceast/server/domain/repositories"
)

const (
	defaultGeminiModel          = "gemini-2.0-flash"
	defaultGeminiTemperature    = 0.3
	defaultGeminiMaxTokens      = 256
	defaultGeminiTimeoutSeconds = 30
	geminiAttempts              = 3
)

// GeminiConfig holds configuration for the Gemini interpreter and vision backend
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int
	TimeoutSeconds  int
}

// NewGeminiConfigFromEnv creates a new GeminiConfig from environment variables
func NewGeminiConfigFromEnv() GeminiConfig {
	config := GeminiConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
		Model:  os.Getenv("GEMINI_MODEL"),
	}
	if v, err := strconv.ParseFloat(os.Getenv("GEMINI_TEMPERATURE"), 32); err == nil {
		config.Temperature = float32(v)
	}
	if v, err := strconv.Atoi(os.Getenv("GEMINI_MAX_OUTPUT_TOKENS")); err == nil {
		config.MaxOutputTokens = v
	}
	if v, err := strconv.Atoi(os.Getenv("GEMINI_TIMEOUT_SECONDS")); err == nil {
		config.TimeoutSeconds = v
	}
	return config
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	// Validate temperature is in the valid range
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}

	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("max output tokens must be positive, got %d", config.MaxOutputTokens)
	}

	// Validate timeout is reasonable if specified
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}

	return nil
}

// Gemini implements repositories.Interpreter and repositories.Vision using Google's Gemini API
type Gemini struct {
	client          *genai.Client
	logger          *zap.Logger
	model           string
	temperature     float32
	maxOutputTokens int
	timeout         time.Duration
}

// NewGemini creates a new Gemini client
func NewGemini(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*Gemini, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Apply defaults where needed
	model := config.Model
	if model == "" {
		model = defaultGeminiModel
		logger.Info("Using default model", zap.String("model", model))
	}

	temperature := config.Temperature
	if temperature == 0 {
		temperature = defaultGeminiTemperature
		logger.Info("Using default temperature", zap.Float32("temperature", temperature))
	}

	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultGeminiMaxTokens
		logger.Info("Using default maxOutputTokens", zap.Int("maxOutputTokens", maxOutputTokens))
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultGeminiTimeoutSeconds
		logger.Info("Using default timeoutSeconds", zap.Int("timeoutSeconds", timeoutSeconds))
	}

	return &Gemini{
		client:          client,
		logger:          logger,
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
		timeout:         time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// Available implements repositories.Interpreter. The hosted API has no cheap
// health probe, so a configured client counts as available.
func (g *Gemini) Available(ctx context.Context) bool {
	return g.client != nil
}

// Complete implements repositories.Interpreter
func (g *Gemini) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr(g.temperature),
		MaxOutputTokens:   int32(g.maxOutputTokens),
	}
	contents := []*genai.Content{genai.NewContentFromText(userContent, genai.RoleUser)}

	return g.generate(ctx, contents, config)
}

// Analyze implements repositories.Vision
func (g *Gemini) Analyze(ctx context.Context, imageBase64, prompt string) repositories.VisionResult {
	image, err := decodeImage(imageBase64)
	if err != nil {
		return repositories.VisionResult{Error: err.Error()}
	}

	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(image, "image/jpeg"),
		genai.NewPartFromText(prompt),
	}, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](visionTemperature),
		MaxOutputTokens: visionMaxTokens,
	}

	text, err := g.generate(ctx, contents, config)
	if err != nil {
		return repositories.VisionResult{Error: err.Error()}
	}
	return repositories.VisionResult{Success: true, Description: text}
}

func (g *Gemini) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// Add retry logic
	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < geminiAttempts; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}

		g.logger.Warn("Failed to generate content, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < geminiAttempts-1 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("gemini request cancelled: %w", ctx.Err())
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := strings.TrimSpace(response.Text())
	if text == "" {
		return "", fmt.Errorf("empty response from gemini")
	}
	return text, nil
}

// decodeImage accepts plain base64 or a data URL
func decodeImage(imageBase64 string) ([]byte, error) {
	if i := strings.Index(imageBase64, ","); i >= 0 && strings.HasPrefix(imageBase64, "data:") {
		imageBase64 = imageBase64[i+1:]
	}
	image, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	return image, nil
}
