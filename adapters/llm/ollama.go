package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voiceast/server/domain/repositories"
)

const (
	defaultOllamaHost        = "http://localhost:11434"
	defaultOllamaModel       = "qwen2"
	defaultOllamaVisionModel = "llava"

	ollamaHTTPTimeout    = 120 * time.Second
	ollamaProbeTimeout   = 2 * time.Second
	availabilityCacheTTL = 30 * time.Second

	visionTemperature = 0.7
	visionMaxTokens   = 100

	contentTypeHeader = "Content-Type"
	applicationJSON   = "application/json"
)

// interpreterOptions keep command interpretation short and predictable
var interpreterOptions = map[string]any{
	"temperature": 0.3,
	"num_predict": 60,
	"num_ctx":     512,
	"top_k":       10,
	"top_p":       0.85,
}

// OllamaConfig holds configuration for the local Ollama server
type OllamaConfig struct {
	Host        string
	Model       string
	VisionModel string
}

// NewOllamaConfigFromEnv creates a new OllamaConfig from environment variables
func NewOllamaConfigFromEnv() OllamaConfig {
	return OllamaConfig{
		Host:        os.Getenv("OLLAMA_HOST"),
		Model:       os.Getenv("OLLAMA_MODEL"),
		VisionModel: os.Getenv("VISION_MODEL"),
	}
}

// ValidateOllamaConfig validates the OllamaConfig
func ValidateOllamaConfig(config OllamaConfig) error {
	if config.Host != "" && !strings.HasPrefix(config.Host, "http://") && !strings.HasPrefix(config.Host, "https://") {
		return fmt.Errorf("ollama host must be an http(s) URL, got %q", config.Host)
	}
	return nil
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Format   string          `json:"format,omitempty"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// ollamaClient is the shared HTTP plumbing of the interpreter and vision backends
type ollamaClient struct {
	host       string
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	checkedAt time.Time
	models    []string
	reachable bool
}

func newOllamaClient(host string, logger *zap.Logger) *ollamaClient {
	return &ollamaClient{
		host:       strings.TrimRight(host, "/"),
		httpClient: &http.Client{Timeout: ollamaHTTPTimeout},
		logger:     logger,
	}
}

func (c *ollamaClient) chat(ctx context.Context, req ollamaChatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set(contentTypeHeader, applicationJSON)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, chatResp.Error)
	}
	return chatResp.Message.Content, nil
}

// listModels returns installed model names without tags, cached briefly
func (c *ollamaClient) listModels(ctx context.Context) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.checkedAt.IsZero() && time.Since(c.checkedAt) < availabilityCacheTTL {
		return c.models, c.reachable
	}

	c.models, c.reachable = c.fetchModels(ctx)
	c.checkedAt = time.Now()
	return c.models, c.reachable
}

func (c *ollamaClient) fetchModels(ctx context.Context) ([]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, ollamaProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Ollama not reachable", zap.Error(err))
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		c.logger.Warn("Failed to decode Ollama model list", zap.Error(err))
		return nil, true
	}

	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		models = append(models, strings.SplitN(name, ":", 2)[0])
	}
	return models, true
}

func hasModel(models []string, model string) bool {
	model = strings.SplitN(model, ":", 2)[0]
	for _, m := range models {
		if m == model {
			return true
		}
	}
	return false
}

// Ollama implements repositories.Interpreter against a local Ollama server
type Ollama struct {
	client *ollamaClient
	model  string
	logger *zap.Logger
}

// NewOllama creates the interpreter backend
func NewOllama(config OllamaConfig, logger *zap.Logger) (*Ollama, error) {
	if err := ValidateOllamaConfig(config); err != nil {
		return nil, err
	}

	host := config.Host
	if host == "" {
		host = defaultOllamaHost
		logger.Info("Using default Ollama host", zap.String("host", host))
	}

	model := config.Model
	if model == "" {
		model = defaultOllamaModel
		logger.Info("Using default model", zap.String("model", model))
	}

	return &Ollama{client: newOllamaClient(host, logger), model: model, logger: logger}, nil
}

// Available implements repositories.Interpreter. A reachable server counts
// even when the model is missing, since Ollama may pull it on demand.
func (o *Ollama) Available(ctx context.Context) bool {
	models, reachable := o.client.listModels(ctx)
	if reachable && models != nil && !hasModel(models, o.model) {
		o.logger.Warn("Model not found locally", zap.String("model", o.model), zap.Strings("available", models))
	}
	return reachable
}

// Complete implements repositories.Interpreter
func (o *Ollama) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	return o.client.chat(ctx, ollamaChatRequest{
		Model: o.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Format:  "json",
		Options: interpreterOptions,
	})
}

// OllamaVision implements repositories.Vision with a multimodal model such as llava
type OllamaVision struct {
	client *ollamaClient
	model  string
	logger *zap.Logger
}

// NewOllamaVision creates the vision backend
func NewOllamaVision(config OllamaConfig, logger *zap.Logger) (*OllamaVision, error) {
	if err := ValidateOllamaConfig(config); err != nil {
		return nil, err
	}

	host := config.Host
	if host == "" {
		host = defaultOllamaHost
	}

	model := config.VisionModel
	if model == "" {
		model = defaultOllamaVisionModel
		logger.Info("Using default vision model", zap.String("model", model))
	}

	return &OllamaVision{client: newOllamaClient(host, logger), model: model, logger: logger}, nil
}

// Available implements repositories.Vision. The vision model must be installed.
func (v *OllamaVision) Available(ctx context.Context) bool {
	models, reachable := v.client.listModels(ctx)
	return reachable && hasModel(models, v.model)
}

// Analyze implements repositories.Vision
func (v *OllamaVision) Analyze(ctx context.Context, imageBase64, prompt string) repositories.VisionResult {
	if i := strings.Index(imageBase64, ","); i >= 0 && strings.HasPrefix(imageBase64, "data:") {
		imageBase64 = imageBase64[i+1:]
	}

	content, err := v.client.chat(ctx, ollamaChatRequest{
		Model: v.model,
		Messages: []ollamaMessage{
			{Role: "user", Content: prompt, Images: []string{imageBase64}},
		},
		Options: map[string]any{
			"temperature": visionTemperature,
			"num_predict": visionMaxTokens,
		},
	})
	if err != nil {
		v.logger.Warn("Vision analysis failed", zap.Error(err))
		return repositories.VisionResult{Error: err.Error()}
	}

	return repositories.VisionResult{Success: true, Description: strings.TrimSpace(content)}
}
