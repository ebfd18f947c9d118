package repositories

import "context"

// Interpreter abstracts a generative language model used to interpret commands
type Interpreter interface {
	// Complete sends the system prompt and user content and returns the raw reply
	Complete(ctx context.Context, systemPrompt, userContent string) (string, error)
	// Available reports whether the backing service can currently serve requests
	Available(ctx context.Context) bool
}

// VisionResult is the outcome of one image analysis
type VisionResult struct {
	Success     bool   `json:"success"`
	Description string `json:"description"`
	Error       string `json:"error,omitempty"`
}

// Vision abstracts an image understanding model
type Vision interface {
	Analyze(ctx context.Context, imageBase64, prompt string) VisionResult
	Available(ctx context.Context) bool
}
