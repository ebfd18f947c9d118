package api

import (
	"time"

	"github.com/voiceast/server/domain/entities"
)

// TokenRequest represents the request payload for client authentication
type TokenRequest struct {
	ClientID  string `json:"client_id" validate:"required"`
	SecretKey string `json:"secret_key" validate:"required"`
}

// TokenResponse represents the response payload for client authentication
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ClientID  string    `json:"client_id"`
}

// HealthResponse reports which collaborators are usable right now
type HealthResponse struct {
	Status           string `json:"status"`
	VoiceRecognition bool   `json:"voice_recognition"`
	Database         bool   `json:"database"`
	TTS              bool   `json:"tts"`
	AI               bool   `json:"ai"`
}

// HistoryResponse wraps the command history
type HistoryResponse struct {
	History []*entities.CommandRecord `json:"history"`
}

// PreferenceRequest sets a preference value
type PreferenceRequest struct {
	Value interface{} `json:"value"`
}

// PreferenceResponse returns a preference value
type PreferenceResponse struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// SpeakRequest asks for synthesized speech
type SpeakRequest struct {
	Text string `json:"text"`
}

// SpeakResponse carries base64 audio, empty when synthesis degraded
type SpeakResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Audio   string `json:"audio"`
}

// ExecuteRequest runs a text command outside of a voice session
type ExecuteRequest struct {
	Command string `json:"command"`
}

// ExecuteResponse is the outcome of ExecuteRequest
type ExecuteResponse struct {
	Success  bool                  `json:"success"`
	Intent   string                `json:"intent"`
	Response string                `json:"response"`
	Result   entities.ActionResult `json:"result"`
}

// MemoryRequest stores a memory
type MemoryRequest struct {
	Text string `json:"text"`
}

// MemoriesResponse lists matching memories
type MemoriesResponse struct {
	Memories []string `json:"memories"`
}

// SuccessResponse acknowledges a write
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
