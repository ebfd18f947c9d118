package websocket

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// MessageType is the inbound "type" field
type MessageType string

// Supported inbound message types
const (
	MessageTypePing           MessageType = "ping"
	MessageTypeGreeting       MessageType = "greeting"
	MessageTypeVoiceCommand   MessageType = "voice_command"
	MessageTypeAudioStream    MessageType = "audio_stream"
	MessageTypeVoiceAudioFile MessageType = "voice_audio_file"
	MessageTypeAnalyzeFrame   MessageType = "analyze_frame"
)

// BaseMessage carries the field every inbound message has
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// PingMessage is a liveness probe
type PingMessage struct {
	BaseMessage
}

// GreetingMessage asks for a spoken greeting
type GreetingMessage struct {
	BaseMessage
}

// VoiceCommandMessage is a text command with an optional camera frame
type VoiceCommandMessage struct {
	BaseMessage
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	Image    string `json:"image,omitempty"` // base64
}

// AudioStreamMessage carries one chunk of 16 kHz PCM
type AudioStreamMessage struct {
	BaseMessage
	Data AudioPayload `json:"data"`
}

// VoiceAudioFileMessage carries a complete base64 WAV recording
type VoiceAudioFileMessage struct {
	BaseMessage
	Audio string `json:"audio"`
}

// AnalyzeFrameMessage asks for a description of a camera frame
type AnalyzeFrameMessage struct {
	BaseMessage
	Image  string `json:"image"`
	Prompt string `json:"prompt,omitempty"`
}

// AudioPayload accepts either a base64 string or a JSON array of byte values
type AudioPayload []byte

// UnmarshalJSON implements json.Unmarshaler
func (p *AudioPayload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = nil
		return nil
	}

	if data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return err
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("invalid base64 audio: %w", err)
		}
		*p = decoded
		return nil
	}

	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("audio data must be a base64 string or byte array: %w", err)
	}
	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return fmt.Errorf("audio byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*p = out
	return nil
}

// MessageValidator decodes and validates inbound messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage decodes messageBytes into the typed message for its type
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypePing:
		return &PingMessage{BaseMessage: base}, nil

	case MessageTypeGreeting:
		return &GreetingMessage{BaseMessage: base}, nil

	case MessageTypeVoiceCommand:
		var msg VoiceCommandMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid voice command message: %w", err)
		}
		return &msg, nil

	case MessageTypeAudioStream:
		var msg AudioStreamMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid audio stream message: %w", err)
		}
		if len(msg.Data) == 0 {
			return nil, fmt.Errorf("data is required")
		}
		return &msg, nil

	case MessageTypeVoiceAudioFile:
		var msg VoiceAudioFileMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid voice audio file message: %w", err)
		}
		if msg.Audio == "" {
			return nil, fmt.Errorf("audio is required")
		}
		return &msg, nil

	case MessageTypeAnalyzeFrame:
		var msg AnalyzeFrameMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid analyze frame message: %w", err)
		}
		if msg.Image == "" {
			return nil, fmt.Errorf("image is required")
		}
		return &msg, nil

	case "":
		return nil, fmt.Errorf("message missing type field")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}
