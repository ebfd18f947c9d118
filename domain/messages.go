package domain

// Outbound message types
const (
	TypePong          = "pong"
	TypeConnected     = "connected"
	TypeProcessing    = "processing"
	TypeTranscription = "transcription"
	TypeIntent        = "intent"
	TypeResult        = "result"
	TypeReady         = "ready"
	TypeVisionResult  = "vision_result"
)

// Canned protocol texts
const (
	ConnectedText = "Connected to VoiceAst"
	ReadyText     = "Ready for next command"
	NoSpeechText  = "I didn't catch that. Please try again."
	TurnErrorText = "Sorry, something went wrong. Please try again."
)

// PongMessage answers a client ping
type PongMessage struct {
	Type string `json:"type"`
}

// ConnectedMessage is sent once right after the socket is accepted
type ConnectedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ProcessingMessage acknowledges a text command before any slow work starts
type ProcessingMessage struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// TranscriptionMessage carries partial or final recognized text
type TranscriptionMessage struct {
	Type       string   `json:"type"`
	Text       string   `json:"text"`
	IsFinal    bool     `json:"isFinal"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// IntentMessage reports the resolved intent of a slow path turn
type IntentMessage struct {
	Type       string                 `json:"type"`
	Intent     string                 `json:"intent"`
	Parameters map[string]interface{} `json:"parameters"`
	Confidence float64                `json:"confidence"`
}

// ResultMessage is the terminal message of a turn, also used for alerts
type ResultMessage struct {
	Type       string                 `json:"type"`
	Success    bool                   `json:"success"`
	Message    string                 `json:"message"`
	Audio      string                 `json:"audio"`
	Language   string                 `json:"language,omitempty"`
	Data       map[string]interface{} `json:"data"`
	IsGreeting bool                   `json:"is_greeting,omitempty"`
}

// ReadyMessage tells the client it may send the next command
type ReadyMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// VisionResultMessage answers an analyze_frame request
type VisionResultMessage struct {
	Type        string `json:"type"`
	Success     bool   `json:"success"`
	Description string `json:"description"`
	Audio       string `json:"audio"`
}

// NewResultMessage builds a result message with a non-nil data map
func NewResultMessage(success bool, message, audio, language string, data map[string]interface{}) ResultMessage {
	if data == nil {
		data = map[string]interface{}{}
	}
	return ResultMessage{
		Type:     TypeResult,
		Success:  success,
		Message:  message,
		Audio:    audio,
		Language: language,
		Data:     data,
	}
}

// NewReadyMessage builds the ready message that closes every turn
func NewReadyMessage() ReadyMessage {
	return ReadyMessage{Type: TypeReady, Message: ReadyText}
}
