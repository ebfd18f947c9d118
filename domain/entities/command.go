package entities

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommandRecord is one completed turn stored in the command history
type CommandRecord struct {
	ID        primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	Command   string                 `json:"command" bson:"command"`
	Intent    string                 `json:"intent" bson:"intent"`
	Response  string                 `json:"response" bson:"response"`
	Success   bool                   `json:"success" bson:"success"`
	Metadata  map[string]interface{} `json:"metadata" bson:"metadata"`
	Timestamp time.Time              `json:"timestamp" bson:"timestamp"`
}

// NewCommandRecord creates a history record stamped with the current UTC time
func NewCommandRecord(command, intent, response string, success bool, metadata map[string]interface{}) *CommandRecord {
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	return &CommandRecord{
		ID:        primitive.NewObjectID(),
		Command:   command,
		Intent:    intent,
		Response:  response,
		Success:   success,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks the record before it is persisted
func (c *CommandRecord) Validate() error {
	if c.Intent == "" {
		return errors.New("intent is required")
	}
	if c.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	return nil
}

// IntentCount is one row of the most common intents aggregate
type IntentCount struct {
	Intent string `json:"intent" bson:"_id"`
	Count  int64  `json:"count" bson:"count"`
}

// Statistics summarizes the command history
type Statistics struct {
	TotalCommands      int64         `json:"total_commands"`
	SuccessfulCommands int64         `json:"successful_commands"`
	SuccessRate        float64       `json:"success_rate"`
	CommonIntents      []IntentCount `json:"common_intents"`
}

// NewStatistics computes the success rate from the raw counters
func NewStatistics(total, successful int64, common []IntentCount) Statistics {
	var rate float64
	if total > 0 {
		rate = float64(successful) / float64(total)
	}
	if common == nil {
		common = []IntentCount{}
	}
	return Statistics{
		TotalCommands:      total,
		SuccessfulCommands: successful,
		SuccessRate:        rate,
		CommonIntents:      common,
	}
}

// Preference is a single user preference value keyed by name
type Preference struct {
	Key       string      `json:"preference_key" bson:"preference_key"`
	Value     interface{} `json:"value" bson:"value"`
	UpdatedAt time.Time   `json:"updated_at" bson:"updated_at"`
}

// Memory is a free text fact remembered for the assistant
type Memory struct {
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}
