package entities

import "time"

// AlertCategory groups alerts for cooldown purposes
type AlertCategory string

const (
	AlertCPU     AlertCategory = "cpu"
	AlertRAM     AlertCategory = "ram"
	AlertBattery AlertCategory = "battery"
)

// Alert is a turn produced by the system monitor without any utterance
type Alert struct {
	Category  AlertCategory `json:"category"`
	Message   string        `json:"message"`
	Audio     string        `json:"audio"`
	CreatedAt time.Time     `json:"created_at"`
}
