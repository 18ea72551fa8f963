package models

import "time"

// Event types written to the operational log.
const (
	EventCommand       = "COMMAND"
	EventMCUReset      = "MCU_RESET"
	EventCalibration   = "CALIBRATION"
	EventProtocolError = "PROTOCOL_ERROR"
	EventLinkDown      = "LINK_DOWN"
)

// ChannelEvent is a single operational log entry.
type ChannelEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // COMMAND | MCU_RESET | CALIBRATION | PROTOCOL_ERROR | LINK_DOWN
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
