package bus

import (
	"time"

	"adsbridge/pkg/event"
)

// Action names a command an operator issues against the running bridge.
type Action string

const (
	ActionLoad    Action = "load"
	ActionShow    Action = "show"
	ActionSuspend Action = "suspend"
	ActionResume  Action = "resume"
	ActionFill    Action = "fill"
	ActionClick   Action = "click"
	ActionCall    Action = "call"
)

// Command is an inbound request, usually from the monitor UI.
type Command struct {
	Action    Action           `json:"action"`
	Unit      event.AdUnitType `json:"unit,omitempty"`
	Placement string           `json:"placement,omitempty"`
	UserID    string           `json:"user_id,omitempty"`
	Enabled   bool             `json:"enabled,omitempty"`
	Function  string           `json:"function,omitempty"`
}

// Status is the outcome of one dispatch attempt.
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusDropped   Status = "dropped"
	StatusFailed    Status = "failed"
)

// Delivery records what happened to one normalized event.
type Delivery struct {
	At        time.Time   `json:"at"`
	SessionID string      `json:"session_id,omitempty"`
	Provider  string      `json:"provider,omitempty"`
	Event     event.Event `json:"event"`
	Status    Status      `json:"status"`
	Error     string      `json:"error,omitempty"`
}
