package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeReport uint32 = iota + 1
	TypeSessionState
	TypeSettingsApplied
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ReportEvent carries one frame rate measurement.
type ReportEvent struct {
	SessionID string        `json:"session_id"`
	Serial    string        `json:"serial"`
	Seq       int           `json:"seq"`
	Frames    int           `json:"frames"`
	FPS       float64       `json:"fps"`
	Interval  time.Duration `json:"-"`
	Timestamp time.Time     `json:"timestamp"`
}

// Type returns the event type identifier for ReportEvent.
func (e ReportEvent) Type() uint32 { return TypeReport }

// Session states.
const (
	StateStarting  = "starting"
	StateStreaming = "streaming"
	StateStopped   = "stopped"
	StateFailed    = "failed"
)

// SessionStateEvent is published on every session lifecycle transition.
type SessionStateEvent struct {
	SessionID string    `json:"session_id"`
	Serial    string    `json:"serial,omitempty"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type identifier for SessionStateEvent.
func (e SessionStateEvent) Type() uint32 { return TypeSessionState }

// SettingsAppliedEvent is published after settings were written to the
// camera, both at startup and on live reloads.
type SettingsAppliedEvent struct {
	SessionID string    `json:"session_id"`
	Serial    string    `json:"serial"`
	Live      bool      `json:"live"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Type returns the event type identifier for SettingsAppliedEvent.
func (e SettingsAppliedEvent) Type() uint32 { return TypeSettingsApplied }
