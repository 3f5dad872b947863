package model

import "time"

// EventType names a progress notification.
type EventType string

const (
	// EventRunStarted is published once the image has been ingested.
	EventRunStarted EventType = "run.started"
	// EventUnitFinished is published when a tool or in-process unit ends.
	EventUnitFinished EventType = "unit.finished"
	// EventRunCompleted is published after the verdict is synthesized.
	EventRunCompleted EventType = "run.completed"
	// EventRunFailed is published when a run is cancelled or fails.
	EventRunFailed EventType = "run.failed"
)

// Event is a progress notification about an analysis run.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Filename  string    `json:"filename,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	Status    string    `json:"status,omitempty"`
	Done      int       `json:"done,omitempty"`
	Total     int       `json:"total,omitempty"`
	Verdict   string    `json:"verdict,omitempty"`
	Score     int       `json:"score,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
