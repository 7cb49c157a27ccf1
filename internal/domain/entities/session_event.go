package entities

import (
	"time"
)

// SessionEventType identifies the kind of session lifecycle event
type SessionEventType string

const (
	SessionEventStarted   SessionEventType = "session.started"
	SessionEventCompleted SessionEventType = "session.completed"
	SessionEventDeleted   SessionEventType = "session.deleted"
)

// SessionEvent is published on the event bus when a session changes state,
// so dashboards can refresh without polling
type SessionEvent struct {
	ID               string           `json:"id"`
	Type             SessionEventType `json:"type"`
	SessionID        string           `json:"session_id"`
	ProcedureID      string           `json:"procedure_id"`
	UserID           string           `json:"user_id"`
	TotalTimeSeconds *int             `json:"total_time_seconds,omitempty"`
	Timestamp        time.Time        `json:"timestamp"`
}
