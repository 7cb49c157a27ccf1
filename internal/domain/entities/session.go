package entities

import (
	"time"
)

// SessionStatus represents the lifecycle status of an execution session
type SessionStatus string

const (
	// SessionStatusInProgress is the only state a session is created in and
	// the only state advance/retreat/resume operate on. Sessions may rest
	// here indefinitely; there is no expiry sweep.
	SessionStatusInProgress SessionStatus = "in_progress"

	// SessionStatusCompleted is entered exactly once, when the last step's
	// time is committed.
	SessionStatusCompleted SessionStatus = "completed"

	// SessionStatusAbandoned is a terminal label assignable only by an
	// external action; nothing in this service transitions into it.
	SessionStatusAbandoned SessionStatus = "abandoned"
)

// Valid reports whether s is a known status value
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusInProgress, SessionStatusCompleted, SessionStatusAbandoned:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further transitions
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusAbandoned
}

// Session represents one user's run-through attempt of a procedure
type Session struct {
	ID               string        `json:"id" db:"id"`
	ProcedureID      string        `json:"procedure_id" db:"procedure_id"`
	UserID           string        `json:"user_id" db:"user_id"`
	Status           SessionStatus `json:"status" db:"status"`
	StartedAt        time.Time     `json:"started_at" db:"started_at"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	TotalTimeSeconds *int          `json:"total_time_seconds,omitempty" db:"total_time_seconds"`
}

// SessionDetail is a session joined with its committed step executions,
// ordered by step order
type SessionDetail struct {
	Session
	ProcedureTitle string                `json:"procedure_title"`
	StepExecutions []StepExecutionDetail `json:"step_executions"`
}
