package entities

import (
	"time"
)

// StepExecution is the committed record of time spent (and optional answer
// given) for one step within one session. At most one row exists per
// (session, step) pair; commits are upserts so a re-advance overwrites
// rather than duplicates.
type StepExecution struct {
	ID          string    `json:"id" db:"id"`
	SessionID   string    `json:"session_id" db:"session_id"`
	StepID      string    `json:"step_id" db:"step_id"`
	TimeSeconds int       `json:"time_seconds" db:"time_seconds"`
	Answer      *bool     `json:"answer,omitempty" db:"answer"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

// StepExecutionDetail is a step execution joined with the metadata of the
// step it records
type StepExecutionDetail struct {
	StepExecution
	StepTitle string `json:"step_title"`
	StepOrder int    `json:"step_order"`
}
