package entities

// StepTime identifies a step together with its recorded time, used for
// longest/shortest step reporting
type StepTime struct {
	StepID      string `json:"step_id"`
	StepTitle   string `json:"step_title"`
	TimeSeconds int    `json:"time_seconds"`
}

// SessionStats holds the per-session derived statistics. LongestStep and
// ShortestStep are nil when no step executions have been committed.
type SessionStats struct {
	SessionID          string        `json:"session_id"`
	Status             SessionStatus `json:"status"`
	TotalTimeSeconds   int           `json:"total_time_seconds"`
	AverageStepSeconds int           `json:"average_step_seconds"`
	LongestStep        *StepTime     `json:"longest_step,omitempty"`
	ShortestStep       *StepTime     `json:"shortest_step,omitempty"`
	CompletedSteps     int           `json:"completed_steps"`
	TotalSteps         int           `json:"total_steps"`
	CompletionPercent  int           `json:"completion_percent"`
}

// TrendComparison compares the two most recently started completed sessions
// of the same procedure. Improved means the latest run was faster.
type TrendComparison struct {
	ProcedureID            string  `json:"procedure_id"`
	LatestSessionID        string  `json:"latest_session_id"`
	PreviousSessionID      string  `json:"previous_session_id"`
	LatestTotalSeconds     int     `json:"latest_total_seconds"`
	PreviousTotalSeconds   int     `json:"previous_total_seconds"`
	DiffSeconds            int     `json:"diff_seconds"`
	PercentChange          float64 `json:"percent_change"`
	Improved               bool    `json:"improved"`
	CompletedSessionsCount int     `json:"completed_sessions_count"`
}
