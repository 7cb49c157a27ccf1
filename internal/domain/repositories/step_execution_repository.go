package repositories

import (
	"context"

	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
)

// StepExecutionRepository defines the interface for committed step records
type StepExecutionRepository interface {
	// Upsert writes a step execution keyed on (session_id, step_id).
	// A second commit for the same pair overwrites the first, which makes
	// duplicate advances (double-click, network retry) safe by construction.
	Upsert(ctx context.Context, execution *entities.StepExecution) error

	// ListBySession retrieves all step executions for a session
	ListBySession(ctx context.Context, sessionID string) ([]*entities.StepExecution, error)

	// ListBySessionWithSteps retrieves step executions joined with step
	// metadata, ordered by step order
	ListBySessionWithSteps(ctx context.Context, sessionID string) ([]*entities.StepExecutionDetail, error)

	// SumTimeBySession returns the sum of persisted time_seconds for a
	// session. Finalization reads this instead of trusting a running total.
	SumTimeBySession(ctx context.Context, sessionID string) (int, error)
}
