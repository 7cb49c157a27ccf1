package repositories

import (
	"context"
	"time"

	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
)

// SessionFilter defines filters for listing sessions
type SessionFilter struct {
	ProcedureID string
	Status      entities.SessionStatus
}

// SessionRepository defines the interface for session data operations.
// Each call is its own unit of work; the execution service sequences calls,
// it does not open cross-call transactions.
type SessionRepository interface {
	// Create creates a new session
	Create(ctx context.Context, session *entities.Session) error

	// GetByID retrieves a session by ID
	GetByID(ctx context.Context, id string) (*entities.Session, error)

	// ListByUser retrieves a user's sessions, newest first
	ListByUser(ctx context.Context, userID string, filter SessionFilter) ([]*entities.Session, error)

	// UpdateStatus updates a session's status, completion time and total.
	// Writing the same terminal state twice is harmless.
	UpdateStatus(ctx context.Context, id string, status entities.SessionStatus, completedAt *time.Time, totalTimeSeconds *int) error

	// Delete removes a session and all its step executions
	Delete(ctx context.Context, id string) error
}
