package repositories

import (
	"context"

	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
)

// ProcedureRepository defines the read-side contract for procedure
// definitions. The execution core never mutates procedures.
type ProcedureRepository interface {
	// GetByID retrieves a procedure with its steps ordered by step order
	GetByID(ctx context.Context, id string) (*entities.Procedure, error)
}
