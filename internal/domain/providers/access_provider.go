package providers

import (
	"context"

	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
)

// ProcedureAccessProvider answers whether a user may execute a procedure.
// The marketplace owns the access rules (free tiers, purchases, group
// membership); the execution core only consumes the verdict.
type ProcedureAccessProvider interface {
	// CanExecute reports whether the user may start sessions for the procedure
	CanExecute(ctx context.Context, userID string, procedure *entities.Procedure) (bool, error)
}
