package access

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
	"github.com/mednais/sop-marketplace/backend/internal/domain/providers"
	"github.com/mednais/sop-marketplace/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/mednais/sop-marketplace/backend/pkg/errors"
)

// PurchaseAccessProvider implements ProcedureAccessProvider against the
// marketplace's purchases table: free procedures are open to everyone,
// authors always have access, priced procedures require a completed purchase.
type PurchaseAccessProvider struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPurchaseAccessProvider creates a new purchase-backed access provider
func NewPurchaseAccessProvider(client *postgres.Client) providers.ProcedureAccessProvider {
	return &PurchaseAccessProvider{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// CanExecute reports whether the user may start sessions for the procedure
func (p *PurchaseAccessProvider) CanExecute(ctx context.Context, userID string, procedure *entities.Procedure) (bool, error) {
	if procedure.IsFree() || procedure.AuthorID == userID {
		return true, nil
	}

	query, args, err := p.db.Select(goqu.COUNT("id")).
		From("purchases").
		Where(goqu.Ex{
			"user_id":      userID,
			"procedure_id": procedure.ID,
			"status":       "completed",
		}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build purchase query", err)
	}

	var count int
	if err := p.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, apperrors.NewInternalError("failed to check purchase", err)
	}

	return count > 0, nil
}

// AllowAllAccessProvider grants access unconditionally. Used in environments
// without the marketplace schema (local development, tests).
type AllowAllAccessProvider struct{}

// NewAllowAllAccessProvider creates an access provider that always allows
func NewAllowAllAccessProvider() providers.ProcedureAccessProvider {
	return &AllowAllAccessProvider{}
}

// CanExecute always reports true
func (p *AllowAllAccessProvider) CanExecute(ctx context.Context, userID string, procedure *entities.Procedure) (bool, error) {
	return true, nil
}
