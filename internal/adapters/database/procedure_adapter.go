package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
	"github.com/mednais/sop-marketplace/backend/internal/domain/repositories"
	"github.com/mednais/sop-marketplace/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/mednais/sop-marketplace/backend/pkg/errors"
)

// ProcedureAdapter implements the ProcedureRepository interface
type ProcedureAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProcedureAdapter creates a new procedure adapter
func NewProcedureAdapter(client *postgres.Client) repositories.ProcedureRepository {
	return &ProcedureAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a procedure with its steps ordered by step order
func (a *ProcedureAdapter) GetByID(ctx context.Context, id string) (*entities.Procedure, error) {
	query, args, err := a.db.Select(
		"id", "author_id", "title", "description", "price_cents",
		"created_at", "updated_at",
	).From("procedures").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build procedure query", err)
	}

	procedure := &entities.Procedure{}
	var description sql.NullString

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&procedure.ID,
		&procedure.AuthorID,
		&procedure.Title,
		&description,
		&procedure.PriceCents,
		&procedure.CreatedAt,
		&procedure.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("procedure with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get procedure", err)
	}
	procedure.Description = description.String

	steps, err := a.listSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	procedure.Steps = steps
	procedure.NormalizeSteps()

	return procedure, nil
}

func (a *ProcedureAdapter) listSteps(ctx context.Context, procedureID string) ([]entities.Step, error) {
	query, args, err := a.db.Select(
		"id", "procedure_id", goqu.C("order"), "title", "description",
		"image_url", "video_url", "timer_seconds", "question", "created_at",
	).From("steps").
		Where(goqu.Ex{"procedure_id": procedureID}).
		Order(goqu.C("order").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build steps query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list steps", err)
	}
	defer rows.Close()

	var steps []entities.Step
	for rows.Next() {
		var step entities.Step
		var description sql.NullString
		var imageURL, videoURL, question sql.NullString
		var timerSeconds sql.NullInt64

		if err := rows.Scan(
			&step.ID,
			&step.ProcedureID,
			&step.Order,
			&step.Title,
			&description,
			&imageURL,
			&videoURL,
			&timerSeconds,
			&question,
			&step.CreatedAt,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan step", err)
		}

		step.Description = description.String
		if imageURL.Valid {
			step.ImageURL = &imageURL.String
		}
		if videoURL.Valid {
			step.VideoURL = &videoURL.String
		}
		if question.Valid {
			step.Question = &question.String
		}
		if timerSeconds.Valid {
			seconds := int(timerSeconds.Int64)
			step.TimerSeconds = &seconds
		}

		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate steps", err)
	}

	return steps, nil
}
