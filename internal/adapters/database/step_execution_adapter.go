package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
	"github.com/mednais/sop-marketplace/backend/internal/domain/repositories"
	"github.com/mednais/sop-marketplace/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/mednais/sop-marketplace/backend/pkg/errors"
)

// StepExecutionAdapter implements the StepExecutionRepository interface
type StepExecutionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewStepExecutionAdapter creates a new step execution adapter
func NewStepExecutionAdapter(client *postgres.Client) repositories.StepExecutionRepository {
	return &StepExecutionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Upsert writes a step execution keyed on (session_id, step_id). Last write
// wins, so a duplicate advance for the same step leaves exactly one row.
func (a *StepExecutionAdapter) Upsert(ctx context.Context, execution *entities.StepExecution) error {
	record := goqu.Record{
		"id":           execution.ID,
		"session_id":   execution.SessionID,
		"step_id":      execution.StepID,
		"time_seconds": execution.TimeSeconds,
		"answer":       execution.Answer,
		"completed_at": execution.CompletedAt,
	}

	query, args, err := a.db.Insert("step_executions").
		Rows(record).
		OnConflict(goqu.DoUpdate(
			"session_id, step_id",
			goqu.Record{
				"time_seconds": execution.TimeSeconds,
				"answer":       execution.Answer,
				"completed_at": execution.CompletedAt,
			},
		)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to upsert step execution", err)
	}

	return nil
}

// ListBySession retrieves all step executions for a session
func (a *StepExecutionAdapter) ListBySession(ctx context.Context, sessionID string) ([]*entities.StepExecution, error) {
	query, args, err := a.db.Select(
		"id", "session_id", "step_id", "time_seconds", "answer", "completed_at",
	).From("step_executions").
		Where(goqu.Ex{"session_id": sessionID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list step executions", err)
	}
	defer rows.Close()

	var executions []*entities.StepExecution
	for rows.Next() {
		execution := &entities.StepExecution{}
		var answer sql.NullBool

		if err := rows.Scan(
			&execution.ID,
			&execution.SessionID,
			&execution.StepID,
			&execution.TimeSeconds,
			&answer,
			&execution.CompletedAt,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan step execution", err)
		}
		if answer.Valid {
			execution.Answer = &answer.Bool
		}
		executions = append(executions, execution)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate step executions", err)
	}

	return executions, nil
}

// ListBySessionWithSteps retrieves step executions joined with step metadata,
// ordered by step order
func (a *StepExecutionAdapter) ListBySessionWithSteps(ctx context.Context, sessionID string) ([]*entities.StepExecutionDetail, error) {
	query, args, err := a.db.Select(
		goqu.I("se.id"),
		goqu.I("se.session_id"),
		goqu.I("se.step_id"),
		goqu.I("se.time_seconds"),
		goqu.I("se.answer"),
		goqu.I("se.completed_at"),
		goqu.I("s.title"),
		goqu.I("s.order"),
	).From(goqu.T("step_executions").As("se")).
		Join(
			goqu.T("steps").As("s"),
			goqu.On(goqu.Ex{"se.step_id": goqu.I("s.id")}),
		).
		Where(goqu.Ex{"se.session_id": sessionID}).
		Order(goqu.I("s.order").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list step executions", err)
	}
	defer rows.Close()

	var details []*entities.StepExecutionDetail
	for rows.Next() {
		detail := &entities.StepExecutionDetail{}
		var answer sql.NullBool

		if err := rows.Scan(
			&detail.ID,
			&detail.SessionID,
			&detail.StepID,
			&detail.TimeSeconds,
			&answer,
			&detail.CompletedAt,
			&detail.StepTitle,
			&detail.StepOrder,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan step execution", err)
		}
		if answer.Valid {
			detail.Answer = &answer.Bool
		}
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate step executions", err)
	}

	return details, nil
}

// SumTimeBySession returns the sum of persisted time_seconds for a session.
// The completion path reads this after the final upsert settles instead of
// accumulating a client-held total, so a duplicate final advance cannot
// double-count.
func (a *StepExecutionAdapter) SumTimeBySession(ctx context.Context, sessionID string) (int, error) {
	query, args, err := a.db.Select(
		goqu.COALESCE(goqu.SUM("time_seconds"), 0),
	).From("step_executions").
		Where(goqu.Ex{"session_id": sessionID}).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build query", err)
	}

	var total int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, apperrors.NewInternalError("failed to sum step execution time", err)
	}

	return total, nil
}
