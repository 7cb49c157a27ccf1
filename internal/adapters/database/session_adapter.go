package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
	"github.com/mednais/sop-marketplace/backend/internal/domain/repositories"
	"github.com/mednais/sop-marketplace/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/mednais/sop-marketplace/backend/pkg/errors"
)

// SessionAdapter implements the SessionRepository interface
type SessionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSessionAdapter creates a new session adapter
func NewSessionAdapter(client *postgres.Client) repositories.SessionRepository {
	return &SessionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new session
func (a *SessionAdapter) Create(ctx context.Context, session *entities.Session) error {
	record := goqu.Record{
		"id":                 session.ID,
		"procedure_id":       session.ProcedureID,
		"user_id":            session.UserID,
		"status":             session.Status,
		"started_at":         session.StartedAt,
		"completed_at":       session.CompletedAt,
		"total_time_seconds": session.TotalTimeSeconds,
	}

	query, args, err := a.db.Insert("sessions").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create session", err)
	}

	return nil
}

// GetByID retrieves a session by ID
func (a *SessionAdapter) GetByID(ctx context.Context, id string) (*entities.Session, error) {
	query, args, err := a.db.Select(
		"id", "procedure_id", "user_id", "status",
		"started_at", "completed_at", "total_time_seconds",
	).From("sessions").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	session, err := scanSession(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("session with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get session", err)
	}

	return session, nil
}

// ListByUser retrieves a user's sessions, newest first
func (a *SessionAdapter) ListByUser(ctx context.Context, userID string, filter repositories.SessionFilter) ([]*entities.Session, error) {
	where := goqu.Ex{"user_id": userID}
	if filter.ProcedureID != "" {
		where["procedure_id"] = filter.ProcedureID
	}
	if filter.Status != "" {
		where["status"] = filter.Status
	}

	query, args, err := a.db.Select(
		"id", "procedure_id", "user_id", "status",
		"started_at", "completed_at", "total_time_seconds",
	).From("sessions").
		Where(where).
		Order(goqu.C("started_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list sessions", err)
	}
	defer rows.Close()

	var sessions []*entities.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan session", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate sessions", err)
	}

	return sessions, nil
}

// UpdateStatus updates a session's status, completion time and total time.
// Setting the same terminal state twice is harmless, which keeps the
// completion transition idempotent under a duplicate final advance.
func (a *SessionAdapter) UpdateStatus(ctx context.Context, id string, status entities.SessionStatus, completedAt *time.Time, totalTimeSeconds *int) error {
	record := goqu.Record{"status": status}
	if completedAt != nil {
		record["completed_at"] = *completedAt
	}
	if totalTimeSeconds != nil {
		record["total_time_seconds"] = *totalTimeSeconds
	}

	query, args, err := a.db.Update("sessions").
		Set(record).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update session status", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("session with id %s not found", id))
	}

	return nil
}

// Delete removes a session and all its step executions. The schema declares
// ON DELETE CASCADE; the child delete is issued anyway so behavior does not
// depend on the DDL being applied with the constraint.
func (a *SessionAdapter) Delete(ctx context.Context, id string) error {
	stepQuery, stepArgs, err := a.db.Delete("step_executions").
		Where(goqu.Ex{"session_id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}
	if _, err := a.client.DB().ExecContext(ctx, stepQuery, stepArgs...); err != nil {
		return apperrors.NewInternalError("failed to delete step executions", err)
	}

	query, args, err := a.db.Delete("sessions").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete session", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("session with id %s not found", id))
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*entities.Session, error) {
	session := &entities.Session{}
	var completedAt sql.NullTime
	var totalTime sql.NullInt64

	if err := row.Scan(
		&session.ID,
		&session.ProcedureID,
		&session.UserID,
		&session.Status,
		&session.StartedAt,
		&completedAt,
		&totalTime,
	); err != nil {
		return nil, err
	}

	if completedAt.Valid {
		session.CompletedAt = &completedAt.Time
	}
	if totalTime.Valid {
		total := int(totalTime.Int64)
		session.TotalTimeSeconds = &total
	}

	return session, nil
}
