package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
	"github.com/mednais/sop-marketplace/backend/internal/domain/providers"
	"github.com/mednais/sop-marketplace/backend/internal/domain/repositories"
	"github.com/mednais/sop-marketplace/backend/internal/infrastructure/observability"
	apperrors "github.com/mednais/sop-marketplace/backend/pkg/errors"
)

// ExecutionService drives the session state machine: start, resume, advance,
// retreat, complete, delete. It is stateless between calls; the cursor and
// stopwatch live in the caller's SessionRuntime and only committed state
// reaches the repositories.
type ExecutionService struct {
	sessions   repositories.SessionRepository
	executions repositories.StepExecutionRepository
	procedures repositories.ProcedureRepository
	access     providers.ProcedureAccessProvider
	events     providers.EventBus
	metrics    *observability.Metrics
	now        func() time.Time
}

// NewExecutionService creates a new execution service. The event bus and
// metrics are optional.
func NewExecutionService(
	sessions repositories.SessionRepository,
	executions repositories.StepExecutionRepository,
	procedures repositories.ProcedureRepository,
	access providers.ProcedureAccessProvider,
	events providers.EventBus,
	metrics *observability.Metrics,
) *ExecutionService {
	return &ExecutionService{
		sessions:   sessions,
		executions: executions,
		procedures: procedures,
		access:     access,
		events:     events,
		metrics:    metrics,
		now:        time.Now,
	}
}

// ResumedSession is the reconstructed state of an interrupted run
type ResumedSession struct {
	Session        *entities.Session               `json:"session"`
	Procedure      *entities.Procedure             `json:"procedure"`
	StepExecutions []*entities.StepExecutionDetail `json:"step_executions"`
	ResumeIndex    int                             `json:"resume_index"`
}

// AdvanceInput carries one step commit
type AdvanceInput struct {
	SessionID   string
	UserID      string
	StepID      string
	TimeSeconds int
	Answer      *bool
}

// AdvanceResult is the outcome of an advance: either the next step index or
// the finalized session. AlreadyCompleted tags the idempotent case where the
// session had been finalized before this call.
type AdvanceResult struct {
	Completed        bool              `json:"completed"`
	AlreadyCompleted bool              `json:"already_completed,omitempty"`
	NextStepIndex    int               `json:"next_step_index"`
	StepCount        int               `json:"step_count"`
	TotalTimeSeconds int               `json:"total_time_seconds,omitempty"`
	Session          *entities.Session `json:"session"`
}

// Start begins a new session for the procedure. Multiple simultaneous
// in-progress sessions for the same user and procedure are valid; each run
// is independent.
func (s *ExecutionService) Start(ctx context.Context, procedureID, userID string) (*entities.Session, error) {
	procedure, err := s.procedures.GetByID(ctx, procedureID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.access.CanExecute(ctx, userID, procedure)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.NewForbiddenError("procedure must be purchased before it can be executed")
	}

	session := &entities.Session{
		ID:          uuid.New().String(),
		ProcedureID: procedureID,
		UserID:      userID,
		Status:      entities.SessionStatusInProgress,
		StartedAt:   s.now(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SessionsStarted.Add(ctx, 1)
	}
	s.publish(ctx, entities.SessionEventStarted, session)

	return session, nil
}

// Resume reconstructs the cursor and committed history of an in-progress
// session. The resume index is the first step past the highest committed
// order; degraded step data falls back to index 0 rather than erroring.
func (s *ExecutionService) Resume(ctx context.Context, sessionID, userID string) (*ResumedSession, error) {
	session, err := s.ownedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != entities.SessionStatusInProgress {
		return nil, apperrors.NewConflictError(fmt.Sprintf("session is %s and cannot be resumed", session.Status))
	}

	procedure, err := s.procedures.GetByID(ctx, session.ProcedureID)
	if err != nil {
		return nil, err
	}

	details, err := s.executions.ListBySessionWithSteps(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &ResumedSession{
		Session:        session,
		Procedure:      procedure,
		StepExecutions: details,
		ResumeIndex:    resumeIndex(procedure.Steps, details),
	}, nil
}

// Advance commits the current step's elapsed time and optional answer, then
// either reports the next step index or finalizes the session. The commit is
// an upsert keyed on (session_id, step_id), so duplicate advances for the
// same step leave exactly one record.
func (s *ExecutionService) Advance(ctx context.Context, input AdvanceInput) (*AdvanceResult, error) {
	if input.TimeSeconds < 0 {
		return nil, apperrors.NewValidationError("time_seconds must be a non-negative integer")
	}

	session, err := s.ownedSession(ctx, input.SessionID, input.UserID)
	if err != nil {
		return nil, err
	}

	if session.Status == entities.SessionStatusCompleted {
		// Duplicate final advance after a race: report completion instead
		// of erroring.
		result := &AdvanceResult{
			Completed:        true,
			AlreadyCompleted: true,
			Session:          session,
		}
		if session.TotalTimeSeconds != nil {
			result.TotalTimeSeconds = *session.TotalTimeSeconds
		}
		return result, nil
	}
	if session.Status != entities.SessionStatusInProgress {
		return nil, apperrors.NewConflictError(fmt.Sprintf("session is %s and cannot be advanced", session.Status))
	}

	procedure, err := s.procedures.GetByID(ctx, session.ProcedureID)
	if err != nil {
		return nil, err
	}

	stepIdx := procedure.StepIndex(input.StepID)
	if stepIdx < 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("step %s does not belong to this procedure", input.StepID))
	}

	execution := &entities.StepExecution{
		ID:          uuid.New().String(),
		SessionID:   session.ID,
		StepID:      input.StepID,
		TimeSeconds: input.TimeSeconds,
		Answer:      input.Answer,
		CompletedAt: s.now(),
	}
	if err := s.executions.Upsert(ctx, execution); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.StepsCommitted.Add(ctx, 1)
	}

	// The >= comparison makes a 1-step procedure complete on its first
	// advance.
	if stepIdx >= len(procedure.Steps)-1 {
		return s.finalize(ctx, session, len(procedure.Steps))
	}

	return &AdvanceResult{
		NextStepIndex: stepIdx + 1,
		StepCount:     len(procedure.Steps),
		Session:       session,
	}, nil
}

// finalize sums the persisted step executions and marks the session
// completed. Summing after the final upsert settles keeps the total correct
// under a duplicate final advance.
func (s *ExecutionService) finalize(ctx context.Context, session *entities.Session, stepCount int) (*AdvanceResult, error) {
	total, err := s.executions.SumTimeBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	completedAt := s.now()
	if err := s.sessions.UpdateStatus(ctx, session.ID, entities.SessionStatusCompleted, &completedAt, &total); err != nil {
		return nil, err
	}

	session.Status = entities.SessionStatusCompleted
	session.CompletedAt = &completedAt
	session.TotalTimeSeconds = &total

	if s.metrics != nil {
		s.metrics.SessionsCompleted.Add(ctx, 1)
	}
	s.publish(ctx, entities.SessionEventCompleted, session)

	return &AdvanceResult{
		Completed:        true,
		NextStepIndex:    -1,
		StepCount:        stepCount,
		TotalTimeSeconds: total,
		Session:          session,
	}, nil
}

// Retreat moves the cursor back one step. currentIndex is the caller's
// runtime cursor; pass a negative value to have it derived from the
// committed executions. Committed time is never deleted or decremented on
// retreat.
func (s *ExecutionService) Retreat(ctx context.Context, sessionID, userID string, currentIndex int) (int, error) {
	session, err := s.ownedSession(ctx, sessionID, userID)
	if err != nil {
		return 0, err
	}
	if session.Status != entities.SessionStatusInProgress {
		return 0, apperrors.NewConflictError(fmt.Sprintf("session is %s and cannot be retreated", session.Status))
	}

	procedure, err := s.procedures.GetByID(ctx, session.ProcedureID)
	if err != nil {
		return 0, err
	}

	cursor := currentIndex
	if cursor < 0 {
		executions, err := s.executions.ListBySessionWithSteps(ctx, sessionID)
		if err != nil {
			return 0, err
		}
		cursor = resumeIndex(procedure.Steps, executions)
	} else if last := len(procedure.Steps) - 1; cursor > last {
		// The client cursor is advisory; never step back from beyond the
		// end of the procedure.
		cursor = last
	}

	if cursor <= 0 {
		return 0, apperrors.NewValidationError("already at the first step")
	}

	return cursor - 1, nil
}

// Get returns a session with its committed executions joined with step
// metadata. Only the owner can read a session.
func (s *ExecutionService) Get(ctx context.Context, sessionID, userID string) (*entities.SessionDetail, error) {
	session, err := s.ownedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	details, err := s.executions.ListBySessionWithSteps(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	detail := &entities.SessionDetail{
		Session:        *session,
		StepExecutions: make([]entities.StepExecutionDetail, 0, len(details)),
	}
	for _, d := range details {
		detail.StepExecutions = append(detail.StepExecutions, *d)
	}

	procedure, err := s.procedures.GetByID(ctx, session.ProcedureID)
	if err != nil {
		return nil, err
	}
	detail.ProcedureTitle = procedure.Title

	return detail, nil
}

// List returns the user's sessions, newest first
func (s *ExecutionService) List(ctx context.Context, userID string, filter repositories.SessionFilter) ([]*entities.Session, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown session status %q", filter.Status))
	}

	sessions, err := s.sessions.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []*entities.Session{}
	}
	return sessions, nil
}

// Delete hard-deletes a session and all its step executions, regardless of
// status. Irreversible. Only the owner may delete.
func (s *ExecutionService) Delete(ctx context.Context, sessionID, userID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.UserID != userID {
		return apperrors.NewForbiddenError("only the session owner can delete it")
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	s.publish(ctx, entities.SessionEventDeleted, session)
	return nil
}

// ownedSession loads a session and hides its existence from non-owners
func (s *ExecutionService) ownedSession(ctx context.Context, sessionID, userID string) (*entities.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("session with id %s not found", sessionID))
	}
	return session, nil
}

// publish emits a session event best-effort; event delivery never fails an
// operation
func (s *ExecutionService) publish(ctx context.Context, eventType entities.SessionEventType, session *entities.Session) {
	if s.events == nil {
		return
	}

	event := &entities.SessionEvent{
		ID:               uuid.New().String(),
		Type:             eventType,
		SessionID:        session.ID,
		ProcedureID:      session.ProcedureID,
		UserID:           session.UserID,
		TotalTimeSeconds: session.TotalTimeSeconds,
		Timestamp:        s.now(),
	}

	if err := s.events.Publish(ctx, providers.EventChannelSessionUpdates, event); err != nil {
		observability.LoggerWithSession(ctx, session.ID).Warn().Err(err).Msg("failed to publish session event")
		return
	}
	_ = s.events.Publish(ctx, providers.GetUserChannel(session.UserID), event)
}

// resumeIndex computes the cursor for a resumed session: the first step whose
// order exceeds the highest order having a committed execution. No committed
// executions, or data that does not line up with the step list, resolves to
// index 0; a fully-executed step list resolves to the last step so a final
// advance can complete the session.
func resumeIndex(steps []entities.Step, executions []*entities.StepExecutionDetail) int {
	if len(steps) == 0 {
		return 0
	}

	executed := make(map[string]struct{}, len(executions))
	for _, e := range executions {
		executed[e.StepID] = struct{}{}
	}

	highestOrder, found := 0, false
	for _, step := range steps {
		if _, ok := executed[step.ID]; ok {
			if !found || step.Order > highestOrder {
				highestOrder = step.Order
				found = true
			}
		}
	}
	if !found {
		return 0
	}

	for i, step := range steps {
		if step.Order > highestOrder {
			return i
		}
	}
	return len(steps) - 1
}
