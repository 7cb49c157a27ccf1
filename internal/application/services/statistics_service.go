package services

import (
	"context"
	"fmt"
	"math"

	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
	"github.com/mednais/sop-marketplace/backend/internal/domain/repositories"
	apperrors "github.com/mednais/sop-marketplace/backend/pkg/errors"
)

// StatisticsService computes read-side statistics over persisted sessions
// and step executions. It never mutates anything.
type StatisticsService struct {
	sessions   repositories.SessionRepository
	executions repositories.StepExecutionRepository
	procedures repositories.ProcedureRepository
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(
	sessions repositories.SessionRepository,
	executions repositories.StepExecutionRepository,
	procedures repositories.ProcedureRepository,
) *StatisticsService {
	return &StatisticsService{
		sessions:   sessions,
		executions: executions,
		procedures: procedures,
	}
}

// SessionStats computes the per-session statistics. A session with no
// committed executions yields zero values, never an error.
func (s *StatisticsService) SessionStats(ctx context.Context, sessionID, userID string) (*entities.SessionStats, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("session with id %s not found", sessionID))
	}

	details, err := s.executions.ListBySessionWithSteps(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	procedure, err := s.procedures.GetByID(ctx, session.ProcedureID)
	if err != nil {
		return nil, err
	}
	totalSteps := len(procedure.Steps)

	stats := &entities.SessionStats{
		SessionID:      session.ID,
		Status:         session.Status,
		CompletedSteps: len(details),
		TotalSteps:     totalSteps,
	}

	for _, d := range details {
		stats.TotalTimeSeconds += d.TimeSeconds
	}

	if len(details) > 0 {
		stats.AverageStepSeconds = stats.TotalTimeSeconds / len(details)

		longest, shortest := details[0], details[0]
		for _, d := range details[1:] {
			// Strict comparisons keep the first tied step.
			if d.TimeSeconds > longest.TimeSeconds {
				longest = d
			}
			if d.TimeSeconds < shortest.TimeSeconds {
				shortest = d
			}
		}
		stats.LongestStep = stepTime(longest)
		stats.ShortestStep = stepTime(shortest)
	}

	if totalSteps > 0 {
		stats.CompletionPercent = int(math.Round(float64(len(details)) / float64(totalSteps) * 100))
	}

	return stats, nil
}

// Trend compares the two most recently started completed sessions of a
// procedure. Returns nil without error when fewer than two completed
// sessions exist, or when the previous run has a zero total.
func (s *StatisticsService) Trend(ctx context.Context, userID, procedureID string) (*entities.TrendComparison, error) {
	if _, err := s.procedures.GetByID(ctx, procedureID); err != nil {
		return nil, err
	}

	sessions, err := s.sessions.ListByUser(ctx, userID, repositories.SessionFilter{
		ProcedureID: procedureID,
		Status:      entities.SessionStatusCompleted,
	})
	if err != nil {
		return nil, err
	}

	// ListByUser orders newest first; keep only sessions that carry a total.
	completed := make([]*entities.Session, 0, len(sessions))
	for _, session := range sessions {
		if session.TotalTimeSeconds != nil {
			completed = append(completed, session)
		}
	}
	if len(completed) < 2 {
		return nil, nil
	}

	latest, previous := completed[0], completed[1]
	if *previous.TotalTimeSeconds == 0 {
		return nil, nil
	}

	diff := *latest.TotalTimeSeconds - *previous.TotalTimeSeconds
	percent := float64(diff) / float64(*previous.TotalTimeSeconds) * 100

	return &entities.TrendComparison{
		ProcedureID:            procedureID,
		LatestSessionID:        latest.ID,
		PreviousSessionID:      previous.ID,
		LatestTotalSeconds:     *latest.TotalTimeSeconds,
		PreviousTotalSeconds:   *previous.TotalTimeSeconds,
		DiffSeconds:            diff,
		PercentChange:          math.Round(percent*10) / 10,
		Improved:               diff < 0,
		CompletedSessionsCount: len(completed),
	}, nil
}

func stepTime(d *entities.StepExecutionDetail) *entities.StepTime {
	return &entities.StepTime{
		StepID:      d.StepID,
		StepTitle:   d.StepTitle,
		TimeSeconds: d.TimeSeconds,
	}
}
