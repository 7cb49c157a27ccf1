package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mednais/sop-marketplace/backend/internal/api/handlers"
	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
	apperrors "github.com/mednais/sop-marketplace/backend/pkg/errors"
)

type MockStatisticsService struct {
	mock.Mock
}

func (m *MockStatisticsService) SessionStats(ctx context.Context, sessionID, userID string) (*entities.SessionStats, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SessionStats), args.Error(1)
}

func (m *MockStatisticsService) Trend(ctx context.Context, userID, procedureID string) (*entities.TrendComparison, error) {
	args := m.Called(ctx, userID, procedureID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TrendComparison), args.Error(1)
}

func TestStatisticsHandler_GetSessionStats(t *testing.T) {
	t.Run("returns the computed stats", func(t *testing.T) {
		service := new(MockStatisticsService)
		handler := handlers.NewStatisticsHandler(service)

		service.On("SessionStats", mock.Anything, "sess-1", "user-1").Return(&entities.SessionStats{
			SessionID:         "sess-1",
			TotalTimeSeconds:  100,
			CompletedSteps:    3,
			TotalSteps:        4,
			CompletionPercent: 75,
		}, nil)

		req := authenticatedRequest(http.MethodGet, "/api/sessions/sess-1/stats", "sess-1", nil)
		rec := httptest.NewRecorder()

		handler.GetSessionStats(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var stats entities.SessionStats
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, 75, stats.CompletionPercent)
	})

	t.Run("returns 404 for an unknown session", func(t *testing.T) {
		service := new(MockStatisticsService)
		handler := handlers.NewStatisticsHandler(service)

		service.On("SessionStats", mock.Anything, "missing", "user-1").
			Return(nil, apperrors.NewNotFoundError("session with id missing not found"))

		req := authenticatedRequest(http.MethodGet, "/api/sessions/missing/stats", "missing", nil)
		rec := httptest.NewRecorder()

		handler.GetSessionStats(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("returns 401 without an identity", func(t *testing.T) {
		handler := handlers.NewStatisticsHandler(new(MockStatisticsService))

		req := httptest.NewRequest(http.MethodGet, "/api/sessions/sess-1/stats", nil)
		rec := httptest.NewRecorder()

		handler.GetSessionStats(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestStatisticsHandler_GetProcedureTrend(t *testing.T) {
	t.Run("returns the comparison", func(t *testing.T) {
		service := new(MockStatisticsService)
		handler := handlers.NewStatisticsHandler(service)

		service.On("Trend", mock.Anything, "user-1", "proc-1").Return(&entities.TrendComparison{
			ProcedureID:   "proc-1",
			DiffSeconds:   -20,
			PercentChange: -16.7,
			Improved:      true,
		}, nil)

		req := authenticatedRequest(http.MethodGet, "/api/procedures/proc-1/trend", "proc-1", nil)
		rec := httptest.NewRecorder()

		handler.GetProcedureTrend(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var payload struct {
			Comparison *entities.TrendComparison `json:"comparison"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		if assert.NotNil(t, payload.Comparison) {
			assert.True(t, payload.Comparison.Improved)
		}
	})

	t.Run("returns a null comparison below two completed runs", func(t *testing.T) {
		service := new(MockStatisticsService)
		handler := handlers.NewStatisticsHandler(service)

		service.On("Trend", mock.Anything, "user-1", "proc-1").Return(nil, nil)

		req := authenticatedRequest(http.MethodGet, "/api/procedures/proc-1/trend", "proc-1", nil)
		rec := httptest.NewRecorder()

		handler.GetProcedureTrend(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var payload struct {
			Comparison *entities.TrendComparison `json:"comparison"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Nil(t, payload.Comparison)
	})
}
