package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mednais/sop-marketplace/backend/internal/api/handlers"
	"github.com/mednais/sop-marketplace/backend/internal/api/middleware"
	"github.com/mednais/sop-marketplace/backend/internal/application/services"
	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
	"github.com/mednais/sop-marketplace/backend/internal/domain/repositories"
	apperrors "github.com/mednais/sop-marketplace/backend/pkg/errors"
)

// Mocks

type MockExecutionService struct {
	mock.Mock
}

func (m *MockExecutionService) Start(ctx context.Context, procedureID, userID string) (*entities.Session, error) {
	args := m.Called(ctx, procedureID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Session), args.Error(1)
}

func (m *MockExecutionService) Resume(ctx context.Context, sessionID, userID string) (*services.ResumedSession, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ResumedSession), args.Error(1)
}

func (m *MockExecutionService) Advance(ctx context.Context, input services.AdvanceInput) (*services.AdvanceResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AdvanceResult), args.Error(1)
}

func (m *MockExecutionService) Retreat(ctx context.Context, sessionID, userID string, currentIndex int) (int, error) {
	args := m.Called(ctx, sessionID, userID, currentIndex)
	return args.Int(0), args.Error(1)
}

func (m *MockExecutionService) Get(ctx context.Context, sessionID, userID string) (*entities.SessionDetail, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SessionDetail), args.Error(1)
}

func (m *MockExecutionService) List(ctx context.Context, userID string, filter repositories.SessionFilter) ([]*entities.Session, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Session), args.Error(1)
}

func (m *MockExecutionService) Delete(ctx context.Context, sessionID, userID string) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

// Helpers

func authenticatedRequest(method, target, sessionID string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	if sessionID != "" {
		req.SetPathValue("id", sessionID)
	}
	return req
}

// Tests

func TestSessionHandler_StartSession(t *testing.T) {
	t.Run("returns 201 with the new session", func(t *testing.T) {
		service := new(MockExecutionService)
		handler := handlers.NewSessionHandler(service)

		service.On("Start", mock.Anything, "proc-1", "user-1").
			Return(&entities.Session{ID: "sess-1", ProcedureID: "proc-1", UserID: "user-1", Status: entities.SessionStatusInProgress}, nil)

		body, _ := json.Marshal(map[string]string{"procedure_id": "proc-1"})
		req := authenticatedRequest(http.MethodPost, "/api/sessions", "", body)
		rec := httptest.NewRecorder()

		handler.StartSession(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var session entities.Session
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
		assert.Equal(t, "sess-1", session.ID)
	})

	t.Run("returns 401 without an identity", func(t *testing.T) {
		handler := handlers.NewSessionHandler(new(MockExecutionService))

		body, _ := json.Marshal(map[string]string{"procedure_id": "proc-1"})
		req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.StartSession(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("returns 400 without a procedure id", func(t *testing.T) {
		handler := handlers.NewSessionHandler(new(MockExecutionService))

		req := authenticatedRequest(http.MethodPost, "/api/sessions", "", []byte(`{}`))
		rec := httptest.NewRecorder()

		handler.StartSession(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("returns 403 when access is denied", func(t *testing.T) {
		service := new(MockExecutionService)
		handler := handlers.NewSessionHandler(service)

		service.On("Start", mock.Anything, "proc-1", "user-1").
			Return(nil, apperrors.NewForbiddenError("procedure must be purchased before it can be executed"))

		body, _ := json.Marshal(map[string]string{"procedure_id": "proc-1"})
		req := authenticatedRequest(http.MethodPost, "/api/sessions", "", body)
		rec := httptest.NewRecorder()

		handler.StartSession(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestSessionHandler_AdvanceStep(t *testing.T) {
	t.Run("returns 200 with the advance result", func(t *testing.T) {
		service := new(MockExecutionService)
		handler := handlers.NewSessionHandler(service)

		answer := true
		service.On("Advance", mock.Anything, services.AdvanceInput{
			SessionID:   "sess-1",
			UserID:      "user-1",
			StepID:      "step-1",
			TimeSeconds: 42,
			Answer:      &answer,
		}).Return(&services.AdvanceResult{NextStepIndex: 1, StepCount: 3}, nil)

		body, _ := json.Marshal(map[string]interface{}{
			"step_id": "step-1", "time_seconds": 42, "answer": true,
		})
		req := authenticatedRequest(http.MethodPost, "/api/sessions/sess-1/advance", "sess-1", body)
		rec := httptest.NewRecorder()

		handler.AdvanceStep(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var result services.AdvanceResult
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, 1, result.NextStepIndex)
		assert.False(t, result.Completed)
	})

	t.Run("returns 400 when time_seconds is missing", func(t *testing.T) {
		service := new(MockExecutionService)
		handler := handlers.NewSessionHandler(service)

		body, _ := json.Marshal(map[string]interface{}{"step_id": "step-1"})
		req := authenticatedRequest(http.MethodPost, "/api/sessions/sess-1/advance", "sess-1", body)
		rec := httptest.NewRecorder()

		handler.AdvanceStep(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		service.AssertNotCalled(t, "Advance", mock.Anything, mock.Anything)
	})

	t.Run("returns 400 for fractional time_seconds", func(t *testing.T) {
		service := new(MockExecutionService)
		handler := handlers.NewSessionHandler(service)

		req := authenticatedRequest(http.MethodPost, "/api/sessions/sess-1/advance", "sess-1",
			[]byte(`{"step_id":"step-1","time_seconds":12.5}`))
		rec := httptest.NewRecorder()

		handler.AdvanceStep(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("returns 409 for a session in the wrong state", func(t *testing.T) {
		service := new(MockExecutionService)
		handler := handlers.NewSessionHandler(service)

		service.On("Advance", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewConflictError("session is abandoned and cannot be advanced"))

		body, _ := json.Marshal(map[string]interface{}{"step_id": "step-1", "time_seconds": 10})
		req := authenticatedRequest(http.MethodPost, "/api/sessions/sess-1/advance", "sess-1", body)
		rec := httptest.NewRecorder()

		handler.AdvanceStep(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("returns 404 for an unknown session", func(t *testing.T) {
		service := new(MockExecutionService)
		handler := handlers.NewSessionHandler(service)

		service.On("Advance", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewNotFoundError("session with id sess-1 not found"))

		body, _ := json.Marshal(map[string]interface{}{"step_id": "step-1", "time_seconds": 10})
		req := authenticatedRequest(http.MethodPost, "/api/sessions/sess-1/advance", "sess-1", body)
		rec := httptest.NewRecorder()

		handler.AdvanceStep(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSessionHandler_RetreatStep(t *testing.T) {
	t.Run("passes the client cursor through", func(t *testing.T) {
		service := new(MockExecutionService)
		handler := handlers.NewSessionHandler(service)

		service.On("Retreat", mock.Anything, "sess-1", "user-1", 2).Return(1, nil)

		body, _ := json.Marshal(map[string]int{"current_index": 2})
		req := authenticatedRequest(http.MethodPost, "/api/sessions/sess-1/retreat", "sess-1", body)
		rec := httptest.NewRecorder()

		handler.RetreatStep(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var result map[string]int
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, 1, result["previous_step_index"])
	})

	t.Run("defaults to a derived cursor without a body", func(t *testing.T) {
		service := new(MockExecutionService)
		handler := handlers.NewSessionHandler(service)

		service.On("Retreat", mock.Anything, "sess-1", "user-1", -1).Return(0, nil)

		req := authenticatedRequest(http.MethodPost, "/api/sessions/sess-1/retreat", "sess-1", nil)
		rec := httptest.NewRecorder()

		handler.RetreatStep(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("returns 400 at the first step", func(t *testing.T) {
		service := new(MockExecutionService)
		handler := handlers.NewSessionHandler(service)

		service.On("Retreat", mock.Anything, "sess-1", "user-1", 0).
			Return(0, apperrors.NewValidationError("already at the first step"))

		body, _ := json.Marshal(map[string]int{"current_index": 0})
		req := authenticatedRequest(http.MethodPost, "/api/sessions/sess-1/retreat", "sess-1", body)
		rec := httptest.NewRecorder()

		handler.RetreatStep(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSessionHandler_ListSessions(t *testing.T) {
	t.Run("passes query filters through", func(t *testing.T) {
		service := new(MockExecutionService)
		handler := handlers.NewSessionHandler(service)

		service.On("List", mock.Anything, "user-1", repositories.SessionFilter{
			ProcedureID: "proc-1",
			Status:      entities.SessionStatusCompleted,
		}).Return([]*entities.Session{{ID: "sess-1"}}, nil)

		req := authenticatedRequest(http.MethodGet, "/api/sessions?procedure_id=proc-1&status=completed", "", nil)
		rec := httptest.NewRecorder()

		handler.ListSessions(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var sessions []*entities.Session
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
		assert.Len(t, sessions, 1)
	})

	t.Run("returns 400 for an unknown status", func(t *testing.T) {
		service := new(MockExecutionService)
		handler := handlers.NewSessionHandler(service)

		service.On("List", mock.Anything, "user-1", repositories.SessionFilter{Status: "paused"}).
			Return(nil, apperrors.NewValidationError(`unknown session status "paused"`))

		req := authenticatedRequest(http.MethodGet, "/api/sessions?status=paused", "", nil)
		rec := httptest.NewRecorder()

		handler.ListSessions(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSessionHandler_DeleteSession(t *testing.T) {
	t.Run("returns 204 on success", func(t *testing.T) {
		service := new(MockExecutionService)
		handler := handlers.NewSessionHandler(service)

		service.On("Delete", mock.Anything, "sess-1", "user-1").Return(nil)

		req := authenticatedRequest(http.MethodDelete, "/api/sessions/sess-1", "sess-1", nil)
		rec := httptest.NewRecorder()

		handler.DeleteSession(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.Bytes())
	})

	t.Run("returns 403 for non-owners", func(t *testing.T) {
		service := new(MockExecutionService)
		handler := handlers.NewSessionHandler(service)

		service.On("Delete", mock.Anything, "sess-1", "user-1").
			Return(apperrors.NewForbiddenError("only the session owner can delete it"))

		req := authenticatedRequest(http.MethodDelete, "/api/sessions/sess-1", "sess-1", nil)
		rec := httptest.NewRecorder()

		handler.DeleteSession(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestSessionHandler_ResumeSession(t *testing.T) {
	t.Run("returns the reconstructed state", func(t *testing.T) {
		service := new(MockExecutionService)
		handler := handlers.NewSessionHandler(service)

		service.On("Resume", mock.Anything, "sess-1", "user-1").Return(&services.ResumedSession{
			Session:     &entities.Session{ID: "sess-1", Status: entities.SessionStatusInProgress},
			Procedure:   &entities.Procedure{ID: "proc-1", Title: "Server Rack Decommission"},
			ResumeIndex: 2,
		}, nil)

		req := authenticatedRequest(http.MethodPost, "/api/sessions/sess-1/resume", "sess-1", nil)
		rec := httptest.NewRecorder()

		handler.ResumeSession(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resumed services.ResumedSession
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resumed))
		assert.Equal(t, 2, resumed.ResumeIndex)
	})

	t.Run("returns 409 for a completed session", func(t *testing.T) {
		service := new(MockExecutionService)
		handler := handlers.NewSessionHandler(service)

		service.On("Resume", mock.Anything, "sess-1", "user-1").
			Return(nil, apperrors.NewConflictError("session is completed and cannot be resumed"))

		req := authenticatedRequest(http.MethodPost, "/api/sessions/sess-1/resume", "sess-1", nil)
		rec := httptest.NewRecorder()

		handler.ResumeSession(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
