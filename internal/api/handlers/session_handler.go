package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mednais/sop-marketplace/backend/internal/api/middleware"
	"github.com/mednais/sop-marketplace/backend/internal/application/services"
	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
	"github.com/mednais/sop-marketplace/backend/internal/domain/repositories"
	apperrors "github.com/mednais/sop-marketplace/backend/pkg/errors"
)

// ExecutionService defines the session operations used by the handler
type ExecutionService interface {
	Start(ctx context.Context, procedureID, userID string) (*entities.Session, error)
	Resume(ctx context.Context, sessionID, userID string) (*services.ResumedSession, error)
	Advance(ctx context.Context, input services.AdvanceInput) (*services.AdvanceResult, error)
	Retreat(ctx context.Context, sessionID, userID string, currentIndex int) (int, error)
	Get(ctx context.Context, sessionID, userID string) (*entities.SessionDetail, error)
	List(ctx context.Context, userID string, filter repositories.SessionFilter) ([]*entities.Session, error)
	Delete(ctx context.Context, sessionID, userID string) error
}

// SessionHandler handles the session execution endpoints
type SessionHandler struct {
	service ExecutionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service ExecutionService) *SessionHandler {
	return &SessionHandler{service: service}
}

type startSessionRequest struct {
	ProcedureID string `json:"procedure_id"`
}

// StartSession handles POST /api/sessions
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.ProcedureID == "" {
		respondWithError(w, http.StatusBadRequest, "procedure_id is required")
		return
	}

	session, err := h.service.Start(r.Context(), payload.ProcedureID, userID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, session)
}

// ResumeSession handles POST /api/sessions/{id}/resume
func (h *SessionHandler) ResumeSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	resumed, err := h.service.Resume(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resumed)
}

type advanceStepRequest struct {
	StepID      string `json:"step_id"`
	TimeSeconds *int   `json:"time_seconds"`
	Answer      *bool  `json:"answer,omitempty"`
}

// AdvanceStep handles POST /api/sessions/{id}/advance
func (h *SessionHandler) AdvanceStep(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload advanceStepRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		// Also rejects fractional time_seconds: the wire type is integer.
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.StepID == "" {
		respondWithError(w, http.StatusBadRequest, "step_id is required")
		return
	}
	if payload.TimeSeconds == nil {
		respondWithError(w, http.StatusBadRequest, "time_seconds is required")
		return
	}

	result, err := h.service.Advance(r.Context(), services.AdvanceInput{
		SessionID:   r.PathValue("id"),
		UserID:      userID,
		StepID:      payload.StepID,
		TimeSeconds: *payload.TimeSeconds,
		Answer:      payload.Answer,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

type retreatStepRequest struct {
	CurrentIndex *int `json:"current_index,omitempty"`
}

// RetreatStep handles POST /api/sessions/{id}/retreat
func (h *SessionHandler) RetreatStep(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	// The body is optional; without a cursor the service derives it from
	// the committed executions.
	currentIndex := -1
	var payload retreatStepRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err == nil && payload.CurrentIndex != nil {
		currentIndex = *payload.CurrentIndex
	}

	previousIndex, err := h.service.Retreat(r.Context(), r.PathValue("id"), userID, currentIndex)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"previous_step_index": previousIndex})
}

// GetSession handles GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	detail, err := h.service.Get(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, detail)
}

// ListSessions handles GET /api/sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	filter := repositories.SessionFilter{
		ProcedureID: r.URL.Query().Get("procedure_id"),
		Status:      entities.SessionStatus(r.URL.Query().Get("status")),
	}

	sessions, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, sessions)
}

// DeleteSession handles DELETE /api/sessions/{id}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.service.Delete(r.Context(), r.PathValue("id"), userID); err != nil {
		respondWithAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondWithJSON writes a JSON response
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondWithError writes a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}

// respondWithAppError maps the service error taxonomy onto HTTP status codes
func respondWithAppError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		switch appErr.Type {
		case apperrors.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, appErr.Message)
		case apperrors.ErrorTypeValidation:
			respondWithError(w, http.StatusBadRequest, appErr.Message)
		case apperrors.ErrorTypeConflict:
			respondWithError(w, http.StatusConflict, appErr.Message)
		case apperrors.ErrorTypeForbidden:
			respondWithError(w, http.StatusForbidden, appErr.Message)
		case apperrors.ErrorTypeUnauthorized:
			respondWithError(w, http.StatusUnauthorized, appErr.Message)
		default:
			respondWithError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}
