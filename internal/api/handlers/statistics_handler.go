package handlers

import (
	"context"
	"net/http"

	"github.com/mednais/sop-marketplace/backend/internal/api/middleware"
	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
)

// StatisticsService defines the read-side statistics operations used by the handler
type StatisticsService interface {
	SessionStats(ctx context.Context, sessionID, userID string) (*entities.SessionStats, error)
	Trend(ctx context.Context, userID, procedureID string) (*entities.TrendComparison, error)
}

// StatisticsHandler handles the statistics endpoints
type StatisticsHandler struct {
	service StatisticsService
}

// NewStatisticsHandler creates a new statistics handler
func NewStatisticsHandler(service StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{service: service}
}

// GetSessionStats handles GET /api/sessions/{id}/stats
func (h *StatisticsHandler) GetSessionStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	stats, err := h.service.SessionStats(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

type trendResponse struct {
	Comparison *entities.TrendComparison `json:"comparison"`
}

// GetProcedureTrend handles GET /api/procedures/{id}/trend. A null
// comparison means fewer than two completed runs exist to compare.
func (h *StatisticsHandler) GetProcedureTrend(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	comparison, err := h.service.Trend(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, trendResponse{Comparison: comparison})
}
