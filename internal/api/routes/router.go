package routes

import (
	"net/http"

	"github.com/mednais/sop-marketplace/backend/internal/api/handlers"
	"github.com/mednais/sop-marketplace/backend/internal/api/middleware"
	"github.com/mednais/sop-marketplace/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	sessionHandler    *handlers.SessionHandler
	statisticsHandler *handlers.StatisticsHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	sessionHandler *handlers.SessionHandler,
	statisticsHandler *handlers.StatisticsHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		sessionHandler:    sessionHandler,
		statisticsHandler: statisticsHandler,
		metrics:           metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Session execution endpoints
	r.mux.HandleFunc("POST /api/sessions", r.sessionHandler.StartSession)
	r.mux.HandleFunc("GET /api/sessions", r.sessionHandler.ListSessions)
	r.mux.HandleFunc("GET /api/sessions/{id}", r.sessionHandler.GetSession)
	r.mux.HandleFunc("DELETE /api/sessions/{id}", r.sessionHandler.DeleteSession)
	r.mux.HandleFunc("POST /api/sessions/{id}/resume", r.sessionHandler.ResumeSession)
	r.mux.HandleFunc("POST /api/sessions/{id}/advance", r.sessionHandler.AdvanceStep)
	r.mux.HandleFunc("POST /api/sessions/{id}/retreat", r.sessionHandler.RetreatStep)

	// Statistics endpoints
	r.mux.HandleFunc("GET /api/sessions/{id}/stats", r.statisticsHandler.GetSessionStats)
	r.mux.HandleFunc("GET /api/procedures/{id}/trend", r.statisticsHandler.GetProcedureTrend)

	// Apply middleware chain
	var handler http.Handler = r.mux
	if r.metrics != nil {
		handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	}
	handler = middleware.AuthMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
