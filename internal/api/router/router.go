// Package router assembles the HTTP surface: health, metrics, interview and
// feedback reads, and the session WebSocket.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/prepwise/interview-platform/internal/http/handlers"
	httpmiddleware "github.com/prepwise/interview-platform/internal/http/middleware"
	"github.com/prepwise/interview-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Interviews         *handlers.InterviewHandler
	Session            *handlers.SessionHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Interviews != nil {
		r.Route("/api", func(api chi.Router) {
			api.Get("/interviews", cfg.Interviews.ListInterviews)
			api.Post("/interviews", cfg.Interviews.CreateInterview)
			api.Get("/interviews/{id}", cfg.Interviews.GetInterview)
			api.Get("/interviews/{id}/feedback", cfg.Interviews.GetInterviewFeedback)
			api.Get("/feedback/{id}", cfg.Interviews.GetFeedback)
		})
	}

	if cfg.Session != nil {
		r.Get("/ws/session", cfg.Session.HandleSession)
	}

	return r
}
