package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"timed-quiz-service/internal/metrics"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	API            *APIHandler
	Round          *RoundWSHandler
	Admin          *AdminWSHandler
	RequestTimeout time.Duration
}

// NewRouter wires REST routes under a request timeout and websocket routes without one.
func NewRouter(h Handlers) http.Handler {
	timeout := h.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		r.Route("/api", func(r chi.Router) {
			r.Post("/register-team", h.API.RegisterTeam)
			r.Get("/team-status", h.API.TeamStatus)
			r.Get("/questions", h.API.Questions)
			r.Post("/submit", h.API.Submit)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/submissions", h.API.AdminSubmissions)
				r.Post("/update-score", h.API.UpdateScore)
				r.Post("/delete-team", h.API.DeleteTeam)
				r.Get("/breakdown", h.API.Breakdown)
				r.Get("/leaderboard", h.API.Leaderboard)
				r.Get("/export.csv", h.API.ExportCSV)
			})
		})
	})

	if h.Round != nil {
		r.Get("/ws/round", h.Round.ServeWS)
	}
	if h.Admin != nil {
		r.Get("/ws/admin", h.Admin.ServeWS)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: "Endpoint not found"})
	})
	return r
}
