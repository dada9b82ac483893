// Package api exposes the relay's HTTP surface: the websocket upgrade
// endpoint, the history backfill queries, health, and metrics.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"chat-relay/internal/engine"
)

// NewRouter creates and configures the HTTP router. serveWS handles the
// websocket upgrade and is mounted as-is.
func NewRouter(logger zerolog.Logger, eng *engine.Engine, serveWS http.HandlerFunc, clientURL string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(Logger(logger))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{clientURL, "*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := NewHandler(eng)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/ws", serveWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/messages/{room}", h.GetMessages)
		r.Get("/users", h.ListUsers)
		r.Get("/rooms", h.ListRooms)
	})

	return r
}
