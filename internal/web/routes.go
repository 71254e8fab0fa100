package web

import (
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/facewatch/internal/web/handlers"
)

const requestTimeout = 2 * time.Minute

func (s *Server) setupRoutes(snapshotPrefix string) {
	d := s.deps
	presenceHandler := handlers.NewPresenceHandler(d.Engine.State(), d.Store)
	catalogHandler := handlers.NewCatalogHandler(d.Store, d.Engine)
	unknownsHandler := handlers.NewUnknownsHandler(d.Store)
	attendanceHandler := handlers.NewAttendanceHandler(d.Store, d.Aggregator)
	streamHandler := handlers.NewStreamHandler(d.Hub, s.config.AllowedOrigins)

	s.router.Handle("/metrics", d.Metrics.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		// Long-lived streams, no request timeout
		r.Get("/ws", streamHandler.WebSocket)
		r.Get("/events", streamHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(requestTimeout))

			r.Get("/presence", presenceHandler.Active)
			r.Get("/presence-events", presenceHandler.Events)
			r.Get("/alerts", presenceHandler.Alerts)
			r.Get("/frame", presenceHandler.Frame)

			r.Get("/identities", catalogHandler.Identities)
			r.Post("/catalog/reload", catalogHandler.Reload)

			r.Get("/unknowns", unknownsHandler.List)
			r.Get("/unknowns/{id}", unknownsHandler.Get)

			r.Get("/attendance/{date}", attendanceHandler.Get)
			r.Post("/attendance/{date}", attendanceHandler.Generate)
		})
	})

	if d.Snapshots != nil {
		snapshotHandler := handlers.NewSnapshotHandler(d.Snapshots)
		s.router.Get(path.Join("/", snapshotPrefix, "{name}"), snapshotHandler.Get)
	}
}
