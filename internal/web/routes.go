package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	identitiesHandler := handlers.NewIdentitiesHandler(s.services.Registry, s.services.Samples, s.logger)
	modelHandler := handlers.NewModelHandler(s.config.Storage.ModelPath, s.services.Trainer, s.logger)
	configHandler := handlers.NewConfigHandler(s.config)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/config", configHandler.Get)

		// Identities
		r.Get("/identities", identitiesHandler.List)
		r.Get("/identities/{id}", identitiesHandler.Get)

		// Model
		r.Get("/model", modelHandler.Get)
		r.Post("/model/train", modelHandler.Train)
	})
}
