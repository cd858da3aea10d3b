package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-gallery/internal/web/handlers"
	"github.com/kozaktomas/face-gallery/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	// Create handlers
	healthHandler := handlers.NewHealthHandler(s.services.Gallery)
	configHandler := handlers.NewConfigHandler(s.config)
	peopleHandler := handlers.NewPeopleHandler(s.services.Gallery, s.services.Enroller, s.services.Metrics)
	analyzeHandler := handlers.NewAnalyzeHandler(s.services.Coordinator)
	matchHandler := handlers.NewMatchHandler(s.services.Engine)
	legacyHandler := handlers.NewLegacyHandler(peopleHandler, analyzeHandler)

	requireToken := middleware.RequireToken(s.config.Web.APIToken)

	// Health check and metrics (no auth required)
	s.router.Get("/api/v1/health", healthHandler.Get)
	if s.services.Metrics != nil {
		s.router.Handle("/metrics", s.services.Metrics.Handler())
	}

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/config", configHandler.Get)

		// People
		r.Get("/people", peopleHandler.List)
		r.Get("/people/{id}", peopleHandler.Get)

		// Recognition
		r.Post("/analyze", analyzeHandler.Analyze)
		r.Post("/match", matchHandler.Match)
		r.Post("/search", matchHandler.Search)

		// Gallery mutations require the API token when one is configured
		r.Group(func(r chi.Router) {
			r.Use(requireToken)
			r.Post("/people", peopleHandler.Create)
			r.Delete("/people/{id}", peopleHandler.Delete)
		})
	})

	// Routes of the original browser client
	s.router.Get("/api/people", legacyHandler.People)
	s.router.Post("/api/analyze_frame", legacyHandler.AnalyzeFrame)
	s.router.Group(func(r chi.Router) {
		r.Use(requireToken)
		r.Post("/api/add_person", legacyHandler.AddPerson)
		r.Delete("/api/delete_person/{id}", legacyHandler.DeletePerson)
	})
}
