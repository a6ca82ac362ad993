package promotion

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campuspoints/points-api/internal/middleware"
)

// RegisterRoutes registers promotion routes
func RegisterRoutes(r chi.Router, h *Handler, authMW func(http.Handler) http.Handler) {
	r.Route("/promotions", func(r chi.Router) {
		r.Use(authMW)

		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireManager())
			r.Post("/", h.Create)
			r.Patch("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}
