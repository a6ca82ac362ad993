package transaction

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campuspoints/points-api/internal/middleware"
)

// RegisterRoutes registers transaction routes
func RegisterRoutes(r chi.Router, h *Handler, authMW func(http.Handler) http.Handler) {
	r.Route("/transactions", func(r chi.Router) {
		r.Use(authMW)

		r.Get("/me", h.ListOwn)
		r.Post("/redemptions", h.CreateRedemption)
		r.Post("/transfers", h.CreateTransfer)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCashier())
			r.Post("/", h.Create)
			r.Patch("/{id}/processed", h.Process)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireManager())
			r.Get("/", h.List)
			r.Get("/{id}", h.Get)
			r.Patch("/{id}/suspicious", h.SetSuspicious)
		})
	})
}
