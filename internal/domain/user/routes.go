package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campuspoints/points-api/internal/middleware"
)

// RegisterRoutes registers user routes
func RegisterRoutes(r chi.Router, h *Handler, authMW func(http.Handler) http.Handler) {
	r.Route("/users", func(r chi.Router) {
		r.Use(authMW)

		r.Route("/me", func(r chi.Router) {
			r.Get("/", h.Me)
			r.Patch("/", h.UpdateMe)
			r.Patch("/avatar", h.UpdateAvatar)
			r.Patch("/password", h.ChangePassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCashier())
			r.Post("/", h.Register)
			r.Get("/{id}", h.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireManager())
			r.Get("/", h.List)
			r.Patch("/{id}", h.AdminUpdate)
		})
	})
}
