package event

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campuspoints/points-api/internal/middleware"
)

// RegisterRoutes registers event routes
func RegisterRoutes(r chi.Router, h *Handler, authMW func(http.Handler) http.Handler) {
	r.Route("/events", func(r chi.Router) {
		r.Use(authMW)

		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)

		r.Post("/{id}/guests", h.AddGuest)
		r.Post("/{id}/guests/me", h.RSVP)
		r.Delete("/{id}/guests/me", h.CancelRSVP)

		r.Post("/{id}/transactions", h.Award)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireManager())
			r.Post("/", h.Create)
			r.Delete("/{id}", h.Delete)
			r.Post("/{id}/organizers", h.AddOrganizer)
			r.Delete("/{id}/organizers/{userId}", h.RemoveOrganizer)
			r.Delete("/{id}/guests/{userId}", h.RemoveGuest)
		})
	})
}
