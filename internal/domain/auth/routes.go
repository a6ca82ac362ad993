package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers auth routes. rateLimitMW throttles the
// credential-guessing surfaces; pass nil to disable.
func RegisterRoutes(r chi.Router, h *Handler, rateLimitMW func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if rateLimitMW != nil {
				r.Use(rateLimitMW)
			}
			r.Post("/tokens", h.Login)
			r.Post("/resets", h.RequestReset)
		})

		r.Post("/tokens/refresh", h.Refresh)
		r.Delete("/tokens", h.Logout)
		r.Post("/resets/{token}", h.ResetPassword)
	})
}
