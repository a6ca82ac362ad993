package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/campuspoints/points-api/internal/domain/user"
	"github.com/campuspoints/points-api/internal/pkg/password"
	"github.com/campuspoints/points-api/internal/pkg/response"
	"github.com/campuspoints/points-api/internal/pkg/validator"
)

// Handler handles auth HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates auth handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Login handles POST /auth/tokens
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	tokens, err := h.service.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Unauthorized(w, "Invalid credentials")
			return
		}
		log.Error().Err(err).Msg("login failed")
		response.InternalError(w)
		return
	}

	response.OK(w, tokens)
}

// Refresh handles POST /auth/tokens/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			response.Unauthorized(w, "Invalid or expired refresh token")
			return
		}
		log.Error().Err(err).Msg("token refresh failed")
		response.InternalError(w)
		return
	}

	response.OK(w, tokens)
}

// Logout handles DELETE /auth/tokens
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		log.Error().Err(err).Msg("logout failed")
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}

// RequestReset handles POST /auth/resets
func (h *Handler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.RequestReset(r.Context(), req.Utorid)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		log.Error().Err(err).Msg("reset request failed")
		response.InternalError(w)
		return
	}

	response.Created(w, result)
}

// ResetPassword handles POST /auth/resets/{token}
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	err := h.service.ResetPassword(r.Context(), token, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken):
			response.NotFound(w, "Reset token not found or expired")
		case errors.Is(err, ErrTokenMismatch):
			response.Unauthorized(w, "Token was not issued for this utorid")
		case errors.Is(err, user.ErrNotFound):
			response.NotFound(w, "User not found")
		case errors.Is(err, password.ErrWeakPassword):
			response.BadRequest(w, err.Error())
		default:
			log.Error().Err(err).Msg("password reset failed")
			response.InternalError(w)
		}
		return
	}

	response.NoContent(w)
}
