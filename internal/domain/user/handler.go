package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/campuspoints/points-api/internal/middleware"
	"github.com/campuspoints/points-api/internal/pkg/password"
	"github.com/campuspoints/points-api/internal/pkg/response"
	"github.com/campuspoints/points-api/internal/pkg/validator"
)

const maxAvatarBytes = 5 << 20 // 5 MiB

// Handler handles user HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates user handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register handles POST /users (cashier and above)
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Register(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUtoridTaken):
			response.Conflict(w, "Utorid already registered")
		case errors.Is(err, ErrEmailTaken):
			response.Conflict(w, "Email already registered")
		default:
			log.Error().Err(err).Str("utorid", req.Utorid).Msg("failed to register user")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, result)
}

// List handles GET /users (manager and above)
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := ListFilters{
		Name: r.URL.Query().Get("name"),
		Role: r.URL.Query().Get("role"),
		Page: queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 10),
	}
	if v := r.URL.Query().Get("verified"); v != "" {
		b := v == "true"
		filters.Verified = &b
	}
	if v := r.URL.Query().Get("activated"); v != "" {
		b := v == "true"
		filters.Activated = &b
	}

	users, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		log.Error().Err(err).Msg("failed to list users")
		response.InternalError(w)
		return
	}

	response.WithMeta(w, users, response.Meta{
		Count: total,
		Page:  filters.Page,
		Limit: filters.Limit,
	})
}

// Get handles GET /users/{id} (cashier and above; view depends on rank)
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user id")
		return
	}

	viewerRole := Role(middleware.GetRole(r.Context()))
	result, err := h.service.Get(r.Context(), id, viewerRole)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		log.Error().Err(err).Str("user_id", id.String()).Msg("failed to get user")
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

// AdminUpdate handles PATCH /users/{id} (manager and above)
func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user id")
		return
	}

	var req AdminUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	callerRole := Role(middleware.GetRole(r.Context()))
	result, err := h.service.AdminUpdate(r.Context(), callerRole, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "User not found")
		case errors.Is(err, ErrVerifiedIsOneWay):
			response.BadRequest(w, "Verified can only transition to true")
		case errors.Is(err, ErrInvalidRole):
			response.BadRequest(w, "Invalid role")
		case errors.Is(err, ErrRoleNotAssignable):
			response.Forbidden(w, "Managers may only assign regular or cashier")
		case errors.Is(err, ErrEmailTaken):
			response.Conflict(w, "Email already registered")
		default:
			log.Error().Err(err).Str("user_id", id.String()).Msg("failed to update user")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

// Me handles GET /users/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.GetSelf(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		response.NotFound(w, "User not found")
		return
	}
	response.OK(w, result)
}

// UpdateMe handles PATCH /users/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateSelfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.UpdateSelf(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "User not found")
		case errors.Is(err, ErrEmailTaken):
			response.Conflict(w, "Email already registered")
		default:
			log.Error().Err(err).Msg("failed to update profile")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

// UpdateAvatar handles PATCH /users/me/avatar (multipart form, field "avatar")
func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		response.BadRequest(w, "Invalid multipart form")
		return
	}

	file, _, err := r.FormFile("avatar")
	if err != nil {
		response.BadRequest(w, "Missing avatar file")
		return
	}
	defer file.Close()

	result, err := h.service.UpdateAvatar(r.Context(), middleware.GetUserID(r.Context()), file)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAvatar):
			response.BadRequest(w, "File is not a valid image")
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "User not found")
		default:
			log.Error().Err(err).Msg("failed to update avatar")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

// ChangePassword handles PATCH /users/me/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	err := h.service.ChangePassword(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrWrongPassword):
			response.Forbidden(w, "Current password is incorrect")
		case errors.Is(err, password.ErrWeakPassword):
			response.BadRequest(w, err.Error())
		default:
			log.Error().Err(err).Msg("failed to change password")
			response.InternalError(w)
		}
		return
	}

	response.NoContent(w)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
