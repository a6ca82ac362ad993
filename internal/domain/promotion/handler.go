package promotion

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/campuspoints/points-api/internal/middleware"
	"github.com/campuspoints/points-api/internal/pkg/response"
	"github.com/campuspoints/points-api/internal/pkg/validator"
)

// Handler handles promotion HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates promotion handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /promotions (manager and above)
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Create(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidWindow):
			response.BadRequest(w, "Start time must be before end time")
		case errors.Is(err, ErrStartInPast):
			response.BadRequest(w, "Start time cannot be in the past")
		default:
			log.Error().Err(err).Msg("failed to create promotion")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, result)
}

// Get handles GET /promotions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid promotion id")
		return
	}

	result, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "Promotion not found")
			return
		}
		log.Error().Err(err).Str("promotion_id", id.String()).Msg("failed to get promotion")
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

// List handles GET /promotions. Regular users see only promotions active
// now that they have not used; managers see everything with filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ListFilters{
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 10),
	}

	if middleware.RoleAtLeast(middleware.GetRole(r.Context()), middleware.RoleManager) {
		filters.Name = q.Get("name")
		filters.Type = q.Get("type")
		if v := q.Get("started"); v != "" {
			b := v == "true"
			filters.Started = &b
		}
		if v := q.Get("ended"); v != "" {
			b := v == "true"
			filters.Ended = &b
		}
	} else {
		userID := middleware.GetUserID(r.Context())
		filters.ForUser = &userID
	}

	promotions, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		log.Error().Err(err).Msg("failed to list promotions")
		response.InternalError(w)
		return
	}

	response.WithMeta(w, promotions, response.Meta{
		Count: total,
		Page:  filters.Page,
		Limit: filters.Limit,
	})
}

// Update handles PATCH /promotions/{id} (manager and above)
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid promotion id")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "Promotion not found")
		case errors.Is(err, ErrAlreadyEnded):
			response.BadRequest(w, "Promotion has already ended")
		case errors.Is(err, ErrAlreadyStarted):
			response.BadRequest(w, "Only description and end time can change after start")
		case errors.Is(err, ErrStartInPast):
			response.BadRequest(w, "Start time cannot be in the past")
		case errors.Is(err, ErrInvalidWindow):
			response.BadRequest(w, "Start time must be before end time")
		default:
			log.Error().Err(err).Str("promotion_id", id.String()).Msg("failed to update promotion")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

// Delete handles DELETE /promotions/{id} (manager and above)
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid promotion id")
		return
	}

	err = h.service.Delete(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "Promotion not found")
		case errors.Is(err, ErrAlreadyStarted):
			response.Forbidden(w, "Promotions cannot be deleted once started")
		default:
			log.Error().Err(err).Str("promotion_id", id.String()).Msg("failed to delete promotion")
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
