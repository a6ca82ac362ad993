package event

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/campuspoints/points-api/internal/domain/transaction"
	"github.com/campuspoints/points-api/internal/domain/user"
	"github.com/campuspoints/points-api/internal/middleware"
	"github.com/campuspoints/points-api/internal/pkg/response"
	"github.com/campuspoints/points-api/internal/pkg/validator"
)

// Handler handles event HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates event handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func viewer(r *http.Request) (uuid.UUID, user.Role) {
	ctx := r.Context()
	return middleware.GetUserID(ctx), user.Role(middleware.GetRole(ctx))
}

// Create handles POST /events (manager and above)
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
		if errors.Is(err, ErrInvalidWindow) {
			response.BadRequest(w, "Start time must be before end time")
			return
		}
		log.Error().Err(err).Msg("failed to create event")
		response.InternalError(w)
		return
	}

	response.Created(w, result)
}

// Get handles GET /events/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid event id")
		return
	}

	viewerID, viewerRole := viewer(r)
	result, err := h.service.Get(r.Context(), id, viewerID, viewerRole)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "Event not found")
			return
		}
		log.Error().Err(err).Str("event_id", id.String()).Msg("failed to get event")
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

// List handles GET /events
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	_, viewerRole := viewer(r)
	staff := viewerRole.AtLeast(user.RoleManager)

	filters := ListFilters{
		Name:     q.Get("name"),
		Location: q.Get("location"),
		ShowFull: q.Get("show_full") == "true",
		Page:     queryInt(r, "page", 1),
		Limit:    queryInt(r, "limit", 10),
	}
	if v := q.Get("started"); v != "" {
		b := v == "true"
		filters.Started = &b
	}
	if v := q.Get("ended"); v != "" {
		b := v == "true"
		filters.Ended = &b
	}
	if staff {
		if v := q.Get("published"); v != "" {
			b := v == "true"
			filters.Published = &b
		}
	}

	events, total, err := h.service.List(r.Context(), filters, staff)
	if err != nil {
		log.Error().Err(err).Msg("failed to list events")
		response.InternalError(w)
		return
	}

	response.WithMeta(w, events, response.Meta{
		Count: total,
		Page:  filters.Page,
		Limit: filters.Limit,
	})
}

// Update handles PATCH /events/{id} (manager or organizer)
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid event id")
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

	viewerID, viewerRole := viewer(r)
	result, err := h.service.Update(r.Context(), id, viewerID, viewerRole, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "Event not found")
		case errors.Is(err, ErrNotAuthorized):
			response.Forbidden(w, "Only managers and organizers can update this event")
		case errors.Is(err, ErrPublishOneWay):
			response.BadRequest(w, "Published cannot be set back to false")
		case errors.Is(err, ErrInvalidWindow):
			response.BadRequest(w, "Start time must be before end time")
		case errors.Is(err, ErrCapacityTooSmall):
			response.BadRequest(w, "Capacity cannot be below the current guest count")
		case errors.Is(err, ErrPointsTooSmall):
			response.BadRequest(w, "Total points cannot be below the points already awarded")
		default:
			log.Error().Err(err).Str("event_id", id.String()).Msg("failed to update event")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

// Delete handles DELETE /events/{id} (manager and above)
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid event id")
		return
	}

	err = h.service.Delete(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "Event not found")
		case errors.Is(err, ErrDeletePublished):
			response.BadRequest(w, "Published events cannot be deleted")
		default:
			log.Error().Err(err).Str("event_id", id.String()).Msg("failed to delete event")
			response.InternalError(w)
		}
		return
	}

	response.NoContent(w)
}

// AddOrganizer handles POST /events/{id}/organizers (manager and above)
func (h *Handler) AddOrganizer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid event id")
		return
	}

	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	organizers, err := h.service.AddOrganizer(r.Context(), id, req.Utorid)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "Event not found")
		case errors.Is(err, ErrUserNotFound):
			response.NotFound(w, "User not found")
		case errors.Is(err, ErrEnded):
			response.BadRequest(w, "Event has already ended")
		case errors.Is(err, ErrOrganizerIsGuest):
			response.BadRequest(w, "User is a guest of this event")
		case errors.Is(err, ErrAlreadyOrganizer):
			response.Conflict(w, "User is already an organizer")
		default:
			log.Error().Err(err).Str("event_id", id.String()).Msg("failed to add organizer")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, organizers)
}

// RemoveOrganizer handles DELETE /events/{id}/organizers/{userId}
func (h *Handler) RemoveOrganizer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid event id")
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		response.BadRequest(w, "Invalid user id")
		return
	}

	err = h.service.RemoveOrganizer(r.Context(), id, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "Event not found")
		case errors.Is(err, ErrNotOrganizer):
			response.NotFound(w, "User is not an organizer")
		default:
			log.Error().Err(err).Str("event_id", id.String()).Msg("failed to remove organizer")
			response.InternalError(w)
		}
		return
	}

	response.NoContent(w)
}

// AddGuest handles POST /events/{id}/guests (manager or organizer)
func (h *Handler) AddGuest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid event id")
		return
	}

	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	callerID, callerRole := viewer(r)
	guests, err := h.service.AddGuest(r.Context(), id, callerID, callerRole, req.Utorid)
	if err != nil {
		h.writeGuestError(w, id, err)
		return
	}

	response.Created(w, guests)
}

// RSVP handles POST /events/{id}/guests/me
func (h *Handler) RSVP(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid event id")
		return
	}

	if err := h.service.RSVP(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		h.writeGuestError(w, id, err)
		return
	}

	response.Created(w, map[string]string{"status": "attending"})
}

// CancelRSVP handles DELETE /events/{id}/guests/me
func (h *Handler) CancelRSVP(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid event id")
		return
	}

	err = h.service.CancelRSVP(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "Event not found")
		case errors.Is(err, ErrEnded):
			response.BadRequest(w, "Event has already ended")
		case errors.Is(err, ErrNotGuest):
			response.NotFound(w, "You are not attending this event")
		default:
			log.Error().Err(err).Str("event_id", id.String()).Msg("failed to cancel rsvp")
			response.InternalError(w)
		}
		return
	}

	response.NoContent(w)
}

// RemoveGuest handles DELETE /events/{id}/guests/{userId} (manager and above)
func (h *Handler) RemoveGuest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid event id")
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		response.BadRequest(w, "Invalid user id")
		return
	}

	err = h.service.RemoveGuest(r.Context(), id, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "Event not found")
		case errors.Is(err, ErrNotGuest):
			response.NotFound(w, "User is not a guest")
		default:
			log.Error().Err(err).Str("event_id", id.String()).Msg("failed to remove guest")
			response.InternalError(w)
		}
		return
	}

	response.NoContent(w)
}

func (h *Handler) writeGuestError(w http.ResponseWriter, eventID uuid.UUID, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "Event not found")
	case errors.Is(err, ErrUserNotFound):
		response.NotFound(w, "User not found")
	case errors.Is(err, ErrNotAuthorized):
		response.Forbidden(w, "Only managers and organizers can add guests")
	case errors.Is(err, ErrEnded):
		response.BadRequest(w, "Event has already ended")
	case errors.Is(err, ErrFull):
		response.Conflict(w, "Event is full")
	case errors.Is(err, ErrAlreadyGuest):
		response.Conflict(w, "Already attending this event")
	case errors.Is(err, ErrOrganizerIsGuest):
		response.BadRequest(w, "Organizers cannot attend as guests")
	default:
		log.Error().Err(err).Str("event_id", eventID.String()).Msg("failed to add guest")
		response.InternalError(w)
	}
}

// Award handles POST /events/{id}/transactions (manager or organizer)
func (h *Handler) Award(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid event id")
		return
	}

	var req AwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	callerID, callerRole := viewer(r)
	created, err := h.service.Award(r.Context(), id, callerID, callerRole, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, transaction.ErrEventNotFound):
			response.NotFound(w, "Event not found")
		case errors.Is(err, ErrUserNotFound):
			response.NotFound(w, "User not found")
		case errors.Is(err, ErrNotAuthorized):
			response.Forbidden(w, "Only managers and organizers can award points")
		case errors.Is(err, transaction.ErrNotGuest):
			response.BadRequest(w, "User is not a guest of this event")
		case errors.Is(err, transaction.ErrInsufficientEventBudget):
			response.BadRequest(w, "Not enough points remain in the event budget")
		default:
			log.Error().Err(err).Str("event_id", id.String()).Msg("failed to award points")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, created)
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
