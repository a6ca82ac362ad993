package transaction

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

// Handler handles transaction HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates transaction handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /transactions. Cashiers create purchases; managers
// may also create adjustments.
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

	creatorID := middleware.GetUserID(r.Context())

	switch Type(req.Type) {
	case TypePurchase:
		if req.Spent == nil {
			response.BadRequest(w, "Purchases require a positive spent amount")
			return
		}
		result, err := h.service.CreatePurchase(r.Context(), creatorID, &req)
		if err != nil {
			h.writeCreateError(w, err)
			return
		}
		response.Created(w, result)

	case TypeAdjustment:
		if !middleware.RoleAtLeast(middleware.GetRole(r.Context()), middleware.RoleManager) {
			response.Forbidden(w, "Adjustments require manager role")
			return
		}
		if req.Amount == nil || *req.Amount == 0 {
			response.BadRequest(w, "Adjustments require a non-zero amount")
			return
		}
		if req.RelatedID == nil {
			response.BadRequest(w, "Adjustments require a related transaction")
			return
		}
		result, err := h.service.CreateAdjustment(r.Context(), creatorID, &req)
		if err != nil {
			h.writeCreateError(w, err)
			return
		}
		response.Created(w, result)

	default:
		response.BadRequest(w, "Type must be purchase or adjustment")
	}
}

func (h *Handler) writeCreateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		response.NotFound(w, "User not found")
	case errors.Is(err, ErrRelatedNotFound):
		response.NotFound(w, "Related transaction not found")
	case errors.Is(err, ErrInsufficientBalance):
		response.BadRequest(w, "Balance cannot go negative")
	case errors.Is(err, ErrPromotionNotFound):
		response.NotFound(w, "Promotion not found")
	case errors.Is(err, ErrPromotionNotApplicable):
		response.BadRequest(w, "Promotion not applicable to this purchase")
	case errors.Is(err, ErrPromotionAlreadyUsed):
		response.Conflict(w, "Promotion already used")
	default:
		log.Error().Err(err).Msg("failed to create transaction")
		response.InternalError(w)
	}
}

// CreateRedemption handles POST /transactions/redemptions
func (h *Handler) CreateRedemption(w http.ResponseWriter, r *http.Request) {
	var req CreateRedemptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.CreateRedemption(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotVerified):
			response.Forbidden(w, "Account must be verified to redeem points")
		case errors.Is(err, ErrInsufficientBalance):
			response.BadRequest(w, "Cannot redeem more points than you have")
		default:
			log.Error().Err(err).Msg("failed to create redemption")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, result)
}

// CreateTransfer handles POST /transactions/transfers
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.CreateTransfer(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotVerified):
			response.Forbidden(w, "Account must be verified to transfer points")
		case errors.Is(err, ErrUserNotFound):
			response.NotFound(w, "Recipient not found")
		case errors.Is(err, ErrSelfTransfer):
			response.BadRequest(w, "Cannot transfer points to yourself")
		case errors.Is(err, ErrInsufficientBalance):
			response.BadRequest(w, "Insufficient point balance")
		default:
			log.Error().Err(err).Msg("failed to create transfer")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, result)
}

// Process handles PATCH /transactions/{id}/processed
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid transaction id")
		return
	}

	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if !req.Processed {
		response.BadRequest(w, "Processed can only be set to true")
		return
	}

	result, err := h.service.ProcessRedemption(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "Transaction not found")
		case errors.Is(err, ErrNotRedemption):
			response.BadRequest(w, "Only redemptions can be processed")
		case errors.Is(err, ErrAlreadyProcessed):
			response.Conflict(w, "Redemption already processed")
		case errors.Is(err, ErrInsufficientBalance):
			response.BadRequest(w, "Customer balance cannot cover this redemption")
		default:
			log.Error().Err(err).Str("transaction_id", id.String()).Msg("failed to process redemption")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

// SetSuspicious handles PATCH /transactions/{id}/suspicious
func (h *Handler) SetSuspicious(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid transaction id")
		return
	}

	var req SetSuspiciousRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if req.Suspicious == nil {
		response.BadRequest(w, "Suspicious flag is required")
		return
	}

	result, err := h.service.SetSuspicious(r.Context(), id, *req.Suspicious)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "Transaction not found")
		case errors.Is(err, ErrNotPurchase):
			response.BadRequest(w, "Only purchases can be flagged suspicious")
		case errors.Is(err, ErrInsufficientBalance):
			response.BadRequest(w, "Customer balance cannot cover the withdrawal")
		default:
			log.Error().Err(err).Str("transaction_id", id.String()).Msg("failed to update suspicious flag")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

// Get handles GET /transactions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid transaction id")
		return
	}

	result, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "Transaction not found")
			return
		}
		log.Error().Err(err).Str("transaction_id", id.String()).Msg("failed to get transaction")
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

// List handles GET /transactions
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseFilters(w, r)
	if !ok {
		return
	}

	transactions, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		log.Error().Err(err).Msg("failed to list transactions")
		response.InternalError(w)
		return
	}

	response.WithMeta(w, transactions, response.Meta{
		Count: total,
		Page:  filters.Page,
		Limit: filters.Limit,
	})
}

// ListOwn handles GET /transactions/me
func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseFilters(w, r)
	if !ok {
		return
	}

	transactions, total, err := h.service.ListOwn(r.Context(), middleware.GetUserID(r.Context()), filters)
	if err != nil {
		log.Error().Err(err).Msg("failed to list own transactions")
		response.InternalError(w)
		return
	}

	response.WithMeta(w, transactions, response.Meta{
		Count: total,
		Page:  filters.Page,
		Limit: filters.Limit,
	})
}

func parseFilters(w http.ResponseWriter, r *http.Request) (ListFilters, bool) {
	q := r.URL.Query()

	filters := ListFilters{
		Name:      q.Get("name"),
		CreatedBy: q.Get("created_by"),
		Type:      q.Get("type"),
		Operator:  q.Get("operator"),
		Page:      queryInt(r, "page", 1),
		Limit:     queryInt(r, "limit", 10),
	}

	if v := q.Get("suspicious"); v != "" {
		b := v == "true"
		filters.Suspicious = &b
	}
	if v := q.Get("promotion_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(w, "Invalid promotion_id filter")
			return filters, false
		}
		filters.PromotionID = &id
	}
	if v := q.Get("related_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(w, "Invalid related_id filter")
			return filters, false
		}
		filters.RelatedID = &id
	}
	if v := q.Get("amount"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(w, "Invalid amount filter")
			return filters, false
		}
		if filters.Operator != "gte" && filters.Operator != "lte" {
			response.BadRequest(w, "Amount filter requires operator gte or lte")
			return filters, false
		}
		filters.Amount = &n
	}

	return filters, true
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
