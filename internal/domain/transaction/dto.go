package transaction

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest creates a purchase (cashier and above) or an adjustment
// (manager and above) for the named customer.
type CreateRequest struct {
	Utorid       string      `json:"utorid" validate:"required,utorid"`
	Type         string      `json:"type" validate:"required,tx_type"`
	Spent        *float64    `json:"spent" validate:"omitempty,gt=0"`
	Amount       *int        `json:"amount"`
	RelatedID    *uuid.UUID  `json:"related_id"`
	PromotionIDs []uuid.UUID `json:"promotion_ids"`
	Remark       string      `json:"remark" validate:"max=255"`
}

// CreateRedemptionRequest is the customer-facing request to redeem points
type CreateRedemptionRequest struct {
	Amount int    `json:"amount" validate:"required,gt=0"`
	Remark string `json:"remark" validate:"max=255"`
}

// CreateTransferRequest moves points from the caller to another user
type CreateTransferRequest struct {
	Recipient string `json:"recipient" validate:"required,utorid"`
	Amount    int    `json:"amount" validate:"required,gt=0"`
	Remark    string `json:"remark" validate:"max=255"`
}

// SetSuspiciousRequest toggles the suspicious flag on a purchase
type SetSuspiciousRequest struct {
	Suspicious *bool `json:"suspicious" validate:"required"`
}

// ProcessRequest marks a redemption processed
type ProcessRequest struct {
	Processed bool `json:"processed" validate:"required"`
}

// ListFilters narrows the staff transaction listing
type ListFilters struct {
	Name        string // substring match on the affected user's utorid or name
	CreatedBy   string // exact utorid
	Suspicious  *bool
	PromotionID *uuid.UUID
	Type        string
	RelatedID   *uuid.UUID
	Amount      *int
	Operator    string // gte or lte, paired with Amount
	Owner       *uuid.UUID
	Page        int
	Limit       int
}

// Response is the staff view of a ledger entry
type Response struct {
	ID           uuid.UUID   `json:"id"`
	Utorid       string      `json:"utorid"`
	Type         Type        `json:"type"`
	Amount       int         `json:"amount"`
	Spent        *float64    `json:"spent,omitempty"`
	PromotionIDs []uuid.UUID `json:"promotion_ids"`
	Suspicious   bool        `json:"suspicious"`
	Remark       string      `json:"remark"`
	CreatedBy    string      `json:"created_by"`
	ProcessedBy  *uuid.UUID  `json:"processed_by,omitempty"`
	RelatedID    *uuid.UUID  `json:"related_id,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// OwnResponse is the customer view of their own ledger entry. The
// suspicious flag is staff-only.
type OwnResponse struct {
	ID           uuid.UUID   `json:"id"`
	Type         Type        `json:"type"`
	Amount       int         `json:"amount"`
	Spent        *float64    `json:"spent,omitempty"`
	PromotionIDs []uuid.UUID `json:"promotion_ids"`
	Remark       string      `json:"remark"`
	CreatedBy    string      `json:"created_by"`
	RelatedID    *uuid.UUID  `json:"related_id,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NewResponse builds the staff view from an entity
func NewResponse(t *Transaction) Response {
	resp := Response{
		ID:           t.ID,
		Utorid:       t.Utorid,
		Type:         t.Type,
		Amount:       t.Amount,
		PromotionIDs: t.PromotionIDs,
		Suspicious:   t.Suspicious,
		Remark:       t.Remark,
		CreatedBy:    t.CreatedByUtorid,
		CreatedAt:    t.CreatedAt,
	}
	if resp.PromotionIDs == nil {
		resp.PromotionIDs = []uuid.UUID{}
	}
	if t.Spent.Valid {
		resp.Spent = &t.Spent.Float64
	}
	if t.ProcessedBy.Valid {
		resp.ProcessedBy = &t.ProcessedBy.UUID
	}
	if t.RelatedID.Valid {
		resp.RelatedID = &t.RelatedID.UUID
	}
	return resp
}

// NewOwnResponse builds the customer view from an entity
func NewOwnResponse(t *Transaction) OwnResponse {
	resp := OwnResponse{
		ID:           t.ID,
		Type:         t.Type,
		Amount:       t.Amount,
		PromotionIDs: t.PromotionIDs,
		Remark:       t.Remark,
		CreatedBy:    t.CreatedByUtorid,
		CreatedAt:    t.CreatedAt,
	}
	if resp.PromotionIDs == nil {
		resp.PromotionIDs = []uuid.UUID{}
	}
	if t.Spent.Valid {
		resp.Spent = &t.Spent.Float64
	}
	if t.RelatedID.Valid {
		resp.RelatedID = &t.RelatedID.UUID
	}
	return resp
}
