package promotion

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest creates a promotion (manager and above)
type CreateRequest struct {
	Name        string    `json:"name" validate:"required,min=1,max=100"`
	Description string    `json:"description" validate:"max=2000"`
	Type        string    `json:"type" validate:"required,promotion_type"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	MinSpending *float64  `json:"min_spending" validate:"omitempty,gt=0"`
	Rate        *float64  `json:"rate" validate:"omitempty,gt=0"`
	Points      int       `json:"points" validate:"gte=0"`
}

// UpdateRequest updates a promotion. Fields already in effect cannot be
// changed once the window has started.
type UpdateRequest struct {
	Name        *string    `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Type        *string    `json:"type" validate:"omitempty,promotion_type"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	MinSpending *float64   `json:"min_spending" validate:"omitempty,gt=0"`
	Rate        *float64   `json:"rate" validate:"omitempty,gt=0"`
	Points      *int       `json:"points" validate:"omitempty,gte=0"`
}

// ListFilters narrows the promotion listing
type ListFilters struct {
	Name    string
	Type    string
	Started *bool
	Ended   *bool
	// ForUser restricts to promotions active now and unused by this user
	ForUser *uuid.UUID
	Page    int
	Limit   int
}

// Response is the promotion view
type Response struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	MinSpending *float64  `json:"min_spending,omitempty"`
	Rate        *float64  `json:"rate,omitempty"`
	Points      int       `json:"points"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewResponse builds the promotion view from an entity
func NewResponse(p *Promotion) Response {
	resp := Response{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Type:        string(p.Type),
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
		Points:      p.Points,
		CreatedAt:   p.CreatedAt,
	}
	if p.MinSpending.Valid {
		resp.MinSpending = &p.MinSpending.Float64
	}
	if p.Rate.Valid {
		resp.Rate = &p.Rate.Float64
	}
	return resp
}
