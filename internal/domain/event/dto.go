package event

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest creates an event (manager and above)
type CreateRequest struct {
	Name        string    `json:"name" validate:"required,min=1,max=100"`
	Description string    `json:"description" validate:"max=2000"`
	Location    string    `json:"location" validate:"required,min=1,max=255"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	Capacity    *int      `json:"capacity" validate:"omitempty,gt=0"`
	Points      int       `json:"points" validate:"gte=0"`
}

// UpdateRequest updates an event. Published is one-way; capacity cannot
// drop below the guest count; points cannot drop below what was awarded.
type UpdateRequest struct {
	Name        *string    `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Location    *string    `json:"location" validate:"omitempty,min=1,max=255"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Capacity    *int       `json:"capacity" validate:"omitempty,gt=0"`
	Points      *int       `json:"points" validate:"omitempty,gte=0"`
	Published   *bool      `json:"published"`
}

// MemberRequest adds an organizer or guest by utorid
type MemberRequest struct {
	Utorid string `json:"utorid" validate:"required,utorid"`
}

// AwardRequest awards event points to one guest, or to every guest when
// utorid is omitted.
type AwardRequest struct {
	Amount int     `json:"amount" validate:"required,gt=0"`
	Utorid *string `json:"utorid" validate:"omitempty,utorid"`
	Remark string  `json:"remark" validate:"max=255"`
}

// ListFilters narrows the event listing
type ListFilters struct {
	Name          string
	Location      string
	Started       *bool
	Ended         *bool
	Published     *bool
	ShowFull      bool
	PublishedOnly bool
	Page          int
	Limit         int
}

// Response is the event view. The budget fields and guest list are
// staff/organizer only.
type Response struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Location      string    `json:"location"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Capacity      *int      `json:"capacity,omitempty"`
	GuestCount    int       `json:"guest_count"`
	TotalPoints   *int      `json:"total_points,omitempty"`
	PointsAwarded *int      `json:"points_awarded,omitempty"`
	PointsRemain  *int      `json:"points_remain,omitempty"`
	Published     *bool     `json:"published,omitempty"`
	Organizers    []Member  `json:"organizers,omitempty"`
	Guests        []Member  `json:"guests,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewResponse builds the public event view
func NewResponse(e *Event) Response {
	resp := Response{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Location:    e.Location,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		GuestCount:  e.GuestCount,
		CreatedAt:   e.CreatedAt,
	}
	if e.Capacity.Valid {
		c := int(e.Capacity.Int64)
		resp.Capacity = &c
	}
	return resp
}

// NewStaffResponse builds the staff/organizer event view with the points
// budget and published flag included.
func NewStaffResponse(e *Event) Response {
	resp := NewResponse(e)
	total, awarded, remain := e.TotalPoints, e.PointsAwarded, e.PointsRemain
	published := e.Published
	resp.TotalPoints = &total
	resp.PointsAwarded = &awarded
	resp.PointsRemain = &remain
	resp.Published = &published
	return resp
}
