package user

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest is the cashier-facing request to create a new account
type RegisterRequest struct {
	Utorid string `json:"utorid" validate:"required,utorid"`
	Name   string `json:"name" validate:"required,min=1,max=50"`
	Email  string `json:"email" validate:"required,email,endswith=@mail.utoronto.ca"`
}

// UpdateSelfRequest updates the caller's own profile
type UpdateSelfRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=50"`
	Email    *string `json:"email" validate:"omitempty,email,endswith=@mail.utoronto.ca"`
	Birthday *string `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
}

// ChangePasswordRequest updates the caller's password
type ChangePasswordRequest struct {
	Old string `json:"old" validate:"required"`
	New string `json:"new" validate:"required"`
}

// AdminUpdateRequest is the staff-facing update of another user
type AdminUpdateRequest struct {
	Email      *string `json:"email" validate:"omitempty,email,endswith=@mail.utoronto.ca"`
	Verified   *bool   `json:"verified"`
	Suspicious *bool   `json:"suspicious"`
	Role       *string `json:"role" validate:"omitempty,role"`
}

// ListFilters narrows the staff user listing
type ListFilters struct {
	Name      string // substring match on utorid or name
	Role      string
	Verified  *bool
	Activated *bool
	Page      int
	Limit     int
}

// Response is the full user view (manager and above, and self)
type Response struct {
	ID          uuid.UUID  `json:"id"`
	Utorid      string     `json:"utorid"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Points      int        `json:"points"`
	Verified    bool       `json:"verified"`
	Suspicious  bool       `json:"suspicious"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	Birthday    *string    `json:"birthday,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	Promotions []AvailablePromotion `json:"promotions"`
}

// LimitedResponse is the cashier view of another user
type LimitedResponse struct {
	ID       uuid.UUID `json:"id"`
	Utorid   string    `json:"utorid"`
	Name     string    `json:"name"`
	Points   int       `json:"points"`
	Verified bool      `json:"verified"`

	Promotions []AvailablePromotion `json:"promotions"`
}

// AvailablePromotion is a one-time promotion the user has not redeemed yet,
// embedded in user views so a cashier can see what applies at the register.
type AvailablePromotion struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	MinSpending *float64  `json:"min_spending,omitempty"`
	Rate        *float64  `json:"rate,omitempty"`
	Points      int       `json:"points"`
}

// RegisterResponse is returned when a cashier creates an account. The
// activation token is shown once so the new user can set a password.
type RegisterResponse struct {
	User            Response   `json:"user"`
	ActivationToken string     `json:"activation_token,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// NewResponse builds the full user view from an entity
func NewResponse(u *User) Response {
	resp := Response{
		ID:         u.ID,
		Utorid:     u.Utorid,
		Name:       u.Name,
		Email:      u.Email,
		Role:       string(u.Role),
		Points:     u.Points,
		Verified:   u.Verified,
		Suspicious: u.Suspicious,
		CreatedAt:  u.CreatedAt,
	}
	if u.AvatarURL.Valid {
		resp.AvatarURL = &u.AvatarURL.String
	}
	if u.Birthday.Valid {
		b := u.Birthday.Time.Format("2006-01-02")
		resp.Birthday = &b
	}
	if u.LastLoginAt.Valid {
		resp.LastLoginAt = &u.LastLoginAt.Time
	}
	return resp
}

// NewLimitedResponse builds the cashier view from an entity
func NewLimitedResponse(u *User) LimitedResponse {
	return LimitedResponse{
		ID:       u.ID,
		Utorid:   u.Utorid,
		Name:     u.Name,
		Points:   u.Points,
		Verified: u.Verified,
	}
}
