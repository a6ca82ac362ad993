package auth

import "time"

// LoginRequest exchanges credentials for a token pair
type LoginRequest struct {
	Utorid   string `json:"utorid" validate:"required,utorid"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest rotates a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse carries an issued token pair
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ResetRequest starts a password reset for a utorid
type ResetRequest struct {
	Utorid string `json:"utorid" validate:"required,utorid"`
}

// ResetResponse carries the one-time reset token
type ResetResponse struct {
	ResetToken string    `json:"reset_token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ResetPasswordRequest redeems a reset or activation token
type ResetPasswordRequest struct {
	Utorid   string `json:"utorid" validate:"required,utorid"`
	Password string `json:"password" validate:"required"`
}
