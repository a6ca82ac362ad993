package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/campuspoints/points-api/internal/domain/user"
	"github.com/campuspoints/points-api/internal/pkg/jwt"
	"github.com/campuspoints/points-api/internal/pkg/password"
)

// Service handles authentication business logic
type Service struct {
	users    user.Repository
	tokens   TokenStore
	jwt      *jwt.Service
	resetTTL time.Duration
}

// NewService creates auth service
func NewService(users user.Repository, tokens TokenStore, jwtService *jwt.Service, resetTTL time.Duration) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		jwt:      jwtService,
		resetTTL: resetTTL,
	}
}

// Login verifies credentials and issues a token pair. Unknown utorids,
// wrong passwords and unactivated accounts all fail the same way so the
// response never reveals which accounts exist.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	u, err := s.users.GetByUtorid(ctx, req.Utorid)
	if err != nil {
		return nil, err
	}
	if u == nil || u.PasswordHash == "" || !password.Verify(req.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issuePair(ctx, u)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, u.ID); err != nil {
		log.Warn().Err(err).Str("utorid", u.Utorid).Msg("failed to record login time")
	}

	return resp, nil
}

// Refresh rotates a refresh token: the presented token is invalidated and
// a fresh pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	hash := jwt.HashToken(refreshToken)

	userID, err := s.tokens.GetRefresh(ctx, hash)
	if err != nil {
		return nil, err
	}
	if userID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	if err := s.tokens.DeleteRefresh(ctx, hash); err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidToken
	}

	return s.issuePair(ctx, u)
}

// Logout invalidates a refresh token
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.DeleteRefresh(ctx, jwt.HashToken(refreshToken))
}

// RequestReset issues a one-time password reset token for an existing
// account.
func (s *Service) RequestReset(ctx context.Context, utorid string) (*ResetResponse, error) {
	u, err := s.users.GetByUtorid(ctx, utorid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, user.ErrNotFound
	}

	token, expiresAt, err := s.issueResetToken(ctx, u.Utorid)
	if err != nil {
		return nil, err
	}
	return &ResetResponse{ResetToken: token, ExpiresAt: expiresAt}, nil
}

// ResetPassword redeems a reset or activation token and sets a new
// password. The token is consumed even when the utorid does not match, so
// a leaked token cannot be retried against other accounts.
func (s *Service) ResetPassword(ctx context.Context, token string, req *ResetPasswordRequest) error {
	storedUtorid, err := s.tokens.ConsumeReset(ctx, jwt.HashToken(token))
	if err != nil {
		return err
	}
	if storedUtorid == "" {
		return ErrInvalidToken
	}
	if storedUtorid != req.Utorid {
		return ErrTokenMismatch
	}

	u, err := s.users.GetByUtorid(ctx, req.Utorid)
	if err != nil {
		return err
	}
	if u == nil {
		return user.ErrNotFound
	}

	if err := password.CheckPolicy(req.Password); err != nil {
		return err
	}
	hash, err := password.Hash(req.Password)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, u.ID, hash)
}

// IssueActivationToken issues the one-time token a freshly registered user
// redeems through the reset endpoint to set an initial password.
func (s *Service) IssueActivationToken(ctx context.Context, utorid string) (string, time.Time, error) {
	return s.issueResetToken(ctx, utorid)
}

func (s *Service) issueResetToken(ctx context.Context, utorid string) (string, time.Time, error) {
	token, err := jwt.GenerateRefreshToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := time.Now().Add(s.resetTTL)
	if err := s.tokens.SaveReset(ctx, jwt.HashToken(token), utorid, s.resetTTL); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (s *Service) issuePair(ctx context.Context, u *user.User) (*TokenResponse, error) {
	access, expiresAt, err := s.jwt.GenerateAccessToken(u.ID, u.Utorid, string(u.Role))
	if err != nil {
		return nil, err
	}

	refresh, err := jwt.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.tokens.SaveRefresh(ctx, jwt.HashToken(refresh), u.ID, s.jwt.GetRefreshTTL()); err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}
