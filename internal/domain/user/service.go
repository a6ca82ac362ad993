package user

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/campuspoints/points-api/internal/pkg/imaging"
	"github.com/campuspoints/points-api/internal/pkg/password"
	"github.com/campuspoints/points-api/internal/pkg/storage"
)

// ActivationTokens issues one-time tokens a freshly registered user redeems
// to set an initial password. Implemented by the auth reset-token store.
type ActivationTokens interface {
	Issue(ctx context.Context, utorid string) (token string, expiresAt time.Time, err error)
}

// PromotionCatalog lists the one-time promotions a user can still redeem.
// Implemented by the promotion service.
type PromotionCatalog interface {
	AvailableFor(ctx context.Context, userID uuid.UUID) ([]AvailablePromotion, error)
}

// Service handles user account business logic
type Service struct {
	repo       Repository
	activation ActivationTokens
	promotions PromotionCatalog
	avatars    storage.Storage
	images     *imaging.Processor
}

// NewService creates user service
func NewService(repo Repository, activation ActivationTokens, promotions PromotionCatalog, avatars storage.Storage, images *imaging.Processor) *Service {
	return &Service{
		repo:       repo,
		activation: activation,
		promotions: promotions,
		avatars:    avatars,
		images:     images,
	}
}

func (s *Service) availablePromotions(ctx context.Context, userID uuid.UUID) []AvailablePromotion {
	if s.promotions == nil {
		return []AvailablePromotion{}
	}
	available, err := s.promotions.AvailableFor(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to load available promotions")
		return []AvailablePromotion{}
	}
	if available == nil {
		available = []AvailablePromotion{}
	}
	return available
}

// Register creates a new unactivated account. The returned activation token
// is shown once to the registering cashier.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	existing, err := s.repo.GetByUtorid(ctx, req.Utorid)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUtoridTaken
	}

	u := &User{
		ID:     uuid.New(),
		Utorid: req.Utorid,
		Name:   req.Name,
		Email:  req.Email,
		Role:   RoleRegular,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	resp := &RegisterResponse{User: NewResponse(u)}
	resp.User.Promotions = s.availablePromotions(ctx, u.ID)

	if s.activation != nil {
		token, expiresAt, err := s.activation.Issue(ctx, u.Utorid)
		if err != nil {
			// The account exists either way; the user can request a
			// fresh token through the reset endpoint.
			log.Warn().Err(err).Str("utorid", u.Utorid).Msg("failed to issue activation token")
		} else {
			resp.ActivationToken = token
			resp.ExpiresAt = &expiresAt
		}
	}

	return resp, nil
}

// GetSelf returns the caller's own profile
func (s *Service) GetSelf(ctx context.Context, userID uuid.UUID) (*Response, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	resp := NewResponse(u)
	resp.Promotions = s.availablePromotions(ctx, u.ID)
	return &resp, nil
}

// UpdateSelf updates the caller's own profile fields
func (s *Service) UpdateSelf(ctx context.Context, userID uuid.UUID, req *UpdateSelfRequest) (*Response, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}

	var birthday *time.Time
	if req.Birthday != nil {
		b, err := time.Parse("2006-01-02", *req.Birthday)
		if err != nil {
			return nil, fmt.Errorf("parse birthday: %w", err)
		}
		birthday = &b
	}

	if err := s.repo.UpdateProfile(ctx, userID, req.Name, req.Email, birthday); err != nil {
		return nil, err
	}

	return s.GetSelf(ctx, userID)
}

// UpdateAvatar normalizes an uploaded image and stores it, replacing any
// previous avatar.
func (s *Service) UpdateAvatar(ctx context.Context, userID uuid.UUID, reader io.Reader) (*Response, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}

	avatar, err := s.images.ProcessAvatar(reader)
	if err != nil {
		return nil, ErrInvalidAvatar
	}

	key := fmt.Sprintf("avatars/%s.jpg", u.Utorid)
	if err := s.avatars.Put(ctx, key, bytes.NewReader(avatar.Data), avatar.ContentType); err != nil {
		return nil, fmt.Errorf("store avatar: %w", err)
	}

	if err := s.repo.UpdateAvatar(ctx, userID, s.avatars.GetURL(key)); err != nil {
		return nil, err
	}

	return s.GetSelf(ctx, userID)
}

// ChangePassword verifies the old password and applies the new one
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, req *ChangePasswordRequest) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrNotFound
	}

	if !password.Verify(req.Old, u.PasswordHash) {
		return ErrWrongPassword
	}
	if err := password.CheckPolicy(req.New); err != nil {
		return err
	}

	hash, err := password.Hash(req.New)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, hash)
}

// Get returns another user, shaped by the viewer's rank: cashiers get the
// limited view, managers and above the full one.
func (s *Service) Get(ctx context.Context, id uuid.UUID, viewerRole Role) (interface{}, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}

	promotions := s.availablePromotions(ctx, u.ID)
	if viewerRole.AtLeast(RoleManager) {
		resp := NewResponse(u)
		resp.Promotions = promotions
		return &resp, nil
	}
	resp := NewLimitedResponse(u)
	resp.Promotions = promotions
	return &resp, nil
}

// List returns users matching the filters
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Response, int, error) {
	users, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	resp := make([]Response, 0, len(users))
	for i := range users {
		r := NewResponse(&users[i])
		r.Promotions = []AvailablePromotion{}
		resp = append(resp, r)
	}
	return resp, total, nil
}

// AdminUpdate applies staff updates to another user. Verified is one-way;
// managers may only assign regular or cashier; promotion to cashier clears
// the suspicious flag.
func (s *Service) AdminUpdate(ctx context.Context, callerRole Role, targetID uuid.UUID, req *AdminUpdateRequest) (*Response, error) {
	u, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}

	if req.Verified != nil {
		if !*req.Verified {
			return nil, ErrVerifiedIsOneWay
		}
		if !u.Verified {
			if err := s.repo.UpdateVerified(ctx, targetID); err != nil {
				return nil, err
			}
		}
	}

	if req.Suspicious != nil && *req.Suspicious != u.Suspicious {
		if err := s.repo.UpdateSuspicious(ctx, targetID, *req.Suspicious); err != nil {
			return nil, err
		}
	}

	if req.Email != nil {
		if err := s.repo.UpdateEmail(ctx, targetID, *req.Email); err != nil {
			return nil, err
		}
	}

	if req.Role != nil {
		role := Role(*req.Role)
		if !IsValidRole(*req.Role) {
			return nil, ErrInvalidRole
		}
		if !callerRole.AtLeast(RoleSuperuser) && role.AtLeast(RoleManager) {
			return nil, ErrRoleNotAssignable
		}
		if role != u.Role {
			clearSuspicious := role == RoleCashier
			if err := s.repo.UpdateRole(ctx, targetID, role, clearSuspicious); err != nil {
				return nil, err
			}
		}
	}

	updated, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	resp := NewResponse(updated)
	resp.Promotions = s.availablePromotions(ctx, targetID)
	return &resp, nil
}
