package transaction

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/campuspoints/points-api/internal/domain/user"
)

// pointRate is the base earning rate: one point per 25 cents spent.
const pointRate = 0.25

// AppliedPromotion is a promotion that contributes to a purchase's earning
type AppliedPromotion struct {
	ID      uuid.UUID
	OneTime bool
	Points  int
	Rate    float64
}

// PromotionSource resolves the promotions that apply to a purchase: every
// active automatic promotion plus the explicitly requested one-time ones,
// validated and deduplicated. Wired to the promotion service in main.
type PromotionSource interface {
	Resolve(ctx context.Context, userID uuid.UUID, requested []uuid.UUID, spent float64) ([]AppliedPromotion, error)
}

// Service handles ledger business logic
type Service struct {
	repo       Repository
	users      user.Repository
	promotions PromotionSource
}

// NewService creates transaction service
func NewService(repo Repository, users user.Repository, promotions PromotionSource) *Service {
	return &Service{repo: repo, users: users, promotions: promotions}
}

func basePoints(spent float64) int {
	return int(math.Round(spent / pointRate))
}

// CreatePurchase records a purchase for the named customer. Earnings are
// the base rate plus promotion bonuses, all committed with the ledger row
// in one DB transaction. A suspicious cashier's purchases are recorded but
// the points are withheld until a manager clears the flag.
func (s *Service) CreatePurchase(ctx context.Context, creatorID uuid.UUID, req *CreateRequest) (*Response, error) {
	customer, err := s.users.GetByUtorid(ctx, req.Utorid)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrUserNotFound
	}

	creator, err := s.users.GetByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if creator == nil {
		return nil, ErrUserNotFound
	}

	spent := *req.Spent
	earned := basePoints(spent)

	var applied []AppliedPromotion
	if s.promotions != nil {
		applied, err = s.promotions.Resolve(ctx, customer.ID, req.PromotionIDs, spent)
		if err != nil {
			return nil, err
		}
	}

	promoIDs := make([]uuid.UUID, 0, len(applied))
	oneTime := make([]uuid.UUID, 0, len(applied))
	for _, p := range applied {
		earned += p.Points + int(math.Round(spent/pointRate*p.Rate))
		promoIDs = append(promoIDs, p.ID)
		if p.OneTime {
			oneTime = append(oneTime, p.ID)
		}
	}

	t := Transaction{
		ID:              uuid.New(),
		Type:            TypePurchase,
		Amount:          earned,
		Spent:           sql.NullFloat64{Float64: spent, Valid: true},
		Remark:          req.Remark,
		UserID:          customer.ID,
		CreatedBy:       creator.ID,
		Suspicious:      creator.Suspicious,
		CreatedAt:       time.Now(),
		Utorid:          customer.Utorid,
		CreatedByUtorid: creator.Utorid,
		PromotionIDs:    promoIDs,
	}

	if err := s.repo.CreatePurchase(ctx, &t, oneTime); err != nil {
		return nil, err
	}

	resp := NewResponse(&t)
	return &resp, nil
}

// CreateAdjustment records a signed correction against a prior transaction
func (s *Service) CreateAdjustment(ctx context.Context, creatorID uuid.UUID, req *CreateRequest) (*Response, error) {
	customer, err := s.users.GetByUtorid(ctx, req.Utorid)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrUserNotFound
	}

	creator, err := s.users.GetByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if creator == nil {
		return nil, ErrUserNotFound
	}

	t := Transaction{
		ID:              uuid.New(),
		Type:            TypeAdjustment,
		Amount:          *req.Amount,
		Remark:          req.Remark,
		UserID:          customer.ID,
		CreatedBy:       creator.ID,
		RelatedID:       uuid.NullUUID{UUID: *req.RelatedID, Valid: true},
		CreatedAt:       time.Now(),
		Utorid:          customer.Utorid,
		CreatedByUtorid: creator.Utorid,
	}

	if err := s.repo.CreateAdjustment(ctx, &t); err != nil {
		return nil, err
	}

	resp := NewResponse(&t)
	return &resp, nil
}

// CreateRedemption records an unprocessed redemption for the caller. Only
// verified users may redeem, and never more than their current balance.
func (s *Service) CreateRedemption(ctx context.Context, userID uuid.UUID, req *CreateRedemptionRequest) (*OwnResponse, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	if !u.Verified {
		return nil, ErrUserNotVerified
	}

	t := Transaction{
		ID:              uuid.New(),
		Type:            TypeRedemption,
		Amount:          -req.Amount,
		Remark:          req.Remark,
		UserID:          u.ID,
		CreatedBy:       u.ID,
		CreatedAt:       time.Now(),
		Utorid:          u.Utorid,
		CreatedByUtorid: u.Utorid,
	}

	if err := s.repo.CreateRedemption(ctx, &t); err != nil {
		return nil, err
	}

	resp := NewOwnResponse(&t)
	return &resp, nil
}

// ProcessRedemption applies a pending redemption exactly once
func (s *Service) ProcessRedemption(ctx context.Context, id, processorID uuid.UUID) (*Response, error) {
	t, err := s.repo.ProcessRedemption(ctx, id, processorID)
	if err != nil {
		return nil, err
	}
	resp := NewResponse(t)
	return &resp, nil
}

// CreateTransfer moves points from the caller to another user
func (s *Service) CreateTransfer(ctx context.Context, senderID uuid.UUID, req *CreateTransferRequest) (*OwnResponse, error) {
	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, ErrUserNotFound
	}
	if !sender.Verified {
		return nil, ErrUserNotVerified
	}

	recipient, err := s.users.GetByUtorid(ctx, req.Recipient)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, ErrUserNotFound
	}
	if recipient.ID == sender.ID {
		return nil, ErrSelfTransfer
	}

	t := Transaction{
		ID:              uuid.New(),
		Type:            TypeTransfer,
		Amount:          req.Amount,
		Remark:          req.Remark,
		UserID:          recipient.ID,
		CreatedBy:       sender.ID,
		RelatedID:       uuid.NullUUID{UUID: sender.ID, Valid: true},
		CreatedAt:       time.Now(),
		Utorid:          recipient.Utorid,
		CreatedByUtorid: sender.Utorid,
	}

	if err := s.repo.CreateTransfer(ctx, &t, sender.ID); err != nil {
		return nil, err
	}

	resp := NewOwnResponse(&t)
	return &resp, nil
}

// AwardEvent credits event points to one guest or all guests, bounded by
// the event's remaining budget. Called from the event handlers.
func (s *Service) AwardEvent(ctx context.Context, eventID, creatorID uuid.UUID, amount int, remark string, target *uuid.UUID) ([]Response, error) {
	created, err := s.repo.CreateEventAward(ctx, eventID, creatorID, amount, remark, target)
	if err != nil {
		return nil, err
	}

	resp := make([]Response, 0, len(created))
	for i := range created {
		resp = append(resp, NewResponse(&created[i]))
	}
	return resp, nil
}

// SetSuspicious toggles a purchase's suspicious flag, releasing or
// withdrawing its points.
func (s *Service) SetSuspicious(ctx context.Context, id uuid.UUID, suspicious bool) (*Response, error) {
	t, err := s.repo.SetSuspicious(ctx, id, suspicious)
	if err != nil {
		return nil, err
	}
	resp := NewResponse(t)
	return &resp, nil
}

// Get returns a single transaction
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Response, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound
	}
	resp := NewResponse(t)
	return &resp, nil
}

// List returns transactions matching the filters (staff view)
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Response, int, error) {
	filters.Owner = nil
	transactions, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	resp := make([]Response, 0, len(transactions))
	for i := range transactions {
		resp = append(resp, NewResponse(&transactions[i]))
	}
	return resp, total, nil
}

// ListOwn returns the caller's transactions, including transfers they sent
func (s *Service) ListOwn(ctx context.Context, userID uuid.UUID, filters ListFilters) ([]OwnResponse, int, error) {
	filters.Owner = &userID
	filters.Name = ""
	filters.CreatedBy = ""
	filters.Suspicious = nil

	transactions, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	resp := make([]OwnResponse, 0, len(transactions))
	for i := range transactions {
		resp = append(resp, NewOwnResponse(&transactions[i]))
	}
	return resp, total, nil
}
