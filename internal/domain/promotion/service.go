package promotion

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Applied is a promotion that contributes to a purchase's earning
type Applied struct {
	ID      uuid.UUID
	OneTime bool
	Points  int
	Rate    float64
}

// Service handles promotion business logic
type Service struct {
	repo Repository
}

// NewService creates promotion service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create creates a promotion. The window must be valid and start in the
// future.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Response, error) {
	if !req.StartTime.Before(req.EndTime) {
		return nil, ErrInvalidWindow
	}
	if req.StartTime.Before(time.Now()) {
		return nil, ErrStartInPast
	}

	p := &Promotion{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Type:        PromotionType(req.Type),
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Points:      req.Points,
		CreatedAt:   time.Now(),
	}
	if req.MinSpending != nil {
		p.MinSpending = sql.NullFloat64{Float64: *req.MinSpending, Valid: true}
	}
	if req.Rate != nil {
		p.Rate = sql.NullFloat64{Float64: *req.Rate, Valid: true}
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	resp := NewResponse(p)
	return &resp, nil
}

// AvailableOneTime returns the one-time promotions active now and not yet
// redeemed by the user. Embedded in user views at the register.
func (s *Service) AvailableOneTime(ctx context.Context, userID uuid.UUID) ([]Promotion, error) {
	promotions, _, err := s.repo.List(ctx, ListFilters{
		Type:    string(TypeOneTime),
		ForUser: &userID,
		Limit:   100,
	})
	return promotions, err
}

// Get returns a promotion by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Response, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	resp := NewResponse(p)
	return &resp, nil
}

// List returns promotions matching the filters
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Response, int, error) {
	promotions, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	resp := make([]Response, 0, len(promotions))
	for i := range promotions {
		resp = append(resp, NewResponse(&promotions[i]))
	}
	return resp, total, nil
}

// Update updates a promotion. Nothing can change after the window ends,
// and once it starts only the description and end time remain editable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*Response, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}

	now := time.Now()
	if now.After(p.EndTime) {
		return nil, ErrAlreadyEnded
	}

	started := !now.Before(p.StartTime)
	if started {
		if req.Name != nil || req.Type != nil || req.StartTime != nil ||
			req.MinSpending != nil || req.Rate != nil || req.Points != nil {
			return nil, ErrAlreadyStarted
		}
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Type != nil {
		p.Type = PromotionType(*req.Type)
	}
	if req.StartTime != nil {
		if req.StartTime.Before(now) {
			return nil, ErrStartInPast
		}
		p.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		p.EndTime = *req.EndTime
	}
	if req.MinSpending != nil {
		p.MinSpending = sql.NullFloat64{Float64: *req.MinSpending, Valid: true}
	}
	if req.Rate != nil {
		p.Rate = sql.NullFloat64{Float64: *req.Rate, Valid: true}
	}
	if req.Points != nil {
		p.Points = *req.Points
	}

	if !p.StartTime.Before(p.EndTime) {
		return nil, ErrInvalidWindow
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	resp := NewResponse(p)
	return &resp, nil
}

// Delete removes a promotion that has not yet started
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotFound
	}
	if !time.Now().Before(p.StartTime) {
		return ErrAlreadyStarted
	}
	return s.repo.Delete(ctx, id)
}

// ResolveForPurchase returns the promotions that apply to a purchase:
// every qualifying active automatic promotion plus the explicitly
// requested ones, validated against the window, the minimum spending and
// prior one-time use.
func (s *Service) ResolveForPurchase(ctx context.Context, userID uuid.UUID, requested []uuid.UUID, spent float64) ([]Applied, error) {
	now := time.Now()
	seen := make(map[uuid.UUID]bool)
	var applied []Applied

	automatic, err := s.repo.ActiveAutomatic(ctx, now)
	if err != nil {
		return nil, err
	}
	for i := range automatic {
		p := &automatic[i]
		if !p.QualifiesFor(spent) {
			continue
		}
		seen[p.ID] = true
		applied = append(applied, newApplied(p))
	}

	if len(requested) == 0 {
		return applied, nil
	}

	promotions, err := s.repo.GetByIDs(ctx, requested)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*Promotion, len(promotions))
	for i := range promotions {
		byID[promotions[i].ID] = &promotions[i]
	}

	for _, id := range requested {
		if seen[id] {
			continue
		}
		p, ok := byID[id]
		if !ok {
			return nil, ErrNotFound
		}
		if !p.ActiveAt(now) || !p.QualifiesFor(spent) {
			return nil, ErrNotApplicable
		}
		if p.Type == TypeOneTime {
			used, err := s.repo.HasUsed(ctx, p.ID, userID)
			if err != nil {
				return nil, err
			}
			if used {
				return nil, ErrAlreadyUsed
			}
		}
		seen[id] = true
		applied = append(applied, newApplied(p))
	}

	return applied, nil
}

func newApplied(p *Promotion) Applied {
	a := Applied{
		ID:      p.ID,
		OneTime: p.Type == TypeOneTime,
		Points:  p.Points,
	}
	if p.Rate.Valid {
		a.Rate = p.Rate.Float64
	}
	return a
}
