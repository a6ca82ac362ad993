package event

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/campuspoints/points-api/internal/domain/transaction"
	"github.com/campuspoints/points-api/internal/domain/user"
)

// Awarder hands event point awards to the ledger. Satisfied by the
// transaction service.
type Awarder interface {
	AwardEvent(ctx context.Context, eventID, creatorID uuid.UUID, amount int, remark string, target *uuid.UUID) ([]transaction.Response, error)
}

// Service handles event business logic
type Service struct {
	repo    Repository
	users   user.Repository
	awarder Awarder
}

// NewService creates event service
func NewService(repo Repository, users user.Repository, awarder Awarder) *Service {
	return &Service{repo: repo, users: users, awarder: awarder}
}

// Create creates an unpublished event with its full points budget remaining
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Response, error) {
	if !req.StartTime.Before(req.EndTime) {
		return nil, ErrInvalidWindow
	}

	e := &Event{
		ID:           uuid.New(),
		Name:         req.Name,
		Description:  req.Description,
		Location:     req.Location,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		TotalPoints:  req.Points,
		PointsRemain: req.Points,
		CreatedAt:    time.Now(),
	}
	if req.Capacity != nil {
		e.Capacity = sql.NullInt64{Int64: int64(*req.Capacity), Valid: true}
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	resp := NewStaffResponse(e)
	return &resp, nil
}

// canManage reports whether the viewer is a manager or organizes the event
func (s *Service) canManage(ctx context.Context, eventID, viewerID uuid.UUID, viewerRole user.Role) (bool, error) {
	if viewerRole.AtLeast(user.RoleManager) {
		return true, nil
	}
	return s.repo.IsOrganizer(ctx, eventID, viewerID)
}

// Get returns an event shaped by the viewer. Unpublished events are
// invisible to everyone but managers and organizers; they also get the
// points budget and guest list.
func (s *Service) Get(ctx context.Context, id, viewerID uuid.UUID, viewerRole user.Role) (*Response, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}

	manage, err := s.canManage(ctx, id, viewerID, viewerRole)
	if err != nil {
		return nil, err
	}
	if !e.Published && !manage {
		return nil, ErrNotFound
	}

	var resp Response
	if manage {
		resp = NewStaffResponse(e)
		guests, err := s.repo.ListGuests(ctx, id)
		if err != nil {
			return nil, err
		}
		resp.Guests = guests
	} else {
		resp = NewResponse(e)
	}

	organizers, err := s.repo.ListOrganizers(ctx, id)
	if err != nil {
		return nil, err
	}
	resp.Organizers = organizers

	return &resp, nil
}

// List returns events matching the filters. Staff views carry the budget
// fields; regular users only ever see published events.
func (s *Service) List(ctx context.Context, filters ListFilters, staff bool) ([]Response, int, error) {
	if !staff {
		filters.PublishedOnly = true
		filters.Published = nil
	}

	events, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	resp := make([]Response, 0, len(events))
	for i := range events {
		if staff {
			resp = append(resp, NewStaffResponse(&events[i]))
		} else {
			resp = append(resp, NewResponse(&events[i]))
		}
	}
	return resp, total, nil
}

// Update applies event changes. Only managers and organizers may update;
// publishing is one-way and manager-only.
func (s *Service) Update(ctx context.Context, id, viewerID uuid.UUID, viewerRole user.Role, req *UpdateRequest) (*Response, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}

	manage, err := s.canManage(ctx, id, viewerID, viewerRole)
	if err != nil {
		return nil, err
	}
	if !manage {
		return nil, ErrNotAuthorized
	}

	if req.Published != nil {
		if !*req.Published {
			if e.Published {
				return nil, ErrPublishOneWay
			}
		} else if !viewerRole.AtLeast(user.RoleManager) {
			return nil, ErrNotAuthorized
		} else {
			e.Published = true
		}
	}

	if req.Name != nil {
		e.Name = *req.Name
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Location != nil {
		e.Location = *req.Location
	}
	if req.StartTime != nil {
		e.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		e.EndTime = *req.EndTime
	}
	if !e.StartTime.Before(e.EndTime) {
		return nil, ErrInvalidWindow
	}

	if req.Capacity != nil {
		if *req.Capacity < e.GuestCount {
			return nil, ErrCapacityTooSmall
		}
		e.Capacity = sql.NullInt64{Int64: int64(*req.Capacity), Valid: true}
	}
	if req.Points != nil {
		if !viewerRole.AtLeast(user.RoleManager) {
			return nil, ErrNotAuthorized
		}
		if *req.Points < e.PointsAwarded {
			return nil, ErrPointsTooSmall
		}
		e.TotalPoints = *req.Points
		e.PointsRemain = *req.Points - e.PointsAwarded
	}

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}

	resp := NewStaffResponse(e)
	return &resp, nil
}

// Delete removes an unpublished event
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e == nil {
		return ErrNotFound
	}
	if e.Published {
		return ErrDeletePublished
	}
	return s.repo.Delete(ctx, id)
}

// AddOrganizer adds an organizer by utorid. Guests cannot organize the
// event they attend.
func (s *Service) AddOrganizer(ctx context.Context, eventID uuid.UUID, utorid string) ([]Member, error) {
	e, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}
	if e.Ended() {
		return nil, ErrEnded
	}

	u, err := s.users.GetByUtorid(ctx, utorid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	isGuest, err := s.repo.IsGuest(ctx, eventID, u.ID)
	if err != nil {
		return nil, err
	}
	if isGuest {
		return nil, ErrOrganizerIsGuest
	}

	if err := s.repo.AddOrganizer(ctx, eventID, u.ID); err != nil {
		return nil, err
	}
	return s.repo.ListOrganizers(ctx, eventID)
}

// RemoveOrganizer removes an organizer by user id
func (s *Service) RemoveOrganizer(ctx context.Context, eventID, userID uuid.UUID) error {
	e, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if e == nil {
		return ErrNotFound
	}
	return s.repo.RemoveOrganizer(ctx, eventID, userID)
}

// AddGuest adds a guest by utorid on behalf of a manager or organizer
func (s *Service) AddGuest(ctx context.Context, eventID, callerID uuid.UUID, callerRole user.Role, utorid string) ([]Member, error) {
	e, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}
	if e.Ended() {
		return nil, ErrEnded
	}

	manage, err := s.canManage(ctx, eventID, callerID, callerRole)
	if err != nil {
		return nil, err
	}
	if !manage {
		return nil, ErrNotAuthorized
	}

	u, err := s.users.GetByUtorid(ctx, utorid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	if err := s.addGuestChecked(ctx, eventID, u.ID); err != nil {
		return nil, err
	}
	return s.repo.ListGuests(ctx, eventID)
}

// RSVP adds the caller as a guest of a published event
func (s *Service) RSVP(ctx context.Context, eventID, userID uuid.UUID) error {
	e, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if e == nil || !e.Published {
		return ErrNotFound
	}
	if e.Ended() {
		return ErrEnded
	}
	return s.addGuestChecked(ctx, eventID, userID)
}

func (s *Service) addGuestChecked(ctx context.Context, eventID, userID uuid.UUID) error {
	isOrganizer, err := s.repo.IsOrganizer(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if isOrganizer {
		return ErrOrganizerIsGuest
	}
	return s.repo.AddGuest(ctx, eventID, userID)
}

// CancelRSVP removes the caller from a not-yet-ended event, freeing the
// slot immediately.
func (s *Service) CancelRSVP(ctx context.Context, eventID, userID uuid.UUID) error {
	e, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if e == nil {
		return ErrNotFound
	}
	if e.Ended() {
		return ErrEnded
	}
	return s.repo.RemoveGuest(ctx, eventID, userID)
}

// RemoveGuest removes a guest on behalf of a manager
func (s *Service) RemoveGuest(ctx context.Context, eventID, userID uuid.UUID) error {
	e, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if e == nil {
		return ErrNotFound
	}
	return s.repo.RemoveGuest(ctx, eventID, userID)
}

// Award credits event points to one guest or all guests through the
// ledger, bounded by the remaining budget.
func (s *Service) Award(ctx context.Context, eventID, callerID uuid.UUID, callerRole user.Role, req *AwardRequest) ([]transaction.Response, error) {
	e, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}

	manage, err := s.canManage(ctx, eventID, callerID, callerRole)
	if err != nil {
		return nil, err
	}
	if !manage {
		return nil, ErrNotAuthorized
	}

	var target *uuid.UUID
	if req.Utorid != nil {
		u, err := s.users.GetByUtorid(ctx, *req.Utorid)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, ErrUserNotFound
		}
		target = &u.ID
	}

	return s.awarder.AwardEvent(ctx, eventID, callerID, req.Amount, req.Remark, target)
}
