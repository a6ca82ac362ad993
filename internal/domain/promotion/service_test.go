package promotion

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeRepo struct {
	promotions map[uuid.UUID]*Promotion
	used       map[uuid.UUID]map[uuid.UUID]bool

	deleted []uuid.UUID
}

func newFakeRepo(promotions ...*Promotion) *fakeRepo {
	f := &fakeRepo{
		promotions: make(map[uuid.UUID]*Promotion),
		used:       make(map[uuid.UUID]map[uuid.UUID]bool),
	}
	for _, p := range promotions {
		f.promotions[p.ID] = p
	}
	return f
}

func (f *fakeRepo) markUsed(promotionID, userID uuid.UUID) {
	if f.used[promotionID] == nil {
		f.used[promotionID] = make(map[uuid.UUID]bool)
	}
	f.used[promotionID][userID] = true
}

func (f *fakeRepo) Create(ctx context.Context, p *Promotion) error {
	f.promotions[p.ID] = p
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Promotion, error) {
	return f.promotions[id], nil
}

func (f *fakeRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Promotion, error) {
	var out []Promotion
	for _, id := range ids {
		if p, ok := f.promotions[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeRepo) List(ctx context.Context, filters ListFilters) ([]Promotion, int, error) {
	var out []Promotion
	for _, p := range f.promotions {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Update(ctx context.Context, p *Promotion) error {
	f.promotions[p.ID] = p
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.promotions[id]; !ok {
		return ErrNotFound
	}
	delete(f.promotions, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepo) ActiveAutomatic(ctx context.Context, at time.Time) ([]Promotion, error) {
	var out []Promotion
	for _, p := range f.promotions {
		if p.Type == TypeAutomatic && p.ActiveAt(at) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeRepo) HasUsed(ctx context.Context, promotionID, userID uuid.UUID) (bool, error) {
	return f.used[promotionID][userID], nil
}

func activePromotion(promoType PromotionType) *Promotion {
	return &Promotion{
		ID:        uuid.New(),
		Name:      "Test Promotion",
		Type:      promoType,
		StartTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now().Add(time.Hour),
	}
}

func TestCreateRejectsPastStart(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Create(context.Background(), &CreateRequest{
		Name:      "Back to School",
		Type:      string(TypeAutomatic),
		StartTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now().Add(time.Hour),
	})
	if !errors.Is(err, ErrStartInPast) {
		t.Fatalf("err = %v, want ErrStartInPast", err)
	}
}

func TestCreateRejectsInvertedWindow(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Create(context.Background(), &CreateRequest{
		Name:      "Back to School",
		Type:      string(TypeAutomatic),
		StartTime: time.Now().Add(2 * time.Hour),
		EndTime:   time.Now().Add(time.Hour),
	})
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("err = %v, want ErrInvalidWindow", err)
	}
}

func TestUpdateAfterStartLocksFields(t *testing.T) {
	p := activePromotion(TypeAutomatic)
	svc := NewService(newFakeRepo(p))

	rate := 0.02
	_, err := svc.Update(context.Background(), p.ID, &UpdateRequest{Rate: &rate})
	if !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("rate update after start: err = %v, want ErrAlreadyStarted", err)
	}

	// Description and end time stay editable while the window is open.
	desc := "Extended for reading week"
	endTime := time.Now().Add(48 * time.Hour)
	resp, err := svc.Update(context.Background(), p.ID, &UpdateRequest{
		Description: &desc,
		EndTime:     &endTime,
	})
	if err != nil {
		t.Fatalf("description update after start: %v", err)
	}
	if resp.Description != desc {
		t.Errorf("description = %q, want %q", resp.Description, desc)
	}
}

func TestUpdateAfterEnd(t *testing.T) {
	p := activePromotion(TypeAutomatic)
	p.StartTime = time.Now().Add(-2 * time.Hour)
	p.EndTime = time.Now().Add(-time.Hour)
	svc := NewService(newFakeRepo(p))

	desc := "too late"
	_, err := svc.Update(context.Background(), p.ID, &UpdateRequest{Description: &desc})
	if !errors.Is(err, ErrAlreadyEnded) {
		t.Fatalf("err = %v, want ErrAlreadyEnded", err)
	}
}

func TestDeleteAfterStart(t *testing.T) {
	started := activePromotion(TypeAutomatic)
	pending := activePromotion(TypeAutomatic)
	pending.StartTime = time.Now().Add(time.Hour)
	pending.EndTime = time.Now().Add(2 * time.Hour)
	repo := newFakeRepo(started, pending)
	svc := NewService(repo)

	if err := svc.Delete(context.Background(), started.ID); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("delete started promotion: err = %v, want ErrAlreadyStarted", err)
	}
	if err := svc.Delete(context.Background(), pending.ID); err != nil {
		t.Fatalf("delete pending promotion: %v", err)
	}
}

func TestResolveAppliesQualifyingAutomatic(t *testing.T) {
	qualifying := activePromotion(TypeAutomatic)
	qualifying.Rate = sql.NullFloat64{Float64: 0.01, Valid: true}
	underspend := activePromotion(TypeAutomatic)
	underspend.MinSpending = sql.NullFloat64{Float64: 50, Valid: true}
	expired := activePromotion(TypeAutomatic)
	expired.StartTime = time.Now().Add(-2 * time.Hour)
	expired.EndTime = time.Now().Add(-time.Hour)
	svc := NewService(newFakeRepo(qualifying, underspend, expired))

	applied, err := svc.ResolveForPurchase(context.Background(), uuid.New(), nil, 20.00)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("applied %d promotions, want 1", len(applied))
	}
	if applied[0].ID != qualifying.ID {
		t.Errorf("applied %s, want %s", applied[0].ID, qualifying.ID)
	}
	if applied[0].Rate != 0.01 {
		t.Errorf("rate = %v, want 0.01", applied[0].Rate)
	}
}

func TestResolveDeduplicatesRequestedAutomatic(t *testing.T) {
	automatic := activePromotion(TypeAutomatic)
	automatic.Points = 10
	svc := NewService(newFakeRepo(automatic))

	// Asking for an automatic promotion that already applied must not
	// double its bonus.
	applied, err := svc.ResolveForPurchase(context.Background(), uuid.New(), []uuid.UUID{automatic.ID}, 20.00)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("applied %d promotions, want 1", len(applied))
	}
}

func TestResolveUnknownPromotion(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.ResolveForPurchase(context.Background(), uuid.New(), []uuid.UUID{uuid.New()}, 20.00)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveUnderMinimumSpending(t *testing.T) {
	p := activePromotion(TypeOneTime)
	p.MinSpending = sql.NullFloat64{Float64: 50, Valid: true}
	svc := NewService(newFakeRepo(p))

	_, err := svc.ResolveForPurchase(context.Background(), uuid.New(), []uuid.UUID{p.ID}, 20.00)
	if !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("err = %v, want ErrNotApplicable", err)
	}
}

func TestResolveUsedOneTime(t *testing.T) {
	p := activePromotion(TypeOneTime)
	userID := uuid.New()
	repo := newFakeRepo(p)
	repo.markUsed(p.ID, userID)
	svc := NewService(repo)

	_, err := svc.ResolveForPurchase(context.Background(), userID, []uuid.UUID{p.ID}, 20.00)
	if !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("err = %v, want ErrAlreadyUsed", err)
	}

	// Another user can still redeem it.
	applied, err := svc.ResolveForPurchase(context.Background(), uuid.New(), []uuid.UUID{p.ID}, 20.00)
	if err != nil {
		t.Fatalf("resolve for fresh user: %v", err)
	}
	if len(applied) != 1 || !applied[0].OneTime {
		t.Fatalf("applied = %+v, want the one-time promotion", applied)
	}
}
