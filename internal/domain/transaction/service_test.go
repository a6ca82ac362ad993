package transaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campuspoints/points-api/internal/domain/user"
)

type fakeRepo struct {
	purchases   []*Transaction
	oneTimeIDs  []uuid.UUID
	adjustments []*Transaction
	redemptions []*Transaction
	transfers   []*Transaction
	senderID    uuid.UUID
}

func (f *fakeRepo) CreatePurchase(ctx context.Context, t *Transaction, oneTimePromotionIDs []uuid.UUID) error {
	f.purchases = append(f.purchases, t)
	f.oneTimeIDs = oneTimePromotionIDs
	return nil
}

func (f *fakeRepo) CreateAdjustment(ctx context.Context, t *Transaction) error {
	f.adjustments = append(f.adjustments, t)
	return nil
}

func (f *fakeRepo) CreateRedemption(ctx context.Context, t *Transaction) error {
	f.redemptions = append(f.redemptions, t)
	return nil
}

func (f *fakeRepo) ProcessRedemption(ctx context.Context, id, processorID uuid.UUID) (*Transaction, error) {
	return nil, ErrNotFound
}

func (f *fakeRepo) CreateTransfer(ctx context.Context, t *Transaction, senderID uuid.UUID) error {
	f.transfers = append(f.transfers, t)
	f.senderID = senderID
	return nil
}

func (f *fakeRepo) CreateEventAward(ctx context.Context, eventID, creatorID uuid.UUID, amount int, remark string, target *uuid.UUID) ([]Transaction, error) {
	return nil, ErrEventNotFound
}

func (f *fakeRepo) SetSuspicious(ctx context.Context, id uuid.UUID, suspicious bool) (*Transaction, error) {
	return nil, ErrNotFound
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return nil, nil
}

func (f *fakeRepo) List(ctx context.Context, filters ListFilters) ([]Transaction, int, error) {
	return nil, 0, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*user.User
}

func newFakeUserRepo(users ...*user.User) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[uuid.UUID]*user.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(ctx context.Context, u *user.User) error { return nil }

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) GetByUtorid(ctx context.Context, utorid string) (*user.User, error) {
	for _, u := range f.users {
		if u.Utorid == utorid {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) List(ctx context.Context, filters user.ListFilters) ([]user.User, int, error) {
	return nil, 0, nil
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, name, email *string, birthday *time.Time) error {
	return nil
}

func (f *fakeUserRepo) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error {
	return nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return nil
}

func (f *fakeUserRepo) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	return nil
}

func (f *fakeUserRepo) UpdateVerified(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeUserRepo) UpdateSuspicious(ctx context.Context, id uuid.UUID, suspicious bool) error {
	return nil
}

func (f *fakeUserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role user.Role, clearSuspicious bool) error {
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID) error { return nil }

type fakePromotions struct {
	applied []AppliedPromotion
	err     error
}

func (f *fakePromotions) Resolve(ctx context.Context, userID uuid.UUID, requested []uuid.UUID, spent float64) ([]AppliedPromotion, error) {
	return f.applied, f.err
}

func floatPtr(v float64) *float64 { return &v }

func TestBasePoints(t *testing.T) {
	tests := []struct {
		spent float64
		want  int
	}{
		{0.25, 1},
		{1.00, 4},
		{19.99, 80},
		{0.10, 0},
		{0.13, 1},
	}
	for _, tt := range tests {
		if got := basePoints(tt.spent); got != tt.want {
			t.Errorf("basePoints(%.2f) = %d, want %d", tt.spent, got, tt.want)
		}
	}
}

func TestCreatePurchase(t *testing.T) {
	customer := &user.User{ID: uuid.New(), Utorid: "johndoe1", Verified: true}
	cashier := &user.User{ID: uuid.New(), Utorid: "cashier1", Role: user.RoleCashier}
	repo := &fakeRepo{}
	svc := NewService(repo, newFakeUserRepo(customer, cashier), &fakePromotions{})

	resp, err := svc.CreatePurchase(context.Background(), cashier.ID, &CreateRequest{
		Utorid: "johndoe1",
		Type:   string(TypePurchase),
		Spent:  floatPtr(19.99),
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	if resp.Amount != 80 {
		t.Errorf("earned = %d, want 80", resp.Amount)
	}
	if resp.Suspicious {
		t.Error("purchase by a clean cashier must not be suspicious")
	}
	if len(repo.purchases) != 1 {
		t.Fatalf("recorded %d purchases, want 1", len(repo.purchases))
	}
	if repo.purchases[0].UserID != customer.ID {
		t.Error("purchase credited to the wrong user")
	}
}

func TestCreatePurchaseWithPromotions(t *testing.T) {
	customer := &user.User{ID: uuid.New(), Utorid: "johndoe1", Verified: true}
	cashier := &user.User{ID: uuid.New(), Utorid: "cashier1", Role: user.RoleCashier}
	oneTime := AppliedPromotion{ID: uuid.New(), OneTime: true, Points: 50}
	automatic := AppliedPromotion{ID: uuid.New(), Rate: 0.01}
	repo := &fakeRepo{}
	svc := NewService(repo, newFakeUserRepo(customer, cashier), &fakePromotions{
		applied: []AppliedPromotion{oneTime, automatic},
	})

	resp, err := svc.CreatePurchase(context.Background(), cashier.ID, &CreateRequest{
		Utorid:       "johndoe1",
		Type:         string(TypePurchase),
		Spent:        floatPtr(20.00),
		PromotionIDs: []uuid.UUID{oneTime.ID},
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	// 20.00/0.25 = 80 base, +50 flat, +round(80*0.01) = 1 from the rate.
	if resp.Amount != 131 {
		t.Errorf("earned = %d, want 131", resp.Amount)
	}
	if len(repo.oneTimeIDs) != 1 || repo.oneTimeIDs[0] != oneTime.ID {
		t.Errorf("one-time promotion ids = %v, want [%s]", repo.oneTimeIDs, oneTime.ID)
	}
	if len(resp.PromotionIDs) != 2 {
		t.Errorf("response promotion ids = %v, want both promotions", resp.PromotionIDs)
	}
}

func TestCreatePurchaseSuspiciousCashier(t *testing.T) {
	customer := &user.User{ID: uuid.New(), Utorid: "johndoe1", Verified: true}
	cashier := &user.User{ID: uuid.New(), Utorid: "cashier1", Role: user.RoleCashier, Suspicious: true}
	repo := &fakeRepo{}
	svc := NewService(repo, newFakeUserRepo(customer, cashier), &fakePromotions{})

	resp, err := svc.CreatePurchase(context.Background(), cashier.ID, &CreateRequest{
		Utorid: "johndoe1",
		Type:   string(TypePurchase),
		Spent:  floatPtr(10.00),
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	if !resp.Suspicious {
		t.Error("purchase by a suspicious cashier must be flagged")
	}
	if !repo.purchases[0].Suspicious {
		t.Error("suspicious flag must reach the ledger row")
	}
}

func TestCreatePurchaseUnknownCustomer(t *testing.T) {
	cashier := &user.User{ID: uuid.New(), Utorid: "cashier1", Role: user.RoleCashier}
	svc := NewService(&fakeRepo{}, newFakeUserRepo(cashier), &fakePromotions{})

	_, err := svc.CreatePurchase(context.Background(), cashier.ID, &CreateRequest{
		Utorid: "nobody01",
		Type:   string(TypePurchase),
		Spent:  floatPtr(10.00),
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestCreatePurchasePromotionRejection(t *testing.T) {
	customer := &user.User{ID: uuid.New(), Utorid: "johndoe1", Verified: true}
	cashier := &user.User{ID: uuid.New(), Utorid: "cashier1", Role: user.RoleCashier}
	repo := &fakeRepo{}
	svc := NewService(repo, newFakeUserRepo(customer, cashier), &fakePromotions{
		err: ErrPromotionAlreadyUsed,
	})

	_, err := svc.CreatePurchase(context.Background(), cashier.ID, &CreateRequest{
		Utorid: "johndoe1",
		Type:   string(TypePurchase),
		Spent:  floatPtr(10.00),
	})
	if !errors.Is(err, ErrPromotionAlreadyUsed) {
		t.Fatalf("err = %v, want ErrPromotionAlreadyUsed", err)
	}
	if len(repo.purchases) != 0 {
		t.Error("rejected purchase must not be recorded")
	}
}

func TestCreateAdjustment(t *testing.T) {
	customer := &user.User{ID: uuid.New(), Utorid: "johndoe1"}
	manager := &user.User{ID: uuid.New(), Utorid: "manager1", Role: user.RoleManager}
	repo := &fakeRepo{}
	svc := NewService(repo, newFakeUserRepo(customer, manager), &fakePromotions{})

	related := uuid.New()
	amount := -40
	resp, err := svc.CreateAdjustment(context.Background(), manager.ID, &CreateRequest{
		Utorid:    "johndoe1",
		Type:      string(TypeAdjustment),
		Amount:    &amount,
		RelatedID: &related,
	})
	if err != nil {
		t.Fatalf("create adjustment: %v", err)
	}
	if resp.Amount != -40 {
		t.Errorf("amount = %d, want -40", resp.Amount)
	}
	if resp.RelatedID == nil || *resp.RelatedID != related {
		t.Errorf("related id = %v, want %s", resp.RelatedID, related)
	}
}

func TestCreateRedemption(t *testing.T) {
	customer := &user.User{ID: uuid.New(), Utorid: "johndoe1", Verified: true, Points: 500}
	repo := &fakeRepo{}
	svc := NewService(repo, newFakeUserRepo(customer), &fakePromotions{})

	resp, err := svc.CreateRedemption(context.Background(), customer.ID, &CreateRedemptionRequest{
		Amount: 200,
	})
	if err != nil {
		t.Fatalf("create redemption: %v", err)
	}
	// Redemptions are stored as a negative ledger amount.
	if resp.Amount != -200 {
		t.Errorf("amount = %d, want -200", resp.Amount)
	}
	if repo.redemptions[0].Processed() {
		t.Error("fresh redemption must be unprocessed")
	}
}

func TestCreateRedemptionUnverified(t *testing.T) {
	customer := &user.User{ID: uuid.New(), Utorid: "johndoe1", Points: 500}
	svc := NewService(&fakeRepo{}, newFakeUserRepo(customer), &fakePromotions{})

	_, err := svc.CreateRedemption(context.Background(), customer.ID, &CreateRedemptionRequest{Amount: 200})
	if !errors.Is(err, ErrUserNotVerified) {
		t.Fatalf("err = %v, want ErrUserNotVerified", err)
	}
}

func TestCreateTransfer(t *testing.T) {
	sender := &user.User{ID: uuid.New(), Utorid: "johndoe1", Verified: true, Points: 500}
	recipient := &user.User{ID: uuid.New(), Utorid: "janedoe1"}
	repo := &fakeRepo{}
	svc := NewService(repo, newFakeUserRepo(sender, recipient), &fakePromotions{})

	resp, err := svc.CreateTransfer(context.Background(), sender.ID, &CreateTransferRequest{
		Recipient: "janedoe1",
		Amount:    100,
	})
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}
	if resp.Amount != 100 {
		t.Errorf("amount = %d, want 100", resp.Amount)
	}
	if repo.senderID != sender.ID {
		t.Error("transfer debited from the wrong user")
	}
	if repo.transfers[0].UserID != recipient.ID {
		t.Error("transfer credited to the wrong user")
	}
	if !repo.transfers[0].RelatedID.Valid || repo.transfers[0].RelatedID.UUID != sender.ID {
		t.Error("transfer must record the sender as the related user")
	}
}

func TestCreateTransferToSelf(t *testing.T) {
	sender := &user.User{ID: uuid.New(), Utorid: "johndoe1", Verified: true, Points: 500}
	svc := NewService(&fakeRepo{}, newFakeUserRepo(sender), &fakePromotions{})

	_, err := svc.CreateTransfer(context.Background(), sender.ID, &CreateTransferRequest{
		Recipient: "johndoe1",
		Amount:    100,
	})
	if !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("err = %v, want ErrSelfTransfer", err)
	}
}

func TestCreateTransferUnverifiedSender(t *testing.T) {
	sender := &user.User{ID: uuid.New(), Utorid: "johndoe1", Points: 500}
	recipient := &user.User{ID: uuid.New(), Utorid: "janedoe1"}
	svc := NewService(&fakeRepo{}, newFakeUserRepo(sender, recipient), &fakePromotions{})

	_, err := svc.CreateTransfer(context.Background(), sender.ID, &CreateTransferRequest{
		Recipient: "janedoe1",
		Amount:    100,
	})
	if !errors.Is(err, ErrUserNotVerified) {
		t.Fatalf("err = %v, want ErrUserNotVerified", err)
	}
}

func TestCreateTransferUnknownRecipient(t *testing.T) {
	sender := &user.User{ID: uuid.New(), Utorid: "johndoe1", Verified: true, Points: 500}
	svc := NewService(&fakeRepo{}, newFakeUserRepo(sender), &fakePromotions{})

	_, err := svc.CreateTransfer(context.Background(), sender.ID, &CreateTransferRequest{
		Recipient: "nobody01",
		Amount:    100,
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}
