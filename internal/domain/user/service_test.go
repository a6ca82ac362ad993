package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeRepo struct {
	users map[uuid.UUID]*User

	lastRoleUpdate    *Role
	clearedSuspicious bool
}

func newFakeRepo(users ...*User) *fakeRepo {
	f := &fakeRepo{users: make(map[uuid.UUID]*User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeRepo) Create(ctx context.Context, u *User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return f.users[id], nil
}

func (f *fakeRepo) GetByUtorid(ctx context.Context, utorid string) (*User, error) {
	for _, u := range f.users {
		if u.Utorid == utorid {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) List(ctx context.Context, filters ListFilters) ([]User, int, error) {
	var out []User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (f *fakeRepo) UpdateProfile(ctx context.Context, id uuid.UUID, name, email *string, birthday *time.Time) error {
	u := f.users[id]
	if name != nil {
		u.Name = *name
	}
	if email != nil {
		u.Email = *email
	}
	return nil
}

func (f *fakeRepo) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error {
	return nil
}

func (f *fakeRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	f.users[id].PasswordHash = passwordHash
	return nil
}

func (f *fakeRepo) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	f.users[id].Email = email
	return nil
}

func (f *fakeRepo) UpdateVerified(ctx context.Context, id uuid.UUID) error {
	f.users[id].Verified = true
	return nil
}

func (f *fakeRepo) UpdateSuspicious(ctx context.Context, id uuid.UUID, suspicious bool) error {
	f.users[id].Suspicious = suspicious
	return nil
}

func (f *fakeRepo) UpdateRole(ctx context.Context, id uuid.UUID, role Role, clearSuspicious bool) error {
	f.users[id].Role = role
	f.lastRoleUpdate = &role
	f.clearedSuspicious = clearSuspicious
	if clearSuspicious {
		f.users[id].Suspicious = false
	}
	return nil
}

func (f *fakeRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID) error { return nil }

type fakeActivation struct {
	issued string
}

func (f *fakeActivation) Issue(ctx context.Context, utorid string) (string, time.Time, error) {
	f.issued = utorid
	return "activation-token", time.Now().Add(time.Hour), nil
}

func TestRegister(t *testing.T) {
	repo := newFakeRepo()
	activation := &fakeActivation{}
	svc := NewService(repo, activation, nil, nil, nil)

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		Utorid: "johndoe1",
		Name:   "John Doe",
		Email:  "john.doe@mail.utoronto.ca",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Role != "regular" {
		t.Errorf("role = %q, want regular", resp.User.Role)
	}
	if resp.User.Points != 0 {
		t.Errorf("points = %d, want 0", resp.User.Points)
	}
	if resp.ActivationToken != "activation-token" {
		t.Errorf("activation token = %q", resp.ActivationToken)
	}
	if activation.issued != "johndoe1" {
		t.Errorf("activation issued for %q, want johndoe1", activation.issued)
	}
}

func TestRegisterDuplicateUtorid(t *testing.T) {
	existing := &User{ID: uuid.New(), Utorid: "johndoe1"}
	svc := NewService(newFakeRepo(existing), &fakeActivation{}, nil, nil, nil)

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Utorid: "johndoe1",
		Name:   "John Doe",
		Email:  "john.doe@mail.utoronto.ca",
	})
	if !errors.Is(err, ErrUtoridTaken) {
		t.Fatalf("err = %v, want ErrUtoridTaken", err)
	}
}

func TestGetViewDependsOnRank(t *testing.T) {
	target := &User{ID: uuid.New(), Utorid: "janedoe1", Name: "Jane", Email: "jane@mail.utoronto.ca"}
	svc := NewService(newFakeRepo(target), nil, nil, nil, nil)

	got, err := svc.Get(context.Background(), target.ID, RoleCashier)
	if err != nil {
		t.Fatalf("get as cashier: %v", err)
	}
	if _, ok := got.(*LimitedResponse); !ok {
		t.Errorf("cashier view = %T, want *LimitedResponse", got)
	}

	got, err = svc.Get(context.Background(), target.ID, RoleManager)
	if err != nil {
		t.Fatalf("get as manager: %v", err)
	}
	if _, ok := got.(*Response); !ok {
		t.Errorf("manager view = %T, want *Response", got)
	}
}

func TestAdminUpdateVerifiedIsOneWay(t *testing.T) {
	target := &User{ID: uuid.New(), Utorid: "janedoe1", Verified: true}
	svc := NewService(newFakeRepo(target), nil, nil, nil, nil)

	unverify := false
	_, err := svc.AdminUpdate(context.Background(), RoleManager, target.ID, &AdminUpdateRequest{
		Verified: &unverify,
	})
	if !errors.Is(err, ErrVerifiedIsOneWay) {
		t.Fatalf("err = %v, want ErrVerifiedIsOneWay", err)
	}
	if !target.Verified {
		t.Error("verified flag must not change on a rejected update")
	}
}

func TestAdminUpdateRoleAssignment(t *testing.T) {
	target := &User{ID: uuid.New(), Utorid: "janedoe1", Role: RoleRegular}
	repo := newFakeRepo(target)
	svc := NewService(repo, nil, nil, nil, nil)

	manager := "manager"
	_, err := svc.AdminUpdate(context.Background(), RoleManager, target.ID, &AdminUpdateRequest{
		Role: &manager,
	})
	if !errors.Is(err, ErrRoleNotAssignable) {
		t.Fatalf("manager assigning manager: err = %v, want ErrRoleNotAssignable", err)
	}

	_, err = svc.AdminUpdate(context.Background(), RoleSuperuser, target.ID, &AdminUpdateRequest{
		Role: &manager,
	})
	if err != nil {
		t.Fatalf("superuser assigning manager: %v", err)
	}
	if target.Role != RoleManager {
		t.Errorf("role = %q, want manager", target.Role)
	}

	bogus := "admin"
	_, err = svc.AdminUpdate(context.Background(), RoleSuperuser, target.ID, &AdminUpdateRequest{
		Role: &bogus,
	})
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("bogus role: err = %v, want ErrInvalidRole", err)
	}
}

func TestPromotionToCashierClearsSuspicious(t *testing.T) {
	target := &User{ID: uuid.New(), Utorid: "janedoe1", Role: RoleRegular, Suspicious: true}
	repo := newFakeRepo(target)
	svc := NewService(repo, nil, nil, nil, nil)

	cashier := "cashier"
	_, err := svc.AdminUpdate(context.Background(), RoleManager, target.ID, &AdminUpdateRequest{
		Role: &cashier,
	})
	if err != nil {
		t.Fatalf("promote to cashier: %v", err)
	}
	if !repo.clearedSuspicious {
		t.Error("promotion to cashier should clear the suspicious flag")
	}
	if target.Suspicious {
		t.Error("suspicious flag still set after promotion")
	}
}

func TestChangePasswordWrongOld(t *testing.T) {
	target := &User{ID: uuid.New(), Utorid: "janedoe1", PasswordHash: "$2a$12$invalidhashvalue"}
	svc := NewService(newFakeRepo(target), nil, nil, nil, nil)

	err := svc.ChangePassword(context.Background(), target.ID, &ChangePasswordRequest{
		Old: "not-the-password",
		New: "NewPass1!",
	})
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("err = %v, want ErrWrongPassword", err)
	}
}
