package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campuspoints/points-api/internal/domain/user"
	"github.com/campuspoints/points-api/internal/pkg/jwt"
	"github.com/campuspoints/points-api/internal/pkg/password"
)

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

func (f *fakeUserRepo) Create(ctx context.Context, u *user.User) error {
	f.users[u.ID] = u
	return nil
}

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
	f.users[id].PasswordHash = passwordHash
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

func newTestService(users ...*user.User) *Service {
	jwtService := jwt.NewService("test-secret", time.Minute, time.Hour)
	return NewService(newFakeUserRepo(users...), NewMemoryTokenStore(), jwtService, time.Hour)
}

func activatedUser(t *testing.T, utorid, pass string) *user.User {
	t.Helper()
	hash, err := password.Hash(pass)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &user.User{
		ID:           uuid.New(),
		Utorid:       utorid,
		Role:         user.RoleRegular,
		PasswordHash: hash,
	}
}

func TestLogin(t *testing.T) {
	u := activatedUser(t, "johndoe1", "GoodPass1!")
	svc := newTestService(u)

	resp, err := svc.Login(context.Background(), &LoginRequest{Utorid: "johndoe1", Password: "GoodPass1!"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected both tokens in response")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	u := activatedUser(t, "johndoe1", "GoodPass1!")
	svc := newTestService(u)

	_, err := svc.Login(context.Background(), &LoginRequest{Utorid: "johndoe1", Password: "WrongPass1!"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newTestService()

	_, err := svc.Login(context.Background(), &LoginRequest{Utorid: "nobody01", Password: "GoodPass1!"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginUnactivatedAccount(t *testing.T) {
	u := &user.User{ID: uuid.New(), Utorid: "johndoe1", Role: user.RoleRegular}
	svc := newTestService(u)

	_, err := svc.Login(context.Background(), &LoginRequest{Utorid: "johndoe1", Password: "GoodPass1!"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	u := activatedUser(t, "johndoe1", "GoodPass1!")
	svc := newTestService(u)

	first, err := svc.Login(context.Background(), &LoginRequest{Utorid: "johndoe1", Password: "GoodPass1!"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("refresh must issue a new token")
	}

	// The presented token is single use.
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("replayed refresh: err = %v, want ErrInvalidToken", err)
	}

	if _, err := svc.Refresh(context.Background(), second.RefreshToken); err != nil {
		t.Fatalf("refresh with rotated token: %v", err)
	}
}

func TestLogoutInvalidatesRefresh(t *testing.T) {
	u := activatedUser(t, "johndoe1", "GoodPass1!")
	svc := newTestService(u)

	resp, err := svc.Login(context.Background(), &LoginRequest{Utorid: "johndoe1", Password: "GoodPass1!"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(context.Background(), resp.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), resp.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh after logout: err = %v, want ErrInvalidToken", err)
	}
}

func TestResetFlow(t *testing.T) {
	u := activatedUser(t, "johndoe1", "GoodPass1!")
	svc := newTestService(u)

	reset, err := svc.RequestReset(context.Background(), "johndoe1")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}

	err = svc.ResetPassword(context.Background(), reset.ResetToken, &ResetPasswordRequest{
		Utorid:   "johndoe1",
		Password: "NewerPass1!",
	})
	if err != nil {
		t.Fatalf("reset password: %v", err)
	}

	if _, err := svc.Login(context.Background(), &LoginRequest{Utorid: "johndoe1", Password: "NewerPass1!"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := svc.Login(context.Background(), &LoginRequest{Utorid: "johndoe1", Password: "GoodPass1!"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("login with old password: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestResetTokenIsSingleUse(t *testing.T) {
	u := activatedUser(t, "johndoe1", "GoodPass1!")
	svc := newTestService(u)

	reset, err := svc.RequestReset(context.Background(), "johndoe1")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}

	req := &ResetPasswordRequest{Utorid: "johndoe1", Password: "NewerPass1!"}
	if err := svc.ResetPassword(context.Background(), reset.ResetToken, req); err != nil {
		t.Fatalf("first reset: %v", err)
	}
	if err := svc.ResetPassword(context.Background(), reset.ResetToken, req); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("replayed reset: err = %v, want ErrInvalidToken", err)
	}
}

func TestResetUtoridMismatchConsumesToken(t *testing.T) {
	owner := activatedUser(t, "johndoe1", "GoodPass1!")
	other := activatedUser(t, "janedoe1", "GoodPass1!")
	svc := newTestService(owner, other)

	reset, err := svc.RequestReset(context.Background(), "johndoe1")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}

	err = svc.ResetPassword(context.Background(), reset.ResetToken, &ResetPasswordRequest{
		Utorid:   "janedoe1",
		Password: "NewerPass1!",
	})
	if !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("err = %v, want ErrTokenMismatch", err)
	}

	// A mismatched redemption burns the token.
	err = svc.ResetPassword(context.Background(), reset.ResetToken, &ResetPasswordRequest{
		Utorid:   "johndoe1",
		Password: "NewerPass1!",
	})
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("retry after mismatch: err = %v, want ErrInvalidToken", err)
	}
}

func TestResetRejectsWeakPassword(t *testing.T) {
	u := activatedUser(t, "johndoe1", "GoodPass1!")
	svc := newTestService(u)

	reset, err := svc.RequestReset(context.Background(), "johndoe1")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}

	err = svc.ResetPassword(context.Background(), reset.ResetToken, &ResetPasswordRequest{
		Utorid:   "johndoe1",
		Password: "weak",
	})
	if !errors.Is(err, password.ErrWeakPassword) {
		t.Fatalf("err = %v, want ErrWeakPassword", err)
	}
}

func TestRequestResetUnknownUser(t *testing.T) {
	svc := newTestService()

	_, err := svc.RequestReset(context.Background(), "nobody01")
	if !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("err = %v, want user.ErrNotFound", err)
	}
}

func TestActivationTokenSetsInitialPassword(t *testing.T) {
	u := &user.User{ID: uuid.New(), Utorid: "johndoe1", Role: user.RoleRegular}
	svc := newTestService(u)

	token, _, err := svc.IssueActivationToken(context.Background(), "johndoe1")
	if err != nil {
		t.Fatalf("issue activation token: %v", err)
	}

	err = svc.ResetPassword(context.Background(), token, &ResetPasswordRequest{
		Utorid:   "johndoe1",
		Password: "FirstPass1!",
	})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}

	if _, err := svc.Login(context.Background(), &LoginRequest{Utorid: "johndoe1", Password: "FirstPass1!"}); err != nil {
		t.Fatalf("login after activation: %v", err)
	}
}
