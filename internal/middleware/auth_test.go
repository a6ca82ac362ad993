package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campuspoints/points-api/internal/pkg/jwt"
)

func TestRoleAtLeast(t *testing.T) {
	cases := []struct {
		role, min string
		want      bool
	}{
		{RoleRegular, RoleRegular, true},
		{RoleRegular, RoleCashier, false},
		{RoleCashier, RoleCashier, true},
		{RoleCashier, RoleManager, false},
		{RoleManager, RoleCashier, true},
		{RoleSuperuser, RoleManager, true},
		{RoleSuperuser, RoleSuperuser, true},
		{"", RoleRegular, false},
		{"bogus", RoleRegular, false},
	}

	for _, tc := range cases {
		if got := RoleAtLeast(tc.role, tc.min); got != tc.want {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tc.role, tc.min, got, tc.want)
		}
	}
}

func authedRequest(role string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(r.Context(), UserIDKey, uuid.New())
	ctx = context.WithValue(ctx, UtoridKey, "johndoe1")
	ctx = context.WithValue(ctx, RoleKey, role)
	return r.WithContext(ctx)
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	handler := RequireManager()(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(RoleCashier))
	if rec.Code != http.StatusForbidden {
		t.Errorf("cashier against manager gate: status = %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(RoleSuperuser))
	if rec.Code != http.StatusNoContent {
		t.Errorf("superuser against manager gate: status = %d, want 204", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	svc := jwt.NewService("test-secret", 15*time.Minute, time.Hour)
	userID := uuid.New()
	token, _, err := svc.GenerateAccessToken(userID, "johndoe1", RoleCashier)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var gotID uuid.UUID
	var gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetUserID(r.Context())
		gotRole = GetRole(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Auth(svc)(next)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotID != userID {
		t.Errorf("context user id = %v, want %v", gotID, userID)
	}
	if gotRole != RoleCashier {
		t.Errorf("context role = %q, want cashier", gotRole)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing header: status = %d, want 401", rec.Code)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}
}
