package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/campuspoints/points-api/internal/pkg/jwt"
	"github.com/campuspoints/points-api/internal/pkg/response"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	UtoridKey contextKey = "utorid"
	RoleKey   contextKey = "role"
)

// Role names in privilege order. The rank map is the single server-side
// source of truth for the hierarchy.
const (
	RoleRegular   = "regular"
	RoleCashier   = "cashier"
	RoleManager   = "manager"
	RoleSuperuser = "superuser"
)

var roleRank = map[string]int{
	RoleRegular:   1,
	RoleCashier:   2,
	RoleManager:   3,
	RoleSuperuser: 4,
}

// RoleAtLeast reports whether role has at least the privilege of min.
// Unknown roles rank below everything.
func RoleAtLeast(role, min string) bool {
	return roleRank[role] >= roleRank[min] && roleRank[role] > 0
}

// Auth returns middleware that validates JWT
func Auth(jwtService *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := jwtService.ValidateAccessToken(parts[1])
			if err != nil {
				if err == jwt.ErrExpiredToken {
					response.Unauthorized(w, "Token expired")
				} else {
					response.Unauthorized(w, "Invalid token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UtoridKey, claims.Utorid)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// GetUtorid extracts the caller's institutional id from context
func GetUtorid(ctx context.Context) string {
	if utorid, ok := ctx.Value(UtoridKey).(string); ok {
		return utorid
	}
	return ""
}

// GetRole extracts role from context
func GetRole(ctx context.Context) string {
	if role, ok := ctx.Value(RoleKey).(string); ok {
		return role
	}
	return ""
}

// RequireRole returns middleware that rejects callers ranked below min.
func RequireRole(min string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !RoleAtLeast(GetRole(r.Context()), min) {
				response.Forbidden(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCashier returns middleware that requires cashier rank or above
func RequireCashier() func(http.Handler) http.Handler {
	return RequireRole(RoleCashier)
}

// RequireManager returns middleware that requires manager rank or above
func RequireManager() func(http.Handler) http.Handler {
	return RequireRole(RoleManager)
}

// RequireSuperuser returns middleware that requires superuser rank
func RequireSuperuser() func(http.Handler) http.Handler {
	return RequireRole(RoleSuperuser)
}
