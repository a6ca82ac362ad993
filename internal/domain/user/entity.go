package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Role represents a user's role (matches user_role enum).
// Roles are totally ordered by privilege: regular < cashier < manager < superuser.
type Role string

const (
	RoleRegular   Role = "regular"
	RoleCashier   Role = "cashier"
	RoleManager   Role = "manager"
	RoleSuperuser Role = "superuser"
)

var roleRank = map[Role]int{
	RoleRegular:   1,
	RoleCashier:   2,
	RoleManager:   3,
	RoleSuperuser: 4,
}

// Rank returns the role's position in the privilege order. Unknown roles
// rank below regular.
func (r Role) Rank() int {
	return roleRank[r]
}

// AtLeast reports whether r has at least the privilege of other.
func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank() && r.Rank() > 0
}

// IsValidRole checks if a role string is one of the four platform roles
func IsValidRole(role string) bool {
	return roleRank[Role(role)] > 0
}

// User represents a platform account (matches users table)
type User struct {
	ID           uuid.UUID `db:"id"`
	Utorid       string    `db:"utorid"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         Role      `db:"role"`
	Points       int       `db:"points"`
	Verified     bool      `db:"verified"`
	Suspicious   bool      `db:"suspicious"`

	AvatarURL sql.NullString `db:"avatar_url"`
	Birthday  sql.NullTime   `db:"birthday"`

	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
	LastLoginAt sql.NullTime `db:"last_login_at"`
}

// IsCashier returns true for cashier rank or above
func (u *User) IsCashier() bool {
	return u.Role.AtLeast(RoleCashier)
}

// IsManager returns true for manager rank or above
func (u *User) IsManager() bool {
	return u.Role.AtLeast(RoleManager)
}

// Activated reports whether the account has completed activation
// (set a password after being registered by a cashier).
func (u *User) Activated() bool {
	return u.LastLoginAt.Valid
}
