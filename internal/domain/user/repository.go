package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const userColumns = `id, utorid, name, email, password_hash, role, points, verified, suspicious,
	       avatar_url, birthday, created_at, updated_at, last_login_at`

// Repository defines user data access interface
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUtorid(ctx context.Context, utorid string) (*User, error)
	List(ctx context.Context, filters ListFilters) ([]User, int, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, email *string, birthday *time.Time) error
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateEmail(ctx context.Context, id uuid.UUID, email string) error
	UpdateVerified(ctx context.Context, id uuid.UUID) error
	UpdateSuspicious(ctx context.Context, id uuid.UUID, suspicious bool) error
	UpdateRole(ctx context.Context, id uuid.UUID, role Role, clearSuspicious bool) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new user repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Create creates a new user
func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, utorid, name, email, password_hash, role, points, verified, suspicious)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Utorid,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Points,
		user.Verified,
		user.Suspicious,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "email") {
				return ErrEmailTaken
			}
			return ErrUtoridTaken
		}
		return fmt.Errorf("user repository create: %w", err)
	}

	return nil
}

// GetByID returns user by ID
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

// GetByUtorid returns user by institutional id
func (r *repository) GetByUtorid(ctx context.Context, utorid string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE utorid = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, utorid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

// List returns users matching the filters plus the total match count
func (r *repository) List(ctx context.Context, filters ListFilters) ([]User, int, error) {
	where := " WHERE 1=1"
	args := make([]interface{}, 0, 6)
	idx := 1

	if filters.Name != "" {
		where += fmt.Sprintf(" AND (utorid ILIKE $%d OR name ILIKE $%d)", idx, idx)
		args = append(args, "%"+filters.Name+"%")
		idx++
	}
	if filters.Role != "" {
		where += fmt.Sprintf(" AND role = $%d", idx)
		args = append(args, filters.Role)
		idx++
	}
	if filters.Verified != nil {
		where += fmt.Sprintf(" AND verified = $%d", idx)
		args = append(args, *filters.Verified)
		idx++
	}
	if filters.Activated != nil {
		if *filters.Activated {
			where += " AND last_login_at IS NOT NULL"
		} else {
			where += " AND last_login_at IS NULL"
		}
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("user repository count: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 10
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	query := `SELECT ` + userColumns + ` FROM users` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, (page-1)*limit)

	users := make([]User, 0)
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("user repository list: %w", err)
	}

	return users, total, nil
}

// UpdateProfile updates the self-editable profile fields
func (r *repository) UpdateProfile(ctx context.Context, id uuid.UUID, name, email *string, birthday *time.Time) error {
	query := `
		UPDATE users
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    birthday = COALESCE($4, birthday),
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, name, email, birthday)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("user repository update profile: %w", err)
	}
	return nil
}

// UpdateAvatar sets the avatar URL
func (r *repository) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error {
	query := `UPDATE users SET avatar_url = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, avatarURL)
	return err
}

// UpdatePassword updates user password hash
func (r *repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, passwordHash)
	return err
}

// UpdateEmail updates the email address
func (r *repository) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	query := `UPDATE users SET email = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, email)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// UpdateVerified marks the user verified. The transition is one-way.
func (r *repository) UpdateVerified(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET verified = TRUE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// UpdateSuspicious sets the suspicious flag
func (r *repository) UpdateSuspicious(ctx context.Context, id uuid.UUID, suspicious bool) error {
	query := `UPDATE users SET suspicious = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, suspicious)
	return err
}

// UpdateRole sets the role; promotion to cashier clears the suspicious flag
func (r *repository) UpdateRole(ctx context.Context, id uuid.UUID, role Role, clearSuspicious bool) error {
	query := `UPDATE users SET role = $2, suspicious = CASE WHEN $3 THEN FALSE ELSE suspicious END, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, role, clearSuspicious)
	return err
}

// UpdateLastLogin updates last login timestamp
func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET last_login_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
