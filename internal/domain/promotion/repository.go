package promotion

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const promotionColumns = `id, name, description, type, start_time, end_time, min_spending, rate, points, created_at`

// Repository defines promotion data access interface
type Repository interface {
	Create(ctx context.Context, p *Promotion) error
	GetByID(ctx context.Context, id uuid.UUID) (*Promotion, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Promotion, error)
	List(ctx context.Context, filters ListFilters) ([]Promotion, int, error)
	Update(ctx context.Context, p *Promotion) error
	Delete(ctx context.Context, id uuid.UUID) error
	ActiveAutomatic(ctx context.Context, at time.Time) ([]Promotion, error)
	HasUsed(ctx context.Context, promotionID, userID uuid.UUID) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new promotion repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Create creates a promotion
func (r *repository) Create(ctx context.Context, p *Promotion) error {
	query := `
		INSERT INTO promotions (id, name, description, type, start_time, end_time, min_spending, rate, points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Type,
		p.StartTime,
		p.EndTime,
		p.MinSpending,
		p.Rate,
		p.Points,
	)
	if err != nil {
		return fmt.Errorf("create promotion: %w", err)
	}
	return nil
}

// GetByID returns a promotion by id
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Promotion, error) {
	var p Promotion
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`
	err := r.db.GetContext(ctx, &p, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get promotion: %w", err)
	}
	return &p, nil
}

// GetByIDs returns the promotions matching the given ids
func (r *repository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Promotion, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	var promotions []Promotion
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = ANY($1)`
	if err := r.db.SelectContext(ctx, &promotions, query, pq.Array(strIDs)); err != nil {
		return nil, fmt.Errorf("get promotions: %w", err)
	}
	return promotions, nil
}

// List returns promotions matching the filters
func (r *repository) List(ctx context.Context, filters ListFilters) ([]Promotion, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filters.Name != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argPos))
		args = append(args, "%"+filters.Name+"%")
		argPos++
	}
	if filters.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argPos))
		args = append(args, filters.Type)
		argPos++
	}
	if filters.Started != nil {
		if *filters.Started {
			conditions = append(conditions, "start_time <= NOW()")
		} else {
			conditions = append(conditions, "start_time > NOW()")
		}
	}
	if filters.Ended != nil {
		if *filters.Ended {
			conditions = append(conditions, "end_time <= NOW()")
		} else {
			conditions = append(conditions, "end_time > NOW()")
		}
	}
	if filters.ForUser != nil {
		conditions = append(conditions, "start_time <= NOW() AND end_time > NOW()")
		conditions = append(conditions, fmt.Sprintf(
			"NOT EXISTS(SELECT 1 FROM promotion_uses pu WHERE pu.promotion_id = promotions.id AND pu.user_id = $%d)", argPos))
		args = append(args, *filters.ForUser)
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM promotions`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count promotions: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 10
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	query := fmt.Sprintf(`SELECT %s FROM promotions%s ORDER BY start_time DESC LIMIT $%d OFFSET $%d`,
		promotionColumns, where, argPos, argPos+1)
	args = append(args, limit, (page-1)*limit)

	var promotions []Promotion
	if err := r.db.SelectContext(ctx, &promotions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list promotions: %w", err)
	}
	return promotions, total, nil
}

// Update updates a promotion row
func (r *repository) Update(ctx context.Context, p *Promotion) error {
	query := `
		UPDATE promotions
		SET name = $2, description = $3, type = $4, start_time = $5, end_time = $6,
		    min_spending = $7, rate = $8, points = $9
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Type,
		p.StartTime,
		p.EndTime,
		p.MinSpending,
		p.Rate,
		p.Points,
	)
	if err != nil {
		return fmt.Errorf("update promotion: %w", err)
	}
	return nil
}

// Delete removes a promotion
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveAutomatic returns every automatic promotion whose window contains at
func (r *repository) ActiveAutomatic(ctx context.Context, at time.Time) ([]Promotion, error) {
	var promotions []Promotion
	query := `SELECT ` + promotionColumns + `
		FROM promotions
		WHERE type = 'automatic' AND start_time <= $1 AND end_time > $1`
	if err := r.db.SelectContext(ctx, &promotions, query, at); err != nil {
		return nil, fmt.Errorf("list active automatic promotions: %w", err)
	}
	return promotions, nil
}

// HasUsed reports whether a user has already used a one-time promotion
func (r *repository) HasUsed(ctx context.Context, promotionID, userID uuid.UUID) (bool, error) {
	var used bool
	err := r.db.GetContext(ctx, &used,
		`SELECT EXISTS(SELECT 1 FROM promotion_uses WHERE promotion_id = $1 AND user_id = $2)`,
		promotionID, userID)
	if err != nil {
		return false, fmt.Errorf("check promotion use: %w", err)
	}
	return used, nil
}
