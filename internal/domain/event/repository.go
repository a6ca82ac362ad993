package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const eventColumns = `e.id, e.name, e.description, e.location, e.start_time, e.end_time,
	       e.capacity, e.total_points, e.points_awarded, e.points_remain, e.published,
	       e.created_at, e.updated_at,
	       (SELECT COUNT(*) FROM event_guests eg WHERE eg.event_id = e.id) AS guest_count`

// Repository defines event data access interface
type Repository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	List(ctx context.Context, filters ListFilters) ([]Event, int, error)
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	IsOrganizer(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	AddOrganizer(ctx context.Context, eventID, userID uuid.UUID) error
	RemoveOrganizer(ctx context.Context, eventID, userID uuid.UUID) error
	ListOrganizers(ctx context.Context, eventID uuid.UUID) ([]Member, error)
	IsGuest(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	AddGuest(ctx context.Context, eventID, userID uuid.UUID) error
	RemoveGuest(ctx context.Context, eventID, userID uuid.UUID) error
	ListGuests(ctx context.Context, eventID uuid.UUID) ([]Member, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new event repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Create creates an event
func (r *repository) Create(ctx context.Context, e *Event) error {
	query := `
		INSERT INTO events (id, name, description, location, start_time, end_time,
		                    capacity, total_points, points_awarded, points_remain, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.Name,
		e.Description,
		e.Location,
		e.StartTime,
		e.EndTime,
		e.Capacity,
		e.TotalPoints,
		e.PointsAwarded,
		e.PointsRemain,
		e.Published,
	)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// GetByID returns an event with its guest count
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	var e Event
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = $1`
	err := r.db.GetContext(ctx, &e, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// List returns events matching the filters
func (r *repository) List(ctx context.Context, filters ListFilters) ([]Event, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filters.Name != "" {
		conditions = append(conditions, fmt.Sprintf("e.name ILIKE $%d", argPos))
		args = append(args, "%"+filters.Name+"%")
		argPos++
	}
	if filters.Location != "" {
		conditions = append(conditions, fmt.Sprintf("e.location ILIKE $%d", argPos))
		args = append(args, "%"+filters.Location+"%")
		argPos++
	}
	if filters.Started != nil {
		if *filters.Started {
			conditions = append(conditions, "e.start_time <= NOW()")
		} else {
			conditions = append(conditions, "e.start_time > NOW()")
		}
	}
	if filters.Ended != nil {
		if *filters.Ended {
			conditions = append(conditions, "e.end_time <= NOW()")
		} else {
			conditions = append(conditions, "e.end_time > NOW()")
		}
	}
	if filters.Published != nil {
		conditions = append(conditions, fmt.Sprintf("e.published = $%d", argPos))
		args = append(args, *filters.Published)
		argPos++
	}
	if filters.PublishedOnly {
		conditions = append(conditions, "e.published = TRUE")
	}
	if !filters.ShowFull {
		conditions = append(conditions,
			"(e.capacity IS NULL OR (SELECT COUNT(*) FROM event_guests eg WHERE eg.event_id = e.id) < e.capacity)")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM events e`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 10
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	query := fmt.Sprintf(`SELECT %s FROM events e%s ORDER BY e.start_time LIMIT $%d OFFSET $%d`,
		eventColumns, where, argPos, argPos+1)
	args = append(args, limit, (page-1)*limit)

	var events []Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	return events, total, nil
}

// Update updates an event row. Points fields must keep the budget
// invariant, which the table CHECK also enforces.
func (r *repository) Update(ctx context.Context, e *Event) error {
	query := `
		UPDATE events
		SET name = $2, description = $3, location = $4, start_time = $5, end_time = $6,
		    capacity = $7, total_points = $8, points_remain = $9, published = $10, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.Name,
		e.Description,
		e.Location,
		e.StartTime,
		e.EndTime,
		e.Capacity,
		e.TotalPoints,
		e.PointsRemain,
		e.Published,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// Delete removes an event
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
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

// IsOrganizer reports whether a user organizes an event
func (r *repository) IsOrganizer(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		`SELECT EXISTS(SELECT 1 FROM event_organizers WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID)
	if err != nil {
		return false, fmt.Errorf("check organizer: %w", err)
	}
	return ok, nil
}

// AddOrganizer adds an organizer
func (r *repository) AddOrganizer(ctx context.Context, eventID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_organizers (event_id, user_id) VALUES ($1, $2)`, eventID, userID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyOrganizer
		}
		return fmt.Errorf("add organizer: %w", err)
	}
	return nil
}

// RemoveOrganizer removes an organizer
func (r *repository) RemoveOrganizer(ctx context.Context, eventID, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM event_organizers WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return fmt.Errorf("remove organizer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotOrganizer
	}
	return nil
}

// ListOrganizers returns an event's organizers
func (r *repository) ListOrganizers(ctx context.Context, eventID uuid.UUID) ([]Member, error) {
	var members []Member
	query := `
		SELECT u.id AS user_id, u.utorid, u.name
		FROM event_organizers eo JOIN users u ON u.id = eo.user_id
		WHERE eo.event_id = $1
		ORDER BY u.utorid
	`
	if err := r.db.SelectContext(ctx, &members, query, eventID); err != nil {
		return nil, fmt.Errorf("list organizers: %w", err)
	}
	return members, nil
}

// IsGuest reports whether a user is a guest of an event
func (r *repository) IsGuest(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		`SELECT EXISTS(SELECT 1 FROM event_guests WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID)
	if err != nil {
		return false, fmt.Errorf("check guest: %w", err)
	}
	return ok, nil
}

// AddGuest adds a guest under the capacity guard. The event row is locked
// so concurrent RSVPs never exceed capacity.
func (r *repository) AddGuest(ctx context.Context, eventID, userID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var capacity sql.NullInt64
	err = tx.GetContext(ctx, &capacity,
		`SELECT capacity FROM events WHERE id = $1 FOR UPDATE`, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("lock event: %w", err)
	}

	if capacity.Valid {
		var count int64
		err = tx.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM event_guests WHERE event_id = $1`, eventID)
		if err != nil {
			return fmt.Errorf("count guests: %w", err)
		}
		if count >= capacity.Int64 {
			return ErrFull
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO event_guests (event_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		eventID, userID)
	if err != nil {
		return fmt.Errorf("add guest: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlreadyGuest
	}

	return tx.Commit()
}

// RemoveGuest removes a guest, freeing the slot immediately
func (r *repository) RemoveGuest(ctx context.Context, eventID, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM event_guests WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return fmt.Errorf("remove guest: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotGuest
	}
	return nil
}

// ListGuests returns an event's guests
func (r *repository) ListGuests(ctx context.Context, eventID uuid.UUID) ([]Member, error) {
	var members []Member
	query := `
		SELECT u.id AS user_id, u.utorid, u.name
		FROM event_guests eg JOIN users u ON u.id = eg.user_id
		WHERE eg.event_id = $1
		ORDER BY eg.created_at
	`
	if err := r.db.SelectContext(ctx, &members, query, eventID); err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	return members, nil
}
