package event

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Event is a campus event with a points budget. The budget invariant
// points_awarded + points_remain = total_points holds at all times.
type Event struct {
	ID            uuid.UUID     `db:"id"`
	Name          string        `db:"name"`
	Description   string        `db:"description"`
	Location      string        `db:"location"`
	StartTime     time.Time     `db:"start_time"`
	EndTime       time.Time     `db:"end_time"`
	Capacity      sql.NullInt64 `db:"capacity"`
	TotalPoints   int           `db:"total_points"`
	PointsAwarded int           `db:"points_awarded"`
	PointsRemain  int           `db:"points_remain"`
	Published     bool          `db:"published"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`

	// joined
	GuestCount int `db:"guest_count"`
}

// Member is an organizer or guest entry
type Member struct {
	UserID uuid.UUID `db:"user_id" json:"user_id"`
	Utorid string    `db:"utorid" json:"utorid"`
	Name   string    `db:"name" json:"name"`
}

// Ended reports whether the event has finished
func (e *Event) Ended() bool {
	return time.Now().After(e.EndTime)
}

// Full reports whether the event has reached capacity
func (e *Event) Full() bool {
	return e.Capacity.Valid && int64(e.GuestCount) >= e.Capacity.Int64
}
