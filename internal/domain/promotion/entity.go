package promotion

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// PromotionType enumerates promotion kinds
type PromotionType string

const (
	TypeAutomatic PromotionType = "automatic"
	TypeOneTime   PromotionType = "one_time"
)

// Promotion boosts purchase earnings inside its time window. Automatic
// promotions apply to every qualifying purchase; one-time promotions apply
// once per user.
type Promotion struct {
	ID          uuid.UUID       `db:"id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Type        PromotionType   `db:"type"`
	StartTime   time.Time       `db:"start_time"`
	EndTime     time.Time       `db:"end_time"`
	MinSpending sql.NullFloat64 `db:"min_spending"`
	Rate        sql.NullFloat64 `db:"rate"`
	Points      int             `db:"points"`
	CreatedAt   time.Time       `db:"created_at"`
}

// ActiveAt reports whether the promotion window contains t
func (p *Promotion) ActiveAt(t time.Time) bool {
	return !t.Before(p.StartTime) && t.Before(p.EndTime)
}

// QualifiesFor reports whether a purchase of the given amount meets the
// promotion's minimum spending.
func (p *Promotion) QualifiesFor(spent float64) bool {
	return !p.MinSpending.Valid || spent >= p.MinSpending.Float64
}
