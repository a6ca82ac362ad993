package transaction

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Type enumerates ledger entry kinds
type Type string

const (
	TypePurchase   Type = "purchase"
	TypeAdjustment Type = "adjustment"
	TypeRedemption Type = "redemption"
	TypeTransfer   Type = "transfer"
	TypeEvent      Type = "event"
)

// Transaction is a single immutable ledger entry. Amount is signed: positive
// for credits, negative for redemptions. Spent is set on purchases only.
// RelatedID points at the adjusted transaction, the transfer peer or the
// awarding event, depending on type.
type Transaction struct {
	ID          uuid.UUID       `db:"id"`
	Type        Type            `db:"type"`
	Amount      int             `db:"amount"`
	Spent       sql.NullFloat64 `db:"spent"`
	Remark      string          `db:"remark"`
	UserID      uuid.UUID       `db:"user_id"`
	CreatedBy   uuid.UUID       `db:"created_by"`
	ProcessedBy uuid.NullUUID   `db:"processed_by"`
	RelatedID   uuid.NullUUID   `db:"related_id"`
	Suspicious  bool            `db:"suspicious"`
	CreatedAt   time.Time       `db:"created_at"`

	// joined from users
	Utorid          string      `db:"utorid"`
	CreatedByUtorid string      `db:"created_by_utorid"`
	PromotionIDs    []uuid.UUID `db:"-"`
}

// Processed reports whether a redemption has been handled by a cashier
func (t *Transaction) Processed() bool {
	return t.ProcessedBy.Valid
}
