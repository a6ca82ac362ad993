package transaction

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

const txColumns = `t.id, t.type, t.amount, t.spent, t.remark, t.user_id, t.created_by,
	       t.processed_by, t.related_id, t.suspicious, t.created_at,
	       u.utorid AS utorid, c.utorid AS created_by_utorid`

const txFrom = `
	FROM transactions t
	JOIN users u ON u.id = t.user_id
	JOIN users c ON c.id = t.created_by`

// Repository defines ledger data access. Every mutation that touches a
// balance runs inside one DB transaction so the ledger entry and the
// balance change commit or roll back together.
type Repository interface {
	CreatePurchase(ctx context.Context, t *Transaction, oneTimePromotionIDs []uuid.UUID) error
	CreateAdjustment(ctx context.Context, t *Transaction) error
	CreateRedemption(ctx context.Context, t *Transaction) error
	ProcessRedemption(ctx context.Context, id, processorID uuid.UUID) (*Transaction, error)
	CreateTransfer(ctx context.Context, t *Transaction, senderID uuid.UUID) error
	CreateEventAward(ctx context.Context, eventID, creatorID uuid.UUID, amount int, remark string, target *uuid.UUID) ([]Transaction, error)
	SetSuspicious(ctx context.Context, id uuid.UUID, suspicious bool) (*Transaction, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	List(ctx context.Context, filters ListFilters) ([]Transaction, int, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new transaction repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func insertTransaction(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	query := `
		INSERT INTO transactions (id, type, amount, spent, remark, user_id, created_by,
		                          processed_by, related_id, suspicious, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := tx.ExecContext(ctx, query,
		t.ID,
		t.Type,
		t.Amount,
		t.Spent,
		t.Remark,
		t.UserID,
		t.CreatedBy,
		t.ProcessedBy,
		t.RelatedID,
		t.Suspicious,
		t.CreatedAt,
	)
	return err
}

// CreatePurchase inserts the ledger entry, marks one-time promotion usage
// and credits the customer in one transaction. Withheld purchases
// (suspicious cashier) skip the credit; the amount is applied when the
// flag is cleared.
func (r *repository) CreatePurchase(ctx context.Context, t *Transaction, oneTimePromotionIDs []uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertTransaction(ctx, tx, t); err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}

	for _, pid := range t.PromotionIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_promotions (transaction_id, promotion_id) VALUES ($1, $2)`,
			t.ID, pid)
		if err != nil {
			return fmt.Errorf("link promotion: %w", err)
		}
	}

	for _, pid := range oneTimePromotionIDs {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO promotion_uses (promotion_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			pid, t.UserID)
		if err != nil {
			return fmt.Errorf("mark promotion use: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrPromotionAlreadyUsed
		}
	}

	if !t.Suspicious {
		_, err := tx.ExecContext(ctx,
			`UPDATE users SET points = points + $1, updated_at = NOW() WHERE id = $2`,
			t.Amount, t.UserID)
		if err != nil {
			return fmt.Errorf("credit points: %w", err)
		}
	}

	return tx.Commit()
}

// CreateAdjustment inserts the entry and applies the signed amount. The
// balance may not go negative.
func (r *repository) CreateAdjustment(ctx context.Context, t *Transaction) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`, t.RelatedID)
	if err != nil {
		return fmt.Errorf("check related: %w", err)
	}
	if !exists {
		return ErrRelatedNotFound
	}

	if err := insertTransaction(ctx, tx, t); err != nil {
		return fmt.Errorf("insert adjustment: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET points = points + $1, updated_at = NOW() WHERE id = $2 AND points + $1 >= 0`,
		t.Amount, t.UserID)
	if err != nil {
		return fmt.Errorf("apply adjustment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientBalance
	}

	return tx.Commit()
}

// CreateRedemption inserts an unprocessed redemption. The balance is only
// checked here; the debit happens atomically at processing time.
func (r *repository) CreateRedemption(ctx context.Context, t *Transaction) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var points int
	err = tx.GetContext(ctx, &points,
		`SELECT points FROM users WHERE id = $1 FOR UPDATE`, t.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrUserNotFound
		}
		return fmt.Errorf("lock user: %w", err)
	}
	if points < -t.Amount {
		return ErrInsufficientBalance
	}

	if err := insertTransaction(ctx, tx, t); err != nil {
		return fmt.Errorf("insert redemption: %w", err)
	}

	return tx.Commit()
}

// ProcessRedemption marks a redemption processed and debits the customer.
// The conditional update on processed_by guarantees exactly one of any
// number of concurrent attempts succeeds.
func (r *repository) ProcessRedemption(ctx context.Context, id, processorID uuid.UUID) (*Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var t Transaction
	err = tx.GetContext(ctx, &t, `
		SELECT id, type, amount, spent, remark, user_id, created_by,
		       processed_by, related_id, suspicious, created_at
		FROM transactions WHERE id = $1 FOR UPDATE
	`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock transaction: %w", err)
	}
	if t.Type != TypeRedemption {
		return nil, ErrNotRedemption
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET processed_by = $2, related_id = $2
		WHERE id = $1 AND processed_by IS NULL
	`, id, processorID)
	if err != nil {
		return nil, fmt.Errorf("mark processed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrAlreadyProcessed
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE users SET points = points + $1, updated_at = NOW() WHERE id = $2 AND points + $1 >= 0`,
		t.Amount, t.UserID)
	if err != nil {
		return nil, fmt.Errorf("debit points: %w", err)
	}
	affected, err = res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrInsufficientBalance
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// CreateTransfer debits the sender, credits the recipient and records the
// entry in one transaction. The conditional debit doubles as the balance
// guard under concurrency.
func (r *repository) CreateTransfer(ctx context.Context, t *Transaction, senderID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET points = points - $1, updated_at = NOW() WHERE id = $2 AND points >= $1`,
		t.Amount, senderID)
	if err != nil {
		return fmt.Errorf("debit sender: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientBalance
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET points = points + $1, updated_at = NOW() WHERE id = $2`,
		t.Amount, t.UserID)
	if err != nil {
		return fmt.Errorf("credit recipient: %w", err)
	}

	if err := insertTransaction(ctx, tx, t); err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}

	return tx.Commit()
}

// CreateEventAward credits one guest, or every guest when target is nil,
// against the event's remaining budget. The event row is locked first so
// concurrent awards never overspend the budget.
func (r *repository) CreateEventAward(ctx context.Context, eventID, creatorID uuid.UUID, amount int, remark string, target *uuid.UUID) ([]Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var remain int
	err = tx.GetContext(ctx, &remain,
		`SELECT points_remain FROM events WHERE id = $1 FOR UPDATE`, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("lock event: %w", err)
	}

	type guestRow struct {
		UserID uuid.UUID `db:"user_id"`
		Utorid string    `db:"utorid"`
	}
	var guests []guestRow
	if target != nil {
		err = tx.SelectContext(ctx, &guests, `
			SELECT eg.user_id, u.utorid
			FROM event_guests eg JOIN users u ON u.id = eg.user_id
			WHERE eg.event_id = $1 AND eg.user_id = $2
		`, eventID, *target)
		if err != nil {
			return nil, fmt.Errorf("load guest: %w", err)
		}
		if len(guests) == 0 {
			return nil, ErrNotGuest
		}
	} else {
		err = tx.SelectContext(ctx, &guests, `
			SELECT eg.user_id, u.utorid
			FROM event_guests eg JOIN users u ON u.id = eg.user_id
			WHERE eg.event_id = $1
		`, eventID)
		if err != nil {
			return nil, fmt.Errorf("load guests: %w", err)
		}
		if len(guests) == 0 {
			return nil, ErrNotGuest
		}
	}

	need := amount * len(guests)
	res, err := tx.ExecContext(ctx, `
		UPDATE events
		SET points_awarded = points_awarded + $1, points_remain = points_remain - $1, updated_at = NOW()
		WHERE id = $2 AND points_remain >= $1
	`, need, eventID)
	if err != nil {
		return nil, fmt.Errorf("spend budget: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrInsufficientEventBudget
	}

	var creatorUtorid string
	if err := tx.GetContext(ctx, &creatorUtorid, `SELECT utorid FROM users WHERE id = $1`, creatorID); err != nil {
		return nil, fmt.Errorf("load creator: %w", err)
	}

	created := make([]Transaction, 0, len(guests))
	now := time.Now()
	for _, g := range guests {
		t := Transaction{
			ID:              uuid.New(),
			Type:            TypeEvent,
			Amount:          amount,
			Remark:          remark,
			UserID:          g.UserID,
			CreatedBy:       creatorID,
			RelatedID:       uuid.NullUUID{UUID: eventID, Valid: true},
			CreatedAt:       now,
			Utorid:          g.Utorid,
			CreatedByUtorid: creatorUtorid,
		}
		if err := insertTransaction(ctx, tx, &t); err != nil {
			return nil, fmt.Errorf("insert award: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET points = points + $1, updated_at = NOW() WHERE id = $2`,
			amount, g.UserID)
		if err != nil {
			return nil, fmt.Errorf("credit guest: %w", err)
		}
		created = append(created, t)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

// SetSuspicious toggles the suspicious flag on a purchase. Marking
// withdraws the credited amount; clearing releases a withheld one. Both
// directions apply the balance change and the flag in one transaction.
func (r *repository) SetSuspicious(ctx context.Context, id uuid.UUID, suspicious bool) (*Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var t Transaction
	err = tx.GetContext(ctx, &t, `
		SELECT id, type, amount, spent, remark, user_id, created_by,
		       processed_by, related_id, suspicious, created_at
		FROM transactions WHERE id = $1 FOR UPDATE
	`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock transaction: %w", err)
	}
	if t.Type != TypePurchase {
		return nil, ErrNotPurchase
	}

	if t.Suspicious != suspicious {
		delta := t.Amount
		if suspicious {
			delta = -delta
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET points = points + $1, updated_at = NOW() WHERE id = $2 AND points + $1 >= 0`,
			delta, t.UserID)
		if err != nil {
			return nil, fmt.Errorf("apply balance change: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, ErrInsufficientBalance
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE transactions SET suspicious = $2 WHERE id = $1`, id, suspicious)
		if err != nil {
			return nil, fmt.Errorf("set flag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByID returns a transaction with user utorids and promotion ids joined
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var t Transaction
	query := `SELECT ` + txColumns + txFrom + ` WHERE t.id = $1`
	err := r.db.GetContext(ctx, &t, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	promos, err := r.promotionIDs(ctx, []uuid.UUID{t.ID})
	if err != nil {
		return nil, err
	}
	t.PromotionIDs = promos[t.ID]
	return &t, nil
}

// List returns transactions matching the filters, newest first
func (r *repository) List(ctx context.Context, filters ListFilters) ([]Transaction, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filters.Name != "" {
		conditions = append(conditions,
			fmt.Sprintf("(u.utorid ILIKE $%d OR u.name ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filters.Name+"%")
		argPos++
	}
	if filters.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("c.utorid = $%d", argPos))
		args = append(args, filters.CreatedBy)
		argPos++
	}
	if filters.Suspicious != nil {
		conditions = append(conditions, fmt.Sprintf("t.suspicious = $%d", argPos))
		args = append(args, *filters.Suspicious)
		argPos++
	}
	if filters.Type != "" {
		conditions = append(conditions, fmt.Sprintf("t.type = $%d", argPos))
		args = append(args, filters.Type)
		argPos++
	}
	if filters.RelatedID != nil {
		conditions = append(conditions, fmt.Sprintf("t.related_id = $%d", argPos))
		args = append(args, *filters.RelatedID)
		argPos++
	}
	if filters.PromotionID != nil {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS(SELECT 1 FROM transaction_promotions tp WHERE tp.transaction_id = t.id AND tp.promotion_id = $%d)", argPos))
		args = append(args, *filters.PromotionID)
		argPos++
	}
	if filters.Amount != nil {
		op := ">="
		if filters.Operator == "lte" {
			op = "<="
		}
		conditions = append(conditions, fmt.Sprintf("t.amount %s $%d", op, argPos))
		args = append(args, *filters.Amount)
		argPos++
	}
	if filters.Owner != nil {
		conditions = append(conditions, fmt.Sprintf(
			"(t.user_id = $%d OR (t.type = 'transfer' AND t.created_by = $%d))", argPos, argPos))
		args = append(args, *filters.Owner)
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*)` + txFrom + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 10
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY t.created_at DESC LIMIT $%d OFFSET $%d`,
		txColumns, txFrom, where, argPos, argPos+1)
	args = append(args, limit, (page-1)*limit)

	var transactions []Transaction
	if err := r.db.SelectContext(ctx, &transactions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}

	if len(transactions) > 0 {
		ids := make([]uuid.UUID, len(transactions))
		for i := range transactions {
			ids[i] = transactions[i].ID
		}
		promos, err := r.promotionIDs(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range transactions {
			transactions[i].PromotionIDs = promos[transactions[i].ID]
		}
	}

	return transactions, total, nil
}

func (r *repository) promotionIDs(ctx context.Context, txIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	ids := make([]string, len(txIDs))
	for i, id := range txIDs {
		ids[i] = id.String()
	}

	var rows []struct {
		TransactionID uuid.UUID `db:"transaction_id"`
		PromotionID   uuid.UUID `db:"promotion_id"`
	}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT transaction_id, promotion_id FROM transaction_promotions WHERE transaction_id = ANY($1)`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("load transaction promotions: %w", err)
	}

	result := make(map[uuid.UUID][]uuid.UUID, len(txIDs))
	for _, row := range rows {
		result[row.TransactionID] = append(result[row.TransactionID], row.PromotionID)
	}
	return result, nil
}
