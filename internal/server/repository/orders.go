package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"restaurant-sync/internal/common/db"
	"restaurant-sync/internal/domain"
)

type OrderRepositoryInterface interface {
	Create(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context, f Filter) ([]domain.Order, error)
	AdvanceStatus(ctx context.Context, id string, to domain.Status, changedBy string) (domain.Order, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

// Filter narrows List to the role-scoped slice a dashboard polls for.
type Filter struct {
	Statuses []domain.Status
	StaffID  string
	From     time.Time
	To       time.Time
}

type OrderRepository struct {
	db *db.Conn
}

func NewOrderRepository(conn *db.Conn) *OrderRepository {
	return &OrderRepository{db: conn}
}

func (r *OrderRepository) Create(ctx context.Context, o domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, number, table_number, staff_id, note, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, o.ID, o.Number, o.TableNumber, o.StaffID, o.Note, o.Status, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
		`, o.ID, it.ProductID, it.Name, it.Quantity, it.UnitPrice)
		if err != nil {
			return fmt.Errorf("insert item %s: %w", it.Name, err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, 'order-service', $3)
	`, o.ID, o.Status, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert status log: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *OrderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	orders, err := r.fetch(ctx, `WHERE o.id = $1`, []any{id})
	if err != nil {
		return domain.Order{}, err
	}
	if len(orders) == 0 {
		return domain.Order{}, domain.ErrNotFound
	}
	return orders[0], nil
}

func (r *OrderRepository) List(ctx context.Context, f Filter) ([]domain.Order, error) {
	where := ""
	args := []any{}
	and := func(clause string, arg any) {
		args = append(args, arg)
		if where == "" {
			where = "WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(clause, len(args))
	}

	if len(f.Statuses) > 0 {
		ss := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			ss[i] = string(s)
		}
		and("o.status = ANY($%d)", ss)
	}
	if f.StaffID != "" {
		and("o.staff_id = $%d", f.StaffID)
	}
	if !f.From.IsZero() {
		and("o.created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		and("o.created_at < $%d", f.To)
	}

	return r.fetch(ctx, where, args)
}

// AdvanceStatus moves an order forward transactionally. The row is locked so
// two concurrent dashboards cannot both apply the same step; a non-forward
// target reports ErrStale and changes nothing.
func (r *OrderRepository) AdvanceStatus(ctx context.Context, id string, to domain.Status, changedBy string) (domain.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var cur domain.Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&cur)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("lock order: %w", err)
	}
	if !to.Forward(cur) {
		return domain.Order{}, fmt.Errorf("order %s is already %s: %w", id, cur, domain.ErrStale)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
	`, id, to); err != nil {
		return domain.Order{}, fmt.Errorf("update status: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, now())
	`, id, to, changedBy); err != nil {
		return domain.Order{}, fmt.Errorf("insert status log: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, fmt.Errorf("commit: %w", err)
	}

	return r.Get(ctx, id)
}

func (r *OrderRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM orders WHERE created_at >= $1`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

// fetch loads orders plus their items and per-status entry times in three
// queries.
func (r *OrderRepository) fetch(ctx context.Context, where string, args []any) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT o.id, o.number, o.table_number, COALESCE(o.staff_id, ''), o.note, o.status, o.created_at
		FROM orders o `+where+` ORDER BY o.created_at, o.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	index := make(map[string]int)
	var ids []string
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Number, &o.TableNumber, &o.StaffID, &o.Note, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.EnteredAt = make(map[domain.Status]time.Time)
		index[o.ID] = len(orders)
		ids = append(ids, o.ID)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.Query(ctx, `
		SELECT order_id, COALESCE(product_id::text, ''), name, quantity, unit_price
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var orderID string
		var it domain.LineItem
		if err := itemRows.Scan(&orderID, &it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	logRows, err := r.db.Query(ctx, `
		SELECT order_id, status, min(changed_at)
		FROM order_status_log WHERE order_id = ANY($1)
		GROUP BY order_id, status`, ids)
	if err != nil {
		return nil, fmt.Errorf("select status log: %w", err)
	}
	defer logRows.Close()
	for logRows.Next() {
		var orderID string
		var st domain.Status
		var at time.Time
		if err := logRows.Scan(&orderID, &st, &at); err != nil {
			return nil, fmt.Errorf("scan status log: %w", err)
		}
		orders[index[orderID]].EnteredAt[st] = at
	}
	return orders, logRows.Err()
}
