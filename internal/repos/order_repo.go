package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"bakery/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// NewOrder is the cart snapshot handed to Place.
type NewOrder struct {
	ID        string
	UserID    string
	CartID    string
	Lines     []domain.CartLine
	Total     decimal.Decimal
	CreatedAt time.Time
}

const orderColumns = `id, user_id, total_price, created_at, paid, status, COALESCE(delivery_date,'') AS delivery_date`

// Place writes the order, its items and empties the cart in one transaction.
// A line whose product no longer exists aborts everything with ErrNotFound.
func (r *OrderRepo) Place(ctx context.Context, in NewOrder) (domain.Order, []domain.OrderItem, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Order{}, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	items := make([]domain.OrderItem, 0, len(in.Lines))
	for _, l := range in.Lines {
		var name string
		if err := tx.GetContext(ctx, &name, `SELECT name FROM products WHERE id = ?`, l.ProductID); err != nil {
			return domain.Order{}, nil, notFound(err, "product "+l.ProductID)
		}
		items = append(items, domain.OrderItem{
			OrderID: in.ID, ProductID: l.ProductID, ProductName: name,
			Quantity: l.Quantity, UnitPrice: l.Price,
		})
	}

	o := domain.Order{
		ID:           in.ID,
		UserID:       in.UserID,
		TotalPrice:   in.Total,
		CreatedAt:    in.CreatedAt.UTC().Format(domain.TimeLayout),
		Paid:         true,
		Status:       domain.StatusProcessing,
		DeliveryDate: domain.DefaultDeliveryDate(in.CreatedAt),
	}
	if _, err := tx.ExecContext(ctx, `
	  INSERT INTO orders(id, user_id, total_price, created_at, paid, status, delivery_date)
	  VALUES(?,?,?,?,?,?,?)
	`, o.ID, o.UserID, o.TotalPrice, o.CreatedAt, o.Paid, o.Status, o.DeliveryDate); err != nil {
		return domain.Order{}, nil, fmt.Errorf("insert order: %w", err)
	}
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, `
		  INSERT INTO order_items(order_id, product_id, quantity, unit_price)
		  VALUES(?,?,?,?)
		`, it.OrderID, it.ProductID, it.Quantity, it.UnitPrice); err != nil {
			return domain.Order{}, nil, fmt.Errorf("insert order item %s: %w", it.ProductID, err)
		}
	}
	if err := clearCartTx(ctx, tx, in.CartID); err != nil {
		return domain.Order{}, nil, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Order{}, nil, err
	}
	return o, items, nil
}

// GetOwned loads an order and its items. Orders owned by someone else are
// reported as not found.
func (r *OrderRepo) GetOwned(ctx context.Context, orderID, userID string) (domain.Order, []domain.OrderItem, error) {
	var o domain.Order
	if err := r.db.GetContext(ctx, &o, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = ? AND user_id = ?
	`, orderID, userID); err != nil {
		return domain.Order{}, nil, notFound(err, "order "+orderID)
	}
	items, err := r.items(ctx, orderID)
	if err != nil {
		return domain.Order{}, nil, err
	}
	return o, items, nil
}

func (r *OrderRepo) Get(ctx context.Context, orderID string) (domain.Order, error) {
	var o domain.Order
	if err := r.db.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID); err != nil {
		return domain.Order{}, notFound(err, "order "+orderID)
	}
	return o, nil
}

func (r *OrderRepo) items(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := r.db.SelectContext(ctx, &items, `
		SELECT oi.order_id, oi.product_id, p.name AS product_name, oi.quantity, oi.unit_price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ?
		ORDER BY p.name
	`, orderID)
	return items, err
}

// ListByUser returns the user's orders newest first, without cancelled ones.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	out := []domain.Order{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = ? AND status != ?
		ORDER BY created_at DESC, rowid DESC
	`, userID, domain.StatusCancelled)
	return out, err
}

func (r *OrderRepo) ListLatest(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []domain.Order{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	return out, err
}

// Transition moves an order from one status to another. It reports false
// when the order was not in the expected status.
func (r *OrderRepo) Transition(ctx context.Context, orderID string, from, to domain.OrderStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ? AND status = ?`, to, orderID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// Cancel moves the user's Processing order to Cancelled and queues msg in
// the outbox within the same transaction. changed is false when the order
// was not Processing any more; nothing is queued then.
func (r *OrderRepo) Cancel(ctx context.Context, orderID, userID string, msg Outgoing) (notificationID int64, changed bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = ?
		WHERE id = ? AND user_id = ? AND status = ?
	`, domain.StatusCancelled, orderID, userID, domain.StatusProcessing)
	if err != nil {
		return 0, false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, false, nil
	}
	id, err := enqueueTx(ctx, tx, msg)
	if err != nil {
		return 0, false, err
	}
	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// HasPaidPurchase reports whether the user has a paid order containing the product.
func (r *OrderRepo) HasPaidPurchase(ctx context.Context, userID, productID string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `
		SELECT EXISTS(
		  SELECT 1 FROM order_items oi
		  JOIN orders o ON o.id = oi.order_id
		  WHERE o.user_id = ? AND o.paid = 1 AND oi.product_id = ?
		)
	`, userID, productID)
	return ok, err
}
