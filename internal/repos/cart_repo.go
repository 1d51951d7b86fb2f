package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"bakery/internal/domain"
)

// CartRepo stores session carts. Each Save replaces the whole line set and
// pushes expiry out by TTL; concurrent saves for one session are
// last-write-wins.
type CartRepo struct {
	db  *sqlx.DB
	TTL time.Duration
	Now func() time.Time
}

func NewCartRepo(db *sqlx.DB, ttl time.Duration) *CartRepo {
	return &CartRepo{db: db, TTL: ttl, Now: time.Now}
}

func (r *CartRepo) stamp(t time.Time) string { return t.UTC().Format(domain.TimeLayout) }

// Load returns the session's cart; a missing or expired cart is empty.
func (r *CartRepo) Load(ctx context.Context, sessionID string) (domain.Cart, error) {
	cart := domain.Cart{SessionID: sessionID}
	err := r.db.SelectContext(ctx, &cart.Lines, `
	  SELECT ci.product_id, ci.name, ci.price, ci.image, ci.qty
	  FROM cart_items ci JOIN carts c ON c.id = ci.cart_id
	  WHERE ci.cart_id = ? AND c.expires_at > ?
	  ORDER BY ci.seq
	`, sessionID, r.stamp(r.Now()))
	if err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func (r *CartRepo) Save(ctx context.Context, cart domain.Cart) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	t := r.Now()
	if _, err := tx.ExecContext(ctx, `
	  INSERT INTO carts(id, expires_at, updated_at) VALUES(?,?,?)
	  ON CONFLICT(id) DO UPDATE SET expires_at=excluded.expires_at, updated_at=excluded.updated_at
	`, cart.SessionID, r.stamp(t.Add(r.TTL)), r.stamp(t)); err != nil {
		return err
	}
	if err := clearCartTx(ctx, tx, cart.SessionID); err != nil {
		return err
	}
	for i, l := range cart.Lines {
		if _, err := tx.ExecContext(ctx, `
		  INSERT INTO cart_items(cart_id, product_id, seq, name, price, image, qty)
		  VALUES(?,?,?,?,?,?,?)
		`, cart.SessionID, l.ProductID, i, l.Name, l.Price, l.Image, l.Quantity); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func clearCartTx(ctx context.Context, tx *sqlx.Tx, sessionID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, sessionID)
	return err
}

// Rekey moves the cart stored under from to the session id to. A missing
// source cart is not an error.
func (r *CartRepo) Rekey(ctx context.Context, from, to string) error {
	if from == "" || from == to {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	  INSERT INTO carts(id, expires_at, updated_at)
	  SELECT ?, expires_at, ? FROM carts WHERE id = ?
	  ON CONFLICT(id) DO NOTHING
	`, to, r.stamp(r.Now()), from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `UPDATE cart_items SET cart_id = ? WHERE cart_id = ?`, to, from); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE id = ?`, from); err != nil {
		return err
	}
	return tx.Commit()
}

// PurgeExpired drops carts past their expiry; items cascade.
func (r *CartRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE expires_at <= ?`, r.stamp(r.Now()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
