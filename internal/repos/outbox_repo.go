package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"bakery/internal/domain"
)

// Outgoing is a notification to be queued alongside a state change.
type Outgoing struct {
	Kind      string
	Recipient string
	Payload   []byte
}

func enqueueTx(ctx context.Context, tx *sqlx.Tx, m Outgoing) (int64, error) {
	ts := now()
	res, err := tx.ExecContext(ctx, `
	  INSERT INTO notifications(kind, recipient, payload, status, next_attempt_at, created_at)
	  VALUES(?,?,?,?,?,?)
	`, m.Kind, m.Recipient, string(m.Payload), domain.NotifyPending, ts, ts)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type OutboxRepo struct{ db *sqlx.DB }

func NewOutboxRepo(db *sqlx.DB) *OutboxRepo { return &OutboxRepo{db: db} }

func stamp(t time.Time) string { return t.UTC().Format(domain.TimeLayout) }

const notificationColumns = `id, kind, recipient, payload, status, attempts, last_error, next_attempt_at, created_at`

// Claim flips a due row to sending so only one caller delivers it. Rows left
// in sending since before staleBefore are considered abandoned and can be
// claimed again.
func (r *OutboxRepo) Claim(ctx context.Context, id int64, at, staleBefore time.Time) (domain.Notification, bool, error) {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE notifications SET status = ?, next_attempt_at = ?
	  WHERE id = ? AND (
	    (status = ? AND next_attempt_at <= ?) OR
	    (status = ? AND next_attempt_at <= ?)
	  )
	`, domain.NotifySending, stamp(at), id,
		domain.NotifyPending, stamp(at),
		domain.NotifySending, stamp(staleBefore))
	if err != nil {
		return domain.Notification{}, false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Notification{}, false, nil
	}
	var n domain.Notification
	if err := r.db.GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id); err != nil {
		return domain.Notification{}, false, notFound(err, "notification")
	}
	return n, true, nil
}

// Due lists ids of rows ready for delivery, oldest first.
func (r *OutboxRepo) Due(ctx context.Context, at, staleBefore time.Time, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `
	  SELECT id FROM notifications
	  WHERE (status = ? AND next_attempt_at <= ?) OR (status = ? AND next_attempt_at <= ?)
	  ORDER BY id
	  LIMIT ?
	`, domain.NotifyPending, stamp(at), domain.NotifySending, stamp(staleBefore), limit)
	return ids, err
}

func (r *OutboxRepo) MarkSent(ctx context.Context, id int64, attempts int) error {
	_, err := r.db.ExecContext(ctx, `
	  UPDATE notifications SET status = ?, attempts = ?, last_error = '' WHERE id = ?
	`, domain.NotifySent, attempts, id)
	return err
}

// MarkFailed records a failed attempt; a zero next time marks the row dead.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id int64, attempts int, lastErr string, next time.Time) error {
	status, nextAt := domain.NotifyPending, stamp(next)
	if next.IsZero() {
		status, nextAt = domain.NotifyDead, stamp(time.Now())
	}
	_, err := r.db.ExecContext(ctx, `
	  UPDATE notifications SET status = ?, attempts = ?, last_error = ?, next_attempt_at = ? WHERE id = ?
	`, status, attempts, lastErr, nextAt, id)
	return err
}

func (r *OutboxRepo) Get(ctx context.Context, id int64) (domain.Notification, error) {
	var n domain.Notification
	if err := r.db.GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id); err != nil {
		return domain.Notification{}, notFound(err, "notification")
	}
	return n, nil
}

func (r *OutboxRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notifications WHERE status = ?`, status)
	return n, err
}
