package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bakery/internal/domain"
	applog "bakery/internal/log"
	"bakery/internal/metrics"
)

// Store is the outbox the dispatcher drains.
type Store interface {
	Claim(ctx context.Context, id int64, at, staleBefore time.Time) (domain.Notification, bool, error)
	Due(ctx context.Context, at, staleBefore time.Time, limit int) ([]int64, error)
	MarkSent(ctx context.Context, id int64, attempts int) error
	MarkFailed(ctx context.Context, id int64, attempts int, lastErr string, next time.Time) error
}

type Dispatcher struct {
	Store       Store
	Notifier    Notifier
	MaxAttempts int
	Backoff     time.Duration // first retry delay, doubled per attempt
	MaxBackoff  time.Duration
	Lease       time.Duration // how long a claimed row may stay in sending
	Interval    time.Duration
	BatchSize   int
	Now         func() time.Time
}

func NewDispatcher(store Store, n Notifier, maxAttempts int, interval time.Duration) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Dispatcher{
		Store:       store,
		Notifier:    n,
		MaxAttempts: maxAttempts,
		Backoff:     30 * time.Second,
		MaxBackoff:  30 * time.Minute,
		Lease:       2 * time.Minute,
		Interval:    interval,
		BatchSize:   50,
		Now:         time.Now,
	}
}

// errPermanent marks failures that retrying cannot fix.
var errPermanent = errors.New("permanent notification failure")

// Deliver sends one queued notification if it can be claimed. A row already
// claimed by someone else is left alone and nil is returned.
func (d *Dispatcher) Deliver(ctx context.Context, id int64) error {
	at := d.Now()
	n, ok, err := d.Store.Claim(ctx, id, at, at.Add(-d.Lease))
	if err != nil || !ok {
		return err
	}
	return d.send(ctx, n)
}

func (d *Dispatcher) send(ctx context.Context, n domain.Notification) error {
	attempts := n.Attempts + 1
	err := d.dispatch(ctx, n)
	// The outcome is recorded even when ctx ran out during the send, so the
	// row does not sit in sending until its lease expires.
	rctx := context.WithoutCancel(ctx)
	if err == nil {
		metrics.RecordNotification("sent")
		return d.Store.MarkSent(rctx, n.ID, attempts)
	}

	var next time.Time
	if attempts < d.MaxAttempts && !errors.Is(err, errPermanent) {
		next = d.Now().Add(d.backoff(attempts))
	}
	fields := map[string]any{"notification_id": n.ID, "kind": n.Kind, "attempts": attempts}
	if next.IsZero() {
		metrics.RecordNotification("dead")
		applog.Error(nil, "notify.dead", err, fields)
	} else {
		metrics.RecordNotification("retry")
		fields["next_attempt_at"] = next.UTC().Format(time.RFC3339)
		applog.Warn(nil, "notify.retry", err, fields)
	}
	if merr := d.Store.MarkFailed(rctx, n.ID, attempts, err.Error(), next); merr != nil {
		return errors.Join(err, merr)
	}
	return err
}

func (d *Dispatcher) dispatch(ctx context.Context, n domain.Notification) error {
	switch n.Kind {
	case domain.KindOrderCancelled:
		var m Cancellation
		if err := json.Unmarshal(n.Payload, &m); err != nil {
			return fmt.Errorf("%w: decode payload: %v", errPermanent, err)
		}
		return d.Notifier.SendCancellation(ctx, m)
	default:
		return fmt.Errorf("%w: unknown kind %q", errPermanent, n.Kind)
	}
}

func (d *Dispatcher) backoff(attempts int) time.Duration {
	b := d.Backoff
	for i := 1; i < attempts; i++ {
		b *= 2
		if d.MaxBackoff > 0 && b >= d.MaxBackoff {
			return d.MaxBackoff
		}
	}
	return b
}

// RunOnce drains every due row and returns how many were sent. Delivery
// failures are recorded on the rows; only store errors are returned.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	sent := 0
	for {
		at := d.Now()
		ids, err := d.Store.Due(ctx, at, at.Add(-d.Lease), d.BatchSize)
		if err != nil {
			return sent, err
		}
		if len(ids) == 0 {
			return sent, nil
		}
		progressed := false
		for _, id := range ids {
			at := d.Now()
			n, ok, err := d.Store.Claim(ctx, id, at, at.Add(-d.Lease))
			if err != nil {
				return sent, err
			}
			if !ok {
				continue
			}
			progressed = true
			if err := d.send(ctx, n); err == nil {
				sent++
			}
		}
		if !progressed || len(ids) < d.BatchSize {
			return sent, nil
		}
	}
}

// Run polls the outbox until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	interval := d.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if n, err := d.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			applog.Error(nil, "notify.run.fail", err, nil)
		} else if n > 0 {
			applog.Info(nil, "notify.run", map[string]any{"sent": n})
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
