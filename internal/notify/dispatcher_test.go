package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bakery/internal/domain"
	"bakery/internal/notify"
	"bakery/internal/repos"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []notify.Cancellation
	fails int // fail this many calls before succeeding
}

func (f *fakeNotifier) SendCancellation(_ context.Context, m notify.Cancellation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("relay unavailable")
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time      { return c.t }
func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func setup(t *testing.T, n notify.Notifier, maxAttempts int) (*notify.Dispatcher, *repos.OutboxRepo, *sqlx.DB, *clock) {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := repos.NewOutboxRepo(db)
	d := notify.NewDispatcher(store, n, maxAttempts, time.Millisecond)
	c := &clock{t: time.Now().Add(time.Second)}
	d.Now = c.now
	return d, store, db, c
}

var orderSeq atomic.Int64

// queueCancellation cancels a fresh order for alice so the outbox row is
// produced the same way the storefront produces it.
func queueCancellation(t *testing.T, db *sqlx.DB, payload []byte) int64 {
	t.Helper()
	ctx := context.Background()
	carts := repos.NewCartRepo(db, time.Hour)
	orders := repos.NewOrderRepo(db)
	sid := fmt.Sprintf("order-%d", orderSeq.Add(1))
	require.NoError(t, carts.Save(ctx, domain.Cart{SessionID: sid, Lines: []domain.CartLine{
		{ProductID: "veg-puff", Name: "Veg Puff", Price: decimal.NewFromInt(35), Quantity: 1},
	}}))
	o, _, err := orders.Place(ctx, repos.NewOrder{
		ID: sid, UserID: "u-alice", CartID: sid,
		Lines: []domain.CartLine{{ProductID: "veg-puff", Price: decimal.NewFromInt(35), Quantity: 1}},
		Total: decimal.NewFromInt(35), CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	if payload == nil {
		payload, err = json.Marshal(notify.Cancellation{To: "alice@bakery.test", Username: "alice", OrderID: o.ID, Amount: o.TotalPrice, Paid: true})
		require.NoError(t, err)
	}
	id, changed, err := orders.Cancel(ctx, o.ID, "u-alice", repos.Outgoing{
		Kind: domain.KindOrderCancelled, Recipient: "alice@bakery.test", Payload: payload,
	})
	require.NoError(t, err)
	require.True(t, changed)
	return id
}

func TestDeliverMarksSent(t *testing.T) {
	n := &fakeNotifier{}
	d, store, db, _ := setup(t, n, 3)
	id := queueCancellation(t, db, nil)

	require.NoError(t, d.Deliver(context.Background(), id))
	require.Equal(t, 1, n.count())
	assert.Equal(t, "alice@bakery.test", n.sent[0].To)

	row, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.NotifySent, row.Status)
	assert.Equal(t, 1, row.Attempts)

	// delivered rows are never claimed again
	require.NoError(t, d.Deliver(context.Background(), id))
	assert.Equal(t, 1, n.count())
}

// slowNotifier holds every send until the caller's context ends.
type slowNotifier struct{}

func (slowNotifier) SendCancellation(ctx context.Context, _ notify.Cancellation) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDeliverTimeoutRecordsRetry(t *testing.T) {
	d, store, db, _ := setup(t, slowNotifier{}, 3)
	id := queueCancellation(t, db, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := d.Deliver(ctx, id)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	row, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.NotifyPending, row.Status, "timed out send must not stay claimed")
	assert.Equal(t, 1, row.Attempts)
}

func TestDeliverFailureRetriesWithBackoffThenSucceeds(t *testing.T) {
	ctx := context.Background()
	n := &fakeNotifier{fails: 1}
	d, store, db, c := setup(t, n, 3)
	id := queueCancellation(t, db, nil)

	err := d.Deliver(ctx, id)
	require.Error(t, err)
	row, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.NotifyPending, row.Status)
	assert.Equal(t, "relay unavailable", row.LastError)

	sent, err := d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent, "retry must wait for the backoff")

	c.add(d.Backoff + time.Second)
	sent, err = d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	row, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.NotifySent, row.Status)
	assert.Equal(t, 2, row.Attempts)
}

func TestDeliverGivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	n := &fakeNotifier{fails: 10}
	d, store, db, c := setup(t, n, 2)
	id := queueCancellation(t, db, nil)

	require.Error(t, d.Deliver(ctx, id))
	c.add(time.Hour)
	_, err := d.RunOnce(ctx)
	require.NoError(t, err)

	row, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.NotifyDead, row.Status)
	assert.Equal(t, 2, row.Attempts)

	c.add(time.Hour)
	sent, err := d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, n.count())
}

func TestBadPayloadIsDeadImmediately(t *testing.T) {
	ctx := context.Background()
	n := &fakeNotifier{}
	d, store, db, _ := setup(t, n, 5)
	id := queueCancellation(t, db, []byte(`not json`))

	require.Error(t, d.Deliver(ctx, id))
	row, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.NotifyDead, row.Status)
	assert.Equal(t, 1, row.Attempts)
}

func TestConcurrentDeliverSendsOnce(t *testing.T) {
	n := &fakeNotifier{}
	d, _, db, _ := setup(t, n, 3)
	id := queueCancellation(t, db, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Deliver(context.Background(), id)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, n.count())
}

func TestRunDrainsAndStopsOnCancel(t *testing.T) {
	n := &fakeNotifier{}
	d, _, db, _ := setup(t, n, 3)
	queueCancellation(t, db, nil)
	queueCancellation(t, db, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return n.count() == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
