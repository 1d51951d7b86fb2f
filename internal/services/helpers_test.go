package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"bakery/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type recordingDeliverer struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (d *recordingDeliverer) Deliver(_ context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, id)
	return d.err
}

func count(t *testing.T, db *sqlx.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, query, args...))
	return n
}

// stalledDeliverer blocks until the caller's context gives up.
type stalledDeliverer struct{}

func (stalledDeliverer) Deliver(ctx context.Context, _ int64) error {
	<-ctx.Done()
	return ctx.Err()
}
