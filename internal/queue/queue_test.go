package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoalNinh/poscore/internal/connectivity"
	"github.com/PoalNinh/poscore/internal/pos"
	"github.com/PoalNinh/poscore/internal/remote"
	"github.com/PoalNinh/poscore/internal/storage"
	"github.com/PoalNinh/poscore/internal/testutil"
)

const (
	invoicesEntity = "HOADON"
	linesEntity    = "HOADONDETAIL"
)

type queueFixture struct {
	queue   *Queue
	stub    *testutil.RemoteStub
	monitor *connectivity.Monitor
	clock   *testutil.Clock
	store   *storage.Store
}

func newQueueFixture(t *testing.T, online bool) *queueFixture {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	stub := testutil.NewRemoteStub()
	monitor := connectivity.NewMonitor(online, nil)
	clock := testutil.NewClock(time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC))

	q := New(store, stub, monitor, invoicesEntity, linesEntity, nil, DefaultRetention, clock.Now, nil)
	return &queueFixture{queue: q, stub: stub, monitor: monitor, clock: clock, store: store}
}

func pendingTx(invoiceID string) pos.PendingTransaction {
	return pos.PendingTransaction{
		Invoice: pos.Invoice{
			ID:       invoiceID,
			TableID:  "B001",
			Subtotal: 100000,
			VAT:      10000,
			Status:   pos.InvoiceSettled,
		},
		Lines: []pos.InvoiceLine{
			{ID: pos.LineID(invoiceID, "P1"), InvoiceID: invoiceID, ProductID: "P1", Quantity: 2},
		},
	}
}

func TestFlush_DrainsInEnqueueOrder(t *testing.T) {
	f := newQueueFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.queue.Enqueue(ctx, pendingTx("INV-0001")))
	require.NoError(t, f.queue.Enqueue(ctx, pendingTx("INV-0002")))

	require.NoError(t, f.queue.Flush(ctx))

	depth, err := f.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	// Header before lines, INV-0001 strictly before INV-0002.
	var adds []testutil.RemoteCall
	for _, c := range f.stub.Calls() {
		if c.Op == remote.OpAdd {
			adds = append(adds, c)
		}
	}
	require.Len(t, adds, 4)
	assert.Equal(t, invoicesEntity, adds[0].Entity)
	assert.Equal(t, "INV-0001", adds[0].Payload.Rows[0].(pos.Invoice).ID)
	assert.Equal(t, linesEntity, adds[1].Entity)
	assert.Equal(t, invoicesEntity, adds[2].Entity)
	assert.Equal(t, "INV-0002", adds[2].Payload.Rows[0].(pos.Invoice).ID)
	assert.Equal(t, linesEntity, adds[3].Entity)
}

func TestFlush_OfflineIsNoop(t *testing.T) {
	f := newQueueFixture(t, false)
	ctx := context.Background()

	require.NoError(t, f.queue.Enqueue(ctx, pendingTx("INV-0001")))
	require.NoError(t, f.queue.Flush(ctx))

	assert.Empty(t, f.stub.Calls(), "no network calls while offline")
	depth, err := f.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestFlush_EmptyQueueMakesNoCalls(t *testing.T) {
	f := newQueueFixture(t, true)

	require.NoError(t, f.queue.Flush(context.Background()))
	assert.Empty(t, f.stub.Calls())
}

func TestFlush_StopsAtFirstFailure(t *testing.T) {
	f := newQueueFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.queue.Enqueue(ctx, pendingTx("INV-0001")))
	require.NoError(t, f.queue.Enqueue(ctx, pendingTx("INV-0002")))

	f.stub.FailWith(invoicesEntity, remote.OpAdd, &pos.NetworkError{Entity: invoicesEntity, Op: "Add", Err: errors.New("down")})

	require.NoError(t, f.queue.Flush(ctx), "delivery failures are logged, not surfaced")

	// INV-0002 was never attempted: a later sale must not reach the
	// store before an earlier one.
	assert.Equal(t, 1, f.stub.CallCount(invoicesEntity, remote.OpAdd))
	depth, err := f.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)
}

func TestFlush_RetryKeepsSameInvoiceID(t *testing.T) {
	f := newQueueFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.queue.Enqueue(ctx, pendingTx("INV-0001")))

	f.stub.FailWith(linesEntity, remote.OpAdd, errors.New("down"))
	require.NoError(t, f.queue.Flush(ctx))

	f.stub.FailWith(linesEntity, remote.OpAdd, nil)
	require.NoError(t, f.queue.Flush(ctx))

	var headerIDs []string
	var lineInvoiceIDs []string
	for _, c := range f.stub.Calls() {
		if c.Op != remote.OpAdd {
			continue
		}
		switch c.Entity {
		case invoicesEntity:
			headerIDs = append(headerIDs, c.Payload.Rows[0].(pos.Invoice).ID)
		case linesEntity:
			lineInvoiceIDs = append(lineInvoiceIDs, c.Payload.Rows[0].(pos.InvoiceLine).InvoiceID)
		}
	}
	assert.Equal(t, []string{"INV-0001"}, headerIDs, "header accepted once is not resent")
	assert.Equal(t, []string{"INV-0001", "INV-0001"}, lineInvoiceIDs, "every retry carries the same idempotency key")

	depth, err := f.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestFlush_PartialHeaderStateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	store, err := storage.Open(path)
	require.NoError(t, err)

	stub := testutil.NewRemoteStub()
	monitor := connectivity.NewMonitor(true, nil)
	clock := testutil.NewClock(time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC))
	q := New(store, stub, monitor, invoicesEntity, linesEntity, nil, DefaultRetention, clock.Now, nil)

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, pendingTx("INV-0001")))
	stub.FailWith(linesEntity, remote.OpAdd, errors.New("down"))
	require.NoError(t, q.Flush(ctx))
	require.NoError(t, store.Close())

	// Restart with a fresh queue over the same database.
	store2, err := storage.Open(path)
	require.NoError(t, err)
	defer store2.Close()

	stub2 := testutil.NewRemoteStub()
	q2 := New(store2, stub2, monitor, invoicesEntity, linesEntity, nil, DefaultRetention, clock.Now, nil)
	require.NoError(t, q2.Flush(ctx))

	assert.Equal(t, 0, stub2.CallCount(invoicesEntity, remote.OpAdd), "header_sent persisted across restart")
	assert.Equal(t, 1, stub2.CallCount(linesEntity, remote.OpAdd))
}

func TestFlush_SecondFlushMakesNoCalls(t *testing.T) {
	f := newQueueFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.queue.Enqueue(ctx, pendingTx("INV-0001")))
	require.NoError(t, f.queue.Flush(ctx))

	f.stub.Reset()
	require.NoError(t, f.queue.Flush(ctx))
	assert.Empty(t, f.stub.Calls(), "nothing unprocessed, no network calls")
}

func TestFlush_PurgesProcessedPastRetention(t *testing.T) {
	f := newQueueFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.queue.Enqueue(ctx, pendingTx("INV-0001")))
	require.NoError(t, f.queue.Flush(ctx))

	f.clock.Advance(8 * 24 * time.Hour)
	require.NoError(t, f.queue.Flush(ctx))

	txs, err := f.queue.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs, "processed transaction purged after the grace window")
}

func TestFlush_NeverPurgesUnprocessed(t *testing.T) {
	f := newQueueFixture(t, false)
	ctx := context.Background()

	require.NoError(t, f.queue.Enqueue(ctx, pendingTx("INV-0001")))

	f.clock.Advance(30 * 24 * time.Hour)
	require.NoError(t, f.queue.Flush(ctx))

	txs, err := f.queue.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1, "unprocessed transactions survive any age")
	assert.False(t, txs[0].Processed)
}

func TestReconnect_TriggersFlush(t *testing.T) {
	f := newQueueFixture(t, false)
	ctx := context.Background()

	require.NoError(t, f.queue.Enqueue(ctx, pendingTx("INV-0001")))

	f.monitor.OnReconnect(func() {
		require.NoError(t, f.queue.Flush(context.Background()))
	})
	f.monitor.SetOnline(true)

	depth, err := f.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth, "reconnect drained the queue")
	assert.Equal(t, 1, f.stub.CallCount(invoicesEntity, remote.OpAdd), "no duplicate entry for the same invoice id")
}
