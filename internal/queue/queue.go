// Package queue implements the offline transaction queue: a durable log
// of settlements not yet confirmed by the remote store, replayed in
// strict enqueue order once connectivity returns.
//
// Delivery is at-least-once and idempotent. Every attempt for a pending
// transaction carries the same client-generated invoice id, and retries
// only stop once the transaction is locally marked processed. A lost
// acknowledgment can therefore cause an invoice to be sent more than
// once; the remote store's Add is expected to tolerate the duplicate
// key. This is a deliberate at-least-once tradeoff, not at-most-once.
//
// A settlement commits as two remote calls (invoice header, then lines).
// The header_sent sub-state records a header accepted on an earlier
// attempt, so replay after a partial failure only resends the lines.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/PoalNinh/poscore/internal/connectivity"
	"github.com/PoalNinh/poscore/internal/pos"
	"github.com/PoalNinh/poscore/internal/remote"
	"github.com/PoalNinh/poscore/internal/storage"
)

// DefaultRetention is how long processed transactions are kept for audit
// before being purged by age. Unprocessed transactions are never purged.
const DefaultRetention = 7 * 24 * time.Hour

// Queue drains pending transactions against the remote store.
type Queue struct {
	store          *storage.Store
	remote         remote.Requester
	monitor        *connectivity.Monitor
	invoicesEntity string
	linesEntity    string
	props          map[string]string
	retention      time.Duration
	now            func() time.Time
	logger         *slog.Logger

	// flushMu serializes flush cycles. Within a cycle, transactions are
	// delivered one at a time, each attempt awaited before the next, so
	// earlier sales are never observed after later ones.
	flushMu sync.Mutex
}

// New creates an offline transaction queue. invoicesEntity and
// linesEntity are the remote store's names for the invoice header and
// line tables; props is forwarded as request properties on every Add.
func New(
	store *storage.Store,
	rem remote.Requester,
	monitor *connectivity.Monitor,
	invoicesEntity, linesEntity string,
	props map[string]string,
	retention time.Duration,
	now func() time.Time,
	logger *slog.Logger,
) *Queue {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		store:          store,
		remote:         rem,
		monitor:        monitor,
		invoicesEntity: invoicesEntity,
		linesEntity:    linesEntity,
		props:          props,
		retention:      retention,
		now:            now,
		logger:         logger,
	}
}

// Enqueue appends a settlement to the durable queue. Enqueueing the same
// invoice id twice is a no-op, so an ambiguous settlement retry cannot
// duplicate a queue entry.
func (q *Queue) Enqueue(ctx context.Context, tx pos.PendingTransaction) error {
	if tx.EnqueuedAt.IsZero() {
		tx.EnqueuedAt = q.now()
	}
	if err := q.store.EnqueueTransaction(ctx, tx); err != nil {
		return err
	}
	q.logger.Info("transaction enqueued", "invoice", tx.Invoice.ID, "header_sent", tx.HeaderSent)
	return nil
}

// Deliver commits one transaction to the remote store: the invoice
// header first, then the lines. tx.HeaderSent is updated in place (and
// persisted when the transaction is enqueued) so a partial failure is
// not replayed from the top.
func (q *Queue) Deliver(ctx context.Context, tx *pos.PendingTransaction) error {
	if !tx.HeaderSent {
		_, err := q.remote.Request(ctx, q.invoicesEntity, remote.OpAdd, remote.Payload{
			Rows:       []any{tx.Invoice},
			Properties: q.props,
		})
		if err != nil {
			return fmt.Errorf("deliver %s: header: %w", tx.Invoice.ID, err)
		}
		tx.HeaderSent = true
		if err := q.store.MarkHeaderSent(ctx, tx.Invoice.ID); err != nil {
			return err
		}
	}

	rows := make([]any, len(tx.Lines))
	for i, l := range tx.Lines {
		rows[i] = l
	}
	_, err := q.remote.Request(ctx, q.linesEntity, remote.OpAdd, remote.Payload{
		Rows:       rows,
		Properties: q.props,
	})
	if err != nil {
		return fmt.Errorf("deliver %s: lines: %w", tx.Invoice.ID, err)
	}
	return nil
}

// Flush drains unprocessed transactions in enqueue order, then purges
// processed transactions past the retention window.
//
// Triggered on reconnect, at terminal startup when online, and manually
// from the operator CLI. A no-op (beyond the local purge) when offline
// or when nothing is unprocessed. Flush stops at the first delivery
// failure: continuing past a failed transaction would let a later sale
// reach the remote store before an earlier one.
//
// Delivery failures are logged, never surfaced; the cashier already has
// the customer's payment.
func (q *Queue) Flush(ctx context.Context) error {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	cutoff := q.now().Add(-q.retention)
	if purged, err := q.store.PurgeProcessedBefore(ctx, cutoff); err != nil {
		return err
	} else if purged > 0 {
		q.logger.Info("purged processed transactions", "count", purged)
	}

	if !q.monitor.IsOnline() {
		return nil
	}

	pending, err := q.store.UnprocessedTransactions(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	q.logger.Info("flushing offline transactions", "count", len(pending))

	flushed := 0
	for i := range pending {
		tx := &pending[i]
		if err := q.Deliver(ctx, tx); err != nil {
			q.logger.Warn("flush stopped, transaction left unprocessed",
				"invoice", tx.Invoice.ID, "error", err)
			break
		}
		if err := q.store.MarkProcessed(ctx, tx.Invoice.ID); err != nil {
			return err
		}
		flushed++
		q.logger.Info("transaction reconciled", "invoice", tx.Invoice.ID)
	}

	q.logger.Info("flush finished", "flushed", flushed, "remaining", len(pending)-flushed)
	return nil
}

// Depth returns the number of unprocessed transactions.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	return q.store.UnprocessedCount(ctx)
}

// Pending returns the full queue in enqueue order, processed entries
// included. Used by the operator CLI.
func (q *Queue) Pending(ctx context.Context) ([]pos.PendingTransaction, error) {
	return q.store.Transactions(ctx)
}
