package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PoalNinh/poscore/internal/pos"
)

// queuePayload is the JSON shape stored in the payload column. The
// invoice id, timestamps and sub-state live in their own columns; the
// payload holds the immutable invoice and lines as produced by
// settlement.
type queuePayload struct {
	Invoice pos.Invoice       `json:"invoice"`
	Lines   []pos.InvoiceLine `json:"lines"`
}

// EnqueueTransaction appends a pending transaction to the offline queue.
//
// Uses ON CONFLICT(invoice_id) DO NOTHING for idempotency: re-enqueueing
// the same settlement is a no-op, so a retried settlement cannot create
// a duplicate queue entry.
func (s *Store) EnqueueTransaction(ctx context.Context, tx pos.PendingTransaction) error {
	payload, err := json.Marshal(queuePayload{Invoice: tx.Invoice, Lines: tx.Lines})
	if err != nil {
		return fmt.Errorf("enqueue transaction: marshal: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pending_transactions (invoice_id, payload, enqueued_at, header_sent, processed)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(invoice_id) DO NOTHING
	`, tx.Invoice.ID, string(payload), tx.EnqueuedAt.UnixMilli(), boolToInt(tx.HeaderSent))
	if err != nil {
		return fmt.Errorf("enqueue transaction: %w", err)
	}
	return nil
}

// UnprocessedTransactions returns all pending transactions not yet
// confirmed by the remote store, strictly in enqueue order.
func (s *Store) UnprocessedTransactions(ctx context.Context) ([]pos.PendingTransaction, error) {
	return s.queryTransactions(ctx, `
		SELECT seq, payload, enqueued_at, header_sent, processed
		FROM pending_transactions
		WHERE processed = 0
		ORDER BY seq ASC
	`)
}

// Transactions returns the whole queue (processed included) in enqueue
// order. Used by the operator CLI.
func (s *Store) Transactions(ctx context.Context) ([]pos.PendingTransaction, error) {
	return s.queryTransactions(ctx, `
		SELECT seq, payload, enqueued_at, header_sent, processed
		FROM pending_transactions
		ORDER BY seq ASC
	`)
}

func (s *Store) queryTransactions(ctx context.Context, query string) ([]pos.PendingTransaction, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []pos.PendingTransaction
	for rows.Next() {
		var (
			seq        int64
			payload    string
			enqueuedAt int64
			headerSent int
			processed  int
		)
		if err := rows.Scan(&seq, &payload, &enqueuedAt, &headerSent, &processed); err != nil {
			return nil, fmt.Errorf("query transactions: scan: %w", err)
		}

		var p queuePayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("query transactions: unmarshal seq %d: %w", seq, err)
		}

		txs = append(txs, pos.PendingTransaction{
			Seq:        seq,
			Invoice:    p.Invoice,
			Lines:      p.Lines,
			EnqueuedAt: time.UnixMilli(enqueuedAt),
			HeaderSent: headerSent != 0,
			Processed:  processed != 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query transactions: iterate: %w", err)
	}
	return txs, nil
}

// MarkHeaderSent records that the invoice header row was accepted by the
// remote store, so a later replay only resends the line rows.
func (s *Store) MarkHeaderSent(ctx context.Context, invoiceID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pending_transactions SET header_sent = 1 WHERE invoice_id = ?`, invoiceID)
	if err != nil {
		return fmt.Errorf("mark header sent: %w", err)
	}
	return nil
}

// MarkProcessed records that both remote calls for the transaction
// succeeded. Retries stop once this is set.
func (s *Store) MarkProcessed(ctx context.Context, invoiceID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pending_transactions SET processed = 1, header_sent = 1 WHERE invoice_id = ?`, invoiceID)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// PurgeProcessedBefore deletes processed transactions enqueued before
// the cutoff. Unprocessed transactions are never purged regardless of
// age.
func (s *Store) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_transactions WHERE processed = 1 AND enqueued_at < ?`,
		cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge processed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge processed: rows affected: %w", err)
	}
	return n, nil
}

// UnprocessedCount returns the number of transactions awaiting
// reconciliation.
func (s *Store) UnprocessedCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_transactions WHERE processed = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unprocessed: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
