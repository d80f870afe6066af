package storage

import (
	"context"
	"testing"
	"time"

	"github.com/PoalNinh/poscore/internal/pos"
)

func testTransaction(invoiceID string, enqueuedAt time.Time) pos.PendingTransaction {
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
		EnqueuedAt: enqueuedAt,
	}
}

func TestEnqueueTransaction_PreservesEnqueueOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, id := range []string{"INV-0003", "INV-0001", "INV-0002"} {
		if err := s.EnqueueTransaction(ctx, testTransaction(id, now)); err != nil {
			t.Fatalf("EnqueueTransaction(%s) failed: %v", id, err)
		}
	}

	txs, err := s.UnprocessedTransactions(ctx)
	if err != nil {
		t.Fatalf("UnprocessedTransactions() failed: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txs))
	}
	// Order is enqueue order, not invoice id order.
	want := []string{"INV-0003", "INV-0001", "INV-0002"}
	for i, tx := range txs {
		if tx.Invoice.ID != want[i] {
			t.Errorf("txs[%d] = %s, want %s", i, tx.Invoice.ID, want[i])
		}
	}
}

func TestEnqueueTransaction_IdempotentByInvoiceID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tx := testTransaction("INV-0001", time.Now())

	if err := s.EnqueueTransaction(ctx, tx); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if err := s.EnqueueTransaction(ctx, tx); err != nil {
		t.Fatalf("second enqueue failed: %v", err)
	}

	txs, err := s.UnprocessedTransactions(ctx)
	if err != nil {
		t.Fatalf("UnprocessedTransactions() failed: %v", err)
	}
	if len(txs) != 1 {
		t.Errorf("got %d transactions after duplicate enqueue, want 1", len(txs))
	}
}

func TestMarkHeaderSent_ThenProcessed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.EnqueueTransaction(ctx, testTransaction("INV-0001", time.Now())); err != nil {
		t.Fatalf("EnqueueTransaction() failed: %v", err)
	}

	if err := s.MarkHeaderSent(ctx, "INV-0001"); err != nil {
		t.Fatalf("MarkHeaderSent() failed: %v", err)
	}
	txs, err := s.UnprocessedTransactions(ctx)
	if err != nil {
		t.Fatalf("UnprocessedTransactions() failed: %v", err)
	}
	if !txs[0].HeaderSent {
		t.Error("HeaderSent = false after MarkHeaderSent")
	}
	if txs[0].Processed {
		t.Error("Processed = true before MarkProcessed")
	}

	if err := s.MarkProcessed(ctx, "INV-0001"); err != nil {
		t.Fatalf("MarkProcessed() failed: %v", err)
	}
	txs, err = s.UnprocessedTransactions(ctx)
	if err != nil {
		t.Fatalf("UnprocessedTransactions() failed: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("got %d unprocessed after MarkProcessed, want 0", len(txs))
	}
}

func TestPurgeProcessedBefore_KeepsUnprocessed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	old := time.Now().Add(-8 * 24 * time.Hour)

	// Two old transactions, one processed, one not.
	if err := s.EnqueueTransaction(ctx, testTransaction("INV-0001", old)); err != nil {
		t.Fatalf("EnqueueTransaction() failed: %v", err)
	}
	if err := s.EnqueueTransaction(ctx, testTransaction("INV-0002", old)); err != nil {
		t.Fatalf("EnqueueTransaction() failed: %v", err)
	}
	if err := s.MarkProcessed(ctx, "INV-0001"); err != nil {
		t.Fatalf("MarkProcessed() failed: %v", err)
	}

	purged, err := s.PurgeProcessedBefore(ctx, time.Now().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeProcessedBefore() failed: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged %d, want 1", purged)
	}

	txs, err := s.Transactions(ctx)
	if err != nil {
		t.Fatalf("Transactions() failed: %v", err)
	}
	if len(txs) != 1 || txs[0].Invoice.ID != "INV-0002" {
		t.Errorf("remaining = %+v, want only unprocessed INV-0002", txs)
	}
}

func TestUnprocessedCount(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	n, err := s.UnprocessedCount(ctx)
	if err != nil {
		t.Fatalf("UnprocessedCount() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}

	if err := s.EnqueueTransaction(ctx, testTransaction("INV-0001", time.Now())); err != nil {
		t.Fatalf("EnqueueTransaction() failed: %v", err)
	}
	n, err = s.UnprocessedCount(ctx)
	if err != nil {
		t.Fatalf("UnprocessedCount() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}
