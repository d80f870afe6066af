// Package settle implements the settlement workflow: validating the
// visible cart, committing the resulting invoice to the remote store
// (or the offline queue), and finalizing terminal state.
//
// Each checkout attempt moves through Validating -> Committing ->
// Finalizing -> Settled, or stops at Rejected during validation.
// Validation failures are user-input errors: surfaced immediately, no
// state mutated. Once validation passes, the sale has been promised to
// the customer - a commit failure of any kind falls back to the offline
// queue and is never surfaced as a failed sale.
package settle

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PoalNinh/poscore/internal/connectivity"
	"github.com/PoalNinh/poscore/internal/orders"
	"github.com/PoalNinh/poscore/internal/pos"
	"github.com/PoalNinh/poscore/internal/queue"
)

// defaultCustomer labels a sale with no customer name given.
const defaultCustomer = "Khách lẻ"

// Printer renders and prints a receipt for a finalized sale. Printing is
// an external collaborator: its failure does not roll back settlement.
type Printer interface {
	Print(ctx context.Context, inv pos.Invoice, lines []pos.CartLine) error
}

// Request carries the checkout form input.
type Request struct {
	Employee string
	Customer string
	Note     string
	Discount int64
	Paid     int64
}

// Result is the outcome of a settled checkout.
type Result struct {
	Invoice   pos.Invoice
	Lines     []pos.InvoiceLine
	CartLines []pos.CartLine // price snapshots, for the receipt
	Queued    bool           // true when committed via the offline queue
}

// Workflow orchestrates settlements for one terminal.
type Workflow struct {
	orders  *orders.Store
	queue   *queue.Queue
	monitor *connectivity.Monitor
	printer Printer
	ids     pos.InvoiceIDGenerator
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a settlement workflow. printer may be nil.
func New(
	ord *orders.Store,
	q *queue.Queue,
	monitor *connectivity.Monitor,
	printer Printer,
	ids pos.InvoiceIDGenerator,
	now func() time.Time,
	logger *slog.Logger,
) *Workflow {
	if ids == nil {
		ids = pos.UUIDGenerator{}
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		orders:  ord,
		queue:   q,
		monitor: monitor,
		printer: printer,
		ids:     ids,
		now:     now,
		logger:  logger,
	}
}

// Settle finalizes the visible cart into an immutable invoice.
//
// Validation order (first failure wins): cart non-empty, table selected,
// employee present, discount >= 0, paid > 0, final amount <= paid.
//
// When online, the invoice commits directly to the remote store (header,
// then lines); any commit failure enqueues the same invoice and lines as
// a pending transaction instead. When offline, it enqueues immediately.
// Either way the table is cleared and the sale reported settled.
func (w *Workflow) Settle(ctx context.Context, req Request) (Result, error) {
	// Validating. Cart and selection are read fresh here, not captured
	// earlier, so a table switch racing the checkout settles whatever
	// table is actually selected now.
	cart := w.orders.Cart()
	if len(cart) == 0 {
		return Result{}, pos.ErrEmptyCart
	}
	tableID := w.orders.SelectedTable()
	if tableID == "" {
		return Result{}, pos.ErrNoTableSelected
	}
	if strings.TrimSpace(req.Employee) == "" {
		return Result{}, pos.ErrNoEmployee
	}
	if req.Discount < 0 {
		return Result{}, pos.ErrInvalidDiscount
	}
	if req.Paid <= 0 {
		return Result{}, pos.ErrInvalidPayment
	}

	totals := pos.CalculateTotals(cart, req.Discount)
	if totals.Total > req.Paid {
		return Result{}, pos.ErrInsufficientPayment
	}

	customer := strings.TrimSpace(req.Customer)
	if customer == "" {
		customer = defaultCustomer
	}

	inv := pos.Invoice{
		ID:       w.ids.NewInvoiceID(),
		TableID:  tableID,
		IssuedAt: w.now(),
		Employee: req.Employee,
		Customer: customer,
		Subtotal: totals.Subtotal,
		VAT:      totals.VAT,
		Discount: totals.Discount,
		Paid:     req.Paid,
		Change:   req.Paid - totals.Total,
		Note:     strings.TrimSpace(req.Note),
		Status:   pos.InvoiceSettled,
	}
	lines := make([]pos.InvoiceLine, len(cart))
	for i, l := range cart {
		lines[i] = pos.InvoiceLine{
			ID:        pos.LineID(inv.ID, l.ProductID),
			InvoiceID: inv.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
		}
	}

	// Committing.
	tx := pos.PendingTransaction{Invoice: inv, Lines: lines}
	queued := false
	if w.monitor.IsOnline() {
		if err := w.queue.Deliver(ctx, &tx); err != nil {
			// The sale is already promised; park it for reconciliation.
			// tx keeps HeaderSent, so a half-committed header is not
			// resent on replay.
			w.logger.Warn("direct commit failed, enqueueing", "invoice", inv.ID, "error", err)
			if err := w.queue.Enqueue(ctx, tx); err != nil {
				return Result{}, err
			}
			queued = true
		}
	} else {
		if err := w.queue.Enqueue(ctx, tx); err != nil {
			return Result{}, err
		}
		queued = true
	}

	// Finalizing.
	if err := w.orders.FinalizeSettlement(ctx, tableID); err != nil {
		return Result{}, err
	}

	if w.printer != nil {
		if err := w.printer.Print(ctx, inv, cart); err != nil {
			w.logger.Warn("receipt printing failed", "invoice", inv.ID, "error", err)
		}
	}

	w.logger.Info("sale settled",
		"invoice", inv.ID, "table", tableID, "total", totals.Total, "queued", queued)

	return Result{Invoice: inv, Lines: lines, CartLines: cart, Queued: queued}, nil
}
