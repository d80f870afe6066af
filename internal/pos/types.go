package pos

import "time"

// TableStatus is the occupancy state of a dining table.
type TableStatus string

const (
	// TableAvailable means the table has no active order.
	TableAvailable TableStatus = "available"
	// TableOccupied means the table has an active order in progress.
	TableOccupied TableStatus = "occupied"
)

// Table is a dining table (or the designated takeaway pseudo-table).
//
// The takeaway table is identified by name (config: takeaway_table) and is
// exempt from status transitions: it never flips to occupied and is never a
// legal transfer source.
type Table struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Capacity int         `json:"capacity"`
	Status   TableStatus `json:"status"`
}

// Product is a catalog entry from the reference data.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Category string `json:"category,omitempty"`
}

// CartLine is one product in a table's active order.
//
// Name and UnitPrice are snapshots copied from the catalog at add time.
// A later catalog price change does not affect lines already in a cart.
// At most one CartLine exists per product within a cart; a quantity of
// zero or below removes the line.
type CartLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Total returns the line total (unit price times quantity).
func (l CartLine) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// InvoiceStatus is the lifecycle state of an invoice. This core only ever
// produces settled invoices; cancellation and approval flows belong to the
// admin screens.
type InvoiceStatus string

// InvoiceSettled is the status of every invoice produced by settlement.
const InvoiceSettled InvoiceStatus = "settled"

// Invoice is an immutable record of one settled sale.
//
// ID is generated client-side and is globally unique. It doubles as the
// idempotency key for remote writes: every retry of the same settlement
// carries the same ID.
type Invoice struct {
	ID       string        `json:"id"`
	TableID  string        `json:"table_id"`
	IssuedAt time.Time     `json:"issued_at"`
	Employee string        `json:"employee"`
	Customer string        `json:"customer"`
	Subtotal int64         `json:"subtotal"`
	VAT      int64         `json:"vat"`
	Discount int64         `json:"discount"`
	Paid     int64         `json:"paid"`
	Change   int64         `json:"change"`
	Note     string        `json:"note,omitempty"`
	Status   InvoiceStatus `json:"status"`
}

// InvoiceLine records one product on an invoice. The unit price is not
// duplicated here; it is derivable from the cart line snapshot at
// settlement time.
type InvoiceLine struct {
	ID        string `json:"id"`
	InvoiceID string `json:"invoice_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PendingTransaction wraps one settlement awaiting confirmation by the
// remote store.
//
// HeaderSent records that the invoice header row was accepted on an
// earlier attempt, so a replay after a partial failure only resends the
// line rows. Processed flips to true once both calls have succeeded;
// processed transactions are retained for a grace window and then purged
// by age. Unprocessed transactions are never purged.
type PendingTransaction struct {
	Seq        int64         `json:"-"`
	Invoice    Invoice       `json:"invoice"`
	Lines      []InvoiceLine `json:"lines"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
	HeaderSent bool          `json:"header_sent"`
	Processed  bool          `json:"processed"`
}
