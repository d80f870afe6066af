// Package pos defines the domain model shared by the order-capture and
// settlement components: tables, cart lines, invoices, pending offline
// transactions, totals math, and the error taxonomy surfaced to the
// terminal UI.
//
// Money is represented in integer VND. There are no fractional amounts;
// VAT is a fixed 10% of the subtotal and is computed with integer
// division at settlement time, never cached.
package pos
