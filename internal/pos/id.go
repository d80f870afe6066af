package pos

import (
	"fmt"

	"github.com/google/uuid"
)

// InvoiceIDGenerator produces client-generated invoice IDs.
// Implemented by UUIDGenerator (production) and testutil.FixedIDGenerator.
type InvoiceIDGenerator interface {
	NewInvoiceID() string
}

// UUIDGenerator generates invoice IDs from random UUIDs with a fixed
// prefix. IDs are globally unique across terminals without coordination,
// which is what makes them usable as idempotency keys.
type UUIDGenerator struct{}

// NewInvoiceID returns a new unique invoice ID.
func (UUIDGenerator) NewInvoiceID() string {
	return "INV-" + uuid.NewString()
}

// LineID builds the ID of an invoice line from its invoice and product.
// The combination is unique because a cart holds at most one line per
// product, and it is stable across retries of the same settlement.
func LineID(invoiceID, productID string) string {
	return fmt.Sprintf("%s_%s", invoiceID, productID)
}
