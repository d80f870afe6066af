package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator produces deterministic invoice IDs (INV-0001,
// INV-0002, ...) so tests and golden files are reproducible.
type FixedIDGenerator struct {
	mu sync.Mutex
	n  int
}

// NewInvoiceID implements pos.InvoiceIDGenerator.
func (g *FixedIDGenerator) NewInvoiceID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("INV-%04d", g.n)
}
