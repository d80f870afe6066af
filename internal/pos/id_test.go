package pos

import (
	"strings"
	"testing"
)

func TestUUIDGenerator_Unique(t *testing.T) {
	gen := UUIDGenerator{}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen.NewInvoiceID()
		if !strings.HasPrefix(id, "INV-") {
			t.Fatalf("id %q missing INV- prefix", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestLineID_StableAcrossRetries(t *testing.T) {
	a := LineID("INV-0001", "P1")
	b := LineID("INV-0001", "P1")
	if a != b {
		t.Errorf("LineID not stable: %q vs %q", a, b)
	}
	if a != "INV-0001_P1" {
		t.Errorf("LineID = %q, want INV-0001_P1", a)
	}
}
