package receipt

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoalNinh/poscore/internal/pos"
)

func testInvoice() pos.Invoice {
	return pos.Invoice{
		ID:       "INV-0001",
		TableID:  "B001",
		IssuedAt: time.Date(2026, 1, 2, 12, 30, 0, 0, time.UTC),
		Employee: "Lan",
		Customer: "Khách lẻ",
		Subtotal: 55000,
		VAT:      5500,
		Discount: 0,
		Paid:     70000,
		Change:   9500,
		Note:     "Khách quen",
		Status:   pos.InvoiceSettled,
	}
}

func testCartLines() []pos.CartLine {
	return []pos.CartLine{
		{ProductID: "P1", Name: "Cà phê sữa", UnitPrice: 25000, Quantity: 2},
		{ProductID: "P2", Name: "Trà đá", UnitPrice: 5000, Quantity: 1},
	}
}

func TestRender_Golden(t *testing.T) {
	r := NewRenderer("Quán Cà Phê 24")
	out := r.Render(testInvoice(), testCartLines())

	g := goldie.New(t)
	g.Assert(t, "receipt_full", []byte(out))
}

func TestRender_VietnameseGrouping(t *testing.T) {
	r := NewRenderer("")
	out := r.Render(testInvoice(), testCartLines())

	assert.Contains(t, out, "Tạm tính: 55.000 ₫")
	assert.Contains(t, out, "Khách trả: 70.000 ₫")
	assert.NotContains(t, out, "55,000", "grouping must follow the vi locale")
}

func TestRender_NoteOmittedWhenEmpty(t *testing.T) {
	inv := testInvoice()
	inv.Note = ""

	out := NewRenderer("").Render(inv, testCartLines())
	assert.NotContains(t, out, "Ghi chú")
}

func TestRender_ShopNameOmittedWhenEmpty(t *testing.T) {
	out := NewRenderer("").Render(testInvoice(), testCartLines())
	assert.True(t, strings.HasPrefix(out, "HÓA ĐƠN THANH TOÁN\n"))
}

func TestWriter_Print(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(NewRenderer("Quán Cà Phê 24"), &buf)

	err := w.Print(context.Background(), testInvoice(), testCartLines())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "INV-0001")
	assert.Contains(t, buf.String(), "Cảm ơn quý khách!")
}
