// Package receipt renders settled invoices into the 80mm plain-text
// layout handed to the printing collaborator. Amounts are formatted with
// Vietnamese digit grouping, matching the terminal UI.
package receipt

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/PoalNinh/poscore/internal/pos"
)

const lineWidth = 32

// Renderer renders receipts for one shop.
type Renderer struct {
	shopName string
	printer  *message.Printer
}

// NewRenderer creates a receipt renderer. shopName may be empty.
func NewRenderer(shopName string) *Renderer {
	return &Renderer{
		shopName: shopName,
		printer:  message.NewPrinter(language.Vietnamese),
	}
}

// Render produces the full receipt text for an invoice and its cart
// lines (the settlement-time price snapshots).
func (r *Renderer) Render(inv pos.Invoice, lines []pos.CartLine) string {
	var b strings.Builder
	sep := strings.Repeat("-", lineWidth) + "\n"

	if r.shopName != "" {
		fmt.Fprintf(&b, "%s\n", r.shopName)
	}
	b.WriteString("HÓA ĐƠN THANH TOÁN\n")
	fmt.Fprintf(&b, "Số HĐ: %s\n", inv.ID)
	fmt.Fprintf(&b, "Ngày: %s\n", inv.IssuedAt.Format("2006/01/02 15:04:05"))
	fmt.Fprintf(&b, "Bàn: %s\n", inv.TableID)
	fmt.Fprintf(&b, "Nhân viên: %s\n", inv.Employee)
	fmt.Fprintf(&b, "Khách hàng: %s\n", inv.Customer)
	b.WriteString(sep)

	for _, l := range lines {
		fmt.Fprintf(&b, "%s\n", l.Name)
		fmt.Fprintf(&b, "  %d x %s = %s\n", l.Quantity, r.money(l.UnitPrice), r.money(l.Total()))
	}
	b.WriteString(sep)

	fmt.Fprintf(&b, "Tạm tính: %s\n", r.money(inv.Subtotal))
	fmt.Fprintf(&b, "VAT (%d%%): %s\n", pos.VATPercent, r.money(inv.VAT))
	fmt.Fprintf(&b, "Giảm giá: %s\n", r.money(inv.Discount))
	fmt.Fprintf(&b, "Tổng cộng: %s\n", r.money(inv.Subtotal+inv.VAT-inv.Discount))
	fmt.Fprintf(&b, "Khách trả: %s\n", r.money(inv.Paid))
	fmt.Fprintf(&b, "Tiền thừa: %s\n", r.money(inv.Change))

	if inv.Note != "" {
		b.WriteString(sep)
		fmt.Fprintf(&b, "Ghi chú: %s\n", inv.Note)
	}

	b.WriteString(sep)
	b.WriteString("Cảm ơn quý khách!\n")
	return b.String()
}

// money formats an amount in VND with Vietnamese grouping.
func (r *Renderer) money(amount int64) string {
	return r.printer.Sprintf("%v ₫", number.Decimal(amount))
}

// Writer prints rendered receipts to an io.Writer. It satisfies the
// settlement workflow's Printer collaborator.
type Writer struct {
	renderer *Renderer
	out      io.Writer
}

// NewWriter creates a receipt printer writing to out.
func NewWriter(renderer *Renderer, out io.Writer) *Writer {
	return &Writer{renderer: renderer, out: out}
}

// Print implements the settlement Printer.
func (w *Writer) Print(_ context.Context, inv pos.Invoice, lines []pos.CartLine) error {
	_, err := io.WriteString(w.out, w.renderer.Render(inv, lines))
	return err
}
