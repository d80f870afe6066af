package pos

// VATPercent is the fixed VAT rate applied to every sale.
const VATPercent = 10

// Totals is the settlement math for a cart at a point in time.
type Totals struct {
	Subtotal int64
	VAT      int64
	Discount int64
	Total    int64
}

// CalculateTotals computes subtotal, VAT and the final amount due for a
// set of cart lines. VAT is 10% of the subtotal; the discount is
// subtracted after VAT. Computed from the live cart at settlement time,
// never cached.
func CalculateTotals(lines []CartLine, discount int64) Totals {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.Total()
	}
	vat := subtotal * VATPercent / 100
	return Totals{
		Subtotal: subtotal,
		VAT:      vat,
		Discount: discount,
		Total:    subtotal + vat - discount,
	}
}
