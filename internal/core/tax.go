package core

import "github.com/shopspring/decimal"

// vatDivisor backs 12% VAT out of VAT-inclusive prices.
var vatDivisor = decimal.NewFromFloat(1.12)

// VatOf returns the VAT contained in a VAT-inclusive amount.
func VatOf(vatSales decimal.Decimal) decimal.Decimal {
	return vatSales.Sub(vatSales.Div(vatDivisor).Round(2))
}

// SplitVat decomposes the order into VATable and VAT-exempt sales.
// Statutory discounts make the eligible portion VAT-exempt. Every other discount
// only reduces VATable sales. VatSales + VatExempt always equals TotalAmount.
func SplitVat(subtotal decimal.Decimal, d Discount, res DiscountResult) Totals {
	t := Totals{
		Subtotal:       subtotal.Round(2),
		DiscountAmount: res.Amount.Round(2),
	}
	t.TotalAmount = t.Subtotal.Sub(t.DiscountAmount)
	t.DueAmount = t.TotalAmount

	if IsStatutory(d) {
		t.VatExempt = res.EligibleGross.Sub(res.Amount).Round(2)
		t.VatSales = t.Subtotal.Sub(res.EligibleGross).Round(2)
	} else {
		t.VatExempt = decimal.Zero
		t.VatSales = t.TotalAmount
	}
	t.VatAmount = VatOf(t.VatSales)
	return t
}

// ComputeTotals resolves the discount and VAT split for items from scratch.
func ComputeTotals(items []OrderItem, d Discount) (Totals, DiscountResult, error) {
	res, err := ResolveDiscount(items, d)
	if err != nil {
		return Totals{}, res, err
	}
	return SplitVat(sumSubtotals(activeOnly(items)), d, res), res, nil
}
