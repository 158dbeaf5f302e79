package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptLine is one printable line. CatalogID == 0 marks a pure adjustment line
// (statutory, promo or coupon discount) that was not priced from the catalog.
type ReceiptLine struct {
	Name         string          `json:"name"`
	Size         string          `json:"size,omitempty"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	CatalogID    int             `json:"catalog_id,omitempty"`
	IsFirstItem  bool            `json:"is_first_item"`
	IsOtherDisc  bool            `json:"is_other_disc"`
	DisplayName  string          `json:"display_name"`
	DisplayPrice string          `json:"display_price"`
}

// IsAdjustment reports whether the line is a discount adjustment.
func (l ReceiptLine) IsAdjustment() bool {
	return l.CatalogID == 0
}

// Subtotal is the price for adjustment lines and price × quantity otherwise.
func (l ReceiptLine) Subtotal() decimal.Decimal {
	if l.IsAdjustment() {
		return l.Price
	}
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ReceiptGroup is one logical entry on the receipt.
type ReceiptGroup struct {
	EntryID string        `json:"entry_id"`
	Lines   []ReceiptLine `json:"lines"`
}

// Receipt is produced by finalization and by invoice lookups.
type Receipt struct {
	OrderID             int64                `json:"order_id"`
	InvoiceNumber       string               `json:"invoice_number"`
	Mode                Mode                 `json:"mode"`
	Status              OrderStatus          `json:"status"`
	OrderType           string               `json:"order_type"`
	CashierEmail        string               `json:"cashier_email"`
	FinalizedAt         *time.Time           `json:"finalized_at,omitempty"`
	Terminal            *TerminalInfo        `json:"terminal,omitempty"`
	Groups              []ReceiptGroup       `json:"groups"`
	Totals              Totals               `json:"totals"`
	DiscountType        string               `json:"discount_type,omitempty"`
	EligibleNames       []string             `json:"eligible_names,omitempty"`
	OscaIDs             []string             `json:"osca_ids,omitempty"`
	CashTendered        decimal.Decimal      `json:"cash_tendered"`
	TotalTendered       decimal.Decimal      `json:"total_tendered"`
	ChangeAmount        decimal.Decimal      `json:"change_amount"`
	AlternativePayments []AlternativePayment `json:"alternative_payments,omitempty"`
}

// DisplayPrice renders the price column of a receipt line. Precedence:
// empty for zero lines, "N%" for an other-discount percentage line, a negative
// amount for adjustments, a plain amount for the first line of an entry, "+" for
// priced upgrades and "-" for everything else.
func DisplayPrice(l ReceiptLine) string {
	sub := l.Subtotal()
	switch {
	case l.Price.IsZero() && sub.IsZero():
		return ""
	case l.IsOtherDisc:
		return l.Price.Abs().Round(2).String() + "%"
	case l.IsAdjustment():
		return "-" + FormatPeso(sub.Abs())
	case l.IsFirstItem:
		return FormatPeso(sub)
	case l.Price.IsPositive():
		return "+" + FormatPeso(sub)
	default:
		return "-" + FormatPeso(sub.Abs())
	}
}

// DisplayName renders "Name (Size) @price" for priced catalog lines.
func DisplayName(l ReceiptLine) string {
	if l.IsAdjustment() {
		return l.Name
	}
	name := l.Name
	if size := strings.TrimSpace(l.Size); size != "" {
		name += " (" + size + ")"
	}
	if l.Price.IsPositive() {
		name += " @" + l.Price.StringFixed(2)
	}
	return name
}

// FormatPeso formats an amount as "₱1,234.50".
func FormatPeso(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "₱" + b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

// BuildReceiptGroups lays out the order's active lines by entry and appends the
// synthetic discount lines for the active discount.
func BuildReceiptGroups(o *Order, res DiscountResult) []ReceiptGroup {
	groups := GroupEntries(o.ActiveItems())
	out := make([]ReceiptGroup, 0, len(groups)+1)

	for _, g := range groups {
		rg := ReceiptGroup{EntryID: g.EntryID}
		for i, it := range g.Items {
			rg.Lines = append(rg.Lines, ReceiptLine{
				Name:        it.Name,
				Size:        it.Size,
				Quantity:    it.Quantity,
				Price:       it.UnitPrice,
				CatalogID:   it.CatalogID,
				IsFirstItem: i == 0,
			})
		}
		if amt, ok := res.PerEntry[g.EntryID]; ok && amt.IsPositive() {
			rg.Lines = append(rg.Lines, ReceiptLine{
				Name:     statutoryLineName(o.Discount),
				Quantity: 1,
				Price:    amt.Neg(),
			})
		}
		out = append(out, rg)
	}

	switch d := o.Discount.(type) {
	case OtherDiscount:
		line := ReceiptLine{Name: d.Name, Quantity: 1}
		if d.Percent.IsPositive() {
			line.Price = d.Percent
			line.IsOtherDisc = true
			// percent lines carry no catalog id but render as "N%"
		} else {
			line.Price = res.Amount.Neg()
		}
		out = append(out, ReceiptGroup{Lines: []ReceiptLine{line}})
	case PromoDiscount:
		out = append(out, ReceiptGroup{Lines: []ReceiptLine{{Name: "Promo " + d.Code, Quantity: 1, Price: res.Amount.Neg()}}})
	case CouponDiscount:
		out = append(out, ReceiptGroup{Lines: []ReceiptLine{{Name: "Coupon " + d.Code, Quantity: 1, Price: res.Amount.Neg()}}})
	}

	for gi := range out {
		for li := range out[gi].Lines {
			l := &out[gi].Lines[li]
			l.DisplayName = DisplayName(*l)
			l.DisplayPrice = DisplayPrice(*l)
		}
	}
	return out
}

// DraftGroups lays out a pending order for the cart display. The stored totals
// stay authoritative, so a discount that no longer resolves only drops its
// synthetic lines.
func DraftGroups(o *Order) []ReceiptGroup {
	res, err := ResolveDiscount(o.Items, o.Discount)
	if err != nil {
		res = DiscountResult{Amount: decimal.Zero, EligibleGross: decimal.Zero}
	}
	return BuildReceiptGroups(o, res)
}

func statutoryLineName(d Discount) string {
	if d != nil && d.Kind() == DiscountSenior {
		return "Senior Discount"
	}
	return "PWD Discount"
}

// NewReceipt assembles the receipt for a finalized or returned order.
func NewReceipt(o *Order, res DiscountResult, terminal *TerminalInfo) *Receipt {
	return &Receipt{
		OrderID:             o.ID,
		InvoiceNumber:       o.InvoiceNumber(),
		Mode:                o.Mode,
		Status:              o.Status,
		OrderType:           o.OrderType,
		CashierEmail:        o.CashierEmail,
		FinalizedAt:         o.FinalizedAt,
		Terminal:            terminal,
		Groups:              BuildReceiptGroups(o, res),
		Totals:              o.Totals,
		DiscountType:        o.DiscountType,
		EligibleNames:       o.EligibleNames,
		OscaIDs:             o.OscaIDs,
		CashTendered:        o.CashTendered,
		TotalTendered:       o.TotalTendered,
		ChangeAmount:        o.ChangeAmount,
		AlternativePayments: o.AlternativePayments,
	}
}
