package core

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// ReportHeader identifies the terminal a report was printed from.
type ReportHeader struct {
	BusinessName string `json:"business_name"`
	OperatorName string `json:"operator_name"`
	Address      string `json:"address"`
	VatRegTin    string `json:"vat_reg_tin"`
	Min          string `json:"min"`
	SerialNumber string `json:"serial_number"`
	Mode         Mode   `json:"mode"`
}

// PaymentDetail is the total received through one sale type.
type PaymentDetail struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Payments splits received money into net cash and alternative tenders.
type Payments struct {
	Cash          decimal.Decimal `json:"cash"`
	OtherPayments []PaymentDetail `json:"other_payments"`
}

// Total is cash plus every alternative tender.
func (p Payments) Total() decimal.Decimal {
	sum := p.Cash
	for _, op := range p.OtherPayments {
		sum = sum.Add(op.Amount)
	}
	return sum
}

// XReport is a shift-level snapshot of every order not yet consumed by an earlier X report.
type XReport struct {
	Header           ReportHeader    `json:"header"`
	GeneratedAt      time.Time       `json:"generated_at"`
	StartAt          *time.Time      `json:"start_at,omitempty"`
	EndAt            *time.Time      `json:"end_at,omitempty"`
	Cashier          string          `json:"cashier"`
	OrderCount       int             `json:"order_count"`
	BeginningInvoice string          `json:"beginning_invoice"`
	EndingInvoice    string          `json:"ending_invoice"`
	OpeningFund      decimal.Decimal `json:"opening_fund"`
	VoidAmount       decimal.Decimal `json:"void_amount"`
	Refund           decimal.Decimal `json:"refund"`
	Withdrawal       decimal.Decimal `json:"withdrawal"`
	ValidCash        decimal.Decimal `json:"valid_cash"`
	Payments         Payments        `json:"payments"`
	CashInDrawer     decimal.Decimal `json:"cash_in_drawer"`
	ShortOver        decimal.Decimal `json:"short_over"`
}

// NumberRange is the first and last 12-digit number of a report category.
type NumberRange struct {
	Beginning string `json:"beginning"`
	Ending    string `json:"ending"`
}

type SalesBreakdown struct {
	VatableSales      decimal.Decimal `json:"vatable_sales"`
	VatAmount         decimal.Decimal `json:"vat_amount"`
	VatExemptSales    decimal.Decimal `json:"vat_exempt_sales"`
	ZeroRatedSales    decimal.Decimal `json:"zero_rated_sales"`
	GrossAmount       decimal.Decimal `json:"gross_amount"`
	LessDiscount      decimal.Decimal `json:"less_discount"`
	LessReturn        decimal.Decimal `json:"less_return"`
	LessVoid          decimal.Decimal `json:"less_void"`
	LessVatAdjustment decimal.Decimal `json:"less_vat_adjustment"`
	NetAmount         decimal.Decimal `json:"net_amount"`
}

// DiscountSummary buckets regular-order discounts by their recorded type. Other
// holds every label outside the known discount types.
type DiscountSummary struct {
	SeniorCitizen decimal.Decimal `json:"senior_citizen"`
	PWD           decimal.Decimal `json:"pwd"`
	Other         decimal.Decimal `json:"other"`
	Promo         decimal.Decimal `json:"promo"`
	Coupon        decimal.Decimal `json:"coupon"`
}

type SalesAdjustment struct {
	Return decimal.Decimal `json:"return"`
	Void   decimal.Decimal `json:"void"`
}

// ZReport is the day-end snapshot. ZCounter is the counter value this run produced.
type ZReport struct {
	Header                   ReportHeader    `json:"header"`
	GeneratedAt              time.Time       `json:"generated_at"`
	StartAt                  *time.Time      `json:"start_at,omitempty"`
	EndAt                    *time.Time      `json:"end_at,omitempty"`
	ZCounter                 int64           `json:"z_counter"`
	ResetCounter             int64           `json:"reset_counter"`
	Regular                  NumberRange     `json:"regular"`
	Void                     NumberRange     `json:"void"`
	Return                   NumberRange     `json:"return"`
	PreviousAccumulatedSales decimal.Decimal `json:"previous_accumulated_sales"`
	SalesForTheDay           decimal.Decimal `json:"sales_for_the_day"`
	PresentAccumulatedSales  decimal.Decimal `json:"present_accumulated_sales"`
	Sales                    SalesBreakdown  `json:"sales"`
	Discounts                DiscountSummary `json:"discounts"`
	Adjustments              SalesAdjustment `json:"adjustments"`
	Payments                 Payments        `json:"payments"`
	OpeningFund              decimal.Decimal `json:"opening_fund"`
	Withdrawal               decimal.Decimal `json:"withdrawal"`
	CashInDrawer             decimal.Decimal `json:"cash_in_drawer"`
	PaymentsReceived         decimal.Decimal `json:"payments_received"`
	ShortOver                decimal.Decimal `json:"short_over"`
}

// ── Builders ──────────────────────────────────────────────────────────────────

func newReportHeader(t *TerminalInfo, mode Mode) ReportHeader {
	h := ReportHeader{Mode: mode}
	if t == nil {
		return h
	}
	h.BusinessName = t.RegisteredName
	h.OperatorName = t.OperatedBy
	h.Address = t.Address
	h.VatRegTin = t.VatTinNumber
	h.Min = t.MinNumber
	h.SerialNumber = t.PosSerialNumber
	return h
}

// ShortOver is openingFund + validCash − (declaredCashOut − withdrawals).
func ShortOver(openingFund, validCash, declaredCashOut, withdrawals decimal.Decimal) decimal.Decimal {
	return openingFund.Add(validCash).Sub(declaredCashOut.Sub(withdrawals))
}

// netCash is what an order left in the drawer.
func netCash(o *Order) decimal.Decimal {
	return o.CashTendered.Sub(o.ChangeAmount)
}

func tenderBreakdown(orders []*Order) []PaymentDetail {
	sums := map[string]decimal.Decimal{}
	var names []string
	for _, o := range orders {
		for _, p := range o.AlternativePayments {
			if _, ok := sums[p.SaleType]; !ok {
				names = append(names, p.SaleType)
				sums[p.SaleType] = decimal.Zero
			}
			sums[p.SaleType] = sums[p.SaleType].Add(p.Amount)
		}
	}
	sort.Strings(names)
	out := make([]PaymentDetail, 0, len(names))
	for _, n := range names {
		out = append(out, PaymentDetail{Name: n, Amount: sums[n]})
	}
	return out
}

// timeSpan returns the earliest and latest creation time of orders.
func timeSpan(orders []*Order) (*time.Time, *time.Time) {
	var start, end *time.Time
	for _, o := range orders {
		t := o.CreatedAt
		if start == nil || t.Before(*start) {
			start = &t
		}
		if end == nil || t.After(*end) {
			end = &t
		}
	}
	return start, end
}

// rangeOf formats the smallest and largest key as 12-digit numbers; an empty set
// yields zero-filled placeholders.
func rangeOf(orders []*Order, key func(*Order) (int64, bool)) NumberRange {
	var lo, hi int64
	found := false
	for _, o := range orders {
		k, ok := key(o)
		if !ok {
			continue
		}
		if !found || k < lo {
			lo = k
		}
		if !found || k > hi {
			hi = k
		}
		found = true
	}
	return NumberRange{Beginning: FormatOrderNumber(lo), Ending: FormatOrderNumber(hi)}
}

func byInvoice(o *Order) (int64, bool) {
	if o.InvoiceNo == nil {
		return 0, false
	}
	return *o.InvoiceNo, true
}

func byOrderID(o *Order) (int64, bool) {
	return o.ID, true
}

func partition(orders []*Order) (regular, void, returned []*Order) {
	for _, o := range orders {
		switch o.Status {
		case OrderFinalized:
			regular = append(regular, o)
		case OrderCancelled:
			void = append(void, o)
		case OrderReturned:
			returned = append(returned, o)
		}
	}
	return regular, void, returned
}

func sumOf(orders []*Order, f func(*Order) decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, o := range orders {
		sum = sum.Add(f(o))
	}
	return sum
}

func totalOf(o *Order) decimal.Decimal { return o.Totals.TotalAmount }

// buildXReport summarizes unread orders against the latest shift of the mode.
// shift may be nil when nobody clocked in yet.
func buildXReport(orders []*Order, shift *Shift, cashier string, terminal *TerminalInfo, mode Mode, now time.Time) *XReport {
	regular, void, returned := partition(orders)

	r := &XReport{
		Header:      newReportHeader(terminal, mode),
		GeneratedAt: now,
		Cashier:     cashier,
		OrderCount:  len(orders),
		OpeningFund: decimal.Zero,
		Withdrawal:  decimal.Zero,
	}
	r.StartAt, r.EndAt = timeSpan(orders)
	span := rangeOf(orders, byInvoice)
	r.BeginningInvoice, r.EndingInvoice = span.Beginning, span.Ending

	r.VoidAmount = sumOf(void, totalOf)
	r.Refund = sumOf(returned, totalOf)
	r.ValidCash = sumOf(regular, netCash)
	r.Payments = Payments{Cash: r.ValidCash, OtherPayments: tenderBreakdown(regular)}

	cashOut := decimal.Zero
	if shift != nil {
		r.OpeningFund = shift.CashInAmount
		r.Withdrawal = shift.WithdrawalTotal()
		if shift.CashOutAmount != nil {
			cashOut = *shift.CashOutAmount
		}
	}
	r.CashInDrawer = cashOut.Sub(r.Withdrawal)
	r.ShortOver = ShortOver(r.OpeningFund, r.ValidCash, cashOut, r.Withdrawal)
	return r
}

// ZReportInput is everything a Z report reads, gathered in one transaction.
type ZReportInput struct {
	Orders   []*Order
	Shifts   []*Shift
	Terminal *TerminalInfo
	Counters *Counters
	Mode     Mode
	// ZCounter is the value produced by this run's counter bump.
	ZCounter int64
	Now      time.Time
}

// discountBucket classifies an order's recorded discount type.
func discountBucket(label string) DiscountKind {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case string(DiscountPWD):
		return DiscountPWD
	case string(DiscountSenior), "SC", "SENIOR CITIZEN":
		return DiscountSenior
	case string(DiscountPromo):
		return DiscountPromo
	case string(DiscountCoupon):
		return DiscountCoupon
	}
	return DiscountOther
}

// startOfDay is midnight of t in t's location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// saleTime is when an order counted as a sale.
func saleTime(o *Order) time.Time {
	if o.FinalizedAt != nil {
		return *o.FinalizedAt
	}
	return o.CreatedAt
}

func buildZReport(in ZReportInput) *ZReport {
	regular, void, returned := partition(in.Orders)
	dayStart := startOfDay(in.Now)

	r := &ZReport{
		Header:      newReportHeader(in.Terminal, in.Mode),
		GeneratedAt: in.Now,
		ZCounter:    in.ZCounter,
		Regular:     rangeOf(regular, byInvoice),
		Void:        rangeOf(void, byOrderID),
		Return:      rangeOf(returned, byInvoice),
	}
	r.StartAt, r.EndAt = timeSpan(in.Orders)

	carried := decimal.Zero
	if in.Counters != nil {
		carried = in.Counters.CarriedSales
		r.ResetCounter = in.Counters.ResetCounter
	}
	var today []*Order
	previous := carried
	for _, o := range regular {
		if saleTime(o).Before(dayStart) {
			previous = previous.Add(o.Totals.TotalAmount)
		} else {
			today = append(today, o)
		}
	}
	r.PreviousAccumulatedSales = previous
	r.SalesForTheDay = sumOf(today, totalOf)
	r.PresentAccumulatedSales = previous.Add(r.SalesForTheDay)

	subtotalOf := func(o *Order) decimal.Decimal { return o.Totals.Subtotal }
	s := SalesBreakdown{
		VatableSales:      sumOf(regular, func(o *Order) decimal.Decimal { return o.Totals.VatSales }),
		VatAmount:         sumOf(regular, func(o *Order) decimal.Decimal { return o.Totals.VatAmount }),
		VatExemptSales:    sumOf(regular, func(o *Order) decimal.Decimal { return o.Totals.VatExempt }),
		ZeroRatedSales:    decimal.Zero,
		GrossAmount:       sumOf(in.Orders, subtotalOf),
		LessDiscount:      sumOf(regular, func(o *Order) decimal.Decimal { return o.Totals.DiscountAmount }),
		LessReturn:        sumOf(returned, subtotalOf),
		LessVoid:          sumOf(void, subtotalOf),
		LessVatAdjustment: decimal.Zero,
	}
	s.NetAmount = s.GrossAmount.Sub(s.LessDiscount).Sub(s.LessReturn).Sub(s.LessVoid)
	r.Sales = s

	d := DiscountSummary{
		SeniorCitizen: decimal.Zero, PWD: decimal.Zero, Other: decimal.Zero,
		Promo: decimal.Zero, Coupon: decimal.Zero,
	}
	for _, o := range regular {
		amt := o.Totals.DiscountAmount
		if !amt.IsPositive() {
			continue
		}
		switch discountBucket(o.DiscountType) {
		case DiscountSenior:
			d.SeniorCitizen = d.SeniorCitizen.Add(amt)
		case DiscountPWD:
			d.PWD = d.PWD.Add(amt)
		case DiscountPromo:
			d.Promo = d.Promo.Add(amt)
		case DiscountCoupon:
			d.Coupon = d.Coupon.Add(amt)
		default:
			d.Other = d.Other.Add(amt)
		}
	}
	r.Discounts = d
	r.Adjustments = SalesAdjustment{Return: sumOf(returned, totalOf), Void: sumOf(void, totalOf)}

	r.Payments = Payments{Cash: sumOf(today, netCash), OtherPayments: tenderBreakdown(today)}
	r.PaymentsReceived = r.Payments.Total()

	r.OpeningFund, r.Withdrawal, r.CashInDrawer = decimal.Zero, decimal.Zero, decimal.Zero
	for _, sh := range in.Shifts {
		if sh.IsOpen() || !sh.TsOut.Before(dayStart) {
			r.OpeningFund = r.OpeningFund.Add(sh.CashInAmount)
			r.Withdrawal = r.Withdrawal.Add(sh.WithdrawalTotal())
			if sh.CashOutAmount != nil {
				r.CashInDrawer = r.CashInDrawer.Add(*sh.CashOutAmount)
			}
		}
	}
	r.ShortOver = ShortOver(r.OpeningFund, r.Payments.Cash, r.CashInDrawer, r.Withdrawal)
	return r
}
