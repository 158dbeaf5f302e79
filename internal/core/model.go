package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Mode separates the live fiscal ledger from the training shadow ledger.
// Every order, shift and counter row carries exactly one mode.
type Mode string

const (
	ModeLive     Mode = "LIVE"
	ModeTraining Mode = "TRAINING"
)

func (m Mode) Valid() bool {
	return m == ModeLive || m == ModeTraining
}

// OrderStatus is a single column so an order is in exactly one state at a time.
//
//	PENDING → FINALIZED → RETURNED
//	PENDING → CANCELLED
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderFinalized OrderStatus = "FINALIZED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderReturned  OrderStatus = "RETURNED"
)

// ItemKind tags the catalog table a line item was priced from.
type ItemKind string

const (
	KindMenu  ItemKind = "MENU"
	KindDrink ItemKind = "DRINK"
	KindAddOn ItemKind = "ADDON"
)

func (k ItemKind) Valid() bool {
	return k == KindMenu || k == KindDrink || k == KindAddOn
}

// Description is the journal description used for item lines.
func (k ItemKind) Description() string {
	switch k {
	case KindMenu:
		return "Menu"
	case KindDrink:
		return "Drink"
	case KindAddOn:
		return "Add-On"
	}
	return "Unknown"
}

// RegularSize is the size every drink and add-on upgrade is priced against.
const RegularSize = "R"

// OrderItem is one priced line of an order. Child lines of a bundled meal share the
// parent's EntryID and point at it through ParentID.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	Kind      ItemKind        `json:"kind"`
	CatalogID int             `json:"catalog_id"`
	Name      string          `json:"name"`
	Size      string          `json:"size,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"` // delta over Regular for bundled children
	EntryID   string          `json:"entry_id"`
	ParentID  *int64          `json:"parent_id,omitempty"`
	IsVoid    bool            `json:"is_void"`
	CreatedAt time.Time       `json:"created_at"`
}

// Subtotal is UnitPrice × Quantity, rounded to centavos.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}

// AlternativePayment is a non-cash tender (e-wallet, card, gift cheque, ...).
type AlternativePayment struct {
	ID        int64           `json:"id,omitempty"`
	SaleType  string          `json:"sale_type"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
}

// Tender is the payment breakdown supplied at finalization.
type Tender struct {
	CashTendered        decimal.Decimal      `json:"cash_tendered"`
	AlternativePayments []AlternativePayment `json:"alternative_payments"`
}

// Total returns cash plus every alternative payment.
func (t Tender) Total() decimal.Decimal {
	return t.CashTendered.Add(t.AlternativeTotal())
}

// AlternativeTotal returns the sum of non-cash tenders.
func (t Tender) AlternativeTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range t.AlternativePayments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// Totals is the money summary of an order. All fields are rounded to 2 dp.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	VatSales       decimal.Decimal `json:"vat_sales"`
	VatAmount      decimal.Decimal `json:"vat_amount"`
	VatExempt      decimal.Decimal `json:"vat_exempt"`
	DueAmount      decimal.Decimal `json:"due_amount"`
}

// Order is the header of a POS transaction together with its lines and tenders.
type Order struct {
	ID                  int64                `json:"id"`
	InvoiceNo           *int64               `json:"invoice_no,omitempty"` // assigned at finalization
	Mode                Mode                 `json:"mode"`
	Status              OrderStatus          `json:"status"`
	IsRead              bool                 `json:"is_read"`
	OrderType           string               `json:"order_type"`
	CashierEmail        string               `json:"cashier_email"`
	Totals              Totals               `json:"totals"`
	Discount            Discount             `json:"-"`
	DiscountType        string               `json:"discount_type,omitempty"`
	EligibleNames       []string             `json:"eligible_names,omitempty"`
	OscaIDs             []string             `json:"osca_ids,omitempty"`
	CashTendered        decimal.Decimal      `json:"cash_tendered"`
	TotalTendered       decimal.Decimal      `json:"total_tendered"`
	ChangeAmount        decimal.Decimal      `json:"change_amount"`
	AlternativePayments []AlternativePayment `json:"alternative_payments,omitempty"`
	Items               []OrderItem          `json:"items"`
	CreatedAt           time.Time            `json:"created_at"`
	FinalizedAt         *time.Time           `json:"finalized_at,omitempty"`
	ReturnedAt          *time.Time           `json:"returned_at,omitempty"`
}

// ActiveItems returns the non-voided lines.
func (o *Order) ActiveItems() []OrderItem {
	var out []OrderItem
	for _, it := range o.Items {
		if !it.IsVoid {
			out = append(out, it)
		}
	}
	return out
}

// InvoiceNumber renders the invoice as a 12-digit string, or the zero placeholder
// while the order has none.
func (o *Order) InvoiceNumber() string {
	if o.InvoiceNo == nil {
		return FormatOrderNumber(0)
	}
	return FormatOrderNumber(*o.InvoiceNo)
}

// FormatOrderNumber renders invoice and journal entry numbers as fixed-width 12 digits.
func FormatOrderNumber(n int64) string {
	return fmt.Sprintf("%012d", n)
}

// ManagerApproval identifies the manager co-signing a gated operation.
type ManagerApproval struct {
	Email string `json:"manager_email"`
}

// SaleType maps an alternative tender to its journal account.
type SaleType struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Account string `json:"account"`
	Type    string `json:"type"`
}
