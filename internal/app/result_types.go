package app

import "pos-core/internal/core"

// OrderResult is returned by order composition and lifecycle operations. Groups
// is the cart layout with display strings per line.
type OrderResult struct {
	Order  *core.Order         `json:"order"`
	Groups []core.ReceiptGroup `json:"groups"`
}

func newOrderResult(o *core.Order) *OrderResult {
	return &OrderResult{Order: o, Groups: core.DraftGroups(o)}
}

// FinalizeResult is returned by FinalizeOrder. Posted is false when the journal
// could not be written; PostingError then says why.
type FinalizeResult struct {
	Receipt      *core.Receipt `json:"receipt"`
	Posted       bool          `json:"posted"`
	PostingError string        `json:"posting_error,omitempty"`
}

// InvoiceListResult is returned by ListInvoices.
type InvoiceListResult struct {
	Mode     core.Mode             `json:"mode"`
	Invoices []core.InvoiceSummary `json:"invoices"`
}

// MenuResult is returned by ListMenu.
type MenuResult struct {
	Kind  core.ItemKind      `json:"kind"`
	Items []core.MenuVariant `json:"items"`
}

// JournalResult is returned by JournalEntries.
type JournalResult struct {
	InvoiceNumber string             `json:"invoice_number"`
	Lines         []core.JournalLine `json:"lines"`
}

// ActionLogResult is returned by ActionLog.
type ActionLogResult struct {
	Entries []core.UserLog `json:"entries"`
}

// TerminalResult is returned by the terminal operations.
type TerminalResult struct {
	Info   *core.TerminalInfo   `json:"info"`
	Status *core.TerminalStatus `json:"status"`
}
