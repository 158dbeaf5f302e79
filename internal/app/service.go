package app

import (
	"context"

	"pos-core/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind. Every call acts on the mode
// the terminal is currently in.
type ApplicationService interface {
	// ComposeOrder adds lines to the cashier's pending order, creating it if needed.
	ComposeOrder(ctx context.Context, req core.ComposeRequest) (*OrderResult, error)

	// GetOrder returns an order by internal id.
	GetOrder(ctx context.Context, orderID int64) (*OrderResult, error)

	// GetPendingOrder returns the cashier's open order.
	GetPendingOrder(ctx context.Context, cashierEmail string) (*OrderResult, error)

	// ApplyDiscount applies the single discount an order may carry.
	ApplyDiscount(ctx context.Context, orderID int64, req core.DiscountRequest) (*OrderResult, error)

	// RemoveDiscount clears the order's discount and gives back any coupon redemption.
	RemoveDiscount(ctx context.Context, orderID int64, approval core.ManagerApproval) (*OrderResult, error)

	// VoidItem voids a line and its bundled children.
	VoidItem(ctx context.Context, orderID, lineID int64, approval core.ManagerApproval) (*OrderResult, error)

	// CancelOrder cancels a pending order. No invoice number is consumed.
	CancelOrder(ctx context.Context, orderID int64, approval core.ManagerApproval) (*OrderResult, error)

	// FinalizeOrder assigns the invoice number and then posts the journal. A posting
	// failure does not undo the sale; it is reported and can be retried with PostJournal.
	FinalizeOrder(ctx context.Context, orderID int64, tender core.Tender) (*FinalizeResult, error)

	// ReturnOrder returns a finalized invoice and reverses its journal lines.
	ReturnOrder(ctx context.Context, invoiceNo int64, approval core.ManagerApproval) (*OrderResult, error)

	// GetInvoice rebuilds the receipt of an invoice.
	GetInvoice(ctx context.Context, invoiceNo int64) (*core.Receipt, error)

	// ListInvoices lists invoices finalized between two dates (YYYY-MM-DD, inclusive).
	ListInvoices(ctx context.Context, fromDate, toDate string) (*InvoiceListResult, error)

	// ListMenu returns available catalog items of one kind.
	ListMenu(ctx context.Context, kind core.ItemKind) (*MenuResult, error)

	// PostJournal posts an invoice. Re-posting fails with core.ErrAlreadyPosted.
	PostJournal(ctx context.Context, invoiceNo int64) error

	// JournalEntries returns the journal lines of an invoice.
	JournalEntries(ctx context.Context, invoiceNo int64) (*JournalResult, error)

	// UnpostReference marks one PWD/SC reference line of an invoice Unposted.
	UnpostReference(ctx context.Context, invoiceNo int64, reference string) error

	// ClockIn opens the cashier's shift with the declared opening fund.
	ClockIn(ctx context.Context, req ShiftRequest) (*core.Shift, error)

	// ClockOut closes the cashier's shift with the declared drawer count.
	ClockOut(ctx context.Context, req ShiftRequest) (*core.Shift, error)

	// Withdraw records cash taken out of the cashier's drawer.
	Withdraw(ctx context.Context, req ShiftRequest) (*core.UserLog, error)

	// Drawer returns the expected drawer of the cashier's open shift.
	Drawer(ctx context.Context, cashierEmail string) (*core.DrawerStatus, error)

	// ActionLog lists clock-in, clock-out and withdrawal actions between two dates.
	ActionLog(ctx context.Context, fromDate, toDate string) (*ActionLogResult, error)

	// XReport consumes every unread order into a shift report.
	XReport(ctx context.Context) (*core.XReport, error)

	// ZReport produces the day-end report and bumps the Z counter.
	ZReport(ctx context.Context) (*core.ZReport, error)

	// Truncate backs up and purges the transactional history of the active mode.
	Truncate(ctx context.Context, approval core.ManagerApproval) (*core.TruncateResult, error)

	// TerminalInfo returns the registration, counters and permit status of the terminal.
	TerminalInfo(ctx context.Context) (*TerminalResult, error)

	// RegisterTerminal overwrites the registration fields.
	RegisterTerminal(ctx context.Context, req RegisterTerminalRequest) (*TerminalResult, error)

	// SetTrainMode switches the terminal between live and training mode.
	SetTrainMode(ctx context.Context, on bool, approval core.ManagerApproval) (*TerminalResult, error)

	// Health pings the database.
	Health(ctx context.Context) error
}
