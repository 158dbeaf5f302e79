package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"pos-core/internal/core"
)

// Services bundles the core services the application layer orchestrates.
type Services struct {
	Orders   core.OrderService
	Journal  core.JournalService
	Shifts   core.ShiftService
	Reports  core.ReportingService
	Archive  core.ArchiveService
	Terminal core.TerminalService
	Catalog  core.Catalog
	Location *time.Location
	Now      func() time.Time
}

type appService struct {
	pool *pgxpool.Pool
	svc  Services
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(pool *pgxpool.Pool, svc Services) ApplicationService {
	if svc.Location == nil {
		svc.Location = time.Local
	}
	if svc.Now == nil {
		svc.Now = time.Now
	}
	return &appService{pool: pool, svc: svc}
}

// NewServices wires every core service over one pool.
func NewServices(pool *pgxpool.Pool, writer core.SnapshotWriter, minCashIn decimal.Decimal, loc *time.Location) Services {
	users := core.NewUserService(pool)
	counters := core.NewCounterService(pool)
	catalog := core.NewCatalog(pool)
	terminal := core.NewTerminalService(pool, counters, users)
	journal := core.NewJournalService(pool, catalog)
	return Services{
		Orders:   core.NewOrderService(pool, catalog, users, terminal, counters, journal),
		Journal:  journal,
		Shifts:   core.NewShiftService(pool, users, terminal, minCashIn),
		Reports:  core.NewReportingService(pool, users, counters),
		Archive:  core.NewArchiveService(pool, users, counters, writer),
		Terminal: terminal,
		Catalog:  catalog,
		Location: loc,
	}
}

func (s *appService) now() time.Time {
	return s.svc.Now().In(s.svc.Location)
}

// parseDateRange turns two inclusive YYYY-MM-DD dates into a half-open time range.
// Empty dates default to today.
func (s *appService) parseDateRange(fromDate, toDate string) (time.Time, time.Time, error) {
	today := s.now().Format("2006-01-02")
	if fromDate == "" {
		fromDate = today
	}
	if toDate == "" {
		toDate = today
	}
	from, err := time.ParseInLocation("2006-01-02", fromDate, s.svc.Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("from date %q is not YYYY-MM-DD: %w", fromDate, core.ErrInvalidDateRange)
	}
	to, err := time.ParseInLocation("2006-01-02", toDate, s.svc.Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("to date %q is not YYYY-MM-DD: %w", toDate, core.ErrInvalidDateRange)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("to date %s is before from date %s: %w", toDate, fromDate, core.ErrInvalidDateRange)
	}
	return from, to.AddDate(0, 0, 1), nil
}

// ── Orders ────────────────────────────────────────────────────────────────────

func (s *appService) ComposeOrder(ctx context.Context, req core.ComposeRequest) (*OrderResult, error) {
	order, err := s.svc.Orders.ComposeOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	return newOrderResult(order), nil
}

func (s *appService) GetOrder(ctx context.Context, orderID int64) (*OrderResult, error) {
	order, err := s.svc.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return newOrderResult(order), nil
}

func (s *appService) GetPendingOrder(ctx context.Context, cashierEmail string) (*OrderResult, error) {
	order, err := s.svc.Orders.GetPendingOrder(ctx, cashierEmail)
	if err != nil {
		return nil, err
	}
	return newOrderResult(order), nil
}

func (s *appService) ApplyDiscount(ctx context.Context, orderID int64, req core.DiscountRequest) (*OrderResult, error) {
	order, err := s.svc.Orders.ApplyDiscount(ctx, orderID, req)
	if err != nil {
		return nil, err
	}
	return newOrderResult(order), nil
}

func (s *appService) RemoveDiscount(ctx context.Context, orderID int64, approval core.ManagerApproval) (*OrderResult, error) {
	order, err := s.svc.Orders.RemoveDiscount(ctx, orderID, approval)
	if err != nil {
		return nil, err
	}
	return newOrderResult(order), nil
}

func (s *appService) VoidItem(ctx context.Context, orderID, lineID int64, approval core.ManagerApproval) (*OrderResult, error) {
	order, err := s.svc.Orders.VoidItem(ctx, orderID, lineID, approval)
	if err != nil {
		return nil, err
	}
	return newOrderResult(order), nil
}

func (s *appService) CancelOrder(ctx context.Context, orderID int64, approval core.ManagerApproval) (*OrderResult, error) {
	order, err := s.svc.Orders.CancelOrder(ctx, orderID, approval)
	if err != nil {
		return nil, err
	}
	return newOrderResult(order), nil
}

func (s *appService) FinalizeOrder(ctx context.Context, orderID int64, tender core.Tender) (*FinalizeResult, error) {
	receipt, err := s.svc.Orders.FinalizeOrder(ctx, orderID, tender)
	if err != nil {
		return nil, err
	}
	res := &FinalizeResult{Receipt: receipt, Posted: true}
	if err := s.svc.Journal.PostOrder(ctx, orderID); err != nil && !errors.Is(err, core.ErrAlreadyPosted) {
		log.Printf("journal posting for order %d failed: %v", orderID, err)
		res.Posted = false
		res.PostingError = err.Error()
	}
	return res, nil
}

func (s *appService) ReturnOrder(ctx context.Context, invoiceNo int64, approval core.ManagerApproval) (*OrderResult, error) {
	mode, err := s.svc.Terminal.ActiveMode(ctx)
	if err != nil {
		return nil, err
	}
	order, err := s.svc.Orders.ReturnOrder(ctx, mode, invoiceNo, approval)
	if err != nil {
		return nil, err
	}
	return newOrderResult(order), nil
}

func (s *appService) GetInvoice(ctx context.Context, invoiceNo int64) (*core.Receipt, error) {
	mode, err := s.svc.Terminal.ActiveMode(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Orders.GetInvoice(ctx, mode, invoiceNo)
}

func (s *appService) ListInvoices(ctx context.Context, fromDate, toDate string) (*InvoiceListResult, error) {
	from, to, err := s.parseDateRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}
	mode, err := s.svc.Terminal.ActiveMode(ctx)
	if err != nil {
		return nil, err
	}
	invoices, err := s.svc.Orders.ListInvoices(ctx, mode, from, to)
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Mode: mode, Invoices: invoices}, nil
}

func (s *appService) ListMenu(ctx context.Context, kind core.ItemKind) (*MenuResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown item kind %q", kind)
	}
	items, err := s.svc.Catalog.ListItems(ctx, kind)
	if err != nil {
		return nil, err
	}
	return &MenuResult{Kind: kind, Items: items}, nil
}

// ── Journal ───────────────────────────────────────────────────────────────────

func (s *appService) PostJournal(ctx context.Context, invoiceNo int64) error {
	mode, err := s.svc.Terminal.ActiveMode(ctx)
	if err != nil {
		return err
	}
	return s.svc.Journal.PostJournal(ctx, mode, invoiceNo)
}

func (s *appService) JournalEntries(ctx context.Context, invoiceNo int64) (*JournalResult, error) {
	lines, err := s.svc.Journal.Entries(ctx, invoiceNo)
	if err != nil {
		return nil, err
	}
	return &JournalResult{InvoiceNumber: core.FormatOrderNumber(invoiceNo), Lines: lines}, nil
}

func (s *appService) UnpostReference(ctx context.Context, invoiceNo int64, reference string) error {
	return s.svc.Journal.UnpostReference(ctx, invoiceNo, reference)
}

// ── Shifts ────────────────────────────────────────────────────────────────────

func (s *appService) ClockIn(ctx context.Context, req ShiftRequest) (*core.Shift, error) {
	return s.svc.Shifts.ClockIn(ctx, req.CashierEmail, req.Amount, req.Approval)
}

func (s *appService) ClockOut(ctx context.Context, req ShiftRequest) (*core.Shift, error) {
	return s.svc.Shifts.ClockOut(ctx, req.CashierEmail, req.Amount, req.Approval)
}

func (s *appService) Withdraw(ctx context.Context, req ShiftRequest) (*core.UserLog, error) {
	return s.svc.Shifts.Withdraw(ctx, req.CashierEmail, req.Amount, req.Approval)
}

func (s *appService) Drawer(ctx context.Context, cashierEmail string) (*core.DrawerStatus, error) {
	return s.svc.Shifts.Drawer(ctx, cashierEmail)
}

func (s *appService) ActionLog(ctx context.Context, fromDate, toDate string) (*ActionLogResult, error) {
	from, to, err := s.parseDateRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}
	entries, err := s.svc.Shifts.ActionLog(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &ActionLogResult{Entries: entries}, nil
}

// ── Reports & admin ───────────────────────────────────────────────────────────

func (s *appService) XReport(ctx context.Context) (*core.XReport, error) {
	mode, err := s.svc.Terminal.ActiveMode(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Reports.XReport(ctx, mode)
}

func (s *appService) ZReport(ctx context.Context) (*core.ZReport, error) {
	mode, err := s.svc.Terminal.ActiveMode(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Reports.ZReport(ctx, mode, s.now())
}

func (s *appService) Truncate(ctx context.Context, approval core.ManagerApproval) (*core.TruncateResult, error) {
	mode, err := s.svc.Terminal.ActiveMode(ctx)
	if err != nil {
		return nil, err
	}
	return s.svc.Archive.Truncate(ctx, mode, approval)
}

func (s *appService) terminalResult(ctx context.Context, info *core.TerminalInfo) (*TerminalResult, error) {
	if info == nil {
		var err error
		if info, err = s.svc.Terminal.Info(ctx); err != nil {
			return nil, err
		}
	}
	st := core.ValidateExpiration(info.ValidUntil, s.now())
	return &TerminalResult{Info: info, Status: &st}, nil
}

func (s *appService) TerminalInfo(ctx context.Context) (*TerminalResult, error) {
	return s.terminalResult(ctx, nil)
}

func (s *appService) RegisterTerminal(ctx context.Context, req RegisterTerminalRequest) (*TerminalResult, error) {
	info, err := s.svc.Terminal.Register(ctx, req.Info, req.ResetCounters, req.Approval)
	if err != nil {
		return nil, err
	}
	return s.terminalResult(ctx, info)
}

func (s *appService) SetTrainMode(ctx context.Context, on bool, approval core.ManagerApproval) (*TerminalResult, error) {
	info, err := s.svc.Terminal.SetTrainMode(ctx, on, approval)
	if err != nil {
		return nil, err
	}
	return s.terminalResult(ctx, info)
}

func (s *appService) Health(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("database pool not configured")
	}
	return s.pool.Ping(ctx)
}
