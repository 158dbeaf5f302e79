package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pos-core/internal/app"
	"pos-core/internal/archive"
	"pos-core/internal/core"
)

const usage = `Available commands:
  x-report                                  print and consume the current X report
  z-report                                  print the day-end report (bumps the Z counter)
  truncate <manager_email>                  back up and purge the active mode
  terminal                                  show registration, counters and permit status
  train-mode <on|off> <manager_email>       switch between live and training mode
  clock-in <cashier> <amount> <manager>     open a shift
  clock-out <cashier> <amount> <manager>    close a shift with the counted drawer
  withdraw <cashier> <amount> <manager>     record a cash withdrawal
  drawer <cashier_email>                    show the expected drawer of the open shift
  invoices [from] [to]                      list invoices (YYYY-MM-DD, default today)
  invoice <invoice_no>                      print a receipt
  journal <invoice_no>                      print the journal lines of an invoice
  post <invoice_no>                         post the journal of an invoice
  backup-info <file.db>                     count the rows of a snapshot file`

// Run executes a one-shot CLI command and exits.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string) {
	if len(args) == 0 {
		log.Fatal(usage)
	}
	out := os.Stdout

	switch args[0] {
	case "x-report", "x":
		report, err := svc.XReport(ctx)
		if err != nil {
			log.Fatalf("X report failed: %v", err)
		}
		printXReport(out, report)

	case "z-report", "z":
		report, err := svc.ZReport(ctx)
		if err != nil {
			log.Fatalf("Z report failed: %v", err)
		}
		printZReport(out, report)

	case "truncate":
		need(args, 2, "truncate <manager_email>")
		result, err := svc.Truncate(ctx, core.ManagerApproval{Email: args[1]})
		if err != nil {
			log.Fatalf("Truncate failed: %v", err)
		}
		printTruncate(out, result)

	case "terminal", "term":
		result, err := svc.TerminalInfo(ctx)
		if err != nil {
			log.Fatalf("Failed to load terminal: %v", err)
		}
		printTerminal(out, result)

	case "train-mode":
		need(args, 3, "train-mode <on|off> <manager_email>")
		on, err := parseSwitch(args[1])
		if err != nil {
			log.Fatal(err)
		}
		result, err := svc.SetTrainMode(ctx, on, core.ManagerApproval{Email: args[2]})
		if err != nil {
			log.Fatalf("Failed to switch mode: %v", err)
		}
		printTerminal(out, result)

	case "clock-in", "clock-out", "withdraw":
		need(args, 4, args[0]+" <cashier> <amount> <manager>")
		amount, err := decimal.NewFromString(args[2])
		if err != nil {
			log.Fatalf("Invalid amount %q: %v", args[2], err)
		}
		req := app.ShiftRequest{
			CashierEmail: args[1],
			Amount:       amount,
			Approval:     core.ManagerApproval{Email: args[3]},
		}
		switch args[0] {
		case "clock-in":
			shift, err := svc.ClockIn(ctx, req)
			if err != nil {
				log.Fatalf("Clock-in failed: %v", err)
			}
			fmt.Fprintf(out, "Shift %d opened for %s with %s.\n", shift.ID, shift.CashierEmail, core.FormatPeso(shift.CashInAmount))
		case "clock-out":
			shift, err := svc.ClockOut(ctx, req)
			if err != nil {
				log.Fatalf("Clock-out failed: %v", err)
			}
			fmt.Fprintf(out, "Shift %d closed for %s.\n", shift.ID, shift.CashierEmail)
		default:
			entry, err := svc.Withdraw(ctx, req)
			if err != nil {
				log.Fatalf("Withdrawal failed: %v", err)
			}
			fmt.Fprintf(out, "Withdrew %s from %s's drawer.\n", core.FormatPeso(entry.Amount), entry.CashierEmail)
		}

	case "drawer":
		need(args, 2, "drawer <cashier_email>")
		status, err := svc.Drawer(ctx, args[1])
		if err != nil {
			log.Fatalf("Failed to load drawer: %v", err)
		}
		printDrawer(out, status)

	case "invoices", "inv":
		var from, to string
		if len(args) > 1 {
			from = args[1]
		}
		if len(args) > 2 {
			to = args[2]
		}
		result, err := svc.ListInvoices(ctx, from, to)
		if err != nil {
			log.Fatalf("Failed to list invoices: %v", err)
		}
		printInvoices(out, result)

	case "invoice":
		need(args, 2, "invoice <invoice_no>")
		receipt, err := svc.GetInvoice(ctx, parseInvoice(args[1]))
		if err != nil {
			log.Fatalf("Failed to load invoice: %v", err)
		}
		printReceipt(out, receipt)

	case "journal", "jr":
		need(args, 2, "journal <invoice_no>")
		result, err := svc.JournalEntries(ctx, parseInvoice(args[1]))
		if err != nil {
			log.Fatalf("Failed to load journal: %v", err)
		}
		printJournal(out, result)

	case "post":
		need(args, 2, "post <invoice_no>")
		invoiceNo := parseInvoice(args[1])
		if err := svc.PostJournal(ctx, invoiceNo); err != nil {
			log.Fatalf("Posting failed: %v", err)
		}
		fmt.Fprintf(out, "Invoice %s posted.\n", core.FormatOrderNumber(invoiceNo))

	case "backup-info":
		need(args, 2, "backup-info <file.db>")
		summary, err := archive.Inspect(args[1])
		if err != nil {
			log.Fatalf("Failed to inspect backup: %v", err)
		}
		printBackup(out, summary)

	default:
		log.Fatalf("Unknown command: %s\n%s", args[0], usage)
	}
}

func need(args []string, n int, form string) {
	if len(args) < n {
		log.Fatalf("Usage: app %s", form)
	}
}

func parseInvoice(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		log.Fatalf("Invalid invoice number %q", s)
	}
	return n
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

// ── Rendering ─────────────────────────────────────────────────────────────────

const width = 48

func rule(w io.Writer, ch string) {
	fmt.Fprintln(w, strings.Repeat(ch, width))
}

func row(w io.Writer, label string, amount decimal.Decimal) {
	fmt.Fprintf(w, "  %-28s %16s\n", label, core.FormatPeso(amount))
}

func text(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-20s %24s\n", label, value)
}

func printHeader(w io.Writer, title string, h core.ReportHeader) {
	fmt.Fprintln(w)
	rule(w, "=")
	fmt.Fprintf(w, "  %s\n", h.BusinessName)
	if h.OperatorName != "" {
		fmt.Fprintf(w, "  Operated by %s\n", h.OperatorName)
	}
	if h.Address != "" {
		fmt.Fprintf(w, "  %s\n", h.Address)
	}
	text(w, "VAT REG TIN", h.VatRegTin)
	text(w, "MIN", h.Min)
	text(w, "SN", h.SerialNumber)
	if h.Mode == core.ModeTraining {
		fmt.Fprintln(w, "  *** TRAINING MODE ***")
	}
	rule(w, "=")
	fmt.Fprintf(w, "  %s\n", title)
	rule(w, "-")
}

func printXReport(w io.Writer, r *core.XReport) {
	printHeader(w, "X-READING", r.Header)
	text(w, "Report date", r.GeneratedAt.Format("2006-01-02 15:04"))
	if r.StartAt != nil && r.EndAt != nil {
		text(w, "Start", r.StartAt.Format("2006-01-02 15:04"))
		text(w, "End", r.EndAt.Format("2006-01-02 15:04"))
	}
	text(w, "Cashier", r.Cashier)
	text(w, "Orders", strconv.Itoa(r.OrderCount))
	text(w, "Beg. invoice", r.BeginningInvoice)
	text(w, "End. invoice", r.EndingInvoice)
	rule(w, "-")
	row(w, "Opening fund", r.OpeningFund)
	row(w, "Void", r.VoidAmount)
	row(w, "Refund", r.Refund)
	row(w, "Withdrawal", r.Withdrawal)
	rule(w, "-")
	fmt.Fprintln(w, "  PAYMENTS RECEIVED")
	row(w, "Cash", r.Payments.Cash)
	for _, p := range r.Payments.OtherPayments {
		row(w, p.Name, p.Amount)
	}
	row(w, "Total", r.Payments.Total())
	rule(w, "-")
	row(w, "Cash in drawer", r.CashInDrawer)
	row(w, "Short/Over", r.ShortOver)
	rule(w, "=")
}

func printZReport(w io.Writer, r *core.ZReport) {
	printHeader(w, "Z-READING", r.Header)
	text(w, "Report date", r.GeneratedAt.Format("2006-01-02 15:04"))
	text(w, "Z counter", strconv.FormatInt(r.ZCounter, 10))
	text(w, "Reset counter", strconv.FormatInt(r.ResetCounter, 10))
	rule(w, "-")
	text(w, "Beg. SI", r.Regular.Beginning)
	text(w, "End. SI", r.Regular.Ending)
	text(w, "Beg. void", r.Void.Beginning)
	text(w, "End. void", r.Void.Ending)
	text(w, "Beg. return", r.Return.Beginning)
	text(w, "End. return", r.Return.Ending)
	rule(w, "-")
	row(w, "Previous accumulated", r.PreviousAccumulatedSales)
	row(w, "Sales for the day", r.SalesForTheDay)
	row(w, "Present accumulated", r.PresentAccumulatedSales)
	rule(w, "-")
	fmt.Fprintln(w, "  BREAKDOWN OF SALES")
	row(w, "VATable sales", r.Sales.VatableSales)
	row(w, "VAT amount", r.Sales.VatAmount)
	row(w, "VAT exempt sales", r.Sales.VatExemptSales)
	row(w, "Zero rated sales", r.Sales.ZeroRatedSales)
	row(w, "Gross amount", r.Sales.GrossAmount)
	row(w, "Less discount", r.Sales.LessDiscount)
	row(w, "Less return", r.Sales.LessReturn)
	row(w, "Less void", r.Sales.LessVoid)
	row(w, "Less VAT adjustment", r.Sales.LessVatAdjustment)
	row(w, "Net amount", r.Sales.NetAmount)
	rule(w, "-")
	fmt.Fprintln(w, "  DISCOUNT SUMMARY")
	row(w, "SC disc", r.Discounts.SeniorCitizen)
	row(w, "PWD disc", r.Discounts.PWD)
	row(w, "Other disc", r.Discounts.Other)
	row(w, "Promo disc", r.Discounts.Promo)
	row(w, "Coupon disc", r.Discounts.Coupon)
	rule(w, "-")
	fmt.Fprintln(w, "  SALES ADJUSTMENT")
	row(w, "Return", r.Adjustments.Return)
	row(w, "Void", r.Adjustments.Void)
	rule(w, "-")
	fmt.Fprintln(w, "  PAYMENTS RECEIVED")
	row(w, "Cash", r.Payments.Cash)
	for _, p := range r.Payments.OtherPayments {
		row(w, p.Name, p.Amount)
	}
	row(w, "Total", r.PaymentsReceived)
	rule(w, "-")
	row(w, "Opening fund", r.OpeningFund)
	row(w, "Withdrawal", r.Withdrawal)
	row(w, "Cash in drawer", r.CashInDrawer)
	row(w, "Short/Over", r.ShortOver)
	rule(w, "=")
}

func printTruncate(w io.Writer, r *core.TruncateResult) {
	fmt.Fprintf(w, "Truncated %s data (reset #%d) at %s.\n", r.Mode, r.ResetCounter, r.CompletedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Orders removed      : %d\n", r.OrdersRemoved)
	fmt.Fprintf(w, "  Journal rows removed: %d\n", r.JournalRemoved)
	fmt.Fprintf(w, "  Carried forward     : %s\n", core.FormatPeso(r.CarriedForward))
	for _, f := range r.BackupFiles {
		fmt.Fprintf(w, "  Backup: %s\n", f)
	}
}

func printTerminal(w io.Writer, r *app.TerminalResult) {
	info := r.Info
	fmt.Fprintln(w)
	rule(w, "=")
	fmt.Fprintf(w, "  %s\n", info.RegisteredName)
	rule(w, "=")
	text(w, "Serial no.", info.PosSerialNumber)
	text(w, "MIN", info.MinNumber)
	text(w, "Accreditation", info.AccreditationNumber)
	text(w, "PTU", info.PtuNumber)
	text(w, "Operated by", info.OperatedBy)
	text(w, "VAT TIN", info.VatTinNumber)
	text(w, "Mode", string(info.Mode()))
	if info.ValidUntil != nil {
		text(w, "Valid until", info.ValidUntil.Format("2006-01-02"))
	}
	rule(w, "-")
	text(w, "Z counter", strconv.FormatInt(info.ZCounterNo, 10))
	text(w, "Z counter (train)", strconv.FormatInt(info.ZCounterTrainNo, 10))
	text(w, "Reset counter", strconv.FormatInt(info.ResetCounterNo, 10))
	text(w, "Reset counter (train)", strconv.FormatInt(info.ResetCounterTrainNo, 10))
	if r.Status != nil && r.Status.Message != "" {
		rule(w, "-")
		fmt.Fprintf(w, "  %s\n", r.Status.Message)
	}
	rule(w, "=")
}

func printDrawer(w io.Writer, s *core.DrawerStatus) {
	fmt.Fprintln(w)
	rule(w, "=")
	fmt.Fprintf(w, "  DRAWER: %s (shift %d)\n", s.Shift.CashierEmail, s.Shift.ID)
	rule(w, "=")
	row(w, "Cash in", s.CashIn)
	row(w, "Cash sales", s.CashSales)
	row(w, "Withdrawals", s.Withdrawals)
	rule(w, "-")
	row(w, "Expected in drawer", s.Expected)
	rule(w, "=")
}

func printInvoices(w io.Writer, r *app.InvoiceListResult) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-12s %-9s %-24s %14s\n", "INVOICE", "STATUS", "CASHIER", "TOTAL")
	fmt.Fprintln(w, strings.Repeat("-", 64))
	total := decimal.Zero
	for _, inv := range r.Invoices {
		fmt.Fprintf(w, "  %-12s %-9s %-24s %14s\n", inv.InvoiceNumber, inv.Status, inv.CashierEmail, core.FormatPeso(inv.TotalAmount))
		if inv.Status == core.OrderFinalized {
			total = total.Add(inv.TotalAmount)
		}
	}
	fmt.Fprintln(w, strings.Repeat("-", 64))
	fmt.Fprintf(w, "  %d invoice(s), %s finalized (%s)\n", len(r.Invoices), core.FormatPeso(total), r.Mode)
}

func printReceipt(w io.Writer, r *core.Receipt) {
	fmt.Fprintln(w)
	rule(w, "=")
	fmt.Fprintf(w, "  SALES INVOICE #%s\n", r.InvoiceNumber)
	if r.Mode == core.ModeTraining {
		fmt.Fprintln(w, "  *** TRAINING MODE ***")
	}
	if r.FinalizedAt != nil {
		text(w, "Date", r.FinalizedAt.Format("2006-01-02 15:04"))
	}
	text(w, "Cashier", r.CashierEmail)
	text(w, "Status", string(r.Status))
	rule(w, "-")
	for _, g := range r.Groups {
		for _, l := range g.Lines {
			name := l.DisplayName
			if l.Quantity > 1 && !l.IsAdjustment() {
				name = fmt.Sprintf("%dx %s", l.Quantity, name)
			}
			fmt.Fprintf(w, "  %-32s %12s\n", name, l.DisplayPrice)
		}
	}
	rule(w, "-")
	row(w, "Subtotal", r.Totals.Subtotal)
	if r.DiscountType != "" {
		row(w, "Discount ("+r.DiscountType+")", r.Totals.DiscountAmount)
	}
	row(w, "Total", r.Totals.TotalAmount)
	row(w, "Cash", r.CashTendered)
	for _, p := range r.AlternativePayments {
		row(w, p.SaleType, p.Amount)
	}
	row(w, "Change", r.ChangeAmount)
	rule(w, "-")
	row(w, "VATable sales", r.Totals.VatSales)
	row(w, "VAT amount", r.Totals.VatAmount)
	row(w, "VAT exempt", r.Totals.VatExempt)
	for i, name := range r.EligibleNames {
		osca := ""
		if i < len(r.OscaIDs) {
			osca = r.OscaIDs[i]
		}
		text(w, name, osca)
	}
	rule(w, "=")
}

func printJournal(w io.Writer, r *app.JournalResult) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  JOURNAL #%s\n", r.InvoiceNumber)
	fmt.Fprintf(w, "  %-3s %-22s %-9s %12s %12s\n", "LN", "ACCOUNT", "STATUS", "DEBIT", "CREDIT")
	fmt.Fprintln(w, strings.Repeat("-", 64))
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range r.Lines {
		fmt.Fprintf(w, "  %-3d %-22s %-9s %12s %12s\n", l.EntryLineNo, l.AccountName, l.Status, l.Debit.StringFixed(2), l.Credit.StringFixed(2))
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	fmt.Fprintln(w, strings.Repeat("-", 64))
	fmt.Fprintf(w, "  %-36s %12s %12s\n", "TOTAL", debit.StringFixed(2), credit.StringFixed(2))
}

func printBackup(w io.Writer, s *archive.Summary) {
	fmt.Fprintf(w, "  %s\n", s.Path)
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-24s %8d\n", name, s.Tables[name])
	}
}
