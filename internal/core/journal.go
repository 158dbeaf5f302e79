package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Journal line numbering.
const (
	LineTender    = 0
	LineItem      = 3
	LineStatutory = 5 // first PWD/SC reference line; one per eligible person
	LineTotals    = 10
)

type JournalStatus string

const (
	JournalPosted   JournalStatus = "Posted"
	JournalUnposted JournalStatus = "Unposted"
	JournalReturned JournalStatus = "Returned"
)

// JournalLine is one row of the append-only account journal. EntryNo is the
// invoice number of the order it belongs to.
type JournalLine struct {
	ID          int64           `json:"id,omitempty"`
	EntryNo     int64           `json:"entry_no"`
	EntryLineNo int             `json:"entry_line_no"`
	EntryName   string          `json:"entry_name"`
	AccountName string          `json:"account_name"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	Status      JournalStatus   `json:"status"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	QtyOut      int             `json:"qty_out"`
	Price       decimal.Decimal `json:"price"`
	Vatable     decimal.Decimal `json:"vatable"`
	SubTotal    decimal.Decimal `json:"sub_total"`
	EntryDate   time.Time       `json:"entry_date"`
}

// BuildJournalLines is the single posting function: it turns one finalized or
// returned order into its journal lines. Only non-voided items are posted. PWD/SC
// names and OSCA ids are paired positionally and truncated to the shorter list.
// A returned order posts every amount on the credit side with status Returned.
func BuildJournalLines(o *Order, saleTypes map[string]SaleType) []JournalLine {
	if o.InvoiceNo == nil {
		return nil
	}
	entryNo := *o.InvoiceNo
	returned := o.Status == OrderReturned
	status := JournalPosted
	if returned {
		status = JournalReturned
	}
	entryDate := o.CreatedAt
	if o.FinalizedAt != nil {
		entryDate = *o.FinalizedAt
	}

	newLine := func(lineNo int, name, account, desc string) JournalLine {
		return JournalLine{
			EntryNo:     entryNo,
			EntryLineNo: lineNo,
			EntryName:   name,
			AccountName: account,
			Description: desc,
			Status:      status,
			Debit:       decimal.Zero,
			Credit:      decimal.Zero,
			Price:       decimal.Zero,
			Vatable:     decimal.Zero,
			SubTotal:    decimal.Zero,
			EntryDate:   entryDate,
		}
	}
	book := func(l *JournalLine, amount decimal.Decimal) {
		if returned {
			l.Credit = amount
		} else {
			l.Debit = amount
		}
	}

	var lines []JournalLine

	for _, it := range o.ActiveItems() {
		l := newLine(LineItem, it.EntryID, it.Name, it.Kind.Description())
		l.QtyOut = it.Quantity
		l.Price = it.UnitPrice
		l.SubTotal = it.Subtotal()
		l.EntryDate = it.CreatedAt
		lines = append(lines, l)
	}

	if IsStatutory(o.Discount) {
		n := min(len(o.EligibleNames), len(o.OscaIDs))
		for i := 0; i < n; i++ {
			l := newLine(LineStatutory+i, o.DiscountType, o.EligibleNames[i], "PWD/SC")
			l.Reference = o.OscaIDs[i]
			lines = append(lines, l)
		}
	}

	if o.CashTendered.IsPositive() {
		l := newLine(LineTender, "Cash Tendered", "Cash", "Cash Tendered")
		book(&l, o.CashTendered)
		lines = append(lines, l)
	}
	for _, p := range o.AlternativePayments {
		st, ok := saleTypes[p.SaleType]
		if !ok {
			st = SaleType{Name: p.SaleType, Account: p.SaleType, Type: "CHARGE"}
		}
		l := newLine(LineTender, st.Name, st.Account, st.Type)
		l.Reference = p.Reference
		book(&l, p.Amount)
		lines = append(lines, l)
	}

	if o.Totals.DiscountAmount.IsPositive() {
		account := o.DiscountType
		if account == "" {
			account = "Discount"
		}
		l := newLine(LineTotals, "Discount Amount", account, "Discount")
		book(&l, o.Totals.DiscountAmount)
		lines = append(lines, l)
	}

	total := newLine(LineTotals, "Total Amount", "Sales", "Order Total")
	book(&total, o.Totals.TotalAmount)
	lines = append(lines, total)

	vat := newLine(LineTotals, "VAT Amount", "VAT", "Order VAT")
	vat.Vatable = o.Totals.VatAmount
	lines = append(lines, vat)

	exempt := newLine(LineTotals, "VAT Exempt Amount", "VAT Exempt", "Order VAT Exempt")
	exempt.Vatable = o.Totals.VatExempt
	lines = append(lines, exempt)

	sub := newLine(LineTotals, "Sub Total", "SubTotal", "Order SubTotal")
	sub.SubTotal = o.Totals.DueAmount
	lines = append(lines, sub)

	return lines
}

// JournalService posts finalized orders into the account journal.
type JournalService interface {
	// PostJournal posts the invoice of mode. Training invoices succeed without
	// posting. A second post of the same invoice fails with ErrAlreadyPosted and
	// leaves the journal unchanged.
	PostJournal(ctx context.Context, mode Mode, invoiceNo int64) error
	// PostOrder is PostJournal addressed by internal order id.
	PostOrder(ctx context.Context, orderID int64) error
	// ReverseTx flips debit/credit of the invoice's posted lines and marks them
	// Returned. It runs inside the caller's return transaction.
	ReverseTx(ctx context.Context, tx pgx.Tx, invoiceNo int64) (int64, error)
	// UnpostReference marks one PWD/SC reference line Unposted.
	UnpostReference(ctx context.Context, invoiceNo int64, reference string) error
	Entries(ctx context.Context, invoiceNo int64) ([]JournalLine, error)
}

type journalService struct {
	pool    *pgxpool.Pool
	catalog Catalog
}

func NewJournalService(pool *pgxpool.Pool, catalog Catalog) JournalService {
	return &journalService{pool: pool, catalog: catalog}
}

func (s *journalService) PostJournal(ctx context.Context, mode Mode, invoiceNo int64) error {
	if mode == ModeTraining {
		return nil
	}
	return s.post(ctx, func(tx pgx.Tx) (*Order, error) {
		return loadInvoice(ctx, tx, mode, invoiceNo, true)
	})
}

func (s *journalService) PostOrder(ctx context.Context, orderID int64) error {
	return s.post(ctx, func(tx pgx.Tx) (*Order, error) {
		return loadOrder(ctx, tx, orderID, true)
	})
}

// post locks the order row for the whole posting so reports reading the order wait
// until its lines are either fully present or absent.
func (s *journalService) post(ctx context.Context, load func(pgx.Tx) (*Order, error)) error {
	saleTypes, err := s.catalog.SaleTypes(ctx)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := load(tx)
	if err != nil {
		return err
	}
	if order.Mode == ModeTraining {
		log.Printf("skipping journal for training order %d", order.ID)
		return nil
	}
	if order.Status != OrderFinalized && order.Status != OrderReturned {
		return fmt.Errorf("order %d is %s: %w", order.ID, order.Status, ErrOrderNotFinalized)
	}

	var existing int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM account_journal WHERE entry_no = $1", *order.InvoiceNo).Scan(&existing); err != nil {
		return fmt.Errorf("failed to check existing journal lines: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("invoice %s: %w", order.InvoiceNumber(), ErrAlreadyPosted)
	}

	lines := BuildJournalLines(order, saleTypes)
	if err := insertJournalLines(ctx, tx, lines); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit journal: %w", err)
	}
	log.Printf("posted %d journal lines for invoice %s", len(lines), order.InvoiceNumber())
	return nil
}

func insertJournalLines(ctx context.Context, tx pgx.Tx, lines []JournalLine) error {
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`
			INSERT INTO account_journal
			    (entry_no, entry_line_no, entry_name, account_name, description, reference, status,
			     debit, credit, qty_out, price, vatable, sub_total, entry_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`, l.EntryNo, l.EntryLineNo, l.EntryName, l.AccountName, l.Description, l.Reference, l.Status,
			l.Debit, l.Credit, l.QtyOut, l.Price, l.Vatable, l.SubTotal, l.EntryDate)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert journal lines: %w", err)
	}
	return nil
}

func (s *journalService) ReverseTx(ctx context.Context, tx pgx.Tx, invoiceNo int64) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE account_journal
		SET debit = credit, credit = debit, status = 'Returned'
		WHERE entry_no = $1 AND status = 'Posted'
	`, invoiceNo)
	if err != nil {
		return 0, fmt.Errorf("failed to reverse journal for invoice %d: %w", invoiceNo, err)
	}
	return tag.RowsAffected(), nil
}

func (s *journalService) UnpostReference(ctx context.Context, invoiceNo int64, reference string) error {
	if reference == "" {
		return ErrMissingReference
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE account_journal
		SET status = 'Unposted'
		WHERE entry_no = $1 AND reference = $2 AND entry_line_no >= $3 AND status = 'Posted'
	`, invoiceNo, reference, LineStatutory)
	if err != nil {
		return fmt.Errorf("failed to unpost reference %q: %w", reference, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no PWD/SC line %q on invoice %s: %w", reference, FormatOrderNumber(invoiceNo), ErrJournalLineNotFound)
	}
	return nil
}

func (s *journalService) Entries(ctx context.Context, invoiceNo int64) ([]JournalLine, error) {
	return queryJournal(ctx, s.pool, `entry_no = $1`, invoiceNo)
}

func queryJournal(ctx context.Context, q pgxQuerier, cond string, args ...any) ([]JournalLine, error) {
	rows, err := q.Query(ctx, `
		SELECT id, entry_no, entry_line_no, entry_name, account_name, description, reference, status,
		       debit, credit, qty_out, price, vatable, sub_total, entry_date
		FROM account_journal
		WHERE `+cond+`
		ORDER BY entry_no, entry_line_no, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var out []JournalLine
	for rows.Next() {
		var l JournalLine
		if err := rows.Scan(&l.ID, &l.EntryNo, &l.EntryLineNo, &l.EntryName, &l.AccountName, &l.Description,
			&l.Reference, &l.Status, &l.Debit, &l.Credit, &l.QtyOut, &l.Price, &l.Vatable, &l.SubTotal, &l.EntryDate); err != nil {
			return nil, fmt.Errorf("failed to scan journal line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
