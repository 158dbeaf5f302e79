// Package archive writes truncation snapshots to standalone SQLite files.
package archive

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pos-core/internal/core"
)

const batchSize = 200

// SQLiteWriter backs a snapshot up into two files under Dir:
// Order_{reset}_{yyyyMMdd_HHmmss}{_Train}.db and Journal_{...}.db.
type SQLiteWriter struct {
	Dir string
}

func NewSQLiteWriter(dir string) *SQLiteWriter {
	return &SQLiteWriter{Dir: dir}
}

// FileNames returns the order and journal file names of a snapshot.
func FileNames(snap *core.Snapshot) (string, string) {
	suffix := ""
	if snap.Mode == core.ModeTraining {
		suffix = "_Train"
	}
	stamp := snap.TakenAt.Format("20060102_150405")
	return fmt.Sprintf("Order_%d_%s%s.db", snap.ResetNo, stamp, suffix),
		fmt.Sprintf("Journal_%d_%s%s.db", snap.ResetNo, stamp, suffix)
}

// Write builds both files concurrently under temporary names and links them into
// place only once both are complete. An existing backup with the same name is
// never overwritten or removed; the write fails instead.
func (w *SQLiteWriter) Write(ctx context.Context, snap *core.Snapshot) ([]string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	orderName, journalName := FileNames(snap)
	orderPath := filepath.Join(w.Dir, orderName)
	journalPath := filepath.Join(w.Dir, journalName)
	for _, p := range []string{orderPath, journalPath} {
		if _, err := os.Stat(p); err == nil {
			return nil, fmt.Errorf("backup %s: %w", filepath.Base(p), os.ErrExist)
		}
	}

	orderTmp, err := tempFile(w.Dir, orderName)
	if err != nil {
		return nil, err
	}
	defer os.Remove(orderTmp)
	journalTmp, err := tempFile(w.Dir, journalName)
	if err != nil {
		return nil, err
	}
	defer os.Remove(journalTmp)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return writeOrders(gctx, orderTmp, snap) })
	g.Go(func() error { return writeJournal(gctx, journalTmp, snap) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := os.Link(orderTmp, orderPath); err != nil {
		return nil, fmt.Errorf("failed to publish %s: %w", orderName, err)
	}
	if err := os.Link(journalTmp, journalPath); err != nil {
		_ = os.Remove(orderPath)
		return nil, fmt.Errorf("failed to publish %s: %w", journalName, err)
	}

	log.Printf("backed up %d orders and %d journal lines to %s", len(snap.Orders), len(snap.Journal), w.Dir)
	return []string{orderPath, journalPath}, nil
}

// tempFile reserves a unique scratch path next to the final file.
func tempFile(dir, name string) (string, error) {
	f, err := os.CreateTemp(dir, strings.TrimSuffix(name, ".db")+"_*.partial")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file for %s: %w", name, err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to create scratch file for %s: %w", name, err)
	}
	return path, nil
}

func open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func create[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, batchSize).Error
}

func writeOrders(ctx context.Context, path string, snap *core.Snapshot) error {
	db, err := open(path)
	if err != nil {
		return err
	}
	defer closeDB(db)
	db = db.WithContext(ctx)

	if err := db.AutoMigrate(&OrderRow{}, &ItemRow{}, &PaymentRow{}, &ShiftRow{}, &UserLogRow{}, &InfoRow{}); err != nil {
		return fmt.Errorf("failed to create order backup schema: %w", err)
	}

	orders, items, payments := orderRows(snap.Orders)
	shifts := make([]ShiftRow, 0, len(snap.Shifts))
	for _, sh := range snap.Shifts {
		shifts = append(shifts, ShiftRow{
			ID: sh.ID, Mode: string(sh.Mode), CashierEmail: sh.CashierEmail,
			CashInAmount: sh.CashInAmount, CashOutAmount: sh.CashOutAmount,
			ManagerInEmail: sh.ManagerInEmail, ManagerOutEmail: sh.ManagerOutEmail,
			TsIn: sh.TsIn, TsOut: sh.TsOut,
		})
	}
	logs := make([]UserLogRow, 0, len(snap.UserLogs))
	for _, l := range snap.UserLogs {
		logs = append(logs, UserLogRow{
			ID: l.ID, ShiftID: l.ShiftID, Mode: string(l.Mode), CashierEmail: l.CashierEmail,
			ManagerEmail: l.ManagerEmail, Action: l.Action, Amount: l.Amount, CreatedAt: l.CreatedAt,
		})
	}
	info := InfoRow{Mode: string(snap.Mode), ResetNo: snap.ResetNo, TakenAt: snap.TakenAt,
		CarriedIn: snap.CarriedIn, CarriedOut: snap.CarriedOut}
	if t := snap.Terminal; t != nil {
		info.RegisteredName, info.PosSerialNumber, info.MinNumber = t.RegisteredName, t.PosSerialNumber, t.MinNumber
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := create(tx, orders); err != nil {
			return err
		}
		if err := create(tx, items); err != nil {
			return err
		}
		if err := create(tx, payments); err != nil {
			return err
		}
		if err := create(tx, shifts); err != nil {
			return err
		}
		if err := create(tx, logs); err != nil {
			return err
		}
		return tx.Create(&info).Error
	})
	if err != nil {
		return fmt.Errorf("failed to write order backup: %w", err)
	}
	return nil
}

func orderRows(orders []*core.Order) ([]OrderRow, []ItemRow, []PaymentRow) {
	var (
		out      = make([]OrderRow, 0, len(orders))
		items    []ItemRow
		payments []PaymentRow
	)
	for _, o := range orders {
		t := o.Totals
		out = append(out, OrderRow{
			ID:             o.ID,
			InvoiceNo:      o.InvoiceNo,
			Mode:           string(o.Mode),
			Status:         string(o.Status),
			IsRead:         o.IsRead,
			OrderType:      o.OrderType,
			CashierEmail:   o.CashierEmail,
			Subtotal:       t.Subtotal,
			DiscountAmount: t.DiscountAmount,
			TotalAmount:    t.TotalAmount,
			VatSales:       t.VatSales,
			VatAmount:      t.VatAmount,
			VatExempt:      t.VatExempt,
			DueAmount:      t.DueAmount,
			DiscountType:   o.DiscountType,
			EligibleNames:  strings.Join(o.EligibleNames, "|"),
			OscaIDs:        strings.Join(o.OscaIDs, "|"),
			CashTendered:   o.CashTendered,
			TotalTendered:  o.TotalTendered,
			ChangeAmount:   o.ChangeAmount,
			CreatedAt:      o.CreatedAt,
			FinalizedAt:    o.FinalizedAt,
			ReturnedAt:     o.ReturnedAt,
		})
		for _, it := range o.Items {
			items = append(items, ItemRow{
				ID: it.ID, OrderID: o.ID, Kind: string(it.Kind), CatalogID: it.CatalogID,
				Name: it.Name, Size: it.Size, Quantity: it.Quantity, UnitPrice: it.UnitPrice,
				EntryID: it.EntryID, ParentID: it.ParentID, IsVoid: it.IsVoid, CreatedAt: it.CreatedAt,
			})
		}
		for _, p := range o.AlternativePayments {
			payments = append(payments, PaymentRow{
				ID: p.ID, OrderID: o.ID, SaleType: p.SaleType, Reference: p.Reference, Amount: p.Amount,
			})
		}
	}
	return out, items, payments
}

func writeJournal(ctx context.Context, path string, snap *core.Snapshot) error {
	db, err := open(path)
	if err != nil {
		return err
	}
	defer closeDB(db)
	db = db.WithContext(ctx)

	if err := db.AutoMigrate(&JournalRow{}); err != nil {
		return fmt.Errorf("failed to create journal backup schema: %w", err)
	}
	rows := make([]JournalRow, 0, len(snap.Journal))
	for _, l := range snap.Journal {
		rows = append(rows, JournalRow{
			ID: l.ID, EntryNo: l.EntryNo, EntryLineNo: l.EntryLineNo, EntryName: l.EntryName,
			AccountName: l.AccountName, Description: l.Description, Reference: l.Reference,
			Status: string(l.Status), Debit: l.Debit, Credit: l.Credit, QtyOut: l.QtyOut,
			Price: l.Price, Vatable: l.Vatable, SubTotal: l.SubTotal, EntryDate: l.EntryDate,
		})
	}
	if err := create(db, rows); err != nil {
		return fmt.Errorf("failed to write journal backup: %w", err)
	}
	return nil
}

// Summary is the row count per table of one backup file.
type Summary struct {
	Path   string           `json:"path"`
	Tables map[string]int64 `json:"tables"`
}

// Inspect counts the rows of every table in a backup file.
func Inspect(path string) (*Summary, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("backup %s: %w", path, err)
	}
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	defer closeDB(db)

	tables, err := db.Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	s := &Summary{Path: path, Tables: map[string]int64{}}
	for _, t := range tables {
		var n int64
		if err := db.Table(t).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", t, err)
		}
		s.Tables[t] = n
	}
	return s, nil
}
