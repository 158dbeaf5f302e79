package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-core/internal/core"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleSnapshot() *core.Snapshot {
	taken := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	inv1, inv2 := int64(11), int64(12)
	parent := int64(100)
	shiftID := int64(5)
	out := d("1500")
	return &core.Snapshot{
		Mode:    core.ModeTraining,
		ResetNo: 3,
		TakenAt: taken,
		Orders: []*core.Order{
			{
				ID: 1, InvoiceNo: &inv1, Mode: core.ModeTraining, Status: core.OrderFinalized,
				Totals:       core.Totals{Subtotal: d("120.50"), TotalAmount: d("120.50"), VatSales: d("120.50"), VatAmount: d("12.91")},
				CashTendered: d("200"), ChangeAmount: d("79.50"),
				Items: []core.OrderItem{
					{ID: 100, Kind: core.KindMenu, CatalogID: 1, Name: "Burger Meal", Quantity: 1, UnitPrice: d("110.50"), EntryID: "e1", CreatedAt: taken},
					{ID: 101, Kind: core.KindDrink, CatalogID: 4, Name: "Iced Tea", Size: "M", Quantity: 1, UnitPrice: d("10"), ParentID: &parent, CreatedAt: taken},
				},
				CreatedAt: taken,
			},
			{
				ID: 2, InvoiceNo: &inv2, Mode: core.ModeTraining, Status: core.OrderReturned,
				EligibleNames: []string{"Ana", "Ben"}, OscaIDs: []string{"O-1", "O-2"},
				Items: []core.OrderItem{
					{ID: 102, Kind: core.KindMenu, CatalogID: 2, Name: "Club", Quantity: 2, UnitPrice: d("75"), EntryID: "e2", CreatedAt: taken},
				},
				AlternativePayments: []core.AlternativePayment{{ID: 9, SaleType: "GCASH", Reference: "GC-77", Amount: d("150")}},
				CreatedAt:           taken,
			},
		},
		Shifts: []*core.Shift{{ID: shiftID, Mode: core.ModeTraining, CashierEmail: "user1@example.com",
			CashInAmount: d("1000"), CashOutAmount: &out, ManagerInEmail: "user9@example.com", TsIn: taken}},
		UserLogs: []core.UserLog{{ID: 1, ShiftID: &shiftID, Mode: core.ModeTraining, CashierEmail: "user1@example.com",
			ManagerEmail: "user9@example.com", Action: "WITHDRAW", Amount: d("200"), CreatedAt: taken}},
		Journal: []core.JournalLine{
			{ID: 1, EntryNo: 11, EntryLineNo: core.LineTender, EntryName: "Cash Tendered", AccountName: "Cash", Debit: d("200"), Credit: d("0")},
			{ID: 2, EntryNo: 11, EntryLineNo: core.LineTotals, EntryName: "Total Amount", AccountName: "Sales", Debit: d("120.50"), Credit: d("0")},
		},
		Terminal:   &core.TerminalInfo{RegisteredName: "Demo Kitchen", PosSerialNumber: "SN-1", MinNumber: "MIN-1"},
		CarriedIn:  d("0"),
		CarriedOut: d("120.50"),
	}
}

func TestFileNames(t *testing.T) {
	snap := sampleSnapshot()
	orders, journal := FileNames(snap)
	assert.Equal(t, "Order_3_20260302_180000_Train.db", orders)
	assert.Equal(t, "Journal_3_20260302_180000_Train.db", journal)

	snap.Mode = core.ModeLive
	orders, _ = FileNames(snap)
	assert.Equal(t, "Order_3_20260302_180000.db", orders)
}

func TestSQLiteWriter_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	w := NewSQLiteWriter(dir)

	paths, err := w.Write(context.Background(), sampleSnapshot())
	require.NoError(t, err)
	require.Len(t, paths, 2)

	orders, err := Inspect(paths[0])
	require.NoError(t, err)
	assert.Equal(t, int64(2), orders.Tables["orders"])
	assert.Equal(t, int64(3), orders.Tables["order_items"])
	assert.Equal(t, int64(1), orders.Tables["alternative_payments"])
	assert.Equal(t, int64(1), orders.Tables["shifts"])
	assert.Equal(t, int64(1), orders.Tables["user_logs"])
	assert.Equal(t, int64(1), orders.Tables["snapshot_info"])

	journal, err := Inspect(paths[1])
	require.NoError(t, err)
	assert.Equal(t, int64(2), journal.Tables["account_journal"])

	db, err := open(paths[0])
	require.NoError(t, err)
	defer closeDB(db)

	var row OrderRow
	require.NoError(t, db.First(&row, 2).Error)
	assert.Equal(t, "RETURNED", row.Status)
	assert.Equal(t, "Ana|Ben", row.EligibleNames)

	var first OrderRow
	require.NoError(t, db.First(&first, 1).Error)
	assert.True(t, d("79.50").Equal(first.ChangeAmount), "money survives as exact text, got %s", first.ChangeAmount)

	var info InfoRow
	require.NoError(t, db.First(&info).Error)
	assert.Equal(t, "Demo Kitchen", info.RegisteredName)
	assert.True(t, d("120.50").Equal(info.CarriedOut))
}

func TestSQLiteWriter_EmptySnapshot(t *testing.T) {
	w := NewSQLiteWriter(t.TempDir())
	paths, err := w.Write(context.Background(), &core.Snapshot{Mode: core.ModeLive, TakenAt: time.Now()})
	require.NoError(t, err)

	s, err := Inspect(paths[0])
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.Tables["orders"])
	assert.Equal(t, int64(1), s.Tables["snapshot_info"])
}

func TestSQLiteWriter_UnwritableDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewSQLiteWriter(blocker).Write(context.Background(), sampleSnapshot())
	assert.Error(t, err)
}

func TestSQLiteWriter_KeepsExistingBackup(t *testing.T) {
	dir := t.TempDir()
	snap := sampleSnapshot()
	orderName, journalName := FileNames(snap)
	existing := filepath.Join(dir, orderName)
	require.NoError(t, os.WriteFile(existing, []byte("earlier backup"), 0o644))

	_, err := NewSQLiteWriter(dir).Write(context.Background(), snap)
	require.ErrorIs(t, err, os.ErrExist)

	got, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "earlier backup", string(got))
	assert.NoFileExists(t, filepath.Join(dir, journalName))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no scratch files are left behind")
}

func TestSQLiteWriter_LeavesNoScratchFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := NewSQLiteWriter(dir).Write(context.Background(), sampleSnapshot())
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "*.partial"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestInspect_Missing(t *testing.T) {
	_, err := Inspect(filepath.Join(t.TempDir(), "nope.db"))
	assert.Error(t, err)
}
