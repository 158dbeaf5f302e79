package core_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"pos-core/internal/core"
	"pos-core/migrations"
)

const (
	manager = "manager@test.local"
	burger  = 1
	club    = 2
	teaM    = 4
)

var approved = core.ManagerApproval{Email: manager}

func cashier(n int) string { return fmt.Sprintf("cashier%d@test.local", n) }

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live till.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if _, err := migrations.Apply(ctx, pool); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE account_journal, user_logs, shifts, alternative_payments, order_items, orders,
			coupon_promo_menus, coupon_promos, sale_types, menus, users RESTART IDENTITY CASCADE;

		UPDATE pos_counters SET last_invoice_no = 0, z_counter = 0, reset_counter = 0, carried_sales = 0, version = 0;
		UPDATE pos_terminal_info SET is_train_mode = false, valid_until = NULL, registered_name = 'Test Kitchen';

		INSERT INTO users (email, first_name, last_name, role) VALUES
		('cashier1@test.local', 'Ana', 'Cruz', 'Cashier'),
		('cashier2@test.local', 'Ben', 'Reyes', 'Cashier'),
		('cashier3@test.local', 'Cara', 'Santos', 'Cashier'),
		('cashier4@test.local', 'Dan', 'Lim', 'Cashier'),
		('manager@test.local', 'Mia', 'Tan', 'Manager');

		INSERT INTO menus (id, kind, name, size, price) VALUES
		(1, 'MENU', 'Burger', '', 100),
		(2, 'MENU', 'Club', '', 150),
		(3, 'DRINK', 'Iced Tea', 'R', 40),
		(4, 'DRINK', 'Iced Tea', 'M', 50),
		(5, 'DRINK', 'Iced Tea', 'L', 60);

		INSERT INTO sale_types (name, account, type) VALUES ('GCASH', 'E-Wallet Receivable', 'E-WALLET');

		INSERT INTO coupon_promos (id, code, kind, coupon_amount, coupon_item_quantity) VALUES (1, 'BKS_COUPON', 'COUPON', 30, 2);
		INSERT INTO coupon_promos (id, code, kind, promo_percent) VALUES (2, 'SUMMER15', 'PROMO', 15);
		INSERT INTO coupon_promo_menus (coupon_promo_id, menu_id) VALUES (1, 1);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

type testServices struct {
	orders   core.OrderService
	journal  core.JournalService
	shifts   core.ShiftService
	reports  core.ReportingService
	counters core.CounterService
	terminal core.TerminalService
	archive  core.ArchiveService
}

func newTestServices(pool *pgxpool.Pool, writer core.SnapshotWriter) testServices {
	catalog := core.NewCatalog(pool)
	users := core.NewUserService(pool)
	counters := core.NewCounterService(pool)
	terminal := core.NewTerminalService(pool, counters, users)
	journal := core.NewJournalService(pool, catalog)
	return testServices{
		orders:   core.NewOrderService(pool, catalog, users, terminal, counters, journal),
		journal:  journal,
		shifts:   core.NewShiftService(pool, users, terminal, decimal.NewFromInt(1000)),
		reports:  core.NewReportingService(pool, users, counters),
		counters: counters,
		terminal: terminal,
		archive:  core.NewArchiveService(pool, users, counters, writer),
	}
}

func composeBurger(t *testing.T, svc testServices, cashierEmail string) *core.Order {
	t.Helper()
	order, err := svc.orders.ComposeOrder(context.Background(), core.ComposeRequest{
		CashierEmail: cashierEmail,
		Lines:        []core.LineInput{{Kind: core.KindMenu, ItemID: burger, Quantity: 1}},
	})
	require.NoError(t, err)
	return order
}

func cashOnly(amount string) core.Tender {
	return core.Tender{CashTendered: decimal.RequireFromString(amount)}
}

func TestOrder_MealWithStatutoryDiscount(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool, nil)
	ctx := context.Background()

	order, err := svc.orders.ComposeOrder(ctx, core.ComposeRequest{
		CashierEmail: cashier(1),
		Lines: []core.LineInput{
			{Kind: core.KindMenu, ItemID: burger, Quantity: 1, EntryID: "A"},
			{Kind: core.KindDrink, ItemID: teaM, Quantity: 1, ParentEntryID: "A"},
			{Kind: core.KindMenu, ItemID: club, Quantity: 1, EntryID: "B"},
		},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 3)
	// the bundled drink is priced as its upgrade over Regular
	assertDec(t, "260", order.Totals.Subtotal)

	_, err = svc.orders.ApplyDiscount(ctx, order.ID, core.DiscountRequest{Kind: core.DiscountPWD, EntryIDs: []string{"A"}})
	assert.ErrorIs(t, err, core.ErrApprovalRequired)

	order, err = svc.orders.ApplyDiscount(ctx, order.ID, core.DiscountRequest{
		Kind: core.DiscountPWD, EntryIDs: []string{"A"},
		EligibleNames: []string{"Lola Basyang"}, OscaIDs: []string{"OSCA-9"},
		Approval: approved,
	})
	require.NoError(t, err)
	assertDec(t, "22", order.Totals.DiscountAmount)
	assertDec(t, "238", order.Totals.TotalAmount)
	assertDec(t, "88", order.Totals.VatExempt)
	assertDec(t, "150", order.Totals.VatSales)

	groups := core.DraftGroups(order)
	require.Len(t, groups, 2)
	require.Len(t, groups[0].Lines, 3)
	assert.Equal(t, "+₱10.00", groups[0].Lines[1].DisplayPrice)
	assert.Equal(t, "-₱22.00", groups[0].Lines[2].DisplayPrice)

	_, err = svc.orders.ApplyDiscount(ctx, order.ID, core.DiscountRequest{Kind: core.DiscountPromo, Code: "SUMMER15"})
	assert.ErrorIs(t, err, core.ErrDiscountConflict)

	_, err = svc.orders.FinalizeOrder(ctx, order.ID, cashOnly("200"))
	assert.ErrorIs(t, err, core.ErrTenderMismatch)

	receipt, err := svc.orders.FinalizeOrder(ctx, order.ID, cashOnly("300"))
	require.NoError(t, err)
	assert.Equal(t, "000000000001", receipt.InvoiceNumber)
	assert.Equal(t, core.OrderFinalized, receipt.Status)
	assertDec(t, "62", receipt.ChangeAmount)

	_, err = svc.orders.VoidItem(ctx, order.ID, order.Items[0].ID, approved)
	assert.ErrorIs(t, err, core.ErrOrderNotPending)
}

func TestOrder_VoidParentVoidsChildren(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool, nil)
	ctx := context.Background()

	order, err := svc.orders.ComposeOrder(ctx, core.ComposeRequest{
		CashierEmail: cashier(1),
		Lines: []core.LineInput{
			{Kind: core.KindMenu, ItemID: burger, Quantity: 1, EntryID: "A"},
			{Kind: core.KindDrink, ItemID: teaM, Quantity: 1, ParentEntryID: "A"},
			{Kind: core.KindMenu, ItemID: club, Quantity: 2},
		},
	})
	require.NoError(t, err)

	var parentID int64
	for _, it := range order.Items {
		if it.EntryID == "A" && it.ParentID == nil {
			parentID = it.ID
		}
	}
	require.NotZero(t, parentID)

	order, err = svc.orders.VoidItem(ctx, order.ID, parentID, approved)
	require.NoError(t, err)
	assert.Len(t, order.ActiveItems(), 1)
	assertDec(t, "300", order.Totals.Subtotal)

	_, err = svc.orders.VoidItem(ctx, order.ID, 999999, approved)
	assert.ErrorIs(t, err, core.ErrItemNotFound)
}

func TestFinalize_ConcurrentInvoiceNumbersAreUnique(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool, nil)
	ctx := context.Background()

	var ids []int64
	for n := 1; n <= 4; n++ {
		ids = append(ids, composeBurger(t, svc, cashier(n)).ID)
	}

	var (
		mu       sync.Mutex
		invoices []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			r, err := svc.orders.FinalizeOrder(gctx, id, cashOnly("100"))
			if err != nil {
				return err
			}
			mu.Lock()
			invoices = append(invoices, r.InvoiceNumber)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	sort.Strings(invoices)
	assert.Equal(t, []string{"000000000001", "000000000002", "000000000003", "000000000004"}, invoices)

	c, err := svc.counters.Get(ctx, core.ModeLive)
	require.NoError(t, err)
	assert.Equal(t, int64(4), c.LastInvoiceNo)
}

func TestCompose_RacingFinalizeNeverTouchesInvoice(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool, nil)
	ctx := context.Background()

	for round := 0; round < 5; round++ {
		order := composeBurger(t, svc, cashier(1))

		var receipt *core.Receipt
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			r, err := svc.orders.FinalizeOrder(gctx, order.ID, cashOnly("1000"))
			receipt = r
			return err
		})
		g.Go(func() error {
			_, err := svc.orders.ComposeOrder(gctx, core.ComposeRequest{
				CashierEmail: cashier(1),
				Lines:        []core.LineInput{{Kind: core.KindMenu, ItemID: club, Quantity: 1}},
			})
			return err
		})
		require.NoError(t, g.Wait())

		stored, err := svc.orders.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, core.OrderFinalized, stored.Status)
		assert.True(t, receipt.Totals.Subtotal.Equal(stored.Totals.Subtotal),
			"round %d: invoice subtotal changed after finalize (%s vs %s)", round, receipt.Totals.Subtotal, stored.Totals.Subtotal)
		assert.True(t, stored.Totals.Subtotal.Equal(sumItems(stored)), "round %d: stored totals drifted from items", round)

		clubs := countClubs(stored)
		pending, err := svc.orders.GetPendingOrder(ctx, cashier(1))
		if err == nil {
			clubs += countClubs(pending)
			_, err = svc.orders.CancelOrder(ctx, pending.ID, approved)
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, core.ErrOrderNotFound)
		}
		assert.Equal(t, 1, clubs, "round %d: the added line lands on exactly one order", round)
	}
}

func sumItems(o *core.Order) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.ActiveItems() {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}

func countClubs(o *core.Order) int {
	n := 0
	for _, it := range o.ActiveItems() {
		if it.CatalogID == club {
			n++
		}
	}
	return n
}

func TestFinalize_TwiceFails(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool, nil)
	ctx := context.Background()

	order := composeBurger(t, svc, cashier(1))
	g, gctx := errgroup.WithContext(ctx)
	results := make([]error, 2)
	for i := range results {
		i := i
		g.Go(func() error {
			_, results[i] = svc.orders.FinalizeOrder(gctx, order.ID, cashOnly("100"))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	failures := 0
	for _, err := range results {
		if err != nil {
			assert.ErrorIs(t, err, core.ErrOrderNotPending)
			failures++
		}
	}
	assert.Equal(t, 1, failures, "exactly one finalization wins")
}

func TestCoupon_RedeemableExactlyQuantityTimes(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool, nil)
	ctx := context.Background()

	var orders []*core.Order
	for n := 1; n <= 3; n++ {
		orders = append(orders, composeBurger(t, svc, cashier(n)))
	}

	var (
		mu        sync.Mutex
		exhausted int
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, o := range orders {
		o := o
		g.Go(func() error {
			_, err := svc.orders.ApplyDiscount(gctx, o.ID, core.DiscountRequest{Kind: core.DiscountCoupon, Code: "BKS_COUPON"})
			if errors.Is(err, core.ErrCouponExhausted) {
				mu.Lock()
				exhausted++
				mu.Unlock()
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, exhausted)

	var remaining int
	require.NoError(t, pool.QueryRow(ctx, "SELECT coupon_item_quantity FROM coupon_promos WHERE code = 'BKS_COUPON'").Scan(&remaining))
	assert.Equal(t, 0, remaining)

	// cancelling a couponed order gives its redemption back
	var couponed *core.Order
	for _, o := range orders {
		current, err := svc.orders.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		if current.Discount.Kind() == core.DiscountCoupon {
			couponed = current
			break
		}
	}
	require.NotNil(t, couponed)
	assertDec(t, "30", couponed.Totals.DiscountAmount)

	_, err := svc.orders.CancelOrder(ctx, couponed.ID, approved)
	require.NoError(t, err)
	require.NoError(t, pool.QueryRow(ctx, "SELECT coupon_item_quantity FROM coupon_promos WHERE code = 'BKS_COUPON'").Scan(&remaining))
	assert.Equal(t, 1, remaining)
}

func TestCoupon_IneligibleOrder(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool, nil)
	ctx := context.Background()

	order, err := svc.orders.ComposeOrder(ctx, core.ComposeRequest{
		CashierEmail: cashier(1),
		Lines:        []core.LineInput{{Kind: core.KindMenu, ItemID: club, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.orders.ApplyDiscount(ctx, order.ID, core.DiscountRequest{Kind: core.DiscountCoupon, Code: "BKS_COUPON"})
	assert.ErrorIs(t, err, core.ErrCouponIneligible)

	_, err = svc.orders.ApplyDiscount(ctx, order.ID, core.DiscountRequest{Kind: core.DiscountPromo, Code: "bad code!"})
	assert.ErrorIs(t, err, core.ErrMalformedCode)

	_, err = svc.orders.ApplyDiscount(ctx, order.ID, core.DiscountRequest{Kind: core.DiscountPromo, Code: "NOPE"})
	assert.ErrorIs(t, err, core.ErrInvalidCode)

	var remaining int
	require.NoError(t, pool.QueryRow(ctx, "SELECT coupon_item_quantity FROM coupon_promos WHERE code = 'BKS_COUPON'").Scan(&remaining))
	assert.Equal(t, 2, remaining, "a rejected coupon is not redeemed")
}

func TestJournal_PostIsIdempotentAndReturnFlips(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool, nil)
	ctx := context.Background()

	order := composeBurger(t, svc, cashier(1))
	_, err := svc.orders.FinalizeOrder(ctx, order.ID, core.Tender{
		CashTendered:        decimal.NewFromInt(50),
		AlternativePayments: []core.AlternativePayment{{SaleType: "GCASH", Reference: "GC-1", Amount: decimal.NewFromInt(50)}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.journal.PostJournal(ctx, core.ModeLive, 1))
	lines, err := svc.journal.Entries(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, lines)

	err = svc.journal.PostJournal(ctx, core.ModeLive, 1)
	assert.ErrorIs(t, err, core.ErrAlreadyPosted)
	again, err := svc.journal.Entries(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, again, len(lines), "a second post leaves the journal unchanged")

	_, err = svc.orders.ReturnOrder(ctx, core.ModeLive, 1, approved)
	require.NoError(t, err)
	returned, err := svc.journal.Entries(ctx, 1)
	require.NoError(t, err)
	for _, l := range returned {
		assert.Equal(t, core.JournalReturned, l.Status)
		assert.True(t, l.Debit.IsZero(), "line %d %s still debits", l.EntryLineNo, l.EntryName)
	}

	_, err = svc.orders.ReturnOrder(ctx, core.ModeLive, 1, approved)
	assert.ErrorIs(t, err, core.ErrOrderNotFinalized)
}

func TestShift_ClockInRules(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool, nil)
	ctx := context.Background()

	_, err := svc.shifts.ClockIn(ctx, cashier(1), decimal.NewFromInt(500), approved)
	assert.ErrorIs(t, err, core.ErrDrawerNotSet)

	_, err = svc.shifts.ClockIn(ctx, cashier(1), decimal.NewFromInt(1000), core.ManagerApproval{Email: cashier(2)})
	assert.ErrorIs(t, err, core.ErrNotAuthorized)

	shift, err := svc.shifts.ClockIn(ctx, cashier(1), decimal.NewFromInt(1000), approved)
	require.NoError(t, err)
	assert.True(t, shift.IsOpen())

	_, err = svc.shifts.ClockIn(ctx, cashier(1), decimal.NewFromInt(1000), approved)
	assert.ErrorIs(t, err, core.ErrShiftOpen)

	_, err = svc.shifts.Withdraw(ctx, cashier(1), decimal.NewFromInt(200), approved)
	require.NoError(t, err)

	drawer, err := svc.shifts.Drawer(ctx, cashier(1))
	require.NoError(t, err)
	require.NotNil(t, drawer.Shift)
	assert.Equal(t, shift.ID, drawer.Shift.ID)
	assertDec(t, "800", drawer.Expected)

	_, err = svc.shifts.ClockOut(ctx, cashier(1), decimal.NewFromInt(800), approved)
	require.NoError(t, err)
	_, err = svc.shifts.Withdraw(ctx, cashier(1), decimal.NewFromInt(1), approved)
	assert.ErrorIs(t, err, core.ErrNoOpenShift)
}

func TestXReport_SecondRunIsEmpty(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool, nil)
	ctx := context.Background()

	_, err := svc.shifts.ClockIn(ctx, cashier(1), decimal.NewFromInt(1000), approved)
	require.NoError(t, err)
	order := composeBurger(t, svc, cashier(1))
	_, err = svc.orders.FinalizeOrder(ctx, order.ID, cashOnly("120"))
	require.NoError(t, err)

	first, err := svc.reports.XReport(ctx, core.ModeLive)
	require.NoError(t, err)
	assert.Equal(t, 1, first.OrderCount)
	assertDec(t, "100", first.ValidCash)
	assertDec(t, "1000", first.OpeningFund)

	second, err := svc.reports.XReport(ctx, core.ModeLive)
	require.NoError(t, err)
	assert.Equal(t, 0, second.OrderCount)
	assert.Equal(t, "000000000000", second.BeginningInvoice)
}

func TestTerminal_CounterResetNeedsManager(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool, nil)
	ctx := context.Background()

	_, err := svc.reports.ZReport(ctx, core.ModeLive, time.Now())
	require.NoError(t, err)
	info := core.TerminalInfo{RegisteredName: "Reissued Kitchen", PosSerialNumber: "SN-2", MinNumber: "MIN-2"}

	_, err = svc.terminal.Register(ctx, info, true, core.ManagerApproval{})
	assert.ErrorIs(t, err, core.ErrApprovalRequired)
	_, err = svc.terminal.Register(ctx, info, true, core.ManagerApproval{Email: cashier(1)})
	assert.ErrorIs(t, err, core.ErrNotAuthorized)

	c, err := svc.counters.Get(ctx, core.ModeLive)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ZCounter, "a rejected reset changes nothing")

	// plain re-registration leaves the counters alone and needs no co-sign
	got, err := svc.terminal.Register(ctx, info, false, core.ManagerApproval{})
	require.NoError(t, err)
	assert.Equal(t, "Reissued Kitchen", got.RegisteredName)

	_, err = svc.terminal.Register(ctx, info, true, approved)
	require.NoError(t, err)
	c, err = svc.counters.Get(ctx, core.ModeLive)
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.ZCounter)
}

func TestZReport_CountersArePerMode(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool, nil)
	ctx := context.Background()
	now := time.Now()

	for want := int64(1); want <= 2; want++ {
		z, err := svc.reports.ZReport(ctx, core.ModeLive, now)
		require.NoError(t, err)
		assert.Equal(t, want, z.ZCounter)
	}
	z, err := svc.reports.ZReport(ctx, core.ModeTraining, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), z.ZCounter)

	live, err := svc.counters.Get(ctx, core.ModeLive)
	require.NoError(t, err)
	assert.Equal(t, int64(2), live.ZCounter)
}

func TestTrainMode_SeparateLedger(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool, nil)
	ctx := context.Background()

	_, err := svc.terminal.SetTrainMode(ctx, true, approved)
	require.NoError(t, err)

	order := composeBurger(t, svc, cashier(1))
	assert.Equal(t, core.ModeTraining, order.Mode)
	receipt, err := svc.orders.FinalizeOrder(ctx, order.ID, cashOnly("100"))
	require.NoError(t, err)
	assert.Equal(t, "000000000001", receipt.InvoiceNumber)

	// training invoices never reach the journal
	require.NoError(t, svc.journal.PostJournal(ctx, core.ModeTraining, 1))
	lines, err := svc.journal.Entries(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, lines)

	live, err := svc.counters.Get(ctx, core.ModeLive)
	require.NoError(t, err)
	assert.Equal(t, int64(0), live.LastInvoiceNo)
}

func TestTerminal_ExpiredBlocksFinalize(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool, nil)
	ctx := context.Background()

	order := composeBurger(t, svc, cashier(1))
	_, err := pool.Exec(ctx, "UPDATE pos_terminal_info SET valid_until = CURRENT_DATE - 2")
	require.NoError(t, err)

	_, err = svc.orders.FinalizeOrder(ctx, order.ID, cashOnly("100"))
	assert.ErrorIs(t, err, core.ErrTerminalExpired)
}

// ── Truncation ───────────────────────────────────────────────────────────────

type failingWriter struct{}

func (failingWriter) Write(context.Context, *core.Snapshot) ([]string, error) {
	return nil, errors.New("disk full")
}

type recordingWriter struct {
	snap *core.Snapshot
}

func (w *recordingWriter) Write(_ context.Context, snap *core.Snapshot) ([]string, error) {
	w.snap = snap
	return []string{"Order_test.db", "Journal_test.db"}, nil
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT count(*) FROM "+table).Scan(&n))
	return n
}

func TestTruncate_FailedBackupChangesNothing(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newTestServices(pool, failingWriter{})
	ctx := context.Background()

	order := composeBurger(t, svc, cashier(1))
	_, err := svc.orders.FinalizeOrder(ctx, order.ID, cashOnly("100"))
	require.NoError(t, err)
	require.NoError(t, svc.journal.PostJournal(ctx, core.ModeLive, 1))
	journalBefore := countRows(t, pool, "account_journal")

	_, err = svc.archive.Truncate(ctx, core.ModeLive, approved)
	require.ErrorIs(t, err, core.ErrBackupFailed)

	assert.Equal(t, 1, countRows(t, pool, "orders"))
	assert.Equal(t, journalBefore, countRows(t, pool, "account_journal"))
	c, err := svc.counters.Get(ctx, core.ModeLive)
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.ResetCounter)
}

func TestTruncate_PurgesModeAndCarriesSales(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	writer := &recordingWriter{}
	svc := newTestServices(pool, writer)
	ctx := context.Background()

	order := composeBurger(t, svc, cashier(1))
	_, err := svc.orders.FinalizeOrder(ctx, order.ID, cashOnly("100"))
	require.NoError(t, err)

	_, err = svc.terminal.SetTrainMode(ctx, true, approved)
	require.NoError(t, err)
	composeBurger(t, svc, cashier(2))

	res, err := svc.archive.Truncate(ctx, core.ModeLive, approved)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.OrdersRemoved)
	assert.Equal(t, int64(1), res.ResetCounter)
	assertDec(t, "100", res.CarriedForward)
	require.NotNil(t, writer.snap)
	assert.Len(t, writer.snap.Orders, 1)

	// the training order survives a live truncation
	assert.Equal(t, 1, countRows(t, pool, "orders"))

	c, err := svc.counters.Get(ctx, core.ModeLive)
	require.NoError(t, err)
	assertDec(t, "100", c.CarriedSales)
	assert.Equal(t, int64(1), c.LastInvoiceNo, "invoice numbers are never reset")

	_, err = svc.archive.Truncate(ctx, core.ModeLive, core.ManagerApproval{})
	assert.ErrorIs(t, err, core.ErrApprovalRequired)
}
