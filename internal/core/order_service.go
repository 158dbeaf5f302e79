package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const defaultOrderType = "DINE-IN"

// LineInput is one selection from the cashier. A line with ParentEntryID is a
// bundled child (meal drink or add-on) and is priced as a delta over Regular.
type LineInput struct {
	Kind          ItemKind `json:"kind"`
	ItemID        int      `json:"item_id"`
	Quantity      int      `json:"quantity"`
	EntryID       string   `json:"entry_id,omitempty"`
	ParentEntryID string   `json:"parent_entry_id,omitempty"`
}

// ComposeRequest adds lines to the cashier's pending order, creating it if needed.
type ComposeRequest struct {
	CashierEmail string      `json:"cashier_email"`
	OrderType    string      `json:"order_type"`
	Lines        []LineInput `json:"lines"`
}

// DiscountRequest selects one discount path. Code is used by promo and coupon,
// Name/Percent/Amount by other, EntryIDs and the eligible lists by PWD/Senior.
type DiscountRequest struct {
	Kind          DiscountKind    `json:"kind"`
	Code          string          `json:"code,omitempty"`
	Name          string          `json:"name,omitempty"`
	Percent       decimal.Decimal `json:"percent"`
	Amount        decimal.Decimal `json:"amount"`
	EntryIDs      []string        `json:"entry_ids,omitempty"`
	EligibleNames []string        `json:"eligible_names,omitempty"`
	OscaIDs       []string        `json:"osca_ids,omitempty"`
	Approval      ManagerApproval `json:"approval"`
}

// requiresApproval reports whether the discount path needs a manager co-sign.
func (r DiscountRequest) requiresApproval() bool {
	switch r.Kind {
	case DiscountPWD, DiscountSenior, DiscountOther:
		return true
	}
	return false
}

// InvoiceSummary is one row of an invoice listing.
type InvoiceSummary struct {
	OrderID       int64           `json:"order_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Status        OrderStatus     `json:"status"`
	CashierEmail  string          `json:"cashier_email"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DiscountType  string          `json:"discount_type,omitempty"`
	FinalizedAt   time.Time       `json:"finalized_at"`
}

// OrderService manages the order lifecycle from composition to return and assigns
// invoice numbers at finalization.
type OrderService interface {
	// Composition
	ComposeOrder(ctx context.Context, req ComposeRequest) (*Order, error)
	ApplyDiscount(ctx context.Context, orderID int64, req DiscountRequest) (*Order, error)
	RemoveDiscount(ctx context.Context, orderID int64, approval ManagerApproval) (*Order, error)
	// VoidItem voids a line and its bundled children. Pending orders only.
	VoidItem(ctx context.Context, orderID, lineID int64, approval ManagerApproval) (*Order, error)

	// Lifecycle
	CancelOrder(ctx context.Context, orderID int64, approval ManagerApproval) (*Order, error)
	// FinalizeOrder recomputes totals, validates the tender and assigns the next
	// invoice number of the order's mode in one transaction.
	FinalizeOrder(ctx context.Context, orderID int64, tender Tender) (*Receipt, error)
	// ReturnOrder moves a finalized order to RETURNED and flips the polarity of any
	// journal lines already posted for it.
	ReturnOrder(ctx context.Context, mode Mode, invoiceNo int64, approval ManagerApproval) (*Order, error)

	// Queries
	GetOrder(ctx context.Context, orderID int64) (*Order, error)
	GetPendingOrder(ctx context.Context, cashierEmail string) (*Order, error)
	GetInvoice(ctx context.Context, mode Mode, invoiceNo int64) (*Receipt, error)
	ListInvoices(ctx context.Context, mode Mode, from, to time.Time) ([]InvoiceSummary, error)
}

type orderService struct {
	pool     *pgxpool.Pool
	catalog  Catalog
	users    UserService
	terminal TerminalService
	counters CounterService
	journal  JournalService
	now      func() time.Time
}

func NewOrderService(pool *pgxpool.Pool, catalog Catalog, users UserService, terminal TerminalService, counters CounterService, journal JournalService) OrderService {
	return &orderService{
		pool:     pool,
		catalog:  catalog,
		users:    users,
		terminal: terminal,
		counters: counters,
		journal:  journal,
		now:      time.Now,
	}
}

// ── Composition ──────────────────────────────────────────────────────────────

type pricedLine struct {
	LineInput
	item  MenuVariant
	price decimal.Decimal
}

func (s *orderService) ComposeOrder(ctx context.Context, req ComposeRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, l := range req.Lines {
		if l.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		if !l.Kind.Valid() {
			return nil, fmt.Errorf("unknown item kind %q: %w", l.Kind, ErrItemUnavailable)
		}
	}
	cashier, err := s.users.GetByEmail(ctx, req.CashierEmail)
	if err != nil {
		return nil, err
	}
	mode, err := s.terminal.ActiveMode(ctx)
	if err != nil {
		return nil, err
	}
	orderType := strings.ToUpper(strings.TrimSpace(req.OrderType))
	if orderType == "" {
		orderType = defaultOrderType
	}

	priced := make([]pricedLine, len(req.Lines))
	for i, l := range req.Lines {
		item, err := s.catalog.GetItem(ctx, l.Kind, l.ItemID)
		if err != nil {
			return nil, err
		}
		price := item.Price
		if l.ParentEntryID != "" && l.Kind != KindMenu {
			variants, err := s.catalog.Variants(ctx, l.Kind, item.Name)
			if err != nil {
				return nil, err
			}
			price = BundledPrice(*item, variants)
		}
		priced[i] = pricedLine{LineInput: l, item: *item, price: price}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockPendingForCashier(ctx, tx, cashier.Email, mode, orderType)
	if err != nil {
		return nil, err
	}
	orderID := order.ID

	parents := map[string]int64{}
	for _, it := range order.Items {
		if it.ParentID == nil && !it.IsVoid {
			parents[it.EntryID] = it.ID
		}
	}

	for _, p := range priced {
		var parentID *int64
		entryID := p.EntryID
		switch {
		case p.ParentEntryID != "":
			pid, ok := parents[p.ParentEntryID]
			if !ok {
				return nil, fmt.Errorf("parent entry %q: %w", p.ParentEntryID, ErrUnknownEntry)
			}
			parentID = &pid
			entryID = p.ParentEntryID
		case entryID == "":
			entryID = uuid.NewString()
		default:
			if _, dup := parents[entryID]; dup {
				return nil, fmt.Errorf("entry %q already has a parent line: %w", entryID, ErrUnknownEntry)
			}
		}

		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, kind, catalog_id, name, size, quantity, unit_price, entry_id, parent_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`, orderID, p.Kind, p.item.ID, p.item.Name, p.item.Size, p.Quantity, p.price, entryID, parentID).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}
		if parentID == nil {
			parents[entryID] = id
		}
	}

	order, err = s.recompute(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return order, nil
}

// pendingOrderID returns the cashier's pending order in mode, creating one if none exists.
func pendingOrderID(ctx context.Context, tx pgx.Tx, cashier string, mode Mode, orderType string) (int64, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO orders (mode, cashier_email, order_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (cashier_email, mode) WHERE status = 'PENDING' DO NOTHING
	`, mode, cashier, orderType)
	if err != nil {
		return 0, fmt.Errorf("failed to open pending order: %w", err)
	}
	var id int64
	err = tx.QueryRow(ctx, `
		SELECT id FROM orders
		WHERE cashier_email = $1 AND mode = $2 AND status = 'PENDING'
	`, cashier, mode).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to find pending order: %w", err)
	}
	return id, nil
}

// lockPendingForCashier finds or opens the cashier's pending order and locks it.
// A concurrent finalize can move the row out of PENDING between the lookup and
// the lock; the lookup is then repeated once so items land on a fresh order.
func lockPendingForCashier(ctx context.Context, tx pgx.Tx, cashier string, mode Mode, orderType string) (*Order, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		orderID, err := pendingOrderID(ctx, tx, cashier, mode, orderType)
		if err != nil {
			return nil, err
		}
		order, err := lockPending(ctx, tx, orderID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, ErrOrderNotPending) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// recompute reloads the order and rebuilds its totals from the current lines and
// discount. It never reuses previously stored totals.
func (s *orderService) recompute(ctx context.Context, tx pgx.Tx, orderID int64) (*Order, error) {
	order, err := loadOrder(ctx, tx, orderID, false)
	if err != nil {
		return nil, err
	}
	totals, _, err := ComputeTotals(order.Items, order.Discount)
	if err != nil {
		return nil, err
	}
	order.Totals = totals
	if err := saveTotals(ctx, tx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// lockPending loads and locks an order, failing unless it is still pending.
func lockPending(ctx context.Context, tx pgx.Tx, orderID int64) (*Order, error) {
	order, err := loadOrder(ctx, tx, orderID, true)
	if err != nil {
		return nil, err
	}
	if order.Status != OrderPending {
		return nil, fmt.Errorf("order %d is %s: %w", orderID, order.Status, ErrOrderNotPending)
	}
	return order, nil
}

func (s *orderService) ApplyDiscount(ctx context.Context, orderID int64, req DiscountRequest) (*Order, error) {
	switch req.Kind {
	case DiscountPWD, DiscountSenior, DiscountOther:
	case DiscountPromo, DiscountCoupon:
		if err := ValidateCode(req.Code); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported discount kind %q: %w", req.Kind, ErrInvalidCode)
	}
	if req.Kind == DiscountOther && req.Percent.IsPositive() == req.Amount.IsPositive() {
		return nil, fmt.Errorf("other discount needs exactly one of percent or amount: %w", ErrInvalidAmount)
	}
	var manager string
	if req.requiresApproval() {
		u, err := s.users.Authorize(ctx, req.Approval)
		if err != nil {
			return nil, err
		}
		manager = u.Email
	}

	var def *CodeDefinition
	if req.Kind == DiscountPromo || req.Kind == DiscountCoupon {
		d, err := s.catalog.GetCode(ctx, req.Code)
		if err != nil {
			return nil, err
		}
		if d.Kind != req.Kind || !d.IsAvailable || d.Expired(s.now()) {
			return nil, fmt.Errorf("code %q: %w", req.Code, ErrInvalidCode)
		}
		def = d
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockPending(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Discount.Kind() != DiscountNone {
		return nil, fmt.Errorf("order %d has %s: %w", orderID, order.Discount.Kind(), ErrDiscountConflict)
	}

	switch req.Kind {
	case DiscountPWD, DiscountSenior:
		known := map[string]bool{}
		for _, g := range GroupEntries(order.ActiveItems()) {
			known[g.EntryID] = true
		}
		for _, id := range req.EntryIDs {
			if !known[id] {
				return nil, fmt.Errorf("entry %q: %w", id, ErrUnknownEntry)
			}
		}
		order.Discount = StatutoryDiscount{Senior: req.Kind == DiscountSenior, EntryIDs: req.EntryIDs}
		order.EligibleNames = req.EligibleNames
		order.OscaIDs = req.OscaIDs
	case DiscountOther:
		name := strings.TrimSpace(req.Name)
		if name == "" {
			name = string(DiscountOther)
		}
		order.Discount = OtherDiscount{Name: name, Percent: req.Percent, Amount: req.Amount}
	default:
		order.Discount = def.Discount()
	}

	totals, _, err := ComputeTotals(order.Items, order.Discount)
	if err != nil {
		return nil, err
	}
	order.Totals = totals
	order.DiscountType = order.Discount.Label()

	if req.Kind == DiscountCoupon {
		if err := redeemCoupon(ctx, tx, def.Code); err != nil {
			return nil, err
		}
	}
	if err := saveTotals(ctx, tx, order); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, "UPDATE orders SET discount_manager = $2 WHERE id = $1", orderID, manager); err != nil {
		return nil, fmt.Errorf("failed to record discount approval: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit discount: %w", err)
	}
	log.Printf("discount %s applied to order %d (amount %s)", order.Discount.Kind(), orderID, totals.DiscountAmount.StringFixed(2))
	return order, nil
}

// redeemCoupon takes one redemption. The conditional decrement never drives the
// remaining quantity below zero, even under concurrent redemptions.
func redeemCoupon(ctx context.Context, tx pgx.Tx, code string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE coupon_promos
		SET coupon_item_quantity = coupon_item_quantity - 1
		WHERE code = $1 AND kind = 'COUPON' AND coupon_item_quantity > 0
	`, code)
	if err != nil {
		return fmt.Errorf("failed to redeem coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("coupon %q: %w", code, ErrCouponExhausted)
	}
	return nil
}

// releaseCoupon gives a redemption back when a coupon is removed or its order cancelled.
func releaseCoupon(ctx context.Context, tx pgx.Tx, d Discount) error {
	c, ok := d.(CouponDiscount)
	if !ok {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE coupon_promos SET coupon_item_quantity = coupon_item_quantity + 1
		WHERE code = $1 AND kind = 'COUPON'
	`, c.Code)
	if err != nil {
		return fmt.Errorf("failed to release coupon %q: %w", c.Code, err)
	}
	return nil
}

func (s *orderService) RemoveDiscount(ctx context.Context, orderID int64, approval ManagerApproval) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockPending(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	kind := order.Discount.Kind()
	if kind == DiscountNone {
		return nil, ErrNoDiscount
	}
	if (DiscountRequest{Kind: kind}).requiresApproval() {
		if _, err := s.users.Authorize(ctx, approval); err != nil {
			return nil, err
		}
	}
	if err := releaseCoupon(ctx, tx, order.Discount); err != nil {
		return nil, err
	}

	order.Discount = NoDiscount{}
	order.DiscountType = ""
	order.EligibleNames = nil
	order.OscaIDs = nil
	totals, _, err := ComputeTotals(order.Items, order.Discount)
	if err != nil {
		return nil, err
	}
	order.Totals = totals
	if err := saveTotals(ctx, tx, order); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, "UPDATE orders SET discount_manager = '' WHERE id = $1", orderID); err != nil {
		return nil, fmt.Errorf("failed to clear discount approval: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit discount removal: %w", err)
	}
	return order, nil
}

func (s *orderService) VoidItem(ctx context.Context, orderID, lineID int64, approval ManagerApproval) (*Order, error) {
	manager, err := s.users.Authorize(ctx, approval)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockPending(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	found := false
	for _, it := range order.Items {
		if it.ID == lineID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("line %d of order %d: %w", lineID, orderID, ErrItemNotFound)
	}

	_, err = tx.Exec(ctx, `
		UPDATE order_items
		SET is_void = true, voided_by = $3
		WHERE order_id = $1 AND (id = $2 OR parent_id = $2) AND is_void = false
	`, orderID, lineID, manager.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to void line %d: %w", lineID, err)
	}

	order, err = s.recompute(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit void: %w", err)
	}
	log.Printf("line %d of order %d voided by %s", lineID, orderID, manager.Email)
	return order, nil
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

func (s *orderService) CancelOrder(ctx context.Context, orderID int64, approval ManagerApproval) (*Order, error) {
	manager, err := s.users.Authorize(ctx, approval)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockPending(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := releaseCoupon(ctx, tx, order.Discount); err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `
		UPDATE orders SET status = 'CANCELLED', cancelled_at = now(), is_read = false
		WHERE id = $1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order %d: %w", orderID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}
	order.Status = OrderCancelled
	log.Printf("order %d cancelled by %s", orderID, manager.Email)
	return order, nil
}

// validateTender checks a tender against the order total. Alternative payments may
// not exceed the total; change is only ever given from cash.
func validateTender(total decimal.Decimal, t Tender) (change decimal.Decimal, err error) {
	if t.CashTendered.IsNegative() {
		return decimal.Zero, fmt.Errorf("cash tendered %s: %w", t.CashTendered, ErrInvalidAmount)
	}
	for _, p := range t.AlternativePayments {
		if !p.Amount.IsPositive() {
			return decimal.Zero, fmt.Errorf("%s payment %s: %w", p.SaleType, p.Amount, ErrInvalidAmount)
		}
	}
	if t.AlternativeTotal().GreaterThan(total) {
		return decimal.Zero, fmt.Errorf("alternative payments %s exceed total %s: %w",
			t.AlternativeTotal().StringFixed(2), total.StringFixed(2), ErrTenderMismatch)
	}
	if t.Total().LessThan(total) {
		return decimal.Zero, fmt.Errorf("tendered %s is short of total %s: %w",
			t.Total().StringFixed(2), total.StringFixed(2), ErrTenderMismatch)
	}
	return t.Total().Sub(total), nil
}

func (s *orderService) FinalizeOrder(ctx context.Context, orderID int64, tender Tender) (*Receipt, error) {
	terminal, err := s.terminal.Info(ctx)
	if err != nil {
		return nil, err
	}
	if st := ValidateExpiration(terminal.ValidUntil, s.now()); st.Expired {
		return nil, fmt.Errorf("%s: %w", st.Message, ErrTerminalExpired)
	}
	if len(tender.AlternativePayments) > 0 {
		types, err := s.catalog.SaleTypes(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range tender.AlternativePayments {
			if _, ok := types[p.SaleType]; !ok {
				return nil, fmt.Errorf("%q: %w", p.SaleType, ErrUnknownSaleType)
			}
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockPending(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if len(order.ActiveItems()) == 0 {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrEmptyOrder)
	}

	totals, res, err := ComputeTotals(order.Items, order.Discount)
	if err != nil {
		return nil, err
	}
	order.Totals = totals
	change, err := validateTender(totals.TotalAmount, tender)
	if err != nil {
		return nil, err
	}
	if err := saveTotals(ctx, tx, order); err != nil {
		return nil, err
	}

	invoiceNo, err := s.counters.NextInvoiceTx(ctx, tx, order.Mode)
	if err != nil {
		return nil, err
	}

	var finalizedAt time.Time
	err = tx.QueryRow(ctx, `
		UPDATE orders
		SET status = 'FINALIZED', invoice_no = $2, cash_tendered = $3, total_tendered = $4,
		    change_amount = $5, finalized_at = now(), is_read = false
		WHERE id = $1
		RETURNING finalized_at
	`, orderID, invoiceNo, tender.CashTendered, tender.Total(), change).Scan(&finalizedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize order %d: %w", orderID, err)
	}

	for _, p := range tender.AlternativePayments {
		_, err := tx.Exec(ctx, `
			INSERT INTO alternative_payments (order_id, sale_type, reference, amount)
			VALUES ($1, $2, $3, $4)
		`, orderID, p.SaleType, p.Reference, p.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to record %s payment: %w", p.SaleType, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit finalization: %w", err)
	}

	order.Status = OrderFinalized
	order.InvoiceNo = &invoiceNo
	order.FinalizedAt = &finalizedAt
	order.CashTendered = tender.CashTendered
	order.TotalTendered = tender.Total()
	order.ChangeAmount = change
	order.AlternativePayments = tender.AlternativePayments
	log.Printf("order %d finalized as invoice %s (%s)", orderID, order.InvoiceNumber(), order.Mode)
	return NewReceipt(order, res, terminal), nil
}

func (s *orderService) ReturnOrder(ctx context.Context, mode Mode, invoiceNo int64, approval ManagerApproval) (*Order, error) {
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}
	manager, err := s.users.Authorize(ctx, approval)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := loadInvoice(ctx, tx, mode, invoiceNo, true)
	if err != nil {
		return nil, err
	}
	if order.Status != OrderFinalized {
		return nil, fmt.Errorf("invoice %s is %s: %w", order.InvoiceNumber(), order.Status, ErrOrderNotFinalized)
	}

	var returnedAt time.Time
	err = tx.QueryRow(ctx, `
		UPDATE orders SET status = 'RETURNED', returned_at = now(), is_read = false
		WHERE id = $1
		RETURNING returned_at
	`, order.ID).Scan(&returnedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to return invoice %d: %w", invoiceNo, err)
	}

	if mode == ModeLive {
		if _, err := s.journal.ReverseTx(ctx, tx, invoiceNo); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit return: %w", err)
	}
	order.Status = OrderReturned
	order.ReturnedAt = &returnedAt
	log.Printf("invoice %s returned by %s", order.InvoiceNumber(), manager.Email)
	return order, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *orderService) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	return loadOrder(ctx, s.pool, orderID, false)
}

func (s *orderService) GetPendingOrder(ctx context.Context, cashierEmail string) (*Order, error) {
	mode, err := s.terminal.ActiveMode(ctx)
	if err != nil {
		return nil, err
	}
	var id int64
	err = s.pool.QueryRow(ctx, `
		SELECT id FROM orders WHERE cashier_email = $1 AND mode = $2 AND status = 'PENDING'
	`, cashierEmail, mode).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no pending order for %s: %w", cashierEmail, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("failed to find pending order: %w", err)
	}
	return loadOrder(ctx, s.pool, id, false)
}

func (s *orderService) GetInvoice(ctx context.Context, mode Mode, invoiceNo int64) (*Receipt, error) {
	order, err := loadInvoice(ctx, s.pool, mode, invoiceNo, false)
	if err != nil {
		return nil, err
	}
	res, err := ResolveDiscount(order.Items, order.Discount)
	if err != nil {
		// the stored totals stay authoritative; only the synthetic lines are lost
		res = DiscountResult{}
	}
	terminal, err := s.terminal.Info(ctx)
	if err != nil {
		return nil, err
	}
	return NewReceipt(order, res, terminal), nil
}

func (s *orderService) ListInvoices(ctx context.Context, mode Mode, from, to time.Time) ([]InvoiceSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, invoice_no, status, cashier_email, total_amount, discount_type, finalized_at
		FROM orders
		WHERE mode = $1 AND invoice_no IS NOT NULL
		  AND finalized_at >= $2 AND finalized_at < $3
		ORDER BY invoice_no
	`, mode, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var out []InvoiceSummary
	for rows.Next() {
		var (
			inv InvoiceSummary
			no  int64
		)
		if err := rows.Scan(&inv.OrderID, &no, &inv.Status, &inv.CashierEmail, &inv.TotalAmount, &inv.DiscountType, &inv.FinalizedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		inv.InvoiceNumber = FormatOrderNumber(no)
		out = append(out, inv)
	}
	return out, rows.Err()
}
