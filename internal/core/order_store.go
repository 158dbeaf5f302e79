package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const orderColumns = `
	id, invoice_no, mode, status, is_read, order_type, cashier_email,
	subtotal, discount_amount, total_amount, vat_sales, vat_amount, vat_exempt, due_amount,
	discount_kind, discount_type, discount_code, discount_percent, discount_fixed,
	discount_entry_ids, discount_menu_ids, eligible_names, osca_ids,
	cash_tendered, total_tendered, change_amount, created_at, finalized_at, returned_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o        Order
		kind     DiscountKind
		code     string
		pct      decimal.Decimal
		fixed    decimal.Decimal
		entryIDs []string
		menuIDs  []int64
	)
	err := row.Scan(
		&o.ID, &o.InvoiceNo, &o.Mode, &o.Status, &o.IsRead, &o.OrderType, &o.CashierEmail,
		&o.Totals.Subtotal, &o.Totals.DiscountAmount, &o.Totals.TotalAmount, &o.Totals.VatSales,
		&o.Totals.VatAmount, &o.Totals.VatExempt, &o.Totals.DueAmount,
		&kind, &o.DiscountType, &code, &pct, &fixed,
		&entryIDs, &menuIDs, &o.EligibleNames, &o.OscaIDs,
		&o.CashTendered, &o.TotalTendered, &o.ChangeAmount, &o.CreatedAt, &o.FinalizedAt, &o.ReturnedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Discount = discountFromColumns(kind, o.DiscountType, code, pct, fixed, entryIDs, menuIDs)
	return &o, nil
}

// discountFromColumns rebuilds the union variant persisted on an order row.
func discountFromColumns(kind DiscountKind, label, code string, pct, fixed decimal.Decimal, entryIDs []string, menuIDs []int64) Discount {
	switch kind {
	case DiscountPWD, DiscountSenior:
		return StatutoryDiscount{Senior: kind == DiscountSenior, EntryIDs: entryIDs}
	case DiscountOther:
		return OtherDiscount{Name: label, Percent: pct, Amount: fixed}
	case DiscountPromo:
		return PromoDiscount{Code: code, Percent: pct}
	case DiscountCoupon:
		return CouponDiscount{Code: code, Amount: fixed, MenuIDs: menuIDs}
	}
	return NoDiscount{}
}

// discountColumns is the inverse of discountFromColumns.
type discountColumns struct {
	Kind     DiscountKind
	Label    string
	Code     string
	Percent  decimal.Decimal
	Fixed    decimal.Decimal
	EntryIDs []string
	MenuIDs  []int64
}

func columnsOf(d Discount) discountColumns {
	c := discountColumns{Kind: DiscountNone, Percent: decimal.Zero, Fixed: decimal.Zero, EntryIDs: []string{}, MenuIDs: []int64{}}
	if d == nil {
		return c
	}
	c.Kind = d.Kind()
	c.Label = d.Label()
	switch v := d.(type) {
	case StatutoryDiscount:
		if v.EntryIDs != nil {
			c.EntryIDs = v.EntryIDs
		}
	case OtherDiscount:
		c.Percent, c.Fixed = v.Percent, v.Amount
	case PromoDiscount:
		c.Code, c.Percent = v.Code, v.Percent
	case CouponDiscount:
		c.Code, c.Fixed = v.Code, v.Amount
		if v.MenuIDs != nil {
			c.MenuIDs = v.MenuIDs
		}
	}
	return c
}

// loadOrder reads an order with its items and alternative payments. forUpdate takes
// the order row lock, which serializes every mutation, posting and report read of it.
func loadOrder(ctx context.Context, q pgxQuerier, id int64, forUpdate bool) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("failed to load order %d: %w", id, err)
	}
	if err := loadOrderLines(ctx, q, o); err != nil {
		return nil, err
	}
	return o, nil
}

// loadInvoice is loadOrder keyed by (mode, invoice number).
func loadInvoice(ctx context.Context, q pgxQuerier, mode Mode, invoiceNo int64, forUpdate bool) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE mode = $1 AND invoice_no = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, query, mode, invoiceNo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %s (%s): %w", FormatOrderNumber(invoiceNo), mode, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("failed to load invoice %d: %w", invoiceNo, err)
	}
	if err := loadOrderLines(ctx, q, o); err != nil {
		return nil, err
	}
	return o, nil
}

func loadOrderLines(ctx context.Context, q pgxQuerier, o *Order) error {
	if err := loadOrderItems(ctx, q, o); err != nil {
		return err
	}
	rows, err := q.Query(ctx, `
		SELECT id, sale_type, reference, amount
		FROM alternative_payments
		WHERE order_id = $1
		ORDER BY id
	`, o.ID)
	if err != nil {
		return fmt.Errorf("failed to query payments of order %d: %w", o.ID, err)
	}
	defer rows.Close()
	o.AlternativePayments = nil
	for rows.Next() {
		var p AlternativePayment
		if err := rows.Scan(&p.ID, &p.SaleType, &p.Reference, &p.Amount); err != nil {
			return fmt.Errorf("failed to scan alternative payment: %w", err)
		}
		o.AlternativePayments = append(o.AlternativePayments, p)
	}
	return rows.Err()
}

func loadOrderItems(ctx context.Context, q pgxQuerier, o *Order) error {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, kind, catalog_id, name, size, quantity, unit_price,
		       entry_id, parent_id, is_void, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at, id
	`, o.ID)
	if err != nil {
		return fmt.Errorf("failed to query items of order %d: %w", o.ID, err)
	}
	defer rows.Close()
	o.Items = nil
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Kind, &it.CatalogID, &it.Name, &it.Size,
			&it.Quantity, &it.UnitPrice, &it.EntryID, &it.ParentID, &it.IsVoid, &it.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read order items: %w", err)
	}
	return nil
}

// saveTotals persists freshly computed totals together with the discount columns.
func saveTotals(ctx context.Context, tx pgx.Tx, o *Order) error {
	dc := columnsOf(o.Discount)
	t := o.Totals
	_, err := tx.Exec(ctx, `
		UPDATE orders
		SET subtotal = $2, discount_amount = $3, total_amount = $4, vat_sales = $5,
		    vat_amount = $6, vat_exempt = $7, due_amount = $8,
		    discount_kind = $9, discount_type = $10, discount_code = $11,
		    discount_percent = $12, discount_fixed = $13,
		    discount_entry_ids = $14, discount_menu_ids = $15,
		    eligible_names = $16, osca_ids = $17
		WHERE id = $1
	`, o.ID, t.Subtotal, t.DiscountAmount, t.TotalAmount, t.VatSales, t.VatAmount, t.VatExempt, t.DueAmount,
		dc.Kind, dc.Label, dc.Code, dc.Percent, dc.Fixed, dc.EntryIDs, dc.MenuIDs,
		nonNil(o.EligibleNames), nonNil(o.OscaIDs))
	if err != nil {
		return fmt.Errorf("failed to save totals of order %d: %w", o.ID, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

