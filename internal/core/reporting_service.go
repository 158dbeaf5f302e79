package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportingService produces the fiscal X and Z reports.
type ReportingService interface {
	// XReport consumes every unread, non-pending order of mode: the orders are
	// marked read in the same transaction that reads them, so a failed report
	// leaves nothing marked and a second run never re-includes them.
	XReport(ctx context.Context, mode Mode) (*XReport, error)
	// ZReport summarizes every non-pending order of mode and bumps the mode's
	// Z counter exactly once. Day boundaries are taken in now's location.
	ZReport(ctx context.Context, mode Mode, now time.Time) (*ZReport, error)
}

type reportingService struct {
	pool     *pgxpool.Pool
	users    UserService
	counters CounterService
	now      func() time.Time
}

func NewReportingService(pool *pgxpool.Pool, users UserService, counters CounterService) ReportingService {
	return &reportingService{pool: pool, users: users, counters: counters, now: time.Now}
}

// loadOrdersWhere reads orders matching cond with their alternative payments.
// Items are not loaded; reports only read order-level totals.
func loadOrdersWhere(ctx context.Context, tx pgx.Tx, cond, lock string, args ...any) ([]*Order, error) {
	rows, err := tx.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+cond+` ORDER BY id `+lock, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	var (
		orders []*Order
		ids    []int64
		byID   = map[int64]*Order{}
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	if len(ids) == 0 {
		return orders, nil
	}

	rows, err = tx.Query(ctx, `
		SELECT id, order_id, sale_type, reference, amount
		FROM alternative_payments
		WHERE order_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query alternative payments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			p       AlternativePayment
			orderID int64
		)
		if err := rows.Scan(&p.ID, &orderID, &p.SaleType, &p.Reference, &p.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan alternative payment: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.AlternativePayments = append(o.AlternativePayments, p)
		}
	}
	return orders, rows.Err()
}

func loadShiftsWhere(ctx context.Context, tx pgx.Tx, cond string, args ...any) ([]*Shift, error) {
	rows, err := tx.Query(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE `+cond, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	var shifts []*Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, sh)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shifts: %w", err)
	}
	for _, sh := range shifts {
		if err := loadWithdrawals(ctx, tx, sh); err != nil {
			return nil, err
		}
	}
	return shifts, nil
}

func (s *reportingService) XReport(ctx context.Context, mode Mode) (*XReport, error) {
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row locks make a concurrent posting of any of these orders wait for the report.
	orders, err := loadOrdersWhere(ctx, tx,
		`mode = $1 AND is_read = false AND status <> 'PENDING'`, `FOR UPDATE`, mode)
	if err != nil {
		return nil, err
	}

	shifts, err := loadShiftsWhere(ctx, tx, `mode = $1 ORDER BY id DESC LIMIT 1`, mode)
	if err != nil {
		return nil, err
	}
	var shift *Shift
	cashier := "N/A"
	if len(shifts) > 0 {
		shift = shifts[0]
		cashier = shift.CashierEmail
		if u, err := s.users.GetByEmail(ctx, shift.CashierEmail); err == nil {
			cashier = u.FullName()
		}
	}

	terminal, err := loadTerminal(ctx, tx)
	if err != nil {
		return nil, err
	}

	report := buildXReport(orders, shift, cashier, terminal, mode, s.now())

	if len(orders) > 0 {
		ids := make([]int64, len(orders))
		for i, o := range orders {
			ids[i] = o.ID
		}
		tag, err := tx.Exec(ctx, `UPDATE orders SET is_read = true WHERE id = ANY($1) AND is_read = false`, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to mark orders read: %w", err)
		}
		if int(tag.RowsAffected()) != len(ids) {
			return nil, fmt.Errorf("marked %d of %d orders read", tag.RowsAffected(), len(ids))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit X report: %w", err)
	}
	log.Printf("X report (%s): %d orders consumed", mode, len(orders))
	return report, nil
}

func (s *reportingService) ZReport(ctx context.Context, mode Mode, now time.Time) (*ZReport, error) {
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}
	dayStart := startOfDay(now)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	counters, err := s.counters.LockTx(ctx, tx, mode)
	if err != nil {
		return nil, err
	}

	orders, err := loadOrdersWhere(ctx, tx, `mode = $1 AND status <> 'PENDING'`, `FOR SHARE`, mode)
	if err != nil {
		return nil, err
	}
	shifts, err := loadShiftsWhere(ctx, tx,
		`mode = $1 AND (ts_out IS NULL OR ts_out >= $2) ORDER BY id`, mode, dayStart)
	if err != nil {
		return nil, err
	}
	terminal, err := loadTerminal(ctx, tx)
	if err != nil {
		return nil, err
	}

	z, err := s.counters.BumpZCounterTx(ctx, tx, mode)
	if err != nil {
		return nil, err
	}

	report := buildZReport(ZReportInput{
		Orders:   orders,
		Shifts:   shifts,
		Terminal: terminal,
		Counters: counters,
		Mode:     mode,
		ZCounter: z,
		Now:      now,
	})

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit Z report: %w", err)
	}
	log.Printf("Z report #%d (%s): %d orders, net %s", z, mode, len(orders), report.Sales.NetAmount.StringFixed(2))
	return report, nil
}

