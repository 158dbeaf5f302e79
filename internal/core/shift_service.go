package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// User log actions.
const (
	ActionClockIn  = "CLOCK_IN"
	ActionClockOut = "CLOCK_OUT"
	ActionWithdraw = "WITHDRAW"
)

// Shift is one cashier clock-in. It is closed by clock-out and never reopened.
type Shift struct {
	ID              int64            `json:"id"`
	Mode            Mode             `json:"mode"`
	CashierEmail    string           `json:"cashier_email"`
	CashInAmount    decimal.Decimal  `json:"cash_in_amount"`
	CashOutAmount   *decimal.Decimal `json:"cash_out_amount,omitempty"`
	ManagerInEmail  string           `json:"manager_in_email"`
	ManagerOutEmail *string          `json:"manager_out_email,omitempty"`
	TsIn            time.Time        `json:"ts_in"`
	TsOut           *time.Time       `json:"ts_out,omitempty"`
	Withdrawals     []UserLog        `json:"withdrawals,omitempty"`
}

// IsOpen reports whether the shift has not been clocked out.
func (s *Shift) IsOpen() bool {
	return s.TsOut == nil
}

// WithdrawalTotal sums the shift's withdrawal log entries.
func (s *Shift) WithdrawalTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, w := range s.Withdrawals {
		sum = sum.Add(w.Amount)
	}
	return sum
}

// UserLog is one cashier action co-signed by a manager.
type UserLog struct {
	ID           int64           `json:"id"`
	ShiftID      *int64          `json:"shift_id,omitempty"`
	Mode         Mode            `json:"mode"`
	CashierEmail string          `json:"cashier_email"`
	ManagerEmail string          `json:"manager_email"`
	Action       string          `json:"action"`
	Amount       decimal.Decimal `json:"amount"`
	CreatedAt    time.Time       `json:"created_at"`
}

// DrawerStatus is the expected content of a cashier's drawer.
type DrawerStatus struct {
	Shift       *Shift          `json:"shift"`
	CashIn      decimal.Decimal `json:"cash_in"`
	CashSales   decimal.Decimal `json:"cash_sales"`
	Withdrawals decimal.Decimal `json:"withdrawals"`
	Expected    decimal.Decimal `json:"expected"`
}

// ExpectedDrawer is cashIn + net cash sales − withdrawals.
func ExpectedDrawer(cashIn, netCashSales, withdrawals decimal.Decimal) decimal.Decimal {
	return cashIn.Add(netCashSales).Sub(withdrawals)
}

type ShiftService interface {
	// ClockIn opens a shift. cashIn below the configured minimum fails with ErrDrawerNotSet.
	ClockIn(ctx context.Context, cashierEmail string, cashIn decimal.Decimal, approval ManagerApproval) (*Shift, error)
	ClockOut(ctx context.Context, cashierEmail string, cashOut decimal.Decimal, approval ManagerApproval) (*Shift, error)
	// Withdraw logs cash taken out of the drawer. Amounts must be positive.
	Withdraw(ctx context.Context, cashierEmail string, amount decimal.Decimal, approval ManagerApproval) (*UserLog, error)
	// Drawer computes the expected drawer of the cashier's open shift.
	Drawer(ctx context.Context, cashierEmail string) (*DrawerStatus, error)
	ActionLog(ctx context.Context, from, to time.Time) ([]UserLog, error)
}

type shiftService struct {
	pool      *pgxpool.Pool
	users     UserService
	terminal  TerminalService
	minCashIn decimal.Decimal
}

func NewShiftService(pool *pgxpool.Pool, users UserService, terminal TerminalService, minCashIn decimal.Decimal) ShiftService {
	return &shiftService{pool: pool, users: users, terminal: terminal, minCashIn: minCashIn}
}

const shiftColumns = `id, mode, cashier_email, cash_in_amount, cash_out_amount, manager_in_email, manager_out_email, ts_in, ts_out`

func scanShift(row pgx.Row) (*Shift, error) {
	var sh Shift
	err := row.Scan(&sh.ID, &sh.Mode, &sh.CashierEmail, &sh.CashInAmount, &sh.CashOutAmount,
		&sh.ManagerInEmail, &sh.ManagerOutEmail, &sh.TsIn, &sh.TsOut)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

func loadWithdrawals(ctx context.Context, q pgxQuerier, sh *Shift) error {
	rows, err := q.Query(ctx, `
		SELECT id, shift_id, mode, cashier_email, manager_email, action, amount, created_at
		FROM user_logs
		WHERE shift_id = $1 AND action = $2
		ORDER BY created_at, id
	`, sh.ID, ActionWithdraw)
	if err != nil {
		return fmt.Errorf("failed to query withdrawals of shift %d: %w", sh.ID, err)
	}
	logs, err := collectUserLogs(rows)
	if err != nil {
		return err
	}
	sh.Withdrawals = logs
	return nil
}

func collectUserLogs(rows pgx.Rows) ([]UserLog, error) {
	defer rows.Close()
	var out []UserLog
	for rows.Next() {
		var l UserLog
		if err := rows.Scan(&l.ID, &l.ShiftID, &l.Mode, &l.CashierEmail, &l.ManagerEmail, &l.Action, &l.Amount, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// openShift locks the cashier's open shift in mode.
func openShift(ctx context.Context, tx pgx.Tx, cashier string, mode Mode) (*Shift, error) {
	sh, err := scanShift(tx.QueryRow(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE cashier_email = $1 AND mode = $2 AND ts_out IS NULL
		FOR UPDATE
	`, cashier, mode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", cashier, ErrNoOpenShift)
		}
		return nil, fmt.Errorf("failed to load open shift: %w", err)
	}
	return sh, nil
}

func insertUserLog(ctx context.Context, tx pgx.Tx, l UserLog) (*UserLog, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO user_logs (shift_id, mode, cashier_email, manager_email, action, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, l.ShiftID, l.Mode, l.CashierEmail, l.ManagerEmail, l.Action, l.Amount).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to write %s log: %w", l.Action, err)
	}
	return &l, nil
}

func (s *shiftService) ClockIn(ctx context.Context, cashierEmail string, cashIn decimal.Decimal, approval ManagerApproval) (*Shift, error) {
	if cashIn.LessThan(s.minCashIn) {
		return nil, fmt.Errorf("cash-in %s below minimum %s: %w", cashIn.StringFixed(2), s.minCashIn.StringFixed(2), ErrDrawerNotSet)
	}
	cashier, err := s.users.GetByEmail(ctx, cashierEmail)
	if err != nil {
		return nil, err
	}
	manager, err := s.users.Authorize(ctx, approval)
	if err != nil {
		return nil, err
	}
	mode, err := s.terminal.ActiveMode(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sh, err := scanShift(tx.QueryRow(ctx, `
		INSERT INTO shifts (mode, cashier_email, cash_in_amount, manager_in_email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cashier_email, mode) WHERE ts_out IS NULL DO NOTHING
		RETURNING `+shiftColumns,
		mode, cashier.Email, cashIn, manager.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", cashier.Email, ErrShiftOpen)
		}
		return nil, fmt.Errorf("failed to open shift: %w", err)
	}
	if _, err := insertUserLog(ctx, tx, UserLog{ShiftID: &sh.ID, Mode: mode, CashierEmail: cashier.Email,
		ManagerEmail: manager.Email, Action: ActionClockIn, Amount: cashIn}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit clock-in: %w", err)
	}
	log.Printf("%s clocked in with %s (%s)", cashier.Email, cashIn.StringFixed(2), mode)
	return sh, nil
}

func (s *shiftService) ClockOut(ctx context.Context, cashierEmail string, cashOut decimal.Decimal, approval ManagerApproval) (*Shift, error) {
	if cashOut.IsNegative() {
		return nil, ErrInvalidAmount
	}
	manager, err := s.users.Authorize(ctx, approval)
	if err != nil {
		return nil, err
	}
	mode, err := s.terminal.ActiveMode(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sh, err := openShift(ctx, tx, cashierEmail, mode)
	if err != nil {
		return nil, err
	}
	sh, err = scanShift(tx.QueryRow(ctx, `
		UPDATE shifts
		SET cash_out_amount = $2, manager_out_email = $3, ts_out = now()
		WHERE id = $1 AND ts_out IS NULL
		RETURNING `+shiftColumns,
		sh.ID, cashOut, manager.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to close shift: %w", err)
	}
	if _, err := insertUserLog(ctx, tx, UserLog{ShiftID: &sh.ID, Mode: mode, CashierEmail: sh.CashierEmail,
		ManagerEmail: manager.Email, Action: ActionClockOut, Amount: cashOut}); err != nil {
		return nil, err
	}
	if err := loadWithdrawals(ctx, tx, sh); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit clock-out: %w", err)
	}
	log.Printf("%s clocked out with %s (%s)", sh.CashierEmail, cashOut.StringFixed(2), mode)
	return sh, nil
}

func (s *shiftService) Withdraw(ctx context.Context, cashierEmail string, amount decimal.Decimal, approval ManagerApproval) (*UserLog, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	manager, err := s.users.Authorize(ctx, approval)
	if err != nil {
		return nil, err
	}
	mode, err := s.terminal.ActiveMode(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sh, err := openShift(ctx, tx, cashierEmail, mode)
	if err != nil {
		return nil, err
	}
	entry, err := insertUserLog(ctx, tx, UserLog{ShiftID: &sh.ID, Mode: mode, CashierEmail: sh.CashierEmail,
		ManagerEmail: manager.Email, Action: ActionWithdraw, Amount: amount})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit withdrawal: %w", err)
	}
	log.Printf("%s withdrew %s, approved by %s", sh.CashierEmail, amount.StringFixed(2), manager.Email)
	return entry, nil
}

func (s *shiftService) Drawer(ctx context.Context, cashierEmail string) (*DrawerStatus, error) {
	mode, err := s.terminal.ActiveMode(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sh, err := scanShift(tx.QueryRow(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE cashier_email = $1 AND mode = $2 AND ts_out IS NULL
	`, cashierEmail, mode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", cashierEmail, ErrNoOpenShift)
		}
		return nil, fmt.Errorf("failed to load open shift: %w", err)
	}
	if err := loadWithdrawals(ctx, tx, sh); err != nil {
		return nil, err
	}

	var cashSales decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(cash_tendered - change_amount), 0)
		FROM orders
		WHERE cashier_email = $1 AND mode = $2 AND status = 'FINALIZED'
		  AND finalized_at >= $3
	`, cashierEmail, mode, sh.TsIn).Scan(&cashSales)
	if err != nil {
		return nil, fmt.Errorf("failed to sum cash sales: %w", err)
	}

	withdrawals := sh.WithdrawalTotal()
	return &DrawerStatus{
		Shift:       sh,
		CashIn:      sh.CashInAmount,
		CashSales:   cashSales,
		Withdrawals: withdrawals,
		Expected:    ExpectedDrawer(sh.CashInAmount, cashSales, withdrawals),
	}, nil
}

func (s *shiftService) ActionLog(ctx context.Context, from, to time.Time) ([]UserLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, shift_id, mode, cashier_email, manager_email, action, amount, created_at
		FROM user_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at, id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query user logs: %w", err)
	}
	return collectUserLogs(rows)
}
