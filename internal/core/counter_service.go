package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Counters is the persistent counter row of one mode. Every bump is a single
// UPDATE ... RETURNING on that row, so concurrent callers serialize on its row
// lock and never observe the same value.
type Counters struct {
	Mode          Mode            `json:"mode"`
	LastInvoiceNo int64           `json:"last_invoice_no"`
	ZCounter      int64           `json:"z_counter"`
	ResetCounter  int64           `json:"reset_counter"`
	CarriedSales  decimal.Decimal `json:"carried_sales"`
	Version       int64           `json:"version"`
}

type CounterService interface {
	Get(ctx context.Context, mode Mode) (*Counters, error)
	// LockTx reads the counter row FOR UPDATE inside the caller's transaction.
	LockTx(ctx context.Context, tx pgx.Tx, mode Mode) (*Counters, error)
	// NextInvoiceTx assigns the next invoice number. It must share the transaction
	// that persists the finalized order so a number is never handed out twice.
	NextInvoiceTx(ctx context.Context, tx pgx.Tx, mode Mode) (int64, error)
	// BumpZCounterTx increments the Z counter and returns the new value.
	BumpZCounterTx(ctx context.Context, tx pgx.Tx, mode Mode) (int64, error)
	// BumpResetCounterTx increments the reset counter and adds carried to the
	// accumulated sales brought forward from truncated history.
	BumpResetCounterTx(ctx context.Context, tx pgx.Tx, mode Mode, carried decimal.Decimal) (int64, error)
	// ResetTx zeroes the Z and reset counters. Only re-registration calls it.
	ResetTx(ctx context.Context, tx pgx.Tx) error
}

type counterService struct {
	pool *pgxpool.Pool
}

func NewCounterService(pool *pgxpool.Pool) CounterService {
	return &counterService{pool: pool}
}

const counterColumns = `mode, last_invoice_no, z_counter, reset_counter, carried_sales, version`

func scanCounters(row pgx.Row) (*Counters, error) {
	var c Counters
	if err := row.Scan(&c.Mode, &c.LastInvoiceNo, &c.ZCounter, &c.ResetCounter, &c.CarriedSales, &c.Version); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *counterService) Get(ctx context.Context, mode Mode) (*Counters, error) {
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}
	c, err := scanCounters(s.pool.QueryRow(ctx, `SELECT `+counterColumns+` FROM pos_counters WHERE mode = $1`, mode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("counters for mode %s not initialised: run migrations", mode)
		}
		return nil, fmt.Errorf("failed to read counters: %w", err)
	}
	return c, nil
}

func (s *counterService) LockTx(ctx context.Context, tx pgx.Tx, mode Mode) (*Counters, error) {
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}
	c, err := scanCounters(tx.QueryRow(ctx, `SELECT `+counterColumns+` FROM pos_counters WHERE mode = $1 FOR UPDATE`, mode))
	if err != nil {
		return nil, fmt.Errorf("failed to lock counters for %s: %w", mode, err)
	}
	return c, nil
}

func (s *counterService) NextInvoiceTx(ctx context.Context, tx pgx.Tx, mode Mode) (int64, error) {
	return bumpCounter(ctx, tx, mode, "last_invoice_no")
}

func (s *counterService) BumpZCounterTx(ctx context.Context, tx pgx.Tx, mode Mode) (int64, error) {
	return bumpCounter(ctx, tx, mode, "z_counter")
}

func (s *counterService) BumpResetCounterTx(ctx context.Context, tx pgx.Tx, mode Mode, carried decimal.Decimal) (int64, error) {
	if !mode.Valid() {
		return 0, ErrInvalidMode
	}
	var next int64
	err := tx.QueryRow(ctx, `
		UPDATE pos_counters
		SET reset_counter = reset_counter + 1,
		    carried_sales = carried_sales + $2,
		    version = version + 1
		WHERE mode = $1
		RETURNING reset_counter
	`, mode, carried).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to bump reset counter: %w", err)
	}
	return next, nil
}

func (s *counterService) ResetTx(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		UPDATE pos_counters
		SET z_counter = 0, reset_counter = 0, carried_sales = 0, version = version + 1
	`)
	if err != nil {
		return fmt.Errorf("failed to reset counters: %w", err)
	}
	return nil
}

// bumpCounter increments one column of the mode's row. column is never user input.
func bumpCounter(ctx context.Context, tx pgx.Tx, mode Mode, column string) (int64, error) {
	if !mode.Valid() {
		return 0, ErrInvalidMode
	}
	var next int64
	query := fmt.Sprintf(`
		UPDATE pos_counters
		SET %[1]s = %[1]s + 1, version = version + 1
		WHERE mode = $1
		RETURNING %[1]s
	`, column)
	if err := tx.QueryRow(ctx, query, mode).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to bump %s for %s: %w", column, mode, err)
	}
	return next, nil
}
