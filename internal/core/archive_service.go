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

// Snapshot is the transactional history of one mode as it stood right before a
// truncation. Journal is empty for training snapshots.
type Snapshot struct {
	Mode       Mode
	ResetNo    int64
	TakenAt    time.Time
	Orders     []*Order
	Shifts     []*Shift
	UserLogs   []UserLog
	Journal    []JournalLine
	Terminal   *TerminalInfo
	CarriedIn  decimal.Decimal
	CarriedOut decimal.Decimal
}

// SnapshotWriter persists a snapshot to durable storage. Truncation only proceeds
// once Write has returned nil.
type SnapshotWriter interface {
	Write(ctx context.Context, snap *Snapshot) ([]string, error)
}

// TruncateResult reports what a truncation removed and where its backup went.
type TruncateResult struct {
	Mode           Mode            `json:"mode"`
	ResetCounter   int64           `json:"reset_counter"`
	BackupFiles    []string        `json:"backup_files"`
	OrdersRemoved  int64           `json:"orders_removed"`
	JournalRemoved int64           `json:"journal_removed"`
	CarriedForward decimal.Decimal `json:"carried_forward"`
	CompletedAt    time.Time       `json:"completed_at"`
}

type ArchiveService interface {
	// Truncate backs up then purges the transactional history of mode and bumps the
	// mode's reset counter. Backup, delete and bump share one transaction that holds
	// exclusive locks over every affected table, so the dataset is either fully
	// pre-truncation or fully post-truncation.
	Truncate(ctx context.Context, mode Mode, approval ManagerApproval) (*TruncateResult, error)
}

type archiveService struct {
	pool     *pgxpool.Pool
	users    UserService
	counters CounterService
	writer   SnapshotWriter
	now      func() time.Time
}

func NewArchiveService(pool *pgxpool.Pool, users UserService, counters CounterService, writer SnapshotWriter) ArchiveService {
	return &archiveService{pool: pool, users: users, counters: counters, writer: writer, now: time.Now}
}

// transactionalTables are locked by truncation, children before parents.
var transactionalTables = []string{
	"alternative_payments", "order_items", "user_logs", "shifts", "orders", "account_journal",
}

func (s *archiveService) Truncate(ctx context.Context, mode Mode, approval ManagerApproval) (*TruncateResult, error) {
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

	// Blocks finalization, posting and reporting until commit or rollback.
	if _, err := tx.Exec(ctx, `
		LOCK TABLE alternative_payments, order_items, user_logs, shifts, orders, account_journal
		IN ACCESS EXCLUSIVE MODE
	`); err != nil {
		return nil, fmt.Errorf("failed to lock transactional tables: %w", err)
	}

	counters, err := s.counters.LockTx(ctx, tx, mode)
	if err != nil {
		return nil, err
	}

	snap, err := loadSnapshot(ctx, tx, mode)
	if err != nil {
		return nil, err
	}
	snap.ResetNo = counters.ResetCounter
	snap.TakenAt = s.now()
	snap.CarriedIn = counters.CarriedSales
	for _, o := range snap.Orders {
		if o.Status == OrderFinalized {
			snap.CarriedOut = snap.CarriedOut.Add(o.Totals.TotalAmount)
		}
	}

	files, err := s.writer.Write(ctx, snap)
	if err != nil {
		log.Printf("truncate %s aborted: backup failed: %v", mode, err)
		return nil, fmt.Errorf("%v: %w", err, ErrBackupFailed)
	}

	res := &TruncateResult{Mode: mode, BackupFiles: files, CarriedForward: snap.CarriedOut}

	steps := []string{
		`DELETE FROM alternative_payments WHERE order_id IN (SELECT id FROM orders WHERE mode = $1)`,
		`DELETE FROM order_items WHERE order_id IN (SELECT id FROM orders WHERE mode = $1)`,
		`DELETE FROM user_logs WHERE mode = $1`,
		`DELETE FROM shifts WHERE mode = $1`,
	}
	for _, q := range steps {
		if _, err := tx.Exec(ctx, q, mode); err != nil {
			return nil, fmt.Errorf("failed to truncate: %w", err)
		}
	}
	tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE mode = $1`, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to delete orders: %w", err)
	}
	res.OrdersRemoved = tag.RowsAffected()

	// The journal only ever holds live postings.
	if mode == ModeLive {
		tag, err := tx.Exec(ctx, `DELETE FROM account_journal`)
		if err != nil {
			return nil, fmt.Errorf("failed to delete journal: %w", err)
		}
		res.JournalRemoved = tag.RowsAffected()
	}

	if err := restartEmptySequences(ctx, tx); err != nil {
		return nil, err
	}

	res.ResetCounter, err = s.counters.BumpResetCounterTx(ctx, tx, mode, snap.CarriedOut)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit truncation: %w", err)
	}
	res.CompletedAt = s.now()
	log.Printf("truncated %s history (%d orders, %d journal lines), reset counter now %d, approved by %s",
		mode, res.OrdersRemoved, res.JournalRemoved, res.ResetCounter, manager.Email)
	return res, nil
}

// restartEmptySequences restarts the id sequence of every table left empty. Tables
// still holding the other mode's rows keep their sequence.
func restartEmptySequences(ctx context.Context, tx pgx.Tx) error {
	for _, table := range transactionalTables {
		var empty bool
		if err := tx.QueryRow(ctx, `SELECT NOT EXISTS (SELECT 1 FROM `+table+`)`).Scan(&empty); err != nil {
			return fmt.Errorf("failed to inspect %s: %w", table, err)
		}
		if !empty {
			continue
		}
		if _, err := tx.Exec(ctx, `SELECT setval(pg_get_serial_sequence($1, 'id'), 1, false)`, table); err != nil {
			return fmt.Errorf("failed to restart %s sequence: %w", table, err)
		}
	}
	return nil
}

func loadSnapshot(ctx context.Context, tx pgx.Tx, mode Mode) (*Snapshot, error) {
	snap := &Snapshot{Mode: mode, CarriedOut: decimal.Zero}

	orders, err := loadOrdersWhere(ctx, tx, `mode = $1`, ``, mode)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		if err := loadOrderItems(ctx, tx, o); err != nil {
			return nil, err
		}
	}
	snap.Orders = orders

	if snap.Shifts, err = loadShiftsWhere(ctx, tx, `mode = $1 ORDER BY id`, mode); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, shift_id, mode, cashier_email, manager_email, action, amount, created_at
		FROM user_logs
		WHERE mode = $1
		ORDER BY id
	`, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to query user logs: %w", err)
	}
	if snap.UserLogs, err = collectUserLogs(rows); err != nil {
		return nil, err
	}

	if mode == ModeLive {
		if snap.Journal, err = queryJournal(ctx, tx, `TRUE`); err != nil {
			return nil, err
		}
	}

	if snap.Terminal, err = loadTerminal(ctx, tx); err != nil {
		return nil, err
	}
	return snap, nil
}
