package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// expiryWarningDays is how early a terminal starts warning about its permit.
const expiryWarningDays = 7

// TerminalInfo is the singleton registration row plus the counters of both modes.
type TerminalInfo struct {
	PosSerialNumber     string     `json:"pos_serial_number"`
	MinNumber           string     `json:"min_number"`
	AccreditationNumber string     `json:"accreditation_number"`
	PtuNumber           string     `json:"ptu_number"`
	DateIssued          *time.Time `json:"date_issued,omitempty"`
	ValidUntil          *time.Time `json:"valid_until,omitempty"`
	RegisteredName      string     `json:"registered_name"`
	OperatedBy          string     `json:"operated_by"`
	Address             string     `json:"address"`
	VatTinNumber        string     `json:"vat_tin_number"`
	IsTrainMode         bool       `json:"is_train_mode"`

	ResetCounterNo      int64 `json:"reset_counter_no"`
	ResetCounterTrainNo int64 `json:"reset_counter_train_no"`
	ZCounterNo          int64 `json:"z_counter_no"`
	ZCounterTrainNo     int64 `json:"z_counter_train_no"`
}

// Mode returns the mode new orders and shifts are recorded under.
func (t *TerminalInfo) Mode() Mode {
	if t.IsTrainMode {
		return ModeTraining
	}
	return ModeLive
}

// TerminalStatus is the validity of the terminal's permit at a point in time.
type TerminalStatus struct {
	Expired       bool   `json:"expired"`
	ExpiringSoon  bool   `json:"expiring_soon"`
	RemainingDays int    `json:"remaining_days"`
	Message       string `json:"message"`
}

// ValidateExpiration checks validUntil against now. A terminal without a validity
// window is treated as valid.
func ValidateExpiration(validUntil *time.Time, now time.Time) TerminalStatus {
	if validUntil == nil {
		return TerminalStatus{RemainingDays: -1, Message: "terminal has no validity window"}
	}
	end := *validUntil
	if now.After(end) {
		return TerminalStatus{Expired: true, Message: fmt.Sprintf("terminal expired on %s", end.Format("2006-01-02"))}
	}
	days := int(end.Sub(now).Hours() / 24)
	st := TerminalStatus{RemainingDays: days}
	if days <= expiryWarningDays {
		st.ExpiringSoon = true
		st.Message = fmt.Sprintf("terminal expires in %d day(s)", days)
	} else {
		st.Message = "terminal is valid"
	}
	return st
}

type TerminalService interface {
	Info(ctx context.Context) (*TerminalInfo, error)
	ActiveMode(ctx context.Context) (Mode, error)
	Status(ctx context.Context, now time.Time) (*TerminalStatus, error)
	// Register overwrites the registration fields. resetCounters zeroes the Z and
	// reset counters of both modes and needs a manager; invoice numbers are never reset.
	Register(ctx context.Context, info TerminalInfo, resetCounters bool, approval ManagerApproval) (*TerminalInfo, error)
	SetTrainMode(ctx context.Context, on bool, approval ManagerApproval) (*TerminalInfo, error)
}

type terminalService struct {
	pool     *pgxpool.Pool
	counters CounterService
	users    UserService
}

func NewTerminalService(pool *pgxpool.Pool, counters CounterService, users UserService) TerminalService {
	return &terminalService{pool: pool, counters: counters, users: users}
}

func (s *terminalService) Info(ctx context.Context) (*TerminalInfo, error) {
	return loadTerminal(ctx, s.pool)
}

func loadTerminal(ctx context.Context, q pgxQuerier) (*TerminalInfo, error) {
	var t TerminalInfo
	err := q.QueryRow(ctx, `
		SELECT t.pos_serial_number, t.min_number, t.accreditation_number, t.ptu_number,
		       t.date_issued, t.valid_until, t.registered_name, t.operated_by, t.address,
		       t.vat_tin_number, t.is_train_mode,
		       l.reset_counter, tr.reset_counter, l.z_counter, tr.z_counter
		FROM pos_terminal_info t
		JOIN pos_counters l ON l.mode = 'LIVE'
		JOIN pos_counters tr ON tr.mode = 'TRAINING'
		WHERE t.id = 1
	`).Scan(
		&t.PosSerialNumber, &t.MinNumber, &t.AccreditationNumber, &t.PtuNumber,
		&t.DateIssued, &t.ValidUntil, &t.RegisteredName, &t.OperatedBy, &t.Address,
		&t.VatTinNumber, &t.IsTrainMode,
		&t.ResetCounterNo, &t.ResetCounterTrainNo, &t.ZCounterNo, &t.ZCounterTrainNo,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load terminal info: %w", err)
	}
	return &t, nil
}

func (s *terminalService) ActiveMode(ctx context.Context) (Mode, error) {
	var train bool
	if err := s.pool.QueryRow(ctx, "SELECT is_train_mode FROM pos_terminal_info WHERE id = 1").Scan(&train); err != nil {
		return "", fmt.Errorf("failed to read terminal mode: %w", err)
	}
	if train {
		return ModeTraining, nil
	}
	return ModeLive, nil
}

func (s *terminalService) Status(ctx context.Context, now time.Time) (*TerminalStatus, error) {
	t, err := s.Info(ctx)
	if err != nil {
		return nil, err
	}
	st := ValidateExpiration(t.ValidUntil, now)
	return &st, nil
}

func (s *terminalService) Register(ctx context.Context, info TerminalInfo, resetCounters bool, approval ManagerApproval) (*TerminalInfo, error) {
	if resetCounters {
		if _, err := s.users.Authorize(ctx, approval); err != nil {
			return nil, err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE pos_terminal_info
		SET pos_serial_number = $1, min_number = $2, accreditation_number = $3, ptu_number = $4,
		    date_issued = $5, valid_until = $6, registered_name = $7, operated_by = $8,
		    address = $9, vat_tin_number = $10, updated_at = now()
		WHERE id = 1
	`, info.PosSerialNumber, info.MinNumber, info.AccreditationNumber, info.PtuNumber,
		info.DateIssued, info.ValidUntil, info.RegisteredName, info.OperatedBy,
		info.Address, info.VatTinNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to update terminal info: %w", err)
	}

	if resetCounters {
		if err := s.counters.ResetTx(ctx, tx); err != nil {
			return nil, err
		}
	}

	t, err := loadTerminal(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit terminal registration: %w", err)
	}
	if resetCounters {
		log.Printf("terminal registered: serial=%s counters reset by %s", t.PosSerialNumber, approval.Email)
	} else {
		log.Printf("terminal registered: serial=%s", t.PosSerialNumber)
	}
	return t, nil
}

func (s *terminalService) SetTrainMode(ctx context.Context, on bool, approval ManagerApproval) (*TerminalInfo, error) {
	if _, err := s.users.Authorize(ctx, approval); err != nil {
		return nil, err
	}
	if _, err := s.pool.Exec(ctx, "UPDATE pos_terminal_info SET is_train_mode = $1, updated_at = now() WHERE id = 1", on); err != nil {
		return nil, fmt.Errorf("failed to switch training mode: %w", err)
	}
	log.Printf("training mode set to %v by %s", on, approval.Email)
	return s.Info(ctx)
}
