package app

import (
	"github.com/shopspring/decimal"

	"pos-core/internal/core"
)

// ShiftRequest is the input for clock-in, clock-out and withdrawal. Amount is the
// opening fund, the declared drawer count or the withdrawn cash respectively.
type ShiftRequest struct {
	CashierEmail string               `json:"cashier_email"`
	Amount       decimal.Decimal      `json:"amount"`
	Approval     core.ManagerApproval `json:"approval"`
}

// RegisterTerminalRequest is the input for RegisterTerminal. ResetCounters zeroes
// the Z and reset counters of both modes and requires Approval.
type RegisterTerminalRequest struct {
	Info          core.TerminalInfo    `json:"info"`
	ResetCounters bool                 `json:"reset_counters"`
	Approval      core.ManagerApproval `json:"approval"`
}
