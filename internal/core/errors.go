package core

import "errors"

// Validation errors: rejected before any mutation.
var (
	ErrEmptyOrder       = errors.New("order has no active items")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrMalformedCode    = errors.New("malformed discount code")
	ErrApprovalRequired = errors.New("manager approval required")
	ErrNotAuthorized    = errors.New("approver is not an active manager")
	ErrUnknownEntry     = errors.New("entry id does not belong to this order")
	ErrUnknownSaleType  = errors.New("unknown sale type")
	ErrInvalidMode      = errors.New("invalid mode")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrMissingReference = errors.New("journal reference is required")
)

// Business-rule conflicts: rejected with no partial state change.
var (
	ErrItemUnavailable     = errors.New("item unavailable")
	ErrDiscountConflict    = errors.New("order already has a discount")
	ErrNoDiscount          = errors.New("order has no discount")
	ErrInvalidCode         = errors.New("invalid or expired code")
	ErrCouponExhausted     = errors.New("coupon has no remaining redemptions")
	ErrCouponIneligible    = errors.New("order has no item eligible for this coupon")
	ErrTenderMismatch      = errors.New("tender does not match order total")
	ErrDrawerNotSet        = errors.New("cash drawer not set: cash-in below minimum")
	ErrShiftOpen           = errors.New("cashier already has an open shift")
	ErrNoOpenShift         = errors.New("cashier has no open shift")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderNotPending     = errors.New("order is not pending")
	ErrOrderNotFinalized   = errors.New("order is not finalized")
	ErrItemNotFound        = errors.New("order item not found")
	ErrAlreadyPosted       = errors.New("journal already posted for invoice")
	ErrJournalLineNotFound = errors.New("posted journal line not found")
	ErrTerminalExpired     = errors.New("terminal registration has expired")
)

// Integrity errors: the whole operation is rolled back.
var (
	ErrBackupFailed = errors.New("backup failed")
)
