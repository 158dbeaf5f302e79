package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"pos-core/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeCreated writes a JSON response with status 201.
func writeCreated(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(v)
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{core.ErrEmptyOrder, http.StatusBadRequest, "EMPTY_ORDER"},
	{core.ErrInvalidQuantity, http.StatusBadRequest, "INVALID_QUANTITY"},
	{core.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{core.ErrMalformedCode, http.StatusBadRequest, "MALFORMED_CODE"},
	{core.ErrUnknownEntry, http.StatusBadRequest, "UNKNOWN_ENTRY"},
	{core.ErrUnknownSaleType, http.StatusBadRequest, "UNKNOWN_SALE_TYPE"},
	{core.ErrInvalidMode, http.StatusBadRequest, "INVALID_MODE"},
	{core.ErrInvalidDateRange, http.StatusBadRequest, "INVALID_DATE_RANGE"},
	{core.ErrMissingReference, http.StatusBadRequest, "MISSING_REFERENCE"},

	{core.ErrApprovalRequired, http.StatusForbidden, "APPROVAL_REQUIRED"},
	{core.ErrNotAuthorized, http.StatusForbidden, "NOT_AUTHORIZED"},

	{core.ErrOrderNotFound, http.StatusNotFound, "ORDER_NOT_FOUND"},
	{core.ErrItemNotFound, http.StatusNotFound, "ITEM_NOT_FOUND"},
	{core.ErrJournalLineNotFound, http.StatusNotFound, "JOURNAL_LINE_NOT_FOUND"},

	{core.ErrDiscountConflict, http.StatusConflict, "DISCOUNT_CONFLICT"},
	{core.ErrShiftOpen, http.StatusConflict, "SHIFT_OPEN"},
	{core.ErrAlreadyPosted, http.StatusConflict, "ALREADY_POSTED"},
	{core.ErrOrderNotPending, http.StatusConflict, "ORDER_NOT_PENDING"},
	{core.ErrOrderNotFinalized, http.StatusConflict, "ORDER_NOT_FINALIZED"},
	{core.ErrCouponExhausted, http.StatusConflict, "COUPON_EXHAUSTED"},

	{core.ErrItemUnavailable, http.StatusUnprocessableEntity, "ITEM_UNAVAILABLE"},
	{core.ErrNoDiscount, http.StatusUnprocessableEntity, "NO_DISCOUNT"},
	{core.ErrInvalidCode, http.StatusUnprocessableEntity, "INVALID_CODE"},
	{core.ErrCouponIneligible, http.StatusUnprocessableEntity, "COUPON_INELIGIBLE"},
	{core.ErrTenderMismatch, http.StatusUnprocessableEntity, "TENDER_MISMATCH"},
	{core.ErrDrawerNotSet, http.StatusUnprocessableEntity, "DRAWER_NOT_SET"},
	{core.ErrNoOpenShift, http.StatusUnprocessableEntity, "NO_OPEN_SHIFT"},
	{core.ErrTerminalExpired, http.StatusUnprocessableEntity, "TERMINAL_EXPIRED"},

	{core.ErrBackupFailed, http.StatusInternalServerError, "BACKUP_FAILED"},
}

// classify maps a service error onto an HTTP status and a stable error code.
// Unrecognised errors are internal.
func classify(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// writeServiceError writes err with the status classify assigns it. Internal errors
// are logged and their message is not echoed to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	if code == "INTERNAL_ERROR" {
		log.Printf("request %s: %v", requestIDFromContext(r.Context()), err)
		msg = "internal server error"
	}
	writeError(w, r, msg, code, status)
}
