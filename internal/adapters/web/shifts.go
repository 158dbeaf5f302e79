package web

import (
	"net/http"

	"pos-core/internal/app"
)

// decodeShift decodes a ShiftRequest and insists on the cashier email.
func decodeShift(w http.ResponseWriter, r *http.Request) (app.ShiftRequest, bool) {
	var req app.ShiftRequest
	if !decodeJSON(w, r, &req) {
		return req, false
	}
	if req.CashierEmail == "" {
		writeError(w, r, "cashier_email is required", "BAD_REQUEST", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// apiClockIn handles POST /api/shifts/clock-in.
// Body: { cashier_email, amount, approval: {manager_email} }
func (h *Handler) apiClockIn(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeShift(w, r)
	if !ok {
		return
	}
	shift, err := h.svc.ClockIn(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, shift)
}

// apiClockOut handles POST /api/shifts/clock-out.
func (h *Handler) apiClockOut(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeShift(w, r)
	if !ok {
		return
	}
	shift, err := h.svc.ClockOut(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, shift)
}

// apiWithdraw handles POST /api/shifts/withdraw.
func (h *Handler) apiWithdraw(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeShift(w, r)
	if !ok {
		return
	}
	entry, err := h.svc.Withdraw(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, entry)
}

// apiDrawer handles GET /api/shifts/drawer?cashier=.
func (h *Handler) apiDrawer(w http.ResponseWriter, r *http.Request) {
	cashier := r.URL.Query().Get("cashier")
	if cashier == "" {
		writeError(w, r, "cashier query parameter is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	status, err := h.svc.Drawer(r.Context(), cashier)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status)
}

// apiActionLog handles GET /api/shifts/log?from=&to=.
func (h *Handler) apiActionLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.svc.ActionLog(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
