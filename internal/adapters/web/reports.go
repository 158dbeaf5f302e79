package web

import (
	"net/http"

	"pos-core/internal/app"
	"pos-core/internal/core"
)

// apiXReport handles POST /api/reports/x. It is a POST because generating the
// report marks the orders it covers as read.
func (h *Handler) apiXReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.XReport(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

// apiZReport handles POST /api/reports/z. Every call bumps the Z counter.
func (h *Handler) apiZReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.ZReport(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

// apiTruncate handles POST /api/admin/truncate.
// Body: { approval: {manager_email} }
func (h *Handler) apiTruncate(w http.ResponseWriter, r *http.Request) {
	var body approvalBody
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.Truncate(r.Context(), body.Approval)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiTerminalInfo handles GET /api/terminal.
func (h *Handler) apiTerminalInfo(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.TerminalInfo(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiRegisterTerminal handles PUT /api/terminal.
// Body: { info: {...}, reset_counters }
func (h *Handler) apiRegisterTerminal(w http.ResponseWriter, r *http.Request) {
	var req app.RegisterTerminalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.RegisterTerminal(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiSetTrainMode handles POST /api/terminal/train-mode.
// Body: { on, approval: {manager_email} }
func (h *Handler) apiSetTrainMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		On       bool                 `json:"on"`
		Approval core.ManagerApproval `json:"approval"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.SetTrainMode(r.Context(), body.On, body.Approval)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
