package web

import (
	"net/http"

	"pos-core/internal/core"
)

// apiListInvoices handles GET /api/invoices?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *Handler) apiListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.svc.ListInvoices(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetInvoice handles GET /api/invoices/{invoiceNo}.
func (h *Handler) apiGetInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceNo, ok := pathInt64(w, r, "invoiceNo")
	if !ok {
		return
	}
	receipt, err := h.svc.GetInvoice(r.Context(), invoiceNo)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, receipt)
}

// apiReturnInvoice handles POST /api/invoices/{invoiceNo}/return.
func (h *Handler) apiReturnInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceNo, ok := pathInt64(w, r, "invoiceNo")
	if !ok {
		return
	}
	var body approvalBody
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.ReturnOrder(r.Context(), invoiceNo, body.Approval)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// apiJournalEntries handles GET /api/invoices/{invoiceNo}/journal.
func (h *Handler) apiJournalEntries(w http.ResponseWriter, r *http.Request) {
	invoiceNo, ok := pathInt64(w, r, "invoiceNo")
	if !ok {
		return
	}
	result, err := h.svc.JournalEntries(r.Context(), invoiceNo)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiPostJournal handles POST /api/invoices/{invoiceNo}/journal. It retries the
// posting of an invoice whose journal failed at finalization.
func (h *Handler) apiPostJournal(w http.ResponseWriter, r *http.Request) {
	invoiceNo, ok := pathInt64(w, r, "invoiceNo")
	if !ok {
		return
	}
	if err := h.svc.PostJournal(r.Context(), invoiceNo); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, map[string]string{
		"status":         "posted",
		"invoice_number": core.FormatOrderNumber(invoiceNo),
	})
}

// apiUnpostReference handles POST /api/invoices/{invoiceNo}/journal/unpost.
// Body: { reference }
func (h *Handler) apiUnpostReference(w http.ResponseWriter, r *http.Request) {
	invoiceNo, ok := pathInt64(w, r, "invoiceNo")
	if !ok {
		return
	}
	var body struct {
		Reference string `json:"reference"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Reference == "" {
		writeError(w, r, "reference is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if err := h.svc.UnpostReference(r.Context(), invoiceNo, body.Reference); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "unposted", "reference": body.Reference})
}
