package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"pos-core/internal/app"

	"github.com/go-chi/chi/v5"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins []string) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(TillContext)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// ── Catalog ───────────────────────────────────────────────────────────
		r.Get("/api/menu/{kind}", h.apiListMenu)

		// ── Orders ────────────────────────────────────────────────────────────
		r.Post("/api/orders", h.apiComposeOrder)
		r.Get("/api/orders/pending", h.apiPendingOrder)
		r.Get("/api/orders/{id}", h.apiGetOrder)
		r.Post("/api/orders/{id}/discount", h.apiApplyDiscount)
		r.Delete("/api/orders/{id}/discount", h.apiRemoveDiscount)
		r.Post("/api/orders/{id}/items/{lineID}/void", h.apiVoidItem)
		r.Post("/api/orders/{id}/cancel", h.apiCancelOrder)
		r.Post("/api/orders/{id}/finalize", h.apiFinalizeOrder)

		// ── Invoices & journal ────────────────────────────────────────────────
		r.Get("/api/invoices", h.apiListInvoices)
		r.Get("/api/invoices/{invoiceNo}", h.apiGetInvoice)
		r.Post("/api/invoices/{invoiceNo}/return", h.apiReturnInvoice)
		r.Get("/api/invoices/{invoiceNo}/journal", h.apiJournalEntries)
		r.Post("/api/invoices/{invoiceNo}/journal", h.apiPostJournal)
		r.Post("/api/invoices/{invoiceNo}/journal/unpost", h.apiUnpostReference)

		// ── Shifts ────────────────────────────────────────────────────────────
		r.Post("/api/shifts/clock-in", h.apiClockIn)
		r.Post("/api/shifts/clock-out", h.apiClockOut)
		r.Post("/api/shifts/withdraw", h.apiWithdraw)
		r.Get("/api/shifts/drawer", h.apiDrawer)
		r.Get("/api/shifts/log", h.apiActionLog)

		// ── Reports & admin ───────────────────────────────────────────────────
		r.Post("/api/reports/x", h.apiXReport)
		r.Post("/api/reports/z", h.apiZReport)
		r.Post("/api/admin/truncate", h.apiTruncate)
		r.Get("/api/terminal", h.apiTerminalInfo)
		r.Put("/api/terminal", h.apiRegisterTerminal)
		r.Post("/api/terminal/train-mode", h.apiSetTrainMode)
	})

	h.router = r
	return r
}

// health reports whether the database is reachable.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}

	if err := h.svc.Health(r.Context()); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(response{Status: "degraded", Database: err.Error()})
		return
	}
	writeJSON(w, response{Status: "ok", Database: "ok"})
}

// pathInt64 parses the named URL parameter. It writes a 400 and returns false when
// the parameter is not a positive integer.
func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		writeError(w, r, "invalid "+name+": "+raw, "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
