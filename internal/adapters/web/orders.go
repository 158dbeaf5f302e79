package web

import (
	"net/http"
	"strings"

	"pos-core/internal/core"

	"github.com/go-chi/chi/v5"
)

// approvalBody is the body of every manager-gated call that carries nothing else.
type approvalBody struct {
	Approval core.ManagerApproval `json:"approval"`
}

// apiListMenu handles GET /api/menu/{kind}. Kind is menu, drink or addon.
func (h *Handler) apiListMenu(w http.ResponseWriter, r *http.Request) {
	kind := core.ItemKind(strings.ToUpper(chi.URLParam(r, "kind")))
	if !kind.Valid() {
		writeError(w, r, "unknown item kind: "+chi.URLParam(r, "kind"), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.ListMenu(r.Context(), kind)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiComposeOrder handles POST /api/orders.
// Body: { cashier_email, order_type, lines: [{kind, item_id, quantity, entry_id?, parent_entry_id?}] }
func (h *Handler) apiComposeOrder(w http.ResponseWriter, r *http.Request) {
	var req core.ComposeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CashierEmail == "" {
		writeError(w, r, "cashier_email is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.ComposeOrder(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, result)
}

// apiPendingOrder handles GET /api/orders/pending?cashier=.
func (h *Handler) apiPendingOrder(w http.ResponseWriter, r *http.Request) {
	cashier := r.URL.Query().Get("cashier")
	if cashier == "" {
		writeError(w, r, "cashier query parameter is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.GetPendingOrder(r.Context(), cashier)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetOrder handles GET /api/orders/{id}.
func (h *Handler) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiApplyDiscount handles POST /api/orders/{id}/discount.
// Body: { kind, code?, name?, percent?, amount?, entry_ids?, eligible_names?, osca_ids?, approval? }
func (h *Handler) apiApplyDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	var req core.DiscountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.ApplyDiscount(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiRemoveDiscount handles DELETE /api/orders/{id}/discount.
func (h *Handler) apiRemoveDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	var body approvalBody
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.RemoveDiscount(r.Context(), id, body.Approval)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiVoidItem handles POST /api/orders/{id}/items/{lineID}/void.
func (h *Handler) apiVoidItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := pathInt64(w, r, "lineID")
	if !ok {
		return
	}
	var body approvalBody
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.VoidItem(r.Context(), id, lineID, body.Approval)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCancelOrder handles POST /api/orders/{id}/cancel.
func (h *Handler) apiCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	var body approvalBody
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.CancelOrder(r.Context(), id, body.Approval)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiFinalizeOrder handles POST /api/orders/{id}/finalize.
// Body: { cash_tendered, alternative_payments: [{sale_type, reference, amount}] }
func (h *Handler) apiFinalizeOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	var tender core.Tender
	if !decodeJSON(w, r, &tender) {
		return
	}
	result, err := h.svc.FinalizeOrder(r.Context(), id, tender)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
