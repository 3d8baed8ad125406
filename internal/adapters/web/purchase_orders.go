package web

import (
	"net/http"
	"strconv"

	"fieldservice/internal/app"
	"fieldservice/internal/core"
)

// apiListPurchaseOrders handles GET /api/purchase-orders?status=&q=&archived=
func (h *Handler) apiListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.PurchaseOrderFilter{
		Status: core.POStatus(q.Get("status")),
		Search: q.Get("q"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, r, "unknown status "+strconv.Quote(string(filter.Status)), "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if v := q.Get("archived"); v != "" {
		archived, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, "archived must be a boolean", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		filter.IncludeArchived = archived
	}

	result, err := h.svc.ListPurchaseOrders(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiPurchaseOrderStats handles GET /api/purchase-orders/stats
func (h *Handler) apiPurchaseOrderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.PurchaseOrderStats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, stats)
}

// apiCreatePurchaseOrder handles POST /api/purchase-orders
func (h *Handler) apiCreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var req app.CreatePurchaseOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	op, _ := operatorFromContext(r.Context())
	result, err := h.svc.CreatePurchaseOrder(r.Context(), op, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// apiGetPurchaseOrder handles GET /api/purchase-orders/{id}
func (h *Handler) apiGetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "purchase order")
	if !ok {
		return
	}
	result, err := h.svc.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiAddPurchaseOrderLine handles POST /api/purchase-orders/{id}/lines
func (h *Handler) apiAddPurchaseOrderLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "purchase order")
	if !ok {
		return
	}
	var req app.PurchaseOrderLineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.AddPurchaseOrderLine(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// apiDeletePurchaseOrderLine handles DELETE /api/purchase-orders/{id}/lines/{lineID}
func (h *Handler) apiDeletePurchaseOrderLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "purchase order")
	if !ok {
		return
	}
	lineID, ok := pathID(w, r, "lineID", "line")
	if !ok {
		return
	}
	result, err := h.svc.DeletePurchaseOrderLine(r.Context(), id, lineID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiAdvancePurchaseOrder handles POST /api/purchase-orders/{id}/advance
func (h *Handler) apiAdvancePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "purchase order")
	if !ok {
		return
	}
	op, _ := operatorFromContext(r.Context())
	result, err := h.svc.AdvancePurchaseOrder(r.Context(), op, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCancelPurchaseOrder handles POST /api/purchase-orders/{id}/cancel
func (h *Handler) apiCancelPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "purchase order")
	if !ok {
		return
	}
	op, _ := operatorFromContext(r.Context())
	result, err := h.svc.CancelPurchaseOrder(r.Context(), op, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiArchivePurchaseOrder handles POST /api/purchase-orders/{id}/archive
func (h *Handler) apiArchivePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "purchase order")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	op, _ := operatorFromContext(r.Context())
	result, err := h.svc.ArchivePurchaseOrder(r.Context(), op, id, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiUnarchivePurchaseOrder handles POST /api/purchase-orders/{id}/unarchive
func (h *Handler) apiUnarchivePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "purchase order")
	if !ok {
		return
	}
	result, err := h.svc.UnarchivePurchaseOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiReceptionReport handles GET /api/purchase-orders/{id}/reception-report.xlsx
func (h *Handler) apiReceptionReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "purchase order")
	if !ok {
		return
	}
	report, err := h.svc.ExportReceptionReport(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(report.Data)))
	_, _ = w.Write(report.Data)
}
