package web

import (
	"net/http"
	"strconv"

	"fieldservice/internal/app"
)

// apiListAwaitingParts handles GET /api/work-orders/awaiting-parts
func (h *Handler) apiListAwaitingParts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListAwaitingParts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateWorkOrder handles POST /api/work-orders
func (h *Handler) apiCreateWorkOrder(w http.ResponseWriter, r *http.Request) {
	var req app.CreateWorkOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	op, _ := operatorFromContext(r.Context())
	wo, err := h.svc.CreateWorkOrder(r.Context(), op, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, wo)
}

// apiGetWorkOrder handles GET /api/work-orders/{id}
func (h *Handler) apiGetWorkOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "work order")
	if !ok {
		return
	}
	wo, err := h.svc.GetWorkOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, wo)
}

// apiListStock handles GET /api/stock/articles
func (h *Handler) apiListStock(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetStockLevels(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateStockArticle handles POST /api/stock/articles
func (h *Handler) apiCreateStockArticle(w http.ResponseWriter, r *http.Request) {
	var req app.CreateStockArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	article, err := h.svc.CreateStockArticle(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, article)
}

// apiListStockMovements handles GET /api/stock/articles/{id}/movements?limit=
func (h *Handler) apiListStockMovements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "article")
	if !ok {
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, "limit must be a positive integer", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		limit = n
	}
	result, err := h.svc.ListStockMovements(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiRecordStockMovement handles POST /api/stock/articles/{id}/movements
func (h *Handler) apiRecordStockMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "article")
	if !ok {
		return
	}
	var req app.StockMovementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	op, _ := operatorFromContext(r.Context())
	m, err := h.svc.RecordStockMovement(r.Context(), op, id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, m)
}
