package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"fieldservice/internal/app"

	"github.com/go-chi/chi/v5"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins []string, jwtSecret string) http.Handler {
	h := &Handler{
		svc:       svc,
		jwtSecret: jwtSecret,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/schema/reception-edit", h.apiReceptionEditSchema)

		// ── Purchase orders ──────────────────────────────────────────────────
		r.Get("/api/purchase-orders", h.apiListPurchaseOrders)
		r.Post("/api/purchase-orders", h.apiCreatePurchaseOrder)
		r.Get("/api/purchase-orders/stats", h.apiPurchaseOrderStats)
		r.Get("/api/purchase-orders/{id}", h.apiGetPurchaseOrder)
		r.Post("/api/purchase-orders/{id}/lines", h.apiAddPurchaseOrderLine)
		r.Delete("/api/purchase-orders/{id}/lines/{lineID}", h.apiDeletePurchaseOrderLine)
		r.Post("/api/purchase-orders/{id}/advance", h.apiAdvancePurchaseOrder)
		r.Post("/api/purchase-orders/{id}/cancel", h.apiCancelPurchaseOrder)
		r.Post("/api/purchase-orders/{id}/archive", h.apiArchivePurchaseOrder)
		r.Post("/api/purchase-orders/{id}/unarchive", h.apiUnarchivePurchaseOrder)
		r.Get("/api/purchase-orders/{id}/reception-report.xlsx", h.apiReceptionReport)

		// ── Reception sessions ───────────────────────────────────────────────
		r.Post("/api/purchase-orders/{id}/receptions", h.apiOpenReception)
		r.Get("/api/receptions/{token}", h.apiGetReception)
		r.Post("/api/receptions/{token}/edits", h.apiEditReception)
		r.Post("/api/receptions/{token}/commit", h.apiCommitReception)
		r.Delete("/api/receptions/{token}", h.apiCancelReception)

		// ── Work orders ──────────────────────────────────────────────────────
		r.Get("/api/work-orders/awaiting-parts", h.apiListAwaitingParts)
		r.Post("/api/work-orders", h.apiCreateWorkOrder)
		r.Get("/api/work-orders/{id}", h.apiGetWorkOrder)

		// ── Stock ────────────────────────────────────────────────────────────
		r.Get("/api/stock/articles", h.apiListStock)
		r.Post("/api/stock/articles", h.apiCreateStockArticle)
		r.Get("/api/stock/articles/{id}/movements", h.apiListStockMovements)
		r.Post("/api/stock/articles/{id}/movements", h.apiRecordStockMovement)
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// pathID parses a positive integer URL parameter. On failure it writes a 400 and returns false.
func pathID(w http.ResponseWriter, r *http.Request, param, what string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, param))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid "+what+" ID", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
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
