package web

import (
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/invopop/jsonschema"

	"fieldservice/internal/app"
	"fieldservice/internal/core"
)

var (
	editSchemaOnce sync.Once
	editSchema     *jsonschema.Schema
)

// receptionEditSchema describes the body accepted by POST /api/receptions/{token}/edits.
func receptionEditSchema() *jsonschema.Schema {
	editSchemaOnce.Do(func() {
		reflector := jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		editSchema = reflector.Reflect(&core.Edit{})
	})
	return editSchema
}

// apiReceptionEditSchema handles GET /api/schema/reception-edit
func (h *Handler) apiReceptionEditSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, receptionEditSchema())
}

// apiOpenReception handles POST /api/purchase-orders/{id}/receptions
func (h *Handler) apiOpenReception(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "purchase order")
	if !ok {
		return
	}
	op, _ := operatorFromContext(r.Context())
	session, err := h.svc.OpenReception(r.Context(), op, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, session)
}

// apiGetReception handles GET /api/receptions/{token}
func (h *Handler) apiGetReception(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.GetReception(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, session)
}

// apiEditReception handles POST /api/receptions/{token}/edits
func (h *Handler) apiEditReception(w http.ResponseWriter, r *http.Request) {
	var edit core.Edit
	if !decodeJSON(w, r, &edit) {
		return
	}
	session, err := h.svc.EditReception(r.Context(), chi.URLParam(r, "token"), edit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, session)
}

// commitFailure is the body of a commit that wrote some lines before failing.
type commitFailure struct {
	errorResponse
	Result *app.ReceptionCommitResult `json:"result"`
}

// apiCommitReception handles POST /api/receptions/{token}/commit
//
// A commit that stops part-way answers with the status of the failing line and
// the per-line outcomes, so the client knows which lines were written.
func (h *Handler) apiCommitReception(w http.ResponseWriter, r *http.Request) {
	op, _ := operatorFromContext(r.Context())
	result, err := h.svc.CommitReception(r.Context(), op, chi.URLParam(r, "token"))
	if err != nil {
		if result == nil {
			writeServiceError(w, r, err)
			return
		}
		status, code := classify(err)
		if status == http.StatusInternalServerError {
			log.Printf("request %s: commit %s: %v", requestIDFromContext(r.Context()), result.Reception.OrderCode, err)
		}
		writeJSONStatus(w, status, commitFailure{
			errorResponse: errorResponse{
				Error:     err.Error(),
				Code:      code,
				RequestID: requestIDFromContext(r.Context()),
			},
			Result: result,
		})
		return
	}
	writeJSON(w, result)
}

// apiCancelReception handles DELETE /api/receptions/{token}
func (h *Handler) apiCancelReception(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelReception(r.Context(), chi.URLParam(r, "token")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
