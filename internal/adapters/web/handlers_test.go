package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"fieldservice/internal/adapters/web"
	"fieldservice/internal/app"
	"fieldservice/internal/core"
)

const testSecret = "test-secret"

var testOperator = core.Operator{ID: uuid.MustParse("6f1c2a3e-9d4b-4e8a-a1b2-c3d4e5f60718"), Name: "Camille", Role: "magasinier"}

// fakeService implements the handful of ApplicationService methods the tests hit.
// Any other call panics and surfaces as a 500 through the Recoverer.
type fakeService struct {
	app.ApplicationService

	gotOperator core.Operator
	gotFilter   core.PurchaseOrderFilter
	gotEdit     core.Edit

	getErr    error
	editErr   error
	commitRes *app.ReceptionCommitResult
	commitErr error

	gotMovement app.StockMovementRequest
}

func (f *fakeService) ListPurchaseOrders(_ context.Context, filter core.PurchaseOrderFilter) (*app.PurchaseOrdersResult, error) {
	f.gotFilter = filter
	return &app.PurchaseOrdersResult{Orders: []core.PurchaseOrder{{ID: 1, Code: "CMD-0001"}}}, nil
}

func (f *fakeService) GetPurchaseOrder(_ context.Context, id int) (*app.PurchaseOrderResult, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &app.PurchaseOrderResult{Order: &core.PurchaseOrder{ID: id, Code: "CMD-0001"}}, nil
}

func (f *fakeService) OpenReception(_ context.Context, op core.Operator, poID int) (*app.ReceptionSessionResult, error) {
	f.gotOperator = op
	return &app.ReceptionSessionResult{Token: "tok", OrderID: poID, OpenedBy: op}, nil
}

func (f *fakeService) EditReception(_ context.Context, token string, edit core.Edit) (*app.ReceptionSessionResult, error) {
	if token != "tok" {
		return nil, app.ErrSessionNotFound
	}
	f.gotEdit = edit
	if f.editErr != nil {
		return nil, f.editErr
	}
	return &app.ReceptionSessionResult{Token: token}, nil
}

func (f *fakeService) CommitReception(_ context.Context, op core.Operator, _ string) (*app.ReceptionCommitResult, error) {
	f.gotOperator = op
	return f.commitRes, f.commitErr
}

func (f *fakeService) CancelReception(_ context.Context, token string) error {
	if token != "tok" {
		return app.ErrSessionNotFound
	}
	return nil
}

func (f *fakeService) RecordStockMovement(_ context.Context, op core.Operator, articleID int, req app.StockMovementRequest) (*core.StockMovement, error) {
	f.gotOperator = op
	f.gotMovement = req
	if req.Kind == "perte" {
		return nil, &core.ValidationError{Code: core.CodeInvalidInput, Message: "unknown movement kind"}
	}
	return &core.StockMovement{ArticleID: articleID, Kind: req.Kind, Quantity: req.Quantity, QuantityBefore: 3, QuantityAfter: 3 + req.Quantity}, nil
}

func newTestServer(t *testing.T, svc app.ApplicationService) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(web.NewHandler(svc, nil, testSecret))
	t.Cleanup(srv.Close)
	return srv
}

func authToken(t *testing.T) string {
	t.Helper()
	tok, err := web.SignOperatorToken(testSecret, testOperator, time.Hour)
	if err != nil {
		t.Fatalf("SignOperatorToken: %v", err)
	}
	return tok
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealthIsPublic(t *testing.T) {
	srv := newTestServer(t, &fakeService{})
	resp, body := do(t, srv, http.MethodGet, "/api/health", "", nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestRequireAuth(t *testing.T) {
	srv := newTestServer(t, &fakeService{})
	other, err := web.SignOperatorToken("another-secret", testOperator, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := web.SignOperatorToken(testSecret, testOperator, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", other, http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"valid", authToken(t), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, srv, http.MethodGet, "/api/purchase-orders", tt.token, nil)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if tt.want == http.StatusUnauthorized && body["code"] != "UNAUTHORIZED" {
				t.Errorf("code = %v", body["code"])
			}
		})
	}
}

func TestAuthCookieAccepted(t *testing.T) {
	srv := newTestServer(t, &fakeService{})
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/purchase-orders", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: authToken(t)})
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestListPurchaseOrdersFilter(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(t, svc)

	resp, _ := do(t, srv, http.MethodGet, "/api/purchase-orders?status=commandee&q=otis&archived=true", authToken(t), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	want := core.PurchaseOrderFilter{Status: core.POStatusOrdered, Search: "otis", IncludeArchived: true}
	if svc.gotFilter != want {
		t.Errorf("filter = %+v, want %+v", svc.gotFilter, want)
	}

	resp, body := do(t, srv, http.MethodGet, "/api/purchase-orders?status=livree", authToken(t), nil)
	if resp.StatusCode != http.StatusBadRequest || body["code"] != "BAD_REQUEST" {
		t.Errorf("unknown status: %d %v", resp.StatusCode, body)
	}
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"not found", fmt.Errorf("purchase order 9: %w", core.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"stale", fmt.Errorf("line 2: %w", core.ErrStaleData), http.StatusConflict, "STALE_DATA"},
		{"transition", core.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
		{"validation", &core.ValidationError{Code: core.CodeExceedsNeed, Message: "too many"}, http.StatusUnprocessableEntity, core.CodeExceedsNeed},
		{"internal", fmt.Errorf("connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeService{getErr: tt.err})
			resp, body := do(t, srv, http.MethodGet, "/api/purchase-orders/9", authToken(t), nil)
			if resp.StatusCode != tt.wantCode || body["code"] != tt.wantBody {
				t.Errorf("got %d %v, want %d %s", resp.StatusCode, body["code"], tt.wantCode, tt.wantBody)
			}
			if body["request_id"] == nil {
				t.Error("error body carries no request_id")
			}
			if tt.wantCode == http.StatusInternalServerError && strings.Contains(fmt.Sprint(body["error"]), "refused") {
				t.Error("internal error message leaked to the client")
			}
		})
	}
}

func TestInvalidPathID(t *testing.T) {
	srv := newTestServer(t, &fakeService{})
	resp, body := do(t, srv, http.MethodGet, "/api/purchase-orders/abc", authToken(t), nil)
	if resp.StatusCode != http.StatusBadRequest || body["error"] != "invalid purchase order ID" {
		t.Errorf("got %d %v", resp.StatusCode, body)
	}
}

func TestReceptionFlow(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(t, svc)
	tok := authToken(t)

	resp, body := do(t, srv, http.MethodPost, "/api/purchase-orders/4/receptions", tok, nil)
	if resp.StatusCode != http.StatusCreated || body["token"] != "tok" {
		t.Fatalf("open: %d %v", resp.StatusCode, body)
	}
	if svc.gotOperator != testOperator {
		t.Errorf("operator = %+v, want %+v", svc.gotOperator, testOperator)
	}

	edit := core.Edit{Kind: core.EditSetAllocation, LineID: 1, WorkOrderID: 10, Quantity: 2}
	resp, _ = do(t, srv, http.MethodPost, "/api/receptions/tok/edits", tok, edit)
	if resp.StatusCode != http.StatusOK || svc.gotEdit != edit {
		t.Errorf("edit: %d, got %+v", resp.StatusCode, svc.gotEdit)
	}

	resp, body = do(t, srv, http.MethodPost, "/api/receptions/gone/edits", tok, edit)
	if resp.StatusCode != http.StatusNotFound || body["code"] != "NOT_FOUND" {
		t.Errorf("unknown token: %d %v", resp.StatusCode, body)
	}

	svc.editErr = &core.ValidationError{Code: core.CodeExceedsReceived, Message: "only 6 received"}
	resp, body = do(t, srv, http.MethodPost, "/api/receptions/tok/edits", tok, edit)
	if resp.StatusCode != http.StatusUnprocessableEntity || body["code"] != core.CodeExceedsReceived {
		t.Errorf("rejected edit: %d %v", resp.StatusCode, body)
	}

	resp, _ = do(t, srv, http.MethodDelete, "/api/receptions/tok", tok, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("cancel: %d", resp.StatusCode)
	}
}

func TestCommitReception_PartialFailureCarriesOutcomes(t *testing.T) {
	res := &app.ReceptionCommitResult{Reception: &core.ReceptionResult{
		OrderID:   4,
		OrderCode: "CMD-0004",
		Status:    core.ReceptionPartial,
		Processed: 1,
		Outcomes: []core.LineOutcome{
			{LineID: 1, Status: core.LineCommitted},
			{LineID: 2, Status: core.LineFailed, Error: "stale data, please refresh"},
		},
	}}
	svc := &fakeService{commitRes: res, commitErr: fmt.Errorf("line 2: %w", core.ErrStaleData)}
	srv := newTestServer(t, svc)

	resp, body := do(t, srv, http.MethodPost, "/api/receptions/tok/commit", authToken(t), nil)
	if resp.StatusCode != http.StatusConflict || body["code"] != "STALE_DATA" {
		t.Fatalf("got %d %v", resp.StatusCode, body)
	}
	result, ok := body["result"].(map[string]any)
	if !ok {
		t.Fatalf("missing result in %v", body)
	}
	reception := result["reception"].(map[string]any)
	if reception["status"] != string(core.ReceptionPartial) || len(reception["outcomes"].([]any)) != 2 {
		t.Errorf("reception = %v", reception)
	}
}

func TestCommitReception_Success(t *testing.T) {
	res := &app.ReceptionCommitResult{
		Reception: &core.ReceptionResult{OrderID: 4, Status: core.ReceptionComplete, Processed: 1, FullyReceived: true},
		Order:     &core.PurchaseOrder{ID: 4, Status: core.POStatusReceived},
	}
	srv := newTestServer(t, &fakeService{commitRes: res})
	resp, body := do(t, srv, http.MethodPost, "/api/receptions/tok/commit", authToken(t), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	order := body["order"].(map[string]any)
	if order["status"] != string(core.POStatusReceived) {
		t.Errorf("order = %v", order)
	}
}

func TestReceptionEditSchema(t *testing.T) {
	srv := newTestServer(t, &fakeService{})
	resp, body := do(t, srv, http.MethodGet, "/api/schema/reception-edit", authToken(t), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	props, ok := body["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties: %v", body)
	}
	for _, field := range []string{"kind", "line_id", "work_order_id", "quantity"} {
		if _, ok := props[field]; !ok {
			t.Errorf("schema missing %q", field)
		}
	}
	if body["additionalProperties"] != false {
		t.Errorf("additionalProperties = %v, want false", body["additionalProperties"])
	}
}

func TestRecordStockMovement(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(t, svc)
	tok := authToken(t)

	resp, body := do(t, srv, http.MethodPost, "/api/stock/articles/7/movements", tok,
		map[string]any{"kind": "entree", "quantity": 4, "reason": "retour chantier"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	if body["quantity_after"] != float64(7) {
		t.Errorf("quantity_after = %v", body["quantity_after"])
	}
	if svc.gotOperator.ID != testOperator.ID || svc.gotMovement.Reason != "retour chantier" {
		t.Errorf("operator %v, movement %+v", svc.gotOperator, svc.gotMovement)
	}

	resp, body = do(t, srv, http.MethodPost, "/api/stock/articles/7/movements", tok,
		map[string]any{"kind": "perte", "quantity": 1})
	if resp.StatusCode != http.StatusUnprocessableEntity || body["code"] != core.CodeInvalidInput {
		t.Errorf("unknown kind = %d %v", resp.StatusCode, body)
	}
}
