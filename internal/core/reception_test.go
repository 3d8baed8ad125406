package core_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"fieldservice/internal/core"
)

// fakeReceiver records receipts and fails on the configured line.
type fakeReceiver struct {
	receipts []core.LineReceipt
	failOn   map[int]error
}

func (f *fakeReceiver) ReceiveLine(_ context.Context, _ core.Operator, r core.LineReceipt) (*core.LineReceiptResult, error) {
	if err := f.failOn[r.LineID]; err != nil {
		return nil, err
	}
	f.receipts = append(f.receipts, r)
	res := &core.LineReceiptResult{OrderVersion: r.ExpectedOrderVersion + 1, WorkOrderVersions: map[int]int{}}
	for _, a := range r.Allocations {
		res.WorkOrderVersions[a.WorkOrderID] = r.WorkOrderVersions[a.WorkOrderID] + 1
	}
	return res, nil
}

var testOperator = core.Operator{ID: uuid.MustParse("6f1c2a3e-9d4b-4e8a-a1b2-c3d4e5f60718"), Name: "Camille"}

func TestCommitReception_Scenario(t *testing.T) {
	po := &core.PurchaseOrder{ID: 1, Code: "CMD-0001", Status: core.POStatusOrdered, Lines: []core.PurchaseOrderLine{
		{ID: 1, OrderID: 1, Designation: "Contacteur 25A", Quantity: 6},
	}}
	ed := core.NewAllocationEditor(po, core.BuildDemandIndex(scenarioWorkOrders(), po.Lines))
	if err := ed.Apply(core.Edit{Kind: core.EditSetAllocation, LineID: 1, WorkOrderID: 10, Quantity: 2}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := ed.Apply(core.Edit{Kind: core.EditSetAllocation, LineID: 1, WorkOrderID: 11, Quantity: 2}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	rcv := &fakeReceiver{}
	res, err := core.CommitReception(context.Background(), testOperator, po, ed, rcv)
	if err != nil {
		t.Fatalf("CommitReception: %v", err)
	}

	if len(rcv.receipts) != 1 {
		t.Fatalf("expected 1 receipt, got %d", len(rcv.receipts))
	}
	r := rcv.receipts[0]
	if r.LineID != 1 || r.ReceivedQuantity != 6 || r.ArticleID != nil || r.Designation != "Contacteur 25A" || r.StockResidual != 2 {
		t.Errorf("receipt = %+v", r)
	}
	wantAlloc := []core.Allocation{{WorkOrderID: 10, Quantity: 2}, {WorkOrderID: 11, Quantity: 2}}
	if !reflect.DeepEqual(r.Allocations, wantAlloc) {
		t.Errorf("allocations = %v, want %v", r.Allocations, wantAlloc)
	}
	if r.WorkOrderVersions[10] != 3 || r.WorkOrderVersions[11] != 1 {
		t.Errorf("versions = %v, want 10:3 11:1", r.WorkOrderVersions)
	}
	if !res.FullyReceived || res.Status != core.ReceptionComplete || res.Processed != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestCommitReception_FullyReceived(t *testing.T) {
	tests := []struct {
		name       string
		prior      int
		received   [2]int
		wantFully  bool
		wantPassed int
	}{
		{"both lines complete", 0, [2]int{5, 5}, true, 2},
		{"second line short", 0, [2]int{5, 4}, false, 2},
		{"over-receipt", 0, [2]int{6, 5}, true, 2},
		{"prior receipt completes the order", 3, [2]int{2, 5}, true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			po := &core.PurchaseOrder{ID: 1, Code: "CMD-0002", Lines: []core.PurchaseOrderLine{
				{ID: 1, Designation: "Galet", Quantity: 5, ReceivedQuantity: tt.prior},
				{ID: 2, Designation: "Câble", Quantity: 5},
			}}
			ed := core.NewAllocationEditor(po, core.BuildDemandIndex(nil, po.Lines))
			for i, q := range tt.received {
				if err := ed.Apply(core.Edit{Kind: core.EditSetReceived, LineID: i + 1, Quantity: q}); err != nil {
					t.Fatalf("Apply: %v", err)
				}
			}
			res, err := core.CommitReception(context.Background(), testOperator, po, ed, &fakeReceiver{})
			if err != nil {
				t.Fatalf("CommitReception: %v", err)
			}
			if res.FullyReceived != tt.wantFully {
				t.Errorf("FullyReceived = %v, want %v", res.FullyReceived, tt.wantFully)
			}
			if res.Processed != tt.wantPassed {
				t.Errorf("Processed = %d, want %d", res.Processed, tt.wantPassed)
			}
		})
	}
}

func TestCommitReception_EmptyOrderIsNeverFullyReceived(t *testing.T) {
	po := &core.PurchaseOrder{ID: 3, Code: "CMD-0003"}
	ed := core.NewAllocationEditor(po, core.DemandIndex{})
	res, err := core.CommitReception(context.Background(), testOperator, po, ed, &fakeReceiver{})
	if err != nil {
		t.Fatalf("CommitReception: %v", err)
	}
	if res.FullyReceived {
		t.Error("order with nothing ordered reported fully received")
	}
}

func TestCommitReception_StopsAtFirstFailure(t *testing.T) {
	po := &core.PurchaseOrder{ID: 4, Code: "CMD-0004", Lines: []core.PurchaseOrderLine{
		{ID: 1, Designation: "A", Quantity: 1},
		{ID: 2, Designation: "B", Quantity: 1},
		{ID: 3, Designation: "C", Quantity: 1},
	}}
	ed := core.NewAllocationEditor(po, core.BuildDemandIndex(nil, po.Lines))
	stale := fmt.Errorf("line 2: %w", core.ErrStaleData)
	rcv := &fakeReceiver{failOn: map[int]error{2: stale}}

	res, err := core.CommitReception(context.Background(), testOperator, po, ed, rcv)
	if !errors.Is(err, core.ErrStaleData) {
		t.Fatalf("expected ErrStaleData, got %v", err)
	}
	if res == nil {
		t.Fatal("expected a result describing the partial commit")
	}
	if res.Status != core.ReceptionPartial || res.Processed != 1 || res.FullyReceived {
		t.Errorf("result = %+v", res)
	}
	wantStatus := []core.LineStatus{core.LineCommitted, core.LineFailed, core.LineSkipped}
	for i, o := range res.Outcomes {
		if o.Status != wantStatus[i] {
			t.Errorf("line %d status = %s, want %s", o.LineID, o.Status, wantStatus[i])
		}
	}
	if res.Outcomes[1].Error == "" {
		t.Error("failed line carries no error message")
	}
	if got := res.Retryable(); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Errorf("Retryable = %v, want [2 3]", got)
	}
	if len(rcv.receipts) != 1 {
		t.Errorf("receiver called for %d lines after failure, want 1", len(rcv.receipts))
	}
}

func TestCommitReception_FirstLineFailure(t *testing.T) {
	po := &core.PurchaseOrder{ID: 5, Code: "CMD-0005", Lines: []core.PurchaseOrderLine{{ID: 1, Designation: "A", Quantity: 1}}}
	ed := core.NewAllocationEditor(po, core.BuildDemandIndex(nil, po.Lines))
	rcv := &fakeReceiver{failOn: map[int]error{1: errors.New("connection reset")}}

	res, err := core.CommitReception(context.Background(), testOperator, po, ed, rcv)
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Status != core.ReceptionFailed || res.Processed != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestCommitReception_FeedsVersionsForward(t *testing.T) {
	// Two lines allocate to the same work order: the second line must expect the
	// versions of the order and the work order written by the first.
	wos := []core.WorkOrder{{ID: 10, Code: "WO-10", Version: 7, Pieces: []core.PieceNeed{
		orderPiece("a", "Galet", nil, 2, 0),
		orderPiece("b", "Câble", nil, 2, 0),
	}}}
	po := &core.PurchaseOrder{ID: 6, Code: "CMD-0006", Version: 4, Lines: []core.PurchaseOrderLine{
		{ID: 1, Designation: "Galet", Quantity: 2},
		{ID: 2, Designation: "Câble", Quantity: 2},
	}}
	ed := core.NewAllocationEditor(po, core.BuildDemandIndex(wos, po.Lines))
	_ = ed.Apply(core.Edit{Kind: core.EditAllocateMax, LineID: 1, WorkOrderID: 10})
	_ = ed.Apply(core.Edit{Kind: core.EditAllocateMax, LineID: 2, WorkOrderID: 10})

	rcv := &fakeReceiver{}
	if _, err := core.CommitReception(context.Background(), testOperator, po, ed, rcv); err != nil {
		t.Fatalf("CommitReception: %v", err)
	}
	if rcv.receipts[0].WorkOrderVersions[10] != 7 || rcv.receipts[1].WorkOrderVersions[10] != 8 {
		t.Errorf("expected versions 7 then 8, got %d then %d",
			rcv.receipts[0].WorkOrderVersions[10], rcv.receipts[1].WorkOrderVersions[10])
	}
	if rcv.receipts[0].ExpectedOrderVersion != 4 || rcv.receipts[1].ExpectedOrderVersion != 5 {
		t.Errorf("expected order versions 4 then 5, got %d then %d",
			rcv.receipts[0].ExpectedOrderVersion, rcv.receipts[1].ExpectedOrderVersion)
	}
}

func TestCommitReception_RejectsForeignEditor(t *testing.T) {
	po := &core.PurchaseOrder{ID: 7, Lines: []core.PurchaseOrderLine{{ID: 1, Quantity: 1}}}
	other := &core.PurchaseOrder{ID: 8, Lines: []core.PurchaseOrderLine{{ID: 1, Quantity: 1}}}
	ed := core.NewAllocationEditor(other, core.DemandIndex{})
	rcv := &fakeReceiver{}

	res, err := core.CommitReception(context.Background(), testOperator, po, ed, rcv)
	if res != nil || !core.IsValidation(err) {
		t.Errorf("expected validation error and nil result, got %v, %v", res, err)
	}
	if len(rcv.receipts) != 0 {
		t.Error("receiver called for a rejected commit")
	}
}

func TestCommitReception_CancelledContext(t *testing.T) {
	po := &core.PurchaseOrder{ID: 9, Lines: []core.PurchaseOrderLine{{ID: 1, Quantity: 1}, {ID: 2, Quantity: 1}}}
	ed := core.NewAllocationEditor(po, core.DemandIndex{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := core.CommitReception(ctx, testOperator, po, ed, &fakeReceiver{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.Status != core.ReceptionFailed {
		t.Errorf("Status = %s, want failed", res.Status)
	}
}
