package core_test

import (
	"errors"
	"testing"

	"fieldservice/internal/core"
)

func newLine(t *testing.T, ordered int, needs ...int) *core.AllocationLine {
	t.Helper()
	demand := make([]core.DemandEntry, 0, len(needs))
	for i, n := range needs {
		demand = append(demand, core.DemandEntry{WorkOrderID: i + 1, WorkOrderCode: "WO", OutstandingNeed: n})
	}
	return core.NewAllocationLine(core.PurchaseOrderLine{ID: 1, Designation: "Galet", Quantity: ordered}, demand)
}

func quantities(l *core.AllocationLine) []int {
	var out []int
	for _, e := range l.Entries() {
		out = append(out, e.Quantity)
	}
	return out
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError %s, got %v", code, err)
	}
	if ve.Code != code {
		t.Errorf("code = %s, want %s", ve.Code, code)
	}
}

func TestAllocationLine_Defaults(t *testing.T) {
	l := newLine(t, 10, 4, 5)
	if l.ReceivedQuantity() != 10 {
		t.Errorf("ReceivedQuantity = %d, want 10", l.ReceivedQuantity())
	}
	if l.Residual() != 10 || l.Allocated() != 0 {
		t.Errorf("Residual = %d, Allocated = %d, want 10 and 0", l.Residual(), l.Allocated())
	}

	partial := core.NewAllocationLine(core.PurchaseOrderLine{ID: 2, Quantity: 10, ReceivedQuantity: 7}, nil)
	if partial.ReceivedQuantity() != 3 {
		t.Errorf("partially received line defaults to %d, want 3", partial.ReceivedQuantity())
	}
}

func TestAllocationLine_ShrinkTruncation(t *testing.T) {
	l := newLine(t, 10, 5, 5)
	if err := l.SetAllocation(1, 3); err != nil {
		t.Fatalf("SetAllocation: %v", err)
	}
	if err := l.SetAllocation(2, 4); err != nil {
		t.Fatalf("SetAllocation: %v", err)
	}
	if l.Residual() != 3 {
		t.Fatalf("Residual = %d, want 3", l.Residual())
	}

	l.SetReceivedQuantity(5)

	got := quantities(l)
	if got[0] != 3 || got[1] != 2 || l.Residual() != 0 {
		t.Errorf("after shrink: entries %v residual %d, want [3 2] residual 0", got, l.Residual())
	}
}

func TestAllocationLine_SetReceivedQuantity(t *testing.T) {
	tests := []struct {
		name         string
		qty          int
		wantReceived int
		wantEntries  []int
	}{
		{"grow keeps entries", 20, 20, []int{2, 3}},
		{"shrink to zero", 0, 0, []int{0, 0}},
		{"negative clamps to zero", -4, 0, []int{0, 0}},
		{"shrink between entries", 3, 3, []int{2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLine(t, 10, 2, 3)
			_ = l.SetAllocation(1, 2)
			_ = l.SetAllocation(2, 3)
			l.SetReceivedQuantity(tt.qty)
			if l.ReceivedQuantity() != tt.wantReceived {
				t.Errorf("ReceivedQuantity = %d, want %d", l.ReceivedQuantity(), tt.wantReceived)
			}
			got := quantities(l)
			for i := range tt.wantEntries {
				if got[i] != tt.wantEntries[i] {
					t.Errorf("entries = %v, want %v", got, tt.wantEntries)
					break
				}
			}
			if l.Residual() < 0 {
				t.Errorf("Residual = %d, must not be negative", l.Residual())
			}
		})
	}
}

func TestAllocationLine_SetAllocationRejects(t *testing.T) {
	l := newLine(t, 6, 2, 5)

	assertCode(t, l.SetAllocation(1, 3), core.CodeExceedsNeed)
	assertCode(t, l.SetAllocation(99, 1), core.CodeUnknownWorkOrder)

	if err := l.SetAllocation(2, 5); err != nil {
		t.Fatalf("SetAllocation: %v", err)
	}
	assertCode(t, l.SetAllocation(1, 2), core.CodeExceedsReceived)

	if got := quantities(l); got[0] != 0 || got[1] != 5 {
		t.Errorf("rejected edits changed the line: %v", got)
	}
	if err := l.SetAllocation(2, -3); err != nil {
		t.Fatalf("negative SetAllocation: %v", err)
	}
	if got := quantities(l); got[1] != 0 {
		t.Errorf("negative allocation stored %d, want 0", got[1])
	}
}

func TestAllocationLine_AllocateMax(t *testing.T) {
	l := newLine(t, 4, 2, 6)
	_ = l.SetAllocation(1, 2)

	if err := l.AllocateMax(2); err != nil {
		t.Fatalf("AllocateMax: %v", err)
	}
	if got := quantities(l); got[0] != 0 || got[1] != 4 {
		t.Errorf("entries = %v, want [0 4]", got)
	}
	if l.Residual() != 0 {
		t.Errorf("Residual = %d, want 0", l.Residual())
	}

	if err := l.AllocateMax(1); err != nil {
		t.Fatalf("AllocateMax: %v", err)
	}
	if got := quantities(l); got[0] != 2 || got[1] != 0 {
		t.Errorf("entries = %v, want [2 0]", got)
	}
	assertCode(t, l.AllocateMax(42), core.CodeUnknownWorkOrder)
}

func TestAllocationLine_AllocateAllToStock(t *testing.T) {
	l := newLine(t, 8, 3, 3)
	_ = l.SetAllocation(1, 3)
	_ = l.SetAllocation(2, 3)
	l.AllocateAllToStock()
	if l.Allocated() != 0 || l.Residual() != 8 {
		t.Errorf("Allocated = %d, Residual = %d, want 0 and 8", l.Allocated(), l.Residual())
	}
	if len(l.Allocations()) != 0 {
		t.Errorf("Allocations = %v, want none", l.Allocations())
	}
}

func TestAllocationLine_ConservationAcrossEdits(t *testing.T) {
	l := newLine(t, 10, 4, 4, 4)
	steps := []func(){
		func() { _ = l.SetAllocation(1, 4) },
		func() { _ = l.SetAllocation(2, 4) },
		func() { _ = l.SetAllocation(3, 4) }, // rejected: 12 > 10
		func() { l.SetReceivedQuantity(6) },
		func() { _ = l.AllocateMax(3) },
		func() { l.SetReceivedQuantity(12) },
		func() { _ = l.SetAllocation(1, 4) },
		func() { l.AllocateAllToStock() },
	}
	for i, step := range steps {
		step()
		if l.Residual() != l.ReceivedQuantity()-l.Allocated() || l.Residual() < 0 {
			t.Fatalf("step %d: received %d allocated %d residual %d", i, l.ReceivedQuantity(), l.Allocated(), l.Residual())
		}
		if err := l.Validate(); err != nil {
			t.Fatalf("step %d: Validate: %v", i, err)
		}
	}
}

func TestAllocationEditor_Apply(t *testing.T) {
	po := &core.PurchaseOrder{ID: 1, Code: "CMD-0001", Lines: []core.PurchaseOrderLine{
		{ID: 1, Designation: "Contacteur 25A", Quantity: 6},
		{ID: 2, Designation: "Galet", Quantity: 4},
	}}
	index := core.BuildDemandIndex(scenarioWorkOrders(), po.Lines)
	ed := core.NewAllocationEditor(po, index)

	if err := ed.Apply(core.Edit{Kind: core.EditSetAllocation, LineID: 1, WorkOrderID: 10, Quantity: 2}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := ed.Apply(core.Edit{Kind: core.EditAllocateMax, LineID: 1, WorkOrderID: 11}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := ed.Apply(core.Edit{Kind: core.EditSetReceived, LineID: 2, Quantity: 3}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	assertCode(t, ed.Apply(core.Edit{Kind: core.EditSetReceived, LineID: 9, Quantity: 1}), core.CodeUnknownLine)
	assertCode(t, ed.Apply(core.Edit{Kind: "explode", LineID: 1}), core.CodeInvalidInput)

	view := ed.View()
	if len(view) != 2 {
		t.Fatalf("View returned %d lines, want 2", len(view))
	}
	// AllocateMax zeroes the other entries of the line.
	if view[0].Entries[0].Quantity != 0 || view[0].Entries[1].Quantity != 2 || view[0].Residual != 4 {
		t.Errorf("line 1 view = %+v", view[0])
	}
	if view[1].ReceivedQuantity != 3 || len(view[1].Entries) != 0 {
		t.Errorf("line 2 view = %+v", view[1])
	}
	if ed.TotalReceived() != 9 {
		t.Errorf("TotalReceived = %d, want 9", ed.TotalReceived())
	}
}
