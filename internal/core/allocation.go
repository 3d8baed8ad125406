package core

// AllocationEntry is the share of one received line assigned to one waiting work order.
type AllocationEntry struct {
	WorkOrderID      int    `json:"work_order_id"`
	WorkOrderCode    string `json:"work_order_code"`
	WorkOrderLabel   string `json:"work_order_label"`
	WorkOrderVersion int    `json:"work_order_version"`
	OutstandingNeed  int    `json:"outstanding_need"`
	Quantity         int    `json:"quantity"`
}

// Allocation is a non-zero assignment sent to the store on commit.
type Allocation struct {
	WorkOrderID int `json:"work_order_id"`
	Quantity    int `json:"quantity"`
}

// AllocationLine is the editable reception state of one purchase order line.
// Its mutators keep the invariants: every entry is within [0, min(need, received)]
// and the residual to stock is never negative.
type AllocationLine struct {
	line     PurchaseOrderLine
	received int
	entries  []AllocationEntry
}

// NewAllocationLine starts a line with everything received and everything to stock.
// The default received quantity is what is still expected from the supplier, which
// is the ordered quantity for a line with nothing received yet.
func NewAllocationLine(line PurchaseOrderLine, demand []DemandEntry) *AllocationLine {
	entries := make([]AllocationEntry, 0, len(demand))
	for _, d := range demand {
		need := d.OutstandingNeed
		if need < 0 {
			need = 0
		}
		entries = append(entries, AllocationEntry{
			WorkOrderID:      d.WorkOrderID,
			WorkOrderCode:    d.WorkOrderCode,
			WorkOrderLabel:   d.WorkOrderLabel,
			WorkOrderVersion: d.WorkOrderVersion,
			OutstandingNeed:  need,
		})
	}
	return &AllocationLine{line: line, received: line.Remaining(), entries: entries}
}

// Line returns the purchase order line snapshot taken when the session opened.
func (a *AllocationLine) Line() PurchaseOrderLine { return a.line }

// ReceivedQuantity is the quantity arriving in this reception event.
func (a *AllocationLine) ReceivedQuantity() int { return a.received }

// Entries returns a copy of the allocation entries in demand order.
func (a *AllocationLine) Entries() []AllocationEntry {
	out := make([]AllocationEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Allocated is the sum of all entries.
func (a *AllocationLine) Allocated() int {
	sum := 0
	for _, e := range a.entries {
		sum += e.Quantity
	}
	return sum
}

// Residual is what goes to warehouse stock.
func (a *AllocationLine) Residual() int {
	return a.received - a.Allocated()
}

// Allocations returns the non-zero entries.
func (a *AllocationLine) Allocations() []Allocation {
	var out []Allocation
	for _, e := range a.entries {
		if e.Quantity > 0 {
			out = append(out, Allocation{WorkOrderID: e.WorkOrderID, Quantity: e.Quantity})
		}
	}
	return out
}

// SetReceivedQuantity changes the received quantity (negative becomes 0, over-receipt
// is allowed) and shrinks the entries left to right against the new budget: each entry
// keeps min(its value, what is left), so earlier entries are served first.
func (a *AllocationLine) SetReceivedQuantity(qty int) {
	if qty < 0 {
		qty = 0
	}
	a.received = qty
	budget := qty
	for i := range a.entries {
		if a.entries[i].Quantity > budget {
			a.entries[i].Quantity = budget
		}
		budget -= a.entries[i].Quantity
	}
}

// SetAllocation assigns qty units to a work order. Negative input becomes 0. An edit
// that would exceed the work order's need or the received quantity is rejected and
// leaves the line unchanged.
func (a *AllocationLine) SetAllocation(workOrderID, qty int) error {
	i := a.indexOf(workOrderID)
	if i < 0 {
		return validationErrorf(CodeUnknownWorkOrder,
			"work order %d is not waiting for line %d", workOrderID, a.line.ID)
	}
	if qty < 0 {
		qty = 0
	}
	e := a.entries[i]
	if qty > e.OutstandingNeed {
		return validationErrorf(CodeExceedsNeed,
			"work order %s needs %d, cannot assign %d", e.WorkOrderCode, e.OutstandingNeed, qty)
	}
	others := a.Allocated() - e.Quantity
	if others+qty > a.received {
		return validationErrorf(CodeExceedsReceived,
			"line %d: assigning %d leaves only %d of %d received for other work orders",
			a.line.ID, qty, a.received-qty, a.received)
	}
	a.entries[i].Quantity = qty
	return nil
}

// AllocateMax sends as much as possible to one work order and zeroes the others.
func (a *AllocationLine) AllocateMax(workOrderID int) error {
	i := a.indexOf(workOrderID)
	if i < 0 {
		return validationErrorf(CodeUnknownWorkOrder,
			"work order %d is not waiting for line %d", workOrderID, a.line.ID)
	}
	for j := range a.entries {
		a.entries[j].Quantity = 0
	}
	a.entries[i].Quantity = min(a.entries[i].OutstandingNeed, a.received)
	return nil
}

// AllocateAllToStock zeroes every entry so the whole receipt goes to stock.
func (a *AllocationLine) AllocateAllToStock() {
	for i := range a.entries {
		a.entries[i].Quantity = 0
	}
}

// Validate checks the line invariants. Mutators keep them, so a failure here means
// the line was built from inconsistent data.
func (a *AllocationLine) Validate() error {
	if a.received < 0 {
		return validationErrorf(CodeInvalidInput, "line %d: received quantity is negative", a.line.ID)
	}
	for _, e := range a.entries {
		if e.Quantity < 0 || e.Quantity > e.OutstandingNeed {
			return validationErrorf(CodeExceedsNeed,
				"line %d: work order %s assigned %d of need %d", a.line.ID, e.WorkOrderCode, e.Quantity, e.OutstandingNeed)
		}
	}
	if a.Residual() < 0 {
		return validationErrorf(CodeNegativeResidual,
			"line %d: allocations %d exceed received %d", a.line.ID, a.Allocated(), a.received)
	}
	return nil
}

func (a *AllocationLine) indexOf(workOrderID int) int {
	for i, e := range a.entries {
		if e.WorkOrderID == workOrderID {
			return i
		}
	}
	return -1
}

// EditKind names an Allocation Editor operation.
type EditKind string

const (
	EditSetReceived        EditKind = "set_received"
	EditSetAllocation      EditKind = "set_allocation"
	EditAllocateMax        EditKind = "allocate_max"
	EditAllocateAllToStock EditKind = "allocate_all_to_stock"
)

// Edit is one operator action on a reception session.
type Edit struct {
	Kind        EditKind `json:"kind" jsonschema:"required,enum=set_received,enum=set_allocation,enum=allocate_max,enum=allocate_all_to_stock"`
	LineID      int      `json:"line_id" jsonschema:"required,description=Purchase order line being received"`
	WorkOrderID int      `json:"work_order_id,omitempty" jsonschema:"description=Target work order for set_allocation and allocate_max"`
	Quantity    int      `json:"quantity,omitempty" jsonschema:"description=Quantity for set_received and set_allocation"`
}

// AllocationEditor holds the AllocationLines of one purchase order being received.
type AllocationEditor struct {
	orderID int
	lines   []*AllocationLine
	byID    map[int]*AllocationLine
}

// NewAllocationEditor builds a fresh editor from the order's lines and the demand index.
func NewAllocationEditor(po *PurchaseOrder, index DemandIndex) *AllocationEditor {
	e := &AllocationEditor{
		orderID: po.ID,
		lines:   make([]*AllocationLine, 0, len(po.Lines)),
		byID:    make(map[int]*AllocationLine, len(po.Lines)),
	}
	for _, l := range po.Lines {
		al := NewAllocationLine(l, index[l.ID])
		e.lines = append(e.lines, al)
		e.byID[l.ID] = al
	}
	return e
}

// OrderID is the purchase order the editor belongs to.
func (e *AllocationEditor) OrderID() int { return e.orderID }

// Lines returns the allocation lines in purchase order line order.
func (e *AllocationEditor) Lines() []*AllocationLine { return e.lines }

// Line returns the allocation line for a purchase order line id.
func (e *AllocationEditor) Line(lineID int) (*AllocationLine, bool) {
	l, ok := e.byID[lineID]
	return l, ok
}

// TotalReceived is the sum of received quantities over all lines.
func (e *AllocationEditor) TotalReceived() int {
	total := 0
	for _, l := range e.lines {
		total += l.received
	}
	return total
}

// Apply dispatches one edit to its line.
func (e *AllocationEditor) Apply(edit Edit) error {
	line, ok := e.byID[edit.LineID]
	if !ok {
		return validationErrorf(CodeUnknownLine, "line %d is not part of order %d", edit.LineID, e.orderID)
	}
	switch edit.Kind {
	case EditSetReceived:
		line.SetReceivedQuantity(edit.Quantity)
		return nil
	case EditSetAllocation:
		return line.SetAllocation(edit.WorkOrderID, edit.Quantity)
	case EditAllocateMax:
		return line.AllocateMax(edit.WorkOrderID)
	case EditAllocateAllToStock:
		line.AllocateAllToStock()
		return nil
	default:
		return validationErrorf(CodeInvalidInput, "unknown edit kind %q", edit.Kind)
	}
}

// Validate checks every line.
func (e *AllocationEditor) Validate() error {
	for _, l := range e.lines {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// AllocationLineView is the serialisable state of one line.
type AllocationLineView struct {
	LineID           int               `json:"line_id"`
	Designation      string            `json:"designation"`
	OrderedQuantity  int               `json:"ordered_quantity"`
	AlreadyReceived  int               `json:"already_received"`
	ReceivedQuantity int               `json:"received_quantity"`
	Residual         int               `json:"residual_to_stock"`
	Entries          []AllocationEntry `json:"entries"`
}

// View returns the serialisable state of every line.
func (e *AllocationEditor) View() []AllocationLineView {
	out := make([]AllocationLineView, 0, len(e.lines))
	for _, l := range e.lines {
		out = append(out, AllocationLineView{
			LineID:           l.line.ID,
			Designation:      l.line.Designation,
			OrderedQuantity:  l.line.Quantity,
			AlreadyReceived:  l.line.ReceivedQuantity,
			ReceivedQuantity: l.received,
			Residual:         l.Residual(),
			Entries:          l.Entries(),
		})
	}
	return out
}
