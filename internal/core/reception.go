package core

import (
	"context"
	"fmt"
)

// LineReceipt is the durable write for one purchase order line of a reception.
type LineReceipt struct {
	OrderID   int
	OrderCode string
	// ExpectedOrderVersion is the purchase order version the previous write left,
	// or the one read when the session opened.
	ExpectedOrderVersion int
	LineID               int
	ReceivedQuantity     int
	// ExpectedReceived is the line's received quantity when the session opened.
	// The store rejects the write with ErrStaleData if it no longer matches.
	ExpectedReceived int
	ArticleID        *int // nil for free-text lines
	Designation      string
	LinkedPieceID    *string
	Allocations      []Allocation
	// WorkOrderVersions holds the version each allocated work order must still have.
	WorkOrderVersions map[int]int
	StockResidual     int
}

// LineReceiptResult reports the versions the store assigned to the purchase order and
// to the work orders it touched.
type LineReceiptResult struct {
	OrderVersion      int
	WorkOrderVersions map[int]int
}

// LineReceiver applies one LineReceipt: it stamps the line's received quantity,
// adds the residual to warehouse stock and reduces the need of each targeted work order.
type LineReceiver interface {
	ReceiveLine(ctx context.Context, op Operator, receipt LineReceipt) (*LineReceiptResult, error)
}

// LineStatus is the outcome of one line in a commit.
type LineStatus string

const (
	LineCommitted LineStatus = "committed"
	LineFailed    LineStatus = "failed"
	LineSkipped   LineStatus = "skipped" // never attempted because an earlier line failed
)

// ReceptionStatus summarises a whole commit.
type ReceptionStatus string

const (
	ReceptionComplete ReceptionStatus = "complete" // every line committed
	ReceptionPartial  ReceptionStatus = "partial"  // some lines committed, then one failed
	ReceptionFailed   ReceptionStatus = "failed"   // the first line failed, nothing written
)

// LineOutcome is the per-line result of a commit.
type LineOutcome struct {
	LineID           int          `json:"line_id"`
	Designation      string       `json:"designation"`
	ReceivedQuantity int          `json:"received_quantity"`
	StockResidual    int          `json:"stock_residual"`
	Allocations      []Allocation `json:"allocations"`
	Status           LineStatus   `json:"status"`
	Error            string       `json:"error,omitempty"`
}

// ReceptionResult is returned by CommitReception.
type ReceptionResult struct {
	OrderID       int             `json:"order_id"`
	OrderCode     string          `json:"order_code"`
	Status        ReceptionStatus `json:"status"`
	Processed     int             `json:"processed"`
	FullyReceived bool            `json:"fully_received"`
	Outcomes      []LineOutcome   `json:"outcomes"`
}

// Retryable returns the ids of the lines that were not committed.
func (r *ReceptionResult) Retryable() []int {
	var ids []int
	for _, o := range r.Outcomes {
		if o.Status != LineCommitted {
			ids = append(ids, o.LineID)
		}
	}
	return ids
}

// CommitReception applies every allocation line of the editor through receiver, one
// line at a time in purchase order line order, and stops at the first failure. Lines
// written before the failure stay written.
//
// The editor is validated before any write; a validation failure returns a nil result.
// When a line fails, the result lists which lines were committed, which failed and
// which were skipped, and the returned error wraps the line failure.
func CommitReception(ctx context.Context, op Operator, po *PurchaseOrder, editor *AllocationEditor, receiver LineReceiver) (*ReceptionResult, error) {
	if editor.OrderID() != po.ID {
		return nil, validationErrorf(CodeInvalidInput,
			"reception session belongs to order %d, not %d", editor.OrderID(), po.ID)
	}
	if err := editor.Validate(); err != nil {
		return nil, err
	}

	versions := make(map[int]int)
	for _, l := range editor.Lines() {
		for _, e := range l.Entries() {
			if _, seen := versions[e.WorkOrderID]; !seen {
				versions[e.WorkOrderID] = e.WorkOrderVersion
			}
		}
	}

	orderVersion := po.Version
	result := &ReceptionResult{OrderID: po.ID, OrderCode: po.Code, Status: ReceptionComplete}
	var failure error
	previouslyReceived := 0
	receivedNow := 0

	for _, al := range editor.Lines() {
		line := al.Line()
		previouslyReceived += line.ReceivedQuantity

		outcome := LineOutcome{
			LineID:           line.ID,
			Designation:      line.Designation,
			ReceivedQuantity: al.ReceivedQuantity(),
			StockResidual:    al.Residual(),
			Allocations:      al.Allocations(),
			Status:           LineSkipped,
		}
		if failure != nil {
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}
		if err := ctx.Err(); err != nil {
			failure = fmt.Errorf("line %d: %w", line.ID, err)
			outcome.Status = LineFailed
			outcome.Error = err.Error()
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		receipt := LineReceipt{
			OrderID:              po.ID,
			OrderCode:            po.Code,
			ExpectedOrderVersion: orderVersion,
			LineID:               line.ID,
			ReceivedQuantity:     al.ReceivedQuantity(),
			ExpectedReceived:     line.ReceivedQuantity,
			ArticleID:            line.ResolvedArticleID(),
			Designation:          line.Designation,
			LinkedPieceID:        line.LinkedPieceID,
			Allocations:          outcome.Allocations,
			WorkOrderVersions:    make(map[int]int, len(outcome.Allocations)),
			StockResidual:        outcome.StockResidual,
		}
		for _, a := range outcome.Allocations {
			receipt.WorkOrderVersions[a.WorkOrderID] = versions[a.WorkOrderID]
		}

		res, err := receiver.ReceiveLine(ctx, op, receipt)
		if err != nil {
			failure = fmt.Errorf("receive line %d (%s): %w", line.ID, line.Designation, err)
			outcome.Status = LineFailed
			outcome.Error = err.Error()
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}
		if res != nil {
			orderVersion = res.OrderVersion
			for id, v := range res.WorkOrderVersions {
				versions[id] = v
			}
		}
		outcome.Status = LineCommitted
		result.Processed++
		receivedNow += al.ReceivedQuantity()
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if failure != nil {
		if result.Processed == 0 {
			result.Status = ReceptionFailed
		} else {
			result.Status = ReceptionPartial
		}
		return result, failure
	}

	ordered := po.TotalOrdered()
	result.FullyReceived = ordered > 0 && previouslyReceived+receivedNow >= ordered
	return result, nil
}
