package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// POStatus is the lifecycle status of a purchase order.
type POStatus string

const (
	POStatusDraft     POStatus = "brouillon"
	POStatusPending   POStatus = "en_attente"
	POStatusValidated POStatus = "validee"
	POStatusOrdered   POStatus = "commandee"
	POStatusShipped   POStatus = "expediee"
	POStatusReceived  POStatus = "recue"
	POStatusCancelled POStatus = "annulee"
)

// poWorkflow is the ordered, forward-only status sequence. Cancellation is handled separately.
var poWorkflow = []POStatus{
	POStatusDraft,
	POStatusPending,
	POStatusValidated,
	POStatusOrdered,
	POStatusShipped,
	POStatusReceived,
}

// Valid reports whether s is a known status.
func (s POStatus) Valid() bool {
	if s == POStatusCancelled {
		return true
	}
	for _, w := range poWorkflow {
		if w == s {
			return true
		}
	}
	return false
}

// Next returns the status that follows s in the workflow, or false when s is terminal.
func (s POStatus) Next() (POStatus, bool) {
	for i, w := range poWorkflow {
		if w == s && i+1 < len(poWorkflow) {
			return poWorkflow[i+1], true
		}
	}
	return "", false
}

// CanCancel reports whether an order in status s may still be cancelled.
func (s POStatus) CanCancel() bool {
	return s != POStatusReceived && s != POStatusCancelled
}

// AcceptsReception reports whether goods may be received against an order in status s.
func (s POStatus) AcceptsReception() bool {
	return s == POStatusOrdered || s == POStatusShipped
}

// Editable reports whether lines may still be added or removed.
func (s POStatus) Editable() bool {
	return s == POStatusDraft || s == POStatusPending || s == POStatusValidated
}

// Priority is the urgency tier of a purchase order.
type Priority string

const (
	PriorityLow    Priority = "basse"
	PriorityNormal Priority = "normale"
	PriorityHigh   Priority = "haute"
	PriorityUrgent Priority = "urgente"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// PurchaseOrder represents a supplier order ("commande") header with its lines.
// Status progresses through the workflow:
//
//	brouillon → en_attente → validee → commandee → expediee → recue
//	any non-received status → annulee
type PurchaseOrder struct {
	ID                   int                 `json:"id"`
	Code                 string              `json:"code"`
	Supplier             string              `json:"supplier"`
	SupplierReference    *string             `json:"supplier_reference,omitempty"`
	Priority             Priority            `json:"priority"`
	Status               POStatus            `json:"status"`
	OrderedAt            *time.Time          `json:"ordered_at,omitempty"`
	ExpectedDeliveryDate *string             `json:"expected_delivery_date,omitempty"` // YYYY-MM-DD
	ReceivedAt           *time.Time          `json:"received_at,omitempty"`
	Notes                *string             `json:"notes,omitempty"`
	CreatedBy            uuid.UUID           `json:"created_by"`
	Archived             bool                `json:"archived"`
	ArchivedAt           *time.Time          `json:"archived_at,omitempty"`
	ArchivedBy           *uuid.UUID          `json:"archived_by,omitempty"`
	ArchiveReason        *string             `json:"archive_reason,omitempty"`
	Version              int                 `json:"version"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
	Lines                []PurchaseOrderLine `json:"lines"`
}

// TotalOrdered returns the sum of ordered quantities over all lines.
func (po *PurchaseOrder) TotalOrdered() int {
	total := 0
	for _, l := range po.Lines {
		total += l.Quantity
	}
	return total
}

// TotalReceived returns the sum of received quantities over all lines.
func (po *PurchaseOrder) TotalReceived() int {
	total := 0
	for _, l := range po.Lines {
		total += l.ReceivedQuantity
	}
	return total
}

// FullyReceived reports whether every ordered unit has arrived.
func (po *PurchaseOrder) FullyReceived() bool {
	ordered := po.TotalOrdered()
	return ordered > 0 && po.TotalReceived() >= ordered
}

// PurchaseOrderLine represents a single line on a purchase order.
type PurchaseOrderLine struct {
	ID               int     `json:"id"`
	OrderID          int     `json:"order_id"`
	ArticleID        *int    `json:"article_id,omitempty"`
	ArticleRef       *int    `json:"article_ref,omitempty"` // id of the joined catalog article, when one resolves
	Designation      string  `json:"designation"`
	Reference        *string `json:"reference,omitempty"`
	Quantity         int     `json:"quantity"`
	ReceivedQuantity int     `json:"received_quantity"`
	Notes            *string `json:"notes,omitempty"`
	ElevatorID       *int    `json:"elevator_id,omitempty"`
	LinkedPieceID    *string `json:"linked_piece_id,omitempty"`
}

// Remaining returns the quantity still expected from the supplier, never negative.
func (l PurchaseOrderLine) Remaining() int {
	if l.ReceivedQuantity >= l.Quantity {
		return 0
	}
	return l.Quantity - l.ReceivedQuantity
}

// Complete reports whether the line has been received in full (or beyond).
func (l PurchaseOrderLine) Complete() bool {
	return l.ReceivedQuantity >= l.Quantity
}

// ResolvedArticleID prefers the explicit article id, then the joined article record's id.
// Free-text lines have no article identity and return nil.
func (l PurchaseOrderLine) ResolvedArticleID() *int {
	if l.ArticleID != nil {
		return l.ArticleID
	}
	return l.ArticleRef
}

// PurchaseOrderInput holds the fields required to create a purchase order.
type PurchaseOrderInput struct {
	Supplier             string
	SupplierReference    string
	Priority             Priority
	ExpectedDeliveryDate string // YYYY-MM-DD, optional
	Notes                string
	Lines                []PurchaseOrderLineInput
}

// PurchaseOrderLineInput holds the fields required to add a purchase order line.
type PurchaseOrderLineInput struct {
	ArticleID     *int
	Designation   string
	Reference     string
	Quantity      int
	Notes         string
	ElevatorID    *int
	LinkedPieceID string
}

// PurchaseOrderFilter narrows ListPOs.
type PurchaseOrderFilter struct {
	Status          POStatus // empty = any
	Search          string   // matched against code, supplier and supplier reference
	IncludeArchived bool
}

// PurchaseOrderStats summarises the order book.
type PurchaseOrderStats struct {
	Total      int `json:"total"`
	InProgress int `json:"en_cours"`
	Received   int `json:"recues"`
	Urgent     int `json:"urgentes"`
}

// PurchaseOrderService provides purchase order lifecycle operations.
type PurchaseOrderService interface {
	// CreatePO creates a brouillon order with a gapless CMD-NNNN code.
	CreatePO(ctx context.Context, op Operator, input PurchaseOrderInput) (*PurchaseOrder, error)

	// AddLine appends a line to an order that is still editable.
	AddLine(ctx context.Context, poID int, input PurchaseOrderLineInput) (*PurchaseOrderLine, error)

	// DeleteLine removes a line from an order that is still editable.
	DeleteLine(ctx context.Context, poID, lineID int) error

	// AdvanceStatus moves the order one step forward in the workflow.
	// Moving to commandee stamps ordered_at; moving to recue stamps received_at.
	AdvanceStatus(ctx context.Context, op Operator, poID int) (*PurchaseOrder, error)

	// CancelPO transitions any non-received order to annulee.
	CancelPO(ctx context.Context, op Operator, poID int) (*PurchaseOrder, error)

	// MarkReceived transitions an order to recue and stamps received_at.
	// It is idempotent: an already received order is returned unchanged.
	MarkReceived(ctx context.Context, op Operator, poID int) (*PurchaseOrder, error)

	// ArchivePO soft-removes an order from active views, independently of its status.
	ArchivePO(ctx context.Context, op Operator, poID int, reason string) error

	// UnarchivePO restores an archived order.
	UnarchivePO(ctx context.Context, poID int) error

	// GetPO returns a purchase order by its internal ID, including all lines.
	GetPO(ctx context.Context, poID int) (*PurchaseOrder, error)

	// ListPOs returns purchase orders, newest first.
	ListPOs(ctx context.Context, filter PurchaseOrderFilter) ([]PurchaseOrder, error)

	// Stats counts active orders by bucket.
	Stats(ctx context.Context) (*PurchaseOrderStats, error)
}
