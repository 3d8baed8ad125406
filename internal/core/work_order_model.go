package core

import (
	"context"
	"time"
)

// SupplySource tags where the parts for a PieceNeed come from.
type SupplySource string

const (
	SourceToBeDefined    SupplySource = "a_definir"
	SourceWarehouseStock SupplySource = "stock"
	SourceVehicleStock   SupplySource = "vehicule"
	SourceOrderBacked    SupplySource = "commande"
	SourceClientSupplied SupplySource = "client"
)

// Valid reports whether s is a known supply source.
func (s SupplySource) Valid() bool {
	switch s {
	case SourceToBeDefined, SourceWarehouseStock, SourceVehicleStock, SourceOrderBacked, SourceClientSupplied:
		return true
	}
	return false
}

// Piece statuses.
const (
	PieceStatusWaiting = "en_attente"
	PieceStatusInStock = "en_stock"
)

// WorkOrderStatus is the lifecycle status of a work order ("travaux").
type WorkOrderStatus string

const (
	WorkOrderToPlan     WorkOrderStatus = "a_planifier"
	WorkOrderPlanned    WorkOrderStatus = "planifie"
	WorkOrderInProgress WorkOrderStatus = "en_cours"
	WorkOrderDone       WorkOrderStatus = "termine"
	WorkOrderCancelled  WorkOrderStatus = "annule"
)

// Open reports whether the work order can still be waiting for parts.
func (s WorkOrderStatus) Open() bool {
	return s == WorkOrderToPlan || s == WorkOrderPlanned || s == WorkOrderInProgress
}

// PieceNeed is a part required to complete a work order. It is stored embedded
// in the work order's pieces JSONB column.
type PieceNeed struct {
	ID               string       `json:"id"`
	ArticleID        *int         `json:"article_id,omitempty"`
	Designation      string       `json:"designation"`
	Reference        string       `json:"reference,omitempty"`
	Quantity         int          `json:"quantite"`
	ReceivedQuantity int          `json:"quantite_recue"`
	Source           SupplySource `json:"source"`
	Consumed         bool         `json:"consommee"`
	Status           string       `json:"statut,omitempty"`
}

// Outstanding returns the quantity still needed, floored at zero.
func (p PieceNeed) Outstanding() int {
	if p.ReceivedQuantity >= p.Quantity {
		return 0
	}
	return p.Quantity - p.ReceivedQuantity
}

// Pending reports whether the piece participates in order reconciliation.
func (p PieceNeed) Pending() bool {
	return p.Source == SourceOrderBacked && !p.Consumed
}

// Waiting reports whether the piece still expects a delivery: it participates in
// reconciliation, is not already in stock and has a need left.
func (p PieceNeed) Waiting() bool {
	return p.Pending() && p.Status != PieceStatusInStock && p.Outstanding() > 0
}

// WorkOrder is a maintenance job with the parts it needs.
type WorkOrder struct {
	ID              int             `json:"id"`
	Code            string          `json:"code"`
	Title           string          `json:"title"`
	ElevatorAddress *string         `json:"elevator_address,omitempty"`
	Status          WorkOrderStatus `json:"status"`
	DueDate         *string         `json:"due_date,omitempty"` // YYYY-MM-DD
	Archived        bool            `json:"archived"`
	Version         int             `json:"version"`
	Pieces          []PieceNeed     `json:"pieces"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Label is the display name: the title, else the elevator address, else the code.
func (w WorkOrder) Label() string {
	if w.Title != "" {
		return w.Title
	}
	if w.ElevatorAddress != nil && *w.ElevatorAddress != "" {
		return *w.ElevatorAddress
	}
	return w.Code
}

// AwaitingParts reports whether at least one order-backed piece is still waiting
// for delivery.
func (w WorkOrder) AwaitingParts() bool {
	for _, p := range w.Pieces {
		if p.Waiting() {
			return true
		}
	}
	return false
}

// WorkOrderInput holds the fields required to create a work order.
type WorkOrderInput struct {
	Title           string
	ElevatorAddress string
	DueDate         string // YYYY-MM-DD, optional
	Pieces          []PieceNeedInput
}

// PieceNeedInput is one required part on a new work order.
type PieceNeedInput struct {
	ArticleID   *int
	Designation string
	Reference   string
	Quantity    int
	Source      SupplySource
}

// WorkOrderService provides work order operations needed by reception.
type WorkOrderService interface {
	// CreateWorkOrder creates an a_planifier work order with a gapless TRV-NNNN code.
	CreateWorkOrder(ctx context.Context, op Operator, input WorkOrderInput) (*WorkOrder, error)

	// GetWorkOrder returns a work order with its pieces.
	GetWorkOrder(ctx context.Context, id int) (*WorkOrder, error)

	// ListAwaitingParts returns open, non-archived work orders that still wait for
	// at least one order-backed piece, earliest due date first. Always read fresh.
	ListAwaitingParts(ctx context.Context) ([]WorkOrder, error)
}
