package app

import (
	"github.com/shopspring/decimal"

	"fieldservice/internal/core"
)

// CreatePurchaseOrderRequest is the input for creating a new purchase order.
type CreatePurchaseOrderRequest struct {
	Supplier             string                     `json:"supplier"`
	SupplierReference    string                     `json:"supplier_reference"`
	Priority             core.Priority              `json:"priority"`
	ExpectedDeliveryDate string                     `json:"expected_delivery_date"` // YYYY-MM-DD
	Notes                string                     `json:"notes"`
	Lines                []PurchaseOrderLineRequest `json:"lines"`
}

// PurchaseOrderLineRequest is a single line of a purchase order.
type PurchaseOrderLineRequest struct {
	ArticleID     *int   `json:"article_id"`
	Designation   string `json:"designation"`
	Reference     string `json:"reference"`
	Quantity      int    `json:"quantity"`
	Notes         string `json:"notes"`
	ElevatorID    *int   `json:"elevator_id"`
	LinkedPieceID string `json:"linked_piece_id"`
}

func (r PurchaseOrderLineRequest) toInput() core.PurchaseOrderLineInput {
	return core.PurchaseOrderLineInput{
		ArticleID:     r.ArticleID,
		Designation:   r.Designation,
		Reference:     r.Reference,
		Quantity:      r.Quantity,
		Notes:         r.Notes,
		ElevatorID:    r.ElevatorID,
		LinkedPieceID: r.LinkedPieceID,
	}
}

func (r CreatePurchaseOrderRequest) toInput() core.PurchaseOrderInput {
	in := core.PurchaseOrderInput{
		Supplier:             r.Supplier,
		SupplierReference:    r.SupplierReference,
		Priority:             r.Priority,
		ExpectedDeliveryDate: r.ExpectedDeliveryDate,
		Notes:                r.Notes,
	}
	for _, l := range r.Lines {
		in.Lines = append(in.Lines, l.toInput())
	}
	return in
}

// CreateWorkOrderRequest is the input for creating a work order.
type CreateWorkOrderRequest struct {
	Title           string             `json:"title"`
	ElevatorAddress string             `json:"elevator_address"`
	DueDate         string             `json:"due_date"` // YYYY-MM-DD
	Pieces          []PieceNeedRequest `json:"pieces"`
}

// PieceNeedRequest is one part required by a new work order.
type PieceNeedRequest struct {
	ArticleID   *int              `json:"article_id"`
	Designation string            `json:"designation"`
	Reference   string            `json:"reference"`
	Quantity    int               `json:"quantity"`
	Source      core.SupplySource `json:"source"`
}

// CreateStockArticleRequest is the input for adding a catalog article.
type CreateStockArticleRequest struct {
	Reference         string          `json:"reference"`
	Designation       string          `json:"designation"`
	QuantityInStock   int             `json:"quantity_in_stock"`
	AlertThreshold    int             `json:"alert_threshold"`
	CriticalThreshold int             `json:"critical_threshold"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Location          string          `json:"location"`
}

// StockMovementRequest is a manual stock adjustment.
type StockMovementRequest struct {
	Kind     core.MovementKind `json:"kind"`
	Quantity int               `json:"quantity"`
	Reason   string            `json:"reason"`
}
