package app

import (
	"time"

	"fieldservice/internal/core"
)

// PurchaseOrderResult is returned by single purchase order operations.
type PurchaseOrderResult struct {
	Order *core.PurchaseOrder `json:"order"`
}

// PurchaseOrdersResult is returned by ListPurchaseOrders.
type PurchaseOrdersResult struct {
	Orders []core.PurchaseOrder `json:"orders"`
}

// ReceptionSessionResult is the state of an open reception session.
type ReceptionSessionResult struct {
	Token         string                    `json:"token"`
	OrderID       int                       `json:"order_id"`
	OrderCode     string                    `json:"order_code"`
	Supplier      string                    `json:"supplier"`
	OpenedBy      core.Operator             `json:"opened_by"`
	ExpiresAt     time.Time                 `json:"expires_at"`
	TotalReceived int                       `json:"total_received"`
	Lines         []core.AllocationLineView `json:"lines"`
}

// ReceptionCommitResult is returned by CommitReception. Order is the order as it
// stands after the commit; it is nil when the order could not be re-read.
type ReceptionCommitResult struct {
	Reception *core.ReceptionResult `json:"reception"`
	Order     *core.PurchaseOrder   `json:"order,omitempty"`
}

// WorkOrdersResult is returned by ListAwaitingParts.
type WorkOrdersResult struct {
	WorkOrders []core.WorkOrder `json:"work_orders"`
}

// StockResult is returned by GetStockLevels.
type StockResult struct {
	Levels []core.StockLevel `json:"levels"`
}

// StockMovementsResult is returned by ListStockMovements.
type StockMovementsResult struct {
	ArticleID int                  `json:"article_id"`
	Movements []core.StockMovement `json:"movements"`
}

// ReportResult is a rendered file.
type ReportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}
