package app

import (
	"context"

	"fieldservice/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind.
type ApplicationService interface {
	// ListPurchaseOrders returns purchase orders matching the filter, newest first.
	ListPurchaseOrders(ctx context.Context, filter core.PurchaseOrderFilter) (*PurchaseOrdersResult, error)

	// GetPurchaseOrder returns a single purchase order with its lines.
	GetPurchaseOrder(ctx context.Context, poID int) (*PurchaseOrderResult, error)

	// PurchaseOrderStats returns the counters shown above the order list.
	PurchaseOrderStats(ctx context.Context) (*core.PurchaseOrderStats, error)

	// CreatePurchaseOrder creates a brouillon purchase order.
	CreatePurchaseOrder(ctx context.Context, op core.Operator, req CreatePurchaseOrderRequest) (*PurchaseOrderResult, error)

	// AddPurchaseOrderLine appends a line to an order not yet sent to the supplier.
	AddPurchaseOrderLine(ctx context.Context, poID int, req PurchaseOrderLineRequest) (*PurchaseOrderResult, error)

	// DeletePurchaseOrderLine removes a line from an order not yet sent to the supplier.
	DeletePurchaseOrderLine(ctx context.Context, poID, lineID int) (*PurchaseOrderResult, error)

	// AdvancePurchaseOrder moves an order one step forward in its workflow.
	AdvancePurchaseOrder(ctx context.Context, op core.Operator, poID int) (*PurchaseOrderResult, error)

	// CancelPurchaseOrder cancels an order that was not received.
	CancelPurchaseOrder(ctx context.Context, op core.Operator, poID int) (*PurchaseOrderResult, error)

	// ArchivePurchaseOrder hides an order from active lists.
	ArchivePurchaseOrder(ctx context.Context, op core.Operator, poID int, reason string) (*PurchaseOrderResult, error)

	// UnarchivePurchaseOrder restores an archived order.
	UnarchivePurchaseOrder(ctx context.Context, poID int) (*PurchaseOrderResult, error)

	// OpenReception starts a reception session for an order that was sent to the
	// supplier: it reads the order and the work orders awaiting parts fresh, builds
	// the demand index and returns the editable allocation state.
	OpenReception(ctx context.Context, op core.Operator, poID int) (*ReceptionSessionResult, error)

	// GetReception returns the current state of an open session.
	GetReception(ctx context.Context, token string) (*ReceptionSessionResult, error)

	// EditReception applies one edit. A rejected edit leaves the session unchanged.
	EditReception(ctx context.Context, token string, edit core.Edit) (*ReceptionSessionResult, error)

	// CommitReception writes the session, line by line. The session is closed once
	// any write was attempted; lines that were not committed need a new session.
	CommitReception(ctx context.Context, op core.Operator, token string) (*ReceptionCommitResult, error)

	// CancelReception discards a session without writing anything.
	CancelReception(ctx context.Context, token string) error

	// ExportReceptionReport renders an order's lines and waiting work orders as a workbook.
	ExportReceptionReport(ctx context.Context, poID int) (*ReportResult, error)

	// ListAwaitingParts returns work orders waiting for order-backed parts.
	ListAwaitingParts(ctx context.Context) (*WorkOrdersResult, error)

	// GetWorkOrder returns a work order with its pieces.
	GetWorkOrder(ctx context.Context, id int) (*core.WorkOrder, error)

	// CreateWorkOrder creates a work order.
	CreateWorkOrder(ctx context.Context, op core.Operator, req CreateWorkOrderRequest) (*core.WorkOrder, error)

	// GetStockLevels returns every active article with its threshold status.
	GetStockLevels(ctx context.Context) (*StockResult, error)

	// CreateStockArticle adds an article to the catalog.
	CreateStockArticle(ctx context.Context, req CreateStockArticleRequest) (*core.StockArticle, error)

	// ListStockMovements returns the latest movements of an article.
	ListStockMovements(ctx context.Context, articleID, limit int) (*StockMovementsResult, error)

	// RecordStockMovement applies a manual entree, sortie or inventaire recount.
	RecordStockMovement(ctx context.Context, op core.Operator, articleID int, req StockMovementRequest) (*core.StockMovement, error)
}
