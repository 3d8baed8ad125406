package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type lineReceiver struct {
	pool  *pgxpool.Pool
	stock StockService
}

// NewLineReceiver returns the PostgreSQL LineReceiver. Each line is written in its
// own transaction.
func NewLineReceiver(pool *pgxpool.Pool, stock StockService) LineReceiver {
	return &lineReceiver{pool: pool, stock: stock}
}

// ReceiveLine first locks the purchase order, which must still accept receptions and
// still carry the version the session read. It then stamps the line's received quantity, books the whole receipt into stock
// as one entree, then for each allocation books a sortie and fills the work order's
// matching pieces. Free-text lines without a catalog article only update the work orders.
func (r *lineReceiver) ReceiveLine(ctx context.Context, op Operator, receipt LineReceipt) (*LineReceiptResult, error) {
	allocated := 0
	for _, a := range receipt.Allocations {
		if a.Quantity <= 0 {
			return nil, validationErrorf(CodeInvalidInput, "allocation to work order %d must be positive", a.WorkOrderID)
		}
		allocated += a.Quantity
	}
	if receipt.ReceivedQuantity < 0 {
		return nil, validationErrorf(CodeInvalidInput, "received quantity cannot be negative")
	}
	if receipt.ReceivedQuantity-allocated != receipt.StockResidual || receipt.StockResidual < 0 {
		return nil, validationErrorf(CodeNegativeResidual,
			"line %d: received %d, allocated %d, residual %d do not balance",
			receipt.LineID, receipt.ReceivedQuantity, allocated, receipt.StockResidual)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		status   POStatus
		archived bool
		version  int
	)
	if err := tx.QueryRow(ctx,
		"SELECT status, archived, version FROM purchase_orders WHERE id = $1 FOR UPDATE",
		receipt.OrderID,
	).Scan(&status, &archived, &version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %d: %w", receipt.OrderID, ErrNotFound)
		}
		return nil, fmt.Errorf("lock purchase order %d: %w", receipt.OrderID, err)
	}
	if archived || !status.AcceptsReception() {
		return nil, fmt.Errorf("purchase order %s cannot be received in status %s (archived %t): %w",
			receipt.OrderCode, status, archived, ErrInvalidTransition)
	}
	if version != receipt.ExpectedOrderVersion {
		return nil, fmt.Errorf("purchase order %s is at version %d, expected %d: %w",
			receipt.OrderCode, version, receipt.ExpectedOrderVersion, ErrStaleData)
	}

	var stored int
	if err := tx.QueryRow(ctx, `
		SELECT received_quantity FROM purchase_order_lines
		WHERE id = $1 AND order_id = $2
		FOR UPDATE`,
		receipt.LineID, receipt.OrderID,
	).Scan(&stored); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("line %d on purchase order %d: %w", receipt.LineID, receipt.OrderID, ErrNotFound)
		}
		return nil, fmt.Errorf("lock line %d: %w", receipt.LineID, err)
	}
	if stored != receipt.ExpectedReceived {
		return nil, fmt.Errorf("line %d received quantity is %d, expected %d: %w",
			receipt.LineID, stored, receipt.ExpectedReceived, ErrStaleData)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE purchase_order_lines
		SET received_quantity = received_quantity + $1
		WHERE id = $2`,
		receipt.ReceivedQuantity, receipt.LineID,
	); err != nil {
		return nil, fmt.Errorf("update line %d: %w", receipt.LineID, err)
	}

	if receipt.ArticleID != nil && receipt.ReceivedQuantity > 0 {
		if _, err := r.stock.RecordMovementTx(ctx, tx, op, *receipt.ArticleID, MovementIn,
			receipt.ReceivedQuantity, "Réception commande "+receipt.OrderCode); err != nil {
			return nil, err
		}
	}

	match := PurchaseOrderLine{
		ID:            receipt.LineID,
		OrderID:       receipt.OrderID,
		ArticleID:     receipt.ArticleID,
		Designation:   receipt.Designation,
		LinkedPieceID: receipt.LinkedPieceID,
	}
	result := &LineReceiptResult{WorkOrderVersions: make(map[int]int, len(receipt.Allocations))}
	for _, a := range receipt.Allocations {
		expected, ok := receipt.WorkOrderVersions[a.WorkOrderID]
		if !ok {
			return nil, validationErrorf(CodeUnknownWorkOrder, "no version known for work order %d", a.WorkOrderID)
		}
		version, code, err := applyAllocationTx(ctx, tx, a.WorkOrderID, expected, match, a.Quantity)
		if err != nil {
			return nil, err
		}
		result.WorkOrderVersions[a.WorkOrderID] = version

		if receipt.ArticleID != nil {
			if _, err := r.stock.RecordMovementTx(ctx, tx, op, *receipt.ArticleID, MovementOut,
				a.Quantity, "Affectation travaux "+code); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.QueryRow(ctx,
		"UPDATE purchase_orders SET version = version + 1, updated_at = NOW() WHERE id = $1 RETURNING version",
		receipt.OrderID,
	).Scan(&result.OrderVersion); err != nil {
		return nil, fmt.Errorf("update purchase order %d: %w", receipt.OrderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit line %d: %w", receipt.LineID, err)
	}
	return result, nil
}
