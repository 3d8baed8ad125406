package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type workOrderService struct {
	pool *pgxpool.Pool
}

// NewWorkOrderService constructs a WorkOrderService backed by PostgreSQL.
func NewWorkOrderService(pool *pgxpool.Pool) WorkOrderService {
	return &workOrderService{pool: pool}
}

func (s *workOrderService) CreateWorkOrder(ctx context.Context, op Operator, input WorkOrderInput) (*WorkOrder, error) {
	if strings.TrimSpace(input.Title) == "" && strings.TrimSpace(input.ElevatorAddress) == "" {
		return nil, validationErrorf(CodeInvalidInput, "work order needs a title or an elevator address")
	}

	pieces := make([]PieceNeed, 0, len(input.Pieces))
	for i, in := range input.Pieces {
		if strings.TrimSpace(in.Designation) == "" {
			return nil, validationErrorf(CodeInvalidInput, "piece %d: designation is required", i+1)
		}
		if in.Quantity <= 0 {
			return nil, validationErrorf(CodeInvalidInput, "piece %d: quantity must be positive, got %d", i+1, in.Quantity)
		}
		source := in.Source
		if source == "" {
			source = SourceToBeDefined
		}
		if !source.Valid() {
			return nil, validationErrorf(CodeInvalidInput, "piece %d: unknown source %q", i+1, source)
		}
		pieces = append(pieces, PieceNeed{
			ID:          uuid.NewString(),
			ArticleID:   in.ArticleID,
			Designation: strings.TrimSpace(in.Designation),
			Reference:   in.Reference,
			Quantity:    in.Quantity,
			Source:      source,
			Status:      PieceStatusWaiting,
		})
	}
	raw, err := json.Marshal(pieces)
	if err != nil {
		return nil, fmt.Errorf("encode pieces: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	code, err := nextCodeTx(ctx, tx, WorkOrderPrefix)
	if err != nil {
		return nil, err
	}

	var id int
	if err := tx.QueryRow(ctx, `
		INSERT INTO work_orders (code, title, elevator_address, status, due_date, pieces, created_by)
		VALUES ($1, $2, $3, $4, $5::date, $6::jsonb, $7)
		RETURNING id`,
		code, strings.TrimSpace(input.Title), optString(input.ElevatorAddress), WorkOrderToPlan,
		optString(input.DueDate), string(raw), op.ID,
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert work order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit work order: %w", err)
	}
	return s.GetWorkOrder(ctx, id)
}

const workOrderColumns = `
		SELECT id, code, title, elevator_address, status, due_date::text, archived,
		       version, pieces, created_at, updated_at
		FROM work_orders`

func scanWorkOrder(row pgx.Row, wo *WorkOrder) error {
	var raw []byte
	if err := row.Scan(&wo.ID, &wo.Code, &wo.Title, &wo.ElevatorAddress, &wo.Status, &wo.DueDate,
		&wo.Archived, &wo.Version, &raw, &wo.CreatedAt, &wo.UpdatedAt); err != nil {
		return err
	}
	return decodePieces(raw, &wo.Pieces)
}

func decodePieces(raw []byte, pieces *[]PieceNeed) error {
	*pieces = []PieceNeed{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, pieces); err != nil {
		return fmt.Errorf("decode pieces: %w", err)
	}
	return nil
}

func (s *workOrderService) GetWorkOrder(ctx context.Context, id int) (*WorkOrder, error) {
	wo := &WorkOrder{}
	if err := scanWorkOrder(s.pool.QueryRow(ctx, workOrderColumns+" WHERE id = $1", id), wo); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("work order %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get work order %d: %w", id, err)
	}
	return wo, nil
}

func (s *workOrderService) ListAwaitingParts(ctx context.Context) ([]WorkOrder, error) {
	rows, err := s.pool.Query(ctx, workOrderColumns+`
		WHERE status IN ('a_planifier', 'planifie', 'en_cours')
		  AND archived = false
		ORDER BY due_date ASC NULLS LAST, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query work orders: %w", err)
	}
	defer rows.Close()

	workOrders := []WorkOrder{}
	for rows.Next() {
		var wo WorkOrder
		if err := scanWorkOrder(rows, &wo); err != nil {
			return nil, fmt.Errorf("scan work order: %w", err)
		}
		if wo.AwaitingParts() {
			workOrders = append(workOrders, wo)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query work orders: %w", err)
	}
	return workOrders, nil
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

// applyAllocationTx adds qty received units to the pieces of a work order that match
// line, filling them in piece order. A piece whose need is met moves to en_stock.
// The work order must still be at expectedVersion; its version is bumped on write.
func applyAllocationTx(ctx context.Context, tx pgx.Tx, workOrderID, expectedVersion int, line PurchaseOrderLine, qty int) (int, string, error) {
	var wo WorkOrder
	if err := scanWorkOrder(tx.QueryRow(ctx, workOrderColumns+" WHERE id = $1 FOR UPDATE", workOrderID), &wo); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", fmt.Errorf("work order %d: %w", workOrderID, ErrNotFound)
		}
		return 0, "", fmt.Errorf("lock work order %d: %w", workOrderID, err)
	}
	if wo.Version != expectedVersion {
		return 0, "", fmt.Errorf("work order %s changed (version %d, expected %d): %w",
			wo.Code, wo.Version, expectedVersion, ErrStaleData)
	}

	remaining := qty
	for i := range wo.Pieces {
		if remaining == 0 {
			break
		}
		p := &wo.Pieces[i]
		if !PieceMatchesLine(*p, line) {
			continue
		}
		take := min(p.Outstanding(), remaining)
		p.ReceivedQuantity += take
		remaining -= take
		if p.ReceivedQuantity >= p.Quantity {
			p.Status = PieceStatusInStock
		}
	}
	if remaining > 0 {
		return 0, "", validationErrorf(CodeExceedsNeed,
			"work order %s needs only %d of the %d allocated", wo.Code, qty-remaining, qty)
	}

	raw, err := json.Marshal(wo.Pieces)
	if err != nil {
		return 0, "", fmt.Errorf("encode pieces: %w", err)
	}
	var newVersion int
	if err := tx.QueryRow(ctx, `
		UPDATE work_orders
		SET pieces = $1::jsonb, version = version + 1, updated_at = NOW()
		WHERE id = $2
		RETURNING version`,
		string(raw), workOrderID,
	).Scan(&newVersion); err != nil {
		return 0, "", fmt.Errorf("update work order %s: %w", wo.Code, err)
	}
	return newVersion, wo.Code, nil
}
