package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type purchaseOrderService struct {
	pool *pgxpool.Pool
}

// NewPurchaseOrderService constructs a PurchaseOrderService backed by PostgreSQL.
func NewPurchaseOrderService(pool *pgxpool.Pool) PurchaseOrderService {
	return &purchaseOrderService{pool: pool}
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func validateLineInput(input PurchaseOrderLineInput) error {
	if strings.TrimSpace(input.Designation) == "" {
		return validationErrorf(CodeInvalidInput, "line designation is required")
	}
	if input.Quantity <= 0 {
		return validationErrorf(CodeInvalidInput, "line %q: quantity must be positive, got %d", input.Designation, input.Quantity)
	}
	return nil
}

// CreatePO creates a brouillon purchase order and its lines in one transaction.
func (s *purchaseOrderService) CreatePO(ctx context.Context, op Operator, input PurchaseOrderInput) (*PurchaseOrder, error) {
	if strings.TrimSpace(input.Supplier) == "" {
		return nil, validationErrorf(CodeInvalidInput, "supplier is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.Valid() {
		return nil, validationErrorf(CodeInvalidInput, "unknown priority %q", priority)
	}
	for _, l := range input.Lines {
		if err := validateLineInput(l); err != nil {
			return nil, err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	code, err := nextCodeTx(ctx, tx, PurchaseOrderPrefix)
	if err != nil {
		return nil, err
	}

	var poID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (code, supplier, supplier_reference, priority, status,
		                             expected_delivery_date, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8)
		RETURNING id`,
		code, input.Supplier, optString(input.SupplierReference), priority, POStatusDraft,
		optString(input.ExpectedDeliveryDate), optString(input.Notes), op.ID,
	).Scan(&poID); err != nil {
		return nil, fmt.Errorf("insert purchase order: %w", err)
	}

	for i, l := range input.Lines {
		if _, err := insertLineTx(ctx, tx, poID, l); err != nil {
			return nil, fmt.Errorf("insert line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase order: %w", err)
	}
	return s.GetPO(ctx, poID)
}

func insertLineTx(ctx context.Context, tx pgx.Tx, poID int, l PurchaseOrderLineInput) (int, error) {
	var id int
	err := tx.QueryRow(ctx, `
		INSERT INTO purchase_order_lines (order_id, article_id, designation, reference, quantity,
		                                  notes, elevator_id, linked_piece_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		poID, l.ArticleID, strings.TrimSpace(l.Designation), optString(l.Reference), l.Quantity,
		optString(l.Notes), l.ElevatorID, optString(l.LinkedPieceID),
	).Scan(&id)
	return id, err
}

// lockPOTx locks the order row and returns its status and archive flag.
func lockPOTx(ctx context.Context, tx pgx.Tx, poID int) (POStatus, bool, error) {
	var status POStatus
	var archived bool
	if err := tx.QueryRow(ctx,
		"SELECT status, archived FROM purchase_orders WHERE id = $1 FOR UPDATE",
		poID,
	).Scan(&status, &archived); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, fmt.Errorf("purchase order %d: %w", poID, ErrNotFound)
		}
		return "", false, fmt.Errorf("fetch purchase order %d: %w", poID, err)
	}
	return status, archived, nil
}

// AddLine appends a line to an order that has not been sent to the supplier yet.
func (s *purchaseOrderService) AddLine(ctx context.Context, poID int, input PurchaseOrderLineInput) (*PurchaseOrderLine, error) {
	if err := validateLineInput(input); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, _, err := lockPOTx(ctx, tx, poID)
	if err != nil {
		return nil, err
	}
	if !status.Editable() {
		return nil, fmt.Errorf("purchase order %d cannot be edited in status %s: %w", poID, status, ErrInvalidTransition)
	}

	lineID, err := insertLineTx(ctx, tx, poID, input)
	if err != nil {
		return nil, fmt.Errorf("insert line on purchase order %d: %w", poID, err)
	}
	if err := touchPOTx(ctx, tx, poID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit line: %w", err)
	}

	lines, err := s.fetchLines(ctx, poID)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		if l.ID == lineID {
			return &l, nil
		}
	}
	return nil, fmt.Errorf("line %d on purchase order %d: %w", lineID, poID, ErrNotFound)
}

// DeleteLine removes a line from an order that has not been sent to the supplier yet.
func (s *purchaseOrderService) DeleteLine(ctx context.Context, poID, lineID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, _, err := lockPOTx(ctx, tx, poID)
	if err != nil {
		return err
	}
	if !status.Editable() {
		return fmt.Errorf("purchase order %d cannot be edited in status %s: %w", poID, status, ErrInvalidTransition)
	}

	tag, err := tx.Exec(ctx, "DELETE FROM purchase_order_lines WHERE id = $1 AND order_id = $2", lineID, poID)
	if err != nil {
		return fmt.Errorf("delete line %d: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("line %d on purchase order %d: %w", lineID, poID, ErrNotFound)
	}
	if err := touchPOTx(ctx, tx, poID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit line deletion: %w", err)
	}
	return nil
}

func touchPOTx(ctx context.Context, tx pgx.Tx, poID int) error {
	if _, err := tx.Exec(ctx,
		"UPDATE purchase_orders SET version = version + 1, updated_at = NOW() WHERE id = $1",
		poID,
	); err != nil {
		return fmt.Errorf("update purchase order %d: %w", poID, err)
	}
	return nil
}

// AdvanceStatus moves the order one step forward in the workflow.
func (s *purchaseOrderService) AdvanceStatus(ctx context.Context, op Operator, poID int) (*PurchaseOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, _, err := lockPOTx(ctx, tx, poID)
	if err != nil {
		return nil, err
	}
	next, ok := status.Next()
	if !ok {
		return nil, fmt.Errorf("purchase order %d has no next status after %s: %w", poID, status, ErrInvalidTransition)
	}

	if err := setStatusTx(ctx, tx, poID, next); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit status change: %w", err)
	}
	return s.GetPO(ctx, poID)
}

// setStatusTx writes the status and stamps the date that belongs to it.
func setStatusTx(ctx context.Context, tx pgx.Tx, poID int, status POStatus) error {
	query := `
		UPDATE purchase_orders
		SET status = $1, version = version + 1, updated_at = NOW()`
	switch status {
	case POStatusOrdered:
		query += ", ordered_at = COALESCE(ordered_at, NOW())"
	case POStatusReceived:
		query += ", received_at = NOW()"
	}
	query += " WHERE id = $2"
	if _, err := tx.Exec(ctx, query, status, poID); err != nil {
		return fmt.Errorf("update purchase order %d status to %s: %w", poID, status, err)
	}
	return nil
}

// CancelPO transitions any non-received order to annulee.
func (s *purchaseOrderService) CancelPO(ctx context.Context, op Operator, poID int) (*PurchaseOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, _, err := lockPOTx(ctx, tx, poID)
	if err != nil {
		return nil, err
	}
	if !status.CanCancel() {
		return nil, fmt.Errorf("purchase order %d cannot be cancelled in status %s: %w", poID, status, ErrInvalidTransition)
	}
	if err := setStatusTx(ctx, tx, poID, POStatusCancelled); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancellation: %w", err)
	}
	return s.GetPO(ctx, poID)
}

// MarkReceived transitions an order to recue. Already received orders are a no-op.
func (s *purchaseOrderService) MarkReceived(ctx context.Context, op Operator, poID int) (*PurchaseOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, _, err := lockPOTx(ctx, tx, poID)
	if err != nil {
		return nil, err
	}
	if status != POStatusReceived {
		if status == POStatusCancelled {
			return nil, fmt.Errorf("purchase order %d is cancelled: %w", poID, ErrInvalidTransition)
		}
		if err := setStatusTx(ctx, tx, poID, POStatusReceived); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reception status: %w", err)
	}
	return s.GetPO(ctx, poID)
}

// ArchivePO soft-removes an order from active views.
func (s *purchaseOrderService) ArchivePO(ctx context.Context, op Operator, poID int, reason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE purchase_orders
		SET archived = true, archived_at = NOW(), archived_by = $1, archive_reason = $2,
		    version = version + 1, updated_at = NOW()
		WHERE id = $3`,
		op.ID, optString(reason), poID,
	)
	if err != nil {
		return fmt.Errorf("archive purchase order %d: %w", poID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchase order %d: %w", poID, ErrNotFound)
	}
	return nil
}

// UnarchivePO restores an archived order and clears the archive stamp.
func (s *purchaseOrderService) UnarchivePO(ctx context.Context, poID int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE purchase_orders
		SET archived = false, archived_at = NULL, archived_by = NULL, archive_reason = NULL,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1`,
		poID,
	)
	if err != nil {
		return fmt.Errorf("unarchive purchase order %d: %w", poID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchase order %d: %w", poID, ErrNotFound)
	}
	return nil
}

const poColumns = `
		SELECT po.id, po.code, po.supplier, po.supplier_reference, po.priority, po.status,
		       po.ordered_at, po.expected_delivery_date::text, po.received_at, po.notes,
		       po.created_by, po.archived, po.archived_at, po.archived_by, po.archive_reason,
		       po.version, po.created_at, po.updated_at
		FROM purchase_orders po`

func scanPO(row pgx.Row, po *PurchaseOrder) error {
	return row.Scan(
		&po.ID, &po.Code, &po.Supplier, &po.SupplierReference, &po.Priority, &po.Status,
		&po.OrderedAt, &po.ExpectedDeliveryDate, &po.ReceivedAt, &po.Notes,
		&po.CreatedBy, &po.Archived, &po.ArchivedAt, &po.ArchivedBy, &po.ArchiveReason,
		&po.Version, &po.CreatedAt, &po.UpdatedAt,
	)
}

// GetPO returns a purchase order by its internal ID, including all lines.
func (s *purchaseOrderService) GetPO(ctx context.Context, poID int) (*PurchaseOrder, error) {
	po := &PurchaseOrder{}
	if err := scanPO(s.pool.QueryRow(ctx, poColumns+" WHERE po.id = $1", poID), po); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %d: %w", poID, ErrNotFound)
		}
		return nil, fmt.Errorf("get purchase order %d: %w", poID, err)
	}

	lines, err := s.fetchLines(ctx, poID)
	if err != nil {
		return nil, err
	}
	po.Lines = lines
	return po, nil
}

// ListPOs returns purchase orders with their lines, newest first.
func (s *purchaseOrderService) ListPOs(ctx context.Context, filter PurchaseOrderFilter) ([]PurchaseOrder, error) {
	query := poColumns + " WHERE 1 = 1"
	var args []any

	if !filter.IncludeArchived {
		query += " AND po.archived = false"
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND po.status = $%d", len(args))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (po.code ILIKE $%d OR po.supplier ILIKE $%d OR po.supplier_reference ILIKE $%d)", n, n, n)
	}
	query += " ORDER BY po.created_at DESC, po.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		if err := scanPO(rows, &po); err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		orders = append(orders, po)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}

	for i := range orders {
		lines, err := s.fetchLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}
	return orders, nil
}

// Stats counts non-archived orders by bucket.
func (s *purchaseOrderService) Stats(ctx context.Context) (*PurchaseOrderStats, error) {
	st := &PurchaseOrderStats{}
	if err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status IN ('en_attente', 'validee', 'commandee', 'expediee')),
		       COUNT(*) FILTER (WHERE status = 'recue'),
		       COUNT(*) FILTER (WHERE priority = 'urgente' AND status NOT IN ('recue', 'annulee'))
		FROM purchase_orders
		WHERE archived = false`,
	).Scan(&st.Total, &st.InProgress, &st.Received, &st.Urgent); err != nil {
		return nil, fmt.Errorf("purchase order stats: %w", err)
	}
	return st, nil
}

// fetchLines returns all lines for a purchase order in creation order. A free-text
// line whose reference matches a catalog article carries that article's id in ArticleRef.
func (s *purchaseOrderService) fetchLines(ctx context.Context, poID int) ([]PurchaseOrderLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pol.id, pol.order_id, pol.article_id, sa.id,
		       pol.designation, pol.reference, pol.quantity, pol.received_quantity,
		       pol.notes, pol.elevator_id, pol.linked_piece_id
		FROM purchase_order_lines pol
		LEFT JOIN stock_articles sa
		       ON pol.article_id IS NULL AND pol.reference IS NOT NULL AND sa.reference = pol.reference
		WHERE pol.order_id = $1
		ORDER BY pol.id`,
		poID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch lines for purchase order %d: %w", poID, err)
	}
	defer rows.Close()

	lines := []PurchaseOrderLine{}
	for rows.Next() {
		var l PurchaseOrderLine
		if err := rows.Scan(
			&l.ID, &l.OrderID, &l.ArticleID, &l.ArticleRef,
			&l.Designation, &l.Reference, &l.Quantity, &l.ReceivedQuantity,
			&l.Notes, &l.ElevatorID, &l.LinkedPieceID,
		); err != nil {
			return nil, fmt.Errorf("scan purchase order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
