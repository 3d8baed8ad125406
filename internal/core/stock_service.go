package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type stockService struct {
	pool *pgxpool.Pool
}

// NewStockService constructs a StockService backed by PostgreSQL.
func NewStockService(pool *pgxpool.Pool) StockService {
	return &stockService{pool: pool}
}

const articleColumns = `id, reference, designation, quantity_in_stock, alert_threshold,
		       critical_threshold, unit_price, location, is_active, created_at`

func scanArticle(row pgx.Row, a *StockArticle) error {
	return row.Scan(&a.ID, &a.Reference, &a.Designation, &a.QuantityInStock, &a.AlertThreshold,
		&a.CriticalThreshold, &a.UnitPrice, &a.Location, &a.Active, &a.CreatedAt)
}

// ── Standalone operations ─────────────────────────────────────────────────────

func (s *stockService) ListArticles(ctx context.Context) ([]StockArticle, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+articleColumns+`
		FROM stock_articles
		WHERE is_active = true
		ORDER BY designation`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock articles: %w", err)
	}
	defer rows.Close()

	var articles []StockArticle
	for rows.Next() {
		var a StockArticle
		if err := scanArticle(rows, &a); err != nil {
			return nil, fmt.Errorf("failed to scan stock article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (s *stockService) GetArticle(ctx context.Context, id int) (*StockArticle, error) {
	var a StockArticle
	row := s.pool.QueryRow(ctx, `SELECT `+articleColumns+` FROM stock_articles WHERE id = $1`, id)
	if err := scanArticle(row, &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("stock article %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get stock article %d: %w", id, err)
	}
	return &a, nil
}

func (s *stockService) CreateArticle(ctx context.Context, input StockArticleInput) (*StockArticle, error) {
	if input.Reference == "" || input.Designation == "" {
		return nil, validationErrorf(CodeInvalidInput, "article reference and designation are required")
	}
	if input.QuantityInStock < 0 {
		return nil, validationErrorf(CodeInvalidInput, "initial stock cannot be negative, got %d", input.QuantityInStock)
	}
	if input.UnitPrice.IsNegative() {
		return nil, validationErrorf(CodeInvalidInput, "unit price cannot be negative, got %s", input.UnitPrice)
	}

	var location *string
	if input.Location != "" {
		location = &input.Location
	}

	var a StockArticle
	row := s.pool.QueryRow(ctx, `
		INSERT INTO stock_articles (reference, designation, quantity_in_stock, alert_threshold,
		                            critical_threshold, unit_price, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+articleColumns,
		input.Reference, input.Designation, input.QuantityInStock, input.AlertThreshold,
		input.CriticalThreshold, input.UnitPrice, location,
	)
	if err := scanArticle(row, &a); err != nil {
		return nil, fmt.Errorf("failed to insert stock article: %w", err)
	}
	return &a, nil
}

func (s *stockService) StockLevels(ctx context.Context) ([]StockLevel, error) {
	articles, err := s.ListArticles(ctx)
	if err != nil {
		return nil, err
	}
	levels := make([]StockLevel, 0, len(articles))
	for _, a := range articles {
		levels = append(levels, a.Level())
	}
	return levels, nil
}

func (s *stockService) ListMovements(ctx context.Context, articleID, limit int) ([]StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, article_id, kind, quantity, quantity_before, quantity_after, reason, operator_id, created_at
		FROM stock_movements
		WHERE article_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		articleID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock movements: %w", err)
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ArticleID, &m.Kind, &m.Quantity, &m.QuantityBefore,
			&m.QuantityAfter, &m.Reason, &m.OperatorID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (s *stockService) RecordMovement(ctx context.Context, op Operator, articleID int, kind MovementKind, qty int, reason string) (*StockMovement, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	m, err := s.RecordMovementTx(ctx, tx, op, articleID, kind, qty, reason)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit stock movement: %w", err)
	}
	return m, nil
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

// RecordMovementTx locks the article, computes the new quantity and appends the movement.
// entree adds, sortie subtracts (stock may go negative, which the alert views surface),
// inventaire sets the counted quantity.
func (s *stockService) RecordMovementTx(ctx context.Context, tx pgx.Tx, op Operator, articleID int, kind MovementKind, qty int, reason string) (*StockMovement, error) {
	if qty < 0 {
		return nil, validationErrorf(CodeInvalidInput, "movement quantity cannot be negative, got %d", qty)
	}

	var before int
	if err := tx.QueryRow(ctx,
		"SELECT quantity_in_stock FROM stock_articles WHERE id = $1 FOR UPDATE",
		articleID,
	).Scan(&before); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("stock article %d: %w", articleID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock stock article %d: %w", articleID, err)
	}

	var after int
	switch kind {
	case MovementIn:
		after = before + qty
	case MovementOut:
		after = before - qty
	case MovementInventory:
		after = qty
	default:
		return nil, validationErrorf(CodeInvalidInput, "unknown movement kind %q", kind)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE stock_articles SET quantity_in_stock = $1, updated_at = NOW() WHERE id = $2",
		after, articleID,
	); err != nil {
		return nil, fmt.Errorf("failed to update stock article %d: %w", articleID, err)
	}

	m := &StockMovement{
		ArticleID:      articleID,
		Kind:           kind,
		Quantity:       qty,
		QuantityBefore: before,
		QuantityAfter:  after,
		Reason:         reason,
		OperatorID:     &op.ID,
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO stock_movements (article_id, kind, quantity, quantity_before, quantity_after, reason, operator_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		articleID, kind, qty, before, after, reason, op.ID,
	).Scan(&m.ID, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert stock movement: %w", err)
	}
	return m, nil
}
