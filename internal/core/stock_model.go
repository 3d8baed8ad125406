package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// StockArticle is a catalog part held in the warehouse.
type StockArticle struct {
	ID                int             `json:"id"`
	Reference         string          `json:"reference"`
	Designation       string          `json:"designation"`
	QuantityInStock   int             `json:"quantity_in_stock"`
	AlertThreshold    int             `json:"alert_threshold"`
	CriticalThreshold int             `json:"critical_threshold"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Location          *string         `json:"location,omitempty"`
	Active            bool            `json:"active"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Stock level statuses.
const (
	StockOK       = "ok"
	StockAlert    = "alerte"
	StockCritical = "critique"
)

// StockLevel is a read view of an article with its threshold status and stock value.
type StockLevel struct {
	StockArticle
	Status string          `json:"status"`
	Value  decimal.Decimal `json:"value"` // = UnitPrice * QuantityInStock
}

// Level derives the threshold status and value of an article.
func (a StockArticle) Level() StockLevel {
	status := StockOK
	switch {
	case a.QuantityInStock <= a.CriticalThreshold:
		status = StockCritical
	case a.QuantityInStock <= a.AlertThreshold:
		status = StockAlert
	}
	return StockLevel{
		StockArticle: a,
		Status:       status,
		Value:        a.UnitPrice.Mul(decimal.NewFromInt(int64(a.QuantityInStock))),
	}
}

// MovementKind is the direction of a stock movement.
type MovementKind string

const (
	MovementIn        MovementKind = "entree"
	MovementOut       MovementKind = "sortie"
	MovementInventory MovementKind = "inventaire" // absolute recount
)

// StockMovement is one append-only change of an article's quantity.
type StockMovement struct {
	ID             int          `json:"id"`
	ArticleID      int          `json:"article_id"`
	Kind           MovementKind `json:"kind"`
	Quantity       int          `json:"quantity"`
	QuantityBefore int          `json:"quantity_before"`
	QuantityAfter  int          `json:"quantity_after"`
	Reason         string       `json:"reason"`
	OperatorID     *uuid.UUID   `json:"operator_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// StockArticleInput holds the fields required to create an article.
type StockArticleInput struct {
	Reference         string
	Designation       string
	QuantityInStock   int
	AlertThreshold    int
	CriticalThreshold int
	UnitPrice         decimal.Decimal
	Location          string
}

// StockService manages warehouse articles and their movements.
type StockService interface {
	// Standalone operations (manage their own transactions).
	ListArticles(ctx context.Context) ([]StockArticle, error)
	GetArticle(ctx context.Context, id int) (*StockArticle, error)
	CreateArticle(ctx context.Context, input StockArticleInput) (*StockArticle, error)
	StockLevels(ctx context.Context) ([]StockLevel, error)
	ListMovements(ctx context.Context, articleID, limit int) ([]StockMovement, error)
	RecordMovement(ctx context.Context, op Operator, articleID int, kind MovementKind, qty int, reason string) (*StockMovement, error)

	// RecordMovementTx writes a movement inside the caller's transaction, locking the
	// article row so concurrent receptions serialise on it.
	RecordMovementTx(ctx context.Context, tx pgx.Tx, op Operator, articleID int, kind MovementKind, qty int, reason string) (*StockMovement, error)
}
