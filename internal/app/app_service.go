package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"fieldservice/internal/cache"
	"fieldservice/internal/core"
	"fieldservice/internal/events"
)

type appService struct {
	purchaseOrders core.PurchaseOrderService
	workOrders     core.WorkOrderService
	stock          core.StockService
	receiver       core.LineReceiver
	cache          cache.Cache
	events         events.Publisher
	sessions       *sessionStore
	now            func() time.Time
}

// NewAppService constructs an appService that satisfies ApplicationService.
// Expired reception sessions are purged until ctx is cancelled.
func NewAppService(
	ctx context.Context,
	purchaseOrders core.PurchaseOrderService,
	workOrders core.WorkOrderService,
	stock core.StockService,
	receiver core.LineReceiver,
	readCache cache.Cache,
	publisher events.Publisher,
	sessionTTL time.Duration,
) ApplicationService {
	s := &appService{
		purchaseOrders: purchaseOrders,
		workOrders:     workOrders,
		stock:          stock,
		receiver:       receiver,
		cache:          readCache,
		events:         publisher,
		sessions:       newSessionStore(sessionTTL),
		now:            time.Now,
	}
	s.sessions.startPurge(ctx)
	return s
}

// ── Purchase orders ───────────────────────────────────────────────────────────

func (s *appService) ListPurchaseOrders(ctx context.Context, filter core.PurchaseOrderFilter) (*PurchaseOrdersResult, error) {
	key := fmt.Sprintf("list:%s:%t:%s", filter.Status, filter.IncludeArchived, filter.Search)
	orders, err := cached(ctx, s.cache, cache.PurchaseOrders, key, func() ([]core.PurchaseOrder, error) {
		return s.purchaseOrders.ListPOs(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	return &PurchaseOrdersResult{Orders: orders}, nil
}

func (s *appService) GetPurchaseOrder(ctx context.Context, poID int) (*PurchaseOrderResult, error) {
	po, err := cached(ctx, s.cache, cache.PurchaseOrders, "po:"+strconv.Itoa(poID), func() (*core.PurchaseOrder, error) {
		return s.purchaseOrders.GetPO(ctx, poID)
	})
	if err != nil {
		return nil, err
	}
	return &PurchaseOrderResult{Order: po}, nil
}

func (s *appService) PurchaseOrderStats(ctx context.Context) (*core.PurchaseOrderStats, error) {
	return cached(ctx, s.cache, cache.PurchaseOrders, "stats", func() (*core.PurchaseOrderStats, error) {
		return s.purchaseOrders.Stats(ctx)
	})
}

func (s *appService) CreatePurchaseOrder(ctx context.Context, op core.Operator, req CreatePurchaseOrderRequest) (*PurchaseOrderResult, error) {
	po, err := s.purchaseOrders.CreatePO(ctx, op, req.toInput())
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.PurchaseOrders)
	return &PurchaseOrderResult{Order: po}, nil
}

func (s *appService) AddPurchaseOrderLine(ctx context.Context, poID int, req PurchaseOrderLineRequest) (*PurchaseOrderResult, error) {
	if _, err := s.purchaseOrders.AddLine(ctx, poID, req.toInput()); err != nil {
		return nil, err
	}
	return s.reloadOrder(ctx, poID)
}

func (s *appService) DeletePurchaseOrderLine(ctx context.Context, poID, lineID int) (*PurchaseOrderResult, error) {
	if err := s.purchaseOrders.DeleteLine(ctx, poID, lineID); err != nil {
		return nil, err
	}
	return s.reloadOrder(ctx, poID)
}

func (s *appService) AdvancePurchaseOrder(ctx context.Context, op core.Operator, poID int) (*PurchaseOrderResult, error) {
	po, err := s.purchaseOrders.AdvanceStatus(ctx, op, poID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.PurchaseOrders)
	return &PurchaseOrderResult{Order: po}, nil
}

func (s *appService) CancelPurchaseOrder(ctx context.Context, op core.Operator, poID int) (*PurchaseOrderResult, error) {
	po, err := s.purchaseOrders.CancelPO(ctx, op, poID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.PurchaseOrders)
	return &PurchaseOrderResult{Order: po}, nil
}

func (s *appService) ArchivePurchaseOrder(ctx context.Context, op core.Operator, poID int, reason string) (*PurchaseOrderResult, error) {
	if err := s.purchaseOrders.ArchivePO(ctx, op, poID, reason); err != nil {
		return nil, err
	}
	return s.reloadOrder(ctx, poID)
}

func (s *appService) UnarchivePurchaseOrder(ctx context.Context, poID int) (*PurchaseOrderResult, error) {
	if err := s.purchaseOrders.UnarchivePO(ctx, poID); err != nil {
		return nil, err
	}
	return s.reloadOrder(ctx, poID)
}

// ── Reception ─────────────────────────────────────────────────────────────────

func (s *appService) OpenReception(ctx context.Context, op core.Operator, poID int) (*ReceptionSessionResult, error) {
	// Reception always works on fresh reads, never on cached views.
	po, err := s.purchaseOrders.GetPO(ctx, poID)
	if err != nil {
		return nil, err
	}
	if po.Archived {
		return nil, fmt.Errorf("purchase order %s is archived: %w", po.Code, core.ErrInvalidTransition)
	}
	if !po.Status.AcceptsReception() {
		return nil, fmt.Errorf("purchase order %s cannot be received in status %s: %w", po.Code, po.Status, core.ErrInvalidTransition)
	}
	if po.FullyReceived() {
		return nil, fmt.Errorf("purchase order %s is already fully received: %w", po.Code, core.ErrInvalidTransition)
	}

	waiting, err := s.workOrders.ListAwaitingParts(ctx)
	if err != nil {
		return nil, fmt.Errorf("build demand index for %s: %w", po.Code, err)
	}
	editor := core.NewAllocationEditor(po, core.BuildDemandIndex(waiting, po.Lines))

	sess := s.sessions.open(op, po, editor)
	log.Printf("reception %s opened on %s by %s (%d lines, %d waiting work orders)",
		sess.token, po.Code, op.Name, len(po.Lines), len(waiting))
	return s.sessionView(sess), nil
}

func (s *appService) GetReception(ctx context.Context, token string) (*ReceptionSessionResult, error) {
	sess, err := s.sessions.get(token)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, ErrSessionNotFound
	}
	return s.sessionView(sess), nil
}

func (s *appService) EditReception(ctx context.Context, token string, edit core.Edit) (*ReceptionSessionResult, error) {
	sess, err := s.sessions.get(token)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, ErrSessionNotFound
	}
	if err := sess.editor.Apply(edit); err != nil {
		return nil, err
	}
	return s.sessionView(sess), nil
}

func (s *appService) CommitReception(ctx context.Context, op core.Operator, token string) (*ReceptionCommitResult, error) {
	sess, err := s.sessions.get(token)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, ErrSessionNotFound
	}

	res, commitErr := core.CommitReception(ctx, op, sess.order, sess.editor, s.receiver)
	if res == nil {
		// Rejected before any write; the operator can fix the session and retry.
		return nil, commitErr
	}
	sess.closed = true
	s.sessions.delete(token)

	out := &ReceptionCommitResult{Reception: res}
	if res.Processed > 0 {
		s.invalidate(ctx, cache.PurchaseOrders, cache.WorkOrders, cache.Stock)
	}

	if commitErr == nil && res.FullyReceived {
		po, err := s.purchaseOrders.MarkReceived(ctx, op, res.OrderID)
		if err != nil {
			return out, fmt.Errorf("mark %s received: %w", res.OrderCode, err)
		}
		out.Order = po
	} else if po, err := s.purchaseOrders.GetPO(ctx, res.OrderID); err == nil {
		out.Order = po
	} else {
		log.Printf("reception %s: reload %s: %v", token, res.OrderCode, err)
	}

	if res.Processed > 0 {
		s.publish(ctx, events.NewReceptionCommitted(op, res, s.now()))
	}
	log.Printf("reception %s on %s: %s, %d/%d lines committed", token, res.OrderCode, res.Status, res.Processed, len(res.Outcomes))
	return out, commitErr
}

func (s *appService) CancelReception(ctx context.Context, token string) error {
	sess, err := s.sessions.get(token)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return ErrSessionNotFound
	}
	sess.closed = true
	s.sessions.delete(token)
	return nil
}

func (s *appService) ExportReceptionReport(ctx context.Context, poID int) (*ReportResult, error) {
	po, err := s.purchaseOrders.GetPO(ctx, poID)
	if err != nil {
		return nil, err
	}
	waiting, err := s.workOrders.ListAwaitingParts(ctx)
	if err != nil {
		return nil, fmt.Errorf("build demand index for %s: %w", po.Code, err)
	}
	data, err := renderReceptionReport(po, core.BuildDemandIndex(waiting, po.Lines), s.now())
	if err != nil {
		return nil, err
	}
	return &ReportResult{
		Filename:    "reception-" + po.Code + ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        data,
	}, nil
}

// ── Work orders & stock ───────────────────────────────────────────────────────

func (s *appService) ListAwaitingParts(ctx context.Context) (*WorkOrdersResult, error) {
	wos, err := cached(ctx, s.cache, cache.WorkOrders, "awaiting", func() ([]core.WorkOrder, error) {
		return s.workOrders.ListAwaitingParts(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &WorkOrdersResult{WorkOrders: wos}, nil
}

func (s *appService) GetWorkOrder(ctx context.Context, id int) (*core.WorkOrder, error) {
	return s.workOrders.GetWorkOrder(ctx, id)
}

func (s *appService) CreateWorkOrder(ctx context.Context, op core.Operator, req CreateWorkOrderRequest) (*core.WorkOrder, error) {
	in := core.WorkOrderInput{
		Title:           req.Title,
		ElevatorAddress: req.ElevatorAddress,
		DueDate:         req.DueDate,
	}
	for _, p := range req.Pieces {
		in.Pieces = append(in.Pieces, core.PieceNeedInput{
			ArticleID:   p.ArticleID,
			Designation: p.Designation,
			Reference:   p.Reference,
			Quantity:    p.Quantity,
			Source:      p.Source,
		})
	}
	wo, err := s.workOrders.CreateWorkOrder(ctx, op, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.WorkOrders)
	return wo, nil
}

func (s *appService) GetStockLevels(ctx context.Context) (*StockResult, error) {
	levels, err := cached(ctx, s.cache, cache.Stock, "levels", func() ([]core.StockLevel, error) {
		return s.stock.StockLevels(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &StockResult{Levels: levels}, nil
}

func (s *appService) CreateStockArticle(ctx context.Context, req CreateStockArticleRequest) (*core.StockArticle, error) {
	a, err := s.stock.CreateArticle(ctx, core.StockArticleInput{
		Reference:         req.Reference,
		Designation:       req.Designation,
		QuantityInStock:   req.QuantityInStock,
		AlertThreshold:    req.AlertThreshold,
		CriticalThreshold: req.CriticalThreshold,
		UnitPrice:         req.UnitPrice,
		Location:          req.Location,
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.Stock)
	return a, nil
}

func (s *appService) ListStockMovements(ctx context.Context, articleID, limit int) (*StockMovementsResult, error) {
	if _, err := s.stock.GetArticle(ctx, articleID); err != nil {
		return nil, err
	}
	movements, err := s.stock.ListMovements(ctx, articleID, limit)
	if err != nil {
		return nil, err
	}
	return &StockMovementsResult{ArticleID: articleID, Movements: movements}, nil
}

func (s *appService) RecordStockMovement(ctx context.Context, op core.Operator, articleID int, req StockMovementRequest) (*core.StockMovement, error) {
	m, err := s.stock.RecordMovement(ctx, op, articleID, req.Kind, req.Quantity, req.Reason)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.Stock)
	return m, nil
}

// ── private helpers ───────────────────────────────────────────────────────────

// cached serves a read view from the cache, loading and storing it on a miss.
// Cache failures are logged and fall through to the loader.
func cached[T any](ctx context.Context, c cache.Cache, namespace, key string, load func() (T, error)) (T, error) {
	var v T
	hit, err := c.Get(ctx, namespace, key, &v)
	if err != nil {
		log.Printf("cache: %v", err)
	} else if hit {
		return v, nil
	}

	v, err = load()
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, namespace, key, v); err != nil {
		log.Printf("cache: %v", err)
	}
	return v, nil
}

func (s *appService) invalidate(ctx context.Context, namespaces ...string) {
	if err := s.cache.Invalidate(ctx, namespaces...); err != nil {
		log.Printf("cache: %v", err)
	}
}

// publish sends an event without failing the caller: the reception is already durable.
func (s *appService) publish(ctx context.Context, ev events.ReceptionCommitted) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.events.PublishReception(pubCtx, ev); err != nil {
		log.Printf("events: %v", err)
	}
}

func (s *appService) reloadOrder(ctx context.Context, poID int) (*PurchaseOrderResult, error) {
	s.invalidate(ctx, cache.PurchaseOrders)
	po, err := s.purchaseOrders.GetPO(ctx, poID)
	if err != nil {
		return nil, err
	}
	return &PurchaseOrderResult{Order: po}, nil
}

func (s *appService) sessionView(sess *receptionSession) *ReceptionSessionResult {
	return &ReceptionSessionResult{
		Token:         sess.token,
		OrderID:       sess.order.ID,
		OrderCode:     sess.order.Code,
		Supplier:      sess.order.Supplier,
		OpenedBy:      sess.operator,
		ExpiresAt:     s.sessions.expiresAt(sess),
		TotalReceived: sess.editor.TotalReceived(),
		Lines:         sess.editor.View(),
	}
}

// IsSessionNotFound reports whether err means the reception token is unknown.
func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
