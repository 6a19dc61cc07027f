package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"inventory-ledger/internal/auth"
	"inventory-ledger/internal/ledger"
	"inventory-ledger/internal/models"
	"inventory-ledger/internal/store"
	"inventory-ledger/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const inventoryLockName = "inventory-ledger"

// EventPublisher receives an event after every committed mutation or sale
type EventPublisher interface {
	PublishInventoryEvent(ctx context.Context, event *models.InventoryEvent) error
}

// Locker serializes mutations across processes sharing one store
type Locker interface {
	Lock(ctx context.Context, name string) (func(context.Context) error, error)
}

// SaleReceipt confirms a completed sale
type SaleReceipt struct {
	SaleID         int64  `json:"sale_id"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	RemainingStock int    `json:"remaining_stock"`
}

// Message is the human-readable confirmation
func (r *SaleReceipt) Message() string {
	return fmt.Sprintf("Sold %d of '%s'", r.Quantity, r.ProductName)
}

// InventoryService owns the catalog, audit log and sales ledger. Every
// operation runs to completion under one lock; mutations are applied to a
// copy and only become visible once every affected record set is saved.
type InventoryService struct {
	adapter   store.Adapter
	publisher EventPublisher
	locker    Locker
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.RWMutex
	catalog *ledger.Catalog
	audit   *ledger.AuditLog
	sales   *ledger.SalesLedger
}

// NewInventoryService creates an empty service; call Load before use.
// publisher and locker may be nil.
func NewInventoryService(adapter store.Adapter, publisher EventPublisher, locker Locker) *InventoryService {
	return &InventoryService{
		adapter:   adapter,
		publisher: publisher,
		locker:    locker,
		logger:    util.Named("service.inventory"),
		now:       time.Now,
		catalog:   ledger.NewCatalog(nil),
		audit:     ledger.NewAuditLog(nil),
		sales:     ledger.NewSalesLedger(nil),
	}
}

// Load replaces in-memory state with the stored record sets
func (s *InventoryService) Load(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.Load")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reload(ctx); err != nil {
		return err
	}

	s.logger.Info("Ledger loaded",
		zap.Int("products", s.catalog.Len()),
		zap.Int("transactions", s.audit.Len()),
		zap.Int("sales", s.sales.Len()))
	return nil
}

func (s *InventoryService) reload(ctx context.Context) error {
	products, err := s.adapter.LoadInventory(ctx)
	if err != nil {
		return fmt.Errorf("failed to load inventory: %w", err)
	}
	txs, err := s.adapter.LoadTransactions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}
	sales, err := s.adapter.LoadSales(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sales: %w", err)
	}

	s.catalog = ledger.NewCatalog(products)
	s.audit = ledger.NewAuditLog(txs)
	s.sales = ledger.NewSalesLedger(sales)
	util.InventoryProducts.Set(float64(s.catalog.Len()))
	return nil
}

// AddProduct inserts a new product and records an Add audit entry
func (s *InventoryService) AddProduct(ctx context.Context, sess *auth.Session, p models.Product) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.AddProduct", util.ProductAttr(p.Name))
	defer span.End()

	if err := requireAdmin(sess); err != nil {
		return nil, err
	}

	unlock, err := s.lockMutation(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	next := s.catalog.Clone()
	if err := next.Add(p); err != nil {
		return nil, fmt.Errorf("failed to add product: %w", err)
	}
	entry := s.audit.Next(models.ActionAdd, p.Name, p.Stock, sess.Principal, s.now())

	if err := s.commit(ctx, change{catalog: next, entry: &entry}); err != nil {
		return nil, util.FailSpan(span, fmt.Errorf("failed to add product: %w", err))
	}

	util.ProductsMutatedTotal.WithLabelValues(models.ActionAdd).Inc()
	s.logger.Info("Product added",
		zap.String("product", p.Name),
		zap.Int("stock", p.Stock),
		zap.String("principal", sess.Principal))
	s.publish(ctx, models.EventTypeProductAdded, p, p.Stock, sess.Principal, 0)

	added, _ := s.catalog.Get(p.Name)
	return &added, nil
}

// UpdateProduct replaces every field of an existing product
func (s *InventoryService) UpdateProduct(ctx context.Context, sess *auth.Session, p models.Product) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.UpdateProduct", util.ProductAttr(p.Name))
	defer span.End()

	if err := requireAdmin(sess); err != nil {
		return nil, err
	}

	unlock, err := s.lockMutation(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	next := s.catalog.Clone()
	if err := next.Update(p); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	entry := s.audit.Next(models.ActionUpdate, p.Name, p.Stock, sess.Principal, s.now())

	if err := s.commit(ctx, change{catalog: next, entry: &entry}); err != nil {
		return nil, util.FailSpan(span, fmt.Errorf("failed to update product: %w", err))
	}

	util.ProductsMutatedTotal.WithLabelValues(models.ActionUpdate).Inc()
	s.logger.Info("Product updated",
		zap.String("product", p.Name),
		zap.Int("stock", p.Stock),
		zap.String("principal", sess.Principal))
	s.publish(ctx, models.EventTypeProductUpdated, p, p.Stock, sess.Principal, 0)

	updated, _ := s.catalog.Get(p.Name)
	return &updated, nil
}

// DeleteProduct removes a product; its audit and sales history are kept
func (s *InventoryService) DeleteProduct(ctx context.Context, sess *auth.Session, name string) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.DeleteProduct", util.ProductAttr(name))
	defer span.End()

	if err := requireAdmin(sess); err != nil {
		return err
	}

	unlock, err := s.lockMutation(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	removed, _ := s.catalog.Get(name)
	next := s.catalog.Clone()
	if err := next.Delete(name); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	entry := s.audit.Next(models.ActionDelete, name, 0, sess.Principal, s.now())

	if err := s.commit(ctx, change{catalog: next, entry: &entry}); err != nil {
		return util.FailSpan(span, fmt.Errorf("failed to delete product: %w", err))
	}

	util.ProductsMutatedTotal.WithLabelValues(models.ActionDelete).Inc()
	s.logger.Info("Product deleted", zap.String("product", name), zap.String("principal", sess.Principal))
	s.publish(ctx, models.EventTypeProductDeleted, removed, 0, sess.Principal, 0)
	return nil
}

// Sell decrements stock and appends a sale. Sales are not audited.
func (s *InventoryService) Sell(ctx context.Context, sess *auth.Session, name string, quantity int) (*SaleReceipt, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Sell", util.ProductAttr(name))
	defer span.End()

	if err := auth.RequireLoggedIn(sess); err != nil {
		return nil, err
	}

	unlock, err := s.lockMutation(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	next := s.catalog.Clone()
	product, err := next.Decrement(name, quantity)
	if err != nil {
		util.SalesFailedTotal.WithLabelValues(saleFailureReason(err)).Inc()
		return nil, fmt.Errorf("failed to sell: %w", err)
	}
	sale := s.sales.Next(name, quantity, s.now())

	if err := s.commit(ctx, change{catalog: next, sale: &sale}); err != nil {
		util.SalesFailedTotal.WithLabelValues("persistence").Inc()
		return nil, util.FailSpan(span, fmt.Errorf("failed to sell: %w", err))
	}

	util.SalesTotal.Inc()
	util.UnitsSoldTotal.Add(float64(quantity))

	receipt := &SaleReceipt{
		SaleID:         sale.ID,
		ProductName:    name,
		Quantity:       quantity,
		RemainingStock: product.Stock,
	}
	s.logger.Info(receipt.Message(),
		zap.Int64("sale_id", sale.ID),
		zap.Int("remaining_stock", product.Stock),
		zap.String("principal", sess.Principal))
	s.publish(ctx, models.EventTypeProductSold, product, quantity, sess.Principal, sale.ID)

	return receipt, nil
}

// ViewProducts lists the catalog in insertion order
func (s *InventoryService) ViewProducts(ctx context.Context, sess *auth.Session) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.ViewProducts")
	defer span.End()

	if err := auth.RequireLoggedIn(sess); err != nil {
		return nil, err
	}

	unlock, err := s.lockRead(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.catalog.Products(), nil
}

// SearchByCategory returns products whose category contains category,
// ignoring case. An empty category returns everything.
func (s *InventoryService) SearchByCategory(ctx context.Context, sess *auth.Session, category string) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.SearchByCategory")
	defer span.End()

	if err := auth.RequireLoggedIn(sess); err != nil {
		return nil, err
	}
	unlock, err := s.lockRead(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return ledger.FilterByCategory(s.catalog.Products(), category), nil
}

// LowStock returns products with stock at or below threshold
func (s *InventoryService) LowStock(ctx context.Context, sess *auth.Session, threshold int) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.LowStock")
	defer span.End()

	if err := auth.RequireLoggedIn(sess); err != nil {
		return nil, err
	}
	unlock, err := s.lockRead(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return ledger.LowStock(s.catalog.Products(), threshold), nil
}

// SortProducts returns the catalog stably sorted by field
func (s *InventoryService) SortProducts(ctx context.Context, sess *auth.Session, field, order string) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.SortProducts")
	defer span.End()

	if err := auth.RequireLoggedIn(sess); err != nil {
		return nil, err
	}
	unlock, err := s.lockRead(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return ledger.SortProducts(s.catalog.Products(), field, order)
}

// ViewTransactions returns the full audit log
func (s *InventoryService) ViewTransactions(ctx context.Context, sess *auth.Session) ([]models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.ViewTransactions")
	defer span.End()

	if err := auth.RequireLoggedIn(sess); err != nil {
		return nil, err
	}

	unlock, err := s.lockRead(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.audit.Entries(), nil
}

// ViewSales returns the full sales ledger
func (s *InventoryService) ViewSales(ctx context.Context, sess *auth.Session) ([]models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.ViewSales")
	defer span.End()

	if err := auth.RequireLoggedIn(sess); err != nil {
		return nil, err
	}

	unlock, err := s.lockRead(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.sales.Entries(), nil
}

func requireAdmin(sess *auth.Session) error {
	if err := auth.RequireLoggedIn(sess); err != nil {
		return err
	}
	return auth.RequireAdmin(sess)
}

// lockMutation takes the local write lock and, when configured, the shared
// lock. Holding the shared lock, state is reloaded so writes made by other
// processes are not overwritten.
func (s *InventoryService) lockMutation(ctx context.Context) (func(), error) {
	s.mu.Lock()
	if s.locker == nil {
		return s.mu.Unlock, nil
	}

	release, err := s.locker.Lock(ctx, inventoryLockName)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to acquire inventory lock: %w", err)
	}

	unlock := func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release inventory lock", zap.Error(err))
		}
		s.mu.Unlock()
	}

	if err := s.reload(ctx); err != nil {
		unlock()
		return nil, err
	}
	return unlock, nil
}

// lockRead guards a read. Without a shared lock the local read lock is
// enough; with one, reads go through the same lock and reload as mutations
// so they see what other processes committed.
func (s *InventoryService) lockRead(ctx context.Context) (func(), error) {
	if s.locker == nil {
		s.mu.RLock()
		return s.mu.RUnlock, nil
	}
	return s.lockMutation(ctx)
}

// change is the pending result of one operation. Nil fields are untouched.
type change struct {
	catalog *ledger.Catalog
	entry   *models.Transaction
	sale    *models.Sale
}

// commit saves every record set touched by c, then swaps c into memory. If a
// save fails, record sets already written are restored from the current
// in-memory state and nothing in memory changes.
func (s *InventoryService) commit(ctx context.Context, c change) error {
	var undo []func(context.Context) error

	rollback := func(cause error) error {
		restoreCtx := context.WithoutCancel(ctx)
		for i := len(undo) - 1; i >= 0; i-- {
			if err := undo[i](restoreCtx); err != nil {
				s.logger.Error("Failed to restore record set after failed write",
					zap.NamedError("cause", cause),
					zap.Error(err))
			}
		}
		return cause
	}

	if c.catalog != nil {
		if err := s.flush(ctx, store.KindInventory, func(ctx context.Context) error {
			return s.adapter.SaveInventory(ctx, c.catalog.Products())
		}); err != nil {
			return rollback(err)
		}
		prev := s.catalog.Products()
		undo = append(undo, func(ctx context.Context) error {
			return s.adapter.SaveInventory(ctx, prev)
		})
	}

	if c.entry != nil {
		if err := s.flush(ctx, store.KindTransactions, func(ctx context.Context) error {
			return s.adapter.SaveTransactions(ctx, s.audit.With(*c.entry))
		}); err != nil {
			return rollback(err)
		}
		prev := s.audit.Entries()
		undo = append(undo, func(ctx context.Context) error {
			return s.adapter.SaveTransactions(ctx, prev)
		})
	}

	if c.sale != nil {
		if err := s.flush(ctx, store.KindSales, func(ctx context.Context) error {
			return s.adapter.SaveSales(ctx, s.sales.With(*c.sale))
		}); err != nil {
			return rollback(err)
		}
	}

	// Next built these entries from the current logs, so Append cannot reject them.
	if c.entry != nil {
		if err := s.audit.Append(*c.entry); err != nil {
			return err
		}
	}
	if c.sale != nil {
		if err := s.sales.Append(*c.sale); err != nil {
			return err
		}
	}
	if c.catalog != nil {
		s.catalog = c.catalog
		util.InventoryProducts.Set(float64(s.catalog.Len()))
	}
	return nil
}

func (s *InventoryService) flush(ctx context.Context, kind store.Kind, save func(context.Context) error) error {
	start := time.Now()
	err := save(ctx)
	util.PersistenceWriteLatency.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		util.PersistenceFailuresTotal.WithLabelValues(string(kind)).Inc()
		s.logger.Error("Failed to save record set", zap.String("kind", string(kind)), zap.Error(err))
		return err
	}
	return nil
}

func (s *InventoryService) publish(ctx context.Context, eventType string, p models.Product, quantity int, principal string, saleID int64) {
	if s.publisher == nil {
		return
	}

	stock := p.Stock
	if eventType == models.EventTypeProductDeleted {
		stock = 0
	}

	event := &models.InventoryEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: s.now(),
		},
		ProductName: p.Name,
		Category:    p.Category,
		Quantity:    quantity,
		Stock:       stock,
		Principal:   principal,
		SaleID:      saleID,
	}

	if err := s.publisher.PublishInventoryEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish inventory event",
			zap.String("type", eventType),
			zap.String("product", p.Name),
			zap.Error(err))
	}
}

func saleFailureReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrProductNotFound):
		return "not_found"
	case errors.Is(err, ledger.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ledger.ErrInvalidQuantity):
		return "invalid_quantity"
	default:
		return "other"
	}
}
