package worker

import (
	"context"
	"sync"

	"inventory-ledger/internal/broker"
	"inventory-ledger/internal/models"
	"inventory-ledger/internal/util"

	"go.uber.org/zap"
)

// LowStockWorker watches inventory events and raises an alert when a
// product's stock drops to or below the threshold. A product alerts once until
// it is restocked above the threshold or deleted.
type LowStockWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	threshold    int
	logger       *zap.Logger

	mu      sync.Mutex
	alerted map[string]bool
}

// NewLowStockWorker creates a new low stock worker
func NewLowStockWorker(consumer *broker.Consumer, threshold int) *LowStockWorker {
	w := &LowStockWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		threshold:    threshold,
		logger:       util.Named("worker.low_stock"),
		alerted:      make(map[string]bool),
	}

	w.eventHandler.OnStockChanged(w.HandleStockChanged)
	w.eventHandler.OnDeleted(w.HandleDeleted)
	return w
}

// Start starts the worker
func (w *LowStockWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting low stock worker", zap.Int("threshold", w.threshold))
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *LowStockWorker) Stop() error {
	w.logger.Info("Stopping low stock worker")
	return w.consumer.Close()
}

// HandleStockChanged alerts when event leaves the product at or below the threshold
func (w *LowStockWorker) HandleStockChanged(ctx context.Context, event *models.InventoryEvent) error {
	w.check(event)
	return nil
}

// HandleDeleted forgets the alert state of a deleted product, so a product
// re-added under the same name alerts again.
func (w *LowStockWorker) HandleDeleted(ctx context.Context, event *models.InventoryEvent) error {
	w.mu.Lock()
	delete(w.alerted, event.ProductName)
	w.mu.Unlock()
	return nil
}

func (w *LowStockWorker) check(event *models.InventoryEvent) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if event.Stock > w.threshold {
		delete(w.alerted, event.ProductName)
		return false
	}
	if w.alerted[event.ProductName] {
		return false
	}
	w.alerted[event.ProductName] = true

	util.LowStockAlertsTotal.Inc()
	w.logger.Warn("Low stock",
		zap.String("product", event.ProductName),
		zap.String("category", event.Category),
		zap.Int("stock", event.Stock),
		zap.Int("threshold", w.threshold),
		zap.String("event_type", event.EventType))
	return true
}
