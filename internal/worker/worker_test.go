package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"inventory-ledger/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func message(t *testing.T, eventType string, stock int) kafka.Message {
	t.Helper()
	return productMessage(t, "Widget", eventType, stock)
}

func productMessage(t *testing.T, name, eventType string, stock int) kafka.Message {
	t.Helper()
	value, err := json.Marshal(&models.InventoryEvent{
		BaseEvent:   models.BaseEvent{EventID: "e", EventType: eventType, Timestamp: time.Now()},
		ProductName: name,
		Category:    "Tools",
		Stock:       stock,
	})
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func TestLowStockWorkerAlerts(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	w := NewLowStockWorker(nil, 10)
	w.logger = zap.New(core)

	ctx := context.Background()
	require.NoError(t, w.eventHandler.HandleMessage(ctx, message(t, models.EventTypeProductSold, 40)))
	require.NoError(t, w.eventHandler.HandleMessage(ctx, message(t, models.EventTypeProductSold, 10)))
	// still low, already alerted
	require.NoError(t, w.eventHandler.HandleMessage(ctx, message(t, models.EventTypeProductSold, 8)))
	// restocked, then low again
	require.NoError(t, w.eventHandler.HandleMessage(ctx, message(t, models.EventTypeProductUpdated, 30)))
	require.NoError(t, w.eventHandler.HandleMessage(ctx, message(t, models.EventTypeProductUpdated, 3)))
	// deletions are not alerts
	require.NoError(t, w.eventHandler.HandleMessage(ctx, message(t, models.EventTypeProductDeleted, 0)))

	entries := logs.FilterMessage("Low stock").All()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(10), entries[0].ContextMap()["stock"])
	assert.Equal(t, int64(3), entries[1].ContextMap()["stock"])
}

func TestDeletedProductAlertsAgainWhenReAdded(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	w := NewLowStockWorker(nil, 10)
	w.logger = zap.New(core)

	ctx := context.Background()
	require.NoError(t, w.eventHandler.HandleMessage(ctx, productMessage(t, "Gadget", models.EventTypeProductAdded, 2)))
	require.NoError(t, w.eventHandler.HandleMessage(ctx, productMessage(t, "Gadget", models.EventTypeProductDeleted, 0)))
	require.NoError(t, w.eventHandler.HandleMessage(ctx, productMessage(t, "Gadget", models.EventTypeProductAdded, 1)))

	assert.Len(t, logs.FilterMessage("Low stock").All(), 2)
}

func TestCheckThreshold(t *testing.T) {
	w := NewLowStockWorker(nil, 5)
	w.logger = zap.NewNop()

	assert.True(t, w.check(&models.InventoryEvent{ProductName: "A", Stock: 5}))
	assert.False(t, w.check(&models.InventoryEvent{ProductName: "A", Stock: 0}))
	assert.True(t, w.check(&models.InventoryEvent{ProductName: "B", Stock: 0}))
	assert.False(t, w.check(&models.InventoryEvent{ProductName: "A", Stock: 6}))
	assert.True(t, w.check(&models.InventoryEvent{ProductName: "A", Stock: 4}))
}
