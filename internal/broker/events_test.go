package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"inventory-ledger/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventMessage(t *testing.T, eventType, product string, stock int) kafka.Message {
	t.Helper()
	value, err := json.Marshal(&models.InventoryEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: eventType,
			Timestamp: time.Now(),
		},
		ProductName: product,
		Stock:       stock,
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte("product-" + product), Value: value}
}

func TestHandleMessageRoutesByType(t *testing.T) {
	eh := NewEventHandler()

	var changed, deleted []string
	eh.OnStockChanged(func(_ context.Context, e *models.InventoryEvent) error {
		changed = append(changed, e.ProductName)
		return nil
	})
	eh.OnDeleted(func(_ context.Context, e *models.InventoryEvent) error {
		deleted = append(deleted, e.ProductName)
		return nil
	})

	ctx := context.Background()
	require.NoError(t, eh.HandleMessage(ctx, eventMessage(t, models.EventTypeProductAdded, "Widget", 50)))
	require.NoError(t, eh.HandleMessage(ctx, eventMessage(t, models.EventTypeProductSold, "Widget", 40)))
	require.NoError(t, eh.HandleMessage(ctx, eventMessage(t, models.EventTypeProductDeleted, "Gadget", 0)))
	require.NoError(t, eh.HandleMessage(ctx, eventMessage(t, "SOMETHING_ELSE", "Other", 0)))

	assert.Equal(t, []string{"Widget", "Widget"}, changed)
	assert.Equal(t, []string{"Gadget"}, deleted)
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	eh := NewEventHandler()
	err := eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
