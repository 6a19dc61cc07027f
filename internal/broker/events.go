package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"inventory-ledger/internal/models"
	"inventory-ledger/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishInventoryEvent publishes a catalog or sale event keyed by product,
// so all events of one product land on the same partition in order.
func (ep *EventPublisher) PublishInventoryEvent(ctx context.Context, event *models.InventoryEvent) error {
	key := fmt.Sprintf("product-%s", event.ProductName)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onStockChanged func(context.Context, *models.InventoryEvent) error
	onDeleted      func(context.Context, *models.InventoryEvent) error
	logger         *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.Named("broker.handler")}
}

// OnStockChanged registers a handler for added, updated and sold events
func (eh *EventHandler) OnStockChanged(handler func(context.Context, *models.InventoryEvent) error) {
	eh.onStockChanged = handler
}

// OnDeleted registers a handler for ProductDeleted events
func (eh *EventHandler) OnDeleted(handler func(context.Context, *models.InventoryEvent) error) {
	eh.onDeleted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	var handler func(context.Context, *models.InventoryEvent) error
	switch baseEvent.EventType {
	case models.EventTypeProductAdded, models.EventTypeProductUpdated, models.EventTypeProductSold:
		handler = eh.onStockChanged
	case models.EventTypeProductDeleted:
		handler = eh.onDeleted
	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
		return nil
	}

	if handler == nil {
		return nil
	}

	var event models.InventoryEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
	}
	return handler(ctx, &event)
}
