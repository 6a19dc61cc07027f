package models

import "time"

// Event types
const (
	EventTypeProductAdded   = "PRODUCT_ADDED"
	EventTypeProductUpdated = "PRODUCT_UPDATED"
	EventTypeProductDeleted = "PRODUCT_DELETED"
	EventTypeProductSold    = "PRODUCT_SOLD"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// InventoryEvent is published after every committed catalog mutation or sale.
// Stock is the product's stock after the change (0 for deletions).
type InventoryEvent struct {
	BaseEvent
	ProductName string `json:"product_name"`
	Category    string `json:"category,omitempty"`
	Quantity    int    `json:"quantity"`
	Stock       int    `json:"stock"`
	Principal   string `json:"principal"`
	SaleID      int64  `json:"sale_id,omitempty"`
}
