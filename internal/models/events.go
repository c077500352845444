package models

import "time"

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeProductCreated     = "PRODUCT_CREATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent is published after a checkout commits. Remaining counts
// are the post-commit availabilities, used to refresh the read-side cache.
type OrderPlacedEvent struct {
	BaseEvent
	OrderID int64            `json:"order_id"`
	BuyerID int64            `json:"buyer_id"`
	Total   int64            `json:"total"`
	Items   []PlacedItemData `json:"items"`
}

// PlacedItemData is one committed order line in an OrderPlacedEvent.
type PlacedItemData struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
	Remaining int   `json:"remaining"`
}

// OrderStatusChangedEvent is published when the admin moves an order.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
}

// ProductCreatedEvent is published when a farmer adds a product.
type ProductCreatedEvent struct {
	BaseEvent
	ProductID int64 `json:"product_id"`
	FarmerID  int64 `json:"farmer_id"`
	Quantity  int   `json:"quantity"`
}
