package models

import "time"

// Event types
const (
	EventTypeAlertOpened    = "ALERT_OPENED"
	EventTypeAlertResolved  = "ALERT_RESOLVED"
	EventTypeAlertDeleted   = "ALERT_DELETED"
	EventTypeProductDeleted = "PRODUCT_DELETED"
	EventTypeStockSet       = "STOCK_SET"
	EventTypeThresholdSet   = "THRESHOLD_SET"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertOpenedEvent published when a product drops to or below its threshold
type AlertOpenedEvent struct {
	BaseEvent
	AlertID       string `json:"alert_id"`
	ProductID     string `json:"product_id"`
	SKU           string `json:"sku"`
	Quantity      int    `json:"quantity"`
	MinStockLevel int    `json:"min_stock_level"`
}

// AlertResolvedEvent published when an alert is resolved by restock or by an operator
type AlertResolvedEvent struct {
	BaseEvent
	AlertID   string `json:"alert_id"`
	ProductID string `json:"product_id"`
	Manual    bool   `json:"manual"`
}

// AlertDeletedEvent published on administrative alert cleanup
type AlertDeletedEvent struct {
	BaseEvent
	AlertID   string `json:"alert_id"`
	ProductID string `json:"product_id"`
}

// ProductDeletedEvent published after a product and its alerts are removed
type ProductDeletedEvent struct {
	BaseEvent
	ProductID     string `json:"product_id"`
	SKU           string `json:"sku"`
	AlertsRemoved int64  `json:"alerts_removed"`
}

// StockSetCommand sets the absolute on-hand quantity of a product
type StockSetCommand struct {
	BaseEvent
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ThresholdSetCommand sets the minimum stock level of a product
type ThresholdSetCommand struct {
	BaseEvent
	ProductID     string `json:"product_id"`
	MinStockLevel int    `json:"min_stock_level"`
}
