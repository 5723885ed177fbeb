package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMinStockLevel is applied when a product is created without a threshold
const DefaultMinStockLevel = 10

// Product represents an inventory item tracked by quantity and threshold
type Product struct {
	ID            string              `db:"id" json:"id"`
	SKU           string              `db:"sku" json:"sku"`
	Name          string              `db:"name" json:"name"`
	Description   string              `db:"description" json:"description"`
	Category      string              `db:"category" json:"category"`
	Price         decimal.NullDecimal `db:"price" json:"price"`
	Quantity      int                 `db:"quantity" json:"quantity"`
	MinStockLevel int                 `db:"min_stock_level" json:"min_stock_level"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

// ProductPatch carries a partial product update. Nil fields are left untouched.
type ProductPatch struct {
	SKU           *string              `json:"sku"`
	Name          *string              `json:"name"`
	Description   *string              `json:"description"`
	Category      *string              `json:"category"`
	Price         *decimal.NullDecimal `json:"price"`
	Quantity      *int                 `json:"quantity"`
	MinStockLevel *int                 `json:"min_stock_level"`
}

// TouchesThreshold reports whether the patch can change the low-stock predicate
func (p ProductPatch) TouchesThreshold() bool {
	return p.Quantity != nil || p.MinStockLevel != nil
}

// Apply copies the set fields of the patch onto product
func (p ProductPatch) Apply(product *Product) {
	if p.SKU != nil {
		product.SKU = *p.SKU
	}
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Category != nil {
		product.Category = *p.Category
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Quantity != nil {
		product.Quantity = *p.Quantity
	}
	if p.MinStockLevel != nil {
		product.MinStockLevel = *p.MinStockLevel
	}
}

// Alert represents a low-stock alert for a product
type Alert struct {
	ID         string     `db:"id" json:"id"`
	ProductID  string     `db:"product_id" json:"product_id"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at"`
}

// IsActive reports whether the alert is still unresolved
func (a Alert) IsActive() bool {
	return a.Status == AlertStatusActive
}

// ProductSummary is the identity slice of a product embedded in alert listings
type ProductSummary struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	SKU      string `db:"sku" json:"sku"`
	Quantity int    `db:"quantity" json:"quantity"`
}

// AlertWithProduct is an alert joined with its product's current identity fields
type AlertWithProduct struct {
	Alert
	IsResolved bool           `db:"-" json:"is_resolved"`
	Product    ProductSummary `db:"product" json:"product"`
}

// Alert statuses
const (
	AlertStatusActive   = "ACTIVE"
	AlertStatusResolved = "RESOLVED"
)

// ProcessedEvent for idempotent command consumption
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
