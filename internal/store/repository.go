package store

import (
	"context"
	"time"

	"stock-alert-service/internal/models"
)

// Repository is the durable home of products and their alerts.
//
// Reads outside InTx see committed state only. Every mutation goes through
// InTx so that a product row and its alert rows change together or not at all.
type Repository interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetLowStockProducts(ctx context.Context) ([]models.Product, error)

	GetAlertByID(ctx context.Context, id string) (*models.Alert, error)
	GetAlerts(ctx context.Context) ([]models.AlertWithProduct, error)
	GetActiveAlerts(ctx context.Context) ([]models.AlertWithProduct, error)
	GetAlertsByProduct(ctx context.Context, productID string) ([]models.AlertWithProduct, error)

	Ping(ctx context.Context) error
	Close() error
}

// Tx is a unit of work scoped to the products it locks.
//
// LockProduct must be called before any write touching that product or its
// alerts; the lock is held until the surrounding InTx returns.
type Tx interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	LockProduct(ctx context.Context, id string) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error

	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	// GetActiveAlert returns nil, nil when the product has no active alert
	GetActiveAlert(ctx context.Context, productID string) (*models.Alert, error)
	// OpenAlert returns the existing active alert if there is one, otherwise
	// creates it. The bool reports whether a new alert was created.
	OpenAlert(ctx context.Context, productID string, at time.Time) (*models.Alert, bool, error)
	ResolveAlert(ctx context.Context, id string, at time.Time) (*models.Alert, error)
	DeleteAlert(ctx context.Context, id string) error
	DeleteAlertsByProduct(ctx context.Context, productID string) (int64, error)

	// MarkEventProcessed records eventID and reports false if it was already recorded
	MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error)
}
