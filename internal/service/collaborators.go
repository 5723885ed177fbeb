package service

import (
	"context"
	"time"

	"stock-alert-service/internal/models"
)

// EventPublisher receives alert lifecycle events after their transaction commits
type EventPublisher interface {
	PublishAlertOpened(ctx context.Context, event *models.AlertOpenedEvent) error
	PublishAlertResolved(ctx context.Context, event *models.AlertResolvedEvent) error
	PublishAlertDeleted(ctx context.Context, event *models.AlertDeletedEvent) error
	PublishProductDeleted(ctx context.Context, event *models.ProductDeletedEvent) error
}

// IdempotencyStore remembers which product a creation request produced.
//
// Reserve claims key; if it was already claimed it returns the product id
// recorded for it, which is empty while the first request is in flight.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (productID string, reserved bool, err error)
	Complete(ctx context.Context, key, productID string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type noopPublisher struct{}

func (noopPublisher) PublishAlertOpened(context.Context, *models.AlertOpenedEvent) error     { return nil }
func (noopPublisher) PublishAlertResolved(context.Context, *models.AlertResolvedEvent) error { return nil }
func (noopPublisher) PublishAlertDeleted(context.Context, *models.AlertDeletedEvent) error   { return nil }
func (noopPublisher) PublishProductDeleted(context.Context, *models.ProductDeletedEvent) error {
	return nil
}

// SweepLock keeps full reconciliation sweeps from overlapping across replicas
// AcquireLock returns a token identifying the holder; ReleaseLock only frees
// the lock while that token still owns it.
type SweepLock interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	ReleaseLock(ctx context.Context, key, token string) error
}
