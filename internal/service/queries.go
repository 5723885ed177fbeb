package service

import (
	"context"

	"stock-alert-service/internal/models"
	"stock-alert-service/internal/util"
)

// GetProduct returns a single product by id
func (e *AlertEngine) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "AlertEngine.GetProduct")
	defer span.End()

	product, err := e.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, translate(err)
	}
	return product, nil
}

// ListProducts returns all products, newest first
func (e *AlertEngine) ListProducts(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "AlertEngine.ListProducts")
	defer span.End()

	products, err := e.store.GetProducts(ctx)
	if err != nil {
		util.FailSpan(span, err)
		return nil, translate(err)
	}
	return nonNil(products), nil
}

// LowStockProducts returns products at or below their threshold, lowest
// quantity first
func (e *AlertEngine) LowStockProducts(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "AlertEngine.LowStockProducts")
	defer span.End()

	products, err := e.store.GetLowStockProducts(ctx)
	if err != nil {
		util.FailSpan(span, err)
		return nil, translate(err)
	}
	return nonNil(products), nil
}

// UnresolvedAlerts returns every active alert with its product summary
func (e *AlertEngine) UnresolvedAlerts(ctx context.Context) ([]models.AlertWithProduct, error) {
	ctx, span := util.StartSpan(ctx, "AlertEngine.UnresolvedAlerts")
	defer span.End()

	alerts, err := e.store.GetActiveAlerts(ctx)
	if err != nil {
		util.FailSpan(span, err)
		return nil, translate(err)
	}
	return withResolvedFlag(alerts), nil
}

// AllAlerts returns the full alert history, newest first
func (e *AlertEngine) AllAlerts(ctx context.Context) ([]models.AlertWithProduct, error) {
	ctx, span := util.StartSpan(ctx, "AlertEngine.AllAlerts")
	defer span.End()

	alerts, err := e.store.GetAlerts(ctx)
	if err != nil {
		util.FailSpan(span, err)
		return nil, translate(err)
	}
	return withResolvedFlag(alerts), nil
}

// AlertsForProduct returns the alert history of one product. An unknown
// product simply has no alerts.
func (e *AlertEngine) AlertsForProduct(ctx context.Context, productID string) ([]models.AlertWithProduct, error) {
	ctx, span := util.StartSpan(ctx, "AlertEngine.AlertsForProduct")
	defer span.End()

	alerts, err := e.store.GetAlertsByProduct(ctx, productID)
	if err != nil {
		util.FailSpan(span, err)
		return nil, translate(err)
	}
	return withResolvedFlag(alerts), nil
}

func withResolvedFlag(alerts []models.AlertWithProduct) []models.AlertWithProduct {
	for i := range alerts {
		alerts[i].IsResolved = !alerts[i].IsActive()
	}
	return nonNil(alerts)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
