package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stock-alert-service/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const alertWithProductQuery = `
	SELECT a.id, a.product_id, a.status, a.created_at, a.resolved_at,
		p.id AS "product.id", p.name AS "product.name",
		p.sku AS "product.sku", p.quantity AS "product.quantity"
	FROM stock_alerts a
	JOIN products p ON p.id = a.product_id`

const alertOrder = " ORDER BY a.created_at DESC, a.id DESC"

// GetAlertByID retrieves an alert by ID
func (s *Store) GetAlertByID(ctx context.Context, id string) (_ *models.Alert, err error) {
	ctx, span := startSpan(ctx, "store.GetAlertByID", attribute.String("alert.id", id))
	defer func() { endSpan(span, err) }()

	var alert models.Alert
	err = s.db.GetContext(ctx, &alert, "SELECT * FROM stock_alerts WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	return &alert, nil
}

// GetAlerts retrieves every alert with its product, newest first
func (s *Store) GetAlerts(ctx context.Context) (_ []models.AlertWithProduct, err error) {
	ctx, span := startSpan(ctx, "store.GetAlerts")
	defer func() { endSpan(span, err) }()

	return s.selectAlerts(ctx, alertWithProductQuery+alertOrder)
}

// GetActiveAlerts retrieves unresolved alerts with their product, newest first
func (s *Store) GetActiveAlerts(ctx context.Context) (_ []models.AlertWithProduct, err error) {
	ctx, span := startSpan(ctx, "store.GetActiveAlerts")
	defer func() { endSpan(span, err) }()

	return s.selectAlerts(ctx, alertWithProductQuery+" WHERE a.status = $1"+alertOrder,
		models.AlertStatusActive)
}

// GetAlertsByProduct retrieves the full alert history of one product, newest first
func (s *Store) GetAlertsByProduct(ctx context.Context, productID string) (_ []models.AlertWithProduct, err error) {
	ctx, span := startSpan(ctx, "store.GetAlertsByProduct", attribute.String("product.id", productID))
	defer func() { endSpan(span, err) }()

	if _, perr := uuid.Parse(productID); perr != nil {
		return []models.AlertWithProduct{}, nil
	}
	return s.selectAlerts(ctx, alertWithProductQuery+" WHERE a.product_id = $1"+alertOrder, productID)
}

func (s *Store) selectAlerts(ctx context.Context, query string, args ...interface{}) ([]models.AlertWithProduct, error) {
	alerts := []models.AlertWithProduct{}
	if err := s.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, classify(err)
	}
	for i := range alerts {
		alerts[i].IsResolved = !alerts[i].IsActive()
	}
	return alerts, nil
}

// GetAlert reads an alert inside the transaction
func (t *pgTx) GetAlert(ctx context.Context, id string) (_ *models.Alert, err error) {
	ctx, span := startSpan(ctx, "store.GetAlert", attribute.String("alert.id", id))
	defer func() { endSpan(span, err) }()

	var alert models.Alert
	err = t.tx.GetContext(ctx, &alert, "SELECT * FROM stock_alerts WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	return &alert, nil
}

// GetActiveAlert returns the product's active alert or nil
func (t *pgTx) GetActiveAlert(ctx context.Context, productID string) (_ *models.Alert, err error) {
	ctx, span := startSpan(ctx, "store.GetActiveAlert", attribute.String("product.id", productID))
	defer func() { endSpan(span, err) }()

	var alert models.Alert
	err = t.tx.GetContext(ctx, &alert,
		"SELECT * FROM stock_alerts WHERE product_id = $1 AND status = $2",
		productID, models.AlertStatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return &alert, nil
}

// OpenAlert creates an active alert unless one already exists. The caller
// must hold the product lock, which makes the check-then-insert safe.
func (t *pgTx) OpenAlert(ctx context.Context, productID string, at time.Time) (_ *models.Alert, created bool, err error) {
	ctx, span := startSpan(ctx, "store.OpenAlert", attribute.String("product.id", productID))
	defer func() { endSpan(span, err) }()

	existing, err := t.GetActiveAlert(ctx, productID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		span.SetAttributes(attribute.Bool("alert.existing", true))
		return existing, false, nil
	}

	alert := &models.Alert{
		ID:        uuid.New().String(),
		ProductID: productID,
		Status:    models.AlertStatusActive,
		CreatedAt: at,
	}
	_, err = t.tx.ExecContext(ctx,
		"INSERT INTO stock_alerts (id, product_id, status, created_at) VALUES ($1, $2, $3, $4)",
		alert.ID, alert.ProductID, alert.Status, alert.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert alert: %w", classify(err))
	}

	span.SetAttributes(attribute.String("alert.id", alert.ID))
	return alert, true, nil
}

// ResolveAlert marks an alert resolved. An already resolved alert is returned unchanged.
func (t *pgTx) ResolveAlert(ctx context.Context, id string, at time.Time) (_ *models.Alert, err error) {
	ctx, span := startSpan(ctx, "store.ResolveAlert", attribute.String("alert.id", id))
	defer func() { endSpan(span, err) }()

	var alert models.Alert
	err = t.tx.GetContext(ctx, &alert, `
		UPDATE stock_alerts
		SET status = $1, resolved_at = COALESCE(resolved_at, $2)
		WHERE id = $3
		RETURNING *`,
		models.AlertStatusResolved, at, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve alert: %w", classify(err))
	}
	return &alert, nil
}

// DeleteAlert removes a single alert row
func (t *pgTx) DeleteAlert(ctx context.Context, id string) (err error) {
	ctx, span := startSpan(ctx, "store.DeleteAlert", attribute.String("alert.id", id))
	defer func() { endSpan(span, err) }()

	res, err := t.tx.ExecContext(ctx, "DELETE FROM stock_alerts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", classify(err))
	}
	return expectOneRow(res, "alert", id)
}

// DeleteAlertsByProduct removes every alert of a product and returns how many went
func (t *pgTx) DeleteAlertsByProduct(ctx context.Context, productID string) (_ int64, err error) {
	ctx, span := startSpan(ctx, "store.DeleteAlertsByProduct", attribute.String("product.id", productID))
	defer func() { endSpan(span, err) }()

	res, err := t.tx.ExecContext(ctx, "DELETE FROM stock_alerts WHERE product_id = $1", productID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete alerts: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("result.count", n))
	return n, nil
}
