package service

import (
	"context"
	"fmt"
	"time"

	"stock-alert-service/internal/models"
	"stock-alert-service/internal/store"
	"stock-alert-service/internal/threshold"
	"stock-alert-service/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertEngine keeps active low-stock alerts in step with product stock.
//
// Every operation that can move a product's quantity or threshold runs in
// one store transaction holding that product's row lock, and leaves exactly
// one active alert when quantity <= min_stock_level and none otherwise.
type AlertEngine struct {
	store          store.Repository
	publisher      EventPublisher
	idempotency    IdempotencyStore
	idempotencyTTL time.Duration
	sweepLock      SweepLock
	validate       *validator.Validate
	logger         *zap.Logger
	now            func() time.Time
}

// NewAlertEngine creates a new alert engine. publisher and idempotency may be nil.
func NewAlertEngine(
	repo store.Repository,
	publisher EventPublisher,
	idempotency IdempotencyStore,
	idempotencyTTL time.Duration,
) *AlertEngine {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &AlertEngine{
		store:          repo,
		publisher:      publisher,
		idempotency:    idempotency,
		idempotencyTTL: idempotencyTTL,
		validate:       newValidator(),
		logger:         util.GetLogger(),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetSweepLock makes ReconcileAll take a shared lock before sweeping
func (e *AlertEngine) SetSweepLock(l SweepLock) {
	e.sweepLock = l
}

// MutationResult is the outcome of a product write
type MutationResult struct {
	Product     *models.Product `json:"product"`
	Alert       *models.Alert   `json:"alert,omitempty"`
	AlertAction string          `json:"alert_action"`
	Replayed    bool            `json:"-"`
}

// CreateProduct stores a new product and opens an alert if it starts at or below its threshold
func (e *AlertEngine) CreateProduct(ctx context.Context, req *CreateProductRequest) (_ *MutationResult, err error) {
	ctx, span := util.StartSpan(ctx, "AlertEngine.CreateProduct")
	defer span.End()
	defer e.observe("create_product", time.Now(), &err)

	if err := e.validateCreate(req); err != nil {
		return nil, err
	}

	var createdID string
	if req.IdempotencyKey != "" && e.idempotency != nil {
		key := req.IdempotencyKey
		existingID, reserved, ierr := e.idempotency.Reserve(ctx, key, idempotencyPendingTTL)
		switch {
		case ierr != nil:
			e.logger.Warn("Idempotency check failed, creating without it",
				zap.String("idempotency_key", key),
				zap.Error(ierr))
		case !reserved && existingID == "":
			return nil, fmt.Errorf("%w: request %s is still in flight", ErrConflict, key)
		case !reserved:
			e.logger.Info("Duplicate create request detected",
				zap.String("idempotency_key", key),
				zap.String("product_id", existingID))
			return e.replayCreate(ctx, existingID)
		default:
			defer func() { e.settleIdempotency(key, createdID, err) }()
		}
	}

	now := e.now()
	product := &models.Product{
		ID:            uuid.New().String(),
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Price:         req.Price,
		MinStockLevel: models.DefaultMinStockLevel,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Quantity != nil {
		product.Quantity = *req.Quantity
	}
	if req.MinStockLevel != nil {
		product.MinStockLevel = *req.MinStockLevel
	}

	result := &MutationResult{Product: product, AlertAction: threshold.ActionNone.String()}
	var opened bool

	err = e.store.InTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateProduct(ctx, product); err != nil {
			return err
		}
		if !threshold.ShouldAlert(product.Quantity, product.MinStockLevel) {
			return nil
		}
		alert, created, err := tx.OpenAlert(ctx, product.ID, now)
		if err != nil {
			return err
		}
		result.Alert, opened = alert, created
		result.AlertAction = threshold.ActionOpen.String()
		return nil
	})
	if err != nil {
		util.FailSpan(span, err)
		return nil, translate(err)
	}

	createdID = product.ID
	util.ProductsCreatedTotal.Inc()
	e.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("sku", product.SKU),
		zap.Int("quantity", product.Quantity),
		zap.Int("min_stock_level", product.MinStockLevel))

	if opened {
		util.AlertsOpenedTotal.Inc()
		e.publishOpened(ctx, product, result.Alert)
	}
	return result, nil
}

func (e *AlertEngine) replayCreate(ctx context.Context, productID string) (*MutationResult, error) {
	product, err := e.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, translate(err)
	}
	return &MutationResult{
		Product:     product,
		AlertAction: threshold.ActionNone.String(),
		Replayed:    true,
	}, nil
}

// idempotencyPendingTTL bounds how long a claimed key stays in flight. A
// request that dies before settling frees its key once this expires.
const idempotencyPendingTTL = 30 * time.Second

// settleIdempotency records the created product for key, or frees key if creation failed
func (e *AlertEngine) settleIdempotency(key, productID string, createErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if createErr != nil {
		if err := e.idempotency.Release(ctx, key); err != nil {
			e.logger.Warn("Failed to release idempotency key",
				zap.String("idempotency_key", key), zap.Error(err))
		}
		return
	}
	if err := e.idempotency.Complete(ctx, key, productID, e.idempotencyTTL); err != nil {
		e.logger.Warn("Failed to record idempotency key, releasing it",
			zap.String("idempotency_key", key),
			zap.String("product_id", productID),
			zap.Error(err))
		if err := e.idempotency.Release(ctx, key); err != nil {
			e.logger.Warn("Failed to release idempotency key",
				zap.String("idempotency_key", key), zap.Error(err))
		}
	}
}

// UpdateQuantity sets a product's on-hand quantity and brings its alert in line
func (e *AlertEngine) UpdateQuantity(ctx context.Context, productID string, quantity int) (*MutationResult, error) {
	if quantity < 0 {
		return nil, invalid("quantity", "must be >= 0")
	}
	util.StockUpdatesTotal.WithLabelValues("quantity").Inc()
	res, _, err := e.mutateProduct(ctx, productMutation{
		op:        "update_quantity",
		productID: productID,
		mutate:    func(p *models.Product) { p.Quantity = quantity },
		evaluate:  true,
	})
	return res, err
}

// UpdateThreshold sets a product's minimum stock level and brings its alert in line
func (e *AlertEngine) UpdateThreshold(ctx context.Context, productID string, minStockLevel int) (*MutationResult, error) {
	if minStockLevel < 0 {
		return nil, invalid("min_stock_level", "must be >= 0")
	}
	util.StockUpdatesTotal.WithLabelValues("min_stock_level").Inc()
	res, _, err := e.mutateProduct(ctx, productMutation{
		op:        "update_threshold",
		productID: productID,
		mutate:    func(p *models.Product) { p.MinStockLevel = minStockLevel },
		evaluate:  true,
	})
	return res, err
}

// UpdateProduct applies a partial update. The alert is only re-evaluated
// when the patch sets quantity or min_stock_level.
func (e *AlertEngine) UpdateProduct(ctx context.Context, productID string, patch models.ProductPatch) (*MutationResult, error) {
	if err := validatePatch(&patch); err != nil {
		return nil, err
	}
	res, _, err := e.mutateProduct(ctx, productMutation{
		op:        "update_product",
		productID: productID,
		mutate:    patch.Apply,
		evaluate:  patch.TouchesThreshold(),
	})
	return res, err
}

// ApplyStockCommand applies an externally sourced stock or threshold change
// exactly once per event id. It reports false if the event was seen before.
func (e *AlertEngine) ApplyStockCommand(ctx context.Context, eventID, eventType, productID string, value int) (bool, error) {
	if eventID == "" {
		return false, invalid("event_id", "is required")
	}

	m := productMutation{
		op:        "stock_command",
		productID: productID,
		eventID:   eventID,
		eventType: eventType,
		evaluate:  true,
	}
	switch eventType {
	case models.EventTypeStockSet:
		if value < 0 {
			return false, invalid("quantity", "must be >= 0")
		}
		m.mutate = func(p *models.Product) { p.Quantity = value }
	case models.EventTypeThresholdSet:
		if value < 0 {
			return false, invalid("min_stock_level", "must be >= 0")
		}
		m.mutate = func(p *models.Product) { p.MinStockLevel = value }
	default:
		return false, invalid("event_type", "unsupported "+eventType)
	}

	_, applied, err := e.mutateProduct(ctx, m)
	return applied, err
}

// ManualResolve resolves an alert regardless of current stock. The alert
// stays resolved until the next quantity or threshold change re-opens it.
func (e *AlertEngine) ManualResolve(ctx context.Context, alertID string) (_ *models.Alert, err error) {
	ctx, span := util.StartSpan(ctx, "AlertEngine.ManualResolve")
	defer span.End()
	defer e.observe("manual_resolve", time.Now(), &err)

	var resolved *models.Alert
	var wasActive bool

	err = e.inAlertTx(ctx, alertID, func(tx store.Tx, alert *models.Alert) error {
		wasActive = alert.IsActive()
		var err error
		resolved, err = tx.ResolveAlert(ctx, alertID, e.now())
		return err
	})
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}

	if wasActive {
		util.AlertsResolvedTotal.WithLabelValues("manual").Inc()
		e.logger.Info("Alert resolved manually",
			zap.String("alert_id", resolved.ID),
			zap.String("product_id", resolved.ProductID))
		e.publishResolved(ctx, resolved, true)
	}
	return resolved, nil
}

// DeleteAlert removes an alert record. This is administrative cleanup;
// deleting an active alert leaves the product without one until its next
// stock change or a reconcile.
func (e *AlertEngine) DeleteAlert(ctx context.Context, alertID string) (err error) {
	ctx, span := util.StartSpan(ctx, "AlertEngine.DeleteAlert")
	defer span.End()
	defer e.observe("delete_alert", time.Now(), &err)

	var deleted *models.Alert
	err = e.inAlertTx(ctx, alertID, func(tx store.Tx, alert *models.Alert) error {
		deleted = alert
		return tx.DeleteAlert(ctx, alertID)
	})
	if err != nil {
		util.FailSpan(span, err)
		return err
	}

	util.AlertsDeletedTotal.Inc()
	e.logger.Info("Alert deleted",
		zap.String("alert_id", deleted.ID),
		zap.String("product_id", deleted.ProductID),
		zap.String("status", deleted.Status))

	event := &models.AlertDeletedEvent{
		BaseEvent: newBaseEvent(models.EventTypeAlertDeleted, e.now()),
		AlertID:   deleted.ID,
		ProductID: deleted.ProductID,
	}
	if err := e.publisher.PublishAlertDeleted(ctx, event); err != nil {
		e.logger.Error("Failed to publish AlertDeleted event", zap.Error(err))
	}
	return nil
}

// inAlertTx locks the product owning alertID, re-reads the alert under that
// lock and hands it to fn
func (e *AlertEngine) inAlertTx(ctx context.Context, alertID string, fn func(tx store.Tx, alert *models.Alert) error) error {
	alert, err := e.store.GetAlertByID(ctx, alertID)
	if err != nil {
		return translate(err)
	}

	err = e.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.LockProduct(ctx, alert.ProductID); err != nil {
			return fmt.Errorf("alert %s: %w", alertID, err)
		}
		current, err := tx.GetAlert(ctx, alertID)
		if err != nil {
			return err
		}
		return fn(tx, current)
	})
	return translate(err)
}

// DeleteProduct removes a product and every alert that references it
func (e *AlertEngine) DeleteProduct(ctx context.Context, productID string) (err error) {
	ctx, span := util.StartSpan(ctx, "AlertEngine.DeleteProduct")
	defer span.End()
	defer e.observe("delete_product", time.Now(), &err)

	var product *models.Product
	var removed int64

	err = e.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if product, err = tx.LockProduct(ctx, productID); err != nil {
			return err
		}
		if removed, err = tx.DeleteAlertsByProduct(ctx, productID); err != nil {
			return err
		}
		return tx.DeleteProduct(ctx, productID)
	})
	if err != nil {
		util.FailSpan(span, err)
		return translate(err)
	}

	util.ProductsDeletedTotal.Inc()
	e.logger.Info("Product deleted",
		zap.String("product_id", productID),
		zap.String("sku", product.SKU),
		zap.Int64("alerts_removed", removed))

	event := &models.ProductDeletedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeProductDeleted, e.now()),
		ProductID:     productID,
		SKU:           product.SKU,
		AlertsRemoved: removed,
	}
	if err := e.publisher.PublishProductDeleted(ctx, event); err != nil {
		e.logger.Error("Failed to publish ProductDeleted event", zap.Error(err))
	}
	return nil
}

// productMutation describes one locked read-modify-write of a product
type productMutation struct {
	op        string
	productID string
	// eventID, when set, is recorded in the same transaction; a repeat is skipped
	eventID   string
	eventType string
	// mutate is nil for a pure re-evaluation
	mutate   func(p *models.Product)
	evaluate bool
}

// mutateProduct is the critical section shared by every product write:
// lock the row, apply the change, then open or resolve the alert so that
// the active alert matches threshold.ShouldAlert for the new values.
func (e *AlertEngine) mutateProduct(ctx context.Context, m productMutation) (_ *MutationResult, applied bool, err error) {
	ctx, span := util.StartSpan(ctx, "AlertEngine."+m.op)
	defer span.End()
	defer e.observe(m.op, time.Now(), &err)

	now := e.now()
	result := &MutationResult{AlertAction: threshold.ActionNone.String()}
	var transition, action threshold.Action

	err = e.store.InTx(ctx, func(tx store.Tx) error {
		if m.eventID != "" {
			fresh, err := tx.MarkEventProcessed(ctx, m.eventID, m.eventType)
			if err != nil || !fresh {
				return err
			}
		}

		product, err := tx.LockProduct(ctx, m.productID)
		if err != nil {
			return err
		}
		before := threshold.Evaluate(product.Quantity, product.MinStockLevel)

		if m.mutate != nil {
			m.mutate(product)
			product.UpdatedAt = now
			if err := tx.UpdateProduct(ctx, product); err != nil {
				return err
			}
		}
		result.Product = product
		applied = true

		if !m.evaluate {
			return nil
		}

		after := threshold.Evaluate(product.Quantity, product.MinStockLevel)
		active, err := tx.GetActiveAlert(ctx, product.ID)
		if err != nil {
			return err
		}
		transition = threshold.Transition(before, after)
		action = threshold.Reconcile(after == threshold.StateBelowThreshold, active != nil)

		switch action {
		case threshold.ActionOpen:
			result.Alert, _, err = tx.OpenAlert(ctx, product.ID, now)
		case threshold.ActionResolve:
			result.Alert, err = tx.ResolveAlert(ctx, active.ID, now)
		default:
			result.Alert = active
		}
		result.AlertAction = action.String()
		return err
	})
	if err != nil {
		util.FailSpan(span, err)
		return nil, false, translate(err)
	}
	if !applied {
		e.logger.Info("Skipping already processed event",
			zap.String("event_id", m.eventID),
			zap.String("event_type", m.eventType))
		return nil, false, nil
	}

	e.afterEvaluation(ctx, m.op, result, transition, action)
	return result, true, nil
}

// afterEvaluation records metrics, logs and events for a committed alert action
func (e *AlertEngine) afterEvaluation(ctx context.Context, op string, result *MutationResult, transition, action threshold.Action) {
	p := result.Product
	if action == threshold.ActionNone {
		e.logger.Debug("Product updated",
			zap.String("operation", op),
			zap.String("product_id", p.ID),
			zap.Int("quantity", p.Quantity),
			zap.Int("min_stock_level", p.MinStockLevel))
		return
	}

	if transition != action {
		// state did not flip; the alert store had drifted and was repaired
		util.AlertsRepairedTotal.WithLabelValues(action.String()).Inc()
	}

	switch action {
	case threshold.ActionOpen:
		util.AlertsOpenedTotal.Inc()
		e.logger.Info("Low stock alert opened",
			zap.String("operation", op),
			zap.String("product_id", p.ID),
			zap.String("alert_id", result.Alert.ID),
			zap.Int("quantity", p.Quantity),
			zap.Int("min_stock_level", p.MinStockLevel))
		e.publishOpened(ctx, p, result.Alert)

	case threshold.ActionResolve:
		reason := "restock"
		if transition != action {
			reason = "repair"
		}
		util.AlertsResolvedTotal.WithLabelValues(reason).Inc()
		e.logger.Info("Low stock alert resolved",
			zap.String("operation", op),
			zap.String("product_id", p.ID),
			zap.String("alert_id", result.Alert.ID),
			zap.Int("quantity", p.Quantity),
			zap.Int("min_stock_level", p.MinStockLevel))
		e.publishResolved(ctx, result.Alert, false)
	}
}

func (e *AlertEngine) publishOpened(ctx context.Context, p *models.Product, alert *models.Alert) {
	event := &models.AlertOpenedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeAlertOpened, alert.CreatedAt),
		AlertID:       alert.ID,
		ProductID:     p.ID,
		SKU:           p.SKU,
		Quantity:      p.Quantity,
		MinStockLevel: p.MinStockLevel,
	}
	if err := e.publisher.PublishAlertOpened(ctx, event); err != nil {
		e.logger.Error("Failed to publish AlertOpened event",
			zap.String("alert_id", alert.ID),
			zap.Error(err))
	}
}

func (e *AlertEngine) publishResolved(ctx context.Context, alert *models.Alert, manual bool) {
	at := e.now()
	if alert.ResolvedAt != nil {
		at = *alert.ResolvedAt
	}
	event := &models.AlertResolvedEvent{
		BaseEvent: newBaseEvent(models.EventTypeAlertResolved, at),
		AlertID:   alert.ID,
		ProductID: alert.ProductID,
		Manual:    manual,
	}
	if err := e.publisher.PublishAlertResolved(ctx, event); err != nil {
		e.logger.Error("Failed to publish AlertResolved event",
			zap.String("alert_id", alert.ID),
			zap.Error(err))
	}
}

func newBaseEvent(eventType string, at time.Time) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: at,
	}
}

// observe records latency and, on failure, the error kind of an engine operation
func (e *AlertEngine) observe(op string, start time.Time, errp *error) {
	util.EngineOperationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if errp != nil && *errp != nil {
		util.EngineOperationErrors.WithLabelValues(op, ErrorKind(*errp)).Inc()
		if IsRetryable(*errp) {
			e.logger.Warn("Engine operation failed",
				zap.String("operation", op),
				zap.Error(*errp))
		}
	}
}
