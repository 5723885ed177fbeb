package worker

import (
	"context"

	"stock-alert-service/internal/broker"
	"stock-alert-service/internal/models"
	"stock-alert-service/internal/service"
	"stock-alert-service/internal/util"

	"go.uber.org/zap"
)

// StockCommandApplier applies one stock command, at most once per event id
type StockCommandApplier interface {
	ApplyStockCommand(ctx context.Context, eventID, eventType, productID string, value int) (bool, error)
}

// StockCommandWorker applies stock and threshold commands from Kafka
type StockCommandWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	engine       StockCommandApplier
	logger       *zap.Logger
}

// NewStockCommandWorker creates a new stock command worker
func NewStockCommandWorker(consumer *broker.Consumer, engine StockCommandApplier) *StockCommandWorker {
	w := &StockCommandWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		engine:       engine,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnStockSet(w.handleStockSet)
	w.eventHandler.OnThresholdSet(w.handleThresholdSet)
	return w
}

// Start starts the worker
func (w *StockCommandWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock command worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockCommandWorker) Stop() error {
	w.logger.Info("Stopping stock command worker")
	return w.consumer.Close()
}

func (w *StockCommandWorker) handleStockSet(ctx context.Context, cmd *models.StockSetCommand) error {
	return w.apply(ctx, cmd.BaseEvent, cmd.ProductID, cmd.Quantity)
}

func (w *StockCommandWorker) handleThresholdSet(ctx context.Context, cmd *models.ThresholdSetCommand) error {
	return w.apply(ctx, cmd.BaseEvent, cmd.ProductID, cmd.MinStockLevel)
}

// apply runs the command through the engine. Only retryable failures are
// returned to the consumer; a command that can never succeed is dropped.
func (w *StockCommandWorker) apply(ctx context.Context, evt models.BaseEvent, productID string, value int) error {
	ctx, span := util.StartSpan(ctx, "StockCommandWorker."+evt.EventType)
	defer span.End()

	applied, err := w.engine.ApplyStockCommand(ctx, evt.EventID, evt.EventType, productID, value)
	switch {
	case err == nil && applied:
		util.StockCommandsTotal.WithLabelValues(evt.EventType, "applied").Inc()
		return nil

	case err == nil:
		util.StockCommandsTotal.WithLabelValues(evt.EventType, "duplicate").Inc()
		return nil

	case service.IsRetryable(err):
		util.FailSpan(span, err)
		util.StockCommandsTotal.WithLabelValues(evt.EventType, "retry").Inc()
		return err

	default:
		util.StockCommandsTotal.WithLabelValues(evt.EventType, "rejected").Inc()
		w.logger.Warn("Dropping stock command",
			zap.String("event_id", evt.EventID),
			zap.String("event_type", evt.EventType),
			zap.String("product_id", productID),
			zap.String("kind", service.ErrorKind(err)),
			zap.Error(err))
		return nil
	}
}
