package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"stock-alert-service/internal/models"
	"stock-alert-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing alert lifecycle events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func productKey(productID string) string {
	return fmt.Sprintf("product-%s", productID)
}

// PublishAlertOpened publishes AlertOpened event
func (ep *EventPublisher) PublishAlertOpened(ctx context.Context, event *models.AlertOpenedEvent) error {
	return ep.producer.PublishEvent(ctx, productKey(event.ProductID), event)
}

// PublishAlertResolved publishes AlertResolved event
func (ep *EventPublisher) PublishAlertResolved(ctx context.Context, event *models.AlertResolvedEvent) error {
	return ep.producer.PublishEvent(ctx, productKey(event.ProductID), event)
}

// PublishAlertDeleted publishes AlertDeleted event
func (ep *EventPublisher) PublishAlertDeleted(ctx context.Context, event *models.AlertDeletedEvent) error {
	return ep.producer.PublishEvent(ctx, productKey(event.ProductID), event)
}

// PublishProductDeleted publishes ProductDeleted event
func (ep *EventPublisher) PublishProductDeleted(ctx context.Context, event *models.ProductDeletedEvent) error {
	return ep.producer.PublishEvent(ctx, productKey(event.ProductID), event)
}

// EventHandler routes incoming stock commands
type EventHandler struct {
	onStockSet     func(context.Context, *models.StockSetCommand) error
	onThresholdSet func(context.Context, *models.ThresholdSetCommand) error
	logger         *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnStockSet registers a handler for STOCK_SET commands
func (eh *EventHandler) OnStockSet(handler func(context.Context, *models.StockSetCommand) error) {
	eh.onStockSet = handler
}

// OnThresholdSet registers a handler for THRESHOLD_SET commands
func (eh *EventHandler) OnThresholdSet(handler func(context.Context, *models.ThresholdSetCommand) error) {
	eh.onThresholdSet = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeStockSet:
		if eh.onStockSet != nil {
			var cmd models.StockSetCommand
			if err := json.Unmarshal(msg.Value, &cmd); err != nil {
				return fmt.Errorf("failed to unmarshal StockSet command: %w", err)
			}
			return eh.onStockSet(ctx, &cmd)
		}

	case models.EventTypeThresholdSet:
		if eh.onThresholdSet != nil {
			var cmd models.ThresholdSetCommand
			if err := json.Unmarshal(msg.Value, &cmd); err != nil {
				return fmt.Errorf("failed to unmarshal ThresholdSet command: %w", err)
			}
			return eh.onThresholdSet(ctx, &cmd)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
