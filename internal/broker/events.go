package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"careshare-service/internal/models"
	"careshare-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher is the subset of Producer used by NotificationPublisher
type EventPublisher interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// NotificationPublisher hands notifications to Kafka instead of mailing them
// in-process. It satisfies notify.Sender.
type NotificationPublisher struct {
	producer EventPublisher
}

// NewNotificationPublisher creates a new notification publisher
func NewNotificationPublisher(producer EventPublisher) *NotificationPublisher {
	return &NotificationPublisher{producer: producer}
}

// Send publishes n keyed by recipient so one recipient's mail stays ordered
func (np *NotificationPublisher) Send(ctx context.Context, n *models.Notification) error {
	return np.producer.PublishEvent(ctx, n.ToEmail, n)
}

// EventHandler decodes notification events and routes them to a handler
type EventHandler struct {
	onNotification func(context.Context, *models.Notification) error
	logger         *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.Component("event-handler")}
}

// OnNotification registers the handler for every notification event type
func (eh *EventHandler) OnNotification(handler func(context.Context, *models.Notification) error) {
	eh.onNotification = handler
}

// HandleMessage routes messages to the registered handler. Unknown event
// types are skipped so they do not block the partition.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		eh.logger.Error("Dropping undecodable message", zap.Int64("offset", msg.Offset), zap.Error(err))
		return nil
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypePurchaseCreated,
		models.EventTypePurchaseStatusUpdated,
		models.EventTypeExchangeSubmitted,
		models.EventTypeExchangeStatusUpdated,
		models.EventTypePasswordReset:
		if eh.onNotification == nil {
			return nil
		}
		var n models.Notification
		if err := json.Unmarshal(msg.Value, &n); err != nil {
			return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
		}
		return eh.onNotification(ctx, &n)

	default:
		eh.logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
