package worker

import (
	"context"
	"fmt"
	"time"

	"careshare-service/internal/broker"
	"careshare-service/internal/models"
	"careshare-service/internal/notify"
	"careshare-service/internal/util"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// EventStore records which events have already been handled
type EventStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// NotificationWorker mails notifications published to Kafka
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	events       EventStore
	sender       notify.Sender
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(
	consumer *broker.Consumer,
	events EventStore,
	sender notify.Sender,
) *NotificationWorker {
	w := &NotificationWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		events:       events,
		sender:       sender,
		logger:       util.Component("notification-worker"),
	}
	w.eventHandler.OnNotification(w.Handle)
	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

// Handle delivers one notification at most once. Delivery failures are
// logged and the event is still marked processed, so mail is never retried.
// Store failures are returned so the message is redelivered.
func (w *NotificationWorker) Handle(ctx context.Context, n *models.Notification) error {
	ctx, span := util.StartSpan(ctx, "NotificationWorker.Handle")
	defer span.End()

	processed, err := w.events.IsEventProcessed(ctx, n.EventID)
	if err != nil {
		return util.RecordError(span, fmt.Errorf("failed to check event %s: %w", n.EventID, err))
	}
	if processed {
		w.logger.Debug("Skipping processed event", zap.String("event_id", n.EventID))
		return nil
	}

	if err := w.sender.Send(ctx, n); err != nil {
		util.NotificationsFailedTotal.WithLabelValues(n.EventType).Inc()
		w.logger.Error("Failed to deliver notification",
			zap.String("event_id", n.EventID),
			zap.String("event_type", n.EventType),
			zap.Error(err))
	} else {
		util.NotificationsSentTotal.WithLabelValues(n.EventType).Inc()
	}

	if err := w.events.MarkEventProcessed(ctx, n.EventID, n.EventType); err != nil {
		return util.RecordError(span, fmt.Errorf("failed to mark event %s: %w", n.EventID, err))
	}
	return nil
}

// TokenPurger clears expired password-reset tokens
type TokenPurger interface {
	PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// MaintenanceWorker runs periodic housekeeping on a cron schedule
type MaintenanceWorker struct {
	cron     *cron.Cron
	purger   TokenPurger
	schedule string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewMaintenanceWorker creates a maintenance worker. schedule accepts the
// standard cron syntax and descriptors such as "@every 1h".
func NewMaintenanceWorker(purger TokenPurger, schedule string) *MaintenanceWorker {
	return &MaintenanceWorker{
		cron:     cron.New(),
		purger:   purger,
		schedule: schedule,
		timeout:  time.Minute,
		logger:   util.Component("maintenance-worker"),
	}
}

// Start registers the jobs and starts the scheduler
func (w *MaintenanceWorker) Start() error {
	if _, err := w.cron.AddFunc(w.schedule, w.PurgeResetTokens); err != nil {
		return fmt.Errorf("invalid token purge schedule %q: %w", w.schedule, err)
	}
	w.cron.Start()
	w.logger.Info("Maintenance worker started", zap.String("schedule", w.schedule))
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (w *MaintenanceWorker) Stop() {
	<-w.cron.Stop().Done()
	w.logger.Info("Maintenance worker stopped")
}

// PurgeResetTokens clears expired reset tokens once
func (w *MaintenanceWorker) PurgeResetTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	purged, err := w.purger.PurgeExpiredResetTokens(ctx, time.Now())
	if err != nil {
		w.logger.Error("Failed to purge reset tokens", zap.Error(err))
		return
	}
	if purged > 0 {
		w.logger.Info("Purged expired reset tokens", zap.Int64("count", purged))
	}
}
