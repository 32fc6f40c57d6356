// Package notify delivers notifications off the request path.
package notify

import (
	"context"
	"sync"
	"time"

	"careshare-service/internal/models"
	"careshare-service/internal/util"

	"go.uber.org/zap"
)

// Sender delivers a single notification
type Sender interface {
	Send(ctx context.Context, n *models.Notification) error
}

// Dispatcher queues notifications on a bounded channel and delivers them from
// a fixed set of workers. Notify never blocks; a full queue drops the event.
type Dispatcher struct {
	sender  Sender
	queue   chan models.Notification
	workers int
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Call Start before the first Notify is expected to deliver.
func NewDispatcher(sender Sender, queueSize, workers int, timeout time.Duration) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		sender:  sender,
		queue:   make(chan models.Notification, queueSize),
		workers: workers,
		timeout: timeout,
		logger:  util.Component("notify"),
	}
}

// Start launches the workers
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	d.logger.Info("Notification dispatcher started", zap.Int("workers", d.workers))
}

// Notify schedules n for delivery. The caller's context is not carried
// into delivery, which outlives the request.
func (d *Dispatcher) Notify(_ context.Context, n models.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(n, "dispatcher stopped")
		return
	}

	select {
	case d.queue <- n:
	default:
		d.drop(n, "queue full")
	}
}

// Stop closes the queue and waits for queued notifications to be delivered
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Notification dispatcher drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n models.Notification) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	ctx, span := util.StartSpan(ctx, "Dispatcher.Deliver")
	defer span.End()

	if err := d.sender.Send(ctx, &n); err != nil {
		util.RecordError(span, err)
		util.NotificationsFailedTotal.WithLabelValues(n.EventType).Inc()
		d.logger.Error("Failed to deliver notification",
			zap.String("event_id", n.EventID),
			zap.String("event_type", n.EventType),
			zap.String("audience", n.Audience),
			zap.Error(err))
		return
	}

	util.NotificationsSentTotal.WithLabelValues(n.EventType).Inc()
	d.logger.Debug("Notification delivered",
		zap.String("event_id", n.EventID),
		zap.String("event_type", n.EventType))
}

func (d *Dispatcher) drop(n models.Notification, reason string) {
	util.NotificationsDroppedTotal.WithLabelValues(n.EventType).Inc()
	d.logger.Warn("Notification dropped",
		zap.String("event_id", n.EventID),
		zap.String("event_type", n.EventType),
		zap.String("reason", reason))
}
