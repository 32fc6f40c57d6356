package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"careshare-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memEvents struct {
	mu        sync.Mutex
	processed map[string]string
	failCheck bool
}

func (m *memEvents) IsEventProcessed(_ context.Context, id string) (bool, error) {
	if m.failCheck {
		return false, errors.New("db down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.processed[id]
	return ok, nil
}

func (m *memEvents) MarkEventProcessed(_ context.Context, id, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[id] = eventType
	return nil
}

type stubSender struct {
	calls int
	err   error
}

func (s *stubSender) Send(context.Context, *models.Notification) error {
	s.calls++
	return s.err
}

func notification(id string) *models.Notification {
	return &models.Notification{
		BaseEvent: models.BaseEvent{EventID: id, EventType: models.EventTypeExchangeSubmitted},
		ToEmail:   "owner@example.com",
	}
}

func TestNotificationWorkerDeduplicates(t *testing.T) {
	events := &memEvents{processed: map[string]string{}}
	sender := &stubSender{}
	w := NewNotificationWorker(nil, events, sender)

	require.NoError(t, w.Handle(context.Background(), notification("e1")))
	require.NoError(t, w.Handle(context.Background(), notification("e1")))

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, models.EventTypeExchangeSubmitted, events.processed["e1"])
}

func TestNotificationWorkerDoesNotRetryMailFailures(t *testing.T) {
	events := &memEvents{processed: map[string]string{}}
	sender := &stubSender{err: errors.New("smtp down")}
	w := NewNotificationWorker(nil, events, sender)

	require.NoError(t, w.Handle(context.Background(), notification("e2")))
	require.NoError(t, w.Handle(context.Background(), notification("e2")))

	assert.Equal(t, 1, sender.calls)
	assert.Contains(t, events.processed, "e2")
}

func TestNotificationWorkerSurfacesStoreErrors(t *testing.T) {
	events := &memEvents{processed: map[string]string{}, failCheck: true}
	sender := &stubSender{}
	w := NewNotificationWorker(nil, events, sender)

	assert.Error(t, w.Handle(context.Background(), notification("e3")))
	assert.Equal(t, 0, sender.calls)
}

type stubPurger struct {
	mu    sync.Mutex
	calls int
}

func (p *stubPurger) PurgeExpiredResetTokens(context.Context, time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return 2, nil
}

func TestMaintenanceWorker(t *testing.T) {
	purger := &stubPurger{}

	bad := NewMaintenanceWorker(purger, "not a schedule")
	assert.Error(t, bad.Start())

	w := NewMaintenanceWorker(purger, "@every 1h")
	require.NoError(t, w.Start())
	w.PurgeResetTokens()
	w.Stop()

	assert.Equal(t, 1, purger.calls)
}
