// Package notification provides fan-out of session events to subscribers.
package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/hmuro/playalong/internal/app/session"
)

// sendTimeout bounds how long a single subscriber send may take before
// the event is dropped for that subscriber.
const sendTimeout = 5 * time.Second

// Stream represents a delivery channel for one subscriber, typically a
// WebSocket connection.
type Stream interface {
	Send(session.Event) error
}

type subscription struct {
	id     string
	stream Stream
}

// Manager manages subscriptions and broadcasts session events.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a subscriber and returns its subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{id: id, stream: stream}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Count returns the number of active subscriptions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Broadcast sends an event to all subscribers. Each send runs in its
// own goroutine with a timeout so one slow consumer cannot stall the
// detection stream.
func (m *Manager) Broadcast(ev session.Event) {
	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, s := range m.subscriptions {
		subs = append(subs, s)
	}
	m.mu.RUnlock()

	for _, sub := range subs {
		go func(sub *subscription) {
			done := make(chan error, 1)
			go func() { done <- sub.stream.Send(ev) }()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Err(err).Str("subscription", sub.id).Msg("dropping dead subscriber")
					m.Unsubscribe(sub.id)
				}
			case <-time.After(sendTimeout):
				zlog.Warn().Str("subscription", sub.id).Msg("subscriber send timed out")
				m.Unsubscribe(sub.id)
			}
		}(sub)
	}
}

// Pump forwards events from the session manager's channel to all
// subscribers until the channel closes.
func (m *Manager) Pump(events <-chan session.Event) {
	for ev := range events {
		m.Broadcast(ev)
	}
}
