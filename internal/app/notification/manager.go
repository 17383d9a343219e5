// Package notification fans playback events out to subscribers.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	framecuev1 "github.com/osa030/framecue/internal/api/framecuev1"
	"github.com/osa030/framecue/internal/app/monitor"
)

// DefaultSendTimeout bounds a single subscriber send.
const DefaultSendTimeout = 500 * time.Millisecond

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*framecuev1.Notification) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sendTimeout   time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   DefaultSendTimeout,
		done:          make(chan struct{}),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	zlog.Debug().Msgf("notification: subscribed: id=%s total=%d", id, len(m.subscriptions))
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Broadcast stamps notification with the next sequence number and sends it
// to all subscribers. Sends run in parallel and each is bounded by the send
// timeout, so a stalled subscriber cannot block playback events.
func (m *Manager) Broadcast(notification *framecuev1.Notification) {
	m.mu.Lock()
	m.sequenceNo++
	notification.SequenceNo = m.sequenceNo
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(notification)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("notification: send failed, unsubscribing: id=%s error=%v", s.id, err)
					m.Unsubscribe(s.id)
				}
			case <-ctx.Done():
				zlog.Warn().Msgf("notification: send timed out: id=%s", s.id)
			}
		}(sub)
	}
	wg.Wait()
}

// Relay broadcasts monitor events until events is closed.
func (m *Manager) Relay(events <-chan monitor.Event) {
	for e := range events {
		m.Broadcast(FromEvent(e))
	}
	zlog.Debug().Msg("notification: event relay finished")
}

// FromEvent converts a monitor event to a notification.
func FromEvent(e monitor.Event) *framecuev1.Notification {
	n := &framecuev1.Notification{Frame: e.Frame, Message: e.Message}
	switch e.Type {
	case monitor.EventProgress:
		n.Type = framecuev1.NotificationTypeProgress
	case monitor.EventStopped:
		n.Type = framecuev1.NotificationTypeStopped
	case monitor.EventEndOfMedia:
		n.Type = framecuev1.NotificationTypeEndOfMedia
	case monitor.EventError:
		n.Type = framecuev1.NotificationTypeError
	default:
		n.Type = e.Type.String()
	}
	return n
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Done is closed by Close.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.subscriptions = make(map[string]*subscription)
		m.mu.Unlock()
		close(m.done)
	})
}
