package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	framecuev1 "github.com/osa030/framecue/internal/api/framecuev1"
	"github.com/osa030/framecue/internal/app/monitor"
)

type recordingStream struct {
	mu    sync.Mutex
	got   []*framecuev1.Notification
	err   error
	block chan struct{}
}

func (s *recordingStream) Send(n *framecuev1.Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, n)
	return nil
}

func (s *recordingStream) received() []*framecuev1.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*framecuev1.Notification(nil), s.got...)
}

func TestManager_Broadcast(t *testing.T) {
	m := NewManager()
	a, b := &recordingStream{}, &recordingStream{}
	m.Subscribe(a)
	idB := m.Subscribe(b)
	assert.Equal(t, 2, m.SubscriberCount())

	m.Broadcast(&framecuev1.Notification{Type: framecuev1.NotificationTypeProgress, Frame: 10})
	m.Unsubscribe(idB)
	m.Broadcast(&framecuev1.Notification{Type: framecuev1.NotificationTypeEndOfMedia, Frame: 20})

	gotA := a.received()
	require.Len(t, gotA, 2)
	assert.Equal(t, uint64(1), gotA[0].SequenceNo)
	assert.Equal(t, uint64(2), gotA[1].SequenceNo)
	assert.Equal(t, int64(20), gotA[1].Frame)

	require.Len(t, b.received(), 1)
}

func TestManager_FailingSubscriberDropped(t *testing.T) {
	m := NewManager()
	m.Subscribe(&recordingStream{err: errors.New("stream closed")})
	m.Subscribe(&recordingStream{})

	m.Broadcast(&framecuev1.Notification{Type: framecuev1.NotificationTypeProgress})
	assert.Equal(t, 1, m.SubscriberCount())
}

func TestManager_SlowSubscriberTimesOut(t *testing.T) {
	m := NewManager()
	m.sendTimeout = 10 * time.Millisecond

	slow := &recordingStream{block: make(chan struct{})}
	defer close(slow.block)
	fast := &recordingStream{}
	m.Subscribe(slow)
	m.Subscribe(fast)

	start := time.Now()
	m.Broadcast(&framecuev1.Notification{Type: framecuev1.NotificationTypeProgress})
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, fast.received(), 1)
}

func TestManager_Relay(t *testing.T) {
	m := NewManager()
	s := &recordingStream{}
	m.Subscribe(s)

	events := make(chan monitor.Event, 3)
	events <- monitor.Event{Type: monitor.EventProgress, Frame: 100}
	events <- monitor.Event{Type: monitor.EventEndOfMedia, Frame: 200}
	events <- monitor.Event{Type: monitor.EventError, Frame: -1, Message: "Unable to start playback."}
	close(events)

	m.Relay(events)

	got := s.received()
	require.Len(t, got, 3)
	assert.Equal(t, framecuev1.NotificationTypeProgress, got[0].Type)
	assert.Equal(t, framecuev1.NotificationTypeEndOfMedia, got[1].Type)
	assert.Equal(t, int64(200), got[1].Frame)
	assert.Equal(t, framecuev1.NotificationTypeError, got[2].Type)
	assert.Equal(t, "Unable to start playback.", got[2].Message)
}

func TestFromEvent(t *testing.T) {
	tests := []struct {
		event monitor.Event
		want  string
	}{
		{monitor.Event{Type: monitor.EventProgress}, framecuev1.NotificationTypeProgress},
		{monitor.Event{Type: monitor.EventStopped}, framecuev1.NotificationTypeStopped},
		{monitor.Event{Type: monitor.EventEndOfMedia}, framecuev1.NotificationTypeEndOfMedia},
		{monitor.Event{Type: monitor.EventError}, framecuev1.NotificationTypeError},
		{monitor.Event{Type: monitor.EventType(42)}, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FromEvent(tt.event).Type)
		})
	}
}

func TestManager_Close(t *testing.T) {
	m := NewManager()
	m.Subscribe(&recordingStream{})

	m.Close()
	m.Close()

	assert.Equal(t, 0, m.SubscriberCount())
	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}
