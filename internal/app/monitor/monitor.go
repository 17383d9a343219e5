// Package monitor drives a playback controller from a background poll loop,
// reporting progress, end of media and start failures as events.
package monitor

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/framecue/internal/domain/audio"
)

// Default configuration values.
const (
	DefaultPollInterval = 30 * time.Millisecond
	DefaultEventBuffer  = 64
)

// ErrClosed is returned by Play after Close.
var ErrClosed = errors.New("monitor closed")

// Player is the controller surface the monitor drives.
type Player interface {
	StartPlayback(path string, startFrame, endFrame int64) error
	StopPlayback() int64
	StreamPosition() int64
	PlaybackInProgress() bool
}

// Config holds monitor configuration.
type Config struct {
	PollInterval time.Duration // Interval between position polls
	EventBuffer  int           // Capacity of the event channel
}

// run is one playback window being watched.
type run struct {
	path     string
	start    int64
	end      int64
	finished bool // Set under Monitor.mu when the host stops the run
	cancel   context.CancelFunc
	done     chan struct{}
}

// Monitor serializes access to a Player and watches the active window.
type Monitor struct {
	mu     sync.Mutex
	player Player
	config Config
	status Status
	run    *run
	closed bool

	eventCh chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new monitor for player.
func New(player Player, config Config) *Monitor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = DefaultEventBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		player:  player,
		config:  config,
		status:  StatusReady,
		eventCh: make(chan Event, config.EventBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Events returns the event channel. It is closed by Close.
func (m *Monitor) Events() <-chan Event {
	return m.eventCh
}

// Play starts playback of [startFrame, endFrame) of path. A window already
// playing is stopped first. Start failures are returned and also emitted as
// EventError.
func (m *Monitor) Play(path string, startFrame, endFrame int64) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	_, prev := m.stopLocked()

	if err := m.player.StartPlayback(path, startFrame, endFrame); err != nil {
		m.player.StopPlayback()
		m.status = StatusReady
		msg := Message(err)
		zlog.Error().Err(err).Msgf("monitor: playback failed to start: file=%s", path)
		m.sendEventLocked(Event{Type: EventError, Frame: -1, Message: msg, Err: err})
		m.mu.Unlock()
		waitRun(prev)
		return err
	}

	// Frames are reported against the start the player actually used.
	window, _ := audio.Window{Start: startFrame, End: endFrame}.Normalize()

	ctx, cancel := context.WithCancel(m.ctx)
	r := &run{
		path:   path,
		start:  window.Start,
		end:    endFrame,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.run = r
	m.status = StatusPlaying
	m.mu.Unlock()

	waitRun(prev)
	go m.poll(ctx, r)

	zlog.Debug().Msgf("monitor: watching playback: file=%s start=%d end=%d", path, window.Start, endFrame)
	return nil
}

// Stop stops the active window and returns the frames played. It returns 0
// when nothing is playing.
func (m *Monitor) Stop() int64 {
	m.mu.Lock()
	frames, r := m.stopLocked()
	m.mu.Unlock()

	waitRun(r)
	return frames
}

// Position returns the absolute frame being heard, or -1 when not playing.
func (m *Monitor) Position() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.run == nil {
		return -1
	}
	elapsed := m.player.StreamPosition()
	if elapsed < 0 {
		return -1
	}
	return m.run.start + elapsed
}

// Elapsed returns the frames played relative to the window start, or -1 when
// not playing.
func (m *Monitor) Elapsed() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.player.StreamPosition()
}

// InProgress reports whether the player is still producing audio.
func (m *Monitor) InProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.player.PlaybackInProgress()
}

// Status returns the current status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Close stops playback and closes the event channel.
func (m *Monitor) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	_, r := m.stopLocked()
	m.closed = true
	m.cancel()
	close(m.eventCh)
	m.mu.Unlock()

	waitRun(r)
}

// stopLocked ends the active run, if any, and returns it so the caller can
// wait for its poll loop after releasing the lock.
// Must be called with lock held.
func (m *Monitor) stopLocked() (int64, *run) {
	r := m.run
	if r == nil {
		return 0, nil
	}
	r.finished = true
	r.cancel()
	m.run = nil

	frames := m.player.StopPlayback()
	m.status = StatusReady
	m.sendEventLocked(Event{Type: EventStopped, Frame: r.start + frames})

	zlog.Debug().Msgf("monitor: playback stopped: file=%s frames=%d", r.path, frames)
	return frames, r
}

// poll watches r until the window ends or the host stops it.
func (m *Monitor) poll(ctx context.Context, r *run) {
	defer close(r.done)

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		if m.step(r) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// step performs one poll and reports whether the loop is over.
func (m *Monitor) step(r *run) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.finished {
		return true
	}

	elapsed := m.player.StreamPosition()
	cur := elapsed + r.start
	reachedEnd := false
	if cur >= r.end {
		if cur > math.MaxInt32 {
			// Some engines report a huge position on the last frame.
			zlog.Warn().Msgf("monitor: position overshoot clamped: frame=%d end=%d", cur, r.end)
			cur = r.end
		} else {
			reachedEnd = true
		}
	}

	if elapsed > 0 {
		m.sendEventLocked(Event{Type: EventProgress, Frame: cur})
	}

	if reachedEnd || !m.player.PlaybackInProgress() {
		m.endLocked(r)
		return true
	}
	return false
}

// endLocked finishes r at the end of its window.
// Must be called with lock held.
func (m *Monitor) endLocked(r *run) {
	r.finished = true
	r.cancel()
	if m.run == r {
		m.run = nil
	}

	// The engine has stopped on its own; this releases its resources.
	m.player.StopPlayback()
	m.status = StatusReady
	m.sendEventLocked(Event{Type: EventEndOfMedia, Frame: r.end})

	zlog.Debug().Msgf("monitor: end of media: file=%s end=%d", r.path, r.end)
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (m *Monitor) sendEventLocked(e Event) {
	if m.closed {
		return
	}
	select {
	case m.eventCh <- e:
	default:
		zlog.Warn().Msgf("monitor: event dropped, channel full: type=%s frame=%d", e.Type, e.Frame)
	}
}

func waitRun(r *run) {
	if r != nil {
		<-r.done
	}
}
