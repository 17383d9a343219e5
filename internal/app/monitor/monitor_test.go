package monitor

import (
	"math"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/framecue/internal/app/playback"
)

// fakePlayer advances by step frames per position poll and stops producing
// audio once finishAt frames have elapsed.
type fakePlayer struct {
	mu sync.Mutex

	startErr  error
	step      int64
	finishAt  int64
	overshoot bool // Report a huge position once finishAt is reached

	playing bool
	elapsed int64
	starts  int
	stops   int
}

func (p *fakePlayer) StartPlayback(path string, startFrame, endFrame int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starts++
	if p.startErr != nil {
		return p.startErr
	}
	p.playing = true
	p.elapsed = 0
	return nil
}

func (p *fakePlayer) StopPlayback() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	if !p.playing {
		return 0
	}
	p.playing = false
	return p.elapsed
}

func (p *fakePlayer) StreamPosition() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return -1
	}
	if p.elapsed < p.finishAt {
		p.elapsed += p.step
	}
	if p.overshoot && p.elapsed >= p.finishAt {
		return math.MaxInt32 + 100
	}
	return p.elapsed
}

func (p *fakePlayer) PlaybackInProgress() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && p.elapsed < p.finishAt
}

func (p *fakePlayer) counts() (starts, stops int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.starts, p.stops
}

func drain(ch <-chan Event) []Event {
	var events []Event
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, e)
		default:
			return events
		}
	}
}

func frames(events []Event, typ EventType) []int64 {
	var out []int64
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e.Frame)
		}
	}
	return out
}

func TestMonitor_NaturalEnd(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		player := &fakePlayer{step: 100, finishAt: 500}
		m := New(player, Config{})
		defer m.Close()

		require.NoError(t, m.Play("sample.wav", 1000, 2000))
		assert.Equal(t, StatusPlaying, m.Status())

		time.Sleep(time.Second)
		synctest.Wait()

		events := drain(m.Events())
		assert.Equal(t, []int64{1100, 1200, 1300, 1400, 1500}, frames(events, EventProgress))
		assert.Equal(t, []int64{2000}, frames(events, EventEndOfMedia))
		assert.Empty(t, frames(events, EventStopped))
		assert.Equal(t, StatusReady, m.Status())

		_, stops := player.counts()
		assert.Equal(t, 1, stops)
		assert.Equal(t, int64(-1), m.Position())
	})
}

func TestMonitor_PollInterval(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		player := &fakePlayer{step: 10, finishAt: 1 << 40}
		m := New(player, Config{PollInterval: 30 * time.Millisecond})
		defer m.Close()

		require.NoError(t, m.Play("sample.wav", 0, 1<<41))
		synctest.Wait()
		assert.Len(t, drain(m.Events()), 1, "first poll is immediate")

		time.Sleep(100 * time.Millisecond)
		synctest.Wait()
		assert.Len(t, drain(m.Events()), 3)
	})
}

func TestMonitor_ReachesEndFrame(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		player := &fakePlayer{step: 100, finishAt: 1 << 40}
		m := New(player, Config{})
		defer m.Close()

		require.NoError(t, m.Play("sample.wav", 0, 300))

		time.Sleep(time.Second)
		synctest.Wait()

		events := drain(m.Events())
		assert.Equal(t, []int64{100, 200, 300}, frames(events, EventProgress))
		assert.Equal(t, []int64{300}, frames(events, EventEndOfMedia))
		assert.Equal(t, StatusReady, m.Status())
	})
}

func TestMonitor_OvershootClamped(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		player := &fakePlayer{step: 100, finishAt: 200, overshoot: true}
		m := New(player, Config{})
		defer m.Close()

		require.NoError(t, m.Play("sample.wav", 0, 1000))

		time.Sleep(time.Second)
		synctest.Wait()

		events := drain(m.Events())
		assert.Equal(t, []int64{100, 1000}, frames(events, EventProgress))
		assert.Equal(t, []int64{1000}, frames(events, EventEndOfMedia))
	})
}

func TestMonitor_Stop(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		player := &fakePlayer{step: 100, finishAt: 1 << 40}
		m := New(player, Config{})
		defer m.Close()

		require.NoError(t, m.Play("sample.wav", 5000, 1<<41))
		synctest.Wait()
		time.Sleep(70 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, int64(300), m.Stop())
		assert.Equal(t, StatusReady, m.Status())

		time.Sleep(time.Second)
		synctest.Wait()

		events := drain(m.Events())
		assert.Equal(t, []int64{5100, 5200, 5300}, frames(events, EventProgress))
		assert.Equal(t, []int64{5300}, frames(events, EventStopped))
		assert.Empty(t, frames(events, EventEndOfMedia))
	})
}

func TestMonitor_NegativeStartFrame(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		player := &fakePlayer{step: 100, finishAt: 1 << 40}
		m := New(player, Config{})
		defer m.Close()

		require.NoError(t, m.Play("sample.wav", -100, 1000))
		synctest.Wait()

		assert.Equal(t, int64(200), m.Position())
		assert.Equal(t, int64(200), m.Stop())

		events := drain(m.Events())
		assert.Equal(t, []int64{100}, frames(events, EventProgress))
		assert.Equal(t, []int64{200}, frames(events, EventStopped))
	})
}

func TestMonitor_StopIdle(t *testing.T) {
	player := &fakePlayer{}
	m := New(player, Config{})
	defer m.Close()

	assert.Equal(t, int64(0), m.Stop())
	_, stops := player.counts()
	assert.Equal(t, 0, stops)
	assert.Empty(t, drain(m.Events()))
}

func TestMonitor_PlayWhilePlaying(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		player := &fakePlayer{step: 100, finishAt: 1 << 40}
		m := New(player, Config{})
		defer m.Close()

		require.NoError(t, m.Play("first.wav", 0, 1<<41))
		synctest.Wait()
		require.NoError(t, m.Play("second.wav", 0, 1<<41))
		synctest.Wait()

		events := drain(m.Events())
		require.Len(t, events, 3)
		assert.Equal(t, EventProgress, events[0].Type)
		assert.Equal(t, EventStopped, events[1].Type)
		assert.Equal(t, EventProgress, events[2].Type)

		starts, _ := player.counts()
		assert.Equal(t, 2, starts)
		assert.Equal(t, StatusPlaying, m.Status())
	})
}

func TestMonitor_StartFailure(t *testing.T) {
	startErr := errors.Wrap(playback.ErrStreamOpen, "open stream missing.wav")
	player := &fakePlayer{startErr: startErr}
	m := New(player, Config{})
	defer m.Close()

	err := m.Play("missing.wav", 0, 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, playback.ErrStreamOpen))
	assert.Equal(t, StatusReady, m.Status())

	_, stops := player.counts()
	assert.Equal(t, 1, stops, "failed start is still cleaned up")

	events := drain(m.Events())
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.Equal(t, int64(-1), events[0].Frame)
	assert.Contains(t, events[0].Message, "Unable to find or open file.")
	assert.Equal(t, startErr, events[0].Err)
}

func TestMonitor_Position(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		player := &fakePlayer{step: 50, finishAt: 1 << 40}
		m := New(player, Config{PollInterval: time.Hour})
		defer m.Close()

		assert.Equal(t, int64(-1), m.Position())

		require.NoError(t, m.Play("sample.wav", 1000, 1<<41))
		synctest.Wait()

		// The first poll consumed one step.
		assert.Equal(t, int64(1100), m.Position())
		assert.Equal(t, int64(150), m.Elapsed())
		assert.True(t, m.InProgress())
	})
}

func TestMonitor_Close(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		player := &fakePlayer{step: 100, finishAt: 1 << 40}
		m := New(player, Config{})

		require.NoError(t, m.Play("sample.wav", 0, 1<<41))
		synctest.Wait()

		m.Close()
		m.Close()

		events := drain(m.Events())
		assert.Equal(t, EventStopped, events[len(events)-1].Type)

		_, ok := <-m.Events()
		assert.False(t, ok, "event channel closed")

		assert.ErrorIs(t, m.Play("sample.wav", 0, 100), ErrClosed)
	})
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		goos string
		want string
	}{
		{
			name: "no device",
			err:  errors.Wrap(playback.ErrEngineInit, "init"),
			goos: "darwin",
			want: "Unable to start playback.\nNo audio device found.",
		},
		{
			name: "file",
			err:  errors.Wrap(playback.ErrStreamOpen, "open"),
			goos: "darwin",
			want: "Unable to start playback.\nUnable to find or open file.",
		},
		{
			name: "inconsistent",
			err:  playback.ErrInternalConsistency,
			goos: "darwin",
			want: "Unable to start playback.\nInconsistent state. Trying to repair",
		},
		{
			name: "io",
			err:  playback.ErrStreamFormat,
			goos: "windows",
			want: "Unable to start playback.\nI/O error.",
		},
		{
			name: "unspecified",
			err:  playback.ErrClockSchedule,
			goos: "darwin",
			want: "Unable to start playback.\nUnspecified error.",
		},
		{
			name: "linux exclusive access hint",
			err:  playback.ErrPlaybackStart,
			goos: "linux",
			want: "Unable to start playback.\n\nframecue prefers exclusive access to the sound system.\n" +
				"Please close all sound-emitting programs and web pages and try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, message(tt.err, tt.goos))
		})
	}
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "progress", EventProgress.String())
	assert.Equal(t, "stopped", EventStopped.String())
	assert.Equal(t, "end_of_media", EventEndOfMedia.String())
	assert.Equal(t, "error", EventError.String())
	assert.Equal(t, "unknown", EventType(99).String())
	assert.Equal(t, "ready", StatusReady.String())
	assert.Equal(t, "playing", StatusPlaying.String())
}
