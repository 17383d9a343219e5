// Package playbacktest provides a scripted audio engine for playback tests.
package playbacktest

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/osa030/framecue/internal/domain/audio"
)

// Op names an engine call that can be scripted to fail.
type Op string

const (
	OpNewContext       Op = "engine.new_context"
	OpInit             Op = "context.init"
	OpOpenStream       Op = "context.open_stream"
	OpPlay             Op = "context.play"
	OpBufferSize       Op = "context.buffer_size"
	OpSampleRate       Op = "context.sample_rate"
	OpClock            Op = "context.clock"
	OpUpdate           Op = "context.update"
	OpClose            Op = "context.close"
	OpRelease          Op = "context.release"
	OpStreamSampleRate Op = "stream.sample_rate"
	OpStreamRelease    Op = "stream.release"
	OpSetStartDelay    Op = "channel.set_start_delay"
	OpSetStopDelay     Op = "channel.set_stop_delay"
	OpSetVolume        Op = "channel.set_volume"
	OpSetPaused        Op = "channel.set_paused"
	OpPosition         Op = "channel.position"
	OpIsPlaying        Op = "channel.is_playing"
)

// Engine is an in-memory audio.Engine. Its clock only moves when a test
// advances it.
type Engine struct {
	mu sync.Mutex

	InputRate  float64
	OutputRate int
	BufferSize int
	Clock      uint64

	failures map[Op]error
	calls    []Op
	contexts []*Context
	streams  []*Stream
	channels []*Channel
}

// NewEngine creates an engine with 44.1kHz sources, a 48kHz output and a
// 1024 frame buffer.
func NewEngine() *Engine {
	return &Engine{
		InputRate:  44100,
		OutputRate: 48000,
		BufferSize: 1024,
		failures:   make(map[Op]error),
	}
}

// Fail makes every later call of op return err.
func (e *Engine) Fail(op Op, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[op] = err
}

// Clear removes all scripted failures.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = make(map[Op]error)
}

// Calls returns the calls made so far, in order.
func (e *Engine) Calls() []Op {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Op, len(e.calls))
	copy(out, e.calls)
	return out
}

// Called reports whether op was called at least once.
func (e *Engine) Called(op Op) bool {
	for _, c := range e.Calls() {
		if c == op {
			return true
		}
	}
	return false
}

// LiveContexts returns the number of contexts not yet released.
func (e *Engine) LiveContexts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.contexts {
		if !c.released {
			n++
		}
	}
	return n
}

// LiveStreams returns the number of streams not yet released.
func (e *Engine) LiveStreams() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, s := range e.streams {
		if !s.released {
			n++
		}
	}
	return n
}

// LastChannel returns the most recently created channel, or nil.
func (e *Engine) LastChannel() *Channel {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.channels) == 0 {
		return nil
	}
	return e.channels[len(e.channels)-1]
}

// LastStream returns the most recently opened stream, or nil.
func (e *Engine) LastStream() *Stream {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.streams) == 0 {
		return nil
	}
	return e.streams[len(e.streams)-1]
}

// AdvanceClock moves the output clock forward by frames.
func (e *Engine) AdvanceClock(frames uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Clock += frames
}

// call records op and returns its scripted failure. Callers hold e.mu.
func (e *Engine) call(op Op) error {
	e.calls = append(e.calls, op)
	if err, ok := e.failures[op]; ok {
		return err
	}
	return nil
}

// NewContext implements audio.Engine.
func (e *Engine) NewContext() (audio.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call(OpNewContext); err != nil {
		return nil, err
	}
	c := &Context{engine: e}
	e.contexts = append(e.contexts, c)
	return c, nil
}

// Context is the scripted audio.Context.
type Context struct {
	engine      *Engine
	MaxChannels int
	closed      bool
	released    bool
}

func (c *Context) Init(maxChannels int) error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	if err := c.engine.call(OpInit); err != nil {
		return err
	}
	c.MaxChannels = maxChannels
	return nil
}

func (c *Context) OpenStream(path string, opts audio.StreamOptions) (audio.Stream, error) {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	if err := c.engine.call(OpOpenStream); err != nil {
		return nil, err
	}
	s := &Stream{engine: c.engine, Path: path, StartFrame: opts.StartFrame}
	c.engine.streams = append(c.engine.streams, s)
	return s, nil
}

func (c *Context) Play(s audio.Stream, paused bool) (audio.Channel, error) {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	if err := c.engine.call(OpPlay); err != nil {
		return nil, err
	}
	stream, ok := s.(*Stream)
	if !ok {
		return nil, errors.Newf("playbacktest: foreign stream %T", s)
	}
	ch := &Channel{
		engine:   c.engine,
		Paused:   paused,
		position: stream.StartFrame,
		playing:  true,
	}
	c.engine.channels = append(c.engine.channels, ch)
	return ch, nil
}

func (c *Context) BufferSize() (int, error) {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	if err := c.engine.call(OpBufferSize); err != nil {
		return 0, err
	}
	return c.engine.BufferSize, nil
}

func (c *Context) SampleRate() (int, error) {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	if err := c.engine.call(OpSampleRate); err != nil {
		return 0, err
	}
	return c.engine.OutputRate, nil
}

func (c *Context) Clock() (uint64, error) {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	if err := c.engine.call(OpClock); err != nil {
		return 0, err
	}
	return c.engine.Clock, nil
}

func (c *Context) Update() error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	return c.engine.call(OpUpdate)
}

func (c *Context) Close() error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	if err := c.engine.call(OpClose); err != nil {
		return err
	}
	c.closed = true
	return nil
}

func (c *Context) Release() error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	// A failed release still frees the handle so leak counts stay meaningful.
	c.released = true
	return c.engine.call(OpRelease)
}

// Stream is the scripted audio.Stream.
type Stream struct {
	engine     *Engine
	Path       string
	StartFrame int64
	released   bool
}

func (s *Stream) SampleRate() (float64, error) {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	if err := s.engine.call(OpStreamSampleRate); err != nil {
		return 0, err
	}
	return s.engine.InputRate, nil
}

func (s *Stream) Release() error {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	s.released = true
	return s.engine.call(OpStreamRelease)
}

// Released reports whether Release was called.
func (s *Stream) Released() bool {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	return s.released
}

// Channel is the scripted audio.Channel.
type Channel struct {
	engine *Engine

	StartClock uint64
	StopClock  uint64
	Volume     float64
	Paused     bool

	position    int64
	playing     bool
	invalidated error
}

// Finish ends the channel the way the engine does at the stop clock: it
// stops playing and its handle becomes invalid.
func (ch *Channel) Finish() {
	ch.engine.mu.Lock()
	defer ch.engine.mu.Unlock()
	ch.playing = false
	ch.invalidated = audio.ErrInvalidHandle
}

// Steal invalidates the channel as if a higher priority request took it.
func (ch *Channel) Steal() {
	ch.engine.mu.Lock()
	defer ch.engine.mu.Unlock()
	ch.playing = false
	ch.invalidated = audio.ErrChannelStolen
}

// Advance moves the channel position forward by frames.
func (ch *Channel) Advance(frames int64) {
	ch.engine.mu.Lock()
	defer ch.engine.mu.Unlock()
	ch.position += frames
}

// Scheduled returns the start and stop clocks set on the channel.
func (ch *Channel) Scheduled() (start, stop uint64) {
	ch.engine.mu.Lock()
	defer ch.engine.mu.Unlock()
	return ch.StartClock, ch.StopClock
}

func (ch *Channel) SetStartDelay(clock uint64) error {
	ch.engine.mu.Lock()
	defer ch.engine.mu.Unlock()
	if err := ch.engine.call(OpSetStartDelay); err != nil {
		return err
	}
	if ch.invalidated != nil {
		return ch.invalidated
	}
	ch.StartClock = clock
	return nil
}

func (ch *Channel) SetStopDelay(clock uint64) error {
	ch.engine.mu.Lock()
	defer ch.engine.mu.Unlock()
	if err := ch.engine.call(OpSetStopDelay); err != nil {
		return err
	}
	if ch.invalidated != nil {
		return ch.invalidated
	}
	ch.StopClock = clock
	return nil
}

func (ch *Channel) SetVolume(volume float64) error {
	ch.engine.mu.Lock()
	defer ch.engine.mu.Unlock()
	if err := ch.engine.call(OpSetVolume); err != nil {
		return err
	}
	if ch.invalidated != nil {
		return ch.invalidated
	}
	ch.Volume = volume
	return nil
}

func (ch *Channel) SetPaused(paused bool) error {
	ch.engine.mu.Lock()
	defer ch.engine.mu.Unlock()
	if err := ch.engine.call(OpSetPaused); err != nil {
		return err
	}
	if ch.invalidated != nil {
		return ch.invalidated
	}
	ch.Paused = paused
	return nil
}

func (ch *Channel) Position() (int64, error) {
	ch.engine.mu.Lock()
	defer ch.engine.mu.Unlock()
	if err := ch.engine.call(OpPosition); err != nil {
		return 0, err
	}
	if ch.invalidated != nil {
		return 0, ch.invalidated
	}
	return ch.position, nil
}

func (ch *Channel) IsPlaying() (bool, error) {
	ch.engine.mu.Lock()
	defer ch.engine.mu.Unlock()
	if err := ch.engine.call(OpIsPlaying); err != nil {
		return false, err
	}
	if ch.invalidated != nil {
		return false, ch.invalidated
	}
	return ch.playing, nil
}

var (
	_ audio.Engine  = (*Engine)(nil)
	_ audio.Context = (*Context)(nil)
	_ audio.Stream  = (*Stream)(nil)
	_ audio.Channel = (*Channel)(nil)
)
