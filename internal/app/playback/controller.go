package playback

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/framecue/internal/domain/audio"
)

// Library identity reported to hosts.
const (
	RevisionNumber = 2
	LibraryName    = "beep implementation of framecue"
)

// DefaultMaxChannels is the channel limit used when Config leaves it unset.
const DefaultMaxChannels = 32

// Config holds controller configuration.
type Config struct {
	MaxChannels int // Concurrent channel limit passed to the engine context
}

// session is the single mutable playback entity.
type session struct {
	id           string
	state        State
	context      audio.Context
	stream       audio.Stream
	channel      audio.Channel
	startFrame   int64
	lastPosition int64 // Absolute position last read from the channel
}

// Controller plays one window of one file at a time.
//
// Controller is not safe for concurrent use; hosts serialize calls.
type Controller struct {
	engine      audio.Engine
	config      Config
	sess        session
	log         zerolog.Logger
	diagnostics []error
}

// NewController creates a new playback controller.
func NewController(engine audio.Engine, config Config) *Controller {
	if config.MaxChannels <= 0 {
		config.MaxChannels = DefaultMaxChannels
	}
	return &Controller{
		engine: engine,
		config: config,
		log:    zlog.Logger,
	}
}

// StartPlayback schedules frames [startFrame, endFrame) of path for playback.
// Any live session is torn down first. A negative startFrame is treated as 0.
// On failure no resources stay allocated.
func (c *Controller) StartPlayback(path string, startFrame, endFrame int64) error {
	if c.sess.state != StateUninitialized {
		c.log.Warn().Msgf("playback: start requested while %s, cleaning up first", c.sess.state)
		c.teardown()
	}

	window, corrected := audio.Window{Start: startFrame, End: endFrame}.Normalize()
	if corrected {
		c.log.Warn().Msgf("playback: negative start frame (%d) corrected to 0", startFrame)
	}
	if !window.Valid() {
		c.teardown()
		return errors.Wrapf(ErrInvalidRange, "end frame (%d) <= start frame (%d)", window.End, window.Start)
	}

	c.sess.id = uuid.NewString()
	c.log = zlog.With().Str("session", c.sess.id).Logger()

	if err := c.start(path, window); err != nil {
		c.log.Error().Err(err).Msgf("playback: start failed: file=%s", path)
		c.teardown()
		return err
	}

	c.log.Debug().Msgf("playback: started: file=%s start=%d end=%d", path, window.Start, window.End)
	return nil
}

// start walks the session forward to StatePlaying.
func (c *Controller) start(path string, window audio.Window) error {
	ctx, err := c.engine.NewContext()
	if err != nil {
		return fail(ErrEngineInit, err, "create context")
	}
	c.sess.context = ctx
	c.sess.state = StateContextCreated

	if err := ctx.Init(c.config.MaxChannels); err != nil {
		return fail(ErrEngineInit, err, "init context")
	}
	c.sess.state = StateContextInitialized

	stream, err := ctx.OpenStream(path, audio.StreamOptions{StartFrame: window.Start})
	if err != nil {
		return fail(ErrStreamOpen, err, "open stream "+path)
	}
	c.sess.stream = stream
	c.sess.state = StateStreamLoaded

	inputRate, err := stream.SampleRate()
	if err != nil {
		return fail(ErrStreamFormat, err, "stream sample rate")
	}
	if inputRate <= 0 {
		return errors.Wrapf(ErrStreamFormat, "stream sample rate %v", inputRate)
	}

	channel, err := ctx.Play(stream, true)
	if err != nil {
		return fail(ErrPlaybackStart, err, "play stream")
	}
	c.sess.channel = channel
	c.sess.startFrame = window.Start
	c.sess.lastPosition = window.Start
	c.sess.state = StatePlaying

	if err := c.schedule(window, inputRate); err != nil {
		return err
	}

	if err := ignoreInvalidated(channel.SetVolume(1)); err != nil {
		return fail(ErrPlaybackStart, err, "set volume")
	}
	if err := ignoreInvalidated(channel.SetPaused(false)); err != nil {
		return fail(ErrPlaybackStart, err, "unpause channel")
	}

	if err := ctx.Update(); err != nil {
		c.log.Warn().Err(err).Msg("playback: engine update failed after start")
	}
	return nil
}

// schedule pins the channel's audible range to the output clock. The start
// is delayed by two output buffers so the instruction lands before the next
// mixer update. The stop is the window length converted to output frames.
func (c *Controller) schedule(window audio.Window, inputRate float64) error {
	ctx := c.sess.context

	bufferSize, err := ctx.BufferSize()
	if err != nil {
		return fail(ErrPlaybackStart, err, "output buffer size")
	}
	startDelay := uint64(bufferSize) * 2

	outputRate, err := ctx.SampleRate()
	if err != nil {
		return fail(ErrPlaybackStart, err, "output sample rate")
	}

	now, err := ctx.Clock()
	if err != nil {
		return fail(ErrClockSchedule, err, "read output clock")
	}

	startClock := now + startDelay
	if err := c.sess.channel.SetStartDelay(startClock); err != nil {
		return fail(ErrClockSchedule, err, "set start delay")
	}

	endDelay := startDelay + window.OutputFrames(inputRate, outputRate)
	stopClock := now + endDelay
	if err := c.sess.channel.SetStopDelay(stopClock); err != nil {
		return fail(ErrClockSchedule, err, "set stop delay")
	}

	c.log.Debug().Msgf("playback: scheduled: now=%d start_clock=%d stop_clock=%d input_rate=%v output_rate=%d",
		now, startClock, stopClock, inputRate, outputRate)
	return nil
}

// StopPlayback ends the session and returns the frames played, relative to
// the window start. It returns 0 when nothing was playing.
func (c *Controller) StopPlayback() int64 {
	if c.sess.state == StateUninitialized {
		c.log.Debug().Msg("playback: stop called but playback not active")
		return 0
	}

	var played int64
	if c.sess.state == StatePlaying && c.sess.channel != nil {
		if pos := c.StreamPosition(); pos > 0 {
			played = pos
		}
	}

	c.teardown()
	return played
}

// StreamPosition returns the frames played relative to the window start, or
// -1 when not playing. Each call ticks the engine, so hosts should poll it
// several times per second while playing.
func (c *Controller) StreamPosition() int64 {
	if _, err := c.validate(StatePlaying); err != nil {
		return -1
	}

	if err := c.sess.context.Update(); err != nil {
		c.log.Warn().Err(err).Msg("playback: engine update failed")
	}

	pos, err := c.sess.channel.Position()
	switch {
	case err == nil:
		c.sess.lastPosition = pos
	case audio.IsHandleInvalidated(err):
		pos = c.sess.lastPosition
	default:
		c.log.Error().Err(err).Msg("playback: channel position failed")
		return -1
	}

	// Engines may report a position short of the seek target (start past EOF).
	if pos < c.sess.startFrame {
		return 0
	}
	return pos - c.sess.startFrame
}

// PlaybackInProgress reports whether the channel is still producing audio.
// Invalidated channels report false.
func (c *Controller) PlaybackInProgress() bool {
	if !c.sess.state.Reached(StatePlaying) || c.sess.channel == nil {
		return false
	}

	playing, err := c.sess.channel.IsPlaying()
	if err != nil {
		if !audio.IsHandleInvalidated(err) {
			c.log.Error().Err(err).Msg("playback: channel status failed")
		}
		return false
	}
	return playing
}

// State returns the current session state.
func (c *Controller) State() State {
	return c.sess.state
}

// SessionID returns the id of the live session, empty when idle.
func (c *Controller) SessionID() string {
	return c.sess.id
}

// Diagnostics returns the release failures collected by the last teardown.
func (c *Controller) Diagnostics() []error {
	out := make([]error, len(c.diagnostics))
	copy(out, c.diagnostics)
	return out
}

// LibraryRevisionNumber returns RevisionNumber.
func (c *Controller) LibraryRevisionNumber() int {
	return RevisionNumber
}

// LibraryName returns LibraryName.
func (c *Controller) LibraryName() string {
	return LibraryName
}

// validate checks that the session reached need and holds the handles that
// state requires. A missing handle moves the session to StateError.
func (c *Controller) validate(need State) (State, error) {
	s := &c.sess
	if !s.state.Reached(need) {
		return s.state, errors.Wrapf(ErrNotReady, "state %s, need %s", s.state, need)
	}

	var missing string
	switch {
	case need.Reached(StateContextCreated) && s.context == nil:
		missing = "context"
	case need.Reached(StateStreamLoaded) && s.stream == nil:
		missing = "stream"
	case need.Reached(StatePlaying) && s.channel == nil:
		missing = "channel"
	}
	if missing != "" {
		c.log.Error().Msgf("playback: state inconsistency: state=%s but %s is nil", s.state, missing)
		s.state = StateError
		return s.state, errors.Wrapf(ErrInternalConsistency, "%s missing", missing)
	}
	return s.state, nil
}

// ignoreInvalidated drops benign handle invalidation results.
func ignoreInvalidated(err error) error {
	if audio.IsHandleInvalidated(err) {
		return nil
	}
	return err
}
