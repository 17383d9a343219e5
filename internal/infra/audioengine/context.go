package audioengine

import (
	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/framecue/internal/domain/audio"
)

var (
	errNotInitialized = errors.New("context not initialized")
	errClosed         = errors.New("context closed")
)

// Context is one engine instance bound to an output. Lifecycle flags and the
// mixer are guarded by the output lock.
type Context struct {
	engine *Engine
	output Output

	mixer       *mixer
	maxChannels int
	initialized bool
	closed      bool
	released    bool
}

// Init starts mixing into the output with room for maxChannels voices.
func (c *Context) Init(maxChannels int) error {
	if maxChannels <= 0 {
		return audio.NewEngineError("context.init", errors.Newf("invalid channel count: %d", maxChannels))
	}

	c.output.Lock()
	if c.closed {
		c.output.Unlock()
		return audio.NewEngineError("context.init", errClosed)
	}
	if c.initialized {
		c.output.Unlock()
		return audio.NewEngineError("context.init", errors.New("context already initialized"))
	}
	m := newMixer(c.engine.config.BufferSize)
	c.output.Unlock()

	rate := beep.SampleRate(c.engine.config.SampleRate)
	if err := c.output.Start(rate, c.engine.config.BufferSize, m); err != nil {
		return audio.NewEngineError("context.init", err)
	}

	c.output.Lock()
	c.mixer = m
	c.maxChannels = maxChannels
	c.initialized = true
	c.output.Unlock()

	zlog.Debug().Msgf("audio: context initialized: sample_rate=%d buffer_size=%d max_channels=%d",
		c.engine.config.SampleRate, c.engine.config.BufferSize, maxChannels)
	return nil
}

// ready reports why the context cannot be used, if it cannot.
// Must be called with the output lock held.
func (c *Context) ready(op string) error {
	switch {
	case c.released:
		return audio.ErrInvalidHandle
	case c.closed:
		return audio.NewEngineError(op, errClosed)
	case !c.initialized:
		return audio.NewEngineError(op, errNotInitialized)
	}
	return nil
}

// OpenStream decodes path and seeks it to opts.StartFrame. A start frame
// past the end leaves the stream at its end.
func (c *Context) OpenStream(path string, opts audio.StreamOptions) (audio.Stream, error) {
	c.output.Lock()
	err := c.ready("context.open_stream")
	c.output.Unlock()
	if err != nil {
		return nil, err
	}

	decoder, format, file, err := decodeFile(path)
	if err != nil {
		return nil, audio.NewEngineError("context.open_stream", err)
	}

	start := min(max(opts.StartFrame, 0), int64(decoder.Len()))
	if err := decoder.Seek(int(start)); err != nil {
		_ = decoder.Close()
		_ = file.Close()
		return nil, audio.NewEngineError("context.open_stream", errors.Wrapf(err, "failed to seek to frame %d", start))
	}

	zlog.Debug().Msgf("audio: stream opened: file=%s sample_rate=%d channels=%d frames=%d start=%d",
		path, format.SampleRate, format.NumChannels, decoder.Len(), start)

	return &Stream{
		ctx:     c,
		path:    path,
		decoder: decoder,
		format:  format,
		file:    file,
	}, nil
}

// Play creates a voice for s. The voice is registered with the mixer
// immediately, so callers that need a scheduled start pass paused=true and
// set the delays before unpausing.
func (c *Context) Play(s audio.Stream, paused bool) (audio.Channel, error) {
	stream, ok := s.(*Stream)
	if !ok || stream.ctx != c {
		return nil, audio.NewEngineError("context.play", errors.New("stream does not belong to this context"))
	}

	c.output.Lock()
	defer c.output.Unlock()

	if err := c.ready("context.play"); err != nil {
		return nil, err
	}
	if stream.released {
		return nil, audio.ErrInvalidHandle
	}
	if stream.voice != nil && stream.voice.invalid == nil {
		return nil, audio.NewEngineError("context.play", errors.New("stream is already playing"))
	}

	v := newVoice(stream, beep.SampleRate(c.engine.config.SampleRate), c.engine.config.ResampleQuality, paused)
	c.mixer.add(v, c.maxChannels, audio.ErrChannelStolen)
	stream.voice = v

	return &Channel{ctx: c, voice: v}, nil
}

// BufferSize returns the output buffer size in frames.
func (c *Context) BufferSize() (int, error) {
	c.output.Lock()
	defer c.output.Unlock()

	if err := c.ready("context.buffer_size"); err != nil {
		return 0, err
	}
	return c.engine.config.BufferSize, nil
}

// SampleRate returns the output sample rate.
func (c *Context) SampleRate() (int, error) {
	c.output.Lock()
	defer c.output.Unlock()

	if err := c.ready("context.sample_rate"); err != nil {
		return 0, err
	}
	return c.engine.config.SampleRate, nil
}

// Clock returns the number of output frames mixed since Init.
func (c *Context) Clock() (uint64, error) {
	c.output.Lock()
	defer c.output.Unlock()

	if err := c.ready("context.clock"); err != nil {
		return 0, err
	}
	return c.mixer.clock, nil
}

// Update sweeps finished voices. Their handles become invalid.
func (c *Context) Update() error {
	c.output.Lock()
	defer c.output.Unlock()

	if err := c.ready("context.update"); err != nil {
		return err
	}
	if n := c.mixer.sweep(audio.ErrInvalidHandle); n > 0 {
		zlog.Debug().Msgf("audio: swept finished voices: count=%d", n)
	}
	return nil
}

// Close stops the output. Voices become invalid. Closing twice is a no-op.
func (c *Context) Close() error {
	c.output.Lock()
	if c.released {
		c.output.Unlock()
		return audio.ErrInvalidHandle
	}
	if c.closed {
		c.output.Unlock()
		return nil
	}
	c.closed = true
	started := c.initialized
	if c.mixer != nil {
		for _, v := range c.mixer.voices {
			if v.invalid == nil {
				v.invalid = audio.ErrInvalidHandle
			}
		}
		c.mixer.voices = nil
	}
	c.output.Unlock()

	if started {
		if err := c.output.Stop(); err != nil {
			return audio.NewEngineError("context.close", err)
		}
	}
	zlog.Debug().Msg("audio: context closed")
	return nil
}

// Release frees the context, closing it first if needed.
func (c *Context) Release() error {
	if err := c.Close(); err != nil {
		if audio.IsHandleInvalidated(err) {
			return err
		}
		zlog.Warn().Err(err).Msg("audio: close during release failed")
	}

	c.output.Lock()
	defer c.output.Unlock()
	if c.released {
		return audio.ErrInvalidHandle
	}
	c.released = true
	return nil
}

var _ audio.Context = (*Context)(nil)
