// Package audioengine implements the audio engine on top of beep.
//
// A Context owns one Output and a mixer registered with it. The mixer counts
// every frame the output pulls, which gives the sample accurate clock that
// channel start and stop delays are expressed in.
package audioengine

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/framecue/internal/domain/audio"
)

// Config holds engine configuration.
type Config struct {
	SampleRate      int // Output sample rate
	BufferSize      int // Output buffer size in frames
	ResampleQuality int // beep.Resample quality, 1 to 64
}

// OutputFactory creates the output for a new context.
type OutputFactory func() (Output, error)

// Engine creates contexts sharing one configuration.
type Engine struct {
	config    Config
	newOutput OutputFactory
}

// New creates a new engine.
func New(config Config, newOutput OutputFactory) (*Engine, error) {
	if config.SampleRate <= 0 {
		return nil, errors.Newf("invalid sample rate: %d", config.SampleRate)
	}
	if config.BufferSize <= 0 {
		return nil, errors.Newf("invalid buffer size: %d", config.BufferSize)
	}
	if config.ResampleQuality <= 0 {
		config.ResampleQuality = 4
	}
	if newOutput == nil {
		return nil, errors.New("output factory is required")
	}
	return &Engine{config: config, newOutput: newOutput}, nil
}

// NewContext creates a context with a fresh output.
func (e *Engine) NewContext() (audio.Context, error) {
	output, err := e.newOutput()
	if err != nil {
		return nil, audio.NewEngineError("engine.new_context", err)
	}
	return &Context{engine: e, output: output}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

var _ audio.Engine = (*Engine)(nil)
