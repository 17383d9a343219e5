package playback

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// releaseStep is one release in the teardown sequence.
type releaseStep struct {
	name string
	run  func() error
}

// teardown releases the session in reverse acquisition order: stream, then
// context. A failing step is logged and recorded, and the remaining steps
// still run. The session always ends fully reset. Safe to call when idle.
func (c *Controller) teardown() {
	s := &c.sess
	var steps []releaseStep

	if s.stream != nil {
		stream := s.stream
		steps = append(steps, releaseStep{name: "stream release", run: stream.Release})
	}
	if s.context != nil {
		ctx := s.context
		steps = append(steps,
			releaseStep{name: "context close", run: ctx.Close},
			releaseStep{name: "context release", run: ctx.Release},
		)
	}

	var diagnostics []error
	for _, step := range steps {
		if err := step.run(); err != nil {
			c.log.Warn().Err(err).Msgf("playback: %s failed during cleanup", step.name)
			diagnostics = append(diagnostics, errors.Wrap(err, step.name))
		}
	}
	if len(steps) > 0 {
		c.diagnostics = diagnostics
		c.log.Debug().Msgf("playback: released session: steps=%d failures=%d", len(steps), len(diagnostics))
	}

	c.sess = session{state: StateUninitialized}
	c.log = zlog.Logger
}
