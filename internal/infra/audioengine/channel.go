package audioengine

import (
	"math"

	"github.com/cockroachdb/errors"

	"github.com/osa030/framecue/internal/domain/audio"
)

// Channel is a handle to a voice. It turns invalid once the voice finishes
// and the context sweeps it, when it is stolen, or when its stream or
// context goes away.
type Channel struct {
	ctx   *Context
	voice *voice
}

// SetStartDelay sets the output clock at which the voice becomes audible.
func (ch *Channel) SetStartDelay(clock uint64) error {
	ch.ctx.output.Lock()
	defer ch.ctx.output.Unlock()
	if err := ch.voice.invalid; err != nil {
		return err
	}
	ch.voice.startClock = clock
	return nil
}

// SetStopDelay sets the output clock at which the voice stops.
func (ch *Channel) SetStopDelay(clock uint64) error {
	ch.ctx.output.Lock()
	defer ch.ctx.output.Unlock()
	if err := ch.voice.invalid; err != nil {
		return err
	}
	ch.voice.stopClock = clock
	return nil
}

// SetVolume sets a linear gain, 1 being unity.
func (ch *Channel) SetVolume(volume float64) error {
	ch.ctx.output.Lock()
	defer ch.ctx.output.Unlock()
	if err := ch.voice.invalid; err != nil {
		return err
	}
	if math.IsNaN(volume) || volume < 0 {
		return audio.NewEngineError("channel.set_volume", errors.Newf("invalid volume: %v", volume))
	}
	ch.voice.setVolume(volume)
	return nil
}

// SetPaused pauses or resumes the voice.
func (ch *Channel) SetPaused(paused bool) error {
	ch.ctx.output.Lock()
	defer ch.ctx.output.Unlock()
	if err := ch.voice.invalid; err != nil {
		return err
	}
	ch.voice.paused = paused
	return nil
}

// Position returns the source frame being rendered.
func (ch *Channel) Position() (int64, error) {
	ch.ctx.output.Lock()
	defer ch.ctx.output.Unlock()
	if err := ch.voice.invalid; err != nil {
		return 0, err
	}
	return ch.voice.position(), nil
}

// IsPlaying reports whether the voice can still produce audio. A voice
// waiting for its start clock counts as playing.
func (ch *Channel) IsPlaying() (bool, error) {
	ch.ctx.output.Lock()
	defer ch.ctx.output.Unlock()
	if err := ch.voice.invalid; err != nil {
		return false, err
	}
	return !ch.voice.done, nil
}

var _ audio.Channel = (*Channel)(nil)
