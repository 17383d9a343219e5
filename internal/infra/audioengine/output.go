package audioengine

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"
)

// Output is an audio device pulling samples from a single streamer.
// Lock and Unlock guard everything the streamer touches.
type Output interface {
	Start(rate beep.SampleRate, bufferSize int, s beep.Streamer) error
	Stop() error
	Lock()
	Unlock()
}

// speakerInit guards the process wide speaker. The device is opened once and
// kept for the lifetime of the process.
var speakerInit struct {
	mu         sync.Mutex
	done       bool
	rate       beep.SampleRate
	bufferSize int
}

// SpeakerOutput plays through the system audio device.
type SpeakerOutput struct{}

// NewSpeakerOutput creates a speaker output.
func NewSpeakerOutput() *SpeakerOutput {
	return &SpeakerOutput{}
}

func (o *SpeakerOutput) Start(rate beep.SampleRate, bufferSize int, s beep.Streamer) error {
	speakerInit.mu.Lock()
	defer speakerInit.mu.Unlock()

	if !speakerInit.done {
		if err := speaker.Init(rate, bufferSize); err != nil {
			return errors.Wrap(err, "failed to initialize speaker")
		}
		speakerInit.done = true
		speakerInit.rate = rate
		speakerInit.bufferSize = bufferSize
		zlog.Info().Msgf("audio: speaker initialized: sample_rate=%d buffer_size=%d", rate, bufferSize)
	} else if speakerInit.rate != rate || speakerInit.bufferSize != bufferSize {
		return errors.Newf("speaker already initialized with sample_rate=%d buffer_size=%d",
			speakerInit.rate, speakerInit.bufferSize)
	}

	speaker.Clear()
	speaker.Play(s)
	return nil
}

func (o *SpeakerOutput) Stop() error {
	speaker.Clear()
	return nil
}

func (o *SpeakerOutput) Lock()   { speaker.Lock() }
func (o *SpeakerOutput) Unlock() { speaker.Unlock() }

// NullSettings configures a NullOutput.
type NullSettings struct {
	Manual bool    `mapstructure:"manual"`                                   // Pull only when Pump is called
	Speed  float64 `mapstructure:"speed" default:"1" validate:"gt=0,lte=16"` // Ticker rate relative to realtime
}

// NullOutput is a software device. It discards mixed samples and either
// pulls on a ticker paced by the sample rate or only when Pump is called.
type NullOutput struct {
	mu       sync.Mutex
	settings NullSettings

	streamer   beep.Streamer
	buf        [][2]float64
	bufferSize int
	frames     uint64

	stop chan struct{}
	done chan struct{}
}

// NewNullOutput creates a null output.
func NewNullOutput(settings NullSettings) *NullOutput {
	if settings.Speed <= 0 {
		settings.Speed = 1
	}
	return &NullOutput{settings: settings}
}

func (o *NullOutput) Start(rate beep.SampleRate, bufferSize int, s beep.Streamer) error {
	if bufferSize <= 0 {
		return errors.Newf("invalid buffer size: %d", bufferSize)
	}

	o.mu.Lock()
	if o.streamer != nil {
		o.mu.Unlock()
		return errors.New("null output already started")
	}
	o.streamer = s
	o.bufferSize = bufferSize
	o.buf = make([][2]float64, bufferSize)
	o.mu.Unlock()

	if !o.settings.Manual {
		period := time.Duration(float64(rate.D(bufferSize)) / o.settings.Speed)
		o.stop = make(chan struct{})
		o.done = make(chan struct{})
		go o.run(period)
	}
	return nil
}

// run pulls one buffer per period until Stop.
func (o *NullOutput) run(period time.Duration) {
	defer close(o.done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			o.Pump(o.bufferSize)
		}
	}
}

// Pump mixes frames output frames, in buffer sized chunks.
func (o *NullOutput) Pump(frames int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.streamer == nil {
		return
	}
	for frames > 0 {
		n := min(frames, len(o.buf))
		o.streamer.Stream(o.buf[:n])
		o.frames += uint64(n)
		frames -= n
	}
}

// Frames returns the number of frames pulled so far.
func (o *NullOutput) Frames() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frames
}

func (o *NullOutput) Stop() error {
	if o.stop != nil {
		close(o.stop)
		<-o.done
		o.stop = nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.streamer = nil
	return nil
}

func (o *NullOutput) Lock()   { o.mu.Lock() }
func (o *NullOutput) Unlock() { o.mu.Unlock() }

var (
	_ Output = (*SpeakerOutput)(nil)
	_ Output = (*NullOutput)(nil)
)
