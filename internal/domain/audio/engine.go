// Package audio defines the audio engine capability surface used by playback.
package audio

// Engine creates audio contexts. One context backs one playback session.
type Engine interface {
	NewContext() (Context, error)
}

// StreamOptions configures how a stream is opened.
type StreamOptions struct {
	StartFrame int64 // Initial seek position in source frames
}

// Context is an engine handle bound to the audio output.
//
// Clock values are expressed in output-rate frames and only move forward.
type Context interface {
	// Init prepares the context for playback with at most maxChannels voices.
	Init(maxChannels int) error
	// OpenStream opens path for streamed decoding (not decoded up front).
	OpenStream(path string, opts StreamOptions) (Stream, error)
	// Play starts s on a new channel, optionally paused.
	Play(s Stream, paused bool) (Channel, error)
	// BufferSize returns the output processing buffer size in output frames.
	BufferSize() (int, error)
	// SampleRate returns the output (software mixer) sample rate.
	SampleRate() (int, error)
	// Clock returns the current output clock.
	Clock() (uint64, error)
	// Update advances engine bookkeeping (finished channels, positions).
	Update() error
	Close() error
	Release() error
}

// Stream is a decoded or streamed source bound to a file.
type Stream interface {
	// SampleRate returns the native sample rate of the source.
	SampleRate() (float64, error)
	Release() error
}

// Channel is the output route of one stream through a context.
//
// The engine may invalidate a channel at any time (finished or stolen); calls
// on such a channel return ErrInvalidHandle or ErrChannelStolen.
type Channel interface {
	// SetStartDelay holds the channel silent until the output clock reaches clock.
	SetStartDelay(clock uint64) error
	// SetStopDelay ends the channel when the output clock reaches clock.
	SetStopDelay(clock uint64) error
	SetVolume(volume float64) error
	SetPaused(paused bool) error
	// Position returns the current position in source frames.
	Position() (int64, error)
	IsPlaying() (bool, error)
}
