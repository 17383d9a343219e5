// Package playback provides frame-accurate playback control over an audio engine.
package playback

// State represents the session lifecycle state.
type State int

const (
	StateUninitialized      State = iota // No resources held
	StateContextCreated                  // Engine context created
	StateContextInitialized              // Engine context initialized
	StateStreamLoaded                    // Stream opened and seeked
	StatePlaying                         // Channel scheduled and running
	StateError                           // Handles did not match the claimed state
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateContextCreated:
		return "context_created"
	case StateContextInitialized:
		return "context_initialized"
	case StateStreamLoaded:
		return "stream_loaded"
	case StatePlaying:
		return "playing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// rank orders the forward lifecycle. StateError sits outside the order and
// never satisfies a readiness check.
func (s State) rank() (int, bool) {
	switch s {
	case StateUninitialized:
		return 0, true
	case StateContextCreated:
		return 1, true
	case StateContextInitialized:
		return 2, true
	case StateStreamLoaded:
		return 3, true
	case StatePlaying:
		return 4, true
	default:
		return 0, false
	}
}

// Reached reports whether s is at or past min in the lifecycle.
func (s State) Reached(min State) bool {
	have, ok := s.rank()
	if !ok {
		return false
	}
	want, ok := min.rank()
	if !ok {
		return false
	}
	return have >= want
}
