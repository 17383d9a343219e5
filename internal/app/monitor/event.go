package monitor

// EventType represents a monitor event type.
type EventType int

const (
	EventProgress   EventType = iota // Playback advanced to Frame
	EventStopped                     // Playback was stopped by the host at Frame
	EventEndOfMedia                  // Playback reached the end of the window
	EventError                       // Playback could not start
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventProgress:
		return "progress"
	case EventStopped:
		return "stopped"
	case EventEndOfMedia:
		return "end_of_media"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event represents a monitor event.
type Event struct {
	Type    EventType
	Frame   int64  // Absolute frame, -1 for errors
	Message string // User-facing text (EventError only)
	Err     error  // Underlying error (EventError only)
}

// Status represents the player status as seen by hosts.
type Status int

const (
	StatusReady   Status = iota // Nothing playing
	StatusPlaying               // A window is playing
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusPlaying:
		return "playing"
	default:
		return "unknown"
	}
}
