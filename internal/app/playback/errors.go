package playback

import (
	"github.com/cockroachdb/errors"
)

// Errors reported by StartPlayback and the internal state checks.
var (
	ErrInvalidRange        = errors.New("invalid frame range")
	ErrEngineInit          = errors.New("audio engine initialization failed")
	ErrStreamOpen          = errors.New("unable to open stream")
	ErrStreamFormat        = errors.New("unable to determine stream format")
	ErrPlaybackStart       = errors.New("unable to start playback")
	ErrClockSchedule       = errors.New("unable to schedule playback on the output clock")
	ErrInternalConsistency = errors.New("inconsistent playback state")
	ErrNotReady            = errors.New("playback not ready")
)

// Status codes of the external call surface. Success is 0.
const (
	StatusOK                  = 0
	StatusInvalidRange        = -1
	StatusEngineInit          = -2
	StatusStreamOpen          = -3
	StatusInternalConsistency = -4
	StatusStreamFormat        = -5
	StatusPlaybackStart       = -6
	StatusClockSchedule       = -7
	StatusUnknown             = -99
)

var statusCodes = []struct {
	err  error
	code int
}{
	{ErrInvalidRange, StatusInvalidRange},
	{ErrEngineInit, StatusEngineInit},
	{ErrStreamOpen, StatusStreamOpen},
	{ErrInternalConsistency, StatusInternalConsistency},
	{ErrStreamFormat, StatusStreamFormat},
	{ErrPlaybackStart, StatusPlaybackStart},
	{ErrClockSchedule, StatusClockSchedule},
}

// StatusCode maps an error from StartPlayback to its status code.
func StatusCode(err error) int {
	if err == nil {
		return StatusOK
	}
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return sc.code
		}
	}
	return StatusUnknown
}

// fail wraps cause with msg and marks it with kind so errors.Is(err, kind)
// holds while the engine cause stays reachable.
func fail(kind error, cause error, msg string) error {
	if cause == nil {
		return errors.Wrap(kind, msg)
	}
	return errors.Mark(errors.Wrap(cause, msg), kind)
}
