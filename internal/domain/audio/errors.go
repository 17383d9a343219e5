package audio

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Handle invalidation results. These are expected end-of-life signals for a
// channel, not failures.
var (
	ErrInvalidHandle = errors.New("audio: invalid handle")
	ErrChannelStolen = errors.New("audio: channel stolen")
)

// benign lists the engine results that callers fold into default values.
var benign = []error{ErrInvalidHandle, ErrChannelStolen}

// IsHandleInvalidated reports whether err only says the handle went away.
func IsHandleInvalidated(err error) bool {
	if err == nil {
		return false
	}
	for _, b := range benign {
		if errors.Is(err, b) {
			return true
		}
	}
	return false
}

// EngineError is a genuine engine failure.
type EngineError struct {
	Op   string // Operation name, e.g. "context.init"
	Code int    // Engine specific code, 0 if unknown
	Err  error
}

func (e *EngineError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("audio engine: %s (code %d): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("audio engine: %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// NewEngineError wraps err as an EngineError for op.
func NewEngineError(op string, err error) *EngineError {
	return &EngineError{Op: op, Err: err}
}
