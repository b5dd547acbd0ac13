package wave

import "errors"

var (
	// ErrInvalidInput reports an unusable request: an empty channel set,
	// a non-positive pulse count, or a malformed limit. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCapacityExceeded reports a repeat count beyond what the engine's
	// loop instructions can express. The caller must split the request
	// into a shorter window or fewer cycles.
	ErrCapacityExceeded = errors.New("hardware capacity exceeded")

	// ErrHardware reports an engine upload, create, or submit failure.
	// Partially-created handles have already been rolled back when this
	// is returned.
	ErrHardware = errors.New("hardware resource failure")
)

// RunResult reports how a playback run ended.
type RunResult uint8

const (
	// RunCompleted means the engine played the full program.
	RunCompleted RunResult = iota

	// RunStopped means Stop was called (or the context canceled) before
	// playback finished. Stopping is not an error.
	RunStopped
)

func (r RunResult) String() string {
	switch r {
	case RunCompleted:
		return "completed"
	case RunStopped:
		return "stopped"
	}
	return "unknown"
}
