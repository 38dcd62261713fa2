package worksteal

import "errors"

var (
	// ErrDequeFull indicates a push onto a deque whose bottom index has
	// reached its capacity
	ErrDequeFull = errors.New("deque is full")

	// ErrFleetClosed indicates the fleet has been stopped
	ErrFleetClosed = errors.New("fleet is closed")

	// ErrInvalidWorker indicates a worker id outside [0, Size)
	ErrInvalidWorker = errors.New("invalid worker id")

	// ErrNilTask indicates a nil task was submitted
	ErrNilTask = errors.New("task is nil")

	// ErrNoCurrentTask indicates Spawn was called outside a running payload
	ErrNoCurrentTask = errors.New("no task is executing on this worker")

	// ErrTimeout indicates the operation timed out
	ErrTimeout = errors.New("operation timed out")
)
