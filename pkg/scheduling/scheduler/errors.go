package scheduler

import (
	"errors"
	"fmt"
)

// ErrUnknownPriority is returned when an operation receives the invalid
// priority tag. Recognized priorities all share the single internal queue;
// the invalid tag is rejected rather than coerced.
var ErrUnknownPriority = errors.New("unknown thread priority value")

// ErrWorkerOutOfRange is returned when a query names a worker index outside
// [0, W) and the operation defines no wrap-around.
var ErrWorkerOutOfRange = errors.New("worker index out of range")

// assertf panics when cond is false. Protocol invariant violations are
// implementation bugs and terminate instead of being returned.
func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic("scheduler: invariant violated: " + fmt.Sprintf(format, args...))
	}
}
