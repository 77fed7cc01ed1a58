// Package thread defines the lightweight task handle managed by the
// work-stealing scheduler, together with its states, priorities, and
// schedule hints.
package thread

import (
	"context"
	"sync/atomic"
)

// State describes the lifecycle position of a thread.
type State int32

const (
	// Unknown matches any state in queries.
	Unknown State = iota
	// Active means the thread is currently executing on a worker.
	Active
	// Pending means the thread sits in a worker's run queue ready to execute.
	Pending
	// Suspended means the thread is parked and waits for an external resume.
	Suspended
	// Staged means the thread has been created but not yet admitted to a
	// run queue.
	Staged
	// Terminated means the thread has finished and awaits reclamation.
	Terminated
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Pending:
		return "pending"
	case Suspended:
		return "suspended"
	case Staged:
		return "staged"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Priority tags a thread for scheduling. This scheduler is single-priority
// internally: all recognized values share the worker's run queue. The tag is
// validated at the API boundary and preserved for introspection.
type Priority int

const (
	PriorityDefault Priority = iota
	PriorityLow
	PriorityNormal
	PriorityBoost
	PriorityHigh
	PriorityHighRecursive
	// PriorityUnknown is the invalid tag; operations reject it.
	PriorityUnknown
)

// Valid reports whether p is a recognized priority tag.
func (p Priority) Valid() bool {
	return p >= PriorityDefault && p < PriorityUnknown
}

// HintMode selects how a schedule hint is interpreted.
type HintMode int32

const (
	// HintNone lets the scheduler pick a worker round-robin.
	HintNone HintMode = iota
	// HintWorker pins the thread to the hinted worker index.
	HintWorker
)

// ScheduleHint routes a thread to a specific worker. The scheduler writes
// the chosen worker back into the thread's hint so that reschedules stay on
// the same worker.
type ScheduleHint struct {
	Mode   HintMode
	Worker int
}

// WorkerHint returns a hint pinning a thread to the given worker index.
func WorkerHint(worker int) ScheduleHint {
	return ScheduleHint{Mode: HintWorker, Worker: worker}
}

// Func is the body of a thread. It returns the state the thread should
// transition to: Terminated when done, Pending to yield and be rescheduled,
// or Suspended to park until resumed.
type Func func(ctx context.Context) State

// InitData bundles the construction parameters of a thread.
type InitData struct {
	// Func is the thread body. Required.
	Func Func

	// Description labels the thread in diagnostics.
	Description string

	// Priority tags the thread; PriorityDefault when zero.
	Priority Priority

	// Hint optionally routes the thread to a worker.
	Hint ScheduleHint
}

// Thread is the handle of one executable unit. The scheduler owns its queue
// membership; memory ownership stays with the queue that created it until
// the terminated list is drained.
type Thread struct {
	fn    Func
	desc  string
	prio  Priority
	state atomic.Int32

	// index of the worker whose queue tracks this thread's lifetime
	owner atomic.Int32

	hintMode   atomic.Int32
	hintWorker atomic.Int32

	// set when the thread is transitioned to Terminated by an abort
	abortErr atomic.Value

	// enqueue timestamp in nanoseconds, for wait-time telemetry
	enqueuedNanos atomic.Int64
}

// New creates a thread in the given initial state. The owner index is the
// worker whose queue will track the thread.
func New(data InitData, initial State, owner int) *Thread {
	t := &Thread{fn: data.Func, desc: data.Description, prio: data.Priority}
	t.state.Store(int32(initial))
	t.owner.Store(int32(owner))
	t.SetHint(data.Hint)
	return t
}

// Run executes the thread body and returns the requested next state.
// A thread without a body terminates immediately.
func (t *Thread) Run(ctx context.Context) State {
	if t.fn == nil {
		return Terminated
	}
	return t.fn(ctx)
}

// State returns the current lifecycle state.
func (t *Thread) State() State {
	return State(t.state.Load())
}

// SetState unconditionally transitions the thread. Intended for the
// scheduler runtime.
func (t *Thread) SetState(s State) {
	t.state.Store(int32(s))
}

// CasState transitions from old to new, reporting whether it won.
func (t *Thread) CasState(old, new State) bool {
	return t.state.CompareAndSwap(int32(old), int32(new))
}

// Owner returns the index of the worker whose queue tracks this thread.
func (t *Thread) Owner() int {
	return int(t.owner.Load())
}

// Hint returns the thread's current schedule hint.
func (t *Thread) Hint() ScheduleHint {
	return ScheduleHint{
		Mode:   HintMode(t.hintMode.Load()),
		Worker: int(t.hintWorker.Load()),
	}
}

// SetHint records the schedule hint, making worker placement sticky.
func (t *Thread) SetHint(h ScheduleHint) {
	t.hintMode.Store(int32(h.Mode))
	t.hintWorker.Store(int32(h.Worker))
}

// Description returns the diagnostic label given at creation.
func (t *Thread) Description() string {
	return t.desc
}

// Priority returns the priority tag given at creation.
func (t *Thread) Priority() Priority {
	return t.prio
}

// abortReason boxes the error so atomic.Value sees one concrete type.
type abortReason struct {
	err error
}

// SetAbortError records why the thread was force-terminated.
func (t *Thread) SetAbortError(err error) {
	if err != nil {
		t.abortErr.Store(abortReason{err: err})
	}
}

// AbortError returns the abort reason, or nil if the thread was not aborted.
func (t *Thread) AbortError() error {
	if r, ok := t.abortErr.Load().(abortReason); ok {
		return r.err
	}
	return nil
}

// MarkEnqueued stamps the thread with the current admission time.
func (t *Thread) MarkEnqueued(nanos int64) {
	t.enqueuedNanos.Store(nanos)
}

// EnqueuedNanos returns the last admission timestamp in nanoseconds.
func (t *Thread) EnqueuedNanos() int64 {
	return t.enqueuedNanos.Load()
}
