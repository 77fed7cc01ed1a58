// Package queue implements the per-worker thread container of the
// work-stealing scheduler.
//
// A ThreadQueue holds three logical sub-queues: pending threads ready to
// run, staged threads created but not yet admitted, and terminated threads
// awaiting reclamation. Admission, extraction, and reclamation are guarded
// by a single mutex; length reads use relaxed atomics so peers can probe a
// queue without contending on the lock.
package queue

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/gosteal/pkg/scheduling/thread"
)

// ErrThreadAborted is recorded on suspended threads force-terminated by
// AbortAllSuspended.
var ErrThreadAborted = errors.New("thread aborted")

// InitParameters tunes a ThreadQueue. The zero value selects defaults.
type InitParameters struct {
	// MaxDeleteCount bounds how many terminated threads one incremental
	// CleanupTerminated pass reclaims. Default 1000.
	MaxDeleteCount int

	// MaxTerminatedThreads is the terminated-list length beyond which
	// Destroy runs an incremental cleanup in place. Default 100.
	MaxTerminatedThreads int

	// EnableTimings accumulates thread creation and cleanup time.
	EnableTimings bool

	// EnableWaitTimes tracks how long threads wait in the pending queue.
	EnableWaitTimes bool
}

func (p InitParameters) withDefaults() InitParameters {
	if p.MaxDeleteCount <= 0 {
		p.MaxDeleteCount = 1000
	}
	if p.MaxTerminatedThreads <= 0 {
		p.MaxTerminatedThreads = 100
	}
	return p
}

// ThreadQueue is the run queue of one worker.
type ThreadQueue struct {
	worker int
	params InitParameters

	mu         sync.Mutex
	pending    []*thread.Thread
	staged     []*thread.Thread
	terminated []*thread.Thread
	threads    map[*thread.Thread]struct{}

	pendingLen atomic.Int64
	stagedLen  atomic.Int64

	pendingAccesses   atomic.Int64
	pendingMisses     atomic.Int64
	stolenFromPending atomic.Int64
	stolenToPending   atomic.Int64
	stolenFromStaged  atomic.Int64
	stolenToStaged    atomic.Int64

	creationTime atomic.Int64
	cleanupTime  atomic.Int64
	waitTime     atomic.Int64
	waitCount    atomic.Int64
}

// New creates the run queue for the given worker index.
func New(worker int, params InitParameters) *ThreadQueue {
	return &ThreadQueue{
		worker:  worker,
		params:  params.withDefaults(),
		threads: make(map[*thread.Thread]struct{}),
	}
}

// Worker returns the index of the owning worker.
func (q *ThreadQueue) Worker() int {
	return q.worker
}

// Create constructs a thread tracked by this queue. A pending thread with
// runNow set is admitted to the run queue immediately; a pending thread
// without runNow and a staged thread wait for the next WaitOrAddNew pass; a
// suspended thread is tracked but not queued.
func (q *ThreadQueue) Create(data thread.InitData, initial thread.State, runNow bool) (*thread.Thread, error) {
	var start time.Time
	if q.params.EnableTimings {
		start = time.Now()
	}

	switch initial {
	case thread.Pending, thread.Staged, thread.Suspended:
	default:
		return nil, fmt.Errorf("invalid initial thread state %q", initial)
	}

	state := initial
	if initial == thread.Pending && !runNow {
		state = thread.Staged
	}

	t := thread.New(data, state, q.worker)

	q.mu.Lock()
	q.threads[t] = struct{}{}
	switch state {
	case thread.Pending:
		q.appendPending(t)
	case thread.Staged:
		q.staged = append(q.staged, t)
		q.stagedLen.Add(1)
	}
	q.mu.Unlock()

	if q.params.EnableTimings {
		q.creationTime.Add(int64(time.Since(start)))
	}
	return t, nil
}

// Schedule admits a thread to the pending queue. Threads are appended at
// the tail so that service order follows admission order; pushBack marks
// re-admission of stolen threads, which preserves the order they were
// extracted in.
func (q *ThreadQueue) Schedule(t *thread.Thread, pushBack bool) {
	_ = pushBack
	q.mu.Lock()
	t.SetState(thread.Pending)
	q.appendPending(t)
	q.mu.Unlock()
}

// Track registers a thread whose lifetime this queue should own without
// admitting it. The scheduler does not call it: stolen threads stay tracked
// by the queue that created them.
func (q *ThreadQueue) Track(t *thread.Thread) {
	q.mu.Lock()
	q.threads[t] = struct{}{}
	q.mu.Unlock()
}

func (q *ThreadQueue) appendPending(t *thread.Thread) {
	if q.params.EnableWaitTimes {
		t.MarkEnqueued(time.Now().UnixNano())
	}
	q.pending = append(q.pending, t)
	q.pendingLen.Add(1)
}

// GetNext pops one pending thread in FIFO order. The stealing flags mark
// extraction on behalf of the stealing path; bookkeeping for those draws is
// done by the caller.
func (q *ThreadQueue) GetNext(allowStealingSource, allowStealingPeer bool) (*thread.Thread, bool) {
	_ = allowStealingSource
	_ = allowStealingPeer

	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return nil, false
	}
	t := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.pendingLen.Add(-1)
	q.mu.Unlock()

	if q.params.EnableWaitTimes {
		if enq := t.EnqueuedNanos(); enq != 0 {
			q.waitTime.Add(time.Now().UnixNano() - enq)
			q.waitCount.Add(1)
		}
	}
	return t, true
}

// PendingLength returns the approximate pending queue length. The value is
// read without the queue lock and is advisory.
func (q *ThreadQueue) PendingLength() int64 {
	return q.pendingLen.Load()
}

// StagedLength returns the approximate staged queue length.
func (q *ThreadQueue) StagedLength() int64 {
	return q.stagedLen.Load()
}

// QueueLength returns pending plus staged work.
func (q *ThreadQueue) QueueLength() int64 {
	return q.pendingLen.Load() + q.stagedLen.Load()
}

// WaitOrAddNew admits all staged threads to the pending queue and returns
// how many were added. It reports terminate when the worker should shut
// down: running is false and neither pending nor staged work remains.
func (q *ThreadQueue) WaitOrAddNew(running bool) (added int64, terminate bool) {
	q.mu.Lock()
	for _, t := range q.staged {
		t.SetState(thread.Pending)
		q.appendPending(t)
		added++
	}
	q.staged = q.staged[:0]
	q.stagedLen.Store(0)
	empty := len(q.pending) == 0
	q.mu.Unlock()

	if added != 0 {
		return added, false
	}
	if running {
		return 0, false
	}
	return 0, empty
}

// Destroy moves a terminated thread onto the reclamation list. Once the
// list outgrows MaxTerminatedThreads an incremental cleanup runs in place.
func (q *ThreadQueue) Destroy(t *thread.Thread) {
	q.mu.Lock()
	t.SetState(thread.Terminated)
	q.terminated = append(q.terminated, t)
	if len(q.terminated) > q.params.MaxTerminatedThreads {
		q.cleanupLocked(q.params.MaxDeleteCount)
	}
	q.mu.Unlock()
}

// TerminatedLength returns the size of the reclamation list.
func (q *ThreadQueue) TerminatedLength() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.terminated)
}

// CleanupTerminated reclaims terminated threads. When deleteAll is false,
// at most MaxDeleteCount threads are reclaimed per call. It reports whether
// the terminated list is empty afterwards.
func (q *ThreadQueue) CleanupTerminated(deleteAll bool) bool {
	var start time.Time
	if q.params.EnableTimings {
		start = time.Now()
	}

	q.mu.Lock()
	limit := -1
	if !deleteAll {
		limit = q.params.MaxDeleteCount
	}
	empty := q.cleanupLocked(limit)
	q.mu.Unlock()

	if q.params.EnableTimings {
		q.cleanupTime.Add(int64(time.Since(start)))
	}
	return empty
}

// cleanupLocked reclaims up to limit terminated threads (all of them when
// limit is negative), reporting whether the list is empty afterwards. The
// caller holds the queue mutex.
func (q *ThreadQueue) cleanupLocked(limit int) bool {
	n := len(q.terminated)
	if limit >= 0 && n > limit {
		n = limit
	}
	for i := 0; i < n; i++ {
		delete(q.threads, q.terminated[i])
		q.terminated[i] = nil
	}
	q.terminated = q.terminated[n:]
	return len(q.terminated) == 0
}

// AbortAllSuspended transitions every suspended thread to Terminated with
// ErrThreadAborted recorded and queues it for reclamation.
func (q *ThreadQueue) AbortAllSuspended() {
	q.mu.Lock()
	for t := range q.threads {
		if t.CasState(thread.Suspended, thread.Terminated) {
			t.SetAbortError(ErrThreadAborted)
			q.terminated = append(q.terminated, t)
		}
	}
	q.mu.Unlock()
}

// ThreadCount returns the number of tracked threads in the given state.
// thread.Unknown counts every tracked thread.
func (q *ThreadQueue) ThreadCount(state thread.State) int64 {
	switch state {
	case thread.Unknown:
		q.mu.Lock()
		defer q.mu.Unlock()
		return int64(len(q.threads))
	case thread.Pending:
		return q.pendingLen.Load()
	case thread.Staged:
		return q.stagedLen.Load()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	var count int64
	for t := range q.threads {
		if t.State() == state {
			count++
		}
	}
	return count
}

// Enumerate calls f for every tracked thread in the given state, stopping
// early when f returns false. It reports whether the enumeration ran to
// completion. The queue lock is not held while f runs.
func (q *ThreadQueue) Enumerate(f func(*thread.Thread) bool, state thread.State) bool {
	q.mu.Lock()
	snapshot := make([]*thread.Thread, 0, len(q.threads))
	for t := range q.threads {
		if state == thread.Unknown || t.State() == state {
			snapshot = append(snapshot, t)
		}
	}
	q.mu.Unlock()

	for _, t := range snapshot {
		if !f(t) {
			return false
		}
	}
	return true
}

// SuspendedOnly reports whether the queue tracks at least one live thread
// and every live thread is suspended. Used by deadlock detection.
func (q *ThreadQueue) SuspendedOnly() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	live := 0
	for t := range q.threads {
		switch t.State() {
		case thread.Suspended:
			live++
		case thread.Terminated:
		default:
			return false
		}
	}
	return live > 0
}

// OnStart is invoked when the owning worker enters its scheduling loop.
func (q *ThreadQueue) OnStart(worker int) {
	_ = worker
}

// OnStop is invoked when the owning worker leaves its scheduling loop.
func (q *ThreadQueue) OnStop(worker int) {
	_ = worker
}

// OnError is invoked when the owning worker's loop failed.
func (q *ThreadQueue) OnError(worker int, err error) {
	_, _ = worker, err
}
