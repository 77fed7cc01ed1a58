package queue

import (
	"sync/atomic"
	"time"
)

func read(c *atomic.Int64, reset bool) int64 {
	if reset {
		return c.Swap(0)
	}
	return c.Load()
}

// IncrementPendingAccesses records one pop attempt on the pending queue.
func (q *ThreadQueue) IncrementPendingAccesses() {
	q.pendingAccesses.Add(1)
}

// IncrementPendingMisses records one failed pop on the pending queue.
func (q *ThreadQueue) IncrementPendingMisses() {
	q.pendingMisses.Add(1)
}

// IncrementStolenFromPending records one thread extracted by a thief.
func (q *ThreadQueue) IncrementStolenFromPending() {
	q.stolenFromPending.Add(1)
}

// IncrementStolenToPending records one stolen thread admitted here.
func (q *ThreadQueue) IncrementStolenToPending() {
	q.stolenToPending.Add(1)
}

// IncrementStolenFromStaged records one staged thread extracted by a thief.
func (q *ThreadQueue) IncrementStolenFromStaged() {
	q.stolenFromStaged.Add(1)
}

// IncrementStolenToStaged records one stolen staged thread admitted here.
func (q *ThreadQueue) IncrementStolenToStaged() {
	q.stolenToStaged.Add(1)
}

// PendingAccesses returns the pop-attempt counter, clearing it when reset.
func (q *ThreadQueue) PendingAccesses(reset bool) int64 {
	return read(&q.pendingAccesses, reset)
}

// PendingMisses returns the failed-pop counter, clearing it when reset.
func (q *ThreadQueue) PendingMisses(reset bool) int64 {
	return read(&q.pendingMisses, reset)
}

// StolenFromPending returns how many threads thieves extracted from this
// queue, clearing the counter when reset.
func (q *ThreadQueue) StolenFromPending(reset bool) int64 {
	return read(&q.stolenFromPending, reset)
}

// StolenToPending returns how many stolen threads were admitted to this
// queue, clearing the counter when reset.
func (q *ThreadQueue) StolenToPending(reset bool) int64 {
	return read(&q.stolenToPending, reset)
}

// StolenFromStaged returns the staged-extraction counter, clearing it when
// reset.
func (q *ThreadQueue) StolenFromStaged(reset bool) int64 {
	return read(&q.stolenFromStaged, reset)
}

// StolenToStaged returns the staged-admission counter, clearing it when
// reset.
func (q *ThreadQueue) StolenToStaged(reset bool) int64 {
	return read(&q.stolenToStaged, reset)
}

// CreationTime returns accumulated thread creation time. Zero unless
// EnableTimings is set.
func (q *ThreadQueue) CreationTime(reset bool) time.Duration {
	return time.Duration(read(&q.creationTime, reset))
}

// CleanupTime returns accumulated terminated-cleanup time. Zero unless
// EnableTimings is set.
func (q *ThreadQueue) CleanupTime(reset bool) time.Duration {
	return time.Duration(read(&q.cleanupTime, reset))
}

// AverageWaitTime returns the mean pending-queue wait across popped
// threads. Zero unless EnableWaitTimes is set.
func (q *ThreadQueue) AverageWaitTime() time.Duration {
	count := q.waitCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(q.waitTime.Load() / count)
}
