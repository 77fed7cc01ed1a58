package scheduler

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/gosteal/pkg/scheduling/queue"
)

// PendingAccesses returns the pop-attempt count of one worker's queue, or
// of all queues when AllWorkers is passed. reset atomically clears what was
// read.
func (s *Scheduler) PendingAccesses(worker int, reset bool) (int64, error) {
	return s.sumQueues(worker, func(q *queue.ThreadQueue) int64 {
		return q.PendingAccesses(reset)
	})
}

// PendingMisses returns the failed-pop count.
func (s *Scheduler) PendingMisses(worker int, reset bool) (int64, error) {
	return s.sumQueues(worker, func(q *queue.ThreadQueue) int64 {
		return q.PendingMisses(reset)
	})
}

// StolenFromPending returns how many threads thieves extracted.
func (s *Scheduler) StolenFromPending(worker int, reset bool) (int64, error) {
	return s.sumQueues(worker, func(q *queue.ThreadQueue) int64 {
		return q.StolenFromPending(reset)
	})
}

// StolenToPending returns how many stolen threads were admitted.
func (s *Scheduler) StolenToPending(worker int, reset bool) (int64, error) {
	return s.sumQueues(worker, func(q *queue.ThreadQueue) int64 {
		return q.StolenToPending(reset)
	})
}

// StolenFromStaged returns how many staged threads thieves extracted.
func (s *Scheduler) StolenFromStaged(worker int, reset bool) (int64, error) {
	return s.sumQueues(worker, func(q *queue.ThreadQueue) int64 {
		return q.StolenFromStaged(reset)
	})
}

// StolenToStaged returns how many stolen staged threads were admitted.
func (s *Scheduler) StolenToStaged(worker int, reset bool) (int64, error) {
	return s.sumQueues(worker, func(q *queue.ThreadQueue) int64 {
		return q.StolenToStaged(reset)
	})
}

// CreationTime returns accumulated thread creation time. Zero unless the
// queue was initialized with EnableTimings.
func (s *Scheduler) CreationTime(worker int, reset bool) (time.Duration, error) {
	n, err := s.sumQueues(worker, func(q *queue.ThreadQueue) int64 {
		return int64(q.CreationTime(reset))
	})
	return time.Duration(n), err
}

// CleanupTime returns accumulated terminated-cleanup time.
func (s *Scheduler) CleanupTime(worker int, reset bool) (time.Duration, error) {
	n, err := s.sumQueues(worker, func(q *queue.ThreadQueue) int64 {
		return int64(q.CleanupTime(reset))
	})
	return time.Duration(n), err
}

// AverageThreadWaitTime returns the mean pending-queue wait, averaged over
// the addressed workers. Zero unless EnableWaitTimes is set.
func (s *Scheduler) AverageThreadWaitTime(worker int) (time.Duration, error) {
	if worker == AllWorkers {
		var total time.Duration
		for i := range s.data {
			total += s.worker(i).queue.AverageWaitTime()
		}
		return total / time.Duration(s.workerCount), nil
	}
	if worker < 0 || worker >= s.workerCount {
		return 0, fmt.Errorf("%w: %d", ErrWorkerOutOfRange, worker)
	}
	return s.worker(worker).queue.AverageWaitTime(), nil
}

func readCounter(c *atomic.Int64, reset bool) int64 {
	if reset {
		return c.Swap(0)
	}
	return c.Load()
}

func (s *Scheduler) sumSlots(worker int, f func(d *workerData) int64) (int64, error) {
	if worker == AllWorkers {
		var total int64
		for i := range s.data {
			total += f(s.worker(i))
		}
		return total, nil
	}
	if worker < 0 || worker >= s.workerCount {
		return 0, fmt.Errorf("%w: %d", ErrWorkerOutOfRange, worker)
	}
	return f(s.worker(worker)), nil
}

// StealRequestsSent returns how many requests the addressed workers have
// forwarded or emitted.
func (s *Scheduler) StealRequestsSent(worker int, reset bool) (int64, error) {
	return s.sumSlots(worker, func(d *workerData) int64 {
		return readCounter(&d.sent, reset)
	})
}

// StealRequestsReceived returns how many requests the addressed workers
// have drained from their channels.
func (s *Scheduler) StealRequestsReceived(worker int, reset bool) (int64, error) {
	return s.sumSlots(worker, func(d *workerData) int64 {
		return readCounter(&d.received, reset)
	})
}

// StealRequestsDiscarded returns how many of their own requests the
// addressed workers have dropped after the tour came home.
func (s *Scheduler) StealRequestsDiscarded(worker int, reset bool) (int64, error) {
	return s.sumSlots(worker, func(d *workerData) int64 {
		return readCounter(&d.discarded, reset)
	})
}

// CounterSnapshot is a point-in-time view of one worker's counters.
type CounterSnapshot struct {
	Worker int

	PendingLength int64
	StagedLength  int64

	PendingAccesses int64
	PendingMisses   int64

	StolenFromPending int64
	StolenToPending   int64
	StolenFromStaged  int64
	StolenToStaged    int64

	StealRequestsSent      int64
	StealRequestsReceived  int64
	StealRequestsDiscarded int64
}

// Snapshot reads every worker's counters without resetting them.
func (s *Scheduler) Snapshot() []CounterSnapshot {
	out := make([]CounterSnapshot, s.workerCount)
	for i := range s.data {
		d := s.worker(i)
		out[i] = CounterSnapshot{
			Worker:                 i,
			PendingLength:          d.queue.PendingLength(),
			StagedLength:           d.queue.StagedLength(),
			PendingAccesses:        d.queue.PendingAccesses(false),
			PendingMisses:          d.queue.PendingMisses(false),
			StolenFromPending:      d.queue.StolenFromPending(false),
			StolenToPending:        d.queue.StolenToPending(false),
			StolenFromStaged:       d.queue.StolenFromStaged(false),
			StolenToStaged:         d.queue.StolenToStaged(false),
			StealRequestsSent:      d.sent.Load(),
			StealRequestsReceived:  d.received.Load(),
			StealRequestsDiscarded: d.discarded.Load(),
		}
	}
	return out
}
