package scheduler

import (
	"github.com/vnykmshr/gosteal/pkg/scheduling/channel"
	"github.com/vnykmshr/gosteal/pkg/scheduling/mask"
	"github.com/vnykmshr/gosteal/pkg/scheduling/thread"
)

// stealState tracks what a circulating request knows about its originator.
type stealState uint8

const (
	// stealWorking: the originator still had work when the request left.
	stealWorking stealState = iota
	// stealIdle: the originator had nothing to run.
	stealIdle
	// stealFailed: the request gave up; it is swallowed at the originator.
	stealFailed
)

// stealRequest circulates between workers until a victim satisfies it or
// it returns home. At most one channel holds a given request at a time.
type stealRequest struct {
	// originating worker
	from int

	// the originator's reply channel
	reply *channel.SPSC[taskData]

	// workers already asked on this tour, including the originator
	victims mask.Mask

	// number of forwards performed; capped at W-1
	attempt int

	state stealState
}

// taskData is the batch of threads a victim sends back to a thief.
type taskData struct {
	// worker the batch originated from, recorded as the thief's last victim
	from int

	tasks []*thread.Thread
}

// tryReceivingStealRequest retrieves the next viable steal request from the
// worker's own channel. Failed requests are our own: they are forgotten and
// the outstanding count is cleared.
func (d *workerData) tryReceivingStealRequest(req *stealRequest) bool {
	ok := d.requests.Get(req)
	for ok && req.state == stealFailed {
		assertf(req.from == d.num, "failed request from %d drained by %d", req.from, d.num)
		prev := d.requested.Swap(0)
		assertf(prev == 1, "worker %d cleared outstanding twice", d.num)

		ok = d.requests.Get(req)
	}
	return ok
}

// sendStealRequest emits one steal request when none is outstanding. The
// request starts with this worker's affinity mask as its visited set and
// carries whether the worker is idle.
func (s *Scheduler) sendStealRequest(d *workerData, idle bool) {
	if !d.requested.CompareAndSwap(0, 1) {
		return
	}

	state := stealWorking
	if idle {
		state = stealIdle
	}
	req := stealRequest{
		from:    d.num,
		reply:   d.tasks,
		victims: d.victims.Clone(),
		state:   state,
	}

	victim := s.nextVictim(d, &req)
	if victim == req.from {
		// nobody left to ask; the request comes straight home
		req.state = stealFailed
	}
	s.forward(d, victim, req)
}

// declineOrForwardStealRequest passes a request on to another worker, or
// settles it when it has arrived back home. It reports whether the request
// was our own.
func (s *Scheduler) declineOrForwardStealRequest(d *workerData, req stealRequest) bool {
	assertf(req.attempt < s.workerCount, "request attempt %d reached worker count %d", req.attempt, s.workerCount)

	if req.from == d.num {
		// the request was either returned by another worker or picked up
		// by us
		if d.queue.PendingLength() > 0 || req.state == stealIdle {
			// we have work now, or the idle request's tour is over: drop it
			d.discarded.Add(1)
			prev := d.requested.Swap(0)
			assertf(prev == 1, "worker %d discarded a request it never sent", d.num)
			return true
		}

		// keep the request circulating on a fresh tour
		req.attempt = 0
		req.state = stealIdle
		req.victims = d.victims.Clone()

		victim := s.nextVictim(d, &req)
		if victim == req.from {
			req.state = stealFailed
		}
		s.forward(d, victim, req)
		return true
	}

	// pass it on to the next victim; don't ask a worker twice
	req.attempt++
	req.victims.Set(d.num)

	victim := s.nextVictim(d, &req)
	s.forward(d, victim, req)
	return false
}

// forward places the request into the victim's channel. The channel is
// sized so this cannot fail under the protocol invariants.
func (s *Scheduler) forward(d *workerData, victim int, req stealRequest) {
	target := s.worker(victim)
	assertf(target.requests.Set(req), "request channel of worker %d full", victim)
	d.sent.Add(1)
}

// handleAllStealRequests drains and handles every queued request. Peer
// requests are satisfied when pending work allows it; with an empty queue
// this degrades to relaying each request onward. A worker's own request
// never satisfies here because it only returns home when work ran out.
func (s *Scheduler) handleAllStealRequests(d *workerData) {
	var req stealRequest
	for d.tryReceivingStealRequest(&req) {
		s.handleStealRequest(d, req)
	}
}

// handleStealRequest satisfies a request with up to half of the pending
// queue, or forwards it when there is nothing to give. It reports whether
// the request was satisfied.
func (s *Scheduler) handleStealRequest(d *workerData, req stealRequest) bool {
	d.received.Add(1)

	if req.from == d.num {
		// got back our own steal request
		assertf(req.state != stealFailed, "failed request reached handler on worker %d", d.num)
		s.declineOrForwardStealRequest(d, req)
		return false
	}

	// never send more than half of the available pending threads
	maxSteal := d.queue.PendingLength() / 2
	if maxSteal != 0 {
		tasks := make([]*thread.Thread, 0, maxSteal)
		for int64(len(tasks)) < maxSteal {
			t, ok := d.queue.GetNext(true, true)
			if !ok {
				break
			}
			d.queue.IncrementStolenFromPending()
			tasks = append(tasks, t)
		}

		if len(tasks) > 0 {
			assertf(req.reply.Set(taskData{from: d.num, tasks: tasks}),
				"reply channel of worker %d full", req.from)
			return true
		}
	}

	// nothing to give; keep the request moving
	s.declineOrForwardStealRequest(d, req)
	return false
}

// tryReceivingTasks collects the reply to this worker's outstanding steal
// request. All received threads except the last are admitted at the tail of
// the queue; the last is returned directly when wantNext is set so the
// worker can run it immediately.
func (s *Scheduler) tryReceivingTasks(d *workerData, wantNext bool) (added int64, next *thread.Thread, ok bool) {
	var batch taskData
	if !d.tasks.Get(&batch) {
		return 0, nil, false
	}

	prev := d.requested.Swap(0)
	assertf(prev == 1, "worker %d received tasks without an outstanding request", d.num)

	if len(batch.tasks) == 0 {
		return 0, nil, false
	}

	for _, t := range batch.tasks[:len(batch.tasks)-1] {
		d.queue.Schedule(t, true)
		d.queue.IncrementStolenToPending()
		added++
	}

	if s.enableLastVictim {
		assertf(batch.from != d.num, "worker %d stole from itself", d.num)
		d.lastVictim.Store(int32(batch.from))
	}

	last := batch.tasks[len(batch.tasks)-1]
	if wantNext {
		next = last
	} else {
		d.queue.Schedule(last, true)
		added++
	}
	d.queue.IncrementStolenToPending()

	return added, next, true
}
