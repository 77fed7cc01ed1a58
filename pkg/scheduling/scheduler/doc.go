/*
Package scheduler implements a per-core work-stealing task scheduler.

Every worker owns a private run queue. Idle workers acquire work by sending
a steal request into a victim's request channel; the victim either answers
with up to half of its pending threads over the request's reply channel, or
forwards the request to another worker. A request tours at most W-1 workers
before returning to its originator, and each worker keeps at most one
request in flight.

The scheduler is passive: it never blocks and never spawns goroutines. A
host runtime drives each worker in a loop of GetNextThread, task execution,
and WaitOrAddNew. The workerpool package provides such a loop.

Basic usage:

	sched := scheduler.New(4)
	for w := 0; w < 4; w++ {
		sched.OnStartThread(w)
	}

	body := func(ctx context.Context) thread.State {
		// do work
		return thread.Terminated
	}
	sched.CreateThread(thread.InitData{Func: body}, thread.Pending, true)

	// inside worker w's loop:
	if t, ok := sched.GetNextThread(w, true, true); ok {
		t.SetState(thread.Active)
		next := t.Run(ctx)
		// handle next state
	} else {
		added, next, terminate := sched.WaitOrAddNew(w, running, &idleLoops, true)
		// ...
	}

Counter accessors follow a (worker, reset) convention: passing AllWorkers
aggregates over every queue, and reset atomically clears what was read.
*/
package scheduler
