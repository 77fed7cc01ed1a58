/*
Package scheduling provides the building blocks of the gosteal work-stealing
runtime.

The components, from the bottom up:

  - mask: fixed-width bitset over processing-unit indices
  - channel: bounded non-blocking SPSC and MPSC message channels
  - thread: the task handle with its states, priorities, and hints
  - queue: the per-worker pending/staged/terminated container
  - scheduler: the work-stealing core and its steal-request protocol
  - workerpool: pinned OS-thread loops driving the scheduler
  - timed: delayed, repeating, and cron-based thread admission

Scheduler:

The scheduler routes threads to per-worker queues and moves work between
workers through circulating steal requests:

	sched := scheduler.New(4)
	sched.CreateThread(thread.InitData{Func: body}, thread.Pending, true)

Worker pool:

The pool owns the worker loops and executes thread bodies:

	pool := workerpool.New(4)
	pool.Start()
	pool.Submit(body)
	<-pool.Stop()

Timed admission:

	t := timed.New(pool.Scheduler())
	t.ScheduleCron("rollup", "0 0 * * * *", body)
	t.Start()

All components are safe for concurrent use under the ownership rules
documented in their packages.
*/
package scheduling
