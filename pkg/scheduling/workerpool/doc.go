/*
Package workerpool runs the worker loops that drive a work-stealing
scheduler.

Each worker is a goroutine locked to an OS thread, optionally pinned to its
processing unit, that repeatedly pops a thread from its own queue, executes
it, and falls back to the steal protocol when the queue runs dry. The pool
owns worker lifecycle only; scheduling policy lives in the scheduler
package.

Basic usage:

	pool := workerpool.New(4)
	if err := pool.Start(); err != nil {
		log.Fatal(err)
	}

	pool.Submit(func(ctx context.Context) thread.State {
		// do work
		return thread.Terminated
	})

	<-pool.Stop()

A thread body returns its next state: Terminated when done, Pending to
yield and run again later, or Suspended to park until Resume is called.
*/
package workerpool
