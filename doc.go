/*
Package gosteal provides a per-core work-stealing task runtime for Go
applications.

Worker threads pinned to processing units each own a private run queue of
lightweight tasks. Idle workers acquire work from busy peers by circulating
steal-request messages through per-worker channels and receive stolen task
batches through per-request reply channels.

Components:

Scheduling (pkg/scheduling):
  - scheduler: Work-stealing core, steal-request protocol, counters
  - workerpool: Pinned worker loops driving the scheduler
  - timed: Delayed, interval, and cron thread admission
  - queue, channel, mask, thread: Supporting primitives

Platform (pkg/affinity):
  - PU topology, active-PU selection, OS-thread pinning

Observability (pkg/metrics, pkg/export):
  - metrics: Prometheus instrumentation
  - export: Counter snapshots published to Redis

Example usage:

	import (
		"github.com/vnykmshr/gosteal/pkg/scheduling/thread"
		"github.com/vnykmshr/gosteal/pkg/scheduling/workerpool"
	)

	pool := workerpool.NewWithConfig(workerpool.Config{
		WorkerCount: 4,
		PinWorkers:  true,
	})
	pool.Start()

	pool.Submit(func(ctx context.Context) thread.State {
		// do work
		return thread.Terminated
	})

	<-pool.Stop()
*/
package gosteal
