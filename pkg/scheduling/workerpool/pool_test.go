package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/gosteal/internal/testutil"
	"github.com/vnykmshr/gosteal/pkg/scheduling/scheduler"
	"github.com/vnykmshr/gosteal/pkg/scheduling/thread"
)

func TestNewPanicsOnBadWorkerCount(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	New(0)
}

func TestPoolExecutesTasks(t *testing.T) {
	pool := New(2)
	testutil.AssertNoError(t, pool.Start())

	var executed atomic.Int32
	const n = 50
	for i := 0; i < n; i++ {
		_, err := pool.Submit(func(ctx context.Context) thread.State {
			executed.Add(1)
			return thread.Terminated
		})
		testutil.AssertNoError(t, err)
	}

	testutil.Eventually(t, func() bool {
		return executed.Load() == n
	}, "all submitted threads executed")

	<-pool.Stop()
	testutil.AssertEqual(t, pool.Running(), false)
}

func TestPoolStealingDrainsOneWorkerQueue(t *testing.T) {
	pool := NewWithConfig(Config{WorkerCount: 4})
	testutil.AssertNoError(t, pool.Start())

	var executed atomic.Int32
	const n = 200
	for i := 0; i < n; i++ {
		_, err := pool.SubmitWithData(thread.InitData{
			Func: func(ctx context.Context) thread.State {
				executed.Add(1)
				return thread.Terminated
			},
			// everything lands on worker 0; thieves spread it out
			Hint: thread.WorkerHint(0),
		})
		testutil.AssertNoError(t, err)
	}

	testutil.Eventually(t, func() bool {
		return executed.Load() == n
	}, "pinned threads executed")

	<-pool.Stop()
}

func TestPoolYield(t *testing.T) {
	pool := New(1)
	testutil.AssertNoError(t, pool.Start())

	var runs atomic.Int32
	_, err := pool.Submit(func(ctx context.Context) thread.State {
		if runs.Add(1) < 5 {
			return thread.Pending
		}
		return thread.Terminated
	})
	testutil.AssertNoError(t, err)

	testutil.Eventually(t, func() bool {
		return runs.Load() == 5
	}, "yielding thread ran to completion")

	<-pool.Stop()
}

func TestPoolSuspendResume(t *testing.T) {
	pool := New(2)
	testutil.AssertNoError(t, pool.Start())

	var phase atomic.Int32
	th, err := pool.Submit(func(ctx context.Context) thread.State {
		if phase.Add(1) == 1 {
			return thread.Suspended
		}
		return thread.Terminated
	})
	testutil.AssertNoError(t, err)

	testutil.Eventually(t, func() bool {
		return th.State() == thread.Suspended
	}, "thread suspended")

	testutil.AssertNoError(t, pool.Resume(th))
	testutil.Eventually(t, func() bool {
		return th.State() == thread.Terminated
	}, "resumed thread terminated")

	// resuming a non-suspended thread fails
	testutil.AssertError(t, pool.Resume(th))

	<-pool.Stop()
}

func TestPoolAbortsSuspendedOnStop(t *testing.T) {
	pool := New(1)
	testutil.AssertNoError(t, pool.Start())

	th, err := pool.Submit(func(ctx context.Context) thread.State {
		return thread.Suspended
	})
	testutil.AssertNoError(t, err)

	testutil.Eventually(t, func() bool {
		return th.State() == thread.Suspended
	}, "thread suspended")

	<-pool.Stop()
	testutil.AssertEqual(t, th.State(), thread.Terminated)
	testutil.AssertError(t, th.AbortError())
}

func TestPoolPanicRecovery(t *testing.T) {
	pool := New(1)
	testutil.AssertNoError(t, pool.Start())

	th, err := pool.Submit(func(ctx context.Context) thread.State {
		panic("boom")
	})
	testutil.AssertNoError(t, err)

	testutil.Eventually(t, func() bool {
		return th.State() == thread.Terminated
	}, "panicked thread terminated")
	testutil.AssertError(t, th.AbortError())

	// the worker survives and keeps executing
	var executed atomic.Int32
	_, err = pool.Submit(func(ctx context.Context) thread.State {
		executed.Add(1)
		return thread.Terminated
	})
	testutil.AssertNoError(t, err)
	testutil.Eventually(t, func() bool {
		return executed.Load() == 1
	}, "worker survived panic")

	<-pool.Stop()
}

func TestPoolLifecycleErrors(t *testing.T) {
	pool := New(1)
	testutil.AssertNoError(t, pool.Start())
	testutil.AssertError(t, pool.Start())

	<-pool.Stop()
	<-pool.Stop() // repeated stop closes immediately

	_, err := pool.Submit(func(ctx context.Context) thread.State {
		return thread.Terminated
	})
	testutil.AssertError(t, err)
}

func TestPoolSubmitValidation(t *testing.T) {
	pool := New(1)
	testutil.AssertNoError(t, pool.Start())
	defer func() { <-pool.Stop() }()

	_, err := pool.Submit(nil)
	testutil.AssertError(t, err)
}

func TestPoolWorkerCallbacks(t *testing.T) {
	var started, stopped atomic.Int32
	pool := NewWithConfig(Config{
		WorkerCount:   3,
		OnWorkerStart: func(int) { started.Add(1) },
		OnWorkerStop:  func(int) { stopped.Add(1) },
		IdleSleep:     time.Millisecond,
	})

	testutil.AssertNoError(t, pool.Start())
	testutil.Eventually(t, func() bool {
		return started.Load() == 3
	}, "all workers started")

	<-pool.Stop()
	testutil.AssertEqual(t, stopped.Load(), int32(3))
	testutil.AssertEqual(t, pool.Workers(), 3)
}

func TestPoolStealCountersConserved(t *testing.T) {
	pool := NewWithConfig(Config{WorkerCount: 4, EnableLastVictim: true})
	testutil.AssertNoError(t, pool.Start())

	var executed atomic.Int32
	const n = 500
	for i := 0; i < n; i++ {
		_, err := pool.SubmitWithData(thread.InitData{
			Func: func(ctx context.Context) thread.State {
				executed.Add(1)
				return thread.Terminated
			},
			Hint: thread.WorkerHint(0),
		})
		testutil.AssertNoError(t, err)
	}

	testutil.Eventually(t, func() bool {
		return executed.Load() == n
	}, "threads executed")
	<-pool.Stop()

	s := pool.Scheduler()
	from, err := s.StolenFromPending(scheduler.AllWorkers, false)
	testutil.AssertNoError(t, err)
	to, err := s.StolenToPending(scheduler.AllWorkers, false)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, from, to)
}
