package workerpool

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vnykmshr/gosteal/pkg/affinity"
	"github.com/vnykmshr/gosteal/pkg/metrics"
	"github.com/vnykmshr/gosteal/pkg/scheduling/queue"
	"github.com/vnykmshr/gosteal/pkg/scheduling/scheduler"
	"github.com/vnykmshr/gosteal/pkg/scheduling/thread"
)

// Config holds configuration options for creating a pool.
type Config struct {
	// WorkerCount is the number of workers. Must be greater than 0.
	WorkerCount int

	// Scheduler optionally supplies an externally built scheduler. When
	// nil the pool builds one over WorkerCount workers.
	Scheduler *scheduler.Scheduler

	// QueueInit tunes the per-worker queues of a pool-built scheduler.
	QueueInit queue.InitParameters

	// PinWorkers binds each worker's OS thread to its processing unit.
	PinWorkers bool

	// DisableStealing turns the steal protocol off; workers only run
	// threads admitted to their own queue.
	DisableStealing bool

	// EnableLastVictim biases a pool-built scheduler toward the worker
	// that most recently supplied stolen work.
	EnableLastVictim bool

	// IdleSleep is how long an idle worker sleeps between scheduling
	// attempts. Zero yields the processor instead.
	IdleSleep time.Duration

	// Logger receives pool diagnostics. The zero value discards them.
	Logger zerolog.Logger

	// Name labels the pool in metrics. Defaults to "default".
	Name string

	// Metrics enables Prometheus instrumentation.
	Metrics metrics.Config

	// OnWorkerStart is called when a worker starts, before its first
	// scheduling attempt.
	OnWorkerStart func(worker int)

	// OnWorkerStop is called when a worker stops.
	OnWorkerStop func(worker int)
}

// Pool drives one worker loop per scheduler worker.
type Pool struct {
	cfg   Config
	sched *scheduler.Scheduler
	log   zerolog.Logger

	name     string
	registry *metrics.Registry

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a pool with the given number of workers and default
// configuration.
func New(workerCount int) *Pool {
	return NewWithConfig(Config{WorkerCount: workerCount})
}

// NewWithConfig creates a pool from cfg. It panics when the worker count is
// not positive and no scheduler is supplied.
func NewWithConfig(cfg Config) *Pool {
	sched := cfg.Scheduler
	if sched == nil {
		if cfg.WorkerCount <= 0 {
			panic("workerpool: worker count must be positive")
		}
		sched = scheduler.NewWithConfig(scheduler.Config{
			WorkerCount:      cfg.WorkerCount,
			QueueInit:        cfg.QueueInit,
			EnableLastVictim: cfg.EnableLastVictim,
			Logger:           cfg.Logger,
		})
	}
	cfg.WorkerCount = sched.WorkerCount()

	name := cfg.Name
	if name == "" {
		name = "default"
	}

	var registry *metrics.Registry
	if cfg.Metrics.Enabled {
		registry = metrics.DefaultRegistry
		if cfg.Metrics.Registry != nil {
			registry = metrics.NewRegistry(cfg.Metrics.Registry)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		cfg:      cfg,
		sched:    sched,
		log:      cfg.Logger,
		name:     name,
		registry: registry,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Scheduler returns the scheduler the pool drives.
func (p *Pool) Scheduler() *scheduler.Scheduler {
	return p.sched
}

// Workers returns the number of workers.
func (p *Pool) Workers() int {
	return p.cfg.WorkerCount
}

// Running reports whether the pool accepts and executes work.
func (p *Pool) Running() bool {
	return p.running.Load()
}

// Start launches the worker loops. A pool can be started once.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("pool already started, call Stop() first")
	}
	p.started = true
	p.running.Store(true)

	if p.registry != nil {
		p.registry.WorkerPoolSize.WithLabelValues(p.name).Set(float64(p.cfg.WorkerCount))
		p.registry.WorkerPoolRunning.WithLabelValues(p.name).Set(1)
	}

	for w := 0; w < p.cfg.WorkerCount; w++ {
		p.wg.Add(1)
		go p.run(w)
	}
	return nil
}

// Stop initiates a graceful shutdown: workers drain their queues, exit,
// remaining suspended threads are aborted, and terminated threads are
// reclaimed. The returned channel closes when shutdown is complete.
func (p *Pool) Stop() <-chan struct{} {
	done := make(chan struct{})

	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		close(done)
		return done
	}
	p.stopped = true
	p.mu.Unlock()

	p.running.Store(false)

	go func() {
		defer close(done)
		p.wg.Wait()
		p.cancel()

		p.sched.AbortAllSuspendedThreads()
		p.sched.CleanupTerminated(true)

		if p.registry != nil {
			p.registry.WorkerPoolRunning.WithLabelValues(p.name).Set(0)
		}
	}()
	return done
}

// Submit creates a runnable thread for fn, placed round-robin across the
// workers.
func (p *Pool) Submit(fn thread.Func) (*thread.Thread, error) {
	return p.SubmitWithData(thread.InitData{Func: fn})
}

// SubmitWithData creates a runnable thread from the full init bundle.
func (p *Pool) SubmitWithData(data thread.InitData) (*thread.Thread, error) {
	if data.Func == nil {
		return nil, fmt.Errorf("thread function cannot be nil")
	}
	if !p.running.Load() {
		return nil, fmt.Errorf("cannot submit thread: pool is not running")
	}
	return p.sched.CreateThread(data, thread.Pending, true)
}

// Resume wakes a suspended thread and re-admits it to its sticky worker.
func (p *Pool) Resume(t *thread.Thread) error {
	if !t.CasState(thread.Suspended, thread.Pending) {
		return fmt.Errorf("thread is not suspended (state %v)", t.State())
	}
	return p.sched.ScheduleThread(t, t.Hint(), true, thread.PriorityNormal)
}

// run is the main loop for a worker.
func (p *Pool) run(w int) {
	defer p.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if p.cfg.PinWorkers {
		if err := affinity.Pin(w); err != nil {
			p.log.Warn().Int("worker", w).Err(err).Msg("failed to pin worker")
		} else {
			defer func() {
				if err := affinity.Unpin(); err != nil {
					p.log.Warn().Int("worker", w).Err(err).Msg("failed to unpin worker")
				}
			}()
		}
	}

	p.sched.OnStartThread(w)
	p.log.Debug().Int("worker", w).Msg("worker started")

	if cb := p.cfg.OnWorkerStart; cb != nil {
		cb(w)
	}
	defer func() {
		if cb := p.cfg.OnWorkerStop; cb != nil {
			cb(w)
		}
		p.sched.OnStopThread(w)
		p.log.Debug().Int("worker", w).Msg("worker stopped")
	}()

	stealing := !p.cfg.DisableStealing
	var idleLoops int64

	for {
		running := p.running.Load()

		t, ok := p.sched.GetNextThread(w, running, stealing)
		if !ok {
			added, next, terminate := p.sched.WaitOrAddNew(w, running, &idleLoops, stealing)
			if next != nil {
				t, ok = next, true
			} else if added == 0 {
				if terminate {
					return
				}
				idleLoops++
				if p.cfg.IdleSleep > 0 {
					time.Sleep(p.cfg.IdleSleep)
				} else {
					runtime.Gosched()
				}
				continue
			} else {
				continue
			}
		}

		idleLoops = 0
		p.execute(w, t)
	}
}

// execute runs one thread and routes it to its next state.
func (p *Pool) execute(w int, t *thread.Thread) {
	t.SetState(thread.Active)

	var start time.Time
	if p.registry != nil {
		start = time.Now()
	}

	next := p.runBody(w, t)

	if p.registry != nil {
		p.registry.TaskDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
		p.registry.TasksExecuted.WithLabelValues(p.name).Inc()
	}

	switch next {
	case thread.Pending:
		t.SetState(thread.Pending)
		if err := p.sched.ScheduleThread(t, t.Hint(), true, t.Priority()); err != nil {
			p.log.Error().Int("worker", w).Err(err).Msg("failed to reschedule thread")
			p.sched.DestroyThread(t, nil)
		}
	case thread.Suspended:
		t.SetState(thread.Suspended)
	default:
		p.sched.DestroyThread(t, nil)
	}
}

// runBody executes the thread body with panic isolation.
func (p *Pool) runBody(w int, t *thread.Thread) (next thread.State) {
	defer func() {
		if r := recover(); r != nil {
			next = thread.Terminated
			err := fmt.Errorf("thread panicked: %v\nStack trace:\n%s", r, debug.Stack())
			t.SetAbortError(err)
			p.sched.OnError(w, err)
			if p.registry != nil {
				p.registry.TasksFailed.WithLabelValues(p.name).Inc()
			}
		}
	}()
	return t.Run(p.ctx)
}
