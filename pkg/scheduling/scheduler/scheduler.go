package scheduler

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vnykmshr/gosteal/pkg/affinity"
	"github.com/vnykmshr/gosteal/pkg/scheduling/channel"
	"github.com/vnykmshr/gosteal/pkg/scheduling/mask"
	"github.com/vnykmshr/gosteal/pkg/scheduling/queue"
	"github.com/vnykmshr/gosteal/pkg/scheduling/thread"
)

// AllWorkers is the sentinel worker index that aggregates a query over
// every worker.
const AllWorkers = -1

// Topology supplies PU masks and active-PU selection. It is implemented by
// affinity.Topology.
type Topology interface {
	// Mask returns the affinity domain of the given worker.
	Mask(worker int) mask.Mask

	// MaskSize returns the width of affinity masks.
	MaskSize() int

	// SelectActivePU resolves a preferred worker to an active PU,
	// optionally falling back to another active PU.
	SelectActivePU(preferred int, allowFallback bool) int
}

// Config holds scheduler construction options.
type Config struct {
	// WorkerCount is the number of worker slots. Must be positive.
	WorkerCount int

	// Topology supplies affinity masks and active-PU selection. When nil a
	// one-to-one topology over WorkerCount PUs is used.
	Topology Topology

	// QueueInit tunes the per-worker thread queues.
	QueueInit queue.InitParameters

	// EnableLastVictim biases victim selection toward the worker that most
	// recently supplied stolen work.
	EnableLastVictim bool

	// DeadlockDetection emits an error-level diagnostic when every worker's
	// queue tracks suspended threads and no other live thread.
	DeadlockDetection bool

	// Logger receives scheduler diagnostics. The zero value discards them.
	Logger zerolog.Logger
}

// workerData is the slot of one worker. Only the owning worker mutates its
// queue, outstanding count, last victim, and victim mask; any worker may
// push onto its request channel. The trailing padding keeps neighbouring
// slots off the same cache line.
type workerData struct {
	num int

	queue    *queue.ThreadQueue
	requests *channel.MPSC[stealRequest]
	tasks    *channel.SPSC[taskData]

	// workers already visited by a request originating here; always
	// contains this worker's own bit
	victims mask.Mask

	// number of in-flight steal requests issued by this worker, 0 or 1
	requested atomic.Int32

	// worker that most recently supplied stolen work, -1 when unset
	lastVictim atomic.Int32

	sent      atomic.Int64
	received  atomic.Int64
	discarded atomic.Int64

	initOnce sync.Once

	_ [64]byte
}

// Scheduler owns one queue of work items per worker, where each worker
// pulls its next work from.
type Scheduler struct {
	workerCount       int
	topo              Topology
	queueInit         queue.InitParameters
	enableLastVictim  bool
	deadlockDetection bool
	log               zerolog.Logger

	data []workerData

	// round-robin cursor for threads scheduled without a hint
	currQueue atomic.Uint64

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a scheduler with the given number of workers and default
// configuration.
func New(workerCount int) *Scheduler {
	return NewWithConfig(Config{WorkerCount: workerCount})
}

// NewWithConfig creates a scheduler from cfg. It panics when the worker
// count is not positive.
func NewWithConfig(cfg Config) *Scheduler {
	if cfg.WorkerCount <= 0 {
		panic("scheduler: worker count must be positive")
	}

	topo := cfg.Topology
	if topo == nil {
		topo = affinity.NewTopology(cfg.WorkerCount)
	}

	s := &Scheduler{
		workerCount:       cfg.WorkerCount,
		topo:              topo,
		queueInit:         cfg.QueueInit,
		enableLastVictim:  cfg.EnableLastVictim,
		deadlockDetection: cfg.DeadlockDetection,
		log:               cfg.Logger,
		data:              make([]workerData, cfg.WorkerCount),
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for i := range s.data {
		s.data[i].num = i
		s.data[i].lastVictim.Store(-1)
	}
	return s
}

// WorkerCount returns the number of worker slots.
func (s *Scheduler) WorkerCount() int {
	return s.workerCount
}

// worker validates the index and returns the lazily initialized slot.
func (s *Scheduler) worker(num int) *workerData {
	assertf(num >= 0 && num < s.workerCount, "worker index %d out of range [0, %d)", num, s.workerCount)
	d := &s.data[num]
	d.init(s)
	return d
}

// init performs the lazy slot setup: queue, channels, and victim mask. The
// request channel holds one request per worker so that a self-directed
// request can always be enqueued.
func (d *workerData) init(s *Scheduler) {
	d.initOnce.Do(func() {
		d.queue = queue.New(d.num, s.queueInit)
		d.requests = channel.NewMPSC[stealRequest](s.workerCount)
		d.tasks = channel.NewSPSC[taskData](1)
		d.victims = mask.New(s.topo.MaskSize())
		d.victims.Set(d.num)
	})
}

// selectWorker routes a schedule hint to a worker index: the hinted worker
// (wrapped modulo W) when present, round-robin otherwise, then resolved
// through the topology's active-PU selection.
func (s *Scheduler) selectWorker(hint thread.ScheduleHint, allowFallback bool) int {
	num := -1
	if hint.Mode == thread.HintWorker {
		num = hint.Worker
	} else {
		allowFallback = false
	}

	if num < 0 {
		num = int(s.currQueue.Add(1)-1) % s.workerCount
	} else if num >= s.workerCount {
		num %= s.workerCount
	}

	return s.topo.SelectActivePU(num, allowFallback)
}

// CreateThread constructs a thread on the worker chosen by its hint, or
// round-robin when no hint is given. The chosen worker is written back into
// the thread's hint so reschedules stay on the same worker. A pending
// thread with runNow set becomes runnable immediately.
func (s *Scheduler) CreateThread(data thread.InitData, initial thread.State, runNow bool) (*thread.Thread, error) {
	if !data.Priority.Valid() {
		return nil, fmt.Errorf("create_thread: %w (%d)", ErrUnknownPriority, data.Priority)
	}

	num := s.selectWorker(data.Hint, false)
	data.Hint = thread.WorkerHint(num)

	return s.worker(num).queue.Create(data, initial, runNow)
}

// ScheduleThread admits an existing thread to the worker chosen by hint.
func (s *Scheduler) ScheduleThread(t *thread.Thread, hint thread.ScheduleHint, allowFallback bool, priority thread.Priority) error {
	return s.schedule(t, hint, allowFallback, priority, false)
}

// ScheduleThreadLast admits an existing thread at the very back of the
// chosen worker's queue.
func (s *Scheduler) ScheduleThreadLast(t *thread.Thread, hint thread.ScheduleHint, allowFallback bool, priority thread.Priority) error {
	return s.schedule(t, hint, allowFallback, priority, true)
}

func (s *Scheduler) schedule(t *thread.Thread, hint thread.ScheduleHint, allowFallback bool, priority thread.Priority, last bool) error {
	if !priority.Valid() {
		return fmt.Errorf("schedule_thread: %w (%d)", ErrUnknownPriority, priority)
	}

	num := s.selectWorker(hint, allowFallback)
	t.SetHint(thread.WorkerHint(num))

	s.worker(num).queue.Schedule(t, last)
	return nil
}

// GetNextThread pops the next pending thread of the given worker. When a
// thread was obtained and stealing is enabled, incoming steal requests are
// drained and handled until one is satisfied. It reports whether a thread
// was produced.
func (s *Scheduler) GetNextThread(worker int, running bool, enableStealing bool) (*thread.Thread, bool) {
	_ = running

	d := s.worker(worker)

	t, ok := d.queue.GetNext(false, false)
	d.queue.IncrementPendingAccesses()

	if !ok {
		d.queue.IncrementPendingMisses()
		return nil, false
	}

	if enableStealing {
		// Before running the thread, satisfy at most one steal request
		// from the remaining pending work.
		var req stealRequest
		for d.tryReceivingStealRequest(&req) {
			if s.handleStealRequest(d, req) {
				break
			}
		}
	}
	return t, true
}

// WaitOrAddNew is called when a worker found no pending work. It admits
// staged threads, and failing that circulates steal requests: emit one if
// none is outstanding, collect a reply if one arrived, otherwise relay
// requests from peers. A received batch is admitted at the tail of the
// queue except for its last thread, which is returned for immediate
// execution. It reports terminate when the worker should shut down.
func (s *Scheduler) WaitOrAddNew(worker int, running bool, idleLoopCount *int64, enableStealing bool) (added int64, next *thread.Thread, terminate bool) {
	d := s.worker(worker)

	added, terminate = d.queue.WaitOrAddNew(running)
	if added != 0 {
		return added, nil, terminate
	}
	if !running {
		return 0, nil, true
	}
	if s.workerCount == 1 || !enableStealing {
		return 0, nil, terminate
	}

	s.sendStealRequest(d, true)
	assertf(d.requested.Load() != 0, "worker %d has no outstanding request after send", worker)

	var got bool
	added, next, got = s.tryReceivingTasks(d, true)
	if !got {
		s.handleAllStealRequests(d)
	}

	if s.deadlockDetection && s.log.GetLevel() <= zerolog.ErrorLevel {
		s.checkDeadlock(worker, idleLoopCount, running)
	}
	return added, next, terminate
}

// checkDeadlock logs a diagnostic while running when every worker's queue
// tracks at least one suspended thread and no other live thread. A queue
// that tracks no threads at all suppresses the diagnostic.
func (s *Scheduler) checkDeadlock(worker int, idleLoopCount *int64, running bool) {
	_ = idleLoopCount

	suspendedOnly := true
	for i := range s.data {
		d := &s.data[i]
		if d.queue == nil || !d.queue.SuspendedOnly() {
			suspendedOnly = false
			break
		}
	}
	if suspendedOnly && running {
		s.log.Error().
			Int("worker", worker).
			Msg("no new work available, are we deadlocked?")
	}
}

// DestroyThread hands a terminated thread to its owning queue for
// reclamation. busyCount, when non-nil, is decremented to mirror the
// caller's count of live threads.
func (s *Scheduler) DestroyThread(t *thread.Thread, busyCount *int64) {
	if busyCount != nil {
		*busyCount--
	}
	s.worker(t.Owner()).queue.Destroy(t)
}

// AbortAllSuspendedThreads force-terminates every suspended thread on
// every worker.
func (s *Scheduler) AbortAllSuspendedThreads() {
	for i := range s.data {
		s.worker(i).queue.AbortAllSuspended()
	}
}

// CleanupTerminated reclaims terminated threads on every worker, reporting
// whether all terminated lists are empty afterwards.
func (s *Scheduler) CleanupTerminated(deleteAll bool) bool {
	empty := true
	for i := range s.data {
		empty = s.worker(i).queue.CleanupTerminated(deleteAll) && empty
	}
	return empty
}

// CleanupTerminatedWorker reclaims terminated threads on one worker.
func (s *Scheduler) CleanupTerminatedWorker(worker int, deleteAll bool) (bool, error) {
	if worker < 0 || worker >= s.workerCount {
		return false, fmt.Errorf("cleanup_terminated: %w: %d", ErrWorkerOutOfRange, worker)
	}
	return s.worker(worker).queue.CleanupTerminated(deleteAll), nil
}

// QueueLength returns the combined pending and staged length of one
// worker's queue, or of all queues when AllWorkers is passed.
func (s *Scheduler) QueueLength(worker int) (int64, error) {
	return s.sumQueues(worker, func(q *queue.ThreadQueue) int64 {
		return q.QueueLength()
	})
}

// ThreadCount returns the number of threads in the given state. All
// recognized priorities share one queue and report identical counts; the
// invalid priority tag is rejected.
func (s *Scheduler) ThreadCount(state thread.State, priority thread.Priority, worker int) (int64, error) {
	if !priority.Valid() {
		return 0, fmt.Errorf("get_thread_count: %w (%d)", ErrUnknownPriority, priority)
	}
	return s.sumQueues(worker, func(q *queue.ThreadQueue) int64 {
		return q.ThreadCount(state)
	})
}

// EnumerateThreads calls f for every thread in the given state across all
// workers, stopping at the first false returned by f. It reports whether
// the enumeration ran to completion.
func (s *Scheduler) EnumerateThreads(f func(*thread.Thread) bool, state thread.State) bool {
	for i := range s.data {
		if !s.worker(i).queue.Enumerate(f, state) {
			return false
		}
	}
	return true
}

// OnStartThread performs the lazy initialization of a worker slot: queue
// and channels are allocated and the victim mask is sized to the topology
// width with the worker's own bit set.
func (s *Scheduler) OnStartThread(worker int) {
	d := s.worker(worker)

	d.victims = mask.New(s.topo.MaskSize())
	d.victims.Set(worker)

	d.queue.OnStart(worker)
}

// OnStopThread notifies the worker's queue that its loop is exiting.
func (s *Scheduler) OnStopThread(worker int) {
	s.worker(worker).queue.OnStop(worker)
}

// OnError notifies the worker's queue that its loop failed.
func (s *Scheduler) OnError(worker int, err error) {
	s.log.Error().Int("worker", worker).Err(err).Msg("worker loop error")
	s.worker(worker).queue.OnError(worker, err)
}

// ResetThreadDistribution restarts round-robin placement at worker 0.
func (s *Scheduler) ResetThreadDistribution() {
	s.currQueue.Store(0)
}

func (s *Scheduler) sumQueues(worker int, f func(*queue.ThreadQueue) int64) (int64, error) {
	if worker == AllWorkers {
		var total int64
		for i := range s.data {
			total += f(s.worker(i).queue)
		}
		return total, nil
	}
	if worker < 0 || worker >= s.workerCount {
		return 0, fmt.Errorf("%w: %d", ErrWorkerOutOfRange, worker)
	}
	return f(s.worker(worker).queue), nil
}
