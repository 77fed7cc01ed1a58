// Package timed admits threads into a work-stealing scheduler at a later
// time: one-shot delays, fixed intervals, and cron expressions.
package timed

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/vnykmshr/gosteal/pkg/metrics"
	"github.com/vnykmshr/gosteal/pkg/scheduling/thread"
)

// Target admits threads for execution. It is implemented by
// scheduler.Scheduler.
type Target interface {
	CreateThread(data thread.InitData, initial thread.State, runNow bool) (*thread.Thread, error)
}

// Entry describes a scheduled admission.
type Entry struct {
	ID       string
	RunAt    time.Time
	Interval time.Duration // zero for one-time entries
	Created  time.Time
}

// Scheduler provides timed thread admission with cron support.
type Scheduler interface {
	// Basic scheduling
	Schedule(id string, fn thread.Func, runAt time.Time) error
	ScheduleAfter(id string, fn thread.Func, delay time.Duration) error
	ScheduleRepeating(id string, fn thread.Func, interval time.Duration) error

	// Cron scheduling
	ScheduleCron(id string, cronExpr string, fn thread.Func) error

	// Entry management
	Cancel(id string) bool
	CancelAll()
	List() []Entry

	// Lifecycle
	Start() error
	Stop() <-chan struct{}
}

// Config holds timed scheduler configuration.
type Config struct {
	// Target receives the admitted threads. Required.
	Target Target

	// Location for cron scheduling. Defaults to time.Local.
	Location *time.Location

	// TickInterval is how often ready entries are checked (default 50ms).
	TickInterval time.Duration

	// MaxEntries bounds the number of scheduled entries (default 10000).
	MaxEntries int

	// Name labels the scheduler in metrics. Defaults to "default".
	Name string

	// Metrics enables Prometheus instrumentation.
	Metrics metrics.Config

	// Logger receives admission errors. The zero value discards them.
	Logger zerolog.Logger
}

type entry struct {
	id           string
	fn           thread.Func
	runAt        time.Time
	interval     time.Duration
	cronSchedule cron.Schedule
	created      time.Time
}

type timedScheduler struct {
	target       Target
	location     *time.Location
	tickInterval time.Duration
	maxEntries   int
	cronParser   cron.Parser
	name         string
	registry     *metrics.Registry
	log          zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	ticker  *time.Ticker
	done    chan struct{}
	running bool
}

// New creates a timed scheduler admitting into target.
func New(target Target) Scheduler {
	return NewWithConfig(Config{Target: target})
}

// NewWithConfig creates a timed scheduler from cfg. It panics when no
// target is supplied.
func NewWithConfig(cfg Config) Scheduler {
	if cfg.Target == nil {
		panic("timed: target must not be nil")
	}

	location := cfg.Location
	if location == nil {
		location = time.Local
	}

	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = 50 * time.Millisecond
	}

	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 10000
	}

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

	return &timedScheduler{
		target:       cfg.Target,
		location:     location,
		tickInterval: tickInterval,
		maxEntries:   maxEntries,
		cronParser:   cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		name:         name,
		registry:     registry,
		log:          cfg.Logger,
		entries:      make(map[string]*entry),
		done:         make(chan struct{}),
	}
}

func (s *timedScheduler) validate(id string, fn thread.Func) error {
	if id == "" {
		return fmt.Errorf("entry ID cannot be empty")
	}
	if len(id) > 255 {
		return fmt.Errorf("entry ID too long (max 255 characters)")
	}
	if fn == nil {
		return fmt.Errorf("thread function cannot be nil")
	}
	return nil
}

func (s *timedScheduler) insert(e *entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[e.id]; exists {
		return fmt.Errorf("entry with ID %q already exists, cancel it first", e.id)
	}
	if len(s.entries) >= s.maxEntries {
		return fmt.Errorf("cannot schedule entry: maximum number of entries (%d) reached", s.maxEntries)
	}
	s.entries[e.id] = e
	return nil
}

func (s *timedScheduler) Schedule(id string, fn thread.Func, runAt time.Time) error {
	if err := s.validate(id, fn); err != nil {
		return err
	}
	if runAt.IsZero() {
		return fmt.Errorf("entry run time cannot be zero")
	}
	return s.insert(&entry{id: id, fn: fn, runAt: runAt, created: time.Now()})
}

func (s *timedScheduler) ScheduleAfter(id string, fn thread.Func, delay time.Duration) error {
	return s.Schedule(id, fn, time.Now().Add(delay))
}

func (s *timedScheduler) ScheduleRepeating(id string, fn thread.Func, interval time.Duration) error {
	if err := s.validate(id, fn); err != nil {
		return err
	}
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", interval)
	}
	return s.insert(&entry{
		id:       id,
		fn:       fn,
		runAt:    time.Now(),
		interval: interval,
		created:  time.Now(),
	})
}

func (s *timedScheduler) ScheduleCron(id string, cronExpr string, fn thread.Func) error {
	if err := s.validate(id, fn); err != nil {
		return err
	}
	if cronExpr == "" {
		return fmt.Errorf("cron expression cannot be empty")
	}

	schedule, err := s.cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	now := time.Now().In(s.location)
	return s.insert(&entry{
		id:           id,
		fn:           fn,
		runAt:        schedule.Next(now),
		cronSchedule: schedule,
		created:      time.Now(),
	})
}

func (s *timedScheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		delete(s.entries, id)
		return true
	}
	return false
}

func (s *timedScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry)
}

func (s *timedScheduler) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, Entry{
			ID:       e.id,
			RunAt:    e.runAt,
			Interval: e.interval,
			Created:  e.created,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RunAt.Before(entries[j].RunAt)
	})
	return entries
}

func (s *timedScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("timed scheduler already running, call Stop() first")
	}

	s.running = true
	s.ticker = time.NewTicker(s.tickInterval)
	s.done = make(chan struct{})

	go s.run(s.done)
	return nil
}

func (s *timedScheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.done)
		s.ticker.Stop()
	}
	s.mu.Unlock()

	stopped := make(chan struct{})
	close(stopped)
	return stopped
}

func (s *timedScheduler) run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-s.ticker.C:
			s.admitReadyEntries()
		}
	}
}

func (s *timedScheduler) admitReadyEntries() {
	now := time.Now()

	s.mu.Lock()
	if len(s.entries) == 0 {
		s.mu.Unlock()
		return
	}

	ready := make([]*entry, 0, len(s.entries))
	for id, e := range s.entries {
		if now.Before(e.runAt) {
			continue
		}
		ready = append(ready, e)

		switch {
		case e.interval > 0:
			e.runAt = now.Add(e.interval)
		case e.cronSchedule != nil:
			e.runAt = e.cronSchedule.Next(now.In(s.location))
		default:
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	for _, e := range ready {
		data := thread.InitData{Func: e.fn, Description: e.id}
		if _, err := s.target.CreateThread(data, thread.Pending, true); err != nil {
			s.log.Error().Str("entry", e.id).Err(err).Msg("failed to admit timed thread")
			continue
		}
		if s.registry != nil {
			s.registry.TasksScheduled.WithLabelValues(s.name).Inc()
		}
	}
}
