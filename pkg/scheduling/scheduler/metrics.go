package scheduler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/gosteal/pkg/metrics"
)

// Collector periodically exports scheduler counter snapshots into
// Prometheus gauges.
type Collector struct {
	sched    *Scheduler
	name     string
	registry *metrics.Registry
	interval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewCollector creates a collector publishing under the given scheduler
// name. A nil registerer uses the default metrics registry; a non-positive
// interval polls once per second.
func NewCollector(s *Scheduler, name string, reg prometheus.Registerer, interval time.Duration) *Collector {
	registry := metrics.DefaultRegistry
	if reg != nil {
		registry = metrics.NewRegistry(reg)
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Collector{
		sched:    s,
		name:     name,
		registry: registry,
		interval: interval,
	}
}

// Update publishes one snapshot of every worker's counters.
func (c *Collector) Update() {
	for _, snap := range c.sched.Snapshot() {
		worker := strconv.Itoa(snap.Worker)

		c.registry.StealRequestsSent.WithLabelValues(c.name, worker).Set(float64(snap.StealRequestsSent))
		c.registry.StealRequestsReceived.WithLabelValues(c.name, worker).Set(float64(snap.StealRequestsReceived))
		c.registry.StealRequestsDiscarded.WithLabelValues(c.name, worker).Set(float64(snap.StealRequestsDiscarded))
		c.registry.StolenFromPending.WithLabelValues(c.name, worker).Set(float64(snap.StolenFromPending))
		c.registry.StolenToPending.WithLabelValues(c.name, worker).Set(float64(snap.StolenToPending))

		c.registry.QueuePending.WithLabelValues(c.name, worker).Set(float64(snap.PendingLength))
		c.registry.QueueStaged.WithLabelValues(c.name, worker).Set(float64(snap.StagedLength))
		c.registry.PendingAccesses.WithLabelValues(c.name, worker).Set(float64(snap.PendingAccesses))
		c.registry.PendingMisses.WithLabelValues(c.name, worker).Set(float64(snap.PendingMisses))
	}
}

// Start begins periodic publishing; repeated calls are no-ops.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true
	c.mu.Unlock()

	go c.loop(pollCtx, c.done)
}

// Stop halts periodic publishing and waits for the loop to exit.
func (c *Collector) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	done := c.done
	c.running = false
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	cancel()
	<-done
}

func (c *Collector) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Update()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Update()
		}
	}
}
