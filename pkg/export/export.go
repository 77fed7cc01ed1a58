// Package export publishes scheduler counter snapshots to Redis so that
// the steal behaviour of multiple application instances can be inspected
// from one place. It is an observability sink only; no scheduling decision
// ever depends on it.
package export

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/gosteal/pkg/scheduling/scheduler"
)

// SnapshotSource yields per-worker counter snapshots. It is implemented by
// scheduler.Scheduler.
type SnapshotSource interface {
	Snapshot() []scheduler.CounterSnapshot
}

// Config holds configuration for the Redis publisher.
type Config struct {
	// Redis client used for publishing. Required.
	Redis redis.UniversalClient

	// KeyPrefix namespaces the published hashes. Defaults to "gosteal".
	KeyPrefix string

	// InstanceID uniquely identifies this application instance. Generated
	// when empty.
	InstanceID string

	// Interval controls how often snapshots are published (default 5s).
	Interval time.Duration

	// KeyTTL is how long published hashes live (default 1 minute).
	KeyTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "gosteal"
	}
	if c.InstanceID == "" {
		c.InstanceID = generateInstanceID()
	}
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.KeyTTL <= 0 {
		c.KeyTTL = time.Minute
	}
	return c
}

// generateInstanceID creates a unique identifier for this application
// instance.
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	pid := os.Getpid()

	randomBytes := make([]byte, 4)
	rand.Read(randomBytes)

	return fmt.Sprintf("%s-%d-%x", hostname, pid, randomBytes)
}

// Publisher periodically writes counter snapshots into per-instance Redis
// hashes.
type Publisher struct {
	source SnapshotSource
	cfg    Config

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPublisher creates a publisher for the given snapshot source.
func NewPublisher(source SnapshotSource, cfg Config) (*Publisher, error) {
	if source == nil {
		return nil, fmt.Errorf("snapshot source cannot be nil")
	}
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	return &Publisher{source: source, cfg: cfg.withDefaults()}, nil
}

// InstanceID returns the identifier published under.
func (p *Publisher) InstanceID() string {
	return p.cfg.InstanceID
}

// key returns the hash key for one worker of this instance.
func (p *Publisher) key(worker int) string {
	return p.cfg.KeyPrefix + ":" + p.cfg.InstanceID + ":worker:" + strconv.Itoa(worker)
}

// Publish writes one snapshot of every worker. Hashes expire after KeyTTL
// so stale instances disappear on their own.
func (p *Publisher) Publish(ctx context.Context) error {
	pipe := p.cfg.Redis.Pipeline()
	for _, snap := range p.source.Snapshot() {
		key := p.key(snap.Worker)
		pipe.HSet(ctx, key, map[string]interface{}{
			"pending_length":           snap.PendingLength,
			"staged_length":            snap.StagedLength,
			"pending_accesses":         snap.PendingAccesses,
			"pending_misses":           snap.PendingMisses,
			"stolen_from_pending":      snap.StolenFromPending,
			"stolen_to_pending":        snap.StolenToPending,
			"stolen_from_staged":       snap.StolenFromStaged,
			"stolen_to_staged":         snap.StolenToStaged,
			"steal_requests_sent":      snap.StealRequestsSent,
			"steal_requests_received":  snap.StealRequestsReceived,
			"steal_requests_discarded": snap.StealRequestsDiscarded,
		})
		pipe.Expire(ctx, key, p.cfg.KeyTTL)
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return nil
}

// Start begins periodic publishing; repeated calls are no-ops. Publish
// errors are swallowed so a flaky Redis cannot disturb the scheduler.
func (p *Publisher) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	done := p.done
	p.mu.Unlock()

	go p.loop(pollCtx, done)
}

// Stop halts periodic publishing and waits for the loop to exit.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.running = false
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	cancel()
	<-done
}

func (p *Publisher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	_ = p.Publish(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.Publish(ctx)
		}
	}
}
