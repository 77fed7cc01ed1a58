// Package affinity supplies the processing-unit topology behind a
// work-stealing scheduler: per-worker affinity masks, active-PU selection
// with fallback, and OS-thread pinning on platforms that support it.
package affinity

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/vnykmshr/gosteal/pkg/scheduling/mask"
)

// Topology maps workers onto processing units. Workers are numbered 0..W-1
// and bound one-to-one onto PUs of the same index.
type Topology struct {
	workers int
	width   int

	mu     sync.Mutex
	active []bool
}

// NewTopology creates a topology for the given worker count. A count of
// zero or less selects one worker per available CPU. All PUs start active.
func NewTopology(workers int) *Topology {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	width := runtime.NumCPU()
	if workers > width {
		width = workers
	}

	t := &Topology{
		workers: workers,
		width:   width,
		active:  make([]bool, workers),
	}
	for i := range t.active {
		t.active[i] = true
	}
	return t
}

// Workers returns the number of workers in the topology.
func (t *Topology) Workers() int {
	return t.workers
}

// MaskSize returns the width of affinity masks, at least the number of PUs
// visible to the process.
func (t *Topology) MaskSize() int {
	return t.width
}

// Mask returns the affinity domain of the given worker. With one-to-one
// binding this is the singleton mask of the worker's own PU.
func (t *Topology) Mask(worker int) mask.Mask {
	m := mask.New(t.width)
	if worker >= 0 && worker < t.workers {
		m.Set(worker)
	}
	return m
}

// SelectActivePU resolves a preferred worker index to an active PU under
// the PU lock. Out-of-range preferences wrap. When the preferred PU is
// inactive and allowFallback is set, the first active PU is returned;
// otherwise the preference is returned unchanged.
func (t *Topology) SelectActivePU(preferred int, allowFallback bool) int {
	if t.workers == 0 {
		return 0
	}
	preferred %= t.workers
	if preferred < 0 {
		preferred += t.workers
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active[preferred] || !allowFallback {
		return preferred
	}
	for i, on := range t.active {
		if on {
			return i
		}
	}
	return preferred
}

// SetActive marks a PU as eligible (or not) for fallback selection.
func (t *Topology) SetActive(worker int, active bool) error {
	if worker < 0 || worker >= t.workers {
		return fmt.Errorf("worker index %d out of range [0, %d)", worker, t.workers)
	}
	t.mu.Lock()
	t.active[worker] = active
	t.mu.Unlock()
	return nil
}

// Active reports whether the given PU participates in fallback selection.
func (t *Topology) Active(worker int) bool {
	if worker < 0 || worker >= t.workers {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active[worker]
}
