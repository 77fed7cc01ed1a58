package scheduler

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/gosteal/internal/testutil"
	"github.com/vnykmshr/gosteal/pkg/metrics"
	"github.com/vnykmshr/gosteal/pkg/scheduling/thread"
)

func TestCollectorUpdate(t *testing.T) {
	s := newTestScheduler(t, 2, Config{})

	for i := 0; i < 3; i++ {
		_, err := s.CreateThread(thread.InitData{Func: noop, Hint: thread.WorkerHint(0)}, thread.Pending, true)
		testutil.AssertNoError(t, err)
	}

	reg := prometheus.NewRegistry()
	c := NewCollector(s, "test", reg, time.Second)
	c.Update()

	pending := promtest.ToFloat64(c.registry.QueuePending.WithLabelValues("test", "0"))
	testutil.AssertEqual(t, pending, 3.0)
	pending = promtest.ToFloat64(c.registry.QueuePending.WithLabelValues("test", "1"))
	testutil.AssertEqual(t, pending, 0.0)
}

func TestCollectorStealCounters(t *testing.T) {
	s := newTestScheduler(t, 2, Config{})

	var idleLoops int64
	_, _, _ = s.WaitOrAddNew(1, true, &idleLoops, true)

	reg := prometheus.NewRegistry()
	c := NewCollector(s, "steal", reg, time.Second)
	c.Update()

	sent := promtest.ToFloat64(c.registry.StealRequestsSent.WithLabelValues("steal", "1"))
	testutil.AssertEqual(t, sent, 1.0)
}

func TestCollectorStartStop(t *testing.T) {
	s := newTestScheduler(t, 1, Config{})

	reg := prometheus.NewRegistry()
	c := NewCollector(s, "poll", reg, time.Millisecond)

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	c.Start(ctx)
	c.Start(ctx) // repeated start is a no-op
	time.Sleep(5 * time.Millisecond)
	c.Stop()
	c.Stop() // repeated stop is safe
}

func TestCollectorDefaults(t *testing.T) {
	s := newTestScheduler(t, 1, Config{})
	c := NewCollector(s, "defaults", nil, 0)

	testutil.AssertEqual(t, c.registry, metrics.DefaultRegistry)
	testutil.AssertEqual(t, c.interval, time.Second)
}
