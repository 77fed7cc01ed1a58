package scheduler

import (
	"testing"

	"github.com/vnykmshr/gosteal/internal/testutil"
	"github.com/vnykmshr/gosteal/pkg/scheduling/mask"
)

func newRequest(s *Scheduler, from int) stealRequest {
	victims := mask.New(s.topo.MaskSize())
	victims.Set(from)
	return stealRequest{
		from:    from,
		victims: victims,
		state:   stealIdle,
	}
}

func TestRandomVictimNeverSelfOrVisited(t *testing.T) {
	s := newTestScheduler(t, 8, Config{})

	req := newRequest(s, 3)
	req.victims.Set(5)
	req.victims.Set(6)

	for i := 0; i < 1000; i++ {
		v := s.randomVictim(&req)
		if v == 3 || v == 5 || v == 6 {
			t.Fatalf("selected excluded victim %d", v)
		}
		if v < 0 || v >= 8 {
			t.Fatalf("victim %d out of range", v)
		}
	}
}

func TestRandomVictimExhausted(t *testing.T) {
	s := newTestScheduler(t, 4, Config{})

	req := newRequest(s, 0)
	for i := 0; i < 4; i++ {
		req.victims.Set(i)
	}
	testutil.AssertEqual(t, s.randomVictim(&req), -1)
}

func TestNextVictimReturnsHomeAtAttemptCap(t *testing.T) {
	s := newTestScheduler(t, 4, Config{})

	req := newRequest(s, 2)
	req.attempt = 3 // == W-1
	testutil.AssertEqual(t, s.nextVictim(s.worker(0), &req), 2)
}

func TestNextVictimFallsBackToOriginator(t *testing.T) {
	s := newTestScheduler(t, 3, Config{})

	req := newRequest(s, 1)
	req.victims.Set(0)
	req.victims.Set(2)
	req.attempt = 1
	testutil.AssertEqual(t, s.nextVictim(s.worker(0), &req), 1)
}

func TestNextVictimLastVictimSkippedWhenVisited(t *testing.T) {
	s := newTestScheduler(t, 4, Config{EnableLastVictim: true})

	d := s.worker(0)
	d.lastVictim.Store(2)

	req := newRequest(s, 0)
	req.victims.Set(2)

	for i := 0; i < 100; i++ {
		v := s.nextVictim(d, &req)
		if v == 2 {
			t.Fatal("picked a victim already visited on this tour")
		}
		if v == 0 {
			t.Fatal("picked the originator with candidates remaining")
		}
	}
}

func TestNextVictimPrefersLastVictim(t *testing.T) {
	s := newTestScheduler(t, 4, Config{EnableLastVictim: true})

	d := s.worker(0)
	d.lastVictim.Store(3)

	req := newRequest(s, 0)
	for i := 0; i < 100; i++ {
		testutil.AssertEqual(t, s.nextVictim(d, &req), 3)
	}
}
