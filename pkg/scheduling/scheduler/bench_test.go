package scheduler

import (
	"context"
	"testing"

	"github.com/vnykmshr/gosteal/pkg/scheduling/thread"
)

func benchNoop(ctx context.Context) thread.State {
	return thread.Terminated
}

func BenchmarkCreateGetNext(b *testing.B) {
	s := New(1)
	s.OnStartThread(0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		t, err := s.CreateThread(thread.InitData{Func: benchNoop}, thread.Pending, true)
		if err != nil {
			b.Fatal(err)
		}
		if _, ok := s.GetNextThread(0, true, false); !ok {
			b.Fatal("no thread")
		}
		s.DestroyThread(t, nil)
		s.CleanupTerminated(true)
	}
}

func BenchmarkStealRoundTrip(b *testing.B) {
	s := New(2)
	s.OnStartThread(0)
	s.OnStartThread(1)

	var idleLoops int64
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j := 0; j < 2; j++ {
			if _, err := s.CreateThread(thread.InitData{Func: benchNoop, Hint: thread.WorkerHint(0)}, thread.Pending, true); err != nil {
				b.Fatal(err)
			}
		}

		// worker 1 requests, worker 0 serves, worker 1 collects
		_, _, _ = s.WaitOrAddNew(1, true, &idleLoops, true)
		s.handleAllStealRequests(s.worker(0))
		_, next, _ := s.WaitOrAddNew(1, true, &idleLoops, true)
		if next != nil {
			s.DestroyThread(next, nil)
		}

		// drain both queues
		for w := 0; w < 2; w++ {
			for {
				t, ok := s.GetNextThread(w, true, false)
				if !ok {
					break
				}
				s.DestroyThread(t, nil)
			}
		}
		s.CleanupTerminated(true)
	}
}
