package thread

import (
	"context"
	"errors"
	"testing"

	"github.com/vnykmshr/gosteal/internal/testutil"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Unknown, "unknown"},
		{Active, "active"},
		{Pending, "pending"},
		{Suspended, "suspended"},
		{Staged, "staged"},
		{Terminated, "terminated"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		testutil.AssertEqual(t, tt.state.String(), tt.want)
	}
}

func TestPriorityValid(t *testing.T) {
	valid := []Priority{
		PriorityDefault, PriorityLow, PriorityNormal,
		PriorityBoost, PriorityHigh, PriorityHighRecursive,
	}
	for _, p := range valid {
		testutil.AssertEqual(t, p.Valid(), true)
	}
	testutil.AssertEqual(t, PriorityUnknown.Valid(), false)
	testutil.AssertEqual(t, Priority(-1).Valid(), false)
}

func TestRun(t *testing.T) {
	ran := false
	th := New(InitData{Func: func(ctx context.Context) State {
		ran = true
		return Terminated
	}}, Pending, 0)

	testutil.AssertEqual(t, th.Run(context.Background()), Terminated)
	testutil.AssertEqual(t, ran, true)

	empty := New(InitData{}, Pending, 0)
	testutil.AssertEqual(t, empty.Run(context.Background()), Terminated)
}

func TestStateTransitions(t *testing.T) {
	th := New(InitData{}, Staged, 2)
	testutil.AssertEqual(t, th.State(), Staged)
	testutil.AssertEqual(t, th.Owner(), 2)

	testutil.AssertEqual(t, th.CasState(Staged, Pending), true)
	testutil.AssertEqual(t, th.CasState(Staged, Active), false)
	testutil.AssertEqual(t, th.State(), Pending)

	th.SetState(Terminated)
	testutil.AssertEqual(t, th.State(), Terminated)
}

func TestHintStickiness(t *testing.T) {
	th := New(InitData{}, Pending, 0)
	testutil.AssertEqual(t, th.Hint().Mode, HintNone)

	th.SetHint(WorkerHint(3))
	h := th.Hint()
	testutil.AssertEqual(t, h.Mode, HintWorker)
	testutil.AssertEqual(t, h.Worker, 3)
}

func TestAbortError(t *testing.T) {
	th := New(InitData{}, Suspended, 0)
	testutil.AssertEqual(t, th.AbortError() == nil, true)

	errAbort := errors.New("aborted")
	th.SetAbortError(errAbort)
	testutil.AssertEqual(t, errors.Is(th.AbortError(), errAbort), true)
}
