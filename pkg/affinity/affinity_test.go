package affinity

import (
	"runtime"
	"testing"

	"github.com/vnykmshr/gosteal/internal/testutil"
)

func TestNewTopologyDefaults(t *testing.T) {
	topo := NewTopology(0)
	testutil.AssertEqual(t, topo.Workers(), runtime.NumCPU())

	topo = NewTopology(4)
	testutil.AssertEqual(t, topo.Workers(), 4)
	if topo.MaskSize() < 4 {
		t.Errorf("mask size %d smaller than worker count", topo.MaskSize())
	}
}

func TestMask(t *testing.T) {
	topo := NewTopology(4)

	m := topo.Mask(2)
	testutil.AssertEqual(t, m.Test(2), true)
	testutil.AssertEqual(t, m.Count(), 1)

	// out-of-range workers get an empty domain
	testutil.AssertEqual(t, topo.Mask(99).Count(), 0)
}

func TestSelectActivePU(t *testing.T) {
	topo := NewTopology(4)

	testutil.AssertEqual(t, topo.SelectActivePU(2, true), 2)

	// wrap out-of-range preferences
	testutil.AssertEqual(t, topo.SelectActivePU(6, true), 2)

	testutil.AssertNoError(t, topo.SetActive(2, false))
	got := topo.SelectActivePU(2, true)
	testutil.AssertEqual(t, got, 0)

	// without fallback the preference sticks even when inactive
	testutil.AssertEqual(t, topo.SelectActivePU(2, false), 2)

	testutil.AssertNoError(t, topo.SetActive(2, true))
	testutil.AssertEqual(t, topo.SelectActivePU(2, true), 2)
}

func TestSetActiveOutOfRange(t *testing.T) {
	topo := NewTopology(2)
	testutil.AssertError(t, topo.SetActive(5, false))
	testutil.AssertError(t, topo.SetActive(-1, false))
	testutil.AssertEqual(t, topo.Active(5), false)
}

func TestPin(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := Pin(0); err != nil {
		t.Skipf("pinning unsupported: %v", err)
	}
	testutil.AssertNoError(t, Unpin())
}
