package mask

import (
	"testing"

	"github.com/vnykmshr/gosteal/internal/testutil"
)

func TestSetCount(t *testing.T) {
	m := New(16)
	testutil.AssertEqual(t, m.Count(), 0)

	set := []int{0, 3, 7, 15}
	for _, i := range set {
		m.Set(i)
	}
	// setting the same bit twice must not change the count
	m.Set(3)

	testutil.AssertEqual(t, m.Count(), len(set))
	for _, i := range set {
		if !m.Test(i) {
			t.Errorf("bit %d not set", i)
		}
	}
	if m.Test(1) {
		t.Error("bit 1 unexpectedly set")
	}
}

func TestClear(t *testing.T) {
	m := New(8)
	m.Set(2)
	m.Set(5)
	m.Clear(2)

	testutil.AssertEqual(t, m.Test(2), false)
	testutil.AssertEqual(t, m.Test(5), true)
	testutil.AssertEqual(t, m.Count(), 1)

	m.ClearAll()
	testutil.AssertEqual(t, m.Count(), 0)
}

func TestResize(t *testing.T) {
	m := New(4)
	m.Set(1)
	m.Set(3)

	grown := m.Resize(64)
	testutil.AssertEqual(t, grown.Test(1), true)
	testutil.AssertEqual(t, grown.Test(3), true)
	testutil.AssertEqual(t, grown.Count(), 2)

	shrunk := m.Resize(2)
	testutil.AssertEqual(t, shrunk.Test(1), true)
	testutil.AssertEqual(t, shrunk.Count(), 1)

	// original unchanged
	testutil.AssertEqual(t, m.Count(), 2)
}

func TestClone(t *testing.T) {
	m := New(8)
	m.Set(4)

	c := m.Clone()
	c.Set(6)

	testutil.AssertEqual(t, m.Test(6), false)
	testutil.AssertEqual(t, c.Test(4), true)
	testutil.AssertEqual(t, c.Count(), 2)
}

func TestOutOfRange(t *testing.T) {
	m := New(4)
	m.Set(-1)
	m.Clear(-1)
	testutil.AssertEqual(t, m.Test(-1), false)
	testutil.AssertEqual(t, m.Count(), 0)
}
