package channel

import (
	"sync"
	"testing"

	"github.com/vnykmshr/gosteal/internal/testutil"
)

func TestSPSCOrder(t *testing.T) {
	c := NewSPSC[int](8)

	for i := 0; i < 5; i++ {
		testutil.AssertEqual(t, c.Set(i), true)
	}
	testutil.AssertEqual(t, c.Len(), 5)

	for i := 0; i < 5; i++ {
		var v int
		testutil.AssertEqual(t, c.Get(&v), true)
		testutil.AssertEqual(t, v, i)
	}

	var v int
	testutil.AssertEqual(t, c.Get(&v), false)
}

func TestSPSCFull(t *testing.T) {
	c := NewSPSC[string](2)
	testutil.AssertEqual(t, c.Set("a"), true)
	testutil.AssertEqual(t, c.Set("b"), true)
	testutil.AssertEqual(t, c.Set("c"), false)

	var v string
	testutil.AssertEqual(t, c.Get(&v), true)
	testutil.AssertEqual(t, v, "a")
	testutil.AssertEqual(t, c.Set("c"), true)
}

func TestSPSCMinimumCapacity(t *testing.T) {
	c := NewSPSC[int](0)
	testutil.AssertEqual(t, c.Cap(), 1)
	testutil.AssertEqual(t, c.Set(42), true)
	testutil.AssertEqual(t, c.Set(43), false)

	var v int
	testutil.AssertEqual(t, c.Get(&v), true)
	testutil.AssertEqual(t, v, 42)
}

func TestSPSCConcurrent(t *testing.T) {
	const n = 10000
	c := NewSPSC[int](64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; {
			if c.Set(i) {
				i++
			}
		}
	}()

	for i := 0; i < n; {
		var v int
		if c.Get(&v) {
			testutil.AssertEqual(t, v, i)
			i++
		}
	}
	wg.Wait()
}

func TestMPSCConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 1000
	c := NewMPSC[int](32)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; {
				if c.Set(p*perProducer + i) {
					i++
				}
			}
		}(p)
	}

	seen := make(map[int]bool, producers*perProducer)
	for len(seen) < producers*perProducer {
		var v int
		if c.Get(&v) {
			if seen[v] {
				t.Fatalf("duplicate value %d", v)
			}
			seen[v] = true
		}
	}
	wg.Wait()

	var v int
	testutil.AssertEqual(t, c.Get(&v), false)
}

func TestMPSCFull(t *testing.T) {
	c := NewMPSC[int](3)
	for i := 0; i < 3; i++ {
		testutil.AssertEqual(t, c.Set(i), true)
	}
	testutil.AssertEqual(t, c.Set(3), false)
	testutil.AssertEqual(t, c.Len(), 3)
}
