// Package mask provides a fixed-width bitset over processing-unit indices.
//
// A Mask records which PUs belong to a worker's affinity domain and which
// workers a circulating steal request has already visited.
package mask

import "github.com/bits-and-blooms/bitset"

// Mask is a bitset indexed by PU number. The zero value is unusable;
// construct one with New or Resize.
type Mask struct {
	bits *bitset.BitSet
}

// New creates a mask sized for the given number of PUs, all bits clear.
func New(size int) Mask {
	if size < 0 {
		size = 0
	}
	return Mask{bits: bitset.New(uint(size))}
}

// Set marks the given PU index.
func (m Mask) Set(i int) {
	if i >= 0 {
		m.bits.Set(uint(i))
	}
}

// Clear unmarks the given PU index.
func (m Mask) Clear(i int) {
	if i >= 0 {
		m.bits.Clear(uint(i))
	}
}

// Test reports whether the given PU index is marked.
func (m Mask) Test(i int) bool {
	return i >= 0 && m.bits != nil && m.bits.Test(uint(i))
}

// Count returns the number of marked PUs.
func (m Mask) Count() int {
	if m.bits == nil {
		return 0
	}
	return int(m.bits.Count())
}

// Size returns the width of the mask in bits.
func (m Mask) Size() int {
	if m.bits == nil {
		return 0
	}
	return int(m.bits.Len())
}

// Resize returns a mask of the given width carrying over any bits that
// still fit. The receiver is unchanged.
func (m Mask) Resize(size int) Mask {
	n := New(size)
	if m.bits != nil {
		for i, ok := m.bits.NextSet(0); ok && int(i) < size; i, ok = m.bits.NextSet(i + 1) {
			n.bits.Set(i)
		}
	}
	return n
}

// ClearAll unmarks every PU.
func (m Mask) ClearAll() {
	if m.bits != nil {
		m.bits.ClearAll()
	}
}

// Clone returns an independent copy of the mask.
func (m Mask) Clone() Mask {
	if m.bits == nil {
		return New(0)
	}
	return Mask{bits: m.bits.Clone()}
}
