//go:build linux

package affinity

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// Pin restricts the calling OS thread to the given PU. The caller must
// hold the thread with runtime.LockOSThread for the pin to be meaningful.
func Pin(pu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(pu)
	return unix.SchedSetaffinity(0, &set)
}

// Unpin widens the calling OS thread back to every CPU visible to the
// process.
func Unpin() error {
	var set unix.CPUSet
	set.Zero()
	for i := 0; i < runtime.NumCPU(); i++ {
		set.Set(i)
	}
	return unix.SchedSetaffinity(0, &set)
}
