//go:build !linux

package affinity

// Pin is a no-op on platforms without thread affinity support.
func Pin(pu int) error {
	_ = pu
	return nil
}

// Unpin is a no-op on platforms without thread affinity support.
func Unpin() error {
	return nil
}
