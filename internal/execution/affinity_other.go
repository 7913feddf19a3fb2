//go:build !linux

package execution

// pin is a no-op on platforms without thread affinity support.
func pin(int) error {
	return nil
}
