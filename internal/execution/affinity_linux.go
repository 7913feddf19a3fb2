package execution

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pin binds the current OS thread to a single CPU.
func pin(worker int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(worker % runtime.NumCPU())
	return unix.SchedSetaffinity(0, &set)
}
