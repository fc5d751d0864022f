//go:build linux

package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// PinWorker locks the calling goroutine to its OS thread and restricts that
// thread to one logical CPU, chosen as workerID modulo the CPU count.
// The returned func restores the thread's previous mask and unlocks it; the
// worker must defer it. If the kernel refuses the mask the worker stays unpinned.
func PinWorker(workerID int) (release func()) {
	runtime.LockOSThread()

	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		return runtime.UnlockOSThread
	}

	var mask unix.CPUSet
	mask.Zero()
	mask.Set(coreFor(workerID))
	if err := unix.SchedSetaffinity(0, &mask); err != nil { // 0 = current thread
		return runtime.UnlockOSThread
	}

	return func() {
		_ = unix.SchedSetaffinity(0, &prev)
		runtime.UnlockOSThread()
	}
}

// Pinned reports the CPU set of the calling thread. It exists for tests and
// diagnostics.
func Pinned() ([]int, error) {
	var mask unix.CPUSet
	if err := unix.SchedGetaffinity(0, &mask); err != nil {
		return nil, err
	}

	cpus := make([]int, 0, mask.Count())
	for i := range runtime.NumCPU() {
		if mask.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
