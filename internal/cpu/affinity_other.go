//go:build !linux

package cpu

import "runtime"

// PinWorker locks the calling goroutine to an OS thread.
// CPU pinning is only available on Linux.
func PinWorker(workerID int) (release func()) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}

// Pinned is unsupported outside Linux and always returns ErrUnsupported.
func Pinned() ([]int, error) {
	return nil, ErrUnsupported
}
