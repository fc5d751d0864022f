// Package cpu binds pool workers to OS threads and, where the platform allows,
// to individual cores.
package cpu

import (
	"errors"
	"runtime"
)

// ErrUnsupported is returned by Pinned on platforms without affinity support.
var ErrUnsupported = errors.New("cpu affinity not supported on this platform")

// coreFor maps a worker to a logical CPU.
func coreFor(workerID int) int {
	n := runtime.NumCPU()
	if workerID < 0 {
		workerID = -workerID
	}
	return workerID % n
}
