// Package compute provides the chunked worker-pool primitive shared by
// the geodesic stepping phase and the collision scan.
package compute

import (
	"runtime"
	"sync"
)

// DefaultWorkers is the worker count used when a caller passes 0.
func DefaultWorkers() int { return runtime.NumCPU() }

// ParallelFor splits [0, n) into contiguous chunks and runs fn on each
// chunk concurrently. With workers ≤ 1 or n below minChunk the call is
// serial; per-step goroutine dispatch costs more than it saves for
// small particle counts.
func ParallelFor(workers, n, minChunk int, fn func(start, end int)) {
	if workers == 0 {
		workers = DefaultWorkers()
	}
	if workers <= 1 || n <= minChunk {
		fn(0, n)
		return
	}

	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}
