// Package parallel runs the independent iterations of a kernel loop on a
// bounded number of goroutines.
package parallel

import (
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// Runner executes body once for every i in [0, n) and returns when all
// iterations have finished. Iterations must not write to shared memory.
type Runner interface {
	ForEach(n int, body func(i int))
}

// Workers is a Runner that uses at most that many goroutines.
// Workers(1) (or less) runs every iteration inline, in order, on the caller's
// goroutine.
type Workers int

// Sequential runs every iteration on the calling goroutine.
const Sequential = Workers(1)

// ForEach splits [0, n) into contiguous chunks, one per goroutine.
func (w Workers) ForEach(n int, body func(i int)) {
	ForEach(n, int(w), body)
}

// ForEach executes a for loop with a limited number of concurrent goroutines.
// Each goroutine processes one contiguous range of indices.
func ForEach(length, limit int, body func(i int)) {
	if length <= 0 {
		return
	}
	if limit > length {
		limit = length
	}
	if limit <= 1 {
		for i := 0; i < length; i++ {
			body(i)
		}
		return
	}

	chunk := (length + limit - 1) / limit
	var wg sync.WaitGroup
	for start := 0; start < length; start += chunk {
		end := min(start+chunk, length)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				body(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// DefaultWorkers returns the number of logical cores reported by the CPU,
// falling back to the Go runtime's view when cpuid cannot tell.
func DefaultWorkers() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}
