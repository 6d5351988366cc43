// Package parallel provides the data-parallel fan-out used by the grid engine.
// Every call blocks until all of its work items have completed.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Workers resolves a configured worker count; 0 or negative means GOMAXPROCS.
func Workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// ForEach calls fn for every index in [0, n) using at most workers goroutines.
func ForEach(n, workers int, fn func(i int)) {
	if n <= 0 {
		return
	}
	workers = Workers(workers)
	if workers == 1 || n == 1 {
		for i := range n {
			fn(i)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range n {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

// Ranges splits [0, n) into at most workers contiguous ranges of near equal
// size and calls fn(lo, hi) for each of them concurrently.
func Ranges(n, workers int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	workers = min(Workers(workers), n)
	size := (n + workers - 1) / workers
	parts := (n + size - 1) / size

	ForEach(parts, workers, func(p int) {
		lo := p * size
		fn(lo, min(lo+size, n))
	})
}
