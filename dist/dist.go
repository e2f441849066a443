// Package dist coordinates data-parallel evaluation workers sharing one
// process. The only collective is a blocking all-gather; everything else
// a worker does stays rank-local.
package dist

import (
	"fmt"
	"sync"
)

// WorkerGroup is a set of n workers joined by a reusable barrier.
type WorkerGroup struct {
	n       int
	mu      sync.Mutex
	cv      *sync.Cond
	bufs    [][]float64
	arrived int
	gen     int
	out     []float64
}

func NewWorkerGroup(n int) (*WorkerGroup, error) {
	if n < 1 {
		return nil, fmt.Errorf("dist: worker group size %d", n)
	}
	g := &WorkerGroup{n: n, bufs: make([][]float64, n)}
	g.cv = sync.NewCond(&g.mu)
	return g, nil
}

func (g *WorkerGroup) Size() int { return g.n }

// Worker returns the handle for rank r.
func (g *WorkerGroup) Worker(r int) (*Worker, error) {
	if r < 0 || r >= g.n {
		return nil, fmt.Errorf("dist: rank %d of %d", r, g.n)
	}
	return &Worker{g: g, rank: r}, nil
}

// Run launches fn once per rank on its own goroutine and waits for all
// to return.
func (g *WorkerGroup) Run(fn func(w *Worker)) {
	var wg sync.WaitGroup
	for r := 0; r < g.n; r++ {
		wg.Add(1)
		w := &Worker{g: g, rank: r}
		go func() {
			defer wg.Done()
			fn(w)
		}()
	}
	wg.Wait()
}

// Worker is the per-rank handle. Rank 0 is the primary.
type Worker struct {
	g    *WorkerGroup
	rank int
}

func (w *Worker) Rank() int     { return w.rank }
func (w *Worker) Primary() bool { return w.rank == 0 }

// AllGatherConcat blocks until every worker in the group has contributed
// this round, then returns the rank-ordered concatenation to all of them.
// Contributions may differ in length. The returned slice is shared;
// callers must not modify it. Reusable round after round, but every
// worker must participate in every round or the group deadlocks.
func (w *Worker) AllGatherConcat(vals []float64) []float64 {
	g := w.g
	g.mu.Lock()
	defer g.mu.Unlock()
	gen := g.gen
	g.bufs[w.rank] = vals
	g.arrived++
	if g.arrived == g.n {
		nt := 0
		for _, b := range g.bufs {
			nt += len(b)
		}
		out := make([]float64, 0, nt)
		for _, b := range g.bufs {
			out = append(out, b...)
		}
		g.out = out
		g.arrived = 0
		g.gen++
		for i := range g.bufs {
			g.bufs[i] = nil
		}
		g.cv.Broadcast()
		return g.out
	}
	for gen == g.gen {
		g.cv.Wait()
	}
	return g.out
}
