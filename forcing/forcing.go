// Package forcing assembles the continuous gridded series a forecast
// model trains and evaluates on: state variables and forcing features on
// the model's node order, windowed into autoregressive samples.
package forcing

import (
	"fmt"
	"time"

	"github.com/maseology/arlam"
)

// Dataset is a continuous series of gridded states with aligned forcing
// features. States is flat (time, nodes, vars), Forcing flat (time,
// nodes, features) and may be empty. Sampling assumes the series has
// been standardized to model space.
type Dataset struct {
	T       []time.Time
	States  []float64
	Forcing []float64
	N, V, F int
	StepHr  int

	// variable metadata, carried with the saved series so a run never
	// has to guess what the state columns hold
	VarNames  []string
	VarUnits  map[string]string
	Is3D      map[string]bool
	Levels    []int
	GribNames map[string]string
}

func (ds *Dataset) NT() int { return len(ds.T) }

func (ds *Dataset) stateAt(it, in, iv int) float64 {
	return ds.States[(it*ds.N+in)*ds.V+iv]
}

func (ds *Dataset) forcingAt(it, in, jf int) float64 {
	return ds.Forcing[(it*ds.N+in)*ds.F+jf]
}

// NSamples is the number of autoregressive windows of s unrolled steps
// the series supports: two initial states plus s targets per window.
func (ds *Dataset) NSamples(s int) int {
	n := len(ds.T) - s - 1
	if n < 0 {
		return 0
	}
	return n
}

// Batch stacks windows ks into one batch of s unrolled steps: initial
// states at k and k+1, targets and forcing at k+2..k+1+s.
func (ds *Dataset) Batch(ks []int, s int) (arlam.Batch, error) {
	nb := len(ks)
	b := arlam.Batch{
		Targets: arlam.NewSeq(nb, s, ds.N, ds.V),
		Forcing: arlam.NewSeq(nb, s, ds.N, ds.F),
	}
	b.Init[0], b.Init[1] = arlam.NewState(nb, ds.N, ds.V), arlam.NewState(nb, ds.N, ds.V)
	for ib, k := range ks {
		if k < 0 || k >= ds.NSamples(s) {
			return arlam.Batch{}, fmt.Errorf("forcing.Batch: window %d of %d", k, ds.NSamples(s))
		}
		for in := 0; in < ds.N; in++ {
			for iv := 0; iv < ds.V; iv++ {
				b.Init[0].Set(ib, in, iv, ds.stateAt(k, in, iv))
				b.Init[1].Set(ib, in, iv, ds.stateAt(k+1, in, iv))
			}
		}
		for is := 0; is < s; is++ {
			t := k + 2 + is
			for in := 0; in < ds.N; in++ {
				for iv := 0; iv < ds.V; iv++ {
					b.Targets.Set(ib, is, in, iv, ds.stateAt(t, in, iv))
				}
				for jf := 0; jf < ds.F; jf++ {
					b.Forcing.Set(ib, is, in, jf, ds.forcingAt(t, in, jf))
				}
			}
		}
	}
	return b, nil
}

// Sample extracts window k alone.
func (ds *Dataset) Sample(k, s int) (arlam.Batch, error) {
	return ds.Batch([]int{k}, s)
}
