package arlam

import (
	"math"
	"strings"
)

// Gatherer concatenates a worker's flat metric block with every other
// worker's along the batch axis. Blocking and symmetric: all workers must
// call it the same number of times in the same order, or the group
// deadlocks. Per-worker row order is preserved; cross-worker order is
// fixed by worker id.
type Gatherer interface {
	AllGatherConcat(vals []float64) []float64
}

// SoloGather is the single-worker gatherer; it returns the block unchanged.
type SoloGather struct{}

func (SoloGather) AllGatherConcat(vals []float64) []float64 { return vals }

type metricBlock struct {
	vals    []float64 // (batch, steps, vars) flat
	b, s, v int
}

// Accumulator collects per-batch metric tensors over one epoch. Append is
// cheap and never blocks; all distributed work happens in Finalize.
// Lifecycle: create (or Reset) at epoch start, Append per step, Finalize
// exactly once at epoch end, Reset before the next epoch begins.
type Accumulator struct {
	names  []string
	blocks map[string][]metricBlock
	done   bool
}

// NewAccumulator registers the metric names accumulated per epoch.
func NewAccumulator(names ...string) *Accumulator {
	a := &Accumulator{names: append([]string{}, names...), blocks: make(map[string][]metricBlock, len(names))}
	for _, nam := range names {
		a.blocks[nam] = nil
	}
	return a
}

// Names returns the registered metric names in accumulation order.
func (a *Accumulator) Names() []string { return a.names }

// Append stores one per-batch metric tensor, laid out (batch, steps, vars).
func (a *Accumulator) Append(name string, vals []float64, b, s, v int) error {
	if a.done {
		return confErrf("accumulator: append after finalize; epoch not reset")
	}
	bs, ok := a.blocks[name]
	if !ok {
		return confErrf("accumulator: metric %q not registered", name)
	}
	if len(vals) != b*s*v {
		return shapeErr("accumulate "+name, []int{len(vals)}, []int{b * s * v})
	}
	if len(bs) > 0 && (bs[0].s != s || bs[0].v != v) {
		return shapeErr("accumulate "+name, []int{b, s, v}, []int{b, bs[0].s, bs[0].v})
	}
	a.blocks[name] = append(a.blocks[name], metricBlock{vals, b, s, v})
	return nil
}

// EpochSummary holds the epoch-aggregated metric tables, rescaled to
// physical units, one (steps, vars) table per metric.
type EpochSummary struct {
	Prefix      string
	Names       []string // after the mse→rmse rename, aggregation order
	Tables      map[string][]float64
	Steps, Vars int
}

// Finalize concatenates each metric's batches, gathers across workers,
// reduces by arithmetic mean over the full gathered batch axis, applies
// the square root after all averaging for metrics named *mse* (renaming
// them *rmse*), and rescales by the per-variable data std. Rescaling is
// applied linearly to every metric, a deliberate approximation. Must be
// called exactly once per epoch, by every worker.
func (a *Accumulator) Finalize(prefix string, g Gatherer, dataStd []float64) (*EpochSummary, error) {
	if a.done {
		return nil, confErrf("accumulator: finalize called twice in one epoch")
	}
	a.done = true

	out := &EpochSummary{Prefix: prefix, Tables: make(map[string][]float64, len(a.names))}
	for _, nam := range a.names {
		bs := a.blocks[nam]
		if len(bs) == 0 {
			return nil, confErrf("accumulator: no batches accumulated for %q", nam)
		}
		s, v := bs[0].s, bs[0].v
		if len(dataStd) != v {
			return nil, shapeErr("finalize "+nam, []int{len(dataStd)}, []int{v})
		}

		nloc := 0
		for _, blk := range bs {
			nloc += len(blk.vals)
		}
		local := make([]float64, 0, nloc)
		for _, blk := range bs {
			local = append(local, blk.vals...)
		}

		gathered := g.AllGatherConcat(local) // (sum of worker batches, steps, vars)
		rowlen := s * v
		rows := len(gathered) / rowlen

		tbl := make([]float64, rowlen)
		for r := 0; r < rows; r++ {
			o := r * rowlen
			for j := 0; j < rowlen; j++ {
				tbl[j] += gathered[o+j]
			}
		}
		fr := float64(rows)
		for j := range tbl {
			tbl[j] /= fr
		}

		outName := nam
		if strings.Contains(nam, "mse") {
			// square root after all averaging: rmse of the aggregate, not
			// the average of per-sample rmse
			for j := range tbl {
				tbl[j] = math.Sqrt(tbl[j])
			}
			outName = strings.ReplaceAll(nam, "mse", "rmse")
		}

		for is := 0; is < s; is++ {
			for iv := 0; iv < v; iv++ {
				tbl[is*v+iv] *= dataStd[iv]
			}
		}

		out.Names = append(out.Names, outName)
		out.Tables[outName] = tbl
		out.Steps, out.Vars = s, v
		a.blocks[nam] = nil
	}
	return out, nil
}

// Reset clears the accumulator and re-arms it for the next epoch.
func (a *Accumulator) Reset() {
	for nam := range a.blocks {
		a.blocks[nam] = nil
	}
	a.done = false
}
