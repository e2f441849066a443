package arlam

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
)

// StaticContext holds everything about the model domain that is fixed for
// the model's lifetime: grid masks, per-variable statistics and variable
// metadata. Built (or loaded) once at construction and treated as
// immutable thereafter; safe for concurrent reads.
type StaticContext struct {
	Nodes, NVars int

	// complementary {0,1} node masks: border nodes take ground truth at
	// every rollout step, interior nodes take the prediction
	BorderMask, InteriorMask []float64

	// per flattened variable, in index order
	DataMean, DataStd         []float64
	StepDiffMean, StepDiffStd []float64
	ParamWeights              []float64

	OutputStd bool
	PerVarStd []float64 // stepDiffStd/sqrt(paramWeights); set when OutputStd is off

	VarNames     []string
	VarUnits     map[string]string
	Is3D         map[string]bool
	Levels       []int
	EvalPlotVars []string
	GribNames    map[string]string
	StepLengthHr int

	VarIdx    map[string][]int
	FlatNames []string

	interiorBool []bool
}

// NewStaticContext validates the static data and derives the variable
// index, flat labels and the static per-variable std.
func NewStaticContext(sc StaticContext) (*StaticContext, error) {
	if sc.Nodes <= 0 {
		return nil, confErrf("static context: %d grid nodes", sc.Nodes)
	}
	if len(sc.BorderMask) != sc.Nodes || len(sc.InteriorMask) != sc.Nodes {
		return nil, confErrf("static context: mask length (%d, %d) != %d nodes", len(sc.BorderMask), len(sc.InteriorMask), sc.Nodes)
	}
	for i := range sc.BorderMask {
		b, n := sc.BorderMask[i], sc.InteriorMask[i]
		if (b != 0. && b != 1.) || (n != 0. && n != 1.) || b+n != 1. {
			return nil, confErrf("static context: masks not complementary {0,1} at node %d: border %g, interior %g", i, b, n)
		}
	}

	vi, err := BuildVarIndex(sc.VarNames, sc.Is3D, sc.Levels)
	if err != nil {
		return nil, err
	}
	fn, err := FlatVarNames(sc.VarNames, sc.Is3D, sc.Levels)
	if err != nil {
		return nil, err
	}
	sc.VarIdx, sc.FlatNames, sc.NVars = vi, fn, len(fn)

	for _, q := range [][]float64{sc.DataMean, sc.DataStd, sc.StepDiffMean, sc.StepDiffStd, sc.ParamWeights} {
		if len(q) != sc.NVars {
			return nil, confErrf("static context: statistic length %d != %d variables", len(q), sc.NVars)
		}
	}
	for iv, sd := range sc.DataStd {
		if sd <= 0. {
			return nil, confErrf("static context: non-positive data std %g for %s", sd, sc.FlatNames[iv])
		}
	}

	if !sc.OutputStd {
		sc.PerVarStd = make([]float64, sc.NVars)
		for iv := range sc.PerVarStd {
			w := sc.ParamWeights[iv]
			if w <= 0. {
				return nil, confErrf("static context: non-positive variable weight %g for %s", w, sc.FlatNames[iv])
			}
			sc.PerVarStd[iv] = sc.StepDiffStd[iv] / math.Sqrt(w)
		}
	}

	sc.finalize()
	return &sc, nil
}

// finalize rebuilds the derived unexported fields, needed after gob decode.
func (sc *StaticContext) finalize() {
	sc.interiorBool = make([]bool, sc.Nodes)
	for i, m := range sc.InteriorMask {
		sc.interiorBool[i] = m == 1.
	}
}

// InteriorBool is the interior mask as a boolean node mask.
func (sc *StaticContext) InteriorBool() []bool { return sc.interiorBool }

// EvalVars lists the variables selected for plotting and export,
// defaulting to all of them.
func (sc *StaticContext) EvalVars() []string {
	if len(sc.EvalPlotVars) > 0 {
		return sc.EvalPlotVars
	}
	return sc.VarNames
}

// Level is the vertical level of the li-th column of variable nam;
// surface variables sit at level 0.
func (sc *StaticContext) Level(nam string, li int) int {
	if sc.Is3D[nam] && li < len(sc.Levels) {
		return sc.Levels[li]
	}
	return 0
}

// SaveGob StaticContext to gob
func (sc *StaticContext) SaveGob(fp string) error {
	f, err := os.Create(fp)
	if err != nil {
		return fmt.Errorf(" StaticContext.SaveGob %v", err)
	}
	if err := gob.NewEncoder(f).Encode(sc); err != nil {
		return fmt.Errorf(" StaticContext.SaveGob %v", err)
	}
	f.Close()
	return nil
}

// LoadGobStaticContext loads and re-validates
func LoadGobStaticContext(fp string) (*StaticContext, error) {
	var sc StaticContext
	f, err := os.Open(fp)
	if err != nil {
		return nil, err
	}
	enc := gob.NewDecoder(f)
	err = enc.Decode(&sc)
	if err != nil {
		return nil, err
	}
	f.Close()
	return NewStaticContext(sc)
}
