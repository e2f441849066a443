package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/maseology/arlam"
	mrg63k3a "github.com/maseology/goRNG/MRG63k3a"
	"gorgonia.org/tensor"
)

const (
	keyW0     = "ar.w0"
	keyW1     = "ar.w1"
	keyProjW  = "encoding_grid_mlp.0.weight"
	keyProjB  = "encoding_grid_mlp.0.bias"
	keyLogStd = "std_head.logstd"
)

// Linear is a per-variable second-order autoregression with a linear
// forcing projection and an optional homoscedastic log-std head:
//
//	cand = w0*prev + w1*prevPrev + P·forcing + b
//
// Parameters live in dense tensors; the forcing projection runs as one
// (batch*nodes, feats)×(feats, vars) matmul per step, the elementwise
// autoregressive terms on cached flat views.
type Linear struct {
	W0, W1, B *tensor.Dense // (vars)
	P         *tensor.Dense // (vars, feats)
	LogStd    *tensor.Dense // (vars), nil without a std head

	pt                *tensor.Dense // P transposed (feats, vars)
	v, f              int
	w0, w1, b, logstd []float64
}

// NewLinear binds a loaded state dict. outputStd demands the log-std
// head be present.
func NewLinear(sd map[string]arlam.Param, outputStd bool) (*Linear, error) {
	get := func(k string) (arlam.Param, error) {
		p, ok := sd[k]
		if !ok {
			return arlam.Param{}, fmt.Errorf("nn.NewLinear: missing parameter %q", k)
		}
		return p, nil
	}
	w0, err := get(keyW0)
	if err != nil {
		return nil, err
	}
	v := len(w0.Data)
	w1, err := get(keyW1)
	if err != nil {
		return nil, err
	}
	pw, err := get(keyProjW)
	if err != nil {
		return nil, err
	}
	pb, err := get(keyProjB)
	if err != nil {
		return nil, err
	}
	if len(w1.Data) != v || len(pb.Data) != v {
		return nil, fmt.Errorf("nn.NewLinear: parameter lengths disagree (%d vars)", v)
	}
	if len(pw.Shape) != 2 || pw.Shape[0] != v {
		return nil, fmt.Errorf("nn.NewLinear: projection shape %v for %d vars", pw.Shape, v)
	}
	f := pw.Shape[1]
	if len(pw.Data) != v*f {
		return nil, fmt.Errorf("nn.NewLinear: projection holds %d values, want %d", len(pw.Data), v*f)
	}

	mk := func(dat []float64, shp ...int) *tensor.Dense {
		return tensor.New(tensor.WithShape(shp...), tensor.WithBacking(append([]float64(nil), dat...)))
	}
	l := &Linear{v: v, f: f,
		W0: mk(w0.Data, v), W1: mk(w1.Data, v), B: mk(pb.Data, v), P: mk(pw.Data, v, f)}
	l.w0 = l.W0.Data().([]float64)
	l.w1 = l.W1.Data().([]float64)
	l.b = l.B.Data().([]float64)
	if f > 0 {
		pT, err := tensor.T(l.P)
		if err != nil {
			return nil, fmt.Errorf("nn.NewLinear: %v", err)
		}
		l.pt = pT.(*tensor.Dense)
	}
	if outputStd {
		ls, err := get(keyLogStd)
		if err != nil {
			return nil, err
		}
		if len(ls.Data) != v {
			return nil, fmt.Errorf("nn.NewLinear: log-std holds %d values, want %d", len(ls.Data), v)
		}
		l.LogStd = mk(ls.Data, v)
		l.logstd = l.LogStd.Data().([]float64)
	}
	return l, nil
}

// NewRandomLinear initializes near persistence, so untrained rollouts
// stay bounded: unit-ish first-order weight, small second-order and
// forcing weights.
func NewRandomLinear(v, f int, outputStd bool, seed int64) *Linear {
	rng := rand.New(mrg63k3a.New())
	rng.Seed(seed)
	w0, w1, pb := make([]float64, v), make([]float64, v), make([]float64, v)
	pw := make([]float64, v*f)
	for iv := 0; iv < v; iv++ {
		w0[iv] = .9 + .05*rng.Float64()
		w1[iv] = .05 * rng.Float64()
		for jf := 0; jf < f; jf++ {
			pw[iv*f+jf] = .01 * rng.NormFloat64()
		}
	}
	sd := map[string]arlam.Param{
		keyW0:    {Shape: []int{v}, Data: w0},
		keyW1:    {Shape: []int{v}, Data: w1},
		keyProjW: {Shape: []int{v, f}, Data: pw},
		keyProjB: {Shape: []int{v}, Data: pb},
	}
	if outputStd {
		ls := make([]float64, v)
		for iv := range ls {
			ls[iv] = math.Log(.1)
		}
		sd[keyLogStd] = arlam.Param{Shape: []int{v}, Data: ls}
	}
	l, err := NewLinear(sd, outputStd)
	if err != nil {
		panic(err) // complete dict by construction
	}
	return l
}

// StateDict exports the parameters for checkpointing.
func (l *Linear) StateDict() map[string]arlam.Param {
	cp := func(v []float64) []float64 { return append([]float64(nil), v...) }
	sd := map[string]arlam.Param{
		keyW0:    {Shape: []int{l.v}, Data: cp(l.w0)},
		keyW1:    {Shape: []int{l.v}, Data: cp(l.w1)},
		keyProjW: {Shape: []int{l.v, l.f}, Data: cp(l.P.Data().([]float64))},
		keyProjB: {Shape: []int{l.v}, Data: cp(l.b)},
	}
	if l.logstd != nil {
		sd[keyLogStd] = arlam.Param{Shape: []int{l.v}, Data: cp(l.logstd)}
	}
	return sd
}

func (l *Linear) SinglePrediction(prev, prevPrev, forcing arlam.State) (arlam.State, *arlam.State, error) {
	if prev.V != l.v {
		return arlam.State{}, nil, fmt.Errorf("nn.Linear: %d state vars, parameters hold %d", prev.V, l.v)
	}
	if forcing.V != l.f {
		return arlam.State{}, nil, fmt.Errorf("nn.Linear: %d forcing features, parameters hold %d", forcing.V, l.f)
	}
	nb, n, v := prev.B, prev.N, prev.V
	out := arlam.NewState(nb, n, v)
	if l.f > 0 { // batched projection: (batch*nodes, feats)×(feats, vars)
		fm := tensor.New(tensor.WithShape(nb*n, l.f), tensor.WithBacking(forcing.Buf))
		prj, err := tensor.MatMul(fm, l.pt)
		if err != nil {
			return arlam.State{}, nil, fmt.Errorf("nn.Linear: %v", err)
		}
		copy(out.Buf, prj.Data().([]float64))
	}
	for ib := 0; ib < nb; ib++ {
		for in := 0; in < n; in++ {
			o := (ib*n + in) * v
			for iv := 0; iv < v; iv++ {
				out.Buf[o+iv] += l.w0[iv]*prev.Buf[o+iv] + l.w1[iv]*prevPrev.Buf[o+iv] + l.b[iv]
			}
		}
	}
	if l.logstd == nil {
		return out, nil, nil
	}
	std := arlam.NewState(nb, n, v)
	for i := range std.Buf {
		std.Buf[i] = math.Exp(l.logstd[i%v])
	}
	return out, &std, nil
}
