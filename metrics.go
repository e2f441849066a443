package arlam

import (
	"math"
	"sort"
)

// MetricFunc evaluates one error measure elementwise and reduces it.
// pred and target are (batch, steps, nodes, vars) sequences; std carries
// predictive uncertainty under broadcasting; mask, when non-nil, restricts
// the node dimension before any reduction. Reduction order: mask nodes,
// mean over nodes (averageGrid), sum over variables (sumVars).
// Returned layouts, flat row-major:
//
//	averageGrid && sumVars:   (batch, steps)
//	averageGrid && !sumVars:  (batch, steps, vars)
//	!averageGrid && sumVars:  (batch, steps, masked nodes)
//	!averageGrid && !sumVars: (batch, steps, masked nodes, vars)
type MetricFunc func(pred, target Seq, std StdField, mask []bool, averageGrid, sumVars bool) []float64

var metricRegistry = map[string]MetricFunc{
	"mse":        MSE,
	"wmse":       WMSE,
	"mae":        MAE,
	"wmae":       WMAE,
	"nll":        NLL,
	"crps_gauss": CRPSGauss,
}

// GetMetric returns the named metric function, failing fast on names
// absent from the registry.
func GetMetric(name string) (MetricFunc, error) {
	f, ok := metricRegistry[name]
	if !ok {
		return nil, &UnknownMetricError{Name: name}
	}
	return f, nil
}

// MetricNames lists the registered metric names, sorted.
func MetricNames() []string {
	nams := make([]string, 0, len(metricRegistry))
	for nam := range metricRegistry {
		nams = append(nams, nam)
	}
	sort.Strings(nams)
	return nams
}

// MSE is the unweighted squared error.
func MSE(pred, target Seq, std StdField, mask []bool, averageGrid, sumVars bool) []float64 {
	return reduceMetric(func(d, sig float64) float64 { return d * d }, pred, target, std, mask, averageGrid, sumVars)
}

// WMSE is the squared error inverse-weighted by the predictive variance.
func WMSE(pred, target Seq, std StdField, mask []bool, averageGrid, sumVars bool) []float64 {
	return reduceMetric(func(d, sig float64) float64 { return d * d / (sig * sig) }, pred, target, std, mask, averageGrid, sumVars)
}

// MAE is the unweighted absolute error.
func MAE(pred, target Seq, std StdField, mask []bool, averageGrid, sumVars bool) []float64 {
	return reduceMetric(func(d, sig float64) float64 { return math.Abs(d) }, pred, target, std, mask, averageGrid, sumVars)
}

// WMAE is the absolute error inverse-weighted by the predictive std.
func WMAE(pred, target Seq, std StdField, mask []bool, averageGrid, sumVars bool) []float64 {
	return reduceMetric(func(d, sig float64) float64 { return math.Abs(d) / sig }, pred, target, std, mask, averageGrid, sumVars)
}

// NLL is the Gaussian negative log likelihood of the target under
// N(prediction, std²).
func NLL(pred, target Seq, std StdField, mask []bool, averageGrid, sumVars bool) []float64 {
	l2pi := math.Log(2. * math.Pi)
	return reduceMetric(func(d, sig float64) float64 {
		z := d / sig
		return .5*l2pi + math.Log(sig) + .5*z*z
	}, pred, target, std, mask, averageGrid, sumVars)
}

// CRPSGauss is the closed-form continuous ranked probability score for a
// Gaussian predictive distribution.
func CRPSGauss(pred, target Seq, std StdField, mask []bool, averageGrid, sumVars bool) []float64 {
	return reduceMetric(func(d, sig float64) float64 {
		z := d / sig
		return sig * (z*(2.*stdNormCDF(z)-1.) + 2.*stdNormPDF(z) - 1./math.Sqrt(math.Pi))
	}, pred, target, std, mask, averageGrid, sumVars)
}

func stdNormPDF(z float64) float64 { return math.Exp(-.5*z*z) / math.Sqrt(2.*math.Pi) }

func stdNormCDF(z float64) float64 { return .5 * (1. + math.Erf(z/math.Sqrt2)) }

func reduceMetric(entry func(d, sig float64) float64, pred, target Seq, std StdField, mask []bool, averageGrid, sumVars bool) []float64 {
	b, s, n, v := pred.B, pred.S, pred.N, pred.V
	idx := make([]int, 0, n)
	if mask == nil {
		for in := 0; in < n; in++ {
			idx = append(idx, in)
		}
	} else {
		for in, m := range mask {
			if m {
				idx = append(idx, in)
			}
		}
	}
	ni, fni := len(idx), float64(len(idx))
	hasStd := std.Seq != nil || std.PerVar != nil

	sig := func(ib, is, in, iv int) float64 {
		if !hasStd {
			return 1.
		}
		return std.At(ib, is, in, iv)
	}

	var out []float64
	switch {
	case averageGrid && sumVars:
		out = make([]float64, b*s)
	case averageGrid:
		out = make([]float64, b*s*v)
	case sumVars:
		out = make([]float64, b*s*ni)
	default:
		out = make([]float64, b*s*ni*v)
	}

	acc := make([]float64, v)
	for ib := 0; ib < b; ib++ {
		for is := 0; is < s; is++ {
			if averageGrid {
				for iv := range acc {
					acc[iv] = 0.
				}
				for _, in := range idx {
					o := ((ib*s+is)*n + in) * v
					for iv := 0; iv < v; iv++ {
						acc[iv] += entry(pred.Buf[o+iv]-target.Buf[o+iv], sig(ib, is, in, iv))
					}
				}
				if sumVars {
					t := 0.
					for iv := 0; iv < v; iv++ {
						t += acc[iv] / fni
					}
					out[ib*s+is] = t
				} else {
					for iv := 0; iv < v; iv++ {
						out[(ib*s+is)*v+iv] = acc[iv] / fni
					}
				}
			} else {
				for j, in := range idx {
					o := ((ib*s+is)*n + in) * v
					if sumVars {
						t := 0.
						for iv := 0; iv < v; iv++ {
							t += entry(pred.Buf[o+iv]-target.Buf[o+iv], sig(ib, is, in, iv))
						}
						out[(ib*s+is)*ni+j] = t
					} else {
						for iv := 0; iv < v; iv++ {
							out[((ib*s+is)*ni+j)*v+iv] = entry(pred.Buf[o+iv]-target.Buf[o+iv], sig(ib, is, in, iv))
						}
					}
				}
			}
		}
	}
	return out
}
