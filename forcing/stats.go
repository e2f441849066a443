package forcing

import "math"

// Stats holds the standardization moments of a series: per-variable mean
// and std of the states, of their one-step differences, and of the
// forcing features.
type Stats struct {
	Mean, Std         []float64
	DiffMean, DiffStd []float64
	FMean, FStd       []float64
}

// BuildStats computes the moments over all times and nodes. Zero-variance
// series keep a unit std so constant fields pass through unscaled.
func (ds *Dataset) BuildStats() *Stats {
	nt, n := ds.NT(), ds.N
	st := &Stats{
		Mean: make([]float64, ds.V), Std: make([]float64, ds.V),
		DiffMean: make([]float64, ds.V), DiffStd: make([]float64, ds.V),
		FMean: make([]float64, ds.F), FStd: make([]float64, ds.F),
	}
	for iv := 0; iv < ds.V; iv++ {
		s1, s2, c := 0., 0., float64(nt*n)
		d1, d2, dc := 0., 0., float64((nt-1)*n)
		for it := 0; it < nt; it++ {
			for in := 0; in < n; in++ {
				x := ds.stateAt(it, in, iv)
				s1 += x
				s2 += x * x
				if it < nt-1 {
					d := ds.stateAt(it+1, in, iv) - x
					d1 += d
					d2 += d * d
				}
			}
		}
		st.Mean[iv], st.Std[iv] = moments(s1, s2, c)
		st.DiffMean[iv], st.DiffStd[iv] = moments(d1, d2, dc)
	}
	for jf := 0; jf < ds.F; jf++ {
		s1, s2, c := 0., 0., float64(nt*n)
		for it := 0; it < nt; it++ {
			for in := 0; in < n; in++ {
				x := ds.forcingAt(it, in, jf)
				s1 += x
				s2 += x * x
			}
		}
		st.FMean[jf], st.FStd[jf] = moments(s1, s2, c)
	}
	return st
}

func moments(s1, s2, c float64) (mean, std float64) {
	if c <= 0. {
		return 0., 1.
	}
	mean = s1 / c
	v := s2/c - mean*mean
	if v <= 0. {
		return mean, 1.
	}
	return mean, math.Sqrt(v)
}
