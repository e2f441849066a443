package forcing

// Standardize converts the series to model space in place: states by the
// per-variable moments, forcing features by theirs.
func (ds *Dataset) Standardize(st *Stats) {
	nt, n := ds.NT(), ds.N
	for it := 0; it < nt; it++ {
		for in := 0; in < n; in++ {
			o := (it*n + in) * ds.V
			for iv := 0; iv < ds.V; iv++ {
				ds.States[o+iv] = (ds.States[o+iv] - st.Mean[iv]) / st.Std[iv]
			}
		}
	}
	if ds.F == 0 {
		return
	}
	for it := 0; it < nt; it++ {
		for in := 0; in < n; in++ {
			o := (it*n + in) * ds.F
			for jf := 0; jf < ds.F; jf++ {
				ds.Forcing[o+jf] = (ds.Forcing[o+jf] - st.FMean[jf]) / st.FStd[jf]
			}
		}
	}
}
