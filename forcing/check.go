package forcing

import "fmt"

// CheckAndPrint summarizes the loaded series and its per-variable ranges.
func (ds *Dataset) CheckAndPrint(varNames []string) {
	fmt.Println("Series summary:")
	nt := ds.NT()
	fmt.Printf(" %v to %v, %d-hourly (%d timesteps)\n", ds.T[0], ds.T[nt-1], ds.StepHr, nt)
	fmt.Printf(" %d nodes, %d state variables, %d forcing features\n", ds.N, ds.V, ds.F)

	for iv := 0; iv < ds.V; iv++ {
		lo, hi, s := ds.stateAt(0, 0, iv), ds.stateAt(0, 0, iv), 0.
		for it := 0; it < nt; it++ {
			for in := 0; in < ds.N; in++ {
				x := ds.stateAt(it, in, iv)
				if x < lo {
					lo = x
				}
				if x > hi {
					hi = x
				}
				s += x
			}
		}
		nam := fmt.Sprintf("var%d", iv)
		if iv < len(varNames) {
			nam = varNames[iv]
		}
		fmt.Printf("  %-12s min: %10.3f  mean: %10.3f  max: %10.3f\n", nam, lo, s/float64(nt*ds.N), hi)
	}
}
