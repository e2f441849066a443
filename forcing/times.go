package forcing

import (
	"fmt"
	"time"
)

const dtfmt = "2006010215" // YYYYMMDDHH

// EvalTimes generates the forecast datetime label for every inference
// step: the base time plus i steps of trainHorizonHr hours, for the
// evalHorizon less the two initial states.
func EvalTimes(base string, evalHorizon, trainHorizonHr int) ([]string, error) {
	t0, err := time.Parse(dtfmt, base)
	if err != nil {
		return nil, fmt.Errorf("forcing.EvalTimes: base time %q: %v", base, err)
	}
	n := evalHorizon - 2
	if n < 0 {
		n = 0
	}
	o := make([]string, n)
	for i := range o {
		o[i] = t0.Add(time.Duration(i*trainHorizonHr) * time.Hour).Format(dtfmt)
	}
	return o, nil
}
