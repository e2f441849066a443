// Package opt calibrates the statistical correction applied to raw
// forecast output: a per-variable gain and offset fit against observed
// series, sampled globally then polished with a shuffled complex search.
package opt

import "github.com/maseology/mmaths"

// Par2 maps a unit-interval sample onto the correction parameters.
func Par2(u []float64) (gain, offset float64) {
	gain = mmaths.LogLinearTransform(.2, 5., u[0]) // multiplicative, unity at u ~ .5
	offset = mmaths.LinearTransform(-5., 5., u[1])
	return
}
