// Package vis renders forecast fields: per-step prediction/target
// panels, mean spatial loss maps, and animated loops over lead time.
// Fields are drawn as binned scatters over the node coordinates.
package vis

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const nbin = 12

// ramp maps t in [0,1] onto a blue-to-red scale.
func ramp(t float64) color.RGBA {
	if t < 0. {
		t = 0.
	} else if t > 1. {
		t = 1.
	}
	return color.RGBA{R: uint8(40. + 215.*t), G: 60, B: uint8(255. - 215.*t), A: 255}
}

// addField draws one field as nbin uniform-colored scatters, values
// binned over [lo,hi]. xoff shifts the panel along x.
func addField(p *plot.Plot, xs, ys, vals []float64, lo, hi, xoff float64) error {
	if hi <= lo {
		hi = lo + 1.
	}
	bins := make([]plotter.XYs, nbin)
	for i, v := range vals {
		t := (v - lo) / (hi - lo)
		b := int(t * float64(nbin))
		if b < 0 {
			b = 0
		} else if b >= nbin {
			b = nbin - 1
		}
		bins[b] = append(bins[b], plotter.XY{X: xs[i] + xoff, Y: ys[i]})
	}
	for b, xy := range bins {
		if len(xy) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(xy)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = ramp((float64(b) + .5) / float64(nbin))
		sc.GlyphStyle.Radius = vg.Points(1.8)
		p.Add(sc)
	}
	return nil
}

// vrange is the value range of a set of fields, padded when degenerate.
func vrange(fss ...[][]float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, fs := range fss {
		for _, f := range fs {
			for _, v := range f {
				if v < lo {
					lo = v
				}
				if v > hi {
					hi = v
				}
			}
		}
	}
	if math.IsInf(lo, 1) {
		return -1., 1.
	}
	if hi == lo {
		hi = lo + 1.
	}
	return lo, hi
}

// span is the padded extent of the node coordinates.
func span(xs []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if math.IsInf(lo, 1) {
		return -1., 1.
	}
	pad := (hi - lo) * .06
	if pad == 0 {
		pad = 1.
	}
	return lo - pad, hi + pad
}
