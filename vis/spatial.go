package vis

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// PlotSpatial renders one mean loss map at lead step k. Border nodes
// carry zero loss and show as the cold end of the scale.
func PlotSpatial(dir, prefix string, k, stepHr int, xs, ys, vals []float64) error {
	lo, hi := vrange([][]float64{vals})
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s loss, t=%d (%d h)", prefix, k, k*stepHr)
	p.X.Min, p.X.Max = span(xs)
	p.Y.Min, p.Y.Max = span(ys)
	if err := addField(p, xs, ys, vals, lo, hi, 0.); err != nil {
		return err
	}
	fp := fmt.Sprintf("%s%s_loss_t%02d.png", dir, prefix, k)
	return p.Save(8*vg.Inch, 6*vg.Inch, fp)
}
