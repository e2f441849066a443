package vis

import (
	"fmt"

	"github.com/maseology/mmio"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// Field is one variable-level field unrolled over lead steps, prediction
// and target aligned, in physical units.
type Field struct {
	Name, Unit string
	Lvl        int
	Pred       [][]float64 // [step][node]
	Tgt        [][]float64 // [step][node]
}

// PlotExample renders one forecast example: a png per field and lead
// step, prediction and target side by side on a shared value range
// spanning both fields and all steps. Frames land under dir in a
// per-sample folder so animation can pick them up in step order.
func PlotExample(dir string, sample, stepHr int, xs, ys []float64, flds []Field) error {
	sdir := fmt.Sprintf("%ssample_%02d/", dir, sample)
	mmio.MakeDir(sdir)
	xlo, xhi := span(xs)
	ylo, yhi := span(ys)
	w := xhi - xlo
	for _, fld := range flds {
		lo, hi := vrange(fld.Pred, fld.Tgt)
		for is := range fld.Pred {
			k := is + 1
			p := plot.New()
			p.Title.Text = fmt.Sprintf("%s (%s), t=%d (%d h)", fld.Name, fld.Unit, k, k*stepHr)
			p.X.Label.Text = "prediction | target"
			p.X.Min, p.X.Max = xlo, xhi+w
			p.Y.Min, p.Y.Max = ylo, yhi
			if err := addField(p, xs, ys, fld.Pred[is], lo, hi, 0.); err != nil {
				return err
			}
			if err := addField(p, xs, ys, fld.Tgt[is], lo, hi, w); err != nil {
				return err
			}
			fp := fmt.Sprintf("%s%s_test_lvl_%02d_t_%02d.png", sdir, fld.Name, fld.Lvl, k)
			if err := p.Save(10*vg.Inch, 4*vg.Inch, fp); err != nil {
				return err
			}
		}
	}
	return nil
}
