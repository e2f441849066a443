// Package postpro turns finished predictions into deliverables: flat
// binary dumps, georeferenced rasters, encoder hand-off, and skill
// scores against observed series.
package postpro

import (
	"fmt"

	"github.com/maseology/arlam"
	ghgrid "github.com/maseology/goHydro/grid"
	"github.com/maseology/mmio"
)

// Encoder writes one lead step of one variable level to an external
// forecast format, keyed by the step's datetime label. GRIB writers plug
// in here; the exporter owns everything else.
type Encoder interface {
	EncodeStep(dateStr, varName string, lvl int, vals []float64) error
}

// Exporter writes finished prediction samples: the full array as a flat
// float32 dump, a raster per variable level and logged lead step, and
// whatever the attached encoder produces.
type Exporter struct {
	Ctx   *arlam.StaticContext
	GD    *ghgrid.Definition // nil skips rasters
	Cids  []int              // node order -> cell id
	Dir   string
	Enc   Encoder // optional
	Steps []int   // 1-indexed lead steps to rasterize and encode; nil = all
}

func (x *Exporter) ExportSample(sample int, pred arlam.Seq, times []string) error {
	if err := writeFloats(fmt.Sprintf("%sprediction_%d.bin", x.Dir, sample), pred.Buf); err != nil {
		return err
	}
	logged := func(k int) bool {
		if len(x.Steps) == 0 {
			return true
		}
		for _, s := range x.Steps {
			if s == k {
				return true
			}
		}
		return false
	}
	for is := 0; is < pred.S; is++ {
		k := is + 1
		if !logged(k) {
			continue
		}
		for _, nam := range x.Ctx.EvalVars() {
			for li, iv := range x.Ctx.VarIdx[nam] {
				lvl := x.Ctx.Level(nam, li)
				vals := make([]float64, pred.N)
				for in := 0; in < pred.N; in++ {
					vals[in] = pred.At(0, is, in, iv)
				}
				if x.GD != nil {
					if err := x.writeRaster(fmt.Sprintf("%sprediction_%d.%s_l%02d.t%02d.bil", x.Dir, sample, nam, lvl, k), vals); err != nil {
						return err
					}
				}
				if x.Enc != nil && is < len(times) {
					if err := x.Enc.EncodeStep(times[is], nam, lvl, vals); err != nil {
						return fmt.Errorf("postpro.ExportSample: encode %s level %d at %s: %v", nam, lvl, times[is], err)
					}
				}
			}
		}
	}
	return nil
}

// DumpExample writes a plotted forecast example's prediction and target
// sequences as flat float32 dumps next to the rendered frames, so the
// example survives in a re-readable form (see ReadPrediction).
func DumpExample(dir string, sample int, pred, target arlam.Seq) error {
	if err := writeFloats(fmt.Sprintf("%sexample_pred_%02d.bin", dir, sample), pred.Buf); err != nil {
		return err
	}
	return writeFloats(fmt.Sprintf("%sexample_target_%02d.bin", dir, sample), target.Buf)
}

func (x *Exporter) writeRaster(fp string, vals []float64) error {
	sva := x.GD.NullArray(-9999.)
	for in, c := range x.Cids {
		sva[c] = vals[in]
	}
	if err := writeFloats(fp, sva); err != nil {
		return err
	}
	x.GD.ToHDRfloat(mmio.RemoveExtension(fp)+".hdr", 1, 32)
	return nil
}
