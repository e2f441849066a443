package main

/*
	Autoregressive limited-area forecast core
	version 0.1.1

	this example generates a small synthetic lattice domain, rolls the
	persistence baseline over one test window and prints the per-step
	interior rmse of 2-m temperature
*/

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/maseology/arlam"
	"github.com/maseology/arlam/forcing"
	"github.com/maseology/arlam/grid"
	"github.com/maseology/arlam/nn"
)

const (
	nx, ny  = 8, 6
	cw      = 2500.
	nt      = 120
	stepHr  = 3
	borderW = 1
	steps   = 4
)

func main() {
	n := nx * ny
	xs, ys := make([]float64, n), make([]float64, n)
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			xs[iy*nx+ix], ys[iy*nx+ix] = float64(ix)*cw, float64(iy)*cw
		}
	}
	border, interior := grid.BuildMasks(xs, ys, cw, borderW)

	ds := forcing.Synthetic(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), nt, n, 2, stepHr, 1984)
	st := ds.BuildStats()
	ds.Standardize(st)

	ctx, err := arlam.NewStaticContext(arlam.StaticContext{
		Nodes:        n,
		BorderMask:   border,
		InteriorMask: interior,
		DataMean:     st.Mean,
		DataStd:      st.Std,
		StepDiffMean: st.DiffMean,
		StepDiffStd:  st.DiffStd,
		ParamWeights: []float64{1., 1.},
		VarNames:     []string{"T_2M", "U_10M"},
		VarUnits:     map[string]string{"T_2M": "K", "U_10M": "m/s"},
		Is3D:         map[string]bool{},
		StepLengthHr: stepHr,
	})
	if err != nil {
		log.Fatalln(err)
	}

	b, err := ds.Sample(10, steps)
	if err != nil {
		log.Fatalln(err)
	}
	prd, _, err := arlam.Rollout(ctx, b.Init, b.Forcing, b.Targets, nn.Persistence{})
	if err != nil {
		log.Fatalln(err)
	}

	iv := ctx.VarIdx["T_2M"][0]
	ib := ctx.InteriorBool()
	fmt.Println("persistence baseline, 2-m temperature interior rmse:")
	for is := 0; is < steps; is++ {
		s, c := 0., 0.
		for in := 0; in < n; in++ {
			if ib[in] {
				d := prd.At(0, is, in, iv) - b.Targets.At(0, is, in, iv)
				s += d * d
				c++
			}
		}
		fmt.Printf("  t=%d (%d h): %.4f K\n", is+1, (is+1)*stepHr, math.Sqrt(s/c)*st.Std[iv])
	}
}
