package opt

import (
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"github.com/maseology/glbopt"
	"github.com/maseology/mmio"
	"github.com/maseology/montecarlo/smpln"
	"github.com/maseology/objfunc"
	mrg63k3a "github.com/maseology/goRNG/MRG63k3a"
)

const nMosDim = 2

// Apply returns the corrected series gain*sim + offset.
func Apply(sim []float64, gain, offset float64) []float64 {
	o := make([]float64, len(sim))
	for i, v := range sim {
		o[i] = gain*v + offset
	}
	return o
}

// SampleMOS latin-hypercube samples the correction space for one
// variable, writes the ranked samples to csv and returns the best.
func SampleMOS(dir, nam string, obs, sim []float64, nsmpl int, seed int64) (gain, offset, rmse float64, err error) {
	rng := rand.New(mrg63k3a.New())
	rng.Seed(seed)
	sp := smpln.NewLHC(rng, nsmpl, nMosDim, false)

	type rec struct{ g, o, f float64 }
	rs := make([]rec, nsmpl)
	for k := 0; k < nsmpl; k++ {
		ut := make([]float64, nMosDim)
		for j := 0; j < nMosDim; j++ {
			ut[j] = sp.U[j][k]
		}
		g, o := Par2(ut)
		rs[k] = rec{g, o, objfunc.RMSE(obs, Apply(sim, g, o))}
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].f < rs[j].f })

	tw, err := mmio.NewTXTwriter(dir + nam + "_mos_smpl.csv")
	if err != nil {
		return 0., 0., 0., fmt.Errorf(" opt.SampleMOS: %v", err)
	}
	defer tw.Close()
	tw.WriteLine(fmt.Sprintf("rank(of %d),rmse,gain,offset", nsmpl))
	for i, r := range rs {
		tw.WriteLine(fmt.Sprintf("%d,%f,%f,%f", i+1, r.f, r.g, r.o))
	}
	return rs[0].g, rs[0].o, rs[0].f, nil
}

// CalibrateMOS fits the correction for one variable with a shuffled
// complex search minimizing rmse.
func CalibrateMOS(obs, sim []float64) (gain, offset, rmse float64) {
	rng := rand.New(mrg63k3a.New())
	rng.Seed(time.Now().UnixNano())

	gen := func(u []float64) float64 {
		g, o := Par2(u)
		return objfunc.RMSE(obs, Apply(sim, g, o))
	}

	fmt.Println(" optimizing..")
	uFinal, _ := glbopt.SCE(runtime.GOMAXPROCS(0), nMosDim, rng, gen, true)

	gain, offset = Par2(uFinal)
	rmse = gen(uFinal)
	fmt.Printf("\nfinal parameters:\n\tgain:\t%v\n\toffset:\t%v\n", gain, offset)
	return
}
