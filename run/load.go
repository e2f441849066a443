package main

import (
	"log"
	"sync"
	"time"

	"github.com/maseology/arlam"
	"github.com/maseology/arlam/forcing"
	"github.com/maseology/arlam/grid"
	ghgrid "github.com/maseology/goHydro/grid"
)

// domainData is everything a run needs in memory: geometry, the
// standardized series with its moments, and the static rollout context.
type domainData struct {
	ctx    *arlam.StaticContext
	ds     *forcing.Dataset
	st     *forcing.Stats
	xs, ys []float64
	cids   []int
	gd     *ghgrid.Definition // nil for synthetic runs
}

// default variable set of the synthetic shakedown domain: one 3-D
// temperature field on two levels plus three surface fields.
var (
	synVarNames = []string{"T", "T_2M", "U_10M", "V_10M"}
	synVarUnits = map[string]string{"T": "K", "T_2M": "K", "U_10M": "m/s", "V_10M": "m/s"}
	synIs3D     = map[string]bool{"T": true}
	synLevels   = []int{1, 2}
	synGribs    = map[string]string{"T": "t", "T_2M": "2t", "U_10M": "10u", "V_10M": "10v"}
)

// loadDomain assembles the run domain. With a grid definition and a
// saved series both given they are loaded concurrently; otherwise a
// synthetic lattice domain is generated.
func loadDomain(gdefFP, seriesFP string, borderW, zone, nx, ny, nt, stepHr int, outstd bool, seed int64) *domainData {
	d := &domainData{}
	if gdefFP != "" && seriesFP != "" {
		var dom *grid.Domain
		var wgl sync.WaitGroup
		wgl.Add(2)
		go func() {
			defer wgl.Done()
			var err error
			if dom, err = grid.LoadDomain(gdefFP, borderW, zone); err != nil {
				log.Fatalf(" grid.LoadDomain: %v", err)
			}
		}()
		go func() {
			defer wgl.Done()
			var err error
			if d.ds, err = forcing.LoadGobDataset(seriesFP); err != nil {
				log.Fatalf(" forcing.LoadGobDataset: %v", err)
			}
		}()
		wgl.Wait()
		if d.ds.N != dom.Nodes() {
			log.Fatalf(" series holds %d nodes, domain %d", d.ds.N, dom.Nodes())
		}
		if len(d.ds.VarNames) == 0 {
			log.Fatalf(" series %s carries no variable metadata; rebuild it with prep", seriesFP)
		}
		d.gd, d.cids = dom.GD, dom.Cids
		d.xs, d.ys = dom.Lon, dom.Lat
		d.buildCtx(dom.BorderMask, dom.InteriorMask, outstd)
		return d
	}

	// synthetic lattice
	const cw = 2500.
	n := nx * ny
	d.xs, d.ys, d.cids = make([]float64, n), make([]float64, n), make([]int, n)
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			i := iy*nx + ix
			d.xs[i], d.ys[i], d.cids[i] = float64(ix)*cw, float64(iy)*cw, i
		}
	}
	border, interior := grid.BuildMasks(d.xs, d.ys, cw, borderW)
	nflat := len(synLevels) // the 3-D var contributes one column per level
	for _, nam := range synVarNames {
		if !synIs3D[nam] {
			nflat++
		}
	}
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	d.ds = forcing.Synthetic(t0, nt, n, nflat, stepHr, seed)
	d.ds.VarNames, d.ds.VarUnits = synVarNames, synVarUnits
	d.ds.Is3D, d.ds.Levels, d.ds.GribNames = synIs3D, synLevels, synGribs
	d.buildCtx(border, interior, outstd)
	return d
}

// buildCtx computes the series moments, standardizes in place, and
// binds the static rollout context to the series' own variable
// metadata.
func (d *domainData) buildCtx(border, interior []float64, outstd bool) {
	d.st = d.ds.BuildStats()
	d.ds.Standardize(d.st)
	ones := make([]float64, d.ds.V)
	for i := range ones {
		ones[i] = 1.
	}
	var evalPlot []string // screen-level temperature when carried, otherwise every variable
	for _, nam := range d.ds.VarNames {
		if nam == "T_2M" {
			evalPlot = []string{nam}
			break
		}
	}
	ctx, err := arlam.NewStaticContext(arlam.StaticContext{
		Nodes:        d.ds.N,
		BorderMask:   border,
		InteriorMask: interior,
		DataMean:     d.st.Mean,
		DataStd:      d.st.Std,
		StepDiffMean: d.st.DiffMean,
		StepDiffStd:  d.st.DiffStd,
		ParamWeights: ones,
		OutputStd:    outstd,
		VarNames:     d.ds.VarNames,
		VarUnits:     d.ds.VarUnits,
		Is3D:         d.ds.Is3D,
		Levels:       d.ds.Levels,
		EvalPlotVars: evalPlot,
		GribNames:    d.ds.GribNames,
		StepLengthHr: d.ds.StepHr,
	})
	if err != nil {
		log.Fatalf(" NewStaticContext: %v", err)
	}
	d.ctx = ctx
}
