package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/maseology/arlam"
	"github.com/maseology/arlam/forcing"
	"github.com/maseology/arlam/nn"
	"github.com/maseology/arlam/opt"
	"github.com/maseology/arlam/postpro"
	"github.com/maseology/arlam/vis"
	"github.com/maseology/mmio"
)

const (
	trnSteps  = 4 // training unroll
	evlSteps  = 8 // test/prediction unroll
	batchSize = 4
	borderW   = 2  // boundary ring width (cells)
	utmZone   = 17 // of the grid definition
	stepHr    = 3  // series time step (hours)
	nEx       = 2  // example forecasts plotted
	lossNam   = "wmse"
	nMosSmpl  = 200

	// synthetic lattice fallback
	nx, ny, nt = 12, 10, 400
)

var valSteps = []int{1, 4} // lead steps logged individually

func main() {

	fmt.Println("")
	tt := mmio.NewTimer()
	defer tt.Lap(fmt.Sprintf("\nRun complete. n processes: %v", runtime.GOMAXPROCS(0)))

	mdlPrfx := flag.String("mdl", "mdl/", "model directory prefix")
	mode := flag.String("mode", "eval", "eval|predict|mos")
	gdefFP := flag.String("gdef", "", "grid definition file (blank: synthetic lattice)")
	serFP := flag.String("series", "", "saved forcing dataset (blank: synthetic)")
	ckptFP := flag.String("ckpt", "", "checkpoint to restore (blank: random near-persistence)")
	restoreOpt := flag.Bool("restoreopt", false, "restore optimizer moments with the checkpoint")
	outstd := flag.Bool("outstd", false, "predictor emits per-variable std")
	np := flag.Int("np", 2, "worker ranks")
	nEpoch := flag.Int("epochs", 3, "train/validation rounds in eval mode")
	seed := flag.Int64("seed", 1984, "synthetic series seed")
	obsFP := flag.String("obs", "", "station csv (name,node) scoring mos mode against observations")
	flag.Parse()

	outdir, plotdir := *mdlPrfx+"out/", *mdlPrfx+"png/"
	arlam.DeleteMonitors(outdir, true) // also sets-up the output folder
	mmio.MakeDir(plotdir)

	// load data
	d := loadDomain(*gdefFP, *serFP, borderW, utmZone, nx, ny, nt, stepHr, *outstd, *seed)
	tt.Print(fmt.Sprintf("domain ready: %d nodes, %d flat vars, %d timesteps\n", d.ds.N, d.ds.V, d.ds.NT()))
	if err := d.st.SaveGob(*mdlPrfx + "stats.gob"); err != nil {
		log.Fatalf(" %v", err)
	}

	// predictor
	var pred *nn.Linear
	if *ckptFP != "" {
		c, err := arlam.LoadGobCheckpoint(*ckptFP, *restoreOpt)
		if err != nil {
			log.Fatalf(" %v", err)
		}
		if pred, err = nn.NewLinear(c.StateDict, *outstd); err != nil {
			log.Fatalf(" %v", err)
		}
		tt.Print(fmt.Sprintf("checkpoint restored: epoch %d\n", c.Epoch))
	} else {
		pred = nn.NewRandomLinear(d.ds.V, d.ds.F, *outstd, *seed)
	}

	// monitors and plots come off the primary rank
	snk, flush := arlam.NewMonitorSinks(d.ctx, outdir, d.cids)
	spatialFiles := snk.Spatial
	snk.Spatial = func(prefix string, k int, vals []float64) {
		spatialFiles(prefix, k, vals)
		arlam.Async(func() {
			if err := vis.PlotSpatial(plotdir, prefix, k, d.ctx.StepLengthHr, d.xs, d.ys, vals); err != nil {
				fmt.Println(err)
			}
		})
	}
	snk.Example = func(sample int, prd, target arlam.Seq) {
		flds := exampleFields(d.ctx, prd, target)
		arlam.Async(func() {
			if err := vis.PlotExample(plotdir, sample, d.ctx.StepLengthHr, d.xs, d.ys, flds); err != nil {
				fmt.Println(err)
			}
			if err := postpro.DumpExample(plotdir, sample, prd, target); err != nil {
				fmt.Println(err)
			}
		})
	}

	watch := d.ctx.EvalVars()[0]
	cfg := arlam.Config{
		Loss:         lossNam,
		ValSteps:     valSteps,
		MetricsWatch: []string{"val_rmse"},
		VarLeadsWatch: map[int][]int{
			d.ctx.VarIdx[watch][0]: {1, evlSteps},
		},
		NExamplePred: nEx,
	}
	r := newRunner(d, pred, cfg, snk, *np, batchSize)

	// sample windows: time-ordered train/validation/test splits
	nsmpl := d.ds.NSamples(evlSteps)
	valK0, tstK0 := 7*nsmpl/10, 17*nsmpl/20

	switch *mode {
	case "eval":
		for ep := 1; ep <= *nEpoch; ep++ {
			lt := r.trainEpoch(trnSteps, 0, valK0)
			fmt.Printf(" epoch %d train_loss: %.5f\n", ep, lt)
			r.valEpoch(trnSteps, valK0, tstK0)
			c := arlam.Checkpoint{StateDict: pred.StateDict(), Epoch: ep}
			if err := c.SaveGob(fmt.Sprintf("%sepoch%02d.ckpt.gob", *mdlPrfx, ep)); err != nil {
				log.Fatalf(" %v", err)
			}
		}
		r.testEpoch(evlSteps, tstK0, nsmpl)
		tt.Print("evaluation complete\n")

	case "predict":
		base := d.ds.T[tstK0+2].Format("2006010215") // first forecast valid time
		times, err := forcing.EvalTimes(base, evlSteps+2, stepHr)
		if err != nil {
			log.Fatalf(" %v", err)
		}
		xp := &postpro.Exporter{Ctx: d.ctx, GD: d.gd, Cids: d.cids, Dir: outdir, Steps: valSteps}
		r.predictEpoch(evlSteps, tstK0, nsmpl, xp, times)
		arlam.WaitMonitors() // frames must land before assembly
		for iEx := 1; iEx <= nEx; iEx++ {
			sdir := fmt.Sprintf("%ssample_%02d/", plotdir, iEx)
			for _, nam := range d.ctx.EvalVars() {
				for li := range d.ctx.VarIdx[nam] {
					if err := vis.AssembleGIF(sdir, nam, d.ctx.Level(nam, li)); err != nil {
						fmt.Println(err)
					}
				}
			}
		}
		tt.Print("prediction export complete\n")

	case "mos":
		if *obsFP != "" {
			colls, err := postpro.GetObservations(context.Background(), outdir, *obsFP)
			if err != nil {
				log.Fatalf(" %v", err)
			}
			stationMOS(d, pred, outdir, tstK0, nsmpl, colls)
		} else {
			runMOS(d, pred, outdir, tstK0, nsmpl, *seed)
		}

	default:
		log.Fatalf(" unknown mode %q", *mode)
	}

	flush()
	arlam.WaitMonitors()
}

// exampleFields splits single-sample prediction and target sequences
// into per-variable per-level plot fields.
func exampleFields(ctx *arlam.StaticContext, pred, target arlam.Seq) []vis.Field {
	var flds []vis.Field
	for _, nam := range ctx.EvalVars() {
		for li, iv := range ctx.VarIdx[nam] {
			f := vis.Field{
				Name: nam, Unit: ctx.VarUnits[nam], Lvl: ctx.Level(nam, li),
				Pred: make([][]float64, pred.S), Tgt: make([][]float64, target.S),
			}
			for is := 0; is < pred.S; is++ {
				p, t := make([]float64, pred.N), make([]float64, pred.N)
				for in := 0; in < pred.N; in++ {
					p[in] = pred.At(0, is, in, iv)
					t[in] = target.At(0, is, in, iv)
				}
				f.Pred[is], f.Tgt[is] = p, t
			}
			flds = append(flds, f)
		}
	}
	return flds
}

// runMOS rolls the predictor over the test window, reduces prediction
// and target to an interior-mean series of the lead evaluation variable,
// then fits a two-parameter output correction to it.
func runMOS(d *domainData, pred arlam.Predictor, outdir string, k0, k1 int, seed int64) {
	nam := d.ctx.EvalVars()[0]
	iv := d.ctx.VarIdx[nam][0]
	ib := d.ctx.InteriorBool()
	var obs, sim []float64
	for k := k0; k < k1; k++ {
		b, err := d.ds.Sample(k, evlSteps)
		if err != nil {
			log.Fatalf(" runMOS: %v", err)
		}
		prd, _, err := arlam.Rollout(d.ctx, b.Init, b.Forcing, b.Targets, pred)
		if err != nil {
			log.Fatalf(" runMOS: %v", err)
		}
		obs = append(obs, meanInterior(b.Targets, ib, iv, d.ctx.DataMean[iv], d.ctx.DataStd[iv])...)
		sim = append(sim, meanInterior(prd, ib, iv, d.ctx.DataMean[iv], d.ctx.DataStd[iv])...)
	}

	fmt.Printf("\n raw forecast skill (%s, interior mean, %d values):\n", nam, len(sim))
	postpro.Report(outdir, nam, obs, sim)

	if _, _, rmse, err := opt.SampleMOS(outdir, nam, obs, sim, nMosSmpl, seed); err != nil {
		log.Fatalf(" runMOS: %v", err)
	} else {
		fmt.Printf(" best sampled correction rmse: %.5f\n", rmse)
	}
	gain, offset, rmse := opt.CalibrateMOS(obs, sim)
	fmt.Printf(" calibrated correction rmse: %.5f\n", rmse)

	fmt.Printf("\n corrected forecast skill (%s):\n", nam)
	postpro.Report(outdir, nam+"-mos", obs, opt.Apply(sim, gain, offset))
}

// stationMOS fits the output correction per climate station instead of
// over the interior mean: each station scores the forecast at its own
// node, over the test windows its record covers.
func stationMOS(d *domainData, pred arlam.Predictor, outdir string, k0, k1 int, colls map[int]postpro.StationRecord) {
	nam := d.ctx.EvalVars()[0]
	iv := d.ctx.VarIdx[nam][0]
	mean, std := d.ctx.DataMean[iv], d.ctx.DataStd[iv]
	obs, sim := make(map[int][]float64, len(colls)), make(map[int][]float64, len(colls))
	ts := make([]time.Time, evlSteps)
	for k := k0; k < k1; k++ {
		b, err := d.ds.Sample(k, evlSteps)
		if err != nil {
			log.Fatalf(" stationMOS: %v", err)
		}
		prd, _, err := arlam.Rollout(d.ctx, b.Init, b.Forcing, b.Targets, pred)
		if err != nil {
			log.Fatalf(" stationMOS: %v", err)
		}
		for is := range ts {
			ts[is] = d.ds.T[k+2+is]
		}
		for nid, oc := range colls {
			o, ok := postpro.MatchSeries(oc, ts)
			if !ok {
				continue
			}
			s := make([]float64, evlSteps)
			for is := 0; is < evlSteps; is++ {
				s[is] = prd.At(0, is, nid, iv)*std + mean
			}
			obs[nid] = append(obs[nid], o...)
			sim[nid] = append(sim[nid], s...)
		}
	}
	for nid, oc := range colls {
		if len(sim[nid]) == 0 {
			fmt.Printf(" %s: no observations over the test window\n", oc.Name)
			continue
		}
		fmt.Printf("\n %s (node %d, %s, %d values):\n", oc.Name, nid, nam, len(sim[nid]))
		postpro.Report(outdir, oc.Name, obs[nid], sim[nid])
		gain, offset, rmse := opt.CalibrateMOS(obs[nid], sim[nid])
		fmt.Printf(" calibrated correction rmse: %.5f\n", rmse)
		postpro.Report(outdir, oc.Name+"-mos", obs[nid], opt.Apply(sim[nid], gain, offset))
	}
}

// meanInterior reduces a single-sample sequence to the per-step interior
// mean of one flattened variable, in physical units.
func meanInterior(q arlam.Seq, interior []bool, iv int, mean, std float64) []float64 {
	out := make([]float64, q.S)
	for is := 0; is < q.S; is++ {
		s, c := 0., 0.
		for in := 0; in < q.N; in++ {
			if interior[in] {
				s += q.At(0, is, in, iv)
				c++
			}
		}
		if c > 0. {
			out[is] = s/c*std + mean
		}
	}
	return out
}
