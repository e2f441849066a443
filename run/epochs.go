package main

import (
	"fmt"
	"log"

	"github.com/gosuri/uiprogress"
	"github.com/maseology/arlam"
	"github.com/maseology/arlam/dist"
)

// runner drives batched epochs over a worker group, one orchestrator
// per rank. Batch rounds are dealt round-robin; epoch finalization is
// collective, so every rank calls its epoch end exactly once.
type runner struct {
	d    *domainData
	grp  *dist.WorkerGroup
	orcs []*arlam.Orchestrator
	bsz  int
}

func newRunner(d *domainData, pred arlam.Predictor, cfg arlam.Config, snk arlam.Sinks, nw, bsz int) *runner {
	grp, err := dist.NewWorkerGroup(nw)
	if err != nil {
		log.Fatalf(" newRunner: %v", err)
	}
	r := &runner{d: d, grp: grp, bsz: bsz, orcs: make([]*arlam.Orchestrator, nw)}
	for i := 0; i < nw; i++ {
		w, err := grp.Worker(i)
		if err != nil {
			log.Fatalf(" newRunner: %v", err)
		}
		o, err := arlam.NewOrchestrator(d.ctx, pred, w, w.Primary(), cfg)
		if err != nil {
			log.Fatalf(" newRunner: %v", err)
		}
		if w.Primary() {
			o.Sink = snk // file monitors and plots come off the primary only
		}
		r.orcs[i] = o
	}
	return r
}

// batchRounds groups the sample starts of the window [k0,k1) into
// rounds of up to bsz samples.
func (r *runner) batchRounds(steps, k0, k1 int) [][]int {
	if n := r.d.ds.NSamples(steps); k1 > n {
		k1 = n
	}
	var out [][]int
	for i0 := k0; i0 < k1; i0 += r.bsz {
		i1 := min(i0+r.bsz, k1)
		ks := make([]int, 0, i1-i0)
		for k := i0; k < i1; k++ {
			ks = append(ks, k)
		}
		out = append(out, ks)
	}
	return out
}

// epoch shards the rounds across the group, applies step per batch and
// then finalizes collectively with end (when given). The primary rank
// drives a progress bar labelled by the batch start date. Returns the
// primary's epoch summary.
func (r *runner) epoch(label string, steps, k0, k1 int,
	step func(rank int, o *arlam.Orchestrator, b arlam.Batch) error,
	end func(o *arlam.Orchestrator) (*arlam.EpochSummary, error)) *arlam.EpochSummary {

	rounds := r.batchRounds(steps, k0, k1)
	nw := r.grp.Size()
	sums := make([]*arlam.EpochSummary, nw)
	fmt.Printf("\n %s: %d batches, %d steps ahead\n", label, len(rounds), steps)

	var bar *uiprogress.Bar
	var timestep chan string
	if len(rounds) > 0 {
		uiprogress.Start()
		timestep = make(chan string)
		bar = uiprogress.AddBar((len(rounds) + nw - 1) / nw).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return <-timestep
		})
	}

	r.grp.Run(func(w *dist.Worker) {
		o := r.orcs[w.Rank()]
		for i := w.Rank(); i < len(rounds); i += nw {
			b, err := r.d.ds.Batch(rounds[i], steps)
			if err != nil {
				log.Fatalf(" %s epoch: %v", label, err)
			}
			if err := step(w.Rank(), o, b); err != nil {
				log.Fatalf(" %s epoch: %v", label, err)
			}
			if w.Primary() {
				timestep <- r.d.ds.T[rounds[i][0]].Format("2006010215")
				bar.Incr()
			}
		}
		if end != nil {
			sum, err := end(o)
			if err != nil {
				log.Fatalf(" %s epoch: %v", label, err)
			}
			sums[w.Rank()] = sum
		}
	})

	if bar != nil {
		close(timestep)
		uiprogress.Stop()
	}
	return sums[0]
}

// trainEpoch runs training-loss steps over the window, returning the
// round-mean loss.
func (r *runner) trainEpoch(steps, k0, k1 int) float64 {
	nw := r.grp.Size()
	lsum, lcnt := make([]float64, nw), make([]int, nw)
	r.epoch("train", steps, k0, k1, func(rk int, o *arlam.Orchestrator, b arlam.Batch) error {
		l, err := o.TrainStep(b)
		if err != nil {
			return err
		}
		lsum[rk] += l
		lcnt[rk]++
		return nil
	}, nil)
	s, c := 0., 0
	for i := range lsum {
		s += lsum[i]
		c += lcnt[i]
	}
	if c == 0 {
		return 0.
	}
	return s / float64(c)
}

func (r *runner) valEpoch(steps, k0, k1 int) *arlam.EpochSummary {
	return r.epoch("validation", steps, k0, k1,
		func(_ int, o *arlam.Orchestrator, b arlam.Batch) error { return o.ValStep(b) },
		func(o *arlam.Orchestrator) (*arlam.EpochSummary, error) { return o.ValEpochEnd() })
}

func (r *runner) testEpoch(steps, k0, k1 int) *arlam.EpochSummary {
	return r.epoch("test", steps, k0, k1,
		func(_ int, o *arlam.Orchestrator, b arlam.Batch) error { return o.TestStep(b) },
		func(o *arlam.Orchestrator) (*arlam.EpochSummary, error) { return o.TestEpochEnd() })
}

func (r *runner) predictEpoch(steps, k0, k1 int, exp arlam.Exporter, times []string) *arlam.EpochSummary {
	return r.epoch("prediction", steps, k0, k1,
		func(_ int, o *arlam.Orchestrator, b arlam.Batch) error { return o.PredictStep(b) },
		func(o *arlam.Orchestrator) (*arlam.EpochSummary, error) { return o.PredictEpochEnd(exp, times) })
}
