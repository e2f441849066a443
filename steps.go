package arlam

import (
	"fmt"
)

type phase int

const (
	idle phase = iota
	valEpoch
	testEpoch
	predictEpoch
)

func (p phase) String() string {
	switch p {
	case valEpoch:
		return "val"
	case testEpoch:
		return "test"
	case predictEpoch:
		return "predict"
	}
	return "idle"
}

// Config carries the run-time arguments of the orchestrator.
type Config struct {
	Loss          string        // training/eval loss, a registry name
	ValSteps      []int         // 1-indexed lead steps logged individually
	MetricsWatch  []string      // full log names (e.g. "val_rmse") expanded per variable
	VarLeadsWatch map[int][]int // flattened variable index -> 1-indexed lead steps
	NExamplePred  int           // example forecasts to plot per test/predict run
}

// Sinks are the fire-and-forget visualization/logging collaborators. Nil
// fields are skipped. Implementations must not block the step loop, and
// their failures must not corrupt metric state.
type Sinks struct {
	Scalars func(vals map[string]float64)
	Table   func(prefix, metric string, tbl []float64, steps, vars int)
	Spatial func(prefix string, leadStep int, vals []float64)
	Example func(sample int, pred, target Seq)
}

// Exporter consumes rescaled prediction sequences at predict-epoch end.
// A pure post-processing sink, not a dependency of correctness.
type Exporter interface {
	ExportSample(sample int, pred Seq, times []string) error
}

// Orchestrator owns the rollout, the metric accumulators and the step
// protocol: any number of TrainSteps while idle; ValStep*→ValEpochEnd;
// TestStep*→TestEpochEnd; PredictStep*→PredictEpochEnd. One logical
// thread of step execution per worker; data-parallel workers synchronize
// only inside epoch-end finalization. An epoch left open blocks every
// other epoch kind until its epoch end runs.
type Orchestrator struct {
	Ctx     *StaticContext
	Pred    Predictor
	Gather  Gatherer
	Primary bool
	Cfg     Config
	Sink    Sinks

	loss      MetricFunc
	val, test *Accumulator

	spatial      []metricBlock // per-batch (batch, logged steps, nodes) loss maps
	spatialSteps []int
	inference    []Seq // predict-epoch predictions, model space
	plotted      int
	ph           phase
}

// NewOrchestrator builds the orchestrator, failing fast on an unknown
// loss name or malformed step configuration.
func NewOrchestrator(ctx *StaticContext, p Predictor, g Gatherer, primary bool, cfg Config) (*Orchestrator, error) {
	lf, err := GetMetric(cfg.Loss)
	if err != nil {
		return nil, err
	}
	for _, k := range cfg.ValSteps {
		if k < 1 {
			return nil, confErrf("lead steps to log are 1-indexed, got %d", k)
		}
	}
	testNames := []string{"mse", "mae"}
	if ctx.OutputStd {
		testNames = append(testNames, "output_std") // treated as a metric
	}
	return &Orchestrator{
		Ctx: ctx, Pred: p, Gather: g, Primary: primary, Cfg: cfg,
		loss: lf,
		val:  NewAccumulator("mse"),
		test: NewAccumulator(testNames...),
	}, nil
}

// commonStep unpacks the batch and rolls out the full prediction. Used
// identically by train, val, test and predict steps.
func (o *Orchestrator) commonStep(b Batch) (Seq, Seq, StdField, error) {
	if err := b.Check(o.Ctx); err != nil {
		return Seq{}, Seq{}, StdField{}, err
	}
	pred, std, err := Rollout(o.Ctx, b.Init, b.Forcing, b.Targets, o.Pred)
	if err != nil {
		return Seq{}, Seq{}, StdField{}, err
	}
	return pred, b.Targets, std, nil
}

// TrainStep evaluates the training loss on one batch: the configured loss
// over interior nodes, averaged over unrolled steps and batch.
func (o *Orchestrator) TrainStep(b Batch) (float64, error) {
	if o.ph != idle {
		return 0., confErrf("train step inside an open %v epoch", o.ph)
	}
	pred, target, std, err := o.commonStep(b)
	if err != nil {
		return 0., err
	}
	lv := o.loss(pred, target, std, o.Ctx.InteriorBool(), true, true) // (batch, steps)
	if len(lv) == 0 {
		return 0., nil
	}
	t := 0.
	for _, v := range lv {
		t += v
	}
	t /= float64(len(lv))
	o.logScalars(map[string]float64{"train_loss": t})
	return t, nil
}

// ValStep runs validation on one batch: per-lead-step loss logging plus
// mse accumulation for the epoch-end aggregation.
func (o *Orchestrator) ValStep(b Batch) error {
	if o.ph != idle && o.ph != valEpoch {
		return confErrf("val step inside an open %v epoch", o.ph)
	}
	o.ph = valEpoch
	pred, target, std, err := o.commonStep(b)
	if err != nil {
		return err
	}
	o.logStepLoss("val", o.perStepLoss(pred, target, std))
	mses := MSE(pred, target, std, o.Ctx.InteriorBool(), true, false) // (batch, steps, vars)
	return o.val.Append("mse", mses, pred.B, pred.S, pred.V)
}

// ValEpochEnd finalizes the validation epoch. Every worker must call this
// exactly once per validation epoch; the gather inside blocks until all do.
func (o *Orchestrator) ValEpochEnd() (*EpochSummary, error) {
	if o.ph != valEpoch {
		return nil, confErrf("val epoch end in %v phase", o.ph)
	}
	sum, err := o.val.Finalize("val", o.Gather, o.Ctx.DataStd)
	if err != nil {
		return nil, err
	}
	o.val.Reset()
	o.ph = idle
	o.emitSummary(sum)
	return sum, nil
}

// TestStep runs evaluation on one batch: per-lead-step loss logging, the
// full test metric suite, per-sample spatial loss maps and example plots.
func (o *Orchestrator) TestStep(b Batch) error {
	if o.ph != idle && o.ph != testEpoch {
		return confErrf("test step inside an open %v epoch", o.ph)
	}
	o.ph = testEpoch
	pred, target, std, err := o.commonStep(b)
	if err != nil {
		return err
	}
	o.logStepLoss("test", o.perStepLoss(pred, target, std))
	if err := o.accumTestMetrics(pred, target, std); err != nil {
		return err
	}
	o.accumSpatial(pred, target, std)
	if o.Primary && o.plotted < o.Cfg.NExamplePred {
		o.plotExamples(pred, target, min(pred.B, o.Cfg.NExamplePred-o.plotted))
	}
	return nil
}

// TestEpochEnd finalizes the test epoch: metric aggregation plus the
// gathered mean spatial loss maps.
func (o *Orchestrator) TestEpochEnd() (*EpochSummary, error) {
	if o.ph != testEpoch {
		return nil, confErrf("test epoch end in %v phase", o.ph)
	}
	return o.evalEpochEnd("test")
}

// PredictStep runs inference on one batch: metric and spatial
// accumulation plus storage of the raw prediction for export.
func (o *Orchestrator) PredictStep(b Batch) error {
	if o.ph != idle && o.ph != predictEpoch {
		return confErrf("predict step inside an open %v epoch", o.ph)
	}
	o.ph = predictEpoch
	pred, target, std, err := o.commonStep(b)
	if err != nil {
		return err
	}
	if err := o.accumTestMetrics(pred, target, std); err != nil {
		return err
	}
	o.accumSpatial(pred, target, std)
	if o.Primary && o.plotted < o.Cfg.NExamplePred {
		o.plotExamples(pred, target, min(pred.B, o.Cfg.NExamplePred-o.plotted))
	}
	o.inference = append(o.inference, pred)
	return nil
}

// PredictEpochEnd aggregates the predict-epoch metrics and, on the
// primary worker, rescales every stored prediction to physical units and
// hands it to the exporter with the forecast datetime labels.
func (o *Orchestrator) PredictEpochEnd(exp Exporter, times []string) (*EpochSummary, error) {
	if o.ph != predictEpoch {
		return nil, confErrf("predict epoch end in %v phase", o.ph)
	}
	sum, err := o.evalEpochEnd("predict")
	if err != nil {
		return nil, err
	}
	if o.Primary && exp != nil {
		for i, p := range o.inference {
			if err := exp.ExportSample(i, o.rescaleSeq(p), times); err != nil {
				return nil, fmt.Errorf("export sample %d: %v", i, err)
			}
		}
	}
	o.inference = nil
	return sum, nil
}

// evalEpochEnd is the shared test/predict epilogue: finalize the test
// accumulator, then gather and mean the spatial loss maps.
func (o *Orchestrator) evalEpochEnd(prefix string) (*EpochSummary, error) {
	sum, err := o.test.Finalize(prefix, o.Gather, o.Ctx.DataStd)
	if err != nil {
		return nil, err
	}
	o.test.Reset()

	if len(o.spatial) > 0 {
		nlog, n := o.spatial[0].s, o.spatial[0].v
		nloc := 0
		for _, blk := range o.spatial {
			nloc += len(blk.vals)
		}
		local := make([]float64, 0, nloc)
		for _, blk := range o.spatial {
			local = append(local, blk.vals...)
		}
		gathered := o.Gather.AllGatherConcat(local)
		rows := len(gathered) / (nlog * n)
		mean := make([]float64, nlog*n)
		for r := 0; r < rows; r++ {
			o0 := r * nlog * n
			for j := 0; j < nlog*n; j++ {
				mean[j] += gathered[o0+j]
			}
		}
		for j := range mean {
			mean[j] /= float64(rows)
		}
		if o.Primary && o.Sink.Spatial != nil {
			for j, k := range o.spatialSteps {
				o.Sink.Spatial(prefix, k, mean[j*n:(j+1)*n])
			}
		}
	}
	o.spatial, o.spatialSteps = nil, nil
	o.ph = idle
	o.emitSummary(sum)
	return sum, nil
}

func (o *Orchestrator) accumTestMetrics(pred, target Seq, std StdField) error {
	for _, nam := range []string{"mse", "mae"} {
		f, err := GetMetric(nam)
		if err != nil {
			return err
		}
		vals := f(pred, target, std, o.Ctx.InteriorBool(), true, false)
		if err := o.test.Append(nam, vals, pred.B, pred.S, pred.V); err != nil {
			return err
		}
	}
	if o.Ctx.OutputStd {
		// predictive std per variable, spatially averaged over the interior
		ms := o.meanStdInterior(std, pred.B, pred.S, pred.V)
		if err := o.test.Append("output_std", ms, pred.B, pred.S, pred.V); err != nil {
			return err
		}
	}
	return nil
}

// accumSpatial stores the per-sample, per-node loss at the configured
// lead steps. Mask-free: border nodes carry the true state, so their loss
// plots as zero.
func (o *Orchestrator) accumSpatial(pred, target Seq, std StdField) {
	logged := []int{}
	for _, k := range o.Cfg.ValSteps {
		if k <= pred.S {
			logged = append(logged, k)
		}
	}
	if len(logged) == 0 {
		return
	}
	sp := o.loss(pred, target, std, nil, false, true) // (batch, steps, nodes)
	nb, s, n := pred.B, pred.S, pred.N
	blk := make([]float64, 0, nb*len(logged)*n)
	for ib := 0; ib < nb; ib++ {
		for _, k := range logged {
			o0 := (ib*s + k - 1) * n
			blk = append(blk, sp[o0:o0+n]...)
		}
	}
	o.spatial = append(o.spatial, metricBlock{blk, nb, len(logged), n})
	o.spatialSteps = logged
}

// perStepLoss is the batch-mean loss per unrolled step.
func (o *Orchestrator) perStepLoss(pred, target Seq, std StdField) []float64 {
	lv := o.loss(pred, target, std, o.Ctx.InteriorBool(), true, true) // (batch, steps)
	nb, s := pred.B, pred.S
	tsl := make([]float64, s)
	for ib := 0; ib < nb; ib++ {
		for is := 0; is < s; is++ {
			tsl[is] += lv[ib*s+is]
		}
	}
	for is := range tsl {
		tsl[is] /= float64(nb)
	}
	return tsl
}

// logStepLoss emits the loss at each configured lead step plus the mean
// over all unrolled steps.
func (o *Orchestrator) logStepLoss(prefix string, tsl []float64) {
	ld := make(map[string]float64, len(o.Cfg.ValSteps)+1)
	m := 0.
	for _, v := range tsl {
		m += v
	}
	if len(tsl) > 0 {
		m /= float64(len(tsl))
	}
	for _, k := range o.Cfg.ValSteps {
		if k <= len(tsl) {
			ld[fmt.Sprintf("%s_loss_unroll%d", prefix, k)] = tsl[k-1]
		}
	}
	ld[prefix+"_mean_loss"] = m
	o.logScalars(ld)
}

// emitSummary hands the epoch tables to the sinks and expands the watched
// per-variable, per-lead-step scalars. Primary worker only.
func (o *Orchestrator) emitSummary(sum *EpochSummary) {
	if !o.Primary {
		return
	}
	ld := map[string]float64{}
	for _, nam := range sum.Names {
		tbl := sum.Tables[nam]
		if o.Sink.Table != nil {
			o.Sink.Table(sum.Prefix, nam, tbl, sum.Steps, sum.Vars)
		}
		full := sum.Prefix + "_" + nam
		watched := false
		for _, w := range o.Cfg.MetricsWatch {
			if w == full {
				watched = true
				break
			}
		}
		if !watched {
			continue
		}
		for iv, ks := range o.Cfg.VarLeadsWatch {
			if iv < 0 || iv >= sum.Vars {
				continue
			}
			for _, k := range ks {
				if k >= 1 && k <= sum.Steps {
					ld[fmt.Sprintf("%s_%s_step_%d", full, o.Ctx.FlatNames[iv], k)] = tbl[(k-1)*sum.Vars+iv]
				}
			}
		}
	}
	if len(ld) > 0 {
		o.logScalars(ld)
	}
}

func (o *Orchestrator) meanStdInterior(std StdField, nb, s, v int) []float64 {
	msk := o.Ctx.InteriorBool()
	cnt := 0.
	for _, m := range msk {
		if m {
			cnt++
		}
	}
	out := make([]float64, nb*s*v)
	for ib := 0; ib < nb; ib++ {
		for is := 0; is < s; is++ {
			o0 := (ib*s + is) * v
			for in, m := range msk {
				if !m {
					continue
				}
				for iv := 0; iv < v; iv++ {
					out[o0+iv] += std.At(ib, is, in, iv)
				}
			}
			for iv := 0; iv < v; iv++ {
				out[o0+iv] /= cnt
			}
		}
	}
	return out
}

// plotExamples rescales the first n samples of the batch to physical
// units and hands them to the example sink, numbering plots across the
// whole epoch.
func (o *Orchestrator) plotExamples(pred, target Seq, n int) {
	for i := 0; i < n; i++ {
		o.plotted++
		if o.Sink.Example != nil {
			o.Sink.Example(o.plotted, o.rescaleSample(pred, i), o.rescaleSample(target, i))
		}
	}
}

// rescaleSample extracts batch element ib as a single-sample sequence in
// physical units.
func (o *Orchestrator) rescaleSample(q Seq, ib int) Seq {
	out := NewSeq(1, q.S, q.N, q.V)
	for is := 0; is < q.S; is++ {
		for in := 0; in < q.N; in++ {
			for iv := 0; iv < q.V; iv++ {
				out.Set(0, is, in, iv, q.At(ib, is, in, iv)*o.Ctx.DataStd[iv]+o.Ctx.DataMean[iv])
			}
		}
	}
	return out
}

// rescaleSeq converts a whole sequence back to physical units.
func (o *Orchestrator) rescaleSeq(q Seq) Seq {
	out := NewSeq(q.B, q.S, q.N, q.V)
	for i, v := range q.Buf {
		iv := i % q.V
		out.Buf[i] = v*o.Ctx.DataStd[iv] + o.Ctx.DataMean[iv]
	}
	return out
}

func (o *Orchestrator) logScalars(vals map[string]float64) {
	if o.Sink.Scalars != nil {
		o.Sink.Scalars(vals)
	}
}
