package arlam

import (
	"errors"
	"testing"
)

// capture records everything the orchestrator hands its sinks.
type capture struct {
	scalars  map[string]float64
	tables   map[string][]float64
	frames   map[string][2]int
	spatial  map[int][]float64
	examples []int
	expred   []Seq
}

func newCapture() *capture {
	return &capture{
		scalars: map[string]float64{},
		tables:  map[string][]float64{},
		frames:  map[string][2]int{},
		spatial: map[int][]float64{},
	}
}

func (c *capture) sinks() Sinks {
	return Sinks{
		Scalars: func(vals map[string]float64) {
			for k, v := range vals {
				c.scalars[k] = v
			}
		},
		Table: func(prefix, metric string, tbl []float64, steps, vars int) {
			c.tables[prefix+"_"+metric] = tbl
			c.frames[prefix+"_"+metric] = [2]int{steps, vars}
		},
		Spatial: func(prefix string, k int, vals []float64) { c.spatial[k] = vals },
		Example: func(sample int, pred, target Seq) {
			c.examples = append(c.examples, sample)
			c.expred = append(c.expred, pred)
		},
	}
}

// testBatch: zero initial states, targets pinned to 1, so the persistence
// forecast carries loss 1 per variable at every interior node.
func testBatch(nb, steps int) Batch {
	tg := NewSeq(nb, steps, 4, 2)
	for i := range tg.Buf {
		tg.Buf[i] = 1.
	}
	return Batch{
		Init:    [2]State{NewState(nb, 4, 2), NewState(nb, 4, 2)},
		Targets: tg,
		Forcing: NewSeq(nb, steps, 4, 3),
	}
}

func newTestOrch(t *testing.T, outputStd bool, p Predictor, cfg Config) (*Orchestrator, *capture) {
	t.Helper()
	ctx := newTestCtx(t, outputStd)
	o, err := NewOrchestrator(ctx, p, SoloGather{}, true, cfg)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	c := newCapture()
	o.Sink = c.sinks()
	return o, c
}

func TestNewOrchestratorRejects(t *testing.T) {
	ctx := newTestCtx(t, false)
	if _, err := NewOrchestrator(ctx, &persist{}, SoloGather{}, true, Config{Loss: "rms"}); err == nil {
		t.Errorf("unknown loss accepted")
	}
	var ce *ConfigurationError
	if _, err := NewOrchestrator(ctx, &persist{}, SoloGather{}, true, Config{Loss: "mse", ValSteps: []int{0}}); !errors.As(err, &ce) {
		t.Errorf("zero lead step: expected ConfigurationError, got %v", err)
	}
}

func TestTrainStepLoss(t *testing.T) {
	o, c := newTestOrch(t, false, &persist{}, Config{Loss: "mse", ValSteps: []int{1, 2}})
	l, err := o.TrainStep(testBatch(1, 2))
	if err != nil {
		t.Fatalf("TrainStep: %v", err)
	}
	if !approxEqual(l, 2., 1e-12) {
		t.Errorf("expected loss 2, got %g", l)
	}
	if got, ok := c.scalars["train_loss"]; !ok || !approxEqual(got, 2., 1e-12) {
		t.Errorf("expected train_loss 2, got %g (logged: %v)", got, ok)
	}
}

func TestValEpochScalarsAndTables(t *testing.T) {
	o, c := newTestOrch(t, false, &persist{}, Config{
		Loss:          "mse",
		ValSteps:      []int{1, 2},
		MetricsWatch:  []string{"val_rmse"},
		VarLeadsWatch: map[int][]int{1: {2}},
	})
	if err := o.ValStep(testBatch(1, 2)); err != nil {
		t.Fatalf("ValStep: %v", err)
	}
	for _, nam := range []string{"val_loss_unroll1", "val_loss_unroll2", "val_mean_loss"} {
		if got, ok := c.scalars[nam]; !ok || !approxEqual(got, 2., 1e-12) {
			t.Errorf("%s: expected 2, got %g (logged: %v)", nam, got, ok)
		}
	}

	sum, err := o.ValEpochEnd()
	if err != nil {
		t.Fatalf("ValEpochEnd: %v", err)
	}
	if sum.Prefix != "val" || sum.Names[0] != "rmse" {
		t.Fatalf("unexpected summary %q %v", sum.Prefix, sum.Names)
	}
	// unit mse per (step, var), rescaled by the data std {2, 4}
	tbl, ok := c.tables["val_rmse"]
	if !ok {
		t.Fatalf("table sink never fired")
	}
	want := []float64{2., 4., 2., 4.}
	for i, w := range want {
		if !approxEqual(tbl[i], w, 1e-9) {
			t.Errorf("table[%d]: expected %g, got %g", i, w, tbl[i])
		}
	}
	if fr := c.frames["val_rmse"]; fr[0] != 2 || fr[1] != 2 {
		t.Errorf("expected a (2,2) table, got %v", fr)
	}

	// watched per-variable scalar expanded from the table
	if got, ok := c.scalars["val_rmse_U_10M_step_2"]; !ok || !approxEqual(got, 4., 1e-9) {
		t.Errorf("expected val_rmse_U_10M_step_2 = 4, got %g (logged: %v)", got, ok)
	}
	if _, ok := c.scalars["val_rmse_T_2M_step_2"]; ok {
		t.Errorf("unwatched variable leaked into the scalar log")
	}
}

func TestStepPhaseProtocol(t *testing.T) {
	o, _ := newTestOrch(t, false, &persist{}, Config{Loss: "mse", ValSteps: []int{1}})
	var ce *ConfigurationError

	if _, err := o.ValEpochEnd(); !errors.As(err, &ce) {
		t.Errorf("epoch end while idle: expected ConfigurationError, got %v", err)
	}
	if err := o.ValStep(testBatch(1, 2)); err != nil {
		t.Fatalf("ValStep: %v", err)
	}
	if _, err := o.TrainStep(testBatch(1, 2)); !errors.As(err, &ce) {
		t.Errorf("train step in open val epoch: expected ConfigurationError, got %v", err)
	}
	if err := o.TestStep(testBatch(1, 2)); !errors.As(err, &ce) {
		t.Errorf("test step in open val epoch: expected ConfigurationError, got %v", err)
	}
	if err := o.PredictStep(testBatch(1, 2)); !errors.As(err, &ce) {
		t.Errorf("predict step in open val epoch: expected ConfigurationError, got %v", err)
	}
	if _, err := o.TestEpochEnd(); !errors.As(err, &ce) {
		t.Errorf("test epoch end in open val epoch: expected ConfigurationError, got %v", err)
	}
	if _, err := o.ValEpochEnd(); err != nil {
		t.Fatalf("ValEpochEnd: %v", err)
	}

	// idle again: the next epoch kind may open
	if err := o.TestStep(testBatch(1, 2)); err != nil {
		t.Fatalf("TestStep after closed val epoch: %v", err)
	}
	if _, err := o.TestEpochEnd(); err != nil {
		t.Fatalf("TestEpochEnd: %v", err)
	}
	if _, err := o.TrainStep(testBatch(1, 2)); err != nil {
		t.Fatalf("TrainStep after closed epochs: %v", err)
	}
}

func TestTestEpochSpatialAndExamples(t *testing.T) {
	o, c := newTestOrch(t, false, &persist{}, Config{
		Loss: "mse", ValSteps: []int{1, 2}, NExamplePred: 1,
	})
	if err := o.TestStep(testBatch(2, 2)); err != nil {
		t.Fatalf("TestStep: %v", err)
	}
	if _, err := o.TestEpochEnd(); err != nil {
		t.Fatalf("TestEpochEnd: %v", err)
	}

	// summed-variable loss per node: boundary nodes carry the truth
	for _, k := range []int{1, 2} {
		sp, ok := c.spatial[k]
		if !ok {
			t.Fatalf("no spatial map for lead step %d", k)
		}
		want := []float64{0., 2., 2., 0.}
		for in, w := range want {
			if !approxEqual(sp[in], w, 1e-9) {
				t.Errorf("lead %d node %d: expected %g, got %g", k, in, w, sp[in])
			}
		}
	}

	// example cap: batch of two, one plotted, numbered from 1
	if len(c.examples) != 1 || c.examples[0] != 1 {
		t.Fatalf("expected one example numbered 1, got %v", c.examples)
	}
	// rescaled to physical units: boundary carries 1*std+mean, interior 0*std+mean
	ex := c.expred[0]
	if got := ex.At(0, 0, 0, 0); !approxEqual(got, 12., 1e-9) {
		t.Errorf("boundary example value: expected 12, got %g", got)
	}
	if got := ex.At(0, 0, 1, 1); !approxEqual(got, 20., 1e-9) {
		t.Errorf("interior example value: expected 20, got %g", got)
	}
}

// captureExport records exported samples.
type captureExport struct {
	samples []int
	firsts  []float64
	times   []string
}

func (c *captureExport) ExportSample(sample int, pred Seq, times []string) error {
	c.samples = append(c.samples, sample)
	c.firsts = append(c.firsts, pred.At(0, 0, 0, 0))
	c.times = times
	return nil
}

func TestPredictEpochExports(t *testing.T) {
	o, _ := newTestOrch(t, false, &persist{}, Config{Loss: "mse", ValSteps: []int{1}})
	for i := 0; i < 2; i++ {
		if err := o.PredictStep(testBatch(1, 2)); err != nil {
			t.Fatalf("PredictStep %d: %v", i, err)
		}
	}
	xp := &captureExport{}
	times := []string{"2020010100", "2020010103"}
	sum, err := o.PredictEpochEnd(xp, times)
	if err != nil {
		t.Fatalf("PredictEpochEnd: %v", err)
	}
	if sum.Prefix != "predict" {
		t.Errorf("expected predict prefix, got %q", sum.Prefix)
	}
	if len(xp.samples) != 2 || xp.samples[0] != 0 || xp.samples[1] != 1 {
		t.Fatalf("expected samples [0 1], got %v", xp.samples)
	}
	for i, f := range xp.firsts {
		// boundary node in physical units: 1*2+10
		if !approxEqual(f, 12., 1e-9) {
			t.Errorf("sample %d first value: expected 12, got %g", i, f)
		}
	}
	if len(xp.times) != 2 || xp.times[0] != "2020010100" {
		t.Errorf("datetime labels not passed through: %v", xp.times)
	}

	var ce *ConfigurationError
	if _, err := o.PredictEpochEnd(xp, times); !errors.As(err, &ce) {
		t.Errorf("second predict epoch end: expected ConfigurationError, got %v", err)
	}
}

func TestOutputStdTestMetric(t *testing.T) {
	o, c := newTestOrch(t, true, persistStd{sig: .5}, Config{Loss: "mse", ValSteps: []int{1}})
	if err := o.TestStep(testBatch(1, 2)); err != nil {
		t.Fatalf("TestStep: %v", err)
	}
	sum, err := o.TestEpochEnd()
	if err != nil {
		t.Fatalf("TestEpochEnd: %v", err)
	}
	found := false
	for _, nam := range sum.Names {
		if nam == "output_std" {
			found = true
		}
	}
	if !found {
		t.Fatalf("output_std missing from %v", sum.Names)
	}
	// interior-mean predictive std rescaled by the data std {2, 4}
	tbl := c.tables["test_output_std"]
	want := []float64{1., 2., 1., 2.}
	for i, w := range want {
		if !approxEqual(tbl[i], w, 1e-9) {
			t.Errorf("output_std[%d]: expected %g, got %g", i, w, tbl[i])
		}
	}
}

func TestSecondaryWorkerKeepsQuiet(t *testing.T) {
	ctx := newTestCtx(t, false)
	o, err := NewOrchestrator(ctx, &persist{}, SoloGather{}, false, Config{Loss: "mse", ValSteps: []int{1}, NExamplePred: 3})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	c := newCapture()
	o.Sink = c.sinks()
	if err := o.TestStep(testBatch(1, 2)); err != nil {
		t.Fatalf("TestStep: %v", err)
	}
	if _, err := o.TestEpochEnd(); err != nil {
		t.Fatalf("TestEpochEnd: %v", err)
	}
	if len(c.tables) != 0 || len(c.spatial) != 0 || len(c.examples) != 0 {
		t.Errorf("secondary worker fed the sinks: %v %v %v", c.tables, c.spatial, c.examples)
	}
}
