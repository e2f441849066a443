package arlam

import (
	"os"
	"strings"
	"testing"
)

func TestMonitorSinksWriteAndDelete(t *testing.T) {
	dir := t.TempDir() + "/"
	ctx := newTestCtx(t, false)
	snk, flush := NewMonitorSinks(ctx, dir, []int{10, 11, 12, 13})

	snk.Scalars(map[string]float64{"train_loss": 1.5})
	snk.Scalars(map[string]float64{"val_mean_loss": .25, "val_loss_unroll1": .5})
	snk.Table("val", "rmse", []float64{1., 2., 3., 4.}, 2, 2)
	snk.Spatial("test", 1, []float64{.1, .2, .3, .4})
	flush()
	WaitMonitors()

	b, err := os.ReadFile(dir + "scalars.mon")
	if err != nil {
		t.Fatalf("scalar log missing: %v", err)
	}
	s := string(b)
	if !strings.HasPrefix(s, "step,name,value") {
		t.Errorf("unexpected scalar log header: %q", strings.SplitN(s, "\n", 2)[0])
	}
	for _, nam := range []string{"train_loss", "val_mean_loss", "val_loss_unroll1"} {
		if !strings.Contains(s, nam) {
			t.Errorf("scalar %q never written", nam)
		}
	}

	b, err = os.ReadFile(dir + "val_rmse.tbl")
	if err != nil {
		t.Fatalf("metric table missing: %v", err)
	}
	if !strings.HasPrefix(string(b), "step,T_2M,U_10M") {
		t.Errorf("unexpected table header: %q", strings.SplitN(string(b), "\n", 2)[0])
	}

	for _, fn := range []string{"test.loss.t01.mon", "test.loss.t01.rmap"} {
		if _, err := os.Stat(dir + fn); err != nil {
			t.Errorf("spatial output %s missing: %v", fn, err)
		}
	}

	// rerun setup preserves the scalar log and clears the rest
	DeleteMonitors(dir, true)
	if _, err := os.Stat(dir + "scalars.mon.last"); err != nil {
		t.Errorf("previous scalar log not preserved: %v", err)
	}
	for _, fn := range []string{"scalars.mon", "val_rmse.tbl", "test.loss.t01.rmap"} {
		if _, err := os.Stat(dir + fn); err == nil {
			t.Errorf("%s survived DeleteMonitors", fn)
		}
	}
}

func TestAsyncJoinsOnWait(t *testing.T) {
	done := make(chan bool, 1)
	Async(func() { done <- true })
	WaitMonitors()
	select {
	case <-done:
	default:
		t.Fatalf("WaitMonitors returned before the queued function ran")
	}
}
