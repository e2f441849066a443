package vis

import (
	"image/gif"
	"image/png"
	"os"
	"strings"
	"testing"
)

func TestRamp(t *testing.T) {
	if c := ramp(0.); c.R != 40 || c.B != 255 {
		t.Errorf("cold end expected (40,60,255), got %v", c)
	}
	if c := ramp(1.); c.R != 255 || c.B != 40 {
		t.Errorf("hot end expected (255,60,40), got %v", c)
	}
	if ramp(-3.) != ramp(0.) || ramp(7.) != ramp(1.) {
		t.Errorf("out-of-range values must clamp to the scale ends")
	}
}

func TestVRange(t *testing.T) {
	lo, hi := vrange([][]float64{{1., 5.}, {-2.}}, [][]float64{{4.}})
	if lo != -2. || hi != 5. {
		t.Errorf("expected (-2, 5), got (%g, %g)", lo, hi)
	}
	if lo, hi = vrange(); lo != -1. || hi != 1. {
		t.Errorf("empty input expected (-1, 1), got (%g, %g)", lo, hi)
	}
	if lo, hi = vrange([][]float64{{3., 3.}}); lo != 3. || hi != 4. {
		t.Errorf("degenerate range must pad, got (%g, %g)", lo, hi)
	}
}

func TestSpan(t *testing.T) {
	lo, hi := span([]float64{0., 100.})
	if lo != -6. || hi != 106. {
		t.Errorf("expected (-6, 106), got (%g, %g)", lo, hi)
	}
	if lo, hi = span(nil); lo != -1. || hi != 1. {
		t.Errorf("empty input expected (-1, 1), got (%g, %g)", lo, hi)
	}
	if lo, hi = span([]float64{5.}); lo != 4. || hi != 6. {
		t.Errorf("single coordinate must pad by one, got (%g, %g)", lo, hi)
	}
}

func TestPlotSpatialWritesFrame(t *testing.T) {
	dir := t.TempDir() + "/"
	xs := []float64{0., 1000., 0., 1000.}
	ys := []float64{0., 0., 1000., 1000.}
	if err := PlotSpatial(dir, "val", 3, 3, xs, ys, []float64{0., 1., 2., 3.}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := os.Open(dir + "val_loss_t03.png")
	if err != nil {
		t.Fatalf("frame not written: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("frame is not a png: %v", err)
	}
	if img.Bounds().Dx() == 0 {
		t.Errorf("empty frame")
	}
}

func TestPlotExampleAndAssembleGIF(t *testing.T) {
	dir := t.TempDir() + "/"
	xs := []float64{0., 1000., 2000., 0., 1000., 2000.}
	ys := []float64{0., 0., 0., 1000., 1000., 1000.}
	flds := []Field{{
		Name: "T_2M", Unit: "K", Lvl: 0,
		Pred: [][]float64{{270., 271., 272., 273., 274., 275.}, {271., 272., 273., 274., 275., 276.}},
		Tgt:  [][]float64{{270., 270., 272., 272., 274., 274.}, {271., 271., 273., 273., 275., 275.}},
	}}
	if err := PlotExample(dir, 1, 3, xs, ys, flds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sdir := dir + "sample_01/"
	for _, fn := range []string{"T_2M_test_lvl_00_t_01.png", "T_2M_test_lvl_00_t_02.png"} {
		if _, err := os.Stat(sdir + fn); err != nil {
			t.Fatalf("expected frame %s: %v", fn, err)
		}
	}

	if err := AssembleGIF(sdir, "T_2M", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := os.Open(sdir + "T_2M_lvl_00.gif")
	if err != nil {
		t.Fatalf("animation not written: %v", err)
	}
	defer f.Close()
	g, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatalf("bad gif: %v", err)
	}
	if len(g.Image) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(g.Image))
	}
	for _, d := range g.Delay {
		if d != 100 {
			t.Errorf("expected 1 fps delays, got %d", d)
		}
	}
}

func TestAssembleGIFNoFrames(t *testing.T) {
	err := AssembleGIF(t.TempDir()+"/", "T_2M", 0)
	if err == nil || !strings.Contains(err.Error(), "no frames") {
		t.Errorf("expected a no-frames error, got %v", err)
	}
}
