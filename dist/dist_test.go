package dist

import (
	"testing"
)

func TestAllGatherConcatRankOrder(t *testing.T) {
	g, err := NewWorkerGroup(3)
	if err != nil {
		t.Fatalf("NewWorkerGroup: %v", err)
	}
	got := make([][]float64, 3)
	g.Run(func(w *Worker) {
		r := float64(w.Rank())
		got[w.Rank()] = w.AllGatherConcat([]float64{r * 10., r*10. + 1.})
	})

	want := []float64{0, 1, 10, 11, 20, 21}
	for r := 0; r < 3; r++ {
		if len(got[r]) != len(want) {
			t.Fatalf("rank %d: expected %d values, got %d", r, len(want), len(got[r]))
		}
		for i, w := range want {
			if got[r][i] != w {
				t.Errorf("rank %d value %d: expected %g, got %g", r, i, w, got[r][i])
			}
		}
	}
}

func TestAllGatherConcatUnevenBlocks(t *testing.T) {
	g, _ := NewWorkerGroup(3)
	got := make([][]float64, 3)
	g.Run(func(w *Worker) {
		// rank r contributes r+1 copies of r
		vals := make([]float64, w.Rank()+1)
		for i := range vals {
			vals[i] = float64(w.Rank())
		}
		got[w.Rank()] = w.AllGatherConcat(vals)
	})
	want := []float64{0, 1, 1, 2, 2, 2}
	for i, v := range want {
		if got[0][i] != v {
			t.Errorf("value %d: expected %g, got %g", i, v, got[0][i])
		}
	}
}

func TestAllGatherConcatReusableRounds(t *testing.T) {
	const rounds = 5
	g, _ := NewWorkerGroup(2)
	got := make([][][]float64, 2)
	for r := range got {
		got[r] = make([][]float64, rounds)
	}
	g.Run(func(w *Worker) {
		for k := 0; k < rounds; k++ {
			got[w.Rank()][k] = w.AllGatherConcat([]float64{float64(k*10 + w.Rank())})
		}
	})
	for k := 0; k < rounds; k++ {
		for r := 0; r < 2; r++ {
			res := got[r][k]
			if len(res) != 2 || res[0] != float64(k*10) || res[1] != float64(k*10+1) {
				t.Errorf("round %d rank %d: got %v", k, r, res)
			}
		}
	}
}

func TestSingleWorkerGroup(t *testing.T) {
	g, _ := NewWorkerGroup(1)
	w, err := g.Worker(0)
	if err != nil {
		t.Fatalf("Worker: %v", err)
	}
	if !w.Primary() {
		t.Errorf("rank 0 must be primary")
	}
	got := w.AllGatherConcat([]float64{7., 8.})
	if len(got) != 2 || got[0] != 7. {
		t.Errorf("solo gather altered the block: %v", got)
	}
}

func TestWorkerGroupBounds(t *testing.T) {
	if _, err := NewWorkerGroup(0); err == nil {
		t.Errorf("empty group accepted")
	}
	g, _ := NewWorkerGroup(2)
	if _, err := g.Worker(2); err == nil {
		t.Errorf("out-of-range rank accepted")
	}
	if w, _ := g.Worker(1); w.Primary() {
		t.Errorf("rank 1 reported primary")
	}
}
