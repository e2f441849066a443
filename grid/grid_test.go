package grid

import "testing"

// lattice builds centroid coordinates for an nx by ny grid of cw-wide
// cells.
func lattice(nx, ny int, cw float64) (xs, ys []float64) {
	xs, ys = make([]float64, nx*ny), make([]float64, nx*ny)
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			i := iy*nx + ix
			xs[i], ys[i] = float64(ix)*cw, float64(iy)*cw
		}
	}
	return
}

func TestBuildMasksComplementary(t *testing.T) {
	xs, ys := lattice(6, 5, 2500.)
	border, interior := BuildMasks(xs, ys, 2500., 2)
	for i := range xs {
		b, n := border[i], interior[i]
		if (b != 0. && b != 1.) || (n != 0. && n != 1.) || b+n != 1. {
			t.Fatalf("node %d: masks not complementary {0,1}: border %g interior %g", i, b, n)
		}
	}
}

func TestBuildMasksRingWidths(t *testing.T) {
	xs, ys := lattice(6, 5, 2500.)

	// two rings in from the edge leaves a 2x1 interior
	border, interior := BuildMasks(xs, ys, 2500., 2)
	nb, ni := 0, 0
	for i := range xs {
		nb += int(border[i])
		ni += int(interior[i])
	}
	if nb != 28 || ni != 2 {
		t.Fatalf("width 2: expected 28 boundary, 2 interior; got %d, %d", nb, ni)
	}
	for _, i := range []int{2*6 + 2, 2*6 + 3} { // (2,2) and (3,2)
		if interior[i] != 1. {
			t.Errorf("cell %d expected interior", i)
		}
	}

	// single ring
	border, _ = BuildMasks(xs, ys, 2500., 1)
	nb = 0
	for i := range xs {
		nb += int(border[i])
	}
	if nb != 18 {
		t.Errorf("width 1: expected 18 boundary cells, got %d", nb)
	}

	// zero width: no prescribed boundary at all
	border, interior = BuildMasks(xs, ys, 2500., 0)
	for i := range xs {
		if border[i] != 0. || interior[i] != 1. {
			t.Fatalf("width 0: cell %d not interior", i)
		}
	}
}

func TestBuildMasksIrregularRegion(t *testing.T) {
	// an L-shaped region: the inner corner cell touches missing cells, so
	// it must resolve as edge
	var xs, ys []float64
	cw := 1000.
	mask := [][]int{
		{1, 1, 1, 1},
		{1, 1, 1, 1},
		{1, 1, 0, 0},
		{1, 1, 0, 0},
	}
	idx := map[[2]int]int{}
	for iy := range mask {
		for ix, on := range mask[iy] {
			if on == 1 {
				idx[[2]int{ix, iy}] = len(xs)
				xs = append(xs, float64(ix)*cw)
				ys = append(ys, float64(iy)*cw)
			}
		}
	}
	border, interior := BuildMasks(xs, ys, cw, 1)
	if i := idx[[2]int{1, 1}]; interior[i] != 1. {
		t.Errorf("cell (1,1) keeps all four neighbours and must stay interior")
	}
	// cells facing the notch lose a neighbour and resolve as edge
	for _, k := range [][2]int{{2, 1}, {1, 2}, {3, 1}} {
		if i := idx[k]; border[i] != 1. {
			t.Errorf("cell (%d,%d) faces the missing corner and must be boundary", k[0], k[1])
		}
	}
}

func TestDomainNodes(t *testing.T) {
	d := &Domain{Cids: []int{4, 9, 12}}
	if d.Nodes() != 3 {
		t.Errorf("expected 3 nodes, got %d", d.Nodes())
	}
}
