// Package grid adapts a uniform-cell grid definition to the node list a
// forecast model runs on: active cells in stored order, boundary masks
// and geographic coordinates.
package grid

import (
	"fmt"
	"math"

	"github.com/im7mortal/UTM"
	ghgrid "github.com/maseology/goHydro/grid"
)

// Domain is the static geometry of a forecast region. Node order is the
// stored order of the active cells; every per-node array in the model
// follows it.
type Domain struct {
	GD           *ghgrid.Definition
	Cids         []int // active cell ids, node order
	BorderMask   []float64
	InteriorMask []float64
	Lat, Lon     []float64
}

// LoadDomain reads a grid definition and derives the boundary masks and
// cell coordinates. borderW is the prescribed-boundary width in cells;
// utmZone georeferences the grid.
func LoadDomain(gdefFP string, borderW, utmZone int) (*Domain, error) {
	gd, err := ghgrid.ReadGDEF(gdefFP, true)
	if err != nil {
		return nil, fmt.Errorf(" grid.ReadGDEF: %v", err)
	}
	if len(gd.Sactives) <= 0 {
		return nil, fmt.Errorf(" grid.LoadDomain: no active cells")
	}
	d := &Domain{GD: gd, Cids: gd.Sactives}
	n := len(d.Cids)
	xs, ys := make([]float64, n), make([]float64, n)
	for i, c := range d.Cids {
		xs[i], ys[i] = gd.Coord[c].X, gd.Coord[c].Y
	}
	d.BorderMask, d.InteriorMask = BuildMasks(xs, ys, gd.Cwidth, borderW)
	d.Lat, d.Lon = make([]float64, n), make([]float64, n)
	for i, c := range d.Cids {
		lat, lon, err := UTM.ToLatLon(xs[i], ys[i], utmZone, "", true)
		if err != nil {
			return nil, fmt.Errorf(" grid.LoadDomain: %v -- (x,y)=(%f, %f); cid: %d", err, xs[i], ys[i], c)
		}
		d.Lat[i], d.Lon[i] = lat, lon
	}
	return d, nil
}

func (d *Domain) Nodes() int { return len(d.Cids) }

// BuildMasks flags every cell lying within borderW rings of the region's
// edge. Cells are matched to their four neighbours by centroid offsets
// one cell width apart, so irregular (non-rectangular) active regions
// resolve correctly. The two masks are complementary.
func BuildMasks(xs, ys []float64, cw float64, borderW int) (border, interior []float64) {
	n := len(xs)
	border, interior = make([]float64, n), make([]float64, n)
	if borderW <= 0 {
		for i := range interior {
			interior[i] = 1.
		}
		return border, interior
	}

	type ixy struct{ ix, iy int }
	key := func(i int) ixy {
		return ixy{int(math.Round(xs[i] / cw)), int(math.Round(ys[i] / cw))}
	}
	nbrs := func(k ixy) [4]ixy {
		return [4]ixy{{k.ix - 1, k.iy}, {k.ix + 1, k.iy}, {k.ix, k.iy - 1}, {k.ix, k.iy + 1}}
	}
	hsh := make(map[ixy]int, n) // integerized centroid -> node index
	for i := 0; i < n; i++ {
		hsh[key(i)] = i
	}

	ring := make([]int, n) // rings in from the edge, -1 unresolved
	for i := range ring {
		ring[i] = -1
	}
	frontier := []int{}
	for i := 0; i < n; i++ {
		for _, o := range nbrs(key(i)) {
			if _, ok := hsh[o]; !ok {
				ring[i] = 0
				frontier = append(frontier, i)
				break
			}
		}
	}
	for r := 1; r < borderW; r++ {
		next := []int{}
		for _, i := range frontier {
			for _, o := range nbrs(key(i)) {
				if j, ok := hsh[o]; ok && ring[j] < 0 {
					ring[j] = r
					next = append(next, j)
				}
			}
		}
		frontier = next
	}

	for i := 0; i < n; i++ {
		if ring[i] >= 0 {
			border[i] = 1.
		} else {
			interior[i] = 1.
		}
	}
	return border, interior
}
