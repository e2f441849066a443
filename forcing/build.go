package forcing

import (
	"fmt"
	"math"
	"time"

	"github.com/maseology/goHydro/gmet"
)

// build assembles the gridded series from a loaded met source. Source
// dates are rebuilt sequential at the model interval, station columns
// are mapped to node order, and gaps are infilled with the last value.
func build(g *gmet.GMET, sids []int, varNames []string, stepHr int) (*Dataset, error) {
	intvl := time.Duration(stepHr) * time.Hour

	// collect sequential dates
	d := make(map[int64]int, g.Nts)
	for j, t := range g.Ts {
		d[t.Unix()] = j
	}
	ts, xt, cdt := make([]time.Time, 0, g.Nts), make([]int, 0, g.Nts), 0
	dt := g.Ts[0]
	for {
		if jj, ok := d[dt.Unix()]; ok {
			xt = append(xt, jj)
		} else {
			xt = append(xt, -1)
			cdt++
		}
		ts = append(ts, dt)
		dt = dt.Add(intvl)
		if dt.After(g.Ts[g.Nts-1]) {
			break
		}
	}
	if cdt > 0 {
		fmt.Printf("     Total missing dates = %d\n", cdt)
	}
	fmt.Printf("  Dates available: %v to %v in %d steps\n", ts[0], ts[len(ts)-1], len(ts))

	// map station ids to source columns
	mmid := func() map[int]int {
		if len(g.Sids) == 1 {
			mmid := make(map[int]int, len(sids))
			for _, s := range sids {
				mmid[s] = 0
			}
			return mmid
		}
		mmid := make(map[int]int, len(g.Sids))
		for i, s := range g.Sids {
			mmid[s] = i
		}
		return mmid
	}()

	nt, n, v := len(ts), len(sids), len(varNames)
	ds := &Dataset{T: ts, States: make([]float64, nt*n*v), N: n, V: v, StepHr: stepHr}
	for iv, nam := range varNames {
		dat := g.GetAllData(nam)
		for in, s := range sids {
			i, ok := mmid[s]
			if !ok {
				return nil, fmt.Errorf("forcing.build: met source does not contain station %d", s)
			}
			last := 0.
			for j := range ts {
				jj, x := xt[j], last
				if jj >= 0 && jj < len(dat[i]) && !math.IsNaN(dat[i][jj]) {
					x = dat[i][jj]
				}
				ds.States[(j*n+in)*v+iv] = x // infilling with last
				last = x
			}
		}
	}
	return ds, nil
}

// BuildTimeForcing derives cyclic time-encoding forcing features from
// each step's timestamp: diurnal and seasonal sin/cos pairs, common to
// all nodes.
func (ds *Dataset) BuildTimeForcing() {
	ds.F = 4
	ds.Forcing = make([]float64, ds.NT()*ds.N*ds.F)
	for it, t := range ds.T {
		hod := float64(t.Hour()) + float64(t.Minute())/60.
		doy := float64(t.YearDay())
		fs := [4]float64{
			math.Sin(2. * math.Pi * hod / 24.),
			math.Cos(2. * math.Pi * hod / 24.),
			math.Sin(2. * math.Pi * doy / 365.24),
			math.Cos(2. * math.Pi * doy / 365.24),
		}
		for in := 0; in < ds.N; in++ {
			o := (it*ds.N + in) * ds.F
			copy(ds.Forcing[o:o+4], fs[:])
		}
	}
}
