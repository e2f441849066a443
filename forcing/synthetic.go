package forcing

import (
	"math"
	"math/rand"
	"time"

	mrg63k3a "github.com/maseology/goRNG/MRG63k3a"
)

// Synthetic generates a weather-like series for shakedown runs: a
// diurnal-seasonal cycle per variable, phase-shifted across nodes, with
// persistent noise riding on it. Time forcing features are attached.
func Synthetic(t0 time.Time, nt, n, v, stepHr int, seed int64) *Dataset {
	rng := rand.New(mrg63k3a.New())
	rng.Seed(seed)

	ds := &Dataset{
		T:      make([]time.Time, nt),
		States: make([]float64, nt*n*v),
		N:      n, V: v, StepHr: stepHr,
	}
	phi := make([]float64, n)
	for in := range phi {
		phi[in] = 2. * math.Pi * float64(in) / float64(n)
	}
	ar := make([]float64, n*v)
	for it := 0; it < nt; it++ {
		t := t0.Add(time.Duration(it*stepHr) * time.Hour)
		ds.T[it] = t
		hod := 2. * math.Pi * float64(t.Hour()) / 24.
		doy := 2. * math.Pi * float64(t.YearDay()) / 365.24
		for in := 0; in < n; in++ {
			for iv := 0; iv < v; iv++ {
				j := in*v + iv
				ar[j] = .9*ar[j] + .3*rng.NormFloat64()
				a := 1. + float64(iv)
				ds.States[(it*n+in)*v+iv] = a*(.3*math.Sin(hod)+math.Sin(doy+phi[in])) + ar[j]
			}
		}
	}
	ds.BuildTimeForcing()
	return ds
}
