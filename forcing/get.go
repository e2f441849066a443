package forcing

import (
	"fmt"
	"time"

	"github.com/maseology/goHydro/gmet"
	"github.com/maseology/mmio"
)

// GetSeries loads a continuous met series from a NetCDF or csv source
// and assembles it onto the model's node order. sids are the source
// station ids in node order; varNames the state variables to carry, in
// model variable order.
func GetSeries(ncfp, prfx string, sids []int, varNames []string, stepHr int) (*Dataset, error) {
	tt := time.Now()

	fmt.Println(" loading: " + ncfp)
	var g *gmet.GMET
	var err error
	switch mmio.GetExtension(ncfp) {
	case ".nc":
		g, err = gmet.LoadNC(ncfp, prfx, varNames)
	case ".csv":
		g, err = gmet.LoadCsv(ncfp, varNames[0])
	default:
		return nil, fmt.Errorf("forcing.GetSeries: unknown source type %s", ncfp)
	}
	if err != nil {
		return nil, fmt.Errorf("forcing.GetSeries: %v", err)
	}

	ds, err := build(g, sids, varNames, stepHr)
	if err != nil {
		return nil, err
	}
	ds.VarNames = append([]string(nil), varNames...)

	fmt.Printf(" series loaded - %v\n", time.Since(tt))
	return ds, nil
}
