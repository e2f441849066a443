package prep

import (
	"fmt"
	"log"
	"strconv"

	"github.com/maseology/arlam/forcing"
	"github.com/maseology/arlam/grid"
	"github.com/maseology/mmio"
)

// BuildSeries assembles the run-ready binaries (*.gob) named by a
// control file: the boundary-masked model domain and the forcing series
// collected from NetCDF/csv, with its moments and per-variable check
// rasters. Stages already built are left alone; delete the gob to
// rebuild.
func BuildSeries(controlFP string) {

	tt := mmio.NewTimer()
	defer tt.Print("\n\nprep complete!")

	fmt.Println("Building forecast domain binaries (*.gob) from ", controlFP)

	// get input file paths
	var gobDir, gdefFP, ncFP, ncPrfx string
	var varNames, varUnits []string
	var dtHr, brdr, zone int
	getFilePaths := func(fp string) {
		var err error
		ins := mmio.NewInstruct(fp)
		gobDir = ins.Param["prfx"][0]
		gdefFP = ins.Param["gdeffp"][0]
		ncFP = ins.Param["ncfp"][0]
		if p, ok := ins.Param["ncprfx"]; ok {
			ncPrfx = p[0]
		}
		varNames = ins.Param["vars"]
		if p, ok := ins.Param["units"]; ok { // in vars order
			varUnits = p
		}
		if dtHr, err = strconv.Atoi(ins.Param["dthr"][0]); err != nil {
			panic(err)
		}
		if brdr, err = strconv.Atoi(ins.Param["border"][0]); err != nil {
			panic(err)
		}
		if zone, err = strconv.Atoi(ins.Param["zone"][0]); err != nil {
			panic(err)
		}
	}
	getFilePaths(controlFP)

	// get grid definition and boundary masks
	fmt.Println("\ncollecting grid defintion..")
	dom, err := grid.LoadDomain(gdefFP, brdr, zone)
	if err != nil {
		log.Fatalf("%v", err)
	}
	nbrdr := 0
	for _, m := range dom.BorderMask {
		nbrdr += int(m)
	}
	fmt.Printf("  %d cells; %d boundary\n", dom.Nodes(), nbrdr)

	// collect the met series
	if _, ok := mmio.FileExists(gobDir + "series.gob"); !ok {
		fmt.Println("\ncollecting met series..")
		ds, err := forcing.GetSeries(ncFP, ncPrfx, dom.Cids, varNames, dtHr)
		if err != nil {
			log.Fatalf("%v", err)
		}
		if len(varUnits) == len(varNames) {
			ds.VarUnits = make(map[string]string, len(varNames))
			for i, nam := range varNames {
				ds.VarUnits[nam] = varUnits[i]
			}
		}
		ds.CheckAndPrint(varNames)
		if err := ds.SaveGob(gobDir + "series.gob"); err != nil {
			log.Fatalf("%v", err)
		}
		if err := ds.BuildStats().SaveGob(gobDir + "stats.gob"); err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Println("\nwriting check rasters..")
		ds.ToBil(dom.GD, dom.Cids, varNames, gobDir)
	} else {
		fmt.Println("\nseries.gob already built")
	}
}
