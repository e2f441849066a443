package main

import (
	"flag"

	"github.com/maseology/arlam/prep"
)

func main() {
	controlFP := flag.String("f", "mdl/arlam.ctl", "series build control file")
	flag.Parse()
	prep.BuildSeries(*controlFP)
}
