package postpro

import (
	"fmt"

	mmplt "github.com/maseology/mmPlot"
	"github.com/maseology/objfunc"
)

// Skill holds the standard scores of a simulated series against its
// observations.
type Skill struct {
	KGE, NSE, RMSE, Bias float64
}

// Score computes forecast skill for one variable's series.
func Score(obs, sim []float64) Skill {
	return Skill{
		KGE:  objfunc.KGE(obs, sim),
		NSE:  objfunc.NSE(obs, sim),
		RMSE: objfunc.RMSE(obs, sim),
		Bias: objfunc.Bias(obs, sim),
	}
}

// Report scores a series, prints the summary line and writes the
// observed-simulated plot.
func Report(dir, nam string, obs, sim []float64) Skill {
	sk := Score(obs, sim)
	fmt.Printf("  %s:  KGE: %.3f  NSE: %.3f  RMSE: %.3f  Bias: %.3f\n", nam, sk.KGE, sk.NSE, sk.RMSE, sk.Bias)
	mmplt.ObsSim(dir+nam+".hyd.png", obs, sim)
	return sk
}
