// Package nn holds the prediction operators a rollout can drive: a
// persistence baseline and a linear autoregression with parameters held
// as tensors, loadable from checkpoints.
package nn

import "github.com/maseology/arlam"

// Persistence predicts no change: the candidate equals the previous
// state. The zero-skill reference any trained operator must beat.
type Persistence struct{}

func (Persistence) SinglePrediction(prev, prevPrev, forcing arlam.State) (arlam.State, *arlam.State, error) {
	out := arlam.NewState(prev.B, prev.N, prev.V)
	copy(out.Buf, prev.Buf)
	return out, nil, nil
}
