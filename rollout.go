package arlam

// Predictor steps the model state one step ahead, X_{t-1}, X_t -> X_{t+1}.
// The returned std is nil unless the network carries an explicit
// uncertainty head. Supplied externally; the rollout treats it as opaque.
type Predictor interface {
	SinglePrediction(prev, prevPrev, forcing State) (State, *State, error)
}

// Rollout produces a multi-step forecast by feeding each emitted state
// back as conditioning input for the next step. At every step the border
// nodes are overwritten with the true state so that boundary information
// enters the autoregression:
//
//	new = borderMask*true[i] + interiorMask*candidate
//
// With steps == 0 the returned sequence is empty and the predictor is
// never called. Pure: deterministic given a deterministic predictor.
func Rollout(ctx *StaticContext, init [2]State, forcing, trueStates Seq, p Predictor) (Seq, StdField, error) {
	if !init[0].sameShape(init[1]) {
		return Seq{}, StdField{}, shapeErr("rollout init", init[0].shape(), init[1].shape())
	}
	nb, n, v := init[1].B, init[1].N, init[1].V
	if n != ctx.Nodes || v != ctx.NVars {
		return Seq{}, StdField{}, shapeErr("rollout init", init[1].shape(), []int{nb, ctx.Nodes, ctx.NVars})
	}
	steps := forcing.S
	if forcing.B != nb || forcing.N != n {
		return Seq{}, StdField{}, shapeErr("rollout forcing", forcing.shape(), []int{nb, steps, n, forcing.V})
	}
	if trueStates.B != nb || trueStates.S != steps || trueStates.N != n || trueStates.V != v {
		return Seq{}, StdField{}, shapeErr("rollout true states", trueStates.shape(), []int{nb, steps, n, v})
	}

	pred := NewSeq(nb, steps, n, v)
	var stdSeq *Seq
	if ctx.OutputStd {
		q := NewSeq(nb, steps, n, v)
		stdSeq = &q
	}

	prevPrev, prev := init[0], init[1]
	for i := 0; i < steps; i++ {
		frc := forcing.StepSlice(i)
		border := trueStates.StepSlice(i)

		cand, cstd, err := p.SinglePrediction(prev, prevPrev, frc)
		if err != nil {
			return Seq{}, StdField{}, err
		}
		if !cand.sameShape(init[1]) {
			return Seq{}, StdField{}, shapeErr("rollout prediction", cand.shape(), init[1].shape())
		}

		blended := NewState(nb, n, v)
		for ib := 0; ib < nb; ib++ {
			for in := 0; in < n; in++ {
				bm, im := ctx.BorderMask[in], ctx.InteriorMask[in]
				o := (ib*n + in) * v
				for iv := 0; iv < v; iv++ {
					blended.Buf[o+iv] = bm*border.Buf[o+iv] + im*cand.Buf[o+iv]
				}
			}
		}
		pred.SetStep(i, blended)

		if ctx.OutputStd {
			if cstd == nil {
				return Seq{}, StdField{}, confErrf("output std enabled but predictor returned none at step %d", i)
			}
			if !cstd.sameShape(init[1]) {
				return Seq{}, StdField{}, shapeErr("rollout pred std", cstd.shape(), init[1].shape())
			}
			stdSeq.SetStep(i, *cstd)
		}

		prevPrev, prev = prev, blended
	}

	if ctx.OutputStd {
		return pred, StdField{Seq: stdSeq}, nil
	}
	return pred, StdField{PerVar: ctx.PerVarStd}, nil
}
