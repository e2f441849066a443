package arlam

// Batch is one model sample set: two temporally offset initial states
// (t-1, t), the per-step target states, and the per-step forcing, where
// forcing step 0 drives the prediction of the step after Init[1].
type Batch struct {
	Init    [2]State
	Targets Seq
	Forcing Seq
}

// Check verifies the batch dimensions against the static context and
// against each other.
func (b *Batch) Check(ctx *StaticContext) error {
	if !b.Init[0].sameShape(b.Init[1]) {
		return shapeErr("batch init states", b.Init[0].shape(), b.Init[1].shape())
	}
	if b.Init[1].N != ctx.Nodes || b.Init[1].V != ctx.NVars {
		return shapeErr("batch init states", b.Init[1].shape(), []int{b.Init[1].B, ctx.Nodes, ctx.NVars})
	}
	nb := b.Init[1].B
	if b.Targets.B != nb || b.Targets.N != ctx.Nodes || b.Targets.V != ctx.NVars {
		return shapeErr("batch targets", b.Targets.shape(), []int{nb, b.Targets.S, ctx.Nodes, ctx.NVars})
	}
	if b.Forcing.B != nb || b.Forcing.S != b.Targets.S || b.Forcing.N != ctx.Nodes {
		return shapeErr("batch forcing", b.Forcing.shape(), []int{nb, b.Targets.S, ctx.Nodes, b.Forcing.V})
	}
	return nil
}
