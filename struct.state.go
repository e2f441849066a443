package arlam

// State is one time slice of the model domain held as a flat row-major
// buffer over (batch, node, variable).
type State struct {
	Buf     []float64
	B, N, V int
}

// NewState allocates a zeroed state.
func NewState(b, n, v int) State {
	return State{Buf: make([]float64, b*n*v), B: b, N: n, V: v}
}

// At returns element (ib, in, iv).
func (s State) At(ib, in, iv int) float64 { return s.Buf[(ib*s.N+in)*s.V+iv] }

// Set assigns element (ib, in, iv).
func (s State) Set(ib, in, iv int, v float64) { s.Buf[(ib*s.N+in)*s.V+iv] = v }

func (s State) sameShape(o State) bool { return s.B == o.B && s.N == o.N && s.V == o.V }

func (s State) shape() []int { return []int{s.B, s.N, s.V} }

// Seq is an ordered sequence of states over prediction steps, flat
// row-major over (batch, step, node, variable).
type Seq struct {
	Buf        []float64
	B, S, N, V int
}

// NewSeq allocates a zeroed sequence.
func NewSeq(b, s, n, v int) Seq {
	return Seq{Buf: make([]float64, b*s*n*v), B: b, S: s, N: n, V: v}
}

// At returns element (ib, is, in, iv).
func (q Seq) At(ib, is, in, iv int) float64 {
	return q.Buf[((ib*q.S+is)*q.N+in)*q.V+iv]
}

// Set assigns element (ib, is, in, iv).
func (q Seq) Set(ib, is, in, iv int, v float64) {
	q.Buf[((ib*q.S+is)*q.N+in)*q.V+iv] = v
}

// StepSlice copies step i out as a (batch, node, variable) state. The
// (node, variable) block is contiguous per batch row.
func (q Seq) StepSlice(i int) State {
	st, nv := NewState(q.B, q.N, q.V), q.N*q.V
	for ib := 0; ib < q.B; ib++ {
		copy(st.Buf[ib*nv:(ib+1)*nv], q.Buf[(ib*q.S+i)*nv:(ib*q.S+i+1)*nv])
	}
	return st
}

// SetStep copies state st into step i.
func (q Seq) SetStep(i int, st State) {
	nv := q.N * q.V
	for ib := 0; ib < q.B; ib++ {
		copy(q.Buf[(ib*q.S+i)*nv:(ib*q.S+i+1)*nv], st.Buf[ib*nv:(ib+1)*nv])
	}
}

func (q Seq) shape() []int { return []int{q.B, q.S, q.N, q.V} }

// StdField carries predictive uncertainty: either a full per-step sequence
// (when the predictor emits an explicit std head) or a static per-variable
// vector broadcast over all steps and nodes. Exactly one of the two is set.
type StdField struct {
	Seq    *Seq
	PerVar []float64
}

// Static reports whether the field is the broadcast per-variable form.
func (f StdField) Static() bool { return f.Seq == nil }

// At returns the std for element (ib, is, in, iv) under broadcasting.
func (f StdField) At(ib, is, in, iv int) float64 {
	if f.Seq != nil {
		return f.Seq.At(ib, is, in, iv)
	}
	return f.PerVar[iv]
}
