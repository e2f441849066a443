// Package arlam is the control core of an autoregressive limited-area
// forecast model: it rolls multi-step predictions out by feeding each
// emitted state back as input, pins boundary nodes to known true states,
// accumulates error metrics over data-parallel workers, and manages the
// plot, export and checkpoint bookkeeping around a run. The single-step
// predictor itself is supplied externally (see Predictor and package nn).
package arlam
