// Package stats estimates per-dimension corpus statistics over the training
// prefix in two streaming passes.
//
// The Accumulator is an explicit state machine:
//
//	Idle -> AccumulatingMoments -> MomentsFinal -> AccumulatingVariance -> Done
//
// Pass 1 gathers min, max, a float64 sum and the frame count while composed
// matrices are written. The mean barrier only opens once every expected
// training utterance has been consumed. Pass 2 re-reads the written matrices
// and gathers float64 squared deviations from that exact mean; the std
// barrier again requires the same utterance and frame counts. Any call made
// out of order fails with faults.ErrPhase rather than yielding partial
// statistics. Peak memory is one utterance plus O(dims) running vectors.
package stats
