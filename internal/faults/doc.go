// Package faults defines the error markers shared by every featmill stage.
//
// Each failure is tagged with one exported sentinel (malformed descriptor,
// configuration, I/O, shape mismatch, frame drift, degenerate sample, empty
// training set, phase violation) through Wrap, so callers classify failures
// with errors.Is while the message keeps the component and operation that
// produced it. Kind maps an error back to a short label persisted in the run
// ledger.
package faults
