// Package compose runs one composition job end to end.
//
// A run fuses the input streams of every utterance, appends the windowed
// deltas and writes the composed matrix (pass 1, which also accumulates the
// training moments). After the moments barrier it re-reads the composed
// training files to accumulate the variance (pass 2), persists the corpus
// statistics and keep-index next to the output, fits the configured
// normalization strategy and rewrites every utterance in place. An optional
// final check recomputes the statistics of the normalized training prefix.
//
// Any failure aborts the run; there is no partial or resumed statistics
// state. Outputs are written atomically per file, so a re-run replaces them
// deterministically. A file lock on the output directory keeps two runs from
// writing the same corpus.
package compose
