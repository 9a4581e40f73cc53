// Package publish uploads the fixed-name artifacts of a composed corpus to
// S3-compatible object storage.
//
// Per-utterance feature files stay local; only the corpus statistics, the
// normalization parameter pair and the keep-index are published, under
// <prefix>/<job>/.
package publish
