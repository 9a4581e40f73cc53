// Package ledger records featmill runs in SQLite.
//
// Each compose, normalize, weights, or publish invocation opens a run row with
// Begin, optionally records one row per processed utterance, and closes it with
// Finish or Fail. The CLI reads the ledger back for `featmill runs`.
//
// The database lives under the configured state directory. Schema changes bump
// schemaVersion in schema.go; an older database must be deleted to adopt the
// new schema.
package ledger
