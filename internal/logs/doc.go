// Package logs reads the JSON run logs featmill writes into log_dir.
//
// It locates the newest run log, tails it with bounded memory, filters
// records by run, job or level, and can keep following the file while a run
// in another terminal appends to it. Callers pass a context so follow mode
// stops cleanly when the CLI exits.
package logs
