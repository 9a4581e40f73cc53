// Package logging assembles structured slog loggers and formatting helpers used
// across featmill commands.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with the job name, pipeline phase, and run identifier. A run log file
// can be attached next to the console output; every record written there is
// JSON and carries the run_id of the invocation.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
