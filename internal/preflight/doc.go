// Package preflight provides readiness checks for the filesystem paths a
// featmill run depends on.
//
// The compose engine calls ForJob before taking the output lock so a run
// with an unreadable input stream fails before any pass starts. The CLI
// "featmill preflight" command runs RunAll over the whole configuration and
// renders every result.
package preflight
