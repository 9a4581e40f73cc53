// Package fileutil holds the small filesystem helpers featmill relies on for
// re-runnable output: atomic replace-on-write and tolerant directory creation.
package fileutil
