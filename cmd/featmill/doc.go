// Package main hosts the featmill CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into compose, weight,
// normalization and publishing runs over the configured corpus, and renders
// statistics and run ledger queries as tables. Configuration loading, logger
// construction and ledger access are centralized in commandContext so
// subcommands only translate flags into calls on the internal packages.
package main
