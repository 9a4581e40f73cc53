// Package config loads, normalizes, and validates featmill configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and overlays environment variables such as
// FEATMILL_LOG_LEVEL and AWS_ACCESS_KEY_ID. The Config type centralizes the
// corpus definition, every compose job, weight generation and artifact
// publishing so the CLI resolves everything in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
