// Package normalize rescales composed feature matrices with corpus
// statistics.
//
// Strategies form a closed set selected by Kind: min-max, mean-std,
// mean-std with a protected band, and none. A Strategy fits Params from
// unrestricted CorpusStatistics plus a keep-index; Params then carries
// exactly what is applied to each utterance and what is persisted under the
// fixed *4norm names for inverse mapping downstream.
package normalize
