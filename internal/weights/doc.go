// Package weights derives one [0,1] weight per frame for each utterance,
// either from spectral energy or from silence segments in an alignment.
package weights
