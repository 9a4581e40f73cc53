package compose

import (
	"time"

	"featmill/internal/normalize"
	"featmill/internal/reader"
	"featmill/internal/stats"
)

// Summary reports a finished run.
type Summary struct {
	Job   string
	RunID string

	Utterances         int
	TrainingUtterances int
	HeldOutUtterances  int
	TrainingFrames     int
	// TrainingDuration is TrainingFrames at the corpus frame shift.
	TrainingDuration time.Duration

	Layout       string
	ComposedDims int
	OutputDims   int
	ZeroVariance []int
	Crop         reader.Summary
	Strategy     normalize.Kind

	// Check holds the recomputed statistics of the normalized training
	// prefix when the final check ran.
	Check *stats.CorpusStatistics
}

func frameDuration(frames int, shift float64) time.Duration {
	if shift <= 0 {
		return 0
	}
	return time.Duration(float64(frames) * shift * float64(time.Second))
}
