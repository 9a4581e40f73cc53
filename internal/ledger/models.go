package ledger

import "time"

// Status captures the lifecycle of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Kind names the command that produced a run.
type Kind string

const (
	KindCompose   Kind = "compose"
	KindNormalize Kind = "normalize"
	KindWeights   Kind = "weights"
	KindPublish   Kind = "publish"
)

// Split tells whether an utterance contributed to the corpus statistics.
type Split string

const (
	SplitTraining Split = "training"
	SplitHeldOut  Split = "heldout"
)

// Totals summarizes what a run processed.
type Totals struct {
	Utterances   int `json:"utterances"`
	Frames       int `json:"frames"`
	Dims         int `json:"dims"`
	ZeroVariance int `json:"zero_variance"`
	Cropped      int `json:"cropped"`
}

// Run is one recorded invocation.
type Run struct {
	ID           string     `json:"id"`
	Job          string     `json:"job"`
	Kind         Kind       `json:"kind"`
	Status       Status     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Totals       Totals     `json:"totals"`
	ErrorKind    string     `json:"error_kind,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// Duration returns the wall time of a finished run, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// UtteranceRecord is one processed utterance of a run.
type UtteranceRecord struct {
	Utterance string `json:"utterance"`
	Frames    int    `json:"frames"`
	Cropped   bool   `json:"cropped"`
	Split     Split  `json:"split"`
}
