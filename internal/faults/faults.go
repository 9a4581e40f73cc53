package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedDescriptor = errors.New("malformed descriptor")
	ErrConfiguration       = errors.New("configuration error")
	ErrIO                  = errors.New("i/o error")
	ErrShapeMismatch       = errors.New("shape mismatch")
	ErrFrameDrift          = errors.New("frame drift exceeded")
	ErrDegenerateSample    = errors.New("degenerate sample")
	ErrEmptyTrainingSet    = errors.New("empty training set")
	ErrPhase               = errors.New("phase violation")
	ErrMalformedLabel      = errors.New("malformed alignment label")
)

var markers = []struct {
	err  error
	kind string
}{
	{ErrMalformedDescriptor, "malformed_descriptor"},
	{ErrConfiguration, "configuration"},
	{ErrIO, "io"},
	{ErrShapeMismatch, "shape_mismatch"},
	{ErrFrameDrift, "frame_drift"},
	{ErrDegenerateSample, "degenerate_sample"},
	{ErrEmptyTrainingSet, "empty_training_set"},
	{ErrPhase, "phase"},
	{ErrMalformedLabel, "malformed_label"},
}

// Wrap builds an error message that includes component context while tagging
// it with the provided marker. The marker should be one of the exported
// sentinel errors above; nil falls back to ErrIO.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the short label of the first marker carried by err, "unknown"
// for untagged errors and "" for nil.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range markers {
		if errors.Is(err, m.err) {
			return m.kind
		}
	}
	return "unknown"
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "featmill failure"
	}
	return strings.Join(parts, ": ")
}
