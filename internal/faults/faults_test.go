package faults_test

import (
	"errors"
	"strings"
	"testing"

	"featmill/internal/faults"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := faults.Wrap(faults.ErrShapeMismatch, "reader", "read", "utt001", base)
	if !errors.Is(err, faults.ErrShapeMismatch) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"reader", "read", "utt001"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := faults.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, faults.ErrIO) {
		t.Fatalf("expected io marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "featmill failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("plain"), "unknown"},
		{faults.Wrap(faults.ErrConfiguration, "corpus", "split", "", nil), "configuration"},
		{faults.Wrap(faults.ErrDegenerateSample, "stats", "finalize", "", nil), "degenerate_sample"},
		{faults.Wrap(faults.ErrEmptyTrainingSet, "stats", "moments", "", nil), "empty_training_set"},
		{faults.Wrap(faults.ErrMalformedLabel, "weights", "parse", "line 3", nil), "malformed_label"},
	}
	for _, tc := range cases {
		if got := faults.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
