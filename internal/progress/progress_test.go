package progress

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFallsBackToLogForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	if _, ok := New(slog.New(slog.NewJSONHandler(&buf, nil)), &buf, true).(*Log); !ok {
		t.Fatal("expected log reporter for a non-terminal writer")
	}
}

func TestLogTrackerSamplesTenPercentBuckets(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewLog(slog.New(slog.NewJSONHandler(&buf, nil)))

	tracker := reporter.Start("pass1", 100)
	for i := 1; i <= 100; i++ {
		tracker.Step(i, "utt")
	}
	tracker.Finish()
	reporter.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 11 {
		t.Fatalf("expected 11 sampled records, got %d:\n%s", len(lines), buf.String())
	}
	var last map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if last["phase"] != "pass1" || last["progress_percent"] != float64(100) || last["component"] != "progress" {
		t.Fatalf("unexpected last record %v", last)
	}
}

func TestBarsCompleteAndAbort(t *testing.T) {
	var buf bytes.Buffer
	bars := NewBars(&buf)

	done := bars.Start("pass1", 3)
	for i := 1; i <= 3; i++ {
		done.Step(i, "u")
	}
	done.Finish()

	partial := bars.Start("pass2", 5)
	partial.Step(1, "u")
	partial.Finish()

	bars.Wait()
}
