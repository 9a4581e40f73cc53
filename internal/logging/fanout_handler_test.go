package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for all nil handlers")
	}
	inner := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	if h := newFanoutHandler(nil, inner, nil); h != slog.Handler(inner) {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestTeeHandlerRespectsEachLevel(t *testing.T) {
	var console, file bytes.Buffer
	h := TeeHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug enabled through the debug handler")
	}

	logger := slog.New(h)
	logger.Debug("verbose")
	logger.Info("summary")

	if strings.Contains(console.String(), "verbose") {
		t.Fatalf("info handler received debug record: %s", console.String())
	}
	if !strings.Contains(console.String(), "summary") {
		t.Fatalf("info handler missed info record: %s", console.String())
	}
	if !strings.Contains(file.String(), "verbose") || !strings.Contains(file.String(), "summary") {
		t.Fatalf("debug handler missed records: %s", file.String())
	}
}

func TestTeeHandlerWithAttrsAndGroup(t *testing.T) {
	var a, b bytes.Buffer
	h := TeeHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))

	slog.New(h).With(FieldJob, "cmp").WithGroup("stats").Info("done", "frames", 12)

	for _, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, `"job":"cmp"`) {
			t.Fatalf("missing job attr: %s", out)
		}
		if !strings.Contains(out, `"stats":{"frames":12}`) {
			t.Fatalf("missing grouped attr: %s", out)
		}
	}
}

type failingHandler struct{ err error }

func (failingHandler) Enabled(context.Context, slog.Level) bool    { return true }
func (f failingHandler) Handle(context.Context, slog.Record) error { return f.err }
func (f failingHandler) WithAttrs([]slog.Attr) slog.Handler        { return f }
func (f failingHandler) WithGroup(string) slog.Handler             { return f }

func TestTeeHandlerKeepsWritingAfterFailure(t *testing.T) {
	var console bytes.Buffer
	diskFull := errors.New("no space left on device")
	h := TeeHandler(failingHandler{err: diskFull}, slog.NewTextHandler(&console, nil))

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "pass finished", 0))
	if !errors.Is(err, diskFull) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !strings.Contains(console.String(), "pass finished") {
		t.Fatalf("second handler missed the record: %q", console.String())
	}
}
