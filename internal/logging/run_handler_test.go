package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestRunIDHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := newRunIDHandler(slog.NewJSONHandler(&buf, nil), "run-123")

	slog.New(handler).Info("test message")

	if !strings.Contains(buf.String(), `"run_id":"run-123"`) {
		t.Errorf("expected run_id in output, got: %s", buf.String())
	}
}

func TestRunIDHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := newRunIDHandler(slog.NewJSONHandler(&buf, nil), "run-abc")

	slog.New(handler).With("extra", "value").Info("test message")

	output := buf.String()
	if !strings.Contains(output, `"run_id":"run-abc"`) {
		t.Errorf("expected run_id in output, got: %s", output)
	}
	if !strings.Contains(output, `"extra":"value"`) {
		t.Errorf("expected extra attr in output, got: %s", output)
	}
}

func TestRunIDHandlerPassThrough(t *testing.T) {
	if _, ok := newRunIDHandler(nil, "run-1").(NoopHandler); !ok {
		t.Error("expected NoopHandler when base is nil")
	}
	base := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	if got := newRunIDHandler(base, ""); got != slog.Handler(base) {
		t.Errorf("expected base handler for empty run id, got %T", got)
	}
}
