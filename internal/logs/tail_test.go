package logs_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"featmill/internal/logs"
)

const sample = `{"ts":"2026-10-18T10:00:00Z","level":"info","msg":"composition started","component":"compose","job":"cmp","run_id":"abc-1"}
{"ts":"2026-10-18T10:00:01Z","level":"debug","msg":"utterance normalized","component":"normalize","job":"cmp","utterance":"u1","run_id":"abc-1"}
{"ts":"2026-10-18T10:00:02Z","level":"warn","msg":"zero-variance dimensions found","component":"compose","job":"lab","run_id":"def-2"}
{"ts":"2026-10-18T10:00:03Z","level":"info","msg":"composition finished","component":"compose","job":"cmp","run_id":"abc-1"}
`

func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func collect(t *testing.T, path string, opts logs.TailOptions) []logs.Entry {
	t.Helper()
	var out []logs.Entry
	if err := logs.Tail(context.Background(), path, opts, func(e logs.Entry) { out = append(out, e) }); err != nil {
		t.Fatalf("tail: %v", err)
	}
	return out
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, t.TempDir(), "featmill-20261018T100000.log", sample)

	got := collect(t, path, logs.TailOptions{Lines: 2})
	if len(got) != 2 || got[0].Message != "zero-variance dimensions found" || got[1].Message != "composition finished" {
		t.Fatalf("unexpected entries: %#v", got)
	}
}

func TestTailFilters(t *testing.T) {
	path := writeLog(t, t.TempDir(), "featmill-20261018T100000.log", sample)

	got := collect(t, path, logs.TailOptions{Lines: 10, Filter: logs.Filter{RunID: "abc", Level: slog.LevelInfo}})
	if len(got) != 2 {
		t.Fatalf("run filter: got %d entries, want 2", len(got))
	}
	got = collect(t, path, logs.TailOptions{Lines: 10, Filter: logs.Filter{Job: "cmp", Level: slog.LevelDebug}})
	if len(got) != 3 || got[1].Utterance != "u1" {
		t.Fatalf("job filter: %#v", got)
	}
	got = collect(t, path, logs.TailOptions{Lines: 10, Filter: logs.Filter{Level: logs.ParseLevel("warn")}})
	if len(got) != 1 || got[0].Job != "lab" {
		t.Fatalf("level filter: %#v", got)
	}
}

func TestTailFollowPicksUpAppendedRecords(t *testing.T) {
	path := writeLog(t, t.TempDir(), "featmill-20261018T100000.log", sample)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Tail(ctx, path, logs.TailOptions{Follow: true, Poll: 20 * time.Millisecond}, func(e logs.Entry) {
			mu.Lock()
			seen = append(seen, e.Message)
			mu.Unlock()
		})
	}()

	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString(`{"ts":"2026-10-18T10:00:04Z","level":"info","msg":"later","job":"cmp"}` + "\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("follow: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != "later" {
		t.Fatalf("follow saw %#v, want only the appended record", seen)
	}
}

func TestLatestPicksNewestRunLog(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "featmill-20261017T090000.log", "")
	newest := writeLog(t, dir, "featmill-20261018T090000.log", "")
	writeLog(t, dir, "other.log", "")

	got, err := logs.Latest(dir)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got != newest {
		t.Fatalf("latest = %s, want %s", got, newest)
	}
	if _, err := logs.Latest(t.TempDir()); err == nil {
		t.Fatal("expected an error for an empty directory")
	}
}

func TestFormat(t *testing.T) {
	line := logs.Format(logs.ParseEntry(`{"ts":"2026-10-18T10:00:00Z","level":"warn","msg":"drift","component":"reader","job":"cmp","phase":"compose","utterance":"u7","error":"boom"}`))
	for _, want := range []string{"WARN", "[reader]", "u7", "drift", "(error: boom)"} {
		if !strings.Contains(line, want) {
			t.Errorf("Format() = %q, missing %q", line, want)
		}
	}
	if got := logs.Format(logs.ParseEntry("plain text")); got != "plain text" {
		t.Errorf("Format(plain) = %q", got)
	}
}
