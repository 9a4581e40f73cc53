package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"featmill/internal/faults"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "featmill.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clock := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return store
}

func TestBeginFinishRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run, err := store.Begin(ctx, "cmp", KindCompose)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if run.Status != StatusRunning || run.ID == "" {
		t.Fatalf("unexpected run %#v", run)
	}

	recs := []UtteranceRecord{
		{Utterance: "u1", Frames: 100, Split: SplitTraining},
		{Utterance: "u2", Frames: 98, Cropped: true, Split: SplitTraining},
	}
	if err := store.RecordUtterances(ctx, run.ID, recs); err != nil {
		t.Fatalf("RecordUtterances failed: %v", err)
	}
	if err := store.RecordUtterance(ctx, run.ID, UtteranceRecord{Utterance: "u3", Frames: 50, Split: SplitHeldOut}); err != nil {
		t.Fatalf("RecordUtterance failed: %v", err)
	}

	totals := Totals{Utterances: 3, Frames: 198, Dims: 489, ZeroVariance: 2, Cropped: 1}
	if err := store.Finish(ctx, run.ID, totals); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	got, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.Status != StatusSucceeded || got.Totals != totals {
		t.Fatalf("unexpected run after finish: %#v", got)
	}
	if got.FinishedAt == nil || got.Duration() != time.Second {
		t.Fatalf("expected one second duration, got %v", got.Duration())
	}

	utts, err := store.Utterances(ctx, run.ID)
	if err != nil {
		t.Fatalf("Utterances failed: %v", err)
	}
	if len(utts) != 3 || utts[0].Utterance != "u1" || !utts[1].Cropped || utts[2].Split != SplitHeldOut {
		t.Fatalf("unexpected utterances %#v", utts)
	}
}

func TestFailStoresErrorKind(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run, err := store.Begin(ctx, "cmp", KindCompose)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	cause := faults.Wrap(faults.ErrFrameDrift, "reader", "read", "u7 differs by 3 frames", nil)
	if err := store.Fail(ctx, run.ID, cause); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	got, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != StatusFailed || got.ErrorKind != "frame_drift" {
		t.Fatalf("unexpected failed run %#v", got)
	}
	if !strings.Contains(got.ErrorMessage, "u7 differs") {
		t.Fatalf("error message not stored: %q", got.ErrorMessage)
	}

	if err := store.Finish(ctx, run.ID, Totals{}); err == nil {
		t.Fatal("expected finishing a failed run to error")
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		run, err := store.Begin(ctx, fmt.Sprintf("job%d", i), KindWeights)
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != ids[3] || runs[1].ID != ids[2] {
		t.Fatalf("unexpected order: %v", runs)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 runs, got %d", len(all))
	}
}

func TestGetByPrefix(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run, err := store.Begin(ctx, "cmp", KindNormalize)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	got, err := store.Get(ctx, run.ID[:8])
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.ID != run.ID {
		t.Fatalf("prefix lookup returned %#v", got)
	}

	missing, err := store.Get(ctx, "does-not-exist")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing run, got %#v, %v", missing, err)
	}

	for _, id := range []string{"abc-1", "abc-2"} {
		if _, err := store.db.Exec(
			`INSERT INTO runs (id, job, kind, status, started_at) VALUES (?, 'lab', 'compose', 'running', ?)`,
			id, formatTime(store.now()),
		); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	if _, err := store.Get(ctx, "abc"); !errors.Is(err, ErrAmbiguousID) {
		t.Fatalf("expected ErrAmbiguousID, got %v", err)
	}
	exact, err := store.Get(ctx, "abc-2")
	if err != nil || exact == nil || exact.ID != "abc-2" {
		t.Fatalf("exact lookup returned %#v, %v", exact, err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "featmill.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = ?", schemaVersion+1); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = store.Close()

	if _, err := Open(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "featmill.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	run, err := store.Begin(context.Background(), "cmp", KindPublish)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	_ = store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(context.Background(), run.ID)
	if err != nil || got == nil || got.Kind != KindPublish {
		t.Fatalf("run not persisted: %#v, %v", got, err)
	}
}
