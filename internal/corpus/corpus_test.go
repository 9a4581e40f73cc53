package corpus_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"featmill/internal/corpus"
	"featmill/internal/faults"
)

func TestLoadIDsSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_id_list.scp")
	if err := os.WriteFile(path, []byte("a0001\n\n  a0002  \r\na0003\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ids, err := corpus.LoadIDs(path)
	if err != nil {
		t.Fatalf("LoadIDs returned error: %v", err)
	}
	want := []string{"a0001", "a0002", "a0003"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v, want %v", ids, want)
		}
	}
}

func TestLoadIDsMissingFile(t *testing.T) {
	if _, err := corpus.LoadIDs(filepath.Join(t.TempDir(), "nope")); !errors.Is(err, faults.ErrIO) {
		t.Fatalf("expected io error, got %v", err)
	}
}

func TestNewPartitionsSplit(t *testing.T) {
	set, err := corpus.New([]string{"a", "b", "c"}, 2)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if got := set.Training(); len(got) != 2 || got[1] != "b" {
		t.Fatalf("unexpected training prefix %v", got)
	}
	if got := set.Held(); len(got) != 1 || got[0] != "c" {
		t.Fatalf("unexpected held suffix %v", got)
	}
	if !set.IsTraining(1) || set.IsTraining(2) || set.IsTraining(-1) {
		t.Fatal("IsTraining disagrees with split")
	}
}

func TestNewAllowsWholeCorpusAsTraining(t *testing.T) {
	set, err := corpus.New([]string{"a", "b"}, 2)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if len(set.Held()) != 0 {
		t.Fatalf("expected empty held set, got %v", set.Held())
	}
}

func TestNewRejectsBadSplits(t *testing.T) {
	cases := []struct {
		name  string
		ids   []string
		split int
	}{
		{"zero", []string{"a"}, 0},
		{"negative", []string{"a"}, -1},
		{"beyond corpus", []string{"a", "b"}, 3},
		{"empty", nil, 1},
		{"duplicate", []string{"a", "a"}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := corpus.New(tc.ids, tc.split); !errors.Is(err, faults.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}
