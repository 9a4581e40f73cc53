package pathspec_test

import (
	"errors"
	"path/filepath"
	"testing"

	"featmill/internal/faults"
	"featmill/internal/pathspec"
)

func TestParseDefaultsShape(t *testing.T) {
	d, err := pathspec.Parse("wav_lf0/*.lf0")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if d.Cols() != 1 || d.HasShape() {
		t.Fatalf("expected default single column, got cols=%d shape=%v", d.Cols(), d.HasShape())
	}
	if got := d.Resolve("arctic_a0001"); got != "wav_lf0/arctic_a0001.lf0" {
		t.Fatalf("unexpected resolved path %q", got)
	}
	if d.String() != "wav_lf0/*.lf0" {
		t.Fatalf("unexpected string %q", d.String())
	}
}

func TestParseWithShape(t *testing.T) {
	d, err := pathspec.Parse("spec/*.fwlspec:(-1,129)")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if d.Cols() != 129 {
		t.Fatalf("expected 129 cols, got %d", d.Cols())
	}
	if d.Template() != "spec/*.fwlspec" {
		t.Fatalf("shape suffix leaked into template: %q", d.Template())
	}
	if got := d.Resolve("x"); got != "spec/x.fwlspec" {
		t.Fatalf("unexpected resolved path %q", got)
	}
	if d.Dir() != filepath.Clean("spec") {
		t.Fatalf("unexpected dir %q", d.Dir())
	}
	if d.String() != "spec/*.fwlspec:(-1,129)" {
		t.Fatalf("unexpected round trip %q", d.String())
	}
}

func TestParseToleratesSpaces(t *testing.T) {
	d, err := pathspec.Parse(" out/*.cmp:( -1 , 163 ) ")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if d.Cols() != 163 {
		t.Fatalf("expected 163 cols, got %d", d.Cols())
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"spec/*.fwlspec:(-1,129",
		"spec/*.fwlspec:-1,129)",
		"spec/*.fwlspec:(-1,0)",
		"spec/*.fwlspec:(-1,-3)",
		"spec/*.fwlspec:(10,3)",
		"spec/*.fwlspec:(-1)",
		"spec/*.fwlspec:(-1,abc)",
		"spec/file.fwlspec",
		"spec/*/*.fwlspec",
		"spec(/*.fwlspec",
	}
	for _, raw := range cases {
		if _, err := pathspec.Parse(raw); !errors.Is(err, faults.ErrMalformedDescriptor) {
			t.Fatalf("Parse(%q) = %v, want malformed descriptor", raw, err)
		}
	}
}

func TestParseAllReportsIndex(t *testing.T) {
	_, err := pathspec.ParseAll([]string{"a/*.f0", "b/*.sp:(-1,x)"})
	if !errors.Is(err, faults.ErrMalformedDescriptor) {
		t.Fatalf("expected malformed descriptor, got %v", err)
	}
	if err.Error()[:12] != "descriptor 1" {
		t.Fatalf("expected index in message, got %q", err.Error())
	}
}

func TestTotalCols(t *testing.T) {
	ds, err := pathspec.ParseAll([]string{"a/*.f0", "b/*.sp:(-1,129)", "c/*.nm:(-1,33)"})
	if err != nil {
		t.Fatalf("ParseAll returned error: %v", err)
	}
	if got := pathspec.TotalCols(ds); got != 163 {
		t.Fatalf("TotalCols = %d, want 163", got)
	}
}

func TestResolveIsIndependentPerDescriptor(t *testing.T) {
	in := pathspec.MustParse("in/*.cmp:(-1,4)")
	out := pathspec.MustParse("out/*.cmp:(-1,4)")
	if in.Resolve("u1") == out.Resolve("u1") {
		t.Fatal("expected distinct read and write paths")
	}
	if out.Resolve("u1") != "out/u1.cmp" {
		t.Fatalf("shape suffix must not decorate output file names, got %q", out.Resolve("u1"))
	}
}
