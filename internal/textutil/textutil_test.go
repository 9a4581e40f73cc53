package textutil

import "testing"

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cmp", "cmp"},
		{"Acoustic Features", "acoustic_features"},
		{"  ", "unknown"},
		{"v1.2", "v1.2"},
		{"__x__", "x"},
		{"??", "unknown"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.in); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizePrefix(t *testing.T) {
	if got := SanitizePrefix("/Voices//Run 3/"); got != "voices/run_3" {
		t.Errorf("SanitizePrefix = %q", got)
	}
	if got := SanitizePrefix(""); got != "" {
		t.Errorf("SanitizePrefix(empty) = %q", got)
	}
}

func TestLabel(t *testing.T) {
	tests := map[string]string{
		"zero_variance": "Zero Variance",
		"frames":        "Frames",
		"max_abs_mean":  "Max Abs Mean",
		"":              "",
	}
	for in, want := range tests {
		if got := Label(in); got != want {
			t.Errorf("Label(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTernary(t *testing.T) {
	if Ternary(true, "yes", "no") != "yes" || Ternary(false, 1, 2) != 2 {
		t.Fatal("Ternary returned the wrong branch")
	}
}
