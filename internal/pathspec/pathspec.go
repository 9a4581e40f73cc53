// Package pathspec parses "path-template[:(rows,cols)]" stream descriptors.
package pathspec

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"featmill/internal/faults"
)

// Wildcard is the placeholder substituted with an utterance id.
const Wildcard = "*"

// Descriptor locates one per-utterance binary stream and declares its column
// count. Rows are always inferred from the file size.
type Descriptor struct {
	template string
	cols     int
	hasShape bool
}

// Parse validates a descriptor string. The shape suffix defaults to (-1,1).
func Parse(raw string) (Descriptor, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Descriptor{}, malformed(raw, "empty descriptor")
	}

	template := trimmed
	cols := 1
	hasShape := false
	if idx := strings.LastIndex(trimmed, ":"); idx >= 0 && strings.ContainsAny(trimmed[idx+1:], "()") {
		parsed, err := parseShape(trimmed[idx+1:])
		if err != nil {
			return Descriptor{}, malformed(raw, err.Error())
		}
		template = trimmed[:idx]
		cols = parsed
		hasShape = true
	}
	if strings.ContainsAny(template, "()") {
		return Descriptor{}, malformed(raw, "unbalanced parentheses")
	}
	if n := strings.Count(template, Wildcard); n != 1 {
		return Descriptor{}, malformed(raw, fmt.Sprintf("expected exactly one %q wildcard, found %d", Wildcard, n))
	}
	return Descriptor{template: template, cols: cols, hasShape: hasShape}, nil
}

// MustParse is Parse for literals in tests and defaults.
func MustParse(raw string) Descriptor {
	d, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseAll parses descriptors in order and reports the first failing index.
func ParseAll(raws []string) ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(raws))
	for i, raw := range raws {
		d, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// TotalCols sums the column widths of descriptors.
func TotalCols(descriptors []Descriptor) int {
	total := 0
	for _, d := range descriptors {
		total += d.cols
	}
	return total
}

func parseShape(shape string) (int, error) {
	shape = strings.TrimSpace(shape)
	if !strings.HasPrefix(shape, "(") || !strings.HasSuffix(shape, ")") ||
		strings.Count(shape, "(") != 1 || strings.Count(shape, ")") != 1 {
		return 0, fmt.Errorf("unbalanced parentheses in shape %q", shape)
	}
	parts := strings.Split(shape[1:len(shape)-1], ",")
	if len(parts) != 2 {
		return 0, fmt.Errorf("shape %q must have two dimensions", shape)
	}
	rows, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, fmt.Errorf("shape rows %q: %w", parts[0], err)
	}
	if rows != -1 {
		return 0, fmt.Errorf("shape rows must be -1 (inferred), got %d", rows)
	}
	cols, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("shape cols %q: %w", parts[1], err)
	}
	if cols <= 0 {
		return 0, fmt.Errorf("shape cols must be positive, got %d", cols)
	}
	return cols, nil
}

func malformed(raw, reason string) error {
	return faults.Wrap(faults.ErrMalformedDescriptor, "pathspec", "parse", fmt.Sprintf("%q: %s", raw, reason), nil)
}

// Template returns the path template without any shape suffix.
func (d Descriptor) Template() string { return d.template }

// Cols returns the declared column count.
func (d Descriptor) Cols() int { return d.cols }

// HasShape reports whether the shape was declared explicitly.
func (d Descriptor) HasShape() bool { return d.hasShape }

// IsZero reports whether d was never parsed.
func (d Descriptor) IsZero() bool { return d.template == "" }

// Resolve substitutes the wildcard with an utterance id.
func (d Descriptor) Resolve(id string) string {
	return strings.Replace(d.template, Wildcard, id, 1)
}

// Dir is the directory holding the per-utterance files and the fixed-name
// corpus artifacts.
func (d Descriptor) Dir() string {
	return filepath.Dir(d.template)
}

// WithCols returns a copy declaring a different column count.
func (d Descriptor) WithCols(cols int) Descriptor {
	d.cols = cols
	d.hasShape = true
	return d
}

func (d Descriptor) String() string {
	if !d.hasShape {
		return d.template
	}
	return fmt.Sprintf("%s:(-1,%d)", d.template, d.cols)
}
