package weights

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"featmill/internal/faults"
	"featmill/internal/pathspec"
)

// Defaults for HTS-style full-context labels.
const (
	DefaultLabelPattern = `([^\^]+)\^([^-]+)-([^\+]+)\+([^=]+)=([^@]+)@(.+)`
	DefaultPhoneGroup   = 3
	DefaultSilence      = "sil"
	DefaultShift        = 0.005
)

// TicksPerSecond is the resolution of alignment timestamps (100 ns).
const TicksPerSecond = 10_000_000

var segmentLine = regexp.MustCompile(`([0-9]+)\s+([0-9]+)\s+(.+)`)

// Alignment zeroes the frames covered by silence segments.
type Alignment struct {
	Labels     pathspec.Descriptor
	Pattern    *regexp.Regexp
	PhoneGroup int
	Silence    string
	shiftTicks int64
}

// NewAlignment compiles pattern and converts shift seconds into ticks.
func NewAlignment(labels pathspec.Descriptor, pattern string, phoneGroup int, silence string, shift float64) (*Alignment, error) {
	if pattern == "" {
		pattern = DefaultLabelPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "weights", "alignment", "compile label pattern", err)
	}
	if phoneGroup < 1 || phoneGroup > re.NumSubexp() {
		return nil, faults.Wrap(faults.ErrConfiguration, "weights", "alignment",
			fmt.Sprintf("phone group %d outside the %d groups of the label pattern", phoneGroup, re.NumSubexp()), nil)
	}
	ticks := int64(math.Round(shift * TicksPerSecond))
	if ticks <= 0 {
		return nil, faults.Wrap(faults.ErrConfiguration, "weights", "alignment",
			fmt.Sprintf("frame shift %gs is not positive", shift), nil)
	}
	if silence == "" {
		silence = DefaultSilence
	}
	return &Alignment{
		Labels:     labels,
		Pattern:    re,
		PhoneGroup: phoneGroup,
		Silence:    silence,
		shiftTicks: ticks,
	}, nil
}

func (a *Alignment) Name() string { return "alignment" }

// Segment is one parsed alignment line.
type Segment struct {
	Start int64
	End   int64
	Phone string
}

// Weights reads the utterance alignment and zeroes silence frames.
func (a *Alignment) Weights(id string) ([]float32, error) {
	path := a.Labels.Resolve(id)
	segments, err := a.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return a.FromSegments(segments), nil
}

// FromSegments lays segments onto a frame grid of ceil(last_end/shift)
// frames.
func (a *Alignment) FromSegments(segments []Segment) []float32 {
	if len(segments) == 0 {
		return nil
	}
	n := ceilDiv(segments[len(segments)-1].End, a.shiftTicks)
	out := make([]float32, n)
	for i := range out {
		out[i] = 1
	}
	for _, s := range segments {
		if s.Phone != a.Silence {
			continue
		}
		from := s.Start / a.shiftTicks
		to := min(ceilDiv(s.End, a.shiftTicks), n)
		for f := from; f < to; f++ {
			out[f] = 0
		}
	}
	return out
}

// ParseFile reads "start end label" lines. Blank lines are skipped.
func (a *Alignment) ParseFile(path string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrIO, "weights", "open labels", path, err)
	}
	defer f.Close()

	var segments []Segment
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		seg, err := a.parseLine(line)
		if err != nil {
			return nil, faults.Wrap(faults.ErrMalformedLabel, "weights", "parse labels",
				fmt.Sprintf("%s:%d", path, lineNo), err)
		}
		segments = append(segments, seg)
	}
	if err := scanner.Err(); err != nil {
		return nil, faults.Wrap(faults.ErrIO, "weights", "read labels", path, err)
	}
	if len(segments) == 0 {
		return nil, faults.Wrap(faults.ErrMalformedLabel, "weights", "parse labels", path+": no segments", nil)
	}
	return segments, nil
}

func (a *Alignment) parseLine(line string) (Segment, error) {
	parts := segmentLine.FindStringSubmatch(line)
	if parts == nil {
		return Segment{}, fmt.Errorf("expected \"start end label\", got %q", line)
	}
	start, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Segment{}, err
	}
	end, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Segment{}, err
	}
	if end < start {
		return Segment{}, fmt.Errorf("segment ends at %d before it starts at %d", end, start)
	}
	groups := a.Pattern.FindStringSubmatch(parts[3])
	if groups == nil {
		return Segment{}, fmt.Errorf("label %q does not match the label pattern", parts[3])
	}
	return Segment{Start: start, End: end, Phone: groups[a.PhoneGroup]}, nil
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
