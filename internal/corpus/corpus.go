// Package corpus models the ordered utterance id list and its training split.
package corpus

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"featmill/internal/faults"
)

// Set is an ordered list of utterance ids. The first Split ids form the
// training prefix used for statistics; the rest are held out.
type Set struct {
	ids   []string
	split int
}

// LoadIDs reads one utterance id per line, skipping blank lines.
func LoadIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrIO, "corpus", "load ids", path, err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, faults.Wrap(faults.ErrIO, "corpus", "load ids", path, err)
	}
	return ids, nil
}

// New validates the split against the id list: at least one training
// utterance, and no more than the corpus holds.
func New(ids []string, split int) (*Set, error) {
	if len(ids) == 0 {
		return nil, configErr("utterance list is empty")
	}
	if split <= 0 {
		return nil, configErr(fmt.Sprintf("split index must be greater than zero so statistics can be estimated, got %d", split))
	}
	if split > len(ids) {
		return nil, configErr(fmt.Sprintf("split index %d exceeds corpus size %d", split, len(ids)))
	}
	seen := make(map[string]int, len(ids))
	for i, id := range ids {
		if prev, ok := seen[id]; ok {
			return nil, configErr(fmt.Sprintf("utterance %q listed twice (lines %d and %d)", id, prev+1, i+1))
		}
		seen[id] = i
	}
	cp := make([]string, len(ids))
	copy(cp, ids)
	return &Set{ids: cp, split: split}, nil
}

// Load combines LoadIDs and New.
func Load(path string, split int) (*Set, error) {
	ids, err := LoadIDs(path)
	if err != nil {
		return nil, err
	}
	return New(ids, split)
}

func configErr(msg string) error {
	return faults.Wrap(faults.ErrConfiguration, "corpus", "split", msg, nil)
}

// IDs returns every utterance id in order.
func (s *Set) IDs() []string { return s.ids }

func (s *Set) Len() int { return len(s.ids) }

func (s *Set) Split() int { return s.split }

// Training returns the statistics prefix.
func (s *Set) Training() []string { return s.ids[:s.split] }

// Held returns the validation/test suffix.
func (s *Set) Held() []string { return s.ids[s.split:] }

// IsTraining reports whether position i falls in the training prefix.
func (s *Set) IsTraining(i int) bool { return i >= 0 && i < s.split }
