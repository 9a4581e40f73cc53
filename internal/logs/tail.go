package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"featmill/internal/logging"
)

// ErrNoLogs is returned by Latest when dir holds no run log.
var ErrNoLogs = errors.New("no run logs found")

// Latest returns the newest run log in dir. Run log names embed a sortable
// UTC timestamp.
func Latest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, logging.LogFilePattern))
	if err != nil {
		return "", fmt.Errorf("list run logs: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoLogs, dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// TailOptions controls Tail.
type TailOptions struct {
	// Lines is the number of matching records printed from the end of the
	// file; zero starts at the end.
	Lines  int
	Filter Filter
	// Follow keeps polling for appended records until ctx is done.
	Follow bool
	Poll   time.Duration
}

// Tail emits the last matching records of path and, in follow mode, every
// matching record appended afterwards.
func Tail(ctx context.Context, path string, opts TailOptions, emit func(Entry)) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("log path %q is a directory", path)
	}

	last, offset, err := lastMatching(path, opts.Lines, opts.Filter)
	if err != nil {
		return err
	}
	for _, e := range last {
		emit(e)
	}
	if !opts.Follow {
		return nil
	}

	poll := opts.Poll
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		entries, next, err := readFrom(path, offset)
		if err != nil {
			return err
		}
		offset = next
		for _, e := range entries {
			if opts.Filter.Match(e) {
				emit(e)
			}
		}
	}
}

// lastMatching keeps a ring of the last limit matching records and returns
// them with the end-of-file offset.
func lastMatching(path string, limit int, filter Filter) ([]Entry, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]Entry, limit)
	count, idx := 0, 0
	offset, err := scanLines(file, func(line string) {
		e := ParseEntry(line)
		if !filter.Match(e) {
			return
		}
		ring[idx] = e
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]Entry, count)
	if count == limit {
		for i := 0; i < count; i++ {
			out[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(out, ring[:count])
	}
	return out, offset, nil
}

// readFrom decodes the complete lines appended after offset. A truncated
// file is read from the start again.
func readFrom(path string, offset int64) ([]Entry, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}
	var entries []Entry
	read, err := scanLines(file, func(line string) {
		entries = append(entries, ParseEntry(line))
	})
	if err != nil {
		return nil, offset, err
	}
	return entries, offset + read, nil
}

// scanLines calls fn for every newline-terminated line of r and returns the
// number of bytes consumed. A trailing partial line is left for the next read.
func scanLines(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return consumed, nil
		}
		if err != nil {
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		fn(line[:len(line)-1])
	}
}
