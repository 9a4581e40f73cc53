// Package progress reports per-utterance progress of long pipeline phases,
// either as terminal bars or as sampled log records.
package progress

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"featmill/internal/logging"
)

// Reporter starts one tracker per phase.
type Reporter interface {
	Start(phase string, total int) Tracker
	// Wait blocks until every bar is rendered for the last time.
	Wait()
}

// Tracker follows one phase. Step has the signature of the per-utterance
// callbacks in normalize and weights.
type Tracker interface {
	Step(done int, id string)
	Finish()
}

// New picks terminal bars when enabled and w is a terminal, sampled log
// records otherwise.
func New(logger *slog.Logger, w io.Writer, enabled bool) Reporter {
	if enabled && isTerminal(w) {
		return NewBars(w)
	}
	return NewLog(logger)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Bars renders one mpb bar per phase.
type Bars struct {
	p *mpb.Progress
}

// NewBars renders bars to w.
func NewBars(w io.Writer) *Bars {
	return &Bars{p: mpb.New(mpb.WithOutput(w), mpb.WithWidth(64))}
}

func (b *Bars) Start(phase string, total int) Tracker {
	bar := b.p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(phase+": ", decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)
	return &barTracker{bar: bar}
}

func (b *Bars) Wait() { b.p.Wait() }

type barTracker struct {
	bar *mpb.Bar
}

func (t *barTracker) Step(done int, _ string) {
	t.bar.EwmaSetCurrent(int64(done), 0)
}

// Finish aborts a bar that never reached its total so Wait does not block.
func (t *barTracker) Finish() {
	if !t.bar.Completed() {
		t.bar.Abort(false)
	}
}

// Log emits one record per 10% bucket of each phase.
type Log struct {
	logger *slog.Logger
}

// NewLog reports through logger.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logging.NewComponentLogger(logger, "progress")}
}

func (l *Log) Start(phase string, total int) Tracker {
	return &logTracker{logger: l.logger, phase: phase, total: total, sampler: logging.NewProgressSampler(10)}
}

func (l *Log) Wait() {}

type logTracker struct {
	logger  *slog.Logger
	phase   string
	total   int
	sampler *logging.ProgressSampler
}

func (t *logTracker) Step(done int, id string) {
	percent := logging.Percent(done, t.total)
	if !t.sampler.ShouldLog(percent, t.phase) {
		return
	}
	t.logger.Info("phase progress",
		logging.String(logging.FieldPhase, t.phase),
		logging.String(logging.FieldUtterance, id),
		logging.Float64(logging.FieldProgressPercent, percent),
		logging.Int("done", done),
		logging.Int("total", t.total),
	)
}

func (t *logTracker) Finish() {}

// Nop discards progress.
type Nop struct{}

func (Nop) Start(string, int) Tracker { return Nop{} }
func (Nop) Wait()                     {}
func (Nop) Step(int, string)          {}
func (Nop) Finish()                   {}
