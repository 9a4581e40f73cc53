package compose

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"featmill/internal/corpus"
	"featmill/internal/faults"
	"featmill/internal/featio"
	"featmill/internal/ledger"
	"featmill/internal/logging"
	"featmill/internal/normalize"
	"featmill/internal/preflight"
	"featmill/internal/progress"
	"featmill/internal/reader"
	"featmill/internal/stats"
	"featmill/internal/window"
)

// Ledger records the run. *ledger.Store satisfies it.
type Ledger interface {
	Begin(ctx context.Context, job string, kind ledger.Kind) (*ledger.Run, error)
	RecordUtterances(ctx context.Context, runID string, recs []ledger.UtteranceRecord) error
	Finish(ctx context.Context, runID string, totals ledger.Totals) error
	Fail(ctx context.Context, runID string, cause error) error
}

// Deps carries the collaborators of a run. Every field is optional.
type Deps struct {
	Logger   *slog.Logger
	Ledger   Ledger
	Progress progress.Reporter
	// Shift is the frame shift in seconds, used for the duration summary.
	Shift float64
}

const recordBatch = 256

// Run executes job over set.
func Run(ctx context.Context, job Job, set *corpus.Set, deps Deps) (summary Summary, err error) {
	if set == nil {
		return Summary{}, faults.Wrap(faults.ErrConfiguration, "compose", "run", "utterance set is required", nil)
	}
	if err := job.Validate(); err != nil {
		return Summary{}, err
	}
	if deps.Progress == nil {
		deps.Progress = progress.Nop{}
	}
	ctx = logging.WithJob(ctx, job.Name)

	if err := preflight.Failures(preflight.ForJob(job.Name, job.Inputs, job.Output)); err != nil {
		return Summary{}, err
	}
	outDir := job.Output.Dir()
	if err := featio.EnsureDir(outDir); err != nil {
		return Summary{}, err
	}
	unlock, err := lockDir(outDir)
	if err != nil {
		return Summary{}, err
	}
	defer unlock()

	rd, err := reader.New(job.Inputs, reader.Options{MaxDrift: job.MaxDrift})
	if err != nil {
		return Summary{}, err
	}

	r := &runner{job: job, set: set, deps: deps, reader: rd, outDir: outDir}
	if deps.Ledger != nil {
		run, beginErr := deps.Ledger.Begin(ctx, job.Name, ledger.KindCompose)
		if beginErr != nil {
			return Summary{}, faults.Wrap(faults.ErrIO, "compose", "ledger", "begin run", beginErr)
		}
		r.runID = run.ID
		ctx = logging.WithRunID(ctx, run.ID)
		defer func() {
			if err != nil {
				_ = deps.Ledger.Fail(context.WithoutCancel(ctx), run.ID, err)
			}
		}()
	}
	r.logger = logging.WithContext(ctx, logging.NewComponentLogger(deps.Logger, "compose"))

	summary, err = r.run(ctx)
	if err != nil {
		logging.ErrorWithContext(r.logger, "composition failed", "compose_failed",
			logging.Error(err),
			logging.ErrorKind(faults.Kind(err)),
		)
		return summary, err
	}
	if deps.Ledger != nil {
		totals := ledger.Totals{
			Utterances:   summary.Utterances,
			Frames:       summary.TrainingFrames,
			Dims:         summary.OutputDims,
			ZeroVariance: len(summary.ZeroVariance),
			Cropped:      summary.Crop.CroppedUtterances,
		}
		if err := deps.Ledger.Finish(ctx, r.runID, totals); err != nil {
			return summary, faults.Wrap(faults.ErrIO, "compose", "ledger", "finish run", err)
		}
	}
	return summary, nil
}

type runner struct {
	job     Job
	set     *corpus.Set
	deps    Deps
	reader  *reader.Reader
	outDir  string
	runID   string
	logger  *slog.Logger
	pending []ledger.UtteranceRecord
}

func (r *runner) run(ctx context.Context) (Summary, error) {
	summary := Summary{
		Job:                r.job.Name,
		RunID:              r.runID,
		Utterances:         r.set.Len(),
		TrainingUtterances: r.set.Split(),
		HeldOutUtterances:  r.set.Len() - r.set.Split(),
		Layout:             r.job.Layout(),
		ComposedDims:       r.job.ComposedCols(),
		Strategy:           r.job.Strategy.Kind(),
	}
	r.logger.Info("composition started",
		logging.String(logging.FieldEventType, "compose_start"),
		logging.String("layout", summary.Layout),
		logging.Int("utterances", summary.Utterances),
		logging.Int("training_utterances", summary.TrainingUtterances),
		logging.String("strategy", string(summary.Strategy)),
		logging.String("output", r.job.Output.Template()),
	)

	acc := stats.NewAccumulator(r.set.Split())
	if err := r.composePass(ctx, acc); err != nil {
		return summary, err
	}
	summary.Crop = r.reader.Summary()
	summary.TrainingFrames = acc.Frames()
	summary.TrainingDuration = frameDuration(acc.Frames(), r.deps.Shift)

	if err := r.variancePass(ctx, acc); err != nil {
		return summary, err
	}
	corpusStats, err := acc.Finalize()
	if err != nil {
		return summary, err
	}
	summary.ZeroVariance = corpusStats.ZeroVarianceDims()

	params, err := r.persist(corpusStats)
	if err != nil {
		return summary, err
	}
	summary.OutputDims = params.Width()

	if err := r.normalizePass(ctx, params); err != nil {
		return summary, err
	}

	if r.job.FinalCheck {
		check, err := r.finalCheck(ctx, params)
		if err != nil {
			return summary, err
		}
		summary.Check = &check
	}

	r.logger.Info("composition finished",
		logging.String(logging.FieldEventType, "compose_complete"),
		logging.String("layout", summary.Layout),
		logging.Int("utterances", summary.Utterances),
		logging.Int("frames", summary.TrainingFrames),
		logging.Duration("duration", summary.TrainingDuration),
		logging.Int("dims", summary.OutputDims),
		logging.Int("zero_variance_dims", len(summary.ZeroVariance)),
		logging.Int("cropped_utterances", summary.Crop.CroppedUtterances),
		logging.Int("dropped_frames", summary.Crop.DroppedFrames),
	)
	return summary, nil
}

// composePass writes every composed utterance and folds the training prefix
// into the moments.
func (r *runner) composePass(ctx context.Context, acc *stats.Accumulator) error {
	tracker := r.deps.Progress.Start(r.job.Name+" compose", r.set.Len())
	defer tracker.Finish()
	logger := r.logger.With(logging.String(logging.FieldPhase, "compose"))

	for i, id := range r.set.IDs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fused, crop, err := r.reader.Read(id)
		if err != nil {
			return err
		}
		composed, err := window.Apply(fused, r.job.Kernels)
		if err != nil {
			return faults.Wrap(faults.ErrShapeMismatch, "compose", "window", id, err)
		}
		if err := featio.WriteMatrix(r.job.Output.Resolve(id), composed); err != nil {
			return err
		}

		split := ledger.SplitHeldOut
		if r.set.IsTraining(i) {
			split = ledger.SplitTraining
			if err := acc.AddMoments(composed); err != nil {
				return fmt.Errorf("utterance %s: %w", id, err)
			}
		}
		if crop.Cropped() {
			logger.Debug("streams cropped",
				logging.String(logging.FieldUtterance, id),
				logging.Int("min_frames", crop.MinFrames),
				logging.Int("max_frames", crop.MaxFrames),
			)
		}
		if err := r.record(ctx, ledger.UtteranceRecord{
			Utterance: id, Frames: composed.Rows, Cropped: crop.Cropped(), Split: split,
		}); err != nil {
			return err
		}
		tracker.Step(i+1, id)
	}
	if err := r.flush(ctx); err != nil {
		return err
	}
	return acc.FinalizeMoments()
}

// variancePass re-reads the composed training files after the moments barrier.
func (r *runner) variancePass(ctx context.Context, acc *stats.Accumulator) error {
	training := r.set.Training()
	tracker := r.deps.Progress.Start(r.job.Name+" variance", len(training))
	defer tracker.Finish()

	cols := r.job.ComposedCols()
	for i, id := range training {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := featio.ReadMatrix(r.job.Output.Resolve(id), cols)
		if err != nil {
			return err
		}
		if err := acc.AddVariance(m); err != nil {
			return fmt.Errorf("utterance %s: %w", id, err)
		}
		tracker.Step(i+1, id)
	}
	return nil
}

// persist writes the statistics, the keep-index and the fitted parameters.
func (r *runner) persist(corpusStats stats.CorpusStatistics) (normalize.Params, error) {
	if err := corpusStats.Save(r.outDir); err != nil {
		return normalize.Params{}, err
	}
	if zero := corpusStats.ZeroVarianceDims(); len(zero) > 0 {
		logging.WarnWithContext(r.logger, "zero-variance dimensions found", "zero_variance",
			logging.Int("count", len(zero)),
			logging.String("dims", fmt.Sprint(zero)),
			logging.Bool("dropped", r.job.DropZeroVariance),
			logging.String(logging.FieldErrorHint, "check the input streams for constant features"),
			logging.String(logging.FieldImpact, "constant dimensions are normalized to the degenerate value"),
		)
	}

	keep := corpusStats.KeepIndex(r.job.DropZeroVariance)
	keepPath := filepath.Join(r.outDir, stats.KeepIndexFile)
	if r.job.DropZeroVariance {
		if err := stats.SaveKeepIndex(r.outDir, keep); err != nil {
			return normalize.Params{}, err
		}
	} else if err := os.Remove(keepPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return normalize.Params{}, faults.Wrap(faults.ErrIO, "compose", "persist", "remove stale "+keepPath, err)
	}

	params, err := r.job.Strategy.Fit(corpusStats, keep)
	if err != nil {
		return normalize.Params{}, err
	}
	if err := params.Save(r.outDir); err != nil {
		return normalize.Params{}, err
	}
	return params, nil
}

func (r *runner) normalizePass(ctx context.Context, params normalize.Params) error {
	if params.Kind == normalize.KindNone && params.Width() == params.Dims {
		r.logger.Debug("normalization skipped", logging.String(logging.FieldPhase, "normalize"))
		return nil
	}
	tracker := r.deps.Progress.Start(r.job.Name+" normalize", r.set.Len())
	defer tracker.Finish()
	return normalize.Run(ctx, normalize.RunOptions{
		Input:       r.job.Output,
		IDs:         r.set.IDs(),
		Params:      params,
		Logger:      r.logger,
		OnUtterance: tracker.Step,
	})
}

func (r *runner) finalCheck(ctx context.Context, params normalize.Params) (stats.CorpusStatistics, error) {
	check, err := normalize.Verify(ctx, r.job.Output, r.set.Training(), params.Width())
	if err != nil {
		return stats.CorpusStatistics{}, err
	}
	meanDev, stdLo, stdHi := CheckRanges(check)
	r.logger.Info("final check",
		logging.String(logging.FieldEventType, "final_check"),
		logging.String(logging.FieldPhase, "verify"),
		logging.Float64("max_abs_mean", meanDev),
		logging.Float64("min_std", stdLo),
		logging.Float64("max_std", stdHi),
	)
	return check, nil
}

// CheckRanges returns the largest absolute mean and the std range of s.
func CheckRanges(s stats.CorpusStatistics) (maxAbsMean, minStd, maxStd float64) {
	for d := range s.Mean {
		m := float64(s.Mean[d])
		if m < 0 {
			m = -m
		}
		if m > maxAbsMean {
			maxAbsMean = m
		}
		sd := float64(s.Std[d])
		if d == 0 || sd < minStd {
			minStd = sd
		}
		if sd > maxStd {
			maxStd = sd
		}
	}
	return maxAbsMean, minStd, maxStd
}

func (r *runner) record(ctx context.Context, rec ledger.UtteranceRecord) error {
	if r.deps.Ledger == nil {
		return nil
	}
	r.pending = append(r.pending, rec)
	if len(r.pending) < recordBatch {
		return nil
	}
	return r.flush(ctx)
}

func (r *runner) flush(ctx context.Context) error {
	if r.deps.Ledger == nil || len(r.pending) == 0 {
		return nil
	}
	if err := r.deps.Ledger.RecordUtterances(ctx, r.runID, r.pending); err != nil {
		return faults.Wrap(faults.ErrIO, "compose", "ledger", "record utterances", err)
	}
	r.pending = r.pending[:0]
	return nil
}
