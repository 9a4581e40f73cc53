package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"featmill/internal/compose"
	"featmill/internal/config"
	"featmill/internal/normalize"
	"featmill/internal/pathspec"
	"featmill/internal/stats"
	"featmill/internal/window"
)

// buildJob parses the descriptors, windows and strategy of one configured
// compose entry.
func buildJob(spec config.Compose) (compose.Job, error) {
	inputs, err := pathspec.ParseAll(spec.Inputs)
	if err != nil {
		return compose.Job{}, fmt.Errorf("%s inputs: %w", spec.Name, err)
	}
	output, err := pathspec.Parse(spec.Output)
	if err != nil {
		return compose.Job{}, fmt.Errorf("%s output: %w", spec.Name, err)
	}
	kernels, err := window.ParseKernels(spec.Windows)
	if err != nil {
		return compose.Job{}, fmt.Errorf("%s windows: %w", spec.Name, err)
	}
	strategy, err := buildStrategy(spec, inputs)
	if err != nil {
		return compose.Job{}, fmt.Errorf("%s normalization: %w", spec.Name, err)
	}
	return compose.Job{
		Name:             spec.Name,
		Inputs:           inputs,
		Output:           output,
		Kernels:          kernels,
		Strategy:         strategy,
		DropZeroVariance: spec.DropZeroVariance,
		FinalCheck:       spec.FinalCheck,
		MaxDrift:         spec.Drift(),
	}, nil
}

func buildStrategy(spec config.Compose, inputs []pathspec.Descriptor) (normalize.Strategy, error) {
	kind, err := normalize.ParseKind(spec.Normalization)
	if err != nil {
		return nil, err
	}
	opts := normalize.Options{Streams: inputs, Protected: spec.ProtectedStream}
	if len(spec.TargetRange) == 2 {
		opts.Lo, opts.Hi = float32(spec.TargetRange[0]), float32(spec.TargetRange[1])
	}
	return normalize.New(kind, opts)
}

// selectJobs returns the named jobs in argument order, or every configured
// job when names is empty.
func selectJobs(cfg *config.Config, names []string) ([]config.Compose, error) {
	if len(names) == 0 {
		if len(cfg.Compose) == 0 {
			return nil, fmt.Errorf("no [[compose]] jobs configured")
		}
		return cfg.Compose, nil
	}
	out := make([]config.Compose, 0, len(names))
	for _, name := range names {
		job, err := cfg.Job(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, nil
}

// loadJob resolves a single named job.
func loadJob(cfg *config.Config, name string) (compose.Job, error) {
	spec, err := cfg.Job(strings.TrimSpace(name))
	if err != nil {
		return compose.Job{}, err
	}
	return buildJob(*spec)
}

// outputWidth is the column count of the files a finished job wrote: the
// kept dimensions when a keep-index exists, the composed width otherwise.
func outputWidth(job compose.Job) (int, error) {
	keep, err := stats.LoadKeepIndex(job.Output.Dir())
	if err != nil {
		return 0, err
	}
	if keep != nil {
		return len(keep), nil
	}
	return job.ComposedCols(), nil
}

// streamName is the short label of an input stream, taken from its file
// extension ("lf0" for "wav/*.lf0").
func streamName(d pathspec.Descriptor) string {
	ext := strings.TrimPrefix(filepath.Ext(d.Template()), ".")
	if ext == "" {
		return filepath.Base(filepath.Dir(d.Template()))
	}
	return ext
}

// dimLabel names composed dimension d as stream[column] plus its window
// block: block 0 is static, block k the k-th window.
func dimLabel(job compose.Job, d int) (string, string) {
	static := job.StaticCols()
	if static == 0 {
		return "", ""
	}
	block, offset := d/static, d%static
	for _, in := range job.Inputs {
		if offset < in.Cols() {
			name := fmt.Sprintf("%s[%d]", streamName(in), offset)
			if block == 0 {
				return name, "static"
			}
			return name, fmt.Sprintf("window %d", block)
		}
		offset -= in.Cols()
	}
	return "", ""
}
