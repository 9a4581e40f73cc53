package preflight

import (
	"fmt"
	"strings"

	"featmill/internal/config"
	"featmill/internal/faults"
	"featmill/internal/pathspec"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// ForJob checks the input stream directories and the output directory of one
// compose job.
func ForJob(job string, inputs []pathspec.Descriptor, output pathspec.Descriptor) []Result {
	results := make([]Result, 0, len(inputs)+1)
	seen := make(map[string]struct{}, len(inputs))
	for i, in := range inputs {
		dir := in.Dir()
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		results = append(results, CheckReadable(fmt.Sprintf("%s input %d", job, i), dir))
	}
	results = append(results, CheckWritableTarget(job+" output", output.Dir()))
	return results
}

// RunAll executes every applicable check for the given config. Sections that
// are not configured are skipped.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckWritableTarget("State directory", cfg.Paths.StateDir),
		CheckWritableTarget("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Corpus.FileIDs != "" {
		results = append(results, CheckReadable("File id list", cfg.Corpus.FileIDs))
	}

	for _, job := range cfg.Compose {
		inputs, err := pathspec.ParseAll(job.Inputs)
		if err != nil {
			results = append(results, Result{Name: job.Name + " inputs", Detail: err.Error()})
			continue
		}
		output, err := pathspec.Parse(job.Output)
		if err != nil {
			results = append(results, Result{Name: job.Name + " output", Detail: err.Error()})
			continue
		}
		results = append(results, ForJob(job.Name, inputs, output)...)
	}

	w := cfg.Weights
	switch w.Method {
	case "energy":
		results = append(results, descriptorCheck("Weights input", w.Input, CheckReadable))
	case "alignment":
		results = append(results, descriptorCheck("Weights labels", w.Labels, CheckReadable))
	}
	if w.Method != "" {
		results = append(results, descriptorCheck("Weights output", w.Output, CheckWritableTarget))
	}
	return results
}

func descriptorCheck(name, raw string, check func(string, string) Result) Result {
	desc, err := pathspec.Parse(raw)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return check(name, desc.Dir())
}

// Failures returns an error naming every failed check, or nil when all passed.
func Failures(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r.Name+": "+r.Detail)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return faults.Wrap(faults.ErrIO, "preflight", "check", strings.Join(failed, "; "), nil)
}
