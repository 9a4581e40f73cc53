package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJob is the standardized structured logging key for compose job names.
	FieldJob = "job"
	// FieldPhase is the standardized structured logging key for pipeline phases.
	FieldPhase = "phase"
	// FieldUtterance is the standardized structured logging key for utterance ids.
	FieldUtterance = "utterance"
	// FieldRunID is the standardized structured logging key for ledger run identifiers.
	FieldRunID = "run_id"
	// FieldEventType classifies a record for filtering ("compose_complete", ...).
	FieldEventType = "event_type"
	// FieldErrorKind carries the stable error classification of a failure.
	FieldErrorKind = "error_kind"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldProgressPercent is the completion percentage of a long phase.
	FieldProgressPercent = "progress_percent"
	// FieldProgressMessage is a short human readable progress note.
	FieldProgressMessage = "progress_message"
)

type contextKey int

const (
	jobKey contextKey = iota
	phaseKey
	runIDKey
)

// WithJob tags ctx with a compose job name.
func WithJob(ctx context.Context, job string) context.Context {
	return context.WithValue(ctx, jobKey, strings.TrimSpace(job))
}

// WithPhase tags ctx with the current pipeline phase.
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, phaseKey, strings.TrimSpace(phase))
}

// WithRunID tags ctx with the ledger run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, strings.TrimSpace(runID))
}

func stringFromContext(ctx context.Context, key contextKey) (string, bool) {
	value, ok := ctx.Value(key).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if job, ok := stringFromContext(ctx, jobKey); ok {
		fields = append(fields, slog.String(FieldJob, job))
	}
	if phase, ok := stringFromContext(ctx, phaseKey); ok {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	if runID, ok := stringFromContext(ctx, runIDKey); ok {
		fields = append(fields, slog.String(FieldRunID, runID))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}

// FormatSubject builds the job/phase/utterance subject string used in console output.
func FormatSubject(job, phase, utterance string) string {
	job = strings.TrimSpace(job)
	phase = strings.TrimSpace(phase)
	utterance = strings.TrimSpace(utterance)
	parts := make([]string, 0, 2)
	if job != "" {
		parts = append(parts, "Job "+job)
	}
	switch {
	case phase != "" && utterance != "":
		parts = append(parts, phase+" ("+utterance+")")
	case utterance != "":
		parts = append(parts, utterance)
	case phase != "":
		parts = append(parts, phase)
	}
	return strings.Join(parts, " · ")
}
