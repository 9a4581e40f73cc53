package ledger

import (
	"database/sql"
	"errors"
	"time"
)

const runColumns = "id, job, kind, status, started_at, finished_at, utterances, frames, dims, zero_variance, cropped, error_kind, error_message"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id, job, kind, status string
		startedRaw            string
		finishedRaw           sql.NullString
		totals                Totals
		errorKind             sql.NullString
		errorMessage          sql.NullString
	)
	if err := scanner.Scan(
		&id, &job, &kind, &status, &startedRaw, &finishedRaw,
		&totals.Utterances, &totals.Frames, &totals.Dims, &totals.ZeroVariance, &totals.Cropped,
		&errorKind, &errorMessage,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:           id,
		Job:          job,
		Kind:         Kind(kind),
		Status:       Status(status),
		Totals:       totals,
		ErrorKind:    errorKind.String,
		ErrorMessage: errorMessage.String,
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
