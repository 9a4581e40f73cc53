package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"featmill/internal/faults"
)

// ErrAmbiguousID is returned by Get when a prefix matches more than one run.
var ErrAmbiguousID = errors.New("ambiguous run id prefix")

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the ledger database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: func() time.Time { return time.Now().UTC() }}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Begin opens a running row for job and returns it.
func (s *Store) Begin(ctx context.Context, job string, kind Kind) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Job:       strings.TrimSpace(job),
		Kind:      kind,
		Status:    StatusRunning,
		StartedAt: s.now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, job, kind, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Job, string(run.Kind), string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordUtterance appends one utterance row to a run.
func (s *Store) RecordUtterance(ctx context.Context, runID string, rec UtteranceRecord) error {
	return s.RecordUtterances(ctx, runID, []UtteranceRecord{rec})
}

// RecordUtterances appends a batch of utterance rows in one transaction.
func (s *Store) RecordUtterances(ctx context.Context, runID string, recs []UtteranceRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin utterance tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM run_utterances WHERE run_id = ?`, runID).Scan(&seq); err != nil {
		return fmt.Errorf("count utterances: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_utterances (run_id, utterance, seq, frames, cropped, split) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare utterance insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx, runID, rec.Utterance, seq, rec.Frames, boolToInt(rec.Cropped), string(rec.Split)); err != nil {
			return fmt.Errorf("insert utterance %s: %w", rec.Utterance, err)
		}
		seq++
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit utterances: %w", err)
	}
	return nil
}

// Finish marks a run succeeded with its totals.
func (s *Store) Finish(ctx context.Context, runID string, totals Totals) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs
         SET status = ?, finished_at = ?, utterances = ?, frames = ?, dims = ?,
             zero_variance = ?, cropped = ?, error_kind = NULL, error_message = NULL
         WHERE id = ? AND status = ?`,
		string(StatusSucceeded), formatTime(s.now()),
		totals.Utterances, totals.Frames, totals.Dims, totals.ZeroVariance, totals.Cropped,
		runID, string(StatusRunning),
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return expectOneRow(res, runID)
}

// Fail marks a run failed, storing the error classification and message.
func (s *Store) Fail(ctx context.Context, runID string, cause error) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error_kind = ?, error_message = ?
         WHERE id = ? AND status = ?`,
		string(StatusFailed), formatTime(s.now()),
		nullableString(faults.Kind(cause)), nullableString(message),
		runID, string(StatusRunning),
	)
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	return expectOneRow(res, runID)
}

// List returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get fetches a run by full id or unique id prefix. It returns nil, nil when
// nothing matches.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR substr(id, 1, ?) = ? LIMIT 2`,
		id, len(id), id)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

// Utterances returns the utterance rows of a run in processing order.
func (s *Store) Utterances(ctx context.Context, runID string) ([]UtteranceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT utterance, frames, cropped, split FROM run_utterances WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query utterances: %w", err)
	}
	defer rows.Close()

	var recs []UtteranceRecord
	for rows.Next() {
		var (
			rec     UtteranceRecord
			cropped int
			split   string
		)
		if err := rows.Scan(&rec.Utterance, &rec.Frames, &cropped, &split); err != nil {
			return nil, fmt.Errorf("scan utterance: %w", err)
		}
		rec.Cropped = cropped != 0
		rec.Split = Split(split)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func expectOneRow(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s is not running", runID)
	}
	return nil
}
