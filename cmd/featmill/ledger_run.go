package main

import (
	"context"
	"fmt"

	"featmill/internal/ledger"
)

// recordRun wraps fn in a ledger run of kind: the run is finished with the
// totals fn returns or failed with its error.
func recordRun(ctx context.Context, store *ledger.Store, job string, kind ledger.Kind, fn func(runID string) (ledger.Totals, error)) (string, error) {
	run, err := store.Begin(ctx, job, kind)
	if err != nil {
		return "", fmt.Errorf("ledger: begin %s run: %w", kind, err)
	}
	totals, err := fn(run.ID)
	if err != nil {
		_ = store.Fail(context.WithoutCancel(ctx), run.ID, err)
		return run.ID, err
	}
	if err := store.Finish(ctx, run.ID, totals); err != nil {
		return run.ID, fmt.Errorf("ledger: finish %s run: %w", kind, err)
	}
	return run.ID, nil
}
