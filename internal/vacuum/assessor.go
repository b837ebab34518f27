package vacuum

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AssessError wraps a per-table measurement failure. Never fatal to the run:
// the caller records the outcome and proceeds to the next candidate.
// Use errors.Is(err, ErrLocked) to distinguish lock-timeout skips.
type AssessError struct {
	Table TableRef
	Step  string // "set timeouts", "analyze" or "pgstattuple"
	Err   error
}

func (e *AssessError) Error() string {
	return fmt.Sprintf("assess %s: %s failed: %v", e.Table, e.Step, e.Err)
}

func (e *AssessError) Unwrap() error {
	return e.Err
}

// Assess produces an exact dead-tuple measurement for one table.
//
// The session timeouts are applied first, on the same pinned session the
// table statements run on, so no statement can wait on a lock or run beyond
// the configured bounds. ANALYZE refreshes the statistics the pgstattuple
// scan reads, then pgstattuple performs the bounded-cost exact scan.
func Assess(ctx context.Context, sess Session, table TableRef, timeouts Timeouts) (Measurement, error) {
	if err := timeouts.Apply(ctx, sess); err != nil {
		return Measurement{}, &AssessError{Table: table, Step: "set timeouts", Err: err}
	}

	// ANALYZE takes only a ShareUpdateExclusive lock; it never blocks
	// readers or writers, but can itself be blocked, hence lock_timeout.
	if _, err := sess.ExecContext(ctx, "ANALYZE "+table.Quoted()); err != nil {
		return Measurement{}, &AssessError{Table: table, Step: "analyze", Err: classifyTableError(err)}
	}

	var deadPct float64
	query := "SELECT (pgstattuple($1::regclass)).dead_tuple_percent"
	if err := sess.QueryRowContext(ctx, query, table.Quoted()).Scan(&deadPct); err != nil {
		return Measurement{}, &AssessError{Table: table, Step: "pgstattuple", Err: classifyTableError(err)}
	}

	return Measurement{
		Table:        table,
		DeadTuplePct: deadPct,
		MeasuredAt:   time.Now(),
	}, nil
}

// OutcomeForAssessError converts a measurement failure into the outcome
// recorded in the run summary.
func OutcomeForAssessError(table TableRef, err error) Outcome {
	decision := DecisionError
	if errors.Is(err, ErrLocked) {
		decision = DecisionLocked
	}
	return Outcome{
		Table:    table,
		Decision: decision,
		Detail:   err.Error(),
	}
}
