package vacuum

import (
	"context"
	"fmt"
	"time"
)

// MaybeRemediate applies the threshold decision to an exact measurement and,
// when it qualifies, issues exactly one VACUUM (ANALYZE) statement for the
// table on the same pinned session the timeouts are applied to. VACUUM
// without FULL never takes an exclusive lock, so concurrent readers and
// writers are unaffected; it reclaims dead-tuple space and refreshes planner
// statistics in a single pass.
//
// Per-table failures are converted into outcomes, never returned: a lock
// wait beyond lock_timeout defers the table to the next scheduled run, any
// other backend error is recorded with its detail and the run continues.
func MaybeRemediate(ctx context.Context, sess Session, m Measurement, threshold float64, timeouts Timeouts, dryRun bool) Outcome {
	outcome := Outcome{
		Table:        m.Table,
		DeadTuplePct: m.DeadTuplePct,
	}

	if m.DeadTuplePct < threshold {
		outcome.Decision = DecisionBelowThreshold
		outcome.Detail = fmt.Sprintf("dead_tuple_percent %.2f below threshold %.2f", m.DeadTuplePct, threshold)
		return outcome
	}

	if dryRun {
		outcome.Decision = DecisionMeasuredOnly
		outcome.Detail = fmt.Sprintf("dead_tuple_percent %.2f at or above threshold %.2f (dry run)", m.DeadTuplePct, threshold)
		return outcome
	}

	if err := timeouts.Apply(ctx, sess); err != nil {
		outcome.Decision = DecisionError
		outcome.Detail = err.Error()
		return outcome
	}

	start := time.Now()
	_, err := sess.ExecContext(ctx, "VACUUM (ANALYZE) "+m.Table.Quoted())
	outcome.Duration = time.Since(start)

	if err != nil {
		if isLockTimeout(err) {
			outcome.Decision = DecisionLocked
			outcome.Detail = fmt.Sprintf("vacuum skipped on lock contention: %v", err)
		} else {
			outcome.Decision = DecisionError
			outcome.Detail = fmt.Sprintf("vacuum failed: %v", err)
		}
		return outcome
	}

	outcome.Decision = DecisionRemediated
	outcome.Detail = fmt.Sprintf("dead_tuple_percent %.2f at or above threshold %.2f", m.DeadTuplePct, threshold)
	return outcome
}
