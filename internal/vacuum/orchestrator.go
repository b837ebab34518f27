package vacuum

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbsmedya/pgbloat/internal/config"
	"github.com/dbsmedya/pgbloat/internal/logger"
)

// Runner drives a full remediation run: extension guard, prefilter, then a
// strictly sequential assess/remediate loop over the candidates.
//
// The run pins one *sql.Conn and issues every statement on it. SET is
// session-scoped, so the timeout statements are only binding for maintenance
// statements that execute on the same backend session; a pooled *sql.DB
// offers no such affinity. Tables are processed one at a time on that
// session, in prefilter order, with no reordering on runtime discoveries.
// Concurrency is left to the external scheduler; two overlapping runs
// against the same table would be redundant or conflicting.
type Runner struct {
	db     *sql.DB
	cfg    *config.Config
	logger *logger.Logger
}

// NewRunner creates a run orchestrator.
func NewRunner(db *sql.DB, cfg *config.Config, log *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Runner{
		db:     db,
		cfg:    cfg,
		logger: log,
	}, nil
}

// CandidateOptions returns the prefilter options derived from configuration.
func (r *Runner) CandidateOptions() CandidateOptions {
	return CandidateOptions{
		Schemas:       r.cfg.Vacuum.TargetSchemas,
		MinDeadPct:    r.cfg.Vacuum.PrefilterDeadPct,
		MaxTables:     r.cfg.Vacuum.MaxTables,
		TopStatsLimit: r.cfg.Vacuum.TopStatsLimit,
	}
}

// Run executes one complete remediation pass and returns the finalized
// summary.
//
// Only two classes of error abort the run: a missing pgstattuple extension
// (nothing can be measured exactly) and failures of the run-level catalog
// queries themselves (typically a lost session). Per-table failures are
// recorded as outcomes and the loop continues with the next candidate.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	threshold := r.cfg.Vacuum.DeadTupleThreshold
	timeouts := TimeoutsFromConfig(&r.cfg.Safety)
	summary := NewRunSummary(threshold, r.cfg.Vacuum.DryRun)

	r.logger.Infow("Starting bloat remediation run",
		"threshold_pct", threshold,
		"prefilter_pct", r.cfg.Vacuum.PrefilterDeadPct,
		"max_tables", r.cfg.Vacuum.MaxTables,
		"lock_timeout_ms", r.cfg.Safety.LockTimeoutMs,
		"statement_timeout_ms", r.cfg.Safety.StatementTimeoutMs,
		"dry_run", r.cfg.Vacuum.DryRun,
	)

	// Pin the run's backend session. Every statement from here on shares it,
	// so the timeout SETs always protect the statements that follow them.
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pin database session: %w", err)
	}
	defer conn.Close()

	if err := EnsureExtension(ctx, conn, r.cfg.Safety.AllowExtensionCreate); err != nil {
		return nil, err
	}

	r.logTopStats(ctx, conn)

	candidates, err := SelectCandidates(ctx, conn, r.CandidateOptions())
	if err != nil {
		return nil, err
	}
	summary.Candidates = len(candidates)
	r.logger.Infow("Candidate selection complete", "candidates", len(candidates))

	if len(candidates) == 0 {
		summary.Finalize()
		r.logger.Info("Nothing to do: no candidates matched the prefilter")
		return summary, nil
	}

	for i, candidate := range candidates {
		select {
		case <-ctx.Done():
			summary.Finalize()
			return summary, ctx.Err()
		default:
		}

		table := candidate.Table
		tlog := r.logger.WithTable(table.String())
		tlog.Infow("Processing candidate",
			"position", fmt.Sprintf("%d/%d", i+1, len(candidates)),
			"approx_dead_pct", candidate.ApproxDeadPct,
		)

		measurement, err := Assess(ctx, conn, table, timeouts)
		if err != nil {
			outcome := OutcomeForAssessError(table, err)
			summary.Append(outcome)
			tlog.Warnw("Measurement skipped", "decision", outcome.Decision.String(), "detail", outcome.Detail)
			continue
		}
		tlog.Infow("Exact measurement", "dead_tuple_pct", measurement.DeadTuplePct)

		outcome := MaybeRemediate(ctx, conn, measurement, threshold, timeouts, r.cfg.Vacuum.DryRun)
		summary.Append(outcome)

		switch outcome.Decision {
		case DecisionRemediated:
			tlog.Infow("VACUUM (ANALYZE) complete", "duration", outcome.Duration)
		case DecisionBelowThreshold, DecisionMeasuredOnly:
			tlog.Infow("No remediation", "decision", outcome.Decision.String())
		default:
			tlog.Warnw("Remediation skipped", "decision", outcome.Decision.String(), "detail", outcome.Detail)
		}
	}

	summary.Finalize()
	r.logger.Infow("Run complete",
		"candidates", summary.Candidates,
		"remediated", summary.Remediated(),
		"below_threshold", summary.Count(DecisionBelowThreshold),
		"measured_only", summary.Count(DecisionMeasuredOnly),
		"locked", summary.Count(DecisionLocked),
		"errors", summary.Count(DecisionError),
		"vacuum_time", summary.VacuumTime(),
		"duration", summary.Duration,
	)

	return summary, nil
}

// logTopStats logs the tables with the most estimated dead tuples before the
// run. Informational; failures here never block remediation.
func (r *Runner) logTopStats(ctx context.Context, sess Session) {
	stats, err := TopStats(ctx, sess, r.CandidateOptions())
	if err != nil {
		r.logger.Warnw("Failed to collect top table statistics", "error", err)
		return
	}

	for _, st := range stats {
		r.logger.Infow("Top table by dead tuples",
			"table", st.Table.String(),
			"live_tup", st.LiveTuples,
			"dead_tup", st.DeadTuples,
			"approx_dead_pct", st.ApproxDeadPct,
			"last_vacuum", nullTimeString(st.LastVacuum),
			"last_autovacuum", nullTimeString(st.LastAutovacuum),
		)
	}
}

func nullTimeString(t sql.NullTime) string {
	if !t.Valid {
		return "never"
	}
	return t.Time.Format("2006-01-02 15:04:05")
}
