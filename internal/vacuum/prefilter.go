package vacuum

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbsmedya/pgbloat/internal/sqlutil"
)

// CandidateOptions controls the prefilter. The thresholds are cost-avoidance
// policy: they bound how many tables get an exact pgstattuple scan, they do
// not decide remediation.
type CandidateOptions struct {
	Schemas       []string // empty => all user schemas
	MinDeadPct    float64  // approximate dead percent floor
	MaxTables     int      // worklist truncation
	TopStatsLimit int      // row cap for TopStats
}

// approxDeadPctExpr computes the approximate dead-tuple percent from the
// statistics collector's live/dead counters.
const approxDeadPctExpr = `CASE
    WHEN (COALESCE(s.n_live_tup, 0) + COALESCE(s.n_dead_tup, 0)) = 0 THEN 0.0
    ELSE (COALESCE(s.n_dead_tup, 0) * 100.0) /
         (COALESCE(s.n_live_tup, 0) + COALESCE(s.n_dead_tup, 0))
END`

// SelectCandidates reads the approximate dead-tuple statistics from the
// catalog (no table scan) and returns the remediation worklist: ordinary
// tables in user-visible schemas with a nonzero dead-tuple estimate at or
// above the prefilter floor, ordered by estimated dead tuples descending
// (ties broken by schema then table name for determinism) and truncated to
// MaxTables.
//
// An empty result is not an error; it means a no-op run.
func SelectCandidates(ctx context.Context, db Session, opts CandidateOptions) ([]ApproxStats, error) {
	var b strings.Builder
	b.WriteString(`SELECT
    n.nspname AS schema_name,
    c.relname AS table_name,
    COALESCE(s.n_live_tup, 0) AS n_live_tup,
    COALESCE(s.n_dead_tup, 0) AS n_dead_tup,
    ` + approxDeadPctExpr + ` AS approx_dead_pct
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
LEFT JOIN pg_stat_all_tables s ON s.relid = c.oid
WHERE c.relkind = 'r'
  AND n.nspname NOT IN ('pg_catalog', 'information_schema')
  AND n.nspname NOT LIKE 'pg_toast%'
  AND COALESCE(s.n_dead_tup, 0) > 0
  AND ` + approxDeadPctExpr + ` >= $1`)

	if clause := schemaFilterClause(opts.Schemas); clause != "" {
		b.WriteString("\n  AND " + clause)
	}

	b.WriteString("\nORDER BY COALESCE(s.n_dead_tup, 0) DESC, n.nspname, c.relname")
	fmt.Fprintf(&b, "\nLIMIT %d", opts.MaxTables)

	rows, err := db.QueryContext(ctx, b.String(), opts.MinDeadPct)
	if err != nil {
		return nil, fmt.Errorf("failed to select candidate tables: %w", err)
	}
	defer rows.Close()

	var candidates []ApproxStats
	for rows.Next() {
		var st ApproxStats
		if err := rows.Scan(&st.Table.Schema, &st.Table.Name, &st.LiveTuples, &st.DeadTuples, &st.ApproxDeadPct); err != nil {
			return nil, fmt.Errorf("failed to scan candidate row: %w", err)
		}
		candidates = append(candidates, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candidate rows: %w", err)
	}

	return candidates, nil
}

// TopStats returns the tables with the most estimated dead tuples along with
// their vacuum/analyze history. Informational only; logged at run start and
// surfaced by the stats command.
func TopStats(ctx context.Context, db Session, opts CandidateOptions) ([]ApproxStats, error) {
	var b strings.Builder
	b.WriteString(`SELECT
    n.nspname AS schema_name,
    c.relname AS table_name,
    COALESCE(s.n_live_tup, 0) AS n_live_tup,
    COALESCE(s.n_dead_tup, 0) AS n_dead_tup,
    ` + approxDeadPctExpr + ` AS approx_dead_pct,
    s.last_vacuum,
    s.last_autovacuum,
    s.last_analyze,
    s.last_autoanalyze
FROM pg_stat_user_tables s
JOIN pg_class c ON c.oid = s.relid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname NOT LIKE 'pg_toast%'`)

	if clause := schemaFilterClause(opts.Schemas); clause != "" {
		b.WriteString("\n  AND " + clause)
	}

	b.WriteString("\nORDER BY COALESCE(s.n_dead_tup, 0) DESC, n.nspname, c.relname")
	fmt.Fprintf(&b, "\nLIMIT %d", opts.TopStatsLimit)

	rows, err := db.QueryContext(ctx, b.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query table statistics: %w", err)
	}
	defer rows.Close()

	var stats []ApproxStats
	for rows.Next() {
		var st ApproxStats
		if err := rows.Scan(
			&st.Table.Schema, &st.Table.Name,
			&st.LiveTuples, &st.DeadTuples, &st.ApproxDeadPct,
			&st.LastVacuum, &st.LastAutovacuum, &st.LastAnalyze, &st.LastAutoanalyze,
		); err != nil {
			return nil, fmt.Errorf("failed to scan statistics row: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read statistics rows: %w", err)
	}

	return stats, nil
}

// schemaFilterClause builds the schema intersection predicate. Schema names
// are validated as identifiers at config load; they are inlined as literals
// so the query shape stays independent of driver array support.
func schemaFilterClause(schemas []string) string {
	if len(schemas) == 0 {
		return ""
	}
	quoted := make([]string, len(schemas))
	for i, s := range schemas {
		quoted[i] = sqlutil.QuoteLiteral(s)
	}
	return "n.nspname IN (" + strings.Join(quoted, ", ") + ")"
}
