// Package vacuum implements the candidate-selection and safe-remediation
// decision engine for pgbloat.
//
// A run narrows the table set with a cheap catalog prefilter, measures the
// surviving candidates exactly with pgstattuple, and remediates tables at or
// above the configured dead-tuple threshold with VACUUM (ANALYZE), never an
// exclusive rewrite. Every statement against a user table runs under
// session-level lock and statement timeouts so the tool can be pointed at
// production without risking unbounded lock waits.
package vacuum

import (
	"database/sql"
	"time"

	"github.com/dbsmedya/pgbloat/internal/sqlutil"
)

// TableRef uniquely identifies a table.
type TableRef struct {
	Schema string
	Name   string
}

// String returns the unquoted schema-qualified name for logs and reports.
func (t TableRef) String() string {
	return t.Schema + "." + t.Name
}

// Quoted returns the quoted schema-qualified name for use in statements.
func (t TableRef) Quoted() string {
	return sqlutil.QuoteQualified(t.Schema, t.Name)
}

// ApproxStats holds the approximate per-table statistics the catalog
// maintains for free. Cheap to read, may lag reality; used only to rank and
// truncate the worklist, never to decide remediation.
type ApproxStats struct {
	Table           TableRef
	LiveTuples      int64
	DeadTuples      int64
	ApproxDeadPct   float64
	LastVacuum      sql.NullTime
	LastAutovacuum  sql.NullTime
	LastAnalyze     sql.NullTime
	LastAutoanalyze sql.NullTime
}

// Measurement is an exact dead-tuple measurement from pgstattuple.
// Authoritative for the remediation decision.
type Measurement struct {
	Table        TableRef
	DeadTuplePct float64
	MeasuredAt   time.Time
}

// Decision classifies the outcome of processing one candidate table.
type Decision int

const (
	// DecisionBelowThreshold: measured below threshold, no statement issued.
	DecisionBelowThreshold Decision = iota
	// DecisionRemediated: VACUUM (ANALYZE) completed.
	DecisionRemediated
	// DecisionMeasuredOnly: at or above threshold but dry-run mode is on.
	DecisionMeasuredOnly
	// DecisionLocked: a lock wait exceeded lock_timeout; deferred to the
	// next scheduled run.
	DecisionLocked
	// DecisionError: any other backend error; recorded, run continues.
	DecisionError
)

// String returns the decision name used in logs and reports.
func (d Decision) String() string {
	switch d {
	case DecisionBelowThreshold:
		return "below_threshold"
	case DecisionRemediated:
		return "remediated"
	case DecisionMeasuredOnly:
		return "measured_only"
	case DecisionLocked:
		return "locked"
	case DecisionError:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome records what happened to one candidate. Immutable once appended
// to the run summary.
type Outcome struct {
	Table        TableRef
	Decision     Decision
	Detail       string
	DeadTuplePct float64 // 0 when measurement itself failed
	Duration     time.Duration
}

// RunSummary aggregates the outcomes of a single run. Created at run start,
// appended to while processing, finalized read-only at run end.
type RunSummary struct {
	StartedAt  time.Time
	Threshold  float64
	DryRun     bool
	Candidates int
	Outcomes   []Outcome
	Duration   time.Duration

	finalized bool
}
