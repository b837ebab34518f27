package vacuum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary() *RunSummary {
	s := NewRunSummary(50.0, false)
	s.Candidates = 5
	s.Append(Outcome{Table: TableRef{Schema: "public", Name: "a"}, Decision: DecisionBelowThreshold, DeadTuplePct: 10})
	s.Append(Outcome{Table: TableRef{Schema: "public", Name: "b"}, Decision: DecisionRemediated, DeadTuplePct: 60, Duration: 2 * time.Second})
	s.Append(Outcome{Table: TableRef{Schema: "billing", Name: "c"}, Decision: DecisionRemediated, DeadTuplePct: 95, Duration: 3 * time.Second})
	s.Append(Outcome{Table: TableRef{Schema: "billing", Name: "d"}, Decision: DecisionLocked, Detail: "lock timeout"})
	s.Append(Outcome{Table: TableRef{Schema: "audit", Name: "e"}, Decision: DecisionError, Detail: "relation does not exist"})
	s.Finalize()
	return s
}

func TestRunSummary_Counts(t *testing.T) {
	s := sampleSummary()

	assert.Equal(t, 2, s.Remediated())
	assert.Equal(t, 1, s.Count(DecisionBelowThreshold))
	assert.Equal(t, 1, s.Count(DecisionLocked))
	assert.Equal(t, 1, s.Count(DecisionError))
	assert.Equal(t, 0, s.Count(DecisionMeasuredOnly))
	assert.Equal(t, 2, s.Skipped())
}

func TestRunSummary_VacuumTime(t *testing.T) {
	s := sampleSummary()
	assert.Equal(t, 5*time.Second, s.VacuumTime())
}

func TestRunSummary_Errored(t *testing.T) {
	s := sampleSummary()

	errored := s.Errored()
	require.Len(t, errored, 1)
	assert.Equal(t, "audit.e", errored[0].Table.String())
	assert.Equal(t, "relation does not exist", errored[0].Detail)
}

func TestRunSummary_PerSchema(t *testing.T) {
	s := sampleSummary()

	tallies := s.PerSchema()
	require.Len(t, tallies, 3)

	// First-seen processing order, not alphabetical
	assert.Equal(t, "public", tallies[0].Schema)
	assert.Equal(t, 1, tallies[0].Remediated)
	assert.Equal(t, 1, tallies[0].BelowThreshold)

	assert.Equal(t, "billing", tallies[1].Schema)
	assert.Equal(t, 1, tallies[1].Remediated)
	assert.Equal(t, 1, tallies[1].Locked)

	assert.Equal(t, "audit", tallies[2].Schema)
	assert.Equal(t, 1, tallies[2].Errors)
}

func TestRunSummary_FinalizeSealsSummary(t *testing.T) {
	s := NewRunSummary(2.0, false)
	s.Append(Outcome{Table: TableRef{Schema: "public", Name: "a"}, Decision: DecisionRemediated})
	s.Finalize()

	assert.GreaterOrEqual(t, s.Duration, time.Duration(0))

	// Finalize is idempotent
	d := s.Duration
	s.Finalize()
	assert.Equal(t, d, s.Duration)

	assert.Panics(t, func() {
		s.Append(Outcome{Table: TableRef{Schema: "public", Name: "b"}})
	})
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "below_threshold", DecisionBelowThreshold.String())
	assert.Equal(t, "remediated", DecisionRemediated.String())
	assert.Equal(t, "measured_only", DecisionMeasuredOnly.String())
	assert.Equal(t, "locked", DecisionLocked.String())
	assert.Equal(t, "error", DecisionError.String())
	assert.Equal(t, "unknown", Decision(42).String())
}

func TestTableRef(t *testing.T) {
	table := TableRef{Schema: "public", Name: "orders"}
	assert.Equal(t, "public.orders", table.String())
	assert.Equal(t, `"public"."orders"`, table.Quoted())
}
