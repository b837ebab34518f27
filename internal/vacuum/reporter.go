package vacuum

import (
	"time"

	"github.com/elliotchance/orderedmap/v2"
)

// NewRunSummary creates the summary for a run starting now.
func NewRunSummary(threshold float64, dryRun bool) *RunSummary {
	return &RunSummary{
		StartedAt: time.Now(),
		Threshold: threshold,
		DryRun:    dryRun,
	}
}

// Append records one candidate's outcome. Panics if the summary was already
// finalized; outcomes are immutable once the run ends.
func (s *RunSummary) Append(o Outcome) {
	if s.finalized {
		panic("append to finalized run summary")
	}
	s.Outcomes = append(s.Outcomes, o)
}

// Finalize seals the summary and stamps the total run duration.
func (s *RunSummary) Finalize() {
	if s.finalized {
		return
	}
	s.Duration = time.Since(s.StartedAt)
	s.finalized = true
}

// Count returns how many outcomes carry the given decision.
func (s *RunSummary) Count(d Decision) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Decision == d {
			n++
		}
	}
	return n
}

// Remediated returns the number of tables actually vacuumed.
func (s *RunSummary) Remediated() int {
	return s.Count(DecisionRemediated)
}

// Skipped returns the number of tables skipped for contention or errors.
// Below-threshold and measured-only tables are not failures and are counted
// separately.
func (s *RunSummary) Skipped() int {
	return s.Count(DecisionLocked) + s.Count(DecisionError)
}

// VacuumTime returns the cumulative time spent in VACUUM statements.
func (s *RunSummary) VacuumTime() time.Duration {
	var total time.Duration
	for _, o := range s.Outcomes {
		if o.Decision == DecisionRemediated {
			total += o.Duration
		}
	}
	return total
}

// Errored returns the outcomes that failed with a backend error, in
// processing order, for the end-of-run error listing.
func (s *RunSummary) Errored() []Outcome {
	var errored []Outcome
	for _, o := range s.Outcomes {
		if o.Decision == DecisionError {
			errored = append(errored, o)
		}
	}
	return errored
}

// SchemaTally aggregates decisions for one schema.
type SchemaTally struct {
	Schema         string
	Remediated     int
	BelowThreshold int
	MeasuredOnly   int
	Locked         int
	Errors         int
}

// PerSchema tallies outcomes by schema, preserving first-seen processing
// order so the report reads in worklist order rather than alphabetically.
func (s *RunSummary) PerSchema() []SchemaTally {
	tallies := orderedmap.NewOrderedMap[string, *SchemaTally]()

	for _, o := range s.Outcomes {
		tally, ok := tallies.Get(o.Table.Schema)
		if !ok {
			tally = &SchemaTally{Schema: o.Table.Schema}
			tallies.Set(o.Table.Schema, tally)
		}
		switch o.Decision {
		case DecisionRemediated:
			tally.Remediated++
		case DecisionBelowThreshold:
			tally.BelowThreshold++
		case DecisionMeasuredOnly:
			tally.MeasuredOnly++
		case DecisionLocked:
			tally.Locked++
		case DecisionError:
			tally.Errors++
		}
	}

	result := make([]SchemaTally, 0, tallies.Len())
	for el := tallies.Front(); el != nil; el = el.Next() {
		result = append(result, *el.Value)
	}
	return result
}
