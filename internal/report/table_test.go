package report

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/assert"

	"github.com/dbsmedya/pgbloat/internal/vacuum"
)

func TestPad(t *testing.T) {
	assert.Equal(t, "abc  ", pad("abc", 5))
	assert.Equal(t, "abcdef", pad("abcdef", 5)) // never truncates
	assert.Equal(t, "  abc", padLeft("abc", 5))
}

func TestNullTime(t *testing.T) {
	assert.Equal(t, "never", nullTime(sql.NullTime{}))

	ts := time.Date(2026, 8, 16, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-16 03:00", nullTime(sql.NullTime{Time: ts, Valid: true}))
}

func TestRenderStats_Empty(t *testing.T) {
	out := RenderStats(nil, Options{})
	assert.Contains(t, out, "no user tables")
}

func TestRenderStats(t *testing.T) {
	stats := []vacuum.ApproxStats{
		{
			Table:         vacuum.TableRef{Schema: "public", Name: "orders"},
			LiveTuples:    100000,
			DeadTuples:    40000,
			ApproxDeadPct: 28.57,
			LastVacuum:    sql.NullTime{Time: time.Date(2026, 8, 16, 3, 0, 0, 0, time.UTC), Valid: true},
		},
		{
			Table:         vacuum.TableRef{Schema: "billing", Name: "invoices"},
			LiveTuples:    5000,
			DeadTuples:    100,
			ApproxDeadPct: 1.96,
		},
	}

	out := RenderStats(stats, Options{})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	assert.Len(t, lines, 4) // header, rule, two rows
	assert.Contains(t, lines[0], "SCHEMA")
	assert.Contains(t, lines[2], "public")
	assert.Contains(t, lines[2], "orders")
	assert.Contains(t, lines[2], "28.57")
	assert.Contains(t, lines[2], "2026-08-16 03:00")
	assert.Contains(t, lines[3], "never")
}

func TestRenderStats_ColoredSeverity(t *testing.T) {
	// Color support is auto-detected and off under go test; force it so the
	// colored path is exercised.
	color.ForceOpenColor()

	stats := []vacuum.ApproxStats{
		{Table: vacuum.TableRef{Schema: "public", Name: "hot"}, DeadTuples: 1, ApproxDeadPct: 80.0},
	}

	plain := RenderStats(stats, Options{Colored: false, Threshold: 50.0})
	colored := RenderStats(stats, Options{Colored: true, Threshold: 50.0})

	assert.NotContains(t, plain, "\x1b[")
	// Above threshold gets an escape sequence when coloring is on
	assert.NotEqual(t, plain, colored)
}

func TestColorDeadPct_Bands(t *testing.T) {
	color.ForceOpenColor()

	opts := Options{Colored: true, Threshold: 50.0}

	above := opts.colorDeadPct("80.00", 80.0)
	warn := opts.colorDeadPct("30.00", 30.0)
	ok := opts.colorDeadPct("10.00", 10.0)

	assert.NotEqual(t, "80.00", above)
	assert.NotEqual(t, "30.00", warn)
	assert.Equal(t, "10.00", ok)
}

func TestRenderSummary_NoCandidates(t *testing.T) {
	summary := vacuum.NewRunSummary(2.0, false)
	summary.Finalize()

	out := RenderSummary(summary, Options{})
	assert.Contains(t, out, "No candidates matched the prefilter")
	assert.Contains(t, out, "threshold 2.00%")
}

func TestRenderSummary(t *testing.T) {
	summary := vacuum.NewRunSummary(50.0, false)
	summary.Candidates = 3
	summary.Append(vacuum.Outcome{
		Table: vacuum.TableRef{Schema: "public", Name: "small"}, Decision: vacuum.DecisionBelowThreshold, DeadTuplePct: 10,
	})
	summary.Append(vacuum.Outcome{
		Table: vacuum.TableRef{Schema: "public", Name: "large"}, Decision: vacuum.DecisionRemediated, DeadTuplePct: 95,
		Duration: 2 * time.Second,
	})
	summary.Append(vacuum.Outcome{
		Table: vacuum.TableRef{Schema: "billing", Name: "busy"}, Decision: vacuum.DecisionLocked, Detail: "lock timeout",
	})
	summary.Finalize()

	out := RenderSummary(summary, Options{})

	assert.Contains(t, out, "public.small")
	assert.Contains(t, out, "below_threshold")
	assert.Contains(t, out, "remediated")
	assert.Contains(t, out, "locked")
	assert.Contains(t, out, "public: remediated=1 below_threshold=1")
	assert.Contains(t, out, "billing: remediated=0")
	assert.Contains(t, out, "Candidates: 3")
	assert.Contains(t, out, "Remediated: 1")
	assert.Contains(t, out, "Skipped (locks/errors): 1")
}

func TestRenderSummary_DryRun(t *testing.T) {
	summary := vacuum.NewRunSummary(50.0, true)
	summary.Candidates = 1
	summary.Append(vacuum.Outcome{
		Table: vacuum.TableRef{Schema: "public", Name: "bloated"}, Decision: vacuum.DecisionMeasuredOnly, DeadTuplePct: 80,
	})
	summary.Finalize()

	out := RenderSummary(summary, Options{})
	assert.Contains(t, out, "dry run")
	assert.Contains(t, out, "measured_only")
}
