// Package report renders run results as fixed-width tables for the CLI.
package report

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/pgbloat/internal/vacuum"
)

// Options controls table rendering.
type Options struct {
	// Colored enables severity coloring. Disable for non-TTY output or when
	// the result is written to a log file.
	Colored bool
	// Threshold is the configured dead-tuple percent threshold, used to
	// color the dead% column: red at or above, yellow at or above half.
	Threshold float64
}

// pad right-pads a cell to the given display width, runewidth-aware so
// multi-byte table names keep the columns aligned.
func pad(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

// padLeft left-pads a cell for numeric columns.
func padLeft(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return strings.Repeat(" ", gap) + s
}

// colorDeadPct applies severity coloring to a dead-percent cell.
func (o Options) colorDeadPct(cell string, pct float64) string {
	if !o.Colored || o.Threshold <= 0 {
		return cell
	}
	switch {
	case pct >= o.Threshold:
		return color.Red.Sprint(cell)
	case pct >= o.Threshold/2:
		return color.Yellow.Sprint(cell)
	default:
		return cell
	}
}

// nullTime formats a nullable timestamp for display.
func nullTime(t sql.NullTime) string {
	if !t.Valid {
		return "never"
	}
	return t.Time.Format("2006-01-02 15:04")
}

// RenderStats renders the top-tables statistics report.
func RenderStats(stats []vacuum.ApproxStats, opts Options) string {
	if len(stats) == 0 {
		return "(no user tables with statistics)\n"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s %s %s %s  %s %s\n",
		pad("SCHEMA", 20), pad("TABLE", 28),
		padLeft("LIVE", 10), padLeft("DEAD", 10), padLeft("DEAD%", 7),
		pad("LAST VACUUM", 17), pad("LAST AUTOVACUUM", 17)))
	b.WriteString(strings.Repeat("-", 116) + "\n")

	for _, st := range stats {
		deadCell := opts.colorDeadPct(padLeft(fmt.Sprintf("%.2f", st.ApproxDeadPct), 7), st.ApproxDeadPct)
		b.WriteString(fmt.Sprintf("%s %s %s %s %s  %s %s\n",
			pad(st.Table.Schema, 20),
			pad(st.Table.Name, 28),
			padLeft(fmt.Sprintf("%d", st.LiveTuples), 10),
			padLeft(fmt.Sprintf("%d", st.DeadTuples), 10),
			deadCell,
			pad(nullTime(st.LastVacuum), 17),
			pad(nullTime(st.LastAutovacuum), 17)))
	}

	return b.String()
}

// RenderSummary renders the end-of-run summary: per-table outcomes followed
// by the per-schema tallies and totals.
func RenderSummary(summary *vacuum.RunSummary, opts Options) string {
	var b strings.Builder

	mode := "remediation"
	if summary.DryRun {
		mode = "dry run"
	}
	b.WriteString(fmt.Sprintf("Run started %s (%s, threshold %.2f%%)\n\n",
		summary.StartedAt.Format("2006-01-02 15:04:05"), mode, summary.Threshold))

	if len(summary.Outcomes) == 0 {
		b.WriteString("No candidates matched the prefilter.\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("%s %s %s %s\n",
		pad("TABLE", 40), pad("DECISION", 16), padLeft("DEAD%", 7), pad("DETAIL", 40)))
	b.WriteString(strings.Repeat("-", 106) + "\n")

	for _, o := range summary.Outcomes {
		deadCell := opts.colorDeadPct(padLeft(fmt.Sprintf("%.2f", o.DeadTuplePct), 7), o.DeadTuplePct)
		b.WriteString(fmt.Sprintf("%s %s %s %s\n",
			pad(o.Table.String(), 40),
			pad(o.Decision.String(), 16),
			deadCell,
			pad(o.Detail, 40)))
	}

	b.WriteString("\n")
	for _, tally := range summary.PerSchema() {
		b.WriteString(fmt.Sprintf("%s: remediated=%d below_threshold=%d measured_only=%d locked=%d errors=%d\n",
			tally.Schema, tally.Remediated, tally.BelowThreshold, tally.MeasuredOnly, tally.Locked, tally.Errors))
	}

	b.WriteString(fmt.Sprintf("\nCandidates: %d  Remediated: %d  Skipped (locks/errors): %d  Vacuum time: %s  Total: %s\n",
		summary.Candidates, summary.Remediated(), summary.Skipped(),
		summary.VacuumTime().Round(10*time.Millisecond),
		summary.Duration.Round(10*time.Millisecond)))

	return b.String()
}
