package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile   string
	logLevel  string
	logFormat string
	threshold float64
	maxTables int
	schemas   string
	dryRun    bool
	noColor   bool
)

var rootCmd = &cobra.Command{
	Use:   "pgbloat",
	Short: "PostgreSQL Table Bloat Remediation",
	Long: `A production-grade CLI tool for measuring PostgreSQL table bloat
and remediating it with targeted, contention-safe VACUUM runs.

Features:
  - Cheap catalog prefilter (pg_stat_all_tables) to bound run cost
  - Exact dead-tuple measurement via the pgstattuple extension
  - Threshold-gated VACUUM (ANALYZE), never VACUUM FULL
  - Lock and statement timeouts on every session: contended tables
    are skipped, not waited on
  - Advisory run lock so only one instance works a database at a time`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "pgbloat.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Policy overrides
	rootCmd.PersistentFlags().Float64Var(&threshold, "threshold", 0,
		"Override dead-tuple percent threshold for remediation")
	rootCmd.PersistentFlags().IntVar(&maxTables, "max-tables", 0,
		"Override maximum number of tables measured per run")
	rootCmd.PersistentFlags().StringVar(&schemas, "schemas", "",
		"Override target schemas (comma-separated, empty = all user schemas)")

	// Safety overrides
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false,
		"Measure and report only, never issue VACUUM")

	// Output
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored report output")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel  string
	LogFormat string
	Threshold float64
	MaxTables int
	Schemas   string
	DryRun    bool
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:  logLevel,
		LogFormat: logFormat,
		Threshold: threshold,
		MaxTables: maxTables,
		Schemas:   schemas,
		DryRun:    dryRun,
	}
}
