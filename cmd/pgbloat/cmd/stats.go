package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/pgbloat/internal/config"
	"github.com/dbsmedya/pgbloat/internal/database"
	"github.com/dbsmedya/pgbloat/internal/logger"
	"github.com/dbsmedya/pgbloat/internal/report"
	"github.com/dbsmedya/pgbloat/internal/vacuum"
)

var statsLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the tables with the most estimated dead tuples",
	Long: `Stats reports the top user tables ranked by estimated dead tuples,
read from pg_stat_all_tables. No locks are taken and nothing is vacuumed.

The dead-tuple percentages shown are catalog estimates, not exact
pgstattuple measurements; use them to judge whether a run is worth it.

Example:
  pgbloat stats --config pgbloat.yaml --limit 25`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsLimit, "limit", 0,
		"Override number of tables to show")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply CLI overrides
	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.Threshold, overrides.MaxTables,
		config.ParseSchemaList(overrides.Schemas), overrides.DryRun)
	if statsLimit > 0 {
		cfg.Vacuum.TopStatsLimit = statsLimit
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize logger
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	// Create database manager
	dbManager := database.NewManager(cfg)

	ctx := context.Background()

	// Connect to the database
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	stats, err := vacuum.TopStats(ctx, dbManager.DB, vacuum.CandidateOptions{
		Schemas:       cfg.Vacuum.TargetSchemas,
		TopStatsLimit: cfg.Vacuum.TopStatsLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to collect table statistics: %w", err)
	}

	fmt.Print(report.RenderStats(stats, report.Options{
		Colored:   !noColor,
		Threshold: cfg.Vacuum.DeadTupleThreshold,
	}))

	return nil
}
