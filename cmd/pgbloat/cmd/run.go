package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/pgbloat/internal/config"
	"github.com/dbsmedya/pgbloat/internal/database"
	"github.com/dbsmedya/pgbloat/internal/lock"
	"github.com/dbsmedya/pgbloat/internal/logger"
	"github.com/dbsmedya/pgbloat/internal/report"
	"github.com/dbsmedya/pgbloat/internal/vacuum"
)

var runForce bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Measure table bloat and vacuum tables over the threshold",
	Long: `Run executes a full bloat remediation pass against the configured
database.

The run follows these steps:
  1. Verify the pgstattuple extension is available
  2. Prefilter candidate tables on catalog statistics (cheap)
  3. Measure each candidate exactly with pgstattuple (ANALYZE first)
  4. VACUUM (ANALYZE) tables at or above the dead-tuple threshold
  5. Report per-table outcomes and per-schema tallies

Tables that cannot be locked within the lock timeout are skipped and
reported, never waited on. Use --dry-run to measure without vacuuming.

Example:
  pgbloat run --config pgbloat.yaml --threshold 5 --schemas public,billing`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runForce, "force", false,
		"Force execution even if the run lock cannot be acquired (use with caution)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
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

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize logger
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Infow("Starting bloat remediation run",
		"database", cfg.Database.Database,
		"config", configFile,
		"dry_run", cfg.Vacuum.DryRun,
	)

	// Create database manager
	dbManager := database.NewManager(cfg)

	// Setup context cancelled on shutdown signals; the run loop finishes the
	// current table and stops before starting the next one
	ctx := database.SetupSignalHandlerWithCallback(func(os.Signal) {
		log.Warn("Received shutdown signal - finishing current table...")
	})

	// Connect to the database
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	// Acquire advisory lock to prevent concurrent runs against this database
	if !runForce {
		runLock := lock.NewRunLock(dbManager.DB, cfg.Database.Database)
		if err := runLock.AcquireOrFail(ctx); err != nil {
			if errors.Is(err, lock.ErrLockHeld) {
				return fmt.Errorf("another pgbloat run is already active on database '%s' (use --force to override)", cfg.Database.Database)
			}
			return fmt.Errorf("failed to acquire run lock: %w", err)
		}
		defer runLock.Release(context.WithoutCancel(ctx))
		log.Infow("Acquired advisory run lock", "database", cfg.Database.Database)
	} else {
		log.Warnw("Skipping advisory lock acquisition (--force flag used)", "database", cfg.Database.Database)
	}

	// Create runner
	runner, err := vacuum.NewRunner(dbManager.DB, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	// Execute the run
	summary, err := runner.Run(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) || summary == nil {
			return fmt.Errorf("run failed: %w", err)
		}
		// Cancelled mid-run: the partial summary is still worth showing
		log.Warn("Run cancelled by user")
	}

	// Display results
	fmt.Print("\n" + report.RenderSummary(summary, report.Options{
		Colored:   !noColor,
		Threshold: cfg.Vacuum.DeadTupleThreshold,
	}))

	if errored := summary.Errored(); len(errored) > 0 {
		return fmt.Errorf("run completed with %d table error(s)", len(errored))
	}

	return nil
}
