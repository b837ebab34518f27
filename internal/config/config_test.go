package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "127.0.0.1", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "postgres", cfg.Database.Database)
	assert.Equal(t, "prefer", cfg.Database.SSLMode)
	assert.Equal(t, "pgbloat", cfg.Database.ApplicationName)
	assert.Equal(t, 10, cfg.Database.ConnectTimeout)

	assert.Equal(t, 2.0, cfg.Vacuum.DeadTupleThreshold)
	assert.Equal(t, 1.0, cfg.Vacuum.PrefilterDeadPct)
	assert.Equal(t, 200, cfg.Vacuum.MaxTables)
	assert.Equal(t, 10, cfg.Vacuum.TopStatsLimit)
	assert.Empty(t, cfg.Vacuum.TargetSchemas)
	assert.False(t, cfg.Vacuum.DryRun)

	assert.Equal(t, 2000, cfg.Safety.LockTimeoutMs)
	assert.Equal(t, 600000, cfg.Safety.StatementTimeoutMs)
	assert.Equal(t, 60000, cfg.Safety.IdleTxnTimeoutMs)
	assert.True(t, cfg.Safety.AllowExtensionCreate)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
}

func TestDefaultConfig_IsValid(t *testing.T) {
	// The shipped defaults must always pass validation
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()

	cfg.ApplyOverrides("debug", "text", 5.5, 50, []string{"public", "audit"}, true)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 5.5, cfg.Vacuum.DeadTupleThreshold)
	assert.Equal(t, 50, cfg.Vacuum.MaxTables)
	assert.Equal(t, []string{"public", "audit"}, cfg.Vacuum.TargetSchemas)
	assert.True(t, cfg.Vacuum.DryRun)
}

func TestApplyOverrides_ZeroValuesIgnored(t *testing.T) {
	cfg := DefaultConfig()

	cfg.ApplyOverrides("", "", 0, 0, nil, false)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 2.0, cfg.Vacuum.DeadTupleThreshold)
	assert.Equal(t, 200, cfg.Vacuum.MaxTables)
	assert.Empty(t, cfg.Vacuum.TargetSchemas)
	assert.False(t, cfg.Vacuum.DryRun)
}

func TestApplyOverrides_DryRunSticky(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Vacuum.DryRun = true

	// A false flag must not re-enable remediation
	cfg.ApplyOverrides("", "", 0, 0, nil, false)

	assert.True(t, cfg.Vacuum.DryRun)
}
