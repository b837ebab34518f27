// Package config provides configuration structures and loading for pgbloat.
package config

// Config represents the complete application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Vacuum   VacuumConfig   `yaml:"vacuum" mapstructure:"vacuum"`
	Safety   SafetyConfig   `yaml:"safety" mapstructure:"safety"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// DatabaseConfig represents a PostgreSQL database connection configuration.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	SSLMode            string `yaml:"sslmode" mapstructure:"sslmode"` // disable, prefer, require, verify-full
	ApplicationName    string `yaml:"application_name" mapstructure:"application_name"`
	ConnectTimeout     int    `yaml:"connect_timeout" mapstructure:"connect_timeout"` // seconds
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// VacuumConfig represents candidate selection and remediation policy.
//
// The prefilter values are heuristic tuning knobs, not a completeness
// guarantee: they bound the cost of a run by limiting how many tables get an
// exact pgstattuple scan. The authoritative remediation decision is always
// made on the exact measurement against DeadTupleThreshold.
type VacuumConfig struct {
	TargetSchemas      []string `yaml:"target_schemas" mapstructure:"target_schemas"`             // empty => all user schemas
	DeadTupleThreshold float64  `yaml:"dead_tuple_percent_threshold" mapstructure:"dead_tuple_percent_threshold"`
	PrefilterDeadPct   float64  `yaml:"prefilter_dead_percent" mapstructure:"prefilter_dead_percent"`
	MaxTables          int      `yaml:"max_tables" mapstructure:"max_tables"`
	TopStatsLimit      int      `yaml:"top_stats_limit" mapstructure:"top_stats_limit"`
	DryRun             bool     `yaml:"dry_run" mapstructure:"dry_run"`
}

// SafetyConfig represents session-level safety timeouts.
//
// LockTimeoutMs bounds how long any statement waits on a lock held by another
// session; StatementTimeoutMs bounds total statement runtime (VACUUM on a
// large table can legitimately run for minutes, hence the high default).
type SafetyConfig struct {
	LockTimeoutMs        int  `yaml:"lock_timeout_ms" mapstructure:"lock_timeout_ms"`
	StatementTimeoutMs   int  `yaml:"statement_timeout_ms" mapstructure:"statement_timeout_ms"`
	IdleTxnTimeoutMs     int  `yaml:"idle_txn_timeout_ms" mapstructure:"idle_txn_timeout_ms"`
	AllowExtensionCreate bool `yaml:"allow_extension_create" mapstructure:"allow_extension_create"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:               "127.0.0.1",
			Port:               5432,
			User:               "postgres",
			Database:           "postgres",
			SSLMode:            "prefer",
			ApplicationName:    "pgbloat",
			ConnectTimeout:     10,
			MaxConnections:     2,
			MaxIdleConnections: 1,
		},
		Vacuum: VacuumConfig{
			DeadTupleThreshold: 2.0,
			PrefilterDeadPct:   1.0,
			MaxTables:          200,
			TopStatsLimit:      10,
		},
		Safety: SafetyConfig{
			LockTimeoutMs:        2000,
			StatementTimeoutMs:   600000,
			IdleTxnTimeoutMs:     60000,
			AllowExtensionCreate: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied; DryRun is sticky because a
// flag can only enable it, never silently re-enable remediation.
func (c *Config) ApplyOverrides(logLevel, logFormat string, threshold float64, maxTables int, schemas []string, dryRun bool) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if threshold > 0 {
		c.Vacuum.DeadTupleThreshold = threshold
	}
	if maxTables > 0 {
		c.Vacuum.MaxTables = maxTables
	}
	if len(schemas) > 0 {
		c.Vacuum.TargetSchemas = schemas
	}
	if dryRun {
		c.Vacuum.DryRun = true
	}
}
