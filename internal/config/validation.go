package config

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/pgbloat/internal/sqlutil"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if err := c.validateDatabase(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateVacuum(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateSafety(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateLogging(); err != nil {
		errors = append(errors, err...)
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateDatabase() ValidationErrors {
	var errors ValidationErrors
	db := &c.Database

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "database.host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "database.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   "database.user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "database.database",
			Message: "database name is required",
		})
	}

	validSSL := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true, "": true,
	}
	if !validSSL[db.SSLMode] {
		errors = append(errors, ValidationError{
			Field:   "database.sslmode",
			Message: "sslmode must be 'disable', 'allow', 'prefer', 'require', 'verify-ca', or 'verify-full'",
		})
	}

	if db.ConnectTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "database.connect_timeout",
			Message: "connect_timeout cannot be negative",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "database.max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "database.max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateVacuum() ValidationErrors {
	var errors ValidationErrors
	v := &c.Vacuum

	if v.DeadTupleThreshold < 0 || v.DeadTupleThreshold > 100 {
		errors = append(errors, ValidationError{
			Field:   "vacuum.dead_tuple_percent_threshold",
			Message: "dead_tuple_percent_threshold must be between 0 and 100",
		})
	}

	if v.PrefilterDeadPct < 0 || v.PrefilterDeadPct > 100 {
		errors = append(errors, ValidationError{
			Field:   "vacuum.prefilter_dead_percent",
			Message: "prefilter_dead_percent must be between 0 and 100",
		})
	}

	if v.MaxTables <= 0 {
		errors = append(errors, ValidationError{
			Field:   "vacuum.max_tables",
			Message: "max_tables must be positive",
		})
	}

	if v.TopStatsLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "vacuum.top_stats_limit",
			Message: "top_stats_limit must be positive",
		})
	}

	for i, schema := range v.TargetSchemas {
		if !sqlutil.IsValidIdentifier(schema) {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("vacuum.target_schemas[%d]", i),
				Message: fmt.Sprintf("%q is not a valid schema name", schema),
			})
		}
	}

	return errors
}

func (c *Config) validateSafety() ValidationErrors {
	var errors ValidationErrors
	s := &c.Safety

	if s.LockTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "safety.lock_timeout_ms",
			Message: "lock_timeout_ms must be positive (unbounded lock waits are not allowed)",
		})
	}

	if s.StatementTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "safety.statement_timeout_ms",
			Message: "statement_timeout_ms must be positive (unbounded statements are not allowed)",
		})
	}

	if s.IdleTxnTimeoutMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "safety.idle_txn_timeout_ms",
			Message: "idle_txn_timeout_ms cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
