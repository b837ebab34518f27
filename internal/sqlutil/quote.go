// Package sqlutil provides SQL utility functions for pgbloat.
package sqlutil

import (
	"regexp"
	"strings"
)

// QuoteIdentifier quotes a PostgreSQL identifier (schema name, table name)
// with double quotes. It escapes any embedded double quotes by doubling them.
// Example: "my_table" -> "\"my_table\""
// Example: "my\"table" -> "\"my\"\"table\""
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteQualified quotes a schema-qualified table name.
// Example: ("public", "orders") -> "\"public\".\"orders\""
func QuoteQualified(schema, name string) string {
	return QuoteIdentifier(schema) + "." + QuoteIdentifier(name)
}

// QuoteLiteral quotes a string as a PostgreSQL text literal, escaping
// embedded single quotes by doubling them. Used for the rare spots (schema
// name lists in catalog queries) where a value cannot be bound as a
// parameter without complicating array handling.
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// validIdentifierRegex matches conservative PostgreSQL identifier characters.
// PostgreSQL unquoted identifiers also allow $, but we restrict to letters,
// digits and underscore, not starting with a digit.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z_][a-zA-Z0-9_]*$")

// IsValidIdentifier checks if a name is a safe PostgreSQL identifier.
// This is a defense-in-depth measure against SQL injection, since ANALYZE
// and VACUUM targets cannot be bound as query parameters.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes a PostgreSQL identifier after validating it.
// Returns an error if the identifier contains invalid characters.
// Use this when identifiers might come from untrusted sources.
func QuoteIdentifierSafe(name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteIdentifier(name), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must start with a letter or underscore and contain only alphanumeric characters and underscores)"
}
