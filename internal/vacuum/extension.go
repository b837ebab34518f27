package vacuum

import (
	"context"
	"errors"
	"fmt"
)

// ErrExtensionUnavailable indicates the pgstattuple extension is missing and
// could not be created. Fatal to the run: without it no exact measurement is
// possible, so the run must abort before any candidate is touched.
var ErrExtensionUnavailable = errors.New("pgstattuple extension unavailable")

const extensionExistsQuery = `SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'pgstattuple')`

// EnsureExtension checks that pgstattuple is registered in the target
// database and, if allowed, attempts a best-effort install. At most one DDL
// statement is issued per run.
func EnsureExtension(ctx context.Context, db Session, allowCreate bool) error {
	var exists bool
	if err := db.QueryRowContext(ctx, extensionExistsQuery).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check pgstattuple extension: %w", err)
	}
	if exists {
		return nil
	}

	if !allowCreate {
		return fmt.Errorf("%w: not installed and extension creation is disabled", ErrExtensionUnavailable)
	}

	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS pgstattuple"); err != nil {
		// Typically a privilege problem; the operator must install it.
		return fmt.Errorf("%w: create failed: %v", ErrExtensionUnavailable, err)
	}
	return nil
}
