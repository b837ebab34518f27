package vacuum

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dbsmedya/pgbloat/internal/config"
)

// PostgreSQL error codes used to classify per-table failures.
const (
	// sqlstateLockNotAvailable is raised when a lock wait exceeds lock_timeout.
	sqlstateLockNotAvailable = "55P03"
	// sqlstateQueryCanceled is raised when statement_timeout cancels a statement.
	sqlstateQueryCanceled = "57014"
)

// ErrLocked indicates a lock wait exceeded lock_timeout. Expected under
// production load and never fatal to the run: the table is deferred to the
// next scheduled run.
var ErrLocked = errors.New("lock wait exceeded lock_timeout")

// Session is the statement surface shared by *sql.DB and *sql.Conn. SET is
// session-scoped, so the timeout statements and the maintenance statements
// they protect must execute on one backend session: the run pins a *sql.Conn
// and passes it here. *sql.DB also satisfies the interface for callers that
// only read catalogs and need no session guarantee.
type Session interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Timeouts is the explicit per-table timeout scope. It is re-applied on the
// pinned session before each table's statements so no table depends on state
// left behind by the previous one.
type Timeouts struct {
	Lock      time.Duration
	Statement time.Duration
	IdleTxn   time.Duration
}

// TimeoutsFromConfig builds the timeout scope from safety configuration.
func TimeoutsFromConfig(cfg *config.SafetyConfig) Timeouts {
	return Timeouts{
		Lock:      time.Duration(cfg.LockTimeoutMs) * time.Millisecond,
		Statement: time.Duration(cfg.StatementTimeoutMs) * time.Millisecond,
		IdleTxn:   time.Duration(cfg.IdleTxnTimeoutMs) * time.Millisecond,
	}
}

// Apply sets the session-level timeouts on sess. SET does not accept bound
// parameters; the values are integers formatted into the statement, which is
// safe by construction.
func (t Timeouts) Apply(ctx context.Context, sess Session) error {
	stmts := []string{
		fmt.Sprintf("SET lock_timeout = %d", t.Lock.Milliseconds()),
		fmt.Sprintf("SET statement_timeout = %d", t.Statement.Milliseconds()),
	}
	if t.IdleTxn > 0 {
		stmts = append(stmts, fmt.Sprintf("SET idle_in_transaction_session_timeout = %d", t.IdleTxn.Milliseconds()))
	}

	for _, stmt := range stmts {
		if _, err := sess.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply session timeout: %w", err)
		}
	}
	return nil
}

// isLockTimeout reports whether err is a lock_timeout expiry (SQLSTATE 55P03).
func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlstateLockNotAvailable
	}
	return false
}

// isStatementTimeout reports whether err is a statement_timeout cancellation
// (SQLSTATE 57014).
func isStatementTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlstateQueryCanceled
	}
	return false
}

// classifyTableError converts a backend error from a per-table statement into
// the run's error taxonomy: lock timeouts map to ErrLocked (with the backend
// message preserved), everything else passes through unchanged.
func classifyTableError(err error) error {
	if err == nil {
		return nil
	}
	if isLockTimeout(err) {
		return fmt.Errorf("%w: %v", ErrLocked, err)
	}
	return err
}
