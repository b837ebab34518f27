// Package lock provides PostgreSQL advisory locking for pgbloat.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
)

// ErrLockHeld is returned when the run lock is already held by another
// pgbloat instance against the same database.
var ErrLockHeld = errors.New("run lock is held by another instance")

// AdvisoryLock represents a PostgreSQL session-level advisory lock used to
// prevent two pgbloat runs from stacking on the same database.
//
// Advisory locks are scoped to the backend session, so the lock is pinned to
// a dedicated *sql.Conn for its whole lifetime; acquiring and releasing on
// arbitrary pooled connections would silently break the exclusion.
type AdvisoryLock struct {
	db       *sql.DB
	conn     *sql.Conn
	lockName string
	key      int64
	held     bool
}

// NewAdvisoryLock creates a new advisory lock with the given name.
// The lock is not acquired until TryAcquire is called.
func NewAdvisoryLock(db *sql.DB, lockName string) *AdvisoryLock {
	return &AdvisoryLock{
		db:       db,
		lockName: lockName,
		key:      LockKey(lockName),
	}
}

// LockKey hashes a lock name to the signed 64-bit key space that
// pg_try_advisory_lock expects. FNV-1a keeps the mapping stable across
// instances and releases.
func LockKey(lockName string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(lockName))
	return int64(h.Sum64())
}

// TryAcquire attempts to acquire the lock immediately without waiting.
// Returns true if acquired, false if the lock is already held by another
// session. Returns an error only if there is a database failure.
func (a *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	if a.held {
		return true, nil // Already holding the lock
	}

	conn, err := a.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to pin connection for advisory lock: %w", err)
	}

	var acquired bool
	err = conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", a.key).Scan(&acquired)
	if err != nil {
		conn.Close()
		return false, fmt.Errorf("failed to execute pg_try_advisory_lock: %w", err)
	}

	if !acquired {
		conn.Close()
		return false, nil
	}

	a.conn = conn
	a.held = true
	return true, nil
}

// AcquireOrFail attempts to acquire the lock immediately.
// Returns nil if acquired, ErrLockHeld if another instance holds it, or the
// underlying error for database failures.
func (a *AdvisoryLock) AcquireOrFail(ctx context.Context) error {
	acquired, err := a.TryAcquire(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q", ErrLockHeld, a.lockName)
	}
	return nil
}

// Release releases the advisory lock and returns the pinned connection to
// the pool. Returns true if the lock was released, false if it was not held.
//
// pg_advisory_unlock returns false when the session does not hold the lock;
// locks are also released automatically when the session ends.
func (a *AdvisoryLock) Release(ctx context.Context) (bool, error) {
	if !a.held || a.conn == nil {
		return false, nil // Not holding the lock
	}

	var released bool
	err := a.conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", a.key).Scan(&released)

	closeErr := a.conn.Close()
	a.conn = nil
	a.held = false

	if err != nil {
		return false, fmt.Errorf("failed to execute pg_advisory_unlock: %w", err)
	}
	if closeErr != nil {
		return released, fmt.Errorf("failed to release pinned connection: %w", closeErr)
	}
	if !released {
		return false, fmt.Errorf("pg_advisory_unlock returned false for lock %q (lock was not held by this session)", a.lockName)
	}
	return true, nil
}

// IsHeld returns true if this lock is currently held by this instance.
func (a *AdvisoryLock) IsHeld() bool {
	return a.held
}

// LockName returns the name of the advisory lock.
func (a *AdvisoryLock) LockName() string {
	return a.lockName
}

// RunLockName creates a consistent lock name for a pgbloat run against a
// database. Lock names follow the format: "pgbloat:run:{database}".
func RunLockName(database string) string {
	return fmt.Sprintf("pgbloat:run:%s", database)
}

// NewRunLock creates an advisory lock for a pgbloat run against the named
// database. This is the recommended way to create the run lock so that all
// instances agree on the key.
func NewRunLock(db *sql.DB, database string) *AdvisoryLock {
	return NewAdvisoryLock(db, RunLockName(database))
}

// WithRunLock executes a function while holding the run lock, ensuring
// release even if the function returns an error.
//
// Returns ErrLockHeld if another instance is already running, otherwise the
// function's error.
func WithRunLock(ctx context.Context, db *sql.DB, database string, fn func() error) error {
	l := NewRunLock(db, database)
	if err := l.AcquireOrFail(ctx); err != nil {
		return err
	}
	defer func() {
		// Release in a fresh context: the run's context may already be
		// cancelled when we get here.
		_, _ = l.Release(context.WithoutCancel(ctx))
	}()

	return fn()
}
