package vacuum

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func measurement(schema, name string, deadPct float64) Measurement {
	return Measurement{
		Table:        TableRef{Schema: schema, Name: name},
		DeadTuplePct: deadPct,
		MeasuredAt:   time.Now(),
	}
}

func TestMaybeRemediate_BelowThreshold(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	// No expectations registered: zero statements must be issued
	outcome := MaybeRemediate(context.Background(), db, measurement("public", "orders", 1.5), 2.0, testTimeouts, false)

	assert.Equal(t, DecisionBelowThreshold, outcome.Decision)
	assert.Equal(t, 1.5, outcome.DeadTuplePct)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaybeRemediate_AtThreshold(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	expectTimeouts(mock)
	mock.ExpectExec(`VACUUM \(ANALYZE\) "public"\."orders"`).WillReturnResult(sqlmock.NewResult(0, 0))

	// Exactly at threshold qualifies
	outcome := MaybeRemediate(context.Background(), db, measurement("public", "orders", 2.0), 2.0, testTimeouts, false)

	assert.Equal(t, DecisionRemediated, outcome.Decision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaybeRemediate_Remediated(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	expectTimeouts(mock)
	mock.ExpectExec(`VACUUM \(ANALYZE\) "public"\."orders"`).WillReturnResult(sqlmock.NewResult(0, 0))

	outcome := MaybeRemediate(context.Background(), db, measurement("public", "orders", 60.0), 50.0, testTimeouts, false)

	assert.Equal(t, DecisionRemediated, outcome.Decision)
	assert.Equal(t, 60.0, outcome.DeadTuplePct)
	assert.GreaterOrEqual(t, outcome.Duration, time.Duration(0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaybeRemediate_DryRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	// Above threshold but dry-run: zero statements
	outcome := MaybeRemediate(context.Background(), db, measurement("public", "orders", 60.0), 50.0, testTimeouts, true)

	assert.Equal(t, DecisionMeasuredOnly, outcome.Decision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaybeRemediate_LockTimeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	expectTimeouts(mock)
	mock.ExpectExec(`VACUUM \(ANALYZE\) "public"\."orders"`).
		WillReturnError(&pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"})

	outcome := MaybeRemediate(context.Background(), db, measurement("public", "orders", 60.0), 50.0, testTimeouts, false)

	// Contention is expected under production load; the table is deferred
	assert.Equal(t, DecisionLocked, outcome.Decision)
	assert.Contains(t, outcome.Detail, "lock contention")
}

func TestMaybeRemediate_BackendError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	expectTimeouts(mock)
	mock.ExpectExec(`VACUUM \(ANALYZE\) "public"\."orders"`).
		WillReturnError(&pgconn.PgError{Code: "42501", Message: "must be owner of table orders"})

	outcome := MaybeRemediate(context.Background(), db, measurement("public", "orders", 60.0), 50.0, testTimeouts, false)

	assert.Equal(t, DecisionError, outcome.Decision)
	assert.Contains(t, outcome.Detail, "must be owner")
}

func TestMaybeRemediate_TimeoutApplyFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("SET lock_timeout").
		WillReturnError(&pgconn.PgError{Code: "57P01", Message: "terminating connection"})

	outcome := MaybeRemediate(context.Background(), db, measurement("public", "orders", 60.0), 50.0, testTimeouts, false)

	assert.Equal(t, DecisionError, outcome.Decision)
}

func TestMaybeRemediate_Idempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	expectTimeouts(mock)
	mock.ExpectExec(`VACUUM \(ANALYZE\) "public"\."orders"`).WillReturnResult(sqlmock.NewResult(0, 0))

	first := MaybeRemediate(context.Background(), db, measurement("public", "orders", 60.0), 50.0, testTimeouts, false)
	assert.Equal(t, DecisionRemediated, first.Decision)

	// After remediation the next measurement is below threshold: no statement
	second := MaybeRemediate(context.Background(), db, measurement("public", "orders", 0.5), 50.0, testTimeouts, false)
	assert.Equal(t, DecisionBelowThreshold, second.Decision)
	assert.NoError(t, mock.ExpectationsWereMet())
}
