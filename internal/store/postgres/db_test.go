package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return &DB{sqlDB}, mock
}

func TestWithStatementTimeout(t *testing.T) {
	assert.Equal(t,
		"postgres://u@h/db?options=-c%20statement_timeout%3D30000",
		withStatementTimeout("postgres://u@h/db", 30000))
	assert.Equal(t,
		"postgres://u@h/db?sslmode=disable&options=-c%20statement_timeout%3D500",
		withStatementTimeout("postgres://u@h/db?sslmode=disable", 500))
}

func TestNew_RejectsOutOfRangeStatementTimeout(t *testing.T) {
	_, err := New(Config{URL: "postgres://u@h/db", StatementTimeoutMS: -1})
	require.Error(t, err)

	_, err = New(Config{URL: "postgres://u@h/db", StatementTimeoutMS: dbStatementTimeoutMaxMS + 1})
	require.Error(t, err)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := db.inTx(context.Background(), func(_ *sql.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationSource_EmbedsSchema(t *testing.T) {
	files, err := fs.Glob(MigrationSource(""), "*.up.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_messages.up.sql", "002_life_cycle.up.sql"}, files)
}

func TestRunMigrations_SkipsAppliedVersions(t *testing.T) {
	src := fstest.MapFS{
		"001_a.up.sql":   {Data: []byte("CREATE TABLE a (id INT)")},
		"002_b.up.sql":   {Data: []byte("CREATE TABLE b (id INT)")},
		"002_b.down.sql": {Data: []byte("DROP TABLE b")},
	}

	db, mock := newMockDB(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("001_a.up.sql"))

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(migrationLockID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("002_b.up.sql").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("002_b.up.sql").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, db.RunMigrations(context.Background(), src))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_ConcurrentReplicaAlreadyApplied(t *testing.T) {
	src := fstest.MapFS{"001_a.up.sql": {Data: []byte("CREATE TABLE a (id INT)")}}

	db, mock := newMockDB(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}))

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("001_a.up.sql").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	require.NoError(t, db.RunMigrations(context.Background(), src))
	require.NoError(t, mock.ExpectationsWereMet())
}
