package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/pkg/config"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestMigrateAppliesPendingInOrder(t *testing.T) {
	db, mock := newMockDB(t)
	files := fstest.MapFS{
		"0002_catalog.sql":   {Data: []byte("CREATE TABLE faculty (id UUID)")},
		"0001_schedules.sql": {Data: []byte("CREATE TABLE schedules (id UUID)")},
		"0003_extra.sql":     {Data: []byte("CREATE TABLE extra (id UUID)")},
		"README.md":          {Data: []byte("ignored")},
	}

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("0001_schedules"))
	for _, m := range []struct{ version, body string }{
		{"0002_catalog", "CREATE TABLE faculty (id UUID)"},
		{"0003_extra", "CREATE TABLE extra (id UUID)"},
	} {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(m.body)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations")).WithArgs(m.version).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()
	}

	ran, err := Migrate(context.Background(), db, files)
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_catalog", "0003_extra"}, ran)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateRollsBackOnFailure(t *testing.T) {
	db, mock := newMockDB(t)
	files := fstest.MapFS{"0001_schedules.sql": {Data: []byte("CREATE TABLE schedules (id UUID)")}}

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM schema_migrations")).WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE schedules")).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	ran, err := Migrate(context.Background(), db, files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001_schedules")
	assert.Empty(t, ran)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "timetable", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=timetable sslmode=disable", dsn)
}
