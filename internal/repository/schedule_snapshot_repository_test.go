package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func newSnapshotRepoMock(t *testing.T) (*ScheduleSnapshotRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewScheduleSnapshotRepository(sqlxDB), mock, func() {
		sqlxDB.Close()
	}
}

func TestScheduleSnapshotRepositoryCreateDefaultsJSON(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO schedules").
		WithArgs(sqlmock.AnyArg(), "workspace", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	snapshot := &models.ScheduleSnapshot{Name: "workspace", Payload: types.JSONText(`{"sections":["A"]}`)}
	require.NoError(t, repo.Create(context.Background(), snapshot))
	assert.NotEmpty(t, snapshot.ID)
	assert.False(t, snapshot.CreatedAt.IsZero())
	assert.Equal(t, types.JSONText("{}"), snapshot.Meta)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleSnapshotRepositoryLatest(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "name", "payload", "result", "meta", "created_at"}).
		AddRow("snap-1", "workspace", []byte(`{"sections":["A"]}`), []byte(`{}`), []byte(`{}`), time.Now())
	mock.ExpectQuery(`SELECT id, name, payload, result, meta, created_at FROM schedules ORDER BY created_at DESC LIMIT 1`).
		WillReturnRows(rows)

	snapshot, err := repo.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "snap-1", snapshot.ID)
	assert.JSONEq(t, `{"sections":["A"]}`, snapshot.Payload.String())
}

func TestScheduleSnapshotRepositoryLatestEmpty(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("FROM schedules ORDER BY").WillReturnError(sql.ErrNoRows)

	_, err := repo.Latest(context.Background())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestScheduleSnapshotRepositoryList(t *testing.T) {
	repo, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT id, name, COALESCE\(jsonb_array_length\(payload->'sessions'\), 0\) AS sessions, created_at FROM schedules WHERE name = \$1 ORDER BY created_at DESC LIMIT 10 OFFSET 10`).
		WithArgs("auto-schedule").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "sessions", "created_at"}).
			AddRow("snap-2", "auto-schedule", 12, time.Now()))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM schedules WHERE name = \$1`).
		WithArgs("auto-schedule").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	items, total, err := repo.List(context.Background(), models.SnapshotFilter{Name: "auto-schedule", Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, items, 1)
	assert.Equal(t, 12, items[0].Sessions)
	require.NoError(t, mock.ExpectationsWereMet())
}
