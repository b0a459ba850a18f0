package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/rollcall-dev/rollcall-api/internal/models"
)

func TestScheduleRepositoryListOrdersByWeekday(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	rows := sqlmock.NewRows([]string{"id", "class_id", "day_of_week", "start_time", "end_time", "created_at"}).
		AddRow("sched-2", "class-1", "Friday", "13:00:00", "15:00:00", time.Now()).
		AddRow("sched-1", "class-1", "Monday", "08:00:00", "10:00:00", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM class_schedules WHERE class_id = $1")).
		WithArgs("class-1").
		WillReturnRows(rows)

	entries, err := repo.ListByClass(context.Background(), "class-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, models.DayMonday, entries[0].DayOfWeek)
	require.Equal(t, models.DayFriday, entries[1].DayOfWeek)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindByClassAndDayMiss(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("day_of_week = $2")).
		WithArgs("class-1", models.DayTuesday).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByClassAndDay(context.Background(), "class-1", models.DayTuesday)
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReplaceClearsAndInserts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_schedules")).
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO class_schedules")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO class_schedules")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entries := []models.ClassSchedule{
		{DayOfWeek: models.DayMonday, StartTime: "08:00:00", EndTime: "10:00:00"},
		{DayOfWeek: models.DayWednesday, StartTime: "13:00:00", EndTime: "15:00:00"},
	}
	require.NoError(t, repo.Replace(context.Background(), "class-1", entries))
	require.NotEmpty(t, entries[0].ID)
	require.Equal(t, "class-1", entries[0].ClassID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReplaceEmptyClears(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_schedules")).
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Replace(context.Background(), "class-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
