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
)

func TestEnrollmentRepositoryEnroll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO class_enrollment")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("enr-1"))

	enrollment, err := repo.Enroll(context.Background(), "class-1", "stu-1")
	require.NoError(t, err)
	require.Equal(t, "class-1", enrollment.ClassID)
	require.Equal(t, "stu-1", enrollment.StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollTwiceIsNoOp(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO class_enrollment")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Enroll(context.Background(), "class-1", "stu-1")
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryRosterOrder(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	rows := sqlmock.NewRows([]string{"id", "student_id_num", "last_name", "first_name", "phone", "status", "created_at", "updated_at"}).
		AddRow("stu-2", "S-1002", "Cruz", "Ben", nil, "Red", time.Now(), time.Now()).
		AddRow("stu-1", "S-1001", "Reyes", "Ana", nil, "Green", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("JOIN class_enrollment ce ON ce.student_id = s.id")).
		WithArgs("class-1").
		WillReturnRows(rows)

	students, err := repo.ListByClass(context.Background(), "class-1")
	require.NoError(t, err)
	require.Len(t, students, 2)
	require.Equal(t, "Cruz", students[0].LastName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUnenrollMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_enrollment")).
		WithArgs("class-1", "stu-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Unenroll(context.Background(), "class-1", "stu-1")
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}
