package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollcall-dev/rollcall-api/internal/models"
	appErrors "github.com/rollcall-dev/rollcall-api/pkg/errors"
)

type studentReaderStub struct {
	student *models.Student
	err     error
}

func (s studentReaderStub) FindByIDNum(ctx context.Context, idNum string) (*models.Student, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.student, nil
}

type classReaderStub struct {
	class *models.Class
	err   error
}

func (s classReaderStub) FindForTeacher(ctx context.Context, id, teacherID string) (*models.Class, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.class, nil
}

type scheduleReaderStub struct {
	entry *models.ClassSchedule
	err   error
}

func (s scheduleReaderStub) FindByClassAndDay(ctx context.Context, classID string, day models.DayOfWeek) (*models.ClassSchedule, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entry, nil
}

type recordRepoStub struct {
	existing  *models.AttendanceRecord
	created   *models.AttendanceRecord
	duplicate bool

	createdCalls int
	lastRecord   *models.AttendanceRecord
}

func (s *recordRepoStub) FindByStudentClassDate(ctx context.Context, studentID, classID string, date time.Time) (*models.AttendanceRecord, error) {
	if s.existing == nil {
		return nil, sql.ErrNoRows
	}
	return s.existing, nil
}

func (s *recordRepoStub) CreateWithStudentStatus(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, bool, error) {
	s.createdCalls++
	s.lastRecord = record
	if s.duplicate {
		return s.created, true, nil
	}
	if s.created != nil {
		return s.created, false, nil
	}
	return record, false, nil
}

func (s *recordRepoStub) HistoryByStudentClass(ctx context.Context, studentID, classID string) ([]models.AttendanceRecord, error) {
	return nil, nil
}

func scanFixture(records *recordRepoStub, entry *models.ClassSchedule) *AttendanceService {
	return NewAttendanceService(
		studentReaderStub{student: &models.Student{ID: "stu-1", StudentIDNum: "S-1001", FirstName: "Ana", LastName: "Reyes"}},
		classReaderStub{class: &models.Class{ID: "class-1", TeacherID: "teacher-1", Name: "Biology"}},
		scheduleReaderStub{entry: entry},
		records,
		nil, nil, nil, nil, nil,
	)
}

// 2024-01-01 is a Monday.
func mondayAt(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}

func mondaySession() *models.ClassSchedule {
	return &models.ClassSchedule{
		ID:        "sched-1",
		ClassID:   "class-1",
		DayOfWeek: models.DayMonday,
		StartTime: "08:00:00",
		EndTime:   "10:00:00",
	}
}

func TestResolveRecordsPresentWithinGrace(t *testing.T) {
	records := &recordRepoStub{}
	svc := scanFixture(records, mondaySession())

	result, err := svc.Resolve(context.Background(), "teacher-1", "class-1", ScanRequest{StudentIDNum: "S-1001"}, mondayAt(8, 14))
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, result.Status)
	assert.False(t, result.AlreadyRecorded)
	assert.Equal(t, 1, records.createdCalls)
	assert.Equal(t, "08:14:00", records.lastRecord.AttendanceTime)
}

type blockingCacheStub struct {
	called  chan string
	release chan struct{}
}

func (c *blockingCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.called <- pattern
	<-c.release
	return nil
}

func TestResolveDoesNotWaitOnCacheInvalidation(t *testing.T) {
	records := &recordRepoStub{}
	cache := &blockingCacheStub{called: make(chan string, 1), release: make(chan struct{})}
	svc := NewAttendanceService(
		studentReaderStub{student: &models.Student{ID: "stu-1", StudentIDNum: "S-1001", FirstName: "Ana", LastName: "Reyes"}},
		classReaderStub{class: &models.Class{ID: "class-1", TeacherID: "teacher-1", Name: "Biology"}},
		scheduleReaderStub{entry: mondaySession()},
		records,
		nil, nil, cache, nil, nil,
	)

	// The delete is still hanging when the scan result comes back.
	result, err := svc.Resolve(context.Background(), "teacher-1", "class-1", ScanRequest{StudentIDNum: "S-1001"}, mondayAt(8, 14))
	require.NoError(t, err)
	assert.False(t, result.AlreadyRecorded)

	select {
	case pattern := <-cache.called:
		assert.Equal(t, "report:class-1:*", pattern)
	case <-time.After(time.Second):
		t.Fatal("report cache invalidation was never attempted")
	}
	close(cache.release)
}

func TestResolveMarksLateAtGraceBoundary(t *testing.T) {
	records := &recordRepoStub{}
	svc := scanFixture(records, mondaySession())

	// Exactly start + 15 minutes tips over to Late.
	result, err := svc.Resolve(context.Background(), "teacher-1", "class-1", ScanRequest{StudentIDNum: "S-1001"}, mondayAt(8, 15))
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, result.Status)
}

func TestResolveRejectsOutsideClassHours(t *testing.T) {
	records := &recordRepoStub{}
	svc := scanFixture(records, mondaySession())

	_, err := svc.Resolve(context.Background(), "teacher-1", "class-1", ScanRequest{StudentIDNum: "S-1001"}, mondayAt(10, 1))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrOutsideClassHours.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "08:00 - 10:00")
	assert.Zero(t, records.createdCalls)
}

func TestResolveRejectsBeforeSessionStart(t *testing.T) {
	records := &recordRepoStub{}
	svc := scanFixture(records, mondaySession())

	_, err := svc.Resolve(context.Background(), "teacher-1", "class-1", ScanRequest{StudentIDNum: "S-1001"}, mondayAt(7, 59))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOutsideClassHours.Code, appErrors.FromError(err).Code)
	assert.Zero(t, records.createdCalls)
}

func TestResolveRejectsDayWithoutSchedule(t *testing.T) {
	records := &recordRepoStub{}
	svc := NewAttendanceService(
		studentReaderStub{student: &models.Student{ID: "stu-1", StudentIDNum: "S-1001"}},
		classReaderStub{class: &models.Class{ID: "class-1", TeacherID: "teacher-1"}},
		scheduleReaderStub{err: sql.ErrNoRows},
		records,
		nil, nil, nil, nil, nil,
	)

	_, err := svc.Resolve(context.Background(), "teacher-1", "class-1", ScanRequest{StudentIDNum: "S-1001"}, mondayAt(8, 5))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNoScheduleForDay.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Monday")
	assert.Zero(t, records.createdCalls)
}

func TestResolveIsIdempotentForRepeatScans(t *testing.T) {
	records := &recordRepoStub{
		existing: &models.AttendanceRecord{
			ID:             "rec-1",
			Status:         models.AttendanceStatusPresent,
			AttendanceTime: "08:02:00",
		},
	}
	svc := scanFixture(records, mondaySession())

	result, err := svc.Resolve(context.Background(), "teacher-1", "class-1", ScanRequest{StudentIDNum: "S-1001"}, mondayAt(8, 30))
	require.NoError(t, err)
	assert.True(t, result.AlreadyRecorded)
	assert.Equal(t, models.AttendanceStatusPresent, result.Status)
	assert.Equal(t, "08:02:00", result.RecordedAt)
	assert.Zero(t, records.createdCalls)
}

func TestResolveEchoesConcurrentDuplicate(t *testing.T) {
	records := &recordRepoStub{
		duplicate: true,
		created: &models.AttendanceRecord{
			ID:             "rec-1",
			Status:         models.AttendanceStatusLate,
			AttendanceTime: "08:20:00",
		},
	}
	svc := scanFixture(records, mondaySession())

	result, err := svc.Resolve(context.Background(), "teacher-1", "class-1", ScanRequest{StudentIDNum: "S-1001"}, mondayAt(8, 30))
	require.NoError(t, err)
	assert.True(t, result.AlreadyRecorded)
	assert.Equal(t, models.AttendanceStatusLate, result.Status)
}

func TestResolveUnknownStudent(t *testing.T) {
	records := &recordRepoStub{}
	svc := NewAttendanceService(
		studentReaderStub{err: sql.ErrNoRows},
		classReaderStub{class: &models.Class{ID: "class-1", TeacherID: "teacher-1"}},
		scheduleReaderStub{entry: mondaySession()},
		records,
		nil, nil, nil, nil, nil,
	)

	_, err := svc.Resolve(context.Background(), "teacher-1", "class-1", ScanRequest{StudentIDNum: "NOPE"}, mondayAt(8, 5))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStudentNotFound.Code, appErrors.FromError(err).Code)
}

func TestResolveForeignClass(t *testing.T) {
	svc := NewAttendanceService(
		studentReaderStub{student: &models.Student{ID: "stu-1"}},
		classReaderStub{err: sql.ErrNoRows},
		scheduleReaderStub{entry: mondaySession()},
		&recordRepoStub{},
		nil, nil, nil, nil, nil,
	)

	_, err := svc.Resolve(context.Background(), "teacher-2", "class-1", ScanRequest{StudentIDNum: "S-1001"}, mondayAt(8, 5))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrClassNotFound.Code, appErrors.FromError(err).Code)
}
