package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollcall-dev/rollcall-api/internal/models"
	appErrors "github.com/rollcall-dev/rollcall-api/pkg/errors"
)

type classRepoStub struct {
	classes []models.Class

	created *models.Class
}

func (s *classRepoStub) ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	return s.classes, nil
}

func (s *classRepoStub) FindForTeacher(ctx context.Context, id, teacherID string) (*models.Class, error) {
	return &models.Class{ID: id, TeacherID: teacherID}, nil
}

func (s *classRepoStub) Create(ctx context.Context, class *models.Class) error {
	class.ID = "class-1"
	s.created = class
	return nil
}

func (s *classRepoStub) Update(ctx context.Context, class *models.Class) error {
	return nil
}

func (s *classRepoStub) Delete(ctx context.Context, id, teacherID string) error {
	return nil
}

func (s *classRepoStub) CountEnrolled(ctx context.Context, classID string) (int, error) {
	return 0, nil
}

type scheduleRepoStub struct {
	entries  []models.ClassSchedule
	replaced []models.ClassSchedule
}

func (s *scheduleRepoStub) ListByClass(ctx context.Context, classID string) ([]models.ClassSchedule, error) {
	return s.entries, nil
}

func (s *scheduleRepoStub) Replace(ctx context.Context, classID string, entries []models.ClassSchedule) error {
	s.replaced = entries
	return nil
}

func TestCreateClassWithSchedule(t *testing.T) {
	repo := &classRepoStub{}
	schedules := &scheduleRepoStub{}
	svc := NewClassService(repo, schedules, nil, nil)

	detail, err := svc.Create(context.Background(), "teacher-1", CreateClassRequest{
		Name: "Biology",
		Schedule: []ScheduleEntryPayload{
			{DayOfWeek: "Monday", StartTime: "08:00", EndTime: "10:00"},
			{DayOfWeek: "Wednesday", StartTime: "13:00", EndTime: "15:00"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Biology", detail.Name)
	assert.Len(t, schedules.replaced, 2)
	assert.Equal(t, models.DayMonday, schedules.replaced[0].DayOfWeek)
}

func TestCreateClassRejectsDuplicateWeekday(t *testing.T) {
	svc := NewClassService(&classRepoStub{}, &scheduleRepoStub{}, nil, nil)

	_, err := svc.Create(context.Background(), "teacher-1", CreateClassRequest{
		Name: "Biology",
		Schedule: []ScheduleEntryPayload{
			{DayOfWeek: "Monday", StartTime: "08:00", EndTime: "10:00"},
			{DayOfWeek: "Monday", StartTime: "13:00", EndTime: "15:00"},
		},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "duplicate")
}

func TestCreateClassRejectsInvertedSessionTimes(t *testing.T) {
	svc := NewClassService(&classRepoStub{}, &scheduleRepoStub{}, nil, nil)

	_, err := svc.Create(context.Background(), "teacher-1", CreateClassRequest{
		Name: "Biology",
		Schedule: []ScheduleEntryPayload{
			{DayOfWeek: "Friday", StartTime: "10:00", EndTime: "08:00"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "after start")
}

func TestCreateClassRejectsUnknownWeekday(t *testing.T) {
	svc := NewClassService(&classRepoStub{}, &scheduleRepoStub{}, nil, nil)

	_, err := svc.Create(context.Background(), "teacher-1", CreateClassRequest{
		Name: "Biology",
		Schedule: []ScheduleEntryPayload{
			{DayOfWeek: "Funday", StartTime: "08:00", EndTime: "10:00"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateClassReplacesScheduleWholesale(t *testing.T) {
	schedules := &scheduleRepoStub{entries: []models.ClassSchedule{
		{DayOfWeek: models.DayMonday, StartTime: "08:00:00", EndTime: "10:00:00"},
	}}
	svc := NewClassService(&classRepoStub{}, schedules, nil, nil)

	_, err := svc.Update(context.Background(), "class-1", "teacher-1", UpdateClassRequest{
		Name: "Biology II",
		Schedule: []ScheduleEntryPayload{
			{DayOfWeek: "Tuesday", StartTime: "09:00", EndTime: "11:00"},
		},
	})
	require.NoError(t, err)
	require.Len(t, schedules.replaced, 1)
	assert.Equal(t, models.DayTuesday, schedules.replaced[0].DayOfWeek)
}

func TestUpdateClassWithEmptyScheduleClearsIt(t *testing.T) {
	schedules := &scheduleRepoStub{entries: []models.ClassSchedule{
		{DayOfWeek: models.DayMonday, StartTime: "08:00:00", EndTime: "10:00:00"},
	}}
	svc := NewClassService(&classRepoStub{}, schedules, nil, nil)

	_, err := svc.Update(context.Background(), "class-1", "teacher-1", UpdateClassRequest{Name: "Biology"})
	require.NoError(t, err)
	assert.Empty(t, schedules.replaced)
}
