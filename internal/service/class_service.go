package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rollcall-dev/rollcall-api/internal/models"
	appErrors "github.com/rollcall-dev/rollcall-api/pkg/errors"
)

type classRepository interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error)
	FindForTeacher(ctx context.Context, id, teacherID string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id, teacherID string) error
	CountEnrolled(ctx context.Context, classID string) (int, error)
}

type classScheduleRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.ClassSchedule, error)
	Replace(ctx context.Context, classID string, entries []models.ClassSchedule) error
}

// ScheduleEntryPayload is one weekday session in a class payload.
type ScheduleEntryPayload struct {
	DayOfWeek string `json:"day_of_week" validate:"required,day_of_week"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// CreateClassRequest captures class creation payload. Schedule replaces the
// class's weekly sessions wholesale; omitting it leaves the class closed to
// attendance.
type CreateClassRequest struct {
	Name     string                 `json:"name" validate:"required,max=128"`
	UnitCode *string                `json:"unit_code"`
	Schedule []ScheduleEntryPayload `json:"schedule" validate:"dive"`
}

// UpdateClassRequest modifies class fields and swaps the schedule.
type UpdateClassRequest struct {
	Name     string                 `json:"name" validate:"required,max=128"`
	UnitCode *string                `json:"unit_code"`
	Schedule []ScheduleEntryPayload `json:"schedule" validate:"dive"`
}

// ClassService coordinates class and schedule management for a teacher.
type ClassService struct {
	repo      classRepository
	schedules classScheduleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, schedules classScheduleRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ClassService{repo: repo, schedules: schedules, validator: validate, logger: logger}
	svc.validator.RegisterValidation("day_of_week", func(fl validator.FieldLevel) bool {
		return models.DayOfWeek(fl.Field().String()).Valid()
	})
	return svc
}

// List returns the teacher's classes with their schedules attached.
func (s *ClassService) List(ctx context.Context, teacherID string) ([]models.ClassDetail, error) {
	classes, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	details := make([]models.ClassDetail, 0, len(classes))
	for _, class := range classes {
		detail, err := s.detail(ctx, class)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	return details, nil
}

// Get returns one class with schedule and roster size.
func (s *ClassService) Get(ctx context.Context, id, teacherID string) (*models.ClassDetail, error) {
	class, err := s.repo.FindForTeacher(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrClassNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return s.detail(ctx, *class)
}

// Create adds a class (and optionally its weekly schedule) for a teacher.
func (s *ClassService) Create(ctx context.Context, teacherID string, req CreateClassRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	entries, err := buildScheduleEntries(req.Schedule)
	if err != nil {
		return nil, err
	}

	class := &models.Class{TeacherID: teacherID, Name: req.Name, UnitCode: req.UnitCode}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	if len(entries) > 0 {
		if err := s.schedules.Replace(ctx, class.ID, entries); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save schedule")
		}
	}
	return s.detail(ctx, *class)
}

// Update modifies a class and replaces its schedule wholesale.
func (s *ClassService) Update(ctx context.Context, id, teacherID string, req UpdateClassRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	entries, err := buildScheduleEntries(req.Schedule)
	if err != nil {
		return nil, err
	}

	class := &models.Class{ID: id, TeacherID: teacherID, Name: req.Name, UnitCode: req.UnitCode}
	if err := s.repo.Update(ctx, class); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrClassNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	if err := s.schedules.Replace(ctx, id, entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save schedule")
	}
	return s.Get(ctx, id, teacherID)
}

// Schedule returns the class's weekly sessions ordered by weekday.
func (s *ClassService) Schedule(ctx context.Context, id, teacherID string) ([]models.ClassSchedule, error) {
	if _, err := s.repo.FindForTeacher(ctx, id, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrClassNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	schedule, err := s.schedules.ListByClass(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if schedule == nil {
		schedule = []models.ClassSchedule{}
	}
	return schedule, nil
}

// Delete removes a class together with its schedules, enrollments and
// attendance records.
func (s *ClassService) Delete(ctx context.Context, id, teacherID string) error {
	if err := s.repo.Delete(ctx, id, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrClassNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

func (s *ClassService) detail(ctx context.Context, class models.Class) (*models.ClassDetail, error) {
	schedule, err := s.schedules.ListByClass(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	count, err := s.repo.CountEnrolled(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count roster")
	}
	if schedule == nil {
		schedule = []models.ClassSchedule{}
	}
	return &models.ClassDetail{Class: class, Schedule: schedule, EnrolledCount: count}, nil
}

// buildScheduleEntries validates payload entries: known weekday, at most
// one entry per weekday, parseable times, start before end.
func buildScheduleEntries(payload []ScheduleEntryPayload) ([]models.ClassSchedule, error) {
	entries := make([]models.ClassSchedule, 0, len(payload))
	seen := map[models.DayOfWeek]bool{}
	for _, item := range payload {
		day := models.DayOfWeek(item.DayOfWeek)
		if !day.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day of week %q", item.DayOfWeek))
		}
		if seen[day] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate schedule entry for %s", day))
		}
		seen[day] = true

		start, err := models.ParseTimeOfDay(item.StartTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid start time for %s", day))
		}
		end, err := models.ParseTimeOfDay(item.EndTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid end time for %s", day))
		}
		if end <= start {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("end time must be after start time for %s", day))
		}

		entries = append(entries, models.ClassSchedule{
			DayOfWeek: day,
			StartTime: item.StartTime,
			EndTime:   item.EndTime,
		})
	}
	return entries, nil
}
