package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rollcall-dev/rollcall-api/internal/models"
	appErrors "github.com/rollcall-dev/rollcall-api/pkg/errors"
)

// lateArrivalGrace is the fixed window after session start during which a
// scan still counts as Present. Scans at or past start+grace are Late.
// Deliberately a constant, not configuration.
const lateArrivalGrace = 15 * time.Minute

type attendanceStudentReader interface {
	FindByIDNum(ctx context.Context, idNum string) (*models.Student, error)
}

type attendanceClassReader interface {
	FindForTeacher(ctx context.Context, id, teacherID string) (*models.Class, error)
}

type attendanceScheduleReader interface {
	FindByClassAndDay(ctx context.Context, classID string, day models.DayOfWeek) (*models.ClassSchedule, error)
}

type attendanceRecordRepository interface {
	FindByStudentClassDate(ctx context.Context, studentID, classID string, date time.Time) (*models.AttendanceRecord, error)
	CreateWithStudentStatus(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, bool, error)
	HistoryByStudentClass(ctx context.Context, studentID, classID string) ([]models.AttendanceRecord, error)
}

// scanNotifier delivers the guardian SMS for a first-time mark. Delivery is
// best-effort and never influences the scan outcome.
type scanNotifier interface {
	SendMarked(ctx context.Context, student models.Student, class models.Class, at time.Time) error
}

type scanMetrics interface {
	ObserveScan(outcome string)
}

type reportCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ScanRequest is the payload of an attendance-marking scan event.
type ScanRequest struct {
	StudentIDNum string `json:"student_id_num" validate:"required"`
}

// AttendanceService is the schedule resolver: it decides whether a scan may
// be recorded now and classifies it as Present or Late.
type AttendanceService struct {
	students  attendanceStudentReader
	classes   attendanceClassReader
	schedules attendanceScheduleReader
	records   attendanceRecordRepository
	notifier  scanNotifier
	metrics   scanMetrics
	cache     reportCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service. notifier, metrics
// and cache may be nil.
func NewAttendanceService(students attendanceStudentReader, classes attendanceClassReader, schedules attendanceScheduleReader, records attendanceRecordRepository, notifier scanNotifier, metrics scanMetrics, cache reportCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		students:  students,
		classes:   classes,
		schedules: schedules,
		records:   records,
		notifier:  notifier,
		metrics:   metrics,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// Resolve validates a scan against the class's schedule for now's weekday
// and records attendance. Repeated scans for the same student and day are
// idempotent: the stored status is returned unchanged and no second row is
// written.
func (s *AttendanceService) Resolve(ctx context.Context, teacherID, classID string, req ScanRequest, now time.Time) (*models.ScanResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scan payload")
	}

	class, err := s.classes.FindForTeacher(ctx, classID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.observe("class_not_found")
			return nil, appErrors.ErrClassNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	student, err := s.students.FindByIDNum(ctx, req.StudentIDNum)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.observe("student_not_found")
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
	}

	day := models.DayOfWeekFor(now.Weekday())
	entry, err := s.schedules.FindByClassAndDay(ctx, class.ID, day)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.observe("no_schedule")
			return nil, appErrors.Clone(appErrors.ErrNoScheduleForDay,
				fmt.Sprintf("no schedule set for today (%s); configure the class schedule first", day))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	status, err := classifyScan(entry, now)
	if err != nil {
		s.observe("outside_hours")
		return nil, err
	}

	date := dateOnly(now)
	if existing, err := s.records.FindByStudentClassDate(ctx, student.ID, class.ID, date); err == nil {
		s.observe("duplicate")
		return &models.ScanResult{
			StudentID:       student.ID,
			StudentName:     student.FirstName + " " + student.LastName,
			Status:          existing.Status,
			AlreadyRecorded: true,
			RecordedAt:      existing.AttendanceTime,
		}, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing record")
	}

	record := &models.AttendanceRecord{
		ClassID:        class.ID,
		StudentID:      student.ID,
		AttendanceDate: date,
		AttendanceTime: now.Format("15:04:05"),
		Status:         status,
	}
	stored, duplicate, err := s.records.CreateWithStudentStatus(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance record")
	}
	if duplicate {
		// A concurrent scan won the insert race; echo its result.
		s.observe("duplicate")
		return &models.ScanResult{
			StudentID:       student.ID,
			StudentName:     student.FirstName + " " + student.LastName,
			Status:          stored.Status,
			AlreadyRecorded: true,
			RecordedAt:      stored.AttendanceTime,
		}, nil
	}

	s.observe(string(status))
	s.invalidateReports(class.ID)
	s.notifyMarked(*student, *class, now)

	return &models.ScanResult{
		StudentID:   student.ID,
		StudentName: student.FirstName + " " + student.LastName,
		Status:      stored.Status,
		RecordedAt:  stored.AttendanceTime,
	}, nil
}

// History returns one student's attendance rows within a teacher's class.
func (s *AttendanceService) History(ctx context.Context, teacherID, classID, studentID string) ([]models.AttendanceRecord, error) {
	if _, err := s.classes.FindForTeacher(ctx, classID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrClassNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	records, err := s.records.HistoryByStudentClass(ctx, studentID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	return records, nil
}

// classifyScan checks the session window and applies the late threshold.
func classifyScan(entry *models.ClassSchedule, now time.Time) (models.AttendanceStatus, error) {
	start, err := models.ParseTimeOfDay(entry.StartTime)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid schedule start time")
	}
	end, err := models.ParseTimeOfDay(entry.EndTime)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid schedule end time")
	}

	moment := time.Duration(now.Hour())*time.Hour + time.Duration(now.Minute())*time.Minute + time.Duration(now.Second())*time.Second
	if moment < start || moment > end {
		return "", appErrors.Clone(appErrors.ErrOutsideClassHours,
			fmt.Sprintf("attendance can only be taken during class hours (%s - %s)", models.FormatTimeOfDay(start), models.FormatTimeOfDay(end)))
	}

	if moment >= start+lateArrivalGrace {
		return models.AttendanceStatusLate, nil
	}
	return models.AttendanceStatusPresent, nil
}

func (s *AttendanceService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveScan(outcome)
	}
}

// invalidateReports drops cached report matrices without blocking the scan
// response. A stale cache entry only survives until its TTL, so a failed
// delete is logged and not retried.
func (s *AttendanceService) invalidateReports(classID string) {
	if s.cache == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.cache.DeleteByPattern(ctx, reportCacheKeyPattern(classID)); err != nil {
			s.logger.Warn("failed to invalidate report cache", zap.String("class_id", classID), zap.Error(err))
		}
	}()
}

// notifyMarked fires the guardian SMS without blocking the scan response.
func (s *AttendanceService) notifyMarked(student models.Student, class models.Class, at time.Time) {
	if s.notifier == nil || student.Phone == nil || *student.Phone == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.SendMarked(ctx, student, class, at); err != nil {
			s.logger.Warn("guardian notification failed",
				zap.String("student_id", student.ID),
				zap.String("class_id", class.ID),
				zap.Error(err))
		}
	}()
}

// dateOnly normalizes a moment to its calendar date for record keys.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
