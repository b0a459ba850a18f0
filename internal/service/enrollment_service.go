package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rollcall-dev/rollcall-api/internal/models"
	appErrors "github.com/rollcall-dev/rollcall-api/pkg/errors"
)

type enrollmentRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
	ListUnenrolled(ctx context.Context, classID string) ([]models.Student, error)
	Enroll(ctx context.Context, classID, studentID string) (*models.Enrollment, error)
	Unenroll(ctx context.Context, classID, studentID string) error
}

type enrollmentClassReader interface {
	FindForTeacher(ctx context.Context, id, teacherID string) (*models.Class, error)
}

type enrollmentStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// EnrollRequest names the student to add to a class roster.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
}

// EnrollmentService manages class rosters.
type EnrollmentService struct {
	repo      enrollmentRepository
	classes   enrollmentClassReader
	students  enrollmentStudentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, classes enrollmentClassReader, students enrollmentStudentReader, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, classes: classes, students: students, validator: validate, logger: logger}
}

// Roster returns the students enrolled in a class, ordered by name.
func (s *EnrollmentService) Roster(ctx context.Context, teacherID, classID string) ([]models.Student, error) {
	if err := s.requireClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	students, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

// Unenrolled returns students not yet on the class roster, for enroll
// pickers.
func (s *EnrollmentService) Unenrolled(ctx context.Context, teacherID, classID string) ([]models.Student, error) {
	if err := s.requireClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	students, err := s.repo.ListUnenrolled(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

// Enroll adds a student to the class roster. Enrolling twice is a no-op.
func (s *EnrollmentService) Enroll(ctx context.Context, teacherID, classID string, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if err := s.requireClass(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	enrollment, err := s.repo.Enroll(ctx, classID, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	return enrollment, nil
}

// Unenroll removes a student from the class roster. Attendance history is
// kept.
func (s *EnrollmentService) Unenroll(ctx context.Context, teacherID, classID, studentID string) error {
	if err := s.requireClass(ctx, teacherID, classID); err != nil {
		return err
	}
	if err := s.repo.Unenroll(ctx, classID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in this class")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll student")
	}
	return nil
}

func (s *EnrollmentService) requireClass(ctx context.Context, teacherID, classID string) error {
	if _, err := s.classes.FindForTeacher(ctx, classID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrClassNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return nil
}
