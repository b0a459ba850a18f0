package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rollcall-dev/rollcall-api/internal/models"
	"github.com/rollcall-dev/rollcall-api/internal/repository"
	appErrors "github.com/rollcall-dev/rollcall-api/pkg/errors"
)

// Code 128 encodes the full printable ASCII range. IDs outside it cannot be
// rendered on a badge, so they are rejected up front.
var code128Pattern = regexp.MustCompile(`^[ -~]+$`)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByIDNum(ctx context.Context, idNum, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	CreateAndEnroll(ctx context.Context, student *models.Student, classID string) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
	ImportRoster(ctx context.Context, classID string, students []models.Student) (*repository.RosterImportResult, error)
}

type studentClassReader interface {
	FindForTeacher(ctx context.Context, id, teacherID string) (*models.Class, error)
}

// StudentRequest captures create and update payloads for a student.
type StudentRequest struct {
	StudentIDNum string  `json:"student_id_num" validate:"required,max=64,code128ascii"`
	LastName     string  `json:"last_name" validate:"required,max=64"`
	FirstName    string  `json:"first_name" validate:"required,max=64"`
	Phone        *string `json:"phone" validate:"omitempty,max=32"`
}

// ImportSummary reports the outcome of a roster CSV import.
type ImportSummary struct {
	Created  int `json:"created"`
	Enrolled int `json:"enrolled"`
}

// StudentService manages the student directory and roster CSV imports.
type StudentService struct {
	repo      studentRepository
	classes   studentClassReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, classes studentClassReader, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &StudentService{repo: repo, classes: classes, validator: validate, logger: logger}
	svc.validator.RegisterValidation("code128ascii", func(fl validator.FieldLevel) bool {
		return code128Pattern.MatchString(fl.Field().String())
	})
	return svc
}

// List returns students matching the filter together with the total count.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}

// Get returns one student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create adds a student to the directory. When classID is non-empty the
// student is enrolled in that class in the same transaction.
func (s *StudentService) Create(ctx context.Context, teacherID, classID string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	taken, err := s.repo.ExistsByIDNum(ctx, req.StudentIDNum, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student id")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("student id %s is already registered", req.StudentIDNum))
	}

	student := &models.Student{
		StudentIDNum: req.StudentIDNum,
		LastName:     req.LastName,
		FirstName:    req.FirstName,
		Phone:        req.Phone,
	}
	if classID == "" {
		if err := s.repo.Create(ctx, student); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
		}
		return student, nil
	}

	if _, err := s.classes.FindForTeacher(ctx, classID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrClassNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.repo.CreateAndEnroll(ctx, student, classID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies a student's identity fields.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	taken, err := s.repo.ExistsByIDNum(ctx, req.StudentIDNum, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student id")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("student id %s is already registered", req.StudentIDNum))
	}

	student := &models.Student{
		ID:           id,
		StudentIDNum: req.StudentIDNum,
		LastName:     req.LastName,
		FirstName:    req.FirstName,
		Phone:        req.Phone,
	}
	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.Get(ctx, id)
}

// Delete removes a student along with their enrollments and attendance
// records.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrStudentNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

// ImportCSV reads a roster file and enrolls every row into the class.
// Expected columns: student id, last name, first name, optional phone.
// Row 1 is always treated as the header. Any malformed data row aborts the
// import with a row-numbered error so a partial roster is never enrolled.
func (s *StudentService) ImportCSV(ctx context.Context, teacherID, classID string, file io.Reader) (*ImportSummary, error) {
	if _, err := s.classes.FindForTeacher(ctx, classID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrClassNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var students []models.Student
	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "file is not valid CSV")
		}
		rowNum++
		if rowNum == 1 {
			continue
		}
		student, err := parseRosterRow(row)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid data on row %d: %s", rowNum, err))
		}
		students = append(students, student)
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no student rows found in file")
	}

	result, err := s.repo.ImportRoster(ctx, classID, students)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import roster")
	}
	s.logger.Info("roster imported",
		zap.String("class_id", classID),
		zap.Int("created", result.Created),
		zap.Int("enrolled", result.Enrolled))
	return &ImportSummary{Created: result.Created, Enrolled: result.Enrolled}, nil
}

func parseRosterRow(row []string) (models.Student, error) {
	if len(row) < 3 {
		return models.Student{}, errors.New("expected at least 3 columns")
	}
	idNum := strings.TrimSpace(row[0])
	lastName := strings.TrimSpace(row[1])
	firstName := strings.TrimSpace(row[2])
	if idNum == "" || lastName == "" || firstName == "" {
		return models.Student{}, errors.New("student id, last name and first name are required")
	}
	if !code128Pattern.MatchString(idNum) {
		return models.Student{}, errors.New("student id contains characters outside printable ASCII")
	}
	student := models.Student{StudentIDNum: idNum, LastName: lastName, FirstName: firstName}
	if len(row) > 3 {
		if phone := strings.TrimSpace(row[3]); phone != "" {
			student.Phone = &phone
		}
	}
	return student, nil
}
