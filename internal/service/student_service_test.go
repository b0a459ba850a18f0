package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollcall-dev/rollcall-api/internal/models"
	"github.com/rollcall-dev/rollcall-api/internal/repository"
	appErrors "github.com/rollcall-dev/rollcall-api/pkg/errors"
)

type studentRepoStub struct {
	students []models.Student
	taken    bool

	created  *models.Student
	imported []models.Student
}

func (s *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	return s.students, len(s.students), nil
}

func (s *studentRepoStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for i := range s.students {
		if s.students[i].ID == id {
			return &s.students[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *studentRepoStub) ExistsByIDNum(ctx context.Context, idNum, excludeID string) (bool, error) {
	return s.taken, nil
}

func (s *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	student.ID = "stu-1"
	s.created = student
	return nil
}

func (s *studentRepoStub) CreateAndEnroll(ctx context.Context, student *models.Student, classID string) error {
	student.ID = "stu-1"
	s.created = student
	return nil
}

func (s *studentRepoStub) Update(ctx context.Context, student *models.Student) error {
	s.created = student
	return nil
}

func (s *studentRepoStub) Delete(ctx context.Context, id string) error {
	return nil
}

func (s *studentRepoStub) ImportRoster(ctx context.Context, classID string, students []models.Student) (*repository.RosterImportResult, error) {
	s.imported = students
	return &repository.RosterImportResult{Created: len(students), Enrolled: len(students)}, nil
}

func studentFixture(repo *studentRepoStub) *StudentService {
	return NewStudentService(repo, classReaderStub{class: &models.Class{ID: "class-1", TeacherID: "teacher-1"}}, nil, nil)
}

func TestCreateStudentRejectsNonASCIIStudentID(t *testing.T) {
	svc := studentFixture(&studentRepoStub{})

	_, err := svc.Create(context.Background(), "teacher-1", "", StudentRequest{
		StudentIDNum: "ÑO-1001",
		LastName:     "Reyes",
		FirstName:    "Ana",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateStudentRejectsTakenIDNum(t *testing.T) {
	svc := studentFixture(&studentRepoStub{taken: true})

	_, err := svc.Create(context.Background(), "teacher-1", "", StudentRequest{
		StudentIDNum: "S-1001",
		LastName:     "Reyes",
		FirstName:    "Ana",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCreateStudentDefaults(t *testing.T) {
	repo := &studentRepoStub{}
	svc := studentFixture(repo)

	student, err := svc.Create(context.Background(), "teacher-1", "", StudentRequest{
		StudentIDNum: "S-1001",
		LastName:     "Reyes",
		FirstName:    "Ana",
	})
	require.NoError(t, err)
	assert.Equal(t, "stu-1", student.ID)
	assert.Nil(t, repo.created.Phone)
}

func TestImportCSVSkipsHeaderRow(t *testing.T) {
	repo := &studentRepoStub{}
	svc := studentFixture(repo)

	csvBody := strings.Join([]string{
		"Student ID,Last Name,First Name,Phone",
		"S-1001,Reyes,Ana,+639170000001",
		"S-1002,Cruz,Ben",
		"S-1003,Santos,Carla,",
	}, "\n")

	summary, err := svc.ImportCSV(context.Background(), "teacher-1", "class-1", strings.NewReader(csvBody))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Created)

	require.Len(t, repo.imported, 3)
	assert.Equal(t, "S-1001", repo.imported[0].StudentIDNum)
	require.NotNil(t, repo.imported[0].Phone)
	assert.Equal(t, "+639170000001", *repo.imported[0].Phone)
	assert.Nil(t, repo.imported[2].Phone)
}

func TestImportCSVAlwaysTreatsFirstRowAsHeader(t *testing.T) {
	repo := &studentRepoStub{}
	svc := studentFixture(repo)

	// A localized header carries no recognizable keyword. It must still be
	// skipped, not enrolled as a student.
	csvBody := strings.Join([]string{
		"numero,apellido,nombre",
		"S-1001,Reyes,Ana",
		"S-1002,Cruz,Ben",
	}, "\n")

	summary, err := svc.ImportCSV(context.Background(), "teacher-1", "class-1", strings.NewReader(csvBody))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)

	require.Len(t, repo.imported, 2)
	assert.Equal(t, "S-1001", repo.imported[0].StudentIDNum)
	assert.Equal(t, "S-1002", repo.imported[1].StudentIDNum)
}

func TestImportCSVAbortsOnMalformedRow(t *testing.T) {
	for name, row := range map[string]string{
		"too few columns": "only-two,columns",
		"blank id":        ",Missing,ID",
		"non ascii id":    "ÑO-1001,Reyes,Ana",
	} {
		t.Run(name, func(t *testing.T) {
			repo := &studentRepoStub{}
			svc := studentFixture(repo)

			csvBody := strings.Join([]string{
				"Student ID,Last Name,First Name",
				"S-1001,Reyes,Ana",
				row,
				"S-1002,Cruz,Ben",
			}, "\n")

			_, err := svc.ImportCSV(context.Background(), "teacher-1", "class-1", strings.NewReader(csvBody))
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
			assert.Contains(t, appErr.Message, "row 3")
			assert.Nil(t, repo.imported)
		})
	}
}

func TestImportCSVRejectsEmptyFile(t *testing.T) {
	svc := studentFixture(&studentRepoStub{})

	_, err := svc.ImportCSV(context.Background(), "teacher-1", "class-1", strings.NewReader("Student ID,Last,First\n"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestListClampsPagination(t *testing.T) {
	repo := &studentRepoStub{students: []models.Student{{ID: "stu-1"}}}
	svc := studentFixture(repo)

	students, total, err := svc.List(context.Background(), models.StudentFilter{Page: -1, PageSize: 5000})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
}
