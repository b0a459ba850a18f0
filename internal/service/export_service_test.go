package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollcall-dev/rollcall-api/internal/models"
)

type reportBuilderStub struct {
	report *models.AttendanceReport
}

func (s reportBuilderStub) Build(ctx context.Context, teacherID, classID string, start, end time.Time) (*models.AttendanceReport, error) {
	return s.report, nil
}

type recordDetailStub struct {
	details []models.AttendanceRecordDetail
}

func (s recordDetailStub) ListDetailByClassBetween(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceRecordDetail, error) {
	return s.details, nil
}

func sampleReport() *models.AttendanceReport {
	return &models.AttendanceReport{
		ClassID:   "class-1",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-05",
		Dates:     []string{"2024-01-01", "2024-01-03"},
		Students: []models.ReportRow{
			{
				StudentID:    "stu-1",
				StudentIDNum: "S-1001",
				DisplayName:  "Reyes, Ana",
				Statuses: map[string]models.AttendanceStatus{
					"2024-01-01": models.AttendanceStatusPresent,
					"2024-01-03": models.AttendanceStatusAbsent,
				},
				PresentCount: 1,
				Summary:      "1 / 2",
			},
		},
	}
}

func TestReportCSVMatrixLayout(t *testing.T) {
	svc := NewExportService(
		reportBuilderStub{report: sampleReport()},
		classReaderStub{class: &models.Class{ID: "class-1", Name: "Biology"}},
		recordDetailStub{},
		nil,
	)

	file, err := svc.ReportCSV(context.Background(), "teacher-1", "class-1", date(2024, 1, 1), date(2024, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Contains(t, file.Filename, ".csv")

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Student,Student ID,2024-01-01,2024-01-03,Present", lines[0])
	assert.Equal(t, "\"Reyes, Ana\",S-1001,Present,Absent,1 / 2", lines[1])
}

func TestReportPDFRenders(t *testing.T) {
	svc := NewExportService(
		reportBuilderStub{report: sampleReport()},
		classReaderStub{class: &models.Class{ID: "class-1", Name: "Biology"}},
		recordDetailStub{},
		nil,
	)

	file, err := svc.ReportPDF(context.Background(), "teacher-1", "class-1", date(2024, 1, 1), date(2024, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Body), "%PDF"))
}

func TestRecordsCSVRawLog(t *testing.T) {
	svc := NewExportService(
		reportBuilderStub{},
		classReaderStub{class: &models.Class{ID: "class-1", Name: "Biology"}},
		recordDetailStub{details: []models.AttendanceRecordDetail{
			{
				AttendanceRecord: models.AttendanceRecord{
					AttendanceDate: date(2024, 1, 1),
					AttendanceTime: "08:02:00",
					Status:         models.AttendanceStatusPresent,
				},
				StudentIDNum: "S-1001",
				LastName:     "Reyes",
				FirstName:    "Ana",
			},
		}},
		nil,
	)

	file, err := svc.RecordsCSV(context.Background(), "teacher-1", "class-1", date(2024, 1, 1), date(2024, 1, 5))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Last Name,First Name,Student ID,Date,Time,Status", lines[0])
	assert.Equal(t, "Reyes,Ana,S-1001,2024-01-01,08:02:00,Present", lines[1])
}

func TestRecordsCSVRejectsInvertedRange(t *testing.T) {
	svc := NewExportService(reportBuilderStub{}, classReaderStub{class: &models.Class{ID: "class-1"}}, recordDetailStub{}, nil)

	_, err := svc.RecordsCSV(context.Background(), "teacher-1", "class-1", date(2024, 1, 5), date(2024, 1, 1))
	require.Error(t, err)
}
