package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rollcall-dev/rollcall-api/internal/models"
	appErrors "github.com/rollcall-dev/rollcall-api/pkg/errors"
	"github.com/rollcall-dev/rollcall-api/pkg/export"
)

type reportBuilder interface {
	Build(ctx context.Context, teacherID, classID string, start, end time.Time) (*models.AttendanceReport, error)
}

type exportClassReader interface {
	FindForTeacher(ctx context.Context, id, teacherID string) (*models.Class, error)
}

type exportRecordReader interface {
	ListDetailByClassBetween(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceRecordDetail, error)
}

// ExportFile is a rendered download with its HTTP metadata.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders attendance reports and raw records as downloads.
type ExportService struct {
	reports reportBuilder
	classes exportClassReader
	records exportRecordReader
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(reports reportBuilder, classes exportClassReader, records exportRecordReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		reports: reports,
		classes: classes,
		records: records,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// ReportCSV renders the attendance matrix for a date range as CSV.
func (s *ExportService) ReportCSV(ctx context.Context, teacherID, classID string, start, end time.Time) (*ExportFile, error) {
	report, err := s.reports.Build(ctx, teacherID, classID, start, end)
	if err != nil {
		return nil, err
	}
	body, err := s.csv.Render(reportDataset(report))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render CSV")
	}
	return &ExportFile{
		Filename:    exportFilename("attendance-report", classID, start, end, "csv"),
		ContentType: "text/csv",
		Body:        body,
	}, nil
}

// ReportPDF renders the attendance matrix for a date range as PDF.
func (s *ExportService) ReportPDF(ctx context.Context, teacherID, classID string, start, end time.Time) (*ExportFile, error) {
	class, err := s.classes.FindForTeacher(ctx, classID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrClassNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	report, err := s.reports.Build(ctx, teacherID, classID, start, end)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Attendance Report - %s (%s to %s)",
		class.Name, start.Format("2006-01-02"), end.Format("2006-01-02"))
	body, err := s.pdf.Render(reportDataset(report), title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render PDF")
	}
	return &ExportFile{
		Filename:    exportFilename("attendance-report", classID, start, end, "pdf"),
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}

// RecordsCSV exports the raw scan log for a date range, one row per
// recorded scan.
func (s *ExportService) RecordsCSV(ctx context.Context, teacherID, classID string, start, end time.Time) (*ExportFile, error) {
	if _, err := s.classes.FindForTeacher(ctx, classID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrClassNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not be before start date")
	}
	details, err := s.records.ListDetailByClassBetween(ctx, classID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load records")
	}

	dataset := export.Dataset{
		Headers: []string{"Last Name", "First Name", "Student ID", "Date", "Time", "Status"},
	}
	for _, d := range details {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Last Name":  d.LastName,
			"First Name": d.FirstName,
			"Student ID": d.StudentIDNum,
			"Date":       d.AttendanceDate.Format("2006-01-02"),
			"Time":       d.AttendanceTime,
			"Status":     string(d.Status),
		})
	}
	body, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render CSV")
	}
	return &ExportFile{
		Filename:    exportFilename("attendance-records", classID, start, end, "csv"),
		ContentType: "text/csv",
		Body:        body,
	}, nil
}

// reportDataset flattens the matrix into a tabular dataset. Column order is
// student name, student id, one column per class date, then the summary.
func reportDataset(report *models.AttendanceReport) export.Dataset {
	headers := make([]string, 0, len(report.Dates)+3)
	headers = append(headers, "Student", "Student ID")
	headers = append(headers, report.Dates...)
	headers = append(headers, "Present")

	rows := make([]map[string]string, 0, len(report.Students))
	for _, row := range report.Students {
		cells := map[string]string{
			"Student":    row.DisplayName,
			"Student ID": row.StudentIDNum,
			"Present":    row.Summary,
		}
		for _, date := range report.Dates {
			cells[date] = string(row.Statuses[date])
		}
		rows = append(rows, cells)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func exportFilename(prefix, classID string, start, end time.Time, ext string) string {
	return fmt.Sprintf("%s-%s-%s-%s.%s",
		prefix, classID, start.Format("2006-01-02"), end.Format("2006-01-02"), ext)
}
