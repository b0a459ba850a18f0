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
)

// lateCountsAsPresent controls whether Late marks feed the per-student
// present tally. The ratio tracks strictly on-time attendance, so it does
// not.
const lateCountsAsPresent = false

const dateLayout = "2006-01-02"

type reportClassReader interface {
	FindForTeacher(ctx context.Context, id, teacherID string) (*models.Class, error)
}

type reportScheduleReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.ClassSchedule, error)
}

type reportRosterReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
}

type reportRecordReader interface {
	ListByClassBetween(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceRecord, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type reportMetrics interface {
	ObserveReportBuild(duration time.Duration)
}

// ReportService is the report matrix builder: it expands a class's weekly
// schedule over a date range and overlays sparse records into a dense
// per-student-per-date status grid.
type ReportService struct {
	classes   reportClassReader
	schedules reportScheduleReader
	roster    reportRosterReader
	records   reportRecordReader
	cache     reportCache
	cacheTTL  time.Duration
	metrics   reportMetrics
	logger    *zap.Logger
}

// NewReportService constructs the report service. cache and metrics may be
// nil.
func NewReportService(classes reportClassReader, schedules reportScheduleReader, roster reportRosterReader, records reportRecordReader, cache reportCache, cacheTTL time.Duration, metrics reportMetrics, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		classes:   classes,
		schedules: schedules,
		roster:    roster,
		records:   records,
		cache:     cache,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
		logger:    logger,
	}
}

// Build produces the dense attendance matrix for a class over an inclusive
// date range. A class with no schedule (or no roster) yields an empty but
// valid report, never an error.
func (s *ReportService) Build(ctx context.Context, teacherID, classID string, start, end time.Time) (*models.AttendanceReport, error) {
	if _, err := s.classes.FindForTeacher(ctx, classID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrClassNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}

	cacheKey := reportCacheKey(classID, start, end)
	if s.cache != nil {
		var cached models.AttendanceReport
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	buildStart := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveReportBuild(time.Since(buildStart))
		}
	}()

	entries, err := s.schedules.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	report := &models.AttendanceReport{
		ClassID:   classID,
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
		Dates:     []string{},
		Students:  []models.ReportRow{},
	}
	if len(entries) == 0 {
		return report, nil
	}

	meets := map[models.DayOfWeek]bool{}
	for _, entry := range entries {
		meets[entry.DayOfWeek] = true
	}
	report.Dates = expandClassDates(start, end, meets)

	students, err := s.roster.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	records, err := s.records.ListByClassBetween(ctx, classID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance records")
	}
	index := make(map[string]models.AttendanceStatus, len(records))
	for _, record := range records {
		index[record.StudentID+"|"+record.AttendanceDate.Format(dateLayout)] = record.Status
	}

	total := len(report.Dates)
	for _, student := range students {
		row := models.ReportRow{
			StudentID:    student.ID,
			StudentIDNum: student.StudentIDNum,
			DisplayName:  student.DisplayName(),
			Statuses:     make(map[string]models.AttendanceStatus, total),
		}
		for _, date := range report.Dates {
			status, ok := index[student.ID+"|"+date]
			if !ok {
				// No record on a scheduled date is the canonical
				// Absent signal.
				status = models.AttendanceStatusAbsent
			}
			row.Statuses[date] = status
			if status == models.AttendanceStatusPresent || (lateCountsAsPresent && status == models.AttendanceStatusLate) {
				row.PresentCount++
			}
		}
		row.Summary = fmt.Sprintf("%d / %d", row.PresentCount, total)
		report.Students = append(report.Students, row)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache report", zap.String("class_id", classID), zap.Error(err))
		}
	}
	return report, nil
}

// expandClassDates enumerates every date in [start, end] whose weekday the
// class meets on, in chronological order.
func expandClassDates(start, end time.Time, meets map[models.DayOfWeek]bool) []string {
	dates := []string{}
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for !day.After(last) {
		if meets[models.DayOfWeekFor(day.Weekday())] {
			dates = append(dates, day.Format(dateLayout))
		}
		day = day.AddDate(0, 0, 1)
	}
	return dates
}

func reportCacheKey(classID string, start, end time.Time) string {
	return fmt.Sprintf("report:%s:%s:%s", classID, start.Format(dateLayout), end.Format(dateLayout))
}

func reportCacheKeyPattern(classID string) string {
	return fmt.Sprintf("report:%s:*", classID)
}
