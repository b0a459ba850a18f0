package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollcall-dev/rollcall-api/internal/middleware"
	"github.com/rollcall-dev/rollcall-api/internal/models"
	"github.com/rollcall-dev/rollcall-api/internal/service"
)

type scanStudentStub struct{ student *models.Student }

func (s scanStudentStub) FindByIDNum(ctx context.Context, idNum string) (*models.Student, error) {
	if s.student == nil || s.student.StudentIDNum != idNum {
		return nil, sql.ErrNoRows
	}
	return s.student, nil
}

type scanClassStub struct{ class *models.Class }

func (s scanClassStub) FindForTeacher(ctx context.Context, id, teacherID string) (*models.Class, error) {
	if s.class == nil || s.class.TeacherID != teacherID {
		return nil, sql.ErrNoRows
	}
	return s.class, nil
}

type scanScheduleStub struct{ entry *models.ClassSchedule }

func (s scanScheduleStub) FindByClassAndDay(ctx context.Context, classID string, day models.DayOfWeek) (*models.ClassSchedule, error) {
	if s.entry == nil || s.entry.DayOfWeek != day {
		return nil, sql.ErrNoRows
	}
	return s.entry, nil
}

type scanRecordStub struct{}

func (scanRecordStub) FindByStudentClassDate(ctx context.Context, studentID, classID string, date time.Time) (*models.AttendanceRecord, error) {
	return nil, sql.ErrNoRows
}

func (scanRecordStub) CreateWithStudentStatus(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, bool, error) {
	record.ID = "rec-1"
	return record, false, nil
}

func (scanRecordStub) HistoryByStudentClass(ctx context.Context, studentID, classID string) ([]models.AttendanceRecord, error) {
	return nil, nil
}

func scanRouter(t *testing.T, entry *models.ClassSchedule) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := service.NewAttendanceService(
		scanStudentStub{student: &models.Student{ID: "stu-1", StudentIDNum: "S-1001", FirstName: "Ana", LastName: "Reyes"}},
		scanClassStub{class: &models.Class{ID: "class-1", TeacherID: "teacher-1", Name: "Biology"}},
		scanScheduleStub{entry: entry},
		scanRecordStub{},
		nil, nil, nil, nil, nil,
	)
	h := NewAttendanceHandler(svc, time.UTC)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{TeacherID: "teacher-1", Username: "mr.cruz"})
	})
	r.POST("/classes/:id/attendance/scan", h.Scan)
	return r
}

func allDaySession() *models.ClassSchedule {
	return &models.ClassSchedule{
		ID:        "sched-1",
		ClassID:   "class-1",
		DayOfWeek: models.DayOfWeekFor(time.Now().UTC().Weekday()),
		StartTime: "00:00:00",
		EndTime:   "23:59:59",
	}
}

func TestScanEndpointRecordsAttendance(t *testing.T) {
	r := scanRouter(t, allDaySession())

	req := httptest.NewRequest(http.MethodPost, "/classes/class-1/attendance/scan",
		strings.NewReader(`{"student_id_num":"S-1001"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data models.ScanResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "stu-1", envelope.Data.StudentID)
	assert.False(t, envelope.Data.AlreadyRecorded)
}

func TestScanEndpointRejectsUnknownStudent(t *testing.T) {
	r := scanRouter(t, allDaySession())

	req := httptest.NewRequest(http.MethodPost, "/classes/class-1/attendance/scan",
		strings.NewReader(`{"student_id_num":"NOPE"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScanEndpointRejectsMissingPayload(t *testing.T) {
	r := scanRouter(t, allDaySession())

	req := httptest.NewRequest(http.MethodPost, "/classes/class-1/attendance/scan",
		strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanEndpointNoScheduleToday(t *testing.T) {
	// Schedule pinned to a different weekday than today.
	wrongDay := models.DayOfWeekFor(time.Now().UTC().AddDate(0, 0, 1).Weekday())
	r := scanRouter(t, &models.ClassSchedule{
		DayOfWeek: wrongDay,
		StartTime: "00:00:00",
		EndTime:   "23:59:59",
	})

	req := httptest.NewRequest(http.MethodPost, "/classes/class-1/attendance/scan",
		strings.NewReader(`{"student_id_num":"S-1001"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
