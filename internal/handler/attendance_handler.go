package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rollcall-dev/rollcall-api/internal/service"
	appErrors "github.com/rollcall-dev/rollcall-api/pkg/errors"
	"github.com/rollcall-dev/rollcall-api/pkg/response"
)

// AttendanceHandler exposes the scan endpoint and attendance history.
type AttendanceHandler struct {
	service  *service.AttendanceService
	location *time.Location
}

// NewAttendanceHandler constructs an attendance handler. location is the
// school's local timezone used to interpret scan timestamps.
func NewAttendanceHandler(svc *service.AttendanceService, location *time.Location) *AttendanceHandler {
	if location == nil {
		location = time.Local
	}
	return &AttendanceHandler{service: svc, location: location}
}

// Scan godoc
// @Summary Record an attendance scan
// @Description Validates the scan against the class schedule and records Present or Late.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.ScanRequest true "Scan payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/attendance/scan [post]
func (h *AttendanceHandler) Scan(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scan payload"))
		return
	}
	result, err := h.service.Resolve(c.Request.Context(), claims.TeacherID, c.Param("id"), req, time.Now().In(h.location))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// History godoc
// @Summary Attendance history for one student in a class
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/students/{studentId}/attendance [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	records, err := h.service.History(c.Request.Context(), claims.TeacherID, c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
