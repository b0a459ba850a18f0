package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rollcall-dev/rollcall-api/internal/service"
	appErrors "github.com/rollcall-dev/rollcall-api/pkg/errors"
	"github.com/rollcall-dev/rollcall-api/pkg/response"
)

// ReportHandler exposes the attendance report matrix and its downloads.
type ReportHandler struct {
	reports *service.ReportService
	exports *service.ExportService
}

// NewReportHandler constructs a report handler.
func NewReportHandler(reports *service.ReportService, exports *service.ExportService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// Report godoc
// @Summary Attendance report matrix for a date range
// @Description One row per enrolled student, one column per scheduled class date.
// @Tags Reports
// @Produce json
// @Param id path string true "Class ID"
// @Param start_date query string true "Range start (YYYY-MM-DD)"
// @Param end_date query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/report [get]
func (h *ReportHandler) Report(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start, err := queryDate(c, "start_date")
	if err != nil {
		response.Error(c, err)
		return
	}
	end, err := queryDate(c, "end_date")
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.reports.Build(c.Request.Context(), claims.TeacherID, c.Param("id"), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ExportCSV godoc
// @Summary Download the report matrix as CSV
// @Tags Reports
// @Produce text/csv
// @Param id path string true "Class ID"
// @Param start_date query string true "Range start (YYYY-MM-DD)"
// @Param end_date query string true "Range end (YYYY-MM-DD)"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /classes/{id}/report/export.csv [get]
func (h *ReportHandler) ExportCSV(c *gin.Context) {
	h.download(c, h.exports.ReportCSV)
}

// ExportPDF godoc
// @Summary Download the report matrix as PDF
// @Tags Reports
// @Produce application/pdf
// @Param id path string true "Class ID"
// @Param start_date query string true "Range start (YYYY-MM-DD)"
// @Param end_date query string true "Range end (YYYY-MM-DD)"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /classes/{id}/report/export.pdf [get]
func (h *ReportHandler) ExportPDF(c *gin.Context) {
	h.download(c, h.exports.ReportPDF)
}

// RecordsCSV godoc
// @Summary Download the raw scan log as CSV
// @Tags Reports
// @Produce text/csv
// @Param id path string true "Class ID"
// @Param start_date query string true "Range start (YYYY-MM-DD)"
// @Param end_date query string true "Range end (YYYY-MM-DD)"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /classes/{id}/report/records.csv [get]
func (h *ReportHandler) RecordsCSV(c *gin.Context) {
	h.download(c, h.exports.RecordsCSV)
}

type exportFunc func(ctx context.Context, teacherID, classID string, start, end time.Time) (*service.ExportFile, error)

func (h *ReportHandler) download(c *gin.Context, render exportFunc) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start, err := queryDate(c, "start_date")
	if err != nil {
		response.Error(c, err)
		return
	}
	end, err := queryDate(c, "end_date")
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := render(c.Request.Context(), claims.TeacherID, c.Param("id"), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Body)
}
