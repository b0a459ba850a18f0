package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/rollcall-dev/rollcall-api/internal/middleware"
	"github.com/rollcall-dev/rollcall-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth       *AuthHandler
	Class      *ClassHandler
	Student    *StudentHandler
	Enrollment *EnrollmentHandler
	Attendance *AttendanceHandler
	Report     *ReportHandler
	Badge      *BadgeHandler
}

// RegisterRoutes mounts the API surface under the given prefix. Everything
// except auth, health and metrics requires a valid token.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, authSvc *service.AuthService, metricsSvc *service.MetricsService) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	classes := protected.Group("/classes")
	classes.GET("", h.Class.List)
	classes.POST("", h.Class.Create)
	classes.GET("/:id", h.Class.Get)
	classes.PUT("/:id", h.Class.Update)
	classes.DELETE("/:id", h.Class.Delete)
	classes.GET("/:id/schedule", h.Class.Schedule)

	classes.GET("/:id/students", h.Enrollment.Roster)
	classes.POST("/:id/students", h.Enrollment.Enroll)
	classes.GET("/:id/students/unenrolled", h.Enrollment.Unenrolled)
	classes.DELETE("/:id/students/:studentId", h.Enrollment.Unenroll)
	classes.GET("/:id/students/:studentId/attendance", h.Attendance.History)

	classes.POST("/:id/attendance/scan", h.Attendance.Scan)
	classes.POST("/:id/import", h.Student.Import)

	classes.GET("/:id/report", h.Report.Report)
	classes.GET("/:id/report/export.csv", h.Report.ExportCSV)
	classes.GET("/:id/report/export.pdf", h.Report.ExportPDF)
	classes.GET("/:id/report/records.csv", h.Report.RecordsCSV)

	students := protected.Group("/students")
	students.GET("", h.Student.List)
	students.POST("", h.Student.Create)
	students.GET("/:id", h.Student.Get)
	students.PUT("/:id", h.Student.Update)
	students.DELETE("/:id", h.Student.Delete)
	students.GET("/:id/badge/qr.png", h.Badge.QRCode)
	students.GET("/:id/badge/barcode.png", h.Badge.Barcode)

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
}
