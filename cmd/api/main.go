package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/rollcall-dev/rollcall-api/api/swagger"
	"github.com/rollcall-dev/rollcall-api/internal/handler"
	"github.com/rollcall-dev/rollcall-api/internal/middleware"
	"github.com/rollcall-dev/rollcall-api/internal/repository"
	"github.com/rollcall-dev/rollcall-api/internal/service"
	"github.com/rollcall-dev/rollcall-api/pkg/cache"
	"github.com/rollcall-dev/rollcall-api/pkg/config"
	"github.com/rollcall-dev/rollcall-api/pkg/database"
	"github.com/rollcall-dev/rollcall-api/pkg/logger"
	corsmiddleware "github.com/rollcall-dev/rollcall-api/pkg/middleware/cors"
	reqidmiddleware "github.com/rollcall-dev/rollcall-api/pkg/middleware/requestid"
)

// @title Rollcall API
// @version 1.0.0
// @description Barcode attendance tracking for classrooms
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("invalid timezone", "timezone", cfg.Timezone, "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	metricsSvc := service.NewMetricsService()
	notifySvc := service.NewNotifyService(cfg.Twilio, logr)

	authSvc := service.NewAuthService(teacherRepo, nil, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	classSvc := service.NewClassService(classRepo, scheduleRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, classRepo, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, classRepo, studentRepo, nil, logr)
	attendanceSvc := service.NewAttendanceService(studentRepo, classRepo, scheduleRepo, attendanceRepo, notifySvc, metricsSvc, cacheRepo, nil, logr)
	reportSvc := service.NewReportService(classRepo, scheduleRepo, enrollmentRepo, attendanceRepo, cacheRepo, cfg.Reports.CacheTTL, metricsSvc, logr)
	exportSvc := service.NewExportService(reportSvc, classRepo, attendanceRepo, logr)
	badgeSvc := service.NewBadgeService(studentRepo, logr)

	handlers := handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Class:      handler.NewClassHandler(classSvc),
		Student:    handler.NewStudentHandler(studentSvc),
		Enrollment: handler.NewEnrollmentHandler(enrollmentSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc, location),
		Report:     handler.NewReportHandler(reportSvc, exportSvc),
		Badge:      handler.NewBadgeHandler(badgeSvc),
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authSvc, metricsSvc)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "timezone", cfg.Timezone)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
