package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-lms-api/api/swagger"
	"github.com/noah-isme/campus-lms-api/internal/repository"
	"github.com/noah-isme/campus-lms-api/internal/service"
	"github.com/noah-isme/campus-lms-api/pkg/cache"
	"github.com/noah-isme/campus-lms-api/pkg/config"
	"github.com/noah-isme/campus-lms-api/pkg/database"
	"github.com/noah-isme/campus-lms-api/pkg/export"
	"github.com/noah-isme/campus-lms-api/pkg/jobs"
	"github.com/noah-isme/campus-lms-api/pkg/logger"
	"github.com/noah-isme/campus-lms-api/pkg/realtime"
	"github.com/noah-isme/campus-lms-api/pkg/semester"
	"github.com/noah-isme/campus-lms-api/pkg/storage"
)

// @title Campus LMS API
// @version 1.0.0
// @description Dashboard API for courses, attendance, coursework, forums, evaluations and reports.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, cfg.Redis.KeyPrefix, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Reports.ChartCacheTTL, logr, cacheRepo != nil)

	validate := validator.New()

	scheme, err := semester.ParseScheme(cfg.Evaluations.SemesterScheme)
	if err != nil {
		logr.Fatal("invalid semester scheme", zap.Error(err))
	}

	uploads, err := storage.NewLocalStorage(cfg.Storage.UploadDir)
	if err != nil {
		logr.Fatal("failed to prepare upload directory", zap.Error(err))
	}
	exportsDir, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export directory", zap.Error(err))
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	teachingRepo := repository.NewTeachingAssignmentRepository(db)
	sessionRepo := repository.NewClassSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	deadlineRepo := repository.NewDeadlineRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	scholarshipRepo := repository.NewScholarshipRepository(db)
	discussionRepo := repository.NewDiscussionRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	chartRepo := repository.NewChartRepository(db)
	exportRepo := repository.NewExportRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Services.
	access := service.NewCourseAccess(enrollmentRepo, teachingRepo)
	charts := service.NewChartService(chartRepo, cacheSvc, metrics, cfg.Reports.ChartCacheTTL, logr)
	files := service.NewUploadService(uploads, service.UploadConfig{
		MaxFileSize:   cfg.Storage.MaxFileSizeBytes,
		AllowedMIMEs:  cfg.Storage.AllowedMIMEs,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		PublicPath:    cfg.Storage.PublicPath,
	}, logr)

	authSvc := service.NewAuthService(userRepo, activityRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		ClockSkew:          cfg.JWT.ClockSkew,
	})
	userSvc := service.NewUserService(userRepo, activityRepo, validate, logr)
	activitySvc := service.NewActivityService(activityRepo, logr)
	courseSvc := service.NewCourseService(courseRepo, enrollmentRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, userRepo, access, charts, validate, logr)
	teachingSvc := service.NewTeachingService(teachingRepo, courseRepo, userRepo, validate, logr)
	sessionSvc := service.NewClassSessionService(sessionRepo, access, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, enrollmentRepo, sessionRepo, access, charts, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, files, access, charts, validate, logr)
	materialSvc := service.NewMaterialService(materialRepo, files, access, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, access, validate, logr)
	deadlineSvc := service.NewDeadlineService(deadlineRepo, access, validate, logr)
	complaintSvc := service.NewComplaintService(complaintRepo, charts, validate, logr)
	scholarshipSvc := service.NewScholarshipService(scholarshipRepo, charts, validate, logr)
	evaluationSvc := service.NewEvaluationService(evaluationRepo, access, semester.NewDeriver(scheme, nil), metrics, validate, logr)
	navigationSvc := service.NewNavigationService(service.NavigationCounters{
		Announcements: announcementSvc,
		Evaluations:   evaluationSvc,
		Deadlines:     deadlineSvc,
		Complaints:    complaintSvc,
		Applications:  scholarshipSvc,
	}, cacheSvc, cfg.Navigation.BadgeCacheTTL, logr)

	hub := realtime.NewHub(logr)
	metrics.SetRealtimeSource(hub.ClientCount)
	go hub.Run(ctx)
	discussionSvc := service.NewDiscussionService(discussionRepo, access, hub, !cfg.Realtime.Enabled, validate, logr)
	if cfg.Realtime.Enabled {
		listener := realtime.NewListener(cfg.Database.DSN(), cfg.Realtime.Channel, cfg.Realtime.MinReconnectInterval, cfg.Realtime.MaxReconnectInterval, logr)
		go func() {
			if err := listener.Run(ctx, discussionSvc.Relay); err != nil && !errors.Is(err, context.Canceled) {
				logr.Error("discussion listener stopped", zap.Error(err))
			}
		}()
	}

	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportSvc := service.NewExportService(exportRepo, exportsDir, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, export.NewCSVExporter(), export.NewPDFExporter())

	worker := service.NewReportWorker(reportRepo, exportSvc, metrics, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:       cfg.Reports.WorkerConcurrency,
		MaxRetries:    cfg.Reports.WorkerRetries,
		RetryDelay:    2 * time.Second,
		MaxRetryDelay: time.Minute,
		Logger:        logr,
	})
	metrics.SetQueueSource(queue.Depth)
	reportSvc := service.NewReportService(reportRepo, queue, exportSvc, validate, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})
	if cfg.Reports.Enabled {
		queue.Start(ctx)
		defer queue.Stop()
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	router := newRouter(cfg, logr, routerDeps{
		db:            db,
		metrics:       metrics,
		activity:      activityRepo,
		auth:          authSvc,
		users:         userSvc,
		activityLog:   activitySvc,
		courses:       courseSvc,
		enrollments:   enrollmentSvc,
		teaching:      teachingSvc,
		sessions:      sessionSvc,
		attendance:    attendanceSvc,
		assignments:   assignmentSvc,
		materials:     materialSvc,
		announcements: announcementSvc,
		deadlines:     deadlineSvc,
		complaints:    complaintSvc,
		scholarships:  scholarshipSvc,
		discussions:   discussionSvc,
		evaluations:   evaluationSvc,
		navigation:    navigationSvc,
		reports:       reportSvc,
		charts:        charts,
		exports:       exportSvc,
		hub:           hub,
		upgrader:      realtime.NewUpgrader(cfg.CORS.AllowedOrigins),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
