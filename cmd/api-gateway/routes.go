package main

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/handler"
	"github.com/noah-isme/campus-lms-api/internal/middleware"
	"github.com/noah-isme/campus-lms-api/internal/models"
	"github.com/noah-isme/campus-lms-api/internal/service"
	"github.com/noah-isme/campus-lms-api/pkg/config"
	"github.com/noah-isme/campus-lms-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-lms-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-lms-api/pkg/realtime"
)

type routerDeps struct {
	db       *sqlx.DB
	metrics  *service.MetricsService
	activity middleware.ActivityRecorder

	auth          *service.AuthService
	users         *service.UserService
	activityLog   *service.ActivityService
	courses       *service.CourseService
	enrollments   *service.EnrollmentService
	teaching      *service.TeachingService
	sessions      *service.ClassSessionService
	attendance    *service.AttendanceService
	assignments   *service.AssignmentService
	materials     *service.MaterialService
	announcements *service.AnnouncementService
	deadlines     *service.DeadlineService
	complaints    *service.ComplaintService
	scholarships  *service.ScholarshipService
	discussions   *service.DiscussionService
	evaluations   *service.EvaluationService
	navigation    *service.NavigationService
	reports       *service.ReportService
	charts        *service.ChartService
	exports       *service.ExportService
	hub           *realtime.Hub
	upgrader      websocket.Upgrader
}

func newRouter(cfg *config.Config, logr *zap.Logger, d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.metrics))

	metricsHandler := handler.NewMetricsHandler(d.metrics, d.db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.Group(cfg.Storage.PublicPath, middleware.ServeAsAttachment()).Static("/", cfg.Storage.UploadDir)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(d.auth)
	userHandler := handler.NewUserHandler(d.users)
	activityHandler := handler.NewActivityHandler(d.activityLog)
	courseHandler := handler.NewCourseHandler(d.courses)
	enrollmentHandler := handler.NewEnrollmentHandler(d.enrollments)
	teachingHandler := handler.NewTeachingHandler(d.teaching)
	sessionHandler := handler.NewClassSessionHandler(d.sessions)
	attendanceHandler := handler.NewAttendanceHandler(d.attendance)
	assignmentHandler := handler.NewAssignmentHandler(d.assignments)
	materialHandler := handler.NewMaterialHandler(d.materials)
	announcementHandler := handler.NewAnnouncementHandler(d.announcements)
	deadlineHandler := handler.NewDeadlineHandler(d.deadlines)
	complaintHandler := handler.NewComplaintHandler(d.complaints)
	scholarshipHandler := handler.NewScholarshipHandler(d.scholarships)
	discussionHandler := handler.NewDiscussionHandler(d.discussions, d.hub, d.upgrader, logr)
	evaluationHandler := handler.NewEvaluationHandler(d.evaluations)
	navigationHandler := handler.NewNavigationHandler(d.navigation)
	reportHandler := handler.NewReportHandler(d.reports, d.charts, d.exports)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(d.activity, logr, action, resource)
	}
	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty)
	student := middleware.RequireRoles(models.RoleStudent)
	members := middleware.RequireRoles(models.RoleStudent, models.RoleFaculty)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)

	// Signed tokens authorize the download on their own.
	api.GET("/export/:token", reportHandler.DownloadReport)
	api.GET("/ws/discussions", middleware.JWTQuery(d.auth), discussionHandler.Stream)

	secured := api.Group("")
	secured.Use(middleware.JWT(d.auth))

	secured.GET("/auth/me", authHandler.Me)
	secured.POST("/auth/logout", authHandler.Logout)
	secured.POST("/auth/change-password", audit("CHANGE_PASSWORD", "user"), authHandler.ChangePassword)
	secured.GET("/navigation", navigationHandler.Get)

	users := secured.Group("/users")
	users.GET("", admin, userHandler.List)
	users.GET("/:id", middleware.SelfOrRoles("id", models.RoleAdmin), userHandler.Get)
	users.POST("", admin, audit("CREATE", "user"), userHandler.Create)
	users.PUT("/:id", admin, audit("UPDATE", "user"), userHandler.Update)
	users.DELETE("/:id", admin, audit("DEACTIVATE", "user"), userHandler.Delete)

	secured.GET("/activity-logs", admin, activityHandler.List)

	courses := secured.Group("/courses")
	courses.GET("", courseHandler.List)
	courses.GET("/:id", courseHandler.Get)
	courses.POST("", admin, audit("CREATE", "course"), courseHandler.Create)
	courses.PUT("/:id", admin, audit("UPDATE", "course"), courseHandler.Update)
	courses.DELETE("/:id", admin, audit("DELETE", "course"), courseHandler.Delete)
	courses.GET("/:id/sessions", sessionHandler.List)
	courses.POST("/:id/sessions", staff, audit("CREATE", "class_session"), sessionHandler.Create)
	courses.GET("/:id/assignments", assignmentHandler.List)
	courses.POST("/:id/assignments", staff, audit("CREATE", "assignment"), assignmentHandler.Create)
	courses.GET("/:id/materials", materialHandler.List)
	courses.POST("/:id/materials", staff, audit("UPLOAD", "study_material"), materialHandler.Upload)
	courses.GET("/:id/discussions", discussionHandler.List)
	courses.POST("/:id/discussions", audit("CREATE", "discussion"), discussionHandler.Create)
	courses.GET("/:id/evaluation", student, evaluationHandler.Status)
	courses.POST("/:id/evaluation", student, evaluationHandler.Submit)
	courses.GET("/:id/evaluations/summary", staff, evaluationHandler.Summary)

	enrollments := secured.Group("/enrollments")
	enrollments.GET("", staff, enrollmentHandler.List)
	enrollments.POST("", audit("CREATE", "enrollment"), enrollmentHandler.Create)
	enrollments.DELETE("/:id", admin, audit("DELETE", "enrollment"), enrollmentHandler.Delete)

	secured.GET("/tutors", admin, teachingHandler.Tutors)
	teaching := secured.Group("/teaching-assignments", admin)
	teaching.GET("", teachingHandler.List)
	teaching.POST("", audit("CREATE", "teaching_assignment"), teachingHandler.Create)
	teaching.DELETE("/:id", audit("DELETE", "teaching_assignment"), teachingHandler.Delete)

	sessions := secured.Group("/sessions")
	sessions.DELETE("/:id", staff, audit("DELETE", "class_session"), sessionHandler.Delete)
	sessions.GET("/:id/attendance", staff, attendanceHandler.Sheet)
	sessions.POST("/:id/attendance/:userId/toggle", staff, audit("TOGGLE", "attendance"), attendanceHandler.Toggle)
	secured.GET("/attendance/me", student, attendanceHandler.Mine)

	assignments := secured.Group("/assignments")
	assignments.PUT("/:id", staff, audit("UPDATE", "assignment"), assignmentHandler.Update)
	assignments.DELETE("/:id", staff, audit("DELETE", "assignment"), assignmentHandler.Delete)
	assignments.POST("/:id/submissions", student, audit("SUBMIT", "assignment_submission"), assignmentHandler.Submit)
	assignments.GET("/:id/submissions", staff, assignmentHandler.Submissions)
	secured.PUT("/submissions/:id/grade", staff, audit("GRADE", "assignment_submission"), assignmentHandler.Grade)
	secured.GET("/grades/me", student, assignmentHandler.MyGrades)

	secured.DELETE("/materials/:id", staff, audit("DELETE", "study_material"), materialHandler.Delete)

	announcements := secured.Group("/announcements")
	announcements.GET("", announcementHandler.List)
	announcements.POST("", staff, audit("CREATE", "announcement"), announcementHandler.Create)
	announcements.PUT("/:id", staff, audit("UPDATE", "announcement"), announcementHandler.Update)
	announcements.DELETE("/:id", staff, audit("DELETE", "announcement"), announcementHandler.Delete)

	deadlines := secured.Group("/deadlines")
	deadlines.GET("/me", members, deadlineHandler.Mine)
	deadlines.POST("", staff, audit("CREATE", "deadline"), deadlineHandler.Create)
	deadlines.DELETE("/:id", staff, audit("DELETE", "deadline"), deadlineHandler.Delete)

	complaints := secured.Group("/complaints")
	complaints.GET("", complaintHandler.List)
	complaints.POST("", student, audit("CREATE", "complaint"), complaintHandler.Create)
	complaints.PATCH("/:id/status", admin, audit("UPDATE_STATUS", "complaint"), complaintHandler.UpdateStatus)

	scholarships := secured.Group("/scholarships")
	scholarships.GET("", scholarshipHandler.List)
	scholarships.GET("/:id", scholarshipHandler.Get)
	scholarships.POST("", admin, audit("CREATE", "scholarship"), scholarshipHandler.Create)
	scholarships.PUT("/:id", admin, audit("UPDATE", "scholarship"), scholarshipHandler.Update)
	scholarships.DELETE("/:id", admin, audit("DELETE", "scholarship"), scholarshipHandler.Delete)
	scholarships.POST("/:id/applications", student, audit("APPLY", "scholarship_application"), scholarshipHandler.Apply)
	secured.GET("/scholarship-applications", scholarshipHandler.Applications)
	secured.PATCH("/scholarship-applications/:id/status", admin, audit("UPDATE_STATUS", "scholarship_application"), scholarshipHandler.UpdateApplicationStatus)

	discussions := secured.Group("/discussions")
	discussions.GET("/:id", discussionHandler.Get)
	discussions.POST("/:id/comments", audit("COMMENT", "discussion"), discussionHandler.Comment)
	discussions.POST("/:id/upvote", discussionHandler.UpvoteDiscussion)
	discussions.DELETE("/:id", audit("DELETE", "discussion"), discussionHandler.Delete)
	secured.POST("/comments/:id/upvote", discussionHandler.UpvoteComment)

	secured.GET("/evaluations/pending", student, evaluationHandler.Pending)

	reports := secured.Group("/reports", admin)
	if cfg.Reports.Enabled {
		reports.POST("/jobs", audit("CREATE", "report_job"), reportHandler.GenerateReport)
		reports.GET("/jobs", reportHandler.ListJobs)
		reports.GET("/jobs/:id", reportHandler.ReportStatus)
	}
	reports.GET("/:type", reportHandler.Chart)
	secured.GET("/exports/:dataset", admin, audit("EXPORT", "dataset"), reportHandler.Export)
	secured.GET("/metrics/summary", admin, metricsHandler.Summary)

	return r
}
