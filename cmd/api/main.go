package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/hazelpoint/tutorhub-api/api/swagger"
	"github.com/hazelpoint/tutorhub-api/internal/handler"
	"github.com/hazelpoint/tutorhub-api/internal/middleware"
	"github.com/hazelpoint/tutorhub-api/internal/models"
	"github.com/hazelpoint/tutorhub-api/internal/repository"
	"github.com/hazelpoint/tutorhub-api/internal/service"
	"github.com/hazelpoint/tutorhub-api/pkg/cache"
	"github.com/hazelpoint/tutorhub-api/pkg/config"
	"github.com/hazelpoint/tutorhub-api/pkg/database"
	"github.com/hazelpoint/tutorhub-api/pkg/logger"
	"github.com/hazelpoint/tutorhub-api/pkg/mail"
	corsmiddleware "github.com/hazelpoint/tutorhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/hazelpoint/tutorhub-api/pkg/middleware/requestid"
)

// @title TutorHub API
// @version 1.0.0
// @description Back office and reporting API for the tutoring business
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	// Cache is optional: a missing Redis degrades to direct reads.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	timeLogRepo := repository.NewTimeLogRepository(db)
	reportRepo := repository.NewReportRepository(db)
	testimonialRepo := repository.NewTestimonialRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	staffSvc := service.NewStaffService(staffRepo, userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, userRepo, validate, logr)
	groupSvc := service.NewGroupService(groupRepo, staffRepo, studentRepo, validate, logr)
	timeLogSvc := service.NewTimeLogService(timeLogRepo, staffRepo, studentRepo, groupRepo, validate, logr)

	var mailer mail.Mailer
	switch cfg.Mail.Provider {
	case config.MailProviderSendgrid:
		mailer = mail.NewSendgridMailer(cfg.Mail)
	default:
		mailer = mail.NewConsoleMailer(logr)
	}

	reportSvc := service.NewReportService(reportRepo, staffRepo, timeLogSvc, userRepo, mailer, metricsSvc, validate, logr, service.ReportConfig{
		AttachPDF: cfg.Reports.AttachPDF,
	})
	dashboardSvc := service.NewDashboardService(timeLogSvc, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	testimonialSvc := service.NewTestimonialService(testimonialRepo, cacheSvc, cfg.Testimonials.CacheTTL, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	staffHandler := handler.NewStaffHandler(staffSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	groupHandler := handler.NewGroupHandler(groupSvc)
	timeLogHandler := handler.NewTimeLogHandler(timeLogSvc, staffSvc)
	reportHandler := handler.NewReportHandler(reportSvc, cfg.Reports.CronSecret)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, staffSvc, studentSvc)
	testimonialHandler := handler.NewTestimonialHandler(testimonialSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	// Public marketing surface, no auth.
	api.GET("/testimonials", testimonialHandler.ListPublic)

	// Scheduler callback authenticates with a shared secret, not a JWT.
	api.POST("/reports/cron", reportHandler.Cron)

	admin := middleware.RequireRoles(models.RoleAdmin)
	adminOrStaff := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)

	users := api.Group("/users", middleware.JWT(authSvc), admin)
	{
		users.GET("", userHandler.List)
		users.POST("", middleware.Audit(userRepo, "CREATE", "users"), userHandler.Create)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", middleware.Audit(userRepo, "UPDATE", "users"), userHandler.Update)
		users.DELETE("/:id", middleware.Audit(userRepo, "DELETE", "users"), userHandler.Deactivate)
	}

	staff := api.Group("/staff", middleware.JWT(authSvc))
	{
		staff.GET("", adminOrStaff, staffHandler.List)
		staff.GET("/:id", adminOrStaff, staffHandler.Get)
		staff.POST("", admin, middleware.Audit(userRepo, "CREATE", "staff"), staffHandler.Create)
		staff.PUT("/:id", admin, middleware.Audit(userRepo, "UPDATE", "staff"), staffHandler.Update)
		staff.DELETE("/:id", admin, middleware.Audit(userRepo, "DELETE", "staff"), staffHandler.Deactivate)
		staff.DELETE("/:id/purge", admin, middleware.Audit(userRepo, "PURGE", "staff"), staffHandler.Delete)
	}

	students := api.Group("/students", middleware.JWT(authSvc), adminOrStaff)
	{
		students.GET("", studentHandler.List)
		students.GET("/:id", studentHandler.Get)
		students.POST("", middleware.Audit(userRepo, "CREATE", "students"), studentHandler.Create)
		students.PUT("/:id", middleware.Audit(userRepo, "UPDATE", "students"), studentHandler.Update)
		students.DELETE("/:id", middleware.Audit(userRepo, "DELETE", "students"), studentHandler.Deactivate)
		students.DELETE("/:id/purge", admin, middleware.Audit(userRepo, "PURGE", "students"), studentHandler.Delete)
	}

	groups := api.Group("/groups", middleware.JWT(authSvc), adminOrStaff)
	{
		groups.GET("", groupHandler.List)
		groups.GET("/:id", groupHandler.Get)
		groups.POST("", middleware.Audit(userRepo, "CREATE", "groups"), groupHandler.Create)
		groups.PUT("/:id", middleware.Audit(userRepo, "UPDATE", "groups"), groupHandler.Update)
		groups.DELETE("/:id", middleware.Audit(userRepo, "DELETE", "groups"), groupHandler.Delete)
	}

	timeLogs := api.Group("/time-logs", middleware.JWT(authSvc), adminOrStaff)
	{
		timeLogs.GET("", timeLogHandler.List)
		timeLogs.GET("/summary", timeLogHandler.Summary)
		timeLogs.GET("/:id", timeLogHandler.Get)
		timeLogs.POST("", middleware.Audit(userRepo, "CREATE", "time_logs"), timeLogHandler.Create)
		timeLogs.PUT("/:id", middleware.Audit(userRepo, "UPDATE", "time_logs"), timeLogHandler.Update)
		timeLogs.DELETE("/:id", middleware.Audit(userRepo, "DELETE", "time_logs"), timeLogHandler.Delete)
	}

	reports := api.Group("/reports", middleware.JWT(authSvc))
	{
		reports.GET("", adminOrStaff, reportHandler.List)
		reports.GET("/export", admin, reportHandler.ExportCSV)
		reports.GET("/:id", adminOrStaff, reportHandler.Get)
		reports.POST("/generate", admin, middleware.Audit(userRepo, "GENERATE", "reports"), reportHandler.Generate)
		reports.POST("/:id/resend", admin, middleware.Audit(userRepo, "RESEND", "reports"), reportHandler.Resend)
	}

	dashboards := api.Group("/dashboards", middleware.JWT(authSvc))
	{
		dashboards.GET("/me", dashboardHandler.Me)
		dashboards.GET("/staff/:id", adminOrStaff, dashboardHandler.Staff)
		dashboards.GET("/students/:id", dashboardHandler.Student)
	}

	adminTestimonials := api.Group("/admin/testimonials", middleware.JWT(authSvc), admin)
	{
		adminTestimonials.GET("", testimonialHandler.List)
		adminTestimonials.POST("", testimonialHandler.Create)
		adminTestimonials.PUT("/:id", testimonialHandler.Update)
		adminTestimonials.DELETE("/:id", testimonialHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
