package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/access"
	"github.com/noah-isme/complaint-desk-api/internal/handler"
	"github.com/noah-isme/complaint-desk-api/internal/middleware"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/service"
	"github.com/noah-isme/complaint-desk-api/pkg/config"
	"github.com/noah-isme/complaint-desk-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/complaint-desk-api/pkg/middleware/cors"
	"github.com/noah-isme/complaint-desk-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/complaint-desk-api/pkg/middleware/requestid"
	timeoutmiddleware "github.com/noah-isme/complaint-desk-api/pkg/middleware/timeout"
	"github.com/noah-isme/complaint-desk-api/pkg/tracing"
)

const realtimePath = "/api/realtime/ws"

type routerDeps struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *service.MetricsService
	sessions   *middleware.Sessions
	classifier *access.Classifier
	limiter    *ratelimit.Limiter
	audit      middleware.AuditWriter

	auth          *handler.AuthHandler
	complaints    *handler.ComplaintHandler
	dashboards    *handler.DashboardHandler
	notifications *handler.NotificationHandler
	profiles      *handler.ProfileHandler
	monitoring    *handler.MonitoringHandler
	realtime      *handler.RealtimeHandler
	health        *handler.MetricsHandler
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(tracing.GinMiddleware())
	r.Use(logger.GinMiddleware(d.logger))
	r.Use(middleware.Metrics(d.metrics))
	r.Use(corsmiddleware.New(d.cfg.CORS.AllowedOrigins))
	r.Use(timeoutmiddleware.Middleware(d.cfg.BackendTimeout, realtimePath))
	r.Use(middleware.AccessControl(d.classifier, d.sessions, d.metrics, d.logger))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", d.health.Health)
	r.GET("/ready", d.health.Ready)
	r.GET("/metrics", d.health.Prometheus)
	if d.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.GET("/", d.auth.Landing)

	auth := r.Group("/auth")
	auth.GET("/login", d.auth.LoginPage)
	auth.GET("/register", d.auth.RegisterPage)
	auth.POST("/login", d.limiter.Middleware(), d.auth.Login)
	auth.POST("/register", d.limiter.Middleware(), d.auth.Register)

	api := r.Group("/api")
	api.POST("/profiles", d.limiter.Middleware(), d.profiles.LookupBody)
	api.GET("/profiles", d.limiter.Middleware(), d.profiles.LookupQuery)
	api.POST("/monitoring/error", d.limiter.Middleware(), d.monitoring.ReportError)
	api.POST("/monitoring/performance", d.limiter.Middleware(), d.monitoring.ReportPerformance)

	authed := api.Group("", d.sessions.Require())
	authed.POST("/auth/logout", d.auth.Logout)
	authed.GET("/auth/me", d.auth.Me)
	authed.GET("/notifications", d.notifications.List)
	authed.POST("/notifications/read-all", d.notifications.MarkAllRead)
	authed.POST("/notifications/:id/read", d.notifications.MarkRead)
	authed.GET("/realtime/ws", d.realtime.Serve)

	// Role guards behind AccessControl; a mismatch here answers 403 instead of redirecting.
	student := r.Group("/student", d.sessions.Require(), middleware.RequireRoles(models.RoleStudent))
	student.GET("", d.dashboards.Student)
	student.GET("/complaints", d.complaints.ListMine)
	student.GET("/complaints/:id", d.complaints.GetMine)
	student.POST("/new-complaint", d.complaints.Submit)
	student.POST("/complaints/:id/attachments", d.complaints.AddAttachment)
	student.PUT("/profile", d.auth.UpdateProfile)
	student.POST("/profile/password", d.auth.ChangePassword)

	admin := r.Group("/admin", d.sessions.Require(), middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	admin.GET("", d.dashboards.Admin)
	admin.GET("/users", d.profiles.ListUsers)
	admin.GET("/complaints", d.complaints.List)
	admin.GET("/complaints/export",
		middleware.Audit(d.audit, d.logger, models.AuditActionComplaintExport, models.AuditResourceComplaint),
		d.complaints.Export)
	admin.POST("/complaints/bulk-status",
		middleware.Audit(d.audit, d.logger, models.AuditActionComplaintBulk, models.AuditResourceComplaint),
		d.complaints.BulkUpdateStatus)
	admin.GET("/complaints/:id", d.complaints.Get)
	admin.PATCH("/complaints/:id/status",
		middleware.Audit(d.audit, d.logger, models.AuditActionComplaintStatus, models.AuditResourceComplaint),
		d.complaints.UpdateStatus)
	admin.POST("/complaints/:id/responses",
		middleware.Audit(d.audit, d.logger, models.AuditActionComplaintRespond, models.AuditResourceComplaint),
		d.complaints.Respond)

	return r
}
