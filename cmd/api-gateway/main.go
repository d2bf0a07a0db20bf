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
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	_ "github.com/noah-isme/complaint-desk-api/api/swagger"
	"github.com/noah-isme/complaint-desk-api/internal/access"
	"github.com/noah-isme/complaint-desk-api/internal/handler"
	"github.com/noah-isme/complaint-desk-api/internal/middleware"
	"github.com/noah-isme/complaint-desk-api/internal/realtime"
	"github.com/noah-isme/complaint-desk-api/internal/repository"
	"github.com/noah-isme/complaint-desk-api/internal/service"
	"github.com/noah-isme/complaint-desk-api/pkg/cache"
	"github.com/noah-isme/complaint-desk-api/pkg/config"
	"github.com/noah-isme/complaint-desk-api/pkg/database"
	"github.com/noah-isme/complaint-desk-api/pkg/jobs"
	"github.com/noah-isme/complaint-desk-api/pkg/logger"
	"github.com/noah-isme/complaint-desk-api/pkg/middleware/ratelimit"
	"github.com/noah-isme/complaint-desk-api/pkg/tracing"
)

// @title Department Complaint Desk API
// @version 1.0.0
// @description Complaint intake, triage and notification backend for a university department.
// @BasePath /
// @schemes http https

const shutdownTimeout = 15 * time.Second

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

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, logr)
	if err != nil {
		logr.Fatal("failed to init tracing", zap.Error(err))
	}

	metrics := service.NewMetricsService()

	db, err := database.NewPostgres(cfg.Database, cfg.BackendTimeout)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, using in-process cache and realtime", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	scheduler := cron.New()
	cacheRepo := newCacheRepository(cfg, redisClient, scheduler, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.DefaultTTL, logr, true)

	bus := newBus(ctx, cfg, redisClient, realtime.NewHub(metrics), logr)

	profiles := repository.NewProfileRepository(db)
	complaints := repository.NewComplaintRepository(db)
	responses := repository.NewResponseRepository(db)
	attachments := repository.NewAttachmentRepository(db)
	notifications := repository.NewNotificationRepository(db)

	fanout := jobs.NewQueue("notification-fanout", jobs.QueueConfig{
		Workers:    cfg.Notifications.FanoutWorkers,
		BufferSize: cfg.Notifications.FanoutBuffer,
		MaxRetries: cfg.Notifications.FanoutRetries,
		RetryDelay: time.Second,
		Logger:     logr,
		OnGiveUp: func(job jobs.Job, err error) {
			metrics.RecordFanoutGiveUp()
			logr.Warn("notification fan-out abandoned", zap.String("job_id", job.ID), zap.Error(err))
		},
	})

	validate := validator.New()

	authSvc := service.NewAuthService(profiles, validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})
	sessionSvc := service.NewSessionService(authSvc, profiles, cfg.BackendTimeout, logr)
	notificationSvc := service.NewNotificationService(notifications, profiles, bus, fanout, cacheSvc, metrics, logr, cfg.Notifications.ListLimit)
	complaintSvc := service.NewComplaintService(complaints, responses, attachments, notificationSvc, bus, cacheSvc, validate, logr,
		service.AttachmentPolicy{
			MaxFileSizeBytes: cfg.Attachments.MaxFileSizeBytes,
			AllowedTypes:     cfg.Attachments.AllowedTypes,
		})
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Complaints: complaints,
		Profiles:   profiles,
		Cache:      cacheSvc,
		Metrics:    metrics,
		Logger:     logr,
		Config: service.DashboardServiceConfig{
			CacheTTL: cfg.Dashboard.CacheTTL,
			Location: loadLocation(cfg.Dashboard.Timezone, logr),
		},
	})
	exportSvc := service.NewExportService(complaints, logr)
	profileSvc := service.NewProfileService(profiles, logr)
	monitoringSvc := service.NewMonitoringService(validate, metrics, logr)

	fanout.Handle(service.JobNotificationFanout, notificationSvc.HandleFanout)
	fanout.Start(ctx)

	limiter := ratelimit.New(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	if _, err := scheduler.AddFunc(cfg.Cache.SweepSchedule, func() { limiter.Sweep() }); err != nil {
		logr.Warn("rate limiter sweep not scheduled", zap.Error(err))
	}
	scheduler.Start()

	sessions := middleware.NewSessions(sessionSvc, cfg.Session.CookieName)
	checks := map[string]handler.Pinger{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	if relay, ok := bus.(*realtime.RedisBus); ok {
		checks["realtime"] = func(context.Context) error {
			if !relay.Relaying() {
				return errors.New("realtime relay not running")
			}
			return nil
		}
	}

	router := newRouter(routerDeps{
		cfg:        cfg,
		logger:     logr,
		metrics:    metrics,
		sessions:   sessions,
		classifier: access.NewClassifier(cfg.Access.PublicPaths...),
		limiter:    limiter,
		audit:      profiles,

		auth:          handler.NewAuthHandler(authSvc, cfg.Session),
		complaints:    handler.NewComplaintHandler(complaintSvc, exportSvc),
		dashboards:    handler.NewDashboardHandler(dashboardSvc),
		notifications: handler.NewNotificationHandler(notificationSvc),
		profiles:      handler.NewProfileHandler(profileSvc),
		monitoring:    handler.NewMonitoringHandler(monitoringSvc),
		realtime:      handler.NewRealtimeHandler(bus, notificationSvc, complaintSvc, cfg.CORS.AllowedOrigins, cfg.Realtime.BufferSize, logr),
		health:        handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	fanout.Stop()
	<-scheduler.Stop().Done()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logr.Warn("tracing shutdown incomplete", zap.Error(err))
	}
}

func newCacheRepository(cfg *config.Config, client *redis.Client, scheduler *cron.Cron, logr *zap.Logger) service.CacheRepository {
	if cfg.Cache.Backend == config.CacheBackendRedis && client != nil {
		return repository.NewRedisCacheRepository(client)
	}

	memory := repository.NewMemoryCacheRepository()
	if _, err := scheduler.AddFunc(cfg.Cache.SweepSchedule, func() {
		if removed := memory.Sweep(); removed > 0 {
			logr.Debug("cache sweep", zap.Int("removed", removed))
		}
	}); err != nil {
		logr.Warn("cache sweep not scheduled", zap.String("schedule", cfg.Cache.SweepSchedule), zap.Error(err))
	}
	return memory
}

func newBus(ctx context.Context, cfg *config.Config, client *redis.Client, hub *realtime.Hub, logr *zap.Logger) realtime.Bus {
	if cfg.Realtime.Backend != "redis" || client == nil {
		return hub
	}

	bus := realtime.NewRedisBus(client, cfg.Realtime.Channel, hub, logr)
	go func() {
		if err := bus.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("realtime relay stopped", zap.Error(err))
		}
	}()
	return bus
}

func loadLocation(name string, logr *zap.Logger) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logr.Warn("unknown dashboard timezone, using UTC", zap.String("timezone", name), zap.Error(err))
		return time.UTC
	}
	return loc
}
