package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/fms-tracker-api/api/swagger"
	"github.com/noah-isme/fms-tracker-api/internal/handler"
	"github.com/noah-isme/fms-tracker-api/internal/middleware"
	"github.com/noah-isme/fms-tracker-api/internal/repository"
	"github.com/noah-isme/fms-tracker-api/internal/service"
	"github.com/noah-isme/fms-tracker-api/pkg/cache"
	"github.com/noah-isme/fms-tracker-api/pkg/config"
	"github.com/noah-isme/fms-tracker-api/pkg/database"
	"github.com/noah-isme/fms-tracker-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/fms-tracker-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/fms-tracker-api/pkg/middleware/requestid"
)

// @title FMS Tracker API
// @version 1.0.0
// @description Document-collection and FMS review trackers for CRM projects
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	// Redis is optional: without it the template cache is off and tracker
	// sessions run without a local backup.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
	} else {
		defer redisClient.Close()
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	projectRepo := repository.NewProjectRepository(db)
	templateRepo := repository.NewTemplateRepository(db)

	var templateService *service.TemplateService
	var sessions *service.TrackerSessionService
	sessionCfg := service.SessionConfig{
		DebounceWindow:     cfg.Tracker.DebounceWindow,
		DeletionCooldown:   cfg.Tracker.DeletionCooldown,
		DeletionQueueDelay: cfg.Tracker.DeletionQueueDelay,
		RefreshInterval:    cfg.Tracker.RefreshInterval,
	}
	templateCfg := service.TemplateServiceConfig{CacheTTL: cfg.Templates.CacheTTL}
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService := service.NewCacheService(cacheRepo, metricsSvc, cfg.Templates.CacheTTL, logr, cfg.Templates.CacheEnabled)
		templateService = service.NewTemplateService(templateRepo, cacheService, validate, logr, templateCfg)
		snapshots := repository.NewSnapshotRepository(redisClient, cfg.Tracker.SnapshotTTL)
		sessions = service.NewTrackerSessionService(projectRepo, snapshots, metricsSvc, logr, sessionCfg)
	} else {
		templateService = service.NewTemplateService(templateRepo, nil, validate, logr, templateCfg)
		sessions = service.NewTrackerSessionService(projectRepo, nil, metricsSvc, logr, sessionCfg)
	}

	projectService := service.NewProjectService(projectRepo, sessions, metricsSvc, logr)
	exportService := service.NewTrackerExportService(logr)
	deepLinkService := service.NewDeepLinkService(logr, service.DeepLinkConfig{
		Attempts: cfg.Tracker.DeepLinkAttempts,
		Backoff:  cfg.Tracker.DeepLinkBackoff,
	})
	tokenService := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret})

	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = pingRedis(redisClient)
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenService))
	handler.NewProjectHandler(projectService).Register(api)
	handler.NewTemplateHandler(templateService).Register(api)
	handler.NewTrackerHandler(sessions, templateService, exportService, deepLinkService, validate).Register(api)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown failed", zap.Error(err))
	}
	// Pending tracker edits are flushed before the process exits.
	if err := sessions.CloseAll(shutdownCtx); err != nil {
		logr.Error("closing tracker sessions failed", zap.Error(err))
	}
}

func pingRedis(client *redis.Client) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
