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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/export"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/logger"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

// @title Timetable API
// @version 1.0.0
// @description Weekly timetable construction, conflict checking and automated generation.
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, generation tasks kept in memory", "error", err)
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	deps, cleanup, err := buildDependencies(ctx, cfg, db, cacheRepo, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to wire services", "error", err)
	}
	defer cleanup()

	deps.readiness = readinessChecks(db, redisClient)
	router := newRouter(cfg, deps, logr)

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
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
	logr.Info("server stopped")
}

// dependencies holds everything the router needs.
type dependencies struct {
	metrics   *service.MetricsService
	tokens    *service.TokenService
	timetable *handler.TimetableHandler
	exports   *handler.ExportHandler
	generator *handler.GeneratorHandler
	catalog   *handler.CatalogHandler
	readiness map[string]handler.ReadinessCheck
}

func buildDependencies(ctx context.Context, cfg *config.Config, db *sqlx.DB, cacheRepo *repository.CacheRepository, logr *zap.Logger) (*dependencies, func(), error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	workspace := service.NewWorkspaceService(
		repository.NewScheduleSnapshotRepository(db),
		metrics,
		validate,
		logr.Named("workspace"),
		service.WorkspaceConfig{DefaultTimeSlots: cfg.Scheduler.DefaultTimeSlots},
	)
	exporter := service.NewExportService(workspace, logr.Named("export"), export.NewCSVExporter(), export.NewPDFExporter(), export.NewXLSXExporter())

	artifacts, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		return nil, nil, err
	}
	archive := service.NewExportArchiveService(
		exporter,
		artifacts,
		storage.NewSignedURLSigner(cfg.Export.SigningSecret, cfg.Export.LinkTTL),
		logr.Named("export_archive"),
		service.ExportArchiveConfig{
			DownloadPath:    cfg.APIPrefix + "/schedule/exports/download",
			CleanupInterval: cfg.Export.CleanupInterval,
		},
	)
	archive.StartCleanup(ctx)

	deps := &dependencies{
		metrics:   metrics,
		tokens:    service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Expiry: cfg.JWT.Expiration}),
		timetable: handler.NewTimetableHandler(workspace, exporter),
		exports:   handler.NewExportHandler(archive),
	}

	var catalogSvc *service.CatalogService
	if cfg.Catalog.Enabled {
		catalogSvc = service.NewCatalogService(repository.NewCatalogRepository(db), validate, logr.Named("catalog"))
		deps.catalog = handler.NewCatalogHandler(catalogSvc)
	}

	cleanup := func() {}
	if cfg.Scheduler.Enabled {
		genCfg := service.GeneratorConfig{
			TaskTTL:      cfg.Scheduler.TaskTTL,
			MaxSolveTime: cfg.Scheduler.MaxSolveTime,
			MaxSteps:     cfg.Scheduler.MaxSteps,
		}
		var generator *service.GeneratorService
		if catalogSvc != nil {
			generator = service.NewGeneratorService(workspace, catalogSvc, cacheRepo, metrics, validate, logr.Named("generator"), genCfg)
		} else {
			generator = service.NewGeneratorService(workspace, nil, cacheRepo, metrics, validate, logr.Named("generator"), genCfg)
		}

		queue := jobs.NewQueue("generation", generator.HandleJob, jobs.QueueConfig{
			Workers:    cfg.Scheduler.Workers,
			BufferSize: cfg.Scheduler.QueueBuffer,
			Logger:     logr.Named("queue"),
		})
		queue.Start(ctx)
		generator.AttachQueue(queue)
		cleanup = queue.Stop

		deps.generator = handler.NewGeneratorHandler(generator)
	}

	return deps, cleanup, nil
}

func readinessChecks(db *sqlx.DB, client *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}
	return checks
}
