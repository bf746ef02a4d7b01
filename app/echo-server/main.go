package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpmetrics "adaptiveRouter/app/echo-server/metrics"
	"adaptiveRouter/app/echo-server/router"
	"adaptiveRouter/business/experiment"
	"adaptiveRouter/business/learning"
	"adaptiveRouter/internal/middleware"
	psqlRepo "adaptiveRouter/internal/repository/postgres"
	redisRepo "adaptiveRouter/internal/repository/redis"
	"adaptiveRouter/internal/rest"
	"adaptiveRouter/pkg/config"
	"adaptiveRouter/pkg/database"
	redisdb "adaptiveRouter/pkg/database/redis"
	"adaptiveRouter/pkg/logger"
	"adaptiveRouter/pkg/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const snapshotsKept = 50

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	defer logger.Sync()
	logger.Info("Starting adaptive router", "version", cfg.App.Version, "harness_enabled", cfg.Learning.HarnessEnabled)

	metrics.Init()
	httpmetrics.Init()

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	logger.Info("Database connected successfully")

	// Init repo
	snapshotRepo := psqlRepo.NewSnapshotRepository(db)
	eventRepo := psqlRepo.NewRewardEventRepository(db)
	policyConfigRepo := psqlRepo.NewPolicyConfigRepository(db)

	// Redis only fronts Postgres for snapshots, so the service runs without it.
	stores := learning.MultiStore{}
	if cfg.Redis.RedisHost != "" {
		redisClient, err := redisdb.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, snapshots go to Postgres only", "error", err)
		} else {
			defer redisdb.CloseRedisClient(redisClient)
			stores = append(stores, redisRepo.NewSnapshotCache(redisClient, cfg.Redis.SnapshotTTL))
		}
	}
	stores = append(stores, snapshotRepo)

	// Init service
	harness := config.NewHarnessSwitch(cfg.Learning.HarnessEnabled)

	engine := learning.NewEngine(
		learning.WithGate(harness),
		learning.WithShadows(cfg.Learning.ShadowEnabled),
		learning.WithShadowTimeout(cfg.Learning.ShadowTimeout),
		learning.WithDecisionHook(metrics.ObserveDecision),
	)

	expOpts := []experiment.Option{
		experiment.WithGate(harness),
		experiment.WithActivationHook(metrics.ObserveActivation),
	}
	if cfg.Learning.Seed != 0 {
		expOpts = append(expOpts, experiment.WithSeed(cfg.Learning.Seed))
	}
	experiments := experiment.NewManager(expOpts...)

	catalog, err := config.LoadPolicies(cfg.Learning.PoliciesFile)
	if err != nil {
		logger.Fatal("Failed to load policies", "error", err)
	}

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 15*time.Second)
	if err := registerDomains(bootCtx, engine, catalog, policyConfigRepo); err != nil {
		logger.Fatal("Failed to register learning domains", "error", err)
	}
	if err := registerExperiments(experiments, catalog); err != nil {
		logger.Fatal("Failed to register experiments", "error", err)
	}

	persister := learning.NewPersister(engine, stores, cfg.Learning.SnapshotInterval)
	report, err := persister.RestoreLatest(bootCtx)
	if err != nil {
		logger.Warn("Starting with fresh learning state", "error", err)
	} else {
		logger.Info("Learning state restored", "restored", report.Restored, "skipped", report.Skipped)
	}
	if pruned, err := snapshotRepo.Prune(bootCtx, snapshotsKept); err != nil {
		logger.Warn("Failed to prune snapshots", "error", err)
	} else if pruned > 0 {
		logger.Info("Old snapshots pruned", "count", pruned)
	}
	cancelBoot()

	persistCtx, stopPersister := context.WithCancel(context.Background())
	persisterDone := make(chan struct{})
	go func() {
		defer close(persisterDone)
		persister.Run(persistCtx)
	}()

	// Init handler
	learningHandler := rest.NewLearningHandler(engine, eventRepo)
	learningAdminHandler := rest.NewLearningAdminHandler(engine, policyConfigRepo, harness)
	experimentHandler := rest.NewExperimentHandler(experiments)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.Trace())
	e.Use(httpmetrics.Middleware())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
	}))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "harness_enabled": harness.Enabled()})
	})

	authRequired := middleware.AuthMiddleware()
	adminOnly := middleware.AdminOnly()

	// Setup routes
	api := e.Group("/api/v1")
	router.SetupLearningRoutes(api, learningHandler, authRequired)
	router.SetupExperimentRoutes(api, experimentHandler, authRequired, adminOnly)
	router.SetupLearningAdminRoutes(api, learningAdminHandler, authRequired, adminOnly)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	engine.WaitShadows()

	// Final snapshot happens inside Run once its context is cancelled.
	stopPersister()
	<-persisterDone

	logger.Info("Server stopped")
}
