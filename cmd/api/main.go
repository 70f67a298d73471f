package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/medbook-ai-platform/cmd/mainconfig"
	"github.com/wolfman30/medbook-ai-platform/internal/api/router"
	appbootstrap "github.com/wolfman30/medbook-ai-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/medbook-ai-platform/internal/config"
	"github.com/wolfman30/medbook-ai-platform/internal/conversation"
	"github.com/wolfman30/medbook-ai-platform/internal/http/handlers"
	observemetrics "github.com/wolfman30/medbook-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/medbook-ai-platform/internal/webchat"
	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting medbook-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	var dbPool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, poolErr := pgxpool.New(ctx, cfg.DatabaseURL)
		if poolErr != nil {
			logger.Error("failed to connect postgres", "error", poolErr)
			os.Exit(1)
		}
		dbPool = pool
		defer dbPool.Close()
	}
	var sqlDB *sql.DB
	if dbPool != nil {
		sqlDB = stdlib.OpenDBFromPool(dbPool)
		defer sqlDB.Close()
	}

	redisClient := appbootstrap.BuildRedisClient(ctx, cfg, logger, true)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	convMetrics := observemetrics.NewConversationMetrics(registry)

	engine, err := appbootstrap.BuildEngine(ctx, cfg, awsCfg, appbootstrap.EngineDeps{
		Redis:   redisClient,
		PG:      dbPool,
		SQL:     sqlDB,
		Metrics: convMetrics,
	}, logger)
	if err != nil {
		logger.Error("failed to configure conversation engine", "error", err)
		os.Exit(1)
	}

	// Async job plumbing. The memory queue runs consumers inside this
	// process; SQS hands jobs to the standalone worker binary.
	var (
		enqueuer   conversation.Enqueuer
		jobRecords conversation.JobRecorder
		inlineDone func()
	)
	if cfg.UseMemoryQueue {
		records, updates := appbootstrap.BuildJobStore(cfg, awsCfg, dbPool, logger)
		queue := conversation.NewMemoryQueue(0)
		enqueuer = conversation.NewPublisher(queue, logger)
		jobRecords = records

		inlineWorker := conversation.NewWorker(engine, queue, updates, logger,
			conversation.WithWorkerCount(cfg.WorkerCount),
			conversation.WithReceiveWaitSeconds(1),
		)
		inlineWorker.Start(ctx)
		inlineDone = inlineWorker.Wait
		logger.Info("inline conversation workers started", "workers", cfg.WorkerCount)
	} else if cfg.ConversationQueueURL != "" {
		records, _ := appbootstrap.BuildJobStore(cfg, awsCfg, dbPool, logger)
		queue := conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ConversationQueueURL)
		enqueuer = conversation.NewPublisher(queue, logger)
		jobRecords = records
	} else {
		logger.Warn("no conversation queue configured; job endpoints disabled")
	}

	conversationHandler := conversation.NewHandler(engine, enqueuer, jobRecords, logger)
	webchatHandler := webchat.NewHandler(engine, nil, logger)

	var adminBookings *handlers.AdminBookingsHandler
	var adminSessions *handlers.AdminSessionsHandler
	var adminDashboard *handlers.AdminDashboardHandler
	if store := appbootstrap.BuildBookingStore(dbPool); store != nil {
		adminBookings = handlers.NewAdminBookingsHandler(store, logger)
		adminDashboard = handlers.NewAdminDashboardHandler(store, registry, logger)
	} else {
		logger.Warn("admin endpoints disabled; no database configured")
	}
	if turnLog := appbootstrap.BuildTurnLog(sqlDB, logger, true); turnLog != nil {
		adminSessions = handlers.NewAdminSessionsHandler(turnLog, logger)
	}

	routerCfg := &router.Config{
		Logger:              logger,
		ConversationHandler: conversationHandler,
		WebChatHandler:      webchatHandler,
		AdminBookings:       adminBookings,
		AdminSessions:       adminSessions,
		AdminDashboard:      adminDashboard,
		StaffAuthSecret:     cfg.StaffJWTSecret,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  splitOrigins(cfg.CORSAllowedOrigin),
		RateLimitPerSecond:  cfg.RateLimitPerSec,
		RateLimitBurst:      cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	cancel()
	if inlineDone != nil {
		inlineDone()
	}

	logger.Info("server stopped")
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
