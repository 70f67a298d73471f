package conversationworker

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/wolfman30/medbook-ai-platform/cmd/mainconfig"
	appbootstrap "github.com/wolfman30/medbook-ai-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/medbook-ai-platform/internal/config"
	"github.com/wolfman30/medbook-ai-platform/internal/conversation"
	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

// Run starts the async booking worker and blocks until ctx is canceled. It
// consumes conversation jobs from SQS, drives the engine, and records job
// status for the polling endpoints.
func Run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	if cfg == nil {
		return fmt.Errorf("conversation worker requires config")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.UseMemoryQueue {
		return fmt.Errorf("conversation worker cannot run when USE_MEMORY_QUEUE=true; run inline workers via the API process instead")
	}
	if strings.TrimSpace(cfg.ConversationQueueURL) == "" {
		return fmt.Errorf("conversation worker requires CONVERSATION_QUEUE_URL")
	}

	var dbPool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("worker failed to connect to postgres: %w", err)
		}
		dbPool = pool
		defer dbPool.Close()
	}
	var sqlDB *sql.DB
	if dbPool != nil {
		sqlDB = stdlib.OpenDBFromPool(dbPool)
		defer sqlDB.Close()
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	redisClient := appbootstrap.BuildRedisClient(ctx, cfg, logger, true)

	engine, err := appbootstrap.BuildEngine(ctx, cfg, awsCfg, appbootstrap.EngineDeps{
		Redis: redisClient,
		PG:    dbPool,
		SQL:   sqlDB,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to configure conversation engine: %w", err)
	}

	queue := conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ConversationQueueURL)
	_, jobUpdater := appbootstrap.BuildJobStore(cfg, awsCfg, dbPool, logger)

	worker := conversation.NewWorker(
		engine,
		queue,
		jobUpdater,
		logger,
		conversation.WithWorkerCount(cfg.WorkerCount),
	)

	worker.Start(ctx)
	logger.Info("conversation worker started",
		"workers", cfg.WorkerCount,
		"queue", cfg.ConversationQueueURL,
	)

	<-ctx.Done()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("conversation worker stopped")
	case <-doneCtx.Done():
		logger.Error("conversation worker shutdown timed out", "error", doneCtx.Err())
	}

	return nil
}
