package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medbook-ai-platform/internal/booking"
	appconfig "github.com/wolfman30/medbook-ai-platform/internal/config"
	"github.com/wolfman30/medbook-ai-platform/internal/conversation"
	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildTurnLog wires the transcript mirror when Postgres is available.
func BuildTurnLog(sqlDB *sql.DB, logger *logging.Logger, logEnabled bool) *conversation.TurnLog {
	if sqlDB == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if logEnabled {
		logger.Info("transcript persistence enabled")
	}
	return conversation.NewTurnLog(sqlDB)
}

// BuildBookingStore returns the Postgres booking mirror when a pool exists.
func BuildBookingStore(pool *pgxpool.Pool) *booking.PGBookingStore {
	if pool == nil {
		return nil
	}
	return booking.NewPGBookingStore(pool)
}
