package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medbook-ai-platform/internal/archive"
	"github.com/wolfman30/medbook-ai-platform/internal/booking"
	appconfig "github.com/wolfman30/medbook-ai-platform/internal/config"
	"github.com/wolfman30/medbook-ai-platform/internal/conversation"
	"github.com/wolfman30/medbook-ai-platform/internal/directory"
	observemetrics "github.com/wolfman30/medbook-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/medbook-ai-platform/internal/notify"
	"github.com/wolfman30/medbook-ai-platform/internal/triage"
	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

// EngineDeps carries the process-level clients the engine draws from. Nil
// fields disable the components that need them.
type EngineDeps struct {
	Redis   *redis.Client
	PG      *pgxpool.Pool
	SQL     *sql.DB
	Metrics *observemetrics.ConversationMetrics
}

// BuildEngine wires the booking conversation engine from config. Redis and
// Postgres are optional; single-node setups fall back to in-memory session
// and ledger stores and lose state on restart.
func BuildEngine(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, deps EngineDeps, logger *logging.Logger) (*conversation.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var sessions conversation.SessionStore
	if deps.Redis != nil {
		sessions = conversation.NewRedisSessionStore(deps.Redis, cfg.SessionTTL, nil)
	} else {
		logger.Warn("redis not configured; sessions are in-memory and lost on restart")
		sessions = conversation.NewMemorySessionStore(cfg.SessionTTL)
	}

	var ledger booking.SlotLedger
	switch {
	case strings.EqualFold(cfg.LedgerBackend, "memory"):
		ledger = booking.NewMemoryLedger()
	case deps.Redis == nil:
		logger.Warn("redis not configured; slot ledger is in-memory")
		ledger = booking.NewMemoryLedger()
	default:
		ledger = booking.NewRedisLedger(deps.Redis, nil)
	}

	engineCfg := conversation.EngineConfig{
		Sessions:   sessions,
		Classifier: BuildClassifier(ctx, cfg, awsCfg, logger),
		Directory:  directory.WithTimeout(directory.NewMockDirectory(cfg.AvailabilityDays), cfg.ProviderTimeout),
		Ledger:     ledger,
		Turns:      BuildTurnLog(deps.SQL, logger, false),
		Events:     conversation.NewEventLogger(logger),
		Metrics:    deps.Metrics,
		Logger:     logger,
	}
	if store := BuildBookingStore(deps.PG); store != nil {
		engineCfg.Bookings = store
	}
	if notifier := BuildNotifier(cfg, awsCfg, logger); notifier != nil {
		engineCfg.Notifier = notifier
	}
	if archiver := BuildArchiver(cfg, awsCfg, logger); archiver != nil {
		engineCfg.Archiver = archiver
	}

	return conversation.NewEngine(engineCfg), nil
}

// BuildClassifier selects the symptom classifier from LLM_PROVIDER. The
// keyword matcher is the floor every other provider degrades to, so a
// misconfigured deployment still triages instead of crashing.
func BuildClassifier(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) triage.Classifier {
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		return triage.NewKeywordClassifier(logger)
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	switch provider {
	case "keyword":
		return triage.NewKeywordClassifier(logger)

	case "gemini":
		client, err := triage.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("gemini unavailable; falling back to keyword classifier", "error", err)
			return triage.NewKeywordClassifier(logger)
		}
		return triage.NewLLMClassifier(client, "", cfg.ClassifierTimeout, logger)

	case "bedrock":
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			logger.Warn("no bedrock model configured; falling back to keyword classifier")
			return triage.NewKeywordClassifier(logger)
		}
		client := triage.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
		return triage.NewLLMClassifier(client, cfg.BedrockModelID, cfg.ClassifierTimeout, logger)

	default:
		var primary, fallback triage.LLMClient
		if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
			client, err := triage.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
			if err != nil {
				logger.Warn("gemini unavailable", "error", err)
			} else {
				primary = client
			}
		}
		modelID := ""
		if strings.TrimSpace(cfg.BedrockModelID) != "" {
			bedrock := triage.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
			modelID = cfg.BedrockModelID
			if primary == nil {
				primary = bedrock
			} else {
				fallback = bedrock
			}
		}
		if primary == nil {
			logger.Info("no LLM provider configured; using keyword classifier")
			return triage.NewKeywordClassifier(logger)
		}
		if fallback != nil {
			primary = triage.NewFallbackLLMClient(primary, fallback, logger.Logger)
		}
		return triage.NewLLMClassifier(primary, modelID, cfg.ClassifierTimeout, logger)
	}
}

// BuildNotifier wires booking-confirmation email for the ops inbox. Returns
// nil when no inbox is configured.
func BuildNotifier(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) *notify.Service {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	recipients := splitRecipients(cfg.BookingOpsInbox)
	if len(recipients) == 0 {
		logger.Info("booking notifications disabled; BOOKING_OPS_INBOX not set")
		return nil
	}

	var sender notify.EmailSender
	switch strings.ToLower(strings.TrimSpace(cfg.EmailProvider)) {
	case "ses":
		ses := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail:        cfg.NotifyFromEmail,
			FromName:         cfg.NotifyFromName,
			ConfigurationSet: cfg.SESConfiguration,
		}, logger)
		if ses == nil {
			logger.Warn("ses sender unavailable; using stub email sender")
			sender = notify.NewStubEmailSender(logger)
		} else {
			sender = ses
		}
	case "sendgrid":
		sg := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.NotifyFromEmail,
			FromName:  cfg.NotifyFromName,
		}, logger)
		if sg == nil {
			logger.Warn("SENDGRID_API_KEY not set; using stub email sender")
			sender = notify.NewStubEmailSender(logger)
		} else {
			sender = sg
		}
	default:
		sender = notify.NewStubEmailSender(logger)
	}

	return notify.NewService(sender, recipients, logger)
}

// BuildArchiver wires the S3 session archive when a bucket is configured.
func BuildArchiver(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) *archive.Store {
	if cfg == nil || strings.TrimSpace(cfg.ArchiveBucket) == "" {
		return nil
	}
	return archive.NewStore(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket, logger)
}

// BuildJobStore selects the async-job status backend. Postgres serves
// deployments that run without DynamoDB; DynamoDB is the default.
func BuildJobStore(cfg *appconfig.Config, awsCfg aws.Config, pool *pgxpool.Pool, logger *logging.Logger) (conversation.JobRecorder, conversation.JobUpdater) {
	if cfg == nil {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	if strings.EqualFold(cfg.JobStoreBackend, "postgres") {
		if pool == nil {
			logger.Warn("postgres job store requested but no database configured; using dynamodb")
		} else {
			store := conversation.NewPGJobStore(pool)
			return store, store
		}
	}

	store := conversation.NewJobStore(dynamodb.NewFromConfig(awsCfg), cfg.ConversationJobsTable, logger)
	return store, store
}

func splitRecipients(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	for _, r := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(r); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
