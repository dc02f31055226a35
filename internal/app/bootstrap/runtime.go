package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/telehealth-scheduling/internal/config"
	"github.com/wolfman30/telehealth-scheduling/internal/notify"
	"github.com/wolfman30/telehealth-scheduling/internal/observability/metrics"
	"github.com/wolfman30/telehealth-scheduling/internal/video"
	"github.com/wolfman30/telehealth-scheduling/pkg/logging"
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
		logger.Warn("redis not available, availability cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// ConnectPostgresPool opens and pings a pgx pool. An empty URL returns nil so
// callers fall back to in-memory stores.
func ConnectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) (*pgxpool.Pool, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("postgres connected")
	return pool, nil
}

// BuildProvisioner selects the video provider and wraps it with bounded retries.
func BuildProvisioner(cfg *appconfig.Config, m *metrics.BookingMetrics, logger *logging.Logger) (video.Provisioner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var base video.Provisioner
	switch cfg.VideoProvider {
	case "", "fake":
		logger.Warn("using fake video provider; sessions are not real")
		base = video.NewFake()
	case "opentok":
		if cfg.VideoAPIKey == "" || cfg.VideoAPISecret == "" {
			return nil, fmt.Errorf("bootstrap: video credentials missing")
		}
		var opts []video.ClientOption
		if cfg.VideoBaseURL != "" {
			opts = append(opts, video.WithBaseURL(cfg.VideoBaseURL))
		}
		base = video.NewClient(cfg.VideoAPIKey, cfg.VideoAPISecret, logger, opts...)
	default:
		return nil, fmt.Errorf("bootstrap: unknown video provider %q", cfg.VideoProvider)
	}

	return video.NewRetrying(base, m, logger).
		WithMaxAttempts(cfg.VideoMaxAttempts).
		WithAttemptTimeout(cfg.VideoAttemptTimeout).
		WithBackoff(cfg.VideoRetryBackoff), nil
}

// BuildEmailSender returns the configured sender, falling back to the logging
// stub when the chosen provider is not usable.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger)
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromEmail,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender != nil {
			return sender
		}
		logger.Warn("SENDGRID_API_KEY missing, emails will be logged only")
	case "ses":
		if awsCfg != nil {
			return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
				FromEmail: cfg.EmailFromEmail,
				FromName:  cfg.EmailFromName,
			}, logger)
		}
		logger.Warn("aws config unavailable, emails will be logged only")
	}
	return notify.NewStubEmailSender(logger)
}
