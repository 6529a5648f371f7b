package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/brightharbor/homecare-platform/internal/config"
	"github.com/brightharbor/homecare-platform/internal/notify"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

// BuildRedisClient wires the optional Redis client used for webhook
// idempotency and SMS opt-out caching. Returns nil when Redis is not
// configured or (with verify) not reachable.
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

// BuildEmailSender picks the email provider from config. Falls back to the
// logging stub so callers always get a usable sender.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg != nil {
		switch cfg.EmailProvider {
		case "ses":
			if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
				FromEmail: cfg.FromEmail,
				FromName:  cfg.FromName,
			}, logger); sender != nil {
				return sender
			}
		case "sendgrid":
			if sender := notify.NewSendGridSender(notify.SendGridConfig{
				APIKey:    cfg.SendGridAPIKey,
				FromEmail: cfg.FromEmail,
				FromName:  cfg.FromName,
			}, logger); sender != nil {
				return sender
			}
		}
		if cfg.EmailProvider != "stub" && cfg.EmailProvider != "" {
			logger.Warn("email provider not usable, falling back to stub", "provider", cfg.EmailProvider)
		}
	}
	return notify.NewStubEmailSender(logger)
}
