package lifecycleworker

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/brightharbor/homecare-platform/cmd/mainconfig"
	"github.com/brightharbor/homecare-platform/internal/app/bootstrap"
	"github.com/brightharbor/homecare-platform/internal/audit"
	appconfig "github.com/brightharbor/homecare-platform/internal/config"
	"github.com/brightharbor/homecare-platform/internal/identity"
	"github.com/brightharbor/homecare-platform/internal/lifecycle"
	"github.com/brightharbor/homecare-platform/internal/observability/metrics"
	"github.com/brightharbor/homecare-platform/internal/security"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

// Run starts the lifecycle job worker and blocks until ctx is canceled.
func Run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	if cfg == nil {
		return fmt.Errorf("lifecycle worker requires config")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("lifecycle worker requires DATABASE_URL")
	}
	if cfg.LifecycleQueueURL == "" {
		return fmt.Errorf("lifecycle worker requires LIFECYCLE_QUEUE_URL")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("worker failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()
	auditSvc := audit.NewService(sqlDB)

	awsConfig, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	sqsClient := sqs.NewFromConfig(awsConfig)
	queue := NewSQSQueue(sqsClient, cfg.LifecycleQueueURL)

	var s3Client lifecycle.S3Client
	if cfg.ArchiveBucket != "" {
		s3Client = s3.NewFromConfig(awsConfig)
	} else {
		logger.Warn("ARCHIVE_BUCKET not set, compliance exports disabled")
	}

	emailSender := bootstrap.BuildEmailSender(cfg, awsConfig, logger)

	lifecycleSvc := lifecycle.NewService(lifecycle.ServiceConfig{
		DB:     pool,
		S3:     s3Client,
		Bucket: cfg.ArchiveBucket,
		Audit:  auditSvc,
		Email:  emailSender,
		Retention: lifecycle.RetentionPolicy{
			ClientYears:  cfg.ClientRetentionYears,
			InquiryYears: cfg.InquiryRetentionYears,
			VisitYears:   cfg.VisitRetentionYears,
		},
		Logger: logger,
	})

	loc, err := time.LoadLocation(cfg.BreachTimezone)
	if err != nil {
		logger.Warn("invalid BREACH_TZ, falling back to UTC", "tz", cfg.BreachTimezone)
		loc = time.UTC
	}
	securitySvc := security.NewService(
		auditSvc,
		security.NewIncidentRepository(pool),
		identity.NewRepository(pool),
		emailSender,
		cfg.BreachWindow,
		security.Thresholds{
			FailedLogins: cfg.FailedLoginThreshold,
			PHIReads:     cfg.PHIReadThreshold,
			DistinctIPs:  cfg.DistinctIPThreshold,
			AfterHours:   cfg.AfterHoursThreshold,
			NightStartHr: cfg.AfterHoursStart,
			NightEndHr:   cfg.AfterHoursEnd,
		},
		loc,
		logger,
	)

	worker := NewWorker(queue, lifecycleSvc, securitySvc,
		metrics.NewLifecycleMetrics(nil), logger)

	worker.Start(ctx)

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
		logger.Info("lifecycle worker stopped")
	case <-doneCtx.Done():
		logger.Error("lifecycle worker shutdown timed out", "error", doneCtx.Err())
	}

	return nil
}
