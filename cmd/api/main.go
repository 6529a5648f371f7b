package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brightharbor/homecare-platform/cmd/mainconfig"
	"github.com/brightharbor/homecare-platform/internal/api/router"
	"github.com/brightharbor/homecare-platform/internal/app/bootstrap"
	"github.com/brightharbor/homecare-platform/internal/audit"
	"github.com/brightharbor/homecare-platform/internal/billing"
	"github.com/brightharbor/homecare-platform/internal/clients"
	appconfig "github.com/brightharbor/homecare-platform/internal/config"
	"github.com/brightharbor/homecare-platform/internal/identity"
	"github.com/brightharbor/homecare-platform/internal/inquiries"
	"github.com/brightharbor/homecare-platform/internal/lifecycle"
	"github.com/brightharbor/homecare-platform/internal/messaging"
	"github.com/brightharbor/homecare-platform/internal/observability/metrics"
	"github.com/brightharbor/homecare-platform/internal/phicrypto"
	"github.com/brightharbor/homecare-platform/internal/security"
	"github.com/brightharbor/homecare-platform/internal/visits"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting homecare-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool == nil {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	defer pool.Close()
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	auditSvc := audit.NewService(sqlDB)

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	var s3Client lifecycle.S3Client
	if cfg.ArchiveBucket != "" {
		s3Client = s3.NewFromConfig(awsCfg)
	} else {
		logger.Warn("ARCHIVE_BUCKET not set, compliance exports disabled")
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	emailSender := bootstrap.BuildEmailSender(cfg, awsCfg, logger)

	// Repositories
	clientRepo := clients.NewRepository(pool)
	inquiryRepo := inquiries.NewRepository(pool)
	visitRepo := visits.NewRepository(pool)
	userRepo := identity.NewRepository(pool)
	billingRepo := billing.NewRepository(pool)
	incidentRepo := security.NewIncidentRepository(pool)

	// Lifecycle and breach-scan services
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
	securitySvc := security.NewService(auditSvc, incidentRepo, userRepo, emailSender,
		cfg.BreachWindow, security.Thresholds{
			FailedLogins: cfg.FailedLoginThreshold,
			PHIReads:     cfg.PHIReadThreshold,
			DistinctIPs:  cfg.DistinctIPThreshold,
			AfterHours:   cfg.AfterHoursThreshold,
			NightStartHr: cfg.AfterHoursStart,
			NightEndHr:   cfg.AfterHoursEnd,
		}, loc, logger)

	// Webhook idempotency
	var tracker billing.ProcessedTracker
	if redisClient != nil {
		tracker = billing.NewRedisProcessedTracker(redisClient)
	} else {
		tracker = billing.NewMemoryProcessedTracker()
		logger.Warn("redis not configured, webhook dedupe is process-local")
	}

	optouts := messaging.NewOptOutStore(pool, redisClient, logger)

	webhookURL := cfg.TwilioWebhookURL
	if webhookURL == "" && cfg.PublicBaseURL != "" {
		webhookURL = cfg.PublicBaseURL + "/webhooks/twilio/sms"
	}
	smsHandler := messaging.NewHandler(messaging.HandlerConfig{
		AuthToken:  cfg.TwilioAuthToken,
		WebhookURL: webhookURL,
		OptOuts:    optouts,
		Visits:     visitRepo,
		Logger:     logger,
	})

	var phiHandler *phicrypto.Handler
	if cfg.PHIEncryptionKey != "" {
		enc, err := phicrypto.New(cfg.PHIEncryptionKey)
		if err != nil {
			logger.Error("invalid PHI encryption key", "error", err)
			os.Exit(1)
		}
		phiHandler = phicrypto.NewHandler(enc, logger)
	} else {
		logger.Warn("PHI_ENCRYPTION_KEY not set, field encryption endpoints disabled")
	}

	metricsHandler, webhookMetrics := setupMetrics()

	r := router.New(&router.Config{
		Logger:           logger,
		InquiriesHandler: inquiries.NewHandler(inquiryRepo, pool, auditSvc, logger),
		ClientsHandler:   clients.NewHandler(clientRepo, auditSvc, logger),
		VisitsHandler:    visits.NewHandler(visitRepo, auditSvc, logger),
		AuditHandler:     audit.NewHandler(auditSvc, logger),
		LifecycleHandler: lifecycle.NewHandler(lifecycleSvc, logger),
		SecurityHandler:  security.NewHandler(securitySvc, incidentRepo, logger),
		PHIHandler:       phiHandler,
		SMSWebhook:       smsHandler,
		BillingHandler:   billing.NewHandler(billingRepo, logger),
		StripeWebhook:    billing.NewStripeWebhookHandler(cfg.StripeWebhookSecret, billingRepo, tracker, logger),
		MetricsHandler:   metricsHandler,
		WebhookMetrics:   webhookMetrics,

		AuthJWTSecret:      cfg.AuthJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// connectPostgresPool returns nil when no URL is configured or the pool
// cannot be created.
func connectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if url == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		return nil
	}
	return pool
}

// setupMetrics builds the /metrics endpoint with its own registry.
func setupMetrics() (http.Handler, *metrics.WebhookMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	webhookMetrics := metrics.NewWebhookMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), webhookMetrics
}
