package lifecycleworker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/brightharbor/homecare-platform/internal/lifecycle"
	"github.com/brightharbor/homecare-platform/internal/observability/metrics"
	"github.com/brightharbor/homecare-platform/internal/security"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

const (
	jobArchive    = "archive"
	jobBreachScan = "breach_scan"

	deleteTimeoutSeconds = 10
)

// Archiver runs the retention sweep.
type Archiver interface {
	Archive(ctx context.Context, actor lifecycle.Actor) (*lifecycle.ArchiveResult, error)
}

// BreachScanner runs the activity log breach scan.
type BreachScanner interface {
	Scan(ctx context.Context) (*security.ScanResult, error)
}

// jobPayload is the queue message body, e.g. {"job":"archive"}.
type jobPayload struct {
	Job string `json:"job"`
}

// systemActor is the identity queue-triggered sweeps run as. The archive
// flow requires an admin role.
var systemActor = lifecycle.Actor{UserID: "lifecycle-worker", Role: "admin"}

type workerConfig struct {
	workers          int
	receiveBatchSize int
	receiveWaitSecs  int
}

// Option configures the worker.
type Option func(*workerConfig)

// WithWorkerCount sets the number of polling goroutines.
func WithWorkerCount(n int) Option {
	return func(cfg *workerConfig) {
		if n > 0 {
			cfg.workers = n
		}
	}
}

// Worker polls the lifecycle job queue and runs the requested sweeps.
type Worker struct {
	queue    queueClient
	archiver Archiver
	scanner  BreachScanner
	metrics  *metrics.LifecycleMetrics
	logger   *logging.Logger
	cfg      workerConfig
	wg       sync.WaitGroup
}

// NewWorker creates a lifecycle job worker.
func NewWorker(queue queueClient, archiver Archiver, scanner BreachScanner,
	m *metrics.LifecycleMetrics, logger *logging.Logger, opts ...Option) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	cfg := workerConfig{
		workers:          1,
		receiveBatchSize: 5,
		receiveWaitSecs:  20,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Worker{
		queue:    queue,
		archiver: archiver,
		scanner:  scanner,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
	}
}

// Start launches worker goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("lifecycle worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("lifecycle worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive lifecycle jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

// handleMessage runs one job. Undecodable or unknown jobs are deleted so they
// do not poison the queue; failed jobs are left for SQS redelivery.
func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	var payload jobPayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("failed to decode lifecycle job", "error", err, "message_id", msg.ID)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	var err error
	switch payload.Job {
	case jobArchive:
		err = w.runArchive(ctx)
	case jobBreachScan:
		err = w.runBreachScan(ctx)
	default:
		w.logger.Warn("unknown lifecycle job", "job", payload.Job, "message_id", msg.ID)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	if err != nil {
		w.logger.Error("lifecycle job failed", "job", payload.Job, "error", err, "message_id", msg.ID)
		return
	}

	w.deleteMessage(context.Background(), msg.ReceiptHandle)
}

func (w *Worker) runArchive(ctx context.Context) error {
	if w.archiver == nil {
		return errors.New("lifecycleworker: archiver not configured")
	}
	start := time.Now()
	result, err := w.archiver.Archive(ctx, systemActor)
	w.metrics.ObserveSweepDuration("archive", time.Since(start).Seconds())
	if err != nil {
		w.metrics.ObserveArchiveRun("error")
		return err
	}
	w.metrics.ObserveArchiveRun("ok")
	w.metrics.ObserveRecords("archive", "clients", float64(result.ClientsArchived))
	w.metrics.ObserveRecords("archive", "inquiries", float64(result.InquiriesDeleted))
	w.logger.Info("queued archive sweep complete",
		"clients_archived", result.ClientsArchived,
		"inquiries_deleted", result.InquiriesDeleted,
		"visits_eligible", result.VisitsEligible)
	return nil
}

func (w *Worker) runBreachScan(ctx context.Context) error {
	if w.scanner == nil {
		return errors.New("lifecycleworker: scanner not configured")
	}
	start := time.Now()
	result, err := w.scanner.Scan(ctx)
	w.metrics.ObserveSweepDuration("breach_scan", time.Since(start).Seconds())
	if err != nil {
		return err
	}
	for _, f := range result.Findings {
		w.metrics.ObserveBreachFinding(string(f.Severity))
	}
	w.logger.Info("queued breach scan complete",
		"entries", result.EntriesScanned,
		"findings", len(result.Findings),
		"incidents", result.IncidentsCreated)
	return nil
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete lifecycle job", "error", err)
	}
}
