package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/statuspulse/statuspulse/internal/pkg/metrics"
)

// Sender delivers a rendered notification to one recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// RetryClassifier decides whether a send error is worth retrying.
type RetryClassifier func(error) bool

// WorkerConfig contains worker configuration.
type WorkerConfig struct {
	BatchSize         int
	PollInterval      time.Duration
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	NumWorkers        int
}

// DefaultWorkerConfig returns default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BatchSize:         100,
		PollInterval:      5 * time.Second,
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        5 * time.Minute,
		BackoffMultiplier: 2.0,
		NumWorkers:        2,
	}
}

// Worker drains the notification queue and sends emails.
type Worker struct {
	config    WorkerConfig
	repo      Repository
	sender    Sender
	renderer  *Renderer
	retryable RetryClassifier

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWorker creates a notification worker. retryable may be nil, in which
// case every send error is retried until MaxAttempts.
func NewWorker(config WorkerConfig, repo Repository, sender Sender, renderer *Renderer, retryable RetryClassifier) *Worker {
	if retryable == nil {
		retryable = func(error) bool { return true }
	}
	return &Worker{
		config:    config,
		repo:      repo,
		sender:    sender,
		renderer:  renderer,
		retryable: retryable,
		stopCh:    make(chan struct{}),
	}
}

// Start launches worker goroutines.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("starting notification worker",
		"workers", w.config.NumWorkers,
		"batch_size", w.config.BatchSize,
		"poll_interval", w.config.PollInterval,
	)

	for i := 0; i < w.config.NumWorkers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	slog.Info("notification worker stopped")
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.processBatch(ctx, workerID)
		}
	}
}

func (w *Worker) processBatch(ctx context.Context, workerID int) {
	items, err := w.repo.FetchPending(ctx, w.config.BatchSize)
	if err != nil {
		slog.Error("failed to fetch pending notifications", "worker", workerID, "error", err)
		return
	}
	if len(items) == 0 {
		return
	}

	slog.Debug("processing notifications", "worker", workerID, "count", len(items))

	for _, item := range items {
		w.processItem(ctx, item)
	}
}

func (w *Worker) processItem(ctx context.Context, item *QueueItem) {
	subject, body, err := w.renderer.Render(item.Payload)
	if err != nil {
		slog.Error("failed to render notification", "item_id", item.ID, "error", err)
		if markErr := w.repo.MarkFailed(ctx, item.ID, err); markErr != nil {
			slog.Error("failed to mark as failed", "item_id", item.ID, "error", markErr)
		}
		metrics.NotificationsSent.WithLabelValues("failed").Inc()
		return
	}

	if err := w.sender.Send(ctx, item.Email, subject, body); err != nil {
		w.handleSendError(ctx, item, err)
		return
	}

	if err := w.repo.MarkSent(ctx, item.ID); err != nil {
		slog.Error("failed to mark as sent", "item_id", item.ID, "error", err)
	}
	metrics.NotificationsSent.WithLabelValues("success").Inc()

	slog.Debug("notification sent", "item_id", item.ID, "kind", item.Payload.Kind)
}

func (w *Worker) handleSendError(ctx context.Context, item *QueueItem, err error) {
	slog.Warn("send failed",
		"item_id", item.ID,
		"attempt", item.Attempts+1,
		"max_attempts", w.config.MaxAttempts,
		"error", err,
	)

	if !w.retryable(err) || item.Attempts+1 >= w.config.MaxAttempts {
		if markErr := w.repo.MarkFailed(ctx, item.ID, err); markErr != nil {
			slog.Error("failed to mark as failed", "item_id", item.ID, "error", markErr)
		}
		metrics.NotificationsSent.WithLabelValues("failed").Inc()
		return
	}

	nextAttempt := w.calculateNextAttempt(item.Attempts + 1)
	if markErr := w.repo.MarkForRetry(ctx, item.ID, err, nextAttempt); markErr != nil {
		slog.Error("failed to mark for retry", "item_id", item.ID, "error", markErr)
	}
	metrics.NotificationsSent.WithLabelValues("retry").Inc()

	slog.Info("notification scheduled for retry",
		"item_id", item.ID,
		"next_attempt", nextAttempt,
	)
}

func (w *Worker) calculateNextAttempt(attempt int) time.Time {
	backoff := float64(w.config.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= w.config.BackoffMultiplier
	}
	if backoff > float64(w.config.MaxBackoff) {
		backoff = float64(w.config.MaxBackoff)
	}
	return time.Now().Add(time.Duration(backoff))
}
