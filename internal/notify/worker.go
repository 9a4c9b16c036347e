package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

const (
	defaultWorkerCount = 2
	defaultWaitSeconds = 10
	defaultBatchSize   = 5
)

// Worker consumes notification jobs and hands them to a Deliverer.
type Worker struct {
	queue     Queue
	deliverer *Deliverer
	logger    *logging.Logger
	cfg       workerConfig
	wg        sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait per receive.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds >= 0 {
			cfg.receiveWaitSecs = seconds
		}
	}
}

// WithReceiveBatchSize caps messages per receive.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size > 0 && size <= 10 {
			cfg.receiveBatchSize = size
		}
	}
}

// NewWorker constructs a queue consumer.
func NewWorker(queue Queue, deliverer *Deliverer, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if queue == nil {
		panic("notify: queue cannot be nil")
	}
	if deliverer == nil {
		panic("notify: deliverer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Worker{queue: queue, deliverer: deliverer, logger: logger, cfg: cfg}
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
	w.logger.Debug("notification worker started", "worker_id", workerID)

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("notification worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			w.logger.Error("failed to receive notification jobs", "error", err, "worker_id", workerID)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
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

func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	job, err := decodeJob(msg.Body)
	if err != nil {
		w.logger.Error("dropping undecodable notification job", "error", err, "msg_id", msg.ID)
	} else if err := w.deliverer.Deliver(ctx, job); err != nil {
		w.logger.Error("notification job failed", "error", err, "job_id", job.ID, "kind", job.Kind)
	} else {
		w.logger.Info("notification job processed", "job_id", job.ID, "kind", job.Kind, "queued_for", time.Since(job.EnqueuedAt).String())
	}

	// Delivery is best-effort; the message is removed whatever the outcome.
	if err := w.queue.Delete(context.WithoutCancel(ctx), msg.ReceiptHandle); err != nil {
		w.logger.Error("failed to delete notification job", "error", err, "msg_id", msg.ID)
	}
}
