package notify

import (
	"context"
	"errors"
	"time"

	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

const defaultEnqueueTimeout = 2 * time.Second

// Publisher enqueues notification jobs from the request path.
type Publisher struct {
	queue   Queue
	timeout time.Duration
	logger  *logging.Logger
	now     func() time.Time
}

// NewPublisher creates a publisher. Enqueue waits at most timeout (default 2s).
func NewPublisher(queue Queue, timeout time.Duration, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("notify: queue cannot be nil")
	}
	if timeout <= 0 {
		timeout = defaultEnqueueTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, timeout: timeout, logger: logger, now: time.Now}
}

// PublishBooking queues the calendar entry and confirmation email for a booking.
func (p *Publisher) PublishBooking(ctx context.Context, b BookingConfirmation) error {
	return p.publish(ctx, Job{Kind: JobBookingConfirmation, Booking: &b})
}

// PublishReport queues a chat report.
func (p *Publisher) PublishReport(ctx context.Context, text string) error {
	if text == "" {
		return errors.New("notify: empty report")
	}
	return p.publish(ctx, Job{Kind: JobChatReport, Report: text})
}

func (p *Publisher) publish(ctx context.Context, job Job) error {
	job.EnqueuedAt = p.now().UTC()
	job, body, err := encodeJob(job)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.queue.Send(ctx, body); err != nil {
		return err
	}
	p.logger.Debug("notification job queued", "job_id", job.ID, "kind", job.Kind)
	return nil
}
