package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Rithvickkr/DOBBE-assignment/internal/observability/metrics"
	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

const defaultCallTimeout = 10 * time.Second

// Deliverer performs the external calls for a job. Every call gets its own
// timeout and failures are logged and counted, never retried.
type Deliverer struct {
	email    EmailSender
	calendar CalendarScheduler
	chat     ChatReporter
	location *time.Location
	timeout  time.Duration
	metrics  *metrics.EngineMetrics
	logger   *logging.Logger
}

// DelivererConfig wires the collaborators. Nil collaborators are skipped.
type DelivererConfig struct {
	Email    EmailSender
	Calendar CalendarScheduler
	Chat     ChatReporter
	Location *time.Location
	Timeout  time.Duration
	Metrics  *metrics.EngineMetrics
}

func NewDeliverer(cfg DelivererConfig, logger *logging.Logger) *Deliverer {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCallTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Deliverer{
		email:    cfg.Email,
		calendar: cfg.Calendar,
		chat:     cfg.Chat,
		location: cfg.Location,
		timeout:  cfg.Timeout,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

// Deliver runs the side effects of job. Only an unknown kind is an error.
func (d *Deliverer) Deliver(ctx context.Context, job Job) error {
	switch job.Kind {
	case JobBookingConfirmation:
		if job.Booking == nil {
			return fmt.Errorf("notify: job %s has no booking", job.ID)
		}
		d.deliverBooking(ctx, job.ID, *job.Booking)
		return nil
	case JobChatReport:
		d.deliverReport(ctx, job.ID, job.Report)
		return nil
	default:
		return fmt.Errorf("notify: unknown job kind %q", job.Kind)
	}
}

func (d *Deliverer) deliverBooking(ctx context.Context, jobID string, b BookingConfirmation) {
	if d.calendar != nil {
		event, err := CalendarEventFor(b, d.location)
		if err == nil {
			err = d.call(ctx, func(ctx context.Context) error {
				_, err := d.calendar.CreateEvent(ctx, event)
				return err
			})
		}
		d.metrics.ObserveNotification("calendar", err)
		if err != nil {
			d.logger.Warn("calendar event not created", "job_id", jobID, "appointment_id", b.AppointmentID, "error", err)
		}
	}

	if d.email != nil {
		err := d.call(ctx, func(ctx context.Context) error {
			return d.email.Send(ctx, ConfirmationEmail(b))
		})
		d.metrics.ObserveNotification("email", err)
		if err != nil {
			d.logger.Warn("confirmation email not sent", "job_id", jobID, "appointment_id", b.AppointmentID, "to", b.PatientEmail, "error", err)
		}
	}
}

func (d *Deliverer) deliverReport(ctx context.Context, jobID, text string) {
	if d.chat == nil || text == "" {
		return
	}
	err := d.call(ctx, func(ctx context.Context) error {
		return d.chat.Report(ctx, text)
	})
	d.metrics.ObserveNotification("chat", err)
	if err != nil {
		d.logger.Warn("chat report not posted", "job_id", jobID, "error", err)
	}
}

func (d *Deliverer) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return fn(ctx)
}
