// Package booking is the single path through which appointments are created.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Rithvickkr/DOBBE-assignment/internal/notify"
	"github.com/Rithvickkr/DOBBE-assignment/internal/observability/metrics"
	"github.com/Rithvickkr/DOBBE-assignment/internal/scheduling"
	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

var bookingTracer = otel.Tracer("dobbe.internal.booking")

// Notifier accepts the post-commit side effects of a booking.
type Notifier interface {
	PublishBooking(ctx context.Context, b notify.BookingConfirmation) error
}

// Confirmation is a committed booking plus any informational notes.
type Confirmation struct {
	Appointment scheduling.Appointment
	Notes       []string
}

// Message renders the confirmation the way the assistant reports it.
func (c *Confirmation) Message() string {
	a := c.Appointment
	msg := fmt.Sprintf("Appointment booked successfully for %s (%s) with %s on %s at %s for %s.",
		a.Patient.Name, a.Patient.Email, a.DoctorName, a.Date, a.Slot, a.Reason)
	for _, note := range c.Notes {
		msg += " " + note
	}
	return msg
}

const (
	noteQueued    = "A calendar invite and confirmation email will follow."
	noteNotQueued = "Note: the confirmation email and calendar invite could not be scheduled."
)

// Engine validates and commits bookings against a scheduling.Store.
type Engine struct {
	store    scheduling.Store
	notifier Notifier
	locks    *keyedLocker
	metrics  *metrics.EngineMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// NewEngine builds an engine. notifier and m may be nil.
func NewEngine(store scheduling.Store, notifier Notifier, m *metrics.EngineMetrics, logger *logging.Logger) *Engine {
	if store == nil {
		panic("booking: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		store:    store,
		notifier: notifier,
		locks:    newKeyedLocker(),
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Book reserves req.Slot for req.Patient. At most one concurrent caller wins a
// given (doctor, date, slot); the others get a *SlotUnavailableError.
func (e *Engine) Book(ctx context.Context, req Request) (*Confirmation, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.doctor", req.DoctorName),
		attribute.String("booking.date", req.Date),
		attribute.String("booking.slot", req.Slot),
	)

	started := e.now()
	conf, err := e.book(ctx, req)
	e.metrics.ObserveBooking(outcomeOf(err), e.now().Sub(started).Seconds())
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrInternal) {
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	// Side effects run after the lock is released.
	e.publish(ctx, conf)
	return conf, nil
}

func (e *Engine) book(ctx context.Context, req Request) (*Confirmation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	doctor, err := e.store.DoctorByName(ctx, req.DoctorName)
	if err != nil {
		if errors.Is(err, scheduling.ErrDoctorNotFound) {
			return nil, fmt.Errorf("booking: doctor %q: %w", req.DoctorName, ErrDoctorNotFound)
		}
		return nil, fmt.Errorf("booking: resolve doctor: %w: %w", ErrInternal, err)
	}

	unlock := e.locks.Lock(doctor.ID + "|" + req.Date)
	defer unlock()

	slots, err := e.store.SlotsFor(ctx, doctor.ID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("booking: read slots: %w: %w", ErrInternal, err)
	}
	if !scheduling.ContainsSlot(slots, req.Slot) {
		return nil, &SlotUnavailableError{Doctor: doctor.Name, Date: req.Date, Slot: req.Slot, Remaining: slots}
	}

	appt, err := e.store.Reserve(ctx, scheduling.Appointment{
		DoctorID:   doctor.ID,
		DoctorName: doctor.Name,
		Patient:    req.Patient,
		Date:       req.Date,
		Slot:       req.Slot,
		Reason:     req.Reason,
	})
	if err != nil {
		if errors.Is(err, scheduling.ErrSlotNotFound) {
			// Lost to a writer outside this process; report what is left now.
			remaining, readErr := e.store.SlotsFor(ctx, doctor.ID, req.Date)
			if readErr != nil {
				return nil, fmt.Errorf("booking: re-read slots: %w: %w", ErrInternal, readErr)
			}
			return nil, &SlotUnavailableError{Doctor: doctor.Name, Date: req.Date, Slot: req.Slot, Remaining: remaining}
		}
		return nil, fmt.Errorf("booking: reserve: %w: %w", ErrInternal, err)
	}

	e.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"doctor", appt.DoctorName,
		"date", appt.Date,
		"slot", appt.Slot,
		"patient_email", appt.Patient.Email,
	)
	return &Confirmation{Appointment: *appt}, nil
}

func (e *Engine) publish(ctx context.Context, conf *Confirmation) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.PublishBooking(ctx, notify.ConfirmationFor(conf.Appointment)); err != nil {
		e.logger.Warn("booking notification not queued", "appointment_id", conf.Appointment.ID, "error", err)
		conf.Notes = append(conf.Notes, noteNotQueued)
		return
	}
	conf.Notes = append(conf.Notes, noteQueued)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "booked"
	case errors.Is(err, ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, ErrDoctorNotFound):
		return "doctor_not_found"
	case errors.Is(err, ErrMalformedRequest):
		return "malformed"
	default:
		return "error"
	}
}
