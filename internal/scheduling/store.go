package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Directory resolves doctors by their caller-facing keys.
type Directory interface {
	CreateDoctor(ctx context.Context, name, ownerEmail string) (*Doctor, error)
	DoctorByName(ctx context.Context, name string) (*Doctor, error)
	DoctorByOwner(ctx context.Context, email string) (*Doctor, error)
}

// AvailabilityStore owns the open slots per (doctor, date).
// A label present under a date is free; an absent label was never offered or is booked.
type AvailabilityStore interface {
	SlotsFor(ctx context.Context, doctorID, date string) ([]string, error)
	Availability(ctx context.Context, doctorID string) (Availability, error)
	AddSlots(ctx context.Context, doctorID string, slots Availability) (*AddSlotsResult, error)
	RemoveSlot(ctx context.Context, doctorID, date, slot string) error
}

// Ledger is the read side of the booked appointments.
type Ledger interface {
	Appointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error)
}

// Store combines the directory, availability and ledger with the one atomic
// operation that spans them.
type Store interface {
	Directory
	AvailabilityStore
	Ledger

	// Reserve removes appt's slot from availability and records appt, or does
	// neither. It returns ErrSlotNotFound when the slot is not open at commit.
	Reserve(ctx context.Context, appt Appointment) (*Appointment, error)
}

// Option customizes a store.
type Option func(*storeOptions)

type storeOptions struct {
	now func() time.Time
}

// WithClock overrides the clock used for CreatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) storeOptions {
	o := storeOptions{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func validateReservation(appt Appointment) error {
	if strings.TrimSpace(appt.DoctorID) == "" {
		return fmt.Errorf("scheduling: reserve: %w", ErrDoctorNotFound)
	}
	if !ValidDate(appt.Date) {
		return fmt.Errorf("scheduling: reserve: %w", ErrInvalidDate)
	}
	if strings.TrimSpace(appt.Slot) == "" {
		return fmt.Errorf("scheduling: reserve: %w", ErrInvalidSlot)
	}
	return nil
}

func validateAdditions(slots Availability) error {
	for date := range slots {
		if !ValidDate(date) {
			return fmt.Errorf("scheduling: add slots %q: %w", date, ErrInvalidDate)
		}
	}
	return nil
}
