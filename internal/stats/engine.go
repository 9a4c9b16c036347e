// Package stats answers read-only appointment questions with a privacy scope
// chosen by the caller's view.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Rithvickkr/DOBBE-assignment/internal/scheduling"
	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

var statsTracer = otel.Tracer("dobbe.internal.stats")

// ErrDoctorNotFound is returned when the doctor name matches nobody.
var ErrDoctorNotFound = scheduling.ErrDoctorNotFound

// ErrMissingPatientEmail is returned for a patient view without an email.
var ErrMissingPatientEmail = errors.New("patient email is required")

// ViewMode selects which projection of the appointments a caller receives.
type ViewMode int

const (
	ViewGeneral ViewMode = iota
	ViewPatient
	ViewDoctor
)

func (m ViewMode) String() string {
	switch m {
	case ViewPatient:
		return "patient"
	case ViewDoctor:
		return "doctor"
	default:
		return "general"
	}
}

// Viewer is the privacy scope of a query. ViewDoctor is trusted; callers
// must check the requester's role before building one.
type Viewer struct {
	Mode         ViewMode
	PatientEmail string
}

func GeneralViewer() Viewer { return Viewer{Mode: ViewGeneral} }

func PatientViewer(email string) Viewer { return Viewer{Mode: ViewPatient, PatientEmail: email} }

func DoctorViewer() Viewer { return Viewer{Mode: ViewDoctor} }

// Query asks about one doctor on one day.
type Query struct {
	Doctor string
	Date   DateSelector
	Viewer Viewer
}

// Lookup asks whether an exact appointment exists.
type Lookup struct {
	Doctor      string
	Date        DateSelector
	PatientName string
	Reason      string
}

// Engine runs stats queries against the scheduling store.
type Engine struct {
	store    scheduling.Store
	location *time.Location
	now      func() time.Time
	logger   *logging.Logger
}

// NewEngine resolves relative dates in loc (UTC when nil).
func NewEngine(store scheduling.Store, loc *time.Location, logger *logging.Logger) *Engine {
	if store == nil {
		panic("stats: store required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{store: store, location: loc, now: time.Now, logger: logger}
}

// Query returns the report for q's view. No matching rows is a report, not an error.
func (e *Engine) Query(ctx context.Context, q Query) (Report, error) {
	ctx, span := statsTracer.Start(ctx, "stats.query")
	defer span.End()

	date := q.Date.Resolve(e.now(), e.location)
	span.SetAttributes(
		attribute.String("stats.view", q.Viewer.Mode.String()),
		attribute.String("stats.date", date),
	)

	doctor, err := e.doctor(ctx, q.Doctor)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	e.logger.Debug("stats query", "doctor", doctor.Name, "date", date, "view", q.Viewer.Mode.String())

	switch q.Viewer.Mode {
	case ViewPatient:
		email := strings.TrimSpace(q.Viewer.PatientEmail)
		if email == "" {
			return nil, ErrMissingPatientEmail
		}
		appts, err := e.appointments(ctx, scheduling.AppointmentFilter{DoctorID: doctor.ID, Date: date, PatientEmail: email})
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		report := PatientReport{Doctor: doctor.Name, Date: date, PatientEmail: email, Appointments: []PatientEntry{}}
		for _, a := range appts {
			report.Appointments = append(report.Appointments, PatientEntry{Slot: a.Slot, PatientName: a.Patient.Name, Reason: a.Reason})
		}
		return report, nil

	case ViewDoctor:
		appts, err := e.appointments(ctx, scheduling.AppointmentFilter{DoctorID: doctor.ID, Date: date})
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		report := DoctorReport{Doctor: doctor.Name, Date: date, Appointments: []DoctorEntry{}}
		for _, a := range appts {
			report.Appointments = append(report.Appointments, DoctorEntry{
				Slot:         a.Slot,
				PatientName:  a.Patient.Name,
				PatientEmail: a.Patient.Email,
				Reason:       a.Reason,
			})
		}
		return report, nil

	default:
		slots, err := e.store.SlotsFor(ctx, doctor.ID, date)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("stats: read slots: %w", err)
		}
		report := GeneralReport{Doctor: doctor.Name, Date: date, OpenSlots: append([]string{}, slots...)}
		if len(slots) == 0 {
			appts, err := e.appointments(ctx, scheduling.AppointmentFilter{DoctorID: doctor.ID, Date: date})
			if err != nil {
				span.RecordError(err)
				return nil, err
			}
			report.Booked = len(appts)
		}
		return report, nil
	}
}

// Lookup reports whether an appointment matches every field of l.
func (e *Engine) Lookup(ctx context.Context, l Lookup) (LookupReport, error) {
	ctx, span := statsTracer.Start(ctx, "stats.lookup")
	defer span.End()

	date := l.Date.Resolve(e.now(), e.location)
	doctor, err := e.doctor(ctx, l.Doctor)
	if err != nil {
		span.RecordError(err)
		return LookupReport{}, err
	}
	appts, err := e.appointments(ctx, scheduling.AppointmentFilter{
		DoctorID:    doctor.ID,
		Date:        date,
		PatientName: l.PatientName,
		Reason:      l.Reason,
	})
	if err != nil {
		span.RecordError(err)
		return LookupReport{}, err
	}
	return LookupReport{
		Doctor:      doctor.Name,
		Date:        date,
		PatientName: l.PatientName,
		Reason:      l.Reason,
		Found:       len(appts) > 0,
	}, nil
}

func (e *Engine) doctor(ctx context.Context, name string) (*scheduling.Doctor, error) {
	doctor, err := e.store.DoctorByName(ctx, name)
	if err != nil {
		if errors.Is(err, scheduling.ErrDoctorNotFound) {
			return nil, fmt.Errorf("stats: doctor %q: %w", name, ErrDoctorNotFound)
		}
		return nil, fmt.Errorf("stats: resolve doctor: %w", err)
	}
	return doctor, nil
}

func (e *Engine) appointments(ctx context.Context, filter scheduling.AppointmentFilter) ([]scheduling.Appointment, error) {
	appts, err := e.store.Appointments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("stats: read appointments: %w", err)
	}
	return appts, nil
}
