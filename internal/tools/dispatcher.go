// Package tools exposes the scheduling engines to the agent as string-in,
// string-out tools. Nothing here returns an error to the agent; every outcome
// is an observation it can reason over.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Rithvickkr/DOBBE-assignment/internal/auth"
	"github.com/Rithvickkr/DOBBE-assignment/internal/booking"
	"github.com/Rithvickkr/DOBBE-assignment/internal/observability/metrics"
	"github.com/Rithvickkr/DOBBE-assignment/internal/scheduling"
	"github.com/Rithvickkr/DOBBE-assignment/internal/stats"
	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

// Tool names as the agent sees them.
const (
	CheckAvailability = "check_availability"
	BookAppointment   = "book_appointment"
	QueryStats        = "query_stats"
)

// Descriptor documents one tool for prompt construction.
type Descriptor struct {
	Name        string
	Description string
	InputFormat string
	Example     string
}

var descriptors = []Descriptor{
	{
		Name:        CheckAvailability,
		Description: "Check a doctor's open slots on a specific date",
		InputFormat: "'Doctor Name, YYYY-MM-DD'",
		Example:     "Dr. Ahuja, 2025-08-23",
	},
	{
		Name:        BookAppointment,
		Description: "Book an appointment slot for a patient",
		InputFormat: "'Doctor Name, YYYY-MM-DD, Time, Email, Patient Name, Reason'",
		Example:     "Dr. Ahuja, 2025-08-23, 9AM-10AM, patient@email.com, John Doe, checkup",
	},
	{
		Name:        QueryStats,
		Description: "Appointment statistics for a doctor. 'query_type, Doctor Name' shows open slots; add a patient email for that patient's own appointments; add DOCTOR_VIEW (doctors only) for full details; 'YYYY-MM-DD, Doctor Name, Patient Name, Reason' checks one appointment",
		InputFormat: "'appointments_today|appointments_tomorrow|appointments_yesterday|YYYY-MM-DD, Doctor Name[, Patient Email|DOCTOR_VIEW]'",
		Example:     "appointments_today, Dr. Ahuja, raju@example.com",
	},
}

// ToolsFor lists the tools a caller may use. Doctors only read.
func ToolsFor(role auth.Role) []Descriptor {
	out := make([]Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if allowed(role, d.Name) {
			out = append(out, d)
		}
	}
	return out
}

func allowed(role auth.Role, tool string) bool {
	if role == auth.RoleDoctor {
		return tool != BookAppointment
	}
	return true
}

// Booker commits bookings.
type Booker interface {
	Book(ctx context.Context, req booking.Request) (*booking.Confirmation, error)
}

// SlotReader reads open slots by doctor name.
type SlotReader interface {
	DoctorByName(ctx context.Context, name string) (*scheduling.Doctor, error)
	SlotsFor(ctx context.Context, doctorID, date string) ([]string, error)
}

// StatsEngine answers stats questions.
type StatsEngine interface {
	Query(ctx context.Context, q stats.Query) (stats.Report, error)
	Lookup(ctx context.Context, l stats.Lookup) (stats.LookupReport, error)
}

// Dispatcher routes tool calls to the engines.
type Dispatcher struct {
	slots   SlotReader
	booker  Booker
	stats   StatsEngine
	metrics *metrics.EngineMetrics
	logger  *logging.Logger
}

// NewDispatcher wires the engines. m may be nil.
func NewDispatcher(slots SlotReader, booker Booker, statsEngine StatsEngine, m *metrics.EngineMetrics, logger *logging.Logger) *Dispatcher {
	if slots == nil || booker == nil || statsEngine == nil {
		panic("tools: slots, booker and stats are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{slots: slots, booker: booker, stats: statsEngine, metrics: m, logger: logger}
}

// Dispatch runs tool with input on behalf of caller and always returns an observation.
func (d *Dispatcher) Dispatch(ctx context.Context, caller auth.Principal, tool, input string) (observation string) {
	tool = strings.TrimSpace(tool)
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked", "tool", tool, "panic", fmt.Sprint(r))
			status = "panic"
			observation = fmt.Sprintf("Tool %s failed unexpectedly. Please try again.", tool)
		}
		d.metrics.ObserveToolCall(tool, status)
		d.logger.Debug("tool call", "tool", tool, "status", status, "user", caller.Email)
	}()

	if !known(tool) {
		status = "unknown_tool"
		return fmt.Sprintf("Unknown tool %q. Available tools: %s", tool, strings.Join(names(ToolsFor(caller.Role)), ", "))
	}
	if !allowed(caller.Role, tool) {
		status = "unauthorized"
		return fmt.Sprintf("Not authorized: %s is not available to %s users.", tool, caller.Role)
	}

	var err error
	switch tool {
	case CheckAvailability:
		observation, err = d.checkAvailability(ctx, input)
	case BookAppointment:
		observation, err = d.bookAppointment(ctx, input)
	case QueryStats:
		observation, err = d.queryStats(ctx, caller, input)
	}
	if err != nil {
		status = statusOf(err)
		observation = d.render(tool, err)
	}
	return observation
}

func (d *Dispatcher) checkAvailability(ctx context.Context, input string) (string, error) {
	req, err := parseAvailability(input)
	if err != nil {
		return "", err
	}
	doctor, err := d.slots.DoctorByName(ctx, req.Doctor)
	if err != nil {
		return "", notFoundOr(req.Doctor, err)
	}
	slots, err := d.slots.SlotsFor(ctx, doctor.ID, req.Date)
	if err != nil {
		return "", err
	}
	if len(slots) == 0 {
		return fmt.Sprintf("No available slots for %s on %s", doctor.Name, req.Date), nil
	}
	return fmt.Sprintf("Available slots for %s on %s: %s", doctor.Name, req.Date, strings.Join(slots, ", ")), nil
}

func (d *Dispatcher) bookAppointment(ctx context.Context, input string) (string, error) {
	req, err := parseBooking(input)
	if err != nil {
		return "", err
	}
	conf, err := d.booker.Book(ctx, req)
	if err != nil {
		if errors.Is(err, booking.ErrDoctorNotFound) {
			return "", &notFoundError{req.DoctorName}
		}
		return "", err
	}
	return conf.Message(), nil
}

func (d *Dispatcher) queryStats(ctx context.Context, caller auth.Principal, input string) (string, error) {
	req, err := parseStats(input)
	if err != nil {
		return "", err
	}
	selector, err := stats.ParseDateSelector(req.Selector)
	if err != nil {
		return "", &inputError{fmt.Sprintf("Invalid query type '%s': use appointments_today, appointments_tomorrow, appointments_yesterday or YYYY-MM-DD", req.Selector)}
	}

	if req.Kind == StatsLookup {
		report, err := d.stats.Lookup(ctx, stats.Lookup{Doctor: req.Doctor, Date: selector, PatientName: req.PatientName, Reason: req.Reason})
		if err != nil {
			return "", notFoundOr(req.Doctor, err)
		}
		return report.String(), nil
	}

	viewer := stats.GeneralViewer()
	switch req.Kind {
	case StatsDoctorView:
		if !caller.IsDoctor() {
			return "", &unauthorizedError{"Not authorized: DOCTOR_VIEW is only available to doctors."}
		}
		viewer = stats.DoctorViewer()
	case StatsPatient:
		if !caller.IsDoctor() && !strings.EqualFold(req.PatientEmail, caller.Email) {
			return "", &unauthorizedError{"Not authorized: patients can only view their own appointments."}
		}
		viewer = stats.PatientViewer(req.PatientEmail)
	}

	report, err := d.stats.Query(ctx, stats.Query{Doctor: req.Doctor, Date: selector, Viewer: viewer})
	if err != nil {
		return "", notFoundOr(req.Doctor, err)
	}
	return report.String(), nil
}

type notFoundError struct{ doctor string }

func (e *notFoundError) Error() string { return fmt.Sprintf("Doctor '%s' not found.", e.doctor) }

type unauthorizedError struct{ msg string }

func (e *unauthorizedError) Error() string { return e.msg }

func notFoundOr(doctor string, err error) error {
	if errors.Is(err, scheduling.ErrDoctorNotFound) {
		return &notFoundError{doctor}
	}
	return err
}

func statusOf(err error) string {
	var (
		input    *inputError
		notFound *notFoundError
		unauth   *unauthorizedError
	)
	switch {
	case errors.As(err, &input), errors.Is(err, booking.ErrMalformedRequest), errors.Is(err, stats.ErrMissingPatientEmail):
		return "malformed"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &unauth):
		return "unauthorized"
	case errors.Is(err, booking.ErrSlotUnavailable):
		return "conflict"
	default:
		return "error"
	}
}

// render turns an engine error into the observation text.
func (d *Dispatcher) render(tool string, err error) string {
	var (
		input    *inputError
		notFound *notFoundError
		unauth   *unauthorizedError
		slot     *booking.SlotUnavailableError
	)
	switch {
	case errors.As(err, &input):
		return input.msg
	case errors.As(err, &notFound):
		return notFound.Error()
	case errors.As(err, &unauth):
		return unauth.msg
	case errors.As(err, &slot):
		return slot.Error()
	case errors.Is(err, booking.ErrMalformedRequest):
		return "Booking failed: " + strings.TrimPrefix(err.Error(), booking.ErrMalformedRequest.Error()+": ") + ". " + bookingUsage
	case errors.Is(err, stats.ErrMissingPatientEmail):
		return "Please include the patient email as the third value."
	}

	d.logger.Error("tool failed", "tool", tool, "error", err)
	switch tool {
	case CheckAvailability:
		return "Error checking availability. Please try again."
	case BookAppointment:
		return "Booking failed due to an internal error. Please try again."
	default:
		return "Error querying stats. Please try again."
	}
}

func known(tool string) bool {
	for _, d := range descriptors {
		if d.Name == tool {
			return true
		}
	}
	return false
}

func names(ds []Descriptor) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Name)
	}
	return out
}
