package tools

import (
	"strings"

	"github.com/Rithvickkr/DOBBE-assignment/internal/booking"
	"github.com/Rithvickkr/DOBBE-assignment/internal/scheduling"
)

// DoctorViewFlag in the third query_stats field asks for the full doctor view.
const DoctorViewFlag = "DOCTOR_VIEW"

const (
	availabilityUsage = "Please provide doctor name and date separated by comma, e.g., Dr. Ahuja, 2025-08-23"
	bookingUsage      = "Please provide: doctor_name, date, time, patient_email, patient_name, reason separated by commas"
	statsTooFew       = "Please provide at least query type and doctor name separated by comma"
	statsTooMany      = "Invalid format. Use 'query_type,doctor_name' for stats, 'query_type,doctor_name,patient_email' for patient-specific queries, or 'date,doctor_name,patient_name,reason' for specific appointments"
)

// inputError is a malformed tool input; its message is the observation.
type inputError struct {
	msg string
}

func (e *inputError) Error() string { return e.msg }

// fields splits a positional argument string and cleans every field.
func fields(input string) []string {
	parts := strings.Split(input, ",")
	for i, p := range parts {
		parts[i] = cleanField(p)
	}
	return parts
}

func cleanField(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `'"`))
}

// AvailabilityRequest is a parsed check_availability input.
type AvailabilityRequest struct {
	Doctor string
	Date   string
}

func parseAvailability(input string) (AvailabilityRequest, error) {
	parts := fields(input)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return AvailabilityRequest{}, &inputError{availabilityUsage}
	}
	if !scheduling.ValidDate(parts[1]) {
		return AvailabilityRequest{}, &inputError{"Invalid date '" + parts[1] + "': use YYYY-MM-DD, e.g., Dr. Ahuja, 2025-08-23"}
	}
	return AvailabilityRequest{Doctor: parts[0], Date: parts[1]}, nil
}

func parseBooking(input string) (booking.Request, error) {
	parts := fields(input)
	if len(parts) != 6 {
		return booking.Request{}, &inputError{bookingUsage}
	}
	return booking.Request{
		DoctorName: parts[0],
		Date:       parts[1],
		Slot:       parts[2],
		Patient:    scheduling.Patient{Email: parts[3], Name: parts[4]},
		Reason:     parts[5],
	}, nil
}

// StatsKind distinguishes the query_stats input shapes.
type StatsKind int

const (
	StatsGeneral StatsKind = iota
	StatsPatient
	StatsDoctorView
	StatsLookup
)

// StatsRequest is a parsed query_stats input.
type StatsRequest struct {
	Kind         StatsKind
	Selector     string
	Doctor       string
	PatientEmail string
	PatientName  string
	Reason       string
}

func parseStats(input string) (StatsRequest, error) {
	parts := fields(input)
	switch {
	case len(parts) < 2:
		return StatsRequest{}, &inputError{statsTooFew}
	case len(parts) > 4:
		return StatsRequest{}, &inputError{statsTooMany}
	}
	if parts[0] == "" || parts[1] == "" {
		return StatsRequest{}, &inputError{statsTooFew}
	}

	req := StatsRequest{Selector: parts[0], Doctor: parts[1]}
	switch len(parts) {
	case 2:
		req.Kind = StatsGeneral
	case 3:
		if parts[2] == DoctorViewFlag {
			req.Kind = StatsDoctorView
		} else {
			req.Kind = StatsPatient
			req.PatientEmail = parts[2]
		}
	case 4:
		req.Kind = StatsLookup
		req.PatientName = parts[2]
		req.Reason = parts[3]
	}
	return req, nil
}
