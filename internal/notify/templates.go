package notify

import (
	"fmt"
	"time"

	"github.com/Rithvickkr/DOBBE-assignment/internal/scheduling"
)

// BookingConfirmation is the side-effect request emitted after a booking commits.
type BookingConfirmation struct {
	AppointmentID string `json:"appointment_id"`
	PatientEmail  string `json:"patient_email"`
	PatientName   string `json:"patient_name"`
	DoctorName    string `json:"doctor_name"`
	Date          string `json:"date"`
	Slot          string `json:"slot"`
	Reason        string `json:"reason"`
}

// ConfirmationFor builds the confirmation request for a stored appointment.
func ConfirmationFor(appt scheduling.Appointment) BookingConfirmation {
	return BookingConfirmation{
		AppointmentID: appt.ID,
		PatientEmail:  appt.Patient.Email,
		PatientName:   appt.Patient.Name,
		DoctorName:    appt.DoctorName,
		Date:          appt.Date,
		Slot:          appt.Slot,
		Reason:        appt.Reason,
	}
}

// ConfirmationEmail renders the patient-facing confirmation.
func ConfirmationEmail(b BookingConfirmation) EmailMessage {
	return EmailMessage{
		To:      b.PatientEmail,
		ToName:  b.PatientName,
		Subject: "Appointment Confirmation",
		Body: fmt.Sprintf(
			"Dear %s,\n\nYour appointment with %s on %s at %s for %s has been confirmed.\n\nThank you,\nMedical Assistant Team",
			b.PatientName, b.DoctorName, b.Date, b.Slot, b.Reason,
		),
	}
}

// CalendarEvent is a timed entry on the clinic calendar.
type CalendarEvent struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

// CalendarEventFor places the booked slot on the calendar in loc.
func CalendarEventFor(b BookingConfirmation, loc *time.Location) (CalendarEvent, error) {
	if loc == nil {
		loc = time.UTC
	}
	startClock, endClock, err := scheduling.ParseSlotLabel(b.Slot)
	if err != nil {
		return CalendarEvent{}, err
	}
	start, err := startClock.On(b.Date, loc)
	if err != nil {
		return CalendarEvent{}, err
	}
	end, err := endClock.On(b.Date, loc)
	if err != nil {
		return CalendarEvent{}, err
	}
	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	return CalendarEvent{
		Summary:     fmt.Sprintf("Appointment: %s - %s", b.PatientName, b.Reason),
		Description: fmt.Sprintf("%s with %s (%s)", b.Slot, b.DoctorName, b.PatientEmail),
		Start:       start,
		End:         end,
		Attendees:   []string{b.PatientEmail},
	}, nil
}
