package scheduling

import (
	"time"
)

// DateLayout is the calendar date format used for availability keys.
const DateLayout = "2006-01-02"

// Availability maps a calendar date to the ordered open slot labels on it.
type Availability map[string][]string

// Clone returns a deep copy so callers can never alias store state.
func (a Availability) Clone() Availability {
	out := make(Availability, len(a))
	for date, slots := range a {
		out[date] = append([]string(nil), slots...)
	}
	return out
}

// Doctor is a bookable practitioner. Name is the unique lookup key callers use.
type Doctor struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	OwnerEmail   string       `json:"owner_email"`
	Availability Availability `json:"availability"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Patient identifies who an appointment is for.
type Patient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Appointment is a booked slot. It is created once and never mutated.
type Appointment struct {
	ID         string    `json:"id"`
	DoctorID   string    `json:"doctor_id"`
	DoctorName string    `json:"doctor_name"`
	Patient    Patient   `json:"patient"`
	Date       string    `json:"date"`
	Slot       string    `json:"slot"`
	Reason     string    `json:"reason"`
	Seq        int64     `json:"seq"`
	CreatedAt  time.Time `json:"created_at"`
}

// AppointmentFilter narrows a ledger read. Empty fields match everything.
type AppointmentFilter struct {
	DoctorID     string
	Date         string
	PatientEmail string
	PatientName  string
	Reason       string
}

// Matches reports whether appt satisfies every non-empty filter field.
func (f AppointmentFilter) Matches(appt Appointment) bool {
	if f.DoctorID != "" && appt.DoctorID != f.DoctorID {
		return false
	}
	if f.Date != "" && appt.Date != f.Date {
		return false
	}
	if f.PatientEmail != "" && appt.Patient.Email != f.PatientEmail {
		return false
	}
	if f.PatientName != "" && appt.Patient.Name != f.PatientName {
		return false
	}
	if f.Reason != "" && appt.Reason != f.Reason {
		return false
	}
	return true
}

// AddSlotsResult reports the availability after an AddSlots call.
// Skipped lists, per date, labels that were not re-offered because a live
// appointment already holds them.
type AddSlotsResult struct {
	Availability Availability        `json:"updated_availability"`
	Skipped      map[string][]string `json:"skipped,omitempty"`
}
