package stats

import (
	"fmt"
	"strings"
)

// Report is the rendered answer to a stats query. Each mode has its own
// type so a report can only carry the fields that mode may expose.
type Report interface {
	String() string
}

// GeneralReport is what any caller may see: open slots and a booked count.
type GeneralReport struct {
	Doctor    string
	Date      string
	OpenSlots []string
	Booked    int
}

func (r GeneralReport) String() string {
	if len(r.OpenSlots) > 0 {
		return fmt.Sprintf("Available slots for %s on %s: %s", r.Doctor, r.Date, strings.Join(r.OpenSlots, ", "))
	}
	if r.Booked > 0 {
		return fmt.Sprintf("No available slots for %s on %s. (%d appointments already booked)", r.Doctor, r.Date, r.Booked)
	}
	return fmt.Sprintf("No slots available for %s on %s.", r.Doctor, r.Date)
}

// PatientEntry is one of the requesting patient's own appointments.
type PatientEntry struct {
	Slot        string
	PatientName string
	Reason      string
}

// PatientReport lists appointments for a single patient email.
type PatientReport struct {
	Doctor       string
	Date         string
	PatientEmail string
	Appointments []PatientEntry
}

func (r PatientReport) String() string {
	if len(r.Appointments) == 0 {
		return fmt.Sprintf("No appointments for %s with %s on %s.", r.PatientEmail, r.Doctor, r.Date)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d appointment(s) for %s with %s on %s:", len(r.Appointments), r.PatientEmail, r.Doctor, r.Date)
	for _, a := range r.Appointments {
		fmt.Fprintf(&b, "\n- %s: %s - %s", a.Slot, a.PatientName, a.Reason)
	}
	return b.String()
}

// DoctorEntry is a full appointment row for the doctor's own view.
type DoctorEntry struct {
	Slot         string
	PatientName  string
	PatientEmail string
	Reason       string
}

// DoctorReport lists every appointment with patient details.
type DoctorReport struct {
	Doctor       string
	Date         string
	Appointments []DoctorEntry
}

func (r DoctorReport) String() string {
	if len(r.Appointments) == 0 {
		return fmt.Sprintf("No appointments for %s on %s.", r.Doctor, r.Date)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d appointment(s) for %s on %s:", len(r.Appointments), r.Doctor, r.Date)
	for _, a := range r.Appointments {
		fmt.Fprintf(&b, "\n- %s: %s (%s) - %s", a.Slot, a.PatientName, a.PatientEmail, a.Reason)
	}
	return b.String()
}

// LookupReport answers whether a specific appointment exists.
type LookupReport struct {
	Doctor      string
	Date        string
	PatientName string
	Reason      string
	Found       bool
}

func (r LookupReport) String() string {
	if r.Found {
		return fmt.Sprintf("Found appointment for %s with %s on %s for %s.", r.PatientName, r.Doctor, r.Date, r.Reason)
	}
	return fmt.Sprintf("No appointment found for %s with %s on %s for %s.", r.PatientName, r.Doctor, r.Date, r.Reason)
}
