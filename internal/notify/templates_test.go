package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/Rithvickkr/DOBBE-assignment/internal/scheduling"
)

func sampleBooking() BookingConfirmation {
	return BookingConfirmation{
		AppointmentID: "appt-1",
		PatientEmail:  "patient@example.com",
		PatientName:   "Pat",
		DoctorName:    "Dr. Ahuja",
		Date:          "2025-08-23",
		Slot:          "9AM-10AM",
		Reason:        "checkup",
	}
}

func TestConfirmationFor(t *testing.T) {
	appt := scheduling.Appointment{
		ID:         "appt-9",
		DoctorName: "Dr. Ahuja",
		Date:       "2025-08-24",
		Slot:       "1PM-2PM",
		Reason:     "fever",
		Patient:    scheduling.Patient{Email: "p@example.com", Name: "P"},
	}
	got := ConfirmationFor(appt)
	if got.AppointmentID != "appt-9" || got.PatientEmail != "p@example.com" || got.Slot != "1PM-2PM" || got.Reason != "fever" {
		t.Fatalf("unexpected confirmation %+v", got)
	}
}

func TestConfirmationEmail(t *testing.T) {
	msg := ConfirmationEmail(sampleBooking())
	if msg.To != "patient@example.com" || msg.ToName != "Pat" {
		t.Fatalf("unexpected recipient %q %q", msg.To, msg.ToName)
	}
	if msg.Subject != "Appointment Confirmation" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	want := "Your appointment with Dr. Ahuja on 2025-08-23 at 9AM-10AM for checkup has been confirmed."
	if !strings.Contains(msg.Body, want) {
		t.Fatalf("body missing confirmation line:\n%s", msg.Body)
	}
	if !strings.HasPrefix(msg.Body, "Dear Pat,") {
		t.Fatalf("body should greet the patient:\n%s", msg.Body)
	}
}

func TestCalendarEventFor(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	event, err := CalendarEventFor(sampleBooking(), loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Summary != "Appointment: Pat - checkup" {
		t.Fatalf("unexpected summary %q", event.Summary)
	}
	wantStart := time.Date(2025, 8, 23, 9, 0, 0, 0, loc)
	if !event.Start.Equal(wantStart) {
		t.Fatalf("expected start %s, got %s", wantStart, event.Start)
	}
	if event.End.Sub(event.Start) != time.Hour {
		t.Fatalf("expected one hour event, got %s", event.End.Sub(event.Start))
	}
	if len(event.Attendees) != 1 || event.Attendees[0] != "patient@example.com" {
		t.Fatalf("unexpected attendees %v", event.Attendees)
	}
}

func TestCalendarEventFor_WrapsPastMidnight(t *testing.T) {
	b := sampleBooking()
	b.Slot = "11PM-12AM"
	event, err := CalendarEventFor(b, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.End.Sub(event.Start) != time.Hour {
		t.Fatalf("expected end on the following day, got %s -> %s", event.Start, event.End)
	}
}

func TestCalendarEventFor_BadSlot(t *testing.T) {
	b := sampleBooking()
	b.Slot = "morning"
	if _, err := CalendarEventFor(b, time.UTC); err == nil {
		t.Fatal("expected error for unparseable slot")
	}
}
