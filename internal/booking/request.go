package booking

import (
	"fmt"
	"strings"

	"github.com/Rithvickkr/DOBBE-assignment/internal/scheduling"
)

// Request asks for one slot with one doctor.
type Request struct {
	DoctorName string
	Date       string
	Slot       string
	Patient    scheduling.Patient
	Reason     string
}

// Validate checks the request shape before any storage is touched.
func (r Request) Validate() error {
	fields := []struct{ name, value string }{
		{"doctor_name", r.DoctorName},
		{"date", r.Date},
		{"time", r.Slot},
		{"patient_email", r.Patient.Email},
		{"patient_name", r.Patient.Name},
		{"reason", r.Reason},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedRequest, strings.Join(missing, ", "))
	}
	if !scheduling.ValidDate(r.Date) {
		return fmt.Errorf("%w: %w", ErrMalformedRequest, scheduling.ErrInvalidDate)
	}
	if !strings.Contains(r.Patient.Email, "@") {
		return fmt.Errorf("%w: patient email %q is not an address", ErrMalformedRequest, r.Patient.Email)
	}
	return nil
}
