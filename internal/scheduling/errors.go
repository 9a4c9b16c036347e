package scheduling

import "errors"

var (
	// ErrDoctorNotFound is returned when no doctor matches the lookup key.
	ErrDoctorNotFound = errors.New("doctor not found")

	// ErrInvalidDoctorName is returned when a doctor is registered without a name.
	ErrInvalidDoctorName = errors.New("doctor name is required")

	// ErrDoctorExists is returned when a doctor name or owner is already registered.
	ErrDoctorExists = errors.New("doctor already exists")

	// ErrSlotNotFound is returned when a slot is not in the open set for a date.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrInvalidDate is returned for dates not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("date must be formatted as YYYY-MM-DD")

	// ErrInvalidSlot is returned for blank slot labels.
	ErrInvalidSlot = errors.New("slot label is required")
)
