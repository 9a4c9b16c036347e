package booking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rithvickkr/DOBBE-assignment/internal/scheduling"
)

var (
	// ErrMalformedRequest is returned when a request is missing fields or has a bad shape.
	ErrMalformedRequest = errors.New("malformed booking request")

	// ErrDoctorNotFound is returned when no doctor has the requested name.
	ErrDoctorNotFound = scheduling.ErrDoctorNotFound

	// ErrSlotUnavailable is returned when the slot is not open. The concrete
	// error is a *SlotUnavailableError carrying the remaining slots.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrInternal wraps storage failures.
	ErrInternal = errors.New("booking storage failure")
)

// SlotUnavailableError lists the slots still open on the requested date.
type SlotUnavailableError struct {
	Doctor    string
	Date      string
	Slot      string
	Remaining []string
}

func (e *SlotUnavailableError) Error() string {
	if len(e.Remaining) == 0 {
		return fmt.Sprintf("No slots available for %s on %s", e.Doctor, e.Date)
	}
	return fmt.Sprintf("Slot %s on %s unavailable. Available slots: %s", e.Slot, e.Date, strings.Join(e.Remaining, ", "))
}

// Is makes errors.Is(err, ErrSlotUnavailable) match.
func (e *SlotUnavailableError) Is(target error) bool {
	return target == ErrSlotUnavailable
}
