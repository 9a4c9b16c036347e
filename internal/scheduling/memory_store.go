package scheduling

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps doctors and appointments in process memory behind one mutex.
// Every write swaps in a freshly built value, so readers never share slices
// with the store.
type MemoryStore struct {
	mu           sync.Mutex
	doctors      map[string]*Doctor
	byName       map[string]string
	byOwner      map[string]string
	appointments []Appointment
	seq          int64
	opts         storeOptions
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		doctors: make(map[string]*Doctor),
		byName:  make(map[string]string),
		byOwner: make(map[string]string),
		opts:    buildOptions(opts),
	}
}

// CreateDoctor registers a doctor with an empty availability.
func (s *MemoryStore) CreateDoctor(_ context.Context, name, ownerEmail string) (*Doctor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidDoctorName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[name]; ok {
		return nil, ErrDoctorExists
	}
	if ownerEmail != "" {
		if _, ok := s.byOwner[ownerEmail]; ok {
			return nil, ErrDoctorExists
		}
	}

	doc := &Doctor{
		ID:           uuid.NewString(),
		Name:         name,
		OwnerEmail:   ownerEmail,
		Availability: Availability{},
		CreatedAt:    s.opts.now(),
	}
	s.doctors[doc.ID] = doc
	s.byName[name] = doc.ID
	if ownerEmail != "" {
		s.byOwner[ownerEmail] = doc.ID
	}
	return cloneDoctor(doc), nil
}

// DoctorByName looks a doctor up by exact, case-sensitive name.
func (s *MemoryStore) DoctorByName(_ context.Context, name string) (*Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byName[name]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return cloneDoctor(s.doctors[id]), nil
}

// DoctorByOwner returns the doctor record linked to a user email.
func (s *MemoryStore) DoctorByOwner(_ context.Context, email string) (*Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byOwner[email]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return cloneDoctor(s.doctors[id]), nil
}

// SlotsFor returns the open slots for a doctor on a date; unknown keys yield an empty set.
func (s *MemoryStore) SlotsFor(_ context.Context, doctorID, date string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.doctors[doctorID]
	if !ok {
		return []string{}, nil
	}
	return append([]string{}, doc.Availability[date]...), nil
}

// Availability returns a copy of the doctor's full open-slot map.
func (s *MemoryStore) Availability(_ context.Context, doctorID string) (Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.doctors[doctorID]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return doc.Availability.Clone(), nil
}

// AddSlots unions new labels into the doctor's availability.
func (s *MemoryStore) AddSlots(_ context.Context, doctorID string, slots Availability) (*AddSlotsResult, error) {
	if err := validateAdditions(slots); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.doctors[doctorID]
	if !ok {
		return nil, ErrDoctorNotFound
	}

	next := doc.Availability.Clone()
	skipped := map[string][]string{}
	for _, date := range sortedDates(slots) {
		merged, refused := UnionSlots(next[date], slots[date], s.bookedLocked(doctorID, date))
		next[date] = merged
		if len(refused) > 0 {
			skipped[date] = refused
		}
	}
	s.replaceAvailabilityLocked(doc, next)

	result := &AddSlotsResult{Availability: next.Clone()}
	if len(skipped) > 0 {
		result.Skipped = skipped
	}
	return result, nil
}

// RemoveSlot drops one open slot, failing with ErrSlotNotFound if it is not open.
func (s *MemoryStore) RemoveSlot(_ context.Context, doctorID, date, slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.doctors[doctorID]
	if !ok {
		return ErrDoctorNotFound
	}
	remaining, found := WithoutSlot(doc.Availability[date], slot)
	if !found {
		return ErrSlotNotFound
	}
	next := doc.Availability.Clone()
	next[date] = remaining
	s.replaceAvailabilityLocked(doc, next)
	return nil
}

// Reserve consumes the slot and records the appointment under the store lock.
func (s *MemoryStore) Reserve(_ context.Context, appt Appointment) (*Appointment, error) {
	if err := validateReservation(appt); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.doctors[appt.DoctorID]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	remaining, found := WithoutSlot(doc.Availability[appt.Date], appt.Slot)
	if !found {
		return nil, ErrSlotNotFound
	}

	next := doc.Availability.Clone()
	next[appt.Date] = remaining
	s.replaceAvailabilityLocked(doc, next)

	s.seq++
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	appt.DoctorName = doc.Name
	appt.Seq = s.seq
	appt.CreatedAt = s.opts.now()
	s.appointments = append(s.appointments, appt)

	out := appt
	return &out, nil
}

// Appointments returns matching appointments in creation order.
func (s *MemoryStore) Appointments(_ context.Context, filter AppointmentFilter) ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Appointment{}
	for _, appt := range s.appointments {
		if filter.Matches(appt) {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (s *MemoryStore) replaceAvailabilityLocked(doc *Doctor, next Availability) {
	updated := *doc
	updated.Availability = next
	s.doctors[doc.ID] = &updated
}

func (s *MemoryStore) bookedLocked(doctorID, date string) map[string]struct{} {
	booked := map[string]struct{}{}
	for _, appt := range s.appointments {
		if appt.DoctorID == doctorID && appt.Date == date {
			booked[appt.Slot] = struct{}{}
		}
	}
	return booked
}

func cloneDoctor(doc *Doctor) *Doctor {
	out := *doc
	out.Availability = doc.Availability.Clone()
	return &out
}

func sortedDates(slots Availability) []string {
	dates := make([]string, 0, len(slots))
	for date := range slots {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

var _ Store = (*MemoryStore)(nil)
