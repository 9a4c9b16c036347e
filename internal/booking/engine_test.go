package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rithvickkr/DOBBE-assignment/internal/notify"
	"github.com/Rithvickkr/DOBBE-assignment/internal/observability/metrics"
	"github.com/Rithvickkr/DOBBE-assignment/internal/scheduling"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notify.BookingConfirmation
	err   error
}

func (f *fakeNotifier) PublishBooking(_ context.Context, b notify.BookingConfirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, b)
	return f.err
}

func seededStore(t *testing.T) (*scheduling.MemoryStore, *scheduling.Doctor) {
	t.Helper()
	ctx := context.Background()
	store := scheduling.NewMemoryStore()
	doc, err := store.CreateDoctor(ctx, "Dr. Ahuja", "ahuja@example.com")
	require.NoError(t, err)
	_, err = store.AddSlots(ctx, doc.ID, scheduling.Availability{
		"2025-08-23": {"9AM-10AM", "10AM-11AM"},
	})
	require.NoError(t, err)
	return store, doc
}

func request(slot string) Request {
	return Request{
		DoctorName: "Dr. Ahuja",
		Date:       "2025-08-23",
		Slot:       slot,
		Patient:    scheduling.Patient{Name: "John Doe", Email: "john@example.com"},
		Reason:     "checkup",
	}
}

func TestBook_ConsumesSlotAndRepeatFails(t *testing.T) {
	store, doc := seededStore(t)
	notifier := &fakeNotifier{}
	engine := NewEngine(store, notifier, nil, nil)
	ctx := context.Background()

	conf, err := engine.Book(ctx, request("9AM-10AM"))
	require.NoError(t, err)
	assert.Equal(t, "Dr. Ahuja", conf.Appointment.DoctorName)
	assert.Equal(t,
		"Appointment booked successfully for John Doe (john@example.com) with Dr. Ahuja on 2025-08-23 at 9AM-10AM for checkup. "+noteQueued,
		conf.Message())

	slots, err := store.SlotsFor(ctx, doc.ID, "2025-08-23")
	require.NoError(t, err)
	assert.Equal(t, []string{"10AM-11AM"}, slots)

	appts, err := store.Appointments(ctx, scheduling.AppointmentFilter{DoctorID: doc.ID, Date: "2025-08-23"})
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "9AM-10AM", appts[0].Slot)

	_, err = engine.Book(ctx, request("9AM-10AM"))
	require.ErrorIs(t, err, ErrSlotUnavailable)
	var unavailable *SlotUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, []string{"10AM-11AM"}, unavailable.Remaining)
	assert.Equal(t, "Slot 9AM-10AM on 2025-08-23 unavailable. Available slots: 10AM-11AM", err.Error())

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "john@example.com", notifier.calls[0].PatientEmail)
	assert.Equal(t, "9AM-10AM", notifier.calls[0].Slot)
}

func TestBook_ConcurrentSameSlotExactlyOneWins(t *testing.T) {
	store, doc := seededStore(t)
	engine := NewEngine(store, nil, nil, nil)
	ctx := context.Background()

	const callers = 20
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		wins        int
		unavailable int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := request("10AM-11AM")
			req.Patient.Email = fmt.Sprintf("p%d@example.com", i)
			_, err := engine.Book(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrSlotUnavailable):
				var sue *SlotUnavailableError
				if assert.True(t, errors.As(err, &sue)) {
					assert.NotContains(t, sue.Remaining, "10AM-11AM")
				}
				unavailable++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, unavailable)
	appts, err := store.Appointments(ctx, scheduling.AppointmentFilter{DoctorID: doc.ID, Date: "2025-08-23"})
	require.NoError(t, err)
	assert.Len(t, appts, 1)
	assert.Zero(t, engine.locks.size())
}

func TestBook_Errors(t *testing.T) {
	store, _ := seededStore(t)
	engine := NewEngine(store, nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Request)
		target error
	}{
		{"missing reason", func(r *Request) { r.Reason = " " }, ErrMalformedRequest},
		{"bad date", func(r *Request) { r.Date = "23-08-2025" }, ErrMalformedRequest},
		{"bad email", func(r *Request) { r.Patient.Email = "john" }, ErrMalformedRequest},
		{"unknown doctor", func(r *Request) { r.DoctorName = "Dr. Who" }, ErrDoctorNotFound},
		{"name is case sensitive", func(r *Request) { r.DoctorName = "dr. ahuja" }, ErrDoctorNotFound},
		{"unknown slot", func(r *Request) { r.Slot = "5PM-6PM" }, ErrSlotUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request("9AM-10AM")
			tt.mutate(&req)
			_, err := engine.Book(ctx, req)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestBook_NoSlotsLeftMessage(t *testing.T) {
	store, _ := seededStore(t)
	engine := NewEngine(store, nil, nil, nil)
	_, err := engine.Book(context.Background(), Request{
		DoctorName: "Dr. Ahuja",
		Date:       "2025-08-30",
		Slot:       "9AM-10AM",
		Patient:    scheduling.Patient{Name: "A", Email: "a@example.com"},
		Reason:     "x",
	})
	require.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Equal(t, "No slots available for Dr. Ahuja on 2025-08-30", err.Error())
}

type racingStore struct {
	*scheduling.MemoryStore
	steal func()
}

func (r *racingStore) Reserve(ctx context.Context, appt scheduling.Appointment) (*scheduling.Appointment, error) {
	if r.steal != nil {
		r.steal()
		r.steal = nil
	}
	return r.MemoryStore.Reserve(ctx, appt)
}

func TestBook_LosingAtCommitReportsCurrentSlots(t *testing.T) {
	mem, doc := seededStore(t)
	ctx := context.Background()
	store := &racingStore{MemoryStore: mem}
	store.steal = func() {
		require.NoError(t, mem.RemoveSlot(ctx, doc.ID, "2025-08-23", "9AM-10AM"))
	}
	engine := NewEngine(store, nil, nil, nil)

	_, err := engine.Book(ctx, request("9AM-10AM"))
	var sue *SlotUnavailableError
	require.True(t, errors.As(err, &sue))
	assert.Equal(t, []string{"10AM-11AM"}, sue.Remaining)
}

var errConnReset = errors.New("connection reset")

type brokenStore struct {
	*scheduling.MemoryStore
}

func (b *brokenStore) Reserve(context.Context, scheduling.Appointment) (*scheduling.Appointment, error) {
	return nil, errConnReset
}

func TestBook_StorageFailureIsInternal(t *testing.T) {
	mem, _ := seededStore(t)
	engine := NewEngine(&brokenStore{MemoryStore: mem}, nil, nil, nil)
	_, err := engine.Book(context.Background(), request("9AM-10AM"))
	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, errConnReset)
}

func TestBook_NotifierFailureIsANote(t *testing.T) {
	store, _ := seededStore(t)
	reg := prometheus.NewRegistry()
	engine := NewEngine(store, &fakeNotifier{err: errors.New("queue full")}, metrics.NewEngineMetrics(reg), nil)

	conf, err := engine.Book(context.Background(), request("9AM-10AM"))
	require.NoError(t, err)
	assert.Equal(t, []string{noteNotQueued}, conf.Notes)
	assert.Contains(t, conf.Message(), noteNotQueued)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, "booked", outcomeOf(nil))
	assert.Equal(t, "slot_unavailable", outcomeOf(&SlotUnavailableError{}))
	assert.Equal(t, "doctor_not_found", outcomeOf(fmt.Errorf("x: %w", ErrDoctorNotFound)))
	assert.Equal(t, "malformed", outcomeOf(ErrMalformedRequest))
	assert.Equal(t, "error", outcomeOf(errors.New("boom")))
}
