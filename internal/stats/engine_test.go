package stats

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rithvickkr/DOBBE-assignment/internal/scheduling"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()
	store := scheduling.NewMemoryStore()
	doc, err := store.CreateDoctor(ctx, "Dr. Ahuja", "ahuja@example.com")
	require.NoError(t, err)
	_, err = store.AddSlots(ctx, doc.ID, scheduling.Availability{
		"2025-08-23": {"9AM-10AM", "10AM-11AM", "3PM-4PM"},
		"2025-08-24": {"1PM-2PM", "2PM-3PM"},
	})
	require.NoError(t, err)

	book := func(date, slot, name, email, reason string) {
		_, err := store.Reserve(ctx, scheduling.Appointment{
			DoctorID: doc.ID, Date: date, Slot: slot, Reason: reason,
			Patient: scheduling.Patient{Name: name, Email: email},
		})
		require.NoError(t, err)
	}
	book("2025-08-23", "9AM-10AM", "John Doe", "john@example.com", "checkup")
	book("2025-08-24", "1PM-2PM", "Raju", "raju@example.com", "fever")
	book("2025-08-24", "2PM-3PM", "John Doe", "john@example.com", "follow-up")

	engine := NewEngine(store, time.UTC, nil)
	engine.now = func() time.Time { return time.Date(2025, 8, 23, 22, 0, 0, 0, time.UTC) }
	return engine
}

func TestParseDateSelector(t *testing.T) {
	now := time.Date(2025, 8, 23, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		raw  string
		want string
	}{
		{"2025-08-24", "2025-08-24"},
		{"today", "2025-08-23"},
		{"appointments_today", "2025-08-23"},
		{"appointments_tomorrow", "2025-08-24"},
		{"Yesterday", "2025-08-22"},
		{"appointments_2025-09-01", "2025-09-01"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			sel, err := ParseDateSelector(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel.Resolve(now, time.UTC))
		})
	}

	for _, bad := range []string{"", "next week", "2025/08/23", "appointments_soon"} {
		_, err := ParseDateSelector(bad)
		assert.ErrorIs(t, err, ErrInvalidSelector, bad)
	}
}

func TestDateSelectorUsesClinicLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	// 20:00 UTC is already the next day at +05:30.
	now := time.Date(2025, 8, 23, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-08-24", Today().Resolve(now, loc))
	assert.Equal(t, "2025-08-23", Today().Resolve(now, time.UTC))
	assert.Equal(t, "2025-08-20", On("2025-08-20").Resolve(now, loc))
}

func TestGeneralViewShowsOpenSlotsOnly(t *testing.T) {
	engine := newTestEngine(t)
	report, err := engine.Query(context.Background(), Query{Doctor: "Dr. Ahuja", Date: On("2025-08-23"), Viewer: GeneralViewer()})
	require.NoError(t, err)
	assert.Equal(t, "Available slots for Dr. Ahuja on 2025-08-23: 10AM-11AM, 3PM-4PM", report.String())
	assert.NotContains(t, report.String(), "john")
}

func TestGeneralViewFullyBookedHintHasNoIdentities(t *testing.T) {
	engine := newTestEngine(t)
	report, err := engine.Query(context.Background(), Query{Doctor: "Dr. Ahuja", Date: On("2025-08-24"), Viewer: GeneralViewer()})
	require.NoError(t, err)

	general, ok := report.(GeneralReport)
	require.True(t, ok)
	assert.Equal(t, 2, general.Booked)
	text := report.String()
	assert.Equal(t, "No available slots for Dr. Ahuja on 2025-08-24. (2 appointments already booked)", text)
	for _, secret := range []string{"Raju", "raju@example.com", "John", "john@example.com", "fever"} {
		assert.NotContains(t, text, secret)
	}
}

func TestGeneralViewEmptyDay(t *testing.T) {
	engine := newTestEngine(t)
	report, err := engine.Query(context.Background(), Query{Doctor: "Dr. Ahuja", Date: On("2025-09-01"), Viewer: GeneralViewer()})
	require.NoError(t, err)
	assert.Equal(t, "No slots available for Dr. Ahuja on 2025-09-01.", report.String())
}

func TestPatientViewOnlyOwnAppointments(t *testing.T) {
	engine := newTestEngine(t)
	tomorrow, err := ParseDateSelector("appointments_tomorrow")
	require.NoError(t, err)
	report, err := engine.Query(context.Background(), Query{
		Doctor: "Dr. Ahuja",
		Date:   tomorrow,
		Viewer: PatientViewer("john@example.com"),
	})
	require.NoError(t, err)

	patient := report.(PatientReport)
	require.Len(t, patient.Appointments, 1)
	assert.Equal(t, "2PM-3PM", patient.Appointments[0].Slot)
	assert.Equal(t, "1 appointment(s) for john@example.com with Dr. Ahuja on 2025-08-24:\n- 2PM-3PM: John Doe - follow-up", report.String())
	assert.NotContains(t, report.String(), "raju")
}

func TestPatientViewNone(t *testing.T) {
	engine := newTestEngine(t)
	report, err := engine.Query(context.Background(), Query{Doctor: "Dr. Ahuja", Date: On("2025-08-23"), Viewer: PatientViewer("raju@example.com")})
	require.NoError(t, err)
	assert.Equal(t, "No appointments for raju@example.com with Dr. Ahuja on 2025-08-23.", report.String())

	_, err = engine.Query(context.Background(), Query{Doctor: "Dr. Ahuja", Date: On("2025-08-23"), Viewer: PatientViewer(" ")})
	assert.ErrorIs(t, err, ErrMissingPatientEmail)
}

func TestDoctorViewListsEveryone(t *testing.T) {
	engine := newTestEngine(t)
	report, err := engine.Query(context.Background(), Query{Doctor: "Dr. Ahuja", Date: On("2025-08-24"), Viewer: DoctorViewer()})
	require.NoError(t, err)
	lines := strings.Split(report.String(), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2 appointment(s) for Dr. Ahuja on 2025-08-24:", lines[0])
	assert.Equal(t, "- 1PM-2PM: Raju (raju@example.com) - fever", lines[1])
	assert.Equal(t, "- 2PM-3PM: John Doe (john@example.com) - follow-up", lines[2])

	empty, err := engine.Query(context.Background(), Query{Doctor: "Dr. Ahuja", Date: On("2025-08-25"), Viewer: DoctorViewer()})
	require.NoError(t, err)
	assert.Equal(t, "No appointments for Dr. Ahuja on 2025-08-25.", empty.String())
}

func TestUnknownDoctor(t *testing.T) {
	engine := newTestEngine(t)
	_, err := engine.Query(context.Background(), Query{Doctor: "Dr. Who", Date: Today(), Viewer: GeneralViewer()})
	assert.ErrorIs(t, err, ErrDoctorNotFound)
	_, err = engine.Lookup(context.Background(), Lookup{Doctor: "Dr. Who"})
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestLookup(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	found, err := engine.Lookup(ctx, Lookup{Doctor: "Dr. Ahuja", Date: On("2025-08-23"), PatientName: "John Doe", Reason: "checkup"})
	require.NoError(t, err)
	assert.True(t, found.Found)
	assert.Equal(t, "Found appointment for John Doe with Dr. Ahuja on 2025-08-23 for checkup.", found.String())

	missing, err := engine.Lookup(ctx, Lookup{Doctor: "Dr. Ahuja", Date: On("2025-08-23"), PatientName: "John Doe", Reason: "surgery"})
	require.NoError(t, err)
	assert.False(t, missing.Found)
	assert.Equal(t, "No appointment found for John Doe with Dr. Ahuja on 2025-08-23 for surgery.", missing.String())
}
