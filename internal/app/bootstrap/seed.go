package bootstrap

import (
	"context"
	"fmt"

	"github.com/Rithvickkr/DOBBE-assignment/internal/auth"
	"github.com/Rithvickkr/DOBBE-assignment/internal/scheduling"
	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

// DemoDoctor is the doctor every demo deployment starts with.
const DemoDoctor = "Dr. Ahuja"

var (
	demoAccounts = []auth.LoginRequest{
		{Name: "Ahuja", Email: "ahuja@example.com", Password: "doctor123", Role: string(auth.RoleDoctor)},
		{Name: "Demo Patient", Email: "patient@example.com", Password: "patient123", Role: string(auth.RolePatient)},
	}
	demoAvailability = scheduling.Availability{
		"2025-08-23": {"9AM-10AM", "10AM-11AM", "3PM-4PM"},
		"2025-08-24": {"1PM-2PM", "2PM-3PM"},
	}
)

// SeedDemo registers the demo accounts and opens the demo doctor's slots.
// Running it again changes nothing: logins verify existing accounts and
// already-offered or booked slots are skipped.
func SeedDemo(ctx context.Context, accounts *auth.Service, store scheduling.Store, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Default()
	}
	for _, account := range demoAccounts {
		if _, err := accounts.Login(ctx, account); err != nil {
			return fmt.Errorf("bootstrap: seed account %s: %w", account.Email, err)
		}
	}

	doc, err := store.DoctorByName(ctx, DemoDoctor)
	if err != nil {
		return fmt.Errorf("bootstrap: seed doctor: %w", err)
	}
	result, err := store.AddSlots(ctx, doc.ID, demoAvailability)
	if err != nil {
		return fmt.Errorf("bootstrap: seed slots: %w", err)
	}
	logger.Info("demo data seeded", "doctor", doc.Name, "dates", len(result.Availability))
	return nil
}
