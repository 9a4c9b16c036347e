package conversation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Rithvickkr/DOBBE-assignment/internal/session"
)

func TestSystemPromptListsToolsByRole(t *testing.T) {
	now := time.Date(2025, 8, 23, 15, 4, 0, 0, time.UTC)

	patientPrompt := SystemPrompt(testPatient.Role, now)
	assert.Contains(t, patientPrompt, "Current date: 2025-08-23")
	assert.Contains(t, patientPrompt, "Current time: 15:04")
	assert.Contains(t, patientPrompt, "book_appointment")
	assert.Contains(t, patientPrompt, "Final Answer:")

	doctorPrompt := SystemPrompt(testDoctor.Role, now)
	assert.NotContains(t, doctorPrompt, "book_appointment")
	assert.Contains(t, doctorPrompt, "query_stats")
}

func TestUserPrompt(t *testing.T) {
	recent := []session.Turn{
		{Speaker: session.Human, Input: "Is Dr. Ahuja free tomorrow?", Output: "Yes, 9AM-10AM."},
	}

	p := UserPrompt(testPatient, recent, "Book it")
	assert.Contains(t, p, "Previous conversation context:\nUser: Is Dr. Ahuja free tomorrow?\nAssistant: Yes, 9AM-10AM.")
	assert.Contains(t, p, "PRIVACY RULE")
	assert.Contains(t, p, "john@example.com")
	assert.True(t, strings.HasSuffix(p, "Current message: Book it"))

	d := UserPrompt(testDoctor, nil, "How many appointments today?")
	assert.NotContains(t, d, "Previous conversation context")
	assert.Contains(t, d, "'appointments_today, Dr. Ahuja, DOCTOR_VIEW'")
	assert.True(t, strings.HasSuffix(d, "Current message: How many appointments today?"))
}
