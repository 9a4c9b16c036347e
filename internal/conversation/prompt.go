package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/Rithvickkr/DOBBE-assignment/internal/auth"
	"github.com/Rithvickkr/DOBBE-assignment/internal/session"
	"github.com/Rithvickkr/DOBBE-assignment/internal/tools"
)

// SystemPrompt describes the tools and answer format for caller's role.
func SystemPrompt(role auth.Role, now time.Time) string {
	available := tools.ToolsFor(role)
	var b strings.Builder
	b.WriteString("You are a medical assistant agent that helps with doctor appointments.\n\n")
	fmt.Fprintf(&b, "Current date: %s\nCurrent time: %s\n\n", now.Format("2006-01-02"), now.Format("15:04"))
	b.WriteString("You have access to the following tools:\n\n")

	toolNames := make([]string, 0, len(available))
	for i, d := range available {
		fmt.Fprintf(&b, "%d. %s: %s\n   - Input format: %s (e.g., '%s')\n", i+1, d.Name, d.Description, d.InputFormat, d.Example)
		toolNames = append(toolNames, d.Name)
	}

	b.WriteString(`
CRITICAL RULES:
1. When a user mentions a specific doctor name, ALWAYS use that exact doctor name in your tool calls.
2. If the current user is a doctor asking about "my appointments" or "my patients", use the current user's doctor name.
3. NEVER show other patients' appointment details to regular users. Only show available time slots for general queries.
4. Only show a patient's own appointment details when their email is included in the query.
5. For doctor users requesting patient details, use 'DOCTOR_VIEW' as the third parameter.

Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
`)
	fmt.Fprintf(&b, "Action: the action to take, should be one of [%s]\n", strings.Join(toolNames, ", "))
	b.WriteString(`Action Input: the input to the action (follow the exact format for each tool)
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer to the original input question`)
	return b.String()
}

// UserPrompt frames the current message with recent turns and the caller's identity.
func UserPrompt(caller auth.Principal, recent []session.Turn, text string) string {
	history := formatHistory(recent)
	if caller.IsDoctor() {
		return doctorPrompt(caller, history, text)
	}
	return patientPrompt(caller, history, text)
}

func formatHistory(turns []session.Turn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n\n", t.Input, t.Output)
	}
	return strings.TrimRight(b.String(), "\n")
}

func doctorPrompt(caller auth.Principal, history, text string) string {
	var b strings.Builder
	if history != "" {
		fmt.Fprintf(&b, "Previous conversation context:\n%s\n\n", history)
		b.WriteString("Based on the conversation history above, respond to the current message.\n")
	}
	fmt.Fprintf(&b, "You are %s (email: %s), a doctor user.\n", caller.Name, caller.Email)
	b.WriteString("You can see patient details by using 'DOCTOR_VIEW' as the third parameter in query_stats.\n")
	fmt.Fprintf(&b, "When asking about YOUR appointments or patients, use your name: '%s'.\n", caller.Name)
	fmt.Fprintf(&b, "Example: 'appointments_today, %s, DOCTOR_VIEW'\n", caller.Name)
	b.WriteString("Only use the query_stats and check_availability tools.\n")
	fmt.Fprintf(&b, "Current message: %s", text)
	return b.String()
}

func patientPrompt(caller auth.Principal, history, text string) string {
	var b strings.Builder
	if history != "" {
		fmt.Fprintf(&b, "Previous conversation context:\n%s\n\n", history)
		b.WriteString("Based on the conversation history above, respond to the current message.\n")
		b.WriteString("If a doctor name is mentioned in the current message, use it rather than any doctor from earlier turns.\n")
	}
	b.WriteString("PRIVACY RULE: only show available time slots; never show other patients' appointment details.\n")
	fmt.Fprintf(&b, "If the user asks about their own appointments, include their email (%s) in the query.\n", caller.Email)
	fmt.Fprintf(&b, "Current user name: %s\nCurrent user email: %s\nCurrent user role: %s\n", caller.Name, caller.Email, caller.Role)
	fmt.Fprintf(&b, "Current message: %s", text)
	return b.String()
}
