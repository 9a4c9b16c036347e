package conversation

import (
	"context"
	"strings"
)

// StubLLMClient answers without calling a model. It lets the API run locally
// with no provider credentials.
type StubLLMClient struct{}

func (StubLLMClient) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	question := ""
	if n := len(req.Messages); n > 0 {
		question = lastQuestion(req.Messages[n-1].Content)
	}
	text := "I have no language model configured, so I cannot act on that yet."
	if question != "" {
		text += " You asked: " + question
	}
	return LLMResponse{Text: "Thought: no model available\nFinal Answer: " + text, StopReason: "stub"}, nil
}

func lastQuestion(prompt string) string {
	idx := strings.LastIndex(prompt, "Question:")
	if idx < 0 {
		return ""
	}
	rest := prompt[idx+len("Question:"):]
	if end := strings.Index(rest, "\nThought:"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(lastLine(rest))
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndex(s, "\n"); idx >= 0 {
		return s[idx+1:]
	}
	return s
}
