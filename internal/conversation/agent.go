package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rithvickkr/DOBBE-assignment/internal/auth"
	"github.com/Rithvickkr/DOBBE-assignment/internal/observability/metrics"
	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

const (
	finalAnswerMarker = "Final Answer:"
	actionMarker      = "Action:"
	inputMarker       = "Action Input:"

	iterationLimitAnswer = "Agent stopped due to iteration limit or time limit."
	missingActionNote    = "Invalid Format: Missing 'Action:' after 'Thought:'"
	missingInputNote     = "Invalid Format: Missing 'Action Input:' after 'Action:'"
)

// ToolRunner executes a named tool and always yields an observation.
type ToolRunner interface {
	Dispatch(ctx context.Context, caller auth.Principal, tool, input string) string
}

// Step is one tool call the agent made.
type Step struct {
	Tool        string `json:"tool"`
	Input       string `json:"input"`
	Observation string `json:"observation"`
}

// AgentResult is the agent's final answer and the steps that led to it.
type AgentResult struct {
	Output     string
	Steps      []Step
	Iterations int
}

// Agent runs a Thought/Action/Observation loop against an LLM.
type Agent struct {
	llm           LLMClient
	tools         ToolRunner
	maxIterations int
	maxTokens     int32
	metrics       *metrics.EngineMetrics
	logger        *logging.Logger
}

// NewAgent builds an agent limited to maxIterations model calls (5 when non-positive).
func NewAgent(llm LLMClient, tools ToolRunner, maxIterations int, m *metrics.EngineMetrics, logger *logging.Logger) *Agent {
	if llm == nil || tools == nil {
		panic("conversation: agent needs an llm and tools")
	}
	if maxIterations <= 0 {
		maxIterations = 5
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Agent{llm: llm, tools: tools, maxIterations: maxIterations, maxTokens: 1024, metrics: m, logger: logger}
}

// Run answers input for caller. Malformed model output is fed back as an
// observation; only LLM failures are returned as errors.
func (a *Agent) Run(ctx context.Context, caller auth.Principal, system, input string) (*AgentResult, error) {
	result := &AgentResult{}
	var scratchpad strings.Builder

	for result.Iterations < a.maxIterations {
		result.Iterations++
		resp, err := a.llm.Complete(ctx, LLMRequest{
			System:      []string{system},
			Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "Question: " + input + "\nThought:" + scratchpad.String()}},
			Stop:        []string{"\nObservation:"},
			MaxTokens:   a.maxTokens,
			Temperature: 0,
		})
		if err != nil {
			a.metrics.ObserveAgentIterations(result.Iterations)
			return nil, fmt.Errorf("conversation: agent step %d: %w", result.Iterations, err)
		}

		step := parseStep(resp.Text)
		if step.final {
			result.Output = step.answer
			a.metrics.ObserveAgentIterations(result.Iterations)
			return result, nil
		}

		observation := step.problem
		if observation == "" {
			observation = a.tools.Dispatch(ctx, caller, step.tool, step.input)
			result.Steps = append(result.Steps, Step{Tool: step.tool, Input: step.input, Observation: observation})
			a.logger.Debug("agent tool call", "tool", step.tool, "iteration", result.Iterations)
		} else {
			a.logger.Debug("agent output not parseable", "iteration", result.Iterations, "problem", step.problem)
		}

		scratchpad.WriteString(" " + strings.TrimSpace(resp.Text))
		scratchpad.WriteString("\nObservation: " + observation + "\nThought:")
	}

	a.metrics.ObserveAgentIterations(result.Iterations)
	result.Output = iterationLimitAnswer
	return result, nil
}

type parsedStep struct {
	final   bool
	answer  string
	tool    string
	input   string
	problem string
}

func parseStep(text string) parsedStep {
	if idx := strings.Index(text, finalAnswerMarker); idx >= 0 {
		return parsedStep{final: true, answer: strings.TrimSpace(text[idx+len(finalAnswerMarker):])}
	}

	actionIdx := strings.Index(text, actionMarker)
	if actionIdx < 0 {
		return parsedStep{problem: missingActionNote}
	}
	rest := text[actionIdx+len(actionMarker):]
	inputIdx := strings.Index(rest, inputMarker)
	if inputIdx < 0 {
		return parsedStep{problem: missingInputNote}
	}

	tool := strings.Trim(strings.TrimSpace(rest[:inputIdx]), "`'\"")
	input := rest[inputIdx+len(inputMarker):]
	if end := strings.Index(input, "\nObservation"); end >= 0 {
		input = input[:end]
	}
	input = strings.TrimSpace(firstLine(strings.TrimSpace(input)))
	return parsedStep{tool: tool, input: strings.Trim(input, "`")}
}

func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx >= 0 {
		return s[:idx]
	}
	return s
}
