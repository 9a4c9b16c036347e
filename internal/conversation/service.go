package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rithvickkr/DOBBE-assignment/internal/auth"
	"github.com/Rithvickkr/DOBBE-assignment/internal/session"
	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

// ErrEmptyPrompt is returned for blank prompt text.
var ErrEmptyPrompt = errors.New("prompt text is required")

const defaultSessionID = "default"

// ReportPublisher forwards doctor answers to the team chat.
type ReportPublisher interface {
	PublishReport(ctx context.Context, text string) error
}

// PromptRequest is the body of POST /process_prompt.
type PromptRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
}

// PromptResponse is the agent's answer.
type PromptResponse struct {
	Response string `json:"response"`
}

// ServiceConfig tunes session handling.
type ServiceConfig struct {
	IdleTimeout  time.Duration
	ContextTurns int
	AgentTimeout time.Duration
	Location     *time.Location
}

// Service runs one prompt through session memory, the agent and history.
type Service struct {
	sessions *session.Store
	agent    *Agent
	history  HistoryRepository
	reports  ReportPublisher
	cfg      ServiceConfig
	now      func() time.Time
	logger   *logging.Logger
}

// NewService wires the prompt pipeline. reports may be nil.
func NewService(sessions *session.Store, agent *Agent, history HistoryRepository, reports ReportPublisher, cfg ServiceConfig, logger *logging.Logger) *Service {
	if sessions == nil || agent == nil || history == nil {
		panic("conversation: sessions, agent and history are required")
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = time.Hour
	}
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = 10
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		sessions: sessions,
		agent:    agent,
		history:  history,
		reports:  reports,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// ProcessPrompt answers req for caller and records the exchange.
func (s *Service) ProcessPrompt(ctx context.Context, caller auth.Principal, req PromptRequest) (*PromptResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyPrompt
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = defaultSessionID
	}

	now := s.now()
	if evicted := s.sessions.Sweep(now, s.cfg.IdleTimeout); evicted > 0 {
		s.logger.Debug("idle sessions evicted", "count", evicted)
	}

	key := session.Key{UserEmail: caller.Email, SessionID: sessionID}
	recent := s.sessions.RecentContext(key, s.cfg.ContextTurns)

	agentCtx := ctx
	if s.cfg.AgentTimeout > 0 {
		var cancel context.CancelFunc
		agentCtx, cancel = context.WithTimeout(ctx, s.cfg.AgentTimeout)
		defer cancel()
	}

	system := SystemPrompt(caller.Role, now.In(s.cfg.Location))
	result, err := s.agent.Run(agentCtx, caller, system, UserPrompt(caller, recent, text))
	if err != nil {
		return nil, fmt.Errorf("conversation: agent: %w", err)
	}

	s.sessions.Append(key, session.Turn{Speaker: session.Human, Input: text, Output: result.Output})

	if err := s.history.Save(ctx, HistoryEntry{
		SessionID: sessionID,
		UserEmail: caller.Email,
		Prompt:    text,
		Response:  result.Output,
	}); err != nil {
		s.logger.Warn("prompt history not saved", "user", caller.Email, "error", err)
	}

	if caller.IsDoctor() && s.reports != nil {
		if err := s.reports.PublishReport(ctx, result.Output); err != nil {
			s.logger.Warn("doctor report not queued", "user", caller.Email, "error", err)
		}
	}

	s.logger.Info("prompt processed",
		"user", caller.Email,
		"role", caller.Role,
		"session_id", sessionID,
		"iterations", result.Iterations,
		"tool_calls", len(result.Steps),
	)
	return &PromptResponse{Response: result.Output}, nil
}

// History lists the caller's persisted prompts, oldest first.
func (s *Service) History(ctx context.Context, caller auth.Principal) ([]HistoryEntry, error) {
	entries, err := s.history.ListByEmail(ctx, caller.Email)
	if err != nil {
		return nil, fmt.Errorf("conversation: history: %w", err)
	}
	return entries, nil
}
