package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/slack-go/slack"

	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

// ChatReporter posts free-text reports to a team channel.
type ChatReporter interface {
	Report(ctx context.Context, text string) error
}

type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackBot posts through the Slack Web API with a bot token.
type SlackBot struct {
	api     slackPoster
	channel string
	logger  *logging.Logger
}

// NewSlackBot returns nil without a token. opts are passed to the slack client.
func NewSlackBot(token, channel string, logger *logging.Logger, opts ...slack.Option) *SlackBot {
	if token == "" {
		return nil
	}
	return newSlackBot(slack.New(token, opts...), channel, logger)
}

func newSlackBot(api slackPoster, channel string, logger *logging.Logger) *SlackBot {
	if logger == nil {
		logger = logging.Default()
	}
	return &SlackBot{api: api, channel: channel, logger: logger}
}

// Report sends text to the configured channel.
func (s *SlackBot) Report(ctx context.Context, text string) error {
	if s == nil {
		return fmt.Errorf("notify: slack bot not configured")
	}
	channel, ts, err := s.api.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("notify: slack post to %s: %w", s.channel, err)
	}
	s.logger.Info("chat report posted", "channel", channel, "ts", ts, "chars", len(text))
	return nil
}

// SlackWebhook posts to a Slack incoming webhook.
type SlackWebhook struct {
	url     string
	channel string
	client  *http.Client
	logger  *logging.Logger
}

// NewSlackWebhook returns nil without a webhook URL.
func NewSlackWebhook(url, channel string, client *http.Client, logger *logging.Logger) *SlackWebhook {
	if url == "" {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SlackWebhook{url: url, channel: channel, client: client, logger: logger}
}

// Report sends text to the webhook's channel.
func (s *SlackWebhook) Report(ctx context.Context, text string) error {
	if s == nil {
		return fmt.Errorf("notify: slack webhook not configured")
	}
	msg := &slack.WebhookMessage{Channel: s.channel, Text: text}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.url, s.client, msg); err != nil {
		return fmt.Errorf("notify: slack webhook: %w", err)
	}
	s.logger.Info("chat report posted", "channel", s.channel, "chars", len(text))
	return nil
}

// StubChat logs instead of posting.
type StubChat struct {
	logger *logging.Logger
}

func NewStubChat(logger *logging.Logger) *StubChat {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubChat{logger: logger}
}

func (s *StubChat) Report(_ context.Context, text string) error {
	s.logger.Info("stub chat: would post report", "chars", len(text))
	return nil
}

var (
	_ ChatReporter = (*SlackBot)(nil)
	_ ChatReporter = (*SlackWebhook)(nil)
	_ ChatReporter = (*StubChat)(nil)
	_ slackPoster  = (*slack.Client)(nil)
)
