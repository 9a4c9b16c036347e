package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	appconfig "github.com/Rithvickkr/DOBBE-assignment/internal/config"
	"github.com/Rithvickkr/DOBBE-assignment/internal/notify"
	"github.com/Rithvickkr/DOBBE-assignment/internal/observability/metrics"
	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

// BuildNotificationQueue returns the queue between publisher and worker.
// awsCfg is only read for the sqs queue.
func BuildNotificationQueue(cfg *appconfig.Config, awsCfg *aws.Config) (notify.Queue, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	switch cfg.NotifyQueue {
	case "", "memory":
		return notify.NewMemoryQueue(0), nil
	case "sqs":
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: sqs queue requires aws config")
		}
		if strings.TrimSpace(cfg.NotifyQueueURL) == "" {
			return nil, fmt.Errorf("bootstrap: NOTIFY_QUEUE_URL is required for sqs")
		}
		return notify.NewSQSQueue(sqs.NewFromConfig(*awsCfg), cfg.NotifyQueueURL), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown NOTIFY_QUEUE %q", cfg.NotifyQueue)
	}
}

// BuildDeliverer wires the email, calendar and chat collaborators the
// notification worker calls.
func BuildDeliverer(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, m *metrics.EngineMetrics, logger *logging.Logger) (*notify.Deliverer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: clinic timezone %q: %w", cfg.ClinicTimezone, err)
	}

	email, err := buildEmailSender(ctx, cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}
	calendarScheduler, err := buildCalendar(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return notify.NewDeliverer(notify.DelivererConfig{
		Email:    email,
		Calendar: calendarScheduler,
		Chat:     buildChat(cfg, logger),
		Location: loc,
		Timeout:  cfg.NotifyTimeout,
		Metrics:  m,
	}, logger), nil
}

func buildEmailSender(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, error) {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			return nil, fmt.Errorf("bootstrap: SENDGRID_API_KEY is required for sendgrid email")
		}
		logger.Info("email provider configured", "provider", "sendgrid")
		return sender, nil
	case "ses":
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: ses email requires aws config")
		}
		logger.Info("email provider configured", "provider", "ses")
		return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger), nil
	case "gmail":
		if strings.TrimSpace(cfg.GoogleCredentialsFile) == "" {
			return nil, fmt.Errorf("bootstrap: GOOGLE_CREDENTIALS_FILE is required for gmail")
		}
		svc, err := gmail.NewService(ctx,
			option.WithCredentialsFile(cfg.GoogleCredentialsFile),
			option.WithScopes(gmail.GmailSendScope),
		)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gmail service: %w", err)
		}
		logger.Info("email provider configured", "provider", "gmail")
		return notify.NewGmailSender(svc, cfg.GmailSender, cfg.SendGridFromEmail, logger), nil
	case "", "stub":
		logger.Warn("no email provider configured; confirmation emails are logged only")
		return notify.NewStubEmailSender(logger), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
}

func buildCalendar(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.CalendarScheduler, error) {
	if strings.TrimSpace(cfg.GoogleCredentialsFile) == "" {
		logger.Warn("google credentials not configured; calendar events are logged only")
		return notify.NewStubCalendar(logger), nil
	}
	svc, err := calendar.NewService(ctx,
		option.WithCredentialsFile(cfg.GoogleCredentialsFile),
		option.WithScopes(calendar.CalendarEventsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: calendar service: %w", err)
	}
	logger.Info("google calendar configured", "calendar_id", cfg.GoogleCalendarID)
	return notify.NewGoogleCalendar(svc, cfg.GoogleCalendarID, logger), nil
}

// buildChat prefers the Slack bot token, then the incoming webhook.
func buildChat(cfg *appconfig.Config, logger *logging.Logger) notify.ChatReporter {
	if bot := notify.NewSlackBot(cfg.SlackToken, cfg.SlackChannel, logger); bot != nil {
		return bot
	}
	if hook := notify.NewSlackWebhook(cfg.SlackWebhookURL, cfg.SlackChannel, nil, logger); hook != nil {
		return hook
	}
	return notify.NewStubChat(logger)
}
