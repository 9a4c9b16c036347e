package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"google.golang.org/api/gmail/v1"

	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

type gmailAPI interface {
	send(ctx context.Context, userID string, msg *gmail.Message) (*gmail.Message, error)
}

type gmailService struct {
	svc *gmail.Service
}

func (g gmailService) send(ctx context.Context, userID string, msg *gmail.Message) (*gmail.Message, error) {
	return g.svc.Users.Messages.Send(userID, msg).Context(ctx).Do()
}

// GmailSender sends mail through the Gmail API as the configured user.
type GmailSender struct {
	api    gmailAPI
	userID string
	from   string
	logger *logging.Logger
}

// NewGmailSender wraps an authorized Gmail service. userID "me" sends as the credential owner.
func NewGmailSender(svc *gmail.Service, userID, from string, logger *logging.Logger) *GmailSender {
	if svc == nil {
		return nil
	}
	return newGmailSender(gmailService{svc: svc}, userID, from, logger)
}

func newGmailSender(api gmailAPI, userID, from string, logger *logging.Logger) *GmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(userID) == "" {
		userID = "me"
	}
	return &GmailSender{api: api, userID: userID, from: from, logger: logger}
}

// Send encodes msg as an RFC 2822 plain-text message and submits it.
func (s *GmailSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.api == nil {
		return fmt.Errorf("notify: gmail client not configured")
	}
	raw := base64.URLEncoding.EncodeToString([]byte(buildRFC2822(s.from, msg)))
	sent, err := s.api.send(ctx, s.userID, &gmail.Message{Raw: raw})
	if err != nil {
		return fmt.Errorf("notify: gmail send failed: %w", err)
	}
	s.logger.Info("email sent via gmail", "to", msg.To, "subject", msg.Subject, "message_id", sent.Id)
	return nil
}

func buildRFC2822(from string, msg EmailMessage) string {
	var b strings.Builder
	if from != "" {
		b.WriteString("From: " + from + "\r\n")
	}
	to := msg.To
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", msg.ToName), msg.To)
	}
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.String()
}

var _ EmailSender = (*GmailSender)(nil)
