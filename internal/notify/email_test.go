package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"google.golang.org/api/gmail/v1"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{FromEmail: "clinic@example.com"}, nil)
	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "clinic@example.com"}, nil)
	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Medical Assistant Team" {
		t.Errorf("expected default from name, got %q", sender.fromName)
	}
}

func TestNewSendGridSender_CustomFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "clinic@example.com", FromName: "Front Desk"}, nil)
	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Front Desk" {
		t.Errorf("expected from name 'Front Desk', got %q", sender.fromName)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{}
	err := sender.Send(context.Background(), EmailMessage{To: "patient@example.com", Subject: "Test", Body: "Test body"})
	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestStubEmailSender_Send(t *testing.T) {
	sender := NewStubEmailSender(nil)
	if err := sender.Send(context.Background(), EmailMessage{To: "patient@example.com", Subject: "Test"}); err != nil {
		t.Errorf("stub sender should not return error, got: %v", err)
	}
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	api := &fakeSES{}
	sender := newSESSender(api, SESConfig{FromEmail: "clinic@example.com"}, nil)

	err := sender.Send(context.Background(), EmailMessage{To: "patient@example.com", Subject: "Appointment Confirmation", Body: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := aws.ToString(api.input.FromEmailAddress); got != "Medical Assistant Team <clinic@example.com>" {
		t.Fatalf("unexpected from address %q", got)
	}
	if got := api.input.Destination.ToAddresses; len(got) != 1 || got[0] != "patient@example.com" {
		t.Fatalf("unexpected destination %v", got)
	}
	simple := api.input.Content.Simple
	if aws.ToString(simple.Subject.Data) != "Appointment Confirmation" {
		t.Fatalf("unexpected subject %q", aws.ToString(simple.Subject.Data))
	}
	if simple.Body.Html != nil {
		t.Fatalf("expected no html part for a plain message")
	}
}

func TestSESSender_SendError(t *testing.T) {
	sender := newSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "clinic@example.com"}, nil)
	err := sender.Send(context.Background(), EmailMessage{To: "patient@example.com"})
	if err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Fatalf("expected wrapped SES error, got %v", err)
	}
}

type fakeGmail struct {
	userID string
	msg    *gmail.Message
}

func (f *fakeGmail) send(_ context.Context, userID string, msg *gmail.Message) (*gmail.Message, error) {
	f.userID = userID
	f.msg = msg
	return &gmail.Message{Id: "g-1"}, nil
}

func TestGmailSender_EncodesRawMessage(t *testing.T) {
	api := &fakeGmail{}
	sender := newGmailSender(api, "", "clinic@example.com", nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "patient@example.com",
		ToName:  "Pat",
		Subject: "Appointment Confirmation",
		Body:    "Dear Pat,",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.userID != "me" {
		t.Fatalf("expected default user id me, got %q", api.userID)
	}
	raw, err := base64.URLEncoding.DecodeString(api.msg.Raw)
	if err != nil {
		t.Fatalf("raw is not base64url: %v", err)
	}
	text := string(raw)
	for _, want := range []string{
		"From: clinic@example.com\r\n",
		"To: Pat <patient@example.com>\r\n",
		"Subject: Appointment Confirmation\r\n",
		"\r\n\r\nDear Pat,",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in message:\n%s", want, text)
		}
	}
}

func TestGmailSender_NotConfigured(t *testing.T) {
	var sender *GmailSender
	if err := sender.Send(context.Background(), EmailMessage{}); err == nil {
		t.Fatal("expected error for nil sender")
	}
	if NewGmailSender(nil, "me", "", nil) != nil {
		t.Fatal("expected nil sender without a service")
	}
}
