package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Queue carries encoded jobs from the publisher to the worker.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// JobKind names a side effect the worker knows how to deliver.
type JobKind string

const (
	JobBookingConfirmation JobKind = "booking_confirmation"
	JobChatReport          JobKind = "chat_report"
)

// Job is the queued unit of notification work.
type Job struct {
	ID         string               `json:"id"`
	Kind       JobKind              `json:"kind"`
	Booking    *BookingConfirmation `json:"booking,omitempty"`
	Report     string               `json:"report,omitempty"`
	EnqueuedAt time.Time            `json:"enqueued_at"`
}

func encodeJob(job Job) (Job, string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return Job{}, "", fmt.Errorf("notify: failed to encode job: %w", err)
	}
	return job, string(body), nil
}

func decodeJob(body string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return Job{}, fmt.Errorf("notify: failed to decode job: %w", err)
	}
	return job, nil
}
