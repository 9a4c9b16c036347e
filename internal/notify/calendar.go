package notify

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

// CalendarScheduler creates calendar entries and returns a link to the event.
type CalendarScheduler interface {
	CreateEvent(ctx context.Context, event CalendarEvent) (string, error)
}

type calendarInserter interface {
	insert(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error)
}

type calendarService struct {
	svc *calendar.Service
}

func (c calendarService) insert(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	return c.svc.Events.Insert(calendarID, event).Context(ctx).Do()
}

// GoogleCalendar inserts events through the Calendar v3 API.
type GoogleCalendar struct {
	api        calendarInserter
	calendarID string
	logger     *logging.Logger
}

// NewGoogleCalendar returns nil without a service.
func NewGoogleCalendar(svc *calendar.Service, calendarID string, logger *logging.Logger) *GoogleCalendar {
	if svc == nil {
		return nil
	}
	return newGoogleCalendar(calendarService{svc: svc}, calendarID, logger)
}

func newGoogleCalendar(api calendarInserter, calendarID string, logger *logging.Logger) *GoogleCalendar {
	if logger == nil {
		logger = logging.Default()
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCalendar{api: api, calendarID: calendarID, logger: logger}
}

// CreateEvent inserts event and returns its html link.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, event CalendarEvent) (string, error) {
	if g == nil || g.api == nil {
		return "", fmt.Errorf("notify: calendar client not configured")
	}
	zone := event.Start.Location().String()
	body := &calendar.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start:       &calendar.EventDateTime{DateTime: event.Start.Format(time.RFC3339), TimeZone: zone},
		End:         &calendar.EventDateTime{DateTime: event.End.Format(time.RFC3339), TimeZone: zone},
	}
	for _, email := range event.Attendees {
		if email != "" {
			body.Attendees = append(body.Attendees, &calendar.EventAttendee{Email: email})
		}
	}

	created, err := g.api.insert(ctx, g.calendarID, body)
	if err != nil {
		return "", fmt.Errorf("notify: calendar insert failed: %w", err)
	}
	g.logger.Info("calendar event created", "calendar_id", g.calendarID, "event_id", created.Id, "link", created.HtmlLink)
	return created.HtmlLink, nil
}

// StubCalendar logs instead of creating events.
type StubCalendar struct {
	logger *logging.Logger
}

func NewStubCalendar(logger *logging.Logger) *StubCalendar {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubCalendar{logger: logger}
}

func (s *StubCalendar) CreateEvent(_ context.Context, event CalendarEvent) (string, error) {
	s.logger.Info("stub calendar: would create event", "summary", event.Summary, "start", event.Start.Format(time.RFC3339))
	return "", nil
}

var (
	_ CalendarScheduler = (*GoogleCalendar)(nil)
	_ CalendarScheduler = (*StubCalendar)(nil)
)
