package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// CalendarClient is the stateless, read-mostly wrapper around the
// Google Calendar API. Reads always hit the provider (no caching);
// the single write is invoked at most once per booking request.
type CalendarClient struct {
	svc    *calendar.Service
	logger *slog.Logger
}

// NewCalendarClient builds the client from service credentials. Extra
// options let tests point the service at a local endpoint.
func NewCalendarClient(ctx context.Context, cfg CalendarConfig, logger *slog.Logger, opts ...option.ClientOption) (*CalendarClient, error) {
	if cfg.CredentialsJSON != "" {
		opts = append([]option.ClientOption{
			option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
			option.WithScopes(calendar.CalendarScope),
		}, opts...)
	} else if len(opts) == 0 {
		return nil, &ConfigurationError{
			Key:  "GOOGLE_CREDENTIALS_JSON",
			Hint: "set it to the service-account JSON that owns the booking calendar",
		}
	}

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create calendar service")
	}
	return &CalendarClient{svc: svc, logger: logger}, nil
}

// FetchBusyIntervals lists the committed events in [timeMin, timeMax).
// An item is all-day when either boundary is date-only.
func (c *CalendarClient) FetchBusyIntervals(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]BusyInterval, error) {
	events, err := c.svc.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		MaxResults(250).
		Context(ctx).
		Do()
	if err != nil {
		return nil, calendarErr("events list", err)
	}

	var intervals []BusyInterval
	for _, item := range events.Items {
		if item.Start == nil || item.End == nil {
			continue
		}
		iv := BusyInterval{
			IsAllDay: item.Start.DateTime == "" || item.End.DateTime == "",
		}
		if start, ok := parseEventTime(item.Start); ok {
			iv.Start = start
		} else {
			continue
		}
		if end, ok := parseEventTime(item.End); ok {
			iv.End = end
		} else {
			continue
		}
		intervals = append(intervals, iv)
	}
	return intervals, nil
}

// InsertEvent creates one calendar event. The caller never retries;
// the provider-assigned id anchors idempotency downstream.
func (c *CalendarClient) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (CalendarEvent, error) {
	created, err := c.svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return CalendarEvent{}, calendarErr("event insert", err)
	}

	out := CalendarEvent{
		ID:       created.Id,
		HTMLLink: created.HtmlLink,
		Location: created.Location,
		Summary:  created.Summary,
	}
	for _, a := range created.Attendees {
		out.Attendees = append(out.Attendees, a.Email)
	}
	if created.Start != nil {
		if start, ok := parseEventTime(created.Start); ok {
			out.Start = start
		}
	}
	if created.End != nil {
		if end, ok := parseEventTime(created.End); ok {
			out.End = end
		}
	}
	return out, nil
}

func parseEventTime(edt *calendar.EventDateTime) (time.Time, bool) {
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t, true
		}
		return time.Time{}, false
	}
	if edt.Date != "" {
		if t, err := time.Parse("2006-01-02", edt.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func calendarErr(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return externalErr("google-calendar "+op, gerr.Code, errors.New(gerr.Message))
	}
	return externalErr("google-calendar "+op, 0, err)
}
