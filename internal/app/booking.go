package app

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/api/calendar/v3"
)

// Narrow views of the collaborators, so the orchestrator can be
// exercised with fakes.
type eventInserter interface {
	InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (CalendarEvent, error)
}

type conferenceProvisioner interface {
	Provision(ctx context.Context, mt MeetingType) *ConferenceLink
}

type inviteDispatcher interface {
	SendInvites(ctx context.Context, event CalendarEvent, req BookingRequest) NotificationSummary
}

// Orchestrator sequences validation, conferencing, event creation and
// notification into one booking operation. Once the calendar event is
// durably created, no downstream failure is surfaced as a booking
// failure; only the notification status degrades.
type Orchestrator struct {
	calendar   eventInserter
	conference conferenceProvisioner
	notifier   inviteDispatcher
	store      *Store
	rules      RulesConfig
	calendarID string
	logger     *slog.Logger
	nowFn      func() time.Time
}

func NewOrchestrator(
	cal eventInserter,
	conf conferenceProvisioner,
	notifier inviteDispatcher,
	store *Store,
	rules RulesConfig,
	calendarID string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		calendar:   cal,
		conference: conf,
		notifier:   notifier,
		store:      store,
		rules:      rules,
		calendarID: calendarID,
		logger:     logger,
		nowFn:      time.Now,
	}
}

// CreateBooking turns one validated request into one calendar event.
func (o *Orchestrator) CreateBooking(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	rules, err := o.rules.RulesFor(req.MeetingType)
	if err != nil {
		return nil, err
	}

	// The slot was validated when offered, but it may have gone stale
	// in the UI since then.
	if v := Validate(req.Start, rules, o.nowFn()); v != nil {
		return nil, &ValidationError{Rule: *v}
	}

	link := o.conference.Provision(ctx, req.MeetingType)
	finalLocation := req.Location
	if link != nil {
		finalLocation = link.URI
	}

	payload := buildEventPayload(req, finalLocation)
	// An out-of-band link lives in Location only; carrying a
	// conference-data block as well trips provider-side validation.
	payload.ConferenceData = nil

	calendarID := req.CalendarID
	if calendarID == "" {
		calendarID = o.calendarID
	}
	created, err := o.calendar.InsertEvent(ctx, calendarID, payload)
	if err != nil {
		return nil, err
	}
	if created.Location != finalLocation {
		// The link was provisioned correctly; a provider-side rewrite
		// of the location is worth knowing about, not failing over.
		o.logger.WarnContext(ctx, "provider normalized event location",
			"requested", finalLocation, "returned", created.Location)
	}

	result := &BookingResult{Event: created, ConferenceLink: link}

	if o.store != nil {
		if err := o.store.InsertBookingRecord(ctx, created, req, link); err != nil {
			o.logger.ErrorContext(ctx, "failed to persist booking record",
				"event_id", created.ID, "error", err)
		}
	}

	result.Notifications = o.notifier.SendInvites(ctx, created, req)
	if o.store != nil {
		if err := o.store.RecordNotificationResults(ctx, created.ID, result.Notifications.Results); err != nil {
			o.logger.ErrorContext(ctx, "failed to persist notification results",
				"event_id", created.ID, "error", err)
		}
	}

	return result, nil
}

// buildEventPayload assembles the provider event.
func buildEventPayload(req BookingRequest, location string) *calendar.Event {
	description := req.Description
	if req.Notes != "" {
		if description != "" {
			description += "\n\n"
		}
		description += "Notes: " + req.Notes
	}

	event := &calendar.Event{
		Summary:     req.Summary,
		Description: description,
		Location:    location,
		Start:       &calendar.EventDateTime{DateTime: req.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: req.End.Format(time.RFC3339)},
	}
	for _, email := range req.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}
	return event
}
