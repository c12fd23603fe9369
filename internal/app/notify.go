package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gopkg.in/gomail.v2"
)

const mailerHeader = "booking-service"

// MailSender is what the dispatcher needs from SMTP. gomail's Dialer
// satisfies it; tests substitute a fake.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// NotificationDispatcher emails the booking confirmation to every
// participant. Sends settle independently: one recipient failing
// never cancels, retries, or fails the others.
type NotificationDispatcher struct {
	sender MailSender
	from   string
	logger *slog.Logger
	nowFn  func() time.Time
}

func NewNotificationDispatcher(cfg SMTPConfig, logger *slog.Logger) (*NotificationDispatcher, error) {
	if cfg.Host == "" {
		return nil, &ConfigurationError{
			Key:  "SMTP_HOST",
			Hint: "set SMTP_HOST/SMTP_PORT (and SMTP_USERNAME/SMTP_PASSWORD for authenticated relays)",
		}
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &NotificationDispatcher{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   from,
		logger: logger,
		nowFn:  time.Now,
	}, nil
}

// SendInvites dispatches one message per recipient concurrently and
// waits for every attempt to resolve before aggregating. The invite
// attachment is built once and shared; the organizer gets an internal
// notification variant without it.
func (d *NotificationDispatcher) SendInvites(ctx context.Context, event CalendarEvent, req BookingRequest) NotificationSummary {
	invite := BuildInvite(event, req, d.nowFn())
	recipients := inviteRecipients(req)

	results := make([]NotificationResult, len(recipients))
	var wg sync.WaitGroup
	for i, rcpt := range recipients {
		wg.Add(1)
		go func(i int, rcpt string) {
			defer wg.Done()
			msg := d.buildMessage(event, req, rcpt, invite)
			if err := d.sender.DialAndSend(msg); err != nil {
				d.logger.ErrorContext(ctx, "notification send failed",
					"recipient", rcpt, "error", err)
				results[i] = NotificationResult{
					Recipient: rcpt,
					Status:    NotificationFailed,
					Error:     err.Error(),
				}
				return
			}
			results[i] = NotificationResult{Recipient: rcpt, Status: NotificationSent}
		}(i, rcpt)
	}
	wg.Wait()

	summary := NotificationSummary{Results: results}
	for _, r := range results {
		if r.Status == NotificationSent {
			summary.SentCount++
		} else {
			summary.FailedCount++
		}
	}
	return summary
}

func (d *NotificationDispatcher) buildMessage(event CalendarEvent, req BookingRequest, rcpt, invite string) *gomail.Message {
	isOrganizer := strings.EqualFold(rcpt, req.OrganizerEmail)

	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", rcpt)
	m.SetHeader("X-Mailer", mailerHeader)
	m.SetHeader("Subject", subjectFor(req, isOrganizer))

	if isOrganizer {
		m.SetBody("text/plain", organizerBody(event, req))
		return m
	}

	m.SetBody("text/plain", attendeeBody(event, req))
	m.Attach("invite.ics",
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := io.WriteString(w, invite)
			return err
		}),
		gomail.SetHeader(map[string][]string{
			"Content-Type": {`text/calendar; method=REQUEST; charset="UTF-8"`},
		}),
	)
	return m
}

func subjectFor(req BookingRequest, isOrganizer bool) string {
	label := "Coffee chat"
	if req.MeetingType == MeetingPodcast {
		label = "Podcast recording"
	}
	if isOrganizer {
		return fmt.Sprintf("New booking: %s - %s", label, req.Summary)
	}
	return fmt.Sprintf("%s confirmed: %s", label, req.Summary)
}

func attendeeBody(event CalendarEvent, req BookingRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your %s booking is confirmed.\n\n", req.MeetingType)
	fmt.Fprintf(&b, "What:  %s\n", req.Summary)
	fmt.Fprintf(&b, "When:  %s to %s\n",
		req.Start.Format("Mon, 02 Jan 2006 15:04 MST"),
		req.End.Format("15:04 MST"))
	if loc := eventLocation(event, req); loc != "" {
		fmt.Fprintf(&b, "Where: %s\n", loc)
	}
	if req.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", req.Description)
	}
	b.WriteString("\nA calendar invite is attached.\n")
	return b.String()
}

func organizerBody(event CalendarEvent, req BookingRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A new %s booking was created.\n\n", req.MeetingType)
	fmt.Fprintf(&b, "What:      %s\n", req.Summary)
	fmt.Fprintf(&b, "When:      %s to %s\n",
		req.Start.Format("Mon, 02 Jan 2006 15:04 MST"),
		req.End.Format("15:04 MST"))
	fmt.Fprintf(&b, "Attendees: %s\n", strings.Join(req.Attendees, ", "))
	if loc := eventLocation(event, req); loc != "" {
		fmt.Fprintf(&b, "Where:     %s\n", loc)
	}
	if event.HTMLLink != "" {
		fmt.Fprintf(&b, "Calendar:  %s\n", event.HTMLLink)
	}
	if req.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", req.Notes)
	}
	return b.String()
}

func eventLocation(event CalendarEvent, req BookingRequest) string {
	if event.Location != "" {
		return event.Location
	}
	return req.Location
}
