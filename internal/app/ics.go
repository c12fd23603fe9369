package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const icsTimestamp = "20060102T150405Z"

// BuildInvite renders the iCalendar invite shared by every attendee
// email. One VEVENT, METHOD:REQUEST, UID anchored to the provider
// event id so mail clients reconcile duplicates.
func BuildInvite(event CalendarEvent, req BookingRequest, now time.Time) string {
	uid := event.ID
	if uid == "" {
		uid = uuid.NewString()
	}

	recipients := inviteRecipients(req)
	var attendees strings.Builder
	for _, email := range recipients {
		if strings.EqualFold(email, req.OrganizerEmail) {
			continue
		}
		attendees.WriteString(fmt.Sprintf("ATTENDEE;CN=%s;RSVP=TRUE:mailto:%s\r\n", email, email))
	}

	location := event.Location
	if location == "" {
		location = req.Location
	}

	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//booking-service//Invite//EN\r\n")
	b.WriteString("CALSCALE:GREGORIAN\r\n")
	b.WriteString("METHOD:REQUEST\r\n")
	b.WriteString("BEGIN:VEVENT\r\n")
	b.WriteString("UID:" + uid + "\r\n")
	b.WriteString("DTSTAMP:" + now.UTC().Format(icsTimestamp) + "\r\n")
	b.WriteString("DTSTART:" + req.Start.UTC().Format(icsTimestamp) + "\r\n")
	b.WriteString("DTEND:" + req.End.UTC().Format(icsTimestamp) + "\r\n")
	b.WriteString(fmt.Sprintf("ORGANIZER;CN=%s:mailto:%s\r\n", req.OrganizerEmail, req.OrganizerEmail))
	b.WriteString(attendees.String())
	b.WriteString("SUMMARY:" + escapeICSText(req.Summary) + "\r\n")
	if req.Description != "" {
		b.WriteString("DESCRIPTION:" + escapeICSText(req.Description) + "\r\n")
	}
	if location != "" {
		b.WriteString("LOCATION:" + escapeICSText(location) + "\r\n")
	}
	b.WriteString("STATUS:CONFIRMED\r\n")
	b.WriteString("SEQUENCE:0\r\n")
	b.WriteString("END:VEVENT\r\n")
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

// escapeICSText escapes commas, semicolons, backslashes and newlines
// per RFC 5545 TEXT rules.
func escapeICSText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		";", `\;`,
		",", `\,`,
		"\r\n", `\n`,
		"\n", `\n`,
	)
	return r.Replace(s)
}

// inviteRecipients is the deduplicated union of attendees and the
// organizer, case-insensitively, in first-seen order.
func inviteRecipients(req BookingRequest) []string {
	seen := map[string]bool{}
	var out []string
	for _, email := range append(append([]string{}, req.Attendees...), req.OrganizerEmail) {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		key := strings.ToLower(email)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, email)
	}
	return out
}
