package app

import "time"

// MeetingType selects the duration family and whether a conference
// link is provisioned for the booking.
type MeetingType string

const (
	MeetingCoffee  MeetingType = "coffee"
	MeetingPodcast MeetingType = "podcast"
)

func (m MeetingType) Valid() bool {
	return m == MeetingCoffee || m == MeetingPodcast
}

// BusyInterval is one committed block on the organizer calendar.
// All-day entries block the whole date regardless of Start/End.
type BusyInterval struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	IsAllDay bool      `json:"isAllDay"`
}

// BookingRequest is one user submission. Immutable once built.
type BookingRequest struct {
	Summary        string      `json:"summary"`
	Description    string      `json:"description"`
	Start          time.Time   `json:"start"`
	End            time.Time   `json:"end"`
	Location       string      `json:"location,omitempty"`
	Attendees      []string    `json:"attendees"`
	CalendarID     string      `json:"calendarId,omitempty"`
	OrganizerEmail string      `json:"organizerEmail"`
	MeetingType    MeetingType `json:"meetingType"`
	Notes          string      `json:"notes,omitempty"`
}

// ConferenceLink is the provisioned video-meeting join target.
// Source records which response field the URI was extracted from.
type ConferenceLink struct {
	URI      string `json:"uri"`
	Provider string `json:"provider"`
	Source   string `json:"source"`
}

// CalendarEvent is the durably created provider event. The
// provider-assigned ID is the idempotency anchor for the booking.
type CalendarEvent struct {
	ID        string    `json:"id"`
	HTMLLink  string    `json:"htmlLink"`
	Location  string    `json:"location,omitempty"`
	Attendees []string  `json:"attendees"`
	Summary   string    `json:"summary,omitempty"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// NotificationStatus is the per-recipient send outcome.
type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

type NotificationResult struct {
	Recipient string             `json:"recipient"`
	Status    NotificationStatus `json:"status"`
	Error     string             `json:"error,omitempty"`
}

// NotificationSummary aggregates the settle-all dispatch outcome.
type NotificationSummary struct {
	SentCount   int                  `json:"sentCount"`
	FailedCount int                  `json:"failedCount"`
	Results     []NotificationResult `json:"results"`
}

// AllFailed reports whether no recipient could be reached. Callers
// that require hard confirmation check this; the booking flow does not.
func (s NotificationSummary) AllFailed() bool {
	return len(s.Results) > 0 && s.FailedCount == len(s.Results)
}

// BookingResult is the outcome of one successful orchestration.
type BookingResult struct {
	Event          CalendarEvent       `json:"event"`
	ConferenceLink *ConferenceLink     `json:"conferenceLink,omitempty"`
	Notifications  NotificationSummary `json:"notifications"`
}
