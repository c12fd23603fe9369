package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the booking audit trail. The calendar provider remains the
// source of truth for the event itself; these records exist for
// operator queries and notification accounting. A nil *Store is valid
// and turns every write into a no-op decided by the caller.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

type BookingRecord struct {
	ID             string      `json:"id"`
	EventID        string      `json:"event_id"`
	MeetingType    MeetingType `json:"meeting_type"`
	Summary        string      `json:"summary"`
	OrganizerEmail string      `json:"organizer_email"`
	Attendees      []string    `json:"attendees"`
	StartAt        time.Time   `json:"start_at"`
	EndAt          time.Time   `json:"end_at"`
	ConferenceURI  string      `json:"conference_uri,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

func (s *Store) InsertBookingRecord(ctx context.Context, event CalendarEvent, req BookingRequest, link *ConferenceLink) error {
	confURI := ""
	if link != nil {
		confURI = link.URI
	}

	q := `INSERT INTO booking_records
	      (id, event_id, meeting_type, summary, organizer_email, attendees, start_at, end_at, conference_uri, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, now())`
	_, err := s.db.Exec(ctx, q,
		uuid.NewString(), event.ID, string(req.MeetingType), req.Summary,
		req.OrganizerEmail, req.Attendees, req.Start.UTC(), req.End.UTC(), confURI)
	return err
}

func (s *Store) RecordNotificationResults(ctx context.Context, eventID string, results []NotificationResult) error {
	q := `INSERT INTO notification_results (id, event_id, recipient, status, error, created_at)
	      VALUES ($1,$2,$3,$4,$5, now())`
	for _, r := range results {
		if _, err := s.db.Exec(ctx, q, uuid.NewString(), eventID, r.Recipient, string(r.Status), r.Error); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListBookingRecords(ctx context.Context, from, to time.Time, filtered bool) ([]BookingRecord, error) {
	var (
		rows pgx.Rows
		err  error
	)

	if filtered {
		q := `SELECT id, event_id, meeting_type, summary, organizer_email, attendees, start_at, end_at, conference_uri, created_at
		      FROM booking_records
		      WHERE start_at >= $1 AND start_at < $2
		      ORDER BY start_at`
		rows, err = s.db.Query(ctx, q, from, to)
	} else {
		q := `SELECT id, event_id, meeting_type, summary, organizer_email, attendees, start_at, end_at, conference_uri, created_at
		      FROM booking_records
		      ORDER BY start_at`
		rows, err = s.db.Query(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BookingRecord
	for rows.Next() {
		var r BookingRecord
		var mt string
		if err := rows.Scan(&r.ID, &r.EventID, &mt, &r.Summary, &r.OrganizerEmail,
			&r.Attendees, &r.StartAt, &r.EndAt, &r.ConferenceURI, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.MeetingType = MeetingType(mt)
		out = append(out, r)
	}
	return out, rows.Err()
}
