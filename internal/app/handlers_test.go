package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBusyFetcher struct {
	intervals []BusyInterval
	err       error
	gotCalID  string
	gotMin    time.Time
	gotMax    time.Time
}

func (f *fakeBusyFetcher) FetchBusyIntervals(_ context.Context, calendarID string, timeMin, timeMax time.Time) ([]BusyInterval, error) {
	f.gotCalID = calendarID
	f.gotMin = timeMin
	f.gotMax = timeMax
	return f.intervals, f.err
}

type fakeBookingCreator struct {
	result *BookingResult
	err    error
	gotReq BookingRequest
	called bool
}

func (f *fakeBookingCreator) CreateBooking(_ context.Context, req BookingRequest) (*BookingResult, error) {
	f.called = true
	f.gotReq = req
	return f.result, f.err
}

func newTestRouter(fetcher busyFetcher, creator bookingCreator, now time.Time) *gin.Engine {
	gin.SetMode(gin.TestMode)
	a := &App{
		Calendar: fetcher,
		Bookings: creator,
		Busy:     NewBusyStore(),
		Cfg:      NewTestConfig(),
		Logger:   discardLogger(),
		Now:      func() time.Time { return now },
	}
	router := gin.New()
	a.Routes(router.Group("/api"))
	return router
}

func doRequest(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetEventsHandler(t *testing.T) {
	now := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)

	t.Run("missing params", func(t *testing.T) {
		router := newTestRouter(&fakeBusyFetcher{}, &fakeBookingCreator{}, now)
		for _, target := range []string{
			"/api/calendar/events",
			"/api/calendar/events?calendarId=primary",
			"/api/calendar/events?calendarId=primary&timeMin=2026-01-05T00:00:00Z",
			"/api/calendar/events?timeMin=2026-01-05T00:00:00Z&timeMax=2026-01-06T00:00:00Z",
		} {
			w := doRequest(router, http.MethodGet, target, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, target)
			assert.Contains(t, w.Body.String(), `"success":false`)
		}
	})

	t.Run("returns fetched intervals", func(t *testing.T) {
		fetcher := &fakeBusyFetcher{intervals: []BusyInterval{{
			Start: time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC),
		}}}
		router := newTestRouter(fetcher, &fakeBookingCreator{}, now)

		w := doRequest(router, http.MethodGet,
			"/api/calendar/events?calendarId=primary&timeMin=2026-01-05T00:00:00Z&timeMax=2026-01-06T00:00:00Z", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "primary", fetcher.gotCalID)

		var resp struct {
			Success bool           `json:"success"`
			Events  []BusyInterval `json:"events"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		require.Len(t, resp.Events, 1)
		assert.False(t, resp.Events[0].IsAllDay)
	})

	t.Run("fetch failure maps to bad gateway", func(t *testing.T) {
		fetcher := &fakeBusyFetcher{err: externalErr("google-calendar events list", 503, assert.AnError)}
		router := newTestRouter(fetcher, &fakeBookingCreator{}, now)

		w := doRequest(router, http.MethodGet,
			"/api/calendar/events?calendarId=primary&timeMin=2026-01-05T00:00:00Z&timeMax=2026-01-06T00:00:00Z", "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), `"success":false`)
	})
}

func validCreateBody() map[string]any {
	return map[string]any{
		"summary":     "Podcast: shipping Go services",
		"description": "Recording session",
		"start":       "2026-01-05T10:00:00Z",
		"end":         "2026-01-05T11:00:00Z",
		"attendees":   []string{"guest@example.com"},
		"calendarId":  "primary",
		"meetingType": "podcast",
	}
}

func marshalBody(t *testing.T, m map[string]any) string {
	t.Helper()
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return string(b)
}

func TestCreateEventHandler(t *testing.T) {
	now := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		creator := &fakeBookingCreator{result: &BookingResult{
			Event:          CalendarEvent{ID: "evt-1", HTMLLink: "https://cal/evt-1"},
			ConferenceLink: &ConferenceLink{URI: "https://meet.example/abc", Provider: "google-meet", Source: "entryPoints"},
			Notifications:  NotificationSummary{SentCount: 2},
		}}
		router := newTestRouter(&fakeBusyFetcher{}, creator, now)

		w := doRequest(router, http.MethodPost, "/api/calendar/create-event", marshalBody(t, validCreateBody()))
		require.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			Success        bool            `json:"success"`
			ID             string          `json:"id"`
			HTMLLink       string          `json:"htmlLink"`
			ConferenceLink *ConferenceLink `json:"conferenceLink"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "evt-1", resp.ID)
		assert.Equal(t, "https://cal/evt-1", resp.HTMLLink)
		require.NotNil(t, resp.ConferenceLink)

		// The organizer identity comes from configuration; the target
		// calendar comes from the request.
		assert.Equal(t, "host@example.com", creator.gotReq.OrganizerEmail)
		assert.Equal(t, "primary", creator.gotReq.CalendarID)
		assert.Equal(t, MeetingPodcast, creator.gotReq.MeetingType)
	})

	t.Run("field validation", func(t *testing.T) {
		mutations := []struct {
			name   string
			mutate func(map[string]any)
		}{
			{"missing summary", func(m map[string]any) { delete(m, "summary") }},
			{"missing start", func(m map[string]any) { delete(m, "start") }},
			{"bad start", func(m map[string]any) { m["start"] = "not-a-time" }},
			{"end before start", func(m map[string]any) { m["end"] = "2026-01-05T09:00:00Z" }},
			{"no attendees", func(m map[string]any) { m["attendees"] = []string{} }},
			{"bad attendee email", func(m map[string]any) { m["attendees"] = []string{"not-an-email"} }},
			{"unknown meeting type", func(m map[string]any) { m["meetingType"] = "webinar" }},
		}
		for _, tt := range mutations {
			t.Run(tt.name, func(t *testing.T) {
				creator := &fakeBookingCreator{}
				router := newTestRouter(&fakeBusyFetcher{}, creator, now)
				body := validCreateBody()
				tt.mutate(body)

				w := doRequest(router, http.MethodPost, "/api/calendar/create-event", marshalBody(t, body))
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.False(t, creator.called)
			})
		}
	})

	t.Run("rule violation reports the rule", func(t *testing.T) {
		creator := &fakeBookingCreator{err: &ValidationError{Rule: RuleViolation{
			Code: RuleTooSoon, Message: "time is below the minimum notice",
		}}}
		router := newTestRouter(&fakeBusyFetcher{}, creator, now)

		w := doRequest(router, http.MethodPost, "/api/calendar/create-event", marshalBody(t, validCreateBody()))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), fmt.Sprintf(`"rule":%q`, RuleTooSoon))
	})

	t.Run("insert failure surfaces provider detail", func(t *testing.T) {
		creator := &fakeBookingCreator{err: externalErr("google-calendar event insert", 409, assert.AnError)}
		router := newTestRouter(&fakeBusyFetcher{}, creator, now)

		w := doRequest(router, http.MethodPost, "/api/calendar/create-event", marshalBody(t, validCreateBody()))
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "409")
	})
}

func TestGetSlotsHandler(t *testing.T) {
	now := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)

	t.Run("busy hour excluded", func(t *testing.T) {
		fetcher := &fakeBusyFetcher{intervals: []BusyInterval{{
			Start: time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC),
		}}}
		router := newTestRouter(fetcher, &fakeBookingCreator{}, now)

		w := doRequest(router, http.MethodGet, "/api/slots?date=2026-01-05&meetingType=podcast", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Success bool     `json:"success"`
			Slots   []string `json:"slots"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00"}, resp.Slots)
	})

	t.Run("all day entry empties the date", func(t *testing.T) {
		fetcher := &fakeBusyFetcher{intervals: []BusyInterval{{
			Start:    time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
			End:      time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC),
			IsAllDay: true,
		}}}
		router := newTestRouter(fetcher, &fakeBookingCreator{}, now)

		w := doRequest(router, http.MethodGet, "/api/slots?date=2026-01-05&meetingType=podcast", "")
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Slots []string `json:"slots"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Slots)
	})

	t.Run("unavailable day reports the rule without fetching", func(t *testing.T) {
		fetcher := &fakeBusyFetcher{}
		router := newTestRouter(fetcher, &fakeBookingCreator{}, now)

		w := doRequest(router, http.MethodGet, "/api/slots?date=2026-01-10", "") // Saturday
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), fmt.Sprintf(`"reason":%q`, RuleDayUnavailable))
		assert.True(t, fetcher.gotMin.IsZero(), "date-level rejection must not hit the provider")
	})

	t.Run("bad params", func(t *testing.T) {
		router := newTestRouter(&fakeBusyFetcher{}, &fakeBookingCreator{}, now)
		assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodGet, "/api/slots", "").Code)
		assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodGet, "/api/slots?date=05-01-2026", "").Code)
		assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodGet, "/api/slots?date=2026-01-05&meetingType=webinar", "").Code)
	})
}

func TestListBookingsHandlerWithoutStore(t *testing.T) {
	now := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)
	router := newTestRouter(&fakeBusyFetcher{}, &fakeBookingCreator{}, now)

	w := doRequest(router, http.MethodGet, "/api/bookings", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	newAuthRouter := func(cfg AuthConfig) *gin.Engine {
		r := gin.New()
		r.Use(AuthMiddleware(cfg))
		r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
		return r
	}

	t.Run("open without configuration", func(t *testing.T) {
		w := doRequest(newAuthRouter(AuthConfig{}), http.MethodGet, "/ping", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("static token accepted", func(t *testing.T) {
		router := newAuthRouter(AuthConfig{StaticTokens: "secret-1, secret-2"})
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Authorization", "Bearer secret-2")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing and malformed headers rejected", func(t *testing.T) {
		router := newAuthRouter(AuthConfig{StaticTokens: "secret-1"})

		w := doRequest(router, http.MethodGet, "/ping", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Authorization", "Token secret-1")
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		req = httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
