package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type busyFetcher interface {
	FetchBusyIntervals(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]BusyInterval, error)
}

type bookingCreator interface {
	CreateBooking(ctx context.Context, req BookingRequest) (*BookingResult, error)
}

// App carries the wired components behind the HTTP surface.
type App struct {
	Calendar busyFetcher
	Bookings bookingCreator
	Busy     *BusyStore
	Store    *Store
	Cfg      Config
	Logger   *slog.Logger
	Now      func() time.Time
}

// Routes registers the API under the given router group.
func (a *App) Routes(api *gin.RouterGroup) {
	calendar := api.Group("/calendar")
	{
		calendar.GET("/events", a.GetEventsHandler)
		calendar.POST("/create-event", a.CreateEventHandler)
	}
	api.GET("/slots", a.GetSlotsHandler)
	api.GET("/bookings", a.ListBookingsHandler)
}

// GET /api/calendar/events?calendarId&timeMin&timeMax
func (a *App) GetEventsHandler(c *gin.Context) {
	calendarID := c.Query("calendarId")
	timeMinStr := c.Query("timeMin")
	timeMaxStr := c.Query("timeMax")
	if calendarID == "" || timeMinStr == "" || timeMaxStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "calendarId, timeMin and timeMax are required"})
		return
	}
	timeMin, err := time.Parse(time.RFC3339, timeMinStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid timeMin"})
		return
	}
	timeMax, err := time.Parse(time.RFC3339, timeMaxStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid timeMax"})
		return
	}
	if !timeMin.Before(timeMax) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "timeMin must be before timeMax"})
		return
	}

	intervals, err := a.Calendar.FetchBusyIntervals(c.Request.Context(), calendarID, timeMin, timeMax)
	if err != nil {
		a.abortWithTaxonomy(c, err)
		return
	}
	a.Busy.Put(timeMin, timeMax, intervals)

	if intervals == nil {
		intervals = []BusyInterval{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "events": intervals})
}

type createEventReq struct {
	Summary     string   `json:"summary" binding:"required"`
	Description string   `json:"description"`
	Start       string   `json:"start" binding:"required"` // RFC3339
	End         string   `json:"end" binding:"required"`
	Location    string   `json:"location"`
	Attendees   []string `json:"attendees" binding:"required,min=1,dive,email"`
	CalendarID  string   `json:"calendarId"`
	Notes       string   `json:"notes"`
	MeetingType string   `json:"meetingType" binding:"required"`
}

// POST /api/calendar/create-event
func (a *App) CreateEventHandler(c *gin.Context) {
	var body createEventReq
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	mt := MeetingType(body.MeetingType)
	if !mt.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "meetingType must be coffee or podcast"})
		return
	}
	start, err := time.Parse(time.RFC3339, body.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid start"})
		return
	}
	end, err := time.Parse(time.RFC3339, body.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid end"})
		return
	}
	if !start.Before(end) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "start must be before end"})
		return
	}

	req := BookingRequest{
		Summary:        body.Summary,
		Description:    body.Description,
		Start:          start,
		End:            end,
		Location:       body.Location,
		Attendees:      body.Attendees,
		CalendarID:     body.CalendarID,
		OrganizerEmail: a.Cfg.Calendar.OrganizerEmail,
		MeetingType:    mt,
		Notes:          body.Notes,
	}

	result, err := a.Bookings.CreateBooking(c.Request.Context(), req)
	if err != nil {
		a.abortWithTaxonomy(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"id":             result.Event.ID,
		"htmlLink":       result.Event.HTMLLink,
		"conferenceLink": result.ConferenceLink,
		"notifications":  result.Notifications,
	})
}

// GET /api/slots?date=YYYY-MM-DD&meetingType=coffee
func (a *App) GetSlotsHandler(c *gin.Context) {
	dateStr := c.Query("date")
	if dateStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "date required (YYYY-MM-DD)"})
		return
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid date"})
		return
	}
	mt := MeetingType(c.DefaultQuery("meetingType", string(MeetingCoffee)))
	if !mt.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "meetingType must be coffee or podcast"})
		return
	}

	rules, err := a.Cfg.Rules.RulesFor(mt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	now := a.now()
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), rules.StartHour, 0, 0, 0, time.UTC)

	// Date-level rules decide the whole day up front. The notice
	// floor is slot-level and left to the generator.
	if v := Validate(dayStart, rules, now); v != nil && v.Code != RuleTooSoon {
		c.JSON(http.StatusOK, gin.H{"success": true, "date": dateStr, "slots": []string{}, "reason": v.Code})
		return
	}

	nextDay := dayStart.AddDate(0, 0, 1)
	intervals, err := a.Calendar.FetchBusyIntervals(c.Request.Context(), a.Cfg.Calendar.CalendarID, dateOf(dayStart), dateOf(nextDay))
	if err != nil {
		a.abortWithTaxonomy(c, err)
		return
	}
	a.Busy.Put(dateOf(dayStart), dateOf(nextDay), intervals)

	slots := GenerateSlots(dayStart, a.Busy.ForDate(dayStart), rules, now)
	c.JSON(http.StatusOK, gin.H{"success": true, "date": dateStr, "meetingType": mt, "slots": slots})
}

// GET /api/bookings?from=ISO&to=ISO
func (a *App) ListBookingsHandler(c *gin.Context) {
	if a.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "booking records are not enabled (no DATABASE_URL)"})
		return
	}

	fromStr := c.Query("from")
	toStr := c.Query("to")
	var (
		from, to time.Time
		err      error
	)
	filtered := fromStr != "" && toStr != ""
	if filtered {
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid from"})
			return
		}
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid to"})
			return
		}
		if !from.Before(to) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "from must be before to"})
			return
		}
	}

	records, err := a.Store.ListBookingRecords(c.Request.Context(), from, to, filtered)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if records == nil {
		records = []BookingRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "bookings": records})
}

// abortWithTaxonomy maps the error taxonomy onto HTTP statuses:
// validation 400 with the violated rule, external 502 with the
// provider detail, anything else 500.
func (a *App) abortWithTaxonomy(c *gin.Context, err error) {
	if ve, ok := AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   ve.Rule.Message,
			"rule":    ve.Rule.Code,
		})
		return
	}
	if ee, ok := AsExternal(err); ok {
		a.Logger.Error("external service failure", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": ee.Error()})
		return
	}
	a.Logger.Error("request failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
