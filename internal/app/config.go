package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server     ServerConfig
	DB         DBConfig
	CORS       CORSConfig
	Log        LogConfig
	Auth       AuthConfig
	Calendar   CalendarConfig
	Conference ConferenceConfig
	SMTP       SMTPConfig
	Rules      RulesConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

type DBConfig struct {
	// Optional: without a DATABASE_URL the service runs stateless and
	// skips the booking audit trail.
	URL string `envconfig:"DATABASE_URL"`
}

type AuthConfig struct {
	// Either a JWT HMAC secret, a comma-separated static token list,
	// or both. With neither set the API is open (dev mode).
	StaticTokens string `envconfig:"STATIC_TOKENS"`
	JWTSecret    string `envconfig:"JWT_HMAC_SECRET"`
}

type CORSConfig struct {
	AllowOrigins []string `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

type CalendarConfig struct {
	CalendarID      string `envconfig:"GOOGLE_CALENDAR_ID" default:"primary"`
	CredentialsJSON string `envconfig:"GOOGLE_CREDENTIALS_JSON"`
	OrganizerEmail  string `envconfig:"ORGANIZER_EMAIL"`
}

type ConferenceConfig struct {
	BaseURL      string        `envconfig:"CONFERENCE_API_BASE_URL" default:"https://meet.googleapis.com"`
	TokenURL     string        `envconfig:"CONFERENCE_TOKEN_URL"`
	ClientID     string        `envconfig:"CONFERENCE_CLIENT_ID"`
	ClientSecret string        `envconfig:"CONFERENCE_CLIENT_SECRET"`
	Timeout      time.Duration `envconfig:"CONFERENCE_TIMEOUT" default:"10s"`
}

type SMTPConfig struct {
	Host     string `envconfig:"SMTP_HOST"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"SMTP_FROM"`
}

// RulesConfig is the booking policy. One organizer calendar, fixed
// duration per meeting type.
type RulesConfig struct {
	AvailableDays       string `envconfig:"BOOKING_AVAILABLE_DAYS" default:"1,2,3,4,5"`
	StartHour           int    `envconfig:"BOOKING_START_HOUR" default:"9"`
	EndHour             int    `envconfig:"BOOKING_END_HOUR" default:"17"`
	MaxDaysInAdvance    int    `envconfig:"BOOKING_MAX_DAYS_IN_ADVANCE" default:"60"`
	MinHoursBefore      int    `envconfig:"BOOKING_MIN_HOURS_BEFORE" default:"24"`
	CoffeeDurationMins  int    `envconfig:"BOOKING_COFFEE_DURATION_MINUTES" default:"30"`
	PodcastDurationMins int    `envconfig:"BOOKING_PODCAST_DURATION_MINUTES" default:"60"`
}

// BookingRules is the immutable policy evaluated by the rule engine.
type BookingRules struct {
	Duration         time.Duration
	AvailableDays    map[time.Weekday]bool
	StartHour        int
	EndHour          int
	MaxDaysInAdvance int
	MinHoursBefore   int
}

// RulesFor resolves the policy for a meeting type.
func (c RulesConfig) RulesFor(mt MeetingType) (BookingRules, error) {
	days, err := parseWeekdays(c.AvailableDays)
	if err != nil {
		return BookingRules{}, err
	}
	mins := c.CoffeeDurationMins
	if mt == MeetingPodcast {
		mins = c.PodcastDurationMins
	}
	return BookingRules{
		Duration:         time.Duration(mins) * time.Minute,
		AvailableDays:    days,
		StartHour:        c.StartHour,
		EndHour:          c.EndHour,
		MaxDaysInAdvance: c.MaxDaysInAdvance,
		MinHoursBefore:   c.MinHoursBefore,
	}, nil
}

func parseWeekdays(s string) (map[time.Weekday]bool, error) {
	days := map[time.Weekday]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday %q in BOOKING_AVAILABLE_DAYS", part)
		}
		days[time.Weekday(n)] = true
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("BOOKING_AVAILABLE_DAYS resolved to no weekdays")
	}
	return days, nil
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{Port: "8889"},
		Log:    LogConfig{Level: "error"},
		Calendar: CalendarConfig{
			CalendarID:     "primary",
			OrganizerEmail: "host@example.com",
		},
		Rules: RulesConfig{
			AvailableDays:       "1,2,3,4,5",
			StartHour:           9,
			EndHour:             17,
			MaxDaysInAdvance:    60,
			MinHoursBefore:      24,
			CoffeeDurationMins:  30,
			PodcastDurationMins: 60,
		},
	}
}
