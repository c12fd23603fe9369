package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules() BookingRules {
	return BookingRules{
		Duration:         60 * time.Minute,
		AvailableDays:    map[time.Weekday]bool{time.Monday: true, time.Tuesday: true, time.Wednesday: true, time.Thursday: true, time.Friday: true},
		StartHour:        9,
		EndHour:          17,
		MaxDaysInAdvance: 60,
		MinHoursBefore:   24,
	}
}

func TestValidate(t *testing.T) {
	// Thursday
	now := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)
	rules := testRules()

	tests := []struct {
		name      string
		candidate time.Time
		wantCode  string
	}{
		{
			name:      "valid next week slot",
			candidate: time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC), // Monday
		},
		{
			name:      "yesterday is past",
			candidate: time.Date(2025, time.December, 31, 10, 0, 0, 0, time.UTC),
			wantCode:  RulePast,
		},
		{
			name:      "beyond the advance ceiling",
			candidate: time.Date(2026, time.March, 30, 10, 0, 0, 0, time.UTC),
			wantCode:  RuleTooFar,
		},
		{
			name:      "inside the notice floor",
			candidate: time.Date(2026, time.January, 2, 10, 0, 0, 0, time.UTC), // Friday, <24h away
			wantCode:  RuleTooSoon,
		},
		{
			name:      "weekend day unavailable",
			candidate: time.Date(2026, time.January, 10, 10, 0, 0, 0, time.UTC), // Saturday
			wantCode:  RuleDayUnavailable,
		},
		{
			name:      "last day inside the ceiling",
			candidate: time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC), // Monday, day 60
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Validate(tt.candidate, rules, now)
			if tt.wantCode == "" {
				assert.Nil(t, v)
				return
			}
			require.NotNil(t, v)
			assert.Equal(t, tt.wantCode, v.Code)
			assert.NotEmpty(t, v.Message)
		})
	}
}

// A candidate violating several rules at once reports the first check
// in the fixed order, so the reason shown to users is deterministic.
func TestValidateShortCircuitOrder(t *testing.T) {
	now := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)
	rules := testRules()

	// Saturday in the past: PAST outranks DAY_UNAVAILABLE.
	past := time.Date(2025, time.December, 27, 10, 0, 0, 0, time.UTC)
	v := Validate(past, rules, now)
	require.NotNil(t, v)
	assert.Equal(t, RulePast, v.Code)

	// Saturday inside the notice floor: TOO_SOON outranks DAY_UNAVAILABLE.
	soonWeekend := time.Date(2026, time.January, 1, 20, 0, 0, 0, time.UTC)
	rules.AvailableDays = map[time.Weekday]bool{time.Monday: true}
	v = Validate(soonWeekend, rules, now)
	require.NotNil(t, v)
	assert.Equal(t, RuleTooSoon, v.Code)
}

// Date comparisons run in the clock's location. A UTC request made
// from a clock east of UTC must not be mislabeled PAST just because
// its UTC midnight precedes the local one.
func TestValidateCrossZoneDayBoundary(t *testing.T) {
	loc := time.FixedZone("UTC+13", 13*3600)
	now := time.Date(2026, time.January, 6, 1, 0, 0, 0, loc) // Jan 5 12:00 UTC
	rules := testRules()
	rules.MinHoursBefore = 0

	// Two hours after now, expressed in UTC: Jan 6 03:00 local.
	candidate := time.Date(2026, time.January, 5, 14, 0, 0, 0, time.UTC)
	assert.Nil(t, Validate(candidate, rules, now))
}

func TestValidateZeroNotice(t *testing.T) {
	now := time.Date(2026, time.January, 5, 8, 0, 0, 0, time.UTC) // Monday morning
	rules := testRules()
	rules.MinHoursBefore = 0

	sameDay := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)
	assert.Nil(t, Validate(sameDay, rules, now))
}
