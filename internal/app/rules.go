package app

import "time"

// RuleViolation identifies the first booking rule a candidate start
// time failed. Codes are stable and surfaced in API errors.
type RuleViolation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	RulePast           = "PAST"
	RuleTooFar         = "TOO_FAR"
	RuleTooSoon        = "TOO_SOON"
	RuleDayUnavailable = "DAY_UNAVAILABLE"
)

// Validate checks a candidate start time against the booking rules.
// Checks run in a fixed order and short-circuit on the first failure,
// so the reported violation is deterministic. A nil result means the
// candidate is valid. Pure function of its arguments.
func Validate(candidate time.Time, rules BookingRules, now time.Time) *RuleViolation {
	// Day boundaries are drawn in the clock's location, so a request
	// expressed in another zone cannot land on the wrong side of a
	// date comparison.
	candidate = candidate.In(now.Location())
	today := dateOf(now)
	candDate := dateOf(candidate)

	if candDate.Before(today) {
		return &RuleViolation{Code: RulePast, Message: "date is in the past"}
	}
	if candDate.After(today.AddDate(0, 0, rules.MaxDaysInAdvance)) {
		return &RuleViolation{Code: RuleTooFar, Message: "date is beyond the booking window"}
	}
	if candidate.Before(now.Add(time.Duration(rules.MinHoursBefore) * time.Hour)) {
		return &RuleViolation{Code: RuleTooSoon, Message: "time is below the minimum notice"}
	}
	if !rules.AvailableDays[candidate.Weekday()] {
		return &RuleViolation{Code: RuleDayUnavailable, Message: "day is not open for bookings"}
	}
	return nil
}

// dateOf truncates an instant to its calendar date in its own location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
