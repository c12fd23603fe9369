package app

import (
	"sync"
	"time"
)

// GenerateSlots produces the ordered bookable start times ("15:04")
// for one date. An all-day busy entry empties the whole date before
// anything else is considered. Deterministic for identical inputs.
func GenerateSlots(date time.Time, busy []BusyInterval, rules BookingRules, now time.Time) []string {
	for _, b := range busy {
		if b.IsAllDay {
			return []string{}
		}
	}

	// Durations of half an hour or less pack back to back; longer
	// meetings start on the hour.
	step := rules.Duration
	if rules.Duration > 30*time.Minute {
		step = time.Hour
	}

	year, month, day := date.Date()
	loc := date.Location()
	dayStart := time.Date(year, month, day, rules.StartHour, 0, 0, 0, loc)
	dayEnd := time.Date(year, month, day, rules.EndHour, 0, 0, 0, loc)

	slots := []string{}
	for s := dayStart; s.Before(dayEnd); s = s.Add(step) {
		// Whole-date rules were checked by the caller, but the notice
		// floor is time-sensitive and re-checked per slot.
		if v := Validate(s, rules, now); v != nil {
			continue
		}
		if overlapsAny(s, s.Add(rules.Duration), busy) {
			continue
		}
		slots = append(slots, s.Format("15:04"))
	}
	return slots
}

// overlapsAny tests the half-open slot window against every timed
// busy interval: slotStart < busyEnd && slotEnd > busyStart.
func overlapsAny(slotStart, slotEnd time.Time, busy []BusyInterval) bool {
	for _, b := range busy {
		if b.IsAllDay {
			continue
		}
		if slotStart.Before(b.End) && slotEnd.After(b.Start) {
			return true
		}
	}
	return false
}

// BusyStore merges fetched busy intervals keyed by date. A fetch
// replaces exactly the date keys its range covers and leaves every
// other date untouched, so a slower month fetch completing after a
// faster day fetch cannot erase results outside its own range.
type BusyStore struct {
	mu   sync.Mutex
	days map[string][]BusyInterval
}

func NewBusyStore() *BusyStore {
	return &BusyStore{days: map[string][]BusyInterval{}}
}

const busyDateKey = "2006-01-02"

// Put stores the intervals fetched for [rangeStart, rangeEnd). Every
// date key inside the range is reset, then refilled from the fetch.
// An interval lands on every date it covers, so a multi-day all-day
// block or a timed interval crossing midnight is visible on each of
// its days. Writes are clamped to the put range; dates outside it
// were not reset and must not accumulate duplicates.
func (s *BusyStore) Put(rangeStart, rangeEnd time.Time, intervals []BusyInterval) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := dateOf(rangeStart)
	for d := from; d.Before(rangeEnd); d = d.AddDate(0, 0, 1) {
		s.days[d.Format(busyDateKey)] = nil
	}
	for _, iv := range intervals {
		for _, d := range coveredDates(iv) {
			if d.Before(from) || !d.Before(rangeEnd) {
				continue
			}
			key := d.Format(busyDateKey)
			s.days[key] = append(s.days[key], iv)
		}
	}
}

// coveredDates lists the calendar dates an interval touches. The end
// is exclusive: an interval ending exactly at midnight does not cover
// the day it ends on.
func coveredDates(iv BusyInterval) []time.Time {
	first := dateOf(iv.Start)
	last := dateOf(iv.End)
	if last.Equal(iv.End) {
		last = last.AddDate(0, 0, -1)
	}
	if last.Before(first) {
		last = first
	}

	var out []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// ForDate returns a copy of the stored intervals for one date.
func (s *BusyStore) ForDate(date time.Time) []BusyInterval {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.days[dateOf(date).Format(busyDateKey)]
	out := make([]BusyInterval, len(stored))
	copy(out, stored)
	return out
}
