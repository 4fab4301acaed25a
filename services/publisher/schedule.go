package publisher

import (
	"time"

	"bidwatch/lib/timezone"
)

// HourRange is a half-open window of platform-local hours, From
// inclusive, To exclusive. From > To spans midnight.
type HourRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (r HourRange) contains(hour int) bool {
	if r.From <= r.To {
		return hour >= r.From && hour < r.To
	}
	return hour >= r.From || hour < r.To
}

// Rule is an explicit recurrence rule: run every EveryMinutes minutes,
// but only while the platform-local hour falls inside one of the Hours
// windows. No windows means the rule fires around the clock.
type Rule struct {
	Hours        []HourRange `json:"hours"`
	EveryMinutes int         `json:"every_minutes"`
}

// Interval returns the tick interval, defaulting to 30 minutes.
func (r Rule) Interval() time.Duration {
	if r.EveryMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(r.EveryMinutes) * time.Minute
}

// Allows reports whether a run may fire at t.
func (r Rule) Allows(t time.Time) bool {
	if len(r.Hours) == 0 {
		return true
	}
	hour := t.In(timezone.Location).Hour()
	for _, window := range r.Hours {
		if window.contains(hour) {
			return true
		}
	}
	return false
}

// Next returns the first instant after t at which the rule fires.
func (r Rule) Next(t time.Time) time.Time {
	next := t.Add(r.Interval())
	if r.Allows(next) {
		return next
	}
	// skip forward hour by hour to the start of the next window
	next = next.In(timezone.Location).Truncate(time.Hour)
	for range 48 {
		next = next.Add(time.Hour)
		if r.Allows(next) {
			return next
		}
	}
	return next
}
