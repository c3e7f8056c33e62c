// Package jobs runs the scheduled maintenance work: liveness
// heartbeats, low-stock replenishment, the weekly report, and order
// reminders. Schedules are plain data so deployments configure cadence
// without code changes.
package jobs

import "time"

// Schedule yields the next run time strictly after a reference instant.
type Schedule interface {
	Next(after time.Time) time.Time
}

type everySchedule struct {
	interval time.Duration
}

// Every runs at a fixed interval.
func Every(interval time.Duration) Schedule {
	if interval <= 0 {
		interval = time.Minute
	}
	return everySchedule{interval: interval}
}

func (s everySchedule) Next(after time.Time) time.Time {
	return after.Add(s.interval)
}

type dailySchedule struct {
	hour, minute int
}

// Daily runs once a day at the given wall-clock time.
func Daily(hour, minute int) Schedule {
	return dailySchedule{hour: hour, minute: minute}
}

func (s dailySchedule) Next(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), s.hour, s.minute, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

type weeklySchedule struct {
	weekday      time.Weekday
	hour, minute int
}

// Weekly runs once a week on the given weekday and wall-clock time.
func Weekly(weekday time.Weekday, hour, minute int) Schedule {
	return weeklySchedule{weekday: weekday, hour: hour, minute: minute}
}

func (s weeklySchedule) Next(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), s.hour, s.minute, 0, 0, after.Location())
	days := (int(s.weekday) - int(next.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, days)
	if !next.After(after) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}
