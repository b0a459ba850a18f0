package models

import (
	"fmt"
	"time"
)

// DayOfWeek is the closed set of weekday names used for class schedules.
// The canonical ordering (Sunday first) is used for both schedule matching
// and sorted display.
type DayOfWeek string

const (
	DaySunday    DayOfWeek = "Sunday"
	DayMonday    DayOfWeek = "Monday"
	DayTuesday   DayOfWeek = "Tuesday"
	DayWednesday DayOfWeek = "Wednesday"
	DayThursday  DayOfWeek = "Thursday"
	DayFriday    DayOfWeek = "Friday"
	DaySaturday  DayOfWeek = "Saturday"
)

// DayOrder is the canonical Sunday-first ordering.
var DayOrder = []DayOfWeek{DaySunday, DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday}

// Valid reports whether the value is one of the seven weekday names.
func (d DayOfWeek) Valid() bool {
	for _, day := range DayOrder {
		if d == day {
			return true
		}
	}
	return false
}

// Index returns the canonical position (Sunday=0) or -1 for unknown values.
func (d DayOfWeek) Index() int {
	for i, day := range DayOrder {
		if d == day {
			return i
		}
	}
	return -1
}

// DayOfWeekFor maps a calendar weekday onto the schedule enum.
func DayOfWeekFor(w time.Weekday) DayOfWeek {
	return DayOrder[int(w)]
}

// ClassSchedule is one recurring weekly session for a class. A class has at
// most one entry per weekday; no entries means the class cannot accept
// attendance.
type ClassSchedule struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	DayOfWeek DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ParseTimeOfDay converts a HH:MM or HH:MM:SS string to an offset from
// midnight.
func ParseTimeOfDay(raw string) (time.Duration, error) {
	var hh, mm, ss int
	if _, err := fmt.Sscanf(raw, "%d:%d:%d", &hh, &mm, &ss); err != nil {
		ss = 0
		if _, err := fmt.Sscanf(raw, "%d:%d", &hh, &mm); err != nil {
			return 0, fmt.Errorf("parse time of day %q: %w", raw, err)
		}
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 || ss < 0 || ss > 59 {
		return 0, fmt.Errorf("parse time of day %q: out of range", raw)
	}
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute + time.Duration(ss)*time.Second, nil
}

// FormatTimeOfDay renders an offset from midnight as HH:MM for user-facing
// messages.
func FormatTimeOfDay(d time.Duration) string {
	total := int(d / time.Minute)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
