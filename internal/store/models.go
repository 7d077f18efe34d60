package store

import (
	"time"
)

// Weekday names used as keys of WeeklyHours.
var Weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// IsWeekday reports whether name is one of Weekdays.
func IsWeekday(name string) bool {
	for _, d := range Weekdays {
		if d == name {
			return true
		}
	}
	return false
}

// TimeRange is an opening range within one day, as "HH:MM" clock strings.
type TimeRange struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// WeeklyHours maps a weekday name to its ordered opening ranges.
type WeeklyHours map[string][]TimeRange

// BusinessConfig is the per-business configuration, including the stored
// calendar credential fields.
type BusinessConfig struct {
	ID                string
	Name              string
	CalendarEnabled   bool
	RefreshToken      string
	AccessToken       string
	TokenExpiry       *time.Time
	CalendarID        string
	NeedsReauth       bool
	AssistantID       string
	CalendarUpdatedAt *time.Time
}

// BusinessHours is the weekly schedule and overlap policy of a business.
type BusinessHours struct {
	BusinessID       string
	Hours            WeeklyHours
	AllowOverlapping bool
	MaxOverlapping   int
	UpdatedAt        time.Time
}

// AppointmentType is a named kind of appointment with its duration in minutes.
type AppointmentType struct {
	ID         string
	BusinessID string
	Name       string
	Duration   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CalendarEvent is the local record of a booking.
type CalendarEvent struct {
	ID                string
	BusinessID        string
	EventID           string
	CustomerPhone     string
	CustomerName      string
	EventDate         string // YYYY-MM-DD
	EventTime         string // HH:MM
	AppointmentTypeID string
	Duration          int
	Canceled          bool
	CanceledAt        *time.Time
	Simulation        bool
	CreatedAt         time.Time
}
