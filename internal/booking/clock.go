package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // embedded zoneinfo, the binary must not depend on the host's
)

// OperatingTimezone is the single IANA zone all business dates and times
// are interpreted in.
const OperatingTimezone = "America/Mexico_City"

const dateLayout = "2006-01-02"

// localTimeLayout renders instants in the operating zone without offset.
const localTimeLayout = "2006-01-02T15:04:05"

var operatingLocation = mustLoadLocation(OperatingTimezone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load %s: %v", name, err))
	}
	return loc
}

// Location returns the operating zone.
func Location() *time.Location {
	return operatingLocation
}

// Clock returns the current instant.
type Clock func() time.Time

// ParseDate parses YYYY-MM-DD as midnight in the operating zone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), operatingLocation)
	if err != nil {
		return time.Time{}, ValidationError("invalid_date", "invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseClock parses "HH:MM", "H", or "HH:MM:SS" into minutes since
// midnight. "24:00" is accepted as the end of the day.
func ParseClock(s string) (int, error) {
	invalid := ValidationError("invalid_time", "invalid time %q, expected HH:MM", s)

	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 0 || len(parts) > 3 {
		return 0, invalid
	}
	var fields [3]int
	for i, p := range parts {
		if p == "" || len(p) > 2 {
			return 0, invalid
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, invalid
		}
		fields[i] = n
	}
	hour, minute, second := fields[0], fields[1], fields[2]
	if minute > 59 || second > 59 || hour > 24 || (hour == 24 && (minute > 0 || second > 0)) {
		return 0, invalid
	}
	return hour*60 + minute, nil
}

// WeekdayName returns the lowercase English weekday of t in the operating zone.
func WeekdayName(t time.Time) string {
	return strings.ToLower(t.In(operatingLocation).Weekday().String())
}

// atMinutes returns the instant minutes after midnight of day.
func atMinutes(day time.Time, minutes int) time.Time {
	y, m, d := day.In(operatingLocation).Date()
	return time.Date(y, m, d, 0, minutes, 0, 0, operatingLocation)
}

// formatClock renders minutes since midnight as zero-padded HH:MM.
func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// slotKey renders a slot start as "H:MM", e.g. "9:00".
func slotKey(minutes int) string {
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}

// displayClock renders a slot start on a 12-hour clock, e.g. "2:00 PM".
func displayClock(minutes int) string {
	hour := (minutes / 60) % 24
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h12 := hour % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, minutes%60, suffix)
}
