package booking

import (
	"context"
	"fmt"

	"github.com/teemow/agendabot/internal/logging"
)

// SlotLength is the length of one bookable slot, in minutes.
const SlotLength = 60

// Slot is an open booking window.
type Slot struct {
	Time    string `json:"time"`
	Display string `json:"display"`
}

// DayAvailability is the open slots of one date.
type DayAvailability struct {
	Date             string
	Slots            []Slot
	BusinessHours    string
	AllowOverlapping bool
	MaxOverlapping   int
	DayOfWeek        string
	Timezone         string
	Closed           bool
	Message          string
}

// CheckAvailability returns the open hourly slots of date for a business.
// A weekday without ranges is a closed day, not an error.
func (e *Engine) CheckAvailability(ctx context.Context, businessID, date string) (*DayAvailability, error) {
	if businessID == "" {
		return nil, ValidationError("missing_business_id", "businessId is required")
	}
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	cred, err := e.ResolveCredential(ctx, businessID)
	if err != nil {
		return nil, err
	}
	hours, err := e.hoursForBooking(ctx, businessID)
	if err != nil {
		return nil, err
	}

	weekday := WeekdayName(day)
	ranges := dayRanges(hours.Hours, weekday)
	result := &DayAvailability{
		Date:             day.Format(dateLayout),
		Slots:            []Slot{},
		BusinessHours:    formatRanges(ranges),
		AllowOverlapping: hours.AllowOverlapping,
		MaxOverlapping:   hours.MaxOverlapping,
		DayOfWeek:        weekday,
		Timezone:         OperatingTimezone,
	}
	if len(ranges) == 0 {
		result.Closed = true
		result.Message = fmt.Sprintf("The business is closed on %s", weekday)
		return result, nil
	}

	provider, err := e.provider(ctx, cred)
	if err != nil {
		return nil, err
	}
	events, err := provider.ListEvents(ctx, cred.CalendarID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, e.providerFailure(ctx, businessID, "availability check", err)
	}

	// Bookings per local start hour. All-day events have no start hour and
	// events that began on an earlier day do not occupy this day's hours.
	perHour := make(map[int]int)
	for _, ev := range events {
		if ev.AllDay || ev.Start.Before(day) {
			continue
		}
		perHour[ev.Start.In(operatingLocation).Hour()]++
	}

	seen := make(map[int]bool)
	for _, r := range ranges {
		for m := r.start; m+SlotLength <= r.end; m += SlotLength {
			if seen[m] {
				continue
			}
			seen[m] = true
			if !slotOpen(perHour[m/60], hours.AllowOverlapping, hours.MaxOverlapping) {
				continue
			}
			result.Slots = append(result.Slots, Slot{Time: slotKey(m), Display: displayClock(m)})
		}
	}

	logging.WithBusiness(e.logger, businessID).Debug("availability computed",
		"date", result.Date, "events", len(events), "slots", len(result.Slots))
	return result, nil
}

// slotOpen applies the overlap policy to the number of existing bookings.
func slotOpen(booked int, allowOverlapping bool, maxOverlapping int) bool {
	if !allowOverlapping {
		return booked == 0
	}
	return booked < maxOverlapping
}
