package booking

import (
	"context"
	"time"

	"github.com/teemow/agendabot/internal/store"
)

// CurrentDate describes today in the operating zone.
type CurrentDate struct {
	ISO       string `json:"iso"`
	Day       int    `json:"day"`
	Month     int    `json:"month"`
	Year      int    `json:"year"`
	DayOfWeek int    `json:"day_of_week"`
	DayName   string `json:"day_name"`
	MonthName string `json:"month_name"`
	Formatted string `json:"formatted"`
}

// RelativeDates are common relative dates as YYYY-MM-DD.
type RelativeDates struct {
	Tomorrow         string `json:"tomorrow"`
	DayAfterTomorrow string `json:"day_after_tomorrow"`
	NextWeek         string `json:"next_week"`
}

// CalendarInfo is the context handed to the assistant about a business's
// calendar.
type CalendarInfo struct {
	BusinessID        string
	BusinessName      string
	NeedsSetup        bool
	SetupReason       string
	BusinessHours     *store.BusinessHours
	AppointmentTypes  []store.AppointmentType
	Availability      *DayAvailability
	AvailabilityError string
	CurrentDate       CurrentDate
	RelativeDates     RelativeDates
}

// AssistantCalendarInfo gathers setup state, hours, appointment types and,
// when date is set, that day's availability. Missing pieces are reported
// in the result rather than failing the call.
func (e *Engine) AssistantCalendarInfo(ctx context.Context, businessID, date string) (*CalendarInfo, error) {
	if businessID == "" {
		return nil, ValidationError("missing_business_id", "businessId is required")
	}
	if date != "" {
		if _, err := ParseDate(date); err != nil {
			return nil, err
		}
	}

	today := e.today()
	info := &CalendarInfo{
		BusinessID:       businessID,
		AppointmentTypes: []store.AppointmentType{},
		CurrentDate:      describeDate(today),
		RelativeDates: RelativeDates{
			Tomorrow:         today.AddDate(0, 0, 1).Format(dateLayout),
			DayAfterTomorrow: today.AddDate(0, 0, 2).Format(dateLayout),
			NextWeek:         today.AddDate(0, 0, 7).Format(dateLayout),
		},
	}

	cred, err := e.ResolveCredential(ctx, businessID)
	if err != nil {
		info.NeedsSetup = true
		info.SetupReason = CodeOf(err)
		if info.SetupReason == "" {
			info.SetupReason = err.Error()
		}
	} else {
		info.BusinessName = cred.BusinessName
	}

	hours, err := e.GetBusinessHours(ctx, businessID)
	switch {
	case err == nil:
		info.BusinessHours = hours
	case KindOf(err) != KindNotFound:
		return nil, err
	}

	types, err := e.ListAppointmentTypes(ctx, businessID)
	if err != nil {
		return nil, err
	}
	info.AppointmentTypes = types

	if date != "" && !info.NeedsSetup {
		availability, err := e.CheckAvailability(ctx, businessID, date)
		if err != nil {
			info.AvailabilityError = err.Error()
		} else {
			info.Availability = availability
		}
	}
	return info, nil
}

func describeDate(t time.Time) CurrentDate {
	return CurrentDate{
		ISO:       t.Format(dateLayout),
		Day:       t.Day(),
		Month:     int(t.Month()),
		Year:      t.Year(),
		DayOfWeek: int(t.Weekday()),
		DayName:   t.Weekday().String(),
		MonthName: t.Month().String(),
		Formatted: t.Format("Monday, January 2, 2006"),
	}
}
