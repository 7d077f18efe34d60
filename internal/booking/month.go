package booking

import (
	"context"
	"time"

	"github.com/teemow/agendabot/internal/calendar"
	"github.com/teemow/agendabot/internal/logging"
)

const (
	// DaySaturationThreshold is the event count at which a day is shown as
	// unavailable in the month view.
	DaySaturationThreshold = 8

	// MaxMonthRangeDays bounds the month view range.
	MaxMonthRangeDays = 62
)

// DayEvent is an event listed in the month view.
type DayEvent struct {
	ID       string `json:"id"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Summary  string `json:"summary"`
	IsAllDay bool   `json:"isAllDay"`
}

// DayStatus is one day of the month view.
type DayStatus struct {
	Date      string     `json:"date"`
	Available bool       `json:"available"`
	DayOfWeek string     `json:"dayOfWeek"`
	Events    []DayEvent `json:"events"`
}

// MonthView is the per-day availability of a date range.
type MonthView struct {
	BusinessID string
	Days       []DayStatus
}

// MonthAvailability marks each day of [startDate, endDate] available unless
// it has an all-day event or at least DaySaturationThreshold events.
func (e *Engine) MonthAvailability(ctx context.Context, businessID, startDate, endDate string) (*MonthView, error) {
	if businessID == "" {
		return nil, ValidationError("missing_business_id", "businessId is required")
	}
	first, err := ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	last, err := ParseDate(endDate)
	if err != nil {
		return nil, err
	}
	if last.Before(first) {
		return nil, ValidationError("invalid_range", "endDate must not be before startDate")
	}
	dates := daysBetween(first, last)
	if len(dates) > MaxMonthRangeDays {
		return nil, ValidationError("range_too_long", "date range must not exceed %d days", MaxMonthRangeDays)
	}

	cred, err := e.ResolveCredential(ctx, businessID)
	if err != nil {
		if CodeOf(err) == CodeMissingRefreshToken {
			if markErr := e.MarkNeedsReauth(ctx, businessID); markErr != nil {
				e.logger.Error("failed to flag credential without refresh token",
					logging.Business(businessID), logging.Err(markErr))
			}
		}
		return nil, err
	}

	provider, err := e.provider(ctx, cred)
	if err != nil {
		return nil, err
	}
	events, err := provider.ListEvents(ctx, cred.CalendarID, first, last.AddDate(0, 0, 1))
	if err != nil {
		return nil, e.providerFailure(ctx, businessID, "month availability", err)
	}

	perDay := make(map[string][]calendar.Event)
	for _, ev := range events {
		for _, d := range eventDays(ev) {
			perDay[d] = append(perDay[d], ev)
		}
	}

	view := &MonthView{BusinessID: businessID, Days: make([]DayStatus, 0, len(dates))}
	for _, d := range dates {
		key := d.Format(dateLayout)
		status := DayStatus{Date: key, Available: true, DayOfWeek: WeekdayName(d), Events: []DayEvent{}}
		for _, ev := range perDay[key] {
			if ev.AllDay {
				status.Available = false
			}
			status.Events = append(status.Events, toDayEvent(ev))
		}
		if len(status.Events) >= DaySaturationThreshold {
			status.Available = false
		}
		view.Days = append(view.Days, status)
	}
	return view, nil
}

// daysBetween returns every midnight from first to last inclusive.
func daysBetween(first, last time.Time) []time.Time {
	var out []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// eventDays returns the local dates an event is listed under. All-day
// events cover every date up to their exclusive end date.
func eventDays(ev calendar.Event) []string {
	if !ev.AllDay {
		if ev.Start.IsZero() {
			return nil
		}
		return []string{ev.Start.In(operatingLocation).Format(dateLayout)}
	}
	start, err := ParseDate(ev.StartDate)
	if err != nil {
		return nil
	}
	end, err := ParseDate(ev.EndDate)
	if err != nil || !end.After(start) {
		return []string{ev.StartDate}
	}
	var out []string
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(dateLayout))
	}
	return out
}

func toDayEvent(ev calendar.Event) DayEvent {
	out := DayEvent{ID: ev.ID, Summary: ev.Summary, IsAllDay: ev.AllDay}
	if ev.AllDay {
		out.Start, out.End = ev.StartDate, ev.EndDate
		return out
	}
	out.Start = ev.Start.In(operatingLocation).Format(time.RFC3339)
	out.End = ev.End.In(operatingLocation).Format(time.RFC3339)
	return out
}
