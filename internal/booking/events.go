package booking

import (
	"context"
	"strings"
)

// ListCalendarEvents returns the raw calendar events of [startDate, endDate].
// An empty startDate means today; an empty endDate means startDate.
func (e *Engine) ListCalendarEvents(ctx context.Context, businessID, startDate, endDate string) ([]DayEvent, error) {
	if businessID == "" {
		return nil, ValidationError("missing_business_id", "businessId is required")
	}
	if strings.TrimSpace(startDate) == "" {
		startDate = e.now().In(operatingLocation).Format(dateLayout)
	}
	if strings.TrimSpace(endDate) == "" {
		endDate = startDate
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
	if len(daysBetween(first, last)) > MaxMonthRangeDays {
		return nil, ValidationError("range_too_long", "date range must not exceed %d days", MaxMonthRangeDays)
	}

	cred, err := e.ResolveCredential(ctx, businessID)
	if err != nil {
		return nil, err
	}
	provider, err := e.provider(ctx, cred)
	if err != nil {
		return nil, err
	}
	events, err := provider.ListEvents(ctx, cred.CalendarID, first, last.AddDate(0, 0, 1))
	if err != nil {
		return nil, e.providerFailure(ctx, businessID, "event listing", err)
	}

	out := make([]DayEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, toDayEvent(ev))
	}
	return out, nil
}
