package booking

import (
	"context"
	"errors"
	"strings"

	"github.com/teemow/agendabot/internal/logging"
	"github.com/teemow/agendabot/internal/store"
)

// CodeHoursNotConfigured is returned when a business has no hours record.
const CodeHoursNotConfigured = "hours_not_configured"

// GetBusinessHours returns the stored weekly hours and overlap policy.
func (e *Engine) GetBusinessHours(ctx context.Context, businessID string) (*store.BusinessHours, error) {
	if businessID == "" {
		return nil, ValidationError("missing_business_id", "businessId is required")
	}
	hours, err := e.store.GetBusinessHours(ctx, businessID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFoundError(CodeHoursNotConfigured, "business hours are not configured for %s", businessID)
	}
	if err != nil {
		return nil, PersistenceError("read_failed", err, "failed to load business hours")
	}
	return hours, nil
}

// SaveBusinessHours validates and upserts the weekly hours of a business.
// When overlapping is disallowed maxOverlapping is stored as 1.
func (e *Engine) SaveBusinessHours(ctx context.Context, businessID string, hours store.WeeklyHours, allowOverlapping bool, maxOverlapping int) (*store.BusinessHours, error) {
	if businessID == "" {
		return nil, ValidationError("missing_business_id", "businessId is required")
	}
	normalized, err := normalizeHours(hours)
	if err != nil {
		return nil, err
	}
	if !allowOverlapping {
		maxOverlapping = 1
	} else if maxOverlapping < 1 {
		return nil, ValidationError("invalid_max_overlapping", "maxOverlapping must be at least 1 when overlapping is allowed")
	}

	saved, err := e.store.SaveBusinessHours(ctx, store.BusinessHours{
		BusinessID:       businessID,
		Hours:            normalized,
		AllowOverlapping: allowOverlapping,
		MaxOverlapping:   maxOverlapping,
		UpdatedAt:        e.now(),
	})
	if err != nil {
		return nil, PersistenceError("write_failed", err, "failed to save business hours")
	}
	e.logger.Info("business hours saved", logging.Business(businessID),
		"allow_overlapping", allowOverlapping, "max_overlapping", maxOverlapping)
	return saved, nil
}

// hoursForBooking loads hours where their absence makes the request invalid.
func (e *Engine) hoursForBooking(ctx context.Context, businessID string) (*store.BusinessHours, error) {
	hours, err := e.GetBusinessHours(ctx, businessID)
	if KindOf(err) == KindNotFound {
		return nil, ValidationError(CodeHoursNotConfigured, "business hours are not configured")
	}
	return hours, err
}

// normalizeHours lowercases weekday keys, checks every range and rewrites
// clock strings as HH:MM.
func normalizeHours(hours store.WeeklyHours) (store.WeeklyHours, error) {
	out := make(store.WeeklyHours, len(hours))
	for day, ranges := range hours {
		key := strings.ToLower(strings.TrimSpace(day))
		if !store.IsWeekday(key) {
			return nil, ValidationError("invalid_weekday", "unknown weekday %q", day)
		}
		clean := make([]store.TimeRange, 0, len(ranges))
		for _, r := range ranges {
			start, err := ParseClock(r.Start)
			if err != nil {
				return nil, err
			}
			end, err := ParseClock(r.End)
			if err != nil {
				return nil, err
			}
			if start >= end {
				return nil, ValidationError("invalid_range", "%s range %s-%s must start before it ends", key, r.Start, r.End)
			}
			clean = append(clean, store.TimeRange{Start: formatClock(start), End: formatClock(end)})
		}
		out[key] = append(out[key], clean...)
	}
	return out, nil
}

// rangeMinutes is a parsed opening range.
type rangeMinutes struct {
	start, end int
}

// dayRanges returns the parsed ranges configured for weekday. Unparsable
// ranges are skipped.
func dayRanges(hours store.WeeklyHours, weekday string) []rangeMinutes {
	var out []rangeMinutes
	for _, r := range hours[weekday] {
		start, err := ParseClock(r.Start)
		if err != nil {
			continue
		}
		end, err := ParseClock(r.End)
		if err != nil || start >= end {
			continue
		}
		out = append(out, rangeMinutes{start: start, end: end})
	}
	return out
}

// formatRanges renders ranges as "09:00 - 12:00, 14:00 - 18:00".
func formatRanges(ranges []rangeMinutes) string {
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		parts = append(parts, formatClock(r.start)+" - "+formatClock(r.end))
	}
	return strings.Join(parts, ", ")
}
