package booking

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/agendabot/internal/calendar"
	"github.com/teemow/agendabot/internal/instrumentation"
	"github.com/teemow/agendabot/internal/logging"
	"github.com/teemow/agendabot/internal/store"
)

// SimulationPrefix marks external ids of bookings that have no calendar event.
const SimulationPrefix = "sim-"

// EventDetails is a booking request.
type EventDetails struct {
	Date              string `json:"date"`
	Time              string `json:"time"`
	Phone             string `json:"phone"`
	Name              string `json:"name,omitempty"`
	Email             string `json:"email,omitempty"`
	Title             string `json:"title,omitempty"`
	Description       string `json:"description,omitempty"`
	AppointmentTypeID string `json:"appointmentTypeId,omitempty"`
}

// Booking is a committed appointment.
type Booking struct {
	EventID         string
	DBID            string
	StartTime       string
	EndTime         string
	Title           string
	Date            string
	Time            string
	Duration        int
	AppointmentType *store.AppointmentType
	DurationSource  DurationSource
	Simulation      bool
}

// CreateEvent books an appointment in the external calendar and records it
// locally. A failed local write is logged and counted but the booking still
// succeeds; the calendar is the source of truth.
func (e *Engine) CreateEvent(ctx context.Context, businessID string, d EventDetails) (booking *Booking, err error) {
	defer func() { e.recordBooking(ctx, booking, err) }()

	if businessID == "" {
		return nil, ValidationError("missing_business_id", "businessId is required")
	}
	if strings.TrimSpace(d.Date) == "" || strings.TrimSpace(d.Time) == "" || strings.TrimSpace(d.Phone) == "" {
		return nil, ValidationError("missing_fields", "date, time and phone are required")
	}
	day, err := ParseDate(d.Date)
	if err != nil {
		return nil, err
	}
	minutes, err := ParseClock(d.Time)
	if err != nil {
		return nil, err
	}

	hours, err := e.hoursForBooking(ctx, businessID)
	if err != nil {
		return nil, err
	}
	weekday := WeekdayName(day)
	if !withinRanges(dayRanges(hours.Hours, weekday), minutes) {
		return nil, ValidationError("outside_business_hours", "%s %s is outside business hours", d.Date, formatClock(minutes))
	}

	types, err := e.ListAppointmentTypes(ctx, businessID)
	if err != nil {
		return nil, err
	}
	duration := resolveDuration(types, d.AppointmentTypeID, d.Title)

	start := atMinutes(day, minutes)
	end := start.Add(time.Duration(duration.Minutes) * time.Minute)
	phone := NormalizePhone(d.Phone)
	logger := logging.WithBusiness(e.logger, businessID).With(logging.PhoneHash(phone))

	cred, err := e.ResolveCredential(ctx, businessID)
	simulate := false
	if err != nil {
		if !e.allowSimulation || (KindOf(err) != KindCredential && KindOf(err) != KindConfiguration) {
			return nil, err
		}
		logger.Info("no usable calendar credential, booking as simulation", "reason", CodeOf(err))
		simulate = true
	}

	unlock, err := e.lockWindow(ctx, businessID, start, end)
	if err != nil {
		return nil, ExternalProviderError("lock_failed", err, "failed to reserve the slot")
	}
	defer unlock()

	if simulate {
		overlapping, err := e.localOverlaps(ctx, businessID, start, end)
		if err != nil {
			return nil, err
		}
		if err := checkOverlap(hours, overlapping, d.Date, minutes); err != nil {
			return nil, err
		}
		return e.simulateBooking(ctx, businessID, d, phone, start, end, duration)
	}

	provider, err := e.provider(ctx, cred)
	if err != nil {
		return nil, err
	}
	existing, err := provider.ListEvents(ctx, cred.CalendarID, start, end)
	if err != nil {
		return nil, e.providerFailure(ctx, businessID, "conflict check", err)
	}
	if err := checkOverlap(hours, len(existing), d.Date, minutes); err != nil {
		return nil, err
	}

	title := bookingTitle(d, duration.Type, phone)
	description := d.Description
	if description == "" {
		description = "Appointment booked via chat for " + phone
	}
	input := calendar.EventInput{
		Summary:     title,
		Description: description,
		Start:       start,
		End:         end,
		TimeZone:    OperatingTimezone,
		Private: map[string]string{
			"business_id":    businessID,
			"customer_phone": phone,
			"duration":       strconv.Itoa(duration.Minutes),
		},
	}
	if duration.Type != nil {
		input.Private["appointment_type_id"] = duration.Type.ID
	}
	if email := strings.TrimSpace(d.Email); email != "" {
		input.Attendees = []string{email}
	}

	created, err := provider.InsertEvent(ctx, cred.CalendarID, input)
	if err != nil {
		return nil, e.providerFailure(ctx, businessID, "event insert", err)
	}

	booking = newBooking(created.ID, title, start, end, duration)
	record, err := e.store.InsertCalendarEvent(ctx, calendarRecord(businessID, created.ID, d, phone, start, duration, false))
	if err != nil {
		perr := PersistenceError("write_failed", err, "failed to record booking locally")
		e.metrics.RecordPersistenceFailure(ctx, "insert_calendar_event")
		logger.Error("booking stored in calendar but not locally", "event_id", created.ID, logging.Err(perr))
	} else {
		booking.DBID = record.ID
	}

	logger.Info("appointment booked", "event_id", created.ID, "start", booking.StartTime,
		"duration", duration.Minutes, "duration_source", string(duration.Source))
	return booking, nil
}

// checkOverlap applies the business's overlap policy to the number of
// bookings already intersecting the requested window.
func checkOverlap(hours *store.BusinessHours, overlapping int, date string, minutes int) error {
	if !hours.AllowOverlapping && overlapping > 0 {
		return ConflictError("slot_taken", "the slot %s %s is already booked", date, formatClock(minutes))
	}
	if hours.AllowOverlapping && overlapping >= hours.MaxOverlapping {
		return ConflictError("slot_full", "the slot %s %s already has %d of %d bookings",
			date, formatClock(minutes), overlapping, hours.MaxOverlapping)
	}
	return nil
}

// localOverlaps counts the business's active local records intersecting
// [start, end). The previous day is scanned too since a long appointment
// can run past midnight.
func (e *Engine) localOverlaps(ctx context.Context, businessID string, start, end time.Time) (int, error) {
	from := start.AddDate(0, 0, -1).Format(dateLayout)
	records, err := e.store.ListActiveCalendarEventsBetween(ctx, businessID, from, end.Format(dateLayout))
	if err != nil {
		return 0, PersistenceError("read_failed", err, "failed to check existing bookings")
	}
	n := 0
	for _, rec := range records {
		day, err := ParseDate(rec.EventDate)
		if err != nil {
			continue
		}
		minutes, err := ParseClock(rec.EventTime)
		if err != nil {
			continue
		}
		length := rec.Duration
		if length <= 0 {
			length = DefaultAppointmentDuration
		}
		recStart := atMinutes(day, minutes)
		recEnd := recStart.Add(time.Duration(length) * time.Minute)
		if recStart.Before(end) && recEnd.After(start) {
			n++
		}
	}
	return n, nil
}

func (e *Engine) simulateBooking(ctx context.Context, businessID string, d EventDetails, phone string, start, end time.Time, duration resolvedDuration) (*Booking, error) {
	eventID := SimulationPrefix + uuid.NewString()
	record, err := e.store.InsertCalendarEvent(ctx, calendarRecord(businessID, eventID, d, phone, start, duration, true))
	if err != nil {
		return nil, PersistenceError("write_failed", err, "failed to record simulated booking")
	}
	booking := newBooking(eventID, bookingTitle(d, duration.Type, phone), start, end, duration)
	booking.DBID = record.ID
	booking.Simulation = true
	return booking, nil
}

func (e *Engine) recordBooking(ctx context.Context, b *Booking, err error) {
	switch {
	case err == nil && b.Simulation:
		e.metrics.RecordBooking(ctx, instrumentation.BookingSimulated)
	case err == nil:
		e.metrics.RecordBooking(ctx, instrumentation.BookingBooked)
	case KindOf(err) == KindConflict:
		e.metrics.RecordBooking(ctx, instrumentation.BookingConflict)
	default:
		e.metrics.RecordBooking(ctx, instrumentation.BookingRejected)
	}
}

func newBooking(eventID, title string, start, end time.Time, duration resolvedDuration) *Booking {
	return &Booking{
		EventID:         eventID,
		StartTime:       start.Format(localTimeLayout),
		EndTime:         end.Format(localTimeLayout),
		Title:           title,
		Date:            start.Format(dateLayout),
		Time:            start.Format("15:04"),
		Duration:        duration.Minutes,
		AppointmentType: duration.Type,
		DurationSource:  duration.Source,
	}
}

func calendarRecord(businessID, eventID string, d EventDetails, phone string, start time.Time, duration resolvedDuration, simulation bool) store.CalendarEvent {
	rec := store.CalendarEvent{
		BusinessID:    businessID,
		EventID:       eventID,
		CustomerPhone: phone,
		CustomerName:  strings.TrimSpace(d.Name),
		EventDate:     start.Format(dateLayout),
		EventTime:     start.Format("15:04"),
		Duration:      duration.Minutes,
		Simulation:    simulation,
	}
	if duration.Type != nil {
		rec.AppointmentTypeID = duration.Type.ID
	}
	return rec
}

// bookingTitle is the explicit title, else "Appointment: <type>", else
// "Appointment with <name or phone>".
func bookingTitle(d EventDetails, t *store.AppointmentType, phone string) string {
	if title := strings.TrimSpace(d.Title); title != "" {
		return title
	}
	if t != nil && t.Name != "" {
		return "Appointment: " + t.Name
	}
	who := strings.TrimSpace(d.Name)
	if who == "" {
		who = phone
	}
	return fmt.Sprintf("Appointment with %s", who)
}

// withinRanges reports whether minutes falls in [start, end) of any range.
func withinRanges(ranges []rangeMinutes, minutes int) bool {
	for _, r := range ranges {
		if minutes >= r.start && minutes < r.end {
			return true
		}
	}
	return false
}
