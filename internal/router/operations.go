package router

import (
	"context"
	"encoding/json"

	"github.com/teemow/agendabot/internal/booking"
	"github.com/teemow/agendabot/internal/store"
)

// Operation names.
const (
	OpCheckAvailability     = "check_calendar_availability"
	OpCreateEvent           = "create_calendar_event"
	OpScheduleAppointment   = "schedule_appointment"
	OpFindAppointments      = "find_customer_appointments"
	OpDeleteEvent           = "delete_calendar_event"
	OpAssistantCalendarInfo = "get_assistant_calendar_info"
	OpCalendarInfo          = "get_calendar_info"
	OpMonthAvailability     = "get_month_availability"
	OpListEvents            = "get_calendar_events"
	OpGetBusinessHours      = "get_business_hours"
	OpSaveBusinessHours     = "save_business_hours"
	OpGetAppointmentTypes   = "get_appointment_types"
	OpSaveAppointmentType   = "save_appointment_type"
	OpDeleteAppointmentType = "delete_appointment_type"
)

func (r *Router) operations() map[string]operation {
	create := operation{
		description: "Book an appointment in the business calendar. Check availability first. " +
			"Dates are YYYY-MM-DD and times HH:MM in the business timezone.",
		parameters: object([]string{"businessId", "eventDetails"}, map[string]any{
			"businessId": str("Business identifier"),
			"eventDetails": object([]string{"date", "time", "phone"}, map[string]any{
				"date":              str("Appointment date, YYYY-MM-DD"),
				"time":              str("Start time, HH:MM (24h)"),
				"phone":             str("Customer phone number"),
				"name":              str("Customer name"),
				"email":             str("Customer email, added as attendee"),
				"title":             str("Event title or appointment type name"),
				"description":       str("Event description"),
				"appointmentTypeId": str("Appointment type identifier"),
			}),
		}),
		calendar: true,
		handle:   r.createEvent,
	}
	info := operation{
		description: "Get the business's calendar setup, hours, appointment types, today's date and, " +
			"when a date is given, that day's availability.",
		parameters: object([]string{"businessId"}, map[string]any{
			"businessId": str("Business identifier"),
			"date":       str("Optional date to check, YYYY-MM-DD"),
		}),
		calendar: true,
		handle:   r.calendarInfo,
	}

	schedule := create
	schedule.description = "Alias of " + OpCreateEvent + ". " + create.description
	alias := info
	alias.description = "Alias of " + OpAssistantCalendarInfo + ". " + info.description

	return map[string]operation{
		OpCheckAvailability: {
			description: "List the open one-hour slots of a date for the business.",
			parameters: object([]string{"businessId", "date"}, map[string]any{
				"businessId": str("Business identifier"),
				"date":       str("Date to check, YYYY-MM-DD"),
			}),
			calendar: true,
			handle:   r.checkAvailability,
		},
		OpCreateEvent:           create,
		OpScheduleAppointment:   schedule,
		OpAssistantCalendarInfo: info,
		OpCalendarInfo:          alias,
		OpFindAppointments: {
			description: "List a customer's upcoming appointments by phone number.",
			parameters: object([]string{"businessId", "phoneNumber"}, map[string]any{
				"businessId":  str("Business identifier"),
				"phoneNumber": str("Customer phone number"),
			}),
			calendar: true,
			handle:   r.findAppointments,
		},
		OpDeleteEvent: {
			description: "Cancel an appointment by its id or its calendar event id.",
			parameters: object([]string{"businessId", "eventId"}, map[string]any{
				"businessId": str("Business identifier"),
				"eventId":    str("Appointment id or calendar event id"),
			}),
			calendar: true,
			handle:   r.deleteEvent,
		},
		OpMonthAvailability: {
			description: "Show which days of a date range (at most 62 days) still have room.",
			parameters: object([]string{"businessId", "startDate", "endDate"}, map[string]any{
				"businessId": str("Business identifier"),
				"startDate":  str("First date, YYYY-MM-DD"),
				"endDate":    str("Last date, YYYY-MM-DD"),
			}),
			calendar: true,
			handle:   r.monthAvailability,
		},
		OpListEvents: {
			description: "List the raw calendar events of a date range (at most 62 days). " +
				"Dates default to today.",
			parameters: object([]string{"businessId"}, map[string]any{
				"businessId": str("Business identifier"),
				"startDate":  str("First date, YYYY-MM-DD"),
				"endDate":    str("Last date, YYYY-MM-DD"),
			}),
			calendar: true,
			admin:    true,
			handle:   r.listEvents,
		},
		OpGetBusinessHours: {
			description: "Get the business's weekly opening hours and overlap policy.",
			parameters: object([]string{"businessId"}, map[string]any{
				"businessId": str("Business identifier"),
			}),
			handle: r.getBusinessHours,
		},
		OpSaveBusinessHours: {
			description: "Replace the business's weekly opening hours and overlap policy.",
			parameters: object([]string{"businessId", "hours"}, map[string]any{
				"businessId": str("Business identifier"),
				"hours": map[string]any{
					"type":        "object",
					"description": "Map of lowercase weekday (sunday..saturday) to a list of {start, end} HH:MM ranges",
					"additionalProperties": map[string]any{
						"type": "array",
						"items": object([]string{"start", "end"}, map[string]any{
							"start": str("Opening time, HH:MM"),
							"end":   str("Closing time, HH:MM"),
						}),
					},
				},
				"allowOverlapping": map[string]any{"type": "boolean", "description": "Allow several bookings per hour"},
				"maxOverlapping":   map[string]any{"type": "integer", "description": "Bookings allowed per hour when overlapping, default 1", "minimum": 1},
			}),
			admin:  true,
			handle: r.saveBusinessHours,
		},
		OpGetAppointmentTypes: {
			description: "List the business's appointment types in configured order.",
			parameters: object([]string{"businessId"}, map[string]any{
				"businessId": str("Business identifier"),
			}),
			handle: r.getAppointmentTypes,
		},
		OpSaveAppointmentType: {
			description: "Create an appointment type, or update it when appointmentTypeId is given.",
			parameters: object([]string{"businessId", "name", "duration"}, map[string]any{
				"businessId":        str("Business identifier"),
				"appointmentTypeId": str("Existing type to update"),
				"name":              str("Type name"),
				"duration": map[string]any{
					"type":        "integer",
					"description": "Duration in minutes",
					"minimum":     booking.MinAppointmentDuration,
					"maximum":     booking.MaxAppointmentDuration,
				},
			}),
			admin:  true,
			handle: r.saveAppointmentType,
		},
		OpDeleteAppointmentType: {
			description: "Delete an appointment type.",
			parameters: object([]string{"businessId", "appointmentTypeId"}, map[string]any{
				"businessId":        str("Business identifier"),
				"appointmentTypeId": str("Type to delete"),
			}),
			admin:  true,
			handle: r.deleteAppointmentType,
		},
	}
}

func object(required []string, properties map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func str(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func (r *Router) checkAvailability(ctx context.Context, raw json.RawMessage) (Envelope, error) {
	var args struct {
		BusinessID string `json:"businessId"`
		Date       string `json:"date"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	day, err := r.engine.CheckAvailability(ctx, args.BusinessID, args.Date)
	if err != nil {
		return nil, err
	}
	env := Envelope{
		"date":              day.Date,
		"available_slots":   day.Slots,
		"business_hours":    day.BusinessHours,
		"allow_overlapping": day.AllowOverlapping,
		"max_overlapping":   day.MaxOverlapping,
		"day_of_week":       day.DayOfWeek,
		"timezone":          day.Timezone,
	}
	if day.Message != "" {
		env["message"] = day.Message
	}
	return env, nil
}

func (r *Router) createEvent(ctx context.Context, raw json.RawMessage) (Envelope, error) {
	var args struct {
		BusinessID   string                `json:"businessId"`
		EventDetails *booking.EventDetails `json:"eventDetails"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	// Some callers send the details flat next to businessId.
	if args.EventDetails == nil {
		args.EventDetails = &booking.EventDetails{}
		if err := decode(raw, args.EventDetails); err != nil {
			return nil, err
		}
	}

	b, err := r.engine.CreateEvent(ctx, args.BusinessID, *args.EventDetails)
	if err != nil {
		return nil, err
	}
	env := Envelope{
		"event_id":        b.EventID,
		"start_time":      b.StartTime,
		"end_time":        b.EndTime,
		"title":           b.Title,
		"date":            b.Date,
		"time":            b.Time,
		"duration":        b.Duration,
		"duration_source": string(b.DurationSource),
		"timezone":        booking.OperatingTimezone,
	}
	if b.DBID != "" {
		env["db_id"] = b.DBID
	}
	if b.AppointmentType != nil {
		env["appointment_type"] = appointmentType(*b.AppointmentType)
	}
	if b.Simulation {
		env["simulation"] = true
	}
	return env, nil
}

func (r *Router) findAppointments(ctx context.Context, raw json.RawMessage) (Envelope, error) {
	var args struct {
		BusinessID  string `json:"businessId"`
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	appointments, err := r.engine.FindCustomerAppointments(ctx, args.BusinessID, args.PhoneNumber)
	if err != nil {
		return nil, err
	}
	return Envelope{"appointments": appointments, "count": len(appointments)}, nil
}

func (r *Router) deleteEvent(ctx context.Context, raw json.RawMessage) (Envelope, error) {
	var args struct {
		BusinessID string `json:"businessId"`
		EventID    string `json:"eventId"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	c, err := r.engine.DeleteEvent(ctx, args.BusinessID, args.EventID)
	if err != nil {
		return nil, err
	}
	env := Envelope{"message": c.Message, "event_id": c.EventID, "simulation": c.Simulation}
	if c.DBID != "" {
		env["db_id"] = c.DBID
	}
	return env, nil
}

func (r *Router) calendarInfo(ctx context.Context, raw json.RawMessage) (Envelope, error) {
	var args struct {
		BusinessID string `json:"businessId"`
		Date       string `json:"date"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	info, err := r.engine.AssistantCalendarInfo(ctx, args.BusinessID, args.Date)
	if err != nil {
		return nil, err
	}

	types := make([]map[string]any, 0, len(info.AppointmentTypes))
	for _, t := range info.AppointmentTypes {
		types = append(types, appointmentType(t))
	}
	env := Envelope{
		"business_id":       info.BusinessID,
		"needs_setup":       info.NeedsSetup,
		"business_hours":    nil,
		"appointment_types": types,
		"current_date":      info.CurrentDate,
		"relative_dates":    info.RelativeDates,
		"timezone":          booking.OperatingTimezone,
	}
	if info.BusinessName != "" {
		env["business_name"] = info.BusinessName
	}
	if info.NeedsSetup {
		env["setup_reason"] = info.SetupReason
	}
	if info.BusinessHours != nil {
		env["business_hours"] = hoursEnvelope(info.BusinessHours)
	}
	if info.Availability != nil {
		env["availability"] = Envelope{
			"date":            info.Availability.Date,
			"available_slots": info.Availability.Slots,
			"business_hours":  info.Availability.BusinessHours,
			"day_of_week":     info.Availability.DayOfWeek,
		}
	}
	if info.AvailabilityError != "" {
		env["availability_error"] = info.AvailabilityError
	}
	return env, nil
}

func (r *Router) monthAvailability(ctx context.Context, raw json.RawMessage) (Envelope, error) {
	var args struct {
		BusinessID string `json:"businessId"`
		StartDate  string `json:"startDate"`
		EndDate    string `json:"endDate"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	view, err := r.engine.MonthAvailability(ctx, args.BusinessID, args.StartDate, args.EndDate)
	if err != nil {
		return nil, err
	}
	return Envelope{"daysAvailable": view.Days, "businessId": view.BusinessID}, nil
}

func (r *Router) listEvents(ctx context.Context, raw json.RawMessage) (Envelope, error) {
	var args struct {
		BusinessID string `json:"businessId"`
		StartDate  string `json:"startDate"`
		EndDate    string `json:"endDate"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	events, err := r.engine.ListCalendarEvents(ctx, args.BusinessID, args.StartDate, args.EndDate)
	if err != nil {
		return nil, err
	}
	return Envelope{"events": events, "count": len(events)}, nil
}

func (r *Router) getBusinessHours(ctx context.Context, raw json.RawMessage) (Envelope, error) {
	var args struct {
		BusinessID string `json:"businessId"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	hours, err := r.engine.GetBusinessHours(ctx, args.BusinessID)
	if err != nil {
		return nil, err
	}
	return hoursEnvelope(hours), nil
}

func (r *Router) saveBusinessHours(ctx context.Context, raw json.RawMessage) (Envelope, error) {
	var args struct {
		BusinessID       string            `json:"businessId"`
		Hours            store.WeeklyHours `json:"hours"`
		AllowOverlapping bool              `json:"allowOverlapping"`
		MaxOverlapping   *int              `json:"maxOverlapping"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	if args.Hours == nil {
		return nil, booking.ValidationError("missing_hours", "hours are required")
	}
	maxOverlapping := 1
	if args.MaxOverlapping != nil {
		maxOverlapping = *args.MaxOverlapping
	}
	saved, err := r.engine.SaveBusinessHours(ctx, args.BusinessID, args.Hours, args.AllowOverlapping, maxOverlapping)
	if err != nil {
		return nil, err
	}
	return hoursEnvelope(saved), nil
}

func (r *Router) getAppointmentTypes(ctx context.Context, raw json.RawMessage) (Envelope, error) {
	var args struct {
		BusinessID string `json:"businessId"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	types, err := r.engine.ListAppointmentTypes(ctx, args.BusinessID)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(types))
	for _, t := range types {
		out = append(out, appointmentType(t))
	}
	return Envelope{"appointment_types": out, "count": len(out)}, nil
}

func (r *Router) saveAppointmentType(ctx context.Context, raw json.RawMessage) (Envelope, error) {
	var args struct {
		BusinessID        string `json:"businessId"`
		AppointmentTypeID string `json:"appointmentTypeId"`
		Name              string `json:"name"`
		Duration          int    `json:"duration"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	saved, err := r.engine.SaveAppointmentType(ctx, store.AppointmentType{
		ID:         args.AppointmentTypeID,
		BusinessID: args.BusinessID,
		Name:       args.Name,
		Duration:   args.Duration,
	})
	if err != nil {
		return nil, err
	}
	return Envelope{"appointment_type": appointmentType(*saved)}, nil
}

func (r *Router) deleteAppointmentType(ctx context.Context, raw json.RawMessage) (Envelope, error) {
	var args struct {
		BusinessID        string `json:"businessId"`
		AppointmentTypeID string `json:"appointmentTypeId"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, err
	}
	if err := r.engine.DeleteAppointmentType(ctx, args.BusinessID, args.AppointmentTypeID); err != nil {
		return nil, err
	}
	return Envelope{"message": "Appointment type deleted", "appointment_type_id": args.AppointmentTypeID}, nil
}

func hoursEnvelope(h *store.BusinessHours) Envelope {
	return Envelope{
		"businessId":       h.BusinessID,
		"hours":            h.Hours,
		"allowOverlapping": h.AllowOverlapping,
		"maxOverlapping":   h.MaxOverlapping,
	}
}

func appointmentType(t store.AppointmentType) map[string]any {
	return map[string]any{"id": t.ID, "name": t.Name, "duration": t.Duration}
}
